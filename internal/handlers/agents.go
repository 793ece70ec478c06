package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AgentProfileResponse represents the agent profile response.
type AgentProfileResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Type           string   `json:"type,omitempty"`
	OrgID          string   `json:"orgId,omitempty"`
	PublicKey      string   `json:"publicKey"`
	Status         string   `json:"status"`
	ConnectionType string   `json:"connectionType,omitempty"`
	ProjectIDs     []string `json:"projectIds"`
	LastSeen       string   `json:"lastSeen"`
	JoinedAt       string   `json:"joinedAt"`
}

// AgentProfile handles public agent directory lookup.
func (h *Handler) AgentProfile(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent ID format")
		return
	}

	agent, err := h.store.GetAgentByID(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("agent lookup failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	h.JSON(w, http.StatusOK, AgentProfileResponse{
		ID:             agent.ID.String(),
		Name:           agent.Name,
		Type:           agent.Type,
		OrgID:          agent.OrganizationID,
		PublicKey:      agent.PublicKey,
		Status:         agent.Status,
		ConnectionType: agent.ConnectionType,
		ProjectIDs:     agent.ProjectIDs,
		LastSeen:       agent.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
		JoinedAt:       agent.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
