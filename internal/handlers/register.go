package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/crypto"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/metrics"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	PublicKey string `json:"publicKey"`
	AgentName string `json:"agentName"`
	AgentType string `json:"agentType"`
	OrgID     string `json:"orgId"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	AgentID    string `json:"agentId"`
	AgentName  string `json:"agentName"`
	Registered bool   `json:"registered"`
	Existing   bool   `json:"existing"`
}

// Register handles agent enrollment. The public key itself is the
// credential being presented (trust on first use): no signature is
// required here, deliberately unlike the protected endpoints.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.PublicKey == "" || req.AgentName == "" || req.OrgID == "" {
		h.Error(w, http.StatusBadRequest, "publicKey, agentName and orgId are required")
		return
	}
	if !strings.Contains(req.PublicKey, crypto.PublicKeyPEMMarker) {
		h.Error(w, http.StatusBadRequest, "publicKey must be a PEM-encoded public key")
		return
	}

	// Upsert keyed on exact public key equality: the same key
	// re-registering is the same agent re-connecting.
	existing, err := h.store.GetAgentByPublicKey(r.Context(), req.PublicKey)
	if err != nil {
		h.logger.Error().Err(err).Msg("agent lookup failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if existing != nil {
		if err := h.store.MarkAgentConnected(r.Context(), existing.ID, models.ConnectionTypeEd25519); err != nil {
			h.logger.Error().Err(err).Msg("agent reconnect update failed")
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}

		// The originally registered name wins for display purposes.
		name := existing.Name
		if name == "" {
			name = req.AgentName
		}

		metrics.AgentsRegistered.WithLabelValues("true").Inc()
		h.JSON(w, http.StatusOK, RegisterResponse{
			AgentID:    existing.ID.String(),
			AgentName:  name,
			Registered: true,
			Existing:   true,
		})
		return
	}

	agent, err := h.store.CreateAgent(r.Context(), &models.Agent{
		Name:           req.AgentName,
		Type:           req.AgentType,
		OrganizationID: req.OrgID,
		PublicKey:      req.PublicKey,
		Status:         models.StatusOnline,
		ConnectionType: models.ConnectionTypeEd25519,
		ProjectIDs:     []string{h.defaultProject},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("agent create failed")
		h.Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	metrics.AgentsRegistered.WithLabelValues("false").Inc()
	h.JSON(w, http.StatusOK, RegisterResponse{
		AgentID:    agent.ID.String(),
		AgentName:  agent.Name,
		Registered: true,
		Existing:   false,
	})
}
