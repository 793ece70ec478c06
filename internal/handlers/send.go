package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/auth"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/crypto"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/metrics"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// SendRequest represents the send request body.
type SendRequest struct {
	Agent     string `json:"agent"`
	ChannelID string `json:"channelId"`
	Text      string `json:"text"`
	Nonce     string `json:"nonce"`
	Sig       string `json:"sig"`
	ReplyTo   string `json:"replyTo,omitempty"`
}

// SendResponse represents the send response.
type SendResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	SentAt    int64  `json:"sentAt"`
}

// Send authenticates and persists an outbound agent message. Check
// order matters here: the replay guard runs before the signature so
// a resubmitted request is rejected without spending a verification,
// and the 409 tells the client to mint a new nonce rather than doubt
// its key.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Agent == "" || req.ChannelID == "" || req.Text == "" || req.Nonce == "" || req.Sig == "" {
		h.Error(w, http.StatusBadRequest, "agent, channelId, text, nonce and sig are required")
		return
	}

	// Atomic check-and-consume: once this passes, the nonce is burned
	// even if the signature below fails. Retries need a fresh nonce.
	fresh, err := h.guard.CheckAndConsume(r.Context(), req.Nonce)
	if err != nil {
		h.logger.Error().Err(err).Msg("replay guard failed")
		h.Error(w, http.StatusInternalServerError, "replay check failed")
		return
	}
	if !fresh {
		metrics.ReplayRejections.Inc()
		h.Error(w, http.StatusConflict, "nonce already used")
		return
	}

	payload := crypto.SendPayload(req.ChannelID, req.Text, req.Nonce)
	identity := auth.VerifyAgentRequest(r.Context(), h.store, req.Agent, payload, req.Sig)
	if identity == nil {
		metrics.AuthFailures.WithLabelValues("send").Inc()
		h.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	msg := &models.Message{
		ChannelID:      req.ChannelID,
		SenderID:       identity.AgentID,
		SenderName:     identity.AgentName,
		SenderType:     models.SenderTypeAgent,
		Content:        req.Text,
		OrganizationID: identity.OrgID,
		Nonce:          req.Nonce,
		Verified:       true,
		ReplyTo:        req.ReplyTo,
	}
	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		h.logger.Error().Err(err).Str("channel", req.ChannelID).Msg("message persist failed")
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	metrics.MessagesRelayed.Inc()
	h.JSON(w, http.StatusOK, SendResponse{
		OK:        true,
		MessageID: msg.ID,
		ChannelID: msg.ChannelID,
		SentAt:    msg.Timestamp,
	})
}
