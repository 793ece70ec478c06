package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/auth"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/crypto"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/metrics"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// Poll fan-out and result bounds.
const (
	maxPollProjects = 10
	maxPollMessages = 100
)

// PolledMessage is one message in the poll response.
type PolledMessage struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	From        string `json:"from"`
	FromType    string `json:"fromType"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// PollChannel is channel metadata included for every channel touched,
// even those contributing zero messages.
type PollChannel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

// PollResponse represents the poll response.
type PollResponse struct {
	Messages []PolledMessage `json:"messages"`
	Channels []PollChannel   `json:"channels"`
	PolledAt int64           `json:"polledAt"`
}

// Messages handles cursor polling. The signature covers the raw since
// string exactly as sent on the wire, and the cursor doubles as a
// freshness proof: when since > 0 it must sit within the drift window
// of server time.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agentID := q.Get("agent")
	sig := q.Get("sig")
	since := q.Get("since")
	if since == "" {
		since = "0"
	}

	if agentID == "" || sig == "" {
		h.Error(w, http.StatusUnauthorized, "agent and sig are required")
		return
	}

	identity := auth.VerifyAgentRequest(r.Context(), h.store, agentID, crypto.PollPayload(since), sig)
	if identity == nil {
		metrics.AuthFailures.WithLabelValues("messages").Inc()
		h.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Unparsable cursors degrade to a full-history poll.
	sinceMs, err := strconv.ParseInt(since, 10, 64)
	if err != nil || sinceMs < 0 {
		sinceMs = 0
	}

	now := time.Now()
	if sinceMs > 0 {
		drift := now.UnixMilli() - sinceMs
		if drift < 0 {
			drift = -drift
		}
		if drift > h.freshnessWindow.Milliseconds() {
			metrics.StaleCursors.Inc()
			h.Error(w, http.StatusUnauthorized, "timestamp too stale")
			return
		}
	}

	// Re-fetch the full record: the auth gate only returned a
	// projection, and the agent may have been deleted underneath it.
	agent, err := h.store.GetAgentByID(r.Context(), uuid.MustParse(identity.AgentID))
	if err != nil {
		h.logger.Error().Err(err).Msg("agent fetch failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	resp := PollResponse{
		Messages: []PolledMessage{},
		Channels: []PollChannel{},
		PolledAt: now.UnixMilli(),
	}

	projects := agent.ProjectIDs
	if len(projects) > maxPollProjects {
		projects = projects[:maxPollProjects]
	}
	if len(projects) == 0 {
		h.JSON(w, http.StatusOK, resp)
		return
	}

	var channels []models.Channel
	for _, projectID := range projects {
		chans, err := h.store.ListChannelsByProject(r.Context(), projectID)
		if err != nil {
			h.logger.Error().Err(err).Str("project", projectID).Msg("channel query failed")
			h.Error(w, http.StatusInternalServerError, "query failed")
			return
		}
		channels = append(channels, chans...)
	}
	if len(channels) == 0 {
		h.JSON(w, http.StatusOK, resp)
		return
	}

	for _, ch := range channels {
		resp.Channels = append(resp.Channels, PollChannel{ID: ch.ID, Name: ch.Name, ProjectID: ch.ProjectID})

		msgs, err := h.store.ListMessagesSince(r.Context(), ch.ID, sinceMs)
		if err != nil {
			h.logger.Error().Err(err).Str("channel", ch.ID).Msg("message query failed")
			h.Error(w, http.StatusInternalServerError, "query failed")
			return
		}
		for _, msg := range msgs {
			// Agents never see their own messages echoed back.
			if msg.SenderID == identity.AgentID {
				continue
			}
			resp.Messages = append(resp.Messages, PolledMessage{
				ID:          msg.ID,
				ChannelID:   msg.ChannelID,
				ChannelName: ch.Name,
				From:        msg.SenderID,
				FromType:    msg.SenderType,
				Text:        msg.Content,
				Timestamp:   msg.Timestamp,
			})
		}
	}

	// Cap the merged list, keeping the newest entries. The list is
	// ordered per channel, not globally; the cap preserves that.
	if len(resp.Messages) > maxPollMessages {
		resp.Messages = resp.Messages[len(resp.Messages)-maxPollMessages:]
	}

	metrics.PollRequests.Inc()
	h.JSON(w, http.StatusOK, resp)
}
