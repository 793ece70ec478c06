package handlers

import (
	"net/http"
	"strconv"
)

// ChannelInfo represents a channel in the list response.
type ChannelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

// ChannelListResponse represents the channels list response.
type ChannelListResponse struct {
	Channels []ChannelInfo `json:"channels"`
	Total    int           `json:"total"`
}

// ListChannels handles listing channels. Channels are created by
// collaborating systems; this surface is read-only.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	chans, total, err := h.store.ListChannels(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("channel list failed")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	channels := make([]ChannelInfo, len(chans))
	for i, ch := range chans {
		channels[i] = ChannelInfo{ID: ch.ID, Name: ch.Name, ProjectID: ch.ProjectID}
	}

	h.JSON(w, http.StatusOK, ChannelListResponse{
		Channels: channels,
		Total:    total,
	})
}
