package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/replay"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/store"
)

// Defaults for handler behavior when not configured.
const (
	defaultProjectID       = "default"
	defaultFreshnessWindow = 5 * time.Minute
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.DataStore
	guard  replay.Guard
	redis  *redis.Client // optional; health check only
	logger zerolog.Logger

	// defaultProject is granted to freshly registered agents.
	defaultProject string
	// freshnessWindow bounds clock drift on signed poll cursors.
	freshnessWindow time.Duration
}

// NewHandler creates a new Handler with the given dependencies. redis
// may be nil when the deployment runs a single instance.
func NewHandler(st store.DataStore, guard replay.Guard, redisClient *redis.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		store:           st,
		guard:           guard,
		redis:           redisClient,
		logger:          logger,
		defaultProject:  defaultProjectID,
		freshnessWindow: defaultFreshnessWindow,
	}
}

// SetDefaultProject overrides the project granted at registration.
func (h *Handler) SetDefaultProject(projectID string) {
	h.defaultProject = projectID
}

// SetFreshnessWindow overrides the poll cursor staleness bound.
func (h *Handler) SetFreshnessWindow(window time.Duration) {
	if window > 0 {
		h.freshnessWindow = window
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
