package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// DataStore is the document store behind the relay: agent directory
// records, channel metadata, and relayed messages. Both PostgresStore
// and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Agent directory
	CreateAgent(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error)
	// MarkAgentConnected flips the agent online, refreshes last_seen and
	// records how it enrolled. Called on every re-registration.
	MarkAgentConnected(ctx context.Context, id uuid.UUID, connectionType string) error

	// Channels (created by collaborating systems; read-only for the
	// relay itself, CreateChannel exists for ops tooling and tests)
	CreateChannel(ctx context.Context, id, name, projectID string) (*models.Channel, error)
	ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error)
	ListChannelsByProject(ctx context.Context, projectID string) ([]models.Channel, error)

	// Messages
	// CreateMessage persists msg, assigning its ULID and server
	// timestamp when unset.
	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessagesSince returns channel messages with timestamp
	// strictly greater than sinceMs, ascending. sinceMs == 0 means all
	// history.
	ListMessagesSince(ctx context.Context, channelID string, sinceMs int64) ([]models.Message, error)
}
