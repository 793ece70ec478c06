package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection
// pool and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. Statements run one at
// a time; pgx's extended protocol rejects multi-statement strings.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	statements := []string{`
	CREATE TABLE IF NOT EXISTS agents (
		id UUID PRIMARY KEY,
		public_key TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'offline',
		connection_type TEXT NOT NULL DEFAULT '',
		project_ids TEXT[] NOT NULL DEFAULT '{}',
		last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, `
	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		project_id TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_name TEXT NOT NULL DEFAULT '',
		sender_type TEXT NOT NULL DEFAULT 'agent',
		content TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		nonce TEXT NOT NULL DEFAULT '',
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		reply_to TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_project ON channels(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at)`,
		`INSERT INTO channels (id, name, project_id)
	 VALUES ('general', 'general', 'default')
	 ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pgAgentColumns = `id, public_key, name, type, organization_id, status, connection_type, project_ids, last_seen, created_at`

// CreateAgent creates a new agent record, assigning its id and
// creation time.
func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		agent.ID = id
	}

	created := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agents (id, public_key, name, type, organization_id, status, connection_type, project_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pgAgentColumns+`
	`, agent.ID, agent.PublicKey, agent.Name, agent.Type, agent.OrganizationID,
		agent.Status, agent.ConnectionType, projectsOrEmpty(agent.ProjectIDs)).Scan(
		&created.ID,
		&created.PublicKey,
		&created.Name,
		&created.Type,
		&created.OrganizationID,
		&created.Status,
		&created.ConnectionType,
		&created.ProjectIDs,
		&created.LastSeen,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) getAgent(ctx context.Context, query string, arg any) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&agent.ID,
		&agent.PublicKey,
		&agent.Name,
		&agent.Type,
		&agent.OrganizationID,
		&agent.Status,
		&agent.ConnectionType,
		&agent.ProjectIDs,
		&agent.LastSeen,
		&agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *PostgresStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+pgAgentColumns+` FROM agents WHERE id = $1`, id)
}

// GetAgentByPublicKey retrieves an agent by exact public key equality.
func (s *PostgresStore) GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+pgAgentColumns+` FROM agents WHERE public_key = $1`, publicKey)
}

// MarkAgentConnected flips the agent online and refreshes last_seen.
func (s *PostgresStore) MarkAgentConnected(ctx context.Context, id uuid.UUID, connectionType string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE agents SET status = $1, connection_type = $2, last_seen = NOW() WHERE id = $3
	`, models.StatusOnline, connectionType, id)
	return err
}

// CreateChannel creates a channel. An empty id gets a generated one.
func (s *PostgresStore) CreateChannel(ctx context.Context, id, name, projectID string) (*models.Channel, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO channels (id, name, project_id) VALUES ($1, $2, $3)
	`, id, name, projectID)
	if err != nil {
		return nil, err
	}
	return &models.Channel{ID: id, Name: name, ProjectID: projectID}, nil
}

// ListChannels retrieves channels with pagination.
func (s *PostgresStore) ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM channels`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, project_id FROM channels ORDER BY name LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.ProjectID); err != nil {
			return nil, 0, err
		}
		channels = append(channels, ch)
	}
	return channels, total, rows.Err()
}

// ListChannelsByProject retrieves every channel bound to a project.
func (s *PostgresStore) ListChannelsByProject(ctx context.Context, projectID string) ([]models.Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, project_id FROM channels WHERE project_id = $1 ORDER BY name
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.ProjectID); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// CreateMessage persists a message, assigning ULID and timestamp.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, channel_id, sender_id, sender_name, sender_type, content, organization_id, nonce, verified, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, msg.ID, msg.ChannelID, msg.SenderID, msg.SenderName, msg.SenderType, msg.Content,
		msg.OrganizationID, msg.Nonce, msg.Verified, msg.ReplyTo, msg.Timestamp)
	return err
}

// ListMessagesSince retrieves channel messages newer than sinceMs,
// ascending. The lower bound is exclusive.
func (s *PostgresStore) ListMessagesSince(ctx context.Context, channelID string, sinceMs int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, channel_id, sender_id, sender_name, sender_type, content, organization_id, nonce, verified, reply_to, created_at
		FROM messages
		WHERE channel_id = $1 AND created_at > $2
		ORDER BY created_at ASC, id ASC
	`, channelID, sinceMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ChannelID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderType,
			&msg.Content,
			&msg.OrganizationID,
			&msg.Nonce,
			&msg.Verified,
			&msg.ReplyTo,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
