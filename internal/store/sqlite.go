package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the default
// store when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/swarm.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/swarm.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		public_key TEXT UNIQUE NOT NULL,
		name TEXT DEFAULT '',
		type TEXT DEFAULT '',
		organization_id TEXT DEFAULT '',
		status TEXT DEFAULT 'offline',
		connection_type TEXT DEFAULT '',
		project_ids TEXT DEFAULT '[]',
		last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		project_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_name TEXT DEFAULT '',
		sender_type TEXT DEFAULT 'agent',
		content TEXT NOT NULL,
		organization_id TEXT DEFAULT '',
		nonce TEXT DEFAULT '',
		verified INTEGER DEFAULT 0,
		reply_to TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agents_public_key ON agents(public_key);
	CREATE INDEX IF NOT EXISTS idx_channels_project ON channels(project_id);
	CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at);

	-- Seed the default project's general channel if not exists
	INSERT OR IGNORE INTO channels (id, name, project_id)
	VALUES ('general', 'general', 'default');
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAgent creates a new agent record, assigning its id and
// creation time.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		agent.ID = id
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.LastSeen = now

	projects, err := json.Marshal(projectsOrEmpty(agent.ProjectIDs))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (id, public_key, name, type, organization_id, status, connection_type, project_ids, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, agent.ID.String(), agent.PublicKey, agent.Name, agent.Type, agent.OrganizationID,
		agent.Status, agent.ConnectionType, string(projects), now, now)
	if err != nil {
		return nil, err
	}

	return s.GetAgentByID(ctx, agent.ID)
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	var idStr, projects string
	err := row.Scan(
		&idStr,
		&agent.PublicKey,
		&agent.Name,
		&agent.Type,
		&agent.OrganizationID,
		&agent.Status,
		&agent.ConnectionType,
		&projects,
		&agent.LastSeen,
		&agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	agent.ID = uuid.MustParse(idStr)
	if err := json.Unmarshal([]byte(projects), &agent.ProjectIDs); err != nil {
		agent.ProjectIDs = nil
	}
	return agent, nil
}

const sqliteAgentColumns = `id, public_key, name, type, organization_id, status, connection_type, project_ids, last_seen, created_at`

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteAgentColumns+` FROM agents WHERE id = ?
	`, id.String()))
}

// GetAgentByPublicKey retrieves an agent by exact public key equality.
func (s *SQLiteStore) GetAgentByPublicKey(ctx context.Context, publicKey string) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteAgentColumns+` FROM agents WHERE public_key = ?
	`, publicKey))
}

// MarkAgentConnected flips the agent online and refreshes last_seen.
func (s *SQLiteStore) MarkAgentConnected(ctx context.Context, id uuid.UUID, connectionType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE agents SET status = ?, connection_type = ?, last_seen = ? WHERE id = ?
	`, models.StatusOnline, connectionType, time.Now(), id.String())
	return err
}

// CreateChannel creates a channel. An empty id gets a generated one.
func (s *SQLiteStore) CreateChannel(ctx context.Context, id, name, projectID string) (*models.Channel, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, name, project_id) VALUES (?, ?, ?)
	`, id, name, projectID)
	if err != nil {
		return nil, err
	}
	return &models.Channel{ID: id, Name: name, ProjectID: projectID}, nil
}

// ListChannels retrieves channels with pagination.
func (s *SQLiteStore) ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, project_id FROM channels ORDER BY name LIMIT ? OFFSET ?
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
func (s *SQLiteStore) ListChannelsByProject(ctx context.Context, projectID string) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, project_id FROM channels WHERE project_id = ? ORDER BY name
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
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	verified := 0
	if msg.Verified {
		verified = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, sender_id, sender_name, sender_type, content, organization_id, nonce, verified, reply_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChannelID, msg.SenderID, msg.SenderName, msg.SenderType, msg.Content,
		msg.OrganizationID, msg.Nonce, verified, msg.ReplyTo, msg.Timestamp)
	return err
}

// ListMessagesSince retrieves channel messages newer than sinceMs,
// ascending. The lower bound is exclusive.
func (s *SQLiteStore) ListMessagesSince(ctx context.Context, channelID string, sinceMs int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, sender_id, sender_name, sender_type, content, organization_id, nonce, verified, reply_to, created_at
		FROM messages
		WHERE channel_id = ? AND created_at > ?
		ORDER BY created_at ASC, id ASC
	`, channelID, sinceMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var verified int
		err := rows.Scan(
			&msg.ID,
			&msg.ChannelID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderType,
			&msg.Content,
			&msg.OrganizationID,
			&msg.Nonce,
			&verified,
			&msg.ReplyTo,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		msg.Verified = verified == 1
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func projectsOrEmpty(projects []string) []string {
	if projects == nil {
		return []string{}
	}
	return projects
}
