package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ConnectionTypeEd25519 marks agents enrolled with an Ed25519 keypair.
const ConnectionTypeEd25519 = "ed25519"

// Agent represents a registered agent identity. The public key is the
// credential: at most one agent record exists per key, and registering
// a known key re-activates that record instead of creating a new one.
type Agent struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name,omitempty"`
	Type           string    `json:"type,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	PublicKey      string    `json:"public_key"` // SPKI PEM, Ed25519
	Status         string    `json:"status"`
	ConnectionType string    `json:"connection_type,omitempty"`
	ProjectIDs     []string  `json:"project_ids"`
	LastSeen       time.Time `json:"last_seen"`
	CreatedAt      time.Time `json:"created_at"`
}
