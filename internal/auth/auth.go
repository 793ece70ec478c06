// Package auth is the single gate every protected endpoint passes
// through: it resolves an agent id to its stored public key and checks
// the request signature against it.
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/crypto"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
)

// Identity is the minimal projection of an authenticated agent handed
// to handlers. An empty OrgID means "unknown organization", not a
// valid tenant.
type Identity struct {
	AgentID   string
	AgentName string
	OrgID     string
	AgentType string
}

// Directory resolves agent ids to their stored records. Satisfied by
// store.DataStore.
type Directory interface {
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// VerifyAgentRequest authenticates a request: it looks up the agent,
// then verifies sigB64 over message with the agent's stored public key.
// Returns nil on any failure — unknown agent, missing key, lookup
// error, or bad signature — without distinguishing which, so callers
// cannot leak which part of the credential was wrong.
func VerifyAgentRequest(ctx context.Context, dir Directory, agentID, message, sigB64 string) *Identity {
	id, err := uuid.Parse(agentID)
	if err != nil {
		return nil
	}
	agent, err := dir.GetAgentByID(ctx, id)
	if err != nil || agent == nil || agent.PublicKey == "" {
		return nil
	}
	if !crypto.Verify(agent.PublicKey, message, sigB64) {
		return nil
	}

	name := agent.Name
	if name == "" {
		name = agentID
	}
	return &Identity{
		AgentID:   agentID,
		AgentName: name,
		OrgID:     agent.OrganizationID,
		AgentType: agent.Type,
	}
}
