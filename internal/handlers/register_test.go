package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/handlers"
)

func TestRegisterMissingFields(t *testing.T) {
	tr := newTestRelay(t)

	cases := []map[string]string{
		{"agentName": "a", "orgId": "o"},
		{"publicKey": "-----BEGIN PUBLIC KEY-----\nxx\n-----END PUBLIC KEY-----", "orgId": "o"},
		{"publicKey": "-----BEGIN PUBLIC KEY-----\nxx\n-----END PUBLIC KEY-----", "agentName": "a"},
	}
	for _, body := range cases {
		rec := tr.postJSON(t, "/v1/register", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, rec.Code)
		}
	}
}

func TestRegisterRejectsNonPEMKey(t *testing.T) {
	tr := newTestRelay(t)
	rec := tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": "bm90IGEgcGVtIGtleQ==",
		"agentName": "a",
		"orgId":     "o",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-PEM key, got %d", rec.Code)
	}
}

func TestRegisterNewAgent(t *testing.T) {
	tr := newTestRelay(t)
	_, pubPEM := generateKeypair(t)

	rec := tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM,
		"agentName": "alpha",
		"agentType": "worker",
		"orgId":     "org-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON[handlers.RegisterResponse](t, rec)
	if !resp.Registered || resp.Existing || resp.AgentID == "" || resp.AgentName != "alpha" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegisterIdempotentOnPublicKey(t *testing.T) {
	tr := newTestRelay(t)
	_, pubPEM := generateKeypair(t)

	first := decodeJSON[handlers.RegisterResponse](t, tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM, "agentName": "original", "orgId": "org-1",
	}))
	second := decodeJSON[handlers.RegisterResponse](t, tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM, "agentName": "impostor", "orgId": "org-1",
	}))

	if second.AgentID != first.AgentID {
		t.Fatalf("same key must map to same agent: %s vs %s", first.AgentID, second.AgentID)
	}
	if first.Existing || !second.Existing {
		t.Fatalf("existing flags wrong: first=%v second=%v", first.Existing, second.Existing)
	}
	// The originally registered name wins.
	if second.AgentName != "original" {
		t.Fatalf("expected original name to stick, got %q", second.AgentName)
	}
}

func TestRegisterRefreshesPresence(t *testing.T) {
	tr := newTestRelay(t)
	_, pubPEM := generateKeypair(t)

	resp := decodeJSON[handlers.RegisterResponse](t, tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM, "agentName": "a", "orgId": "o",
	}))
	tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM, "agentName": "a", "orgId": "o",
	})

	agent, _ := tr.store.GetAgentByPublicKey(context.Background(), pubPEM)
	if agent == nil || agent.ID.String() != resp.AgentID {
		t.Fatal("agent not stored")
	}
	if agent.Status != "online" || agent.ConnectionType != "ed25519" {
		t.Fatalf("re-registration must mark online/ed25519, got %s/%s", agent.Status, agent.ConnectionType)
	}
}
