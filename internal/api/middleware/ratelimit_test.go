package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestRateLimitMatch(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop())

	pattern, limit, ok := rl.match(httptest.NewRequest("GET", "/v1/messages?agent=a", nil))
	if !ok || pattern != "GET /v1/messages" || limit.Requests != 120 {
		t.Fatalf("unexpected match: %q %+v %v", pattern, limit, ok)
	}

	// Prefix pattern picks up id-bearing paths.
	pattern, _, ok = rl.match(httptest.NewRequest("GET", "/v1/agents/some-id", nil))
	if !ok || pattern != "GET /v1/agents/" {
		t.Fatalf("unexpected match: %q %v", pattern, ok)
	}

	if _, _, ok := rl.match(httptest.NewRequest("GET", "/health", nil)); ok {
		t.Fatal("unlimited route must not match")
	}
}

func TestRateLimitKeyIgnoresAgentParam(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop())

	a := httptest.NewRequest("GET", "/v1/messages?agent=a1&since=0", nil)
	b := httptest.NewRequest("GET", "/v1/messages?agent=a2&since=0", nil)
	a.RemoteAddr = "10.0.0.7:1111"
	b.RemoteAddr = "10.0.0.7:2222"

	_, limit, ok := rl.match(a)
	if !ok {
		t.Fatal("poll route must be limited")
	}

	// Rotating the agent id must not mint a fresh budget.
	if limit.KeyFunc(a) != limit.KeyFunc(b) {
		t.Fatalf("keys differ for same client: %q vs %q", limit.KeyFunc(a), limit.KeyFunc(b))
	}
	if limit.KeyFunc(a) != "ratelimit:ip:10.0.0.7" {
		t.Fatalf("unexpected key: %q", limit.KeyFunc(a))
	}
}
