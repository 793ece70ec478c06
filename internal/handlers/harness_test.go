package handlers_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/api"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/handlers"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/models"
	"github.com/The-Swarm-Protocol/Swarm-sub001/internal/replay"
)

// fakeStore is an in-memory store.DataStore used to drive the handlers
// without a database. It seeds the default project's "general" channel
// the way the real stores do.
type fakeStore struct {
	mu       sync.Mutex
	agents   map[uuid.UUID]*models.Agent
	channels []models.Channel
	messages []models.Message

	failCreateMessage bool
	// vanishAfterFirstLookup simulates an agent deleted between the
	// auth check and the handler's own fetch: the first lookup of an
	// id succeeds, later ones find nothing.
	vanishAfterFirstLookup bool
	lookups                map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents:   make(map[uuid.UUID]*models.Agent),
		channels: []models.Channel{{ID: "general", Name: "general", ProjectID: "default"}},
		lookups:  make(map[uuid.UUID]int),
	}
}

func (s *fakeStore) Close()                         {}
func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) CreateAgent(_ context.Context, agent *models.Agent) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	copied := *agent
	s.agents[agent.ID] = &copied
	return agent, nil
}

func (s *fakeStore) GetAgentByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vanishAfterFirstLookup {
		s.lookups[id]++
		if s.lookups[id] > 1 {
			return nil, nil
		}
	}
	agent, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	copied := *agent
	return &copied, nil
}

func (s *fakeStore) GetAgentByPublicKey(_ context.Context, publicKey string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.PublicKey == publicKey {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) MarkAgentConnected(_ context.Context, id uuid.UUID, connectionType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agent, ok := s.agents[id]; ok {
		agent.Status = models.StatusOnline
		agent.ConnectionType = connectionType
		agent.LastSeen = time.Now()
	}
	return nil
}

func (s *fakeStore) CreateChannel(_ context.Context, id, name, projectID string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	ch := models.Channel{ID: id, Name: name, ProjectID: projectID}
	s.channels = append(s.channels, ch)
	return &ch, nil
}

func (s *fakeStore) ListChannels(_ context.Context, limit, offset int) ([]models.Channel, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.channels)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]models.Channel(nil), s.channels[offset:end]...), total, nil
}

func (s *fakeStore) ListChannelsByProject(_ context.Context, projectID string) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Channel
	for _, ch := range s.channels {
		if ch.ProjectID == projectID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateMessage {
		return context.DeadlineExceeded
	}
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) ListMessagesSince(_ context.Context, channelID string, sinceMs int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, msg := range s.messages {
		if msg.ChannelID == channelID && msg.Timestamp > sinceMs {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// seedMessage inserts a message with an explicit timestamp.
func (s *fakeStore) seedMessage(channelID, senderID, text string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, models.Message{
		ID:         ulid.Make().String(),
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderType: models.SenderTypeAgent,
		Content:    text,
		Verified:   true,
		Timestamp:  ts,
	})
}

type testRelay struct {
	store  *fakeStore
	router *chi.Mux
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	st := newFakeStore()
	h := handlers.NewHandler(st, replay.NewMemoryGuard(0, 0), nil, zerolog.Nop())
	return &testRelay{
		store:  st,
		router: api.NewRouter(zerolog.Nop(), h, nil),
	}
}

func getRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func (tr *testRelay) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	tr.router.ServeHTTP(rec, req)
	return rec
}

func (tr *testRelay) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return tr.do(t, req)
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return out
}

func generateKeypair(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return priv, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signB64(priv ed25519.PrivateKey, payload string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(payload)))
}

// registerAgent enrolls a fresh keypair through the HTTP surface and
// returns the assigned id with the private key.
func registerAgent(t *testing.T, tr *testRelay, name string) (string, ed25519.PrivateKey) {
	t.Helper()
	priv, pubPEM := generateKeypair(t)
	rec := tr.postJSON(t, "/v1/register", map[string]string{
		"publicKey": pubPEM,
		"agentName": name,
		"agentType": "worker",
		"orgId":     "org-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON[handlers.RegisterResponse](t, rec)
	return resp.AgentID, priv
}

func sendMessage(t *testing.T, tr *testRelay, agentID string, priv ed25519.PrivateKey, channelID, text, nonce string) *httptest.ResponseRecorder {
	t.Helper()
	sig := signB64(priv, "POST:/v1/send:"+channelID+":"+text+":"+nonce)
	return tr.postJSON(t, "/v1/send", map[string]string{
		"agent":     agentID,
		"channelId": channelID,
		"text":      text,
		"nonce":     nonce,
		"sig":       sig,
	})
}

func pollMessages(t *testing.T, tr *testRelay, agentID string, priv ed25519.PrivateKey, since string) *httptest.ResponseRecorder {
	t.Helper()
	sig := signB64(priv, "GET:/v1/messages:"+since)
	q := url.Values{}
	q.Set("agent", agentID)
	q.Set("since", since)
	q.Set("sig", sig)
	req := httptest.NewRequest(http.MethodGet, "/v1/messages?"+q.Encode(), nil)
	return tr.do(t, req)
}
