// Package swarm provides a client for the Swarm agent relay protocol.
package swarm

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a Swarm relay API client. It holds the agent's keypair and
// signs requests with it.
type Client struct {
	BaseURL    string
	AgentID    string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateKeypair generates a fresh Ed25519 keypair for the client.
func (c *Client) GenerateKeypair() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	c.PublicKey = pub
	c.PrivateKey = priv
	return nil
}

// RegisterResult is the relay's registration response.
type RegisterResult struct {
	AgentID    string `json:"agentId"`
	AgentName  string `json:"agentName"`
	Registered bool   `json:"registered"`
	Existing   bool   `json:"existing"`
}

// Register enrolls the client's public key and stores the assigned
// agent id on the client. The key itself is the credential; no
// signature is needed.
func (c *Client) Register(ctx context.Context, agentName, agentType, orgID string) (*RegisterResult, error) {
	if c.PublicKey == nil {
		return nil, fmt.Errorf("no keypair: call GenerateKeypair first")
	}

	pemKey, err := MarshalPublicKeyPEM(c.PublicKey)
	if err != nil {
		return nil, err
	}

	body := map[string]string{
		"publicKey": pemKey,
		"agentName": agentName,
		"agentType": agentType,
		"orgId":     orgID,
	}

	var result RegisterResult
	if err := c.post(ctx, "/v1/register", body, &result); err != nil {
		return nil, err
	}
	c.AgentID = result.AgentID
	return &result, nil
}

// SendResult is the relay's send response.
type SendResult struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	SentAt    int64  `json:"sentAt"`
}

// Send signs and relays a message to a channel, minting a fresh nonce.
func (c *Client) Send(ctx context.Context, channelID, text, replyTo string) (*SendResult, error) {
	if c.AgentID == "" {
		return nil, fmt.Errorf("not registered")
	}

	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	nonce := hex.EncodeToString(buf)

	sig := ed25519.Sign(c.PrivateKey, []byte(SendPayload(channelID, text, nonce)))

	body := map[string]string{
		"agent":     c.AgentID,
		"channelId": channelID,
		"text":      text,
		"nonce":     nonce,
		"sig":       base64.StdEncoding.EncodeToString(sig),
	}
	if replyTo != "" {
		body["replyTo"] = replyTo
	}

	var result SendResult
	if err := c.post(ctx, "/v1/send", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollMessage is one relayed message in a poll result.
type PollMessage struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	From        string `json:"from"`
	FromType    string `json:"fromType"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// PollChannel is channel metadata in a poll result.
type PollChannel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

// PollResult is the relay's poll response.
type PollResult struct {
	Messages []PollMessage `json:"messages"`
	Channels []PollChannel `json:"channels"`
	PolledAt int64         `json:"polledAt"`
}

// Poll fetches messages newer than sinceMs. The raw decimal cursor is
// what gets signed, so the server can rebuild the identical string.
func (c *Client) Poll(ctx context.Context, sinceMs int64) (*PollResult, error) {
	if c.AgentID == "" {
		return nil, fmt.Errorf("not registered")
	}

	since := strconv.FormatInt(sinceMs, 10)
	sig := ed25519.Sign(c.PrivateKey, []byte(PollPayload(since)))

	q := url.Values{}
	q.Set("agent", c.AgentID)
	q.Set("since", since)
	q.Set("sig", base64.StdEncoding.EncodeToString(sig))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result PollResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: string(data)}
	}
	return json.Unmarshal(data, out)
}

// APIError is a non-200 relay response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Status, e.Message)
}
