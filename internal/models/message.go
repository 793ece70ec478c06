package models

// Sender types for messages.
const (
	SenderTypeAgent = "agent"
	SenderTypeUser  = "user"
)

// Message is a unit of relayed communication. Immutable once created;
// Timestamp is server-assigned (unix ms) and authoritative for ordering
// and cursoring within a channel.
type Message struct {
	ID             string `json:"id"` // ULID
	ChannelID      string `json:"channel_id"`
	SenderID       string `json:"from"`
	SenderName     string `json:"from_name,omitempty"`
	SenderType     string `json:"from_type"`
	Content        string `json:"content"`
	OrganizationID string `json:"organization_id,omitempty"`
	Nonce          string `json:"nonce,omitempty"` // agent-sent messages only
	Verified       bool   `json:"verified"`
	ReplyTo        string `json:"reply_to,omitempty"`
	Timestamp      int64  `json:"ts"` // unix ms
}
