package models

// Channel is a named message scope bound to a project. Channels are
// created by collaborating systems; the relay only reads them.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}
