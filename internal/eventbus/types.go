package eventbus

import "time"

// Signal is a message from the aggregation core to a content provider.
type Signal struct {
	ID        string         `json:"id"`
	Stream    string         `json:"stream"`
	SourceID  string         `json:"source_id"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Read      bool           `json:"read"`
	ReadBy    []string       `json:"read_by,omitempty"`
}

type SignalInput struct {
	Stream   string
	SourceID string
	Subject  string
	Body     string
	Metadata map[string]any
}

type ListOptions struct {
	Reader   string
	SourceID string
	Limit    int
	Order    string
	Unread   bool
}

// Filter selects which live signals a subscriber receives. Empty fields match everything.
type Filter struct {
	Streams  []string
	SourceID string
}
