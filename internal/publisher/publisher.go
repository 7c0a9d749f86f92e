// Package publisher defines how stored-document notifications leave the
// process.
package publisher

import (
	"context"
	"time"
)

// Notification is the payload published after a document is stored.
type Notification struct {
	DocumentID   string         `json:"document_id"`
	JobID        string         `json:"job_id,omitempty"`
	URL          string         `json:"url"`
	ContentHash  string         `json:"content_hash"`
	StrategyUsed string         `json:"strategy_used"`
	LegalScore   int            `json:"legal_score"`
	Categories   map[string]int `json:"categories,omitempty"`
	SnapshotURI  string         `json:"snapshot_uri,omitempty"`
	FetchedAt    time.Time      `json:"fetched_at"`
}

// Publisher delivers notifications to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
