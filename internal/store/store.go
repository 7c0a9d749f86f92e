// Package store defines the document persistence contract. Every
// implementation enforces first-write-wins deduplication on content hash:
// storing a record whose hash already exists reports the prior record's ID
// and leaves exactly one persisted row.
package store

import (
	"context"
	"errors"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

// ErrNotFound reports a lookup for a hash with no stored document.
var ErrNotFound = errors.New("document not found")

// DocumentStore persists finalized content records. Store satisfies the
// engine's fetch.Store contract; the remaining methods serve the API.
type DocumentStore interface {
	Store(ctx context.Context, rec fetch.ContentRecord) (stored bool, existingID string, err error)
	Get(ctx context.Context, contentHash string) (fetch.ContentRecord, error)
	List(ctx context.Context, limit int) ([]fetch.ContentRecord, error)
	Close() error
}
