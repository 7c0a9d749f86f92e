// Package archive abstracts where raw page snapshots are written.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Writer persists a raw snapshot and returns a URI for it.
type Writer interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// SnapshotKey builds the object key for a fetched page: hash-prefixed and
// partitioned by day so listings stay manageable.
func SnapshotKey(contentHash string, fetchedAt time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.html", fetchedAt.UTC().Format("2006-01-02"), contentHash)
}
