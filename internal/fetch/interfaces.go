package fetch

import (
	"context"
	"time"
)

// Executor performs the actual HTTP GET for a transformed request. A single
// executor (and its connection pool) is shared by all concurrent Fetch calls.
type Executor interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Resolver resolves a hostname through the alternate DNS server list. The
// round-robin index over that list is the only mutable shared state a
// resolver may hold and must be advanced atomically.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// Detector classifies a response as blocked, suspiciously empty, or valid.
type Detector interface {
	Classify(status int, body []byte, minBytes int) Verdict
}

// Scorer computes per-category keyword scores and the overall 0-100
// relevance score for normalized text. Implementations are deterministic.
type Scorer interface {
	Score(text string) (map[string]int, int)
}

// Normalizer strips markup and folds the text into the canonical form that
// both hashing and scoring operate on.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Store persists finalized records with first-write-wins dedup on
// ContentHash. stored=false with a non-empty existingID signals a dedup hit.
type Store interface {
	Store(ctx context.Context, rec ContentRecord) (stored bool, existingID string, err error)
}

// Observer receives engine diagnostics. The engine itself performs no I/O
// for diagnostics; callers inject an observer that forwards to whatever
// sinks they run. Implementations must not block.
type Observer interface {
	OnAttempt(url string, attempt Attempt)
	OnResult(url string, result Result)
}

// Limiter applies per-host politeness before each outbound attempt.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes content digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (swappable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record and job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
