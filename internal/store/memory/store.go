// Package memory provides in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/store"
)

// DocumentStore keeps records keyed by content hash.
type DocumentStore struct {
	mu      sync.RWMutex
	byHash  map[string]fetch.ContentRecord
	ordered []string
}

// NewDocumentStore constructs a DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{byHash: make(map[string]fetch.ContentRecord)}
}

// Store inserts the record unless its hash is already present.
func (s *DocumentStore) Store(_ context.Context, rec fetch.ContentRecord) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byHash[rec.ContentHash]; ok {
		return false, existing.ID, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.byHash[rec.ContentHash] = rec
	s.ordered = append(s.ordered, rec.ContentHash)
	return true, "", nil
}

// Get fetches a record by content hash.
func (s *DocumentStore) Get(_ context.Context, contentHash string) (fetch.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byHash[contentHash]
	if !ok {
		return fetch.ContentRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (s *DocumentStore) List(_ context.Context, limit int) ([]fetch.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.ordered) {
		limit = len(s.ordered)
	}
	out := make([]fetch.ContentRecord, 0, limit)
	for i := len(s.ordered) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byHash[s.ordered[i]])
	}
	return out, nil
}

// Close implements DocumentStore; it performs no action.
func (s *DocumentStore) Close() error { return nil }
