// Package memory keeps snapshots in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Writer stores snapshots in a map and returns pseudo URIs.
type Writer struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory snapshot writer.
func New() *Writer {
	return &Writer{data: make(map[string][]byte)}
}

// Put records the snapshot and returns a memory:// URI.
func (w *Writer) Put(_ context.Context, key string, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", key), nil
}

// Get returns a stored snapshot.
func (w *Writer) Get(key string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	data, ok := w.data[key]
	return data, ok
}
