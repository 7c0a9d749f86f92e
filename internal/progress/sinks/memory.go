package sinks

import (
	"context"
	"sync"

	"github.com/parsalaw/lawfetch/internal/progress"
)

// MemorySink keeps the most recent events in a ring buffer so the API can
// serve a live diagnostics feed without a durable store.
type MemorySink struct {
	mu     sync.RWMutex
	events []progress.Event
	next   int
	filled bool
}

// NewMemorySink builds a sink retaining up to capacity events.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 512
	}
	return &MemorySink{events: make([]progress.Event, capacity)}
}

// Consume appends the batch, overwriting the oldest events when full.
func (s *MemorySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.events[s.next] = evt
		s.next++
		if s.next == len(s.events) {
			s.next = 0
			s.filled = true
		}
	}
	return nil
}

// Recent returns the retained events, oldest first.
func (s *MemorySink) Recent() []progress.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.filled {
		return append([]progress.Event(nil), s.events[:s.next]...)
	}
	out := make([]progress.Event, 0, len(s.events))
	out = append(out, s.events[s.next:]...)
	out = append(out, s.events[:s.next]...)
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *MemorySink) Close(context.Context) error {
	return nil
}
