package headless

import (
	"context"
	"errors"
)

// Noop satisfies the renderer contract but always errors, for builds where
// headless escalation is disabled.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render returns an error since no browser is available.
func (Noop) Render(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("headless renderer not configured")
}

// Close is a no-op.
func (Noop) Close() {}
