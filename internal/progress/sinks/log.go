// Package sinks contains the Sink implementations the service wires into
// the progress hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/parsalaw/lawfetch/internal/progress"
)

// LogSink emits structured logs for progress streams, useful during
// development and audits.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch with structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("stage", string(evt.Stage)),
			zap.String("url", evt.URL),
			zap.String("strategy", evt.Strategy),
			zap.String("outcome", evt.Outcome),
			zap.Int("status", evt.Status),
			zap.Int64("bytes", evt.Bytes),
			zap.Duration("dur", evt.Dur),
			zap.Int("score", evt.Score),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
