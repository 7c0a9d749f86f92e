package sinks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parsalaw/lawfetch/internal/progress"
)

// PrometheusSink exports fetch-engine metrics. It owns the collectors for
// per-strategy attempt counters and fetch outcome/latency tracking.
type PrometheusSink struct {
	attemptsTotal   *prometheus.CounterVec
	attemptBytes    *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	fetchesTotal    *prometheus.CounterVec
	legalScore      prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lawfetch_attempts_total",
			Help: "Strategy attempts partitioned by strategy, outcome and HTTP status.",
		}, []string{"strategy", "outcome", "status"}),
		attemptBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lawfetch_attempt_bytes_total",
			Help: "Response bytes observed per strategy.",
		}, []string{"strategy"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lawfetch_attempt_duration_seconds",
			Help:    "Wall time per strategy attempt.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}, []string{"strategy"}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lawfetch_fetches_total",
			Help: "Completed Fetch calls partitioned by outcome.",
		}, []string{"outcome"}),
		legalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lawfetch_legal_score",
			Help:    "Legal relevance score of successfully fetched documents.",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
	collectors := []prometheus.Collector{
		s.attemptsTotal, s.attemptBytes, s.attemptDuration, s.fetchesTotal, s.legalScore,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageAttempt:
			s.attemptsTotal.WithLabelValues(evt.Strategy, evt.Outcome, strconv.Itoa(evt.Status)).Inc()
			s.attemptBytes.WithLabelValues(evt.Strategy).Add(float64(evt.Bytes))
			s.attemptDuration.WithLabelValues(evt.Strategy).Observe(evt.Dur.Seconds())
		case progress.StageFetchDone:
			s.fetchesTotal.WithLabelValues(evt.Outcome).Inc()
			if evt.Outcome == "success" {
				s.legalScore.Observe(float64(evt.Score))
			}
		}
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
