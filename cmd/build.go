package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/parsalaw/lawfetch/internal/config"
	"github.com/parsalaw/lawfetch/internal/detector"
	"github.com/parsalaw/lawfetch/internal/fetch"
	collyfetcher "github.com/parsalaw/lawfetch/internal/fetcher/colly"
	"github.com/parsalaw/lawfetch/internal/hash/sha256"
	uuidgen "github.com/parsalaw/lawfetch/internal/id/uuid"
	"github.com/parsalaw/lawfetch/internal/metrics"
	"github.com/parsalaw/lawfetch/internal/normalize"
	"github.com/parsalaw/lawfetch/internal/progress"
	"github.com/parsalaw/lawfetch/internal/progress/sinks"
	"github.com/parsalaw/lawfetch/internal/ratelimit"
	"github.com/parsalaw/lawfetch/internal/scorer"
	"github.com/parsalaw/lawfetch/internal/store"
	memorystore "github.com/parsalaw/lawfetch/internal/store/memory"
	"github.com/parsalaw/lawfetch/internal/store/postgres"
	"github.com/parsalaw/lawfetch/internal/store/sqlite"
)

// engine bundles the orchestrator with the shared services the commands
// need to wire and later tear down.
type engine struct {
	orch    *fetch.Orchestrator
	docs    store.DocumentStore
	hub     *progress.Hub
	memSink *sinks.MemorySink
}

func (e *engine) close(ctx context.Context, logger *zap.Logger) {
	if err := e.hub.Close(ctx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	if err := e.docs.Close(); err != nil {
		logger.Warn("document store close failed", zap.Error(err))
	}
}

// buildEngine constructs the fetch pipeline from configuration.
func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine, error) {
	metrics.Init()

	memSink := sinks.NewMemorySink(0)
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("fetch")),
		promSink,
		memSink,
	)

	docs, err := buildDocumentStore(ctx, cfg)
	if err != nil {
		hubClose(ctx, hub, logger)
		return nil, err
	}

	markers := detector.DefaultMarkers()
	markers = append(markers, cfg.Detector.ExtraMarkers...)

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.DefaultRPS,
		DefaultBurst: cfg.RateLimit.DefaultBurst,
		HostRPS:      cfg.RateLimit.HostRPS,
	})
	limiter.Observe = metrics.ObserveRateLimitDelay

	orch, err := fetch.NewOrchestrator(fetch.Deps{
		Registry: fetch.NewRegistry(cfg.RegistryConfig()),
		Executor: collyfetcher.New(collyfetcher.Config{
			Timeout:     time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			InsecureTLS: cfg.Fetch.InsecureTLS,
		}),
		Detector:   detector.New(markers),
		Scorer:     scorer.New(cfg.Scoring.Categories),
		Normalizer: normalize.New(),
		Hasher:     sha256.New(),
		Resolver:   fetch.NewRoundRobinResolver(cfg.DNS.Servers, cfg.DNSTimeout()),
		Store:      docs,
		Observer:   progress.NewFetchObserver(hub, uuid.Nil),
		Limiter:    limiter,
		IDGen:      uuidgen.New(),
	})
	if err != nil {
		hubClose(ctx, hub, logger)
		if cerr := docs.Close(); cerr != nil {
			logger.Warn("document store close failed", zap.Error(cerr))
		}
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	return &engine{orch: orch, docs: docs, hub: hub, memSink: memSink}, nil
}

func buildDocumentStore(ctx context.Context, cfg config.Config) (store.DocumentStore, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := sqlite.New(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Store.DSN,
			MaxConns: int32(cfg.Store.MaxOpenConns),
			MinConns: int32(cfg.Store.MinOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	default:
		return memorystore.NewDocumentStore(), nil
	}
}

func hubClose(ctx context.Context, hub *progress.Hub, logger *zap.Logger) {
	if err := hub.Close(ctx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
}
