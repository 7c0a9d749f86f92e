package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cloudpubsub "cloud.google.com/go/pubsub"

	"github.com/parsalaw/lawfetch/internal/api"
	"github.com/parsalaw/lawfetch/internal/archive"
	archivegcs "github.com/parsalaw/lawfetch/internal/archive/gcs"
	archivelocal "github.com/parsalaw/lawfetch/internal/archive/local"
	archivememory "github.com/parsalaw/lawfetch/internal/archive/memory"
	"github.com/parsalaw/lawfetch/internal/clock/system"
	"github.com/parsalaw/lawfetch/internal/config"
	"github.com/parsalaw/lawfetch/internal/dispatcher"
	"github.com/parsalaw/lawfetch/internal/fetcher/headless"
	uuidgen "github.com/parsalaw/lawfetch/internal/id/uuid"
	"github.com/parsalaw/lawfetch/internal/logging"
	"github.com/parsalaw/lawfetch/internal/publisher"
	memorypublisher "github.com/parsalaw/lawfetch/internal/publisher/memory"
	pubsubpublisher "github.com/parsalaw/lawfetch/internal/publisher/pubsub"
	queuememory "github.com/parsalaw/lawfetch/internal/queue/memory"
	storememory "github.com/parsalaw/lawfetch/internal/store/memory"
	"github.com/parsalaw/lawfetch/internal/worker"
)

// newServeCmd creates the 'serve' subcommand running the full HTTP service.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fetch service with its HTTP API",
		Long: `Starts the job queue, the worker pool and the HTTP API. Jobs are
submitted over HTTP and executed asynchronously; fetched documents land in
the configured document store.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	snapshots, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}
	pub, pubClose, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer pubClose()

	var renderer worker.Renderer
	if cfg.Headless.Enabled {
		r, err := headless.New(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Strategies.BrowserUserAgent,
			AcceptLanguage:    cfg.Strategies.AcceptLanguage,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			renderer = r
			defer r.Close()
		}
	}

	jobs := storememory.NewJobStore()
	queue := queuememory.NewQueue(cfg.Fetch.QueueDepth)
	clock := system.New()
	idGen := uuidgen.New()

	workerCfg := worker.Config{
		Topic:         cfg.PubSub.TopicName,
		DefaultPolicy: cfg.Policy(),
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Fetch.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			jobs,
			eng.orch,
			renderer,
			snapshots,
			pub,
			eng.hub,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(jobs, eng.docs, dispatch, eng.memSink, idGen, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	eng.close(shutdownCtx, logger)
	logger.Info("shutdown complete")
	return nil
}

func buildArchive(ctx context.Context, cfg config.Config) (archive.Writer, error) {
	switch cfg.Archive.Backend {
	case "local":
		w, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return w, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		w, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return w, nil
	default:
		return archivememory.New(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), func() {}, nil
	}
	client, err := cloudpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.New(client, cfg.PubSub.TopicName)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return pub, func() {
		pub.Close()
		_ = client.Close()
	}, nil
}
