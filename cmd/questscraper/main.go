// Command questscraper runs the wiki quest extraction service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tarkovlens/questscraper/internal/api"
	"github.com/tarkovlens/questscraper/internal/clock/system"
	"github.com/tarkovlens/questscraper/internal/config"
	collyfetcher "github.com/tarkovlens/questscraper/internal/fetcher/colly"
	"github.com/tarkovlens/questscraper/internal/fetcher/headless"
	"github.com/tarkovlens/questscraper/internal/hash/sha256"
	"github.com/tarkovlens/questscraper/internal/headless/detector"
	"github.com/tarkovlens/questscraper/internal/id/uuid"
	"github.com/tarkovlens/questscraper/internal/logging"
	"github.com/tarkovlens/questscraper/internal/orchestrator"
	"github.com/tarkovlens/questscraper/internal/progress"
	"github.com/tarkovlens/questscraper/internal/progress/sinks"
	memorypublisher "github.com/tarkovlens/questscraper/internal/publisher/memory"
	pubsubpublisher "github.com/tarkovlens/questscraper/internal/publisher/pubsub"
	"github.com/tarkovlens/questscraper/internal/scrape"
	"github.com/tarkovlens/questscraper/internal/storage/gcs"
	"github.com/tarkovlens/questscraper/internal/storage/local"
	"github.com/tarkovlens/questscraper/internal/storage/memory"
	"github.com/tarkovlens/questscraper/internal/storage/postgres"
	"github.com/tarkovlens/questscraper/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pageStore, jobStore, taskStore, cleanupStores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupStores()

	blobStore, cleanupBlob, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupBlob()

	pub, cleanupPub, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupPub()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promSink, err := sinks.NewPrometheus(registry)
	if err != nil {
		return fmt.Errorf("register progress metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLog(logger), promSink)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Wiki.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	var headlessFetcher scrape.Fetcher = headless.Noop{}
	if cfg.Headless.Enabled {
		headlessFetcher = headless.NewChromedp(headless.Config{
			UserAgent:         cfg.Wiki.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
	}

	upstreamClient := upstream.New(upstream.Config{
		Endpoint:       cfg.Upstream.Endpoint,
		Timeout:        time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		MaxRetries:     cfg.Upstream.MaxRetries,
		BackoffInitial: time.Duration(cfg.Upstream.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.Upstream.BackoffMaxMs) * time.Millisecond,
	}, logger)

	orch, err := orchestrator.New(orchestrator.Config{
		ListURL:         cfg.Wiki.ListURL,
		BaseURL:         cfg.Wiki.BaseURL,
		Delay:           cfg.FetchDelay(),
		Concurrency:     cfg.Wiki.Concurrency,
		Topic:           cfg.PubSub.TopicName,
		HeadlessEnabled: cfg.Headless.Enabled,
	}, orchestrator.Deps{
		Fetcher:   fetcher,
		Headless:  headlessFetcher,
		Detector:  detector.NewHeuristic(cfg.Headless.PromotionThreshold),
		PageStore: pageStore,
		JobStore:  jobStore,
		TaskStore: taskStore,
		BlobStore: blobStore,
		Publisher: pub,
		Upstream:  upstreamClient,
		Hasher:    sha256.New(),
		Clock:     system.New(),
		IDs:       uuid.NewGenerator(),
		Emitter:   hub,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	server := api.NewServer(orch, jobStore, registry, cfg, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// buildStores wires the persistence layer: Postgres when a DSN is set,
// in-memory twins otherwise.
func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (scrape.PageStore, scrape.JobStore, scrape.TaskStore, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, using in-memory stores")
		return memory.NewPageStore(), memory.NewJobStore(), memory.NewTaskStore(), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	pageStore, err := postgres.NewPageStore(pool)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	jobStore, err := postgres.NewJobStore(pool)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	taskStore, err := postgres.NewTaskStore(pool)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return pageStore, jobStore, taskStore, pool.Close, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (scrape.BlobStore, func(), error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return memory.NewBlobStore(), func() {}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (scrape.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		logger.Info("no pubsub topic configured, using in-memory publisher")
		return memorypublisher.New(), func() {}, nil
	}
	client, err := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.TopicName)
	return pubsubpublisher.New(topic), func() {
		topic.Stop()
		_ = client.Close()
	}, nil
}
