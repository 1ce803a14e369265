// Command analytics starts the standalone analytics aggregation service.
//
// It consumes similarity events from Kafka, aggregates them in memory
// (compare/scan totals, score distribution, latency percentiles, top flagged
// pairs), and exposes the rollup at GET /api/v1/analytics. When PostgreSQL
// is configured the rollup is snapshotted periodically and restored on boot.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docsim/docsim/internal/analytics"
	"github.com/docsim/docsim/internal/analytics/aggregator"
	"github.com/docsim/docsim/pkg/config"
	"github.com/docsim/docsim/pkg/health"
	"github.com/docsim/docsim/pkg/kafka"
	"github.com/docsim/docsim/pkg/logger"
	"github.com/docsim/docsim/pkg/middleware"
	"github.com/docsim/docsim/pkg/postgres"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator(cfg.Analytics.TopPairs)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SimilarityEvents, analytics.HandleEvent(agg))
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("kafka consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started",
		"topic", cfg.Kafka.Topics.SimilarityEvents,
		"group", cfg.Kafka.ConsumerGroup,
	)

	// Snapshot persistence is optional; without Postgres the rollup starts
	// empty and history endpoints report not-implemented.
	var store *aggregator.Store
	var snapshots analytics.SnapshotLister
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshot persistence disabled", "error", err)
		db = nil
	} else {
		defer db.Close()
		store = aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure snapshot schema", "error", err)
			os.Exit(1)
		}
		if latest, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore latest snapshot", "error", err)
		} else if latest != nil {
			agg.Restore(*latest)
			slog.Info("restored aggregator state from snapshot")
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
		slog.Info("snapshot persistence enabled", "interval", cfg.Analytics.SnapshotInterval)
	}

	analyticsHandler := analytics.NewHandler(agg, snapshots)

	hc := health.NewChecker()
	hc.Register("postgres", health.Optional(func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("not configured")
		}
		return db.Ping(ctx)
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.HandleFunc("GET /health/live", hc.LiveHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
