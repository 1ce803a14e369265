// Command checker starts the similarity checking service.
//
// It serves the corpus/compare/scan HTTP API, publishes analytics events to
// Kafka, caches pair scores in Redis when available, and enforces API-key
// auth when PostgreSQL is configured. Redis, Kafka, and Postgres are all
// optional; the service degrades rather than refuse to start.
//
// Usage:
//
//	go run ./cmd/checker [-config configs/development.yaml]
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
	"time"

	"github.com/docsim/docsim/internal/analytics"
	batchcollector "github.com/docsim/docsim/internal/analytics/collector"
	"github.com/docsim/docsim/internal/auth/apikey"
	"github.com/docsim/docsim/internal/auth/ratelimit"
	"github.com/docsim/docsim/internal/checker"
	"github.com/docsim/docsim/internal/checker/cache"
	chkhandler "github.com/docsim/docsim/internal/checker/handler"
	"github.com/docsim/docsim/internal/checker/router"
	"github.com/docsim/docsim/pkg/config"
	"github.com/docsim/docsim/pkg/health"
	"github.com/docsim/docsim/pkg/kafka"
	"github.com/docsim/docsim/pkg/logger"
	"github.com/docsim/docsim/pkg/metrics"
	"github.com/docsim/docsim/pkg/postgres"
	pkgredis "github.com/docsim/docsim/pkg/redis"
	"github.com/docsim/docsim/pkg/resilience"
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
	slog.Info("starting checker service",
		"port", cfg.Server.Port,
		"max_corpus_documents", cfg.Checker.MaxCorpusDocuments,
		"scan_workers", cfg.Checker.ScanWorkers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	// Redis is optional: without it every compare recomputes, which is fine.
	var pairCache *cache.PairCache
	redisClient, err := pkgredis.New(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, pair-score caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := resilience.NewCircuitBreaker("pair-cache", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, from, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		pairCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker)
		slog.Info("pair-score cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	// Analytics events flow to Kafka; the producer connects lazily, so a
	// missing broker only surfaces as dropped publishes.
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SimilarityEvents)
	defer producer.Close()

	collector := analytics.NewCollector(producer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	flagged := batchcollector.NewBatchCollector(producer, 100, 5*time.Second)
	flagged.Start(ctx)
	defer flagged.Close()
	slog.Info("analytics collectors started", "topic", cfg.Kafka.Topics.SimilarityEvents)

	// Postgres enables API-key auth and the admin endpoints. Without it the
	// service runs open, which is only acceptable for local development.
	var (
		keyValidator *apikey.Validator
		limiter      *ratelimit.Limiter
		admin        *chkhandler.AdminHandler
		db           *postgres.Client
	)
	db, err = postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, running without API-key auth", "error", err)
		db = nil
	} else {
		defer db.Close()
		keyValidator = apikey.NewValidator(db)
		if err := keyValidator.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure api_keys schema", "error", err)
			os.Exit(1)
		}
		limiter = ratelimit.New(time.Minute)
		defer limiter.Close()
		admin = chkhandler.NewAdmin(keyValidator)
		slog.Info("API-key auth enabled", "host", cfg.Postgres.Host)
	}

	service := checker.NewService(cfg.Checker, pairCache, collector, flagged, m)
	h := chkhandler.New(service)

	hc := health.NewChecker()
	hc.Register("redis", health.Optional(func(ctx context.Context) error {
		if redisClient == nil {
			return fmt.Errorf("not configured")
		}
		return redisClient.Ping(ctx)
	}))
	hc.Register("postgres", health.Optional(func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("not configured")
		}
		return db.Ping(ctx)
	}))

	chain := router.New(h, hc, router.Options{
		Admin:          admin,
		Validator:      keyValidator,
		Limiter:        limiter,
		Metrics:        m,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("checker service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Shutdown drains in-flight handlers; the deferred collector and client
	// Closes must not run until that finishes.
	<-shutdownDone

	slog.Info("checker service stopped")
}
