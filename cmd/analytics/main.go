// Command analytics runs the standalone analytics service.
//
// It consumes search, interaction and index build events from Kafka,
// aggregates them in memory (latency percentiles, zero-result queries,
// clicks and dwell time, top documents) and serves the aggregate at
// GET /api/v1/analytics. With postgres enabled the aggregate is
// snapshotted periodically and restored counts are logged at startup.
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	snapshotEvery := flag.Duration("snapshot-interval", time.Minute, "how often the aggregate is saved to postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg),
		kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics"),
		kafka.WithStartOffset(kafka.FirstOffset),
	)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate postgres schema", "error", err)
			os.Exit(1)
		}
		store := aggregator.NewStore(db, resilience.RetryConfig{})
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading last analytics snapshot failed", "error", err)
		} else if last != nil {
			slog.Info("previous analytics snapshot", "total_searches", last.TotalSearches, "total_clicks", last.TotalClicks)
		}
		store.StartPeriodicSave(ctx, agg, *snapshotEvery)
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

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
