// Command ingestion serves the document ingestion API.
//
// POST /api/v1/documents validates a document, stores it in the PostgreSQL
// corpus table and publishes a corpus.updated event so searchers reading
// the postgres corpus rebuild. Health probes are served at /health/live and
// /health/ready.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "listen port override")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Postgres.Enabled {
		slog.Error("ingestion requires postgres.enabled")
		os.Exit(1)
	}
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
	slog.Info("connected to postgres")

	var notifier publisher.Notifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdated)
		defer producer.Close()
		notifier = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CorpusUpdated)
	} else {
		slog.Warn("kafka disabled, searchers will not be told about new documents")
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	h := handler.New(publisher.New(corpus.NewPostgresLoader(db), notifier))
	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping, false))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
