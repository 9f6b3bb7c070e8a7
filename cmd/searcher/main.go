// Command searcher serves tri-model search over HTTP.
//
// It loads the configured corpus, builds the BM25, language model and
// vector space indexes, and answers GET /api/v1/search with fused results.
// Redis caching, Kafka analytics and corpus-update rebuilds, and the
// PostgreSQL TREC sink are enabled per config.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/interaction"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/trec"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate postgres schema", "error", err)
			os.Exit(1)
		}
	}

	var sinks trec.MultiSink
	if cfg.TREC.OutputPath != "" {
		router := trec.ModelRouter{}
		for _, model := range []ranker.Model{ranker.ModelBM25, ranker.ModelLM, ranker.ModelVSM, ranker.ModelFused} {
			sink, err := trec.NewFileSink(trec.ModelPath(cfg.TREC.OutputPath, model), false)
			if err != nil {
				slog.Error("failed to open trec run file", "model", model, "error", err)
				os.Exit(1)
			}
			router[model] = sink
		}
		sinks = append(sinks, router)
	}
	if cfg.TREC.Postgres && db != nil {
		pgSink := trec.NewPostgresSink(db, resilience.RetryConfig{})
		sinks = append(sinks, pgSink)
		slog.Info("trec runs stored in postgres", "run_id", pgSink.RunID())
	}

	interactions := interaction.NewLog(cfg.Interaction.LogPath)
	engineOpts := []executor.Option{executor.WithMetrics(m)}
	if len(sinks) > 0 {
		engineOpts = append(engineOpts, executor.WithSink(sinks))
	}
	if cfg.Interaction.AdaptBM25 {
		engineOpts = append(engineOpts, executor.WithViews(interactions))
	}
	engine, err := executor.New(executor.OptionsFromConfig(cfg), engineOpts...)
	if err != nil {
		slog.Error("invalid engine options", "error", err)
		os.Exit(1)
	}

	load := corpus.Source(cfg.Corpus, db)
	store, err := load(ctx)
	if err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}
	if err := engine.Build(ctx, store); err != nil {
		slog.Error("initial index build failed", "error", err)
		os.Exit(1)
	}

	handlerOpts := []handler.Option{
		handler.WithMetrics(m),
		handler.WithInteractions(interactions),
		handler.WithCorpusLoader(load),
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			handlerOpts = append(handlerOpts, handler.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, m)))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var aggregator *analytics.Aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		handlerOpts = append(handlerOpts, handler.WithTracker(collector))

		// Each instance needs its own groups: the aggregator reports what
		// every searcher served and every searcher must rebuild.
		instance := uuid.NewString()
		aggregator = analytics.NewAggregator()
		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator),
			kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics-"+instance),
		)
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()

		rebuilds := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdated, consumer.HandleMessage(engine, load),
			kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-rebuild-"+instance),
			kafka.WithRetry(resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 30 * time.Second}),
		))
		go func() {
			if err := rebuilds.Start(ctx); err != nil {
				slog.Error("rebuild consumer error", "error", err)
			}
		}()
		slog.Info("kafka wiring started",
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"corpus_topic", cfg.Kafka.Topics.CorpusUpdated,
		)
	}

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(engine.Generation))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
	}
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	h := handler.New(engine, cfg.Search.PageSize, cfg.Search.MaxResults, handlerOpts...)
	mux := http.NewServeMux()
	h.Register(mux)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(time.Minute)
		defer limiter.Stop()
		chain = middleware.RateLimit(limiter, cfg.Server.RateLimit)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...))(chain)
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

	slog.Info("search service listening", "addr", server.Addr, "generation", engine.Generation())
	start := time.Now()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped", "uptime", time.Since(start).Round(time.Second))
}
