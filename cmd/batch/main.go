// Command batch runs a query file through the engine and writes one TREC
// run file per model plus one for the fused ranking.
//
// Usage:
//
//	go run ./cmd/batch -queries topics.txt [-format auto|lines|topics] [-out runs/trec_results.txt]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/trec"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	queriesPath := flag.String("queries", "", "query file (id<TAB>text lines or TREC topics)")
	formatName := flag.String("format", "auto", "query file format: auto, lines or topics")
	outPath := flag.String("out", "", "base path of the run files (default: trec.outputPath)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, *queriesPath, *formatName, *outPath); err != nil {
		slog.Error("batch run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, queriesPath, formatName, outPath string) error {
	if queriesPath == "" {
		return fmt.Errorf("-queries is required")
	}
	if outPath == "" {
		outPath = cfg.TREC.OutputPath
	}
	format, err := parser.ParseFormat(formatName)
	if err != nil {
		return err
	}
	queries, err := parser.ParseFile(queriesPath, format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	router := trec.ModelRouter{}
	for _, model := range []ranker.Model{ranker.ModelBM25, ranker.ModelLM, ranker.ModelVSM, ranker.ModelFused} {
		sink, err := trec.NewFileSink(trec.ModelPath(outPath, model), true)
		if err != nil {
			return err
		}
		router[model] = sink
	}
	sinks := trec.MultiSink{router}
	if cfg.TREC.Postgres && db != nil {
		pgSink := trec.NewPostgresSink(db, resilience.RetryConfig{})
		sinks = append(sinks, pgSink)
		slog.Info("trec runs stored in postgres", "run_id", pgSink.RunID())
	}

	engine, err := executor.New(executor.OptionsFromConfig(cfg), executor.WithSink(sinks))
	if err != nil {
		return err
	}
	store, err := corpus.Source(cfg.Corpus, db)(ctx)
	if err != nil {
		return err
	}
	if err := engine.Build(ctx, store); err != nil {
		return err
	}

	var events *collector.BatchCollector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		events = collector.NewBatchCollector(producer, 500, 2*time.Second)
		collectorCtx, cancel := context.WithCancel(context.Background())
		events.Start(collectorCtx)
		defer func() {
			cancel()
			events.Close()
		}()
	}

	start := time.Now()
	results, err := engine.SearchAll(ctx, queries)
	for _, res := range results {
		if events != nil {
			events.Track(analytics.SearchEvent(res.Query, res.QueryID, res.Terms[ranker.ModelBM25],
				len(res.Records), res.TookMs, false, res.Generation))
		}
	}
	if err != nil {
		return fmt.Errorf("batch interrupted after %d queries: %w", len(results), err)
	}
	slog.Info("batch run complete",
		"queries", len(queries),
		"answered", len(results),
		"documents", store.Len(),
		"run_base", outPath,
		"duration", time.Since(start),
	)
	return nil
}
