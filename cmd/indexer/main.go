// Command indexer loads a corpus, builds all three models once to validate
// it and report statistics, and optionally imports it into PostgreSQL.
// After an import it announces the new corpus on Kafka so running
// searchers rebuild.
//
// Usage:
//
//	go run ./cmd/indexer [-source crawl] [-path image_data.json] [-import]
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

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	source := flag.String("source", "", "corpus source override: folder or crawl")
	path := flag.String("path", "", "corpus path override")
	importCorpus := flag.Bool("import", false, "save the corpus into postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *source != "" {
		cfg.Corpus.Source = *source
	}
	if *path != "" {
		cfg.Corpus.Path = *path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, *importCorpus); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, importCorpus bool) error {
	if cfg.Corpus.Source == "postgres" && importCorpus {
		return fmt.Errorf("cannot import a corpus that is read from postgres")
	}
	var db *postgres.Client
	if cfg.Postgres.Enabled {
		var err error
		if db, err = postgres.New(cfg.Postgres); err != nil {
			return err
		}
		defer db.Close()
	}

	store, err := corpus.Source(cfg.Corpus, db)(ctx)
	if err != nil {
		return err
	}
	engine, err := executor.New(executor.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	if err := engine.Build(ctx, store); err != nil {
		return err
	}
	stats, err := engine.Stats()
	if err != nil {
		return err
	}
	slog.Info("corpus indexed",
		"documents", stats.Documents,
		"text_bytes", stats.TextBytes,
		"vocabulary", stats.Vocabulary,
		"avg_doc_length", stats.AvgDocLength,
		"vsm_rows", stats.VSMRows,
		"vsm_components", stats.VSMComponents,
		"build_ms", stats.BuildMs,
	)

	if !importCorpus {
		return nil
	}
	if db == nil {
		return fmt.Errorf("-import requires postgres.enabled")
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	if err := corpus.NewPostgresLoader(db).Save(ctx, store); err != nil {
		return err
	}
	slog.Info("corpus imported into postgres", "documents", store.Len())

	if !cfg.Kafka.Enabled {
		return nil
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdated)
	defer producer.Close()
	return producer.Publish(ctx, kafka.Event{
		Key: "corpus",
		Value: consumer.CorpusUpdated{
			Source:    cfg.Corpus.Source,
			Documents: store.Len(),
			UpdatedAt: time.Now().UTC(),
		},
	})
}
