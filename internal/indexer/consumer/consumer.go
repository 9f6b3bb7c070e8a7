// Package consumer rebuilds the served index when the corpus changes. The
// indexer publishes a CorpusUpdated event after saving documents; every
// searcher consumes it, reloads the corpus and swaps in a new snapshot.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

// CorpusUpdated announces a new corpus version.
type CorpusUpdated struct {
	Source    string    `json:"source"`
	Documents int       `json:"documents"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Builder is the part of *executor.Engine a rebuild needs.
type Builder interface {
	Build(ctx context.Context, store *corpus.Store) error
	Generation() uint64
}

// Loader returns the current corpus.
type Loader func(ctx context.Context) (*corpus.Store, error)

// RebuildConsumer wraps a Kafka consumer that triggers rebuilds.
type RebuildConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *RebuildConsumer {
	return &RebuildConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "rebuild-consumer"),
	}
}

// Start consumes until ctx is cancelled.
func (rc *RebuildConsumer) Start(ctx context.Context) error {
	rc.logger.Info("rebuild consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage reloads the corpus and rebuilds on every CorpusUpdated
// event. Events older than the last successful rebuild are skipped, so a
// backlog after downtime costs a single build. A failed load or build is
// returned so the consumer retries it with backoff, unless the corpus itself
// is unusable: then the current snapshot keeps serving.
func HandleMessage(builder Builder, load Loader) kafka.MessageHandler {
	logger := slog.Default().With("component", "rebuild-consumer")
	var lastBuilt time.Time
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[CorpusUpdated](value)
		if err != nil {
			logger.Error("failed to decode corpus event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if !event.UpdatedAt.IsZero() && !event.UpdatedAt.After(lastBuilt) {
			logger.Debug("corpus event already applied", "updated_at", event.UpdatedAt)
			return nil
		}
		started := time.Now()
		store, err := load(ctx)
		if err != nil {
			return classify(fmt.Errorf("reloading corpus from %s: %w", event.Source, err))
		}
		if err := builder.Build(ctx, store); err != nil {
			return classify(fmt.Errorf("rebuilding index: %w", err))
		}
		lastBuilt = started
		logger.Info("index rebuilt from corpus event",
			"source", event.Source,
			"documents", store.Len(),
			"generation", builder.Generation(),
		)
		return nil
	}
}

// classify marks errors a retry cannot fix.
func classify(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNoDocuments),
		errors.Is(err, apperrors.ErrDimensionality),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrEmptyInput):
		return resilience.Permanent(err)
	default:
		return err
	}
}
