// Package publisher stores ingested documents in the corpus table and
// publishes a corpus.updated event so searchers rebuild their snapshot.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

// publishTimeout bounds the announcement so a slow broker does not hold the
// ingest request once the document is stored.
const publishTimeout = 5 * time.Second

// DocumentStore persists one document. corpus.PostgresLoader implements it.
type DocumentStore interface {
	Upsert(ctx context.Context, doc corpus.Document) (created bool, total int, err error)
}

// Notifier announces corpus changes. A nil Notifier disables announcements.
type Notifier interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates document persistence and event production.
type Publisher struct {
	store    DocumentStore
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func New(store DocumentStore, notifier Notifier) *Publisher {
	return &Publisher{
		store:    store,
		notifier: notifier,
		timeout:  publishTimeout,
		now:      time.Now,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest stores the document and publishes the corpus size. A failed
// publish is logged and reported through Published, not returned: the
// document is already durable.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	doc := req.Document()
	created, total, err := p.store.Upsert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	resp := &ingestion.IngestResponse{
		DocID:     doc.DocID,
		Status:    ingestion.StatusUpdated,
		Documents: total,
	}
	if created {
		resp.Status = ingestion.StatusCreated
	}
	if p.notifier == nil {
		return resp, nil
	}

	event := kafka.Event{
		Key: "corpus",
		Value: consumer.CorpusUpdated{
			Source:    "postgres",
			Documents: total,
			UpdatedAt: p.now().UTC(),
		},
	}
	err = resilience.WithTimeout(ctx, p.timeout, "publish corpus update", func(ctx context.Context) error {
		return p.notifier.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish corpus update, searchers will not rebuild until the next update",
			"doc_id", doc.DocID,
			"error", err,
		)
		return resp, nil
	}
	resp.Published = true
	return resp, nil
}
