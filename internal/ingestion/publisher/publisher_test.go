package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
)

type memoryStore struct {
	docs map[string]corpus.Document
	err  error
}

func (m *memoryStore) Upsert(_ context.Context, doc corpus.Document) (bool, int, error) {
	if m.err != nil {
		return false, 0, m.err
	}
	_, exists := m.docs[doc.DocID]
	m.docs[doc.DocID] = doc
	return !exists, len(m.docs), nil
}

type recordingNotifier struct {
	events []kafka.Event
	err    error
	block  bool
}

func (n *recordingNotifier) Publish(ctx context.Context, e kafka.Event) error {
	if n.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, e)
	return nil
}

func TestIngestCreatesAndPublishes(t *testing.T) {
	store := &memoryStore{docs: map[string]corpus.Document{}}
	notifier := &recordingNotifier{}
	p := New(store, notifier)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocID: "img-7", Text: "A lighthouse at dusk."})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != ingestion.StatusCreated || resp.Documents != 1 || !resp.Published {
		t.Errorf("response = %+v", resp)
	}
	if store.docs["img-7"].FileName != "img-7" {
		t.Errorf("file name defaulted to %q", store.docs["img-7"].FileName)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("%d events published", len(notifier.events))
	}
	update, ok := notifier.events[0].Value.(consumer.CorpusUpdated)
	if !ok || update.Source != "postgres" || update.Documents != 1 || update.UpdatedAt.Hour() != 12 {
		t.Errorf("event = %+v", notifier.events[0].Value)
	}

	resp, err = p.Ingest(context.Background(), &ingestion.IngestRequest{DocID: "img-7", Text: "A lighthouse at night."})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != ingestion.StatusUpdated || resp.Documents != 1 {
		t.Errorf("second response = %+v", resp)
	}
}

func TestIngestPublishFailureKeepsDocument(t *testing.T) {
	store := &memoryStore{docs: map[string]corpus.Document{}}
	p := New(store, &recordingNotifier{err: errors.New("broker down")})
	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocID: "a", Text: "text"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Published || len(store.docs) != 1 {
		t.Errorf("published = %v stored = %d", resp.Published, len(store.docs))
	}
}

func TestIngestStoreFailure(t *testing.T) {
	wantErr := errors.New("connection reset")
	p := New(&memoryStore{err: wantErr}, nil)
	if _, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocID: "a", Text: "text"}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
}

func TestIngestSlowBrokerTimesOut(t *testing.T) {
	p := New(&memoryStore{docs: map[string]corpus.Document{}}, &recordingNotifier{block: true})
	p.timeout = 10 * time.Millisecond
	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocID: "a", Text: "text"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Published {
		t.Error("timed out publish reported as published")
	}
}
