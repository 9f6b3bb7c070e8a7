package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/resilience"
)

type countingBuilder struct {
	builds int
	err    error
}

func (b *countingBuilder) Build(context.Context, *corpus.Store) error {
	if b.err != nil {
		return b.err
	}
	b.builds++
	return nil
}

func (b *countingBuilder) Generation() uint64 { return uint64(b.builds) }

func loadOne(context.Context) (*corpus.Store, error) {
	return corpus.NewStore([]corpus.Document{{DocID: "a", OriginalText: "text"}})
}

func encode(t *testing.T, e CorpusUpdated) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRebuildsOnEvent(t *testing.T) {
	b := &countingBuilder{}
	handle := HandleMessage(b, loadOne)
	ctx := context.Background()
	if err := handle(ctx, nil, encode(t, CorpusUpdated{Source: "postgres", UpdatedAt: time.Now()})); err != nil {
		t.Fatal(err)
	}
	if b.builds != 1 {
		t.Fatalf("builds = %d", b.builds)
	}
	stale := CorpusUpdated{Source: "postgres", UpdatedAt: time.Now().Add(-time.Hour)}
	if err := handle(ctx, nil, encode(t, stale)); err != nil {
		t.Fatal(err)
	}
	if b.builds != 1 {
		t.Errorf("stale event rebuilt, builds = %d", b.builds)
	}
}

func TestUndecodableEventAcknowledged(t *testing.T) {
	b := &countingBuilder{}
	if err := HandleMessage(b, loadOne)(context.Background(), nil, []byte("{")); err != nil {
		t.Errorf("err = %v", err)
	}
	if b.builds != 0 {
		t.Error("garbage triggered a build")
	}
}

func TestFailuresReturned(t *testing.T) {
	b := &countingBuilder{err: errors.New("svd failed")}
	if err := HandleMessage(b, loadOne)(context.Background(), nil, encode(t, CorpusUpdated{})); err == nil {
		t.Error("build failure swallowed")
	}
	failLoad := func(context.Context) (*corpus.Store, error) { return nil, errors.New("db down") }
	if err := HandleMessage(&countingBuilder{}, failLoad)(context.Background(), nil, encode(t, CorpusUpdated{})); err == nil {
		t.Error("load failure swallowed")
	}
}

func TestUnusableCorpusNotRetried(t *testing.T) {
	b := &countingBuilder{err: apperrors.ErrDimensionality}
	handle := HandleMessage(b, loadOne)
	calls := 0
	err := resilience.Retry(context.Background(), "rebuild", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return handle(context.Background(), nil, encode(t, CorpusUpdated{}))
	})
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if !errors.Is(err, apperrors.ErrDimensionality) {
		t.Errorf("err = %v", err)
	}
}
