package interaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return NewLog(filepath.Join(t.TempDir(), "logs", "interactions.jsonl"))
}

func TestViewsCountsClicksPerQuery(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	if n, err := l.Views("sunset"); err != nil || n != 0 {
		t.Fatalf("Views on missing log = %d, %v", n, err)
	}
	if err := l.LogQuery(ctx, "sunset"); err != nil {
		t.Fatal(err)
	}
	for _, doc := range []string{"a", "b", "a"} {
		if err := l.LogClick(ctx, "  sunset ", doc, doc+".txt"); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.LogClick(ctx, "ocean", "c", "c.txt"); err != nil {
		t.Fatal(err)
	}

	n, err := l.Views("sunset")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Views(sunset) = %d, want 3", n)
	}
	byDoc, err := l.ViewsByDocument("sunset")
	if err != nil {
		t.Fatal(err)
	}
	if byDoc["a"] != 2 || byDoc["b"] != 1 {
		t.Errorf("ViewsByDocument = %v", byDoc)
	}
	entries, _ := l.Entries()
	if len(entries) != 5 || entries[0].Kind != KindQuery {
		t.Errorf("entries = %+v", entries)
	}
}

func TestCloseRecordsDwell(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if _, ok, err := l.LogClose(ctx, "q", "a", "a.txt"); ok || err != nil {
		t.Fatalf("closing unopened doc: ok=%v err=%v", ok, err)
	}
	if err := l.LogClick(ctx, "q", "a", "a.txt"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2500 * time.Millisecond)
	dwell, ok, err := l.LogClose(ctx, "q", "a", "a.txt")
	if err != nil || !ok {
		t.Fatalf("LogClose: ok=%v err=%v", ok, err)
	}
	if dwell != 2.5 {
		t.Errorf("dwell = %v, want 2.5", dwell)
	}
	entries, _ := l.Entries()
	if last := entries[len(entries)-1]; last.Kind != KindClose || last.Dwell != 2.5 {
		t.Errorf("last entry = %+v", last)
	}
}

func TestUnclosedClicksAreBounded(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	l.maxOpen = 3
	l.openTTL = time.Minute
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for _, doc := range []string{"a", "b", "c", "d"} {
		if err := l.LogClick(ctx, "q", doc, doc+".txt"); err != nil {
			t.Fatal(err)
		}
		now = now.Add(time.Second)
	}
	if n := l.OpenCount(); n != 3 {
		t.Errorf("open clicks = %d, want 3", n)
	}
	if _, ok, _ := l.LogClose(ctx, "q", "a", "a.txt"); ok {
		t.Error("oldest click should have been evicted")
	}

	now = now.Add(2 * time.Minute)
	if err := l.LogClick(ctx, "q", "e", "e.txt"); err != nil {
		t.Fatal(err)
	}
	if n := l.OpenCount(); n != 1 {
		t.Errorf("open clicks after expiry = %d, want 1", n)
	}
	if _, ok, _ := l.LogClose(ctx, "q", "b", "b.txt"); ok {
		t.Error("expired click matched a close")
	}
	if views, _ := l.Views("q"); views != 5 {
		t.Errorf("views = %d, want every click counted", views)
	}
}

func TestClickRequiresDocument(t *testing.T) {
	l := newTestLog(t)
	if err := l.LogClick(context.Background(), "q", "", ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestCorruptLinesSkipped(t *testing.T) {
	l := newTestLog(t)
	if err := os.MkdirAll(filepath.Dir(l.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	data := "{not json}\n\n{\"kind\":\"click\",\"query\":\"q\",\"doc_id\":\"a\"}\n"
	if err := os.WriteFile(l.Path(), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := l.Views("q")
	if err != nil || n != 1 {
		t.Errorf("Views = %d, %v", n, err)
	}
}
