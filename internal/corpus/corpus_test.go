package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore([]Document{
		{DocID: "doc1", OriginalText: "the cat sat"},
		{DocID: "doc2", OriginalText: "the dog ran"},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if pos, ok := store.Position("doc2"); !ok || pos != 1 {
		t.Errorf("Position(doc2) = %d, %v", pos, ok)
	}
	if _, err := store.Get("doc3"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("Get(doc3) error = %v", err)
	}
	if store.TextBytes() != int64(len("the cat sat")+len("the dog ran")) {
		t.Errorf("TextBytes = %d", store.TextBytes())
	}
}

func TestNewStoreRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		docs []Document
	}{
		{"missing id", []Document{{OriginalText: "x"}}},
		{"blank text", []Document{{DocID: "a", OriginalText: "  "}}},
		{"duplicate", []Document{{DocID: "a", OriginalText: "x"}, {DocID: "a", OriginalText: "y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStore(tt.docs); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestStoreIsolatedFromCaller(t *testing.T) {
	docs := []Document{{DocID: "a", OriginalText: "x", Categories: []string{"one"}}}
	store, err := NewStore(docs)
	if err != nil {
		t.Fatal(err)
	}
	docs[0].Categories[0] = "mutated"
	docs[0].OriginalText = "changed"
	if got := store.At(0); got.Categories[0] != "one" || got.OriginalText != "x" {
		t.Errorf("store observed caller mutation: %+v", got)
	}
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, text string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.txt", "alpha text")
	write("b.md", "ignored")
	write("blank.txt", "   \n")
	write("sub/a.txt", "nested alpha")

	store, err := LoadFolder(dir)
	if err != nil {
		t.Fatalf("LoadFolder: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if d := store.At(0); d.DocID != "a.txt" || d.Extension != ".txt" || d.OriginalText != "alpha text" {
		t.Errorf("first document = %+v", d)
	}
	if d := store.At(1); d.DocID != "sub/a.txt" {
		t.Errorf("colliding name should fall back to relative path, got %q", d.DocID)
	}
}

func TestLoadFolderEmpty(t *testing.T) {
	if _, err := LoadFolder(t.TempDir()); !errors.Is(err, apperrors.ErrNoDocuments) {
		t.Errorf("error = %v, want ErrNoDocuments", err)
	}
}

func TestLoadCrawl(t *testing.T) {
	dump := `{
  "image_data": [
    {"page_url": "https://en.wikipedia.org/wiki/Tiger", "page_title": "Tiger",
     "categories": ["Big cats", "Apex predators"], "image_url": "https://img/tiger.jpg",
     "alt_text": "A Bengal tiger", "caption": "Tiger resting", "surrounding_text": "The tiger is the largest cat."},
    {"page_url": "https://en.wikipedia.org/wiki/Tiger", "page_title": "Tiger",
     "image_url": "https://img/tiger.jpg", "caption": "duplicate"},
    {"page_url": "https://en.wikipedia.org/wiki/Lion", "page_title": "", "image_url": ""}
  ],
  "visited_map": {}
}`
	path := filepath.Join(t.TempDir(), "image_data.json")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := LoadCrawl(path)
	if err != nil {
		t.Fatalf("LoadCrawl: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
	d := store.At(0)
	want := "Tiger Big cats Apex predators A Bengal tiger The tiger is the largest cat. Tiger resting"
	if d.OriginalText != want {
		t.Errorf("OriginalText = %q, want %q", d.OriginalText, want)
	}
	if d.Extension != ".html" || d.Path != "https://img/tiger.jpg" || d.FileName != "Tiger" {
		t.Errorf("unexpected document fields %+v", d)
	}
}

func TestSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := Source(config.CorpusConfig{Source: "folder", Path: dir}, nil)(context.Background())
	if err != nil || store.Len() != 1 {
		t.Fatalf("folder source: len=%v err=%v", store, err)
	}
	for _, cfg := range []config.CorpusConfig{{Source: "postgres"}, {Source: "ftp"}} {
		if _, err := Source(cfg, nil)(context.Background()); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", cfg.Source, err)
		}
	}
}
