package trec

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
)

// FileSink appends run lines to a file, opening and closing it on every
// write.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink prepares path. With truncate set an existing run is
// discarded, so a fresh session starts with an empty file.
func NewFileSink(path string, truncate bool) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating run directory: %w", err)
		}
	}
	if truncate {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("truncating run file: %w", err)
		}
	}
	return &FileSink{path: path}, nil
}

func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Write(_ context.Context, _ ranker.Model, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			f.Close()
			return fmt.Errorf("writing run file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing run file: %w", err)
	}
	return f.Close()
}

// ReadFile parses every line of a run file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run file: %w", err)
	}
	defer f.Close()
	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		e, err := ParseLine(sc.Text())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
