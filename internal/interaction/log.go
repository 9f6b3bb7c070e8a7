// Package interaction records what users do with search results in an
// append-only JSON lines file and answers view counts per query.
package interaction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
)

const (
	// openTTL bounds how long a click waits for its close.
	openTTL = time.Hour
	maxOpen = 10000
)

type Kind string

const (
	KindQuery Kind = "query"
	KindClick Kind = "click"
	KindClose Kind = "close"
)

// Entry is one line of the log.
type Entry struct {
	Kind      Kind      `json:"kind"`
	Query     string    `json:"query"`
	DocID     string    `json:"doc_id,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	Dwell     float64   `json:"dwell_seconds,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Log appends entries to a file. The file is opened and closed per call,
// so several processes can share it and readers always see fresh data.
type Log struct {
	path      string
	mu        sync.Mutex
	opened    map[string]time.Time
	openTTL   time.Duration
	maxOpen   int
	lastSweep time.Time
	now       func() time.Time
	logger    *slog.Logger
}

func NewLog(path string) *Log {
	return &Log{
		path:    path,
		opened:  make(map[string]time.Time),
		openTTL: openTTL,
		maxOpen: maxOpen,
		now:     time.Now,
		logger:  slog.Default().With("component", "interaction-log"),
	}
}

func (l *Log) Path() string {
	return l.path
}

// LogQuery records that query was searched.
func (l *Log) LogQuery(ctx context.Context, query string) error {
	return l.append(ctx, Entry{Kind: KindQuery, Query: normalizeQuery(query)})
}

// LogClick records that a result was opened and starts its dwell timer.
func (l *Log) LogClick(ctx context.Context, query, docID, fileName string) error {
	if docID == "" {
		return fmt.Errorf("%w: doc_id is required", apperrors.ErrInvalidInput)
	}
	q := normalizeQuery(query)
	now := l.now()
	l.mu.Lock()
	l.sweepOpen(now)
	l.opened[openKey(q, docID)] = now
	l.mu.Unlock()
	return l.append(ctx, Entry{Kind: KindClick, Query: q, DocID: docID, FileName: fileName})
}

// LogClose records that an opened result was closed, with the time spent
// on it. Closing a document that was never opened, or whose click expired,
// is ignored and reports false.
func (l *Log) LogClose(ctx context.Context, query, docID, fileName string) (float64, bool, error) {
	q := normalizeQuery(query)
	key := openKey(q, docID)
	now := l.now()
	l.mu.Lock()
	openedAt, ok := l.opened[key]
	delete(l.opened, key)
	l.mu.Unlock()
	if !ok || now.Sub(openedAt) > l.openTTL {
		return 0, false, nil
	}
	dwell := now.Sub(openedAt).Round(10 * time.Millisecond).Seconds()
	err := l.append(ctx, Entry{Kind: KindClose, Query: q, DocID: docID, FileName: fileName, Dwell: dwell})
	return dwell, true, err
}

// Views returns how many times results of query were opened. A missing
// log counts as no views.
func (l *Log) Views(query string) (int, error) {
	q := normalizeQuery(query)
	views := 0
	err := l.scan(func(e Entry) {
		if e.Kind == KindClick && e.Query == q {
			views++
		}
	})
	return views, err
}

// ViewsByDocument returns the open count per document for query.
func (l *Log) ViewsByDocument(query string) (map[string]int, error) {
	q := normalizeQuery(query)
	out := make(map[string]int)
	err := l.scan(func(e Entry) {
		if e.Kind == KindClick && e.Query == q {
			out[e.DocID]++
		}
	})
	return out, err
}

// Entries returns every entry in file order.
func (l *Log) Entries() ([]Entry, error) {
	var out []Entry
	err := l.scan(func(e Entry) { out = append(out, e) })
	return out, err
}

func (l *Log) append(ctx context.Context, e Entry) error {
	e.Timestamp = l.now().UTC()
	e.RequestID = logger.RequestID(ctx)
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding interaction: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating interaction log directory: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening interaction log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing interaction log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing interaction log: %w", err)
	}
	logger.FromContext(ctx).Debug("interaction logged", "kind", e.Kind, "query", e.Query, "doc_id", e.DocID)
	return nil
}

func (l *Log) scan(fn func(Entry)) error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening interaction log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			l.logger.Warn("skipping corrupt interaction line", "line", line, "error", err)
			continue
		}
		fn(e)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading interaction log: %w", err)
	}
	return nil
}

// OpenCount returns the number of clicks still waiting for a close.
func (l *Log) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.opened)
}

// sweepOpen drops expired clicks at most once per TTL, and the oldest
// clicks whenever the table is full. Callers hold l.mu.
func (l *Log) sweepOpen(now time.Time) {
	if now.Sub(l.lastSweep) >= l.openTTL {
		for key, at := range l.opened {
			if now.Sub(at) > l.openTTL {
				delete(l.opened, key)
			}
		}
		l.lastSweep = now
	}
	for len(l.opened) >= l.maxOpen {
		var (
			oldestKey string
			oldestAt  time.Time
		)
		for key, at := range l.opened {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey, oldestAt = key, at
			}
		}
		delete(l.opened, oldestKey)
	}
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func openKey(query, docID string) string {
	return query + "\x00" + docID
}
