// Package trec formats ranked lists as TREC run lines and persists them.
package trec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
)

const (
	// MaxRank is the number of results kept per query.
	MaxRank = 100

	DefaultRunTag = "STANDARD"
)

// Entry is one line of a run: qid Q0 docid rank score runtag.
type Entry struct {
	QueryID string
	DocID   string
	Rank    int
	Score   float64
	RunTag  string
}

func (e Entry) String() string {
	return strings.Join([]string{
		e.QueryID,
		"Q0",
		e.DocID,
		strconv.Itoa(e.Rank),
		strconv.FormatFloat(e.Score, 'f', -1, 64),
		e.RunTag,
	}, " ")
}

// Entries turns the first MaxRank docs into run entries with 1-based
// ranks. docs must already be ranked.
func Entries(queryID, runTag string, docs []ranker.ScoredDoc) []Entry {
	if runTag == "" {
		runTag = DefaultRunTag
	}
	docs = ranker.Truncate(docs, MaxRank)
	out := make([]Entry, len(docs))
	for i, d := range docs {
		out[i] = Entry{
			QueryID: queryID,
			DocID:   d.DocID,
			Rank:    i + 1,
			Score:   d.Score,
			RunTag:  runTag,
		}
	}
	return out
}

// ParseLine parses a single run line.
func ParseLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Entry{}, fmt.Errorf("trec line has %d fields, want 6", len(fields))
	}
	rank, err := strconv.Atoi(fields[3])
	if err != nil {
		return Entry{}, fmt.Errorf("trec rank: %w", err)
	}
	score, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("trec score: %w", err)
	}
	return Entry{QueryID: fields[0], DocID: fields[2], Rank: rank, Score: score, RunTag: fields[5]}, nil
}

// Sink persists the entries produced by one model for one query.
type Sink interface {
	Write(ctx context.Context, model ranker.Model, entries []Entry) error
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, model ranker.Model, entries []Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, model, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ModelRouter sends each model's entries to its own sink. Models without
// a sink are dropped.
type ModelRouter map[ranker.Model]Sink

func (r ModelRouter) Write(ctx context.Context, model ranker.Model, entries []Entry) error {
	s, ok := r[model]
	if !ok {
		return nil
	}
	return s.Write(ctx, model, entries)
}

// ModelPath derives a per-model run file from base, so
// runs/trec_results.txt becomes runs/trec_results_bm25.txt.
func ModelPath(base string, model ranker.Model) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + string(model) + ext
}
