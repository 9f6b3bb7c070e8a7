// Package bm25 implements Okapi BM25 over the shared term statistics.
package bm25

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75

	// viewStep is the parameter shift applied per ten recorded views.
	viewStep = 0.05
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

func (p Params) Validate() error {
	if p.K1 < 0 || math.IsNaN(p.K1) {
		return fmt.Errorf("%w: bm25 k1 must be non-negative, got %v", apperrors.ErrInvalidInput, p.K1)
	}
	if p.B < 0 || p.B > 1 || math.IsNaN(p.B) {
		return fmt.Errorf("%w: bm25 b must be within [0,1], got %v", apperrors.ErrInvalidInput, p.B)
	}
	return nil
}

// AdjustForViews derives request-scoped parameters from the number of times
// the query's results were viewed: every ten views raise b and lower k1 by
// 0.05, clamped to the valid range. The receiver is not modified.
func (p Params) AdjustForViews(views int) Params {
	if views <= 0 {
		return p
	}
	shift := viewStep * float64(views) / 10
	adjusted := Params{
		K1: math.Max(0, p.K1-shift),
		B:  math.Min(1, p.B+shift),
	}
	return adjusted
}

// Index is an immutable BM25 index over one corpus.
type Index struct {
	store      *corpus.Store
	normalizer *tokenizer.Normalizer
	stats      *index.Statistics
	params     Params
}

// Build normalizes every document and computes the corpus statistics. It
// fails with ErrNoDocuments on an empty store.
func Build(store *corpus.Store, normalizer *tokenizer.Normalizer, params Params) (*Index, error) {
	if store.Len() == 0 {
		return nil, apperrors.ErrNoDocuments
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	docs := make([][]string, store.Len())
	for pos := range docs {
		d := store.At(pos)
		tokens, err := normalizer.Tokens(d.OriginalText, tokenizer.ModeDocument)
		if err != nil {
			return nil, fmt.Errorf("bm25: normalizing %s: %w", d.DocID, err)
		}
		docs[pos] = tokens
	}
	stats, err := index.Build(docs)
	if err != nil {
		return nil, fmt.Errorf("bm25: %w", err)
	}
	return &Index{
		store:      store,
		normalizer: normalizer,
		stats:      stats,
		params:     params,
	}, nil
}

// Params returns the default parameters the index was built with.
func (ix *Index) Params() Params {
	return ix.params
}

// Statistics exposes the underlying corpus statistics.
func (ix *Index) Statistics() *index.Statistics {
	return ix.stats
}

// IDF is ln((N - df + 0.5)/(df + 0.5) + 1).
func (ix *Index) IDF(term string) float64 {
	n := float64(ix.stats.DocumentCount())
	df := float64(ix.stats.DocFrequency(term))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// termWeight is the saturated, length-normalized term frequency.
func termWeight(tf, docLen, avgDocLen float64, p Params) float64 {
	if tf == 0 {
		return 0
	}
	lengthRatio := 0.0
	if avgDocLen > 0 {
		lengthRatio = docLen / avgDocLen
	}
	return tf * (p.K1 + 1) / (tf + p.K1*(1-p.B+p.B*lengthRatio))
}

// Score is the BM25 score of the document at pos. Query tokens outside the
// vocabulary contribute nothing.
func (ix *Index) Score(queryTokens []string, pos int, p Params) float64 {
	docLen := float64(ix.stats.DocLength(pos))
	avg := ix.stats.AvgDocLength()
	score := 0.0
	for _, term := range queryTokens {
		if !ix.stats.Contains(term) {
			continue
		}
		tf := float64(ix.stats.TermFrequency(term, pos))
		score += ix.IDF(term) * termWeight(tf, docLen, avg, p)
	}
	return score
}

// Rank scores every document for queryTokens and keeps those with a
// positive score, best first.
func (ix *Index) Rank(queryTokens []string, p Params) []ranker.ScoredDoc {
	scores := make([]float64, ix.stats.DocumentCount())
	avg := ix.stats.AvgDocLength()
	for _, term := range queryTokens {
		if !ix.stats.Contains(term) {
			continue
		}
		idf := ix.IDF(term)
		for _, posting := range ix.stats.Postings(term) {
			docLen := float64(ix.stats.DocLength(posting.Position))
			scores[posting.Position] += idf * termWeight(float64(posting.Frequency), docLen, avg, p)
		}
	}
	docs := make([]ranker.ScoredDoc, 0, len(scores))
	for pos, score := range scores {
		if score > 0 {
			docs = append(docs, ranker.ScoredDoc{
				DocID:    ix.store.At(pos).DocID,
				Score:    score,
				Position: pos,
			})
		}
	}
	ranker.Sort(docs)
	return docs
}

// SearchOptions tune a single search.
type SearchOptions struct {
	// Params overrides the index defaults for this call only.
	Params *Params
}

// Search normalizes query and ranks the corpus against it.
func (ix *Index) Search(query string, opts SearchOptions) (ranker.Result, error) {
	groups, err := ix.normalizer.Normalize(query, tokenizer.ModeQuery)
	if err != nil {
		return ranker.Result{}, err
	}
	params := ix.params
	if opts.Params != nil {
		if err := opts.Params.Validate(); err != nil {
			return ranker.Result{}, err
		}
		params = *opts.Params
	}
	terms := tokenizer.Flatten(groups)
	return ranker.Result{
		Model: ranker.ModelBM25,
		Terms: terms,
		Docs:  ix.Rank(terms, params),
	}, nil
}

// Scorer owns the current BM25 index of a single corpus and swaps it
// atomically on rebuild.
type Scorer struct {
	holder scoring.Holder[Index]
	params Params
}

func NewScorer(params Params) *Scorer {
	return &Scorer{params: params}
}

// BuildIndex replaces the current index with one built from store.
func (s *Scorer) BuildIndex(store *corpus.Store, normalizer *tokenizer.Normalizer) error {
	_, err := s.holder.Rebuild(func() (*Index, error) {
		return Build(store, normalizer, s.params)
	})
	return err
}

// Index returns the current index or ErrIndexNotBuilt.
func (s *Scorer) Index() (*Index, error) {
	return s.holder.Load()
}

// Search runs query against the current index.
func (s *Scorer) Search(query string, opts SearchOptions) (ranker.Result, error) {
	ix, err := s.holder.Load()
	if err != nil {
		return ranker.Result{}, err
	}
	return ix.Search(query, opts)
}
