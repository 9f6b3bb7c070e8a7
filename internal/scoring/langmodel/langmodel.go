// Package langmodel implements query likelihood retrieval with a
// Dirichlet-smoothed unigram language model per document.
package langmodel

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
	DefaultMu = 2000
	// DefaultEpsilon is the collection probability assumed for unseen
	// terms.
	DefaultEpsilon = 1e-10
)

type Params struct {
	Mu      float64 `json:"mu"`
	Epsilon float64 `json:"epsilon"`
}

func DefaultParams() Params {
	return Params{Mu: DefaultMu, Epsilon: DefaultEpsilon}
}

func (p Params) Validate() error {
	if !(p.Mu > 0) {
		return fmt.Errorf("%w: lm mu must be positive, got %v", apperrors.ErrInvalidInput, p.Mu)
	}
	if !(p.Epsilon > 0) || p.Epsilon >= 1 {
		return fmt.Errorf("%w: lm epsilon must be within (0,1), got %v", apperrors.ErrInvalidInput, p.Epsilon)
	}
	return nil
}

// Index is an immutable language model index.
type Index struct {
	store      *corpus.Store
	normalizer *tokenizer.Normalizer
	stats      *index.Statistics
	params     Params
}

// Build normalizes every document and computes collection statistics.
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
			return nil, fmt.Errorf("lm: normalizing %s: %w", d.DocID, err)
		}
		docs[pos] = tokens
	}
	stats, err := index.Build(docs)
	if err != nil {
		return nil, fmt.Errorf("lm: %w", err)
	}
	return &Index{
		store:      store,
		normalizer: normalizer,
		stats:      stats,
		params:     params,
	}, nil
}

func (ix *Index) Params() Params {
	return ix.params
}

func (ix *Index) Statistics() *index.Statistics {
	return ix.stats
}

// CollectionProbability is P(t|C), floored at epsilon for unseen terms.
func (ix *Index) CollectionProbability(term string) float64 {
	if p := ix.stats.CollectionProbability(term); p > 0 {
		return p
	}
	return ix.params.Epsilon
}

// TermProbability is the smoothed P(t|d) for the document at pos.
func (ix *Index) TermProbability(term string, pos int) float64 {
	tf := float64(ix.stats.TermFrequency(term, pos))
	docLen := float64(ix.stats.DocLength(pos))
	mu := ix.params.Mu
	return (tf + mu*ix.CollectionProbability(term)) / (docLen + mu)
}

// Score is the query log likelihood of the document at pos.
func (ix *Index) Score(queryTokens []string, pos int) float64 {
	score := 0.0
	for _, term := range queryTokens {
		score += math.Log(ix.TermProbability(term, pos))
	}
	return score
}

// Rank scores every document. Log likelihoods are negative, so no document
// is filtered out.
func (ix *Index) Rank(queryTokens []string) []ranker.ScoredDoc {
	docs := make([]ranker.ScoredDoc, ix.stats.DocumentCount())
	for pos := range docs {
		docs[pos] = ranker.ScoredDoc{
			DocID:    ix.store.At(pos).DocID,
			Score:    ix.Score(queryTokens, pos),
			Position: pos,
		}
	}
	ranker.Sort(docs)
	return docs
}

// Search normalizes query and ranks every document.
func (ix *Index) Search(query string) (ranker.Result, error) {
	tokens, err := ix.normalizer.Tokens(query, tokenizer.ModeQuery)
	if err != nil {
		return ranker.Result{}, err
	}
	return ranker.Result{
		Model: ranker.ModelLM,
		Terms: tokens,
		Docs:  ix.Rank(tokens),
	}, nil
}

// Diagnostics describe how hard a query is for this collection.
type Diagnostics struct {
	// Entropy is the mean of -log2 P(t|C) over the query tokens.
	Entropy float64 `json:"entropy"`
	// Coverage is the fraction of query tokens found in the vocabulary.
	Coverage float64 `json:"coverage"`
	Tokens   int     `json:"tokens"`
}

// Diagnose computes query difficulty diagnostics for normalized tokens.
func (ix *Index) Diagnose(tokens []string) Diagnostics {
	if len(tokens) == 0 {
		return Diagnostics{}
	}
	var entropy float64
	known := 0
	for _, term := range tokens {
		entropy += -math.Log2(ix.CollectionProbability(term))
		if ix.stats.Contains(term) {
			known++
		}
	}
	n := float64(len(tokens))
	return Diagnostics{
		Entropy:  entropy / n,
		Coverage: float64(known) / n,
		Tokens:   len(tokens),
	}
}

// DiagnoseQuery normalizes query and diagnoses it.
func (ix *Index) DiagnoseQuery(query string) (Diagnostics, error) {
	tokens, err := ix.normalizer.Tokens(query, tokenizer.ModeQuery)
	if err != nil {
		return Diagnostics{}, err
	}
	return ix.Diagnose(tokens), nil
}

// Scorer owns the current language model index and swaps it atomically.
type Scorer struct {
	holder scoring.Holder[Index]
	params Params
}

func NewScorer(params Params) *Scorer {
	return &Scorer{params: params}
}

func (s *Scorer) BuildIndex(store *corpus.Store, normalizer *tokenizer.Normalizer) error {
	_, err := s.holder.Rebuild(func() (*Index, error) {
		return Build(store, normalizer, s.params)
	})
	return err
}

func (s *Scorer) Index() (*Index, error) {
	return s.holder.Load()
}

func (s *Scorer) Search(query string) (ranker.Result, error) {
	ix, err := s.holder.Load()
	if err != nil {
		return ranker.Result{}, err
	}
	return ix.Search(query)
}
