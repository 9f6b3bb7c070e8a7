// Package vsm implements the vector space scorer: TF-IDF rows scaled by
// term discrimination weights (EVSM) and projected into a latent space
// with a truncated SVD (LSA). Queries are ranked by cosine similarity.
package vsm

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// Granularity selects what a matrix row represents.
type Granularity string

const (
	GranularityDocument Granularity = "document"
	GranularitySentence Granularity = "sentence"
)

const (
	DefaultComponents      = 100
	DefaultShortQueryBoost = 1.5
	DefaultShortQueryTerms = 3
)

type Config struct {
	Components  int         `json:"components"`
	Granularity Granularity `json:"granularity"`
	// ShortQueryBoost scales queries with at most ShortQueryTerms words.
	ShortQueryBoost float64 `json:"short_query_boost"`
	ShortQueryTerms int     `json:"short_query_terms"`
}

func DefaultConfig() Config {
	return Config{
		Components:      DefaultComponents,
		Granularity:     GranularityDocument,
		ShortQueryBoost: DefaultShortQueryBoost,
		ShortQueryTerms: DefaultShortQueryTerms,
	}
}

func (c Config) Validate() error {
	switch c.Granularity {
	case GranularityDocument, GranularitySentence:
	default:
		return fmt.Errorf("%w: unknown vsm granularity %q", apperrors.ErrInvalidInput, c.Granularity)
	}
	if c.Components < 1 {
		return fmt.Errorf("%w: vsm components must be at least 1, got %d", apperrors.ErrDimensionality, c.Components)
	}
	if !(c.ShortQueryBoost > 0) {
		return fmt.Errorf("%w: vsm short query boost must be positive", apperrors.ErrInvalidInput)
	}
	if c.ShortQueryTerms < 0 {
		return fmt.Errorf("%w: vsm short query terms must not be negative", apperrors.ErrInvalidInput)
	}
	return nil
}

// Index is an immutable fitted vector space model.
type Index struct {
	store      *corpus.Store
	normalizer *tokenizer.Normalizer
	cfg        Config

	// rowDoc maps a matrix row to its document position.
	rowDoc []int
	// column maps a vocabulary term to its matrix column.
	column map[string]int
	idf    []float64
	tdw    []float64
	// basis holds the top right singular vectors, vocab x components.
	basis *mat.Dense
	// latent holds every row projected onto basis, rows x components.
	latent    *mat.Dense
	rowNorms  []float64
	singulars []float64
}

// Build fits the model over store. It fails with ErrNoDocuments on an empty
// store, ErrEmptyInput when no row has a token and ErrDimensionality when
// the component count exceeds the document count or the matrix rank.
func Build(store *corpus.Store, normalizer *tokenizer.Normalizer, cfg Config) (*Index, error) {
	if store.Len() == 0 {
		return nil, apperrors.ErrNoDocuments
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rows, rowDoc, err := tokenizeRows(store, normalizer, cfg.Granularity)
	if err != nil {
		return nil, err
	}
	stats, err := index.Build(rows)
	if err != nil {
		return nil, fmt.Errorf("vsm: %w", err)
	}

	vocab := stats.Vocabulary()
	nRows, nCols := len(rows), len(vocab)
	// Sentence rows never raise the limit above the document count.
	if limit := min(store.Len(), nRows, nCols); cfg.Components > limit {
		return nil, fmt.Errorf("%w: %d components requested, %d documents and a %dx%d matrix",
			apperrors.ErrDimensionality, cfg.Components, store.Len(), nRows, nCols)
	}

	ix := &Index{
		store:      store,
		normalizer: normalizer,
		cfg:        cfg,
		rowDoc:     rowDoc,
		column:     make(map[string]int, nCols),
		idf:        make([]float64, nCols),
	}
	n := float64(nRows)
	for j, term := range vocab {
		ix.column[term] = j
		ix.idf[j] = math.Log((1+n)/(1+float64(stats.DocFrequency(term)))) + 1
	}

	weights := mat.NewDense(nRows, nCols, nil)
	for i, tokens := range rows {
		ix.fillRow(weights.RawRowView(i), tokens)
	}
	ix.tdw = discriminationWeights(weights)
	for i := 0; i < nRows; i++ {
		floats.Mul(weights.RawRowView(i), ix.tdw)
	}

	if err := ix.fitLSA(weights); err != nil {
		return nil, err
	}
	return ix, nil
}

func tokenizeRows(store *corpus.Store, normalizer *tokenizer.Normalizer, g Granularity) ([][]string, []int, error) {
	var (
		rows   [][]string
		rowDoc []int
	)
	for pos := 0; pos < store.Len(); pos++ {
		d := store.At(pos)
		if g == GranularityDocument {
			tokens, err := normalizer.Tokens(d.OriginalText, tokenizer.ModeDocument)
			if err != nil {
				return nil, nil, fmt.Errorf("vsm: normalizing %s: %w", d.DocID, err)
			}
			rows = append(rows, tokens)
			rowDoc = append(rowDoc, pos)
			continue
		}
		sentences, err := normalizer.Sentences(d.OriginalText, tokenizer.ModeDocument)
		if err != nil {
			return nil, nil, fmt.Errorf("vsm: normalizing %s: %w", d.DocID, err)
		}
		if len(sentences) == 0 {
			// Keep the document addressable even when nothing survived.
			rows = append(rows, nil)
			rowDoc = append(rowDoc, pos)
			continue
		}
		for _, groups := range sentences {
			rows = append(rows, tokenizer.Flatten(groups))
			rowDoc = append(rowDoc, pos)
		}
	}
	return rows, rowDoc, nil
}

// fillRow writes the L2-normalized TF-IDF weights of tokens into dst.
// Tokens outside the vocabulary are ignored.
func (ix *Index) fillRow(dst []float64, tokens []string) {
	counts := make(map[int]int, len(tokens))
	for _, t := range tokens {
		if j, ok := ix.column[t]; ok {
			counts[j]++
		}
	}
	for j, tf := range counts {
		dst[j] = (1 + math.Log(float64(tf))) * ix.idf[j]
	}
	if norm := floats.Norm(dst, 2); norm > 0 {
		floats.Scale(1/norm, dst)
	}
}

// discriminationWeights is the square root of each column's population
// variance.
func discriminationWeights(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	tdw := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean := floats.Sum(col) / float64(rows)
		var ss float64
		for _, v := range col {
			d := v - mean
			ss += d * d
		}
		tdw[j] = math.Sqrt(ss / float64(rows))
	}
	return tdw
}

func (ix *Index) fitLSA(evsm *mat.Dense) error {
	var svd mat.SVD
	if ok := svd.Factorize(evsm, mat.SVDThin); !ok {
		return fmt.Errorf("%w: singular value decomposition did not converge", apperrors.ErrDimensionality)
	}
	var v mat.Dense
	svd.VTo(&v)
	cols, _ := v.Dims()
	k := ix.cfg.Components
	ix.basis = mat.DenseCopyOf(v.Slice(0, cols, 0, k))
	ix.singulars = svd.Values(nil)[:k]

	rows, _ := evsm.Dims()
	ix.latent = mat.NewDense(rows, k, nil)
	ix.latent.Mul(evsm, ix.basis)
	ix.rowNorms = make([]float64, rows)
	for i := range ix.rowNorms {
		ix.rowNorms[i] = floats.Norm(ix.latent.RawRowView(i), 2)
	}
	return nil
}

func (ix *Index) Config() Config {
	return ix.cfg
}

// Rows is the number of matrix rows, one per document or sentence.
func (ix *Index) Rows() int {
	return len(ix.rowDoc)
}

func (ix *Index) VocabularySize() int {
	return len(ix.column)
}

// SingularValues returns the retained singular values, largest first.
func (ix *Index) SingularValues() []float64 {
	return append([]float64(nil), ix.singulars...)
}

// TermWeight is the discrimination weight of term, 0 when unknown.
func (ix *Index) TermWeight(term string) float64 {
	if j, ok := ix.column[term]; ok {
		return ix.tdw[j]
	}
	return 0
}

// Project maps normalized query tokens into the latent space. words is the
// raw query length used for the short-query boost.
func (ix *Index) Project(tokens []string, words int) []float64 {
	q := make([]float64, len(ix.column))
	ix.fillRow(q, tokens)
	boost := 1.0
	if words <= ix.cfg.ShortQueryTerms {
		boost = ix.cfg.ShortQueryBoost
	}
	for j := range q {
		q[j] *= ix.tdw[j] * boost
	}
	out := mat.NewVecDense(ix.cfg.Components, nil)
	out.MulVec(ix.basis.T(), mat.NewVecDense(len(q), q))
	return out.RawVector().Data
}

// Rank scores every row against the latent query vector, keeps positive
// similarities and returns the best row per document.
func (ix *Index) Rank(query []float64) []ranker.ScoredDoc {
	qNorm := floats.Norm(query, 2)
	if qNorm == 0 {
		return nil
	}
	best := make(map[int]float64)
	for i, pos := range ix.rowDoc {
		if ix.rowNorms[i] == 0 {
			continue
		}
		sim := floats.Dot(query, ix.latent.RawRowView(i)) / (qNorm * ix.rowNorms[i])
		if sim <= 0 {
			continue
		}
		if cur, ok := best[pos]; !ok || sim > cur {
			best[pos] = sim
		}
	}
	docs := make([]ranker.ScoredDoc, 0, len(best))
	for pos, sim := range best {
		docs = append(docs, ranker.ScoredDoc{
			DocID:    ix.store.At(pos).DocID,
			Score:    sim,
			Position: pos,
		})
	}
	ranker.Sort(docs)
	return docs
}

// Search normalizes query, projects it with the fitted basis and ranks
// the corpus by cosine similarity.
func (ix *Index) Search(query string) (ranker.Result, error) {
	tokens, err := ix.normalizer.Tokens(query, tokenizer.ModeQuery)
	if err != nil {
		return ranker.Result{}, err
	}
	return ranker.Result{
		Model: ranker.ModelVSM,
		Terms: tokens,
		Docs:  ix.Rank(ix.Project(tokens, len(strings.Fields(query)))),
	}, nil
}

// Scorer owns the current vector space index and swaps it atomically.
type Scorer struct {
	holder scoring.Holder[Index]
	cfg    Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) BuildIndex(store *corpus.Store, normalizer *tokenizer.Normalizer) error {
	_, err := s.holder.Rebuild(func() (*Index, error) {
		return Build(store, normalizer, s.cfg)
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
