package tokenizer

import (
	"math"
	"sort"
	"strings"
)

// CooccurrenceModel finds distributional neighbours of a word in a corpus:
// words whose document sets overlap most with the word's own, measured by
// cosine similarity over binary document vectors. It is built once per
// corpus and is read-only afterwards.
type CooccurrenceModel struct {
	docWords      [][]string
	wordDocs      map[string][]int
	minSimilarity float64
	minSupport    int
}

// CooccurrenceOptions tunes neighbour selection.
type CooccurrenceOptions struct {
	// MinSimilarity is the lowest cosine a neighbour may have.
	MinSimilarity float64
	// MinSupport is the lowest number of shared documents.
	MinSupport int
}

// DefaultCooccurrenceOptions are used when zero options are passed.
var DefaultCooccurrenceOptions = CooccurrenceOptions{MinSimilarity: 0.6, MinSupport: 2}

// NewCooccurrenceModel indexes the lowercased, stopword-free words of every
// text.
func NewCooccurrenceModel(texts []string, opts CooccurrenceOptions) (*CooccurrenceModel, error) {
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultCooccurrenceOptions.MinSimilarity
	}
	if opts.MinSupport <= 0 {
		opts.MinSupport = DefaultCooccurrenceOptions.MinSupport
	}
	m := &CooccurrenceModel{
		docWords:      make([][]string, len(texts)),
		wordDocs:      make(map[string][]int),
		minSimilarity: opts.MinSimilarity,
		minSupport:    opts.MinSupport,
	}
	for i, text := range texts {
		words, err := Words(strings.ToLower(text))
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(words))
		for _, w := range words {
			if _, dup := seen[w]; dup || IsStopword(w) || len(w) < 3 {
				continue
			}
			seen[w] = struct{}{}
			m.docWords[i] = append(m.docWords[i], w)
			m.wordDocs[w] = append(m.wordDocs[w], i)
		}
	}
	return m, nil
}

type neighbour struct {
	word       string
	similarity float64
	df         int
}

// Synonyms returns up to limit neighbours of word, most similar first; ties
// prefer the more frequent word and then lexical order.
func (m *CooccurrenceModel) Synonyms(word string, limit int) []string {
	docs := m.wordDocs[word]
	if len(docs) < m.minSupport || limit == 0 {
		return nil
	}
	shared := make(map[string]int)
	for _, d := range docs {
		for _, w := range m.docWords[d] {
			if w != word {
				shared[w]++
			}
		}
	}
	candidates := make([]neighbour, 0, len(shared))
	for w, n := range shared {
		if n < m.minSupport {
			continue
		}
		df := len(m.wordDocs[w])
		sim := float64(n) / math.Sqrt(float64(len(docs))*float64(df))
		if sim >= m.minSimilarity {
			candidates = append(candidates, neighbour{word: w, similarity: sim, df: df})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		if a.df != b.df {
			return a.df > b.df
		}
		return a.word < b.word
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.word
	}
	return out
}

// Vocabulary reports how many distinct words the model indexed.
func (m *CooccurrenceModel) Vocabulary() int {
	return len(m.wordDocs)
}
