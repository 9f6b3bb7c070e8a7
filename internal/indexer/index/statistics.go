// Package index computes the corpus statistics shared by the BM25 and
// language model scorers: postings, document lengths, document and
// collection frequencies. A Statistics value is built in one pass and is
// read-only afterwards, so it can be shared across concurrent searches.
package index

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

type Statistics struct {
	postings     map[string]PostingList
	cf           map[string]int
	docTerms     []map[string]int
	docLengths   []int
	totalTerms   int
	avgDocLength float64
}

// Build indexes the token stream of every document, where docs[i] belongs
// to the document at corpus position i. It fails with ErrNoDocuments on an
// empty corpus and with ErrEmptyInput when no document has any token.
func Build(docs [][]string) (*Statistics, error) {
	if len(docs) == 0 {
		return nil, apperrors.ErrNoDocuments
	}
	s := &Statistics{
		postings:   make(map[string]PostingList),
		cf:         make(map[string]int),
		docTerms:   make([]map[string]int, len(docs)),
		docLengths: make([]int, len(docs)),
	}
	for pos, tokens := range docs {
		termData := make(map[string]*Posting)
		order := make([]string, 0, len(tokens))
		for offset, term := range tokens {
			p, exists := termData[term]
			if !exists {
				p = &Posting{
					Position: pos,
					Offsets:  make([]int, 0, 4),
				}
				termData[term] = p
				order = append(order, term)
			}
			p.Frequency++
			p.Offsets = append(p.Offsets, offset)
		}

		tf := make(map[string]int, len(termData))
		for _, term := range order {
			posting := termData[term]
			tf[term] = posting.Frequency
			s.postings[term] = append(s.postings[term], *posting)
			s.cf[term] += posting.Frequency
		}
		s.docTerms[pos] = tf
		s.docLengths[pos] = len(tokens)
		s.totalTerms += len(tokens)
	}
	if s.totalTerms == 0 {
		return nil, fmt.Errorf("%w: no document produced any token", apperrors.ErrEmptyInput)
	}
	s.avgDocLength = float64(s.totalTerms) / float64(len(docs))
	return s, nil
}

// DocumentCount is N, the number of documents.
func (s *Statistics) DocumentCount() int {
	return len(s.docLengths)
}

// DocLength is the token count of the document at pos.
func (s *Statistics) DocLength(pos int) int {
	return s.docLengths[pos]
}

// DocLengths returns a copy of every document length in corpus order.
func (s *Statistics) DocLengths() []int {
	out := make([]int, len(s.docLengths))
	copy(out, s.docLengths)
	return out
}

func (s *Statistics) AvgDocLength() float64 {
	return s.avgDocLength
}

// TotalTerms is the number of tokens in the collection.
func (s *Statistics) TotalTerms() int {
	return s.totalTerms
}

// DocFrequency is the number of documents containing term.
func (s *Statistics) DocFrequency(term string) int {
	return len(s.postings[term])
}

// CollectionFrequency is the number of occurrences of term in the corpus.
func (s *Statistics) CollectionFrequency(term string) int {
	return s.cf[term]
}

// CollectionProbability is cf(term)/total terms, or 0 for unseen terms.
func (s *Statistics) CollectionProbability(term string) float64 {
	cf, ok := s.cf[term]
	if !ok {
		return 0
	}
	return float64(cf) / float64(s.totalTerms)
}

// TermFrequency is the number of occurrences of term in the document at pos.
func (s *Statistics) TermFrequency(term string, pos int) int {
	return s.docTerms[pos][term]
}

// Contains reports whether term is in the vocabulary.
func (s *Statistics) Contains(term string) bool {
	_, ok := s.cf[term]
	return ok
}

// Postings returns the postings of term ordered by corpus position. The
// slice is shared and must not be modified.
func (s *Statistics) Postings(term string) PostingList {
	return s.postings[term]
}

func (s *Statistics) VocabularySize() int {
	return len(s.cf)
}

// Vocabulary returns every term in lexical order.
func (s *Statistics) Vocabulary() []string {
	terms := make([]string, 0, len(s.cf))
	for term := range s.cf {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// DocStats summarizes the document at pos.
func (s *Statistics) DocStats(pos int) DocStats {
	return DocStats{
		Position:    pos,
		Length:      s.docLengths[pos],
		UniqueTerms: len(s.docTerms[pos]),
	}
}

// Snapshot returns the full term table in lexical order.
func (s *Statistics) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(s.postings))
	for _, term := range s.Vocabulary() {
		postings := make(PostingList, len(s.postings[term]))
		copy(postings, s.postings[term])
		entries = append(entries, TermEntry{
			Term:                term,
			DocFrequency:        len(postings),
			CollectionFrequency: s.cf[term],
			Postings:            postings,
		})
	}
	return entries
}
