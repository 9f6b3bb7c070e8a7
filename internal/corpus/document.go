// Package corpus holds the immutable document collection the scoring models
// are built from, and the loaders that produce it from a folder of text
// files, a crawler dump or a PostgreSQL table.
package corpus

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// Document is a single retrievable unit. It is never modified after it is
// added to a Store; model-specific derived text lives in each model's index.
type Document struct {
	DocID        string   `json:"doc_id"`
	FileName     string   `json:"file_name"`
	Path         string   `json:"path"`
	OriginalText string   `json:"original_text"`
	Extension    string   `json:"extension"`
	Author       string   `json:"author,omitempty"`
	Bibliography string   `json:"bibliography,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Caption      string   `json:"caption,omitempty"`
	AltText      string   `json:"alt_text,omitempty"`
	PageURL      string   `json:"page_url,omitempty"`
}

// Query is one information need. Results are filled in by batch runs.
type Query struct {
	ID      string   `json:"query_id"`
	Text    string   `json:"query_text"`
	Results []string `json:"results,omitempty"`
}

// Store is an ordered, immutable document collection. Position in the
// store is the corpus order used to break score ties.
type Store struct {
	docs  []Document
	byID  map[string]int
	bytes int64
}

// NewStore validates docs and freezes them in the given order. It rejects
// empty ids, duplicate ids and documents without text.
func NewStore(docs []Document) (*Store, error) {
	s := &Store{
		docs: make([]Document, len(docs)),
		byID: make(map[string]int, len(docs)),
	}
	for i, d := range docs {
		if d.DocID == "" {
			return nil, fmt.Errorf("%w: document at position %d has no id", apperrors.ErrInvalidInput, i)
		}
		if strings.TrimSpace(d.OriginalText) == "" {
			return nil, fmt.Errorf("%w: document %q has no text", apperrors.ErrInvalidInput, d.DocID)
		}
		if prev, dup := s.byID[d.DocID]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q at positions %d and %d",
				apperrors.ErrInvalidInput, d.DocID, prev, i)
		}
		d.Categories = append([]string(nil), d.Categories...)
		s.docs[i] = d
		s.byID[d.DocID] = i
		s.bytes += int64(len(d.OriginalText))
	}
	return s, nil
}

// Len returns the number of documents.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.docs)
}

// At returns the document at corpus position pos.
func (s *Store) At(pos int) Document {
	return s.docs[pos]
}

// Position returns the corpus position of docID.
func (s *Store) Position(docID string) (int, bool) {
	pos, ok := s.byID[docID]
	return pos, ok
}

// Get returns the document with the given id.
func (s *Store) Get(docID string) (Document, error) {
	pos, ok := s.byID[docID]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	}
	return s.docs[pos], nil
}

// Texts returns the original text of every document in corpus order.
func (s *Store) Texts() []string {
	out := make([]string, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.OriginalText
	}
	return out
}

// Documents returns a copy of the documents in corpus order.
func (s *Store) Documents() []Document {
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// TextBytes is the total size of all original texts.
func (s *Store) TextBytes() int64 {
	return s.bytes
}
