// Package ranker holds the ranked-list type every scoring model returns and
// the ordering rules they share: score descending, ties in corpus order.
package ranker

import (
	"sort"
)

// Model names the scorer that produced a ranked list.
type Model string

const (
	ModelBM25  Model = "bm25"
	ModelLM    Model = "lm"
	ModelVSM   Model = "vsm"
	ModelFused Model = "fused"
)

// ScoredDoc is one document's score for one query under one model.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	// Position is the document's corpus position, the tie-breaker.
	Position int `json:"-"`
}

// Sort orders docs by score descending. Equal scores keep corpus order.
func Sort(docs []ScoredDoc) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Position < docs[j].Position
	})
}

// KeepPositive drops every doc whose score is not strictly positive. The
// input slice is reused.
func KeepPositive(docs []ScoredDoc) []ScoredDoc {
	kept := docs[:0]
	for _, d := range docs {
		if d.Score > 0 {
			kept = append(kept, d)
		}
	}
	return kept
}

// Truncate returns at most limit docs; limit <= 0 keeps everything.
func Truncate(docs []ScoredDoc, limit int) []ScoredDoc {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}

// Before reports whether a ranks ahead of b.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}

// Result is one model's ranked answer to one query.
type Result struct {
	Model Model
	// Terms are the normalized query tokens the model scored with.
	Terms []string
	Docs  []ScoredDoc
}
