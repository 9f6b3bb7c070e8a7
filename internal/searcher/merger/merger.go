// Package merger fuses the ranked lists of the individual models into one
// record per document and provides ranked views over the fused records.
package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/snippet"
)

// Record is one document's fused result. A score is 0 when the model did
// not return the document.
type Record struct {
	DocID        string       `json:"doc_id"`
	FileName     string       `json:"file_name"`
	Path         string       `json:"path"`
	Extension    string       `json:"extension,omitempty"`
	Author       string       `json:"author,omitempty"`
	Bibliography string       `json:"bibliography,omitempty"`
	Caption      string       `json:"caption,omitempty"`
	PageURL      string       `json:"page_url,omitempty"`
	Snippet      string       `json:"snippet"`
	VSMScore     float64      `json:"vsm_score"`
	BM25Score    float64      `json:"bm25_score"`
	LMScore      float64      `json:"lm_score"`
	Source       ranker.Model `json:"source"`
	Position     int          `json:"-"`
}

// Combined is the sum of the three model scores.
func (r Record) Combined() float64 {
	return r.VSMScore + r.BM25Score + r.LMScore
}

// Score returns the record's score under model; ModelFused is Combined.
func (r Record) Score(model ranker.Model) float64 {
	switch model {
	case ranker.ModelVSM:
		return r.VSMScore
	case ranker.ModelBM25:
		return r.BM25Score
	case ranker.ModelLM:
		return r.LMScore
	default:
		return r.Combined()
	}
}

func (r *Record) setScore(model ranker.Model, score float64) {
	switch model {
	case ranker.ModelVSM:
		r.VSMScore = score
	case ranker.ModelBM25:
		r.BM25Score = score
	case ranker.ModelLM:
		r.LMScore = score
	}
}

// Fuse unions the documents of results in argument order. Snippets are cut
// around the literal query words, never the normalized or expanded terms
// a model scored with. Records are returned in first-appearance order.
func Fuse(store *corpus.Store, window int, words []string, results ...ranker.Result) []Record {
	byID := make(map[string]int)
	var records []Record
	for _, res := range results {
		for _, d := range res.Docs {
			if i, ok := byID[d.DocID]; ok {
				records[i].setScore(res.Model, d.Score)
				continue
			}
			doc, err := store.Get(d.DocID)
			if err != nil {
				continue
			}
			rec := Record{
				DocID:        doc.DocID,
				FileName:     doc.FileName,
				Path:         doc.Path,
				Extension:    doc.Extension,
				Author:       doc.Author,
				Bibliography: doc.Bibliography,
				Caption:      doc.Caption,
				PageURL:      doc.PageURL,
				Snippet:      snippet.Extract(doc.OriginalText, words, window),
				Source:       res.Model,
				Position:     d.Position,
			}
			rec.setScore(res.Model, d.Score)
			byID[d.DocID] = len(records)
			records = append(records, rec)
		}
	}
	return records
}

// Sort orders records by their score under model, descending, with ties
// in corpus order. The slice is sorted in place.
func Sort(records []Record, model ranker.Model) {
	sort.SliceStable(records, func(i, j int) bool {
		return before(records[i], records[j], model)
	})
}

func before(a, b Record, model ranker.Model) bool {
	sa, sb := a.Score(model), b.Score(model)
	if sa != sb {
		return sa > sb
	}
	return a.Position < b.Position
}

// TopK returns the k best records under model without sorting the whole
// input. k <= 0 defaults to 10.
func TopK(records []Record, k int, model ranker.Model) []Record {
	if k <= 0 {
		k = 10
	}
	h := &recordHeap{model: model}
	heap.Init(h)
	for _, rec := range records {
		heap.Push(h, rec)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	result := make([]Record, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Record)
	}
	return result
}

// Page returns the 1-based page of size records. Pages past the end are
// empty.
func Page(records []Record, page, size int) []Record {
	if page < 1 || size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(records) {
		return []Record{}
	}
	return records[start:min(len(records), start+size)]
}

// recordHeap is a min-heap on rank, so the worst kept record is on top.
type recordHeap struct {
	items []Record
	model ranker.Model
}

func (h recordHeap) Len() int { return len(h.items) }

func (h recordHeap) Less(i, j int) bool {
	return before(h.items[j], h.items[i], h.model)
}

func (h recordHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *recordHeap) Push(x interface{}) {
	h.items = append(h.items, x.(Record))
}

func (h *recordHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
