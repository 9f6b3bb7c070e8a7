package merger

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/snippet"
)

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.NewStore([]corpus.Document{
		{DocID: "a.txt", FileName: "a.txt", OriginalText: "the cat sat on the mat"},
		{DocID: "b.txt", FileName: "b.txt", OriginalText: "a dog ran in the park"},
		{DocID: "c.txt", FileName: "c.txt", OriginalText: "cats and dogs together"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func sampleResults() (vsm, bm25, lm ranker.Result) {
	vsm = ranker.Result{Model: ranker.ModelVSM, Terms: []string{"cat"}, Docs: []ranker.ScoredDoc{
		{DocID: "a.txt", Score: 0.9, Position: 0},
	}}
	bm25 = ranker.Result{Model: ranker.ModelBM25, Terms: []string{"dog"}, Docs: []ranker.ScoredDoc{
		{DocID: "b.txt", Score: 1.2, Position: 1},
		{DocID: "a.txt", Score: 0.4, Position: 0},
	}}
	lm = ranker.Result{Model: ranker.ModelLM, Terms: []string{"cats"}, Docs: []ranker.ScoredDoc{
		{DocID: "c.txt", Score: -3, Position: 2},
		{DocID: "a.txt", Score: -4, Position: 0},
		{DocID: "b.txt", Score: -5, Position: 1},
	}}
	return vsm, bm25, lm
}

func TestFuse(t *testing.T) {
	store := testStore(t)
	vsm, bm25, lm := sampleResults()
	records := Fuse(store, snippet.DefaultWindow, []string{"cat", "dog"}, vsm, bm25, lm)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	order := []string{"a.txt", "b.txt", "c.txt"}
	for i, id := range order {
		if records[i].DocID != id {
			t.Errorf("record %d = %s, want %s", i, records[i].DocID, id)
		}
	}
	a := records[0]
	if a.VSMScore != 0.9 || a.BM25Score != 0.4 || a.LMScore != -4 {
		t.Errorf("a.txt scores = %+v", a)
	}
	if a.Source != ranker.ModelVSM || a.Snippet != "the cat sat on the mat" {
		t.Errorf("a.txt source %s snippet %q", a.Source, a.Snippet)
	}
	b := records[1]
	if b.VSMScore != 0 || b.Source != ranker.ModelBM25 || b.Snippet != "a dog ran in the park" {
		t.Errorf("b.txt = %+v", b)
	}
	c := records[2]
	if c.VSMScore != 0 || c.BM25Score != 0 || c.LMScore != -3 {
		t.Errorf("c.txt scores = %+v", c)
	}
	if c.Snippet != snippet.NoMatch {
		t.Errorf("c.txt snippet %q, want no match for inflected words", c.Snippet)
	}
}

func TestFuseSnippetsUseLiteralWords(t *testing.T) {
	store := testStore(t)
	// The model scored with an expanded term the query never contained.
	res := ranker.Result{Model: ranker.ModelVSM, Terms: []string{"cat", "dogs"}, Docs: []ranker.ScoredDoc{
		{DocID: "c.txt", Score: 0.8, Position: 2},
		{DocID: "a.txt", Score: 0.5, Position: 0},
	}}
	records := Fuse(store, 30, []string{"cats"}, res)
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Snippet != "cats and dogs together" {
		t.Errorf("c.txt snippet %q", records[0].Snippet)
	}
	if records[1].Snippet != snippet.NoMatch {
		t.Errorf("a.txt snippet %q, want no match", records[1].Snippet)
	}
}

func TestFuseCommutative(t *testing.T) {
	store := testStore(t)
	vsm, bm25, lm := sampleResults()
	scores := func(records []Record) map[string][3]float64 {
		out := make(map[string][3]float64)
		for _, r := range records {
			out[r.DocID] = [3]float64{r.VSMScore, r.BM25Score, r.LMScore}
		}
		return out
	}
	want := scores(Fuse(store, 30, nil, vsm, bm25, lm))
	for _, perm := range [][]ranker.Result{
		{lm, bm25, vsm},
		{bm25, vsm, lm},
		{lm, vsm, bm25},
	} {
		got := scores(Fuse(store, 30, nil, perm...))
		if len(got) != len(want) {
			t.Fatalf("id sets differ: %v vs %v", got, want)
		}
		for id, s := range want {
			if got[id] != s {
				t.Errorf("%s: %v, want %v", id, got[id], s)
			}
		}
	}
}

func TestFuseSkipsUnknownDocuments(t *testing.T) {
	store := testStore(t)
	res := ranker.Result{Model: ranker.ModelBM25, Docs: []ranker.ScoredDoc{{DocID: "missing", Score: 1}}}
	if records := Fuse(store, 30, nil, res); len(records) != 0 {
		t.Errorf("got %+v", records)
	}
}

func TestSortAndTopK(t *testing.T) {
	store := testStore(t)
	vsm, bm25, lm := sampleResults()
	records := Fuse(store, 30, nil, vsm, bm25, lm)

	byBM25 := append([]Record(nil), records...)
	Sort(byBM25, ranker.ModelBM25)
	if byBM25[0].DocID != "b.txt" || byBM25[1].DocID != "a.txt" || byBM25[2].DocID != "c.txt" {
		t.Errorf("bm25 order = %s %s %s", byBM25[0].DocID, byBM25[1].DocID, byBM25[2].DocID)
	}

	top := TopK(records, 2, ranker.ModelLM)
	if len(top) != 2 || top[0].DocID != "c.txt" || top[1].DocID != "a.txt" {
		t.Errorf("TopK lm = %+v", top)
	}

	all := TopK(records, 10, ranker.ModelFused)
	sorted := append([]Record(nil), records...)
	Sort(sorted, ranker.ModelFused)
	for i := range sorted {
		if all[i].DocID != sorted[i].DocID {
			t.Errorf("TopK and Sort disagree at %d: %s vs %s", i, all[i].DocID, sorted[i].DocID)
		}
	}
}

func TestSortTiesKeepCorpusOrder(t *testing.T) {
	records := []Record{
		{DocID: "z", Position: 2},
		{DocID: "x", Position: 0},
		{DocID: "y", Position: 1},
	}
	Sort(records, ranker.ModelVSM)
	if records[0].DocID != "x" || records[1].DocID != "y" || records[2].DocID != "z" {
		t.Errorf("order = %v", records)
	}
	top := TopK(records, 2, ranker.ModelVSM)
	if top[0].DocID != "x" || top[1].DocID != "y" {
		t.Errorf("TopK ties = %v", top)
	}
}

func TestPage(t *testing.T) {
	records := make([]Record, 25)
	if got := Page(records, 1, 10); len(got) != 10 {
		t.Errorf("page 1 = %d", len(got))
	}
	if got := Page(records, 3, 10); len(got) != 5 {
		t.Errorf("page 3 = %d", len(got))
	}
	if got := Page(records, 4, 10); len(got) != 0 {
		t.Errorf("page 4 = %d", len(got))
	}
	if got := Page(records, 0, 10); got != nil {
		t.Errorf("page 0 = %v", got)
	}
}
