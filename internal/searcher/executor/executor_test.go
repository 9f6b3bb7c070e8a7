package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/trec"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.VSM.Components = 2
	opts.Tracing = false
	return opts
}

func testStore(t *testing.T, texts ...string) *corpus.Store {
	t.Helper()
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		id := "doc" + string(rune('1'+i))
		docs[i] = corpus.Document{DocID: id, FileName: id + ".txt", OriginalText: text}
	}
	store, err := corpus.NewStore(docs)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func defaultCorpus(t *testing.T) *corpus.Store {
	return testStore(t,
		"The cat sat on the warm mat near the window.",
		"A dog ran across the park chasing a ball.",
		"Birds sing in the morning while the city sleeps.",
	)
}

type memorySink struct {
	mu     sync.Mutex
	writes map[ranker.Model][]trec.Entry
}

func (m *memorySink) Write(_ context.Context, model ranker.Model, entries []trec.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writes == nil {
		m.writes = make(map[ranker.Model][]trec.Entry)
	}
	m.writes[model] = append(m.writes[model], entries...)
	return nil
}

type fixedViews int

func (f fixedViews) Views(string) (int, error) { return int(f), nil }

func TestSearchBeforeBuild(t *testing.T) {
	e, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Search(context.Background(), Query{Text: "cat"}); !errors.Is(err, apperrors.ErrIndexNotBuilt) {
		t.Errorf("err = %v, want ErrIndexNotBuilt", err)
	}
	if _, err := e.Stats(); !errors.Is(err, apperrors.ErrIndexNotBuilt) {
		t.Errorf("Stats err = %v", err)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	e, _ := New(testOptions())
	empty, _ := corpus.NewStore(nil)
	if err := e.Build(context.Background(), empty); !errors.Is(err, apperrors.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
	if e.Generation() != 0 {
		t.Errorf("generation = %d after failed build", e.Generation())
	}
}

func TestSearchFusesAllModels(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	reg := prometheus.NewRegistry()
	e, err := New(testOptions(), WithSink(sink), WithMetrics(metrics.NewWithRegistry(reg)))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := e.Search(ctx, Query{ID: "42", Text: "cat"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.QueryID != "42" || res.Generation != 1 {
		t.Errorf("query id %q generation %d", res.QueryID, res.Generation)
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want every document through the language model", len(res.Records))
	}
	var cat bool
	for _, r := range res.Records {
		if r.DocID == "doc1" {
			cat = true
			if r.BM25Score <= 0 {
				t.Errorf("doc1 bm25 = %v", r.BM25Score)
			}
		} else if r.BM25Score != 0 {
			t.Errorf("%s bm25 = %v, want 0", r.DocID, r.BM25Score)
		}
		if r.LMScore >= 0 {
			t.Errorf("%s lm = %v, want negative log likelihood", r.DocID, r.LMScore)
		}
	}
	if !cat {
		t.Fatal("doc1 missing from records")
	}
	if got := res.Rankings[ranker.ModelBM25]; len(got) != 1 || got[0].DocID != "doc1" {
		t.Errorf("bm25 ranking = %+v", got)
	}
	if fused := res.Rankings[ranker.ModelFused]; len(fused) != 3 {
		t.Errorf("fused ranking = %+v", fused)
	}
	if res.Diagnostics.Tokens == 0 || res.Diagnostics.Coverage != 1 {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}

	for _, model := range []ranker.Model{ranker.ModelBM25, ranker.ModelLM, ranker.ModelVSM, ranker.ModelFused} {
		entries := sink.writes[model]
		if model == ranker.ModelBM25 && len(entries) != 1 {
			t.Errorf("bm25 run lines = %d", len(entries))
		}
		for i, entry := range entries {
			if entry.QueryID != "42" || entry.Rank != i+1 || entry.RunTag != trec.DefaultRunTag {
				t.Errorf("%s entry %d = %+v", model, i, entry)
			}
		}
	}
}

func TestSnippetsFollowLiteralQueryWords(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	store := testStore(t,
		"The kitten played with yarn all afternoon.",
		"Two cats slept in the sun.",
		"A dog ran in the park.",
	)
	if err := e.Build(ctx, store); err != nil {
		t.Fatal(err)
	}
	snippets := func(query string) map[string]string {
		t.Helper()
		res, err := e.Search(ctx, Query{Text: query})
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		out := make(map[string]string, len(res.Records))
		for _, r := range res.Records {
			out[r.DocID] = r.Snippet
		}
		return out
	}

	// "kitten" only matches through synonym expansion.
	got := snippets("cat")
	if got["doc1"] != snippet.NoMatch {
		t.Errorf("synonym-only match got snippet %q", got["doc1"])
	}
	if got["doc2"] != snippet.NoMatch {
		t.Errorf("inflected word got snippet %q for query cat", got["doc2"])
	}

	got = snippets("cats")
	if !strings.Contains(got["doc2"], "cats") {
		t.Errorf("literal match snippet = %q", got["doc2"])
	}
}

func TestQueryIDsAssigned(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatal(err)
	}
	a, _ := e.Search(ctx, Query{Text: "cat"})
	b, _ := e.Search(ctx, Query{Text: "dog"})
	if a.QueryID != "1" || b.QueryID != "2" {
		t.Errorf("query ids = %q, %q", a.QueryID, b.QueryID)
	}
}

func TestViewsAdjustBM25(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions(), WithViews(fixedViews(20)))
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatal(err)
	}
	res, err := e.Search(ctx, Query{Text: "cat"})
	if err != nil {
		t.Fatal(err)
	}
	want := testOptions().BM25.AdjustForViews(20)
	if res.BM25Params != want || res.Views != 20 {
		t.Errorf("params = %+v views = %d, want %+v", res.BM25Params, res.Views, want)
	}
	plain, _ := New(testOptions())
	_ = plain.Build(ctx, defaultCorpus(t))
	base, _ := plain.Search(ctx, Query{Text: "cat"})
	if base.BM25Params != testOptions().BM25 {
		t.Errorf("params without views = %+v", base.BM25Params)
	}
}

func TestFailedRebuildKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatal(err)
	}
	// One document cannot hold two latent components.
	if err := e.Build(ctx, testStore(t, "lonely cat")); !errors.Is(err, apperrors.ErrDimensionality) {
		t.Fatalf("err = %v, want ErrDimensionality", err)
	}
	if e.Generation() != 1 {
		t.Errorf("generation = %d, want 1", e.Generation())
	}
	stats, err := e.Stats()
	if err != nil || stats.Documents != 3 {
		t.Errorf("stats = %+v, %v", stats, err)
	}
	if _, err := e.Search(ctx, Query{Text: "dog"}); err != nil {
		t.Errorf("search after failed rebuild: %v", err)
	}
}

func TestBlankQuery(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Search(ctx, Query{Text: "   "}); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestConcurrentSearchDuringRebuild(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	store := defaultCorpus(t)
	if err := e.Build(ctx, store); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				res, err := e.Search(ctx, Query{Text: "dog park"})
				if err != nil {
					t.Errorf("search: %v", err)
					return
				}
				if len(res.Records) != 3 {
					t.Errorf("records = %d", len(res.Records))
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		if err := e.Build(ctx, store); err != nil {
			t.Errorf("rebuild: %v", err)
		}
	}
	wg.Wait()
	if e.Generation() != 4 {
		t.Errorf("generation = %d, want 4", e.Generation())
	}
}

func TestSearchAllSkipsFailures(t *testing.T) {
	ctx := context.Background()
	e, _ := New(testOptions())
	if err := e.Build(ctx, defaultCorpus(t)); err != nil {
		t.Fatal(err)
	}
	results, err := e.SearchAll(ctx, []Query{{ID: "1", Text: "cat"}, {ID: "2", Text: ""}, {ID: "3", Text: "birds"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].QueryID != "1" || results[1].QueryID != "3" {
		t.Errorf("results = %d", len(results))
	}
}
