package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/interaction"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
)

type eventLog struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (l *eventLog) Track(e analytics.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []analytics.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]analytics.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func testCorpus(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.NewStore([]corpus.Document{
		{DocID: "doc1", FileName: "cat.txt", OriginalText: "The cat sat on the warm mat near the window."},
		{DocID: "doc2", FileName: "dog.txt", OriginalText: "A dog ran across the park chasing a ball."},
		{DocID: "doc3", FileName: "birds.txt", OriginalText: "Birds sing in the morning while the city sleeps."},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

type fixture struct {
	mux    *http.ServeMux
	engine *executor.Engine
	log    *interaction.Log
	events *eventLog
}

func newFixture(t *testing.T, build bool) *fixture {
	t.Helper()
	opts := executor.DefaultOptions()
	opts.VSM.Components = 2
	opts.Tracing = false
	engine, err := executor.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if build {
		if err := engine.Build(context.Background(), testCorpus(t)); err != nil {
			t.Fatal(err)
		}
	}
	f := &fixture{
		mux:    http.NewServeMux(),
		engine: engine,
		log:    interaction.NewLog(filepath.Join(t.TempDir(), "interactions.jsonl")),
		events: &eventLog{},
	}
	h := New(engine, 2, 5,
		WithInteractions(f.log),
		WithTracker(f.events),
		WithCorpusLoader(func(context.Context) (*corpus.Store, error) { return testCorpus(t), nil }),
	)
	h.Register(f.mux)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestSearchPaginates(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/search?q=cat&page=1&page_size=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || len(resp.Results) != 2 {
		t.Errorf("total = %d returned = %d", resp.Total, len(resp.Results))
	}
	if resp.HasPrevious || !resp.HasNext {
		t.Errorf("page 1 flags: previous=%v next=%v", resp.HasPrevious, resp.HasNext)
	}
	if resp.Results[0].DocID != "doc1" {
		t.Errorf("top result = %s, want doc1", resp.Results[0].DocID)
	}
	if resp.Sort != ranker.ModelFused || resp.Generation != 1 {
		t.Errorf("sort = %s generation = %d", resp.Sort, resp.Generation)
	}

	rec = f.do(http.MethodGet, "/api/v1/search?q=cat&page=2&page_size=2", "")
	var second SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatal(err)
	}
	if len(second.Results) != 1 || !second.HasPrevious || second.HasNext {
		t.Errorf("page 2 returned %d, previous=%v next=%v", len(second.Results), second.HasPrevious, second.HasNext)
	}

	entries, err := f.log.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Kind != interaction.KindQuery {
		t.Errorf("interaction entries = %+v", entries)
	}
	if got := f.events.types(); len(got) != 2 || got[0] != analytics.EventSearch {
		t.Errorf("events = %v", got)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	f := newFixture(t, true)
	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=%20%20",
		"/api/v1/search?q=cat&page=0",
		"/api/v1/search?q=cat&page_size=abc",
		"/api/v1/search?q=cat&sort=pagerank",
	} {
		if rec := f.do(http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestSearchBeforeBuild(t *testing.T) {
	f := newFixture(t, false)
	if rec := f.do(http.MethodGet, "/api/v1/search?q=cat", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/v1/index/stats", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stats status = %d, want 503", rec.Code)
	}
}

func TestRebuild(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodPost, "/api/v1/index/rebuild", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if f.engine.Generation() != 1 {
		t.Errorf("generation = %d", f.engine.Generation())
	}
	rec = f.do(http.MethodGet, "/api/v1/index/stats", "")
	var stats executor.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 3 || stats.VSMComponents != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != analytics.EventIndexBuild {
		t.Errorf("events = %v", got)
	}
}

func TestClickAndClose(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodPost, "/api/v1/interactions/click", `{"query":"cat","doc_id":"doc1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("click status = %d body = %s", rec.Code, rec.Body)
	}
	views, err := f.log.Views("cat")
	if err != nil || views != 1 {
		t.Errorf("views = %d err = %v", views, err)
	}

	rec = f.do(http.MethodPost, "/api/v1/interactions/close", `{"query":"cat","doc_id":"doc1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d", rec.Code)
	}
	var body struct {
		Matched bool `json:"matched"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Matched {
		t.Error("close did not match the click")
	}

	entries, _ := f.log.Entries()
	if entries[0].FileName != "cat.txt" {
		t.Errorf("file name = %q, want cat.txt", entries[0].FileName)
	}

	if rec := f.do(http.MethodPost, "/api/v1/interactions/click", `{"query":"cat","doc_id":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown doc status = %d, want 404", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/v1/interactions/click", `{"query":"cat"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing doc status = %d, want 400", rec.Code)
	}
}

func TestDocument(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/documents/doc2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc corpus.Document
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.FileName != "dog.txt" {
		t.Errorf("file name = %q", doc.FileName)
	}
	if rec := f.do(http.MethodGet, "/api/v1/documents/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestCacheDisabled(t *testing.T) {
	f := newFixture(t, true)
	if rec := f.do(http.MethodPost, "/api/v1/cache/invalidate", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, true)
	h := New(f.engine, 2, 5, WithInteractions(f.log), WithMetrics(metrics.NewWithRegistry(reg)))
	mux := http.NewServeMux()
	h.Register(mux)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/interactions/click", strings.NewReader(`{"query":"cat","doc_id":"doc1"}`)),
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", req.URL.Path, rec.Code)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	interactions := map[string]float64{}
	var bypassed uint64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				switch {
				case mf.GetName() == "interactions_total" && label.GetName() == "type":
					interactions[label.GetValue()] = m.GetCounter().GetValue()
				case mf.GetName() == "search_latency_seconds" && label.GetValue() == "bypass":
					bypassed = m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	if interactions["query"] != 1 || interactions["click"] != 1 {
		t.Errorf("interactions = %v", interactions)
	}
	if bypassed != 1 {
		t.Errorf("uncached searches observed = %d, want 1", bypassed)
	}
}
