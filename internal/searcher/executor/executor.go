// Package executor runs queries against an immutable snapshot of the three
// scoring models, fuses their rankings and records the run.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/bm25"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/langmodel"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/vsm"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/trec"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/tracing"
)

// ViewCounter reports how often results of a query were opened.
type ViewCounter interface {
	Views(query string) (int, error)
}

// Query is one query to run. An empty ID is replaced by a sequence
// number.
type Query = parser.Query

// SearchResult is the fused answer to one query.
type SearchResult struct {
	QueryID     string                              `json:"query_id"`
	Query       string                              `json:"query"`
	Generation  uint64                              `json:"generation"`
	Terms       map[ranker.Model][]string           `json:"terms"`
	Records     []merger.Record                     `json:"records"`
	Diagnostics langmodel.Diagnostics               `json:"diagnostics"`
	BM25Params  bm25.Params                         `json:"bm25_params"`
	Views       int                                 `json:"views"`
	TookMs      int64                               `json:"took_ms"`
	Rankings    map[ranker.Model][]ranker.ScoredDoc `json:"-"`
}

// snapshot is everything one search reads. It is never modified after
// publication.
type snapshot struct {
	store      *corpus.Store
	generation uint64
	bm25       *bm25.Index
	lm         *langmodel.Index
	vsm        *vsm.Index
	builtAt    time.Time
	duration   time.Duration
}

// Engine serves searches from the current snapshot and replaces it on
// Build.
type Engine struct {
	opts    Options
	holder  scoring.Holder[snapshot]
	views   ViewCounter
	sink    trec.Sink
	metrics *metrics.Metrics
	nextID  atomic.Uint64
	logger  *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithViews enables view-adapted BM25 parameters.
func WithViews(v ViewCounter) Option {
	return func(e *Engine) { e.views = v }
}

// WithSink records every model's ranking as a TREC run.
func WithSink(s trec.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(opts Options, options ...Option) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts:   opts.withDefaults(),
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// Generation increases by one on every successful build.
func (e *Engine) Generation() uint64 {
	return e.holder.Generation()
}

// Build indexes store with all three models concurrently and publishes the
// result. On failure the previous snapshot keeps serving.
func (e *Engine) Build(ctx context.Context, store *corpus.Store) error {
	log := logger.FromContext(ctx)
	start := time.Now()
	snap, err := e.holder.Rebuild(func() (*snapshot, error) {
		return e.build(ctx, store)
	})
	if err != nil {
		e.observeBuild("error")
		log.Error("index build failed", "documents", store.Len(), "error", err)
		return err
	}
	e.observeBuild("success")
	if e.metrics != nil {
		e.metrics.CorpusDocuments.Set(float64(snap.store.Len()))
		e.metrics.IndexGeneration.Set(float64(snap.generation))
		e.metrics.VocabularySize.WithLabelValues(string(ranker.ModelBM25)).Set(float64(snap.bm25.Statistics().VocabularySize()))
		e.metrics.VocabularySize.WithLabelValues(string(ranker.ModelLM)).Set(float64(snap.lm.Statistics().VocabularySize()))
		e.metrics.VocabularySize.WithLabelValues(string(ranker.ModelVSM)).Set(float64(snap.vsm.VocabularySize()))
	}
	log.Info("index built",
		"documents", snap.store.Len(),
		"generation", snap.generation,
		"vsm_rows", snap.vsm.Rows(),
		"duration", time.Since(start),
	)
	return nil
}

func (e *Engine) build(ctx context.Context, store *corpus.Store) (*snapshot, error) {
	if store.Len() == 0 {
		return nil, fmt.Errorf("building index: %w", apperrors.ErrNoDocuments)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	thesaurus, err := e.thesaurus(store)
	if err != nil {
		return nil, err
	}
	normalizers := make(map[ranker.Model]*tokenizer.Normalizer, 3)
	for model, cfg := range map[ranker.Model]tokenizer.Config{
		ranker.ModelBM25: e.opts.BM25Pipeline,
		ranker.ModelLM:   e.opts.LMPipeline,
		ranker.ModelVSM:  e.opts.VSMPipeline,
	} {
		n, err := tokenizer.New(cfg, thesaurus)
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", model, err)
		}
		normalizers[model] = n
	}

	snap := &snapshot{store: store}
	var g errgroup.Group
	g.Go(func() error {
		defer e.observeModelBuild(ranker.ModelBM25, time.Now())
		ix, err := bm25.Build(store, normalizers[ranker.ModelBM25], e.opts.BM25)
		snap.bm25 = ix
		return err
	})
	g.Go(func() error {
		defer e.observeModelBuild(ranker.ModelLM, time.Now())
		ix, err := langmodel.Build(store, normalizers[ranker.ModelLM], e.opts.LM)
		snap.lm = ix
		return err
	})
	g.Go(func() error {
		defer e.observeModelBuild(ranker.ModelVSM, time.Now())
		ix, err := vsm.Build(store, normalizers[ranker.ModelVSM], e.opts.VSM)
		snap.vsm = ix
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Builds are serialized by the holder, so the next generation is known.
	snap.generation = e.holder.Generation() + 1
	snap.builtAt = time.Now()
	snap.duration = time.Since(start)
	return snap, nil
}

func (e *Engine) thesaurus(store *corpus.Store) (tokenizer.Thesaurus, error) {
	chain := tokenizer.ChainThesaurus{tokenizer.DefaultThesaurus()}
	if !e.opts.SemanticNeighbours {
		return chain, nil
	}
	model, err := tokenizer.NewCooccurrenceModel(store.Texts(), tokenizer.DefaultCooccurrenceOptions)
	if err != nil {
		return nil, fmt.Errorf("building co-occurrence thesaurus: %w", err)
	}
	return append(chain, model), nil
}

// Search runs q through the three models concurrently, fuses the rankings
// and writes them to the run sink.
func (e *Engine) Search(ctx context.Context, q Query) (*SearchResult, error) {
	start := time.Now()
	snap, err := e.holder.Load()
	if err != nil {
		return nil, err
	}
	generation := snap.generation
	if q.ID == "" {
		q.ID = strconv.FormatUint(e.nextID.Add(1), 10)
	}
	ctx = logger.WithQueryID(ctx, q.ID)
	log := logger.FromContext(ctx)

	ctx, span, root := e.startSpan(ctx)
	defer e.endSpan(span, root)

	params, views := e.bm25Params(ctx, snap, q.Text)

	var bm25Res, lmRes, vsmRes ranker.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, s := tracing.StartChildSpan(gctx, "score.bm25")
		defer e.endModel(s, ranker.ModelBM25, time.Now())
		var err error
		bm25Res, err = snap.bm25.Search(q.Text, bm25.SearchOptions{Params: &params})
		return err
	})
	g.Go(func() error {
		_, s := tracing.StartChildSpan(gctx, "score.lm")
		defer e.endModel(s, ranker.ModelLM, time.Now())
		var err error
		lmRes, err = snap.lm.Search(q.Text)
		return err
	})
	g.Go(func() error {
		_, s := tracing.StartChildSpan(gctx, "score.vsm")
		defer e.endModel(s, ranker.ModelVSM, time.Now())
		var err error
		vsmRes, err = snap.vsm.Search(q.Text)
		return err
	})
	if err := g.Wait(); err != nil {
		e.countQuery("error")
		return nil, err
	}

	records := merger.Fuse(snap.store, e.opts.SnippetWindow, strings.Fields(q.Text), vsmRes, bm25Res, lmRes)
	result := &SearchResult{
		QueryID:    q.ID,
		Query:      q.Text,
		Generation: generation,
		Terms: map[ranker.Model][]string{
			ranker.ModelBM25: bm25Res.Terms,
			ranker.ModelLM:   lmRes.Terms,
			ranker.ModelVSM:  vsmRes.Terms,
		},
		Records:     records,
		Diagnostics: snap.lm.Diagnose(lmRes.Terms),
		BM25Params:  params,
		Views:       views,
		Rankings: map[ranker.Model][]ranker.ScoredDoc{
			ranker.ModelBM25:  bm25Res.Docs,
			ranker.ModelLM:    lmRes.Docs,
			ranker.ModelVSM:   vsmRes.Docs,
			ranker.ModelFused: fusedRanking(records),
		},
	}
	e.writeRun(ctx, result)

	result.TookMs = time.Since(start).Milliseconds()
	if span != nil {
		span.SetAttr("records", len(records))
		span.SetAttr("query_id", q.ID)
	}
	if len(records) == 0 {
		e.countQuery("zero_result")
	} else {
		e.countQuery("hit")
	}
	if e.metrics != nil {
		e.metrics.SearchResultsCount.WithLabelValues().Observe(float64(len(records)))
	}
	log.Info("query executed",
		"query", q.Text,
		"bm25_hits", len(bm25Res.Docs),
		"vsm_hits", len(vsmRes.Docs),
		"records", len(records),
		"views", views,
		"took_ms", result.TookMs,
	)
	return result, nil
}

// SearchAll runs queries one after another, each in isolation. A failing
// query is logged and skipped.
func (e *Engine) SearchAll(ctx context.Context, queries []Query) ([]*SearchResult, error) {
	results := make([]*SearchResult, 0, len(queries))
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Search(ctx, q)
		if err != nil {
			e.logger.Warn("query failed", "query_id", q.ID, "query", q.Text, "error", err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// bm25Params derives the request-scoped BM25 parameters from the views
// recorded for query.
func (e *Engine) bm25Params(ctx context.Context, snap *snapshot, query string) (bm25.Params, int) {
	params := snap.bm25.Params()
	if e.views == nil {
		return params, 0
	}
	views, err := e.views.Views(query)
	if err != nil {
		logger.FromContext(ctx).Warn("reading interaction views failed", "error", err)
		return params, 0
	}
	return params.AdjustForViews(views), views
}

func (e *Engine) writeRun(ctx context.Context, res *SearchResult) {
	if e.sink == nil {
		return
	}
	for _, model := range []ranker.Model{ranker.ModelBM25, ranker.ModelLM, ranker.ModelVSM, ranker.ModelFused} {
		entries := trec.Entries(res.QueryID, e.opts.RunTag, res.Rankings[model])
		if err := e.sink.Write(ctx, model, entries); err != nil {
			logger.FromContext(ctx).Error("writing trec run failed", "model", model, "error", err)
			continue
		}
		if e.metrics != nil {
			e.metrics.TRECLinesTotal.WithLabelValues(string(model)).Add(float64(len(entries)))
		}
	}
}

// fusedRanking ranks records by combined score for the fused run.
func fusedRanking(records []merger.Record) []ranker.ScoredDoc {
	sorted := append([]merger.Record(nil), records...)
	merger.Sort(sorted, ranker.ModelFused)
	docs := make([]ranker.ScoredDoc, len(sorted))
	for i, r := range sorted {
		docs[i] = ranker.ScoredDoc{DocID: r.DocID, Score: r.Combined(), Position: r.Position}
	}
	return docs
}

// Stats describes the served snapshot.
type Stats struct {
	Generation     uint64                   `json:"generation"`
	Documents      int                      `json:"documents"`
	TextBytes      int64                    `json:"text_bytes"`
	Vocabulary     map[ranker.Model]int     `json:"vocabulary"`
	AvgDocLength   map[ranker.Model]float64 `json:"avg_doc_length"`
	VSMRows        int                      `json:"vsm_rows"`
	VSMComponents  int                      `json:"vsm_components"`
	SingularValues []float64                `json:"singular_values"`
	BuiltAt        time.Time                `json:"built_at"`
	BuildMs        int64                    `json:"build_ms"`
}

func (e *Engine) Stats() (Stats, error) {
	snap, err := e.holder.Load()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Generation: snap.generation,
		Documents:  snap.store.Len(),
		TextBytes:  snap.store.TextBytes(),
		Vocabulary: map[ranker.Model]int{
			ranker.ModelBM25: snap.bm25.Statistics().VocabularySize(),
			ranker.ModelLM:   snap.lm.Statistics().VocabularySize(),
			ranker.ModelVSM:  snap.vsm.VocabularySize(),
		},
		AvgDocLength: map[ranker.Model]float64{
			ranker.ModelBM25: snap.bm25.Statistics().AvgDocLength(),
			ranker.ModelLM:   snap.lm.Statistics().AvgDocLength(),
		},
		VSMRows:        snap.vsm.Rows(),
		VSMComponents:  snap.vsm.Config().Components,
		SingularValues: snap.vsm.SingularValues(),
		BuiltAt:        snap.builtAt,
		BuildMs:        snap.duration.Milliseconds(),
	}, nil
}

// Document returns a stored document of the served snapshot.
func (e *Engine) Document(docID string) (corpus.Document, error) {
	snap, err := e.holder.Load()
	if err != nil {
		return corpus.Document{}, err
	}
	return snap.store.Get(docID)
}

// startSpan opens the search span when tracing is on. root reports
// whether this call owns the trace and must log it.
func (e *Engine) startSpan(ctx context.Context) (context.Context, *tracing.Span, bool) {
	if !e.opts.Tracing {
		return ctx, nil, false
	}
	if tracing.SpanFromContext(ctx) != nil {
		ctx, span := tracing.StartChildSpan(ctx, "engine.search")
		return ctx, span, false
	}
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx, span := tracing.StartSpan(ctx, "engine.search", traceID)
	return ctx, span, true
}

func (e *Engine) endSpan(span *tracing.Span, root bool) {
	if span == nil {
		return
	}
	span.End()
	if root {
		span.Log()
	}
}

func (e *Engine) endModel(span *tracing.Span, model ranker.Model, start time.Time) {
	span.End()
	if e.metrics != nil {
		e.metrics.ModelLatency.WithLabelValues(string(model)).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) observeModelBuild(model ranker.Model, start time.Time) {
	if e.metrics != nil {
		e.metrics.IndexBuildDuration.WithLabelValues(string(model)).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) observeBuild(status string) {
	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
}

func (e *Engine) countQuery(kind string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(kind).Inc()
	}
}
