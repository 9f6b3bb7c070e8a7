// Package handler exposes the search engine over HTTP: ranked search with
// pagination, index rebuilds, result interactions and corpus lookups.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/bm25"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/scoring/langmodel"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/middleware"
)

// Engine is the part of *executor.Engine the handler drives.
type Engine interface {
	Search(ctx context.Context, q executor.Query) (*executor.SearchResult, error)
	Build(ctx context.Context, store *corpus.Store) error
	Generation() uint64
	Stats() (executor.Stats, error)
	Document(docID string) (corpus.Document, error)
}

// Interactions is the part of *interaction.Log the handler writes to.
type Interactions interface {
	LogQuery(ctx context.Context, query string) error
	LogClick(ctx context.Context, query, docID, fileName string) error
	LogClose(ctx context.Context, query, docID, fileName string) (float64, bool, error)
	Views(query string) (int, error)
}

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event analytics.Event)
}

// CorpusLoader returns a fresh corpus for a rebuild.
type CorpusLoader func(ctx context.Context) (*corpus.Store, error)

type Handler struct {
	engine       Engine
	interactions Interactions
	reload       CorpusLoader
	cache        *cache.QueryCache
	tracker      Tracker
	metrics      *metrics.Metrics
	pageSize     int
	maxPageSize  int
	logger       *slog.Logger
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithInteractions(i Interactions) Option {
	return func(h *Handler) { h.interactions = i }
}

// WithCorpusLoader enables POST /api/v1/index/rebuild.
func WithCorpusLoader(l CorpusLoader) Option {
	return func(h *Handler) { h.reload = l }
}

func New(engine Engine, pageSize, maxPageSize int, opts ...Option) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	if maxPageSize < pageSize {
		maxPageSize = pageSize
	}
	h := &Handler{
		engine:      engine,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		logger:      slog.Default().With("component", "search-handler"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("POST /api/v1/interactions/click", h.Click)
	mux.HandleFunc("POST /api/v1/interactions/close", h.Close)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// SearchResponse is one page of a fused result list.
type SearchResponse struct {
	QueryID     string                    `json:"query_id"`
	Query       string                    `json:"query"`
	Generation  uint64                    `json:"generation"`
	Sort        ranker.Model              `json:"sort"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	Total       int                       `json:"total"`
	HasPrevious bool                      `json:"has_previous_page"`
	HasNext     bool                      `json:"has_next_page"`
	CacheHit    bool                      `json:"cache_hit"`
	Terms       map[ranker.Model][]string `json:"terms"`
	Diagnostics langmodel.Diagnostics     `json:"diagnostics"`
	BM25Params  bm25.Params               `json:"bm25_params"`
	Views       int                       `json:"views"`
	TookMs      int64                     `json:"took_ms"`
	Results     []merger.Record           `json:"results"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	query := params.Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	page, err := positiveInt(params.Get("page"), 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	size, err := positiveInt(params.Get("page_size"), h.pageSize)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "page_size must be a positive integer")
		return
	}
	size = min(size, h.maxPageSize)
	sortBy, err := parseSort(params.Get("sort"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.interactions != nil {
		if err := h.interactions.LogQuery(ctx, query); err != nil {
			log.Warn("logging query failed", "error", err)
		} else {
			h.countInteraction("query")
		}
	}

	q := executor.Query{ID: params.Get("id"), Text: query}
	compute := func() (*executor.SearchResult, error) {
		return h.engine.Search(ctx, q)
	}
	var (
		result      *executor.SearchResult
		cacheHit    bool
		cacheStatus = "bypass"
	)
	if h.cache != nil && q.ID == "" {
		key := cache.Key{Query: query, Generation: h.engine.Generation(), Views: h.views(ctx, query)}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = compute()
	}
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	records := append([]merger.Record(nil), result.Records...)
	merger.Sort(records, sortBy)
	resp := SearchResponse{
		QueryID:     result.QueryID,
		Query:       result.Query,
		Generation:  result.Generation,
		Sort:        sortBy,
		Page:        page,
		PageSize:    size,
		Total:       len(records),
		HasPrevious: page > 1,
		HasNext:     page*size < len(records),
		CacheHit:    cacheHit,
		Terms:       result.Terms,
		Diagnostics: result.Diagnostics,
		BM25Params:  result.BM25Params,
		Views:       result.Views,
		TookMs:      time.Since(start).Milliseconds(),
		Results:     merger.Page(records, page, size),
	}

	log.Info("search completed",
		"query", query,
		"query_id", resp.QueryID,
		"total", resp.Total,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", resp.TookMs,
	)
	if h.tracker != nil {
		event := analytics.SearchEvent(query, resp.QueryID, result.Terms[ranker.ModelBM25], resp.Total, resp.TookMs, cacheHit, resp.Generation)
		event.RequestID = middleware.GetRequestID(r)
		h.tracker.Track(event)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Rebuild reloads the corpus and swaps in a new index. The old index keeps
// serving until the new one is ready, and stays when the build fails.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no corpus source configured")
		return
	}
	ctx := r.Context()
	start := time.Now()
	store, err := h.reload(ctx)
	if err == nil {
		err = h.engine.Build(ctx, store)
	}
	if h.tracker != nil {
		event := analytics.Event{
			Type:       analytics.EventIndexBuild,
			Generation: h.engine.Generation(),
			Failed:     err != nil,
			LatencyMs:  time.Since(start).Milliseconds(),
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(r),
		}
		if store != nil {
			event.Documents = store.Len()
		}
		h.tracker.Track(event)
	}
	if err != nil {
		logger.FromContext(ctx).Error("index rebuild failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation after rebuild failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": h.engine.Generation(),
		"documents":  store.Len(),
		"took_ms":    time.Since(start).Milliseconds(),
	})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.Document(r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// InteractionRequest is the body of the click and close endpoints.
type InteractionRequest struct {
	Query    string `json:"query"`
	DocID    string `json:"doc_id"`
	FileName string `json:"file_name"`
}

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	req, ok := h.interaction(w, r)
	if !ok {
		return
	}
	if err := h.interactions.LogClick(r.Context(), req.Query, req.DocID, req.FileName); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.countInteraction("click")
	h.track(r, analytics.Event{Type: analytics.EventClick, Query: req.Query, DocID: req.DocID})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	req, ok := h.interaction(w, r)
	if !ok {
		return
	}
	dwell, matched, err := h.interactions.LogClose(r.Context(), req.Query, req.DocID, req.FileName)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	if matched {
		h.countInteraction("close")
		h.track(r, analytics.Event{Type: analytics.EventClose, Query: req.Query, DocID: req.DocID, Dwell: dwell})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "recorded",
		"matched":       matched,
		"dwell_seconds": dwell,
	})
}

// interaction decodes and validates an interaction body. The file name is
// filled from the corpus when the client omits it.
func (h *Handler) interaction(w http.ResponseWriter, r *http.Request) (InteractionRequest, bool) {
	var req InteractionRequest
	if h.interactions == nil {
		h.writeError(w, http.StatusServiceUnavailable, "interaction log is disabled")
		return req, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.DocID) == "" {
		h.writeError(w, http.StatusBadRequest, "doc_id is required")
		return req, false
	}
	doc, err := h.engine.Document(req.DocID)
	if err != nil {
		h.writeAppError(w, err)
		return req, false
	}
	if req.FileName == "" {
		req.FileName = doc.FileName
	}
	return req, true
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) views(ctx context.Context, query string) int {
	if h.interactions == nil {
		return 0
	}
	v, err := h.interactions.Views(query)
	if err != nil {
		logger.FromContext(ctx).Warn("reading views failed", "error", err)
		return 0
	}
	return v
}

func (h *Handler) countInteraction(kind string) {
	if h.metrics != nil {
		h.metrics.InteractionsTotal.WithLabelValues(kind).Inc()
	}
}

func (h *Handler) track(r *http.Request, event analytics.Event) {
	if h.tracker == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(r)
	h.tracker.Track(event)
}

func positiveInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", apperrors.ErrInvalidInput, s)
	}
	return n, nil
}

func parseSort(s string) (ranker.Model, error) {
	switch m := ranker.Model(strings.ToLower(s)); m {
	case "":
		return ranker.ModelFused, nil
	case ranker.ModelFused, ranker.ModelBM25, ranker.ModelLM, ranker.ModelVSM:
		return m, nil
	default:
		return "", fmt.Errorf("sort must be one of fused, bm25, lm, vsm")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status. Internal failures are not echoed.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeError(w, status, message)
}
