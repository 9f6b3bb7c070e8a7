package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	TotalClicks       int64        `json:"total_clicks"`
	TotalCloses       int64        `json:"total_closes"`
	IndexBuilds       int64        `json:"index_builds"`
	FailedBuilds      int64        `json:"failed_builds"`
	LastGeneration    uint64       `json:"last_generation"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	AvgDwellSeconds   float64      `json:"avg_dwell_seconds"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopDocuments      []QueryCount `json:"top_documents"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

// QueryCount pairs a key (a query or a document id) with its count.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	zeroResults       atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	clicks            atomic.Int64
	closes            atomic.Int64
	builds            atomic.Int64
	failedBuilds      atomic.Int64
	lastGeneration    atomic.Uint64
	latencies         []int64
	dwellSum          float64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	docClicks         map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 10000),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		docClicks:         make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes Kafka messages into the aggregator. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event Event) {
	switch event.Type {
	case EventSearch, EventZeroResult:
		a.recordSearch(event)
	case EventClick:
		a.clicks.Add(1)
		a.mu.Lock()
		a.docClicks[event.DocID]++
		a.mu.Unlock()
	case EventClose:
		a.closes.Add(1)
		a.mu.Lock()
		a.dwellSum += event.Dwell
		a.mu.Unlock()
	case EventIndexBuild:
		a.builds.Add(1)
		if event.Failed {
			a.failedBuilds.Add(1)
			return
		}
		a.lastGeneration.Store(event.Generation)
	default:
		a.logger.Warn("unknown analytics event", "type", event.Type)
	}
}

func (a *Aggregator) recordSearch(event Event) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.Type == EventZeroResult || event.Records == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if zero {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

// DefaultTop is how many entries each ranked list in AggregatedStats holds.
const DefaultTop = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with top entries in each ranked list.
func (a *Aggregator) StatsTop(top int) AggregatedStats {
	if top <= 0 {
		top = DefaultTop
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		TotalClicks:     a.clicks.Load(),
		TotalCloses:     a.closes.Load(),
		IndexBuilds:     a.builds.Load(),
		FailedBuilds:    a.failedBuilds.Load(),
		LastGeneration:  a.lastGeneration.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if stats.TotalCloses > 0 {
		stats.AvgDwellSeconds = a.dwellSum / float64(stats.TotalCloses)
	}
	stats.TopQueries = topN(a.queryCounts, top)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, top)
	stats.TopDocuments = topN(a.docClicks, top)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by key.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
