package main

import (
	"math"
	"sort"
	"sync"
	"time"
)

// recorder collects per-request outcomes. Latencies are kept per ranking
// order so the slowest model stands out in the report.
type recorder struct {
	mu        sync.Mutex
	latencies map[string][]time.Duration
	codes     map[int]int64
	total     int64
	failed    int64
	cacheHits int64
	empty     int64
}

func newRecorder() *recorder {
	return &recorder{
		latencies: make(map[string][]time.Duration),
		codes:     make(map[int]int64),
	}
}

type outcome struct {
	order    string
	latency  time.Duration
	status   int
	cacheHit bool
	results  int
	err      error
}

func (r *recorder) record(o outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if o.err != nil {
		r.failed++
		return
	}
	r.codes[o.status]++
	if o.status < 200 || o.status >= 300 {
		r.failed++
	} else {
		if o.cacheHit {
			r.cacheHits++
		}
		if o.results == 0 {
			r.empty++
		}
	}
	r.latencies[o.order] = append(r.latencies[o.order], o.latency)
}

// LatencySummary describes one latency distribution.
type LatencySummary struct {
	Count  int           `json:"count"`
	Min    time.Duration `json:"min"`
	Avg    time.Duration `json:"avg"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Max    time.Duration `json:"max"`
	StdDev time.Duration `json:"stddev"`
}

// Report is the final result of a run.
type Report struct {
	Duration      time.Duration             `json:"duration"`
	Total         int64                     `json:"total"`
	Failed        int64                     `json:"failed"`
	CacheHits     int64                     `json:"cache_hits"`
	EmptyResults  int64                     `json:"empty_results"`
	RequestsPerS  float64                   `json:"requests_per_second"`
	ErrorRate     float64                   `json:"error_rate"`
	Overall       LatencySummary            `json:"overall"`
	ByOrder       map[string]LatencySummary `json:"by_order"`
	StatusCodes   map[int]int64             `json:"status_codes"`
	CacheHitRatio float64                   `json:"cache_hit_ratio"`
}

func (r *recorder) report(elapsed time.Duration) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{
		Duration:     elapsed,
		Total:        r.total,
		Failed:       r.failed,
		CacheHits:    r.cacheHits,
		EmptyResults: r.empty,
		ByOrder:      make(map[string]LatencySummary, len(r.latencies)),
		StatusCodes:  make(map[int]int64, len(r.codes)),
	}
	for code, n := range r.codes {
		rep.StatusCodes[code] = n
	}
	if r.total > 0 {
		rep.ErrorRate = float64(r.failed) / float64(r.total)
		if ok := r.total - r.failed; ok > 0 {
			rep.CacheHitRatio = float64(r.cacheHits) / float64(ok)
		}
	}
	if elapsed > 0 {
		rep.RequestsPerS = float64(r.total) / elapsed.Seconds()
	}

	var all []time.Duration
	for order, lat := range r.latencies {
		rep.ByOrder[order] = summarize(lat)
		all = append(all, lat...)
	}
	rep.Overall = summarize(all)
	return rep
}

func summarize(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))
	var sq float64
	for _, l := range sorted {
		d := float64(l - avg)
		sq += d * d
	}
	return LatencySummary{
		Count:  len(sorted),
		Min:    sorted[0],
		Avg:    avg,
		P50:    percentile(sorted, 50),
		P90:    percentile(sorted, 90),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
		Max:    sorted[len(sorted)-1],
		StdDev: time.Duration(math.Sqrt(sq / float64(len(sorted)))),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
