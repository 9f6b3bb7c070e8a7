package main

import (
	"errors"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	tests := map[float64]time.Duration{
		50: 50 * time.Millisecond,
		95: 95 * time.Millisecond,
		99: 99 * time.Millisecond,
		0:  time.Millisecond,
	}
	for p, want := range tests {
		if got := percentile(sorted, p); got != want {
			t.Errorf("p%v = %v, want %v", p, got, want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty slice should give zero")
	}
}

func TestRecorderReport(t *testing.T) {
	r := newRecorder()
	r.record(outcome{order: "bm25", latency: 10 * time.Millisecond, status: 200, results: 3})
	r.record(outcome{order: "bm25", latency: 30 * time.Millisecond, status: 200, cacheHit: true, results: 3})
	r.record(outcome{order: "vsm", latency: 20 * time.Millisecond, status: 200})
	r.record(outcome{order: "lm", latency: 5 * time.Millisecond, status: 429})
	r.record(outcome{order: "lm", err: errors.New("connection refused")})

	rep := r.report(time.Second)
	if rep.Total != 5 || rep.Failed != 2 || rep.CacheHits != 1 || rep.EmptyResults != 1 {
		t.Errorf("counts = %+v", rep)
	}
	if rep.RequestsPerS != 5 {
		t.Errorf("rps = %v", rep.RequestsPerS)
	}
	if got := rep.ByOrder["bm25"]; got.Count != 2 || got.Avg != 20*time.Millisecond || got.Max != 30*time.Millisecond {
		t.Errorf("bm25 summary = %+v", got)
	}
	if rep.Overall.Count != 4 || rep.Overall.Min != 5*time.Millisecond {
		t.Errorf("overall = %+v", rep.Overall)
	}
	if rep.StatusCodes[200] != 3 || rep.StatusCodes[429] != 1 {
		t.Errorf("status codes = %v", rep.StatusCodes)
	}
	if rep.CacheHitRatio != 1.0/3 {
		t.Errorf("cache hit ratio = %v", rep.CacheHitRatio)
	}
}
