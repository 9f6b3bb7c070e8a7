// Command loadtest drives concurrent searches against a running searcher
// and reports throughput, latency percentiles per ranking order, cache hits
// and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-queries topics.txt] [-concurrency 10] [-duration 30s] [-json report.json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tri-model-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/middleware"
)

// sortOrders are cycled per request so every model's ordering is exercised.
var sortOrders = []string{"fused", "bm25", "lm", "vsm"}

var defaultQueries = []string{
	"sunset over the ocean",
	"mountain trail",
	"city skyline at night",
	"portrait of a scientist",
	"ancient temple ruins",
	"river valley",
	"snow",
	"football stadium crowd",
	"aircraft engine",
	"painting of a ship in a storm",
	"desert landscape with camels",
	"bridge",
	"cathedral interior",
	"wildlife photography",
	"volcano eruption",
}

type runConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	warmup      time.Duration
	pageSize    int
	queries     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "measured test duration")
	warmup := flag.Duration("warmup", 0, "unmeasured warm-up before the test")
	pageSize := flag.Int("page-size", 10, "results per page requested")
	queriesPath := flag.String("queries", "", "optional query file (id<TAB>text lines or TREC topics)")
	jsonPath := flag.String("json", "", "also write the report as JSON to this path")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		parsed, err := parser.ParseFile(*queriesPath, parser.FormatAuto)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read queries: %v\n", err)
			os.Exit(1)
		}
		queries = make([]string, len(parsed))
		for i, q := range parsed {
			queries[i] = q.Text
		}
	}

	cfg := runConfig{
		baseURL:     *baseURL,
		concurrency: *concurrency,
		duration:    *duration,
		warmup:      *warmup,
		pageSize:    *pageSize,
		queries:     queries,
	}

	fmt.Println("=== Tri-Model Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.baseURL)
	fmt.Printf("Concurrency: %d\n", cfg.concurrency)
	fmt.Printf("Duration:    %s (warm-up %s)\n", cfg.duration, cfg.warmup)
	fmt.Printf("Queries:     %d unique\n", len(cfg.queries))
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.warmup > 0 {
		fmt.Print("Warming up...")
		run(client, cfg, cfg.warmup, newRecorder())
		fmt.Println(" done")
	}

	rec := newRecorder()
	start := time.Now()
	run(client, cfg, cfg.duration, rec)
	report := rec.report(time.Since(start))
	printReport(report)

	if *jsonPath != "" {
		if err := writeJSON(*jsonPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if report.Total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func run(client *http.Client, cfg runConfig, d time.Duration, rec *recorder) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var next atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				i := int(next.Add(1))
				o := search(ctx, client, cfg, cfg.queries[i%len(cfg.queries)], sortOrders[i%len(sortOrders)])
				if ctx.Err() != nil {
					return nil
				}
				rec.record(o)
			}
			return nil
		})
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()
	_ = g.Wait()
}

func search(ctx context.Context, client *http.Client, cfg runConfig, query, order string) outcome {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&sort=%s&page_size=%d",
		cfg.baseURL, url.QueryEscape(query), order, cfg.pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return outcome{order: order, err: err}
	}
	req.Header.Set(middleware.RequestIDHeader, "loadtest-"+uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return outcome{order: order, latency: latency, err: err}
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
		Total    int  `json:"total"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	io.Copy(io.Discard, resp.Body)
	return outcome{
		order:    order,
		latency:  latency,
		status:   resp.StatusCode,
		cacheHit: body.CacheHit,
		results:  body.Total,
	}
}

func printReport(r Report) {
	fmt.Println()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", r.Total)
	fmt.Printf("Failed:          %d (%.2f%%)\n", r.Failed, r.ErrorRate*100)
	fmt.Printf("Cache Hits:      %d (%.1f%%)\n", r.CacheHits, r.CacheHitRatio*100)
	fmt.Printf("Empty Results:   %d\n", r.EmptyResults)
	fmt.Printf("Requests/sec:    %.2f\n", r.RequestsPerS)

	fmt.Println()
	fmt.Println("=== Latency ===")
	printSummary("all", r.Overall)
	orders := make([]string, 0, len(r.ByOrder))
	for order := range r.ByOrder {
		orders = append(orders, order)
	}
	sort.Strings(orders)
	for _, order := range orders {
		printSummary(order, r.ByOrder[order])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, r.StatusCodes[code])
	}
}

func printSummary(name string, s LatencySummary) {
	if s.Count == 0 {
		return
	}
	fmt.Printf("%-6s n=%-7d min=%-10s avg=%-10s p50=%-10s p95=%-10s p99=%-10s max=%-10s sd=%s\n",
		name, s.Count, s.Min, s.Avg, s.P50, s.P95, s.P99, s.Max, s.StdDev)
}

func writeJSON(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
