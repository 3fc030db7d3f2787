// Benchmark harness for the MediaWiki client. Measures call latency,
// cache behavior, and iterator pagination against a live wiki configured
// through the MEDIAWIKI_* environment variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Riamse/ceterach/mediawiki"
)

func main() {
	config, err := mediawiki.LoadConfig()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := mediawiki.NewClient(config, logger)
	ctx := context.Background()

	measureNamespaceCache(ctx, client)
	measureQueryLatency(ctx, client)
	measurePagination(ctx, client)
}

// measureNamespaceCache times the namespace lookup cold and warm. The
// second call must be served from the client's cache.
func measureNamespaceCache(ctx context.Context, client *mediawiki.Client) {
	fmt.Println("=== Namespace Cache Test ===")

	start := time.Now()
	namespaces, err := client.Namespaces(ctx)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	firstCall := time.Since(start)
	fmt.Printf("   First call (network):  %v (%d namespaces)\n", firstCall, len(namespaces))

	start = time.Now()
	_, _ = client.Namespaces(ctx)
	secondCall := time.Since(start)
	fmt.Printf("   Second call (cached):  %v\n", secondCall)
	if secondCall > 0 {
		fmt.Printf("   Speedup: %.0fx faster\n", float64(firstCall)/float64(secondCall))
	}
	fmt.Println()
}

// measureQueryLatency samples single-record query round trips.
func measureQueryLatency(ctx context.Context, client *mediawiki.Client) {
	const samples = 5
	fmt.Printf("=== Query Latency (%d samples) ===\n", samples)

	var total, min, max time.Duration
	for i := 0; i < samples; i++ {
		start := time.Now()
		q := client.NewQuery(mediawiki.Params{"list": "allpages", "aplimit": 1}, mediawiki.WithLimit(1))
		for q.Next(ctx) {
		}
		if err := q.Err(); err != nil {
			fmt.Printf("   Error: %v\n", err)
			return
		}
		elapsed := time.Since(start)
		total += elapsed
		if min == 0 || elapsed < min {
			min = elapsed
		}
		if elapsed > max {
			max = elapsed
		}
	}
	fmt.Printf("   min %v / avg %v / max %v\n", min, total/samples, max)
	fmt.Println()
}

// measurePagination walks a multi-page listing and reports how long the
// continuation-driven fetches take per record.
func measurePagination(ctx context.Context, client *mediawiki.Client) {
	const limit = 100
	fmt.Printf("=== Pagination (up to %d records) ===\n", limit)

	start := time.Now()
	q := client.NewQuery(mediawiki.Params{"list": "allpages", "aplimit": 25}, mediawiki.WithLimit(limit))
	count := 0
	for q.Next(ctx) {
		count++
	}
	if err := q.Err(); err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	elapsed := time.Since(start)
	fmt.Printf("   %d records in %v", count, elapsed)
	if count > 0 {
		fmt.Printf(" (%v per record)", elapsed/time.Duration(count))
	}
	fmt.Println()
}
