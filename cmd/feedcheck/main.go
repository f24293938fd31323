// Command feedcheck performs a one-shot fetch against the live CAD feed and
// prints a normalization summary. It is a development aid for spot-checking
// feed drift: unit token formats, incident type strings, and timestamp
// layouts the normalizer does not recognize.
//
// Usage:
//
//	go run ./cmd/feedcheck -url https://data.winnipeg.ca/resource/yg42-q284.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dispatchmon/cad-engine/internal/domain"
	"github.com/dispatchmon/cad-engine/internal/feed"
)

func main() {
	url := flag.String("url", "https://data.winnipeg.ca/resource/yg42-q284.json", "CAD feed endpoint")
	timeout := flag.Duration("timeout", 15*time.Second, "fetch timeout")
	verbose := flag.Bool("verbose", false, "print every normalized incident")
	flag.Parse()

	if code := run(*url, *timeout, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(url string, timeout time.Duration, verbose bool) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := feed.NewClient(url, timeout, logger)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	records, err := client.FetchIncidents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fetch feed: %v\n", err)
		return 1
	}

	fmt.Printf("=== CAD Feed Check ===\n\n")
	fmt.Printf("Fetched %d raw records from %s\n\n", len(records), url)

	var (
		priorityCounts = map[domain.Priority]int{}
		statusCounts   = map[domain.Status]int{}
		typeCounts     = map[string]int{}
		noUnits       int
		badClosedTime int
	)

	for _, rec := range records {
		inc := domain.NormalizeRecord(rec)

		priorityCounts[inc.Priority]++
		statusCounts[inc.Status]++
		typeCounts[inc.Type]++

		if len(inc.Units) == 0 {
			noUnits++
			fmt.Printf("  WARN %s: no units parsed from %q\n", inc.ID, rec.Units)
		}
		if rec.ClosedTime != "" && inc.ClosedTime == nil {
			badClosedTime++
			fmt.Printf("  WARN %s: unparseable closed_time %q\n", inc.ID, rec.ClosedTime)
		}

		if verbose {
			fmt.Printf("  %s  %-8s %-10s %-28s units=%v\n",
				inc.ID, inc.Priority, inc.Status, inc.Type, inc.Units)
		}
	}

	fmt.Printf("\nPriorities:\n")
	for _, p := range []domain.Priority{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		fmt.Printf("  %-10s %d\n", p, priorityCounts[p])
	}

	fmt.Printf("\nStatuses:\n")
	for s, n := range statusCounts {
		fmt.Printf("  %-12s %d\n", s, n)
	}

	fmt.Printf("\nIncident types:\n")
	types := make([]string, 0, len(typeCounts))
	for typ := range typeCounts {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		fmt.Printf("  %-36s %d\n", typ, typeCounts[typ])
	}

	fmt.Printf("\nRecords without parseable units: %d\n", noUnits)
	fmt.Printf("Records with unparseable closed_time: %d\n", badClosedTime)

	if noUnits > len(records)/2 && len(records) > 0 {
		fmt.Println("\nFeed check FAILED: unit parsing is missing most records.")
		return 1
	}
	fmt.Println("\nFeed check passed.")
	return 0
}
