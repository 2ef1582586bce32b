// Package main is a terminal monitor for the lotus-ge dashboard API.
// It fetches every analytic category from a running server, renders the
// opportunities as tables, and can stay attached: either polling on an
// interval or subscribing to the refresh relay and refetching on push.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/slippax/lotus-ge/internal/aggregator"
	"github.com/slippax/lotus-ge/internal/clients/relay"
	"github.com/slippax/lotus-ge/internal/summaries"
	"github.com/slippax/lotus-ge/pkg/logger"
)

const maxRowsPerCategory = 15

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Base URL of the dashboard server")
	relayURL := flag.String("relay", "", "Websocket URL of the refresh relay (enables push mode)")
	watch := flag.Duration("watch", 0, "Poll interval (0 fetches once and exits)")
	bell := flag.Bool("bell", false, "Ring the terminal bell when fresh data arrives")
	logLevel := flag.String("log-level", "error", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	client := aggregator.NewClient(*serverURL, 15*time.Second, log)

	render := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		agg := client.FetchAll(ctx)
		printAggregate(agg)
		if *bell {
			fmt.Print("\a")
		}
	}

	render()

	if *relayURL == "" && *watch == 0 {
		return
	}

	refetch := make(chan struct{}, 1)

	if *relayURL != "" {
		listener := relay.NewListener(*relayURL, func() {
			select {
			case refetch <- struct{}{}:
			default:
			}
		}, nil, log)

		if err := listener.Start(); err != nil {
			log.Warn().Err(err).Msg("Relay unavailable, falling back to polling only")
		}
		defer func() { _ = listener.Stop() }()
	}

	var tick <-chan time.Time
	if *watch > 0 {
		ticker := time.NewTicker(*watch)
		defer ticker.Stop()
		tick = ticker.C
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-refetch:
			// Give the server a moment to warm its cache from the same signal
			time.Sleep(2 * time.Second)
			render()
		case <-tick:
			render()
		case <-quit:
			return
		}
	}
}

// printAggregate renders one table per category plus a footer line
func printAggregate(agg aggregator.Aggregate) {
	fmt.Printf("\n=== GE opportunities @ %s ===\n", agg.FetchedAt.Format("15:04:05"))

	for _, cat := range summaries.Categories() {
		data := agg.Results[cat]

		fmt.Printf("\n--- %s (%d) ---\n", cat, len(data.Items))
		if data.Err != nil {
			fmt.Printf("  unavailable: %v\n", data.Err)
			continue
		}
		if len(data.Items) == 0 {
			fmt.Println("  no opportunities")
			continue
		}

		printCategoryTable(cat, data.Items)
	}

	updated := agg.DataUpdated
	if updated == "" {
		updated = "unknown"
	}
	fmt.Printf("\nData updated: %s\n", updated)
}

// columnSpec maps a category to its table layout. Keys must match the JSON
// tags the server emits for that category's opportunity type; scoreKey orders
// rows best-first.
type columnSpec struct {
	headers  []string
	scoreKey string
	row      func(item map[string]interface{}) []string
}

var columns = map[summaries.Category]columnSpec{
	summaries.CategoryDipDetection: {
		headers:  []string{"Item", "Low", "High", "Avg low", "ROI%"},
		scoreKey: "roiPct",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				gp(aggregator.Num(it, "currentLow")),
				gp(aggregator.Num(it, "currentHigh")),
				gp(aggregator.Num(it, "avgLow")),
				fmt.Sprintf("%.1f%%", aggregator.Num(it, "roiPct")),
			}
		},
	},
	summaries.CategoryAlchemyFloors: {
		headers:  []string{"Item", "Low", "Floor", "Profit", "Tax", "Limit"},
		scoreKey: "potentialProfit",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				gp(aggregator.Num(it, "currentLow")),
				gp(aggregator.Num(it, "priceFloor")),
				gp(aggregator.Num(it, "potentialProfit")),
				gp(aggregator.Num(it, "tax")),
				fmt.Sprintf("%.0f", aggregator.Num(it, "buyLimit")),
			}
		},
	},
	summaries.CategoryVolatilityBreakout: {
		headers:  []string{"Item", "Price", "Direction", "Volume", "Compression", "Profit"},
		scoreKey: "potentialProfit",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				gp(aggregator.Num(it, "currentPrice")),
				aggregator.Str(it, "breakoutDirection"),
				aggregator.Str(it, "volumeConfirmation"),
				aggregator.Str(it, "compressionLevel"),
				gp(aggregator.Num(it, "potentialProfit")),
			}
		},
	},
	summaries.CategoryVolumeProfile: {
		headers:  []string{"Item", "Pattern", "Surge", "Smart money", "Imbalance", "Profit"},
		scoreKey: "accumulationProfit",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				aggregator.Str(it, "volumePattern"),
				aggregator.Str(it, "volumeSurge"),
				aggregator.Str(it, "smartMoneySignal"),
				fmt.Sprintf("%.2f", aggregator.Num(it, "volumeImbalanceRatio")),
				gp(aggregator.Num(it, "accumulationProfit")),
			}
		},
	},
	summaries.CategoryConfluence: {
		headers:  []string{"Item", "Strength", "Volume", "Bull", "Bear", "Profit"},
		scoreKey: "potentialProfit",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				aggregator.Str(it, "signalStrength"),
				aggregator.Str(it, "volumeConfirmation"),
				fmt.Sprintf("%.0f", aggregator.Num(it, "bullishConfluence")),
				fmt.Sprintf("%.0f", aggregator.Num(it, "bearishConfluence")),
				gp(aggregator.Num(it, "potentialProfit")),
			}
		},
	},
	summaries.CategoryRecipeArbitrage: {
		headers:  []string{"Recipe", "Type", "Cost", "Product", "Profit", "Liquidity"},
		scoreKey: "profitPerCraft",
		row: func(it map[string]interface{}) []string {
			return []string{
				aggregator.Str(it, "name"),
				aggregator.Str(it, "recipeType"),
				gp(aggregator.Num(it, "totalCost")),
				gp(aggregator.Num(it, "productPrice")),
				gp(aggregator.Num(it, "profitPerCraft")),
				aggregator.Str(it, "liquidityLevel"),
			}
		},
	},
}

func printCategoryTable(cat summaries.Category, items []map[string]interface{}) {
	spec, ok := columns[cat]
	if !ok {
		return
	}

	// Highest score first
	sorted := make([]map[string]interface{}, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return aggregator.Num(sorted[i], spec.scoreKey) > aggregator.Num(sorted[j], spec.scoreKey)
	})

	if len(sorted) > maxRowsPerCategory {
		sorted = sorted[:maxRowsPerCategory]
	}

	table := tablewriter.NewWriter(os.Stdout)
	headers := make([]interface{}, len(spec.headers))
	for i, h := range spec.headers {
		headers[i] = h
	}
	table.Header(headers...)

	for _, item := range sorted {
		row := spec.row(item)
		cells := make([]interface{}, len(row))
		for i, c := range row {
			cells[i] = c
		}
		table.Append(cells...)
	}

	table.Render()
}

// gp formats a gold-piece amount with thousands separators
func gp(v float64) string {
	n := int64(v)
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if n < 0 {
		out = "-" + out
	}
	return out
}
