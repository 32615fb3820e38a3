package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/infrastructure/config"
	"github.com/settleline/reconcile-backend/internal/infrastructure/logging"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	profile := flag.String("profile", "", "Weight profile (strict, name-only)")
	threshold := flag.Float64("threshold", 0, "Minimum score to commit a match (overrides config)")
	candidates := flag.Bool("candidates", false, "Pre-filter pairs through the storage candidate lookup")
	seed := flag.Bool("seed", false, "Insert sample data before matching")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configPath)

	loggingCfg := cfg.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "match")

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage.Driver, storageDSN(cfg))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if *seed {
		if err := seedSampleData(ctx, store); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
		fmt.Println("Sample data inserted.")
	}

	matchService := service.NewMatchService(store, cfg.Matching, logger)

	result, runRecord, err := matchService.Run(ctx, service.RunOptions{
		Profile:            *profile,
		Threshold:          *threshold,
		UseCandidateFilter: *candidates,
	})
	if err != nil {
		return err
	}

	printSummary(result, runRecord)
	return nil
}

// storageDSN picks the connection string for the configured driver.
func storageDSN(cfg *config.Config) string {
	if cfg.Storage.Driver == "postgres" {
		return cfg.Storage.DatabaseURI
	}
	return cfg.Storage.DatabasePath
}

// seedSampleData inserts a small fuzzy-matching data set: misspelled
// customers and mistyped order IDs that still score above a strict
// threshold against the right order.
func seedSampleData(ctx context.Context, store storage.Repository) error {
	date := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	orders := []model.Order{
		{Customer: "Alex Abel", ExternalID: "18G", Date: date("2024-03-01"), Item: "Tool A", PriceCents: 12300},
		{Customer: "Brian Bell", ExternalID: "20S", Date: date("2024-03-05"), Item: "Toy B", PriceCents: 32100},
	}
	if _, err := store.InsertOrders(ctx, orders); err != nil {
		return err
	}

	txns := []model.Transaction{
		{Customer: "Alexis Abe", ExternalID: "1B6", Date: date("2024-03-10"), Item: "Tool A", PriceCents: 12300, Kind: "purchase", AmountCents: 12300},
		{Customer: "Alex Able", ExternalID: "I8G", Date: date("2024-03-20"), Item: "Tool A", PriceCents: 12300, Kind: "refund", AmountCents: -12300},
		{Customer: "Brian Ball", ExternalID: "ZOS", Date: date("2024-03-12"), Item: "Toy B", PriceCents: 32100, Kind: "purchase", AmountCents: 32100},
		{Customer: "Bryan", ExternalID: "705", Date: date("2024-03-15"), Item: "Toy B", PriceCents: 32100, Kind: "purchase", AmountCents: 32100},
	}
	if _, err := store.InsertTransactions(ctx, txns); err != nil {
		return err
	}

	return nil
}

// printSummary prints the matching result to the console.
func printSummary(result *model.MatchingResult, run *storage.MatchRun) {
	fmt.Println(strings.Repeat("-", 60))
	if run != nil {
		fmt.Printf("Run %s: profile=%s threshold=%.2f duration=%dms\n",
			run.ID, run.Profile, run.Threshold, run.DurationMS)
	}
	fmt.Printf("Summary: Groups=%d Matched=%d UnmatchedOrders=%d UnmatchedTransactions=%d\n",
		len(result.Matched),
		result.MatchedTransactions(),
		len(result.UnmatchedOrders),
		len(result.UnmatchedTransactions))

	if len(result.Matched) > 0 {
		fmt.Println("\nMatched groups:")
		for _, group := range result.Matched {
			fmt.Printf("  %-16s (order %s) score=%.3f\n",
				group.Order.Customer, group.Order.ExternalID, group.Score)
			for _, txn := range group.Transactions {
				kind := txn.Kind
				if kind == "" {
					kind = "purchase"
				}
				fmt.Printf("    - %-16s %s %s $%.2f\n",
					txn.Customer, txn.ExternalID, kind, float64(txn.AmountCents)/100)
			}
		}
	}

	if len(result.UnmatchedOrders) > 0 {
		fmt.Println("\nUnmatched orders:")
		for _, o := range result.UnmatchedOrders {
			fmt.Printf("  - %s (%s)\n", o.Customer, o.ExternalID)
		}
	}

	if len(result.UnmatchedTransactions) > 0 {
		fmt.Println("\nUnmatched transactions:")
		for _, t := range result.UnmatchedTransactions {
			fmt.Printf("  - %s (%s)\n", t.Customer, t.ExternalID)
		}
	}
}
