// Command snapshot fetches one Birdeye listing page, ranks it and prints the
// result in the /api/gems response shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/api"
	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
	"github.com/infosolanagold/gem-scanner-backend/internal/config"
	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/gems"
	"github.com/infosolanagold/gem-scanner-backend/internal/ingestion"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path := flag.String("path", cfg.Snapshot.Path, "Birdeye listing endpoint path")
	limit := flag.Int("limit", cfg.Snapshot.Limit, "Number of listings to request")
	maxGems := flag.Int("max-gems", cfg.Gems.MaxGems, "Maximum gems to print")
	timeout := flag.Duration("timeout", cfg.Snapshot.Timeout, "Request timeout")
	output := flag.String("output", "", "Write JSON to this file instead of stdout")
	flag.Parse()

	if !cfg.HasAPIKey() {
		fmt.Fprintln(os.Stderr, "Error: BIRDEYE_API_KEY is required")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := birdeye.NewRESTClient(cfg.Birdeye.RESTURL, cfg.Birdeye.APIKey,
		birdeye.WithTimeout(*timeout),
		birdeye.WithMaxRetries(cfg.Birdeye.MaxRetries),
		birdeye.WithRetryDelay(cfg.Birdeye.RetryDelay))

	store := memory.NewTokenStore(cfg.StoreCapacity)
	fetcher := ingestion.NewSnapshotFetcher(ingestion.SnapshotOptions{
		Source:  client,
		Query:   birdeye.ListingQuery{Path: *path, Limit: *limit},
		Timeout: *timeout,
		Logger:  logger,
	})

	seeded := fetcher.Seed(context.Background(), store)
	logger.Info("snapshot complete", zap.Int("records", seeded))

	engine := gems.New(gems.Options{
		Store:   store,
		MaxGems: *maxGems,
		Filter: gems.Filter{
			MinMarketCap: cfg.Filter.MinMarketCap,
			MaxMarketCap: cfg.Filter.MaxMarketCap,
			MinVolume:    cfg.Filter.MinVolume,
			MaxAge:       cfg.Filter.MaxAge,
		},
		Logger: logger,
	})
	list := engine.GetGems(context.Background())

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal("create output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	if err := writeGems(w, list); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
	if seeded == 0 {
		os.Exit(2)
	}
}

func writeGems(w io.Writer, list domain.GemList) error {
	out := list.Gems
	if out == nil {
		out = []domain.ScoredGem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(api.GemsResponse{
		Gems:    out,
		Count:   len(out),
		Updated: list.ComputedAt.UTC().Format(time.RFC3339),
	})
}
