// Package main runs the gem scanner service:
// - Snapshot seed at startup (Birdeye REST)
// - Live listener (Birdeye WebSocket)
// - HTTP API (/api/gems, /status, /health, /metrics)
// - Optional side outputs (Postgres journal, ClickHouse scores, Redis feed)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/infosolanagold/gem-scanner-backend/internal/api"
	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
	"github.com/infosolanagold/gem-scanner-backend/internal/config"
	"github.com/infosolanagold/gem-scanner-backend/internal/gems"
	"github.com/infosolanagold/gem-scanner-backend/internal/ingestion"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage/memory"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store := memory.NewTokenStore(cfg.StoreCapacity)

	outputs := openSideOutputs(ctx, cfg, logger)
	defer outputs.Close()

	dispatcher := sink.NewDispatcher(sink.DispatcherOptions{
		Listings: outputs.listings,
		Rankings: outputs.rankings,
		Logger:   logger.Named("sink"),
	})
	if dispatcher.Empty() {
		logger.Info("no side outputs configured")
	}

	var (
		source ingestion.ListingSource
		dialer ingestion.FeedDialer
	)
	if cfg.HasAPIKey() {
		source = birdeye.NewRESTClient(cfg.Birdeye.RESTURL, cfg.Birdeye.APIKey,
			birdeye.WithTimeout(cfg.Snapshot.Timeout),
			birdeye.WithMaxRetries(cfg.Birdeye.MaxRetries),
			birdeye.WithRetryDelay(cfg.Birdeye.RetryDelay))
		dialer = ingestion.BirdeyeFeed{
			Dialer: birdeye.NewWSDialer(cfg.Birdeye.WSURL, cfg.Birdeye.APIKey, nil),
		}
	} else {
		logger.Warn("BIRDEYE_API_KEY not set: snapshot and live feed disabled")
	}

	fetcher := ingestion.NewSnapshotFetcher(ingestion.SnapshotOptions{
		Source:  source,
		Query:   birdeye.ListingQuery{Path: cfg.Snapshot.Path, Limit: cfg.Snapshot.Limit},
		Timeout: cfg.Snapshot.Timeout,
		Sink:    dispatcher,
		Logger:  logger.Named("snapshot"),
	})

	listener := ingestion.NewListener(ingestion.ListenerOptions{
		Dialer:      dialer,
		Store:       store,
		Sink:        dispatcher,
		BaseDelay:   cfg.Listener.BaseDelay,
		MaxDelay:    cfg.Listener.MaxDelay,
		IdleTimeout: cfg.Listener.IdleTimeout,
		Logger:      logger.Named("listener"),
	})

	engine := gems.New(gems.Options{
		Store:    store,
		CacheTTL: cfg.Gems.CacheTTL,
		MaxGems:  cfg.Gems.MaxGems,
		Filter: gems.Filter{
			MinMarketCap: cfg.Filter.MinMarketCap,
			MaxMarketCap: cfg.Filter.MaxMarketCap,
			MinVolume:    cfg.Filter.MinVolume,
			MaxAge:       cfg.Filter.MaxAge,
		},
		Sink:   dispatcher,
		Logger: logger.Named("gems"),
	})

	srv := api.NewServer(api.Options{
		Ranker:      engine,
		Feed:        listener,
		Sinks:       dispatcher,
		History:     outputs.history,
		KeySet:      cfg.HasAPIKey(),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger.Named("http"),
	}).HTTPServer(cfg.Addr())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	// The snapshot seeds the store before live listings start arriving.
	seeded := fetcher.Seed(gctx, store)
	logger.Info("store seeded", zap.Int("records", seeded), zap.Int("buffered", store.Len()))

	g.Go(func() error {
		return listener.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
