package ingestion

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/normalization"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// DefaultSnapshotTimeout bounds the startup snapshot request.
const DefaultSnapshotTimeout = 10 * time.Second

// Snapshot fetch outcomes, used as metric labels.
const (
	snapshotOK        = "ok"
	snapshotEmpty     = "empty"
	snapshotSkipped   = "skipped"
	snapshotTimeout   = "timeout"
	snapshotHTTPError = "http_error"
	snapshotError     = "error"
	snapshotMalformed = "malformed"
)

// SnapshotOptions configures a SnapshotFetcher.
type SnapshotOptions struct {
	// Source is nil when no credential is configured; the fetch is then skipped.
	Source  ListingSource
	Query   birdeye.ListingQuery
	Timeout time.Duration
	Sink    sink.ListingSink // optional
	Logger  *zap.Logger
	Now     func() time.Time
}

// SnapshotFetcher pulls one page of current listings to seed the store.
type SnapshotFetcher struct {
	source  ListingSource
	query   birdeye.ListingQuery
	timeout time.Duration
	sink    sink.ListingSink
	logger  *zap.Logger
	now     func() time.Time
}

// NewSnapshotFetcher creates a fetcher.
func NewSnapshotFetcher(opts SnapshotOptions) *SnapshotFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSnapshotTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SnapshotFetcher{
		source:  opts.Source,
		query:   opts.Query,
		timeout: opts.Timeout,
		sink:    opts.Sink,
		logger:  logging.OrNop(opts.Logger),
		now:     opts.Now,
	}
}

// Fetch issues one bounded request and returns the normalized records with
// provenance SNAPSHOT, in upstream order. Every failure is logged and yields nil.
func (f *SnapshotFetcher) Fetch(ctx context.Context) []domain.TokenRecord {
	if f.source == nil {
		f.logger.Warn("snapshot skipped: birdeye api key not configured")
		observability.RecordSnapshot(snapshotSkipped, 0, 0)
		return nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.source.FetchListing(ctx, f.query)
	if err != nil {
		status := classifyFetchError(ctx, err)
		f.logger.Warn("snapshot fetch failed",
			zap.String("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		observability.RecordSnapshot(status, 0, time.Since(start))
		return nil
	}

	records, dropped, err := normalization.NormalizeList(body, domain.ProvenanceSnapshot, f.now())
	if err != nil {
		f.logger.Warn("snapshot payload malformed", zap.Int("bytes", len(body)), zap.Error(err))
		observability.RecordSnapshot(snapshotMalformed, 0, time.Since(start))
		return nil
	}

	status := snapshotOK
	if len(records) == 0 {
		status = snapshotEmpty
	}
	f.logger.Info("snapshot fetched",
		zap.Int("records", len(records)),
		zap.Int("dropped", dropped),
		zap.Duration("elapsed", time.Since(start)))
	observability.RecordSnapshot(status, len(records), time.Since(start))
	return records
}

// Seed fetches the snapshot and upserts it into store so the first upstream
// item ends up most recent. When nothing usable comes back it upserts a
// single placeholder record instead. Returns the number of real records seeded.
func (f *SnapshotFetcher) Seed(ctx context.Context, store storage.TokenStore) int {
	records := f.Fetch(ctx)

	seeded := 0
	for i := len(records) - 1; i >= 0; i-- {
		if err := store.Upsert(records[i]); err != nil {
			f.logger.Warn("snapshot upsert failed", zap.String("address", records[i].Address), zap.Error(err))
			continue
		}
		seeded++
		if f.sink != nil {
			if err := f.sink.RecordListing(ctx, records[i]); err != nil {
				f.logger.Debug("listing sink rejected record", zap.String("address", records[i].Address), zap.Error(err))
			}
		}
	}

	if seeded == 0 {
		if err := store.Upsert(domain.NewPlaceholder(f.now())); err != nil {
			f.logger.Debug("placeholder upsert failed", zap.Error(err))
		} else {
			f.logger.Info("store seeded with placeholder")
		}
	}
	return seeded
}

func classifyFetchError(ctx context.Context, err error) string {
	var apiErr *birdeye.APIError
	switch {
	case errors.As(err, &apiErr):
		return snapshotHTTPError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return snapshotTimeout
	default:
		return snapshotError
	}
}
