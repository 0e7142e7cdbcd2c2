// Package gems serves the ranked, capped gem list from the token store.
package gems

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/cache"
	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/scoring"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// DefaultMaxGems caps the ranking length.
const DefaultMaxGems = 15

// Options configures an Engine.
type Options struct {
	Store    storage.TokenStore
	Scorer   *scoring.Scorer // DefaultWeights when nil
	CacheTTL time.Duration
	MaxGems  int
	Filter   Filter
	Sink     sink.RankingSink // optional
	Now      func() time.Time
	Logger   *zap.Logger
}

// Status describes the read path for the status endpoint.
type Status struct {
	Buffered   int
	CacheValid bool
	CacheAge   time.Duration
}

// Engine computes rankings on demand: cache, then store snapshot, score,
// sort by score descending and truncate.
type Engine struct {
	store   storage.TokenStore
	scorer  *scoring.Scorer
	cache   *cache.Cache[[]domain.ScoredGem]
	maxGems int
	filter  Filter
	sink    sink.RankingSink
	now     func() time.Time
	logger  *zap.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer(scoring.DefaultWeights())
	}
	if opts.MaxGems <= 0 {
		opts.MaxGems = DefaultMaxGems
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:   opts.Store,
		scorer:  opts.Scorer,
		cache:   cache.New[[]domain.ScoredGem](cache.Options{TTL: opts.CacheTTL, Now: opts.Now}),
		maxGems: opts.MaxGems,
		filter:  opts.Filter,
		sink:    opts.Sink,
		now:     opts.Now,
		logger:  logging.OrNop(opts.Logger),
	}
}

// GetGems returns the current ranking. It never fails; an empty store yields
// an empty list. The returned slice is shared with the cache and must not be modified.
func (e *Engine) GetGems(ctx context.Context) domain.GemList {
	computed := false
	gems, at := e.cache.GetOrCompute(func() []domain.ScoredGem {
		computed = true
		return e.compute(ctx)
	})
	observability.RecordGemsRequest(!computed)
	return domain.GemList{Gems: gems, ComputedAt: at}
}

func (e *Engine) compute(ctx context.Context) []domain.ScoredGem {
	start := time.Now()
	now := e.now()

	records := e.store.SnapshotAll()
	if ev, ok := e.store.(interface{ Evictions() uint64 }); ok {
		observability.UpdateStore(len(records), ev.Evictions())
	}

	// The placeholder only stands in for an otherwise empty store.
	if len(records) > 1 {
		kept := make([]domain.TokenRecord, 0, len(records))
		for _, r := range records {
			if !r.Placeholder {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	gems := make([]domain.ScoredGem, 0, len(records))
	for _, r := range records {
		if !e.filter.Allows(r, now) {
			continue
		}
		gems = append(gems, e.scorer.Score(r, now))
	}

	// Stable: equal scores keep store order, most recent first.
	sort.SliceStable(gems, func(i, j int) bool {
		return gems[i].Score > gems[j].Score
	})
	if len(gems) > e.maxGems {
		gems = gems[:e.maxGems]
	}

	observability.RecordRanking(len(gems), time.Since(start))
	e.logger.Debug("ranking computed",
		zap.Int("buffered", len(records)),
		zap.Int("ranked", len(gems)),
		zap.Duration("elapsed", time.Since(start)))

	if e.sink != nil && !placeholderOnly(gems) {
		_ = e.sink.RecordRanking(ctx, gems, now)
	}
	return gems
}

// Status reports store size and cache age.
func (e *Engine) Status() Status {
	age, ok := e.cache.Age()
	return Status{
		Buffered:   e.store.Len(),
		CacheValid: ok,
		CacheAge:   age,
	}
}

func placeholderOnly(gems []domain.ScoredGem) bool {
	return len(gems) == 0 || (len(gems) == 1 && gems[0].Address == domain.PlaceholderAddress)
}
