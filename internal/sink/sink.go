// Package sink fans token sightings and rankings out to optional side outputs
// (journals, caches, pub/sub) without blocking the ingestion or read path.
package sink

import (
	"context"
	"time"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// ListingSink receives every token observation written to the store.
type ListingSink interface {
	RecordListing(ctx context.Context, rec domain.TokenRecord) error
}

// RankingSink receives every freshly computed ranking.
type RankingSink interface {
	RecordRanking(ctx context.Context, gems []domain.ScoredGem, computedAt time.Time) error
}

// Named is implemented by sinks that report a label for logs and metrics.
type Named interface {
	Name() string
}

func nameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return "unnamed"
}
