package storage

import (
	"context"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// TokenStore is the bounded, deduplicated working set shared by ingestion and the read path.
type TokenStore interface {
	// Upsert inserts or replaces the record keyed by Address and moves it to the
	// most-recent position. Returns ErrInvalidInput for an empty address.
	Upsert(rec domain.TokenRecord) error

	// SnapshotAll returns a point-in-time copy ordered most-recent-first.
	SnapshotAll() []domain.TokenRecord

	// Len returns the number of buffered records.
	Len() int
}

// SightingJournal provides access to token_sightings storage.
type SightingJournal interface {
	// Insert adds a sighting. Returns ErrDuplicateKey if sighting_id exists.
	Insert(ctx context.Context, s *domain.Sighting) error

	// GetByAddress retrieves all sightings of a token, ordered by observed_at ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.Sighting, error)

	// GetByTimeRange retrieves sightings observed within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Sighting, error)
}

// ScorePointStore provides access to gem_scores storage.
type ScorePointStore interface {
	// InsertBulk appends one computed ranking. Rows are append-only.
	InsertBulk(ctx context.Context, points []*domain.ScorePoint) error

	// GetByAddress retrieves the score history of a token, ordered by computed_at ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.ScorePoint, error)
}
