package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/idhash"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// SightingJournal implements storage.SightingJournal using PostgreSQL.
type SightingJournal struct {
	pool *Pool
}

// NewSightingJournal creates a new SightingJournal.
func NewSightingJournal(pool *Pool) *SightingJournal {
	return &SightingJournal{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.SightingJournal = (*SightingJournal)(nil)
	_ sink.ListingSink        = (*SightingJournal)(nil)
)

// Name implements sink.Named.
func (s *SightingJournal) Name() string { return "postgres_journal" }

// Insert adds a sighting. Returns ErrDuplicateKey if sighting_id exists.
func (s *SightingJournal) Insert(ctx context.Context, sg *domain.Sighting) error {
	query := `
		INSERT INTO token_sightings (
			sighting_id, address, symbol, provenance,
			market_cap, volume, liquidity, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		sg.SightingID,
		sg.Address,
		sg.Symbol,
		string(sg.Provenance),
		sg.MarketCap,
		sg.Volume,
		sg.Liquidity,
		sg.ObservedAt,
	)
	observability.RecordDBQuery("postgres", "insert_sighting", time.Since(start).Seconds(), ignoreDuplicate(err))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

// RecordListing journals rec. Replays of the same observation are ignored.
func (s *SightingJournal) RecordListing(ctx context.Context, rec domain.TokenRecord) error {
	sg := SightingFromRecord(rec)
	if err := s.Insert(ctx, sg); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return err
	}
	return nil
}

// SightingFromRecord builds the journal row for rec.
func SightingFromRecord(rec domain.TokenRecord) *domain.Sighting {
	observedAt := rec.ObservedAt.UnixMilli()
	return &domain.Sighting{
		SightingID: idhash.SightingID(rec.Address, rec.Provenance, observedAt),
		Address:    rec.Address,
		Symbol:     rec.Symbol,
		Provenance: rec.Provenance,
		MarketCap:  rec.MarketCap,
		Volume:     rec.Volume,
		Liquidity:  rec.Liquidity,
		ObservedAt: observedAt,
	}
}

// GetByID retrieves a sighting by id. Returns ErrNotFound if not exists.
func (s *SightingJournal) GetByID(ctx context.Context, sightingID string) (*domain.Sighting, error) {
	query := `
		SELECT sighting_id, address, symbol, provenance,
			market_cap, volume, liquidity, observed_at, created_at
		FROM token_sightings
		WHERE sighting_id = $1
	`

	sg, err := scanSighting(s.pool.QueryRow(ctx, query, sightingID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sighting by id: %w", err)
	}
	return sg, nil
}

// GetByAddress retrieves all sightings of a token, ordered by observed_at ASC.
func (s *SightingJournal) GetByAddress(ctx context.Context, address string) ([]*domain.Sighting, error) {
	query := `
		SELECT sighting_id, address, symbol, provenance,
			market_cap, volume, liquidity, observed_at, created_at
		FROM token_sightings
		WHERE address = $1
		ORDER BY observed_at ASC, sighting_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query sightings by address: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

// GetByTimeRange retrieves sightings with observed_at in [start, end] (inclusive, ms).
func (s *SightingJournal) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Sighting, error) {
	query := `
		SELECT sighting_id, address, symbol, provenance,
			market_cap, volume, liquidity, observed_at, created_at
		FROM token_sightings
		WHERE observed_at >= $1 AND observed_at <= $2
		ORDER BY observed_at ASC, sighting_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query sightings by time range: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

func scanSighting(row pgx.Row) (*domain.Sighting, error) {
	var sg domain.Sighting
	var provenance string

	err := row.Scan(
		&sg.SightingID,
		&sg.Address,
		&sg.Symbol,
		&provenance,
		&sg.MarketCap,
		&sg.Volume,
		&sg.Liquidity,
		&sg.ObservedAt,
		&sg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sg.Provenance = domain.Provenance(provenance)
	return &sg, nil
}

func scanSightings(rows pgx.Rows) ([]*domain.Sighting, error) {
	var out []*domain.Sighting
	for rows.Next() {
		sg, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sighting row: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sighting rows: %w", err)
	}
	return out, nil
}

func ignoreDuplicate(err error) error {
	if isDuplicateKeyError(err) {
		return nil
	}
	return err
}
