package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// ScorePointStore implements storage.ScorePointStore using ClickHouse.
type ScorePointStore struct {
	conn *Conn
}

// NewScorePointStore creates a new ScorePointStore.
func NewScorePointStore(conn *Conn) *ScorePointStore {
	return &ScorePointStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.ScorePointStore = (*ScorePointStore)(nil)
	_ sink.RankingSink        = (*ScorePointStore)(nil)
)

// Name implements sink.Named.
func (s *ScorePointStore) Name() string { return "clickhouse_scores" }

// InsertBulk appends points in one batch. Rows are append-only; nothing is deduplicated.
func (s *ScorePointStore) InsertBulk(ctx context.Context, points []*domain.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	start := time.Now()
	err := s.insert(ctx, points)
	observability.RecordDBQuery("clickhouse", "insert_scores", time.Since(start).Seconds(), err)
	return err
}

func (s *ScorePointStore) insert(ctx context.Context, points []*domain.ScorePoint) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO gem_scores (
			computed_at, rank, address, symbol, score,
			risk, provenance, market_cap, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			uint64(p.ComputedAt), uint16(p.Rank), p.Address, p.Symbol, p.Score,
			string(p.Risk), string(p.Provenance), p.MarketCap, p.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// RecordRanking stores one ranking as rank-ordered rows.
func (s *ScorePointStore) RecordRanking(ctx context.Context, gems []domain.ScoredGem, computedAt time.Time) error {
	return s.InsertBulk(ctx, PointsFromRanking(gems, computedAt))
}

// PointsFromRanking converts a ranking to rows, rank starting at 1.
func PointsFromRanking(gems []domain.ScoredGem, computedAt time.Time) []*domain.ScorePoint {
	at := computedAt.UnixMilli()
	points := make([]*domain.ScorePoint, 0, len(gems))
	for i, g := range gems {
		points = append(points, &domain.ScorePoint{
			ComputedAt: at,
			Rank:       i + 1,
			Address:    g.Address,
			Symbol:     g.Symbol,
			Score:      g.Score,
			Risk:       g.Risk,
			Provenance: g.Provenance,
			MarketCap:  g.MarketCap,
			Volume:     g.Volume,
		})
	}
	return points
}

// GetByAddress retrieves a token's score history, ordered by computed_at ASC.
func (s *ScorePointStore) GetByAddress(ctx context.Context, address string) ([]*domain.ScorePoint, error) {
	query := `
		SELECT computed_at, rank, address, symbol, score, risk, provenance, market_cap, volume
		FROM gem_scores
		WHERE address = ?
		ORDER BY computed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query by address: %w", err)
	}
	defer rows.Close()

	return scanScorePoints(rows)
}

// GetRanking retrieves the ranking computed at computedAt (ms), ordered by rank.
func (s *ScorePointStore) GetRanking(ctx context.Context, computedAt int64) ([]*domain.ScorePoint, error) {
	query := `
		SELECT computed_at, rank, address, symbol, score, risk, provenance, market_cap, volume
		FROM gem_scores
		WHERE computed_at = ?
		ORDER BY rank ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(computedAt))
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	return scanScorePoints(rows)
}

func scanScorePoints(rows chRows) ([]*domain.ScorePoint, error) {
	var points []*domain.ScorePoint

	for rows.Next() {
		var p domain.ScorePoint
		var computedAt uint64
		var rank uint16
		var risk, provenance string

		err := rows.Scan(
			&computedAt, &rank, &p.Address, &p.Symbol, &p.Score,
			&risk, &provenance, &p.MarketCap, &p.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}

		p.ComputedAt = int64(computedAt)
		p.Rank = int(rank)
		p.Risk = domain.Risk(risk)
		p.Provenance = domain.Provenance(provenance)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return points, nil
}
