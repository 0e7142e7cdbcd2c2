package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/config"
	"github.com/infosolanagold/gem-scanner-backend/internal/redisfeed"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
	chstore "github.com/infosolanagold/gem-scanner-backend/internal/storage/clickhouse"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage/migrations"
	pgstore "github.com/infosolanagold/gem-scanner-backend/internal/storage/postgres"
)

// sideOutputs holds the optional sinks that could be opened.
type sideOutputs struct {
	listings []sink.ListingSink
	rankings []sink.RankingSink
	history  storage.ScorePointStore
	closers  []func()
}

func (o *sideOutputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

// openSideOutputs connects every configured sink. A sink that fails to open
// is logged and left out; the service runs without it.
func openSideOutputs(ctx context.Context, cfg *config.Config, logger *zap.Logger) *sideOutputs {
	out := &sideOutputs{}

	if cfg.PostgresDSN != "" {
		if journal, closeFn, err := openJournal(ctx, cfg.PostgresDSN); err != nil {
			logger.Warn("postgres journal disabled", zap.Error(err))
		} else {
			out.listings = append(out.listings, journal)
			out.closers = append(out.closers, closeFn)
			logger.Info("postgres journal enabled")
		}
	}

	if cfg.ClickhouseDSN != "" {
		if scores, closeFn, err := openScores(ctx, cfg.ClickhouseDSN); err != nil {
			logger.Warn("clickhouse score history disabled", zap.Error(err))
		} else {
			out.rankings = append(out.rankings, scores)
			out.history = scores
			out.closers = append(out.closers, closeFn)
			logger.Info("clickhouse score history enabled")
		}
	}

	if cfg.RedisURL != "" {
		if pub, err := redisfeed.Dial(ctx, cfg.RedisURL, redisfeed.Options{}); err != nil {
			logger.Warn("redis feed disabled", zap.Error(err))
		} else {
			out.listings = append(out.listings, pub)
			out.rankings = append(out.rankings, pub)
			out.closers = append(out.closers, func() { pub.Close() })
			logger.Info("redis feed enabled")
		}
	}

	return out
}

func openJournal(ctx context.Context, dsn string) (*pgstore.SightingJournal, func(), error) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewSightingJournal(pool), pool.Close, nil
}

func openScores(ctx context.Context, dsn string) (*chstore.ScorePointStore, func(), error) {
	if err := chstore.EnsureDatabase(ctx, dsn); err != nil {
		return nil, nil, err
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return chstore.NewScorePointStore(conn), func() { conn.Close() }, nil
}
