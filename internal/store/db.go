package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/docingest/internal/config"
	"github.com/kiranshivaraju/docingest/internal/retry"
)

const (
	connectAttempts  = 5
	connectBaseDelay = 500 * time.Millisecond
	applicationName  = "docingest"
)

// Connect opens a pool and waits for the database to answer a ping, retrying
// while it is still starting up.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: connectAttempts,
		BaseDelay:   connectBaseDelay,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			slog.Warn("database not ready", "attempt", attempt, "retry_in", wait, "error", err)
		},
	}
	err = retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
