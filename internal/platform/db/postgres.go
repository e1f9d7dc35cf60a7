package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const appName = "ledgerbridge"

// Pool sizing covers the orchestrator's bounded parallel ledger attempts
// plus the worker's scheduled jobs against the same database.
const (
	defaultMaxConns    = 16
	defaultMinConns    = 2
	healthCheckPeriod  = 30 * time.Second
	maxConnIdleTimeout = 5 * time.Minute
)

// New creates the PostgreSQL connection pool shared by the API server and
// the worker.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	config.ConnConfig.RuntimeParams["application_name"] = appName
	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	config.HealthCheckPeriod = healthCheckPeriod
	config.MaxConnIdleTime = maxConnIdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
