package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Pool defaults for the wallet's short transactions
const (
	defaultMaxConns          = 20
	defaultMinConns          = 2
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = 30 * time.Second
)

// DB wraps the pgx pool shared by every Postgres unit of work
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens and pings a pool. Pool settings in the URL
// (pool_max_conns and friends) take precedence over the defaults.
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "noblechain"
	applyPoolDefaults(cfg, databaseURL)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(log.Fields{
		"host":     cfg.ConnConfig.Host,
		"database": cfg.ConnConfig.Database,
		"maxConns": cfg.MaxConns,
	}).Info("Database pool ready")
	return &DB{Pool: pool}, nil
}

func applyPoolDefaults(cfg *pgxpool.Config, databaseURL string) {
	if !hasParam(databaseURL, "pool_max_conns") {
		cfg.MaxConns = defaultMaxConns
	}
	if !hasParam(databaseURL, "pool_min_conns") {
		cfg.MinConns = defaultMinConns
	}
	if !hasParam(databaseURL, "pool_max_conn_idle_time") {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if !hasParam(databaseURL, "pool_health_check_period") {
		cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	}
}

// Close releases every pooled connection
func (db *DB) Close() {
	db.Pool.Close()
}
