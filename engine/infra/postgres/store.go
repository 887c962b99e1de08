package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

const (
	defaultMaxConns    = 20
	defaultPingTimeout = 3 * time.Second
)

// Store is the concrete PostgreSQL driver backed by pgxpool.Pool.
// It intentionally does not leak pgx types through its public API.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore initializes the pgx pool from the database config and verifies the
// connection with a ping.
func NewStore(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = defaultMaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	logger.FromContext(ctx).Info("Postgres store initialized",
		"host", cfg.Host, "database", cfg.DBName, "max_conns", poolCfg.MaxConns)
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	logger.FromContext(ctx).Info("Postgres store closed")
	return nil
}

// Pool exposes the internal pool for driver-local usage. Do not export pgx
// types through higher layers; keep them local to the driver.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// HealthCheck verifies the connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.pool.Ping(hctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// dsn synthesizes a connection string from the individual fields when no
// explicit one is configured.
func dsn(cfg *config.DatabaseConfig) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password.Value(), cfg.Host, cfg.Port, cfg.DBName, sslMode)
}
