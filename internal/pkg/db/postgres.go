// Package db owns the PostgreSQL pool, the schema and the catalog seed.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"coinchat/internal/config"
)

const applicationName = "coinchat"

// Pool is the shared pgx pool plus the lifecycle hooks cmd/server needs.
type Pool struct {
	*pgxpool.Pool
}

// poolConfig maps the database section onto a pgxpool config. Zero values
// keep pgx's own defaults, and MinConns never exceeds the pool size.
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.PoolSize > 0 {
		pc.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = min(int32(cfg.MinConns), pc.MaxConns)
	}
	if cfg.ConnectTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	// Shows up in pg_stat_activity next to the ledger's row locks.
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

// NewPool opens the pool and pings the server once.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", pc.MaxConns).
		Int32("min_conns", pc.MinConns).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")
	return &Pool{Pool: pool}, nil
}

// Close closes the pool.
func (p *Pool) Close() {
	if p.Pool == nil {
		return
	}
	p.Pool.Close()
	log.Info().Msg("PostgreSQL connection pool closed")
}

// LogStats writes current pool usage at debug level.
func (p *Pool) LogStats() {
	st := p.Pool.Stat()
	log.Debug().
		Int32("total_conns", st.TotalConns()).
		Int32("idle_conns", st.IdleConns()).
		Int32("acquired_conns", st.AcquiredConns()).
		Int64("acquire_count", st.AcquireCount()).
		Int64("empty_acquire_count", st.EmptyAcquireCount()).
		Dur("acquire_duration", st.AcquireDuration()).
		Msg("PostgreSQL pool stats")
}

// HealthCheck pings the server with a short deadline. It backs /health.
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Pool.Ping(ctx)
}
