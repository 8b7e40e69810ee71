package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/config"
)

// Pool wraps the pgx connection pool used by the repositories
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool creates and pings a connection pool from configuration
func NewPool(cfg *config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pgxCfg.MaxConnIdleTime = 10 * time.Minute
	pgxCfg.HealthCheckPeriod = time.Minute
	pgxCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pgxCfg.ConnConfig.RuntimeParams = map[string]string{
		"application_name":  "auction_backend",
		"timezone":          "UTC",
		"lock_timeout":      "10s",
		"statement_timeout": "30s",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection pool initialized",
		zap.Int("max_connections", int(pgxCfg.MaxConns)))

	return &Pool{pool: pool, logger: logger}, nil
}

// Pgx returns the underlying pgx pool
func (p *Pool) Pgx() *pgxpool.Pool {
	return p.pool
}

// DB returns a standard database/sql handle over the same pool
func (p *Pool) DB() *sql.DB {
	return stdlib.OpenDBFromPool(p.pool)
}

// Close closes the pool
func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Info("database connection pool closed")
}
