package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgreDB struct {
	Pool     *pgxpool.Pool
	DBConfig *pgxpool.Config
}

type Config interface {
	GetDSN() string
}

// PoolConfig is implemented by configs that also tune the pool.
type PoolConfig interface {
	Config
	PoolLimits() (maxConns, minConns int32, lifetime, idle time.Duration)
}

func New(ctx context.Context, config Config) (*PostgreDB, error) {
	dbConfig, err := pgxpool.ParseConfig(config.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	if pc, ok := config.(PoolConfig); ok {
		applyPoolLimits(dbConfig, pc)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgreDB{
		Pool:     pool,
		DBConfig: dbConfig,
	}, nil
}

func applyPoolLimits(dst *pgxpool.Config, pc PoolConfig) {
	maxConns, minConns, lifetime, idle := pc.PoolLimits()
	if maxConns > 0 {
		dst.MaxConns = maxConns
	}
	if minConns > 0 && minConns <= dst.MaxConns {
		dst.MinConns = minConns
	}
	if lifetime > 0 {
		dst.MaxConnLifetime = lifetime
	}
	if idle > 0 {
		dst.MaxConnIdleTime = idle
	}
}
