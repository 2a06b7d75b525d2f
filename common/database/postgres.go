package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-rppg/common/config"

	_ "github.com/lib/pq"
)

const (
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open returns a Postgres pool for cfg that has answered one ping.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	configurePool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

func configurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	idle := cfg.MaxIdle
	if cfg.MaxConns > 0 && idle > cfg.MaxConns {
		idle = cfg.MaxConns
	}
	if idle > 0 {
		db.SetMaxIdleConns(idle)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
}
