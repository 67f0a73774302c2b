// Package db persists incident records for critical alerts.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
    id                    TEXT PRIMARY KEY,
    title                 TEXT NOT NULL,
    severity              TEXT NOT NULL,
    priority              TEXT NOT NULL,
    patient_safety_impact BOOLEAN NOT NULL DEFAULT FALSE,
    affected_services     TEXT[] NOT NULL DEFAULT '{}',
    medical_specialty     TEXT NOT NULL DEFAULT '',
    persona               TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL,
    response_teams        TEXT[] NOT NULL DEFAULT '{}',
    status                TEXT NOT NULL,
    actions               TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS incidents_created_at_idx ON incidents (created_at DESC);`

// Migrate creates the incident table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
