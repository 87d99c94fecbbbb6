// Package postgres persists the state document as a single jsonb row,
// giving the same whole-snapshot semantics as the file backend with the
// operational properties of Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/store"
)

// The document lives in one fixed row; every save overwrites it.
const (
	schemaSQL = `
		CREATE TABLE IF NOT EXISTS app_state (
			id         INT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	docRowID = 1
)

// Backend is a Postgres-backed store.Backend.
type Backend struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, verifies the connection, and ensures the
// app_state table exists.
func New(ctx context.Context, dsn string) (*Backend, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure app_state table: %w", err)
	}

	return &Backend{pool: pool}, nil
}

// Close closes the connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Load reads the persisted document. Returns (nil, nil) when the row has
// never been written.
func (b *Backend) Load(ctx context.Context) (*domain.AppState, error) {
	var data []byte
	err := b.pool.QueryRow(ctx,
		`SELECT doc FROM app_state WHERE id = $1`, docRowID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select app_state: %w", err)
	}

	var state domain.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: decode app_state row: %v", store.ErrCorruptState, err)
	}
	return &state, nil
}

// Save upserts the whole document into the fixed row.
func (b *Backend) Save(ctx context.Context, state *domain.AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO app_state (id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		docRowID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert app_state: %w", err)
	}
	return nil
}
