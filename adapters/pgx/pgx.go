// Package pgx keeps the bearer token in a PostgreSQL table keyed by
// profile.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/volunteer/core"
)

const (
	DefaultProfile = "default"
	DefaultTimeout = 3 * time.Second
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS console_tokens (
	profile    TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectSQL = `SELECT token FROM console_tokens WHERE profile = $1`
	upsertSQL = `INSERT INTO console_tokens (profile, token, updated_at) VALUES ($1, $2, now())
ON CONFLICT (profile) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`
	deleteSQL = `DELETE FROM console_tokens WHERE profile = $1`
)

// dbtx is the subset of *pgxpool.Pool the store uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Adapter struct {
	db      dbtx
	profile string
	timeout time.Duration
}

var _ core.TokenStore = (*Adapter)(nil)

func New(pool *pgxpool.Pool, profile string) *Adapter {
	return newAdapter(pool, profile)
}

// Connect opens a pool for dsn and makes sure the table exists.
func Connect(ctx context.Context, dsn, profile string) (*Adapter, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	a := New(pool, profile)
	if err := a.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return a, pool.Close, nil
}

func newAdapter(db dbtx, profile string) *Adapter {
	if profile == "" {
		profile = DefaultProfile
	}
	return &Adapter{db: db, profile: profile, timeout: DefaultTimeout}
}

func (a *Adapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create console_tokens: %w", err)
	}
	return nil
}

func (a *Adapter) Read() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var token string
	err := a.db.QueryRow(ctx, selectSQL, a.profile).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func (a *Adapter) Write(token string) error {
	if token == "" {
		return a.Clear()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if _, err := a.db.Exec(ctx, upsertSQL, a.profile, token); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func (a *Adapter) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if _, err := a.db.Exec(ctx, deleteSQL, a.profile); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
