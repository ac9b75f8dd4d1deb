package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migrate creates the lookup cache table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS lookup_cache (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
			return fmt.Errorf("create lookup_cache: %w", err)
		}
		if _, err := tx.Exec(ctx, `CREATE INDEX IF NOT EXISTS lookup_cache_updated_at_idx ON lookup_cache (updated_at)`); err != nil {
			return fmt.Errorf("create lookup_cache index: %w", err)
		}
		return nil
	})
}

func (s *Store) GetLookup(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.Pool.QueryRow(ctx, `SELECT value FROM lookup_cache WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get lookup %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) PutLookup(ctx context.Context, key string, value []byte) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO lookup_cache (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("put lookup %q: %w", key, err)
	}
	return nil
}

// PurgeLookupsBefore deletes cached lookups last written before cutoff.
func (s *Store) PurgeLookupsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM lookup_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge lookups: %w", err)
	}
	return tag.RowsAffected(), nil
}
