package cache

import (
	"context"
)

type lookupTable interface {
	GetLookup(ctx context.Context, key string) ([]byte, bool, error)
	PutLookup(ctx context.Context, key string, value []byte) error
}

// PostgresStore keeps lookups across restarts in the lookup_cache table.
type PostgresStore struct {
	Table lookupTable
}

func NewPostgresStore(table lookupTable) *PostgresStore {
	return &PostgresStore{Table: table}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, ok, err := p.Table.GetLookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMiss
	}
	return raw, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return p.Table.PutLookup(ctx, key, value)
}
