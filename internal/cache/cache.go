// Package cache provides the read-through lookup cache shared by the
// geocoding and travel-cost collaborators. One cache is built per process
// and handed to the providers that use it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// GetJSON decodes a cached value into dest. It reports false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Tiered reads stores in order and back-fills faster tiers on a slower hit.
// Writes go to every tier; the first write error is returned after all
// tiers have been attempted.
type Tiered struct {
	Stores []Store
}

func NewTiered(stores ...Store) *Tiered {
	out := make([]Store, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Tiered{Stores: out}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	for i, s := range t.Stores {
		raw, err := s.Get(ctx, key)
		if errors.Is(err, ErrMiss) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cache tier %d: %w", i, err)
		}
		for j := 0; j < i; j++ {
			_ = t.Stores[j].Set(ctx, key, raw)
		}
		return raw, nil
	}
	return nil, ErrMiss
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	var first error
	for i, s := range t.Stores {
		if err := s.Set(ctx, key, value); err != nil && first == nil {
			first = fmt.Errorf("cache tier %d: %w", i, err)
		}
	}
	return first
}

// Purge empties every tier that supports it.
func (t *Tiered) Purge() int {
	purged := 0
	for _, s := range t.Stores {
		if p, ok := s.(interface{ Purge() int }); ok {
			purged += p.Purge()
		}
	}
	return purged
}
