package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemorySize = 10000
	DefaultMemoryTTL  = 24 * time.Hour
)

// MemoryStore is the bounded in-process tier: least recently used entries
// are evicted past size, and every entry expires after ttl.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.lru.Len()
}

// Purge drops every entry and returns how many were held.
func (m *MemoryStore) Purge() int {
	n := m.lru.Len()
	m.lru.Purge()
	return n
}
