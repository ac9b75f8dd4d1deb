package distance

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/cache"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

// CachedProvider is a read-through cache in front of another provider,
// keyed by the coordinate pair rounded to five decimals (about a metre).
type CachedProvider struct {
	Next    Provider
	Cache   cache.Store
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func NewCachedProvider(next Provider, store cache.Store, m *metrics.Metrics, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{Next: next, Cache: store, Metrics: m, Logger: logger}
}

func (c *CachedProvider) TravelCost(ctx context.Context, from, to models.Coordinates) (Result, error) {
	key := utils.CacheKey("dist", pairKey(from, to))

	var cached Result
	ok, err := cache.GetJSON(ctx, c.Cache, key, &cached)
	if err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("distance cache read failed")
	}
	c.Metrics.LookupCache("distance", ok)
	if ok {
		return cached, nil
	}

	r, err := c.Next.TravelCost(ctx, from, to)
	if err != nil {
		return Result{}, err
	}
	if err := cache.SetJSON(ctx, c.Cache, key, r); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("distance cache write failed")
	}
	return r, nil
}

// TravelCosts serves hits from the cache and sends only the misses to the
// next provider in one batch.
func (c *CachedProvider) TravelCosts(ctx context.Context, from models.Coordinates, to []models.Coordinates) ([]BatchResult, error) {
	out := make([]BatchResult, len(to))
	var (
		missIdx    []int
		missCoords []models.Coordinates
	)
	for i, dest := range to {
		var cached Result
		ok, err := cache.GetJSON(ctx, c.Cache, utils.CacheKey("dist", pairKey(from, dest)), &cached)
		if err != nil {
			c.Logger.Warn().Err(err).Msg("distance cache read failed")
		}
		c.Metrics.LookupCache("distance", ok)
		if ok {
			out[i] = BatchResult{Result: cached}
			continue
		}
		missIdx = append(missIdx, i)
		missCoords = append(missCoords, dest)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	fetched, err := TravelCosts(ctx, c.Next, from, missCoords)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = fetched[j]
		if fetched[j].Err != nil {
			continue
		}
		key := utils.CacheKey("dist", pairKey(from, missCoords[j]))
		if err := cache.SetJSON(ctx, c.Cache, key, fetched[j].Result); err != nil {
			c.Logger.Warn().Err(err).Str("key", key).Msg("distance cache write failed")
		}
	}
	return out, nil
}
