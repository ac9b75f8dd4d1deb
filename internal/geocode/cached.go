package geocode

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/cache"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/utils"
)

// CachedGeocoder is a read-through cache keyed by the normalized address.
// Failures are never cached.
type CachedGeocoder struct {
	Next    Geocoder
	Cache   cache.Store
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func NewCachedGeocoder(next Geocoder, store cache.Store, m *metrics.Metrics, logger zerolog.Logger) *CachedGeocoder {
	return &CachedGeocoder{Next: next, Cache: store, Metrics: m, Logger: logger}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (Result, error) {
	key := utils.CacheKey("geo", NormalizeAddress(address))

	var cached Result
	ok, err := cache.GetJSON(ctx, c.Cache, key, &cached)
	if err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
	}
	c.Metrics.LookupCache("geocode", ok)
	if ok {
		return cached, nil
	}

	res, err := c.Next.Geocode(ctx, address)
	if err != nil {
		return Result{}, err
	}
	if err := cache.SetJSON(ctx, c.Cache, key, res); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
	return res, nil
}
