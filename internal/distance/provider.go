// Package distance answers point-to-point travel cost lookups.
package distance

import (
	"context"

	"github.com/visitplan/backend/internal/models"
)

// Result is the travel cost between two points.
type Result struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// BatchResult pairs one destination's result with its own failure.
type BatchResult struct {
	Result
	Err error `json:"-"`
}

// Provider returns travel distance and estimated duration between two points.
type Provider interface {
	TravelCost(ctx context.Context, from, to models.Coordinates) (Result, error)
}

// BatchProvider is the optional one-origin-to-many extension.
type BatchProvider interface {
	Provider
	TravelCosts(ctx context.Context, from models.Coordinates, to []models.Coordinates) ([]BatchResult, error)
}

// TravelCosts uses the batched path when p supports it and falls back to
// sequential single lookups otherwise.
func TravelCosts(ctx context.Context, p Provider, from models.Coordinates, to []models.Coordinates) ([]BatchResult, error) {
	if bp, ok := p.(BatchProvider); ok {
		return bp.TravelCosts(ctx, from, to)
	}
	out := make([]BatchResult, len(to))
	for i, dest := range to {
		r, err := p.TravelCost(ctx, from, dest)
		out[i] = BatchResult{Result: r, Err: err}
	}
	return out, nil
}
