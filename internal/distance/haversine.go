package distance

import (
	"context"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

// HaversineProvider estimates travel from great-circle distance. It never fails.
type HaversineProvider struct{}

func (HaversineProvider) TravelCost(_ context.Context, from, to models.Coordinates) (Result, error) {
	return Estimate(from, to), nil
}

// Estimate is the geodesic fallback used whenever a lookup fails.
func Estimate(from, to models.Coordinates) Result {
	meters := utils.HaversineMeters(from.Lat, from.Lon, to.Lat, to.Lon)
	return Result{
		DistanceMeters:  meters,
		DurationMinutes: utils.EstimateTravelMinutes(meters / 1000),
	}
}
