package distance

import (
	"context"
	"fmt"

	"github.com/visitplan/backend/internal/models"
)

type MockPair struct {
	From, To models.Coordinates
	Meters   float64
	Minutes  float64
}

// MockProvider answers from a fixed table of pairs and fails on anything
// else. Pairs are symmetric unless the reverse is listed explicitly.
type MockProvider struct {
	m     map[string]Result
	Calls int
}

func NewMockProvider(pairs []MockPair) *MockProvider {
	m := make(map[string]Result, len(pairs)*2)
	for _, p := range pairs {
		r := Result{DistanceMeters: p.Meters, DurationMinutes: p.Minutes}
		m[pairKey(p.From, p.To)] = r
		if _, ok := m[pairKey(p.To, p.From)]; !ok {
			m[pairKey(p.To, p.From)] = r
		}
	}
	return &MockProvider{m: m}
}

func (p *MockProvider) TravelCost(_ context.Context, from, to models.Coordinates) (Result, error) {
	p.Calls++
	if from == to {
		return Result{}, nil
	}
	r, ok := p.m[pairKey(from, to)]
	if !ok {
		return Result{}, fmt.Errorf("missing pair %v -> %v", from, to)
	}
	return r, nil
}

func pairKey(from, to models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f|%.5f,%.5f", from.Lat, from.Lon, to.Lat, to.Lon)
}
