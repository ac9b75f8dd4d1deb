package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/cache"
	"github.com/visitplan/backend/internal/models"
)

func TestNormalizeAddress(t *testing.T) {
	got := NormalizeAddress("  12 Main   St,\tSpringfield ")
	if got != "12 main st, springfield" {
		t.Fatalf("unexpected normalized address: %q", got)
	}
}

func TestShouldGeocodeSkipWhenLatLonExists(t *testing.T) {
	lat := 51.0
	lon := 71.0
	in := models.AppointmentInput{
		Appointment: models.Appointment{ID: "1", Address: "12 Main St"},
		Latitude:    &lat,
		Longitude:   &lon,
	}
	if ShouldGeocode(in, false) {
		t.Fatalf("expected geocode to be skipped when lat/lon exist")
	}
	if !ShouldGeocode(in, true) {
		t.Fatalf("expected geocode when force is true")
	}
	in.Latitude = nil
	if !ShouldGeocode(in, false) {
		t.Fatalf("expected geocode when latitude is missing")
	}
	in.Address = " "
	if ShouldGeocode(in, true) {
		t.Fatalf("expected no geocode without an address")
	}
}

func TestKindOf(t *testing.T) {
	err := &Error{Kind: KindZeroResults, Err: ErrNotFound}
	if KindOf(err) != KindZeroResults {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected zero_results to wrap ErrNotFound")
	}
	if KindOf(errors.New("other")) != "" {
		t.Fatalf("expected empty kind for foreign error")
	}
}

type countingGeocoder struct {
	calls int
	err   error
}

func (c *countingGeocoder) Geocode(context.Context, string) (Result, error) {
	c.calls++
	if c.err != nil {
		return Result{}, c.err
	}
	return Result{Latitude: 1, Longitude: 2, NormalizedAddress: "somewhere"}, nil
}

func TestCachedGeocoderSharesEntryAcrossSpellings(t *testing.T) {
	next := &countingGeocoder{}
	g := NewCachedGeocoder(next, cache.NewMemoryStore(10, time.Minute), nil, zerolog.Nop())

	for _, addr := range []string{"12 Main St", "12  main st", " 12 MAIN ST "} {
		res, err := g.Geocode(context.Background(), addr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Latitude != 1 || res.Longitude != 2 {
			t.Fatalf("unexpected result: %+v", res)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
}

func TestCachedGeocoderDoesNotCacheErrors(t *testing.T) {
	next := &countingGeocoder{err: &Error{Kind: KindServer}}
	g := NewCachedGeocoder(next, cache.NewMemoryStore(10, time.Minute), nil, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := g.Geocode(context.Background(), "12 Main St"); KindOf(err) != KindServer {
			t.Fatalf("expected server error, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected errors to reach upstream each time, got %d", next.calls)
	}
}
