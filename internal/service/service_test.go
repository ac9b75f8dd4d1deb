package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/geocode"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/route"
	"github.com/visitplan/backend/internal/simulation"
)

func input(id, start string, duration int, flex models.Flexibility, lat, lon *float64) models.AppointmentInput {
	return models.AppointmentInput{
		Appointment: models.Appointment{
			ID:              id,
			Name:            "Visit " + id,
			Address:         id + " Main St",
			DurationMinutes: duration,
			StartTime:       start,
			Date:            "2024-01-15",
			Flexibility:     flex,
		},
		Latitude:  lat,
		Longitude: lon,
	}
}

func ptr(v float64) *float64 { return &v }

func TestFilterRoutableStages(t *testing.T) {
	inputs := []models.AppointmentInput{
		input("ok", "09:00", 30, models.Inflexible, ptr(40.7), ptr(-74.0)),
		input("zero", "09:00", 0, models.Inflexible, ptr(40.7), ptr(-74.0)),
		input("clock", "9h30", 30, models.Inflexible, ptr(40.7), ptr(-74.0)),
		input("nocoords", "none", 30, models.Flexible, nil, nil),
		input("flex", "", 45, models.Flexible, ptr(40.8), ptr(-74.1)),
	}
	res := FilterRoutable(inputs)

	if len(res.Routable) != 2 || res.Routable[0].ID != "ok" || res.Routable[1].ID != "flex" {
		t.Fatalf("unexpected routable set: %+v", res.Routable)
	}
	want := map[string]string{
		"zero":     ReasonNonPositiveDuration,
		"clock":    ReasonInvalidStartTime,
		"nocoords": ReasonMissingCoordinates,
	}
	if len(res.Dropped) != len(want) {
		t.Fatalf("expected %d dropped, got %+v", len(want), res.Dropped)
	}
	for _, d := range res.Dropped {
		if want[d.AppointmentID] != d.ReasonCode {
			t.Fatalf("unexpected reason for %s: %s", d.AppointmentID, d.ReasonCode)
		}
	}
	counts := []int{5, 4, 3, 2}
	for i, stage := range res.Stages {
		if stage.Count != counts[i] {
			t.Fatalf("stage %s: expected %d, got %d", stage.Name, counts[i], stage.Count)
		}
	}
}

type stubGeocoder struct {
	calls int
	fail  map[string]error
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (geocode.Result, error) {
	g.calls++
	if err, ok := g.fail[address]; ok {
		return geocode.Result{}, err
	}
	return geocode.Result{Latitude: 40.75, Longitude: -73.99, NormalizedAddress: "normalized " + address}, nil
}

func newService(g geocode.Geocoder) *PlanningService {
	return &PlanningService{
		Geocoder: g,
		Builder:  route.NewBuilder(nil, nil, zerolog.Nop()),
		Resolver: simulation.NewResolver(nil, nil, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	}
}

func TestPlanGeocodesRoutesAndResolves(t *testing.T) {
	g := &stubGeocoder{fail: map[string]error{
		"lost Main St": &geocode.Error{Kind: geocode.KindZeroResults, Err: geocode.ErrNotFound},
	}}
	svc := newService(g)

	req := PlanRequest{
		Appointments: []models.AppointmentInput{
			input("a", "09:00", 60, models.Inflexible, ptr(40.71), ptr(-74.0)),
			input("b", "09:30", 30, models.Flexible, nil, nil),
			input("c", "", 30, models.Flexible, nil, nil),
			input("lost", "", 30, models.Flexible, nil, nil),
		},
		Options: simulation.DefaultOptions(),
	}
	res, err := svc.Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RunID == "" {
		t.Fatalf("expected run id")
	}
	if g.calls != 3 {
		t.Fatalf("expected 3 geocode calls, got %d", g.calls)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].ReasonCode != "GEOCODE_ZERO_RESULTS" {
		t.Fatalf("unexpected dropped: %+v", res.Dropped)
	}
	if len(res.Days) != 1 {
		t.Fatalf("expected one day, got %d", len(res.Days))
	}
	day := res.Days[0]
	if len(day.Route.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(day.Route.Stops))
	}
	if day.Resolutions.TotalConflicts != 1 || len(day.Resolutions.Resolutions) != 1 {
		t.Fatalf("expected one resolved conflict, got %+v", day.Resolutions)
	}
	if !day.Optimization.Feasible {
		t.Fatalf("expected optimizable day: %s", day.Optimization.Reason)
	}
}

func TestPlanSkipsGeocodingWhenCoordinatesKnown(t *testing.T) {
	g := &stubGeocoder{}
	svc := newService(g)
	req := PlanRequest{Appointments: []models.AppointmentInput{
		input("a", "09:00", 30, models.Inflexible, ptr(40.71), ptr(-74.0)),
	}}
	if _, err := svc.Plan(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.calls != 0 {
		t.Fatalf("expected no geocode calls, got %d", g.calls)
	}

	req.ForceGeocode = true
	if _, err := svc.Plan(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.calls != 1 {
		t.Fatalf("expected forced geocode, got %d calls", g.calls)
	}
}

func TestPlanCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newService(nil).Plan(ctx, PlanRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
