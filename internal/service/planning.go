// Package service wires the collaborators into an end-to-end planning run.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/geocode"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/route"
	"github.com/visitplan/backend/internal/schedule"
	"github.com/visitplan/backend/internal/simulation"
)

type PlanningService struct {
	Geocoder geocode.Geocoder
	Builder  *route.Builder
	Resolver *simulation.Resolver
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

type PlanRequest struct {
	Appointments []models.AppointmentInput `json:"appointments" yaml:"appointments" validate:"required,min=1,dive"`
	Options      simulation.Options        `json:"options" yaml:"options"`
	ForceGeocode bool                      `json:"force_geocode" yaml:"force_geocode"`
}

type DayPlan struct {
	Date         string                     `json:"date"`
	Route        models.OptimizedRoute      `json:"route"`
	Violations   []string                   `json:"violations"`
	Optimization schedule.OptimizationCheck `json:"optimization"`
	Resolutions  models.ResolutionReport    `json:"resolutions"`
}

type PlanResult struct {
	RunID     string           `json:"run_id"`
	Days      []DayPlan        `json:"days"`
	Dropped   []DroppedInput   `json:"dropped"`
	Stages    []ReadinessStage `json:"stages"`
	Events    []map[string]any `json:"events"`
	ElapsedMs int64            `json:"elapsed_ms"`
}

// Plan geocodes, stages, routes and resolves every date of the request.
// It fails only when ctx is already done before any work starts.
func (s *PlanningService) Plan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	if err := ctx.Err(); err != nil {
		return PlanResult{}, err
	}
	start := time.Now()
	result := PlanResult{RunID: uuid.NewString(), Days: []DayPlan{}, Dropped: []DroppedInput{}}
	log := s.Logger.With().Str("run_id", result.RunID).Logger()

	result.Events = append(result.Events, map[string]any{
		"type":    "import_summary",
		"message": "Appointments received",
		"count":   len(req.Appointments),
		"time":    time.Now().UTC(),
	})

	inputs, geocoded, failed := s.geocodeInputs(ctx, req.Appointments, req.ForceGeocode, &result)
	result.Events = append(result.Events, map[string]any{
		"type":     "geocoding",
		"geocoded": geocoded,
		"failed":   failed,
		"time":     time.Now().UTC(),
	})

	ready := FilterRoutable(inputs)
	result.Dropped = append(result.Dropped, ready.Dropped...)
	result.Stages = ready.Stages
	result.Events = append(result.Events, map[string]any{
		"type":     "readiness",
		"routable": len(ready.Routable),
		"dropped":  len(ready.Dropped),
		"time":     time.Now().UTC(),
	})

	conflicts := 0
	byDate := schedule.GroupByDate(ready.Routable)
	for _, date := range schedule.SortedDates(byDate) {
		day := byDate[date]
		plan := DayPlan{
			Date:         date,
			Violations:   schedule.CheckFeasibility(day),
			Optimization: schedule.CanOptimize(day),
			Route:        s.Builder.Build(ctx, day),
			Resolutions:  s.Resolver.Resolve(ctx, day, req.Options),
		}
		if plan.Violations == nil {
			plan.Violations = []string{}
		}
		conflicts += plan.Resolutions.TotalConflicts
		result.Days = append(result.Days, plan)
	}
	result.Events = append(result.Events, map[string]any{
		"type":      "planning",
		"dates":     len(result.Days),
		"conflicts": conflicts,
		"time":      time.Now().UTC(),
	})

	result.ElapsedMs = time.Since(start).Milliseconds()
	s.Metrics.PlanCompleted(len(result.Days), len(result.Dropped))

	log.Info().
		Int("appointments", len(req.Appointments)).
		Int("dates", len(result.Days)).
		Int("dropped", len(result.Dropped)).
		Int("conflicts", conflicts).
		Int64("elapsed_ms", result.ElapsedMs).
		Msg("plan complete")
	return result, nil
}

func (s *PlanningService) geocodeInputs(ctx context.Context, inputs []models.AppointmentInput, force bool, result *PlanResult) ([]models.AppointmentInput, int, int) {
	out := make([]models.AppointmentInput, 0, len(inputs))
	geocoded, failed := 0, 0
	for _, in := range inputs {
		if s.Geocoder == nil || !geocode.ShouldGeocode(in, force) {
			out = append(out, in)
			continue
		}
		res, err := s.Geocoder.Geocode(ctx, in.Address)
		if err != nil {
			failed++
			kind := geocode.KindOf(err)
			if kind == "" {
				kind = geocode.KindServer
			}
			result.Dropped = append(result.Dropped, DroppedInput{
				AppointmentID: in.ID,
				SourceRow:     in.SourceRow,
				ReasonCode:    "GEOCODE_" + strings.ToUpper(string(kind)),
				ReasonText:    err.Error(),
			})
			s.Logger.Warn().Err(err).Str("appointment_id", in.ID).Msg("geocode failed")
			continue
		}
		lat, lon := res.Latitude, res.Longitude
		in.Latitude, in.Longitude = &lat, &lon
		in.NormalizedAddress = res.NormalizedAddress
		out = append(out, in)
		geocoded++
	}
	return out, geocoded, failed
}
