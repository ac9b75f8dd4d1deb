// Package route orders one day's visits and times the resulting itinerary.
package route

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/distance"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
	"github.com/visitplan/backend/internal/utils"
)

type Builder struct {
	Provider distance.Provider
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func NewBuilder(provider distance.Provider, m *metrics.Metrics, logger zerolog.Logger) *Builder {
	if provider == nil {
		provider = distance.HaversineProvider{}
	}
	return &Builder{Provider: provider, Metrics: m, Logger: logger}
}

type leg struct {
	meters    float64
	minutes   float64
	estimated bool
}

type pairKey struct{ from, to models.Coordinates }

// session memoizes lookups for one Build call.
type session struct {
	b    *Builder
	ctx  context.Context
	legs map[pairKey]leg
}

func (s *session) leg(from, to models.GeocodedAppointment) leg {
	k := pairKey{from.Coordinates(), to.Coordinates()}
	if l, ok := s.legs[k]; ok {
		return l
	}
	var l leg
	r, err := s.b.Provider.TravelCost(s.ctx, from.Coordinates(), to.Coordinates())
	if err != nil {
		s.b.Metrics.LookupFallback()
		s.b.Logger.Debug().Err(err).Str("from", from.ID).Str("to", to.ID).Msg("travel lookup failed, using geodesic estimate")
		est := distance.Estimate(from.Coordinates(), to.Coordinates())
		l = leg{meters: est.DistanceMeters, minutes: est.DurationMinutes, estimated: true}
	} else {
		l = leg{meters: r.DistanceMeters, minutes: r.DurationMinutes}
	}
	s.legs[k] = l
	return l
}

// prewarm fills the memo one origin row at a time when the provider can
// batch. Failed cells are left for leg to retry and fall back.
func (s *session) prewarm(appointments []models.GeocodedAppointment) {
	bp, ok := s.b.Provider.(distance.BatchProvider)
	if !ok || len(appointments) < 2 {
		return
	}
	seen := map[models.Coordinates]bool{}
	var coords []models.Coordinates
	for _, a := range appointments {
		c := a.Coordinates()
		if !seen[c] {
			seen[c] = true
			coords = append(coords, c)
		}
	}
	for i, from := range coords {
		dests := make([]models.Coordinates, 0, len(coords)-1)
		dests = append(dests, coords[:i]...)
		dests = append(dests, coords[i+1:]...)
		if len(dests) == 0 {
			continue
		}
		rows, err := bp.TravelCosts(s.ctx, from, dests)
		if err != nil {
			s.b.Logger.Debug().Err(err).Msg("batch travel lookup failed")
			return
		}
		for j, r := range rows {
			if r.Err != nil {
				continue
			}
			s.legs[pairKey{from, dests[j]}] = leg{meters: r.DistanceMeters, minutes: r.DurationMinutes}
		}
	}
}

func (s *session) cost(order []models.GeocodedAppointment) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		total += s.leg(order[i-1], order[i]).meters
	}
	return total
}

// Build orders and times a single date's appointments. Lookup failures
// degrade to the geodesic estimate; Build itself never fails.
func (b *Builder) Build(ctx context.Context, appointments []models.GeocodedAppointment) models.OptimizedRoute {
	out := models.OptimizedRoute{Stops: []models.VisitStop{}}
	if len(appointments) == 0 {
		out.Error = "no appointments to route"
		return out
	}
	out.Date = appointments[0].Date

	s := &session{b: b, ctx: ctx, legs: map[pairKey]leg{}}
	s.prewarm(appointments)
	order := b.insertFlexible(s, appointments)
	order = reoptimizeAnchors(order)

	out.Stops = b.timeStops(s, order)
	summarize(&out)

	b.Logger.Debug().
		Str("date", out.Date).
		Int("stops", len(out.Stops)).
		Int("distance_m", out.TotalDistanceMeters).
		Msg("route built")
	return out
}

// BuildByDate builds one route per date, dates ascending.
func (b *Builder) BuildByDate(ctx context.Context, appointments []models.GeocodedAppointment) []models.OptimizedRoute {
	byDate := schedule.GroupByDate(appointments)
	routes := make([]models.OptimizedRoute, 0, len(byDate))
	for _, date := range schedule.SortedDates(byDate) {
		routes = append(routes, b.Build(ctx, byDate[date]))
	}
	return routes
}

func (b *Builder) insertFlexible(s *session, appointments []models.GeocodedAppointment) []models.GeocodedAppointment {
	var anchors, flexible []models.GeocodedAppointment
	for _, a := range appointments {
		if a.IsFlexible() {
			flexible = append(flexible, a)
		} else {
			anchors = append(anchors, a)
		}
	}
	sort.SliceStable(anchors, func(i, j int) bool {
		si, _ := schedule.StartMinutes(anchors[i])
		sj, _ := schedule.StartMinutes(anchors[j])
		return si < sj
	})

	order := append([]models.GeocodedAppointment{}, anchors...)
	for _, f := range flexible {
		bestPos := -1
		bestCost := math.Inf(1)
		for pos := 0; pos <= len(order); pos++ {
			trial := insertAt(order, pos, f)
			if c := s.cost(trial); bestPos < 0 || c < bestCost {
				bestCost = c
				bestPos = pos
			}
		}
		order = insertAt(order, bestPos, f)
	}
	return order
}

// reoptimizeAnchors is where anchor placement would be revisited. Anchors
// keep their chronological slots for now.
func reoptimizeAnchors(order []models.GeocodedAppointment) []models.GeocodedAppointment {
	return order
}

func (b *Builder) timeStops(s *session, order []models.GeocodedAppointment) []models.VisitStop {
	stops := make([]models.VisitStop, 0, len(order))
	arrival := schedule.DayStartMinutes
	if start, ok := schedule.StartMinutes(order[0]); ok && !order[0].IsFlexible() {
		arrival = start
	}

	for i, a := range order {
		stop := models.VisitStop{Sequence: i + 1, Appointment: a}
		if i > 0 {
			prev := order[i-1]
			l := s.leg(prev, a)
			travel := int(math.Ceil(l.minutes))
			arrival = stops[i-1].ArrivalMinutes + prev.DurationMinutes + travel
			stop.TravelMinutes = travel
			stop.TravelMeters = int(math.Round(l.meters))
			stop.EstimatedTravel = l.estimated
		}
		stop.ArrivalMinutes = arrival
		stop.ArrivalTime = utils.FormatClock(arrival)
		stop.DepartureTime = utils.FormatClock(arrival + a.DurationMinutes)
		stop.Status = models.StatusOnTime
		if preferred, ok := schedule.StartMinutes(a); ok {
			diff := arrival - preferred
			stop.MinutesFromPreferred = diff
			switch {
			case abs(diff) <= schedule.GracePeriodMinutes:
				stop.Status = models.StatusOnTime
			case diff < 0:
				stop.Status = models.StatusEarly
			default:
				stop.Status = models.StatusLate
			}
		}
		stops = append(stops, stop)
	}
	return stops
}

func summarize(r *models.OptimizedRoute) {
	for _, st := range r.Stops {
		r.TotalDistanceMeters += st.TravelMeters
		r.TotalTravelMinutes += st.TravelMinutes
		r.TotalVisitMinutes += st.Appointment.DurationMinutes
		switch st.Status {
		case models.StatusOnTime:
			r.OnTimeCount++
		case models.StatusEarly:
			r.EarlyCount++
		case models.StatusLate:
			r.LateCount++
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s arrives %d min after preferred %s",
				st.Appointment.ID, st.MinutesFromPreferred, st.Appointment.StartTime))
		}
		if st.EstimatedTravel {
			r.Warnings = append(r.Warnings, fmt.Sprintf("travel to %s estimated from straight-line distance", st.Appointment.ID))
		}
	}
	first, last := r.Stops[0], r.Stops[len(r.Stops)-1]
	r.StartTime = first.ArrivalTime
	r.EndTime = last.DepartureTime
	r.Success = true
}

func insertAt(order []models.GeocodedAppointment, pos int, a models.GeocodedAppointment) []models.GeocodedAppointment {
	out := make([]models.GeocodedAppointment, 0, len(order)+1)
	out = append(out, order[:pos]...)
	out = append(out, a)
	return append(out, order[pos:]...)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
