package schedule

import (
	"fmt"
	"math"
	"sort"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

// CheckFeasibility lists every reason the committed appointments cannot all
// be honored. An empty result means the inflexible skeleton is reachable.
func CheckFeasibility(appointments []models.GeocodedAppointment) []string {
	var violations []string

	seen := map[string]int{}
	for _, a := range appointments {
		seen[a.ID]++
		if seen[a.ID] == 2 {
			violations = append(violations, fmt.Sprintf("Appointment %s appears more than once", a.ID))
		}
	}

	byDate := GroupByDate(appointments)
	for _, date := range SortedDates(byDate) {
		type anchor struct {
			appt  models.GeocodedAppointment
			start int
		}
		var anchors []anchor
		for _, a := range byDate[date] {
			if a.IsFlexible() {
				continue
			}
			start, ok := StartMinutes(a)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s on %s is inflexible but has no start time", label(a), date))
				continue
			}
			anchors = append(anchors, anchor{appt: a, start: start})
		}
		sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].start < anchors[j].start })

		for i := 0; i+1 < len(anchors); i++ {
			cur, next := anchors[i], anchors[i+1]
			km := utils.HaversineKm(cur.appt.Latitude, cur.appt.Longitude, next.appt.Latitude, next.appt.Longitude)
			travel := int(math.Ceil(utils.EstimateTravelMinutes(km)))
			end := cur.start + cur.appt.DurationMinutes
			earliestArrival := end + travel
			if earliestArrival > next.start+GracePeriodMinutes {
				violations = append(violations, fmt.Sprintf(
					"%s: cannot reach %s (starts %s) after %s (ends %s); needs %d min travel, only %d min available",
					date, label(next.appt), utils.FormatClock(next.start), label(cur.appt), utils.FormatClock(end),
					travel, next.start-end,
				))
			}
		}
	}
	return violations
}

type OptimizationCheck struct {
	Feasible        bool   `json:"feasible"`
	Reason          string `json:"reason"`
	FlexibleCount   int    `json:"flexible_count"`
	InflexibleCount int    `json:"inflexible_count"`
}

// CanOptimize reports whether route optimization has anything to move.
func CanOptimize(appointments []models.GeocodedAppointment) OptimizationCheck {
	var res OptimizationCheck
	for _, a := range appointments {
		if a.IsFlexible() {
			res.FlexibleCount++
		} else {
			res.InflexibleCount++
		}
	}
	switch {
	case res.FlexibleCount == 0:
		res.Reason = "all appointments are inflexible; the order is fixed by their start times"
	case len(appointments) < 2:
		res.Reason = "at least two appointments are needed to optimize an order"
	default:
		res.Feasible = true
		res.Reason = fmt.Sprintf("%d flexible appointments can be positioned around %d fixed ones", res.FlexibleCount, res.InflexibleCount)
	}
	return res
}

func label(a models.GeocodedAppointment) string {
	if a.Name != "" {
		return fmt.Sprintf("%s (%s)", a.Name, a.ID)
	}
	return a.ID
}
