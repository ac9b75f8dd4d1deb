// Package schedule holds the pure time-window rules of a visiting day:
// pairwise conflict detection, adaptive buffers and feasibility checks.
package schedule

import (
	"sort"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

const (
	// GracePeriodMinutes is the tolerance between a committed start and the
	// actual arrival inside which the visit counts as on time.
	GracePeriodMinutes = 15
	// DayStartMinutes is 09:00, used when the day opens on a flexible visit.
	DayStartMinutes = 9 * 60

	criticalShortfall = 30
	majorShortfall    = 15
)

// StartMinutes returns the committed start of a in minutes since midnight.
func StartMinutes(a models.GeocodedAppointment) (int, bool) {
	if !a.HasStartTime() {
		return 0, false
	}
	m, err := utils.ParseClock(a.StartTime)
	if err != nil {
		return 0, false
	}
	return m, true
}

// DetectConflict checks whether two same-day appointments are packed tighter
// than the earlier one's visit duration. Travel and buffer are ignored here.
func DetectConflict(a, b models.GeocodedAppointment) (models.Conflict, bool) {
	if a.Date != b.Date {
		return models.Conflict{}, false
	}
	aStart, ok := StartMinutes(a)
	if !ok {
		return models.Conflict{}, false
	}
	bStart, ok := StartMinutes(b)
	if !ok {
		return models.Conflict{}, false
	}

	earlier, later := a, b
	earlierStart, laterStart := aStart, bStart
	if bStart < aStart {
		earlier, later = b, a
		earlierStart, laterStart = bStart, aStart
	}

	gap := laterStart - earlierStart
	required := earlier.DurationMinutes
	if gap >= required {
		return models.Conflict{}, false
	}

	return models.Conflict{
		Earlier:         earlier,
		Later:           later,
		Date:            a.Date,
		GapMinutes:      gap,
		RequiredMinutes: required,
		Severity:        ClassifyShortfall(required - gap),
	}, true
}

func ClassifyShortfall(shortfall int) models.Severity {
	switch {
	case shortfall > criticalShortfall:
		return models.SeverityCritical
	case shortfall > majorShortfall:
		return models.SeverityMajor
	default:
		return models.SeverityMinor
	}
}

// FindAllConflicts enumerates every same-date pair. Dates are visited in
// ascending order and pairs in input order within a date.
func FindAllConflicts(appointments []models.GeocodedAppointment) []models.Conflict {
	byDate := GroupByDate(appointments)
	var out []models.Conflict
	for _, date := range SortedDates(byDate) {
		day := byDate[date]
		for i := 0; i < len(day); i++ {
			for j := i + 1; j < len(day); j++ {
				if c, ok := DetectConflict(day[i], day[j]); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// GroupByDate buckets appointments by calendar date, keeping input order.
func GroupByDate(appointments []models.GeocodedAppointment) map[string][]models.GeocodedAppointment {
	out := map[string][]models.GeocodedAppointment{}
	for _, a := range appointments {
		out[a.Date] = append(out[a.Date], a)
	}
	return out
}

func SortedDates(byDate map[string][]models.GeocodedAppointment) []string {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
