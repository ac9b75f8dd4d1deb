package simulation

import (
	"context"
	"fmt"
	"sort"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
	"github.com/visitplan/backend/internal/utils"
)

// SimulateBufferVariations replays the whole schedule once per candidate
// base buffer and reports the adjustments each candidate would need. The
// sweep stops early when ctx is done.
func SimulateBufferVariations(ctx context.Context, appointments []models.GeocodedAppointment, opts Options) []models.Solution {
	opts = opts.withDefaults()
	byDate := schedule.GroupByDate(appointments)
	dates := schedule.SortedDates(byDate)
	candidates := float64(len(opts.TestBufferSizes))

	var solutions []models.Solution
	for _, size := range opts.TestBufferSizes {
		if ctx.Err() != nil {
			break
		}
		cfg := opts.BufferConfig
		cfg.BaseBufferMinutes = size

		changes := []models.ScheduleChange{}
		for _, date := range dates {
			changes = append(changes, bufferShortfalls(byDate[date], cfg)...)
		}

		feasible := len(changes) == 0
		sol := models.Solution{
			Strategy:    models.StrategyBuffer,
			Changes:     changes,
			Feasibility: models.FeasibilityInfeasible,
			Stats: &models.SimulationStats{
				ScenariosTested:   1,
				BestGapMinutes:    size,
				WorstGapMinutes:   size,
				AverageGapMinutes: size,
			},
		}
		if feasible {
			sol.SuccessRate = 1 / candidates
			sol.Feasibility = models.FeasibilityFeasible
			sol.Stats.FeasibleScenarios = 1
		}
		sol.ImpactScore = ImpactScore(sol, opts.BufferConfig.BaseBufferMinutes)
		solutions = append(solutions, sol)
	}
	return solutions
}

// bufferShortfalls checks consecutive timed visits of one day against the
// visit duration plus the smart buffer under cfg.
func bufferShortfalls(day []models.GeocodedAppointment, cfg models.BufferConfiguration) []models.ScheduleChange {
	var timed []models.GeocodedAppointment
	for _, a := range day {
		if _, ok := schedule.StartMinutes(a); ok {
			timed = append(timed, a)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		si, _ := schedule.StartMinutes(timed[i])
		sj, _ := schedule.StartMinutes(timed[j])
		return si < sj
	})

	var changes []models.ScheduleChange
	for i := 1; i < len(timed); i++ {
		earlier, later := timed[i-1], timed[i]
		earlierStart, _ := schedule.StartMinutes(earlier)
		laterStart, _ := schedule.StartMinutes(later)

		buffer := schedule.CalculateSmartBuffer(earlier, later, cfg)
		required := earlier.DurationMinutes + buffer
		gap := laterStart - earlierStart
		if gap >= required {
			continue
		}
		shortfall := required - gap

		ch := models.ScheduleChange{
			Kind:          models.ChangeBufferAdjust,
			AppointmentID: later.ID,
			OriginalTime:  later.StartTime,
			ProposedTime:  utils.FormatClock(laterStart + shortfall),
			Reason:        fmt.Sprintf("leave %d min buffer after %s", buffer, earlier.ID),
			ImpactMinutes: shortfall,
		}
		if !later.IsFlexible() {
			ch.AppointmentID = earlier.ID
			ch.OriginalTime = earlier.StartTime
			ch.ProposedTime = utils.FormatClock(earlierStart - shortfall)
			ch.Reason = fmt.Sprintf("leave %d min buffer before %s", buffer, later.ID)
		}
		changes = append(changes, ch)
	}
	return changes
}
