package simulation

import (
	"fmt"
	"time"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
	"github.com/visitplan/backend/internal/utils"
)

const (
	moveAfterSuccessRate = 0.8
	moveAfterImpactScore = 40
	nextDaySuccessRate   = 1.0
	nextDayImpactScore   = 60
	nextDayImpactMinutes = 480
	openEndedImpactScore = 10
)

// SimulateRescheduling proposes single-move fixes for one conflict. Scores
// are fixed per heuristic.
func SimulateRescheduling(c models.Conflict, cfg models.BufferConfiguration) []models.Solution {
	var solutions []models.Solution
	earlier, later := c.Earlier, c.Later

	if earlierStart, ok := schedule.StartMinutes(earlier); ok {
		buffer := schedule.CalculateSmartBuffer(earlier, later, cfg)
		proposed := earlierStart + earlier.DurationMinutes + buffer
		laterStart, _ := schedule.StartMinutes(later)
		impact := proposed - laterStart
		if impact < 0 {
			impact = 0
		}
		solutions = append(solutions, models.Solution{
			Strategy: models.StrategyRescheduling,
			Changes: []models.ScheduleChange{{
				Kind:          models.ChangeReschedule,
				AppointmentID: later.ID,
				OriginalTime:  later.StartTime,
				ProposedTime:  utils.FormatClock(proposed),
				Reason:        fmt.Sprintf("start after %s ends plus %d min buffer", earlier.ID, buffer),
				ImpactMinutes: impact,
			}},
			SuccessRate: moveAfterSuccessRate,
			ImpactScore: moveAfterImpactScore,
			Feasibility: models.FeasibilityLikely,
		})
	}

	solutions = append(solutions, models.Solution{
		Strategy: models.StrategyRescheduling,
		Changes: []models.ScheduleChange{{
			Kind:          models.ChangeReschedule,
			AppointmentID: later.ID,
			OriginalTime:  later.StartTime,
			ProposedTime:  nextDay(later),
			Reason:        "move to the following day",
			ImpactMinutes: nextDayImpactMinutes,
		}},
		SuccessRate: nextDaySuccessRate,
		ImpactScore: nextDayImpactScore,
		Feasibility: models.FeasibilityFeasible,
	})

	if openEnded(earlier) && openEnded(later) {
		solutions = append(solutions, models.Solution{
			Strategy:    models.StrategyRescheduling,
			Changes:     []models.ScheduleChange{},
			SuccessRate: 1.0,
			ImpactScore: openEndedImpactScore,
			Feasibility: models.FeasibilityFeasible,
		})
	}
	return solutions
}

func openEnded(a models.GeocodedAppointment) bool {
	return a.IsFlexible() && !a.HasStartTime()
}

func nextDay(a models.GeocodedAppointment) string {
	d, err := time.Parse("2006-01-02", a.Date)
	if err != nil {
		return "next day " + a.StartTime
	}
	return d.AddDate(0, 0, 1).Format("2006-01-02") + " " + a.StartTime
}
