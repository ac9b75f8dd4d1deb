package simulation

import (
	"math"
	"sort"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/utils"
)

// workdayMinutes normalizes change impact against an eight-hour day.
const workdayMinutes = 480

// ImpactScore is the weighted disruption, failure and buffer-deviation
// score of a solution. Lower is better.
func ImpactScore(s models.Solution, targetBuffer float64) float64 {
	score := 0.4*disruption(s.Changes) +
		0.3*(100*(1-s.SuccessRate)) +
		0.3*bufferDeviation(s.Stats, targetBuffer)
	return utils.Round(score, 2)
}

func disruption(changes []models.ScheduleChange) float64 {
	if len(changes) == 0 {
		return 0
	}
	total := 0
	for _, c := range changes {
		total += c.ImpactMinutes
	}
	d := utils.Round(100*float64(total)/float64(workdayMinutes*len(changes)), 1)
	return math.Min(100, d)
}

func bufferDeviation(stats *models.SimulationStats, target float64) float64 {
	if stats == nil || stats.BestGapMinutes == 0 || target <= 0 {
		return 0
	}
	ratio := stats.BestGapMinutes / target
	switch {
	case ratio <= 1.0:
		return 0
	case ratio <= 1.5:
		return 25
	case ratio <= 2.0:
		return 60
	default:
		return 100
	}
}

// RankSolutions returns a copy sorted by ascending impact score. Equal
// scores keep their input order.
func RankSolutions(solutions []models.Solution) []models.Solution {
	out := append([]models.Solution(nil), solutions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImpactScore < out[j].ImpactScore
	})
	return out
}

func SelectBest(solutions []models.Solution) *models.Solution {
	if len(solutions) == 0 {
		return nil
	}
	best := RankSolutions(solutions)[0]
	return &best
}
