package simulation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
	"github.com/visitplan/backend/internal/utils"
)

// reorderImpactPerSlot approximates the disruption of moving a visit by one
// position in the day.
const reorderImpactPerSlot = 30

// OriginalOrder is the day as booked: timed visits by start, then untimed
// visits in input order.
func OriginalOrder(day []models.GeocodedAppointment) []models.GeocodedAppointment {
	out := append([]models.GeocodedAppointment(nil), day...)
	sort.SliceStable(out, func(i, j int) bool {
		si, iok := schedule.StartMinutes(out[i])
		sj, jok := schedule.StartMinutes(out[j])
		if iok != jok {
			return iok
		}
		return si < sj
	})
	return out
}

// GenerateReorderings calls yield with every ordering of day that permutes
// the flexible visits among their slots while inflexible visits keep their
// positions. The first ordering is day itself. Orderings are produced
// lazily; generation stops as soon as yield returns false. With no flexible
// or no inflexible visit only the original ordering is produced.
func GenerateReorderings(day []models.GeocodedAppointment, yield func([]models.GeocodedAppointment) bool) {
	var slots []int
	anchors := 0
	for i, a := range day {
		if a.IsFlexible() {
			slots = append(slots, i)
		} else {
			anchors++
		}
	}
	if len(slots) == 0 || anchors == 0 {
		yield(append([]models.GeocodedAppointment(nil), day...))
		return
	}

	perm := make([]int, len(slots))
	for i := range perm {
		perm[i] = i
	}
	for {
		order := append([]models.GeocodedAppointment(nil), day...)
		for i, p := range perm {
			order[slots[i]] = day[slots[p]]
		}
		if !yield(order) {
			return
		}
		if !nextPermutation(perm) {
			return
		}
	}
}

// nextPermutation advances p to its lexicographic successor in place and
// reports false once p was the last permutation.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}

// Retime assigns start times along order: inflexible visits keep their
// committed start, everything else starts when the previous visit ends.
func Retime(order []models.GeocodedAppointment) []models.GeocodedAppointment {
	out := make([]models.GeocodedAppointment, len(order))
	if len(order) == 0 {
		return out
	}
	cursor := schedule.DayStartMinutes
	if start, ok := schedule.StartMinutes(order[0]); ok && !order[0].IsFlexible() {
		cursor = start
	}
	for i, a := range order {
		assigned := cursor
		if start, ok := schedule.StartMinutes(a); ok && !a.IsFlexible() {
			assigned = start
		}
		a.StartTime = utils.FormatClock(assigned)
		out[i] = a
		if end := assigned + a.DurationMinutes; end > cursor {
			cursor = end
		}
	}
	return out
}

// minSlack is the smallest idle time between consecutive visits of a
// retimed order. It is negative when visits overlap.
func minSlack(timed []models.GeocodedAppointment) (float64, bool) {
	if len(timed) < 2 {
		return 0, false
	}
	slack := math.Inf(1)
	for i := 1; i < len(timed); i++ {
		prevStart, _ := schedule.StartMinutes(timed[i-1])
		start, _ := schedule.StartMinutes(timed[i])
		if s := float64(start - prevStart - timed[i-1].DurationMinutes); s < slack {
			slack = s
		}
	}
	return slack, true
}

// SimulateReorderings tests orderings of every date with at least two
// visits and one flexible visit. At most maxScenarios orderings are tested
// across all dates, and generation stops early when ctx is done.
func SimulateReorderings(ctx context.Context, appointments []models.GeocodedAppointment, opts Options) []models.Solution {
	opts = opts.withDefaults()
	byDate := schedule.GroupByDate(appointments)

	var (
		solutions []models.Solution
		tested    int
		feasible  int
		gaps      []float64
	)

	for _, date := range schedule.SortedDates(byDate) {
		day := OriginalOrder(byDate[date])
		if len(day) < 2 || !hasFlexible(day) {
			continue
		}
		stop := false
		GenerateReorderings(day, func(order []models.GeocodedAppointment) bool {
			if tested >= opts.MaxReorderingScenarios || ctx.Err() != nil {
				stop = true
				return false
			}
			tested++

			timed := Retime(order)
			ok := len(schedule.FindAllConflicts(timed)) == 0
			if ok {
				feasible++
			}
			if gap, has := minSlack(timed); has {
				gaps = append(gaps, gap)
			}

			sol := models.Solution{
				Strategy:    models.StrategyReordering,
				Changes:     reorderChanges(day, timed),
				Feasibility: models.FeasibilityInfeasible,
			}
			if ok {
				sol.Feasibility = models.FeasibilityFeasible
			}
			solutions = append(solutions, sol)
			return true
		})
		if stop {
			break
		}
	}

	if tested == 0 {
		return nil
	}
	stats := gapStats(gaps)
	stats.ScenariosTested = tested
	stats.FeasibleScenarios = feasible
	rate := float64(feasible) / float64(tested)
	for i := range solutions {
		s := stats
		solutions[i].SuccessRate = rate
		solutions[i].Stats = &s
		solutions[i].ImpactScore = ImpactScore(solutions[i], opts.BufferConfig.BaseBufferMinutes)
	}
	return solutions
}

func reorderChanges(original, timed []models.GeocodedAppointment) []models.ScheduleChange {
	was := make(map[string]int, len(original))
	for i, a := range original {
		was[a.ID] = i
	}
	changes := []models.ScheduleChange{}
	for i, a := range timed {
		from := was[a.ID]
		if from == i {
			continue
		}
		delta := i - from
		if delta < 0 {
			delta = -delta
		}
		changes = append(changes, models.ScheduleChange{
			Kind:          models.ChangeReorder,
			AppointmentID: a.ID,
			OriginalTime:  original[from].StartTime,
			ProposedTime:  a.StartTime,
			Reason:        fmt.Sprintf("visit moves from position %d to %d", from+1, i+1),
			ImpactMinutes: delta * reorderImpactPerSlot,
		})
	}
	return changes
}

func gapStats(gaps []float64) models.SimulationStats {
	if len(gaps) == 0 {
		return models.SimulationStats{}
	}
	best, worst, sum := gaps[0], gaps[0], 0.0
	for _, g := range gaps {
		best = math.Max(best, g)
		worst = math.Min(worst, g)
		sum += g
	}
	return models.SimulationStats{
		BestGapMinutes:    best,
		WorstGapMinutes:   worst,
		AverageGapMinutes: utils.Round(sum/float64(len(gaps)), 1),
	}
}

func hasFlexible(day []models.GeocodedAppointment) bool {
	for _, a := range day {
		if a.IsFlexible() {
			return true
		}
	}
	return false
}
