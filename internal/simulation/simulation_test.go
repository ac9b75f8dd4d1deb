package simulation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visitplan/backend/internal/models"
)

func visit(id, date, start string, duration int, flex models.Flexibility) models.GeocodedAppointment {
	return models.GeocodedAppointment{
		Appointment: models.Appointment{
			ID:              id,
			Name:            "Visit " + id,
			DurationMinutes: duration,
			StartTime:       start,
			Date:            date,
			Flexibility:     flex,
		},
		Latitude:  40.7128,
		Longitude: -74.0060,
	}
}

func collect(day []models.GeocodedAppointment) [][]models.GeocodedAppointment {
	var out [][]models.GeocodedAppointment
	GenerateReorderings(day, func(o []models.GeocodedAppointment) bool {
		out = append(out, o)
		return true
	})
	return out
}

func orderKey(o []models.GeocodedAppointment) string {
	key := ""
	for _, a := range o {
		key += a.ID + ","
	}
	return key
}

func TestGenerateReorderingsFactorialWithFixedAnchors(t *testing.T) {
	day := []models.GeocodedAppointment{
		visit("f1", "2024-01-15", "", 30, models.Flexible),
		visit("a1", "2024-01-15", "10:00", 30, models.Inflexible),
		visit("f2", "2024-01-15", "", 30, models.Flexible),
		visit("f3", "2024-01-15", "", 30, models.Flexible),
		visit("a2", "2024-01-15", "15:00", 30, models.Inflexible),
	}
	orders := collect(day)
	require.Len(t, orders, 6)

	seen := map[string]bool{}
	for _, o := range orders {
		require.Len(t, o, len(day))
		assert.Equal(t, "a1", o[1].ID)
		assert.Equal(t, "a2", o[4].ID)
		seen[orderKey(o)] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, orderKey(day), orderKey(orders[0]))
}

func TestGenerateReorderingsSingleOrderingWithoutMix(t *testing.T) {
	allFlexible := []models.GeocodedAppointment{
		visit("f1", "2024-01-15", "", 30, models.Flexible),
		visit("f2", "2024-01-15", "", 30, models.Flexible),
		visit("f3", "2024-01-15", "", 30, models.Flexible),
	}
	allFixed := []models.GeocodedAppointment{
		visit("a1", "2024-01-15", "09:00", 30, models.Inflexible),
		visit("a2", "2024-01-15", "11:00", 30, models.Inflexible),
	}
	for _, day := range [][]models.GeocodedAppointment{allFlexible, allFixed} {
		orders := collect(day)
		require.Len(t, orders, 1)
		assert.Equal(t, orderKey(day), orderKey(orders[0]))
	}
}

func TestGenerateReorderingsStopsWhenYieldDeclines(t *testing.T) {
	day := []models.GeocodedAppointment{visit("a", "2024-01-15", "09:00", 30, models.Inflexible)}
	for i := 0; i < 8; i++ {
		day = append(day, visit(fmt.Sprintf("f%d", i), "2024-01-15", "", 30, models.Flexible))
	}
	calls := 0
	GenerateReorderings(day, func([]models.GeocodedAppointment) bool {
		calls++
		return calls < 3
	})
	assert.Equal(t, 3, calls)
}

func TestSimulateReorderingsCapsScenariosAcrossDates(t *testing.T) {
	var appts []models.GeocodedAppointment
	for _, date := range []string{"2024-01-15", "2024-01-16"} {
		appts = append(appts,
			visit("a-"+date, date, "09:00", 30, models.Inflexible),
			visit("x-"+date, date, "", 30, models.Flexible),
			visit("y-"+date, date, "", 30, models.Flexible),
			visit("z-"+date, date, "", 30, models.Flexible),
		)
	}
	opts := DefaultOptions()
	opts.MaxReorderingScenarios = 8

	solutions := SimulateReorderings(context.Background(), appts, opts)
	require.Len(t, solutions, 8)
	for _, s := range solutions {
		require.NotNil(t, s.Stats)
		assert.Equal(t, 8, s.Stats.ScenariosTested)
		assert.Equal(t, solutions[0].SuccessRate, s.SuccessRate)
		assert.Equal(t, *solutions[0].Stats, *s.Stats)
	}
}

func TestSimulateReorderingsDefaultCap(t *testing.T) {
	appts := []models.GeocodedAppointment{visit("a", "2024-01-15", "09:00", 30, models.Inflexible)}
	for i := 0; i < 5; i++ {
		appts = append(appts, visit(fmt.Sprintf("f%d", i), "2024-01-15", "", 20, models.Flexible))
	}
	solutions := SimulateReorderings(context.Background(), appts, Options{})
	assert.Len(t, solutions, DefaultMaxReorderingScenarios)
}

func TestSimulateReorderingsHonorsCancelledContext(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 30, models.Inflexible),
		visit("f", "2024-01-15", "", 30, models.Flexible),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, SimulateReorderings(ctx, appts, DefaultOptions()))
}

func TestSimulateReorderingsRecordsPositionDeltas(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 60, models.Inflexible),
		visit("b", "2024-01-15", "", 30, models.Flexible),
		visit("c", "2024-01-15", "", 30, models.Flexible),
	}
	solutions := SimulateReorderings(context.Background(), appts, DefaultOptions())
	require.Len(t, solutions, 2)
	assert.Empty(t, solutions[0].Changes)

	swapped := solutions[1]
	require.Len(t, swapped.Changes, 2)
	for _, ch := range swapped.Changes {
		assert.Equal(t, models.ChangeReorder, ch.Kind)
		assert.Equal(t, 30, ch.ImpactMinutes)
	}
	assert.Equal(t, "c", swapped.Changes[0].AppointmentID)
	assert.Equal(t, "10:00", swapped.Changes[0].ProposedTime)
	assert.Equal(t, 1.0, swapped.SuccessRate)
}

func TestRetimeKeepsAnchorsAndPacksFlexibleVisits(t *testing.T) {
	order := []models.GeocodedAppointment{
		visit("f", "2024-01-15", "", 45, models.Flexible),
		visit("a", "2024-01-15", "11:00", 30, models.Inflexible),
		visit("g", "2024-01-15", "08:00", 30, models.Flexible),
	}
	timed := Retime(order)
	assert.Equal(t, "09:00", timed[0].StartTime)
	assert.Equal(t, "11:00", timed[1].StartTime)
	assert.Equal(t, "11:30", timed[2].StartTime)
	assert.Equal(t, "", order[0].StartTime)
}

func TestImpactScoreFormula(t *testing.T) {
	s := models.Solution{
		Changes: []models.ScheduleChange{
			{ImpactMinutes: 60},
			{ImpactMinutes: 120},
		},
		SuccessRate: 0.5,
		Stats:       &models.SimulationStats{BestGapMinutes: 60},
	}
	// disruption 18.8, failure 50, deviation 25 (ratio 1.33)
	assert.InDelta(t, 30.02, ImpactScore(s, 45), 1e-9)

	assert.Equal(t, 0.0, ImpactScore(models.Solution{SuccessRate: 1}, 45))
	assert.Equal(t, 30.0, ImpactScore(models.Solution{SuccessRate: 0}, 45))
}

func TestImpactScoreDisruptionIsCapped(t *testing.T) {
	s := models.Solution{
		Changes:     []models.ScheduleChange{{ImpactMinutes: 2000}},
		SuccessRate: 1,
	}
	assert.Equal(t, 40.0, ImpactScore(s, 45))
}

func TestBufferDeviationBands(t *testing.T) {
	cases := []struct {
		best float64
		want float64
	}{
		{0, 0}, {45, 0}, {60, 25}, {90, 60}, {91, 100},
	}
	for _, tc := range cases {
		got := bufferDeviation(&models.SimulationStats{BestGapMinutes: tc.best}, 45)
		assert.Equal(t, tc.want, got, "best gap %.0f", tc.best)
	}
	assert.Equal(t, 0.0, bufferDeviation(nil, 45))
}

func TestImpactScoreRoundTrip(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 60, models.Inflexible),
		visit("b", "2024-01-15", "09:30", 30, models.Flexible),
		visit("c", "2024-01-15", "", 45, models.Flexible),
		visit("d", "2024-01-15", "12:00", 90, models.Inflexible),
	}
	opts := DefaultOptions()
	solutions := append(SimulateReorderings(context.Background(), appts, opts),
		SimulateBufferVariations(context.Background(), appts, opts)...)
	require.NotEmpty(t, solutions)
	for _, s := range solutions {
		assert.Equal(t, s.ImpactScore, ImpactScore(s, opts.BufferConfig.BaseBufferMinutes))
	}
}

func TestRankSolutionsAndSelectBest(t *testing.T) {
	solutions := []models.Solution{
		{Strategy: models.StrategyBuffer, ImpactScore: 40},
		{Strategy: models.StrategyReordering, ImpactScore: 10},
		{Strategy: models.StrategyRescheduling, ImpactScore: 10},
	}
	ranked := RankSolutions(solutions)
	assert.Equal(t, models.StrategyReordering, ranked[0].Strategy)
	assert.Equal(t, models.StrategyRescheduling, ranked[1].Strategy)
	assert.Equal(t, models.StrategyBuffer, solutions[0].Strategy)

	best := SelectBest(solutions)
	require.NotNil(t, best)
	assert.Equal(t, models.StrategyReordering, best.Strategy)
	assert.Nil(t, SelectBest(nil))
}

func TestSimulateBufferVariationsFavorsBaseline(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 30, models.Inflexible),
		visit("b", "2024-01-15", "13:00", 30, models.Inflexible),
	}
	solutions := SimulateBufferVariations(context.Background(), appts, DefaultOptions())
	require.Len(t, solutions, len(DefaultTestBufferSizes))
	for _, s := range solutions {
		assert.Equal(t, models.FeasibilityFeasible, s.Feasibility)
		assert.InDelta(t, 1.0/7, s.SuccessRate, 1e-9)
	}
	best := SelectBest(solutions)
	require.NotNil(t, best)
	assert.LessOrEqual(t, best.Stats.BestGapMinutes, 45.0)
	assert.Less(t, solutions[3].ImpactScore, solutions[6].ImpactScore)
}

func TestSimulateBufferVariationsAdjustsAroundAnchors(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 30, models.Flexible),
		visit("b", "2024-01-15", "09:40", 30, models.Inflexible),
	}
	opts := DefaultOptions()
	opts.TestBufferSizes = []float64{45}
	solutions := SimulateBufferVariations(context.Background(), appts, opts)
	require.Len(t, solutions, 1)
	s := solutions[0]
	assert.Equal(t, models.FeasibilityInfeasible, s.Feasibility)
	assert.Equal(t, 0.0, s.SuccessRate)
	require.Len(t, s.Changes, 1)

	// 30 min visit + 45 min buffer against a 40 min gap.
	ch := s.Changes[0]
	assert.Equal(t, models.ChangeBufferAdjust, ch.Kind)
	assert.Equal(t, "a", ch.AppointmentID)
	assert.Equal(t, "08:25", ch.ProposedTime)
	assert.Equal(t, 35, ch.ImpactMinutes)
}

func TestSimulateRescheduling(t *testing.T) {
	c := models.Conflict{
		Earlier:         visit("a", "2024-01-15", "09:00", 30, models.Inflexible),
		Later:           visit("b", "2024-01-15", "09:20", 30, models.Inflexible),
		Date:            "2024-01-15",
		GapMinutes:      20,
		RequiredMinutes: 30,
		Severity:        models.SeverityMinor,
	}
	solutions := SimulateRescheduling(c, models.DefaultBufferConfiguration())
	require.Len(t, solutions, 2)

	after := solutions[0]
	assert.Equal(t, 0.8, after.SuccessRate)
	assert.Equal(t, 40.0, after.ImpactScore)
	assert.Equal(t, models.FeasibilityLikely, after.Feasibility)
	assert.Equal(t, "10:15", after.Changes[0].ProposedTime)
	assert.Equal(t, 55, after.Changes[0].ImpactMinutes)

	next := solutions[1]
	assert.Equal(t, 1.0, next.SuccessRate)
	assert.Equal(t, 60.0, next.ImpactScore)
	assert.Equal(t, 480, next.Changes[0].ImpactMinutes)
	assert.Equal(t, "2024-01-16 09:20", next.Changes[0].ProposedTime)
}

func TestSimulateReschedulingOpenEndedPair(t *testing.T) {
	c := models.Conflict{
		Earlier: visit("a", "2024-01-15", "none", 30, models.Flexible),
		Later:   visit("b", "2024-01-15", "", 30, models.Flexible),
	}
	solutions := SimulateRescheduling(c, models.DefaultBufferConfiguration())
	require.Len(t, solutions, 2)
	last := solutions[1]
	assert.Empty(t, last.Changes)
	assert.Equal(t, 10.0, last.ImpactScore)
	assert.Equal(t, 1.0, last.SuccessRate)
}

func TestResolveWithoutConflictsSkipsSimulation(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "none", 30, models.Flexible),
		visit("b", "2024-01-15", "none", 45, models.Flexible),
		visit("c", "2024-01-15", "none", 60, models.Flexible),
	}
	appts[1].Latitude += 0.2
	appts[2].Latitude += 0.4

	report := NewResolver(nil, nil, zerolog.Nop()).Resolve(context.Background(), appts, DefaultOptions())
	assert.Empty(t, report.Resolutions)
	assert.Equal(t, 0, report.TotalConflicts)
	assert.False(t, report.BudgetExhausted)
}

func TestResolveRecommendsLowestImpactViableSolution(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 60, models.Inflexible),
		visit("b", "2024-01-15", "09:30", 30, models.Flexible),
		visit("c", "2024-01-15", "13:00", 30, models.Flexible),
	}
	report := NewResolver(nil, nil, zerolog.Nop()).Resolve(context.Background(), appts, DefaultOptions())
	require.Equal(t, 1, report.TotalConflicts)
	require.Len(t, report.Resolutions, 1)

	res := report.Resolutions[0]
	assert.Equal(t, models.SeverityMajor, res.Conflict.Severity)
	require.NotNil(t, res.RecommendedSolution)
	assert.Equal(t, res.Solutions[0].ImpactScore, res.RecommendedSolution.ImpactScore)
	for i, s := range res.Solutions {
		assert.NotEmpty(t, s.Reasoning)
		if i > 0 {
			assert.LessOrEqual(t, res.Solutions[i-1].ImpactScore, s.ImpactScore)
		}
	}
}

func TestResolveWithoutViableSolutionRecommendsNothing(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 60, models.Inflexible),
		visit("b", "2024-01-15", "09:10", 30, models.Inflexible),
	}
	opts := DefaultOptions()
	opts.RunRescheduling = false
	report := NewResolver(nil, nil, zerolog.Nop()).Resolve(context.Background(), appts, opts)
	require.Len(t, report.Resolutions, 1)
	assert.Nil(t, report.Resolutions[0].RecommendedSolution)
	assert.NotEmpty(t, report.Resolutions[0].Solutions)
}

type slowExplainer struct{ delay time.Duration }

func (s slowExplainer) Explain(context.Context, models.Conflict, models.Solution) ([]string, error) {
	time.Sleep(s.delay)
	return []string{"slow"}, nil
}

func TestResolveStopsWhenBudgetExhausted(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 60, models.Inflexible),
		visit("b", "2024-01-15", "09:10", 60, models.Inflexible),
		visit("c", "2024-01-15", "09:20", 60, models.Inflexible),
	}
	opts := DefaultOptions()
	opts.TimeBudgetMs = 20

	report := NewResolver(slowExplainer{delay: 10 * time.Millisecond}, nil, zerolog.Nop()).
		Resolve(context.Background(), appts, opts)
	assert.Equal(t, 3, report.TotalConflicts)
	assert.True(t, report.BudgetExhausted)
	assert.Less(t, report.Processed, 3)
	assert.Len(t, report.Resolutions, report.Processed)
}

type failingExplainer struct{}

func (failingExplainer) Explain(context.Context, models.Conflict, models.Solution) ([]string, error) {
	return nil, fmt.Errorf("unavailable")
}

func TestResolveFallsBackToTemplateExplanations(t *testing.T) {
	appts := []models.GeocodedAppointment{
		visit("a", "2024-01-15", "09:00", 30, models.Inflexible),
		visit("b", "2024-01-15", "09:20", 30, models.Inflexible),
	}
	report := NewResolver(failingExplainer{}, nil, zerolog.Nop()).Resolve(context.Background(), appts, DefaultOptions())
	require.Len(t, report.Resolutions, 1)
	for _, s := range report.Resolutions[0].Solutions {
		require.NotEmpty(t, s.Reasoning)
		assert.Contains(t, s.Reasoning[0], "short by 10 min")
	}
}
