package simulation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/explain"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
)

// Resolver runs every simulator against each detected conflict until the
// time budget runs out.
type Resolver struct {
	Explainer explain.Explainer
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

func NewResolver(explainer explain.Explainer, m *metrics.Metrics, logger zerolog.Logger) *Resolver {
	return &Resolver{Explainer: explainer, Metrics: m, Logger: logger}
}

// Resolve never fails. Conflicts left when the budget is spent are omitted
// and the report is flagged as exhausted.
func (r *Resolver) Resolve(ctx context.Context, appointments []models.GeocodedAppointment, opts Options) models.ResolutionReport {
	start := time.Now()
	opts = opts.withDefaults()
	report := models.ResolutionReport{Resolutions: []models.ConflictResolution{}}

	conflicts := schedule.FindAllConflicts(appointments)
	report.TotalConflicts = len(conflicts)
	r.Metrics.ConflictsDetected(len(conflicts))
	if len(conflicts) == 0 {
		report.ElapsedMs = time.Since(start).Milliseconds()
		return report
	}

	budget := opts.TimeBudget()
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	for _, c := range conflicts {
		if time.Since(start) >= budget || ctx.Err() != nil {
			report.BudgetExhausted = true
			break
		}
		report.Resolutions = append(report.Resolutions, r.resolveOne(runCtx, appointments, c, opts))
		report.Processed++
	}

	if report.BudgetExhausted {
		r.Metrics.BudgetExhausted()
		r.Logger.Warn().
			Int("conflicts", report.TotalConflicts).
			Int("processed", report.Processed).
			Dur("budget", budget).
			Msg("resolution time budget exhausted")
	}
	elapsed := time.Since(start)
	r.Metrics.ResolveDuration(elapsed)
	report.ElapsedMs = elapsed.Milliseconds()
	return report
}

func (r *Resolver) resolveOne(ctx context.Context, appointments []models.GeocodedAppointment, c models.Conflict, opts Options) models.ConflictResolution {
	reorderings := SimulateReorderings(ctx, appointments, opts)
	buffers := SimulateBufferVariations(ctx, appointments, opts)
	var rescheduled []models.Solution
	if opts.RunRescheduling {
		rescheduled = SimulateRescheduling(c, opts.BufferConfig)
	}
	r.Metrics.ScenariosTested(string(models.StrategyReordering), len(reorderings))
	r.Metrics.ScenariosTested(string(models.StrategyBuffer), len(buffers))
	r.Metrics.ScenariosTested(string(models.StrategyRescheduling), len(rescheduled))

	merged := make([]models.Solution, 0, len(reorderings)+len(buffers)+len(rescheduled))
	merged = append(merged, reorderings...)
	merged = append(merged, buffers...)
	merged = append(merged, rescheduled...)
	for i := range merged {
		merged[i].Reasoning = r.explain(ctx, c, merged[i])
	}

	ranked := RankSolutions(merged)
	res := models.ConflictResolution{
		Conflict:            c,
		Solutions:           ranked,
		RecommendedSolution: SelectBest(viable(ranked)),
	}
	r.Metrics.Resolution(res.RecommendedSolution != nil)
	r.Logger.Debug().
		Str("date", c.Date).
		Str("earlier", c.Earlier.ID).
		Str("later", c.Later.ID).
		Int("solutions", len(ranked)).
		Bool("recommended", res.RecommendedSolution != nil).
		Msg("conflict resolved")
	return res
}

func (r *Resolver) explain(ctx context.Context, c models.Conflict, s models.Solution) []string {
	if r.Explainer != nil {
		lines, err := r.Explainer.Explain(ctx, c, s)
		if err == nil {
			return lines
		}
		r.Logger.Debug().Err(err).Msg("explainer failed, using template")
	}
	return explain.Lines(c, s)
}

// viable drops solutions that were tested and found infeasible.
func viable(solutions []models.Solution) []models.Solution {
	out := make([]models.Solution, 0, len(solutions))
	for _, s := range solutions {
		if s.Feasibility != models.FeasibilityInfeasible {
			out = append(out, s)
		}
	}
	return out
}
