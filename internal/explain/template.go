package explain

import (
	"context"
	"fmt"
	"math"

	"github.com/visitplan/backend/internal/models"
)

// Template builds deterministic explanations without any external call.
type Template struct{}

func (Template) Explain(_ context.Context, c models.Conflict, s models.Solution) ([]string, error) {
	return Lines(c, s), nil
}

func Lines(c models.Conflict, s models.Solution) []string {
	lines := []string{
		fmt.Sprintf("%s at %s runs %d min but %s starts %d min later on %s (%s, short by %d min).",
			name(c.Earlier), c.Earlier.StartTime, c.Earlier.DurationMinutes,
			name(c.Later), c.GapMinutes, c.Date, c.Severity, c.ShortfallMinutes()),
	}

	switch {
	case len(s.Changes) == 0 && s.Strategy == models.StrategyRescheduling:
		lines = append(lines, "Both visits are open-ended; let the route optimizer place them.")
	case len(s.Changes) == 0:
		lines = append(lines, fmt.Sprintf("The %s strategy needs no changes.", s.Strategy))
	default:
		for _, ch := range s.Changes {
			lines = append(lines, describeChange(ch))
		}
	}

	if s.Stats != nil {
		lines = append(lines, fmt.Sprintf("%d of %d scenarios were conflict-free.",
			s.Stats.FeasibleScenarios, s.Stats.ScenariosTested))
	}
	lines = append(lines,
		fmt.Sprintf("Success rate %d%%, %s.", int(math.Round(s.SuccessRate*100)), s.Feasibility),
		fmt.Sprintf("Impact %s (grade %s, score %.2f).", CategorizeImpact(s.ImpactScore), Grade(s.ImpactScore), s.ImpactScore),
	)
	return lines
}

func describeChange(ch models.ScheduleChange) string {
	switch ch.Kind {
	case models.ChangeReorder:
		return fmt.Sprintf("Reorder %s: %s.", ch.AppointmentID, ch.Reason)
	case models.ChangeReschedule, models.ChangeBufferAdjust:
		return fmt.Sprintf("Move %s from %s to %s: %s.", ch.AppointmentID, orUnset(ch.OriginalTime), ch.ProposedTime, ch.Reason)
	default:
		return fmt.Sprintf("Adjust %s: %s.", ch.AppointmentID, ch.Reason)
	}
}

func name(a models.GeocodedAppointment) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

func orUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return v
}
