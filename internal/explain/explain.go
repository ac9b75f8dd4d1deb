// Package explain turns a proposed solution into short human-readable lines.
package explain

import (
	"context"

	"github.com/visitplan/backend/internal/models"
)

type Explainer interface {
	Explain(ctx context.Context, conflict models.Conflict, solution models.Solution) ([]string, error)
}

// CategorizeImpact buckets an impact score: <=30 low, <=60 medium, else high.
func CategorizeImpact(score float64) string {
	switch {
	case score <= 30:
		return "low"
	case score <= 60:
		return "medium"
	default:
		return "high"
	}
}

// Grade is the letter grade shown next to an impact score.
func Grade(score float64) string {
	switch {
	case score <= 25:
		return "A"
	case score <= 40:
		return "B"
	case score <= 55:
		return "C"
	case score <= 70:
		return "D"
	default:
		return "F"
	}
}
