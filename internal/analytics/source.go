// Package analytics computes the behavioral indices (HIR, RTR, BCR, PHR),
// refreshes per-period behavior scores and outcomes, and estimates
// behavior/outcome correlations.
package analytics

import (
	"context"
	"math"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Source is the filtered-read side of the persistence collaborator.
type Source interface {
	ListActivities(ctx context.Context, f crm.ActivityFilter) ([]crm.Activity, error)
	ListBehaviorScores(ctx context.Context, f crm.BehaviorScoreFilter) ([]crm.BehaviorScore, error)
	ListOutcomes(ctx context.Context, f crm.OutcomeFilter) ([]crm.Outcome, error)
}

// Writer is the write side used by the refresher.
type Writer interface {
	DeleteBehaviorScores(ctx context.Context, userID string, period crm.Period) error
	InsertBehaviorScores(ctx context.Context, scores []crm.BehaviorScore) error
	DeleteOutcomes(ctx context.Context, userID string, periodType crm.PeriodType, period crm.Period) error
	InsertOutcome(ctx context.Context, o *crm.Outcome) error
}

// roundScore rounds half away from zero and clamps to [0, 100].
func roundScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return crm.Clamp(int(math.Round(v)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
