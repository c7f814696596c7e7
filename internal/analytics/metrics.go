package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Metrics holds the four behavioral indices and their aggregate.
type Metrics struct {
	HIR   int `json:"hir"`
	RTR   int `json:"rtr"`
	BCR   int `json:"bcr"`
	PHR   int `json:"phr"`
	Total int `json:"total"`
}

// Calculator computes the behavioral indices from persisted records.
// Every calculator returns 0 for a period without matching records.
type Calculator struct {
	src    Source
	now    func() time.Time
	logger *zap.Logger
}

// NewCalculator creates a Calculator. A nil clock uses time.Now.
func NewCalculator(src Source, now func() time.Time, logger *zap.Logger) *Calculator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{src: src, now: now, logger: logger}
}

// HIR averages, across behavior types, the quality sub-score of the most
// recently started behavior score overlapping the period. accountID is
// accepted for signature symmetry; behavior scores are user-scoped.
func (c *Calculator) HIR(ctx context.Context, userID string, period crm.Period, _ string) (int, error) {
	scores, err := c.src.ListBehaviorScores(ctx, crm.BehaviorScoreFilter{
		UserID: userID,
		From:   period.Start,
		To:     period.End,
	})
	if err != nil {
		return 0, fmt.Errorf("hir: %w", err)
	}

	score := HIRFromScores(scores)
	c.logger.Debug("metric computed",
		zap.String("metric", "hir"), zap.String("user_id", userID),
		zap.Int("records", len(scores)), zap.Int("score", score))
	return score, nil
}

// HIRFromScores is the pure core of HIR.
func HIRFromScores(scores []crm.BehaviorScore) int {
	latest := LatestByBehavior(scores)
	var qualities []float64
	for _, b := range crm.AllBehaviorTypes {
		if s, ok := latest[b]; ok {
			qualities = append(qualities, float64(s.Quality))
		}
	}
	if len(qualities) == 0 {
		return 0
	}
	return roundScore(mean(qualities))
}

// LatestByBehavior keeps, per behavior type, the record with the latest
// PeriodStart. Ties go to the later record in input order.
func LatestByBehavior(scores []crm.BehaviorScore) map[crm.BehaviorType]crm.BehaviorScore {
	latest := make(map[crm.BehaviorType]crm.BehaviorScore)
	for _, s := range scores {
		if !s.Behavior.Valid() {
			continue
		}
		cur, ok := latest[s.Behavior]
		if !ok || !s.PeriodStart.Before(cur.PeriodStart) {
			latest[s.Behavior] = s
		}
	}
	return latest
}

// RTR is the rounded mean sentiment of the period's activities that carry
// a sentiment score.
func (c *Calculator) RTR(ctx context.Context, userID string, period crm.Period, accountID string) (int, error) {
	acts, err := c.activities(ctx, userID, period, accountID)
	if err != nil {
		return 0, fmt.Errorf("rtr: %w", err)
	}

	score := RTRFromActivities(acts)
	c.logger.Debug("metric computed",
		zap.String("metric", "rtr"), zap.String("user_id", userID),
		zap.Int("records", len(acts)), zap.Int("score", score))
	return score, nil
}

// RTRFromActivities is the pure core of RTR.
func RTRFromActivities(acts []crm.Activity) int {
	var sentiments []float64
	for _, a := range acts {
		if a.SentimentScore != nil {
			sentiments = append(sentiments, float64(*a.SentimentScore))
		}
	}
	if len(sentiments) == 0 {
		return 0
	}
	return roundScore(mean(sentiments))
}

// PHR scores follow-up discipline: each activity scores by how soon its
// next action is due, and the period score is the mean over all
// activities, including those scoring 0.
func (c *Calculator) PHR(ctx context.Context, userID string, period crm.Period, accountID string) (int, error) {
	acts, err := c.activities(ctx, userID, period, accountID)
	if err != nil {
		return 0, fmt.Errorf("phr: %w", err)
	}

	score := PHRFromActivities(acts, c.now())
	c.logger.Debug("metric computed",
		zap.String("metric", "phr"), zap.String("user_id", userID),
		zap.Int("records", len(acts)), zap.Int("score", score))
	return score, nil
}

// PHRFromActivities is the pure core of PHR.
func PHRFromActivities(acts []crm.Activity, now time.Time) int {
	if len(acts) == 0 {
		return 0
	}
	scores := make([]float64, 0, len(acts))
	for _, a := range acts {
		scores = append(scores, float64(NextActionScore(a.NextActionDate, now)))
	}
	return roundScore(mean(scores))
}

// NextActionScore maps the days until a scheduled next action to a score:
// none or overdue 0, 0-7 days 100, 8-14 days 80, 15-30 days 60, later 40.
func NextActionScore(next *time.Time, now time.Time) int {
	if next == nil {
		return 0
	}
	days := math.Ceil(next.Sub(now).Hours() / 24)
	switch {
	case days < 0:
		return 0
	case days <= 7:
		return 100
	case days <= 14:
		return 80
	case days <= 30:
		return 60
	default:
		return 40
	}
}

// BCR measures cadence regularity. Activities are bucketed into the
// period's days and the score is round(100 / (1 + stddev/mean)) over the
// daily counts: one activity every day scores 100, bursty activity
// approaches 0, and no activity scores 0.
func (c *Calculator) BCR(ctx context.Context, userID string, period crm.Period, accountID string) (int, error) {
	acts, err := c.activities(ctx, userID, period, accountID)
	if err != nil {
		return 0, fmt.Errorf("bcr: %w", err)
	}

	score := BCRFromActivities(acts, period)
	c.logger.Debug("metric computed",
		zap.String("metric", "bcr"), zap.String("user_id", userID),
		zap.Int("records", len(acts)), zap.Int("score", score))
	return score, nil
}

// BCRFromActivities is the pure core of BCR.
func BCRFromActivities(acts []crm.Activity, period crm.Period) int {
	if len(acts) == 0 {
		return 0
	}
	days := int(math.Ceil(period.End.Sub(period.Start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	counts := make([]float64, days)
	for _, a := range acts {
		idx := int(a.PerformedAt.Sub(period.Start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		counts[idx]++
	}

	mu := mean(counts)
	if mu == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range counts {
		variance += (v - mu) * (v - mu)
	}
	variance /= float64(len(counts))
	cv := math.Sqrt(variance) / mu
	return roundScore(100 / (1 + cv))
}

// Aggregate computes the four indices concurrently and combines them.
// Any calculator failure fails the aggregate.
func (c *Calculator) Aggregate(ctx context.Context, userID string, period crm.Period, accountID string) (Metrics, error) {
	var m Metrics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.HIR(gctx, userID, period, accountID)
		m.HIR = v
		return err
	})
	g.Go(func() error {
		v, err := c.RTR(gctx, userID, period, accountID)
		m.RTR = v
		return err
	})
	g.Go(func() error {
		v, err := c.BCR(gctx, userID, period, accountID)
		m.BCR = v
		return err
	})
	g.Go(func() error {
		v, err := c.PHR(gctx, userID, period, accountID)
		m.PHR = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Metrics{}, err
	}

	m.Total = TotalScore(m.HIR, m.RTR, m.BCR, m.PHR)
	c.logger.Info("metrics aggregated",
		zap.String("user_id", userID),
		zap.Time("period_start", period.Start), zap.Time("period_end", period.End),
		zap.Int("hir", m.HIR), zap.Int("rtr", m.RTR), zap.Int("bcr", m.BCR),
		zap.Int("phr", m.PHR), zap.Int("total", m.Total))
	return m, nil
}

// AggregateAt is Aggregate with PHR scored against now instead of the
// calculator clock.
func (c *Calculator) AggregateAt(ctx context.Context, userID string, period crm.Period, accountID string, now time.Time) (Metrics, error) {
	at := *c
	at.now = func() time.Time { return now }
	return at.Aggregate(ctx, userID, period, accountID)
}

// TotalScore is round(mean(hir, rtr, bcr, phr)).
func TotalScore(hir, rtr, bcr, phr int) int {
	return roundScore(float64(hir+rtr+bcr+phr) / 4)
}

func (c *Calculator) activities(ctx context.Context, userID string, period crm.Period, accountID string) ([]crm.Activity, error) {
	return c.src.ListActivities(ctx, crm.ActivityFilter{
		UserID:    userID,
		AccountID: accountID,
		From:      period.Start,
		To:        period.End,
	})
}
