package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// RefreshStore is everything the refresher reads and writes.
type RefreshStore interface {
	Source
	Writer
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Periods        int `json:"periods"`
	BehaviorScores int `json:"behavior_scores"`
	Outcomes       int `json:"outcomes"`
}

// Refresher recomputes BehaviorScore and Outcome snapshots from activities.
// Each period is replaced with a delete followed by an insert; the two
// calls are not atomic.
type Refresher struct {
	store  RefreshStore
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(store RefreshStore, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{store: store, newID: uuid.NewString, now: time.Now, logger: logger}
}

// SetClock overrides the clock used for CreatedAt stamps.
func (r *Refresher) SetClock(now func() time.Time) { r.now = now }

// Refresh recomputes snapshots for every period of type pt in [from, to).
func (r *Refresher) Refresh(ctx context.Context, userID string, pt crm.PeriodType, from, to time.Time) (RefreshResult, error) {
	var res RefreshResult
	if !pt.Valid() {
		return res, crm.Invalidf("unknown period type %q", pt)
	}
	if !from.Before(to) {
		return res, crm.Invalidf("empty refresh range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	for _, p := range SplitPeriods(pt, from, to) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		scores, err := r.refreshPeriod(ctx, userID, pt, p)
		if err != nil {
			return res, err
		}
		res.Periods++
		res.BehaviorScores += scores
		res.Outcomes++
	}

	r.logger.Info("snapshots refreshed",
		zap.String("user_id", userID),
		zap.String("period_type", string(pt)),
		zap.Int("periods", res.Periods),
		zap.Int("behavior_scores", res.BehaviorScores))
	return res, nil
}

func (r *Refresher) refreshPeriod(ctx context.Context, userID string, pt crm.PeriodType, p crm.Period) (int, error) {
	acts, err := r.store.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: p.Start, To: p.End})
	if err != nil {
		return 0, fmt.Errorf("refresh: listing activities: %w", err)
	}
	prev := p.Previous()
	prevActs, err := r.store.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: prev.Start, To: prev.End})
	if err != nil {
		return 0, fmt.Errorf("refresh: listing previous activities: %w", err)
	}

	now := r.now()
	scores := ComputeBehaviorScores(userID, p, acts)
	for i := range scores {
		scores[i].ID = r.newID()
		scores[i].CreatedAt = now
	}
	outcome := ComputeOutcome(userID, pt, p, acts, len(prevActs), scores)
	outcome.ID = r.newID()
	outcome.CreatedAt = now

	if err := r.store.DeleteBehaviorScores(ctx, userID, p); err != nil {
		return 0, fmt.Errorf("refresh: deleting behavior scores: %w", err)
	}
	if len(scores) > 0 {
		if err := r.store.InsertBehaviorScores(ctx, scores); err != nil {
			return 0, fmt.Errorf("refresh: inserting behavior scores: %w", err)
		}
	}
	if err := r.store.DeleteOutcomes(ctx, userID, pt, p); err != nil {
		return 0, fmt.Errorf("refresh: deleting outcomes: %w", err)
	}
	if err := r.store.InsertOutcome(ctx, &outcome); err != nil {
		return 0, fmt.Errorf("refresh: inserting outcome: %w", err)
	}
	return len(scores), nil
}

// SplitPeriods cuts [from, to) into consecutive periods of type pt
// starting at from. The last period is truncated at to.
func SplitPeriods(pt crm.PeriodType, from, to time.Time) []crm.Period {
	var out []crm.Period
	for start := from; start.Before(to); {
		end := advance(pt, start)
		if end.After(to) {
			end = to
		}
		out = append(out, crm.Period{Start: start, End: end})
		start = end
	}
	return out
}

func advance(pt crm.PeriodType, t time.Time) time.Time {
	switch pt {
	case crm.PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case crm.PeriodMonthly:
		return t.AddDate(0, 1, 0)
	case crm.PeriodQuarterly:
		return t.AddDate(0, 3, 0)
	case crm.PeriodYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// ComputeBehaviorScores builds one score per behavior type present in acts,
// in enumeration order. Intensity is the mean quantity score, diversity the
// share of activity kinds used, quality the mean quality score.
func ComputeBehaviorScores(userID string, p crm.Period, acts []crm.Activity) []crm.BehaviorScore {
	type bucket struct {
		quantity []float64
		quality  []float64
		kinds    map[crm.ActivityKind]struct{}
	}
	buckets := make(map[crm.BehaviorType]*bucket)
	for _, a := range acts {
		if !a.Behavior.Valid() {
			continue
		}
		b, ok := buckets[a.Behavior]
		if !ok {
			b = &bucket{kinds: make(map[crm.ActivityKind]struct{})}
			buckets[a.Behavior] = b
		}
		b.quantity = append(b.quantity, float64(a.QuantityScore))
		b.quality = append(b.quality, float64(a.QualityScore))
		b.kinds[a.Kind] = struct{}{}
	}

	var out []crm.BehaviorScore
	for _, bt := range crm.AllBehaviorTypes {
		b, ok := buckets[bt]
		if !ok {
			continue
		}
		out = append(out, crm.BehaviorScore{
			UserID:      userID,
			Behavior:    bt,
			Intensity:   roundScore(mean(b.quantity)),
			Diversity:   roundScore(100 * float64(len(b.kinds)) / float64(len(crm.AllActivityKinds))),
			Quality:     roundScore(mean(b.quality)),
			PeriodStart: p.Start,
			PeriodEnd:   p.End,
		})
	}
	return out
}

// ComputeOutcome derives the user-scoped outcome snapshot for a period.
func ComputeOutcome(userID string, pt crm.PeriodType, p crm.Period, acts []crm.Activity, prevCount int, scores []crm.BehaviorScore) crm.Outcome {
	o := crm.Outcome{
		UserID:      userID,
		PeriodType:  pt,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		HIR:         HIRFromScores(scores),
	}
	o.ConversionRate = ConversionRate(acts)

	growth := 50 + 50*float64(len(acts)-prevCount)/float64(max(prevCount, 1))
	o.FieldGrowthRate = roundScore(growth)

	touched := make(map[string]bool)
	for _, a := range acts {
		won := a.Outcome != nil && *a.Outcome == crm.TagWon
		touched[a.AccountID] = touched[a.AccountID] || won
	}
	if len(touched) > 0 {
		won := 0
		for _, w := range touched {
			if w {
				won++
			}
		}
		o.PrescriptionIndex = roundScore(100 * float64(won) / float64(len(touched)))
	}
	return o
}

// ConversionRate is round(100 * won / tagged), 0 when nothing is tagged.
func ConversionRate(acts []crm.Activity) int {
	tagged, won := TaggedCounts(acts)
	if tagged == 0 {
		return 0
	}
	return roundScore(100 * float64(won) / float64(tagged))
}

// TaggedCounts returns how many activities carry an outcome tag and how
// many of those were won.
func TaggedCounts(acts []crm.Activity) (tagged, won int) {
	for _, a := range acts {
		if a.Outcome == nil {
			continue
		}
		tagged++
		if *a.Outcome == crm.TagWon {
			won++
		}
	}
	return tagged, won
}
