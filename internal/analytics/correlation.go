package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Correlation methods.
const (
	MethodSeries      = "series"
	MethodOutcomeTags = "outcome_tags"
)

// PairWeight is the association strength between one behavior type and
// one outcome type, in [0, 1].
type PairWeight struct {
	Behavior crm.BehaviorType `json:"behavior"`
	Outcome  crm.OutcomeType  `json:"outcome"`
	Weight   float64          `json:"weight"`
}

// Correlations holds all 32 behavior/outcome weights plus a summary.
// Weights are independent per pair and are not normalized to sum to 1.
type Correlations struct {
	Period                    crm.Period         `json:"period"`
	Method                    string             `json:"method"`
	Points                    int                `json:"points"`
	Pairs                     []PairWeight       `json:"pairs"`
	TopBehaviorsForConversion []crm.BehaviorType `json:"top_behaviors_for_conversion"`
}

// Weight returns the weight for a pair, or 0 if absent.
func (c Correlations) Weight(b crm.BehaviorType, o crm.OutcomeType) float64 {
	for _, p := range c.Pairs {
		if p.Behavior == b && p.Outcome == o {
			return p.Weight
		}
	}
	return 0
}

// Correlator estimates behavior/outcome associations for a user.
type Correlator interface {
	Compute(ctx context.Context, userID string, period crm.Period) (Correlations, error)
}

// SeriesCorrelator correlates behavior composites with outcome snapshots
// over time. Each outcome snapshot is one point; its x value per behavior
// is the composite of the latest behavior score overlapping the snapshot
// period (0 when none). Weight is max(0, Pearson r). With fewer than
// MinPoints points it falls back to outcome tags for conversion.
type SeriesCorrelator struct {
	src       Source
	minPoints int
	topN      int
	logger    *zap.Logger
}

// NewSeriesCorrelator creates a SeriesCorrelator.
func NewSeriesCorrelator(src Source, minPoints, topN int, logger *zap.Logger) *SeriesCorrelator {
	if minPoints < 2 {
		minPoints = 2
	}
	if topN <= 0 {
		topN = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeriesCorrelator{src: src, minPoints: minPoints, topN: topN, logger: logger}
}

// Compute implements Correlator.
func (c *SeriesCorrelator) Compute(ctx context.Context, userID string, period crm.Period) (Correlations, error) {
	outcomes, err := c.src.ListOutcomes(ctx, crm.OutcomeFilter{UserID: userID, From: period.Start, To: period.End})
	if err != nil {
		return Correlations{}, fmt.Errorf("correlation: listing outcomes: %w", err)
	}
	series := dominantSeries(outcomes)

	result := Correlations{Period: period, Points: len(series)}
	weights := make(map[crm.BehaviorType]map[crm.OutcomeType]float64, len(crm.AllBehaviorTypes))
	for _, b := range crm.AllBehaviorTypes {
		weights[b] = make(map[crm.OutcomeType]float64, len(crm.AllOutcomeTypes))
	}

	if len(series) >= c.minPoints {
		scores, err := c.src.ListBehaviorScores(ctx, crm.BehaviorScoreFilter{UserID: userID, From: period.Start, To: period.End})
		if err != nil {
			return Correlations{}, fmt.Errorf("correlation: listing behavior scores: %w", err)
		}
		result.Method = MethodSeries
		for _, b := range crm.AllBehaviorTypes {
			xs := behaviorSeries(b, series, scores)
			for _, o := range crm.AllOutcomeTypes {
				ys := make([]float64, len(series))
				for i, snap := range series {
					ys[i] = float64(snap.Value(o))
				}
				weights[b][o] = math.Max(0, Pearson(xs, ys))
			}
		}
	} else {
		acts, err := c.src.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: period.Start, To: period.End})
		if err != nil {
			return Correlations{}, fmt.Errorf("correlation: listing activities: %w", err)
		}
		result.Method = MethodOutcomeTags
		for b, w := range tagWeights(acts) {
			weights[b][crm.OutcomeConversionRate] = w
		}
	}

	for _, b := range crm.AllBehaviorTypes {
		for _, o := range crm.AllOutcomeTypes {
			result.Pairs = append(result.Pairs, PairWeight{Behavior: b, Outcome: o, Weight: weights[b][o]})
		}
	}
	result.TopBehaviorsForConversion = TopBehaviors(result, crm.OutcomeConversionRate, c.topN)

	c.logger.Debug("correlations computed",
		zap.String("user_id", userID),
		zap.String("method", result.Method),
		zap.Int("points", result.Points),
		zap.Int("top", len(result.TopBehaviorsForConversion)))
	return result, nil
}

// TopBehaviors returns behaviors with a positive weight for outcome o,
// by descending weight with ties in enumeration order, truncated to n.
func TopBehaviors(c Correlations, o crm.OutcomeType, n int) []crm.BehaviorType {
	type ranked struct {
		b crm.BehaviorType
		w float64
	}
	var rs []ranked
	for _, b := range crm.AllBehaviorTypes {
		if w := c.Weight(b, o); w > 0 {
			rs = append(rs, ranked{b, w})
		}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].w > rs[j].w })
	if n > 0 && len(rs) > n {
		rs = rs[:n]
	}
	out := make([]crm.BehaviorType, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.b)
	}
	return out
}

// Pearson returns the correlation coefficient of xs and ys, or 0 when the
// series are shorter than two points, differ in length, or either has
// zero variance.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}

// dominantSeries keeps the user-scoped snapshots of the most common period
// type; ties go to the finer granularity. Input order (ascending start) is
// preserved.
func dominantSeries(outcomes []crm.Outcome) []crm.Outcome {
	order := []crm.PeriodType{crm.PeriodDaily, crm.PeriodWeekly, crm.PeriodMonthly, crm.PeriodQuarterly, crm.PeriodYearly}
	counts := make(map[crm.PeriodType]int)
	for _, o := range outcomes {
		if o.AccountID == "" {
			counts[o.PeriodType]++
		}
	}
	var best crm.PeriodType
	for _, pt := range order {
		if counts[pt] > counts[best] {
			best = pt
		}
	}
	if best == "" {
		return nil
	}
	var out []crm.Outcome
	for _, o := range outcomes {
		if o.AccountID == "" && o.PeriodType == best {
			out = append(out, o)
		}
	}
	return out
}

func behaviorSeries(b crm.BehaviorType, series []crm.Outcome, scores []crm.BehaviorScore) []float64 {
	xs := make([]float64, len(series))
	for i, snap := range series {
		snapPeriod := crm.Period{Start: snap.PeriodStart, End: snap.PeriodEnd}
		var latest *crm.BehaviorScore
		for j := range scores {
			s := &scores[j]
			if s.Behavior != b || !snapPeriod.Overlaps(s.PeriodStart, s.PeriodEnd) {
				continue
			}
			if latest == nil || s.PeriodStart.After(latest.PeriodStart) {
				latest = s
			}
		}
		if latest != nil {
			xs[i] = latest.Composite()
		}
	}
	return xs
}

// tagWeights scores each behavior by the mean outcome tag of its tagged
// activities: won 1, ongoing 0.5, lost 0.
func tagWeights(acts []crm.Activity) map[crm.BehaviorType]float64 {
	sums := make(map[crm.BehaviorType][]float64)
	for _, a := range acts {
		if a.Outcome == nil || !a.Behavior.Valid() {
			continue
		}
		v := 0.0
		switch *a.Outcome {
		case crm.TagWon:
			v = 1
		case crm.TagOngoing:
			v = 0.5
		}
		sums[a.Behavior] = append(sums[a.Behavior], v)
	}
	out := make(map[crm.BehaviorType]float64, len(sums))
	for b, vs := range sums {
		out[b] = mean(vs)
	}
	return out
}
