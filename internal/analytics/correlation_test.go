package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/crm/crmtest"
)

func seriesFixture() *crmtest.Store {
	st := crmtest.New()
	for i := 0; i < 4; i++ {
		start, end := day0.Add(days(i)), day0.Add(days(i+1))
		up := 40 + 10*i
		down := 80 - 10*i
		st.BehaviorScores = append(st.BehaviorScores,
			crm.BehaviorScore{ID: "v", UserID: "u-1", Behavior: crm.BehaviorVisit, Intensity: up, Diversity: up, Quality: up, PeriodStart: start, PeriodEnd: end},
			crm.BehaviorScore{ID: "c", UserID: "u-1", Behavior: crm.BehaviorContact, Intensity: down, Diversity: down, Quality: down, PeriodStart: start, PeriodEnd: end},
		)
		st.Outcomes = append(st.Outcomes, crm.Outcome{
			ID: "o", UserID: "u-1", PeriodType: crm.PeriodDaily,
			PeriodStart: start, PeriodEnd: end,
			HIR: 50, ConversionRate: 10 + 20*i,
		})
	}
	return st
}

func TestSeriesCorrelator_SeriesWeights(t *testing.T) {
	st := seriesFixture()
	c := NewSeriesCorrelator(st, 3, 3, zap.NewNop())

	got, err := c.Compute(context.Background(), "u-1", crm.Period{Start: day0, End: day0.Add(days(30))})
	require.NoError(t, err)

	assert.Equal(t, MethodSeries, got.Method)
	assert.Equal(t, 4, got.Points)
	assert.Len(t, got.Pairs, 32)
	assert.InDelta(t, 1.0, got.Weight(crm.BehaviorVisit, crm.OutcomeConversionRate), 1e-9)
	assert.Equal(t, 0.0, got.Weight(crm.BehaviorContact, crm.OutcomeConversionRate))
	assert.Equal(t, 0.0, got.Weight(crm.BehaviorVisit, crm.OutcomeHIR), "constant outcome has no variance")
	assert.Equal(t, 0.0, got.Weight(crm.BehaviorQuestion, crm.OutcomeConversionRate), "absent behavior has no variance")
	assert.Equal(t, []crm.BehaviorType{crm.BehaviorVisit}, got.TopBehaviorsForConversion)

	for _, p := range got.Pairs {
		assert.GreaterOrEqual(t, p.Weight, 0.0)
		assert.LessOrEqual(t, p.Weight, 1.0)
	}
}

func TestSeriesCorrelator_Deterministic(t *testing.T) {
	st := seriesFixture()
	c := NewSeriesCorrelator(st, 3, 3, zap.NewNop())
	p := crm.Period{Start: day0, End: day0.Add(days(30))}

	a, err := c.Compute(context.Background(), "u-1", p)
	require.NoError(t, err)
	b, err := c.Compute(context.Background(), "u-1", p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSeriesCorrelator_FallsBackToOutcomeTags(t *testing.T) {
	st := crmtest.New()
	mk := func(id string, b crm.BehaviorType, tag crm.OutcomeTag) crm.Activity {
		a := activity(id, day0.Add(days(1)), b)
		a.Outcome = tagPtr(tag)
		return a
	}
	st.Activities = []crm.Activity{
		mk("1", crm.BehaviorVisit, crm.TagWon),
		mk("2", crm.BehaviorVisit, crm.TagOngoing),
		mk("3", crm.BehaviorContact, crm.TagLost),
		mk("4", crm.BehaviorDemonstration, crm.TagWon),
		activity("5", day0.Add(days(1)), crm.BehaviorApproach),
	}
	c := NewSeriesCorrelator(st, 3, 3, zap.NewNop())

	got, err := c.Compute(context.Background(), "u-1", crm.Period{Start: day0, End: day0.Add(days(30))})
	require.NoError(t, err)

	assert.Equal(t, MethodOutcomeTags, got.Method)
	assert.InDelta(t, 0.75, got.Weight(crm.BehaviorVisit, crm.OutcomeConversionRate), 1e-9)
	assert.Equal(t, 0.0, got.Weight(crm.BehaviorContact, crm.OutcomeConversionRate))
	assert.Equal(t, 0.0, got.Weight(crm.BehaviorApproach, crm.OutcomeConversionRate))
	assert.Equal(t, []crm.BehaviorType{crm.BehaviorDemonstration, crm.BehaviorVisit}, got.TopBehaviorsForConversion)
}

func TestTopBehaviors_TiesFollowEnumerationOrder(t *testing.T) {
	c := Correlations{Pairs: []PairWeight{
		{Behavior: crm.BehaviorQuestion, Outcome: crm.OutcomeConversionRate, Weight: 1},
		{Behavior: crm.BehaviorFollowUp, Outcome: crm.OutcomeConversionRate, Weight: 0.5},
		{Behavior: crm.BehaviorApproach, Outcome: crm.OutcomeConversionRate, Weight: 1},
		{Behavior: crm.BehaviorVisit, Outcome: crm.OutcomeHIR, Weight: 1},
	}}

	assert.Equal(t,
		[]crm.BehaviorType{crm.BehaviorApproach, crm.BehaviorQuestion},
		TopBehaviors(c, crm.OutcomeConversionRate, 2))
	assert.Equal(t,
		[]crm.BehaviorType{crm.BehaviorApproach, crm.BehaviorQuestion, crm.BehaviorFollowUp},
		TopBehaviors(c, crm.OutcomeConversionRate, 5))
}

func TestSeriesCorrelator_EmptyHistory(t *testing.T) {
	c := NewSeriesCorrelator(crmtest.New(), 3, 3, zap.NewNop())

	got, err := c.Compute(context.Background(), "u-1", crm.Period{Start: day0, End: day0.Add(days(30))})
	require.NoError(t, err)
	assert.Len(t, got.Pairs, 32)
	assert.Empty(t, got.TopBehaviorsForConversion)
}

func TestSeriesCorrelator_PropagatesPersistenceFailure(t *testing.T) {
	st := crmtest.New()
	st.Err = errors.New("timeout")
	c := NewSeriesCorrelator(st, 3, 3, zap.NewNop())

	_, err := c.Compute(context.Background(), "u-1", crm.Period{Start: day0, End: day0.Add(days(30))})
	var pe *crm.PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{1}))
	assert.Equal(t, 0.0, Pearson([]float64{1, 2}, []float64{1, 2, 3}))
}
