package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/coaching"
	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/crm/crmtest"
)

var now = time.Date(2026, 7, 1, 7, 0, 0, 0, time.UTC)

func newTestWatcher(t *testing.T, st *crmtest.Store) *Watcher {
	t.Helper()
	clock := func() time.Time { return now }
	calc := analytics.NewCalculator(st, clock, zap.NewNop())
	corr := analytics.NewSeriesCorrelator(st, 3, 3, zap.NewNop())
	coach := coaching.NewService(st, calc, corr, config.DefaultCoaching, 30, zap.NewNop())
	coach.SetClock(clock)
	refresher := analytics.NewRefresher(st, zap.NewNop())
	refresher.SetClock(clock)

	w := New(Options{
		UserID:     "u-1",
		WindowDays: 30,
		Schedule:   "0 0 7 * * *",
		Refresher:  refresher,
		Coach:      coach,
		Scorer:     calc,
	}, nil)
	w.SetClock(clock)
	return w
}

func TestCheck_RaisesAndDeduplicatesAlerts(t *testing.T) {
	st := crmtest.New()
	w := newTestWatcher(t, st)
	ctx := context.Background()

	require.NoError(t, w.Prime(ctx))
	require.NotNil(t, w.previous)

	st.Activities = append(st.Activities, crm.Activity{
		ID: "a1", UserID: "u-1", AccountID: "acc-1",
		Kind: crm.KindVisit, Behavior: crm.BehaviorVisit,
		QualityScore: 30, QuantityScore: 50,
		PerformedAt: now.Add(-2 * time.Hour),
	})

	alerts := w.Check(ctx)
	require.NotEmpty(t, alerts)
	assert.Equal(t, "critical", alerts[0].Level)
	assert.Equal(t, "New coaching signal: behavior lack", alerts[0].Title)

	assert.NotEmpty(t, st.BehaviorScores, "cycle refreshes snapshots")
	assert.NotEmpty(t, st.CoachingSignals, "cycle saves signals")

	assert.Empty(t, w.Check(ctx), "unchanged state raises nothing")
}

func TestCheck_FailureBecomesWarning(t *testing.T) {
	st := crmtest.New()
	w := newTestWatcher(t, st)
	st.Err = errors.New("database is locked")

	alerts := w.Check(context.Background())
	require.Len(t, alerts, 1)
	assert.Equal(t, "warning", alerts[0].Level)
	assert.Contains(t, alerts[0].Message, "database is locked")
}

func TestRun_RejectsInvalidSchedule(t *testing.T) {
	w := newTestWatcher(t, crmtest.New())
	w.opts.Schedule = "every morning"

	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "invalid watch schedule")
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newTestWatcher(t, crmtest.New())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSnapshot_ScoresWithWatcherClock(t *testing.T) {
	st := crmtest.New()
	next := now.AddDate(0, 0, 3)
	st.Activities = []crm.Activity{{
		ID: "a1", UserID: "u-1", AccountID: "acc-1",
		Kind: crm.KindVisit, Behavior: crm.BehaviorFollowUp,
		PerformedAt: now.Add(-2 * time.Hour), NextActionDate: &next,
	}}
	w := newTestWatcher(t, st)
	w.opts.Scorer = analytics.NewCalculator(st, func() time.Time { return now.AddDate(1, 0, 0) }, zap.NewNop())

	state, err := w.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, state.Metrics.PHR)
}
