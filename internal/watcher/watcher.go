// Package watcher runs the coaching cycle on a cron schedule: it refreshes
// daily snapshots, regenerates coaching signals, and emits alerts for
// notable changes since the previous cycle.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/coaching"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// WatchState captures a point-in-time snapshot of a user's coaching state.
type WatchState struct {
	Timestamp  time.Time
	Metrics    analytics.Metrics
	Unresolved map[crm.SignalType]crm.CoachingSignal
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string    `json:"level"` // "info", "warning", "critical"
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Refresher recomputes behavior-score and outcome snapshots.
type Refresher interface {
	Refresh(ctx context.Context, userID string, pt crm.PeriodType, from, to time.Time) (analytics.RefreshResult, error)
}

// Coach generates, persists, and lists coaching signals.
type Coach interface {
	Generate(ctx context.Context, userID string, now time.Time) ([]coaching.Signal, error)
	Save(ctx context.Context, userID string, signals []coaching.Signal) ([]crm.CoachingSignal, error)
	List(ctx context.Context, userID string, includeResolved bool) ([]crm.CoachingSignal, error)
}

// Scorer computes the aggregate indices as of now.
type Scorer interface {
	AggregateAt(ctx context.Context, userID string, period crm.Period, accountID string, now time.Time) (analytics.Metrics, error)
}

// Options configures a Watcher.
type Options struct {
	UserID     string
	WindowDays int
	// Schedule is a cron spec with a seconds field, e.g. "0 0 7 * * *".
	Schedule  string
	Refresher Refresher
	Coach     Coach
	Scorer    Scorer
	Logger    *zap.Logger
}

// Watcher runs the coaching cycle for one user and emits alerts when
// notable changes are detected.
type Watcher struct {
	opts          Options
	alertFn       func(Alert)     // callback for emitting alerts
	mu            sync.Mutex      // serializes cycles
	previous      *WatchState
	lastAlertKeys map[string]bool // dedup: suppress repeated identical alerts
	now           func() time.Time
	logger        *zap.Logger
}

// New creates a Watcher.
func New(opts Options, alertFn func(Alert)) *Watcher {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		opts:          opts,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		now:           time.Now,
		logger:        logger,
	}
}

// SetClock overrides the clock used for cycle windows and scoring.
func (w *Watcher) SetClock(now func() time.Time) { w.now = now }

// Run takes an initial snapshot, then runs a check cycle on every schedule
// tick. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(ctx); err != nil {
		return err
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.opts.Schedule, func() {
		w.logger.Info("watch cycle started", zap.String("user_id", w.opts.UserID))
		for _, a := range w.Check(ctx) {
			if w.alertFn != nil {
				w.alertFn(a)
			}
		}
	}); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", w.opts.Schedule, err)
	}

	c.Start()
	w.logger.Info("watcher started",
		zap.String("user_id", w.opts.UserID), zap.String("schedule", w.opts.Schedule))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	w.logger.Info("watcher stopped")
	return ctx.Err()
}

// Prime records the current state as the baseline for the next Check.
func (w *Watcher) Prime(ctx context.Context) error {
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	w.mu.Lock()
	w.previous = initial
	w.mu.Unlock()
	return nil
}

// Check performs a single cycle: refresh, regenerate and save signals,
// snapshot, and compare against the previous state. Identical alerts are
// suppressed until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	curr, err := w.cycle(ctx)
	if err != nil {
		w.logger.Error("watch cycle failed", zap.String("user_id", w.opts.UserID), zap.Error(err))
		return []Alert{{
			Level:   "warning",
			Title:   "Watch cycle failed",
			Message: fmt.Sprintf("Could not refresh coaching data: %v", err),
			Time:    w.now(),
		}}
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	w.previous = curr
	return alerts
}

func (w *Watcher) cycle(ctx context.Context) (*WatchState, error) {
	now := w.now()
	today := startOfDay(now)
	from := today.AddDate(0, 0, -w.opts.WindowDays)
	to := today.AddDate(0, 0, 1)

	res, err := w.opts.Refresher.Refresh(ctx, w.opts.UserID, crm.PeriodDaily, from, to)
	if err != nil {
		return nil, fmt.Errorf("refreshing snapshots: %w", err)
	}
	signals, err := w.opts.Coach.Generate(ctx, w.opts.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("generating signals: %w", err)
	}
	if _, err := w.opts.Coach.Save(ctx, w.opts.UserID, signals); err != nil {
		return nil, fmt.Errorf("saving signals: %w", err)
	}
	w.logger.Debug("watch cycle refreshed",
		zap.Int("periods", res.Periods), zap.Int("signals", len(signals)))

	return w.Snapshot(ctx)
}

// Snapshot captures the current metrics and unresolved coaching signals.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	now := w.now()
	m, err := w.opts.Scorer.AggregateAt(ctx, w.opts.UserID, crm.TrailingDays(now, w.opts.WindowDays), "", now)
	if err != nil {
		return nil, fmt.Errorf("computing metrics: %w", err)
	}
	open, err := w.opts.Coach.List(ctx, w.opts.UserID, false)
	if err != nil {
		return nil, fmt.Errorf("listing signals: %w", err)
	}

	state := &WatchState{
		Timestamp:  now,
		Metrics:    m,
		Unresolved: make(map[crm.SignalType]crm.CoachingSignal, len(open)),
	}
	for _, s := range open {
		if _, ok := state.Unresolved[s.Type]; !ok {
			state.Unresolved[s.Type] = s
		}
	}
	return state, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
