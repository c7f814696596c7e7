package coaching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Store is the persistence collaborator used by the service.
type Store interface {
	analytics.Source
	ListAccounts(ctx context.Context, f crm.AccountFilter) ([]crm.Account, error)
	ListCompetitorSignals(ctx context.Context, f crm.CompetitorSignalFilter) ([]crm.CompetitorSignal, error)
	InsertCoachingSignal(ctx context.Context, s *crm.CoachingSignal) error
	UpdateCoachingSignal(ctx context.Context, s *crm.CoachingSignal) error
	GetCoachingSignal(ctx context.Context, id string) (*crm.CoachingSignal, error)
	ListCoachingSignals(ctx context.Context, f crm.CoachingSignalFilter) ([]crm.CoachingSignal, error)
}

// Service generates, persists, and resolves coaching signals.
type Service struct {
	store      Store
	calc       *analytics.Calculator
	correlator analytics.Correlator
	engine     *Engine
	thresholds config.Coaching
	windowDays int
	newID      func() string
	now        func() time.Time
	logger     *zap.Logger
}

// NewService creates a coaching Service.
func NewService(store Store, calc *analytics.Calculator, correlator analytics.Correlator, thresholds config.Coaching, windowDays int, logger *zap.Logger) *Service {
	if windowDays <= 0 {
		windowDays = config.DefaultAnalytics.WindowDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		calc:       calc,
		correlator: correlator,
		engine:     NewEngine(),
		thresholds: thresholds,
		windowDays: windowDays,
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock overrides the clock used for signal timestamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// BuildContext gathers the rule inputs for the window ending at now.
func (s *Service) BuildContext(ctx context.Context, userID string, now time.Time) (*Context, error) {
	cur := crm.TrailingDays(now, s.windowDays)
	prev := cur.Previous()

	curMetrics, err := s.calc.AggregateAt(ctx, userID, cur, "", now)
	if err != nil {
		return nil, fmt.Errorf("coaching: current metrics: %w", err)
	}
	prevMetrics, err := s.calc.AggregateAt(ctx, userID, prev, "", now)
	if err != nil {
		return nil, fmt.Errorf("coaching: previous metrics: %w", err)
	}
	corr, err := s.correlator.Compute(ctx, userID, cur)
	if err != nil {
		return nil, fmt.Errorf("coaching: correlations: %w", err)
	}

	acts, err := s.store.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: cur.Start, To: cur.End})
	if err != nil {
		return nil, fmt.Errorf("coaching: listing activities: %w", err)
	}
	prevActs, err := s.store.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: prev.Start, To: prev.End})
	if err != nil {
		return nil, fmt.Errorf("coaching: listing previous activities: %w", err)
	}
	scores, err := s.store.ListBehaviorScores(ctx, crm.BehaviorScoreFilter{UserID: userID, From: cur.Start, To: cur.End})
	if err != nil {
		return nil, fmt.Errorf("coaching: listing behavior scores: %w", err)
	}
	comps, err := s.store.ListCompetitorSignals(ctx, crm.CompetitorSignalFilter{UserID: userID, From: cur.Start, To: cur.End})
	if err != nil {
		return nil, fmt.Errorf("coaching: listing competitor signals: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx, crm.AccountFilter{OwnerID: userID})
	if err != nil {
		return nil, fmt.Errorf("coaching: listing accounts: %w", err)
	}

	c := &Context{
		Current:               curMetrics,
		Previous:              prevMetrics,
		Correlations:          corr,
		ActivityCount:         len(acts),
		PreviousActivityCount: len(prevActs),
		BehaviorCounts:        make(map[crm.BehaviorType]int),
		BehaviorQuality:       make(map[crm.BehaviorType]int),
		CompetitorSignals:     comps,
		AccountNames:          make(map[string]string, len(accounts)),
		WindowDays:            s.windowDays,
		Thresholds:            s.thresholds,
	}
	for _, a := range acts {
		c.BehaviorCounts[a.Behavior]++
		if a.SentimentScore != nil {
			c.SentimentCount++
		}
	}
	c.Tagged, c.Won = analytics.TaggedCounts(acts)
	for b, sc := range analytics.LatestByBehavior(scores) {
		c.BehaviorQuality[b] = sc.Quality
	}
	for _, a := range accounts {
		c.AccountNames[a.ID] = a.Name
	}
	return c, nil
}

// Generate evaluates the coaching rules for the trailing window ending at
// now. Nothing is persisted.
func (s *Service) Generate(ctx context.Context, userID string, now time.Time) ([]Signal, error) {
	c, err := s.BuildContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	signals := s.engine.Run(c)
	s.logger.Info("coaching signals generated",
		zap.String("user_id", userID), zap.Int("signals", len(signals)))
	return signals, nil
}

// Save persists signals one at a time. An unresolved signal of the same
// type for the user is updated in place; otherwise a new one is inserted.
// Concurrent callers for the same user can still insert duplicates.
// Unresolved signals whose type is absent from signals are left as they
// are; only Resolve closes a signal.
func (s *Service) Save(ctx context.Context, userID string, signals []Signal) ([]crm.CoachingSignal, error) {
	saved := make([]crm.CoachingSignal, 0, len(signals))
	for _, sig := range signals {
		existing, err := s.store.ListCoachingSignals(ctx, crm.CoachingSignalFilter{
			UserID:         userID,
			Type:           sig.Type,
			OnlyUnresolved: true,
			Limit:          1,
		})
		if err != nil {
			return saved, fmt.Errorf("coaching: finding unresolved %s signal: %w", sig.Type, err)
		}

		now := s.now()
		if len(existing) > 0 {
			cs := existing[0]
			apply(&cs, sig)
			cs.UpdatedAt = now
			if err := s.store.UpdateCoachingSignal(ctx, &cs); err != nil {
				return saved, fmt.Errorf("coaching: updating %s signal: %w", sig.Type, err)
			}
			s.logger.Debug("coaching signal updated", zap.String("id", cs.ID), zap.String("type", string(sig.Type)))
			saved = append(saved, cs)
			continue
		}

		cs := crm.CoachingSignal{ID: s.newID(), UserID: userID, Type: sig.Type, CreatedAt: now, UpdatedAt: now}
		apply(&cs, sig)
		if err := s.store.InsertCoachingSignal(ctx, &cs); err != nil {
			return saved, fmt.Errorf("coaching: inserting %s signal: %w", sig.Type, err)
		}
		s.logger.Debug("coaching signal inserted", zap.String("id", cs.ID), zap.String("type", string(sig.Type)))
		saved = append(saved, cs)
	}
	return saved, nil
}

func apply(cs *crm.CoachingSignal, sig Signal) {
	cs.Priority = sig.Priority
	cs.Message = sig.Message
	cs.RecommendedAction = sig.RecommendedAction
	cs.Behavior = sig.Behavior
	cs.AccountID = sig.AccountID
}

// Resolve marks the user's signal as resolved. Signals owned by another
// user are rejected with crm.ErrForbidden.
func (s *Service) Resolve(ctx context.Context, userID, signalID string) (*crm.CoachingSignal, error) {
	cs, err := s.store.GetCoachingSignal(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if cs.UserID != userID {
		return nil, crm.Forbiddenf("coaching signal %q belongs to another user", signalID)
	}
	if cs.Resolved {
		return cs, nil
	}

	now := s.now()
	cs.Resolved = true
	cs.ResolvedAt = &now
	cs.UpdatedAt = now
	if err := s.store.UpdateCoachingSignal(ctx, cs); err != nil {
		return nil, fmt.Errorf("coaching: resolving signal: %w", err)
	}
	s.logger.Info("coaching signal resolved", zap.String("id", cs.ID), zap.String("user_id", userID))
	return cs, nil
}

// List returns the user's signals, newest first.
func (s *Service) List(ctx context.Context, userID string, includeResolved bool) ([]crm.CoachingSignal, error) {
	return s.store.ListCoachingSignals(ctx, crm.CoachingSignalFilter{
		UserID:         userID,
		OnlyUnresolved: !includeResolved,
	})
}
