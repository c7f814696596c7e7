// Package activity records sales activities and raises competitor signals
// from their descriptions.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/detect"
)

// Store is the persistence collaborator used by the service.
type Store interface {
	GetAccount(ctx context.Context, id string) (*crm.Account, error)
	InsertActivity(ctx context.Context, a *crm.Activity) error
	UpdateActivity(ctx context.Context, a *crm.Activity) error
	DeleteActivity(ctx context.Context, id string) error
	GetActivity(ctx context.Context, id string) (*crm.Activity, error)
	ListActivities(ctx context.Context, f crm.ActivityFilter) ([]crm.Activity, error)
	InsertCompetitorSignal(ctx context.Context, s *crm.CompetitorSignal) error
	ListCompetitorSignals(ctx context.Context, f crm.CompetitorSignalFilter) ([]crm.CompetitorSignal, error)
}

// Service manages activities owned by a user.
type Service struct {
	store    Store
	detector *detect.Detector
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates an activity Service. A nil detector disables
// competitor detection.
func NewService(store Store, detector *detect.Detector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, detector: detector, newID: uuid.NewString, now: time.Now, logger: logger}
}

// SetClock overrides the clock used for timestamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create validates and stores a new activity for userID, then runs
// competitor detection on its description. Detection failures are logged
// and never fail the call.
func (s *Service) Create(ctx context.Context, userID string, a crm.Activity) (*crm.Activity, error) {
	if err := Validate(&a); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAccount(ctx, a.AccountID); err != nil {
		return nil, err
	}

	now := s.now()
	a.ID = s.newID()
	a.UserID = userID
	a.CreatedAt = now
	if a.PerformedAt.IsZero() {
		a.PerformedAt = now
	}
	if err := s.store.InsertActivity(ctx, &a); err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}
	s.logger.Info("activity created",
		zap.String("id", a.ID), zap.String("user_id", userID),
		zap.String("account_id", a.AccountID), zap.String("behavior", string(a.Behavior)))

	if _, err := s.detectCompetitor(ctx, &a); err != nil {
		s.logger.Warn("competitor detection failed",
			zap.String("activity_id", a.ID), zap.Error(err))
	}
	return &a, nil
}

// Update replaces the mutable fields of an activity owned by userID.
func (s *Service) Update(ctx context.Context, userID string, a crm.Activity) (*crm.Activity, error) {
	existing, err := s.owned(ctx, userID, a.ID)
	if err != nil {
		return nil, err
	}
	if err := Validate(&a); err != nil {
		return nil, err
	}
	if a.AccountID != existing.AccountID {
		if _, err := s.store.GetAccount(ctx, a.AccountID); err != nil {
			return nil, err
		}
	}
	a.UserID = existing.UserID
	a.CreatedAt = existing.CreatedAt
	if a.PerformedAt.IsZero() {
		a.PerformedAt = existing.PerformedAt
	}
	if err := s.store.UpdateActivity(ctx, &a); err != nil {
		return nil, fmt.Errorf("updating activity: %w", err)
	}
	s.logger.Info("activity updated", zap.String("id", a.ID), zap.String("user_id", userID))
	return &a, nil
}

// Delete removes an activity owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	s.logger.Info("activity deleted", zap.String("id", id), zap.String("user_id", userID))
	return nil
}

// List returns the user's most recent activities, newest first.
func (s *Service) List(ctx context.Context, userID, accountID string, limit int) ([]crm.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListActivities(ctx, crm.ActivityFilter{
		UserID:    userID,
		AccountID: accountID,
		Newest:    true,
		Limit:     limit,
	})
}

// RecordCompetitor stores a manually entered competitor signal. It returns
// nil without error when a signal for the same account and competitor was
// already recorded that day.
func (s *Service) RecordCompetitor(ctx context.Context, userID, accountID, competitor, description string) (*crm.CompetitorSignal, error) {
	competitor = strings.TrimSpace(competitor)
	if competitor == "" {
		return nil, crm.Invalidf("competitor name is required")
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	sig := &crm.CompetitorSignal{
		UserID:      userID,
		AccountID:   accountID,
		Competitor:  competitor,
		Type:        crm.ManualEntry,
		Description: description,
		DetectedAt:  s.now(),
	}
	return s.saveCompetitor(ctx, sig)
}

// detectCompetitor runs the detector over a's description and stores the
// result unless it duplicates a same-day signal.
func (s *Service) detectCompetitor(ctx context.Context, a *crm.Activity) (*crm.CompetitorSignal, error) {
	if s.detector == nil {
		return nil, nil
	}
	det := s.detector.Detect(a.Description)
	if det == nil {
		return nil, nil
	}
	confidence := det.Confidence
	return s.saveCompetitor(ctx, &crm.CompetitorSignal{
		UserID:      a.UserID,
		AccountID:   a.AccountID,
		ActivityID:  a.ID,
		Competitor:  det.Competitor,
		Type:        det.Type,
		Description: det.Description,
		Confidence:  &confidence,
		DetectedAt:  s.now(),
	})
}

func (s *Service) saveCompetitor(ctx context.Context, sig *crm.CompetitorSignal) (*crm.CompetitorSignal, error) {
	dayStart := startOfDay(sig.DetectedAt)
	dups, err := s.store.ListCompetitorSignals(ctx, crm.CompetitorSignalFilter{
		AccountID:  sig.AccountID,
		Competitor: sig.Competitor,
		From:       dayStart,
		To:         dayStart.AddDate(0, 0, 1),
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("checking duplicate competitor signal: %w", err)
	}
	if len(dups) > 0 {
		s.logger.Debug("duplicate competitor signal skipped",
			zap.String("account_id", sig.AccountID), zap.String("competitor", sig.Competitor))
		return nil, nil
	}

	sig.ID = s.newID()
	if err := s.store.InsertCompetitorSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("saving competitor signal: %w", err)
	}
	s.logger.Info("competitor signal recorded",
		zap.String("id", sig.ID), zap.String("account_id", sig.AccountID),
		zap.String("competitor", sig.Competitor), zap.String("type", string(sig.Type)))
	return sig, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*crm.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, crm.Forbiddenf("activity %q belongs to another user", id)
	}
	return a, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Validate checks enumerations and score ranges.
func Validate(a *crm.Activity) error {
	if a.AccountID == "" {
		return crm.Invalidf("account is required")
	}
	if !a.Kind.Valid() {
		return crm.Invalidf("unknown activity kind %q", a.Kind)
	}
	if !a.Behavior.Valid() {
		return crm.Invalidf("unknown behavior type %q", a.Behavior)
	}
	if a.Outcome != nil && !a.Outcome.Valid() {
		return crm.Invalidf("unknown outcome %q", *a.Outcome)
	}
	scores := map[string]int{"quality_score": a.QualityScore, "quantity_score": a.QuantityScore}
	if a.SentimentScore != nil {
		scores["sentiment_score"] = *a.SentimentScore
	}
	for _, name := range []string{"quality_score", "quantity_score", "sentiment_score"} {
		v, ok := scores[name]
		if ok && (v < 0 || v > 100) {
			return crm.Invalidf("%s must be between 0 and 100, got %d", name, v)
		}
	}
	if a.DurationMin < 0 {
		return crm.Invalidf("duration must not be negative")
	}
	return nil
}
