// Package crmtest provides an in-memory persistence fake with the same
// method set as store.DB, for use in tests.
package crmtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Store is an in-memory, concurrency-safe persistence fake. Setting Err
// makes every call fail with it.
type Store struct {
	mu sync.Mutex

	Err error

	Users             []crm.User
	Accounts          []crm.Account
	Contacts          []crm.Contact
	Activities        []crm.Activity
	BehaviorScores    []crm.BehaviorScore
	Outcomes          []crm.Outcome
	CoachingSignals   []crm.CoachingSignal
	CompetitorSignals []crm.CompetitorSignal

	// Calls counts method invocations by name.
	Calls map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{Calls: make(map[string]int)}
}

func (s *Store) enter(name string) error {
	if s.Calls == nil {
		s.Calls = make(map[string]int)
	}
	s.Calls[name]++
	if s.Err != nil {
		return crm.Persistence(name, s.Err)
	}
	return nil
}

func (s *Store) InsertUser(_ context.Context, u *crm.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertUser"); err != nil {
		return err
	}
	u.Email = crm.NormalizeEmail(u.Email)
	s.Users = append(s.Users, *u)
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*crm.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserByEmail"); err != nil {
		return nil, err
	}
	email = crm.NormalizeEmail(email)
	for _, u := range s.Users {
		if crm.NormalizeEmail(u.Email) == email {
			u := u
			return &u, nil
		}
	}
	return nil, crm.NotFoundf("user %q not found", email)
}

func (s *Store) InsertAccount(_ context.Context, a *crm.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertAccount"); err != nil {
		return err
	}
	s.Accounts = append(s.Accounts, *a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*crm.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetAccount"); err != nil {
		return nil, err
	}
	for _, a := range s.Accounts {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, crm.NotFoundf("account %q not found", id)
}

func (s *Store) ListAccounts(_ context.Context, f crm.AccountFilter) ([]crm.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListAccounts"); err != nil {
		return nil, err
	}
	var out []crm.Account
	for _, a := range s.Accounts {
		if f.OwnerID == "" || a.OwnerID == f.OwnerID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertContact(_ context.Context, c *crm.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertContact"); err != nil {
		return err
	}
	s.Contacts = append(s.Contacts, *c)
	return nil
}

func (s *Store) ListContacts(_ context.Context, f crm.ContactFilter) ([]crm.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListContacts"); err != nil {
		return nil, err
	}
	var out []crm.Contact
	for _, c := range s.Contacts {
		if f.AccountID == "" || c.AccountID == f.AccountID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertActivity(_ context.Context, a *crm.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertActivity"); err != nil {
		return err
	}
	s.Activities = append(s.Activities, *a)
	return nil
}

func (s *Store) UpdateActivity(_ context.Context, a *crm.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateActivity"); err != nil {
		return err
	}
	for i := range s.Activities {
		if s.Activities[i].ID == a.ID {
			s.Activities[i] = *a
			return nil
		}
	}
	return crm.NotFoundf("activity %q not found", a.ID)
}

func (s *Store) DeleteActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteActivity"); err != nil {
		return err
	}
	for i := range s.Activities {
		if s.Activities[i].ID == id {
			s.Activities = append(s.Activities[:i], s.Activities[i+1:]...)
			return nil
		}
	}
	return crm.NotFoundf("activity %q not found", id)
}

func (s *Store) GetActivity(_ context.Context, id string) (*crm.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetActivity"); err != nil {
		return nil, err
	}
	for _, a := range s.Activities {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, crm.NotFoundf("activity %q not found", id)
}

func (s *Store) ListActivities(_ context.Context, f crm.ActivityFilter) ([]crm.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActivities"); err != nil {
		return nil, err
	}
	var out []crm.Activity
	for _, a := range s.Activities {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PerformedAt.Equal(out[j].PerformedAt) {
			if f.Newest {
				return out[i].PerformedAt.After(out[j].PerformedAt)
			}
			return out[i].PerformedAt.Before(out[j].PerformedAt)
		}
		if f.Newest {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (s *Store) InsertBehaviorScores(_ context.Context, scores []crm.BehaviorScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertBehaviorScores"); err != nil {
		return err
	}
	s.BehaviorScores = append(s.BehaviorScores, scores...)
	return nil
}

func (s *Store) DeleteBehaviorScores(_ context.Context, userID string, p crm.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteBehaviorScores"); err != nil {
		return err
	}
	kept := s.BehaviorScores[:0]
	for _, b := range s.BehaviorScores {
		if b.UserID == userID && b.PeriodStart.Equal(p.Start) && b.PeriodEnd.Equal(p.End) {
			continue
		}
		kept = append(kept, b)
	}
	s.BehaviorScores = kept
	return nil
}

func (s *Store) ListBehaviorScores(_ context.Context, f crm.BehaviorScoreFilter) ([]crm.BehaviorScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListBehaviorScores"); err != nil {
		return nil, err
	}
	var out []crm.BehaviorScore
	for _, b := range s.BehaviorScores {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.After(out[j].PeriodStart)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertOutcome(_ context.Context, o *crm.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertOutcome"); err != nil {
		return err
	}
	s.Outcomes = append(s.Outcomes, *o)
	return nil
}

func (s *Store) DeleteOutcomes(_ context.Context, userID string, pt crm.PeriodType, p crm.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteOutcomes"); err != nil {
		return err
	}
	kept := s.Outcomes[:0]
	for _, o := range s.Outcomes {
		if o.UserID == userID && o.PeriodType == pt && o.AccountID == "" &&
			o.PeriodStart.Equal(p.Start) && o.PeriodEnd.Equal(p.End) {
			continue
		}
		kept = append(kept, o)
	}
	s.Outcomes = kept
	return nil
}

func (s *Store) ListOutcomes(_ context.Context, f crm.OutcomeFilter) ([]crm.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListOutcomes"); err != nil {
		return nil, err
	}
	var out []crm.Outcome
	for _, o := range s.Outcomes {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.Before(out[j].PeriodStart)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertCoachingSignal(_ context.Context, c *crm.CoachingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertCoachingSignal"); err != nil {
		return err
	}
	s.CoachingSignals = append(s.CoachingSignals, *c)
	return nil
}

func (s *Store) UpdateCoachingSignal(_ context.Context, c *crm.CoachingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateCoachingSignal"); err != nil {
		return err
	}
	for i := range s.CoachingSignals {
		if s.CoachingSignals[i].ID == c.ID {
			s.CoachingSignals[i] = *c
			return nil
		}
	}
	return crm.NotFoundf("coaching signal %q not found", c.ID)
}

func (s *Store) GetCoachingSignal(_ context.Context, id string) (*crm.CoachingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCoachingSignal"); err != nil {
		return nil, err
	}
	for _, c := range s.CoachingSignals {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, crm.NotFoundf("coaching signal %q not found", id)
}

func (s *Store) ListCoachingSignals(_ context.Context, f crm.CoachingSignalFilter) ([]crm.CoachingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListCoachingSignals"); err != nil {
		return nil, err
	}
	var out []crm.CoachingSignal
	for _, c := range s.CoachingSignals {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, f.Limit, 0), nil
}

func (s *Store) InsertCompetitorSignal(_ context.Context, c *crm.CompetitorSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertCompetitorSignal"); err != nil {
		return err
	}
	s.CompetitorSignals = append(s.CompetitorSignals, *c)
	return nil
}

func (s *Store) ListCompetitorSignals(_ context.Context, f crm.CompetitorSignalFilter) ([]crm.CompetitorSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListCompetitorSignals"); err != nil {
		return nil, err
	}
	var out []crm.CompetitorSignal
	for _, c := range s.CompetitorSignals {
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if f.AccountID != "" && c.AccountID != f.AccountID {
			continue
		}
		if f.Competitor != "" && !strings.EqualFold(c.Competitor, f.Competitor) {
			continue
		}
		if !f.From.IsZero() && c.DetectedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.DetectedAt.Before(f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return page(out, f.Limit, 0), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
