package crm

import "time"

// ActivityFilter selects activities. Zero values mean "no constraint";
// From is inclusive and To exclusive on PerformedAt.
type ActivityFilter struct {
	UserID    string
	AccountID string
	From      time.Time
	To        time.Time
	// Newest orders by PerformedAt descending instead of ascending.
	Newest bool
	Limit  int
	Offset int
}

// Matches reports whether a satisfies the filter's predicates. Ordering
// and paging are not considered.
func (f ActivityFilter) Matches(a Activity) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.AccountID != "" && a.AccountID != f.AccountID {
		return false
	}
	if !f.From.IsZero() && a.PerformedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.PerformedAt.Before(f.To) {
		return false
	}
	return true
}

// BehaviorScoreFilter selects behavior scores whose period overlaps
// [From, To). Results are ordered by PeriodStart descending.
type BehaviorScoreFilter struct {
	UserID string
	From   time.Time
	To     time.Time
}

// Matches reports whether b satisfies the filter.
func (f BehaviorScoreFilter) Matches(b BehaviorScore) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if !f.To.IsZero() && !b.PeriodStart.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && !b.PeriodEnd.After(f.From) {
		return false
	}
	return true
}

// OutcomeFilter selects outcome snapshots whose period overlaps [From, To).
// Results are ordered by PeriodStart ascending.
type OutcomeFilter struct {
	UserID     string
	AccountID  string
	PeriodType PeriodType
	From       time.Time
	To         time.Time
}

// Matches reports whether o satisfies the filter.
func (f OutcomeFilter) Matches(o Outcome) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.AccountID != "" && o.AccountID != f.AccountID {
		return false
	}
	if f.PeriodType != "" && o.PeriodType != f.PeriodType {
		return false
	}
	if !f.To.IsZero() && !o.PeriodStart.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && !o.PeriodEnd.After(f.From) {
		return false
	}
	return true
}

// CoachingSignalFilter selects coaching signals, newest first.
type CoachingSignalFilter struct {
	UserID         string
	Type           SignalType
	OnlyUnresolved bool
	Limit          int
}

// Matches reports whether s satisfies the filter.
func (f CoachingSignalFilter) Matches(s CoachingSignal) bool {
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.OnlyUnresolved && s.Resolved {
		return false
	}
	return true
}

// CompetitorSignalFilter selects competitor signals detected in [From, To),
// newest first. Competitor matches case-insensitively.
type CompetitorSignalFilter struct {
	UserID     string
	AccountID  string
	Competitor string
	From       time.Time
	To         time.Time
	Limit      int
}

// AccountFilter selects accounts ordered by name.
type AccountFilter struct {
	OwnerID string
}

// ContactFilter selects contacts in list order (CreatedAt, then ID).
type ContactFilter struct {
	AccountID string
}
