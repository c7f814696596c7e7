// Package recommend ranks next-best-actions per account from correlation
// output and recent activity gaps.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// DefaultLimit is used when the caller passes a non-positive limit.
const DefaultLimit = 5

// Store is the persistence collaborator used by the engine.
type Store interface {
	ListAccounts(ctx context.Context, f crm.AccountFilter) ([]crm.Account, error)
	ListContacts(ctx context.Context, f crm.ContactFilter) ([]crm.Contact, error)
	ListActivities(ctx context.Context, f crm.ActivityFilter) ([]crm.Activity, error)
}

// Engine produces ranked next-best-actions.
type Engine struct {
	store      Store
	correlator analytics.Correlator
	windowDays int
	logger     *zap.Logger
}

// NewEngine creates a recommendation Engine over the trailing windowDays.
func NewEngine(store Store, correlator analytics.Correlator, windowDays int, logger *zap.Logger) *Engine {
	if windowDays <= 0 {
		windowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, correlator: correlator, windowDays: windowDays, logger: logger}
}

// Recommend returns up to limit next-best-actions for the user's accounts,
// highest priority first. An empty conversion summary yields no
// recommendations.
func (e *Engine) Recommend(ctx context.Context, userID string, now time.Time, limit int) ([]crm.NextBestAction, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	window := crm.TrailingDays(now, e.windowDays)

	corr, err := e.correlator.Compute(ctx, userID, window)
	if err != nil {
		return nil, fmt.Errorf("recommend: correlations: %w", err)
	}
	top := corr.TopBehaviorsForConversion
	if len(top) == 0 {
		e.logger.Debug("no conversion drivers, skipping recommendations", zap.String("user_id", userID))
		return nil, nil
	}

	accounts, err := e.store.ListAccounts(ctx, crm.AccountFilter{OwnerID: userID})
	if err != nil {
		return nil, fmt.Errorf("recommend: listing accounts: %w", err)
	}
	acts, err := e.store.ListActivities(ctx, crm.ActivityFilter{UserID: userID, From: window.Start, To: window.End})
	if err != nil {
		return nil, fmt.Errorf("recommend: listing activities: %w", err)
	}

	counts := make(map[string]map[crm.BehaviorType]int, len(accounts))
	for _, a := range acts {
		m, ok := counts[a.AccountID]
		if !ok {
			m = make(map[crm.BehaviorType]int)
			counts[a.AccountID] = m
		}
		m[a.Behavior]++
	}

	var out []crm.NextBestAction
	for _, acc := range accounts {
		idx, count := pickBehavior(top, counts[acc.ID])
		behavior := top[idx]
		nba := crm.NextBestAction{
			AccountID:   acc.ID,
			AccountName: acc.Name,
			Behavior:    behavior,
			Priority:    Priority(len(top), idx, count),
			Reason:      reason(behavior, idx, count, e.windowDays),
		}

		contacts, err := e.store.ListContacts(ctx, crm.ContactFilter{AccountID: acc.ID})
		if err != nil {
			return nil, fmt.Errorf("recommend: listing contacts for %s: %w", acc.ID, err)
		}
		// The first contact in list order is attached.
		if len(contacts) > 0 {
			nba.ContactID = contacts[0].ID
			nba.ContactName = contacts[0].Name
		}
		out = append(out, nba)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > limit {
		out = out[:limit]
	}

	e.logger.Info("recommendations ranked",
		zap.String("user_id", userID),
		zap.Int("accounts", len(accounts)),
		zap.Int("returned", len(out)))
	return out, nil
}

// pickBehavior returns the index into top of the least-performed behavior
// and its count. Ties go to the earlier entry in top.
func pickBehavior(top []crm.BehaviorType, counts map[crm.BehaviorType]int) (int, int) {
	best, bestCount := 0, counts[top[0]]
	for i := 1; i < len(top); i++ {
		if c := counts[top[i]]; c < bestCount {
			best, bestCount = i, c
		}
	}
	return best, bestCount
}

// Priority is (n - index) * 20, plus 20 when the behavior was never
// performed, capped at 100.
func Priority(n, index, count int) int {
	p := (n - index) * 20
	if count == 0 {
		p += 20
	}
	return crm.Clamp(p)
}

func reason(b crm.BehaviorType, index, count, windowDays int) string {
	label := strings.ReplaceAll(string(b), "_", " ")
	rank := fmt.Sprintf("the #%d driver of conversion", index+1)
	if count == 0 {
		return fmt.Sprintf("No %s in the last %d days; %s is %s.", label, windowDays, label, rank)
	}
	return fmt.Sprintf("Only %d %s activities in the last %d days; %s is %s.", count, label, windowDays, label, rank)
}
