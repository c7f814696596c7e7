package analytics

import (
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func tagPtr(t crm.OutcomeTag) *crm.OutcomeTag { return &t }

func activity(id string, at time.Time, b crm.BehaviorType) crm.Activity {
	return crm.Activity{
		ID:          id,
		UserID:      "u-1",
		AccountID:   "acc-1",
		Kind:        crm.KindVisit,
		Behavior:    b,
		PerformedAt: at,
	}
}
