package watcher

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

func makeState(total int, signals ...crm.CoachingSignal) *WatchState {
	s := &WatchState{
		Timestamp:  time.Date(2026, 7, 1, 7, 0, 0, 0, time.UTC),
		Metrics:    analytics.Metrics{Total: total},
		Unresolved: make(map[crm.SignalType]crm.CoachingSignal),
	}
	for _, sig := range signals {
		s.Unresolved[sig.Type] = sig
	}
	return s
}

func sig(t crm.SignalType, p crm.Priority) crm.CoachingSignal {
	return crm.CoachingSignal{ID: string(t), Type: t, Priority: p, Message: "msg " + string(t)}
}

func TestCompare_NoChanges(t *testing.T) {
	prev := makeState(60, sig(crm.SignalInterestDrop, crm.PriorityMedium))
	curr := makeState(65, sig(crm.SignalInterestDrop, crm.PriorityMedium))

	if alerts := Compare(prev, curr); len(alerts) != 0 {
		t.Errorf("expected 0 alerts, got %d", len(alerts))
		for _, a := range alerts {
			t.Logf("  [%s] %s: %s", a.Level, a.Title, a.Message)
		}
	}
}

func TestCompare_NewSignals(t *testing.T) {
	prev := makeState(60)
	curr := makeState(60,
		sig(crm.SignalWeakBehavior, crm.PriorityLow),
		sig(crm.SignalCompetitorActivity, crm.PriorityHigh),
	)

	alerts := Compare(prev, curr)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Level != "critical" || !strings.Contains(alerts[0].Title, "competitor activity") {
		t.Errorf("expected critical competitor alert first, got %+v", alerts[0])
	}
	if alerts[1].Level != "warning" || !strings.Contains(alerts[1].Title, "weak behavior") {
		t.Errorf("expected warning weak-behavior alert, got %+v", alerts[1])
	}
	if alerts[0].Message != "msg competitor_activity" {
		t.Errorf("expected signal message, got %q", alerts[0].Message)
	}
}

func TestCompare_Escalation(t *testing.T) {
	prev := makeState(60, sig(crm.SignalRelationshipDecline, crm.PriorityMedium))
	curr := makeState(60, sig(crm.SignalRelationshipDecline, crm.PriorityHigh))

	alerts := Compare(prev, curr)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Level != "warning" || !strings.HasPrefix(alerts[0].Title, "Signal escalated") {
		t.Errorf("expected escalation alert, got %+v", alerts[0])
	}
}

func TestCompare_ClearedAndScoreMovement(t *testing.T) {
	prev := makeState(50, sig(crm.SignalBehaviorLack, crm.PriorityHigh))
	curr := makeState(62)

	alerts := Compare(prev, curr)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Title != "Signal cleared: behavior lack" {
		t.Errorf("unexpected title %q", alerts[0].Title)
	}
	if alerts[1].Title != "Total score up" {
		t.Errorf("unexpected title %q", alerts[1].Title)
	}

	alerts = Compare(makeState(70), makeState(55))
	if len(alerts) != 1 || alerts[0].Title != "Total score down" {
		t.Errorf("expected score-down alert, got %+v", alerts)
	}
}
