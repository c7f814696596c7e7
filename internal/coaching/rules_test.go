package coaching

import (
	"strings"
	"testing"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// healthyContext returns a context that triggers no rule.
func healthyContext() *Context {
	return &Context{
		Current:               analytics.Metrics{HIR: 70, RTR: 80, BCR: 80, PHR: 70},
		Previous:              analytics.Metrics{HIR: 70, RTR: 80, BCR: 80, PHR: 70},
		ActivityCount:         10,
		PreviousActivityCount: 10,
		SentimentCount:        5,
		BehaviorCounts:        map[crm.BehaviorType]int{crm.BehaviorVisit: 6, crm.BehaviorContact: 4},
		BehaviorQuality:       map[crm.BehaviorType]int{crm.BehaviorVisit: 75, crm.BehaviorContact: 80},
		AccountNames:          map[string]string{"acc-1": "Seoul Clinic", "acc-2": "Busan Hospital"},
		WindowDays:            30,
		Thresholds:            config.DefaultCoaching,
	}
}

func TestEngine_HealthyContextYieldsNothing(t *testing.T) {
	if got := NewEngine().Run(healthyContext()); len(got) != 0 {
		t.Fatalf("expected no signals, got %+v", got)
	}
}

// --- BehaviorLack ---

func TestBehaviorLack_LowBCR(t *testing.T) {
	ctx := healthyContext()
	ctx.Current.BCR = 30
	s := BehaviorLack(ctx)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if s.Priority != crm.PriorityMedium {
		t.Errorf("expected medium priority, got %s", s.Priority)
	}
	if !strings.Contains(s.Message, "BCR 30") {
		t.Errorf("expected message to mention BCR, got %q", s.Message)
	}

	ctx.Current.BCR = 10
	if s := BehaviorLack(ctx); s == nil || s.Priority != crm.PriorityHigh {
		t.Errorf("expected high priority for BCR 10, got %+v", s)
	}
}

func TestBehaviorLack_MissingTopBehavior(t *testing.T) {
	ctx := healthyContext()
	ctx.Correlations.TopBehaviorsForConversion = []crm.BehaviorType{crm.BehaviorVisit, crm.BehaviorDemonstration, crm.BehaviorQuestion}
	s := BehaviorLack(ctx)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if s.Behavior == nil || *s.Behavior != crm.BehaviorDemonstration {
		t.Errorf("expected demonstration, got %v", s.Behavior)
	}
	if !strings.Contains(s.RecommendedAction, "demonstration") {
		t.Errorf("expected action to name the behavior, got %q", s.RecommendedAction)
	}
}

// --- RelationshipDecline ---

func TestRelationshipDecline(t *testing.T) {
	ctx := healthyContext()
	ctx.Current.RTR = 40
	if s := RelationshipDecline(ctx); s == nil || s.Priority != crm.PriorityHigh {
		t.Errorf("expected high-priority signal below floor, got %+v", s)
	}

	ctx.Current.RTR, ctx.Previous.RTR = 70, 90
	if s := RelationshipDecline(ctx); s == nil || s.Priority != crm.PriorityMedium {
		t.Errorf("expected medium-priority signal on drop, got %+v", s)
	}

	ctx.Current.RTR, ctx.Previous.RTR = 80, 90
	if s := RelationshipDecline(ctx); s != nil {
		t.Errorf("expected no signal for a small drop, got %+v", s)
	}

	ctx.Current.RTR, ctx.SentimentCount = 0, 0
	if s := RelationshipDecline(ctx); s != nil {
		t.Errorf("expected no signal without sentiment data, got %+v", s)
	}
}

// --- CompetitorActivity ---

func TestCompetitorActivity(t *testing.T) {
	ctx := healthyContext()
	if s := CompetitorActivity(ctx); s != nil {
		t.Fatalf("expected no signal, got %+v", s)
	}

	ctx.CompetitorSignals = []crm.CompetitorSignal{
		{ID: "1", AccountID: "acc-2"},
		{ID: "2", AccountID: "acc-1"},
		{ID: "3", AccountID: "acc-2"},
	}
	s := CompetitorActivity(ctx)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if s.Priority != crm.PriorityHigh {
		t.Errorf("expected high priority for 3 signals, got %s", s.Priority)
	}
	if s.AccountID != "acc-2" {
		t.Errorf("expected busiest account acc-2, got %s", s.AccountID)
	}
	if !strings.Contains(s.RecommendedAction, "Busan Hospital") {
		t.Errorf("expected action to name the account, got %q", s.RecommendedAction)
	}

	ctx.CompetitorSignals = ctx.CompetitorSignals[:1]
	if s := CompetitorActivity(ctx); s == nil || s.Priority != crm.PriorityMedium {
		t.Errorf("expected medium priority for one signal, got %+v", s)
	}
}

// --- ConversionLack ---

func TestConversionLack(t *testing.T) {
	ctx := healthyContext()
	ctx.Tagged, ctx.Won = 2, 0
	if s := ConversionLack(ctx); s != nil {
		t.Errorf("expected no signal below the tagged minimum, got %+v", s)
	}

	ctx.Tagged, ctx.Won = 5, 0
	if s := ConversionLack(ctx); s == nil || s.Priority != crm.PriorityHigh {
		t.Errorf("expected high priority with no wins, got %+v", s)
	}

	ctx.Tagged, ctx.Won = 10, 1
	ctx.Correlations.TopBehaviorsForConversion = []crm.BehaviorType{crm.BehaviorPresentation}
	s := ConversionLack(ctx)
	if s == nil || s.Priority != crm.PriorityMedium {
		t.Fatalf("expected medium priority at 10%%, got %+v", s)
	}
	if s.Behavior == nil || *s.Behavior != crm.BehaviorPresentation {
		t.Errorf("expected top conversion behavior, got %v", s.Behavior)
	}

	ctx.Tagged, ctx.Won = 10, 2
	if s := ConversionLack(ctx); s != nil {
		t.Errorf("expected no signal at the floor, got %+v", s)
	}
}

// --- InterestDrop ---

func TestInterestDrop(t *testing.T) {
	ctx := healthyContext()
	ctx.ActivityCount = 5
	if s := InterestDrop(ctx); s == nil || s.Priority != crm.PriorityMedium {
		t.Errorf("expected medium signal at a 50%% drop, got %+v", s)
	}

	ctx.ActivityCount = 6
	if s := InterestDrop(ctx); s != nil {
		t.Errorf("expected no signal at a 40%% drop, got %+v", s)
	}

	ctx.ActivityCount = 0
	if s := InterestDrop(ctx); s == nil || s.Priority != crm.PriorityHigh {
		t.Errorf("expected high signal with no activity, got %+v", s)
	}

	ctx.PreviousActivityCount = 0
	if s := InterestDrop(ctx); s != nil {
		t.Errorf("expected no signal without history, got %+v", s)
	}
}

// --- WeakBehavior ---

func TestWeakBehavior_TiesUseEnumerationOrder(t *testing.T) {
	ctx := healthyContext()
	ctx.BehaviorQuality = map[crm.BehaviorType]int{
		crm.BehaviorVisit:    45,
		crm.BehaviorContact:  45,
		crm.BehaviorApproach: 60,
	}
	s := WeakBehavior(ctx)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if *s.Behavior != crm.BehaviorContact {
		t.Errorf("expected contact, got %s", *s.Behavior)
	}
	if s.Priority != crm.PriorityLow {
		t.Errorf("expected low priority, got %s", s.Priority)
	}

	ctx.BehaviorQuality[crm.BehaviorFollowUp] = 20
	if s := WeakBehavior(ctx); s == nil || *s.Behavior != crm.BehaviorFollowUp || s.Priority != crm.PriorityMedium {
		t.Errorf("expected medium follow_up signal, got %+v", s)
	}
}

// --- Ranking ---

func TestRankSignals(t *testing.T) {
	in := []Signal{
		{Type: crm.SignalWeakBehavior, Priority: crm.PriorityLow},
		{Type: crm.SignalInterestDrop, Priority: crm.PriorityMedium},
		{Type: crm.SignalCompetitorActivity, Priority: crm.PriorityHigh},
		{Type: crm.SignalBehaviorLack, Priority: crm.PriorityMedium},
		{Type: crm.SignalInterestDrop, Priority: crm.PriorityHigh},
	}
	got := RankSignals(in)
	want := []crm.SignalType{
		crm.SignalCompetitorActivity,
		crm.SignalBehaviorLack,
		crm.SignalInterestDrop,
		crm.SignalWeakBehavior,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d signals, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].Type)
		}
	}
	if got[2].Priority != crm.PriorityMedium {
		t.Errorf("expected the first interest_drop signal to be kept")
	}
}

// --- ActionText ---

func TestActionText(t *testing.T) {
	visit := crm.BehaviorNeedCreation
	for _, st := range crm.AllSignalTypes {
		a := ActionText(st, &visit, "Seoul Clinic")
		if a == "" {
			t.Errorf("%s: empty action text", st)
		}
		if a != ActionText(st, &visit, "Seoul Clinic") {
			t.Errorf("%s: action text is not deterministic", st)
		}
		if !strings.Contains(a, "Seoul Clinic") {
			t.Errorf("%s: expected account name in %q", st, a)
		}
	}
	if got := ActionText(crm.SignalWeakBehavior, &visit, ""); !strings.Contains(got, "need creation") {
		t.Errorf("expected humanized behavior label, got %q", got)
	}
	if got := ActionText(crm.SignalType("unknown"), nil, ""); got == "" {
		t.Error("expected fallback text for unknown type")
	}
}

func TestContextConversionRate(t *testing.T) {
	c := &Context{Tagged: 3, Won: 2}
	if got := c.ConversionRate(); got != 67 {
		t.Errorf("expected 67, got %d", got)
	}
	c = &Context{Tagged: 8, Won: 1}
	if got := c.ConversionRate(); got != 13 {
		t.Errorf("expected 13, got %d", got)
	}
	if got := (&Context{}).ConversionRate(); got != 0 {
		t.Errorf("expected 0 without tags, got %d", got)
	}
}
