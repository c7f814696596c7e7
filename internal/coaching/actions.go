package coaching

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// ActionText returns the coaching sentence for a signal type, optionally
// personalized with a behavior type and an account name.
func ActionText(t crm.SignalType, behavior *crm.BehaviorType, accountName string) string {
	at := ""
	if accountName != "" {
		at = " at " + accountName
	}

	switch t {
	case crm.SignalBehaviorLack:
		if behavior != nil {
			return fmt.Sprintf("Block time this week for %s activities%s and log each one.", behaviorLabel(*behavior), at)
		}
		return fmt.Sprintf("Plan a fixed daily call and visit routine%s so activity is spread evenly across the week.", at)
	case crm.SignalRelationshipDecline:
		return fmt.Sprintf("Reconnect with key contacts%s: schedule a low-pressure check-in visit and listen for concerns.", at)
	case crm.SignalCompetitorActivity:
		if accountName != "" {
			return fmt.Sprintf("Visit %s soon to reinforce your product's value and address competitor comparisons.", accountName)
		}
		return "Prepare a comparison sheet and revisit accounts where competitors were mentioned."
	case crm.SignalConversionLack:
		if behavior != nil {
			return fmt.Sprintf("Focus on %s%s, the behavior most associated with won deals.", behaviorLabel(*behavior), at)
		}
		return fmt.Sprintf("Review recent lost opportunities%s and agree on a clear next step in every meeting.", at)
	case crm.SignalInterestDrop:
		return fmt.Sprintf("Rebuild momentum%s: set a weekly activity target and book follow-ups before leaving each meeting.", at)
	case crm.SignalWeakBehavior:
		if behavior != nil {
			return fmt.Sprintf("Practice %s with your manager and apply one improvement in your next meeting%s.", behaviorLabel(*behavior), at)
		}
		return fmt.Sprintf("Pick your weakest sales behavior and rehearse it before your next meeting%s.", at)
	}
	return "Review your recent activity with your manager."
}

func behaviorLabel(b crm.BehaviorType) string {
	return strings.ReplaceAll(string(b), "_", " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
