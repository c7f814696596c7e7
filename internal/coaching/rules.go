package coaching

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// BehaviorLack flags an irregular activity cadence (BCR below the floor)
// or a top conversion behavior that was not performed at all.
func BehaviorLack(ctx *Context) *Signal {
	t := ctx.Thresholds
	var missing *crm.BehaviorType
	for _, b := range ctx.Correlations.TopBehaviorsForConversion {
		if ctx.BehaviorCounts[b] == 0 {
			b := b
			missing = &b
			break
		}
	}

	bcr := ctx.Current.BCR
	switch {
	case bcr < t.BCRFloor:
		priority := crm.PriorityMedium
		if bcr < t.BCRFloor/2 {
			priority = crm.PriorityHigh
		}
		return &Signal{
			Type:     crm.SignalBehaviorLack,
			Priority: priority,
			Message: fmt.Sprintf(
				"Activity cadence is irregular: BCR %d is below %d over the last %d days (%d activities).",
				bcr, t.BCRFloor, ctx.WindowDays, ctx.ActivityCount,
			),
			RecommendedAction: ActionText(crm.SignalBehaviorLack, missing, ""),
			Behavior:          missing,
		}
	case missing != nil:
		return &Signal{
			Type:     crm.SignalBehaviorLack,
			Priority: crm.PriorityMedium,
			Message: fmt.Sprintf(
				"No %s activity in the last %d days, although it is one of your strongest conversion drivers.",
				behaviorLabel(*missing), ctx.WindowDays,
			),
			RecommendedAction: ActionText(crm.SignalBehaviorLack, missing, ""),
			Behavior:          missing,
		}
	}
	return nil
}

// RelationshipDecline flags a low relationship temperature or a sharp drop
// against the previous window. Windows without sentiment data are skipped.
func RelationshipDecline(ctx *Context) *Signal {
	if ctx.SentimentCount == 0 {
		return nil
	}
	t := ctx.Thresholds
	cur, prev := ctx.Current.RTR, ctx.Previous.RTR

	switch {
	case cur < t.RTRFloor:
		return &Signal{
			Type:              crm.SignalRelationshipDecline,
			Priority:          crm.PriorityHigh,
			Message:           fmt.Sprintf("Relationship temperature is low: RTR %d is below %d.", cur, t.RTRFloor),
			RecommendedAction: ActionText(crm.SignalRelationshipDecline, nil, ""),
		}
	case prev > 0 && prev-cur >= t.RTRDrop:
		return &Signal{
			Type:              crm.SignalRelationshipDecline,
			Priority:          crm.PriorityMedium,
			Message:           fmt.Sprintf("Relationship temperature dropped from %d to %d since the previous period.", prev, cur),
			RecommendedAction: ActionText(crm.SignalRelationshipDecline, nil, ""),
		}
	}
	return nil
}

// CompetitorActivity flags competitor signals in the window and points at
// the account with the most of them.
func CompetitorActivity(ctx *Context) *Signal {
	n := len(ctx.CompetitorSignals)
	if n == 0 {
		return nil
	}

	perAccount := make(map[string]int)
	for _, cs := range ctx.CompetitorSignals {
		perAccount[cs.AccountID]++
	}
	accounts := make([]string, 0, len(perAccount))
	for id := range perAccount {
		accounts = append(accounts, id)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if perAccount[accounts[i]] != perAccount[accounts[j]] {
			return perAccount[accounts[i]] > perAccount[accounts[j]]
		}
		return accounts[i] < accounts[j]
	})
	top := accounts[0]
	name := ctx.AccountNames[top]
	if name == "" {
		name = top
	}

	priority := crm.PriorityMedium
	if n >= ctx.Thresholds.CompetitorHighCount {
		priority = crm.PriorityHigh
	}
	return &Signal{
		Type:     crm.SignalCompetitorActivity,
		Priority: priority,
		Message: fmt.Sprintf(
			"%d competitor signal(s) in the last %d days, %d at %s.",
			n, ctx.WindowDays, perAccount[top], name,
		),
		RecommendedAction: ActionText(crm.SignalCompetitorActivity, nil, name),
		AccountID:         top,
	}
}

// ConversionLack flags a low conversion rate once enough activities carry
// an outcome tag.
func ConversionLack(ctx *Context) *Signal {
	t := ctx.Thresholds
	if ctx.Tagged < t.MinTaggedActivities {
		return nil
	}
	rate := ctx.ConversionRate()
	if rate >= t.ConversionFloor {
		return nil
	}

	priority := crm.PriorityMedium
	if ctx.Won == 0 {
		priority = crm.PriorityHigh
	}
	var behavior *crm.BehaviorType
	if top := ctx.Correlations.TopBehaviorsForConversion; len(top) > 0 {
		b := top[0]
		behavior = &b
	}
	return &Signal{
		Type:     crm.SignalConversionLack,
		Priority: priority,
		Message: fmt.Sprintf(
			"Conversion rate is %d%% (%d won of %d tagged), below %d%%.",
			rate, ctx.Won, ctx.Tagged, t.ConversionFloor,
		),
		RecommendedAction: ActionText(crm.SignalConversionLack, behavior, ""),
		Behavior:          behavior,
	}
}

// InterestDrop flags activity volume falling by at least the configured
// ratio against the previous window.
func InterestDrop(ctx *Context) *Signal {
	prev, cur := ctx.PreviousActivityCount, ctx.ActivityCount
	if prev == 0 {
		return nil
	}
	drop := float64(prev-cur) / float64(prev)
	if drop < ctx.Thresholds.InterestDropRatio {
		return nil
	}

	priority := crm.PriorityMedium
	if cur == 0 {
		priority = crm.PriorityHigh
	}
	return &Signal{
		Type:     crm.SignalInterestDrop,
		Priority: priority,
		Message: fmt.Sprintf(
			"Activity volume fell %.0f%%: %d activities versus %d in the previous period.",
			drop*100, cur, prev,
		),
		RecommendedAction: ActionText(crm.SignalInterestDrop, nil, ""),
	}
}

// WeakBehavior flags the behavior with the lowest quality score when it
// falls below the threshold. Ties go to enumeration order.
func WeakBehavior(ctx *Context) *Signal {
	var weakest *crm.BehaviorType
	lowest := 0
	for _, b := range crm.AllBehaviorTypes {
		q, ok := ctx.BehaviorQuality[b]
		if !ok {
			continue
		}
		if weakest == nil || q < lowest {
			b := b
			weakest, lowest = &b, q
		}
	}
	t := ctx.Thresholds
	if weakest == nil || lowest >= t.WeakQualityThreshold {
		return nil
	}

	priority := crm.PriorityLow
	if lowest < t.WeakQualityThreshold/2 {
		priority = crm.PriorityMedium
	}
	return &Signal{
		Type:     crm.SignalWeakBehavior,
		Priority: priority,
		Message: fmt.Sprintf(
			"%s quality is %d, below %d.",
			capitalize(behaviorLabel(*weakest)), lowest, t.WeakQualityThreshold,
		),
		RecommendedAction: ActionText(crm.SignalWeakBehavior, weakest, ""),
		Behavior:          weakest,
	}
}
