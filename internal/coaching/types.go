// Package coaching provides the coaching-signal rule engine, action-text
// templates, and the service that persists generated signals.
package coaching

import (
	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/config"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// Signal is a coaching signal produced by a rule, before persistence.
type Signal struct {
	Type              crm.SignalType    `json:"type"`
	Priority          crm.Priority      `json:"priority"`
	Message           string            `json:"message"`
	RecommendedAction string            `json:"recommended_action"`
	Behavior          *crm.BehaviorType `json:"behavior,omitempty"`
	AccountID         string            `json:"account_id,omitempty"`
}

// Context provides all data needed by coaching rules. It is populated by
// Service.Generate before being passed to the engine.
type Context struct {
	// Current and Previous are the indices for the current window and the
	// window of equal length before it.
	Current  analytics.Metrics `json:"current"`
	Previous analytics.Metrics `json:"previous"`

	// Correlations is the correlation summary for the current window.
	Correlations analytics.Correlations `json:"correlations"`

	// ActivityCount and PreviousActivityCount are activity volumes per window.
	ActivityCount         int `json:"activity_count"`
	PreviousActivityCount int `json:"previous_activity_count"`

	// SentimentCount is how many current activities carry a sentiment score.
	SentimentCount int `json:"sentiment_count"`

	// BehaviorCounts counts current activities per behavior type.
	BehaviorCounts map[crm.BehaviorType]int `json:"behavior_counts"`

	// BehaviorQuality is the latest quality sub-score per behavior type.
	BehaviorQuality map[crm.BehaviorType]int `json:"behavior_quality"`

	// Tagged and Won count current activities with an outcome tag.
	Tagged int `json:"tagged"`
	Won    int `json:"won"`

	// CompetitorSignals are competitor signals detected in the current window.
	CompetitorSignals []crm.CompetitorSignal `json:"competitor_signals"`

	// AccountNames maps account id to display name.
	AccountNames map[string]string `json:"account_names"`

	WindowDays int             `json:"window_days"`
	Thresholds config.Coaching `json:"thresholds"`
}

// ConversionRate is round(100 * won / tagged), 0 when nothing is tagged.
func (c *Context) ConversionRate() int {
	if c.Tagged == 0 {
		return 0
	}
	return crm.Clamp((200*c.Won + c.Tagged) / (2 * c.Tagged))
}

// Rule examines the context and produces at most one signal.
type Rule func(ctx *Context) *Signal
