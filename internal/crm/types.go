// Package crm defines the sales-activity domain model shared by the
// persistence layer and the analytics engine.
package crm

import (
	"strings"
	"time"
)

// BehaviorType is one of the eight canonical sales-action categories.
type BehaviorType string

const (
	BehaviorApproach      BehaviorType = "approach"
	BehaviorContact       BehaviorType = "contact"
	BehaviorVisit         BehaviorType = "visit"
	BehaviorPresentation  BehaviorType = "presentation"
	BehaviorQuestion      BehaviorType = "question"
	BehaviorNeedCreation  BehaviorType = "need_creation"
	BehaviorDemonstration BehaviorType = "demonstration"
	BehaviorFollowUp      BehaviorType = "follow_up"
)

// AllBehaviorTypes lists behavior types in enumeration order. Every
// tie-break between behavior types uses this order.
var AllBehaviorTypes = []BehaviorType{
	BehaviorApproach,
	BehaviorContact,
	BehaviorVisit,
	BehaviorPresentation,
	BehaviorQuestion,
	BehaviorNeedCreation,
	BehaviorDemonstration,
	BehaviorFollowUp,
}

// Index returns the enumeration position of b, or -1 if b is unknown.
func (b BehaviorType) Index() int {
	for i, t := range AllBehaviorTypes {
		if t == b {
			return i
		}
	}
	return -1
}

// Valid reports whether b is one of the canonical behavior types.
func (b BehaviorType) Valid() bool { return b.Index() >= 0 }

// OutcomeType is one of the four canonical business-result categories.
type OutcomeType string

const (
	OutcomeHIR               OutcomeType = "hir"
	OutcomeConversionRate    OutcomeType = "conversion_rate"
	OutcomeFieldGrowthRate   OutcomeType = "field_growth_rate"
	OutcomePrescriptionIndex OutcomeType = "prescription_index"
)

// AllOutcomeTypes lists outcome types in enumeration order.
var AllOutcomeTypes = []OutcomeType{
	OutcomeHIR,
	OutcomeConversionRate,
	OutcomeFieldGrowthRate,
	OutcomePrescriptionIndex,
}

// ActivityKind is the channel of a recorded interaction.
type ActivityKind string

const (
	KindVisit        ActivityKind = "visit"
	KindCall         ActivityKind = "call"
	KindMessage      ActivityKind = "message"
	KindPresentation ActivityKind = "presentation"
	KindFollowUp     ActivityKind = "follow_up"
)

// AllActivityKinds lists activity kinds in enumeration order.
var AllActivityKinds = []ActivityKind{KindVisit, KindCall, KindMessage, KindPresentation, KindFollowUp}

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	for _, v := range AllActivityKinds {
		if v == k {
			return true
		}
	}
	return false
}

// OutcomeTag records how an interaction ended.
type OutcomeTag string

const (
	TagWon     OutcomeTag = "won"
	TagOngoing OutcomeTag = "ongoing"
	TagLost    OutcomeTag = "lost"
)

// Valid reports whether t is a known outcome tag.
func (t OutcomeTag) Valid() bool {
	return t == TagWon || t == TagOngoing || t == TagLost
}

// PeriodType is the granularity of an Outcome snapshot.
type PeriodType string

const (
	PeriodDaily     PeriodType = "daily"
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// SignalType classifies a coaching signal.
type SignalType string

const (
	SignalBehaviorLack        SignalType = "behavior_lack"
	SignalRelationshipDecline SignalType = "relationship_decline"
	SignalCompetitorActivity  SignalType = "competitor_activity"
	SignalConversionLack      SignalType = "conversion_lack"
	SignalInterestDrop        SignalType = "interest_drop"
	SignalWeakBehavior        SignalType = "weak_behavior"
)

// AllSignalTypes lists coaching signal types in enumeration order.
var AllSignalTypes = []SignalType{
	SignalBehaviorLack,
	SignalRelationshipDecline,
	SignalCompetitorActivity,
	SignalConversionLack,
	SignalInterestDrop,
	SignalWeakBehavior,
}

// CompetitorSignalType classifies how a competitor signal was raised.
type CompetitorSignalType string

const (
	CompetitorMentioned CompetitorSignalType = "competitor_mentioned"
	KeywordDetected     CompetitorSignalType = "keyword_detected"
	DoctorMention       CompetitorSignalType = "doctor_mention"
	PriceInquiry        CompetitorSignalType = "price_inquiry"
	ManualEntry         CompetitorSignalType = "manual"
)

// Priority ranks coaching signals.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: high=0, medium=1, low=2.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Period is a half-open time interval [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlaps reports whether the two periods share any instant.
func (p Period) Overlaps(start, end time.Time) bool {
	return start.Before(p.End) && end.After(p.Start)
}

// Previous returns the period of equal length immediately before p.
func (p Period) Previous() Period {
	return Period{Start: p.Start.Add(-p.End.Sub(p.Start)), End: p.Start}
}

// TrailingDays returns the period covering the days before now.
func TrailingDays(now time.Time, days int) Period {
	return Period{Start: now.AddDate(0, 0, -days), End: now}
}

// User is a sales representative or manager.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail returns the canonical form of an email address. Users are
// stored and looked up by this form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Account is a customer organisation (for example a hospital or clinic).
type Account struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a person at an account.
type Contact struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is a single recorded sales interaction.
type Activity struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	AccountID      string       `json:"account_id"`
	ContactID      string       `json:"contact_id,omitempty"`
	Kind           ActivityKind `json:"kind"`
	Behavior       BehaviorType `json:"behavior"`
	Description    string       `json:"description"`
	QualityScore   int          `json:"quality_score"`
	QuantityScore  int          `json:"quantity_score"`
	DurationMin    int          `json:"duration_min"`
	SentimentScore *int         `json:"sentiment_score,omitempty"`
	NextActionDate *time.Time   `json:"next_action_date,omitempty"`
	Outcome        *OutcomeTag  `json:"outcome,omitempty"`
	PerformedAt    time.Time    `json:"performed_at"`
	CreatedAt      time.Time    `json:"created_at"`
}

// BehaviorScore is a per-period, per-behavior aggregate.
type BehaviorScore struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Behavior    BehaviorType `json:"behavior"`
	Intensity   int          `json:"intensity"`
	Diversity   int          `json:"diversity"`
	Quality     int          `json:"quality"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Composite is the mean of the three sub-scores.
func (b BehaviorScore) Composite() float64 {
	return float64(b.Intensity+b.Diversity+b.Quality) / 3
}

// Outcome is a per-period business-result snapshot.
type Outcome struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	AccountID         string     `json:"account_id,omitempty"`
	PeriodType        PeriodType `json:"period_type"`
	PeriodStart       time.Time  `json:"period_start"`
	PeriodEnd         time.Time  `json:"period_end"`
	HIR               int        `json:"hir"`
	ConversionRate    int        `json:"conversion_rate"`
	FieldGrowthRate   int        `json:"field_growth_rate"`
	PrescriptionIndex int        `json:"prescription_index"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Value returns the outcome's value for the given outcome type.
func (o Outcome) Value(t OutcomeType) int {
	switch t {
	case OutcomeHIR:
		return o.HIR
	case OutcomeConversionRate:
		return o.ConversionRate
	case OutcomeFieldGrowthRate:
		return o.FieldGrowthRate
	case OutcomePrescriptionIndex:
		return o.PrescriptionIndex
	}
	return 0
}

// CoachingSignal is a flagged condition needing manager or rep attention.
type CoachingSignal struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Type              SignalType    `json:"type"`
	Priority          Priority      `json:"priority"`
	Message           string        `json:"message"`
	RecommendedAction string        `json:"recommended_action,omitempty"`
	Behavior          *BehaviorType `json:"behavior,omitempty"`
	AccountID         string        `json:"account_id,omitempty"`
	ContactID         string        `json:"contact_id,omitempty"`
	Resolved          bool          `json:"resolved"`
	ResolvedAt        *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// CompetitorSignal indicates competitor activity at an account.
type CompetitorSignal struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	AccountID   string               `json:"account_id"`
	ActivityID  string               `json:"activity_id,omitempty"`
	Competitor  string               `json:"competitor"`
	Type        CompetitorSignalType `json:"type"`
	Description string               `json:"description"`
	Confidence  *float64             `json:"confidence,omitempty"`
	DetectedAt  time.Time            `json:"detected_at"`
}

// NextBestAction is a derived, unpersisted per-account recommendation.
type NextBestAction struct {
	AccountID   string       `json:"account_id"`
	AccountName string       `json:"account_name"`
	ContactID   string       `json:"contact_id,omitempty"`
	ContactName string       `json:"contact_name,omitempty"`
	Behavior    BehaviorType `json:"behavior"`
	Reason      string       `json:"reason"`
	Priority    int          `json:"priority"`
}

// Clamp limits v to the normalized score range [0, 100].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
