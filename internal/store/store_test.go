package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newTestDB opens an in-memory database seeded with one user and account.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetClock(func() time.Time { return t0 })

	ctx := context.Background()
	require.NoError(t, db.InsertUser(ctx, &crm.User{ID: "u-1", Email: "rep@example.com", Name: "Rep"}))
	require.NoError(t, db.InsertAccount(ctx, &crm.Account{ID: "acc-1", OwnerID: "u-1", Name: "Mercy Clinic"}))
	return db
}

func intPtr(v int) *int { return &v }

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestUsersAndAccounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.GetUserByEmail(ctx, "rep@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, t0, u.CreatedAt)

	_, err = db.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, crm.ErrNotFound)

	mixed := &crm.User{ID: "u-2", Email: " Lead@Example.COM ", Name: "Lead"}
	require.NoError(t, db.InsertUser(ctx, mixed))
	assert.Equal(t, "lead@example.com", mixed.Email)
	u, err = db.GetUserByEmail(ctx, "LEAD@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-2", u.ID)
	assert.Equal(t, "lead@example.com", u.Email)

	require.NoError(t, db.InsertAccount(ctx, &crm.Account{ID: "acc-0", OwnerID: "u-1", Name: "Amsan Hospital"}))
	accounts, err := db.ListAccounts(ctx, crm.AccountFilter{OwnerID: "u-1"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Amsan Hospital", accounts[0].Name, "ordered by name")

	_, err = db.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, crm.ErrNotFound)

	require.NoError(t, db.InsertContact(ctx, &crm.Contact{ID: "c-2", AccountID: "acc-1", Name: "Dr. Lee", CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, db.InsertContact(ctx, &crm.Contact{ID: "c-1", AccountID: "acc-1", Name: "Dr. Kim", Role: "head"}))
	contacts, err := db.ListContacts(ctx, crm.ContactFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "c-1", contacts[0].ID, "ordered by creation")
	assert.Equal(t, "head", contacts[0].Role)
}

func TestActivities_RoundTripAndFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	next := t0.AddDate(0, 0, 5)
	won := crm.TagWon
	a := crm.Activity{
		ID: "a-1", UserID: "u-1", AccountID: "acc-1",
		Kind: crm.KindVisit, Behavior: crm.BehaviorNeedCreation,
		Description:    "가격 문의",
		QualityScore:   80, QuantityScore: 60, DurationMin: 30,
		SentimentScore: intPtr(70), NextActionDate: &next, Outcome: &won,
		PerformedAt: t0,
	}
	require.NoError(t, db.InsertActivity(ctx, &a))
	require.NoError(t, db.InsertActivity(ctx, &crm.Activity{
		ID: "a-2", UserID: "u-1", AccountID: "acc-1",
		Kind: crm.KindCall, Behavior: crm.BehaviorContact,
		QualityScore: 40, QuantityScore: 40,
		PerformedAt: t0.Add(24 * time.Hour),
	}))

	got, err := db.GetActivity(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, a, *got)

	ascending, err := db.ListActivities(ctx, crm.ActivityFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, ascending, 2)
	assert.Equal(t, "a-1", ascending[0].ID)
	assert.Nil(t, ascending[1].SentimentScore)
	assert.Nil(t, ascending[1].Outcome)

	newest, err := db.ListActivities(ctx, crm.ActivityFilter{UserID: "u-1", Newest: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "a-2", newest[0].ID)

	window, err := db.ListActivities(ctx, crm.ActivityFilter{UserID: "u-1", From: t0, To: t0.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 1, "To is exclusive")
	assert.Equal(t, "a-1", window[0].ID)
}

func TestActivities_UpdateDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := crm.Activity{ID: "a-1", UserID: "u-1", AccountID: "acc-1", Kind: crm.KindVisit,
		Behavior: crm.BehaviorVisit, QualityScore: 50, QuantityScore: 50, PerformedAt: t0}
	require.NoError(t, db.InsertActivity(ctx, &a))

	a.QualityScore = 90
	a.SentimentScore = intPtr(20)
	require.NoError(t, db.UpdateActivity(ctx, &a))
	got, err := db.GetActivity(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, 90, got.QualityScore)
	assert.Equal(t, 20, *got.SentimentScore)

	missing := a
	missing.ID = "a-404"
	assert.ErrorIs(t, db.UpdateActivity(ctx, &missing), crm.ErrNotFound)

	require.NoError(t, db.DeleteActivity(ctx, "a-1"))
	assert.ErrorIs(t, db.DeleteActivity(ctx, "a-1"), crm.ErrNotFound)
	_, err = db.GetActivity(ctx, "a-1")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestBehaviorScores_ReplacePeriod(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	day := crm.Period{Start: t0, End: t0.Add(24 * time.Hour)}
	next := crm.Period{Start: day.End, End: day.End.Add(24 * time.Hour)}

	insert := func(id string, p crm.Period, quality int) {
		require.NoError(t, db.InsertBehaviorScores(ctx, []crm.BehaviorScore{{
			ID: id, UserID: "u-1", Behavior: crm.BehaviorVisit,
			Intensity: 50, Diversity: 20, Quality: quality,
			PeriodStart: p.Start, PeriodEnd: p.End,
		}}))
	}
	insert("bs-1", day, 40)
	insert("bs-2", next, 60)

	require.NoError(t, db.DeleteBehaviorScores(ctx, "u-1", day))
	insert("bs-3", day, 70)

	scores, err := db.ListBehaviorScores(ctx, crm.BehaviorScoreFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "bs-2", scores[0].ID, "most recent period first")
	assert.Equal(t, 70, scores[1].Quality)

	overlap, err := db.ListBehaviorScores(ctx, crm.BehaviorScoreFilter{UserID: "u-1", From: t0.Add(time.Hour), To: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, overlap, 1)
	assert.Equal(t, "bs-3", overlap[0].ID)
}

func TestOutcomes_ReplaceUserScopedOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	week := crm.Period{Start: t0, End: t0.AddDate(0, 0, 7)}

	o := crm.Outcome{ID: "o-1", UserID: "u-1", PeriodType: crm.PeriodWeekly,
		PeriodStart: week.Start, PeriodEnd: week.End, HIR: 60, ConversionRate: 50}
	require.NoError(t, db.InsertOutcome(ctx, &o))
	require.NoError(t, db.InsertOutcome(ctx, &crm.Outcome{ID: "o-acc", UserID: "u-1", AccountID: "acc-1",
		PeriodType: crm.PeriodWeekly, PeriodStart: week.Start, PeriodEnd: week.End, HIR: 10}))

	require.NoError(t, db.DeleteOutcomes(ctx, "u-1", crm.PeriodWeekly, week))

	all, err := db.ListOutcomes(ctx, crm.OutcomeFilter{UserID: "u-1", PeriodType: crm.PeriodWeekly})
	require.NoError(t, err)
	require.Len(t, all, 1, "account-scoped outcome survives")
	assert.Equal(t, "o-acc", all[0].ID)

	require.NoError(t, db.InsertOutcome(ctx, &o))
	scoped, err := db.ListOutcomes(ctx, crm.OutcomeFilter{UserID: "u-1", AccountID: "acc-1"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 10, scoped[0].HIR)
}

func TestCoachingSignals_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := crm.BehaviorFollowUp

	s := crm.CoachingSignal{ID: "cs-1", UserID: "u-1", Type: crm.SignalBehaviorLack,
		Priority: crm.PriorityHigh, Message: "uneven", Behavior: &b}
	require.NoError(t, db.InsertCoachingSignal(ctx, &s))
	assert.Equal(t, t0, s.CreatedAt)
	assert.Equal(t, t0, s.UpdatedAt)

	open, err := db.ListCoachingSignals(ctx, crm.CoachingSignalFilter{UserID: "u-1", Type: crm.SignalBehaviorLack, OnlyUnresolved: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.NotNil(t, open[0].Behavior)
	assert.Equal(t, crm.BehaviorFollowUp, *open[0].Behavior)

	later := t0.Add(time.Hour)
	db.SetClock(func() time.Time { return later })
	s.Resolved = true
	s.ResolvedAt = &later
	require.NoError(t, db.UpdateCoachingSignal(ctx, &s))

	got, err := db.GetCoachingSignal(ctx, "cs-1")
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, later, *got.ResolvedAt)
	assert.Equal(t, later, got.UpdatedAt)

	open, err = db.ListCoachingSignals(ctx, crm.CoachingSignalFilter{UserID: "u-1", OnlyUnresolved: true})
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = db.GetCoachingSignal(ctx, "missing")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestCompetitorSignals_Filter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conf := 0.8

	require.NoError(t, db.InsertCompetitorSignal(ctx, &crm.CompetitorSignal{
		ID: "cp-1", UserID: "u-1", AccountID: "acc-1", Competitor: "Acme",
		Type: crm.CompetitorMentioned, Description: "named", Confidence: &conf, DetectedAt: t0,
	}))
	require.NoError(t, db.InsertCompetitorSignal(ctx, &crm.CompetitorSignal{
		ID: "cp-2", UserID: "u-1", AccountID: "acc-1", Competitor: "Other",
		Type: crm.ManualEntry, Description: "manual", DetectedAt: t0.Add(time.Hour),
	}))

	byName, err := db.ListCompetitorSignals(ctx, crm.CompetitorSignalFilter{AccountID: "acc-1", Competitor: "ACME"})
	require.NoError(t, err)
	require.Len(t, byName, 1, "competitor match is case-insensitive")
	require.NotNil(t, byName[0].Confidence)
	assert.Equal(t, 0.8, *byName[0].Confidence)

	all, err := db.ListCompetitorSignals(ctx, crm.CompetitorSignalFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "cp-2", all[0].ID, "newest first")
	assert.Nil(t, all[0].Confidence)

	day, err := db.ListCompetitorSignals(ctx, crm.CompetitorSignalFilter{From: t0.Add(30 * time.Minute), To: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "cp-2", day[0].ID)
}
