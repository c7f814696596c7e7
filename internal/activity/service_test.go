package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/crm/crmtest"
	"github.com/blackwell-systems/fieldcoach/internal/detect"
)

var now = time.Date(2026, 6, 3, 10, 30, 0, 0, time.UTC)

// failingSignals fails every competitor-signal write.
type failingSignals struct {
	*crmtest.Store
}

func (failingSignals) InsertCompetitorSignal(context.Context, *crm.CompetitorSignal) error {
	return crm.Persistence("insert competitor signal", errors.New("constraint violation"))
}

func fixture() *crmtest.Store {
	st := crmtest.New()
	st.Accounts = []crm.Account{{ID: "acc-1", OwnerID: "u-1", Name: "Seoul Clinic"}}
	return st
}

func newTestService(st Store, logger *zap.Logger) *Service {
	svc := NewService(st, detect.New([]string{"Acme"}), logger)
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	svc.SetClock(func() time.Time { return now })
	return svc
}

func draft(desc string) crm.Activity {
	return crm.Activity{
		AccountID:     "acc-1",
		Kind:          crm.KindVisit,
		Behavior:      crm.BehaviorVisit,
		Description:   desc,
		QualityScore:  70,
		QuantityScore: 60,
		DurationMin:   30,
	}
}

func TestCreate_StoresActivity(t *testing.T) {
	st := fixture()
	svc := newTestService(st, zap.NewNop())

	got, err := svc.Create(context.Background(), "u-1", draft("오늘 병원 방문 완료"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, now, got.PerformedAt)
	require.Len(t, st.Activities, 1)
	assert.Empty(t, st.CompetitorSignals)
}

func TestCreate_RaisesCompetitorSignal(t *testing.T) {
	st := fixture()
	svc := newTestService(st, zap.NewNop())

	a, err := svc.Create(context.Background(), "u-1", draft("경쟁사 제품과 비교 중입니다"))
	require.NoError(t, err)
	require.Len(t, st.CompetitorSignals, 1)
	sig := st.CompetitorSignals[0]
	assert.Equal(t, a.ID, sig.ActivityID)
	assert.Equal(t, detect.UnknownCompetitor, sig.Competitor)
	require.NotNil(t, sig.Confidence)
	assert.Equal(t, 0.8, *sig.Confidence)
}

func TestCreate_DeduplicatesSameDaySignals(t *testing.T) {
	st := fixture()
	svc := newTestService(st, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u-1", draft("Acme rep was here"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u-1", draft("Doctor prefers ACME pricing"))
	require.NoError(t, err)
	assert.Len(t, st.Activities, 2)
	assert.Len(t, st.CompetitorSignals, 1)

	svc.SetClock(func() time.Time { return now.AddDate(0, 0, 1) })
	_, err = svc.Create(ctx, "u-1", draft("Acme again"))
	require.NoError(t, err)
	assert.Len(t, st.CompetitorSignals, 2)
}

func TestCreate_SwallowsDetectionFailure(t *testing.T) {
	st := fixture()
	core, logs := observer.New(zap.WarnLevel)
	svc := newTestService(failingSignals{st}, zap.New(core))

	got, err := svc.Create(context.Background(), "u-1", draft("Acme offered samples"))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Len(t, st.Activities, 1)
	assert.Empty(t, st.CompetitorSignals)
	require.Equal(t, 1, logs.FilterMessage("competitor detection failed").Len())
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(fixture(), zap.NewNop())
	ctx := context.Background()

	bad := []func(*crm.Activity){
		func(a *crm.Activity) { a.Kind = "fax" },
		func(a *crm.Activity) { a.Behavior = "lunch" },
		func(a *crm.Activity) { a.QualityScore = 101 },
		func(a *crm.Activity) { a.QuantityScore = -1 },
		func(a *crm.Activity) { v := 150; a.SentimentScore = &v },
		func(a *crm.Activity) { o := crm.OutcomeTag("maybe"); a.Outcome = &o },
		func(a *crm.Activity) { a.AccountID = "" },
	}
	for i, mutate := range bad {
		a := draft("")
		mutate(&a)
		_, err := svc.Create(ctx, "u-1", a)
		assert.ErrorIs(t, err, crm.ErrInvalid, "case %d", i)
	}

	a := draft("")
	a.AccountID = "missing"
	_, err := svc.Create(ctx, "u-1", a)
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestUpdateAndDelete_Ownership(t *testing.T) {
	st := fixture()
	svc := newTestService(st, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, "u-1", draft("first visit"))
	require.NoError(t, err)

	edit := *created
	edit.QualityScore = 90
	_, err = svc.Update(ctx, "u-2", edit)
	assert.ErrorIs(t, err, crm.ErrForbidden)

	updated, err := svc.Update(ctx, "u-1", edit)
	require.NoError(t, err)
	assert.Equal(t, 90, updated.QualityScore)
	assert.Equal(t, 90, st.Activities[0].QualityScore)

	moved := edit
	moved.AccountID = "ghost"
	_, err = svc.Update(ctx, "u-1", moved)
	assert.ErrorIs(t, err, crm.ErrNotFound, "target account must exist")
	var pe *crm.PersistenceError
	assert.False(t, errors.As(err, &pe))
	assert.Equal(t, "acc-1", st.Activities[0].AccountID)

	edit.ID = "missing"
	_, err = svc.Update(ctx, "u-1", edit)
	assert.ErrorIs(t, err, crm.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "u-2", created.ID), crm.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "u-1", "missing"), crm.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u-1", created.ID))
	assert.Empty(t, st.Activities)
}

func TestList_NewestFirst(t *testing.T) {
	st := fixture()
	for i := 0; i < 3; i++ {
		st.Activities = append(st.Activities, crm.Activity{
			ID: fmt.Sprintf("a%d", i), UserID: "u-1", AccountID: "acc-1",
			PerformedAt: now.Add(time.Duration(i) * time.Hour),
		})
	}
	svc := newTestService(st, zap.NewNop())

	got, err := svc.List(context.Background(), "u-1", "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
}

func TestRecordCompetitor(t *testing.T) {
	st := fixture()
	svc := newTestService(st, zap.NewNop())
	ctx := context.Background()

	sig, err := svc.RecordCompetitor(ctx, "u-1", "acc-1", "Acme", "saw their booth")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, crm.ManualEntry, sig.Type)
	assert.Nil(t, sig.Confidence)

	dup, err := svc.RecordCompetitor(ctx, "u-1", "acc-1", "acme", "again")
	require.NoError(t, err)
	assert.Nil(t, dup)
	assert.Len(t, st.CompetitorSignals, 1)

	_, err = svc.RecordCompetitor(ctx, "u-1", "acc-1", "  ", "")
	assert.ErrorIs(t, err, crm.ErrInvalid)
}
