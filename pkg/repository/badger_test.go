package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/repository"
	"github.com/m-mizutani/gt"
)

func newRecord(id model.SessionID, phase model.Phase, version int, at time.Time) *model.Record {
	return &model.Record{
		ID:        model.NewRecordID(),
		SessionID: id,
		Phase:     phase,
		Version:   version,
		MemoryID:  model.NewMemoryID(),
		Store:     "local",
		Payload:   "payload of " + string(phase),
		CreatedAt: at,
	}
}

func setupBadger(t *testing.T) *repository.Badger {
	repo, err := repository.NewBadger("")
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestBadgerListRecordsOrder(t *testing.T) {
	repo := setupBadger(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	sid := model.SessionID("payment-auth-20261015-7Q2M9XKD")

	// inserted out of order on purpose
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhaseReview, 1, base.Add(2*time.Minute))))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 1, base)))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 2, base.Add(3*time.Minute))))

	records, err := repo.ListRecords(ctx, sid)
	gt.NoError(t, err)
	gt.A(t, records).Length(3)
	gt.Equal(t, records[0].Phase, model.PhasePlan)
	gt.Equal(t, records[0].Version, 1)
	gt.Equal(t, records[1].Phase, model.PhaseReview)
	gt.Equal(t, records[2].Version, 2)
	gt.True(t, records[0].CreatedAt.Equal(base))
}

func TestBadgerKeepsDuplicates(t *testing.T) {
	repo := setupBadger(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	sid := model.SessionID("demo-20261015-ABCDEFGH")

	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 1, at)))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 1, at)))

	records, err := repo.ListRecords(ctx, sid)
	gt.NoError(t, err)
	gt.A(t, records).Length(2)
	gt.NotEqual(t, records[0].ID, records[1].ID)
}

func TestBadgerSessionPrefixIsolation(t *testing.T) {
	repo := setupBadger(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	gt.NoError(t, repo.PutRecord(ctx, newRecord("demo-20261015-AAAAAAAA", model.PhasePlan, 1, at)))
	gt.NoError(t, repo.PutRecord(ctx, newRecord("demo-20261015-AAAAAAAAB", model.PhasePlan, 1, at)))

	records, err := repo.ListRecords(ctx, "demo-20261015-AAAAAAAA")
	gt.NoError(t, err)
	gt.A(t, records).Length(1)

	unknown, err := repo.ListRecords(ctx, "nothing-20261015-ZZZZZZZZ")
	gt.NoError(t, err)
	gt.A(t, unknown).Length(0)
}

func TestBadgerListSessions(t *testing.T) {
	repo := setupBadger(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	older := model.SessionID("older-20261014-AAAAAAAA")
	newer := model.SessionID("newer-20261015-BBBBBBBB")
	gt.NoError(t, repo.PutRecord(ctx, newRecord(older, model.PhasePlan, 1, base)))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(newer, model.PhasePlan, 1, base.Add(time.Minute))))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(older, model.PhaseReview, 1, base.Add(5*time.Minute))))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(newer, model.PhaseReview, 1, base.Add(2*time.Minute))))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(newer, model.PhasePlan, 2, base.Add(3*time.Minute))))

	sessions, err := repo.ListSessions(ctx, 0, 0)
	gt.NoError(t, err)
	gt.A(t, sessions).Length(2)
	gt.Equal(t, sessions[0].SessionID, older)
	gt.Equal(t, sessions[0].Records, 2)
	gt.True(t, sessions[0].FirstSeen.Equal(base))
	gt.True(t, sessions[0].LastActivity.Equal(base.Add(5*time.Minute)))
	gt.Equal(t, sessions[1].SessionID, newer)
	gt.Equal(t, sessions[1].Records, 3)

	t.Run("pagination", func(t *testing.T) {
		page, err := repo.ListSessions(ctx, 1, 1)
		gt.NoError(t, err)
		gt.A(t, page).Length(1)
		gt.Equal(t, page[0].SessionID, newer)

		beyond, err := repo.ListSessions(ctx, 5, 10)
		gt.NoError(t, err)
		gt.A(t, beyond).Length(0)
	})
}

func TestBadgerPutRecordValidation(t *testing.T) {
	repo := setupBadger(t)
	ctx := context.Background()
	at := time.Now()

	missingID := newRecord("demo-20261015-ABCDEFGH", model.PhasePlan, 1, at)
	missingID.ID = ""
	gt.Error(t, repo.PutRecord(ctx, missingID))

	gt.Error(t, repo.PutRecord(ctx, newRecord("", model.PhasePlan, 1, at)))
	gt.Error(t, repo.PutRecord(ctx, newRecord("a/b-20261015-ABCDEFGH", model.PhasePlan, 1, at)))
}

func TestBadgerPersistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sid := model.SessionID("demo-20261015-ABCDEFGH")

	repo, err := repository.NewBadger(dir)
	gt.NoError(t, err)
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 1, time.Now())))
	gt.NoError(t, repo.Close())

	reopened, err := repository.NewBadger(dir)
	gt.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.ListRecords(ctx, sid)
	gt.NoError(t, err)
	gt.A(t, records).Length(1)
}
