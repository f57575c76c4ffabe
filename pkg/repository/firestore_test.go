package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.New(context.Background(), projectID, databaseID,
		repository.WithEmbedder(adapter.NewHashEmbedder()))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

// uniqueSession avoids collisions between test runs sharing a database
func uniqueSession(t *testing.T) model.SessionID {
	id, err := correlator.NewSessionID(fmt.Sprintf("test %d", rand.Intn(1000000)))
	gt.NoError(t, err)
	return id
}

func TestFirestoreRecords(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	sid := uniqueSession(t)
	base := time.Now().UTC().Truncate(time.Millisecond)

	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhaseReview, 1, base.Add(time.Second))))
	gt.NoError(t, repo.PutRecord(ctx, newRecord(sid, model.PhasePlan, 1, base)))

	records, err := repo.ListRecords(ctx, sid)
	gt.NoError(t, err)
	gt.A(t, records).Length(2)
	gt.Equal(t, records[0].Phase, model.PhasePlan)
	gt.Equal(t, records[1].Phase, model.PhaseReview)

	sessions, err := repo.ListSessions(ctx, 0, 50)
	gt.NoError(t, err)
	var found *model.SessionSummary
	for _, s := range sessions {
		if s.SessionID == sid {
			found = s
		}
	}
	gt.V(t, found).NotNil()
	gt.Equal(t, found.Records, 2)
}

func TestFirestoreMemories(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()
	sid := uniqueSession(t)

	store, err := repo.Memories()
	gt.NoError(t, err)

	payload, err := correlator.Format(&model.Artifact{
		SessionID: sid,
		Phase:     model.PhasePlan,
		Version:   1,
		Content:   "Add retries to the payment client",
	})
	gt.NoError(t, err)

	id, err := store.Write(ctx, payload)
	gt.NoError(t, err)
	gt.NotEqual(t, id, "")

	q, err := correlator.BuildQuery(correlator.QueryInput{SessionID: sid, Phase: model.PhasePlan, Version: 1})
	gt.NoError(t, err)

	results, err := store.Query(ctx, q, 5)
	gt.NoError(t, err)
	gt.A(t, results).Longer(0)
	gt.True(t, correlator.Matches(results[0].Content, sid, model.PhasePlan, 1))
}

func TestFirestoreMemoriesRequireEmbedder(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.New(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	defer repo.Close()

	_, err = repo.Memories()
	gt.Error(t, err)
}
