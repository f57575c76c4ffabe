package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestLocalStoreEmpty(t *testing.T) {
	store, err := adapter.NewLocalStore("", adapter.NewHashEmbedder())
	gt.NoError(t, err)
	defer store.Close()

	results, err := store.Query(context.Background(), "anything", 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
}

func TestLocalStoreRequiresEmbedder(t *testing.T) {
	_, err := adapter.NewLocalStore("", nil)
	gt.Error(t, err)
}

func TestLocalStoreInvalidLimit(t *testing.T) {
	store, err := adapter.NewLocalStore("", adapter.NewHashEmbedder())
	gt.NoError(t, err)

	_, err = store.Query(context.Background(), "anything", 0)
	gt.Error(t, err)
}

func TestLocalStoreRanksOwnSession(t *testing.T) {
	ctx := context.Background()
	store, err := adapter.NewLocalStore("", adapter.NewHashEmbedder())
	gt.NoError(t, err)

	ours := model.SessionID("payment-auth-20261015-7Q2M9XKD")
	theirs := model.SessionID("payment-auth-20261015-K3P8VW2N")

	write := func(id model.SessionID, content string) {
		payload, err := correlator.Format(&model.Artifact{
			SessionID: id,
			Phase:     model.PhasePlan,
			Version:   1,
			Content:   content,
		})
		gt.NoError(t, err)
		_, err = store.Write(ctx, payload)
		gt.NoError(t, err)
	}
	write(theirs, "Refresh tokens before expiry and retry requests")
	write(ours, "Refresh tokens before expiry and retry requests")
	write(theirs, "Rotate signing keys for webhooks")
	gt.Equal(t, store.Count(), 3)

	q, err := correlator.BuildQuery(correlator.QueryInput{
		SessionID: ours,
		Phase:     model.PhasePlan,
		Version:   1,
	})
	gt.NoError(t, err)

	// limit above the collection size is clamped
	results, err := store.Query(ctx, q, 10)
	gt.NoError(t, err)
	gt.A(t, results).Length(3)
	gt.True(t, correlator.Matches(results[0].Content, ours, model.PhasePlan, 1))
	gt.True(t, results[0].Score >= results[1].Score)
	gt.False(t, results[0].CreatedAt.IsZero())
}

func TestLocalStorePersistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := adapter.NewLocalStore(dir, adapter.NewHashEmbedder())
	gt.NoError(t, err)
	id, err := store.Write(ctx, "=== [SESSION demo-20261015-ABCDEFGH] VALIDATION RESULT === all green")
	gt.NoError(t, err)
	gt.NoError(t, store.Close())

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.A(t, entries).Longer(0)

	reopened, err := adapter.NewLocalStore(dir, adapter.NewHashEmbedder())
	gt.NoError(t, err)
	results, err := reopened.Query(ctx, "demo-20261015-ABCDEFGH validation", 1)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].ID, id)
}
