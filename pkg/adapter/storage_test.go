package adapter_test

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestStorage(t *testing.T) {
	bucket := os.Getenv("TEST_STORAGE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_STORAGE_BUCKET is not set")
	}

	ctx := context.Background()
	storage, err := adapter.NewStorage(ctx, bucket)
	gt.NoError(t, err)

	key := "test/" + string(model.NewMemoryID()) + ".md"
	w, err := storage.Put(ctx, key)
	gt.NoError(t, err)
	_, err = w.Write([]byte("# Session test\n"))
	gt.NoError(t, err)
	gt.NoError(t, w.Close())

	r, err := storage.Get(ctx, key)
	gt.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "# Session test\n")
	gt.Equal(t, storage.URL(key), "gs://"+bucket+"/"+key)
}
