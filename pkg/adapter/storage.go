package adapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage is the interface for session transcript storage
type Storage interface {
	// Put returns a writer to save a transcript. The object is committed on Close.
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads a transcript from storage
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns the location of an object for display
	URL(key string) string
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "text/markdown; charset=utf-8"
	return writer, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}

	return reader, nil
}

func (s *storageClient) URL(key string) string {
	return "gs://" + s.bucketName + "/" + key
}
