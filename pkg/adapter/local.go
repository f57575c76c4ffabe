package adapter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/philippgille/chromem-go"
)

const localCollectionName = "duet_memory"

const metaCreatedAt = "created_at"

// LocalStore is a MemoryStore backed by an on-disk chromem-go collection.
// Payloads are searchable as soon as Write returns.
type LocalStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	mu         sync.RWMutex
}

// NewLocalStore opens or creates a persistent store at path. An empty path
// keeps everything in memory.
func NewLocalStore(path string, embedder Embedder) (*LocalStore, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}

	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open local memory store", goerr.V("path", path))
		}
	}

	embFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedDocument(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(localCollectionName, nil, embFunc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create collection", goerr.V("path", path))
	}

	return &LocalStore{
		db:         db,
		collection: collection,
		embedder:   embedder,
	}, nil
}

func (s *LocalStore) Write(ctx context.Context, payload string) (model.MemoryID, error) {
	vec, err := s.embedder.EmbedDocument(ctx, payload)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed payload")
	}

	id := model.NewMemoryID()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        string(id),
		Content:   payload,
		Embedding: vec,
		Metadata: map[string]string{
			metaCreatedAt: strconv.FormatInt(now.UnixNano(), 10),
		},
	}); err != nil {
		return "", goerr.Wrap(err, "failed to add document", goerr.V("id", id))
	}

	return id, nil
}

func (s *LocalStore) Query(ctx context.Context, query model.Query, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	vec, err := s.embedder.EmbedQuery(ctx, string(query))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// chromem rejects nResults above the collection size
	total := s.collection.Count()
	if total == 0 {
		return nil, nil
	}
	if limit > total {
		limit = total
	}

	results, err := s.collection.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query collection", goerr.V("query", query))
	}

	memories := make([]*model.Memory, 0, len(results))
	for _, r := range results {
		m := &model.Memory{
			ID:      model.MemoryID(r.ID),
			Content: r.Content,
			Score:   float64(r.Similarity),
		}
		if ns, err := strconv.ParseInt(r.Metadata[metaCreatedAt], 10, 64); err == nil {
			m.CreatedAt = time.Unix(0, ns).UTC()
		}
		memories = append(memories, m)
	}

	return memories, nil
}

// Count returns the number of stored payloads
func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}

// Close is a no-op: chromem persists every write immediately
func (s *LocalStore) Close() error {
	return nil
}
