package adapter

import (
	"context"

	"github.com/m-mizutani/duet/pkg/model"
)

// MemoryStore is a semantic-search store shared by the agents. It keeps no
// metadata besides the payload text: identification lives in the text.
type MemoryStore interface {
	// Write stores a free-text payload and returns its ID. The payload may
	// become searchable only after an indexing delay.
	Write(ctx context.Context, payload string) (model.MemoryID, error)

	// Query returns up to limit payloads ranked by similarity to the query
	Query(ctx context.Context, query model.Query, limit int) ([]*model.Memory, error)

	// Close releases the store
	Close() error
}

// Embedder converts text into vectors for similarity search. Documents and
// queries are embedded separately because some models use different task
// types for each.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
