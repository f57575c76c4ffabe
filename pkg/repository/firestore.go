package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionRecords  = "records"
	collectionSessions = "sessions"
	collectionMemories = "memories"
)

// Firestore is a Repository and, given an embedder, a vector MemoryStore
// on Cloud Firestore. The memories collection needs a vector index on the
// Embedding field.
type Firestore struct {
	client   *firestore.Client
	embedder adapter.Embedder
}

var _ Repository = (*Firestore)(nil)

// FirestoreOption is a functional option for Firestore
type FirestoreOption func(*Firestore)

// WithEmbedder enables the memory store methods
func WithEmbedder(e adapter.Embedder) FirestoreOption {
	return func(f *Firestore) {
		f.embedder = e
	}
}

// New creates a Firestore repository
func New(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

type sessionDoc struct {
	SessionID    string    `firestore:"SessionID"`
	Records      int64     `firestore:"Records"`
	FirstSeen    time.Time `firestore:"FirstSeen"`
	LastActivity time.Time `firestore:"LastActivity"`
}

func (f *Firestore) PutRecord(ctx context.Context, record *model.Record) error {
	if record.ID == "" || record.SessionID == "" {
		return goerr.New("record ID and session ID are required", goerr.V("record_id", record.ID))
	}

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		sessionRef := f.client.Collection(collectionSessions).Doc(string(record.SessionID))
		snap, err := tx.Get(sessionRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get session")
		}

		if snap == nil || !snap.Exists() {
			if err := tx.Create(sessionRef, sessionDoc{
				SessionID:    string(record.SessionID),
				Records:      1,
				FirstSeen:    record.CreatedAt,
				LastActivity: record.CreatedAt,
			}); err != nil {
				return goerr.Wrap(err, "failed to create session")
			}
		} else {
			if err := tx.Update(sessionRef, []firestore.Update{
				{Path: "Records", Value: firestore.Increment(1)},
				{Path: "LastActivity", Value: record.CreatedAt},
			}); err != nil {
				return goerr.Wrap(err, "failed to update session")
			}
		}

		recordRef := f.client.Collection(collectionRecords).Doc(string(record.ID))
		if err := tx.Create(recordRef, record); err != nil {
			return goerr.Wrap(err, "failed to create record")
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put record",
			goerr.V("record_id", record.ID),
			goerr.V("session_id", record.SessionID))
	}
	return nil
}

func (f *Firestore) ListRecords(ctx context.Context, sessionID model.SessionID) ([]*model.Record, error) {
	iter := f.client.Collection(collectionRecords).
		Where("SessionID", "==", string(sessionID)).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []*model.Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list records", goerr.V("session_id", sessionID))
		}

		var r model.Record
		if err := doc.DataTo(&r); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc_id", doc.Ref.ID))
		}
		records = append(records, &r)
	}
	return records, nil
}

func (f *Firestore) ListSessions(ctx context.Context, offset, limit int) ([]*model.SessionSummary, error) {
	q := f.client.Collection(collectionSessions).
		OrderBy("LastActivity", firestore.Desc).
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var summaries []*model.SessionSummary
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list sessions")
		}

		var s sessionDoc
		if err := doc.DataTo(&s); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session", goerr.V("doc_id", doc.Ref.ID))
		}
		summaries = append(summaries, &model.SessionSummary{
			SessionID:    model.SessionID(s.SessionID),
			Records:      int(s.Records),
			FirstSeen:    s.FirstSeen,
			LastActivity: s.LastActivity,
		})
	}
	return summaries, nil
}

func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

// Memories returns the vector memory store view of the repository
func (f *Firestore) Memories() (adapter.MemoryStore, error) {
	if f.embedder == nil {
		return nil, goerr.New("embedder is required for firestore memory store")
	}
	return &firestoreMemory{f: f}, nil
}

type memoryDoc struct {
	ID        string             `firestore:"ID"`
	Content   string             `firestore:"Content"`
	Embedding firestore.Vector32 `firestore:"Embedding"`
	CreatedAt time.Time          `firestore:"CreatedAt"`
}

type firestoreMemory struct {
	f *Firestore
}

func (m *firestoreMemory) Write(ctx context.Context, payload string) (model.MemoryID, error) {
	vec, err := m.f.embedder.EmbedDocument(ctx, payload)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed payload")
	}

	id := model.NewMemoryID()
	doc := memoryDoc{
		ID:        string(id),
		Content:   payload,
		Embedding: firestore.Vector32(vec),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := m.f.client.Collection(collectionMemories).Doc(string(id)).Create(ctx, doc); err != nil {
		return "", goerr.Wrap(err, "failed to write memory", goerr.V("id", id))
	}
	return id, nil
}

func (m *firestoreMemory) Query(ctx context.Context, query model.Query, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	vec, err := m.f.embedder.EmbedQuery(ctx, string(query))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	vq := m.f.client.Collection(collectionMemories).
		FindNearest("Embedding", firestore.Vector32(vec), limit, firestore.DistanceMeasureCosine, nil)
	iter := vq.Documents(ctx)
	defer iter.Stop()

	var memories []*model.Memory
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search memories", goerr.V("query", query))
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("doc_id", doc.Ref.ID))
		}
		memories = append(memories, &model.Memory{
			ID:        model.MemoryID(d.ID),
			Content:   d.Content,
			Score:     adapter.CosineSimilarity(vec, d.Embedding),
			CreatedAt: d.CreatedAt,
		})
	}
	return memories, nil
}

// Close does nothing: the client is owned by the repository
func (m *firestoreMemory) Close() error {
	return nil
}
