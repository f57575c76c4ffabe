package repository

import (
	"context"

	"github.com/m-mizutani/duet/pkg/model"
)

// Repository is the journal of artifacts written from this host. It is a
// local record only; the memory store stays the source the agents read from.
type Repository interface {
	// PutRecord appends a record. Records are never updated.
	PutRecord(ctx context.Context, record *model.Record) error

	// ListRecords returns the records of a session, oldest first. An unknown
	// session yields an empty list.
	ListRecords(ctx context.Context, sessionID model.SessionID) ([]*model.Record, error)

	// ListSessions returns session summaries, most recent activity first
	ListSessions(ctx context.Context, offset, limit int) ([]*model.SessionSummary, error)

	// Close releases the repository
	Close() error
}
