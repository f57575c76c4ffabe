package collab

import (
	"context"

	"github.com/m-mizutani/duet/pkg/model"
)

// Sessions lists journaled sessions, most recent activity first
func (u *UseCase) Sessions(ctx context.Context, offset, limit int) ([]*model.SessionSummary, error) {
	return u.repo.ListSessions(ctx, offset, limit)
}

// Records lists the journal records of a session, oldest first
func (u *UseCase) Records(ctx context.Context, sessionID model.SessionID) ([]*model.Record, error) {
	return u.repo.ListRecords(ctx, sessionID)
}
