package collab

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Record formats the artifact, writes it to the memory store and appends a
// journal record. Nothing checks whether the same version was written
// before: both copies are kept.
func (u *UseCase) Record(ctx context.Context, artifact *model.Artifact) (*model.Record, error) {
	ctx = logging.WithSession(ctx, artifact.SessionID)
	logger := logging.From(ctx)

	if !artifact.SessionID.Valid() {
		logger.Warn("session ID is not in generated format", "session_id", artifact.SessionID)
	}

	payload, err := correlator.Format(artifact)
	if err != nil {
		return nil, err
	}

	memoryID, err := u.store.Write(ctx, payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to write artifact to memory store",
			goerr.V("phase", artifact.Phase),
			goerr.V("version", artifact.Version))
	}

	digest := sha256.Sum256([]byte(payload))
	record := &model.Record{
		ID:        model.NewRecordID(),
		SessionID: artifact.SessionID,
		Phase:     artifact.Phase,
		Version:   artifact.Version,
		MemoryID:  memoryID,
		Store:     u.storeName,
		Digest:    hex.EncodeToString(digest[:]),
		Payload:   payload,
		CreatedAt: u.now().UTC(),
	}

	if err := u.repo.PutRecord(ctx, record); err != nil {
		return nil, goerr.Wrap(err, "artifact stored but journal write failed",
			goerr.V("memory_id", memoryID))
	}

	logger.Info("artifact recorded",
		"label", artifact.Label(),
		"memory_id", memoryID,
		"store", u.storeName)
	return record, nil
}
