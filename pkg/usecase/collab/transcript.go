package collab

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Transcript renders the journal records of a session, oldest first, as
// one markdown document.
func (u *UseCase) Transcript(ctx context.Context, sessionID model.SessionID) (string, error) {
	records, err := u.repo.ListRecords(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", goerr.Wrap(ErrSessionNotFound, "no records for session", goerr.V("session_id", sessionID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", sessionID)
	fmt.Fprintf(&b, "- Artifacts: %d\n", len(records))
	fmt.Fprintf(&b, "- First: %s\n", records[0].CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Last: %s\n", records[len(records)-1].CreatedAt.Format("2006-01-02 15:04:05 MST"))

	for _, r := range records {
		fmt.Fprintf(&b, "\n## %s\n\n", r.Phase.Label(r.Version))
		fmt.Fprintf(&b, "Recorded %s in %s as %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"), r.Store, r.MemoryID)
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(r.Payload, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String(), nil
}

// ExportKey is the object key a session transcript is exported to
func ExportKey(sessionID model.SessionID) string {
	return "sessions/" + string(sessionID) + ".md"
}

// Export uploads the session transcript and returns its location
func (u *UseCase) Export(ctx context.Context, sessionID model.SessionID, storage adapter.Storage) (string, error) {
	transcript, err := u.Transcript(ctx, sessionID)
	if err != nil {
		return "", err
	}

	key := ExportKey(sessionID)
	w, err := storage.Put(ctx, key)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open transcript object", goerr.V("key", key))
	}
	if _, err := w.Write([]byte(transcript)); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write transcript", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to commit transcript", goerr.V("key", key))
	}

	if err := verifyExport(ctx, storage, key, transcript); err != nil {
		return "", err
	}
	return storage.URL(key), nil
}

// verifyExport reads the object back and compares it with what was written
func verifyExport(ctx context.Context, storage adapter.Storage, key, transcript string) error {
	r, err := storage.Get(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to read back transcript", goerr.V("key", key))
	}
	defer r.Close()

	stored, err := io.ReadAll(r)
	if err != nil {
		return goerr.Wrap(err, "failed to read back transcript", goerr.V("key", key))
	}
	if sha256.Sum256(stored) != sha256.Sum256([]byte(transcript)) {
		return goerr.Wrap(ErrExportMismatch, "stored transcript differs from the exported one",
			goerr.V("key", key),
			goerr.V("written", len(transcript)),
			goerr.V("stored", len(stored)))
	}
	return nil
}
