package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const recordKeyPrefix = "record/"

// Badger is a Repository on a local BadgerDB
type Badger struct {
	db *badger.DB
}

var _ Repository = (*Badger)(nil)

// NewBadger opens the journal at dir. An empty dir opens an in-memory
// journal.
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open journal", goerr.V("dir", dir))
	}
	return &Badger{db: db}, nil
}

// recordKey sorts records of a session by creation time. The nanosecond
// timestamp is zero padded so that byte order equals time order.
func recordKey(r *model.Record) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", recordKeyPrefix, r.SessionID, r.CreatedAt.UnixNano(), r.ID))
}

func sessionPrefix(id model.SessionID) []byte {
	return []byte(recordKeyPrefix + string(id) + "/")
}

func (b *Badger) PutRecord(ctx context.Context, record *model.Record) error {
	if record.ID == "" || record.SessionID == "" {
		return goerr.New("record ID and session ID are required", goerr.V("record_id", record.ID))
	}
	if strings.Contains(string(record.SessionID), "/") {
		return goerr.New("session ID must not contain '/'", goerr.V("session_id", record.SessionID))
	}

	data, err := json.Marshal(record)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal record", goerr.V("record_id", record.ID))
	}

	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(record), data)
	}); err != nil {
		return goerr.Wrap(err, "failed to put record", goerr.V("record_id", record.ID))
	}
	return nil
}

func (b *Badger) ListRecords(ctx context.Context, sessionID model.SessionID) ([]*model.Record, error) {
	var records []*model.Record
	err := b.scan(sessionPrefix(sessionID), func(r *model.Record) {
		records = append(records, r)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records", goerr.V("session_id", sessionID))
	}
	return records, nil
}

func (b *Badger) ListSessions(ctx context.Context, offset, limit int) ([]*model.SessionSummary, error) {
	summaries := make(map[model.SessionID]*model.SessionSummary)
	err := b.scan([]byte(recordKeyPrefix), func(r *model.Record) {
		s, ok := summaries[r.SessionID]
		if !ok {
			s = &model.SessionSummary{SessionID: r.SessionID, FirstSeen: r.CreatedAt, LastActivity: r.CreatedAt}
			summaries[r.SessionID] = s
		}
		s.Records++
		if r.CreatedAt.Before(s.FirstSeen) {
			s.FirstSeen = r.CreatedAt
		}
		if r.CreatedAt.After(s.LastActivity) {
			s.LastActivity = r.CreatedAt
		}
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions")
	}

	list := make([]*model.SessionSummary, 0, len(summaries))
	for _, s := range summaries {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastActivity.Equal(list[j].LastActivity) {
			return list[i].SessionID < list[j].SessionID
		}
		return list[i].LastActivity.After(list[j].LastActivity)
	})

	return paginate(list, offset, limit), nil
}

func (b *Badger) scan(prefix []byte, fn func(*model.Record)) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r model.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return goerr.Wrap(err, "failed to decode record", goerr.V("key", string(it.Item().Key())))
			}
			fn(&r)
		}
		return nil
	})
}

func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close journal")
	}
	return nil
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
