package collab

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultRecallLimit = 5
	DefaultRecallWait  = 30 * time.Second

	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 8 * time.Second
)

var (
	ErrSessionNotFound = goerr.New("session not found")
	ErrExportMismatch  = goerr.New("exported transcript does not match")
)

// UseCase records artifacts to the shared memory store and reads them back
type UseCase struct {
	store     adapter.MemoryStore
	storeName string
	repo      repository.Repository
	output    io.Writer

	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	backoffBase time.Duration
	backoffMax  time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithOutput sets the output writer
func WithOutput(w io.Writer) Option {
	return func(uc *UseCase) {
		uc.output = w
	}
}

// WithStoreName sets the store name written to journal records
func WithStoreName(name string) Option {
	return func(uc *UseCase) {
		uc.storeName = name
	}
}

// WithClock replaces time.Now and the sleep between recall attempts
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(uc *UseCase) {
		uc.now = now
		uc.sleep = sleep
	}
}

// WithBackoff sets the first delay between recall attempts and its cap
func WithBackoff(base, max time.Duration) Option {
	return func(uc *UseCase) {
		uc.backoffBase = base
		uc.backoffMax = max
	}
}

// New creates a new collab UseCase instance
func New(
	store adapter.MemoryStore,
	repo repository.Repository,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		store:       store,
		storeName:   "memory",
		repo:        repo,
		output:      os.Stdout,
		now:         time.Now,
		sleep:       sleepContext,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
