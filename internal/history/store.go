// Package history persists snapshots: the append-only record of every
// invocation's results that later runs compare against.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/types"
)

// Store is an append-only collection of snapshots
type Store interface {
	// Append records results as a new snapshot stamped with the current time
	Append(results []types.TestResult, description string) (*types.Snapshot, error)
	// Latest returns the snapshot with the greatest timestamp, or nil when empty
	Latest() (*types.Snapshot, error)
	// List returns every snapshot in ascending timestamp order
	List() ([]types.Snapshot, error)
	Close() error
}

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store
type Option func(*options)

// WithClock overrides the time source used to stamp snapshots
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store backend named by kind
func Open(kind, path string, opts ...Option) (Store, error) {
	switch kind {
	case config.StoreJSON, "":
		return NewFileStore(path, opts...), nil
	case config.StoreSQLite:
		return NewSQLiteStore(path, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown snapshot store %q", types.ErrConfiguration, kind)
	}
}

// newSnapshot stamps results with an id and the current Unix time
func newSnapshot(now time.Time, results []types.TestResult, description string) (*types.Snapshot, error) {
	secs := now.Unix()
	if secs < 0 {
		return nil, fmt.Errorf("%w: clock reads %s, before the Unix epoch", types.ErrTimestamp, now.UTC().Format(time.RFC3339))
	}
	if results == nil {
		results = []types.TestResult{}
	}
	return &types.Snapshot{
		ID:          uuid.NewString(),
		Description: description,
		Timestamp:   uint64(secs),
		Outputs:     results,
	}, nil
}
