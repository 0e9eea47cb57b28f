package domain

import (
	"context"
	"io"
	"time"

	"quakeingest/internal/adapters/ingest/fdsn"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	RunRange(ctx context.Context, start, end time.Time) (RunSummary, error)
}

// StorageRepo is the write surface for one transaction or savepoint
type StorageRepo interface {
	// InsertEvent stores e; inserted is false when the id already exists
	InsertEvent(ctx context.Context, e Event) (inserted bool, err error)

	// InsertAssociations links sourceID to each target id
	InsertAssociations(ctx context.Context, sourceID string, targets []string) error

	// InsertContributions records each contributing network of eventID
	InsertContributions(ctx context.Context, eventID string, names []string) error
}

// Fetcher opens the response body for one window
type Fetcher interface {
	Fetch(ctx context.Context, w Window) (io.ReadCloser, error)
}

// ReaderPort yields batches from one response
type ReaderPort interface {
	Next() (Batch, error)
	Close() error
	Stats() fdsn.Stats
}

// ReaderFactory wraps a response body in a ReaderPort
type ReaderFactory interface {
	New(io.ReadCloser) ReaderPort
}

// Mapper turns a feature into rows
type Mapper interface {
	ToRows(f Feature) (EventRows, error)
}
