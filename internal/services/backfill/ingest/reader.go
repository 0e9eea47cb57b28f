package ingest

import (
	"io"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/platform/logger"
	"quakeingest/internal/platform/metrics"
	"quakeingest/internal/services/backfill/domain"
)

// readerFactory adapts fdsn.NewReader to domain.ReaderFactory
type readerFactory struct {
	log *logger.Logger
	m   *metrics.Backfill
}

// NewReaderFactory returns a factory that wraps fdsn.NewReader and counts
// dropped lines on m (nil disables counting)
func NewReaderFactory(log *logger.Logger, m *metrics.Backfill) domain.ReaderFactory {
	return readerFactory{log: log, m: m}
}

func (f readerFactory) New(rc io.ReadCloser) domain.ReaderPort {
	opts := []fdsn.ReaderOption{fdsn.OnDrop(func(*fdsn.ParseError) { f.m.Drop() })}
	if f.log != nil {
		opts = append(opts, fdsn.WithLogger(f.log))
	}
	return fdsn.NewReader(rc, opts...)
}
