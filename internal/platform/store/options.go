package store

import (
	"quakeingest/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger the store and its SQL tracer write to.
// nil keeps the no-op logger
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) error {
		if log != nil {
			s.Log = *log
		}
		return nil
	}
}
