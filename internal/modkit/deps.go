// Package modkit provides module wiring and core deps
package modkit

import (
	"quakeingest/internal/modkit/repokit"
	"quakeingest/internal/platform/config"
	"quakeingest/internal/platform/logger"
	"quakeingest/internal/platform/metrics"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     *logger.Logger // nil means the process root logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	Metrics *metrics.Backfill // nil disables collection
}

// Logger returns a child of Log tagged with component
func (d Deps) Logger(component string) *logger.Logger {
	if d.Log == nil {
		return logger.Named(component)
	}
	l := d.Log.With().Str("component", component).Logger()
	return &l
}
