// Package module provides the backfill module implementation
package module

import (
	"quakeingest/internal/modkit"
	"quakeingest/internal/modkit/repokit"
	perr "quakeingest/internal/platform/errors"

	"quakeingest/internal/services/backfill/domain"
	"quakeingest/internal/services/backfill/ingest"
	"quakeingest/internal/services/backfill/repo"
	"quakeingest/internal/services/backfill/service"
)

// Ports defines the backfill module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the backfill module.
// It wires up all the adapters and the service using config from deps.Cfg
// and fails on invalid options
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.PG == nil {
		return nil, perr.Configf("backfill: postgres is not configured")
	}

	var hooks []repokit.BeginHook
	if opts.StatementTimeout > 0 {
		hooks = append(hooks, repokit.StatementTimeout(opts.StatementTimeout))
	}

	svc := service.New(
		repokit.WithBeginHooks(deps.PG, hooks...), repo.NewPG(),
		ingest.NewFetcher(opts.Endpoint, opts.HTTPTimeout),
		ingest.NewReaderFactory(deps.Logger("fdsn"), deps.Metrics),
		ingest.NewMapper(opts.Location),
		service.Config{
			WindowSize:     opts.WindowSize,
			WindowTimeout:  opts.WindowTimeout,
			FeatureTimeout: opts.FeatureTimeout,
		},
	).WithMetrics(deps.Metrics)

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "backfill" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options, the range to run included
func (m *Module) Options() Options { return m.opts }
