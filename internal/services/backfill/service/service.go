// Package service provides the backfill service implementation
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"quakeingest/internal/modkit/repokit"
	perr "quakeingest/internal/platform/errors"
	"quakeingest/internal/platform/logger"
	"quakeingest/internal/platform/metrics"
	ptime "quakeingest/internal/platform/time"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/core/window"
	"quakeingest/internal/services/backfill/domain"
	"quakeingest/internal/services/backfill/guardrails"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Config holds configuration options for the backfill service
type Config struct {
	// WindowSize is the span of one request; clamped to (0, window.MaxSize]
	WindowSize time.Duration

	// Timeouts applied via guardrails
	WindowTimeout  time.Duration
	FeatureTimeout time.Duration
}

// Service implements the backfill service
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo] // binds q -> domain.StorageRepo
	Fetch  domain.Fetcher
	Reader domain.ReaderFactory
	Map    domain.Mapper
	Cfg    Config

	Clock   clockwork.Clock
	Metrics *metrics.Backfill // nil disables collection
	NewID   func() string     // run ids
}

// New constructs the backfill service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	f domain.Fetcher,
	rf domain.ReaderFactory,
	m domain.Mapper,
	cfg Config,
) *Service {
	if db == nil {
		panic("backfill.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("backfill.Service requires a non nil Repo binder")
	}
	return &Service{
		DB: db, Binder: binder,
		Fetch: f, Reader: rf, Map: m,
		Cfg:   cfg,
		Clock: clockwork.NewRealClock(),
		NewID: uuid.NewString,
	}
}

// WithClock swaps the clock used for timings
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.Clock = c
	return s
}

// WithMetrics wires the collectors updated per window and feature
func (s *Service) WithMetrics(m *metrics.Backfill) *Service {
	s.Metrics = m
	return s
}

// RunRange implements domain.RunnerPort. Windows run strictly in order; a
// window the upstream refuses is skipped and a window whose transaction fails
// or whose time budget runs out is rolled back, both without stopping the run.
// Fatal errors (transport, unavailable store) and cancellation of ctx end the
// run and are returned together with what was done so far
func (s *Service) RunRange(ctx context.Context, start, end time.Time) (domain.RunSummary, error) {
	sum := domain.RunSummary{RunID: s.NewID()}
	ctx = logger.WithRun(ctx, sum.RunID)
	log := logger.C(ctx)

	if !end.After(start) {
		log.Warn().Time("start", start).Time("end", end).Msg("backfill: empty range, nothing to do")
		return sum, nil
	}

	t0 := s.Clock.Now()
	s.Metrics.SetRunning(true)
	defer s.Metrics.SetRunning(false)

	log.Info().
		Str("start", start.Format(time.DateOnly)).
		Str("end", end.Format(time.DateOnly)).
		Int("windows", window.Count(start, end, s.Cfg.WindowSize)).
		Msg("backfill: run started")

	var runErr error
	for w := range window.Split(start, end, s.Cfg.WindowSize) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		ws, err := s.runWindow(ctx, w)
		sum.Add(ws)
		if err == nil {
			continue
		}
		if perr.Fatal(err) || ctx.Err() != nil {
			runErr = err
			break
		}
		logger.C(logger.WithWindow(ctx, w.Label())).Error().Err(err).Msg("backfill: window rolled back")
	}

	sum.Elapsed = s.Clock.Since(t0)
	ev := log.Info()
	if runErr != nil {
		ev = log.Error().Err(runErr)
	}
	ev.Int("windows", sum.Windows).
		Int("windows_skipped", sum.WindowsSkipped).
		Int("windows_failed", sum.WindowsFailed).
		Int("rows", sum.Rows).
		Int("ingested", sum.Ingested).
		Int("duplicates", sum.Duplicates).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("dropped", sum.Dropped).
		Dur("elapsed", sum.Elapsed).
		Msg("backfill: run finished")
	return sum, runErr
}

// runWindow fetches one window and writes it inside a single transaction.
// The returned error is nil for a committed or skipped window
func (s *Service) runWindow(ctx context.Context, w window.Window) (ws domain.WindowSummary, retErr error) {
	ctx = logger.WithWindow(ctx, w.Label())
	log := logger.C(ctx)
	ws = domain.WindowSummary{Window: w, Status: domain.WindowOK}

	tos := guardrails.Timeouts{Window: s.Cfg.WindowTimeout, Feature: s.Cfg.FeatureTimeout}
	wctx, cancel := guardrails.WithWindow(ctx, tos)
	defer cancel()

	t0 := s.Clock.Now()
	defer func() {
		ws.Elapsed = s.Clock.Since(t0)
		if retErr != nil {
			ws.Status = domain.WindowFailed
			ws.Discard()
		}
		s.Metrics.Window(string(ws.Status), ws.Elapsed.Seconds(), ws.Rows)
	}()

	rc, err := s.Fetch.Fetch(wctx, w)
	if err != nil {
		var se *fdsn.StatusError
		if errors.As(err, &se) {
			log.Warn().Int("status_code", se.Status).Str("reason", se.Reason).Msg("backfill: request failed, window skipped")
			ws.Status = domain.WindowSkipped
			return ws, nil
		}
		return ws, budget(ctx, wctx, err)
	}

	rd := s.Reader.New(rc)
	defer func() {
		ws.Dropped = rd.Stats().Dropped
		if cerr := rd.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("backfill: close response body")
		}
	}()

	err = s.DB.Tx(wctx, func(q repokit.Queryer) error {
		for {
			b, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if md := b.Metadata; md != nil {
				log.Info().Str("title", md.Title).Int("count", md.Count).Msg("backfill: response header")
			}
			for _, f := range b.Features {
				ws.Rows++
				o, err := s.ingestFeature(wctx, q, f, ws.Rows)
				ws.Count(o)
				s.Metrics.Feature(string(o))
				if err != nil {
					return err
				}
			}
		}
	})
	if err != nil {
		if _, ok := perr.As(err); !ok {
			err = perr.FromPostgres(err, "window transaction")
		}
		return ws, budget(ctx, wctx, err)
	}

	log.Info().
		Int("rows", ws.Rows).
		Int("duplicates", ws.Duplicates).
		Int("skipped", ws.Skipped).
		Int("failed", ws.Failed).
		Msgf("Successfully ingested %d rows", ws.Ingested)
	return ws, nil
}

// budget reclassifies err as a timeout of this window when the window's own
// budget ran out while the run is still live, so the run moves on
func budget(ctx, wctx context.Context, err error) error {
	if !guardrails.Exhausted(ctx, wctx, err) {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeTimeout, "window budget exhausted")
}

// ingestFeature writes one feature inside a savepoint of the window tx so a
// rejected row rolls back alone. The error is non nil only when the window
// transaction itself is no longer usable
func (s *Service) ingestFeature(ctx context.Context, q repokit.Queryer, f domain.Feature, row int) (domain.Outcome, error) {
	log := logger.C(ctx)

	rows, err := s.Map.ToRows(f)
	if err != nil {
		log.Debug().Int("row", row).Err(err).Msg("backfill: feature skipped")
		return domain.OutcomeSkipped, nil
	}
	ev := rows.Event
	capHook := guardrails.Timeouts{Feature: s.Cfg.FeatureTimeout}.FeatureCap()

	dup := false
	err = repokit.Savepoint(ctx, q, func(sq repokit.Queryer) error {
		if capHook != nil {
			if err := capHook(ctx, sq); err != nil {
				return err
			}
		}
		r := repokit.MustBind(s.Binder, sq)
		inserted, err := r.InsertEvent(ctx, ev)
		if err != nil {
			return err
		}
		if !inserted {
			dup = true
			return nil
		}
		if err := r.InsertAssociations(ctx, ev.ID, rows.Associations); err != nil {
			return err
		}
		return r.InsertContributions(ctx, ev.ID, rows.Contributions)
	})

	switch {
	case err == nil && dup, perr.IsCode(err, perr.ErrorCodeDuplicateKey):
		log.Debug().Int("row", row).Str("id", ev.ID).Msg("backfill: duplicate event skipped")
		return domain.OutcomeDuplicate, nil
	case perr.IsAbortedTx(err):
		return domain.OutcomeFailed, perr.FromPostgres(err, "window transaction aborted")
	case err != nil:
		log.Debug().Int("row", row).Str("id", ev.ID).Err(err).Msg("backfill: feature rolled back")
		return domain.OutcomeFailed, nil
	}

	log.Debug().
		Int("row", row).
		Str("id", ev.ID).
		Str("time", ev.Time.Format(ptime.Layout)).
		Msg("backfill: event stored")
	return domain.OutcomeIngested, nil
}
