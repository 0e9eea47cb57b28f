package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/platform/metrics"
	"quakeingest/internal/services/backfill/domain"
	"quakeingest/internal/services/backfill/ingest"

	perr "quakeingest/internal/platform/errors"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan1  = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	jan8  = jan1.AddDate(0, 0, 7)
	jan15 = jan1.AddDate(0, 0, 14)
	jan22 = jan1.AddDate(0, 0, 21)

	w1 = domain.Window{Start: jan1, End: jan8}.Label()
	w2 = domain.Window{Start: jan8, End: jan15}.Label()
	w3 = domain.Window{Start: jan15, End: jan22}.Label()
)

type harness struct {
	svc *Service
	db  *memDB
	f   *fakeFetcher
	m   *metrics.Backfill
}

func newHarness() *harness {
	return newHarnessWith(Config{})
}

func newHarnessWith(cfg Config) *harness {
	h := &harness{
		db: newMemDB(),
		f:  &fakeFetcher{bodies: map[string]io.ReadCloser{}, errs: map[string]error{}, stall: map[string]string{}},
		m:  metrics.NewForTesting(),
	}
	cfg.WindowSize = 7 * 24 * time.Hour
	h.svc = New(h.db, memBinder(), h.f, ingest.NewReaderFactory(nil, h.m), ingest.NewMapper(time.UTC), cfg).
		WithClock(clockwork.NewFakeClock()).
		WithMetrics(h.m)
	h.svc.NewID = func() string { return "run-1" }
	return h
}

func TestNew_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { New(nil, memBinder(), nil, nil, nil, Config{}) })
	assert.Panics(t, func() { New(newMemDB(), nil, nil, nil, nil, Config{}) })
}

func TestRunRange_IngestsEveryWindow(t *testing.T) {
	h := newHarness()
	h.f.bodies[w1] = body(collection(
		feature("a1", `"mag":1.2,"ids":",a1,ci1,","sources":",us,ci,"`),
		feature("a2", ""),
		feature("a3", ""),
	))
	h.f.bodies[w2] = body(collection(feature("b1", "")))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)

	assert.Equal(t, []string{w1, w2}, h.f.calls)
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 2, sum.Windows)
	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 4, sum.Ingested)
	assert.Zero(t, sum.Failed+sum.Skipped+sum.Duplicates+sum.Dropped)

	assert.Len(t, h.db.committed.events, 4)
	assert.Equal(t, []string{"ci1"}, h.db.committed.assoc["a1"])
	assert.Equal(t, []string{"us", "ci"}, h.db.committed.contrib["a1"])
	assert.Equal(t, 2, h.db.txs, "one transaction per window")

	assert.Equal(t, 2.0, testutil.ToFloat64(h.m.Windows.WithLabelValues(metrics.WindowOK)))
	assert.Equal(t, 4.0, testutil.ToFloat64(h.m.Features.WithLabelValues(string(domain.OutcomeIngested))))
	assert.Zero(t, testutil.ToFloat64(h.m.Running))
}

func TestRunRange_NonOKStatusSkipsWindowAndContinues(t *testing.T) {
	h := newHarness()
	h.f.errs[w1] = &fdsn.StatusError{Status: 503, Reason: "Service Unavailable", URL: "http://x"}
	h.f.bodies[w2] = body(collection(feature("b1", "")))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)

	assert.Equal(t, []string{w1, w2}, h.f.calls)
	assert.Equal(t, 1, sum.WindowsSkipped)
	assert.Equal(t, 1, sum.Ingested)
	assert.Contains(t, h.db.committed.events, "b1")
	assert.Equal(t, 1, h.db.txs, "a skipped window opens no transaction")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.Windows.WithLabelValues(metrics.WindowSkipped)))
}

func TestRunRange_FailedFeatureDoesNotBlockCommit(t *testing.T) {
	h := newHarness()
	h.db.failEvent["a2"] = perr.Wrap(errors.New("value out of range"), perr.ErrorCodeInvalidArgument, "insert event a2")
	h.db.failContrib["a3"] = perr.Wrap(errors.New("relation does not exist"), perr.ErrorCodeDB, "insert contributions")
	h.f.bodies[w1] = body(collection(
		feature("a1", ""),
		feature("a2", ""),
		feature("a3", `"sources":",us,"`),
		feature("a4", ""),
	))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan8)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 2, sum.Ingested)
	assert.Equal(t, 2, sum.Failed)
	assert.Contains(t, h.db.committed.events, "a1")
	assert.Contains(t, h.db.committed.events, "a4")
	assert.NotContains(t, h.db.committed.events, "a2")
	assert.NotContains(t, h.db.committed.events, "a3", "a failing link write rolls its event back too")
}

func TestRunRange_DuplicateSkipsLinks(t *testing.T) {
	h := newHarness()
	h.db.committed.events["dup1"] = domain.Event{ID: "dup1"}
	h.db.failContrib["raw1"] = errUnique
	h.f.bodies[w1] = body(collection(
		feature("dup1", `"ids":",x1,x2,","sources":",us,"`),
		feature("raw1", `"sources":",us,"`),
		feature("new1", `"sources":",ci,"`),
	))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan8)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Duplicates)
	assert.Equal(t, 1, sum.Ingested)
	assert.NotContains(t, h.db.committed.assoc, "dup1")
	assert.NotContains(t, h.db.committed.contrib, "dup1")
	assert.NotContains(t, h.db.committed.events, "raw1")
	assert.Equal(t, []string{"ci"}, h.db.committed.contrib["new1"])
}

func TestRunRange_MissingIDAndMalformedLines(t *testing.T) {
	h := newHarness()
	doc := collection(feature("a1", ""), feature("", ""), feature("a3", ""))
	lines := strings.Split(doc, "\n")
	// an undecodable line before the last feature
	lines = append(lines[:2], append([]string{`{"type":"Feature","properties":{`}, lines[2:]...)...)
	h.f.bodies[w1] = body(strings.Join(lines, "\n"))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan8)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 2, sum.Ingested)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Dropped)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.Dropped))
	assert.Contains(t, h.db.committed.events, "a3")
}

func TestRunRange_MidStreamFailureIsFatal(t *testing.T) {
	h := newHarness()
	bb := &brokenBody{r: strings.NewReader(strings.TrimSuffix(collection(feature("a1", ""), feature("a2", ""), feature("a3", "")), "\n"))}
	h.f.bodies[w1] = bb

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.Error(t, err)
	assert.True(t, perr.Fatal(err))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeTransport))

	assert.Equal(t, []string{w1}, h.f.calls, "the run stops at the broken window")
	assert.Equal(t, 1, sum.WindowsFailed)
	assert.Zero(t, sum.Ingested)
	assert.Empty(t, h.db.committed.events, "the window transaction rolls back")
	assert.True(t, bb.closed)
}

func TestRunRange_WindowTimeoutSkipsToNextWindow(t *testing.T) {
	h := newHarnessWith(Config{WindowTimeout: 50 * time.Millisecond})
	// header and a1 arrive, then the body hangs until the window budget expires
	h.f.stall[w1] = `{"type":"FeatureCollection","metadata":{"count":2},"features":[` + feature("a1", "") + ",\n"
	h.f.bodies[w2] = body(collection(feature("b1", "")))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)

	assert.Equal(t, []string{w1, w2}, h.f.calls, "the second window is still fetched")
	assert.Equal(t, 2, sum.Windows)
	assert.Equal(t, 1, sum.WindowsFailed)
	assert.Equal(t, 1, sum.Ingested)
	assert.NotContains(t, h.db.committed.events, "a1", "the timed out window rolls back")
	assert.Contains(t, h.db.committed.events, "b1")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.Windows.WithLabelValues(metrics.WindowFailed)))
}

func TestRunRange_ClientTimeoutMidBodyIsNotFatal(t *testing.T) {
	h := newHarness()
	// what net/http returns when Client.Timeout fires while the body is read
	clientTimeout := fmt.Errorf("net/http: request canceled (Client.Timeout or context cancellation while reading body): %w", context.DeadlineExceeded)
	h.f.bodies[w1] = &brokenBody{
		r:   strings.NewReader(strings.TrimSuffix(collection(feature("a1", ""), feature("a2", "")), "\n")),
		err: clientTimeout,
	}
	h.f.bodies[w2] = body(collection(feature("b1", "")))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)

	assert.Equal(t, []string{w1, w2}, h.f.calls)
	assert.Equal(t, 1, sum.WindowsFailed)
	assert.Contains(t, h.db.committed.events, "b1")
	assert.NotContains(t, h.db.committed.events, "a1")
}

func TestRunRange_FeatureTimeoutCapsEachSavepoint(t *testing.T) {
	h := newHarnessWith(Config{FeatureTimeout: 2 * time.Second})
	h.f.bodies[w1] = body(collection(feature("a1", ""), feature("a2", "")))
	h.f.bodies[w2] = body(collection())

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Ingested)
	assert.Equal(t, []string{
		"SET LOCAL statement_timeout = 2000",
		"SET LOCAL statement_timeout = 2000",
	}, h.db.stmts)
}

func TestRunRange_NoFeatureTimeoutRunsNoStatements(t *testing.T) {
	h := newHarness()
	h.f.bodies[w1] = body(collection(feature("a1", "")))

	_, err := h.svc.RunRange(context.Background(), jan1, jan8)
	require.NoError(t, err)
	assert.Empty(t, h.db.stmts)
}

func TestRunRange_CommitFailureRollsBackWindowOnly(t *testing.T) {
	h := newHarness()
	h.db.commitErr = func(n int) error {
		if n == 1 {
			return errors.New("could not serialize access")
		}
		return nil
	}
	h.f.bodies[w1] = body(collection(feature("a1", ""), feature("a2", "")))
	h.f.bodies[w2] = body(collection(feature("b1", "")))

	sum, err := h.svc.RunRange(context.Background(), jan1, jan15)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.WindowsFailed)
	assert.Equal(t, 1, sum.Ingested)
	assert.Equal(t, 2, sum.Failed, "rows of a rolled back window count as failed")
	assert.NotContains(t, h.db.committed.events, "a1")
	assert.Contains(t, h.db.committed.events, "b1")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.Windows.WithLabelValues(metrics.WindowFailed)))
}

func TestRunRange_TransportFetchErrorStopsRun(t *testing.T) {
	h := newHarness()
	h.f.errs[w2] = perr.Wrap(errors.New("dial tcp: connection refused"), perr.ErrorCodeTransport, "fdsn request")

	sum, err := h.svc.RunRange(context.Background(), jan1, jan22)
	require.Error(t, err)
	assert.Equal(t, []string{w1, w2}, h.f.calls)
	assert.Equal(t, 2, sum.Windows)
	assert.Equal(t, 1, sum.WindowsFailed)
}

func TestRunRange_EmptyRange(t *testing.T) {
	h := newHarness()
	sum, err := h.svc.RunRange(context.Background(), jan8, jan1)
	require.NoError(t, err)
	assert.Empty(t, h.f.calls)
	assert.Zero(t, sum.Windows)
}

func TestRunRange_Canceled(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.RunRange(ctx, jan1, jan15)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.f.calls)
}

func TestRunRange_DefaultYearIs53Windows(t *testing.T) {
	h := newHarness()
	sum, err := h.svc.RunRange(context.Background(), jan1, jan1.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 53, sum.Windows)
	assert.Len(t, h.f.calls, 53)
	assert.Equal(t, "2017-12-31..2018-01-01", h.f.calls[52])
}
