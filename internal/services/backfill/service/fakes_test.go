package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"

	"quakeingest/internal/modkit/repokit"
	"quakeingest/internal/services/backfill/domain"

	perr "quakeingest/internal/platform/errors"
)

// memState is one layer of writes: the committed db or a pending (savepoint) scope
type memState struct {
	events  map[string]domain.Event
	assoc   map[string][]string
	contrib map[string][]string
}

func newState() *memState {
	return &memState{events: map[string]domain.Event{}, assoc: map[string][]string{}, contrib: map[string][]string{}}
}

func (s *memState) mergeInto(dst *memState) {
	maps.Copy(dst.events, s.events)
	maps.Copy(dst.assoc, s.assoc)
	maps.Copy(dst.contrib, s.contrib)
}

// memDB emulates a transactional store with nested savepoints
type memDB struct {
	mu        sync.Mutex
	committed *memState
	txs       int
	commitErr func(n int) error // by tx number, 1-based

	failEvent   map[string]error // InsertEvent fails for id
	failContrib map[string]error // InsertContributions fails for id

	stmts []string // Exec calls inside any scope
}

func newMemDB() *memDB {
	return &memDB{committed: newState(), failEvent: map[string]error{}, failContrib: map[string]error{}}
}

// memTx is a scope; parent nil means the outer window transaction
type memTx struct {
	db      *memDB
	parent  *memTx
	pending *memState
}

func (db *memDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	db.mu.Lock()
	db.txs++
	n := db.txs
	db.mu.Unlock()

	tx := &memTx{db: db, pending: newState()}
	if err := fn(tx); err != nil {
		return err
	}
	if db.commitErr != nil {
		if err := db.commitErr(n); err != nil {
			return err
		}
	}
	tx.pending.mergeInto(db.committed)
	return nil
}

func (db *memDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errors.New("memDB: exec outside tx")
}

func (db *memDB) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

// Tx on a scope opens a savepoint
func (t *memTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	child := &memTx{db: t.db, parent: t, pending: newState()}
	if err := fn(child); err != nil {
		return err
	}
	child.pending.mergeInto(t.pending)
	return nil
}

func (t *memTx) Exec(_ context.Context, sql string, _ ...any) (repokit.CommandTag, error) {
	t.db.mu.Lock()
	t.db.stmts = append(t.db.stmts, sql)
	t.db.mu.Unlock()
	return nil, nil
}

func (t *memTx) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

func (t *memTx) has(id string) bool {
	for s := t; s != nil; s = s.parent {
		if _, ok := s.pending.events[id]; ok {
			return true
		}
	}
	_, ok := t.db.committed.events[id]
	return ok
}

// memRepo implements domain.StorageRepo over a scope
type memRepo struct{ t *memTx }

func memBinder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(q repokit.Queryer) domain.StorageRepo {
		return memRepo{t: q.(*memTx)}
	})
}

func (r memRepo) InsertEvent(_ context.Context, e domain.Event) (bool, error) {
	if err := r.t.db.failEvent[e.ID]; err != nil {
		return false, err
	}
	if r.t.has(e.ID) {
		return false, nil
	}
	r.t.pending.events[e.ID] = e
	return true, nil
}

func (r memRepo) InsertAssociations(_ context.Context, id string, targets []string) error {
	if len(targets) > 0 {
		r.t.pending.assoc[id] = targets
	}
	return nil
}

func (r memRepo) InsertContributions(_ context.Context, id string, names []string) error {
	if err := r.t.db.failContrib[id]; err != nil {
		return err
	}
	if len(names) > 0 {
		r.t.pending.contrib[id] = names
	}
	return nil
}

// fakeFetcher serves canned bodies keyed by window label
type fakeFetcher struct {
	bodies map[string]io.ReadCloser
	errs   map[string]error
	stall  map[string]string // window label -> content served before the body hangs
	calls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, w domain.Window) (io.ReadCloser, error) {
	f.calls = append(f.calls, w.Label())
	if err := f.errs[w.Label()]; err != nil {
		return nil, err
	}
	if s, ok := f.stall[w.Label()]; ok {
		return &stalledBody{r: strings.NewReader(s), ctx: ctx}, nil
	}
	if b, ok := f.bodies[w.Label()]; ok {
		return b, nil
	}
	return io.NopCloser(strings.NewReader(collection())), nil
}

// brokenBody yields its content then fails like a dropped connection,
// or with err when set
type brokenBody struct {
	r      io.Reader
	err    error
	closed bool
}

func (b *brokenBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		if b.err != nil {
			return n, b.err
		}
		return n, errors.New("connection reset by peer")
	}
	return n, err
}

func (b *brokenBody) Close() error { b.closed = true; return nil }

// stalledBody yields its content then blocks until the request context ends
type stalledBody struct {
	r   io.Reader
	ctx context.Context
}

func (b *stalledBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != io.EOF {
		return n, err
	}
	if n > 0 {
		return n, nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *stalledBody) Close() error { return nil }

func feature(id, extra string) string {
	idPart := ""
	if id != "" {
		idPart = fmt.Sprintf(`,"id":%q`, id)
	}
	if extra == "" {
		extra = `"mag":1.5,"time":1483228800000`
	}
	return fmt.Sprintf(`{"type":"Feature","properties":{%s},"geometry":{"type":"Point","coordinates":[-117.1,33.2,8.5]}%s}`, extra, idPart)
}

// collection renders a line-delimited geojson response the way the upstream does:
// header and first feature on line one, one feature per line, bbox on the last
func collection(features ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"type":"FeatureCollection","metadata":{"title":"USGS Earthquakes","status":200,"count":%d},"features":[`, len(features))
	for i, f := range features {
		b.WriteString(f)
		if i < len(features)-1 {
			b.WriteString(",\n")
		}
	}
	b.WriteString(`],"bbox":[-180,-90,0,180,90,700]}`)
	b.WriteString("\n")
	return b.String()
}

func body(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

var errUnique = perr.Wrap(errors.New("duplicate key value violates unique constraint"), perr.ErrorCodeDuplicateKey, "insert contributions")
