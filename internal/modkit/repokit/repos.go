// Package repokit binds domain repositories to the store's SQL seams
package repokit

import (
	"context"
	"fmt"
	"reflect"

	"quakeingest/internal/platform/store"
)

// Queryer is the minimal read and write surface for SQL repos
type Queryer = store.RowQuerier

// TxRunner can execute a function inside a transaction
type TxRunner = store.TxRunner

type (
	// Row is a single row result from a query
	Row = store.Row

	// CommandTag is the result of a command that modifies data
	CommandTag = store.CommandTag
)

// Binder builds a domain repo over whichever Queryer is current,
// the pool, a window transaction or a savepoint
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds q and panics when q is nil, which is always a wiring bug
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic(fmt.Sprintf("repokit: binding %s to a nil Queryer", reflect.TypeFor[T]()))
	}
	return b.Bind(q)
}

// Savepoint runs fn atomically inside the transaction q belongs to
func Savepoint(ctx context.Context, q Queryer, fn func(q Queryer) error) error {
	return store.Savepoint(ctx, q, fn)
}
