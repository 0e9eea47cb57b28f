package store

import (
	"context"

	perr "quakeingest/internal/platform/errors"
)

// Exec runs a write and returns the number of rows it affected
func Exec(ctx context.Context, q RowQuerier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if tag == nil {
		return 0, nil
	}
	return tag.RowsAffected(), nil
}

// Savepoint runs fn atomically inside the transaction q belongs to: when fn
// fails every statement it issued is rolled back and the enclosing
// transaction stays usable. Queriers that cannot nest run fn directly
func Savepoint(ctx context.Context, q RowQuerier, fn func(q RowQuerier) error) error {
	if q == nil {
		return perr.Unavailablef("savepoint: nil querier")
	}
	if tx, ok := q.(TxRunner); ok {
		return tx.Tx(ctx, fn)
	}
	return fn(q)
}
