// Package tx carries the active *sql.Tx through a context so every store
// called inside RunInTx joins the same transaction.
package tx

import (
	"context"
	"database/sql"
)

type activeTxKey struct{}

// With returns ctx carrying tx. A nil tx leaves ctx unchanged.
func With(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, activeTxKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(activeTxKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Active reports whether ctx is already inside a transaction.
func Active(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}
