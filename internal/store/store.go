// Package store holds all SQL persistence. Functions take a DBTX so the
// same query code runs against the bare connection or inside a
// transaction; the sync engine passes one *sql.Tx through a whole
// reconciliation run.
package store

import (
	"context"
	"database/sql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
