// Package dbx provides tiny DB abstractions used by the sqlite sink:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and a statement batch that runs each statement immediately and commits
// every N statements.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the sinks.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
