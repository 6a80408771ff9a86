package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultBatchSize is the number of statements committed per transaction.
const DefaultBatchSize = 1000

// Batch executes statements as they arrive inside a transaction that is
// opened lazily and committed every Size statements. A failing statement is
// reported by the Exec call that ran it and rolls back the open transaction.
//
// Batch is not safe for concurrent use.
type Batch struct {
	db       *sql.DB
	size     int
	tx       *sql.Tx
	inTx     int
	executed int
}

func NewBatch(db *sql.DB, size int) *Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batch{db: db, size: size}
}

// Exec runs the statement in the open transaction, starting one if needed,
// and commits once the transaction holds Size statements.
func (b *Batch) Exec(ctx context.Context, query string, args ...any) error {
	tx, err := b.begin(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		b.rollback()
		return fmt.Errorf("exec %q: %w", query, err)
	}
	b.inTx++
	b.executed++

	if b.inTx >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

func (b *Batch) begin(ctx context.Context) (DBTX, error) {
	if b.tx != nil {
		return b.tx, nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	b.tx = tx
	return tx, nil
}

func (b *Batch) rollback() {
	if b.tx != nil {
		_ = b.tx.Rollback()
	}
	b.tx = nil
	b.inTx = 0
}

// Flush commits the open transaction, if any.
func (b *Batch) Flush(ctx context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	b.inTx = 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Pending is the number of executed statements not yet committed.
func (b *Batch) Pending() int {
	return b.inTx
}

// Executed is the number of statements that ran without error, including
// those of a transaction that was later rolled back.
func (b *Batch) Executed() int {
	return b.executed
}
