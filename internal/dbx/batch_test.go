package dbx

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_CommitsEverySizeStatements(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	b := NewBatch(db, 2)
	require.NoError(t, b.Exec(ctx, `INSERT INTO t(v) VALUES (?)`, "a"))
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, 0, countRows(t, db), "not committed yet")

	require.NoError(t, b.Exec(ctx, `INSERT INTO t(v) VALUES (?)`, "b"))
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 2, countRows(t, db))

	require.NoError(t, b.Exec(ctx, `INSERT INTO t(v) VALUES (?)`, "c"))
	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, 3, countRows(t, db))
	assert.Equal(t, 3, b.Executed())

	require.NoError(t, b.Flush(ctx), "flush without a transaction is a no-op")
}

func TestBatch_DefaultSize(t *testing.T) {
	b := NewBatch(nil, 0)
	assert.Equal(t, DefaultBatchSize, b.size)
}

func TestBatch_FailingStatementReportedByItsExec(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	b := NewBatch(db, 10)
	require.NoError(t, b.Exec(ctx, `INSERT INTO t(v) VALUES (?)`, "ok"))

	err := b.Exec(ctx, `INSERT INTO missing(v) VALUES (?)`, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT INTO missing")
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 1, b.Executed())

	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, 0, countRows(t, db), "open transaction is rolled back")

	require.NoError(t, b.Exec(ctx, `INSERT INTO t(v) VALUES (?)`, "after"))
	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, 1, countRows(t, db), "a new transaction starts after a failure")
}

func TestBatch_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO t`).WithArgs("x").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(assert.AnError)

	b := NewBatch(db, 1)
	err = b.Exec(context.Background(), `INSERT INTO t(v) VALUES (?)`, "x")
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatch_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin().WillReturnError(assert.AnError)

	b := NewBatch(db, 5)
	err = b.Exec(context.Background(), `INSERT INTO t(v) VALUES (?)`, "x")
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, b.Executed())
	require.NoError(t, mock.ExpectationsWereMet())
}
