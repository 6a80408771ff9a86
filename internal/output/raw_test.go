package output

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func newRaw(t *testing.T, opts Options) (*Raw, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	r, err := NewRaw(dir, opts)
	require.NoError(t, err)
	return r, dir
}

func loadINI(t *testing.T, path string) *ini.File {
	t.Helper()
	f, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	require.NoError(t, err)
	return f
}

func TestRaw_WritesDatabaseAndFiles(t *testing.T) {
	ctx := context.Background()
	r, dir := newRaw(t, Options{BatchSize: 2})

	require.NoError(t, r.WriteStatement(ctx, "CREATE TABLE sms (_id INTEGER PRIMARY KEY, body TEXT, price REAL, raw BLOB, extra TEXT)", nil))
	require.NoError(t, r.WriteStatement(ctx, "CREATE VIRTUAL TABLE sms_fts USING fts5(body)", nil))
	require.NoError(t, r.WriteStatement(ctx, "CREATE TRIGGER sms_ai AFTER INSERT ON sms BEGIN SELECT 1; END", nil))
	require.NoError(t, r.WriteStatement(ctx, "CREATE TABLE sqlite_sequence(name,seq)", nil))
	require.NoError(t, r.WriteStatement(ctx, "INSERT INTO sms VALUES (?, ?, ?, ?, ?)", []any{int64(1), "hello", 2.5, []byte{0xde, 0xad}, nil}))
	require.NoError(t, r.WriteStatement(ctx, "INSERT INTO sms VALUES (?, ?, ?, ?, ?)", []any{int64(2), "again", nil, nil, nil}))

	require.NoError(t, r.WriteAttachment(ctx, []byte("photo"), 99, 7))
	require.NoError(t, r.WriteAvatar(ctx, []byte("av0"), "+15550100"))
	require.NoError(t, r.WriteAvatar(ctx, []byte("av1"), "a/b"))
	require.NoError(t, r.WriteSticker(ctx, []byte("st"), 4))

	require.NoError(t, r.WritePreference(ctx, &frame.Preference{File: "prefs", Key: "theme", Value: "dark"}))
	require.NoError(t, r.WritePreference(ctx, &frame.Preference{File: "prefs", Key: "theme", Value: "light"}))
	truth := true
	require.NoError(t, r.WritePreference(ctx, &frame.Preference{File: "prefs", Key: "enabled", BoolValue: &truth}))
	require.NoError(t, r.WritePreference(ctx, &frame.Preference{File: "other", Key: "set", StringSet: []string{"a", "b"}}))
	require.NoError(t, r.WriteVersion(ctx, 142))
	require.NoError(t, r.WriteKeyValue(ctx, "kbs.pin", frame.StringValue("1234")))
	require.NoError(t, r.WriteKeyValue(ctx, "blob", frame.BlobValue{1, 2, 3}))

	assert.Equal(t, uint64(18), r.WrittenCount())
	require.NoError(t, r.Finish(ctx))

	db, err := sql.Open("sqlite", filepath.Join(dir, DatabaseFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		body  string
		price float64
		raw   []byte
		extra sql.NullString
	)
	require.NoError(t, db.QueryRow(`SELECT body, price, raw, extra FROM sms WHERE _id = 1`).Scan(&body, &price, &raw, &extra))
	assert.Equal(t, "hello", body)
	assert.Equal(t, 2.5, price)
	assert.Equal(t, []byte{0xde, 0xad}, raw)
	assert.False(t, extra.Valid)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sms`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name LIKE '%fts%' OR type = 'trigger'`).Scan(&n))
	assert.Equal(t, 0, n)

	for path, want := range map[string]string{
		filepath.Join(dir, "attachment", "99_7"):    "photo",
		filepath.Join(dir, "avatar", "+15550100_0"): "av0",
		filepath.Join(dir, "avatar", "a_b_1"):       "av1",
		filepath.Join(dir, "sticker", "4_0"):        "st",
	} {
		got, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got), path)
	}

	prefs := loadINI(t, filepath.Join(dir, "config", "prefs"))
	assert.Equal(t, "light", prefs.Section("").Key("theme").String())
	assert.Equal(t, "true", prefs.Section("").Key("enabled").String())

	other := loadINI(t, filepath.Join(dir, "config", "other"))
	assert.Equal(t, []string{"a", "b"}, other.Section("").Key("set").ValueWithShadows())

	kv := loadINI(t, filepath.Join(dir, "config", KeyValueFile))
	assert.Equal(t, "1234", kv.Section("").Key("kbs.pin").String())
	assert.Equal(t, "AQID", kv.Section("").Key("blob").String())
}

func TestRaw_ExistingOutput(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRaw(dir, Options{})
	require.ErrorIs(t, err, common.ErrOutputExists)

	stale := filepath.Join(dir, DatabaseFile)
	require.NoError(t, os.WriteFile(stale, []byte("not a database"), 0o660))

	r, err := NewRaw(dir, Options{Force: true})
	require.NoError(t, err)
	require.NoError(t, r.WriteStatement(context.Background(), "CREATE TABLE t (x)", nil))
	require.NoError(t, r.Finish(context.Background()))

	db, err := sql.Open("sqlite", stale)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestRaw_StatementFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	r, err := NewRawWithDB(t.TempDir(), db, Options{BatchSize: 1})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t VALUES (?)").WithArgs("x").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = r.WriteStatement(context.Background(), "INSERT INTO t VALUES (?)", []any{"x"})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, uint64(1), r.WrittenCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRaw_FailingStatementReportedImmediately(t *testing.T) {
	ctx := context.Background()
	r, _ := newRaw(t, Options{BatchSize: 100})

	before := r.WrittenCount()
	err := r.WriteStatement(ctx, "INSERT INTO no_such_table VALUES (?)", []any{int64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_table")
	assert.Equal(t, before, r.WrittenCount())

	require.NoError(t, r.WriteStatement(ctx, "CREATE TABLE t (v INTEGER)", nil))
	assert.Equal(t, before+1, r.WrittenCount())
	require.NoError(t, r.Finish(ctx))
}

func TestRaw_FinishReportsFlushError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	r, err := NewRawWithDB(t.TempDir(), db, Options{BatchSize: 10})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t VALUES (?)").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(assert.AnError)
	mock.ExpectClose()

	require.NoError(t, r.WriteStatement(context.Background(), "INSERT INTO t VALUES (?)", []any{int64(1)}))

	err = r.Finish(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsFullTextSearch(t *testing.T) {
	tests := map[string]bool{
		"CREATE TRIGGER x AFTER INSERT ON sms BEGIN END": true,
		"CREATE VIRTUAL TABLE sms_fts USING fts5(body)":  true,
		"INSERT INTO sms_fts_data VALUES (?)":            true,
		"CREATE TABLE sqlite_stat1(tbl,idx,stat)":        true,
		"CREATE TABLE sms (_id INTEGER PRIMARY KEY)":     false,
		"INSERT INTO sms VALUES (?)":                     false,
	}
	for sql, want := range tests {
		assert.Equal(t, want, isFullTextSearch(sql), sql)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b", safeName("a/b"))
	assert.Equal(t, "a_b", safeName(`a\b`))
	assert.Equal(t, "_..", safeName(".."))
	assert.Equal(t, "_", safeName(""))
	assert.Equal(t, "+15550100", safeName("+15550100"))
}
