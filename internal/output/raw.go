package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/dbx"
	"github.com/dmitrijs2005/signalbackup/internal/filex"
	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
	"gopkg.in/ini.v1"
	_ "modernc.org/sqlite"
)

const (
	DatabaseFile = "signal_backup.db"
	KeyValueFile = "key_value"

	attachmentDir = "attachment"
	avatarDir     = "avatar"
	stickerDir    = "sticker"
	configDir     = "config"
)

var iniOptions = ini.LoadOptions{Loose: true, AllowShadows: true}

// Raw writes the backup as it is stored on the phone: a sqlite database,
// one file per attachment, avatar and sticker, and INI files for shared
// preferences and key values.
type Raw struct {
	written

	db     *sql.DB
	batch  *dbx.Batch
	logger logging.Logger

	attachments string
	avatars     string
	stickers    string
	config      string

	prefs     map[string]*ini.File
	avatarN   int
	stickerN  int
	skippedFT int
}

// NewRaw prepares dir and opens a fresh database in it.
func NewRaw(dir string, opts Options) (*Raw, error) {
	if err := filex.PrepareOutputDir(dir, opts.Force); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, DatabaseFile)
	if err := filex.RemoveIfExists(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Statements arrive in order from one goroutine.
	db.SetMaxOpenConns(1)

	r, err := NewRawWithDB(dir, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewRawWithDB is NewRaw for an already opened database. dir must exist.
func NewRawWithDB(dir string, db *sql.DB, opts Options) (*Raw, error) {
	r := &Raw{
		db:     db,
		batch:  dbx.NewBatch(db, opts.BatchSize),
		logger: opts.logger(),
		prefs:  make(map[string]*ini.File),
	}

	for _, d := range []struct {
		dst  *string
		name string
	}{
		{&r.attachments, attachmentDir},
		{&r.avatars, avatarDir},
		{&r.stickers, stickerDir},
		{&r.config, configDir},
	} {
		p, err := filex.EnsureSubDir(dir, d.name)
		if err != nil {
			return nil, err
		}
		*d.dst = p
	}
	return r, nil
}

// isFullTextSearch matches the full text search tables and triggers that
// cannot be replayed into a plain sqlite database.
func isFullTextSearch(sql string) bool {
	return strings.HasPrefix(sql, "CREATE TRIGGER") ||
		strings.Contains(sql, "_fts") ||
		strings.HasPrefix(sql, "CREATE TABLE sqlite_")
}

func (r *Raw) WriteStatement(ctx context.Context, sql string, params []any) error {
	if isFullTextSearch(sql) {
		r.skippedFT++
		r.logger.Debug(ctx, "skipping full text search statement", "sql", sql)
		r.inc()
		return nil
	}
	if err := r.batch.Exec(ctx, sql, params...); err != nil {
		return err
	}
	r.inc()
	return nil
}

func (r *Raw) WriteAttachment(_ context.Context, data []byte, attachmentID, rowID uint64) error {
	name := fmt.Sprintf("%d_%d", attachmentID, rowID)
	return r.writeFile(r.attachments, name, data)
}

func (r *Raw) WriteAvatar(_ context.Context, data []byte, name string) error {
	file := fmt.Sprintf("%s_%d", safeName(name), r.avatarN)
	r.avatarN++
	return r.writeFile(r.avatars, file, data)
}

func (r *Raw) WriteSticker(_ context.Context, data []byte, rowID uint64) error {
	file := fmt.Sprintf("%d_%d", rowID, r.stickerN)
	r.stickerN++
	return r.writeFile(r.stickers, file, data)
}

func (r *Raw) writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o660); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.inc()
	return nil
}

// WritePreference sets the key in the default section of the INI file
// named after the preference file. String sets become shadowed keys.
func (r *Raw) WritePreference(_ context.Context, pref *frame.Preference) error {
	f, err := r.prefFile(safeName(pref.File))
	if err != nil {
		return err
	}

	sec := f.Section("")
	sec.DeleteKey(pref.Key)

	switch {
	case pref.StringSet != nil:
		if len(pref.StringSet) == 0 {
			_, err = sec.NewKey(pref.Key, "")
			break
		}
		var k *ini.Key
		k, err = sec.NewKey(pref.Key, pref.StringSet[0])
		for _, v := range pref.StringSet[1:] {
			if err != nil {
				break
			}
			err = k.AddShadow(v)
		}
	case pref.BoolValue != nil:
		_, err = sec.NewKey(pref.Key, strconv.FormatBool(*pref.BoolValue))
	default:
		_, err = sec.NewKey(pref.Key, pref.Value)
	}
	if err != nil {
		return fmt.Errorf("preference %s/%s: %w", pref.File, pref.Key, err)
	}

	r.inc()
	return nil
}

func (r *Raw) WriteVersion(ctx context.Context, version uint32) error {
	r.logger.Info(ctx, "database version", "version", version)
	r.inc()
	return nil
}

// WriteKeyValue stores key values in config/key_value, one key per line.
func (r *Raw) WriteKeyValue(_ context.Context, key string, value frame.Value) error {
	f, err := r.prefFile(KeyValueFile)
	if err != nil {
		return err
	}
	f.Section("").Key(key).SetValue(value.String())
	r.inc()
	return nil
}

func (r *Raw) prefFile(name string) (*ini.File, error) {
	if f, ok := r.prefs[name]; ok {
		return f, nil
	}
	f, err := ini.LoadSources(iniOptions, filepath.Join(r.config, name))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	r.prefs[name] = f
	return f, nil
}

// Finish commits outstanding statements, saves the INI files and closes the
// database.
func (r *Raw) Finish(ctx context.Context) error {
	flushErr := r.batch.Flush(ctx)

	for name, f := range r.prefs {
		path := filepath.Join(r.config, name)
		if err := f.SaveTo(path); err != nil && flushErr == nil {
			flushErr = fmt.Errorf("save %s: %w", path, err)
		}
	}

	closeErr := r.db.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close database: %w", closeErr)
	}

	r.logger.Info(ctx, "raw output finished",
		"statements", r.batch.Executed(),
		"skipped_fts", r.skippedFT,
		"avatars", r.avatarN,
		"stickers", r.stickerN,
	)
	return nil
}

// safeName keeps a record supplied name inside its directory.
func safeName(s string) string {
	s = strings.NewReplacer("/", "_", `\`, "_").Replace(s)
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}
