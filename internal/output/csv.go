package output

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/filex"
	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
)

// CSV writes the rows of every INSERT statement to <table>.csv. Columns
// named by an earlier CREATE TABLE become the header line. Records other
// than statements are only counted.
type CSV struct {
	written

	dir     string
	logger  logging.Logger
	columns map[string][]string
	tables  map[string]*csvTable
}

type csvTable struct {
	f    *os.File
	w    *csv.Writer
	rows int
}

func NewCSV(dir string, opts Options) (*CSV, error) {
	if err := filex.PrepareOutputDir(dir, opts.Force); err != nil {
		return nil, err
	}
	return &CSV{
		dir:     dir,
		logger:  opts.logger(),
		columns: make(map[string][]string),
		tables:  make(map[string]*csvTable),
	}, nil
}

func (c *CSV) WriteStatement(_ context.Context, sql string, params []any) error {
	if table, cols, ok := parseCreateTable(sql); ok {
		c.columns[table] = cols
	} else if table, ok := parseInsertTable(sql); ok {
		if err := c.writeRow(table, params); err != nil {
			return err
		}
	}
	c.inc()
	return nil
}

func (c *CSV) writeRow(table string, params []any) error {
	t, err := c.table(table)
	if err != nil {
		return err
	}

	row := make([]string, len(params))
	for i, p := range params {
		row[i] = formatParam(p)
	}
	if err := t.w.Write(row); err != nil {
		return fmt.Errorf("write %s row: %w", table, err)
	}
	t.rows++
	return nil
}

func (c *CSV) table(name string) (*csvTable, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	path := filepath.Join(c.dir, safeName(name)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	t := &csvTable{f: f, w: csv.NewWriter(f)}
	if cols := c.columns[name]; len(cols) > 0 {
		if err := t.w.Write(cols); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write %s header: %w", path, err)
		}
	}
	c.tables[name] = t
	return t, nil
}

func (c *CSV) WriteAttachment(context.Context, []byte, uint64, uint64) error {
	c.inc()
	return nil
}

func (c *CSV) WriteAvatar(context.Context, []byte, string) error {
	c.inc()
	return nil
}

func (c *CSV) WriteSticker(context.Context, []byte, uint64) error {
	c.inc()
	return nil
}

func (c *CSV) WritePreference(context.Context, *frame.Preference) error {
	c.inc()
	return nil
}

func (c *CSV) WriteVersion(context.Context, uint32) error {
	c.inc()
	return nil
}

func (c *CSV) WriteKeyValue(context.Context, string, frame.Value) error {
	c.inc()
	return nil
}

func (c *CSV) Finish(ctx context.Context) error {
	var errs []error
	for name, t := range c.tables {
		t.w.Flush()
		if err := t.w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", name, err))
		}
		if err := t.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		c.logger.Debug(ctx, "csv table written", "table", name, "rows", t.rows)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info(ctx, "csv output finished", "tables", len(c.tables))
	return nil
}

func formatParam(p any) string {
	switch v := p.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	}
	return fmt.Sprint(p)
}

// parseInsertTable returns the table of an "INSERT INTO t ..." statement.
func parseInsertTable(sql string) (string, bool) {
	rest, ok := cutPrefixFold(strings.TrimSpace(sql), "INSERT INTO ")
	if !ok {
		return "", false
	}
	name := firstIdent(rest)
	return name, name != ""
}

// parseCreateTable returns the table and column names of a CREATE TABLE
// statement. Table constraints are not columns.
func parseCreateTable(sql string) (string, []string, bool) {
	rest, ok := cutPrefixFold(strings.TrimSpace(sql), "CREATE TABLE ")
	if !ok {
		return "", nil, false
	}
	if r, ok := cutPrefixFold(strings.TrimSpace(rest), "IF NOT EXISTS "); ok {
		rest = r
	}

	table := firstIdent(rest)
	lp, rp := strings.IndexByte(rest, '('), strings.LastIndexByte(rest, ')')
	if table == "" || lp < 0 || rp < lp {
		return "", nil, false
	}

	var cols []string
	for _, def := range splitTopLevel(rest[lp+1 : rp]) {
		name := firstIdent(def)
		switch strings.ToUpper(name) {
		case "", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK", "CONSTRAINT":
			continue
		}
		cols = append(cols, name)
	}
	return table, cols, true
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// firstIdent reads one possibly quoted identifier from the start of s.
func firstIdent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if end, ok := map[byte]byte{'"': '"', '`': '`', '[': ']'}[s[0]]; ok {
		if i := strings.IndexByte(s[1:], end); i >= 0 {
			return s[1 : i+1]
		}
		return ""
	}
	i := strings.IndexAny(s, " \t\n(,")
	if i < 0 {
		return s
	}
	return s[:i]
}

// splitTopLevel splits s on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
