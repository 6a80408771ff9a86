package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/logging"
	"github.com/dmitrijs2005/signalbackup/internal/pipeline"
	"github.com/dustin/go-humanize"
)

// TerminalReporter redraws one status line on a terminal. Without a
// terminal it logs snapshots instead: at debug level while running and at
// info level for the final one.
type TerminalReporter struct {
	w       io.Writer
	tty     bool
	logger  logging.Logger
	lastLen int
}

func NewTerminalReporter(w io.Writer, tty bool, logger logging.Logger) *TerminalReporter {
	return &TerminalReporter{w: w, tty: tty, logger: logger}
}

func (r *TerminalReporter) Report(ctx context.Context, s pipeline.Snapshot) {
	if !r.tty {
		log := r.logger.Debug
		if s.Done {
			log = r.logger.Info
		}
		log(ctx, "progress",
			"records_read", s.RecordsRead,
			"records_written", s.RecordsWritten,
			"bytes_read", s.BytesRead,
			"bytes_total", s.TotalBytes,
		)
		return
	}

	line := formatProgress(s)
	pad := ""
	if n := r.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(r.w, "\r%s%s", line, pad)
	r.lastLen = len(line)

	if s.Done {
		fmt.Fprintln(r.w)
		r.lastLen = 0
	}
}

func formatProgress(s pipeline.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(humanize.Bytes(uint64(max(s.BytesRead, 0))))
	if s.TotalBytes > 0 {
		pct := float64(s.BytesRead) / float64(s.TotalBytes) * 100
		fmt.Fprintf(&sb, " / %s (%.1f%%)", humanize.Bytes(uint64(s.TotalBytes)), pct)
	}
	fmt.Fprintf(&sb, ", %s records read, %s written",
		humanize.Comma(int64(s.RecordsRead)), humanize.Comma(int64(s.RecordsWritten)))
	return sb.String()
}
