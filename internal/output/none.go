package output

import (
	"context"

	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
)

// None counts records and discards them. Combined with MAC verification it
// checks a backup without writing anything.
type None struct {
	written
	logger logging.Logger
}

func NewNone(opts Options) *None {
	return &None{logger: opts.logger()}
}

func (n *None) WriteStatement(context.Context, string, []any) error {
	n.inc()
	return nil
}

func (n *None) WriteAttachment(context.Context, []byte, uint64, uint64) error {
	n.inc()
	return nil
}

func (n *None) WriteAvatar(context.Context, []byte, string) error {
	n.inc()
	return nil
}

func (n *None) WriteSticker(context.Context, []byte, uint64) error {
	n.inc()
	return nil
}

func (n *None) WritePreference(context.Context, *frame.Preference) error {
	n.inc()
	return nil
}

func (n *None) WriteVersion(context.Context, uint32) error {
	n.inc()
	return nil
}

func (n *None) WriteKeyValue(context.Context, string, frame.Value) error {
	n.inc()
	return nil
}

func (n *None) Finish(ctx context.Context) error {
	n.logger.Info(ctx, "no output written", "records", n.WrittenCount())
	return nil
}
