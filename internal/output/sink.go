// Package output persists decoded records.
//
// A Sink receives every forwarded record from a single goroutine. Only
// WrittenCount may be called concurrently, by progress reporting.
package output

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/dmitrijs2005/signalbackup/internal/frame"
)

type Sink interface {
	WriteStatement(ctx context.Context, sql string, params []any) error
	WriteAttachment(ctx context.Context, data []byte, attachmentID, rowID uint64) error
	WriteAvatar(ctx context.Context, data []byte, name string) error
	WriteSticker(ctx context.Context, data []byte, rowID uint64) error
	WritePreference(ctx context.Context, pref *frame.Preference) error
	WriteVersion(ctx context.Context, version uint32) error
	WriteKeyValue(ctx context.Context, key string, value frame.Value) error

	// WrittenCount includes the header record, which is never written.
	WrittenCount() uint64

	// Finish flushes and closes the output. The sink is unusable afterwards.
	Finish(ctx context.Context) error
}

// Dispatch calls the Sink method matching rec.
func Dispatch(ctx context.Context, s Sink, rec frame.Record) error {
	switch r := rec.(type) {
	case *frame.Statement:
		return s.WriteStatement(ctx, r.SQL, r.Params)
	case *frame.Attachment:
		return s.WriteAttachment(ctx, r.Data, r.AttachmentID, r.RowID)
	case *frame.Avatar:
		return s.WriteAvatar(ctx, r.Data, r.Name)
	case *frame.Sticker:
		return s.WriteSticker(ctx, r.Data, r.RowID)
	case *frame.Preference:
		return s.WritePreference(ctx, r)
	case *frame.Version:
		return s.WriteVersion(ctx, r.Version)
	case *frame.KeyValue:
		return s.WriteKeyValue(ctx, r.Key, r.Value)
	}
	return fmt.Errorf("%w: %s", common.ErrUnexpectedRecord, rec.Kind())
}

// written is the shared record counter. It starts at one for the header.
type written struct {
	n atomic.Uint64
}

func (w *written) inc() {
	w.n.Add(1)
}

func (w *written) WrittenCount() uint64 {
	return w.n.Load() + 1
}
