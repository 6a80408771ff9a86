package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/backuppb"
	"github.com/dmitrijs2005/signalbackup/internal/common"
)

// maxRawContext bounds how many raw bytes a MalformedError prints.
const maxRawContext = 64

// MalformedError reports a frame that cannot be turned into a record. Raw is
// the plaintext frame as read from the stream.
type MalformedError struct {
	Raw    []byte
	Fields []string
	Err    error
}

func (e *MalformedError) Error() string {
	var sb strings.Builder
	sb.WriteString(common.ErrMalformedFrame.Error())
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	} else {
		fmt.Fprintf(&sb, ": %d populated fields %v", len(e.Fields), e.Fields)
	}

	raw := e.Raw
	suffix := ""
	if len(raw) > maxRawContext {
		raw, suffix = raw[:maxRawContext], "..."
	}
	fmt.Fprintf(&sb, " (raw %d bytes: %s%s)", len(e.Raw), hex.EncodeToString(raw), suffix)
	return sb.String()
}

func (e *MalformedError) Unwrap() []error {
	if e.Err != nil {
		return []error{common.ErrMalformedFrame, e.Err}
	}
	return []error{common.ErrMalformedFrame}
}

// Decode parses a plaintext frame and converts it into a Record. Byte fields
// of the result alias raw.
func Decode(raw []byte) (Record, error) {
	var f backuppb.BackupFrame
	if err := f.Unmarshal(raw); err != nil {
		return nil, &MalformedError{Raw: raw, Err: err}
	}

	rec, err := FromWire(&f)
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.Raw = raw
			return nil, me
		}
		return nil, &MalformedError{Raw: raw, Fields: f.Fields(), Err: err}
	}
	return rec, nil
}

// FromWire converts a parsed frame with exactly one populated field into the
// matching Record. A frame with zero or several fields yields a
// MalformedError.
func FromWire(f *backuppb.BackupFrame) (Record, error) {
	if fields := f.Fields(); len(fields) != 1 {
		return nil, &MalformedError{Fields: fields}
	}

	switch {
	case f.Header != nil:
		return &Header{
			Salt:    f.Header.Salt,
			IV:      f.Header.IV,
			Version: deref(f.Header.Version),
		}, nil

	case f.Statement != nil:
		params, err := statementParams(f.Statement.Parameters)
		if err != nil {
			return nil, err
		}
		return &Statement{SQL: deref(f.Statement.Statement), Params: params}, nil

	case f.Preference != nil:
		p := f.Preference
		rec := &Preference{File: deref(p.File), Key: deref(p.Key), Value: deref(p.Value), BoolValue: p.BooleanValue}
		if deref(p.IsStringSetValue) {
			rec.StringSet = append([]string{}, p.StringSetValue...)
		}
		return rec, nil

	case f.Attachment != nil:
		return &Attachment{
			Length:       deref(f.Attachment.Length),
			AttachmentID: deref(f.Attachment.AttachmentID),
			RowID:        deref(f.Attachment.RowID),
		}, nil

	case f.Avatar != nil:
		return &Avatar{
			Length:      deref(f.Avatar.Length),
			Name:        deref(f.Avatar.Name),
			RecipientID: deref(f.Avatar.RecipientID),
		}, nil

	case f.Sticker != nil:
		return &Sticker{Length: deref(f.Sticker.Length), RowID: deref(f.Sticker.RowID)}, nil

	case f.Version != nil:
		return &Version{Version: deref(f.Version.Version)}, nil

	case f.KeyValue != nil:
		v, err := keyValue(f.KeyValue)
		if err != nil {
			return nil, err
		}
		return &KeyValue{Key: deref(f.KeyValue.Key), Value: v}, nil

	case f.End != nil:
		return &End{}, nil
	}

	// Fields() and the switch above cover the same set of fields.
	return nil, fmt.Errorf("frame field %v has no record mapping", f.Fields())
}

func statementParams(in []*backuppb.SQLParameter) ([]any, error) {
	out := make([]any, len(in))
	for i, p := range in {
		switch {
		case p.String != nil:
			out[i] = *p.String
		case p.Integer != nil:
			out[i] = int64(*p.Integer)
		case p.Double != nil:
			out[i] = *p.Double
		case p.Blob != nil:
			out[i] = p.Blob
		case p.Null != nil:
			out[i] = nil
		default:
			return nil, fmt.Errorf("%w: parameter %d has no value", common.ErrUnsupportedParameter, i)
		}
	}
	return out, nil
}

func keyValue(kv *backuppb.KeyValue) (Value, error) {
	var values []Value
	if kv.BlobValue != nil {
		values = append(values, BlobValue(kv.BlobValue))
	}
	if kv.BooleanValue != nil {
		values = append(values, BoolValue(*kv.BooleanValue))
	}
	if kv.FloatValue != nil {
		values = append(values, FloatValue(*kv.FloatValue))
	}
	if kv.IntegerValue != nil {
		values = append(values, IntValue(*kv.IntegerValue))
	}
	if kv.LongValue != nil {
		values = append(values, IntValue(*kv.LongValue))
	}
	if kv.StringValue != nil {
		values = append(values, StringValue(*kv.StringValue))
	}

	if len(values) != 1 {
		return nil, fmt.Errorf("%w: key %q has %d values", common.ErrUnsupportedValue, deref(kv.Key), len(values))
	}
	return values[0], nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
