// Package stream reads a backup file frame by frame.
//
// The first frame is a cleartext header carrying the salt, the IV and the
// format version. Everything after it is encrypted with AES-CTR and
// authenticated with a truncated HMAC. Attachment, avatar and sticker
// records are followed by a payload block that the Reader consumes before
// returning the record.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/dmitrijs2005/signalbackup/internal/cryptox"
	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
)

const (
	// payloadChunk is the read size for payload blocks.
	payloadChunk = 8 << 10

	// DefaultMaxFrame bounds ordinary frames when the input size is unknown.
	DefaultMaxFrame = 64 << 20

	// DefaultMaxPayload bounds payload blocks when the input size is unknown.
	DefaultMaxPayload = 1 << 30
)

type Options struct {
	VerifyMAC bool
	Logger    logging.Logger
	// MaxFrame overrides DefaultMaxFrame.
	MaxFrame uint32
	// MaxPayload overrides DefaultMaxPayload. It only applies when the
	// input size is unknown; otherwise the remaining input bounds payloads.
	MaxPayload uint32
}

// Counters is a point-in-time view of how far a Reader has got.
type Counters struct {
	Records uint64
	Bytes   int64
	Total   int64
}

// Reader decodes records from a backup stream. It is not safe for
// concurrent use, except for Counters.
type Reader struct {
	src        io.Reader
	size       int64
	maxFrame   uint32
	maxPayload uint32
	logger     logging.Logger

	header *frame.Header
	dec    *cryptox.Decrypter
	framer framer
	ended  bool

	records atomic.Uint64
	bytes   atomic.Int64
}

// Open reads the header frame from src, derives the keys from password and
// returns a Reader positioned at the first encrypted frame. size is the
// total input length, or 0 when unknown; it bounds declared lengths.
func Open(ctx context.Context, src io.Reader, size int64, password []byte, opts Options) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	maxFrame := opts.MaxFrame
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrame
	}

	maxPayload := opts.MaxPayload
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayload
	}

	r := &Reader{src: src, size: size, maxFrame: maxFrame, maxPayload: maxPayload, logger: logger}

	hdr, err := r.readHeader()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := cryptox.DeriveKeys(password, hdr.Salt)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}
	defer keys.Wipe()

	dec, err := cryptox.NewDecrypter(keys, hdr.IV, opts.VerifyMAC)
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", common.ErrMalformedFrame, err)
	}

	r.header = hdr
	r.dec = dec
	r.framer = framerFor(hdr.Version)
	r.records.Add(1)

	logger.Info(ctx, "backup header read",
		"version", hdr.Version,
		"era", r.framer.era(),
		"verify_mac", dec.VerifiesMAC(),
	)
	return r, nil
}

func (r *Reader) readHeader() (*frame.Header, error) {
	var lb [lengthSize]byte
	if err := r.readFull(lb[:]); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}

	n := binary.BigEndian.Uint32(lb[:])
	if err := r.checkRemaining(int64(n)); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if n > r.maxFrame {
		return nil, fmt.Errorf("%w: header of %d bytes", common.ErrFrameLength, n)
	}

	raw := make([]byte, n)
	if err := r.readFull(raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rec, err := frame.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMissingHeader, err)
	}
	hdr, ok := rec.(*frame.Header)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", common.ErrMissingHeader, rec.Kind())
	}
	return hdr, nil
}

// Header returns the header frame read by Open.
func (r *Reader) Header() *frame.Header {
	return r.header
}

// Next returns the next record. Payload records come back with their
// decrypted payload attached. After the End record Next returns io.EOF.
func (r *Reader) Next(ctx context.Context) (frame.Record, error) {
	if r.ended {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := r.records.Load()
	raw, err := r.framer.readFrame(r)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}

	rec, err := frame.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}

	switch v := rec.(type) {
	case *frame.Header:
		return nil, fmt.Errorf("frame %d: %w", index, common.ErrUnexpectedHeader)
	case *frame.End:
		r.ended = true
	case frame.PayloadRecord:
		data, err := r.readPayload(v.PayloadLength())
		if err != nil {
			return nil, fmt.Errorf("frame %d: %s payload: %w", index, v.Kind(), err)
		}
		v.SetPayload(data)
	}

	r.records.Add(1)
	r.logger.Debug(ctx, "frame decoded", "index", index, "kind", rec.Kind(), "frame_bytes", len(raw))
	return rec, nil
}

// readPayload reads the block that follows a payload record. The IV is
// authenticated ahead of the ciphertext. With an unknown input size the
// buffer grows with the bytes actually read, so a bogus length cannot force
// a large allocation up front.
func (r *Reader) readPayload(length uint32) ([]byte, error) {
	if err := r.checkRemaining(int64(length) + cryptox.MACSize); err != nil {
		return nil, err
	}

	capacity := int(length)
	if r.size <= 0 {
		if length > r.maxPayload {
			return nil, fmt.Errorf("%w: payload of %d bytes exceeds limit %d", common.ErrFrameLength, length, r.maxPayload)
		}
		capacity = min(capacity, payloadChunk)
	}

	r.dec.PrimeMACWithIV()

	data := make([]byte, 0, capacity)
	chunk := make([]byte, payloadChunk)
	for remaining := int(length); remaining > 0; {
		c := chunk[:min(payloadChunk, remaining)]
		if err := r.readFull(c); err != nil {
			return nil, err
		}
		data = append(data, r.dec.Decrypt(c, true)...)
		remaining -= len(c)
	}

	if err := r.finishBlock(); err != nil {
		return nil, err
	}
	return data, nil
}

// Counters may be called from any goroutine.
func (r *Reader) Counters() Counters {
	return Counters{
		Records: r.records.Load(),
		Bytes:   r.bytes.Load(),
		Total:   r.size,
	}
}

func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.src, buf)
	r.bytes.Add(int64(n))
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// checkRemaining fails when n more bytes cannot fit in the input.
func (r *Reader) checkRemaining(n int64) error {
	if r.size <= 0 {
		return nil
	}
	if left := r.size - r.bytes.Load(); n > left {
		return fmt.Errorf("%w: %d bytes declared, %d left in input", common.ErrFrameLength, n, left)
	}
	return nil
}
