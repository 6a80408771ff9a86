// Package common defines sentinel errors shared by the decoding layers of
// signalbackup. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Credential errors.
	ErrInvalidPassword = errors.New("invalid password")

	// Format errors (corrupt or unexpected stream content).
	ErrMalformedFrame       = errors.New("malformed frame")
	ErrMissingHeader        = errors.New("first frame is not a header")
	ErrUnexpectedHeader     = errors.New("unexpected header frame")
	ErrFrameLength          = errors.New("invalid frame length")
	ErrUnsupportedParameter = errors.New("unsupported statement parameter")
	ErrUnsupportedValue     = errors.New("unsupported key value")

	// Authentication errors.
	ErrMACMismatch = errors.New("mac verification failed")

	// Sink errors.
	ErrUnexpectedRecord = errors.New("unexpected record for sink")
	ErrOutputExists     = errors.New("output already exists")
)

// MACError carries the tag read from the stream and the tag computed over
// the ciphertext. It unwraps to ErrMACMismatch.
type MACError struct {
	Expected []byte
	Computed []byte
}

func (e *MACError) Error() string {
	return fmt.Sprintf("%s: expected %x, computed %x", ErrMACMismatch, e.Expected, e.Computed)
}

func (e *MACError) Unwrap() error {
	return ErrMACMismatch
}
