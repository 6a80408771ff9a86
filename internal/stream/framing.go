package stream

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/dmitrijs2005/signalbackup/internal/cryptox"
)

const lengthSize = 4

// framer reads the next ordinary encrypted frame and returns its plaintext.
// One framer is chosen per file from the header version.
type framer interface {
	readFrame(r *Reader) ([]byte, error)
	era() int
}

func framerFor(version uint32) framer {
	if version == 0 {
		return plainLength{}
	}
	return sealedLength{}
}

// plainLength frames carry a cleartext length that the MAC does not cover.
type plainLength struct{}

func (plainLength) era() int { return 0 }

func (plainLength) readFrame(r *Reader) ([]byte, error) {
	var lb [lengthSize]byte
	if err := r.readFull(lb[:]); err != nil {
		return nil, err
	}

	bodyLen, err := r.frameBodyLength(binary.BigEndian.Uint32(lb[:]), lb)
	if err != nil {
		return nil, err
	}

	body := make([]byte, bodyLen)
	if err := r.readFull(body); err != nil {
		return nil, err
	}
	r.dec.Decrypt(body, true)

	if err := r.finishBlock(); err != nil {
		return nil, err
	}
	return body, nil
}

// sealedLength frames encrypt the length and include it in the MAC. The
// length bytes and the body are decrypted as one run of the keystream.
type sealedLength struct{}

func (sealedLength) era() int { return 1 }

func (sealedLength) readFrame(r *Reader) ([]byte, error) {
	var lb [lengthSize]byte
	if err := r.readFull(lb[:]); err != nil {
		return nil, err
	}

	bodyLen, err := r.frameBodyLength(r.dec.PeekUint32(lb), lb)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, lengthSize+bodyLen)
	copy(buf, lb[:])
	if err := r.readFull(buf[lengthSize:]); err != nil {
		return nil, err
	}
	r.dec.Decrypt(buf, true)

	if err := r.finishBlock(); err != nil {
		return nil, err
	}
	return buf[lengthSize:], nil
}

// frameBodyLength validates a declared frame length (body plus tag) and
// returns the body length.
func (r *Reader) frameBodyLength(declared uint32, raw [lengthSize]byte) (int, error) {
	if declared < cryptox.MACSize {
		return 0, fmt.Errorf("%w: %d bytes is shorter than the mac (length bytes %s)",
			common.ErrFrameLength, declared, hex.EncodeToString(raw[:]))
	}
	if err := r.checkRemaining(int64(declared)); err != nil {
		return 0, fmt.Errorf("%w (length bytes %s)", err, hex.EncodeToString(raw[:]))
	}
	if declared > r.maxFrame {
		return 0, fmt.Errorf("%w: %d bytes exceeds frame limit %d (length bytes %s)",
			common.ErrFrameLength, declared, r.maxFrame, hex.EncodeToString(raw[:]))
	}
	return int(declared) - cryptox.MACSize, nil
}

// finishBlock reads the trailing tag, verifies it and moves to the next IV.
func (r *Reader) finishBlock() error {
	tag := make([]byte, cryptox.MACSize)
	if err := r.readFull(tag); err != nil {
		return err
	}
	if err := r.dec.VerifyMAC(tag); err != nil {
		return err
	}
	r.dec.AdvanceIV()
	return nil
}
