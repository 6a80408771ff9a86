package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/dmitrijs2005/signalbackup/internal/common"
)

const (
	// IVSize is the size of the header IV and of the AES-CTR counter block.
	IVSize = aes.BlockSize

	// MACSize is the length of the truncated HMAC-SHA256 tag.
	MACSize = 10

	counterOffset = IVSize - 4
)

// Decrypter holds the rolling cipher state of one open backup file.
//
// The keystream starts at the current IV and continues across Decrypt calls
// until AdvanceIV rebuilds it from the next counter value. The MAC
// accumulator is nil when verification is disabled.
type Decrypter struct {
	block  cipher.Block
	stream cipher.Stream
	mac    hash.Hash
	iv     [IVSize]byte
}

// NewDecrypter builds a Decrypter from derived keys and the header IV.
func NewDecrypter(keys *KeyMaterial, iv []byte, verifyMAC bool) (*Decrypter, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", IVSize, len(iv))
	}

	block, err := aes.NewCipher(keys.CipherKey[:])
	if err != nil {
		return nil, fmt.Errorf("aes init: %w", err)
	}

	d := &Decrypter{block: block}
	copy(d.iv[:], iv)
	if verifyMAC {
		d.mac = hmac.New(sha256.New, keys.MACKey[:])
	}
	d.resetStream()

	return d, nil
}

func (d *Decrypter) resetStream() {
	d.stream = cipher.NewCTR(d.block, d.iv[:])
}

// Decrypt decrypts buf in place and returns it. When updateMAC is set the
// ciphertext is fed to the MAC accumulator before decryption.
func (d *Decrypter) Decrypt(buf []byte, updateMAC bool) []byte {
	if d.mac != nil && updateMAC {
		d.mac.Write(buf)
	}
	d.stream.XORKeyStream(buf, buf)
	return buf
}

// PeekUint32 decrypts a 4 byte big-endian value with a throwaway keystream
// starting at the current IV. Neither the MAC nor the running keystream are
// touched.
func (d *Decrypter) PeekUint32(ct [4]byte) uint32 {
	var pt [4]byte
	cipher.NewCTR(d.block, d.iv[:]).XORKeyStream(pt[:], ct[:])
	return binary.BigEndian.Uint32(pt[:])
}

// PrimeMACWithIV feeds the current IV into the MAC accumulator. Payload
// blocks authenticate their IV, ordinary frames do not.
func (d *Decrypter) PrimeMACWithIV() {
	if d.mac != nil {
		d.mac.Write(d.iv[:])
	}
}

// VerifyMAC finalises the accumulator and compares the first MACSize bytes
// of the digest with tag in constant time. The accumulator is reset either
// way. With verification disabled it always succeeds.
func (d *Decrypter) VerifyMAC(tag []byte) error {
	if d.mac == nil {
		return nil
	}

	sum := d.mac.Sum(nil)[:MACSize]
	d.mac.Reset()

	if len(tag) != MACSize || subtle.ConstantTimeCompare(sum, tag) != 1 {
		return &common.MACError{
			Expected: append([]byte(nil), tag...),
			Computed: sum,
		}
	}
	return nil
}

// AdvanceIV increments the big-endian counter held in the last four IV bytes,
// wrapping within those bytes, and restarts the keystream from the new IV.
func (d *Decrypter) AdvanceIV() {
	ctr := d.iv[counterOffset:]
	binary.BigEndian.PutUint32(ctr, binary.BigEndian.Uint32(ctr)+1)
	d.resetStream()
}

// IV returns a copy of the current IV.
func (d *Decrypter) IV() []byte {
	out := make([]byte, IVSize)
	copy(out, d.iv[:])
	return out
}

// VerifiesMAC reports whether MAC verification is enabled.
func (d *Decrypter) VerifiesMAC() bool {
	return d.mac != nil
}
