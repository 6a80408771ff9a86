// Package cryptox implements the cryptographic layer of the backup format:
// password normalisation, key derivation and the rolling AES-CTR/HMAC
// decrypter used for every frame after the header.
package cryptox

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/dmitrijs2005/signalbackup/internal/common"
	"golang.org/x/crypto/hkdf"
)

const (
	// PasswordDigits is the number of decimal digits in a backup passphrase.
	PasswordDigits = 30

	// KeySize is the size of both the cipher key and the MAC key.
	KeySize = 32

	hashRounds = 250000
	backupInfo = "Backup Export"
)

// KeyMaterial holds the keys derived from a password and a backup salt.
// It is immutable once derived.
type KeyMaterial struct {
	CipherKey [KeySize]byte
	MACKey    [KeySize]byte
}

// Wipe zeroes both keys.
func (k *KeyMaterial) Wipe() {
	common.WipeByteArray(k.CipherKey[:])
	common.WipeByteArray(k.MACKey[:])
}

// NormalizePassword drops every non-digit character from raw and checks
// that exactly PasswordDigits digits remain. Spaces and dashes used when the
// passphrase is written down in groups are therefore accepted.
func NormalizePassword(raw string) ([]byte, error) {
	out := make([]byte, 0, PasswordDigits)
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	if len(out) != PasswordDigits {
		return nil, fmt.Errorf("%w: expected %d digits, got %d", common.ErrInvalidPassword, PasswordDigits, len(out))
	}
	return out, nil
}

// DeriveKeys stretches password with salt and expands the result into a
// cipher key and a MAC key.
//
// The salt is absorbed once into the SHA-512 state before the first round;
// each round then hashes the previous digest followed by the password. The
// first 32 bytes of the final digest are used directly as the HKDF-SHA256
// pseudorandom key, expanded with the "Backup Export" info string.
func DeriveKeys(password, salt []byte) (*KeyMaterial, error) {
	h := sha512.New()
	h.Write(salt)

	hash := append([]byte(nil), password...)
	for i := 0; i < hashRounds; i++ {
		h.Write(hash)
		h.Write(password)
		hash = h.Sum(hash[:0])
		h.Reset()
	}
	defer common.WipeByteArray(hash)

	okm := make([]byte, 2*KeySize)
	defer common.WipeByteArray(okm)

	r := hkdf.Expand(sha256.New, hash[:KeySize], []byte(backupInfo))
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}

	km := &KeyMaterial{}
	copy(km.CipherKey[:], okm[:KeySize])
	copy(km.MACKey[:], okm[KeySize:])
	return km, nil
}
