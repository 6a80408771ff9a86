package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() *KeyMaterial {
	k := &KeyMaterial{}
	for i := range k.CipherKey {
		k.CipherKey[i] = byte(i)
		k.MACKey[i] = byte(0xff - i)
	}
	return k
}

func testIV(counter uint32) []byte {
	iv := bytes.Repeat([]byte{0xab}, IVSize)
	binary.BigEndian.PutUint32(iv[12:], counter)
	return iv
}

func encryptCTR(t *testing.T, k *KeyMaterial, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(k.CipherKey[:])
	require.NoError(t, err)
	out := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(out, plaintext)
	return out
}

func tag(k *KeyMaterial, parts ...[]byte) []byte {
	m := hmac.New(sha256.New, k.MACKey[:])
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)[:MACSize]
}

func TestNewDecrypter_RejectsShortIV(t *testing.T) {
	_, err := NewDecrypter(testKeys(), make([]byte, 12), true)
	require.Error(t, err)
}

func TestAdvanceIV_CarriesWithinCounter(t *testing.T) {
	d, err := NewDecrypter(testKeys(), testIV(0x000000ff), false)
	require.NoError(t, err)

	d.AdvanceIV()

	iv := d.IV()
	assert.Equal(t, []byte{0, 0, 1, 0}, iv[12:])
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 12), iv[:12])
}

func TestAdvanceIV_256Times(t *testing.T) {
	d, err := NewDecrypter(testKeys(), testIV(0), false)
	require.NoError(t, err)

	for i := 0; i < 256; i++ {
		d.AdvanceIV()
	}

	iv := d.IV()
	assert.Equal(t, []byte{0, 0, 1, 0}, iv[12:])
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 12), iv[:12])
}

func TestAdvanceIV_WrapsWithoutTouchingPrefix(t *testing.T) {
	d, err := NewDecrypter(testKeys(), testIV(0xffffffff), false)
	require.NoError(t, err)

	d.AdvanceIV()

	iv := d.IV()
	assert.Equal(t, []byte{0, 0, 0, 0}, iv[12:])
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 12), iv[:12])
}

func TestDecrypt_RoundTrip(t *testing.T) {
	k := testKeys()
	iv := testIV(7)
	plaintext := []byte("the quick brown fox jumps over the lazy dog, twice over")

	ct := encryptCTR(t, k, iv, plaintext)

	d, err := NewDecrypter(k, iv, true)
	require.NoError(t, err)
	got := d.Decrypt(append([]byte(nil), ct...), true)

	assert.Equal(t, plaintext, got)
}

func TestDecrypt_KeystreamContinuesAcrossCalls(t *testing.T) {
	k := testKeys()
	iv := testIV(1)
	plaintext := bytes.Repeat([]byte("0123456789"), 10)
	ct := encryptCTR(t, k, iv, plaintext)

	d, err := NewDecrypter(k, iv, false)
	require.NoError(t, err)

	first := d.Decrypt(append([]byte(nil), ct[:37]...), false)
	second := d.Decrypt(append([]byte(nil), ct[37:]...), false)

	assert.Equal(t, plaintext, append(first, second...))
}

func TestDecrypt_AdvanceIVRestartsKeystream(t *testing.T) {
	k := testKeys()
	plaintext := []byte("second frame")
	ct := encryptCTR(t, k, testIV(2), plaintext)

	d, err := NewDecrypter(k, testIV(1), false)
	require.NoError(t, err)
	d.Decrypt(make([]byte, 5), false)
	d.AdvanceIV()

	assert.Equal(t, plaintext, d.Decrypt(ct, false))
}

func TestPeekUint32_DoesNotDisturbState(t *testing.T) {
	k := testKeys()
	iv := testIV(3)
	plaintext := []byte{0, 0, 1, 44, 'b', 'o', 'd', 'y'}
	ct := encryptCTR(t, k, iv, plaintext)

	d, err := NewDecrypter(k, iv, true)
	require.NoError(t, err)

	var prefix [4]byte
	copy(prefix[:], ct[:4])
	assert.Equal(t, uint32(300), d.PeekUint32(prefix))

	got := d.Decrypt(append([]byte(nil), ct...), true)
	assert.Equal(t, plaintext, got)
	require.NoError(t, d.VerifyMAC(tag(k, ct)))
}

func TestVerifyMAC(t *testing.T) {
	k := testKeys()
	iv := testIV(9)
	ct := encryptCTR(t, k, iv, []byte("frame body bytes"))
	good := tag(k, ct)

	t.Run("untouched body and tag verify", func(t *testing.T) {
		d, err := NewDecrypter(k, iv, true)
		require.NoError(t, err)
		d.Decrypt(append([]byte(nil), ct...), true)
		require.NoError(t, d.VerifyMAC(good))
	})

	t.Run("every flipped body bit fails", func(t *testing.T) {
		for i := 0; i < len(ct)*8; i++ {
			bad := append([]byte(nil), ct...)
			bad[i/8] ^= 1 << (i % 8)

			d, err := NewDecrypter(k, iv, true)
			require.NoError(t, err)
			d.Decrypt(bad, true)
			require.ErrorIs(t, d.VerifyMAC(good), common.ErrMACMismatch, "bit %d", i)
		}
	})

	t.Run("every flipped tag bit fails", func(t *testing.T) {
		for i := 0; i < MACSize*8; i++ {
			bad := append([]byte(nil), good...)
			bad[i/8] ^= 1 << (i % 8)

			d, err := NewDecrypter(k, iv, true)
			require.NoError(t, err)
			d.Decrypt(append([]byte(nil), ct...), true)

			err = d.VerifyMAC(bad)
			var macErr *common.MACError
			require.ErrorAs(t, err, &macErr, "bit %d", i)
			assert.Equal(t, bad, macErr.Expected)
			assert.Equal(t, good, macErr.Computed)
		}
	})

	t.Run("accumulator resets after verify", func(t *testing.T) {
		d, err := NewDecrypter(k, iv, true)
		require.NoError(t, err)
		d.Decrypt(append([]byte(nil), ct...), true)
		require.NoError(t, d.VerifyMAC(good))

		d.Decrypt(append([]byte(nil), ct...), true)
		require.NoError(t, d.VerifyMAC(good))
	})

	t.Run("disabled verification always succeeds", func(t *testing.T) {
		d, err := NewDecrypter(k, iv, false)
		require.NoError(t, err)
		d.Decrypt(append([]byte(nil), ct...), true)
		assert.False(t, d.VerifiesMAC())
		require.NoError(t, d.VerifyMAC(make([]byte, MACSize)))
	})
}

func TestPrimeMACWithIV(t *testing.T) {
	k := testKeys()
	iv := testIV(11)
	ct := encryptCTR(t, k, iv, []byte("attachment payload"))

	d, err := NewDecrypter(k, iv, true)
	require.NoError(t, err)
	d.PrimeMACWithIV()
	d.Decrypt(append([]byte(nil), ct...), true)
	require.NoError(t, d.VerifyMAC(tag(k, iv, ct)))

	d2, err := NewDecrypter(k, iv, true)
	require.NoError(t, err)
	d2.Decrypt(append([]byte(nil), ct...), true)
	require.ErrorIs(t, d2.VerifyMAC(tag(k, iv, ct)), common.ErrMACMismatch)
}
