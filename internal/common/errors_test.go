package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("reading frame: %w", &MACError{
		Expected: []byte{0x01, 0x02},
		Computed: []byte{0x0a, 0x0b},
	})

	require.ErrorIs(t, err, ErrMACMismatch)

	var macErr *MACError
	require.True(t, errors.As(err, &macErr))
	assert.Equal(t, []byte{0x01, 0x02}, macErr.Expected)
	assert.Contains(t, err.Error(), "expected 0102, computed 0a0b")
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}
