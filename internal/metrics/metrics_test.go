package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Decoded(frame.KindStatement, 0)
	r.Decoded(frame.KindStatement, 0)
	r.Decoded(frame.KindAttachment, 2048)
	r.Written(frame.KindStatement)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decoded.WithLabelValues("statement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decoded.WithLabelValues("attachment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.written.WithLabelValues("statement")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(r.payloadBytes))
}

func TestRecorder_Finish(t *testing.T) {
	r := New()
	now := time.Unix(1700000000, 0)

	r.Finish(4096, 1500*time.Millisecond, nil, now)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.success))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.duration))
	assert.Equal(t, 4096.0, testutil.ToFloat64(r.bytesRead))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastRun))

	r.Finish(10, time.Second, errors.New("mac"), now)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.success))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.Decoded(frame.KindSticker, 3)
	r.Finish(3, time.Second, nil, time.Now())

	path := filepath.Join(t.TempDir(), "signalbackup.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `signalbackup_records_decoded_total{kind="sticker"} 1`), out)
	assert.Contains(t, out, "signalbackup_run_success 1")
	assert.Contains(t, out, "signalbackup_payload_bytes_total 3")
}

func TestRecorders_AreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Written(frame.KindAvatar)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.written.WithLabelValues("avatar")))
	assert.NotSame(t, a.Registry(), b.Registry())
}
