// Package metrics collects per-run counters and exports them in the
// Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signalbackup"

// Recorder implements pipeline.Observer. Each Recorder owns its registry,
// so several runs in one process do not collide.
type Recorder struct {
	reg *prometheus.Registry

	decoded      *prometheus.CounterVec
	written      *prometheus.CounterVec
	payloadBytes prometheus.Counter
	bytesRead    prometheus.Gauge
	duration     prometheus.Gauge
	success      prometheus.Gauge
	lastRun      prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Records decoded from the backup, by kind.",
		}, []string{"kind"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records handed to the output, by kind.",
		}, []string{"kind"}),
		payloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Attachment, avatar and sticker bytes decrypted.",
		}),
		bytesRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_bytes_read",
			Help:      "Bytes consumed from the backup file.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last run completed, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	r.reg.MustRegister(r.decoded, r.written, r.payloadBytes, r.bytesRead, r.duration, r.success, r.lastRun)
	return r
}

func (r *Recorder) Decoded(kind frame.Kind, payloadBytes int) {
	r.decoded.WithLabelValues(string(kind)).Inc()
	if payloadBytes > 0 {
		r.payloadBytes.Add(float64(payloadBytes))
	}
}

func (r *Recorder) Written(kind frame.Kind) {
	r.written.WithLabelValues(string(kind)).Inc()
}

// Finish records the outcome of a run.
func (r *Recorder) Finish(bytesRead int64, elapsed time.Duration, runErr error, now time.Time) {
	r.bytesRead.Set(float64(bytesRead))
	r.duration.Set(elapsed.Seconds())
	r.lastRun.Set(float64(now.Unix()))
	if runErr == nil {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}
