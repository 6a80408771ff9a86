// Package pipeline decodes a backup into a sink.
//
// One goroutine owns the stream reader and pushes records into a bounded
// channel; another drains it into the sink in the same order. A full
// channel blocks the decoder, so memory stays bounded however large the
// payloads are. The first error ends the run: a decode error is returned
// as is, and a sink error stops the decoder without a second report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/frame"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
	"github.com/dmitrijs2005/signalbackup/internal/output"
	"github.com/dmitrijs2005/signalbackup/internal/stream"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQueueSize        = 10
	DefaultProgressInterval = 250 * time.Millisecond
)

type Config struct {
	Password  []byte
	VerifyMAC bool

	// QueueSize is the capacity of the channel between the goroutines.
	QueueSize int

	// ProgressInterval is how often Reporter is called.
	ProgressInterval time.Duration

	Logger   logging.Logger
	Reporter Reporter
	Observer Observer
}

// Snapshot is a progress view. It is never used for control flow.
type Snapshot struct {
	RecordsRead    uint64
	BytesRead      int64
	TotalBytes     int64
	RecordsWritten uint64
	Done           bool
}

// Reporter receives periodic snapshots and a final one with Done set.
type Reporter interface {
	Report(ctx context.Context, s Snapshot)
}

// Observer is notified per record, for metrics.
type Observer interface {
	Decoded(kind frame.Kind, payloadBytes int)
	Written(kind frame.Kind)
}

type nopObserver struct{}

func (nopObserver) Decoded(frame.Kind, int) {}
func (nopObserver) Written(frame.Kind)      {}

// Pipeline runs one backup into one sink. It is single use.
type Pipeline struct {
	cfg  Config
	sink output.Sink

	reader atomic.Pointer[stream.Reader]
	state  atomic.Int32
}

func New(sink output.Sink, cfg Config) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Pipeline{cfg: cfg, sink: sink}
}

// Run decodes src into the sink and finishes the sink on success. size is
// the input length used for bounds checks and progress, or 0 if unknown.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, size int64) (err error) {
	log := p.cfg.Logger
	start := time.Now()

	stopReporter := p.startReporter(ctx)
	defer func() {
		if err != nil {
			p.setState(StateErrored)
		}
		stopReporter()
	}()

	p.setState(StateStart)
	r, err := stream.Open(ctx, src, size, p.cfg.Password, stream.Options{
		VerifyMAC: p.cfg.VerifyMAC,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	p.reader.Store(r)
	p.setState(StateHeaderRead)

	queue := make(chan frame.Record, p.cfg.QueueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		return p.decode(gctx, ctx, r, queue)
	})
	g.Go(func() error {
		return p.write(gctx, queue)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := p.sink.Finish(ctx); err != nil {
		return fmt.Errorf("finish output: %w", err)
	}
	p.setState(StateDrained)

	s := p.Progress()
	log.Info(ctx, "backup decoded",
		"records_read", s.RecordsRead,
		"records_written", s.RecordsWritten,
		"bytes_read", s.BytesRead,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// decode pulls records until End. A cancelled group context with a live
// parent means the writer failed and has already reported.
func (p *Pipeline) decode(ctx, parent context.Context, r *stream.Reader, queue chan<- frame.Record) error {
	log := p.cfg.Logger
	p.setState(StateStreaming)

	for {
		rec, err := r.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && parent.Err() == nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode: %w", err)
		}

		payload := 0
		if pr, ok := rec.(frame.PayloadRecord); ok {
			payload = int(pr.PayloadLength())
		}
		p.cfg.Observer.Decoded(rec.Kind(), payload)

		switch v := rec.(type) {
		case *frame.Version:
			log.Info(ctx, "database version", "version", v.Version)
			continue
		case *frame.End:
			log.Debug(ctx, "end of backup")
			return nil
		}

		select {
		case queue <- rec:
		case <-ctx.Done():
			if parent.Err() != nil {
				return parent.Err()
			}
			return nil
		}
	}
}

func (p *Pipeline) write(ctx context.Context, queue <-chan frame.Record) error {
	for rec := range queue {
		if ctx.Err() != nil {
			return nil
		}
		if err := output.Dispatch(ctx, p.sink, rec); err != nil {
			return fmt.Errorf("write %s: %w", rec.Kind(), err)
		}
		p.cfg.Observer.Written(rec.Kind())
	}
	return nil
}

// Progress may be called from any goroutine.
func (p *Pipeline) Progress() Snapshot {
	s := Snapshot{
		RecordsWritten: p.sink.WrittenCount(),
		Done:           p.State() == StateDrained || p.State() == StateErrored,
	}
	if r := p.reader.Load(); r != nil {
		c := r.Counters()
		s.RecordsRead, s.BytesRead, s.TotalBytes = c.Records, c.Bytes, c.Total
	}
	return s
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// startReporter calls the Reporter on a ticker until the returned func is
// called, which also delivers the final snapshot.
func (p *Pipeline) startReporter(ctx context.Context) func() {
	rep := p.cfg.Reporter
	if rep == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(p.cfg.ProgressInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				rep.Report(ctx, p.Progress())
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		s := p.Progress()
		s.Done = true
		rep.Report(ctx, s)
	}
}
