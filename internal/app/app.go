// Package app wires configuration, the output sink, metrics and progress
// reporting around one pipeline run.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/buildinfo"
	"github.com/dmitrijs2005/signalbackup/internal/common"
	"github.com/dmitrijs2005/signalbackup/internal/config"
	"github.com/dmitrijs2005/signalbackup/internal/logging"
	"github.com/dmitrijs2005/signalbackup/internal/metrics"
	"github.com/dmitrijs2005/signalbackup/internal/output"
	"github.com/dmitrijs2005/signalbackup/internal/pipeline"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const readBufferSize = 64 << 10

type App struct {
	config   *config.Config
	logger   logging.Logger
	reporter pipeline.Reporter
	prompt   config.Prompt
}

// NewApp builds the logger and progress reporter. Progress is drawn on
// stdout when it is a terminal and logged otherwise; logs go to stderr.
func NewApp(c *config.Config, stdout, stderr io.Writer) (*App, error) {
	base, err := logging.New(stderr, c.LogLevel, c.LogJSON)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger := base.With("run_id", uuid.NewString())

	tty := false
	if f, ok := stdout.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}

	return &App{
		config:   c,
		logger:   logger,
		reporter: NewTerminalReporter(stdout, tty, logger),
		prompt:   config.TerminalPrompt(os.Stdin, stderr),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run decodes the configured backup. Errors are logged and returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	err := app.run(ctx)
	if err != nil {
		app.logger.Error(ctx, "decode failed", "error", err)
	}
	return err
}

func (app *App) run(ctx context.Context) error {
	cfg := app.config

	app.logger.Info(ctx, "starting",
		"version", buildinfo.Version(),
		"input", cfg.InputFile,
		"output", cfg.OutputPath,
		"type", cfg.OutputType,
		"verify_mac", cfg.VerifyMAC,
	)

	password, err := cfg.ResolvePassword(ctx, app.prompt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	sink, err := output.New(cfg.OutputType, cfg.OutputPath, output.Options{
		Force:  cfg.Force,
		Logger: app.logger,
	})
	if err != nil {
		return fmt.Errorf("output init error: %w", err)
	}

	rec := metrics.New()
	p := pipeline.New(sink, pipeline.Config{
		Password:         password,
		VerifyMAC:        cfg.VerifyMAC,
		QueueSize:        cfg.QueueSize,
		ProgressInterval: cfg.ProgressInterval,
		Logger:           app.logger,
		Reporter:         app.reporter,
		Observer:         rec,
	})

	start := time.Now()
	runErr := p.Run(ctx, bufio.NewReaderSize(f, readBufferSize), fi.Size())
	rec.Finish(p.Progress().BytesRead, time.Since(start), runErr, time.Now())

	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			app.logger.Warn(ctx, "could not write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}
	return runErr
}
