package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/logging"
	"github.com/dmitrijs2005/signalbackup/internal/output"
	"github.com/dmitrijs2005/signalbackup/internal/pipeline"
)

// Config holds runtime settings for one decode run.
type Config struct {
	InputFile    string
	OutputPath   string
	Password     string
	PasswordFile string
	// PasswordCommand is run with sh -c; the first line of its output is
	// the passphrase.
	PasswordCommand string
	VerifyMAC       bool
	OutputType      output.Type
	Force           bool

	LogLevel string
	LogJSON  bool

	QueueSize        int
	ProgressInterval time.Duration
	MetricsFile      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.VerifyMAC = true
	c.OutputType = output.TypeRaw
	c.LogLevel = "info"
	c.QueueSize = pipeline.DefaultQueueSize
	c.ProgressInterval = pipeline.DefaultProgressInterval
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence
// over earlier ones. args are the arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.deriveOutputPath()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deriveOutputPath names the output after the input file when unset.
func (c *Config) deriveOutputPath() {
	if c.OutputPath != "" || c.InputFile == "" {
		return
	}
	base := filepath.Base(c.InputFile)
	c.OutputPath = strings.TrimSuffix(base, filepath.Ext(base))
	if c.OutputPath == base {
		c.OutputPath = base + ".out"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.InputFile == "" {
		errs = append(errs, errors.New("no backup file given"))
	}
	if _, err := output.ParseType(string(c.OutputType)); err != nil {
		errs = append(errs, err)
	}
	if c.OutputType != output.TypeNone && c.OutputPath == "" {
		errs = append(errs, errors.New("no output path given"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue size must be positive, got %d", c.QueueSize))
	}
	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("progress interval must be positive, got %s", c.ProgressInterval))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	sources := 0
	for _, v := range []string{c.Password, c.PasswordFile, c.PasswordCommand} {
		if v != "" {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, errors.New("give only one of password, password file or password command"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
