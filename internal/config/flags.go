package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/flagx"
	"github.com/dmitrijs2005/signalbackup/internal/output"
)

// parseFlags populates Config fields from command-line flags. A trailing
// positional argument is taken as the backup file.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("signalbackup", flag.ContinueOnError)

	var (
		outputType  = string(cfg.OutputType)
		noVerifyMAC bool
		ignored     string
	)

	fs.StringVar(&cfg.InputFile, "i", cfg.InputFile, "backup file")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "output path")
	fs.StringVar(&cfg.Password, "p", cfg.Password, "backup passphrase (30 digits, spaces allowed)")
	fs.StringVar(&cfg.PasswordFile, "f", cfg.PasswordFile, "file with the passphrase on its first line")
	fs.StringVar(&cfg.PasswordCommand, "password-command", cfg.PasswordCommand, "shell command printing the passphrase")
	fs.StringVar(&outputType, "t", outputType, "output type: "+typeList())
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.IntVar(&cfg.QueueSize, "q", cfg.QueueSize, "records buffered between decoding and writing")
	fs.StringVar(&cfg.MetricsFile, "m", cfg.MetricsFile, "write run metrics to this file")
	fs.BoolVar(&noVerifyMAC, "no-verify-mac", !cfg.VerifyMAC, "skip MAC verification")
	fs.BoolVar(&cfg.Force, "force", cfg.Force, "overwrite existing output")
	fs.BoolVar(&cfg.LogJSON, "json-log", cfg.LogJSON, "log as JSON")
	// Consumed by parseJson.
	fs.StringVar(&ignored, "c", "", "path to JSON config file")
	fs.StringVar(&ignored, "config", "", "path to JSON config file")

	positional, err := flagx.ParseInterspersed(fs, args)
	if err != nil {
		return err
	}

	switch len(positional) {
	case 0:
	case 1:
		cfg.InputFile = positional[0]
	default:
		return fmt.Errorf("expected one backup file, got %d arguments: %v", len(positional), positional)
	}

	t, err := output.ParseType(outputType)
	if err != nil {
		return err
	}
	cfg.OutputType = t
	cfg.VerifyMAC = !noVerifyMAC
	return nil
}

func typeList() string {
	names := make([]string, len(output.Types))
	for i, t := range output.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
