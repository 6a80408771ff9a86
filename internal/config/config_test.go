package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/signalbackup/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.True(t, c.VerifyMAC)
	assert.Equal(t, output.TypeRaw, c.OutputType)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10, c.QueueSize)
	assert.Equal(t, 250*time.Millisecond, c.ProgressInterval)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"input_file":  "from-json.backup",
		"output_type": "csv",
		"queue_size":  4,
		"log_level":   "debug",
	})

	cfg, err := LoadConfig([]string{"-c", path, "-q", "7", "/data/signal-2024.backup"})
	require.NoError(t, err)

	assert.Equal(t, "/data/signal-2024.backup", cfg.InputFile)
	assert.Equal(t, "signal-2024", cfg.OutputPath)
	assert.Equal(t, output.TypeCSV, cfg.OutputType)
	assert.Equal(t, 7, cfg.QueueSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.VerifyMAC)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(nil)
	require.ErrorContains(t, err, "no backup file given")

	_, err = LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json"), "x.backup"})
	require.ErrorContains(t, err, "read config")
}

func TestDeriveOutputPath(t *testing.T) {
	tests := []struct {
		input, output, want string
	}{
		{"signal.backup", "", "signal"},
		{"/a/b/signal-2024-01-01-10-00-00.backup", "", "signal-2024-01-01-10-00-00"},
		{"noext", "", "noext.out"},
		{"signal.backup", "explicit", "explicit"},
		{"", "", ""},
	}
	for _, tc := range tests {
		c := Config{InputFile: tc.input, OutputPath: tc.output}
		c.deriveOutputPath()
		assert.Equal(t, tc.want, c.OutputPath, tc.input)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.LoadDefaults()
		c.InputFile = "in.backup"
		c.OutputPath = "out"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"none needs no output", func(c *Config) { c.OutputType = output.TypeNone; c.OutputPath = "" }, ""},
		{"missing input", func(c *Config) { c.InputFile = "" }, "no backup file"},
		{"missing output", func(c *Config) { c.OutputPath = "" }, "no output path"},
		{"bad type", func(c *Config) { c.OutputType = "xml" }, "unknown output type"},
		{"bad queue", func(c *Config) { c.QueueSize = 0 }, "queue size"},
		{"bad interval", func(c *Config) { c.ProgressInterval = 0 }, "progress interval"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"two password sources", func(c *Config) { c.Password = "1"; c.PasswordFile = "f" }, "only one of password"},
		{"password and command", func(c *Config) { c.Password = "1"; c.PasswordCommand = "pass show signal" }, "only one of password"},
		{"file and command", func(c *Config) { c.PasswordFile = "f"; c.PasswordCommand = "cat f" }, "only one of password"},
		{"command alone", func(c *Config) { c.PasswordCommand = "pass show signal" }, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
