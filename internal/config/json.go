package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/signalbackup/internal/flagx"
	"github.com/dmitrijs2005/signalbackup/internal/output"
	"github.com/dmitrijs2005/signalbackup/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from the zero value, so a partial file only
// overrides what it names.
type JsonConfig struct {
	InputFile        string          `json:"input_file"`
	OutputPath       string          `json:"output_path"`
	PasswordFile     string          `json:"password_file"`
	PasswordCommand  string          `json:"password_command"`
	OutputType       string          `json:"output_type"`
	VerifyMAC        *bool           `json:"verify_mac"`
	Force            *bool           `json:"force"`
	LogLevel         string          `json:"log_level"`
	LogJSON          *bool           `json:"log_json"`
	QueueSize        *int            `json:"queue_size"`
	ProgressInterval *timex.Duration `json:"progress_interval"`
	MetricsFile      string          `json:"metrics_file"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag nothing changes.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return nil
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	setString(&cfg.InputFile, jc.InputFile)
	setString(&cfg.OutputPath, jc.OutputPath)
	setString(&cfg.PasswordFile, jc.PasswordFile)
	setString(&cfg.PasswordCommand, jc.PasswordCommand)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsFile, jc.MetricsFile)
	if jc.OutputType != "" {
		cfg.OutputType = output.Type(jc.OutputType)
	}
	if jc.VerifyMAC != nil {
		cfg.VerifyMAC = *jc.VerifyMAC
	}
	if jc.Force != nil {
		cfg.Force = *jc.Force
	}
	if jc.LogJSON != nil {
		cfg.LogJSON = *jc.LogJSON
	}
	if jc.QueueSize != nil {
		cfg.QueueSize = *jc.QueueSize
	}
	if jc.ProgressInterval != nil {
		cfg.ProgressInterval = jc.ProgressInterval.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
