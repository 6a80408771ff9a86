// Package config loads runtime configuration for the signalbackup CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-i string     backup file (a trailing positional argument works too)
//	-o string     output path, defaults to the backup file name without extension
//	-p string     backup passphrase
//	-f string     file holding the passphrase on its first line
//	-password-command string
//	              shell command (sh -c) printing the passphrase on its first line
//	-t string     output type: raw, csv or none
//	-l string     log level: debug, info, warn, error
//	-q int        records buffered between decoding and writing
//	-m string     write run metrics to this file
//	-no-verify-mac  skip MAC verification
//	-force        overwrite existing output
//	-json-log     log as JSON
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "250ms" or integer nanoseconds:
//
//	{
//	  "input_file": "signal-2024-01-01.backup",
//	  "output_path": "out",
//	  "password_file": "/run/secrets/signal",
//	  "output_type": "raw",
//	  "verify_mac": true,
//	  "log_level": "info",
//	  "queue_size": 10,
//	  "progress_interval": "250ms"
//	}
//
// At most one of -p, -f and -password-command may be given. The passphrase
// itself is resolved separately (see (*Config).ResolvePassword)
// so it is never stored in the JSON file by accident.
package config
