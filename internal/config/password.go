package config

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/cryptox"
	"golang.org/x/term"
)

// Prompt asks the user for the passphrase.
type Prompt func() (string, error)

// ErrNoPassword is returned when no source yields a passphrase.
var ErrNoPassword = errors.New("no passphrase given: use -p, -f, -password-command or run in a terminal")

// ResolvePassword returns the normalised passphrase from, in order, the -p
// value, the first line of the password file, the first line printed by the
// password command, or prompt. prompt may be nil.
func (c *Config) ResolvePassword(ctx context.Context, prompt Prompt) ([]byte, error) {
	raw := c.Password
	switch {
	case raw != "":
	case c.PasswordFile != "":
		line, err := passwordFromFile(c.PasswordFile)
		if err != nil {
			return nil, err
		}
		raw = line
	case c.PasswordCommand != "":
		line, err := passwordFromCommand(ctx, c.PasswordCommand)
		if err != nil {
			return nil, err
		}
		raw = line
	case prompt != nil:
		line, err := prompt()
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		raw = line
	default:
		return nil, ErrNoPassword
	}
	return cryptox.NormalizePassword(raw)
}

func passwordFromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open password file: %w", err)
	}
	defer f.Close()

	line, err := firstLine(f)
	if err != nil {
		return "", fmt.Errorf("password file %s: %w", path, err)
	}
	return line, nil
}

// passwordFromCommand runs command through sh -c and reads its stdout.
func passwordFromCommand(ctx context.Context, command string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("password command: %w: %s", err, msg)
		}
		return "", fmt.Errorf("password command: %w", err)
	}

	line, err := firstLine(bytes.NewReader(out))
	if err != nil {
		return "", fmt.Errorf("password command: %w", err)
	}
	return line, nil
}

func firstLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("empty output")
}

// TerminalPrompt reads the passphrase without echo when in is a terminal.
// It returns nil otherwise, so ResolvePassword reports ErrNoPassword.
func TerminalPrompt(in *os.File, out io.Writer) Prompt {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		fmt.Fprint(out, "Backup passphrase: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
