package util

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its stdout
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// LookPathFunc resolves a command name to an executable path
type LookPathFunc func(file string) (string, error)

// ExecRunner runs commands as child processes
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("command %q failed: %w: %s", name, err, msg)
		}

		return out, fmt.Errorf("command %q failed: %w", name, err)
	}

	return out, nil
}
