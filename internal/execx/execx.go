// SPDX-License-Identifier: MPL-2.0

// Package execx is the process invocation boundary: a narrow interface
// for running external commands with stream wiring and exit code
// propagation, so orchestration logic can be tested with a fake runner.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

type (
	// Spec describes one external command invocation. Env entries are
	// appended to the inherited environment; they never mutate the
	// parent process.
	Spec struct {
		Path   string
		Args   []string
		Dir    string
		Env    []string // "KEY=value" pairs appended to os.Environ()
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner executes external commands. The returned exit code is the
	// child's own status when it ran and terminated; a non-nil error is
	// reserved for failures to run it at all.
	Runner interface {
		Run(ctx context.Context, spec Spec) (int, error)
	}

	execRunner struct{}
)

// NewRunner returns the production Runner backed by os/exec.
func NewRunner() Runner { return execRunner{} }

// Run starts the command and waits for it, forwarding the wired streams.
// A child that exits non-zero yields (code, nil); a command that could
// not be started yields (1, error).
func (execRunner) Run(ctx context.Context, spec Spec) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("running %s: %w", spec.Path, err)
	}
	return 0, nil
}
