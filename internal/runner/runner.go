// Package runner provides an abstraction for running external commands.
//
// The installer performs privileged operations (venv creation, package
// installation) by shelling out; routing them through a Runner keeps the
// sequencing logic testable without root or a live toolchain.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner runs a command to completion, inheriting the given I/O streams.
// A non-nil error means the command could not be started or exited
// non-zero.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// ExecRunner is the default Runner backed by os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive the command's output. Nil values
	// default to the process's own streams so failures surface the
	// underlying tool's diagnostics directly.
	Stdout io.Writer
	Stderr io.Writer
}

// Default returns an ExecRunner wired to the current process's streams.
func Default() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner using os/exec.
func (r *ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stream(r.Stdout, os.Stdout)
	cmd.Stderr = stream(r.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", strings.Join(argv, " "), err)
	}
	return nil
}

func stream(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
