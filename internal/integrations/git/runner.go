// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-16

// Package git runs git (and shell) command lines and classifies their failures.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultTimeout bounds a single command when the runner has no Timeout set.
const DefaultTimeout = 5 * time.Minute

// Runner executes a command line in a working directory and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, cmdline string) (string, error)
}

// ExecRunner runs command lines with os/exec. The line is tokenized with
// shell quoting rules but never passed to a shell.
type ExecRunner struct {
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration

	// Env is appended to the process environment.
	Env []string
}

// NewExecRunner returns an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Timeout: timeout,
		// Never block on a credential prompt.
		Env: []string{"GIT_TERMINAL_PROMPT=0"},
	}
}

// Run runs cmdline in dir. On non-zero exit it returns an *ExecError whose
// StdErr holds the command's standard error.
func (r *ExecRunner) Run(ctx context.Context, dir, cmdline string) (string, error) {
	args, err := shlex.Split(cmdline)
	if err != nil {
		return "", fmt.Errorf("failed to parse command line: %w", err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("empty command line")
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("command timed out after %s: %w", timeout, ctx.Err())
		}
		return "", &ExecError{
			Args:   args,
			Err:    err,
			StdOut: stdout.String(),
			StdErr: stderr.String(),
		}
	}
	return stdout.String(), nil
}

// ExecError is returned when a command exits unsuccessfully.
type ExecError struct {
	Args   []string
	Err    error
	StdOut string
	StdErr string
}

// Error returns the command's stderr; the arguments are omitted because
// they can embed credentials.
func (e *ExecError) Error() string {
	b := new(strings.Builder)
	if len(e.Args) > 0 {
		b.WriteString(e.Args[0])
		if len(e.Args) > 1 {
			b.WriteString(" ")
			b.WriteString(e.Args[1])
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if stderr := strings.TrimSpace(e.StdErr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Kind returns the classification of the failure.
func (e *ExecError) Kind() FailureKind {
	return Classify(e.StdErr)
}
