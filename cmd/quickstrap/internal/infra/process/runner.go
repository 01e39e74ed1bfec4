// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package process provides bounded subprocess execution for quickstrap.
//
// Every external command the engine runs (version probes, package
// manager invocations) goes through a Runner so that timeouts, output
// capture, and error wrapping are uniform and mockable in tests.
package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
)

// =============================================================================
// Error Sentinel Values
// =============================================================================

// ErrTimedOut is returned when a command exceeds its context deadline.
// The underlying process is forcibly terminated before this is returned.
var ErrTimedOut = errors.New("command timed out")

// ErrNotFound is returned when the executable does not exist on the
// search path.
var ErrNotFound = errors.New("executable not found")

// =============================================================================
// Types
// =============================================================================

// Result captures the outcome of one subprocess invocation.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// ExitCode is the process exit code (-1 if the process did not run).
	ExitCode int

	// Duration is the wall-clock time the command took.
	Duration time.Duration
}

// Runner executes external commands with bounded lifetimes.
//
// # Description
//
// Abstracts subprocess execution so the resolver and installer can be
// tested deterministically with fakes. The context passed to Run
// carries the timeout; when the deadline expires the process is killed
// and ErrTimedOut is returned.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the resolver runs
// one check per declared tool in parallel.
type Runner interface {
	// Run executes name with args and captures its output.
	//
	// # Inputs
	//
	//   - ctx: carries the per-invocation deadline
	//   - name: executable name or path
	//   - args: command arguments
	//
	// # Outputs
	//
	//   - Result: captured output and exit code (valid even on error)
	//   - error: ErrTimedOut, ErrNotFound, or *util.CommandError
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// LookPath reports whether an executable by that name exists on
	// the search path, returning its resolved location.
	LookPath(name string) (string, bool)
}

// =============================================================================
// Implementation
// =============================================================================

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, enforcing the context deadline.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	// Deadline expiry kills the process; report it distinctly so
	// callers can map it to "version unknown" rather than failure.
	if ctx.Err() != nil {
		return res, ErrTimedOut
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return res, ErrNotFound
	}

	command := name
	if len(args) > 0 {
		command = name + " " + strings.Join(args, " ")
	}
	return res, util.NewCommandError(command, res.ExitCode, res.Stderr, err)
}

// LookPath resolves the executable on the search path.
func (r *ExecRunner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
