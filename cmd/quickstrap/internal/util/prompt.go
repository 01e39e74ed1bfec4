// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// =============================================================================
// Prompter Interface
// =============================================================================

// UserPrompter requests yes/no confirmations from the operator.
//
// # Description
//
// Abstracts interactive confirmation so components that need user
// consent (e.g. auto-installation) can be tested without a terminal
// and bypassed in unattended runs.
//
// # Thread Safety
//
// Implementations need not be safe for concurrent use; prompts are
// inherently serial.
type UserPrompter interface {
	// Confirm asks a yes/no question and returns the answer.
	//
	// Implementations should treat "y"/"yes" (case-insensitive) as
	// true and anything else as false.
	Confirm(question string) (bool, error)
}

// =============================================================================
// Implementations
// =============================================================================

// TerminalPrompter reads confirmations from an input stream,
// typically stdin.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter creates a prompter bound to stdin/stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stdout}
}

// Confirm asks a yes/no question and reads one line of input.
func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.Out, "%s [y/N]: ", question)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// AutoApprovePrompter answers yes to every question.
//
// Used in unattended/CI execution where interactive confirmation is
// impossible and the answer defaults to yes.
type AutoApprovePrompter struct{}

// Confirm always returns true.
func (AutoApprovePrompter) Confirm(string) (bool, error) { return true, nil }

// =============================================================================
// Environment Detection
// =============================================================================

// IsUnattended reports whether the process runs without an interactive
// terminal.
//
// True when stdin is not a TTY (pipes, CI runners) or when the CI
// environment variable is set, following common CI conventions.
func IsUnattended() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}
