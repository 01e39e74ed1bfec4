// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClampCheckTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, DefaultCheckTimeout},
		{"negative uses default", -time.Second, DefaultCheckTimeout},
		{"below minimum raised", 100 * time.Millisecond, MinCheckTimeout},
		{"sane value kept", 30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampCheckTimeout(tt.in); got != tt.want {
				t.Errorf("ClampCheckTimeout(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampInstallTimeout(t *testing.T) {
	if got := ClampInstallTimeout(0); got != DefaultInstallTimeout {
		t.Errorf("ClampInstallTimeout(0) = %v", got)
	}
	if got := ClampInstallTimeout(time.Second); got != MinInstallTimeout {
		t.Errorf("ClampInstallTimeout(1s) = %v", got)
	}
}

func TestTerminalPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := &TerminalPrompter{In: strings.NewReader(tt.input), Out: &out}
			got, err := p.Confirm("Proceed?")
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Proceed?") {
				t.Errorf("question not written: %q", out.String())
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	wrapped := errors.New("exit status 1")
	err := NewCommandError("apt-get", 1, "  E: Unable to locate package\n", wrapped)

	if !strings.Contains(err.Error(), "apt-get") || !strings.Contains(err.Error(), "Unable to locate") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, wrapped) {
		t.Error("Unwrap should expose the wrapped error")
	}
	if err.Stderr != "E: Unable to locate package" {
		t.Errorf("Stderr not trimmed: %q", err.Stderr)
	}
}
