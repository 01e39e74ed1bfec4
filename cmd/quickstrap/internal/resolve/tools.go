// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"context"
	"regexp"
	"strings"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/infra/process"
)

// versionProbe describes how to ask one tool for its version.
type versionProbe struct {
	args []string
}

// probes is the per-tool dispatch table. Tools outside this table can
// still be checked for presence; their versions read as unknown.
//
// Keep invocations local and fast where the tool allows it: docker and
// podman use --format so the client does not contact the daemon, and
// kubectl uses --client so it does not reach the cluster.
var probes = map[string]versionProbe{
	"git":       {args: []string{"--version"}},
	"docker":    {args: []string{"version", "--format", "{{.Client.Version}}"}},
	"podman":    {args: []string{"version", "--format", "{{.Client.Version}}"}},
	"node":      {args: []string{"--version"}},
	"npm":       {args: []string{"--version"}},
	"python3":   {args: []string{"--version"}},
	"go":        {args: []string{"version"}},
	"kubectl":   {args: []string{"version", "--client", "--output=yaml"}},
	"terraform": {args: []string{"version"}},
	"helm":      {args: []string{"version", "--short"}},
	"rustc":     {args: []string{"--version"}},
}

// versionPattern matches the first dotted-numeric run in probe output,
// e.g. "2.39.5" out of "git version 2.39.5 (Apple Git-154)".
var versionPattern = regexp.MustCompile(`\d+(\.\d+)*`)

// probeVersion runs a tool's version command and extracts the numeric
// version from its output.
//
// # Outputs
//
//   - string: the extracted version
//   - bool: false when the tool has no probe rule, the command failed
//     or timed out, or the output had no recognizable version
func probeVersion(ctx context.Context, runner process.Runner, tool string) (string, bool) {
	probe, ok := probes[tool]
	if !ok {
		return "", false
	}

	result, err := runner.Run(ctx, tool, probe.args...)
	if err != nil {
		return "", false
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		out = strings.TrimSpace(result.Stderr) // python3 prints to stderr on some builds
	}
	v := versionPattern.FindString(out)
	if v == "" {
		return "", false
	}
	return v, true
}
