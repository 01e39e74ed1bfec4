// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/version"
)

// VersionFailure records a tool that is present but does not meet its
// declared constraint.
type VersionFailure struct {
	// Tool is the executable name.
	Tool string

	// Required is the declared constraint value.
	Required string

	// Observed is the version reported by the tool, or the raw value
	// when it could not be parsed.
	Observed string

	// Mode is the comparison mode the constraint used.
	Mode string
}

// Report is the structured result of one resolution attempt.
//
// Ephemeral: created per validation call, consumed immediately by the
// caller, never persisted. Failure classes are kept separate so the
// caller can apply different policy per class (auto-install for
// missing tools, abort-with-guidance for missing scripts).
type Report struct {
	// ID correlates log lines for one resolution attempt.
	ID string

	// MissingTools are required tools not found on PATH, in
	// declaration order.
	MissingTools []string

	// VersionFailures are required tools present but failing their
	// constraint, in declaration order.
	VersionFailures []VersionFailure

	// MissingScripts are prior scripts without completion markers, in
	// declared order.
	MissingScripts []string

	// SatisfiedTools are required tools that passed, in declaration
	// order.
	SatisfiedTools []string

	// SatisfiedScripts are prior scripts with completion markers, in
	// declared order.
	SatisfiedScripts []string

	// Notes are informational lines: optional-tool absences, unknown
	// versions, warnings. Never fatal.
	Notes []string

	// Duration is the wall-clock time resolution took.
	Duration time.Duration
}

func newReport() *Report {
	return &Report{ID: uuid.NewString()}
}

// Satisfied reports whether every required tool and prior script
// passed. Notes do not affect the outcome.
func (r *Report) Satisfied() bool {
	return len(r.MissingTools) == 0 &&
		len(r.VersionFailures) == 0 &&
		len(r.MissingScripts) == 0
}

// String renders the report as plain text, one finding per line.
// Styling is the CLI's concern, not the report's.
func (r *Report) String() string {
	if r.Satisfied() && len(r.Notes) == 0 {
		return "all dependencies satisfied"
	}
	var b strings.Builder
	for _, tool := range r.MissingTools {
		fmt.Fprintf(&b, "missing tool: %s\n", tool)
	}
	for _, vf := range r.VersionFailures {
		fmt.Fprintf(&b, "version unmet: %s is %s, constraint is %s %s\n",
			vf.Tool, vf.Observed, modeLabel(vf.Mode), vf.Required)
	}
	for _, id := range r.MissingScripts {
		fmt.Fprintf(&b, "prerequisite script not completed: %s\n", id)
	}
	for _, note := range r.Notes {
		fmt.Fprintf(&b, "note: %s\n", note)
	}
	return strings.TrimRight(b.String(), "\n")
}

// addToolResult folds one required-tool check into the report.
func (r *Report) addToolResult(req manifest.ToolRequirement, res toolResult) {
	if !res.present {
		r.MissingTools = append(r.MissingTools, req.Name)
		return
	}
	if req.MinVersion == "" {
		r.SatisfiedTools = append(r.SatisfiedTools, req.Name)
		return
	}
	if res.unknown {
		// No version info is not a failure; record it so the user
		// knows the constraint went unverified.
		r.SatisfiedTools = append(r.SatisfiedTools, req.Name)
		r.Notes = append(r.Notes, fmt.Sprintf(
			"%s: version unknown, constraint %s %s not verified",
			req.Name, modeLabel(req.Mode), req.MinVersion))
		return
	}

	mode, err := version.ParseMode(req.Mode)
	if err != nil {
		// Unknown mode fails closed.
		r.VersionFailures = append(r.VersionFailures, VersionFailure{
			Tool:     req.Name,
			Required: req.MinVersion,
			Observed: res.observed,
			Mode:     req.Mode,
		})
		r.Notes = append(r.Notes, fmt.Sprintf(
			"%s: unknown comparison mode %q, treating constraint as unmet",
			req.Name, req.Mode))
		return
	}
	ok, _ := version.Satisfies(res.observed, req.MinVersion, mode)
	if !ok {
		r.VersionFailures = append(r.VersionFailures, VersionFailure{
			Tool:     req.Name,
			Required: req.MinVersion,
			Observed: res.observed,
			Mode:     string(mode),
		})
		return
	}
	r.SatisfiedTools = append(r.SatisfiedTools, req.Name)
}

// addOptionalResult folds one optional-tool check into the report.
// Optional outcomes only ever produce notes.
func (r *Report) addOptionalResult(req manifest.ToolRequirement, res toolResult) {
	if !res.present {
		r.Notes = append(r.Notes, fmt.Sprintf(
			"optional tool %s not found", req.Name))
		return
	}
	if req.MinVersion == "" || res.unknown {
		return
	}
	mode, err := version.ParseMode(req.Mode)
	if err != nil {
		r.Notes = append(r.Notes, fmt.Sprintf(
			"warning: optional tool %s has unknown comparison mode %q",
			req.Name, req.Mode))
		return
	}
	// Present-but-outdated is promoted to a warning, one step above
	// the plain absence note, because the user likely believes the
	// tool is usable.
	if ok, _ := version.Satisfies(res.observed, req.MinVersion, mode); !ok {
		r.Notes = append(r.Notes, fmt.Sprintf(
			"warning: optional tool %s is %s, constraint is %s %s",
			req.Name, res.observed, modeLabel(string(mode)), req.MinVersion))
	}
}

func modeLabel(mode string) string {
	switch mode {
	case "", "min":
		return ">="
	case "max":
		return "<="
	case "exact":
		return "=="
	default:
		return mode
	}
}
