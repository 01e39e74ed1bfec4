// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package resolve checks whether a script's declared dependencies hold.

# Problem Statement

Setup scripts declare required tools (with version bounds), optional
tools, and prior scripts that must have completed. Checking these
naively is slow and fragile: some version-reporting commands reach out
to daemons or remote endpoints (docker, kubectl) and can take seconds
or hang outright. Checking sequentially means a ten-tool script pays
the sum of all check latencies; not bounding a check means one hung
daemon stalls the whole CLI.

# Solution

	Declaration ──► Resolver ──► Report
	                  │
	                  ├─ tool checks: one goroutine per tool,
	                  │  each bounded by CheckTimeout, joined
	                  │  via errgroup
	                  └─ marker checks: sequential, in declared
	                     order (diagnostic ordering matters)

Resolution never returns an error: every outcome, including timed-out
version probes, becomes a report entry. A version probe that times out
reads as "version unknown", which is not a failure. The report is
assembled in declaration order regardless of goroutine completion
order, so output is reproducible.
*/
package resolve

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/infra/process"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/marker"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
	"github.com/quickstrap/quickstrap/pkg/logging"
)

// =============================================================================
// Declaration
// =============================================================================

// Declaration is one resolution request. Built fresh per validation
// call, either explicitly by the caller (ad hoc mode) or expanded from
// a manifest script entry; never persisted.
type Declaration struct {
	// Tools are the required executables, each optionally carrying a
	// version constraint.
	Tools []manifest.ToolRequirement

	// RequiredScripts are prior-script identifiers that must have a
	// completion marker.
	RequiredScripts []string

	// OptionalTools are checked for presence, but their absence never
	// fails resolution. A version constraint on an optional tool is
	// checked when the tool is present; an unmet constraint is
	// reported as a warning note, not a failure.
	OptionalTools []manifest.ToolRequirement
}

// DeclarationForScript expands a script's manifest entry into a
// Declaration.
//
// An unknown script yields an empty declaration; the caller should
// check manifest.Registry.ScriptExists first when the distinction
// matters.
func DeclarationForScript(reg *manifest.Registry, id string) Declaration {
	var optional []manifest.ToolRequirement
	for _, name := range reg.OptionalTools(id) {
		optional = append(optional, manifest.ToolRequirement{Name: name})
	}
	return Declaration{
		Tools:           reg.ScriptRequiresTools(id),
		RequiredScripts: reg.ScriptDepends(id),
		OptionalTools:   optional,
	}
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver validates Declarations against the host system.
//
// Safe for concurrent use: all mutable state lives in per-call locals.
type Resolver struct {
	runner       process.Runner
	markers      *marker.Store
	checkTimeout time.Duration
	logger       *logging.Logger
}

// NewResolver creates a Resolver.
//
// # Inputs
//
//   - runner: subprocess executor for version probes
//   - markers: completion-marker store for prior-script checks
//   - checkTimeout: per-tool bound; clamped to a sane default when
//     zero or negative
//   - logger: structured logger (required)
func NewResolver(runner process.Runner, markers *marker.Store, checkTimeout time.Duration, logger *logging.Logger) *Resolver {
	return &Resolver{
		runner:       runner,
		markers:      markers,
		checkTimeout: util.ClampCheckTimeout(checkTimeout),
		logger:       logger,
	}
}

// Resolve validates a declaration and returns the full report.
//
// # Description
//
// Required tools are checked concurrently, one goroutine per tool,
// each bounded by the per-check timeout. Optional tools are checked
// the same way. Prior-script markers are checked sequentially in
// declared order after the tool fan-out joins. Results are aggregated
// in declaration order so the report is byte-for-byte reproducible
// across runs.
//
// Resolve never fails: every outcome is a report entry. The caller
// decides whether an unsatisfied report is fatal.
func (r *Resolver) Resolve(ctx context.Context, decl Declaration) *Report {
	report := newReport()
	start := time.Now()

	required := make([]toolResult, len(decl.Tools))
	optional := make([]toolResult, len(decl.OptionalTools))

	// One goroutine per declared tool. Fan-out is bounded by the
	// declaration size (typically under ten), so no worker pool.
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range decl.Tools {
		g.Go(func() error {
			required[i] = r.checkTool(gctx, req)
			return nil
		})
	}
	for i, req := range decl.OptionalTools {
		g.Go(func() error {
			optional[i] = r.checkTool(gctx, req)
			return nil
		})
	}
	_ = g.Wait() // check goroutines never return errors

	// Aggregate in declaration order, not completion order.
	for i, req := range decl.Tools {
		report.addToolResult(req, required[i])
	}
	for i, req := range decl.OptionalTools {
		report.addOptionalResult(req, optional[i])
	}

	// Marker checks stay sequential: the declared order is the
	// diagnostic order shown to the user.
	for _, id := range decl.RequiredScripts {
		if r.markers.Exists(id) {
			report.SatisfiedScripts = append(report.SatisfiedScripts, id)
		} else {
			report.MissingScripts = append(report.MissingScripts, id)
		}
	}

	report.Duration = time.Since(start)
	r.logger.Debug("resolution complete",
		"resolution_id", report.ID,
		"tools", len(decl.Tools),
		"satisfied", report.Satisfied(),
		"duration_ms", report.Duration.Milliseconds())
	return report
}

// ResolveScript expands a script's manifest entry and resolves it.
func (r *Resolver) ResolveScript(ctx context.Context, reg *manifest.Registry, id string) *Report {
	return r.Resolve(ctx, DeclarationForScript(reg, id))
}

// =============================================================================
// Per-Tool Check
// =============================================================================

// toolResult is the raw outcome of one tool check, before it is folded
// into the report.
type toolResult struct {
	present  bool
	observed string // extracted version, empty when unknown
	unknown  bool   // probe timed out or tool has no probe rule
}

// checkTool verifies one tool's presence and, when a probe rule
// exists, its reported version. Bounded by the per-check timeout;
// a timeout reads as "version unknown", never as a hang.
func (r *Resolver) checkTool(ctx context.Context, req manifest.ToolRequirement) toolResult {
	if _, ok := r.runner.LookPath(req.Name); !ok {
		return toolResult{present: false}
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	observed, known := probeVersion(probeCtx, r.runner, req.Name)
	if !known {
		r.logger.Debug("version unknown", "tool", req.Name)
		return toolResult{present: true, unknown: true}
	}
	return toolResult{present: true, observed: observed}
}
