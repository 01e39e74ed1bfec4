// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runRollback bool // Undo a completed script instead of running it
	runSkipDeps bool // Skip dependency resolution (debugging escape hatch)
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// runCmd executes one setup script end to end: resolve dependencies,
// offer installation for missing tools, execute the script file, and
// record completion.
//
// # Examples
//
//	quickstrap run docker
//	quickstrap run docker --rollback
var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run one setup script with dependency resolution",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	runCmd.Flags().BoolVar(&runRollback, "rollback", false,
		"remove the completion marker and run the script's rollback command")
	runCmd.Flags().BoolVar(&runSkipDeps, "skip-deps", false,
		"skip dependency resolution (use with care)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runScript(cmd *cobra.Command, args []string) error {
	reg, err := engine.registry()
	if err != nil {
		return err
	}
	id := args[0]
	entry, ok := reg.Script(id)
	if !ok {
		return fmt.Errorf("unknown script %q", id)
	}

	if runRollback {
		return rollbackScript(cmd, id, entry)
	}

	if !runSkipDeps {
		report := engine.resolver.ResolveScript(cmd.Context(), reg, id)
		renderReport(report)
		if !report.Satisfied() {
			ok, err := engine.orchestrator().Offer(cmd.Context(), report)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("dependencies for %q unsatisfied", id)
			}
			report = engine.resolver.ResolveScript(cmd.Context(), reg, id)
			if !report.Satisfied() {
				renderReport(report)
				return fmt.Errorf("dependencies for %q unsatisfied", id)
			}
		}
	}

	path, found := reg.ResolveScriptFile(id)
	if !found {
		return fmt.Errorf("script file not found: %s", path)
	}

	ux.Title(fmt.Sprintf("Running %s", id))
	result, err := engine.runner.Run(cmd.Context(), path)
	if result.Stdout != "" {
		fmt.Print(result.Stdout)
	}
	if err != nil {
		return fmt.Errorf("script %q failed: %w", id, err)
	}

	// The marker is written only after a clean exit; a failed script
	// stays incomplete and will be re-run.
	if err := engine.markers.Create(id); err != nil {
		return fmt.Errorf("recording completion of %q: %w", id, err)
	}
	ux.Success(fmt.Sprintf("%s completed", id))
	return nil
}

// rollbackScript removes the completion marker and, when the manifest
// declares a rollback command, runs it.
func rollbackScript(cmd *cobra.Command, id string, entry manifest.ScriptEntry) error {
	if err := engine.markers.Remove(id); err != nil {
		return fmt.Errorf("removing completion marker for %q: %w", id, err)
	}

	// A whitespace-only rollback value splits to nothing; treat it the
	// same as no rollback declared.
	fields := strings.Fields(entry.Rollback)
	if len(fields) == 0 {
		ux.Muted(fmt.Sprintf("%s declares no rollback command; marker removed", id))
		return nil
	}

	result, err := engine.runner.Run(cmd.Context(), fields[0], fields[1:]...)
	if result.Stdout != "" {
		fmt.Print(result.Stdout)
	}
	if err != nil {
		return fmt.Errorf("rollback of %q failed: %w", id, err)
	}
	ux.Success(fmt.Sprintf("%s rolled back", id))
	return nil
}
