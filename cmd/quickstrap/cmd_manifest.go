// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickstrap/quickstrap/pkg/ux"
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect and manage the script manifest and its cache",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary of the loaded manifest",
	RunE:  runManifestShow,
}

var manifestInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the manifest cache so the next command re-reads the source",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.cache.Invalidate(); err != nil {
			return err
		}
		ux.Success("manifest cache invalidated")
		return nil
	},
}

var manifestValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the manifest for dangling script references",
	RunE:  runManifestValidate,
}

func init() {
	manifestCmd.AddCommand(manifestShowCmd)
	manifestCmd.AddCommand(manifestInvalidateCmd)
	manifestCmd.AddCommand(manifestValidateCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runManifestShow(cmd *cobra.Command, args []string) error {
	reg, err := engine.registry()
	if err != nil {
		return err
	}
	m := reg.Manifest()

	ux.Title(fmt.Sprintf("Manifest v%s", m.Version))
	if m.Generated != "" {
		ux.Muted(fmt.Sprintf("generated %s", m.Generated))
	}
	for _, phase := range reg.PhaseNumbers() {
		ux.Info(fmt.Sprintf("phase %d:", phase))
		for _, id := range reg.ScriptsInPhase(phase) {
			entry, _ := reg.Script(id)
			line := fmt.Sprintf("  %s", id)
			if entry.Description != "" {
				line += " - " + entry.Description
			}
			ux.Muted(line)
		}
	}
	if len(m.Profiles) > 0 {
		ux.Info(fmt.Sprintf("%d profiles, %d scripts total", len(m.Profiles), len(m.Scripts)))
	}
	return nil
}

func runManifestValidate(cmd *cobra.Command, args []string) error {
	reg, err := engine.registry()
	if err != nil {
		return err
	}

	warnings := reg.Manifest().Validate()
	if len(warnings) == 0 {
		ux.Success("manifest is consistent")
		return nil
	}
	for _, w := range warnings {
		ux.Warning(w)
	}
	// Dangling references are warnings, not failures.
	ux.Muted(fmt.Sprintf("%d warning(s)", len(warnings)))
	return nil
}
