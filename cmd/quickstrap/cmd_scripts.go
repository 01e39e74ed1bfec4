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
// COMMAND FLAGS
// =============================================================================

var (
	scriptsPhase   int    // Filter to one phase
	scriptsProfile string // Filter to one profile
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Query the manifest's script catalog",
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scripts, optionally filtered by phase or profile",
	RunE:  runScriptsList,
}

func init() {
	scriptsListCmd.Flags().IntVar(&scriptsPhase, "phase", -1, "only scripts in this phase")
	scriptsListCmd.Flags().StringVar(&scriptsProfile, "profile", "", "only scripts in this profile")

	scriptsCmd.AddCommand(scriptsListCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runScriptsList(cmd *cobra.Command, args []string) error {
	reg, err := engine.registry()
	if err != nil {
		return err
	}

	var ids []string
	switch {
	case scriptsPhase >= 0:
		ids = reg.ScriptsInPhase(scriptsPhase)
	case scriptsProfile != "":
		ids = reg.ProfileScripts(scriptsProfile)
		if ids == nil {
			return fmt.Errorf("unknown profile %q", scriptsProfile)
		}
	default:
		ids = reg.AllScripts()
	}

	if len(ids) == 0 {
		ux.Muted("no scripts")
		return nil
	}
	for _, id := range ids {
		entry, ok := reg.Script(id)
		if !ok {
			// Dangling phase/profile reference; still list it.
			ux.Warning(fmt.Sprintf("%s (not in manifest)", id))
			continue
		}
		line := id
		if entry.Description != "" {
			line += " - " + entry.Description
		}
		if engine.markers.Exists(id) {
			ux.Success(line)
		} else {
			ux.Info(line)
		}
	}
	return nil
}
