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
	"time"

	"github.com/spf13/cobra"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/manifest"
	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/resolve"
	"github.com/quickstrap/quickstrap/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	depsTools    []string // Ad hoc tool requirements, name or name@version
	depsScripts  []string // Ad hoc prior-script requirements
	depsOptional []string // Ad hoc optional tools, name or name@version
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check and remedy script dependencies",
}

// depsCheckCmd resolves a script's dependencies without running it.
//
// # Examples
//
//	quickstrap deps check docker
//	quickstrap deps check --tool git@2.30 --tool jq
//	quickstrap deps check --requires-script git --tool node@18
//	quickstrap deps check --tool git --optional-tool docker-compose
var depsCheckCmd = &cobra.Command{
	Use:   "check [script]",
	Short: "Resolve a script's dependencies and report the result",
	Long: `Resolves dependencies either for a manifest script (pass its
identifier) or for an ad hoc declaration built from --tool,
--requires-script, and --optional-tool flags. Tools accept an optional
minimum version as name@version.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDepsCheck,
}

// depsInstallCmd resolves and then offers auto-installation.
var depsInstallCmd = &cobra.Command{
	Use:   "install <script>",
	Short: "Resolve a script's dependencies and offer to install missing tools",
	Args:  cobra.ExactArgs(1),
	RunE:  runDepsInstall,
}

func init() {
	depsCheckCmd.Flags().StringArrayVar(&depsTools, "tool", nil,
		"required tool, optionally with version (name@1.2.3); repeatable")
	depsCheckCmd.Flags().StringArrayVar(&depsScripts, "requires-script", nil,
		"prior script that must have completed; repeatable")
	depsCheckCmd.Flags().StringArrayVar(&depsOptional, "optional-tool", nil,
		"optional tool to check without failing on absence (name or name@1.2.3); repeatable")

	depsCmd.AddCommand(depsCheckCmd)
	depsCmd.AddCommand(depsInstallCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runDepsCheck(cmd *cobra.Command, args []string) error {
	var report *resolve.Report

	if len(args) == 1 {
		reg, err := engine.registry()
		if err != nil {
			return err
		}
		id := args[0]
		if !reg.ScriptExists(id) {
			return fmt.Errorf("unknown script %q", id)
		}
		report = engine.resolver.ResolveScript(cmd.Context(), reg, id)
	} else {
		decl, err := adHocDeclaration()
		if err != nil {
			return err
		}
		report = engine.resolver.Resolve(cmd.Context(), decl)
	}

	renderReport(report)
	if !report.Satisfied() {
		return fmt.Errorf("dependencies unsatisfied")
	}
	return nil
}

func runDepsInstall(cmd *cobra.Command, args []string) error {
	reg, err := engine.registry()
	if err != nil {
		return err
	}
	id := args[0]
	if !reg.ScriptExists(id) {
		return fmt.Errorf("unknown script %q", id)
	}

	report := engine.resolver.ResolveScript(cmd.Context(), reg, id)
	renderReport(report)
	if report.Satisfied() {
		return nil
	}

	ok, err := engine.orchestrator().Offer(cmd.Context(), report)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dependencies remain unsatisfied")
	}

	// Presence may be fixed while versions or markers are not;
	// re-resolve for the definitive answer.
	report = engine.resolver.ResolveScript(cmd.Context(), reg, id)
	renderReport(report)
	if !report.Satisfied() {
		return fmt.Errorf("dependencies remain unsatisfied")
	}
	return nil
}

// adHocDeclaration builds a Declaration from the --tool,
// --requires-script, and --optional-tool flags.
func adHocDeclaration() (resolve.Declaration, error) {
	var decl resolve.Declaration
	if len(depsTools) == 0 && len(depsScripts) == 0 && len(depsOptional) == 0 {
		return decl, fmt.Errorf("pass a script identifier or at least one --tool/--requires-script/--optional-tool")
	}
	for _, spec := range depsTools {
		req, err := parseToolSpec("--tool", spec)
		if err != nil {
			return decl, err
		}
		decl.Tools = append(decl.Tools, req)
	}
	for _, spec := range depsOptional {
		req, err := parseToolSpec("--optional-tool", spec)
		if err != nil {
			return decl, err
		}
		decl.OptionalTools = append(decl.OptionalTools, req)
	}
	decl.RequiredScripts = append(decl.RequiredScripts, depsScripts...)
	return decl, nil
}

// parseToolSpec splits a name@version flag value.
func parseToolSpec(flag, spec string) (manifest.ToolRequirement, error) {
	name, ver, _ := strings.Cut(spec, "@")
	if name == "" {
		return manifest.ToolRequirement{}, fmt.Errorf("invalid %s value %q", flag, spec)
	}
	return manifest.ToolRequirement{Name: name, MinVersion: ver}, nil
}

// renderReport prints a resolution report with severity styling.
func renderReport(report *resolve.Report) {
	for _, tool := range report.SatisfiedTools {
		ux.Success(fmt.Sprintf("tool %s", tool))
	}
	for _, id := range report.SatisfiedScripts {
		ux.Success(fmt.Sprintf("script %s completed", id))
	}
	for _, tool := range report.MissingTools {
		ux.Error(fmt.Sprintf("missing tool: %s", tool))
	}
	for _, vf := range report.VersionFailures {
		ux.Error(fmt.Sprintf("version unmet: %s is %s, need %s (%s)",
			vf.Tool, vf.Observed, vf.Required, vf.Mode))
	}
	for _, id := range report.MissingScripts {
		ux.Error(fmt.Sprintf("prerequisite script not completed: %s", id))
	}
	for _, note := range report.Notes {
		if strings.HasPrefix(note, "warning:") {
			ux.Warning(strings.TrimSpace(strings.TrimPrefix(note, "warning:")))
		} else {
			ux.Info(note)
		}
	}
	if report.Satisfied() {
		ux.Muted(fmt.Sprintf("resolved in %s", report.Duration.Round(time.Millisecond)))
	}
}
