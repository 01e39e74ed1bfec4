// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

// Manifest is the declarative document describing every setup script,
// its phase, its dependencies, and the path constants the rest of the
// system relies on.
//
// The document is generated offline by a separate generator that scans
// setup-script headers; the engine only ever reads it. Within one
// cache window it is immutable from the engine's point of view.
type Manifest struct {
	// Version is the manifest schema version.
	Version string `yaml:"version" validate:"required"`

	// Generated records when the generator produced this document.
	Generated string `yaml:"generated,omitempty"`

	// Scripts maps script identifiers to their declarations.
	Scripts map[string]ScriptEntry `yaml:"scripts" validate:"dive"`

	// Phases are ordered groups of script identifiers.
	Phases map[int][]string `yaml:"phases,omitempty"`

	// Profiles are named preset bundles of script identifiers.
	Profiles map[string][]string `yaml:"profiles,omitempty"`

	// Paths are named filesystem locations (relative to the project
	// root unless absolute).
	Paths map[string]string `yaml:"paths,omitempty"`
}

// ScriptEntry declares one setup script.
//
// Every field except File is optional; queries over missing fields
// return zero values, never errors, because the manifest may describe
// scripts that are not implemented yet.
type ScriptEntry struct {
	// File is the script's path: absolute, project-relative, or a
	// bare filename looked up in the canonical scripts directory.
	File string `yaml:"file,omitempty"`

	// Phase is the setup phase this script belongs to.
	Phase int `yaml:"phase,omitempty"`

	// Category groups scripts in listings (e.g. "vcs", "container").
	Category string `yaml:"category,omitempty"`

	// Priority orders scripts within a phase (lower runs first).
	Priority int `yaml:"priority,omitempty"`

	// Description is the one-line summary shown in listings.
	Description string `yaml:"description,omitempty"`

	// LongDescription is the full help text.
	LongDescription string `yaml:"long_description,omitempty"`

	// Safe marks scripts that never destroy existing files.
	Safe bool `yaml:"safe,omitempty"`

	// Idempotent marks scripts that can run repeatedly.
	Idempotent bool `yaml:"idempotent,omitempty"`

	// Creates lists paths the script produces.
	Creates []string `yaml:"creates,omitempty"`

	// Depends lists script identifiers that must complete first.
	Depends []string `yaml:"depends,omitempty"`

	// Requires declares external tool requirements.
	Requires Requires `yaml:"requires,omitempty"`

	// Detects lists artifacts whose presence suggests the script
	// already ran (informational; completion markers are the source
	// of truth).
	Detects []string `yaml:"detects,omitempty"`

	// Tags are free-form labels for filtering.
	Tags []string `yaml:"tags,omitempty"`

	// ConfigSection names the config block this script reads.
	ConfigSection string `yaml:"config_section,omitempty"`

	// EnvVars lists environment variables the script references.
	EnvVars []string `yaml:"env_vars,omitempty"`

	// Interactive marks scripts that prompt the user.
	Interactive bool `yaml:"interactive,omitempty"`

	// Platforms restricts the script to listed GOOS values
	// (empty means all platforms).
	Platforms []string `yaml:"platforms,omitempty"`

	// Conflicts lists script identifiers that must not run alongside.
	Conflicts []string `yaml:"conflicts,omitempty"`

	// Rollback is the command undoing the script's effects.
	Rollback string `yaml:"rollback,omitempty"`

	// Verify is the command confirming the script's effects.
	Verify string `yaml:"verify,omitempty"`

	// DocURL links to external documentation.
	DocURL string `yaml:"doc_url,omitempty"`
}

// Requires declares a script's external tool requirements.
type Requires struct {
	// Tools are required; each may carry a version constraint.
	Tools []ToolRequirement `yaml:"tools,omitempty" validate:"dive"`

	// Optional tools are checked but their absence never fails
	// resolution.
	Optional []string `yaml:"optional,omitempty"`
}

// ToolRequirement names one required executable and its version bound.
type ToolRequirement struct {
	// Name is the executable name searched on PATH.
	Name string `yaml:"name" validate:"required"`

	// MinVersion is the version constraint value (empty means
	// presence-only).
	MinVersion string `yaml:"min_version,omitempty"`

	// Mode is the comparison mode: "min" (default), "max", or "exact".
	Mode string `yaml:"mode,omitempty"`
}
