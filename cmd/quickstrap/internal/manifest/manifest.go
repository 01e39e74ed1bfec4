// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package manifest loads the declarative script manifest and answers
typed queries over it.

# Problem Statement

Setup scripts declare their phase, dependencies, and tool requirements
in script headers. An external generator flattens those headers into a
single YAML document. The rest of quickstrap needs to ask questions
like "which scripts run in phase 2", "what does the docker script
require", and "where does this script live on disk" without every
caller re-parsing YAML and re-implementing path fallbacks.

# Solution

Two layers:

  - Parse/Validate: turn raw bytes into a Manifest, with structural
    validation and dangling-reference warnings.
  - Registry: typed read-only queries over a parsed Manifest plus the
    path roots needed to resolve script files.

Dangling references (a depends/phase/profile entry naming a script
that has no scripts key) are warnings, not failures: the manifest may
legitimately describe scripts that are not implemented yet.
*/
package manifest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Error Sentinel Values
// =============================================================================

// ErrUnparsable is returned when the manifest document is not valid
// YAML or fails structural validation. This is a configuration error:
// fatal, surfaced immediately, not retried.
var ErrUnparsable = errors.New("manifest unparsable")

// ErrUnknownScript is returned by registry lookups for an identifier
// with no scripts entry.
var ErrUnknownScript = errors.New("unknown script")

// validate is the shared validator instance. validator.Validate is
// safe for concurrent use and caches struct metadata.
var validate = validator.New()

// =============================================================================
// Parsing
// =============================================================================

// Parse decodes and structurally validates a manifest document.
//
// # Inputs
//
//   - data: raw YAML bytes
//
// # Outputs
//
//   - *Manifest: the decoded document
//   - error: ErrUnparsable (wrapped with detail) on bad input
//
// # Limitations
//
//   - Dangling references are NOT checked here; call Validate on the
//     result to collect them as warnings.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if m.Scripts == nil {
		m.Scripts = map[string]ScriptEntry{}
	}
	return &m, nil
}

// Validate collects dangling-reference warnings.
//
// Every script identifier referenced in depends, phases, or profiles
// should exist as a scripts key. Violations are warnings, not hard
// failures, because the manifest may describe not-yet-implemented
// scripts. The returned slice is sorted for reproducible output.
func (m *Manifest) Validate() []string {
	var warnings []string

	for id, entry := range m.Scripts {
		for _, dep := range entry.Depends {
			if _, ok := m.Scripts[dep]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("script %q depends on unknown script %q", id, dep))
			}
		}
		for _, conflict := range entry.Conflicts {
			if _, ok := m.Scripts[conflict]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("script %q conflicts with unknown script %q", id, conflict))
			}
		}
	}

	for phase, ids := range m.Phases {
		for _, id := range ids {
			if _, ok := m.Scripts[id]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("phase %d lists unknown script %q", phase, id))
			}
		}
	}

	for name, ids := range m.Profiles {
		for _, id := range ids {
			if _, ok := m.Scripts[id]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("profile %q lists unknown script %q", name, id))
			}
		}
	}

	sort.Strings(warnings)
	return warnings
}
