// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"os"
	"path/filepath"
	"sort"
)

// =============================================================================
// Registry
// =============================================================================

// Roots carries the filesystem roots used to resolve script files.
type Roots struct {
	// ProjectRoot is the target project directory being bootstrapped.
	ProjectRoot string

	// InstallRoot is quickstrap's own installation directory.
	InstallRoot string

	// ScriptsDir is the canonical scripts directory for bare-filename
	// lookup. Relative values are resolved against InstallRoot.
	ScriptsDir string
}

// Registry provides typed read-only queries over a parsed Manifest.
//
// # Description
//
// All queries tolerate a manifest missing optional fields: they
// return empty values rather than erroring, because the manifest may
// describe scripts that exist only as plans. Registry never mutates
// the Manifest and is safe for concurrent use.
type Registry struct {
	m     *Manifest
	roots Roots
}

// NewRegistry wraps a parsed Manifest with the roots needed for
// script file resolution.
func NewRegistry(m *Manifest, roots Roots) *Registry {
	return &Registry{m: m, roots: roots}
}

// Manifest returns the underlying document.
func (r *Registry) Manifest() *Manifest {
	return r.m
}

// ScriptExists reports whether the identifier has a scripts entry.
func (r *Registry) ScriptExists(id string) bool {
	_, ok := r.m.Scripts[id]
	return ok
}

// Script returns the entry for an identifier.
func (r *Registry) Script(id string) (ScriptEntry, bool) {
	entry, ok := r.m.Scripts[id]
	return entry, ok
}

// AllScripts returns every script identifier, sorted.
func (r *Registry) AllScripts() []string {
	ids := make([]string, 0, len(r.m.Scripts))
	for id := range r.m.Scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ScriptsInPhase returns the identifiers grouped under a phase.
//
// Prefers the explicit phases table; falls back to scanning script
// entries' phase fields when the table has no entry. Results are
// ordered by priority then identifier so listings are reproducible.
func (r *Registry) ScriptsInPhase(phase int) []string {
	if ids, ok := r.m.Phases[phase]; ok {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}

	var out []string
	for id, entry := range r.m.Scripts {
		if entry.Phase == phase {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := r.m.Scripts[out[i]].Priority, r.m.Scripts[out[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}

// PhaseNumbers returns the declared phase numbers in ascending order.
func (r *Registry) PhaseNumbers() []int {
	seen := map[int]bool{}
	for n := range r.m.Phases {
		seen[n] = true
	}
	for _, entry := range r.m.Scripts {
		seen[entry.Phase] = true
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ScriptDepends returns the prior-script identifiers a script declares.
//
// Unknown identifiers return an empty slice, never an error.
func (r *Registry) ScriptDepends(id string) []string {
	entry, ok := r.m.Scripts[id]
	if !ok {
		return nil
	}
	out := make([]string, len(entry.Depends))
	copy(out, entry.Depends)
	return out
}

// ScriptRequiresTools returns a script's required tool declarations.
func (r *Registry) ScriptRequiresTools(id string) []ToolRequirement {
	entry, ok := r.m.Scripts[id]
	if !ok {
		return nil
	}
	out := make([]ToolRequirement, len(entry.Requires.Tools))
	copy(out, entry.Requires.Tools)
	return out
}

// OptionalTools returns a script's optional tool identifiers.
func (r *Registry) OptionalTools(id string) []string {
	entry, ok := r.m.Scripts[id]
	if !ok {
		return nil
	}
	out := make([]string, len(entry.Requires.Optional))
	copy(out, entry.Requires.Optional)
	return out
}

// ProfileScripts returns the script identifiers bundled by a profile.
func (r *Registry) ProfileScripts(name string) []string {
	ids, ok := r.m.Profiles[name]
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Path returns a named path constant from the manifest, resolved
// against the project root when relative.
func (r *Registry) Path(name string) (string, bool) {
	p, ok := r.m.Paths[name]
	if !ok {
		return "", false
	}
	if filepath.IsAbs(p) {
		return p, true
	}
	return filepath.Join(r.roots.ProjectRoot, p), true
}

// ResolveScriptFile locates a script's file on disk.
//
// # Description
//
// Tries, in order: the declared path as an absolute path; relative to
// the project root; relative to the install root; the bare filename
// inside the canonical scripts directory. The first candidate that
// exists wins. When none exists, the first candidate is returned with
// found=false so callers can still print a meaningful
// "not found: <path>" message.
//
// # Outputs
//
//   - string: the resolved path (best guess when found is false)
//   - bool: whether the path exists on disk
func (r *Registry) ResolveScriptFile(id string) (string, bool) {
	entry, ok := r.m.Scripts[id]
	if !ok || entry.File == "" {
		return "", false
	}

	scriptsDir := r.roots.ScriptsDir
	if scriptsDir != "" && !filepath.IsAbs(scriptsDir) {
		scriptsDir = filepath.Join(r.roots.InstallRoot, scriptsDir)
	}

	var candidates []string
	if filepath.IsAbs(entry.File) {
		candidates = append(candidates, entry.File)
	} else {
		if r.roots.ProjectRoot != "" {
			candidates = append(candidates, filepath.Join(r.roots.ProjectRoot, entry.File))
		}
		if r.roots.InstallRoot != "" {
			candidates = append(candidates, filepath.Join(r.roots.InstallRoot, entry.File))
		}
		if scriptsDir != "" {
			candidates = append(candidates, filepath.Join(scriptsDir, filepath.Base(entry.File)))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}

	if len(candidates) == 0 {
		return entry.File, false
	}
	return candidates[0], false
}
