// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package marker tracks script completion through .done files.
//
// A script's completion marker is an empty file named <id>.done in the
// markers directory. Markers are the source of truth for "has this
// script run": artifact detection (a .gitignore existing, say) is only
// a hint, since artifacts can pre-date quickstrap or be hand-made.
package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const suffix = ".done"

// ErrInvalidID is returned for script identifiers that could escape
// the markers directory.
var ErrInvalidID = errors.New("invalid script identifier")

// validID rejects identifiers with path separators or dot components.
// Manifest keys are plain names; anything else is hostile or a bug.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Store reads and writes completion markers in one directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created
// lazily on the first Create, not here, so read-only commands never
// touch the filesystem.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the markers directory.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether the script's marker is present. An invalid
// identifier never has a marker.
func (s *Store) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	info, err := os.Stat(s.path(id))
	return err == nil && !info.IsDir()
}

// Create writes the script's marker.
//
// Creating an existing marker is a no-op success: completion is
// idempotent, and re-running an idempotent script must not fail on
// the marker step.
func (s *Store) Create(id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return f.Close()
}

// Remove deletes the script's marker. Missing markers are not errors,
// so rollback of a never-run script succeeds.
func (s *Store) Remove(id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the identifiers of all completed scripts, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+suffix)
}
