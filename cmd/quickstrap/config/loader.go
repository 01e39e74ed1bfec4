// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
)

// Load reads the config at path, creating it with defaults on first
// run.
//
// # Description
//
// An empty path means the well-known location
// ~/.quickstrap/quickstrap.yaml. After parsing, environment state is
// folded in: CI or QUICKSTRAP_ASSUME_YES=1 or a non-TTY stdin forces
// Unattended, and ProjectRoot falls back to the working directory.
// Path fields with a ~ prefix are expanded.
//
// # Outputs
//
//   - Config: the effective configuration
//   - error: unreadable or unparsable config file
func Load(path string) (Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("could not find the user's home directory: %w", err)
		}
		path = filepath.Join(home, ".quickstrap", "quickstrap.yaml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file: %w", err)
	}

	applyEnvironment(&cfg)
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvironment folds process environment into the parsed config.
func applyEnvironment(cfg *Config) {
	if cfg.ProjectRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.ProjectRoot = wd
		}
	}
	if cfg.InstallRoot == "" {
		if exe, err := os.Executable(); err == nil {
			cfg.InstallRoot = filepath.Dir(exe)
		}
	}
	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.ManifestPath = resolveAgainst(cfg.ProjectRoot, cfg.ManifestPath)
	cfg.MarkersDir = resolveAgainst(cfg.ProjectRoot, cfg.MarkersDir)

	if os.Getenv("QUICKSTRAP_ASSUME_YES") == "1" || util.IsUnattended() {
		cfg.Unattended = true
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func resolveAgainst(root, path string) string {
	path = expandHome(path)
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}
