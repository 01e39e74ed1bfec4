// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines quickstrap's configuration and its loader.
//
// Configuration is an explicit struct constructed once at startup and
// passed down. Nothing reads environment variables or config files ad
// hoc deeper in the call tree; the two recognized environment
// variables (CI, QUICKSTRAP_ASSUME_YES) are folded into the struct
// here.
package config

import (
	"time"

	"github.com/quickstrap/quickstrap/cmd/quickstrap/internal/util"
)

// Config carries every tunable the engine consumes.
type Config struct {
	// ProjectRoot is the directory being bootstrapped. Defaults to the
	// working directory.
	ProjectRoot string `yaml:"project_root,omitempty"`

	// ManifestPath is the manifest location, relative to ProjectRoot
	// unless absolute.
	ManifestPath string `yaml:"manifest_path"`

	// CacheDir holds the persistent manifest cache.
	CacheDir string `yaml:"cache_dir"`

	// MarkersDir holds completion markers, relative to ProjectRoot
	// unless absolute.
	MarkersDir string `yaml:"markers_dir"`

	// InstallRoot is quickstrap's own installation directory, used as
	// a script-file fallback root.
	InstallRoot string `yaml:"install_root,omitempty"`

	// ScriptsDir is the canonical scripts directory for bare-filename
	// lookup, relative to InstallRoot unless absolute.
	ScriptsDir string `yaml:"scripts_dir"`

	// ManifestTTLSeconds bounds the age of the persistent manifest
	// cache.
	ManifestTTLSeconds int `yaml:"manifest_ttl_seconds"`

	// SessionTTLSeconds bounds per-session derived caches.
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`

	// CheckTimeoutSeconds bounds each per-tool version probe.
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds"`

	// InstallTimeoutSeconds bounds each auto-installation attempt.
	InstallTimeoutSeconds int `yaml:"install_timeout_seconds"`

	// Unattended skips interactive confirmations, answering yes.
	// Forced true by CI or QUICKSTRAP_ASSUME_YES=1, or when stdin is
	// not a terminal.
	Unattended bool `yaml:"unattended,omitempty"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ManifestPath:          ".quickstrap/manifest.yaml",
		CacheDir:              "~/.quickstrap/cache",
		MarkersDir:            ".quickstrap/logs/markers",
		ScriptsDir:            "scripts",
		ManifestTTLSeconds:    int(util.DefaultManifestTTL.Seconds()),
		SessionTTLSeconds:     int(util.DefaultSessionTTL.Seconds()),
		CheckTimeoutSeconds:   int(util.DefaultCheckTimeout.Seconds()),
		InstallTimeoutSeconds: int(util.DefaultInstallTimeout.Seconds()),
		LogLevel:              "info",
	}
}

// ManifestTTL returns the manifest cache TTL as a duration.
func (c Config) ManifestTTL() time.Duration {
	return time.Duration(c.ManifestTTLSeconds) * time.Second
}

// SessionTTL returns the session cache TTL as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// CheckTimeout returns the per-tool check bound as a duration.
func (c Config) CheckTimeout() time.Duration {
	return time.Duration(c.CheckTimeoutSeconds) * time.Second
}

// InstallTimeout returns the per-install bound as a duration.
func (c Config) InstallTimeout() time.Duration {
	return time.Duration(c.InstallTimeoutSeconds) * time.Second
}
