// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import "time"

// =============================================================================
// Constants
// =============================================================================

// Timeout constants define minimum and default values for subprocess
// operations.
//
// These constants prevent accidental infinite hangs by ensuring all
// operations have a reasonable timeout even if misconfigured.
const (
	// MinCheckTimeout is the absolute minimum for a single tool check.
	// Prevents accidental infinite hangs from zero timeouts.
	MinCheckTimeout = 1 * time.Second

	// MinInstallTimeout is the absolute minimum for an install attempt.
	MinInstallTimeout = 10 * time.Second

	// DefaultCheckTimeout bounds a single tool presence/version probe.
	// Version-reporting commands can be slow (a container runtime
	// starting a VM, a cluster client reaching a remote endpoint).
	DefaultCheckTimeout = 10 * time.Second

	// DefaultInstallTimeout bounds a single package installation.
	DefaultInstallTimeout = 5 * time.Minute

	// DefaultManifestTTL is how long the whole-manifest cache stays fresh.
	DefaultManifestTTL = 1 * time.Hour

	// DefaultSessionTTL is the lighter-weight TTL for per-session
	// derived data cached by callers.
	DefaultSessionTTL = 5 * time.Minute
)

// ClampCheckTimeout raises a configured check timeout to its minimum.
//
// A zero or negative value falls back to the default rather than the
// minimum, since it means "unconfigured" rather than "very small".
func ClampCheckTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCheckTimeout
	}
	if d < MinCheckTimeout {
		return MinCheckTimeout
	}
	return d
}

// ClampInstallTimeout raises a configured install timeout to its minimum.
func ClampInstallTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInstallTimeout
	}
	if d < MinInstallTimeout {
		return MinInstallTimeout
	}
	return d
}
