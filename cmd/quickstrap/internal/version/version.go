// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package version compares dotted-numeric version strings.
//
// Tool version strings in the wild are not semver: "20.10", "1.2.3.4",
// "3.12.0rc1". Comparison here is by numeric segment ("9" < "10",
// never lexical), missing segments count as zero, and malformed input
// is a failed requirement rather than a panic or an error.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Error Sentinel Values
// =============================================================================

// ErrUnknownMode is returned when a comparison mode is not one of
// min, max, or exact. The comparator fails closed: it never assumes
// a default mode.
var ErrUnknownMode = errors.New("unknown version comparison mode")

// =============================================================================
// Comparison Modes
// =============================================================================

// Mode selects how a required version constrains the observed one.
type Mode string

const (
	// ModeMin requires current >= required.
	ModeMin Mode = "min"

	// ModeMax requires current <= required.
	ModeMax Mode = "max"

	// ModeExact requires current == required (segment-wise).
	ModeExact Mode = "exact"
)

// ParseMode converts a manifest string into a Mode.
//
// Empty input defaults to ModeMin, matching how manifests declare
// bare minimum versions. Any other unrecognized value is an error.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "min":
		return ModeMin, nil
	case "max":
		return ModeMax, nil
	case "exact":
		return ModeExact, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// =============================================================================
// Comparison
// =============================================================================

// Satisfies reports whether current meets the required version under
// the given mode.
//
// # Description
//
// Versions are split on dots and compared segment by segment as
// integers; missing trailing segments are treated as zero, so
// "2.0" == "2.0.0". A segment that does not parse as a number makes
// the whole comparison a failed requirement: the return is
// (false, nil), never a panic.
//
// # Inputs
//
//   - current: observed version string (e.g. "24.0.7")
//   - required: declared constraint (e.g. "20.0.0")
//   - mode: ModeMin, ModeMax, or ModeExact
//
// # Outputs
//
//   - bool: whether the constraint is satisfied
//   - error: ErrUnknownMode for an unrecognized mode; nil otherwise
//
// # Examples
//
//	ok, _ := version.Satisfies("10.0.0", "9.0.0", version.ModeMin) // true
//	ok, _ = version.Satisfies("abc", "1.0", version.ModeMin)       // false, nil
func Satisfies(current, required string, mode Mode) (bool, error) {
	// Unknown mode is a hard failure regardless of the inputs, so it
	// is checked before the tolerant parse.
	switch mode {
	case ModeMin, ModeMax, ModeExact:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	cmp, err := Compare(current, required)
	if err != nil {
		// Malformed input is a failed requirement, not a crash.
		return false, nil
	}

	switch mode {
	case ModeMax:
		return cmp <= 0, nil
	case ModeExact:
		return cmp == 0, nil
	default:
		return cmp >= 0, nil
	}
}

// Compare orders two dotted-numeric version strings.
//
// Returns -1 when a < b, 0 when equal, +1 when a > b. An error is
// returned when either input has a non-numeric segment; callers
// decide whether that is fatal (Satisfies treats it as unmet).
func Compare(a, b string) (int, error) {
	as, err := segments(a)
	if err != nil {
		return 0, err
	}
	bs, err := segments(b)
	if err != nil {
		return 0, err
	}

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av < bv {
			return -1, nil
		}
		if av > bv {
			return 1, nil
		}
	}
	return 0, nil
}

// segments parses "1.24.3" into [1 24 3].
//
// Leading "v" prefixes ("v1.2.3") are tolerated since several tools
// print them.
func segments(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	parts := strings.Split(s, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed version segment %q in %q", p, s)
		}
		out = append(out, n)
	}
	return out, nil
}
