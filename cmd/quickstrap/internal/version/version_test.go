// Copyright (C) 2025 Quickstrap Authors (maintainers@quickstrap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		required string
		mode     Mode
		want     bool
	}{
		{"min satisfied", "10.0.0", "9.0.0", ModeMin, true},
		{"min unsatisfied", "9.0.0", "10.0.0", ModeMin, false},
		{"min equal", "2.0.0", "2.0.0", ModeMin, true},
		{"numeric not lexical", "10", "9", ModeMin, true},
		{"max satisfied", "1.9", "2.0", ModeMax, true},
		{"max unsatisfied", "2.1", "2.0", ModeMax, false},
		{"exact equal", "2.0.0", "2.0.0", ModeExact, true},
		{"exact trailing zeros", "2.0", "2.0.0", ModeExact, true},
		{"exact mismatch", "2.0.1", "2.0.0", ModeExact, false},
		{"v prefix tolerated", "v1.24.3", "1.24", ModeMin, true},
		{"malformed current", "abc", "1.0", ModeMin, false},
		{"malformed required", "1.0", "oops", ModeMin, false},
		{"empty current", "", "1.0", ModeMin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Satisfies(tt.current, tt.required, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSatisfies_UnknownModeFailsClosed(t *testing.T) {
	ok, err := Satisfies("1.0", "1.0", Mode("fuzzy"))
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMode))

	// The mode check wins even when the versions are malformed; the
	// tolerant-parse policy must not mask a hard failure.
	ok, err = Satisfies("abc", "1.0", Mode("fuzzy"))
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0", "1.0.0", 0},
		{"9", "10", -1},
		{"10", "9", 1},
		{"1.2.3.4", "1.2.3", 1},
		{"0.9", "1.0", -1},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equalf(t, tt.want, got, "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestCompare_Malformed(t *testing.T) {
	_, err := Compare("1.x", "1.0")
	require.Error(t, err)

	_, err = Compare("1.0", "")
	require.Error(t, err)

	_, err = Compare("1.-2", "1.0")
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":      ModeMin,
		"min":   ModeMin,
		"MAX":   ModeMax,
		"exact": ModeExact,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("approximately")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}
