// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "1a2b3c4d5e6f", NormalizeID(" 1A2B-3C4D-5E6F "))
	assert.Equal(t, NormalizeID("59833787-2cf9-4fdf-8782-e53db20768a5"), NormalizeID("598337872cf94fdf8782e53db20768a5"))
}

func TestPatternEngine_CompilePatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns map[string]PermissionLevel
		wantErr  bool
	}{
		{
			name: "valid patterns",
			patterns: map[string]PermissionLevel{
				"598337872cf94fdf8782e53db20768a5": PermissionRead,
				"5983*":                            PermissionWrite,
				"*68a5":                            PermissionRead,
				"59*8a5":                           PermissionNone,
			},
		},
		{name: "empty patterns", patterns: map[string]PermissionLevel{}},
		{name: "blank pattern", patterns: map[string]PermissionLevel{" - ": PermissionRead}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := NewPatternEngine()
			err := pe.CompilePatterns(tt.patterns)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, pe.GetAllPatterns(), len(tt.patterns))
		})
	}
}

func TestPatternEngine_PrecedenceOrdering(t *testing.T) {
	pe := NewPatternEngine()
	require.NoError(t, pe.CompilePatterns(map[string]PermissionLevel{
		"*":        PermissionNone,
		"ab*":      PermissionRead,
		"abcd*":    PermissionWrite,
		"*ff":      PermissionRead,
		"a*f":      PermissionRead,
		"abcdef01": PermissionFull,
	}))

	compiled := pe.GetAllPatterns()
	require.Len(t, compiled, 6)

	assert.True(t, compiled[0].IsExact)
	assert.Equal(t, "abcdef01", compiled[0].Original)
	assert.Equal(t, "abcd*", compiled[1].Original, "longer prefix beats shorter prefix")
	assert.Equal(t, "ab*", compiled[2].Original)
	assert.Equal(t, "*", compiled[3].Original, "bare wildcard is the weakest prefix")
	assert.True(t, compiled[4].IsSuffix)
	assert.NotNil(t, compiled[5].Regex)
}

func TestPatternEngine_Match(t *testing.T) {
	pe := NewPatternEngine()
	require.NoError(t, pe.CompilePatterns(map[string]PermissionLevel{
		"aaaa1111-0000-0000-0000-000000000000": PermissionNone,
		"aaaa*":                                PermissionWrite,
		"*beef":                                PermissionRead,
		"cc*dd":                                PermissionFull,
	}))

	tests := []struct {
		name       string
		id         string
		permission PermissionLevel
		pattern    string
		matched    bool
	}{
		{"exact match beats prefix, dashes ignored", "AAAA1111000000000000000000000000", PermissionNone, "aaaa1111-0000-0000-0000-000000000000", true},
		{"prefix", "aaaa2222", PermissionWrite, "aaaa*", true},
		{"suffix", "1234-beef", PermissionRead, "*beef", true},
		{"wildcard", "cc-12-dd", PermissionFull, "cc*dd", true},
		{"no match", "ffff", "", "", false},
		{"empty id", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			permission, pattern, matched := pe.Match(tt.id)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.permission, permission)
			assert.Equal(t, tt.pattern, pattern)
		})
	}
}

func TestPatternEngine_RegularExpressions(t *testing.T) {
	pe := NewPatternEngine()
	require.NoError(t, pe.CompilePatterns(map[string]PermissionLevel{
		"^abc[0-9]+$": PermissionWrite,
		"ab*9":        PermissionRead,
		"zz*":         PermissionNone,
	}))

	compiled := pe.GetAllPatterns()
	require.Len(t, compiled, 3)
	assert.Equal(t, "zz*", compiled[0].Original)
	assert.Equal(t, "ab*9", compiled[1].Original, "wildcards beat regular expressions")
	assert.True(t, compiled[2].IsRegex)
	assert.Equal(t, "regex", compiled[2].matchType())
	assert.Equal(t, "wildcard", compiled[1].matchType())

	tests := []struct {
		id         string
		permission PermissionLevel
		matched    bool
	}{
		{"ABC-123", PermissionWrite, true},
		{"abc129", PermissionRead, true},
		{"abcx", "", false},
		{"zzabc1", PermissionNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			permission, _, matched := pe.Match(tt.id)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.permission, permission)
		})
	}
}

func TestPatternEngine_InvalidRegularExpression(t *testing.T) {
	err := NewPatternEngine().CompilePatterns(map[string]PermissionLevel{"^abc(+$": PermissionRead})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regular expression")
}

func TestPatternEngine_GetAllPatternsReturnsCopy(t *testing.T) {
	pe := NewPatternEngine()
	require.NoError(t, pe.CompilePatterns(map[string]PermissionLevel{"ab*": PermissionRead}))

	patterns := pe.GetAllPatterns()
	patterns[0].Permission = PermissionFull

	assert.Equal(t, PermissionRead, pe.GetAllPatterns()[0].Permission)
}
