// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package authorization

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gebl/notion-mcp-server/internal/logging"
)

// CompiledPattern is a resource pattern ready for matching.
type CompiledPattern struct {
	Original     string
	Permission   PermissionLevel
	Regex        *regexp.Regexp // nil for exact/prefix/suffix patterns
	Precedence   int            // lower wins
	IsExact      bool
	IsPrefix     bool
	IsSuffix     bool
	IsRegex      bool // written as ^...$ by the user
	LiteralChars int
	normalized   string
}

// PatternEngine matches Notion IDs against permission patterns. Exact IDs take
// precedence over prefix patterns, then suffix patterns, then patterns with
// several wildcards, then regular expressions. Within a class, more literal
// characters win.
//
// A pattern wrapped in ^ and $ is a case-insensitive regular expression
// matched against the normalized ID (lowercase, no dashes).
type PatternEngine struct {
	compiledPatterns []CompiledPattern
}

// NewPatternEngine creates an empty engine.
func NewPatternEngine() *PatternEngine {
	return &PatternEngine{}
}

// NormalizeID lowercases id and drops dashes so that dashed and compact
// Notion IDs compare equal.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}

// CompilePatterns replaces the engine's patterns.
func (pe *PatternEngine) CompilePatterns(patterns map[string]PermissionLevel) error {
	compiled := make([]CompiledPattern, 0, len(patterns))
	for pattern, permission := range patterns {
		c, err := compilePattern(pattern, permission)
		if err != nil {
			return fmt.Errorf("failed to compile pattern '%s': %w", pattern, err)
		}
		compiled = append(compiled, c)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Precedence != compiled[j].Precedence {
			return compiled[i].Precedence < compiled[j].Precedence
		}
		return compiled[i].Original < compiled[j].Original
	})
	pe.compiledPatterns = compiled

	logging.AuthorizationLogger.Debug("Compiled resource patterns", "pattern_count", len(compiled))
	for _, c := range pe.GetAllPatterns() {
		logging.AuthorizationLogger.Debug("Resource pattern",
			"pattern", c.Original,
			"permission", c.Permission,
			"match_type", c.matchType(),
			"precedence", c.Precedence)
	}
	return nil
}

func compilePattern(pattern string, permission PermissionLevel) (CompiledPattern, error) {
	if expr := strings.TrimSpace(pattern); len(expr) > 2 && strings.HasPrefix(expr, "^") && strings.HasSuffix(expr, "$") {
		regex, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return CompiledPattern{}, fmt.Errorf("invalid regular expression: %w", err)
		}
		return CompiledPattern{
			Original:   pattern,
			Permission: permission,
			Regex:      regex,
			Precedence: 400,
			IsRegex:    true,
			normalized: expr,
		}, nil
	}

	normalized := NormalizeID(pattern)
	if normalized == "" {
		return CompiledPattern{}, fmt.Errorf("empty pattern")
	}

	compiled := CompiledPattern{
		Original:     pattern,
		Permission:   permission,
		normalized:   normalized,
		LiteralChars: len(strings.ReplaceAll(normalized, "*", "")),
	}
	wildcards := strings.Count(normalized, "*")

	switch {
	case wildcards == 0:
		compiled.IsExact = true
		compiled.Precedence = 0
	case wildcards == 1 && strings.HasSuffix(normalized, "*"):
		compiled.IsPrefix = true
		compiled.Precedence = 100 + (40 - compiled.LiteralChars)
	case wildcards == 1 && strings.HasPrefix(normalized, "*"):
		compiled.IsSuffix = true
		compiled.Precedence = 200 + (40 - compiled.LiteralChars)
	default:
		compiled.Precedence = 300 + (40 - compiled.LiteralChars)
		regex, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(normalized), `\*`, ".*") + "$")
		if err != nil {
			return compiled, fmt.Errorf("invalid wildcard pattern: %w", err)
		}
		compiled.Regex = regex
	}
	return compiled, nil
}

// Match returns the permission of the best pattern matching id.
func (pe *PatternEngine) Match(id string) (PermissionLevel, string, bool) {
	value := NormalizeID(id)
	if value == "" {
		return "", "", false
	}

	for _, pattern := range pe.compiledPatterns {
		if matchesPattern(value, pattern) {
			logging.AuthorizationLogger.Debug("Pattern matched",
				"value", id,
				"pattern", pattern.Original,
				"permission", pattern.Permission,
				"match_type", pattern.matchType())
			return pattern.Permission, pattern.Original, true
		}
	}
	return "", "", false
}

func matchesPattern(value string, pattern CompiledPattern) bool {
	switch {
	case pattern.IsExact:
		return value == pattern.normalized
	case pattern.IsPrefix:
		return strings.HasPrefix(value, strings.TrimSuffix(pattern.normalized, "*"))
	case pattern.IsSuffix:
		return strings.HasSuffix(value, strings.TrimPrefix(pattern.normalized, "*"))
	case pattern.Regex != nil:
		return pattern.Regex.MatchString(value)
	}
	return false
}

func (p CompiledPattern) matchType() string {
	switch {
	case p.IsExact:
		return "exact"
	case p.IsPrefix:
		return "prefix"
	case p.IsSuffix:
		return "suffix"
	case p.IsRegex:
		return "regex"
	}
	return "wildcard"
}

// GetAllPatterns returns a copy of the compiled patterns in precedence order.
func (pe *PatternEngine) GetAllPatterns() []CompiledPattern {
	return append([]CompiledPattern(nil), pe.compiledPatterns...)
}
