// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/notion"
)

// Args are the decoded arguments of one tool call.
type Args map[string]any

func (a Args) present(field string) bool {
	v, ok := a[field]
	return ok && v != nil
}

// RequireString returns a non-empty string argument.
func (a Args) RequireString(field string) (string, error) {
	if !a.present(field) {
		return "", apierror.MissingArgument(field)
	}
	s, ok := a[field].(string)
	if !ok {
		return "", apierror.InvalidArgument(field, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apierror.MissingArgument(field)
	}
	return s, nil
}

// OptionalString returns a string argument, or "" when absent.
func (a Args) OptionalString(field string) (string, error) {
	if !a.present(field) {
		return "", nil
	}
	s, ok := a[field].(string)
	if !ok {
		return "", apierror.InvalidArgument(field, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

// OptionalEnum returns a string argument restricted to allowed values.
func (a Args) OptionalEnum(field string, allowed ...string) (string, error) {
	s, err := a.OptionalString(field)
	if err != nil || s == "" {
		return s, err
	}
	for _, v := range allowed {
		if s == v {
			return s, nil
		}
	}
	return "", apierror.InvalidArgument(field, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

// RequireObject returns a JSON object argument. A string holding a JSON
// object is accepted too, since some clients stringify nested arguments.
func (a Args) RequireObject(field string) (map[string]any, error) {
	if !a.present(field) {
		return nil, apierror.MissingArgument(field)
	}
	return a.object(field)
}

// OptionalObject returns a JSON object argument, or nil when absent.
func (a Args) OptionalObject(field string) (map[string]any, error) {
	if !a.present(field) {
		return nil, nil
	}
	return a.object(field)
}

func (a Args) object(field string) (map[string]any, error) {
	switch v := a[field].(type) {
	case map[string]any:
		return v, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil || obj == nil {
			return nil, apierror.InvalidArgument(field, "must be an object")
		}
		return obj, nil
	default:
		return nil, apierror.InvalidArgument(field, "must be an object")
	}
}

// OptionalArray returns a JSON array argument, or nil when absent. A string
// holding a JSON array is accepted.
func (a Args) OptionalArray(field string) ([]any, error) {
	if !a.present(field) {
		return nil, nil
	}
	switch v := a[field].(type) {
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	case string:
		var arr []any
		if err := json.Unmarshal([]byte(v), &arr); err != nil || arr == nil {
			return nil, apierror.InvalidArgument(field, "must be an array")
		}
		return arr, nil
	default:
		return nil, apierror.InvalidArgument(field, "must be an array")
	}
}

// OptionalBool returns a boolean argument and whether it was given.
func (a Args) OptionalBool(field string) (value bool, ok bool, err error) {
	if !a.present(field) {
		return false, false, nil
	}
	switch v := a[field].(type) {
	case bool:
		return v, true, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false, apierror.InvalidArgument(field, "must be a boolean")
		}
		return b, true, nil
	default:
		return false, false, apierror.InvalidArgument(field, "must be a boolean")
	}
}

// OptionalPageSize returns page_size clamped to 1..notion.MaxPageSize, or 0
// when absent.
func (a Args) OptionalPageSize() (int, error) {
	const field = "page_size"
	if !a.present(field) {
		return 0, nil
	}

	var n float64
	switch v := a[field].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, apierror.InvalidArgument(field, "must be a number")
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, apierror.InvalidArgument(field, "must be a number")
		}
		n = f
	default:
		return 0, apierror.InvalidArgument(field, "must be a number")
	}
	if math.IsNaN(n) {
		return 0, apierror.InvalidArgument(field, "must be a number")
	}

	size := int(math.Max(1, math.Min(float64(notion.MaxPageSize), math.Floor(n))))
	return size, nil
}
