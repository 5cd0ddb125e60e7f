// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// Package authorization restricts which tools may run and which Notion
// resources they may touch. Checks happen before any token is resolved, so a
// denied call never reaches the broker or Notion.
//
// Permissions are evaluated in two steps:
//  1. Tool category: each tool belongs to a category with a read or write
//     operation; the category's permission must allow that operation.
//  2. Resource: the ID the tool targets (page, database, block or parent) is
//     matched against resource_permissions patterns, falling back to the
//     default resource mode.
package authorization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/logging"
)

// PermissionLevel defines the level of access allowed
type PermissionLevel string

const (
	PermissionNone  PermissionLevel = "none"  // Block all access
	PermissionRead  PermissionLevel = "read"  // Allow read-only operations
	PermissionWrite PermissionLevel = "write" // Allow read + write operations
	PermissionFull  PermissionLevel = "full"  // Same as write
)

// ToolCategory groups tools for tool-level permissions
type ToolCategory string

const (
	CategoryWorkspace     ToolCategory = "workspace"
	CategoryDatabaseRead  ToolCategory = "database_read"
	CategoryDatabaseWrite ToolCategory = "database_write"
	CategoryPageRead      ToolCategory = "page_read"
	CategoryPageWrite     ToolCategory = "page_write"
	CategoryBlockRead     ToolCategory = "block_read"
	CategoryBlockWrite    ToolCategory = "block_write"
)

// ToolOperation represents whether a tool performs read or write operations
type ToolOperation string

const (
	OperationRead  ToolOperation = "read"
	OperationWrite ToolOperation = "write"
)

// ToolInfo contains metadata about a tool. ResourceArg names the argument
// holding the targeted Notion ID; empty means the tool targets no resource.
type ToolInfo struct {
	Category    ToolCategory
	Operation   ToolOperation
	ResourceArg string
}

// ToolRegistry maps short tool names to their categories and operations.
var ToolRegistry = map[string]ToolInfo{
	"search":           {CategoryWorkspace, OperationRead, ""},
	"get_current_user": {CategoryWorkspace, OperationRead, ""},

	"get_database":    {CategoryDatabaseRead, OperationRead, "database_id"},
	"query_database":  {CategoryDatabaseRead, OperationRead, "database_id"},
	"create_database": {CategoryDatabaseWrite, OperationWrite, "parent_page_id"},

	"get_page":    {CategoryPageRead, OperationRead, "page_id"},
	"create_page": {CategoryPageWrite, OperationWrite, "parent_id"},
	"update_page": {CategoryPageWrite, OperationWrite, "page_id"},

	"get_block_children": {CategoryBlockRead, OperationRead, "block_id"},
	"append_blocks":      {CategoryBlockWrite, OperationWrite, "block_id"},
}

// AuthorizationConfig represents the authorization configuration
type AuthorizationConfig struct {
	Enabled             bool                             `json:"enabled"`
	DefaultMode         PermissionLevel                  `json:"default_mode"`          // Global fallback
	DefaultToolMode     PermissionLevel                  `json:"default_tool_mode"`     // Default for tool categories
	DefaultResourceMode PermissionLevel                  `json:"default_resource_mode"` // Default for unmatched IDs
	ToolPermissions     map[ToolCategory]PermissionLevel `json:"tool_permissions"`
	ResourcePermissions map[string]PermissionLevel       `json:"resource_permissions"`

	engine *PatternEngine
}

// NewAuthorizationConfig returns a disabled configuration with read defaults.
func NewAuthorizationConfig() *AuthorizationConfig {
	return &AuthorizationConfig{
		Enabled:             false,
		DefaultMode:         PermissionRead,
		ToolPermissions:     make(map[ToolCategory]PermissionLevel),
		ResourcePermissions: make(map[string]PermissionLevel),
	}
}

// CompileMatchers compiles the resource patterns. Call once after loading.
func (ac *AuthorizationConfig) CompileMatchers() error {
	engine := NewPatternEngine()
	if err := engine.CompilePatterns(ac.ResourcePermissions); err != nil {
		return err
	}
	ac.engine = engine
	return nil
}

// IsAuthorized checks a call to toolName with args. Denials are
// AuthenticationError values naming the missing permission.
func (ac *AuthorizationConfig) IsAuthorized(toolName string, args map[string]any) error {
	if ac == nil || !ac.Enabled {
		return nil
	}
	logger := logging.AuthorizationLogger

	info, exists := ToolRegistry[toolName]
	if !exists {
		logger.Warn("Unknown tool requested", "tool", toolName)
		return apierror.InvalidArgument("tool", "unknown tool "+toolName)
	}

	toolPermission := ac.getToolPermission(info.Category)
	if !permissionAllowsOperation(toolPermission, info.Operation) {
		logger.Info("Tool category access denied",
			"tool", toolName,
			"category", info.Category,
			"required_operation", info.Operation,
			"allowed_permission", toolPermission)
		return denied(fmt.Sprintf("tool category '%s' requires '%s' permission but only '%s' is granted",
			info.Category, info.Operation, toolPermission))
	}

	resourceID := resourceIDFrom(args, info.ResourceArg)
	if resourceID == "" {
		// Missing IDs are reported by argument validation.
		logger.Debug("Authorization granted", "tool", toolName, "category", info.Category)
		return nil
	}

	resourcePermission := ac.getResourcePermission(resourceID)
	if !permissionAllowsOperation(resourcePermission, info.Operation) {
		logger.Info("Resource access denied",
			"tool", toolName,
			"resource_id", resourceID,
			"required_operation", info.Operation,
			"allowed_permission", resourcePermission)
		return denied(fmt.Sprintf("resource %s requires '%s' permission but only '%s' is granted",
			resourceID, info.Operation, resourcePermission))
	}

	logger.Debug("Authorization granted",
		"tool", toolName,
		"category", info.Category,
		"resource_id", resourceID)
	return nil
}

func denied(message string) *apierror.Error {
	return &apierror.Error{Kind: apierror.KindAuthentication, Message: "access denied: " + message}
}

func resourceIDFrom(args map[string]any, field string) string {
	if field == "" || args == nil {
		return ""
	}
	id, _ := args[field].(string)
	return strings.TrimSpace(id)
}

// getToolPermission returns the permission level for a tool category
func (ac *AuthorizationConfig) getToolPermission(category ToolCategory) PermissionLevel {
	if permission, exists := ac.ToolPermissions[category]; exists {
		return permission
	}
	if ac.DefaultToolMode != "" {
		return ac.DefaultToolMode
	}
	return ac.DefaultMode
}

// getResourcePermission returns the permission level for a Notion ID.
// Patterns only apply once CompileMatchers has run.
func (ac *AuthorizationConfig) getResourcePermission(id string) PermissionLevel {
	if ac.engine != nil {
		if permission, _, ok := ac.engine.Match(id); ok {
			return permission
		}
	}
	if ac.DefaultResourceMode != "" {
		return ac.DefaultResourceMode
	}
	return ac.DefaultMode
}

// permissionAllowsOperation checks if a permission level allows a specific operation
func permissionAllowsOperation(permission PermissionLevel, operation ToolOperation) bool {
	switch permission {
	case PermissionRead:
		return operation == OperationRead
	case PermissionWrite, PermissionFull:
		return true
	default:
		return false
	}
}

func validLevel(level PermissionLevel, allowEmpty bool) bool {
	switch level {
	case PermissionNone, PermissionRead, PermissionWrite, PermissionFull:
		return true
	case "":
		return allowEmpty
	}
	return false
}

// ValidateAuthorizationConfig validates levels, categories and patterns.
func ValidateAuthorizationConfig(ac *AuthorizationConfig) error {
	if ac == nil {
		return nil
	}

	if !validLevel(ac.DefaultMode, false) {
		return fmt.Errorf("invalid default_mode: %q (must be one of: none, read, write, full)", ac.DefaultMode)
	}
	if !validLevel(ac.DefaultToolMode, true) {
		return fmt.Errorf("invalid default_tool_mode: %q (must be one of: none, read, write, full)", ac.DefaultToolMode)
	}
	if !validLevel(ac.DefaultResourceMode, true) {
		return fmt.Errorf("invalid default_resource_mode: %q (must be one of: none, read, write, full)", ac.DefaultResourceMode)
	}

	known := map[ToolCategory]bool{}
	for _, info := range ToolRegistry {
		known[info.Category] = true
	}
	for category, level := range ac.ToolPermissions {
		if !known[category] {
			return fmt.Errorf("unknown tool category: %q", category)
		}
		if !validLevel(level, false) {
			return fmt.Errorf("invalid permission for tool category '%s': %q", category, level)
		}
	}
	for pattern, level := range ac.ResourcePermissions {
		if !validLevel(level, false) {
			return fmt.Errorf("invalid permission for resource '%s': %q", pattern, level)
		}
	}
	return NewPatternEngine().CompilePatterns(ac.ResourcePermissions)
}

// AuthorizationInfo summarizes the configuration for startup logging.
type AuthorizationInfo struct {
	Enabled         bool              `json:"enabled"`
	DefaultMode     string            `json:"default_mode"`
	ToolPermissions map[string]string `json:"tool_permissions"`
	ResourceRules   int               `json:"resource_rules_configured"`
	// ResourcePatterns lists compiled patterns in match order, e.g. "abc* -> write (prefix)".
	ResourcePatterns []string `json:"resource_patterns,omitempty"`
}

// GetAuthorizationInfo returns the effective permission of every tool category.
func GetAuthorizationInfo(ac *AuthorizationConfig) AuthorizationInfo {
	if ac == nil {
		return AuthorizationInfo{Enabled: false}
	}

	categories := make([]string, 0)
	seen := map[ToolCategory]bool{}
	for _, info := range ToolRegistry {
		if !seen[info.Category] {
			seen[info.Category] = true
			categories = append(categories, string(info.Category))
		}
	}
	sort.Strings(categories)

	perms := make(map[string]string, len(categories))
	for _, c := range categories {
		perms[c] = string(ac.getToolPermission(ToolCategory(c)))
	}

	var patterns []string
	if ac.engine != nil {
		for _, p := range ac.engine.GetAllPatterns() {
			patterns = append(patterns, fmt.Sprintf("%s -> %s (%s)", p.Original, p.Permission, p.matchType()))
		}
	}

	return AuthorizationInfo{
		Enabled:          ac.Enabled,
		DefaultMode:      string(ac.DefaultMode),
		ToolPermissions:  perms,
		ResourceRules:    len(ac.ResourcePermissions),
		ResourcePatterns: patterns,
	}
}
