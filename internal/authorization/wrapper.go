// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package authorization

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gebl/notion-mcp-server/internal/logging"
	"github.com/gebl/notion-mcp-server/internal/utils"
)

// AuthorizedToolHandler wraps handler with authorization checks. A denied call
// returns an error result and handler never runs.
func AuthorizedToolHandler(toolName string, handler server.ToolHandlerFunc, authConfig *AuthorizationConfig) server.ToolHandlerFunc {
	if authConfig == nil || !authConfig.Enabled {
		return handler
	}

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := authConfig.IsAuthorized(toolName, req.GetArguments()); err != nil {
			logging.AuthorizationLogger.Info("Authorization check failed",
				"tool", toolName,
				"error", err.Error())
			return utils.ToolResults.NewError(err), nil
		}
		return handler(ctx, req)
	}
}
