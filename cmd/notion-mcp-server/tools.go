// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gebl/notion-mcp-server/internal/authorization"
	"github.com/gebl/notion-mcp-server/internal/dispatch"
	"github.com/gebl/notion-mcp-server/internal/logging"
	"github.com/gebl/notion-mcp-server/internal/resources"
	"github.com/gebl/notion-mcp-server/internal/utils"
)

// Invoker runs one tool against Notion. *dispatch.Dispatcher implements it.
type Invoker interface {
	Invoke(ctx context.Context, tool dispatch.Tool, args dispatch.Args) (json.RawMessage, error)
}

// registerTools registers one MCP tool per Notion operation, each behind the
// authorization check when authConfig is enabled.
func registerTools(s *server.MCPServer, invoker Invoker, authConfig *authorization.AuthorizationConfig) {
	logging.ToolsLogger.Debug("Starting tool registration")

	for _, tool := range dispatch.AllTools() {
		handler := authorization.AuthorizedToolHandler(tool.Name(), newToolHandler(invoker, tool), authConfig)
		s.AddTool(toolDefinition(tool), handler)
	}

	logging.ToolsLogger.Debug("All tools registered successfully", "count", len(dispatch.AllTools()))
}

// newToolHandler adapts a dispatcher call to the MCP handler signature. It
// never returns a Go error: failures become error results with a JSON envelope.
func newToolHandler(invoker Invoker, tool dispatch.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolLogger := utils.NewToolLogger(tool.MCPName())
		progress := utils.NewProgressNotifier(ctx, req, 2)

		args := dispatch.Args(req.GetArguments())
		logging.LogContent(logging.ToolsLogger, slog.LevelDebug, "Tool arguments",
			"tool", tool.MCPName(),
			"request_id", toolLogger.RequestID(),
			"arguments", args)

		toolLogger.LogDebug("Dispatching tool", "argument_count", len(args), "progress", progress.IsValid())
		progress.Send(1, "Sending request to Notion")
		body, err := invoker.Invoke(ctx, tool, args)
		if err != nil {
			toolLogger.LogError(err)
			return utils.ToolResults.NewError(err), nil
		}

		progress.Send(2, "Notion request completed")
		toolLogger.LogSuccess("bytes", len(body))
		return utils.ToolResults.NewJSONResult(body), nil
	}
}

func paginationOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start_cursor",
			mcp.Description("Cursor from a previous response's next_cursor")),
		mcp.WithNumber("page_size",
			mcp.Description("Number of results to return (1-100)"),
			mcp.Min(1),
			mcp.Max(100)),
	}
}

// toolDefinition returns the MCP schema for tool.
func toolDefinition(tool dispatch.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(resources.MustGetToolDescription(tool.Name())),
	}

	switch tool {
	case dispatch.ToolSearch:
		opts = append(opts,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("query",
				mcp.Description("Text to match against page and database titles. Omit to list everything shared with the integration")),
			mcp.WithString("filter_type",
				mcp.Description("Only return pages or only databases"),
				mcp.Enum("page", "database")),
			mcp.WithString("sort_direction",
				mcp.Description("Order by last edited time"),
				mcp.Enum("ascending", "descending")),
		)
		opts = append(opts, paginationOptions()...)

	case dispatch.ToolGetDatabase:
		opts = append(opts,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("database_id", mcp.Required(), mcp.Description("Database ID")),
		)

	case dispatch.ToolQueryDatabase:
		opts = append(opts,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("database_id", mcp.Required(), mcp.Description("Database ID")),
			mcp.WithObject("filter", mcp.Description("Notion filter object")),
			mcp.WithObject("filter_criteria", mcp.Description("Alias for filter")),
			mcp.WithArray("sorts",
				mcp.Description("Sort objects, e.g. [{\"property\": \"Due\", \"direction\": \"ascending\"}]"),
				mcp.Items(map[string]any{"type": "object"})),
		)
		opts = append(opts, paginationOptions()...)

	case dispatch.ToolCreateDatabase:
		opts = append(opts,
			mcp.WithString("parent_page_id", mcp.Required(), mcp.Description("Page that will contain the database")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Database title")),
			mcp.WithObject("properties", mcp.Required(), mcp.Description("Property schema with exactly one title property")),
		)

	case dispatch.ToolGetPage:
		opts = append(opts,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("page_id", mcp.Required(), mcp.Description("Page ID")),
		)

	case dispatch.ToolCreatePage:
		opts = append(opts,
			mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent page or database ID")),
			mcp.WithString("parent_type",
				mcp.Description("Kind of parent (default page)"),
				mcp.Enum("page", "database")),
			mcp.WithObject("properties", mcp.Required(), mcp.Description("Page properties")),
			mcp.WithArray("children",
				mcp.Description("Notion block objects for the page body"),
				mcp.Items(map[string]any{"type": "object"})),
			mcp.WithString("markdown", mcp.Description("Markdown converted to blocks after children")),
		)

	case dispatch.ToolUpdatePage:
		opts = append(opts,
			mcp.WithString("page_id", mcp.Required(), mcp.Description("Page ID")),
			mcp.WithObject("properties", mcp.Required(), mcp.Description("Properties to change")),
			mcp.WithBoolean("archived", mcp.Description("true moves the page to the trash, false restores it")),
		)

	case dispatch.ToolGetBlockChildren:
		opts = append(opts,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("block_id", mcp.Required(), mcp.Description("Block or page ID")),
		)
		opts = append(opts, paginationOptions()...)

	case dispatch.ToolAppendBlocks:
		opts = append(opts,
			mcp.WithString("block_id", mcp.Required(), mcp.Description("Block or page ID to append to")),
			mcp.WithArray("children",
				mcp.Description("Notion block objects"),
				mcp.Items(map[string]any{"type": "object"})),
			mcp.WithString("markdown", mcp.Description("Markdown converted to blocks after children")),
		)

	case dispatch.ToolGetCurrentUser:
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(true))
	}

	return mcp.NewTool(tool.MCPName(), opts...)
}
