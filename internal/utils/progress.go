// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// progress.go - MCP progress notifications for tool calls.
//
// When a client sends a progressToken in the request _meta, the tool handlers
// report the stages of a call (token resolved, Notion answered) as
// notifications/progress messages. Without a token, or outside an initialized
// session, every method is a no-op.

package utils

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gebl/notion-mcp-server/internal/logging"
)

const progressMethod = "notifications/progress"

// NotificationSender is the part of *server.MCPServer used for progress.
type NotificationSender interface {
	SendNotificationToClient(ctx context.Context, method string, params map[string]any) error
}

// ProgressNotifier sends progress notifications for one request.
type ProgressNotifier struct {
	sender NotificationSender
	ctx    context.Context
	token  mcp.ProgressToken
	total  float64
}

// ExtractProgressToken returns the progress token of req, or nil.
func ExtractProgressToken(req mcp.CallToolRequest) mcp.ProgressToken {
	if req.Params.Meta == nil {
		return nil
	}
	return req.Params.Meta.ProgressToken
}

// NewProgressNotifier creates a notifier for req using the server stored in ctx.
func NewProgressNotifier(ctx context.Context, req mcp.CallToolRequest, total int) *ProgressNotifier {
	var sender NotificationSender
	if s := server.ServerFromContext(ctx); s != nil {
		sender = s
	}
	return newProgressNotifier(ctx, sender, ExtractProgressToken(req), total)
}

func newProgressNotifier(ctx context.Context, sender NotificationSender, token mcp.ProgressToken, total int) *ProgressNotifier {
	return &ProgressNotifier{sender: sender, ctx: ctx, token: token, total: float64(total)}
}

// IsValid reports whether notifications will actually be sent.
func (pn *ProgressNotifier) IsValid() bool {
	return pn.sender != nil && pn.token != nil
}

// Send reports progress out of the notifier's total.
func (pn *ProgressNotifier) Send(progress int, message string) {
	if !pn.IsValid() {
		return
	}

	params := map[string]any{
		"progressToken": pn.token,
		"progress":      float64(progress),
		"total":         pn.total,
	}
	if message != "" {
		params["message"] = message
	}

	if err := pn.sender.SendNotificationToClient(pn.ctx, progressMethod, params); err != nil {
		logging.ToolsLogger.Debug("Failed to send progress notification",
			"progress", progress,
			"total", pn.total,
			"error", err)
	}
}
