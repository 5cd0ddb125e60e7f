// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// tool_helpers.go - Common utilities for MCP tool handlers.
//
// Every tool handler ends the same way: Notion's JSON body becomes a text
// result, or an error becomes an IsError result whose text is the JSON
// envelope {"kind": ..., "message": ..., "status": ...}. Handlers never return
// a Go error to the MCP runtime, so clients always receive a structured answer.
//
// ToolLogger tags every log line of one invocation with a request id so that
// concurrent tool calls can be told apart.

package utils

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/logging"
)

// ToolResult provides helper functions for creating consistent MCP tool results.
type ToolResult struct{}

// ToolResults is the shared instance used by handlers.
var ToolResults = ToolResult{}

// NewError converts err into an error result carrying the JSON envelope.
func (tr ToolResult) NewError(err error) *mcp.CallToolResult {
	envelope := apierror.EnvelopeFor(err)
	data, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		// Envelope only holds strings and an int; this cannot fail in practice.
		return mcp.NewToolResultError(string(envelope.Kind) + ": " + envelope.Message)
	}
	return mcp.NewToolResultError(string(data))
}

// NewJSONResult returns body as a text result. Empty input becomes {}.
func (tr ToolResult) NewJSONResult(body json.RawMessage) *mcp.CallToolResult {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	return mcp.NewToolResultText(string(body))
}

// ToolLogger provides standardized logging for one tool invocation.
type ToolLogger struct {
	operation string
	requestID string
	startTime time.Time
	logger    *slog.Logger
}

// NewToolLogger starts logging for operation under a fresh request id.
func NewToolLogger(operation string) *ToolLogger {
	requestID := uuid.NewString()
	logger := logging.ToolsLogger.With("operation", operation, "request_id", requestID)
	logger.Info("Starting tool operation", "type", "tool_invocation")
	return &ToolLogger{
		operation: operation,
		requestID: requestID,
		startTime: time.Now(),
		logger:    logger,
	}
}

// RequestID returns the id attached to every line this logger writes.
func (tl *ToolLogger) RequestID() string {
	return tl.requestID
}

// LogError logs a failed invocation with its error kind and duration.
func (tl *ToolLogger) LogError(err error, extraFields ...any) {
	envelope := apierror.EnvelopeFor(err)
	fields := []any{
		"kind", envelope.Kind,
		"status", envelope.Status,
		"error", err,
		"duration", time.Since(tl.startTime),
	}
	fields = append(fields, extraFields...)

	// Caller mistakes are not server errors.
	if envelope.Kind == apierror.KindInvalidArgument || envelope.Kind == apierror.KindNotFound {
		tl.logger.Warn("Tool operation failed", fields...)
		return
	}
	tl.logger.Error("Tool operation failed", fields...)
}

// LogDebug logs debug information with operation context.
func (tl *ToolLogger) LogDebug(message string, extraFields ...any) {
	tl.logger.Debug(message, extraFields...)
}

// LogSuccess logs successful completion with duration.
func (tl *ToolLogger) LogSuccess(extraFields ...any) {
	fields := []any{"duration", time.Since(tl.startTime)}
	fields = append(fields, extraFields...)
	tl.logger.Info("Tool operation completed successfully", fields...)
}
