// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// dispatcher.go - Tool dispatch for the Notion MCP server.
//
// Every tool maps to exactly one Notion REST call. An invocation runs the same
// four steps regardless of the tool:
//   1. Validate arguments and build the request. Failures here are
//      InvalidArgumentError and nothing is sent anywhere.
//   2. Hand the Notion client a token source bound to the call's context.
//      The client pulls the token first; resolver failures are returned
//      unchanged and nothing reaches Notion.
//   3. Send the request.
//   4. Return the 2xx body verbatim, or the mapped error. A 401 from Notion
//      also invalidates the cached token so the next call asks the broker.
//
// There are no retries at any step; rate limits surface as RateLimitedError.
//
// Usage Example:
//   d := dispatch.New(resolver, notionClient)
//   body, err := d.Invoke(ctx, dispatch.ToolGetPage, dispatch.Args{"page_id": id})

package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/logging"
	"github.com/gebl/notion-mcp-server/internal/notion"
)

// TokenProvider supplies access tokens and accepts invalidation.
// *auth.Resolver implements it.
type TokenProvider interface {
	TokenSource(ctx context.Context) oauth2.TokenSource
	Invalidate()
}

// NotionClient sends one signed Notion request. *notion.Client implements it.
type NotionClient interface {
	Do(ctx context.Context, ts oauth2.TokenSource, r notion.Request) (json.RawMessage, error)
}

// Dispatcher routes tool invocations to Notion.
type Dispatcher struct {
	tokens TokenProvider
	client NotionClient
}

// New creates a dispatcher.
func New(tokens TokenProvider, client NotionClient) *Dispatcher {
	return &Dispatcher{tokens: tokens, client: client}
}

// Invoke runs tool with args and returns Notion's response body.
// Errors are always *apierror.Error.
func (d *Dispatcher) Invoke(ctx context.Context, tool Tool, args Args) (json.RawMessage, error) {
	logger := logging.DispatchLogger.With("tool", tool.Name())
	start := time.Now()

	if !tool.valid() {
		return nil, apierror.InvalidArgument("tool", "unknown tool "+tool.Name())
	}
	if args == nil {
		args = Args{}
	}

	req, err := buildRequest(tool, args)
	if err != nil {
		logger.Debug("Tool arguments rejected", "error", err)
		return nil, err
	}

	logger.Debug("Dispatching Notion request", "method", req.Method, "path", req.Path)
	body, err := d.client.Do(ctx, d.tokens.TokenSource(ctx), req)
	if err != nil {
		if apierror.Is(err, apierror.KindAuthentication) && apierror.EnvelopeFor(err).Status == http.StatusUnauthorized {
			d.tokens.Invalidate()
		}
		logger.Info("Tool failed",
			"kind", apierror.KindOf(err),
			"status", apierror.EnvelopeFor(err).Status,
			"duration", time.Since(start))
		return nil, err
	}

	logger.Debug("Tool succeeded", "bytes", len(body), "duration", time.Since(start))
	return body, nil
}
