// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// client.go - Thin HTTP client for the Notion REST API.
//
// The client knows how to sign and send one request and how to turn the
// answer into either the raw JSON body or a typed *apierror.Error. It does not
// know about tools or arguments; the dispatcher supplies an oauth2.TokenSource
// and the fully built Request. The token is pulled before anything is sent.
//
// Every request carries:
//   - Authorization: Bearer <token>
//   - Notion-Version: <configured version>
//   - Content-Type: application/json (only when a body is sent)
//
// Usage Example:
//   client := notion.NewClient(cfg.NotionBaseURL, cfg.NotionVersion, httpClient)
//   body, err := client.Do(ctx, resolver.TokenSource(ctx), notion.Request{
//       Method: http.MethodGet,
//       Path:   notion.Path("pages", pageID),
//   })

package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/config"
	httputils "github.com/gebl/notion-mcp-server/internal/http"
	"github.com/gebl/notion-mcp-server/internal/logging"
)

// MaxPageSize is the largest page_size Notion accepts.
const MaxPageSize = 100

// Request describes one Notion API call.
type Request struct {
	Method string
	Path   string     // relative to the base URL, already escaped
	Query  url.Values // optional
	Body   any        // JSON encoded when non-nil
}

// Client issues requests against one Notion API base URL.
type Client struct {
	baseURL string
	version string
	http    *httputils.SafeHTTPClient
}

// NewClient creates a client. Empty baseURL or version fall back to the defaults.
func NewClient(baseURL, version string, httpClient *httputils.SafeHTTPClient) *Client {
	if baseURL == "" {
		baseURL = config.DefaultNotionBaseURL
	}
	if version == "" {
		version = config.DefaultNotionVersion
	}
	if httpClient == nil {
		httpClient = httputils.NewSafeHTTPClient(nil, config.DefaultHTTPTimeout, logging.NotionLogger)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
		http:    httpClient,
	}
}

// Path joins segments into a request path, escaping each one.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

// Do sends r signed with a token from ts. A 2xx answer is returned verbatim
// (an empty body becomes {}); anything else is mapped to an *apierror.Error.
// Token source failures are returned before any request is made.
func (c *Client) Do(ctx context.Context, ts oauth2.TokenSource, r Request) (json.RawMessage, error) {
	logger := logging.NotionLogger
	if ts == nil {
		return nil, apierror.Authentication("no access token available", nil)
	}
	token, err := ts.Token()
	if err != nil {
		logger.Warn("Could not resolve access token", "error", err)
		if _, ok := apierror.As(err); ok {
			return nil, err
		}
		return nil, apierror.Authentication("no access token available", err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, apierror.Authentication("no access token available", nil)
	}

	endpoint := c.baseURL + r.Path
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	req, err := httputils.NewJSONRequest(ctx, r.Method, endpoint, r.Body)
	if err != nil {
		return nil, apierror.Upstream("failed to build Notion request", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Notion-Version", c.version)

	if r.Body != nil && logging.IsDebugEnabled() && logging.IsContentLoggingEnabled(slog.LevelDebug) {
		if data, err := json.Marshal(r.Body); err == nil {
			logging.LogContent(logger, slog.LevelDebug, "Notion request body", "method", r.Method, "path", r.Path, "body", string(data))
		}
	}

	operation := r.Method + " " + r.Path
	resp, err := c.http.Execute(req, operation)
	if err != nil {
		logger.Warn("Notion request failed", "operation", operation, "error", err)
		return nil, apierror.Upstream("request to Notion failed", err)
	}

	logging.LogContent(logger, slog.LevelDebug, "Notion response body",
		"operation", operation, "status", resp.StatusCode, "body", string(resp.Body))

	if !resp.IsSuccess() {
		apiErr := apierror.FromStatus(resp.StatusCode, resp.Header, resp.Body)
		logger.Warn("Notion returned an error",
			"operation", operation,
			"status", resp.StatusCode,
			"kind", apiErr.Kind)
		return nil, apiErr
	}

	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(resp.Body) {
		return nil, &apierror.Error{
			Kind:    apierror.KindUpstream,
			Message: fmt.Sprintf("Notion returned a non-JSON body for %s", operation),
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}

	logger.Debug("Notion request succeeded", "operation", operation, "status", resp.StatusCode, "bytes", len(resp.Body))
	return json.RawMessage(resp.Body), nil
}
