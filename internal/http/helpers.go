// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// helpers.go - Shared HTTP utilities with automatic resource cleanup.
//
// Both upstream clients (the OAuth broker lookup in internal/auth and the
// Notion client in internal/notion) go through SafeHTTPClient, which reads the
// whole response body and closes it before returning. Callers only ever see a
// fully buffered SafeHTTPResponse, so no code path has to remember
// resp.Body.Close().
//
// Usage Example:
//   req, err := httputils.NewJSONRequest(ctx, http.MethodPost, url, payload)
//   if err != nil {
//       return err
//   }
//   resp, err := client.Execute(req, "query database")
//   if err != nil {
//       return err
//   }
//   if !resp.IsSuccess() {
//       ...
//   }

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Doer is satisfied by *http.Client and by test doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SafeHTTPClient executes requests and always drains and closes the response body.
type SafeHTTPClient struct {
	doer   Doer
	logger *slog.Logger
}

// NewSafeHTTPClient wraps doer. A nil doer uses a client with the given timeout.
func NewSafeHTTPClient(doer Doer, timeout time.Duration, logger *slog.Logger) *SafeHTTPClient {
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SafeHTTPClient{doer: doer, logger: logger}
}

// SafeHTTPResponse is a fully read response.
type SafeHTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *SafeHTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Execute sends req, reads the body and closes it. Transport and read
// failures are returned as errors; non-2xx statuses are not.
func (c *SafeHTTPClient) Execute(req *http.Request, operation string) (*SafeHTTPResponse, error) {
	start := time.Now()
	c.logger.Debug("Sending HTTP request", "operation", operation, "method", req.Method, "url", req.URL.Redacted())

	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "operation", operation, "duration", time.Since(start), "error", err)
		return nil, fmt.Errorf("%s: request failed: %w", operation, err)
	}

	var body []byte
	err = WithAutoCleanup(resp, func(r *http.Response) error {
		var readErr error
		body, readErr = io.ReadAll(r.Body)
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", operation, err)
	}

	c.logger.Debug("HTTP response received",
		"operation", operation,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	return &SafeHTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// WithAutoCleanup runs fn against resp and closes the body afterwards.
func WithAutoCleanup(resp *http.Response, fn func(*http.Response) error) error {
	if resp == nil {
		return fmt.Errorf("nil response provided")
	}
	defer resp.Body.Close()
	return fn(resp)
}

// NewJSONRequest builds a request whose body is payload encoded as JSON.
// A nil payload produces a request without a body or Content-Type.
func NewJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
