// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// apierror.go - Error taxonomy shared by configuration, credential resolution and tool dispatch.
//
// Every failure that can reach an MCP client is an *Error carrying one of a
// closed set of kinds. Tool handlers turn it into the {kind, message, status}
// envelope returned to the assistant.
//
// Usage Example:
//   if err != nil {
//       return nil, apierror.Authentication("broker returned HTTP 401", err)
//   }
//
//   switch apierror.KindOf(err) {
//   case apierror.KindNotFound:
//       ...
//   }

package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies an error for the tool-level envelope.
type Kind string

const (
	KindConfiguration   Kind = "ConfigurationError"
	KindAuthentication  Kind = "AuthenticationError"
	KindInvalidArgument Kind = "InvalidArgumentError"
	KindNotFound        Kind = "NotFoundError"
	KindRateLimited     Kind = "RateLimitedError"
	KindUpstream        Kind = "UpstreamError"
)

// Error is the single error type surfaced at the tool boundary.
type Error struct {
	Kind       Kind
	Message    string
	Status     int           // upstream HTTP status, 0 when the error did not come from HTTP
	Body       string        // raw upstream body for UpstreamError
	RetryAfter time.Duration // parsed Retry-After for RateLimitedError
	Field      string        // offending argument for InvalidArgumentError raised locally
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Envelope is the structured error object returned to MCP clients.
type Envelope struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// Envelope converts the error into its client-facing form.
func (e *Error) Envelope() Envelope {
	msg := e.Message
	if e.Err != nil && e.Status == 0 {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	}
	return Envelope{Kind: e.Kind, Message: msg, Status: e.Status}
}

// Configuration reports missing or malformed startup configuration.
func Configuration(message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: err}
}

// Authentication reports a token that could not be resolved or was rejected.
func Authentication(message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Err: err}
}

// MissingArgument reports a required tool argument that was absent or empty.
func MissingArgument(field string) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf("missing required argument: %s", field),
		Field:   field,
	}
}

// InvalidArgument reports a tool argument with the wrong shape.
func InvalidArgument(field, message string) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf("invalid argument %s: %s", field, message),
		Field:   field,
	}
}

// Upstream reports a transport failure talking to an upstream service.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// notionErrorBody is the error object Notion returns on non-2xx responses.
type notionErrorBody struct {
	Object  string `json:"object"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromStatus maps a non-2xx upstream response onto the taxonomy.
// header may be nil.
func FromStatus(status int, header http.Header, body []byte) *Error {
	upstreamMsg := strings.TrimSpace(string(body))
	var nb notionErrorBody
	if err := json.Unmarshal(body, &nb); err == nil && nb.Message != "" {
		upstreamMsg = nb.Message
		if nb.Code != "" {
			upstreamMsg = nb.Code + ": " + nb.Message
		}
	}

	e := &Error{Status: status}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = KindAuthentication
		e.Message = withDetail("Notion rejected the access token", upstreamMsg)
	case http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = withDetail("resource not found or not shared with the integration", upstreamMsg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Kind = KindInvalidArgument
		e.Message = withDetail("Notion rejected the request", upstreamMsg)
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = withDetail("rate limited by Notion", upstreamMsg)
		if header != nil {
			e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
		}
	default:
		e.Kind = KindUpstream
		e.Message = withDetail(fmt.Sprintf("unexpected upstream status %d", status), upstreamMsg)
		e.Body = string(body)
	}
	return e
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUpstream for errors outside the taxonomy.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstream
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// EnvelopeFor converts any error into an envelope. Errors outside the
// taxonomy become UpstreamError.
func EnvelopeFor(err error) Envelope {
	if e, ok := As(err); ok {
		return e.Envelope()
	}
	return Envelope{Kind: KindUpstream, Message: err.Error()}
}
