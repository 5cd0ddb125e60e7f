// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// middleware.go - HTTP middleware for the streamable HTTP transport.
//
// BearerTokenMiddleware protects the MCP endpoint with a shared bearer token
// (MCP_AUTH_ENABLED / MCP_BEARER_TOKEN). Health checks bypass it. Stdio mode
// never uses this file.
//
// Usage:
//   handler := auth.RequestLoggingMiddleware()(auth.BearerTokenMiddleware(token)(mux))
//
// HTTP Client Usage:
//   Authorization: Bearer your-secret-token

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gebl/notion-mcp-server/internal/logging"
)

// HealthPath answers without authentication.
const HealthPath = "/health"

// BearerTokenMiddleware rejects requests whose Authorization header does not
// carry expectedToken. Both "Bearer <token>" and a raw token are accepted.
func BearerTokenMiddleware(expectedToken string) func(http.Handler) http.Handler {
	logger := logging.AuthLogger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == HealthPath {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			var reason string
			switch {
			case header == "":
				reason = "missing Authorization header"
			case token == "":
				reason = "empty token"
			case subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1:
				reason = "invalid token"
			}

			if reason != "" {
				logger.Warn("HTTP authentication failed",
					"reason", reason,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method)
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized: "+reason, http.StatusUnauthorized)
				return
			}

			logger.Debug("HTTP authentication succeeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLoggingMiddleware logs each request and its final status code.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	logger := logging.MainLogger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("HTTP request received",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.Header.Get("User-Agent"))

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode >= 400 {
				logger.Warn("HTTP request completed with error",
					"method", r.Method,
					"path", r.URL.Path,
					"status_code", wrapped.statusCode,
					"remote_addr", r.RemoteAddr)
				return
			}
			logger.Info("HTTP request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", wrapped.statusCode)
		})
	}
}

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
