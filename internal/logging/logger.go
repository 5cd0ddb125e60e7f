// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// logger.go - Centralized logging configuration for the Notion MCP server.
//
// Structured logging on top of log/slog with component loggers, a separate
// "content" level for upstream payloads, and a two-phase setup: environment
// first (so config loading is visible), then the loaded configuration.
//
// Usage:
//   logger := logging.GetLogger("auth")
//   logger.Info("Token resolved", "source", "broker")
//   logging.LogContent(logger, slog.LevelDebug, "Notion response", "body", string(body))
//
// Configuration:
// - LOG_LEVEL: DEBUG, INFO, WARN or ERROR (default: DEBUG until config is loaded, INFO after)
// - LOG_FORMAT: "json" or "text" (default: text)
// - MCP_LOG_FILE: optional file path for log output (default: stderr)
// - CONTENT_LOG_LEVEL: DEBUG, INFO, WARN, ERROR or OFF for upstream payload logging (default: DEBUG)
//
// Logs never go to stdout: in stdio mode stdout carries the MCP protocol.

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// levelOff disables a logger or content logging entirely.
const levelOff = slog.Level(1000)

var (
	mu              sync.RWMutex
	levelVar        = new(slog.LevelVar)
	current         slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})
	contentLogLevel = slog.LevelDebug
	debugForced     bool

	// logFile is the open MCP_LOG_FILE handle, nil when logging to stderr.
	logFile *os.File

	// defaultLogger writes through whatever handler configure installed last,
	// so loggers created before reconfiguration follow it.
	defaultLogger = slog.New(&swapHandler{})
)

func init() {
	levelVar.Set(slog.LevelDebug)
}

// LoggingConfig is implemented by configuration objects that carry logging settings.
type LoggingConfig interface {
	GetLogLevel() string
	GetLogFormat() string
	GetLogFile() string
	GetContentLogLevel() string
}

// Initialize sets up the global logger from environment variables only.
// It defaults to DEBUG so configuration loading is fully visible.
func Initialize() {
	configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("MCP_LOG_FILE"),
		os.Getenv("CONTENT_LOG_LEVEL"), slog.LevelDebug)
}

// InitializeFromConfig reconfigures logging from a loaded configuration,
// falling back to environment variables for empty values. After this call
// the default level is INFO unless --debug was given.
func InitializeFromConfig(cfg LoggingConfig) {
	level := firstNonEmpty(cfg.GetLogLevel(), os.Getenv("LOG_LEVEL"))
	format := firstNonEmpty(cfg.GetLogFormat(), os.Getenv("LOG_FORMAT"))
	file := firstNonEmpty(cfg.GetLogFile(), os.Getenv("MCP_LOG_FILE"))
	content := firstNonEmpty(cfg.GetContentLogLevel(), os.Getenv("CONTENT_LOG_LEVEL"))

	configure(level, format, file, content, slog.LevelInfo)

	GetLogger("logging").Debug("Logging reconfigured from config",
		"log_level", GetLevel().String(),
		"content_log_level", GetContentLogLevel().String(),
		"log_format", strings.ToLower(format),
		"log_file", file)
}

func configure(levelStr, formatStr, fileStr, contentStr string, fallback slog.Level) {
	level := parseLevel(levelStr, fallback)

	mu.RLock()
	forced := debugForced
	mu.RUnlock()
	if forced {
		level = slog.LevelDebug
	}
	SetLevel(level)
	SetContentLogLevel(parseLevel(contentStr, slog.LevelDebug))

	var output io.Writer = os.Stderr
	var opened *os.File
	var openErr error
	if fileStr != "" {
		file, err := os.OpenFile(fileStr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			openErr = err
		} else {
			opened = file
			output = file
		}
	}

	opts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if strings.EqualFold(formatStr, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	mu.Lock()
	current = handler
	previous := logFile
	logFile = opened
	mu.Unlock()

	// The replaced handler no longer receives records.
	if previous != nil {
		_ = previous.Close()
	}

	slog.SetDefault(defaultLogger)
	if openErr != nil {
		defaultLogger.Error("Failed to open log file, using stderr", "file", fileStr, "error", openErr)
	}
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "OFF":
		return levelOff
	default:
		return fallback
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

// swapHandler delegates to the currently installed handler, replaying the
// attributes and groups recorded through WithAttrs/WithGroup.
type swapHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func currentHandler() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func (h *swapHandler) resolve() slog.Handler {
	out := currentHandler()
	for _, op := range h.ops {
		out = op(out)
	}
	return out
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return currentHandler().Enabled(ctx, level)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *swapHandler) with(op func(slog.Handler) slog.Handler) *swapHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &swapHandler{ops: append(ops, op)}
}

// GetLevel returns the current log level.
func GetLevel() slog.Level {
	return levelVar.Level()
}

// IsDebugEnabled reports whether debug logging is enabled.
func IsDebugEnabled() bool {
	return GetLevel() <= slog.LevelDebug
}

// SetLevel changes the log level of every logger handed out so far.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// ForceDebug pins the level to DEBUG, surviving later InitializeFromConfig calls.
// Used by the --debug flag.
func ForceDebug() {
	mu.Lock()
	debugForced = true
	mu.Unlock()
	SetLevel(slog.LevelDebug)
}

// GetContentLogLevel returns the current content log level.
func GetContentLogLevel() slog.Level {
	mu.RLock()
	defer mu.RUnlock()
	return contentLogLevel
}

// SetContentLogLevel sets the content log level programmatically.
func SetContentLogLevel(level slog.Level) {
	mu.Lock()
	contentLogLevel = level
	mu.Unlock()
}

// IsContentLoggingEnabled reports whether content logging is enabled at level.
func IsContentLoggingEnabled(level slog.Level) bool {
	return GetContentLogLevel() <= level
}

// LogContent logs upstream payloads only when content logging allows it.
func LogContent(logger *slog.Logger, level slog.Level, msg string, args ...any) {
	if IsContentLoggingEnabled(level) {
		logger.Log(context.Background(), level, msg, args...)
	}
}

// Component loggers. They follow reconfiguration through swapHandler.
var (
	AuthLogger          = GetLogger("auth")
	AuthorizationLogger = GetLogger("authorization")
	ConfigLogger        = GetLogger("config")
	NotionLogger        = GetLogger("notion")
	DispatchLogger      = GetLogger("dispatch")
	ToolsLogger         = GetLogger("tools")
	MainLogger          = GetLogger("main")
)
