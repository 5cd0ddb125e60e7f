// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// main.go - Entry point for the Notion MCP Server.
//
// The server exposes a fixed set of Notion operations as MCP tools. Each tool
// call resolves a Notion access token (a static NOTION_TOKEN, or a fresh token
// fetched from the Nango OAuth broker), forwards one request to the Notion REST
// API and returns Notion's JSON unchanged. Failures come back as structured
// error results ({"kind", "message", "status"}) rather than protocol errors.
//
// Available MCP Tools:
// - notion_search: Search pages and databases by title
// - notion_get_database / notion_query_database / notion_create_database
// - notion_get_page / notion_create_page / notion_update_page
// - notion_get_block_children / notion_append_blocks
// - notion_get_current_user: Show the bot user behind the connection
//
// Configuration:
// - Broker: NANGO_BASE_URL, NANGO_SECRET_KEY, NANGO_CONNECTION_ID, NANGO_INTEGRATION_ID
// - Static override: NOTION_TOKEN
// - Optional JSON config file: NOTION_MCP_CONFIG
// - Tool permissions: AUTHORIZATION_ENABLED, AUTHORIZATION_DEFAULT_MODE, or the
//   "authorization" block of the config file
// - Logging: LOG_LEVEL, LOG_FORMAT, MCP_LOG_FILE, CONTENT_LOG_LEVEL
//
// Usage:
//   go build -o notion-mcp-server ./cmd/notion-mcp-server
//   ./notion-mcp-server                               # stdio mode (default)
//   ./notion-mcp-server --debug                       # stdio mode with DEBUG logging
//   ./notion-mcp-server --mode streamable --port 8081 # Streamable HTTP mode
//   ./notion-mcp-server version

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/gebl/notion-mcp-server/internal/auth"
	"github.com/gebl/notion-mcp-server/internal/authorization"
	"github.com/gebl/notion-mcp-server/internal/config"
	"github.com/gebl/notion-mcp-server/internal/dispatch"
	httputils "github.com/gebl/notion-mcp-server/internal/http"
	"github.com/gebl/notion-mcp-server/internal/logging"
	"github.com/gebl/notion-mcp-server/internal/notion"
)

const (
	// Version is the current version of the Notion MCP server
	Version    = "1.0.0"
	serverName = "Notion MCP Server"
	mcpPath    = "/mcp"
)

type options struct {
	debug bool
	mode  string
	port  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "notion-mcp-server",
		Short: "MCP server exposing Notion pages, databases and blocks as tools",
		Long: `notion-mcp-server lets MCP clients search, read and edit a Notion workspace.

Access tokens come from the Nango OAuth broker for the configured connection,
or from NOTION_TOKEN when set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	rootCmd.Flags().BoolVar(&opts.debug, "debug", false, "force DEBUG log level")
	rootCmd.Flags().StringVar(&opts.mode, "mode", "stdio", "server mode: stdio or streamable")
	rootCmd.Flags().StringVar(&opts.port, "port", "8080", "port for the HTTP server (streamable mode)")

	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serverName, Version)
		},
	}
}

func run(opts *options) error {
	logging.Initialize()
	if opts.debug {
		logging.ForceDebug()
	}
	logger := logging.MainLogger

	if opts.mode != "stdio" && opts.mode != "streamable" {
		logger.Error("Invalid mode specified", "mode", opts.mode, "valid_modes", []string{"stdio", "streamable"})
		return fmt.Errorf("invalid mode %q: must be stdio or streamable", opts.mode)
	}

	logger.Info("Notion MCP Server starting", "version", Version, "mode", opts.mode, "port", opts.port)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}

	// Reinitialize logging with configuration values; --debug still wins.
	logging.InitializeFromConfig(cfg)
	if opts.debug {
		logging.ForceDebug()
	}
	logger = logging.MainLogger
	logger.Debug("Logging reconfigured based on loaded configuration")

	s := newServer(cfg)

	switch opts.mode {
	case "streamable":
		addr := ":" + opts.port
		logger.Info("Starting MCP server", "transport", "Streamable HTTP", "port", opts.port,
			"stateless", cfg.IsStateless(), "auth", cfg.MCPAuthEnabled())
		logger.Info("Streamable HTTP server listening", "address", fmt.Sprintf("http://localhost:%s%s", opts.port, mcpPath))
		if err := http.ListenAndServe(addr, newHTTPHandler(s, cfg)); err != nil {
			logger.Error("Streamable HTTP server error", "error", err)
			return err
		}
	default:
		logger.Info("Starting MCP server", "transport", "stdio")
		if err := server.ServeStdio(s); err != nil {
			logger.Error("Stdio server error", "error", err)
			return err
		}
	}
	return nil
}

// newServer wires the resolver, Notion client and dispatcher into an MCP server.
func newServer(cfg *config.Config) *server.MCPServer {
	brokerHTTP := httputils.NewSafeHTTPClient(nil, cfg.Timeout(), logging.AuthLogger)
	notionHTTP := httputils.NewSafeHTTPClient(nil, cfg.Timeout(), logging.NotionLogger)

	resolver := auth.NewResolver(cfg.Connection(), brokerHTTP)
	client := notion.NewClient(cfg.NotionBaseURL, cfg.NotionVersion, notionHTTP)
	dispatcher := dispatch.New(resolver, client)

	s := server.NewMCPServer(serverName, Version,
		server.WithToolCapabilities(true),
		server.WithRecovery())

	logging.MainLogger.Info("Authorization configured",
		"info", authorization.GetAuthorizationInfo(cfg.Authorization))
	registerTools(s, dispatcher, cfg.Authorization)
	return s
}

// newHTTPHandler mounts the streamable MCP endpoint and the health check, with
// bearer authentication when enabled and request logging outermost.
func newHTTPHandler(s *server.MCPServer, cfg *config.Config) http.Handler {
	streamableServer := server.NewStreamableHTTPServer(s,
		server.WithStateLess(cfg.IsStateless()))

	mux := http.NewServeMux()
	mux.Handle(mcpPath, streamableServer)
	mux.HandleFunc(auth.HealthPath, healthHandler)

	handler := applyAuthIfEnabled(mux, cfg)
	return auth.RequestLoggingMiddleware()(handler)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
}

// applyAuthIfEnabled applies bearer token authentication middleware if enabled in configuration.
func applyAuthIfEnabled(handler http.Handler, cfg *config.Config) http.Handler {
	logger := logging.MainLogger

	if cfg.MCPAuth != nil && cfg.MCPAuth.Enabled {
		if cfg.MCPAuth.BearerToken == "" {
			logger.Warn("MCP authentication is enabled but no bearer token is configured",
				"recommendation", "set MCP_BEARER_TOKEN environment variable or add bearer_token to config file")
			return handler
		}

		logger.Info("MCP authentication enabled for HTTP transport",
			"token_length", len(cfg.MCPAuth.BearerToken))
		return auth.BearerTokenMiddleware(cfg.MCPAuth.BearerToken)(handler)
	}

	logger.Debug("MCP authentication disabled - HTTP endpoints are not protected")
	return handler
}
