// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// config.go - Startup configuration for the Notion MCP server.
//
// Configuration is read once, from (in increasing precedence) a .env file in
// the working directory, the process environment, and an optional JSON file
// named by NOTION_MCP_CONFIG. The result is validated and then treated as
// immutable: the credential resolver and the dispatcher receive it at
// construction time and never consult the environment again.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/authorization"
	"github.com/gebl/notion-mcp-server/internal/logging"
)

const (
	DefaultNotionBaseURL = "https://api.notion.com/v1"
	DefaultNotionVersion = "2022-06-28"
	DefaultHTTPTimeout   = 30 * time.Second
)

// Config holds every setting the server reads at startup.
type Config struct {
	NangoBaseURL       string `json:"nango_base_url"`
	NangoSecretKey     string `json:"nango_secret_key"`
	NangoConnectionID  string `json:"nango_connection_id"`
	NangoIntegrationID string `json:"nango_integration_id"`
	NotionToken        string `json:"notion_token"`

	NotionBaseURL string   `json:"notion_base_url"`
	NotionVersion string   `json:"notion_version"`
	HTTPTimeout   Duration `json:"http_timeout"`

	MCPAuth   *MCPAuthConfig `json:"mcp_auth"`
	Stateless *bool          `json:"stateless"`

	Authorization *authorization.AuthorizationConfig `json:"authorization"`

	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
	LogFile         string `json:"log_file"`
	ContentLogLevel string `json:"content_log_level"`
}

// MCPAuthConfig protects the streamable HTTP transport with a bearer token.
type MCPAuthConfig struct {
	Enabled     bool   `json:"enabled"`
	BearerToken string `json:"bearer_token"`
}

// Connection identifies the OAuth-authenticated Notion workspace to use.
type Connection struct {
	BrokerBaseURL string
	SecretKey     string
	ConnectionID  string
	IntegrationID string
	StaticToken   string
}

// HasStaticToken reports whether the broker is bypassed.
func (c Connection) HasStaticToken() bool {
	return c.StaticToken != ""
}

// Duration decodes either a Go duration string ("30s") or a number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load reads, merges and validates the configuration.
func Load() (*Config, error) {
	logger := logging.ConfigLogger
	logger.Debug("Loading configuration")

	// Existing environment variables take precedence over .env entries.
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No .env file found, using process environment only")
		} else {
			logger.Warn("Failed to parse .env file", "error", err)
		}
	} else {
		logger.Debug("Loaded .env file")
	}

	cfg := &Config{
		NangoBaseURL:       os.Getenv("NANGO_BASE_URL"),
		NangoSecretKey:     os.Getenv("NANGO_SECRET_KEY"),
		NangoConnectionID:  os.Getenv("NANGO_CONNECTION_ID"),
		NangoIntegrationID: os.Getenv("NANGO_INTEGRATION_ID"),
		NotionToken:        os.Getenv("NOTION_TOKEN"),
		NotionBaseURL:      os.Getenv("NOTION_BASE_URL"),
		NotionVersion:      os.Getenv("NOTION_VERSION"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
		LogFile:            os.Getenv("MCP_LOG_FILE"),
		ContentLogLevel:    os.Getenv("CONTENT_LOG_LEVEL"),
	}

	if v := os.Getenv("NOTION_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, apierror.Configuration("NOTION_HTTP_TIMEOUT is not a valid duration", err)
		}
		cfg.HTTPTimeout = Duration(d)
	}

	if v := os.Getenv("MCP_AUTH_ENABLED"); v != "" || os.Getenv("MCP_BEARER_TOKEN") != "" {
		var enabled bool
		if v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, apierror.Configuration("MCP_AUTH_ENABLED must be a boolean", err)
			}
			enabled = parsed
		}
		cfg.MCPAuth = &MCPAuthConfig{
			Enabled:     enabled,
			BearerToken: os.Getenv("MCP_BEARER_TOKEN"),
		}
	}

	if v := os.Getenv("AUTHORIZATION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apierror.Configuration("AUTHORIZATION_ENABLED must be a boolean", err)
		}
		cfg.Authorization = authorization.NewAuthorizationConfig()
		cfg.Authorization.Enabled = enabled
		if mode := os.Getenv("AUTHORIZATION_DEFAULT_MODE"); mode != "" {
			cfg.Authorization.DefaultMode = authorization.PermissionLevel(strings.ToLower(mode))
		}
	}

	if v := os.Getenv("MCP_STATELESS"); v != "" {
		stateless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apierror.Configuration("MCP_STATELESS must be a boolean", err)
		}
		cfg.Stateless = &stateless
	}

	logger.Debug("Loaded from environment",
		"nango_base_url", cfg.NangoBaseURL,
		"nango_connection_id", cfg.NangoConnectionID,
		"nango_integration_id", cfg.NangoIntegrationID,
		"nango_secret_key_set", cfg.NangoSecretKey != "",
		"notion_token_set", cfg.NotionToken != "")

	if path := os.Getenv("NOTION_MCP_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Authorization.CompileMatchers(); err != nil {
		return nil, apierror.Configuration("invalid authorization configuration", err)
	}

	logger.Debug("Configuration loaded",
		"broker_mode", !cfg.Connection().HasStaticToken(),
		"notion_base_url", cfg.NotionBaseURL,
		"notion_version", cfg.NotionVersion,
		"http_timeout", time.Duration(cfg.HTTPTimeout).String())
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	logging.ConfigLogger.Debug("Loading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return apierror.Configuration(fmt.Sprintf("cannot open config file %s", path), err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(c); err != nil {
		return apierror.Configuration(fmt.Sprintf("cannot decode config file %s", path), err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.NotionBaseURL == "" {
		c.NotionBaseURL = DefaultNotionBaseURL
	}
	c.NotionBaseURL = strings.TrimRight(c.NotionBaseURL, "/")
	c.NangoBaseURL = strings.TrimRight(c.NangoBaseURL, "/")
	if c.NotionVersion == "" {
		c.NotionVersion = DefaultNotionVersion
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.Stateless == nil {
		stateless := false
		c.Stateless = &stateless
	}
	if c.Authorization == nil {
		c.Authorization = authorization.NewAuthorizationConfig()
	}
	if c.Authorization.DefaultMode == "" {
		c.Authorization.DefaultMode = authorization.PermissionRead
	}
}

// Validate checks that a token source is available: either a static token
// or the complete set of broker settings.
func (c *Config) Validate() error {
	if err := authorization.ValidateAuthorizationConfig(c.Authorization); err != nil {
		return apierror.Configuration("invalid authorization configuration", err)
	}

	if strings.TrimSpace(c.NotionToken) != "" {
		return nil
	}

	var missing []string
	required := []struct {
		env   string
		value string
	}{
		{"NANGO_BASE_URL", c.NangoBaseURL},
		{"NANGO_SECRET_KEY", c.NangoSecretKey},
		{"NANGO_CONNECTION_ID", c.NangoConnectionID},
		{"NANGO_INTEGRATION_ID", c.NangoIntegrationID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return apierror.Configuration(
			fmt.Sprintf("missing required configuration (set NOTION_TOKEN or all of): %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// Connection returns the immutable connection settings for the credential resolver.
func (c *Config) Connection() Connection {
	return Connection{
		BrokerBaseURL: c.NangoBaseURL,
		SecretKey:     c.NangoSecretKey,
		ConnectionID:  c.NangoConnectionID,
		IntegrationID: c.NangoIntegrationID,
		StaticToken:   strings.TrimSpace(c.NotionToken),
	}
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout)
}

// IsStateless reports whether the streamable HTTP transport runs without sessions.
func (c *Config) IsStateless() bool {
	return c.Stateless != nil && *c.Stateless
}

// MCPAuthEnabled reports whether the HTTP transport requires a bearer token.
func (c *Config) MCPAuthEnabled() bool {
	return c.MCPAuth != nil && c.MCPAuth.Enabled
}

func (c *Config) GetLogLevel() string        { return c.LogLevel }
func (c *Config) GetLogFormat() string       { return c.LogFormat }
func (c *Config) GetLogFile() string         { return c.LogFile }
func (c *Config) GetContentLogLevel() string { return c.ContentLogLevel }
