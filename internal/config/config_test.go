// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/authorization"
)

var configEnvKeys = []string{
	"NANGO_BASE_URL", "NANGO_SECRET_KEY", "NANGO_CONNECTION_ID", "NANGO_INTEGRATION_ID",
	"NOTION_TOKEN", "NOTION_BASE_URL", "NOTION_VERSION", "NOTION_HTTP_TIMEOUT", "NOTION_MCP_CONFIG",
	"MCP_AUTH_ENABLED", "MCP_BEARER_TOKEN", "MCP_STATELESS",
	"AUTHORIZATION_ENABLED", "AUTHORIZATION_DEFAULT_MODE",
	"LOG_LEVEL", "LOG_FORMAT", "MCP_LOG_FILE", "CONTENT_LOG_LEVEL",
}

// clearConfigEnv blanks every variable Load reads. t.Setenv restores them.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func setBrokerEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NANGO_BASE_URL", "https://api.nango.dev/")
	t.Setenv("NANGO_SECRET_KEY", "nango-secret-key-123")
	t.Setenv("NANGO_CONNECTION_ID", "conn-1")
	t.Setenv("NANGO_INTEGRATION_ID", "notion")
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	setBrokerEnv(t)
	t.Setenv("NOTION_HTTP_TIMEOUT", "5s")
	t.Setenv("MCP_AUTH_ENABLED", "true")
	t.Setenv("MCP_BEARER_TOKEN", "test-bearer-token")
	t.Setenv("MCP_STATELESS", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://api.nango.dev", cfg.NangoBaseURL, "trailing slash trimmed")
	assert.Equal(t, "nango-secret-key-123", cfg.NangoSecretKey)
	assert.Equal(t, DefaultNotionBaseURL, cfg.NotionBaseURL)
	assert.Equal(t, DefaultNotionVersion, cfg.NotionVersion)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.True(t, cfg.MCPAuthEnabled())
	assert.Equal(t, "test-bearer-token", cfg.MCPAuth.BearerToken)
	assert.True(t, cfg.IsStateless())
	assert.Equal(t, "DEBUG", cfg.GetLogLevel())
	assert.Equal(t, "json", cfg.GetLogFormat())

	conn := cfg.Connection()
	assert.Equal(t, "conn-1", conn.ConnectionID)
	assert.Equal(t, "notion", conn.IntegrationID)
	assert.False(t, conn.HasStaticToken())
}

func TestLoad_StaticTokenSkipsBrokerRequirements(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NOTION_TOKEN", "  secret_static  ")

	cfg, err := Load()
	require.NoError(t, err)

	conn := cfg.Connection()
	assert.True(t, conn.HasStaticToken())
	assert.Equal(t, "secret_static", conn.StaticToken)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Timeout())
	assert.False(t, cfg.IsStateless())
	assert.False(t, cfg.MCPAuthEnabled())
}

func TestLoad_MissingBrokerSettings(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NANGO_BASE_URL", "https://api.nango.dev")
	t.Setenv("NANGO_CONNECTION_ID", "conn-1")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)

	assert.True(t, apierror.Is(err, apierror.KindConfiguration))
	assert.Contains(t, err.Error(), "NANGO_SECRET_KEY")
	assert.Contains(t, err.Error(), "NANGO_INTEGRATION_ID")
	assert.NotContains(t, err.Error(), "NANGO_BASE_URL,")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timeout", "NOTION_HTTP_TIMEOUT", "soon"},
		{"bad stateless flag", "MCP_STATELESS", "maybe"},
		{"bad auth flag", "MCP_AUTH_ENABLED", "yes"},
		{"bad authorization flag", "AUTHORIZATION_ENABLED", "on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("NOTION_TOKEN", "secret")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.True(t, apierror.Is(err, apierror.KindConfiguration))
		})
	}
}

func TestLoad_ConfigFileOverridesEnvironment(t *testing.T) {
	clearConfigEnv(t)
	setBrokerEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	fileCfg := map[string]any{
		"nango_connection_id": "conn-from-file",
		"notion_version":      "2025-09-03",
		"http_timeout":        "45s",
		"mcp_auth":            map[string]any{"enabled": true, "bearer_token": "file-token"},
	}
	data, err := json.Marshal(fileCfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("NOTION_MCP_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "conn-from-file", cfg.NangoConnectionID)
	assert.Equal(t, "nango-secret-key-123", cfg.NangoSecretKey)
	assert.Equal(t, "2025-09-03", cfg.NotionVersion)
	assert.Equal(t, 45*time.Second, cfg.Timeout())
	assert.Equal(t, "file-token", cfg.MCPAuth.BearerToken)
}

func TestLoad_AuthorizationDefaultsToDisabled(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NOTION_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Authorization)
	assert.False(t, cfg.Authorization.Enabled)
	assert.Equal(t, authorization.PermissionRead, cfg.Authorization.DefaultMode)
}

func TestLoad_AuthorizationFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("AUTHORIZATION_ENABLED", "true")
	t.Setenv("AUTHORIZATION_DEFAULT_MODE", "WRITE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Authorization.Enabled)
	assert.Equal(t, authorization.PermissionWrite, cfg.Authorization.DefaultMode)

	t.Setenv("AUTHORIZATION_DEFAULT_MODE", "admin")
	_, err = Load()
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.KindConfiguration))
}

func TestLoad_AuthorizationFromConfigFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("NOTION_TOKEN", "secret")

	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(map[string]any{
		"authorization": map[string]any{
			"enabled":              true,
			"default_mode":         "read",
			"tool_permissions":     map[string]any{"block_write": "write"},
			"resource_permissions": map[string]any{"abcd*": "write"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("NOTION_MCP_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.Authorization.IsAuthorized("append_blocks", map[string]any{"block_id": "abcd-1"}))
	assert.Error(t, cfg.Authorization.IsAuthorized("append_blocks", map[string]any{"block_id": "ffff-1"}))
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("NOTION_TOKEN", "secret")
		t.Setenv("NOTION_MCP_CONFIG", filepath.Join(t.TempDir(), "absent.json"))

		_, err := Load()
		require.Error(t, err)
		assert.True(t, apierror.Is(err, apierror.KindConfiguration))
	})

	t.Run("malformed file", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("NOTION_TOKEN", "secret")
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		t.Setenv("NOTION_MCP_CONFIG", path)

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot decode config file")
	})
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`2.5`), &d))
	assert.Equal(t, 2500*time.Millisecond, time.Duration(d))

	assert.Error(t, json.Unmarshal([]byte(`"later"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Config{NotionToken: "tok"}).Validate())
	assert.NoError(t, (&Config{
		NangoBaseURL: "https://nango", NangoSecretKey: "k", NangoConnectionID: "c", NangoIntegrationID: "i",
	}).Validate())

	err := (&Config{NotionToken: "   "}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NANGO_BASE_URL")
}
