// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// resolver.go - Access token resolution for the Notion API.
//
// The Resolver hands out the bearer token every Notion request is signed with.
// A token comes from one of two places:
//   1. A static override (NOTION_TOKEN). The broker is never contacted.
//   2. The Nango connection endpoint, asked to refresh the provider token:
//      GET {base}/connection/{connection_id}?provider_config_key={integration_id}&refresh_token=true
//
// Broker tokens are cached in memory for the life of the process. The cache is
// refreshed when:
//   - the cached token has expired (credentials.expires_at, checked through oauth2.Token.Valid)
//   - Invalidate was called, which the dispatcher does when Notion answers 401
//
// Refreshes are serialized and re-check the cache first, so callers racing on
// an empty cache share a single broker lookup.
//
// Usage Example:
//   resolver := auth.NewResolver(cfg.Connection(), httpClient)
//   token, err := resolver.Token(ctx)
//   if err != nil {
//       return err // *apierror.Error with KindAuthentication
//   }
//   token.SetAuthHeader(req)

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/config"
	httputils "github.com/gebl/notion-mcp-server/internal/http"
	"github.com/gebl/notion-mcp-server/internal/logging"
)

// Resolver produces access tokens for the configured connection.
type Resolver struct {
	conn   config.Connection
	client *httputils.SafeHTTPClient

	mu     sync.RWMutex
	cached *oauth2.Token

	refreshMu sync.Mutex // held for the duration of a broker lookup
}

// NewResolver creates a resolver for conn. Broker lookups go through client.
func NewResolver(conn config.Connection, client *httputils.SafeHTTPClient) *Resolver {
	if client == nil {
		client = httputils.NewSafeHTTPClient(nil, config.DefaultHTTPTimeout, logging.AuthLogger)
	}

	source := "broker"
	if conn.HasStaticToken() {
		source = "static"
	}
	logging.AuthLogger.Debug("Credential resolver created",
		"source", source,
		"broker_base_url", conn.BrokerBaseURL,
		"connection_id", conn.ConnectionID,
		"integration_id", conn.IntegrationID,
		"secret_key", MaskSecret(conn.SecretKey))

	return &Resolver{conn: conn, client: client}
}

// connectionResponse is the subset of the broker's connection object we read.
type connectionResponse struct {
	Credentials struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   string `json:"expires_at"`
	} `json:"credentials"`
	AccessToken string `json:"access_token"`
}

// Token returns a usable access token, consulting the broker when the cache
// is empty, expired or invalidated.
func (r *Resolver) Token(ctx context.Context) (*oauth2.Token, error) {
	logger := logging.AuthLogger

	if r.conn.HasStaticToken() {
		logger.Debug("Using static access token", "token", MaskSecret(r.conn.StaticToken))
		return &oauth2.Token{AccessToken: r.conn.StaticToken, TokenType: "Bearer"}, nil
	}

	if cached := r.cachedToken(); cached != nil {
		logger.Debug("Using cached access token", "expires_at", formatExpiry(cached.Expiry))
		return cached, nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if cached := r.cachedToken(); cached != nil {
		logger.Debug("Using access token refreshed by a concurrent call")
		return cached, nil
	}

	token, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cached = token
	r.mu.Unlock()

	logger.Info("Access token resolved from broker",
		"connection_id", r.conn.ConnectionID,
		"token", MaskSecret(token.AccessToken),
		"expires_at", formatExpiry(token.Expiry))
	return token, nil
}

// cachedToken returns the cached token when it is still valid.
func (r *Resolver) cachedToken() *oauth2.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached.Valid() {
		return r.cached
	}
	return nil
}

// Invalidate drops the cached token so the next Token call asks the broker again.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	had := r.cached != nil
	r.cached = nil
	r.mu.Unlock()

	if had {
		logging.AuthLogger.Info("Cached access token invalidated")
	}
}

// TokenSource adapts the resolver to oauth2.TokenSource, bound to ctx.
func (r *Resolver) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, resolver: r}
}

type tokenSource struct {
	ctx      context.Context
	resolver *Resolver
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	return s.resolver.Token(s.ctx)
}

func (r *Resolver) fetch(ctx context.Context) (*oauth2.Token, error) {
	logger := logging.AuthLogger

	if r.conn.BrokerBaseURL == "" || r.conn.ConnectionID == "" || r.conn.IntegrationID == "" || r.conn.SecretKey == "" {
		return nil, apierror.Authentication("no access token available: broker connection is not configured", nil)
	}

	endpoint := fmt.Sprintf("%s/connection/%s?%s",
		strings.TrimRight(r.conn.BrokerBaseURL, "/"),
		url.PathEscape(r.conn.ConnectionID),
		url.Values{
			"provider_config_key": {r.conn.IntegrationID},
			"refresh_token":       {"true"},
		}.Encode())

	req, err := httputils.NewJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apierror.Authentication("failed to build broker request", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.conn.SecretKey)

	logger.Debug("Requesting access token from broker", "connection_id", r.conn.ConnectionID)
	resp, err := r.client.Execute(req, "broker connection lookup")
	if err != nil {
		return nil, apierror.Authentication("broker request failed", err)
	}

	if !resp.IsSuccess() {
		logger.Warn("Broker rejected connection lookup", "status", resp.StatusCode)
		logging.LogContent(logger, logging.GetContentLogLevel(), "Broker error body", "body", string(resp.Body))
		// Status stays unset: envelope statuses always come from Notion.
		return nil, apierror.Authentication(
			fmt.Sprintf("broker returned status %d for connection %s", resp.StatusCode, r.conn.ConnectionID), nil)
	}

	var body connectionResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, apierror.Authentication("broker response is not valid JSON", err)
	}

	accessToken := body.Credentials.AccessToken
	if accessToken == "" {
		accessToken = body.AccessToken
	}
	if accessToken == "" {
		return nil, apierror.Authentication("broker response did not contain an access token", nil)
	}

	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if body.Credentials.ExpiresAt != "" {
		expiry, err := time.Parse(time.RFC3339, body.Credentials.ExpiresAt)
		if err != nil {
			logger.Warn("Ignoring unparseable token expiry", "expires_at", body.Credentials.ExpiresAt, "error", err)
		} else {
			token.Expiry = expiry
		}
	}
	return token, nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

// MaskSecret redacts a secret for logging, keeping the first and last four characters.
func MaskSecret(value string) string {
	if value == "" {
		return "<empty>"
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}
