// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody records whether Close was called.
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type stubDoer struct {
	resp *http.Response
	err  error
	reqs []*http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func TestExecute_ReadsAndClosesBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"object":"list"}`)}
	doer := &stubDoer{resp: &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"X-Test": []string{"1"}},
		Body:       body,
	}}
	client := NewSafeHTTPClient(doer, 0, nil)

	req, err := http.NewRequest(http.MethodGet, "https://example.test/v1/users/me", nil)
	require.NoError(t, err)

	resp, err := client.Execute(req, "get user")
	require.NoError(t, err)

	assert.True(t, body.closed, "body must be closed")
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, `{"object":"list"}`, string(resp.Body))
	assert.Equal(t, "1", resp.Header.Get("X-Test"))
}

func TestExecute_NonSuccessIsNotAnError(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"code":"object_not_found"}`)}
	doer := &stubDoer{resp: &http.Response{StatusCode: http.StatusNotFound, Body: body}}
	client := NewSafeHTTPClient(doer, 0, nil)

	req, _ := http.NewRequest(http.MethodGet, "https://example.test/v1/pages/x", nil)
	resp, err := client.Execute(req, "get page")
	require.NoError(t, err)

	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, body.closed)
}

func TestExecute_TransportError(t *testing.T) {
	doer := &stubDoer{err: errors.New("connection refused")}
	client := NewSafeHTTPClient(doer, 0, nil)

	req, _ := http.NewRequest(http.MethodGet, "https://example.test", nil)
	resp, err := client.Execute(req, "lookup")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "lookup: request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExecute_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(data)
	}))
	defer server.Close()

	client := NewSafeHTTPClient(nil, 0, nil)
	req, err := NewJSONRequest(context.Background(), http.MethodPost, server.URL, map[string]any{"a": 1})
	require.NoError(t, err)

	resp, err := client.Execute(req, "echo")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"a":1}`, string(resp.Body))
}

func TestWithAutoCleanup(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		err := WithAutoCleanup(nil, func(*http.Response) error { return nil })
		assert.EqualError(t, err, "nil response provided")
	})

	t.Run("closes on callback error", func(t *testing.T) {
		body := &trackingBody{Reader: strings.NewReader("x")}
		err := WithAutoCleanup(&http.Response{Body: body}, func(*http.Response) error {
			return errors.New("boom")
		})
		assert.EqualError(t, err, "boom")
		assert.True(t, body.closed)
	})
}

func TestNewJSONRequest(t *testing.T) {
	t.Run("without payload", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodGet, "https://example.test/v1/users/me", nil)
		require.NoError(t, err)
		assert.Nil(t, req.Body)
		assert.Empty(t, req.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
	})

	t.Run("with payload", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodPatch, "https://example.test/v1/pages/p", map[string]any{"archived": true})
		require.NoError(t, err)
		data, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"archived":true}`, string(data))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	})

	t.Run("unencodable payload", func(t *testing.T) {
		_, err := NewJSONRequest(context.Background(), http.MethodPost, "https://example.test", map[string]any{"c": make(chan int)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode request body")
	})
}
