// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package dispatch

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/markdown"
)

func TestBuildRequest_Routes(t *testing.T) {
	props := map[string]any{"Name": map[string]any{"title": map[string]any{}}}

	tests := []struct {
		tool   Tool
		args   Args
		method string
		path   string
	}{
		{ToolSearch, Args{}, http.MethodPost, "/search"},
		{ToolGetDatabase, Args{"database_id": "db1"}, http.MethodGet, "/databases/db1"},
		{ToolQueryDatabase, Args{"database_id": "db1"}, http.MethodPost, "/databases/db1/query"},
		{ToolCreateDatabase, Args{"parent_page_id": "p1", "title": "Tasks", "properties": props}, http.MethodPost, "/databases"},
		{ToolGetPage, Args{"page_id": "p1"}, http.MethodGet, "/pages/p1"},
		{ToolCreatePage, Args{"parent_id": "p1", "properties": props}, http.MethodPost, "/pages"},
		{ToolUpdatePage, Args{"page_id": "p1", "properties": props}, http.MethodPatch, "/pages/p1"},
		{ToolGetBlockChildren, Args{"block_id": "b1"}, http.MethodGet, "/blocks/b1/children"},
		{ToolAppendBlocks, Args{"block_id": "b1", "children": []any{map[string]any{"type": "divider"}}}, http.MethodPatch, "/blocks/b1/children"},
		{ToolGetCurrentUser, Args{}, http.MethodGet, "/users/me"},
	}

	require.Len(t, tests, len(AllTools()), "every tool is routed")
	for _, tt := range tests {
		t.Run(tt.tool.Name(), func(t *testing.T) {
			req, err := buildRequest(tt.tool, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			if tt.method == http.MethodGet {
				assert.Nil(t, req.Body)
			}
		})
	}
}

func TestBuildRequest_PathIDsAreEscaped(t *testing.T) {
	req, err := buildRequest(ToolGetPage, Args{"page_id": "../users/me"})
	require.NoError(t, err)
	assert.Equal(t, "/pages/..%2Fusers%2Fme", req.Path)
}

func TestBuildSearch(t *testing.T) {
	req, err := buildRequest(ToolSearch, Args{
		"query":          "roadmap",
		"filter_type":    "database",
		"sort_direction": "descending",
		"start_cursor":   "cur-1",
		"page_size":      float64(500),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"query":        "roadmap",
		"filter":       map[string]any{"property": "object", "value": "database"},
		"sort":         map[string]any{"direction": "descending", "timestamp": "last_edited_time"},
		"start_cursor": "cur-1",
		"page_size":    100,
	}, req.Body)

	empty, err := buildRequest(ToolSearch, Args{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, empty.Body)

	_, err = buildRequest(ToolSearch, Args{"filter_type": "block"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInvalidArgument, apierror.KindOf(err))
}

func TestBuildQueryDatabase_FilterAlias(t *testing.T) {
	filter := map[string]any{"property": "Done", "checkbox": map[string]any{"equals": true}}
	sorts := []any{map[string]any{"property": "Due", "direction": "ascending"}}

	req, err := buildRequest(ToolQueryDatabase, Args{
		"database_id":     "db1",
		"filter_criteria": filter,
		"sorts":           sorts,
		"page_size":       0,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"filter": filter, "sorts": sorts, "page_size": 1}, req.Body)

	_, err = buildRequest(ToolQueryDatabase, Args{"database_id": "db1", "filter": []any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter")
}

func TestBuildCreateDatabase(t *testing.T) {
	props := map[string]any{"Name": map[string]any{"title": map[string]any{}}}
	req, err := buildRequest(ToolCreateDatabase, Args{"parent_page_id": "p1", "title": "Reading list", "properties": props})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"parent": map[string]any{"type": "page_id", "page_id": "p1"},
		"title": []any{
			map[string]any{"type": "text", "text": map[string]any{"content": "Reading list"}},
		},
		"properties": props,
	}, req.Body)

	_, err = buildRequest(ToolCreateDatabase, Args{"parent_page_id": "p1", "title": "x", "properties": "not an object"})
	require.Error(t, err)
	assert.Equal(t, "properties", mustAPIError(t, err).Field)
}

func TestBuildCreatePage(t *testing.T) {
	props := map[string]any{"title": []any{}}

	t.Run("page parent by default", func(t *testing.T) {
		req, err := buildRequest(ToolCreatePage, Args{"parent_id": "p1", "properties": props})
		require.NoError(t, err)
		body := req.Body.(map[string]any)
		assert.Equal(t, map[string]any{"type": "page_id", "page_id": "p1"}, body["parent"])
		assert.NotContains(t, body, "children")
	})

	t.Run("database parent", func(t *testing.T) {
		req, err := buildRequest(ToolCreatePage, Args{"parent_id": "db1", "parent_type": "database", "properties": props})
		require.NoError(t, err)
		body := req.Body.(map[string]any)
		assert.Equal(t, map[string]any{"type": "database_id", "database_id": "db1"}, body["parent"])
	})

	t.Run("children then markdown", func(t *testing.T) {
		explicit := map[string]any{"object": "block", "type": "divider", "divider": map[string]any{}}
		req, err := buildRequest(ToolCreatePage, Args{
			"parent_id":  "p1",
			"properties": props,
			"children":   []any{explicit},
			"markdown":   "# Heading",
		})
		require.NoError(t, err)
		children := req.Body.(map[string]any)["children"].([]any)
		require.Len(t, children, 2)
		assert.Equal(t, explicit, children[0])
		assert.Equal(t, "heading_1", children[1].(markdown.Block)["type"])
	})

	t.Run("bad parent type", func(t *testing.T) {
		_, err := buildRequest(ToolCreatePage, Args{"parent_id": "p1", "parent_type": "workspace", "properties": props})
		require.Error(t, err)
		assert.Equal(t, "parent_type", mustAPIError(t, err).Field)
	})
}

func TestBuildUpdatePage(t *testing.T) {
	props := map[string]any{"Status": map[string]any{"select": map[string]any{"name": "Done"}}}

	req, err := buildRequest(ToolUpdatePage, Args{"page_id": "p1", "properties": props})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"properties": props}, req.Body)

	req, err = buildRequest(ToolUpdatePage, Args{"page_id": "p1", "properties": props, "archived": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"properties": props, "archived": true}, req.Body)

	_, err = buildRequest(ToolUpdatePage, Args{"page_id": "p1", "properties": props, "archived": "sometimes"})
	require.Error(t, err)
}

func TestBuildGetBlockChildren_Query(t *testing.T) {
	req, err := buildRequest(ToolGetBlockChildren, Args{"block_id": "b1", "start_cursor": "c2", "page_size": 25})
	require.NoError(t, err)
	assert.Equal(t, "c2", req.Query.Get("start_cursor"))
	assert.Equal(t, "25", req.Query.Get("page_size"))
	assert.Nil(t, req.Body)

	req, err = buildRequest(ToolGetBlockChildren, Args{"block_id": "b1"})
	require.NoError(t, err)
	assert.Empty(t, req.Query)
}

func TestBuildAppendBlocks(t *testing.T) {
	t.Run("markdown only", func(t *testing.T) {
		req, err := buildRequest(ToolAppendBlocks, Args{"block_id": "b1", "markdown": "- one\n- two"})
		require.NoError(t, err)
		children := req.Body.(map[string]any)["children"].([]any)
		assert.Len(t, children, 2)
	})

	t.Run("children must be an array", func(t *testing.T) {
		_, err := buildRequest(ToolAppendBlocks, Args{"block_id": "b1", "children": map[string]any{}})
		require.Error(t, err)
		assert.Equal(t, "children", mustAPIError(t, err).Field)
	})

	t.Run("too many markdown blocks", func(t *testing.T) {
		md := strings.Repeat("paragraph\n\n", markdown.MaxBlocksPerRequest+50)
		_, err := buildRequest(ToolAppendBlocks, Args{"block_id": "b1", "markdown": md})
		require.Error(t, err)
		apiErr := mustAPIError(t, err)
		assert.Equal(t, apierror.KindInvalidArgument, apiErr.Kind)
		assert.Equal(t, "markdown", apiErr.Field)
		assert.Contains(t, apiErr.Message, "got 150")
	})

	t.Run("children at the limit", func(t *testing.T) {
		children := make([]any, markdown.MaxBlocksPerRequest)
		for i := range children {
			children[i] = map[string]any{"object": "block", "type": "divider", "divider": map[string]any{}}
		}
		_, err := buildRequest(ToolAppendBlocks, Args{"block_id": "b1", "children": children})
		require.NoError(t, err)

		_, err = buildRequest(ToolCreatePage, Args{
			"parent_id":  "p1",
			"properties": map[string]any{},
			"children":   append(children, children[0]),
		})
		require.Error(t, err)
		assert.Equal(t, "children", mustAPIError(t, err).Field)
	})

	t.Run("empty children", func(t *testing.T) {
		_, err := buildRequest(ToolAppendBlocks, Args{"block_id": "b1", "children": []any{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one block")
	})
}

func mustAPIError(t *testing.T, err error) *apierror.Error {
	t.Helper()
	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected *apierror.Error, got %T", err)
	return apiErr
}
