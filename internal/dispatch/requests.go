// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package dispatch

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gebl/notion-mcp-server/internal/apierror"
	"github.com/gebl/notion-mcp-server/internal/markdown"
	"github.com/gebl/notion-mcp-server/internal/notion"
)

// buildRequest validates args and produces the Notion call for tool. It never
// touches the network.
func buildRequest(tool Tool, args Args) (notion.Request, error) {
	switch tool {
	case ToolSearch:
		return buildSearch(args)
	case ToolGetDatabase:
		id, err := args.RequireString("database_id")
		if err != nil {
			return notion.Request{}, err
		}
		return notion.Request{Method: http.MethodGet, Path: notion.Path("databases", id)}, nil
	case ToolQueryDatabase:
		return buildQueryDatabase(args)
	case ToolCreateDatabase:
		return buildCreateDatabase(args)
	case ToolGetPage:
		id, err := args.RequireString("page_id")
		if err != nil {
			return notion.Request{}, err
		}
		return notion.Request{Method: http.MethodGet, Path: notion.Path("pages", id)}, nil
	case ToolCreatePage:
		return buildCreatePage(args)
	case ToolUpdatePage:
		return buildUpdatePage(args)
	case ToolGetBlockChildren:
		return buildGetBlockChildren(args)
	case ToolAppendBlocks:
		return buildAppendBlocks(args)
	case ToolGetCurrentUser:
		return notion.Request{Method: http.MethodGet, Path: notion.Path("users", "me")}, nil
	default:
		return notion.Request{}, apierror.InvalidArgument("tool", fmt.Sprintf("unknown tool %d", int(tool)))
	}
}

// paginate copies start_cursor and page_size into body.
func paginate(args Args, body map[string]any) error {
	cursor, err := args.OptionalString("start_cursor")
	if err != nil {
		return err
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	size, err := args.OptionalPageSize()
	if err != nil {
		return err
	}
	if size > 0 {
		body["page_size"] = size
	}
	return nil
}

func buildSearch(args Args) (notion.Request, error) {
	body := map[string]any{}

	query, err := args.OptionalString("query")
	if err != nil {
		return notion.Request{}, err
	}
	if query != "" {
		body["query"] = query
	}

	filterType, err := args.OptionalEnum("filter_type", "page", "database")
	if err != nil {
		return notion.Request{}, err
	}
	if filterType != "" {
		body["filter"] = map[string]any{"property": "object", "value": filterType}
	}

	direction, err := args.OptionalEnum("sort_direction", "ascending", "descending")
	if err != nil {
		return notion.Request{}, err
	}
	if direction != "" {
		body["sort"] = map[string]any{"direction": direction, "timestamp": "last_edited_time"}
	}

	if err := paginate(args, body); err != nil {
		return notion.Request{}, err
	}
	return notion.Request{Method: http.MethodPost, Path: notion.Path("search"), Body: body}, nil
}

func buildQueryDatabase(args Args) (notion.Request, error) {
	id, err := args.RequireString("database_id")
	if err != nil {
		return notion.Request{}, err
	}

	body := map[string]any{}

	field := "filter"
	if !args.present(field) {
		field = "filter_criteria"
	}
	filter, err := args.OptionalObject(field)
	if err != nil {
		return notion.Request{}, err
	}
	if filter != nil {
		body["filter"] = filter
	}

	sorts, err := args.OptionalArray("sorts")
	if err != nil {
		return notion.Request{}, err
	}
	if sorts != nil {
		body["sorts"] = sorts
	}

	if err := paginate(args, body); err != nil {
		return notion.Request{}, err
	}
	return notion.Request{Method: http.MethodPost, Path: notion.Path("databases", id, "query"), Body: body}, nil
}

func buildCreateDatabase(args Args) (notion.Request, error) {
	parentID, err := args.RequireString("parent_page_id")
	if err != nil {
		return notion.Request{}, err
	}
	title, err := args.RequireString("title")
	if err != nil {
		return notion.Request{}, err
	}
	properties, err := args.RequireObject("properties")
	if err != nil {
		return notion.Request{}, err
	}

	body := map[string]any{
		"parent": map[string]any{"type": "page_id", "page_id": parentID},
		"title": []any{
			map[string]any{"type": "text", "text": map[string]any{"content": title}},
		},
		"properties": properties,
	}
	return notion.Request{Method: http.MethodPost, Path: notion.Path("databases"), Body: body}, nil
}

func buildCreatePage(args Args) (notion.Request, error) {
	parentID, err := args.RequireString("parent_id")
	if err != nil {
		return notion.Request{}, err
	}
	properties, err := args.RequireObject("properties")
	if err != nil {
		return notion.Request{}, err
	}
	parentType, err := args.OptionalEnum("parent_type", "page", "database")
	if err != nil {
		return notion.Request{}, err
	}

	parent := map[string]any{"type": "page_id", "page_id": parentID}
	if parentType == "database" {
		parent = map[string]any{"type": "database_id", "database_id": parentID}
	}

	body := map[string]any{
		"parent":     parent,
		"properties": properties,
	}

	children, err := childBlocks(args)
	if err != nil {
		return notion.Request{}, err
	}
	if len(children) > 0 {
		body["children"] = children
	}
	return notion.Request{Method: http.MethodPost, Path: notion.Path("pages"), Body: body}, nil
}

func buildUpdatePage(args Args) (notion.Request, error) {
	id, err := args.RequireString("page_id")
	if err != nil {
		return notion.Request{}, err
	}
	properties, err := args.RequireObject("properties")
	if err != nil {
		return notion.Request{}, err
	}

	body := map[string]any{"properties": properties}
	archived, ok, err := args.OptionalBool("archived")
	if err != nil {
		return notion.Request{}, err
	}
	if ok {
		body["archived"] = archived
	}
	return notion.Request{Method: http.MethodPatch, Path: notion.Path("pages", id), Body: body}, nil
}

func buildGetBlockChildren(args Args) (notion.Request, error) {
	id, err := args.RequireString("block_id")
	if err != nil {
		return notion.Request{}, err
	}

	params := map[string]any{}
	if err := paginate(args, params); err != nil {
		return notion.Request{}, err
	}

	query := url.Values{}
	if cursor, ok := params["start_cursor"].(string); ok {
		query.Set("start_cursor", cursor)
	}
	if size, ok := params["page_size"].(int); ok {
		query.Set("page_size", strconv.Itoa(size))
	}
	return notion.Request{Method: http.MethodGet, Path: notion.Path("blocks", id, "children"), Query: query}, nil
}

func buildAppendBlocks(args Args) (notion.Request, error) {
	id, err := args.RequireString("block_id")
	if err != nil {
		return notion.Request{}, err
	}
	if !args.present("children") && !args.present("markdown") {
		return notion.Request{}, apierror.MissingArgument("children")
	}

	children, err := childBlocks(args)
	if err != nil {
		return notion.Request{}, err
	}
	if len(children) == 0 {
		return notion.Request{}, apierror.InvalidArgument("children", "must contain at least one block")
	}
	return notion.Request{
		Method: http.MethodPatch,
		Path:   notion.Path("blocks", id, "children"),
		Body:   map[string]any{"children": children},
	}, nil
}

// childBlocks returns the explicit children followed by any blocks converted
// from the markdown argument.
func childBlocks(args Args) ([]any, error) {
	children, err := args.OptionalArray("children")
	if err != nil {
		return nil, err
	}
	var md string
	if args.present("markdown") {
		// Not trimmed: leading indentation is significant in markdown.
		s, ok := args["markdown"].(string)
		if !ok {
			return nil, apierror.InvalidArgument("markdown", "must be a string")
		}
		md = s
	}
	for _, block := range markdown.ToBlocks(md) {
		children = append(children, block)
	}
	if len(children) > markdown.MaxBlocksPerRequest {
		field := "children"
		if md != "" {
			field = "markdown"
		}
		return nil, apierror.InvalidArgument(field, fmt.Sprintf(
			"at most %d blocks can be sent in one request, got %d; send the rest with append_blocks",
			markdown.MaxBlocksPerRequest, len(children)))
	}
	return children, nil
}
