// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package resources

import (
	"fmt"
)

// toolDescriptions holds the client-facing description of every tool, keyed by
// the short tool name (without the notion_ prefix).
var toolDescriptions = map[string]string{
	"search": "Search pages and databases shared with the integration by title.\n\nUse this first when the user refers to a page or database by name: Notion operations need IDs, and search is how names become IDs. Pattern: search(query) → pick the matching result → use its id with get_page, query_database or get_block_children.\n\nOptional filter_type restricts results to \"page\" or \"database\". sort_direction orders by last edited time. Results are paginated: when has_more is true, pass next_cursor as start_cursor to fetch the next batch.\n\nRESPONSE: Notion's list object with results, has_more and next_cursor.",

	"get_database": "Retrieve a database by ID, including its title and property schema.\n\nCall this before query_database or create_page with a database parent so you know the exact property names and types. Property names are case-sensitive.",

	"query_database": "Query the rows of a database. Each row is a page.\n\nfilter (or its alias filter_criteria) is a Notion filter object, for example {\"property\": \"Done\", \"checkbox\": {\"equals\": true}}. sorts is an array like [{\"property\": \"Due\", \"direction\": \"ascending\"}]. Both may also be given as JSON strings.\n\nUse get_database first to learn the property names. Results are paginated with start_cursor and page_size (max 100).",

	"create_database": "Create a database as a child of an existing page.\n\nparent_page_id is the page that will contain the database, title is its plain-text title, and properties is the Notion property schema. Every database needs exactly one title property, for example {\"Name\": {\"title\": {}}, \"Due\": {\"date\": {}}}.",

	"get_page": "Retrieve a page's properties by ID.\n\nThis returns metadata and property values only. To read the body of the page, call get_block_children with the page ID as block_id.",

	"create_page": "Create a page under a page or inside a database.\n\nparent_type is \"page\" (default) or \"database\". For a page parent, properties usually holds only the title: {\"title\": [{\"text\": {\"content\": \"Meeting notes\"}}]}. For a database parent, properties must match the database schema (see get_database).\n\nBody content can be given as children (an array of Notion block objects), as markdown (converted to blocks: headings, lists, to-dos, quotes, code, tables, dividers), or both; markdown blocks are appended after children.",

	"update_page": "Update the properties of a page. Only the properties you pass are changed.\n\nSet archived to true to move the page to the trash, or false to restore it. This tool does not change page content; use append_blocks to add content.",

	"get_block_children": "List the child blocks of a block. Pass a page ID as block_id to read the page body.\n\nBlocks with has_children set contain nested content; call this tool again with that block's id to read it. Results are paginated with start_cursor and page_size (max 100).",

	"append_blocks": "Append content to the end of a page or block.\n\nProvide children (an array of Notion block objects), markdown (converted to blocks), or both. At least one block is required. Example markdown: \"## Summary\\n- First point\\n- [ ] Follow up\".",

	"get_current_user": "Return the bot user behind the current Notion connection, including the workspace it belongs to.\n\nUse this to check that the connection works before doing anything else.",
}

// GetToolDescription returns the description for a specific tool
func GetToolDescription(toolName string) (string, error) {
	desc, exists := toolDescriptions[toolName]
	if !exists {
		return "", fmt.Errorf("description not found for tool: %s", toolName)
	}
	return desc, nil
}

// MustGetToolDescription returns the description for a tool or panics if not found.
// Only used while registering tools at startup.
func MustGetToolDescription(toolName string) string {
	desc, err := GetToolDescription(toolName)
	if err != nil {
		panic(err.Error())
	}
	return desc
}
