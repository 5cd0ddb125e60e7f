// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package dispatch

import "fmt"

// Tool is the closed set of operations the dispatcher can perform.
type Tool int

const (
	ToolSearch Tool = iota
	ToolGetDatabase
	ToolQueryDatabase
	ToolCreateDatabase
	ToolGetPage
	ToolCreatePage
	ToolUpdatePage
	ToolGetBlockChildren
	ToolAppendBlocks
	ToolGetCurrentUser
)

// MCPPrefix is prepended to every tool name exposed over MCP.
const MCPPrefix = "notion_"

var toolNames = [...]string{
	ToolSearch:           "search",
	ToolGetDatabase:      "get_database",
	ToolQueryDatabase:    "query_database",
	ToolCreateDatabase:   "create_database",
	ToolGetPage:          "get_page",
	ToolCreatePage:       "create_page",
	ToolUpdatePage:       "update_page",
	ToolGetBlockChildren: "get_block_children",
	ToolAppendBlocks:     "append_blocks",
	ToolGetCurrentUser:   "get_current_user",
}

// Name returns the short tool name, e.g. "get_page".
func (t Tool) Name() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("tool(%d)", int(t))
	}
	return toolNames[t]
}

// MCPName returns the name registered with the MCP server, e.g. "notion_get_page".
func (t Tool) MCPName() string {
	return MCPPrefix + t.Name()
}

func (t Tool) String() string {
	return t.Name()
}

func (t Tool) valid() bool {
	return t >= 0 && int(t) < len(toolNames)
}

// AllTools lists every tool in declaration order.
func AllTools() []Tool {
	tools := make([]Tool, len(toolNames))
	for i := range toolNames {
		tools[i] = Tool(i)
	}
	return tools
}
