// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

// blocks.go - Markdown to Notion block conversion.
//
// Assistants tend to write content as markdown; Notion wants block objects.
// ToBlocks parses markdown with gomarkdown and walks the resulting AST,
// emitting one Notion block per markdown block.
//
// Supported blocks:
//   - headings (# to ###, deeper levels become heading_3)
//   - paragraphs, block quotes and dividers
//   - bulleted, numbered and task lists, with nested lists as children
//   - fenced and indented code blocks with a language
//   - tables
//   - a paragraph holding only an image becomes an external image block
//
// Inline bold, italic, strikethrough, code and links become rich text
// annotations. Text runs longer than Notion's 2000 character limit (counted
// in UTF-16 code units) are split.
//
// Notion accepts two levels of nesting per request. Deeper children are lifted
// to follow their parent at the deepest allowed level; a table that would
// nest too deep becomes one paragraph per row.
//
// Usage Example:
//   blocks := markdown.ToBlocks("# Notes\n\n- first\n- second")
//   payload := map[string]any{"children": blocks}

package markdown

import (
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

const (
	// MaxTextLength is the longest content Notion accepts in one rich text
	// object, in UTF-16 code units.
	MaxTextLength = 2000

	// MaxBlocksPerRequest is the most children Notion accepts in one request.
	MaxBlocksPerRequest = 100

	// MaxNestingDepth is how many levels of children one request may carry.
	MaxNestingDepth = 2
)

// Block is a Notion block object ready to be JSON encoded.
type Block = map[string]any

const extensions = parser.NoIntraEmphasis | parser.Tables | parser.FencedCode |
	parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
	parser.BackslashLineBreak | parser.NoEmptyLineBeforeBlock

// ToBlocks converts markdown into Notion blocks. Empty input yields no blocks.
func ToBlocks(md string) []Block {
	if strings.TrimSpace(md) == "" {
		return nil
	}
	// gomarkdown expects \n line endings.
	src := strings.ReplaceAll(md, "\r\n", "\n")
	doc := markdown.Parse([]byte(src), parser.NewWithExtensions(extensions))
	return limitNesting(convertChildren(doc), 0)
}

// limitNesting keeps blocks at level within MaxNestingDepth. Children that
// would sit deeper are lifted to follow their parent.
func limitNesting(blocks []Block, level int) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		kind, _ := b["type"].(string)
		body, _ := b[kind].(map[string]any)
		children, _ := body["children"].([]Block)
		switch {
		case len(children) == 0:
			out = append(out, b)
		case level < MaxNestingDepth:
			body["children"] = limitNesting(children, level+1)
			out = append(out, b)
		case kind == "table":
			out = append(out, tableRowsAsParagraphs(children)...)
		default:
			delete(body, "children")
			out = append(out, b)
			out = append(out, limitNesting(children, level)...)
		}
	}
	return out
}

// tableRowsAsParagraphs renders table rows as "a | b | c" paragraphs.
func tableRowsAsParagraphs(rows []Block) []Block {
	paragraphs := make([]Block, 0, len(rows))
	for _, row := range rows {
		body, _ := row["table_row"].(map[string]any)
		cells, _ := body["cells"].([][]map[string]any)
		rt := make([]map[string]any, 0)
		for i, cell := range cells {
			if i > 0 {
				rt = append(rt, plainText(" | ")...)
			}
			rt = append(rt, cell...)
		}
		paragraphs = append(paragraphs, newBlock("paragraph", map[string]any{"rich_text": rt}))
	}
	return paragraphs
}

func convertChildren(parent ast.Node) []Block {
	var blocks []Block
	for _, child := range parent.GetChildren() {
		blocks = append(blocks, convertBlock(child)...)
	}
	return blocks
}

func convertBlock(node ast.Node) []Block {
	switch n := node.(type) {
	case *ast.Heading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 3 {
			level = 3
		}
		kind := "heading_" + strconv.Itoa(level)
		return []Block{newBlock(kind, map[string]any{"rich_text": richText(n)})}

	case *ast.Paragraph:
		if img := soleImage(n); img != nil {
			return []Block{imageBlock(img)}
		}
		rt := richText(n)
		if len(rt) == 0 {
			return nil
		}
		return []Block{newBlock("paragraph", map[string]any{"rich_text": rt})}

	case *ast.List:
		var items []Block
		for _, child := range n.GetChildren() {
			if item, ok := child.(*ast.ListItem); ok {
				items = append(items, listItem(item, n.ListFlags&ast.ListTypeOrdered != 0))
			}
		}
		return items

	case *ast.CodeBlock:
		code := strings.TrimRight(string(n.Literal), "\n")
		return []Block{newBlock("code", map[string]any{
			"rich_text": plainText(code),
			"language":  codeLanguage(string(n.Info)),
		})}

	case *ast.BlockQuote:
		return []Block{quoteBlock(n)}

	case *ast.HorizontalRule:
		return []Block{newBlock("divider", map[string]any{})}

	case *ast.Table:
		return []Block{tableBlock(n)}

	case *ast.HTMLBlock:
		text := strings.TrimSpace(string(n.Literal))
		if text == "" {
			return nil
		}
		return []Block{newBlock("paragraph", map[string]any{"rich_text": plainText(text)})}

	default:
		if leaf := node.AsLeaf(); leaf != nil {
			text := strings.TrimSpace(string(leaf.Literal))
			if text == "" {
				return nil
			}
			return []Block{newBlock("paragraph", map[string]any{"rich_text": plainText(text)})}
		}
		return convertChildren(node)
	}
}

func newBlock(kind string, body map[string]any) Block {
	return Block{
		"object": "block",
		"type":   kind,
		kind:     body,
	}
}

// listItem converts one list item. The first paragraph becomes the item's
// text; anything after it (further paragraphs, nested lists, code) becomes
// child blocks.
func listItem(item *ast.ListItem, ordered bool) Block {
	kind := "bulleted_list_item"
	if ordered {
		kind = "numbered_list_item"
	}

	var text []segment
	var children []Block
	for i, child := range item.GetChildren() {
		if p, ok := child.(*ast.Paragraph); ok && i == 0 {
			text = inlineSegments(p)
			continue
		}
		children = append(children, convertBlock(child)...)
	}

	body := map[string]any{}
	if checked, rest, ok := taskMarker(text); ok && !ordered {
		kind = "to_do"
		body["checked"] = checked
		text = rest
	}
	body["rich_text"] = render(text)
	if len(children) > 0 {
		body["children"] = children
	}
	return newBlock(kind, body)
}

// taskMarker detects a leading "[ ] " or "[x] " and strips it.
func taskMarker(text []segment) (checked bool, rest []segment, ok bool) {
	if len(text) == 0 {
		return false, nil, false
	}
	content := text[0].text
	switch {
	case strings.HasPrefix(content, "[ ] "):
	case strings.HasPrefix(content, "[x] "), strings.HasPrefix(content, "[X] "):
		checked = true
	default:
		return false, nil, false
	}

	first := text[0]
	first.text = content[4:]
	rest = append([]segment{first}, text[1:]...)
	return checked, rest, true
}

func quoteBlock(q *ast.BlockQuote) Block {
	var text []segment
	var children []Block
	for _, child := range q.GetChildren() {
		p, ok := child.(*ast.Paragraph)
		if !ok {
			children = append(children, convertBlock(child)...)
			continue
		}
		if len(text) > 0 {
			text = append(text, segment{text: "\n"})
		}
		text = append(text, inlineSegments(p)...)
	}

	body := map[string]any{"rich_text": render(text)}
	if len(children) > 0 {
		body["children"] = children
	}
	return newBlock("quote", body)
}

func tableBlock(t *ast.Table) Block {
	var rows []Block
	width := 0
	hasHeader := false

	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for _, child := range node.GetChildren() {
			switch c := child.(type) {
			case *ast.TableHeader:
				hasHeader = true
				collect(c)
			case *ast.TableBody, *ast.TableFooter:
				collect(c)
			case *ast.TableRow:
				var cells [][]map[string]any
				for _, cell := range c.GetChildren() {
					cells = append(cells, richText(cell))
				}
				if len(cells) > width {
					width = len(cells)
				}
				rows = append(rows, newBlock("table_row", map[string]any{"cells": cells}))
			}
		}
	}
	collect(t)

	// Notion requires every row to have table_width cells.
	for _, row := range rows {
		body := row["table_row"].(map[string]any)
		cells := body["cells"].([][]map[string]any)
		for len(cells) < width {
			cells = append(cells, []map[string]any{})
		}
		body["cells"] = cells
	}

	return newBlock("table", map[string]any{
		"table_width":       width,
		"has_column_header": hasHeader,
		"has_row_header":    false,
		"children":          rows,
	})
}

// soleImage returns the paragraph's image when it has no other content.
func soleImage(p *ast.Paragraph) *ast.Image {
	var img *ast.Image
	for _, child := range p.GetChildren() {
		switch c := child.(type) {
		case *ast.Image:
			if img != nil {
				return nil
			}
			img = c
		case *ast.Text:
			if strings.TrimSpace(string(c.Literal)) != "" {
				return nil
			}
		default:
			return nil
		}
	}
	return img
}

func imageBlock(img *ast.Image) Block {
	body := map[string]any{
		"type":     "external",
		"external": map[string]any{"url": string(img.Destination)},
	}
	if caption := richText(img); len(caption) > 0 {
		body["caption"] = caption
	}
	return newBlock("image", body)
}

// codeLanguage maps a fence info string onto Notion's language names.
func codeLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return "plain text"
	}
	lang := strings.ToLower(strings.Trim(fields[0], "{}."))
	if alias, ok := languageAliases[lang]; ok {
		return alias
	}
	if _, ok := notionLanguages[lang]; ok {
		return lang
	}
	return "plain text"
}

var languageAliases = map[string]string{
	"golang":     "go",
	"js":         "javascript",
	"jsx":        "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"py":         "python",
	"rb":         "ruby",
	"rs":         "rust",
	"sh":         "shell",
	"zsh":        "shell",
	"console":    "shell",
	"yml":        "yaml",
	"cs":         "c#",
	"csharp":     "c#",
	"cpp":        "c++",
	"objc":       "objective-c",
	"kt":         "kotlin",
	"md":         "markdown",
	"text":       "plain text",
	"txt":        "plain text",
	"plaintext":  "plain text",
	"dockerfile": "docker",
	"ps1":        "powershell",
	"tf":         "hcl",
}

var notionLanguages = map[string]struct{}{
	"abap": {}, "arduino": {}, "bash": {}, "basic": {}, "c": {}, "clojure": {},
	"coffeescript": {}, "c++": {}, "c#": {}, "css": {}, "dart": {}, "diff": {},
	"docker": {}, "elixir": {}, "elm": {}, "erlang": {}, "flow": {}, "fortran": {},
	"f#": {}, "gherkin": {}, "glsl": {}, "go": {}, "graphql": {}, "groovy": {},
	"haskell": {}, "hcl": {}, "html": {}, "java": {}, "javascript": {}, "json": {},
	"julia": {}, "kotlin": {}, "latex": {}, "less": {}, "lisp": {}, "livescript": {},
	"lua": {}, "makefile": {}, "markdown": {}, "markup": {}, "matlab": {},
	"mermaid": {}, "nix": {}, "objective-c": {}, "ocaml": {}, "pascal": {},
	"perl": {}, "php": {}, "plain text": {}, "powershell": {}, "prolog": {},
	"protobuf": {}, "python": {}, "r": {}, "reason": {}, "ruby": {}, "rust": {},
	"sass": {}, "scala": {}, "scheme": {}, "scss": {}, "shell": {}, "sql": {},
	"swift": {}, "toml": {}, "typescript": {}, "vb.net": {}, "verilog": {},
	"vhdl": {}, "visual basic": {}, "webassembly": {}, "xml": {}, "yaml": {},
}
