// Copyright (c) 2025 Gabriel Lawrence
//
// Licensed under the MIT License. See LICENSE file in the project root for full license information.

package markdown

import (
	"strings"
	"unicode/utf16"

	"github.com/gomarkdown/markdown/ast"
)

// segment is a run of text sharing one set of annotations.
type segment struct {
	text          string
	bold          bool
	italic        bool
	strikethrough bool
	code          bool
	link          string
}

func (s segment) sameStyle(o segment) bool {
	return s.bold == o.bold && s.italic == o.italic && s.strikethrough == o.strikethrough &&
		s.code == o.code && s.link == o.link
}

// richText converts the inline children of node into a Notion rich text array.
func richText(node ast.Node) []map[string]any {
	return render(inlineSegments(node))
}

// plainText wraps s as unannotated rich text.
func plainText(s string) []map[string]any {
	return render([]segment{{text: s}})
}

func inlineSegments(node ast.Node) []segment {
	var segs []segment
	collectInline(node.GetChildren(), segment{}, &segs)

	// Paragraph text keeps the newline of its last source line.
	if n := len(segs); n > 0 {
		segs[n-1].text = strings.TrimRight(segs[n-1].text, "\n")
	}
	return segs
}

func collectInline(nodes []ast.Node, style segment, out *[]segment) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.Text:
			appendText(out, style, string(n.Literal))
		case *ast.Code:
			s := style
			s.code = true
			appendText(out, s, string(n.Literal))
		case *ast.Emph:
			s := style
			s.italic = true
			collectInline(n.GetChildren(), s, out)
		case *ast.Strong:
			s := style
			s.bold = true
			collectInline(n.GetChildren(), s, out)
		case *ast.Del:
			s := style
			s.strikethrough = true
			collectInline(n.GetChildren(), s, out)
		case *ast.Link:
			s := style
			s.link = string(n.Destination)
			if len(n.GetChildren()) == 0 {
				appendText(out, s, s.link)
				continue
			}
			collectInline(n.GetChildren(), s, out)
		case *ast.Image:
			s := style
			s.link = string(n.Destination)
			collectInline(n.GetChildren(), s, out)
		case *ast.Hardbreak, *ast.Softbreak:
			appendText(out, style, "\n")
		default:
			if leaf := node.AsLeaf(); leaf != nil {
				appendText(out, style, string(leaf.Literal))
				continue
			}
			collectInline(node.GetChildren(), style, out)
		}
	}
}

// appendText adds text to out, extending the previous segment when the
// style matches.
func appendText(out *[]segment, style segment, text string) {
	if text == "" {
		return
	}
	if n := len(*out); n > 0 && (*out)[n-1].sameStyle(style) {
		(*out)[n-1].text += text
		return
	}
	style.text = text
	*out = append(*out, style)
}

// render produces Notion rich text objects, splitting long runs. The result
// is never nil so it always encodes as a JSON array.
func render(segs []segment) []map[string]any {
	items := make([]map[string]any, 0, len(segs))
	for _, seg := range segs {
		for _, chunk := range splitText(seg.text, MaxTextLength) {
			items = append(items, richTextItem(seg, chunk))
		}
	}
	return items
}

func richTextItem(seg segment, content string) map[string]any {
	text := map[string]any{"content": content}
	if seg.link != "" {
		text["link"] = map[string]any{"url": seg.link}
	}
	item := map[string]any{
		"type": "text",
		"text": text,
	}
	if seg.bold || seg.italic || seg.strikethrough || seg.code {
		item["annotations"] = map[string]any{
			"bold":          seg.bold,
			"italic":        seg.italic,
			"strikethrough": seg.strikethrough,
			"code":          seg.code,
		}
	}
	return item
}

// splitText cuts s into chunks of at most limit UTF-16 code units, the unit
// Notion counts in, without breaking a rune.
func splitText(s string, limit int) []string {
	if s == "" {
		return nil
	}
	var chunks []string
	start, units := 0, 0
	for i, r := range s {
		width := utf16.RuneLen(r)
		if width < 1 {
			width = 1
		}
		if units+width > limit && i > start {
			chunks = append(chunks, s[start:i])
			start, units = i, 0
		}
		units += width
	}
	return append(chunks, s[start:])
}
