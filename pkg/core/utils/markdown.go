package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CleanMarkdown strips surrounding whitespace and outer markdown code blocks
// so model output is pure Markdown ready for rendering.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}

	cleaned = strings.TrimSuffix(cleaned, "```")
	// Drop the opening fence with its info string (```markdown, ```json, ...)
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
		cleaned = cleaned[nl+1:]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// MarkdownHeadings returns the text of every heading in document order, e.g.
// the "Strengths" / "Weaknesses" blocks of a SWOT answer.
func MarkdownHeadings(input string) []string {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var headings []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		collectText(h, source, &sb)
		if t := strings.TrimSpace(sb.String()); t != "" {
			headings = append(headings, t)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func collectText(n ast.Node, source []byte, sb *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
			continue
		}
		collectText(c, source, sb)
	}
}
