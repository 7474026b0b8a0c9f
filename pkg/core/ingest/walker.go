package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// DOCUMENT-ORDER WALKER
// =============================================================================

// Walker iterates a parsed HTML tree in document (pre-order) order, starting at
// a given node and continuing past its subtree into the rest of the document.
type Walker struct {
	next *html.Node
}

// NewWalker positions a walker on start. The first call to Next returns start.
func NewWalker(start *html.Node) *Walker {
	return &Walker{next: start}
}

// Next returns the current node and advances, or nil when the document ends.
func (w *Walker) Next() *html.Node {
	cur := w.next
	if cur != nil {
		w.next = following(cur)
	}
	return cur
}

// following returns the node after n in pre-order: first child, else next
// sibling, else the next sibling of the nearest ancestor that has one.
func following(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.NextSibling != nil {
			return cur.NextSibling
		}
	}
	return nil
}

// blockContainers are the element kinds whose text is collected between anchors.
var blockContainers = map[atom.Atom]bool{
	atom.Div: true,
}

func isBlockContainer(n *html.Node) bool {
	return n.Type == html.ElementNode && blockContainers[n.DataAtom]
}

// strippedText concatenates every visible text node under n, each trimmed of
// surrounding whitespace, with no separator.
func strippedText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			sb.WriteString(strings.TrimSpace(node.Data))
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

// isNoiseBlock reports page furniture that sits between sections: the
// "Table of Contents" back-links and bare page numbers.
func isNoiseBlock(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "table of contents") {
		return true
	}
	return isAllDigits(trimmed)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// findByID returns the first element in document order whose id equals id,
// falling back to <a name="id"> for older filings.
func findByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	var named *html.Node
	w := NewWalker(root)
	for n := w.Next(); n != nil; n = w.Next() {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Namespace != "" {
				continue
			}
			if a.Key == "id" && a.Val == id {
				return n
			}
			if named == nil && n.DataAtom == atom.A && a.Key == "name" && a.Val == id {
				named = n
			}
		}
	}
	return named
}

// collectBetween walks from begin (inclusive) to end (exclusive) and returns the
// text of every block container met on the way, skipping noise blocks.
func collectBetween(begin, end *html.Node) []string {
	var parts []string
	w := NewWalker(begin)
	for n := w.Next(); n != nil && n != end; n = w.Next() {
		if !isBlockContainer(n) {
			continue
		}
		text := strippedText(n)
		if text == "" || isNoiseBlock(text) {
			continue
		}
		parts = append(parts, text)
	}
	return parts
}
