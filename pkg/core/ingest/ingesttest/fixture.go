// Package ingesttest builds small 10-K documents and download directories for
// tests of packages that sit on top of ingest.
package ingesttest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Item is one table-of-contents entry with the body text that follows its anchor.
type Item struct {
	Key   string // "Item 1A"
	Title string // "Risk Factors"
	Body  string
}

// CatalogItems returns one Item per extracted section, each body mentioning year.
func CatalogItems(year string) []Item {
	return []Item{
		{"Item 1", "Business", "The company designs consumer products in " + year + "."},
		{"Item 1A", "Risk Factors", "Supply chain risk factors intensified during " + year + "."},
		{"Item 7", "Management's Discussion and Analysis", "Revenue grew in fiscal " + year + "."},
		{"Item 7A", "Quantitative and Qualitative Disclosures about Market Risk", "Interest rate exposure for " + year + "."},
		{"Item 8", "Financial Statements and Supplementary Data", "Balance sheet as of " + year + "."},
		{"Item 9", "Changes in and Disagreements with Accountants on Accounting and Financial Disclosure", "None in " + year + "."},
	}
}

func anchorID(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, " ", ""))
}

// FilingHTML renders a filing with a linked table of contents, page furniture
// between sections and a closing "Item 9A" entry that terminates the last item.
func FilingHTML(items []Item) string {
	all := append(append([]Item{}, items...), Item{Key: "Item 9A", Title: "Controls and Procedures", Body: "Controls were effective."})

	var sb strings.Builder
	sb.WriteString("<html><body>\n<table>\n")
	for _, it := range all {
		fmt.Fprintf(&sb, "<tr><td>%s.</td><td><a href=\"#%s\">%s</a></td><td>%d</td></tr>\n", it.Key, anchorID(it.Key), it.Title, 3)
	}
	sb.WriteString("</table>\n")

	for i, it := range all {
		fmt.Fprintf(&sb, "<div id=\"%s\">%s. %s</div>\n", anchorID(it.Key), it.Key, it.Title)
		fmt.Fprintf(&sb, "<div><span>%s</span></div>\n", it.Body)
		fmt.Fprintf(&sb, "<div>%d</div>\n<div><a href=\"#toc\">Table of Contents</a></div>\n", i+10)
	}
	sb.WriteString("<div>SIGNATURES</div>\n</body></html>\n")
	return sb.String()
}

// WriteFiling stores html as <root>/<symbol>/<filingType>/<id>/primary-document.html
// and returns the document path.
func WriteFiling(t testing.TB, root, symbol, filingType, id, html string) string {
	t.Helper()
	dir := filepath.Join(root, symbol, filingType, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, "primary-document.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
