// Package ingest provides 10-K section extraction, filing selection and the
// EDGAR downloader that populates the local filing directory.
package ingest

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"filing_analyst/pkg/core/apperr"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// 10-K SECTION DEFINITIONS
// Based on SEC Form 10-K structure (https://www.sec.gov/files/reada10k.pdf)
// =============================================================================

// SectionDefinition describes one catalog section and how its table of
// contents row is recognized.
type SectionDefinition struct {
	Key   string // item marker, e.g. "Item 1A"
	Title string // keyword(s) expected in the same row
}

// SectionDefinitions is the fixed catalog of extracted sections, in filing order.
var SectionDefinitions = []SectionDefinition{
	{"Item 1", "Business"},
	{"Item 1A", "Risk Factors"},
	{"Item 7", "Management"},
	{"Item 7A", "Quantitative and Qualitative Disclosures about Market Risk"},
	{"Item 8", "Financial Statements and Supplementary Data"},
	{"Item 9", "Changes in and Disagreements with Accountants on Accounting"},
}

// Section is one extracted region of a 10-K.
type Section struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Year    string `json:"year"`    // four digits, e.g. "2023"
	Content string `json:"content"` // empty when anchors could not be resolved

	// Anchors used during extraction (fragment ids without '#').
	Begin string `json:"-"`
	End   string `json:"-"`

	// Degraded is set when the section could not be located.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Extraction is the result of parsing one filing.
type Extraction struct {
	Symbol   string
	Year     string
	Sections map[string]*Section
}

// Ordered returns the sections in catalog order.
func (e *Extraction) Ordered() []*Section {
	out := make([]*Section, 0, len(SectionDefinitions))
	for _, def := range SectionDefinitions {
		if s, ok := e.Sections[def.Key]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Degraded returns one Degraded error per section that came back empty
// because it could not be located.
func (e *Extraction) Degraded() []error {
	var errs []error
	for _, s := range e.Ordered() {
		if s.Degraded {
			err := apperr.New(apperr.Degraded, "ingest.Extract", "%s %s: %s", s.Key, s.Year, s.Reason)
			errs = append(errs, err.For(e.Symbol, ""))
		}
	}
	return errs
}

// =============================================================================
// PARSER
// =============================================================================

// TenKParser extracts the catalog sections of a 10-K using its internal table
// of contents and the anchors it links to.
type TenKParser struct {
	symbol string
}

// NewTenKParser creates a parser for filings of symbol.
func NewTenKParser(symbol string) *TenKParser {
	return &TenKParser{symbol: symbol}
}

// ParseFile reads the filing at path. The filing year is taken from the
// parent folder name (<CIK>-<YY>-<sequence>). Only an unreadable file or a
// folder name without a year component is an error.
func (p *TenKParser) ParseFile(path string) (*Extraction, error) {
	year, err := YearFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open filing for %s: %w", p.symbol, err)
	}
	defer f.Close()

	return p.Parse(f, year)
}

// Parse extracts every catalog section from the markup in r.
// Missing tables of contents or anchors produce empty sections, never errors.
func (p *TenKParser) Parse(r io.Reader, year string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filing markup for %s: %w", p.symbol, err)
	}

	ext := &Extraction{
		Symbol:   p.symbol,
		Year:     year,
		Sections: make(map[string]*Section, len(SectionDefinitions)),
	}

	summary := findSummaryTable(doc)
	if summary == nil {
		log.Printf("[TenKParser] %s %s: no table of contents found", p.symbol, year)
	}

	var root *html.Node
	if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}

	for _, def := range SectionDefinitions {
		sec := &Section{Key: def.Key, Title: def.Title, Year: year}
		ext.Sections[def.Key] = sec

		if summary == nil {
			sec.markDegraded("no table of contents")
			continue
		}

		sec.Begin, sec.End = findAnchors(summary, def)
		if sec.Begin == "" || sec.End == "" {
			sec.markDegraded("no begin/end link in table of contents")
			continue
		}

		begin := findByID(root, sec.Begin)
		end := findByID(root, sec.End)
		if begin == nil || end == nil {
			sec.markDegraded("anchor target not found in document")
			continue
		}

		sec.Content = NormalizeText(strings.Join(collectBetween(begin, end), " "))
	}

	for _, err := range ext.Degraded() {
		log.Printf("[TenKParser] %v", err)
	}
	return ext, nil
}

func (s *Section) markDegraded(reason string) {
	s.Content = ""
	s.Degraded = true
	s.Reason = reason
}

// NormalizeText applies Unicode compatibility decomposition (NFKD), which also
// folds the non-breaking spaces EDGAR documents are full of.
func NormalizeText(text string) string {
	return norm.NFKD.String(text)
}

// findSummaryTable returns the first table having a row that mentions both
// "Item 1" and "Business": the filing's internal table of contents.
func findSummaryTable(doc *goquery.Document) *goquery.Selection {
	var summary *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		table.Find("tr").EachWithBreak(func(j int, row *goquery.Selection) bool {
			text := rowText(row)
			if strings.Contains(text, "Item 1") && strings.Contains(text, "Business") {
				summary = table
				return false
			}
			return true
		})
		return summary == nil
	})
	return summary
}

// findAnchors scans the summary table for the row describing def. The first
// link of that row is the section start, the first link of the next row is
// where the section stops.
func findAnchors(summary *goquery.Selection, def SectionDefinition) (begin, end string) {
	key := strings.ToLower(def.Key)
	title := strings.ToLower(def.Title)

	summary.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		text := strings.ToLower(rowText(row))
		if !strings.Contains(text, key) || !strings.Contains(text, title) {
			return true
		}

		href, ok := row.Find("a").First().Attr("href")
		if !ok || href == "" {
			return true
		}
		begin = fragmentID(href)

		next := row.NextAllFiltered("tr").First()
		if next.Length() > 0 {
			if nextHref, ok := next.Find("a").First().Attr("href"); ok && nextHref != "" {
				end = fragmentID(nextHref)
			}
		}
		return false
	})
	return begin, end
}

// rowText joins the stripped text of each cell with single spaces.
func rowText(row *goquery.Selection) string {
	var cells []string
	row.Find("td, th").Each(func(i int, cell *goquery.Selection) {
		var sb strings.Builder
		for _, n := range cell.Nodes {
			sb.WriteString(strippedText(n))
		}
		cells = append(cells, sb.String())
	})
	return strings.Join(cells, " ")
}

// fragmentID returns the part of href after the last '#'.
func fragmentID(href string) string {
	if i := strings.LastIndex(href, "#"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// YearFromPath derives the four-digit filing year from the folder holding the
// document: ".../0000320193-23-000106/primary-document.html" -> "2023".
func YearFromPath(path string) (string, error) {
	folder := filepath.Base(filepath.Dir(path))
	id, err := ParseFilingID(folder)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("20%02d", id.YY), nil
}
