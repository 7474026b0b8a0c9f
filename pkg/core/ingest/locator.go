package ingest

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"filing_analyst/pkg/core/apperr"
)

// PrimaryDocument is the file name the downloader stores each filing under.
const PrimaryDocument = "primary-document.html"

// FilingID is a parsed accession folder name: <CIK>-<YY>-<sequence>.
type FilingID struct {
	Raw      string
	CIK      string
	YY       int
	Sequence string
}

// Year returns the four-digit year implied by YY.
func (id FilingID) Year() int {
	return 2000 + id.YY
}

// ParseFilingID parses an accession folder name such as "0000320193-23-000106".
func ParseFilingID(name string) (FilingID, error) {
	parts := strings.Split(name, "-")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" || len(parts[1]) != 2 {
		return FilingID{}, apperr.New(apperr.InvalidInput, "ingest.ParseFilingID", "malformed filing id %q", name)
	}
	yy, err := strconv.Atoi(parts[1])
	if err != nil || yy < 0 {
		return FilingID{}, apperr.New(apperr.InvalidInput, "ingest.ParseFilingID", "filing id %q has no two-digit year", name)
	}
	return FilingID{Raw: name, CIK: parts[0], YY: yy, Sequence: parts[2]}, nil
}

// Filing is one downloaded document selected for indexing.
type Filing struct {
	Symbol     string
	FilingType string
	ID         FilingID
	Path       string // primary document
	Year       string // four digits
}

// FilingLocator selects recent filings from the download directory
// <root>/<SYMBOL>/<type>/<filing id>/.
type FilingLocator struct {
	root   string
	cutoff int
}

// NewFilingLocator creates a locator over root. Folders whose two-digit year
// is >= cutoff are never selected.
func NewFilingLocator(root string, cutoff int) *FilingLocator {
	return &FilingLocator{root: root, cutoff: cutoff}
}

// Dir returns the directory holding a company's filings of one type.
func (l *FilingLocator) Dir(symbol, filingType string) string {
	return filepath.Join(l.root, symbol, filingType)
}

// DocumentPath returns where the primary document of a filing is stored.
func (l *FilingLocator) DocumentPath(symbol, filingType, id string) string {
	return filepath.Join(l.Dir(symbol, filingType), id, PrimaryDocument)
}

// Locate returns up to n filings, most recent first.
func (l *FilingLocator) Locate(symbol, filingType string, n int) ([]Filing, error) {
	ids, err := l.Recent(symbol, filingType, n)
	if err != nil {
		return nil, err
	}

	filings := make([]Filing, 0, len(ids))
	for _, id := range ids {
		filings = append(filings, Filing{
			Symbol:     symbol,
			FilingType: filingType,
			ID:         id,
			Path:       l.DocumentPath(symbol, filingType, id.Raw),
			Year:       strconv.Itoa(id.Year()),
		})
	}
	return filings, nil
}

// Recent lists the eligible filing ids sorted by year descending and returns
// the first n. Ties within a year are broken by id, descending.
func (l *FilingLocator) Recent(symbol, filingType string, n int) ([]FilingID, error) {
	dir := l.Dir(symbol, filingType)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, apperr.New(apperr.NotFound, "ingest.Locate", "no downloaded filings").For(symbol, filingType)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[FilingLocator] failed to list filings for %s: %v", symbol, err)
		return nil, apperr.New(apperr.NotFound, "ingest.Locate", "filings directory unreadable").For(symbol, filingType)
	}

	var ids []FilingID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := ParseFilingID(entry.Name())
		if err != nil {
			log.Printf("[FilingLocator] skipping %s/%s: %v", symbol, entry.Name(), err)
			continue
		}
		if id.YY >= l.cutoff {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if ids[i].YY != ids[j].YY {
			return ids[i].YY > ids[j].YY
		}
		return ids[i].Raw > ids[j].Raw
	})

	if n >= 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids, nil
}
