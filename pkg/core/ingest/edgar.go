// SEC EDGAR API integration for fetching company filings.
// API Documentation: https://www.sec.gov/developer

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// SEC EDGAR hosts
	DefaultSubmissionsBaseURL = "https://data.sec.gov"
	DefaultArchivesBaseURL    = "https://www.sec.gov"

	// Required User-Agent per SEC guidelines
	DefaultUserAgent = "FilingAnalyst/1.0 (contact@example.com)"

	// SEC allows at most 10 requests per second
	DefaultRequestsPerSecond = 8
	DefaultHTTPTimeout       = 30 * time.Second
)

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// SECCompanyInfo represents the top-level company submission response.
type SECCompanyInfo struct {
	CIK     string     `json:"cik"`
	Name    string     `json:"name"`
	Tickers []string   `json:"tickers"`
	Filings SECFilings `json:"filings"`
}

// SECFilings contains the recent filing list.
type SECFilings struct {
	Recent SECRecentFilings `json:"recent"`
}

// SECRecentFilings holds arrays of filing attributes (parallel arrays).
type SECRecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // e.g., "0000037996-24-000012"
	FilingDate      []string `json:"filingDate"`      // e.g., "2024-02-06"
	Form            []string `json:"form"`            // "10-K", "10-Q", "8-K"
	PrimaryDocument []string `json:"primaryDocument"` // filename
}

// RemoteFiling is one filing listed by EDGAR (denormalized from parallel arrays).
type RemoteFiling struct {
	AccessionNumber string
	FilingDate      time.Time
	FormType        string
	PrimaryDocument string
	URL             string
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// EDGARClient handles rate-limited SEC EDGAR API requests.
type EDGARClient struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	userAgent      string
	submissionsURL string
	archivesURL    string
}

// EDGAROption configures the client.
type EDGAROption func(*EDGARClient)

// WithBaseURLs points the client at different hosts (used by tests).
func WithBaseURLs(submissions, archives string) EDGAROption {
	return func(c *EDGARClient) {
		c.submissionsURL = strings.TrimRight(submissions, "/")
		c.archivesURL = strings.TrimRight(archives, "/")
	}
}

// WithUserAgent sets the contact string SEC requires on every request.
func WithUserAgent(ua string) EDGAROption {
	return func(c *EDGARClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit caps the request rate.
func WithRateLimit(requestsPerSecond float64) EDGAROption {
	return func(c *EDGARClient) {
		if requestsPerSecond > 0 {
			burst := int(requestsPerSecond)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// NewEDGARClient creates a new SEC EDGAR API client.
func NewEDGARClient(opts ...EDGAROption) *EDGARClient {
	c := &EDGARClient{
		httpClient:     &http.Client{Timeout: DefaultHTTPTimeout},
		limiter:        rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		userAgent:      DefaultUserAgent,
		submissionsURL: DefaultSubmissionsBaseURL,
		archivesURL:    DefaultArchivesBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EDGARClient) get(ctx context.Context, url, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// LookupCIK finds the zero-padded CIK for a ticker symbol using
// https://www.sec.gov/files/company_tickers.json.
func (c *EDGARClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	body, err := c.get(ctx, c.archivesURL+"/files/company_tickers.json", "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to fetch ticker mapping: %w", err)
	}

	// Response structure: { "0": {"cik_str": 320193, "ticker": "AAPL", "title": "..."}, ... }
	var mapping map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
	}
	if err := json.Unmarshal(body, &mapping); err != nil {
		return "", fmt.Errorf("failed to parse ticker mapping: %w", err)
	}

	ticker = strings.ToUpper(ticker)
	for _, entry := range mapping {
		if entry.Ticker == ticker {
			return fmt.Sprintf("%010d", entry.CIK), nil
		}
	}
	return "", fmt.Errorf("ticker %s not found in SEC database", ticker)
}

// FetchCompanyInfo retrieves company submission data. cik is zero-padded to
// 10 digits if needed.
func (c *EDGARClient) FetchCompanyInfo(ctx context.Context, cik string) (*SECCompanyInfo, error) {
	cik = fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))

	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.submissionsURL, cik), "application/json")
	if err != nil {
		return nil, err
	}

	var info SECCompanyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse SEC response: %w", err)
	}
	if info.CIK == "" {
		info.CIK = cik
	}
	return &info, nil
}

// Filings returns the listed filings whose form is exactly formType
// (amendments such as "10-K/A" are excluded). limit 0 means no limit.
func (c *EDGARClient) Filings(info *SECCompanyInfo, formType string, limit int) []RemoteFiling {
	recent := info.Filings.Recent
	cik := strings.TrimLeft(info.CIK, "0")

	var filings []RemoteFiling
	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.PrimaryDocument) || recent.Form[i] != formType {
			continue
		}

		var filingDate time.Time
		if i < len(recent.FilingDate) {
			filingDate, _ = time.Parse("2006-01-02", recent.FilingDate[i])
		}

		// Format: {archives}/Archives/edgar/data/{cik}/{accession-no-dashes}/{document}
		accessionNoDashes := strings.ReplaceAll(recent.AccessionNumber[i], "-", "")
		filings = append(filings, RemoteFiling{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      filingDate,
			FormType:        recent.Form[i],
			PrimaryDocument: recent.PrimaryDocument[i],
			URL:             fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.archivesURL, cik, accessionNoDashes, recent.PrimaryDocument[i]),
		})

		if limit > 0 && len(filings) >= limit {
			break
		}
	}
	return filings
}

// FetchDocument downloads one filing document.
func (c *EDGARClient) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, "text/html")
}

// =============================================================================
// DOWNLOADER
// =============================================================================

// Downloader guarantees filing documents exist under the local layout
// <root>/<SYMBOL>/<type>/<filing id>/primary-document.html.
type Downloader interface {
	EnsureDownloaded(ctx context.Context, symbol, filingType string) error
}

// EDGARDownloader populates the filing directory from SEC EDGAR. It is best
// effort: failures are logged and swallowed, only cancellation is returned.
type EDGARDownloader struct {
	client  *EDGARClient
	locator *FilingLocator
	limit   int
}

// NewEDGARDownloader creates a downloader writing under the locator's root.
// limit caps how many filings are fetched per call (0 = all listed).
func NewEDGARDownloader(client *EDGARClient, locator *FilingLocator, limit int) *EDGARDownloader {
	return &EDGARDownloader{client: client, locator: locator, limit: limit}
}

// EnsureDownloaded fetches missing filings. Filings already on disk are skipped.
func (d *EDGARDownloader) EnsureDownloaded(ctx context.Context, symbol, filingType string) error {
	n, err := d.download(ctx, symbol, filingType)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		log.Printf("[EDGAR] Error downloading %s for %s: %v", filingType, symbol, err)
		return nil
	}
	log.Printf("[EDGAR] %s %s: %d new filing(s) downloaded", symbol, filingType, n)
	return nil
}

func (d *EDGARDownloader) download(ctx context.Context, symbol, filingType string) (int, error) {
	cik, err := d.client.LookupCIK(ctx, symbol)
	if err != nil {
		return 0, err
	}
	info, err := d.client.FetchCompanyInfo(ctx, cik)
	if err != nil {
		return 0, err
	}

	downloaded := 0
	for _, f := range d.client.Filings(info, filingType, d.limit) {
		path := d.locator.DocumentPath(symbol, filingType, f.AccessionNumber)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		body, err := d.client.FetchDocument(ctx, f.URL)
		if err != nil {
			if ctx.Err() != nil {
				return downloaded, ctx.Err()
			}
			log.Printf("[EDGAR] skipping %s %s: %v", symbol, f.AccessionNumber, err)
			continue
		}
		if err := writeFileAtomic(path, body); err != nil {
			return downloaded, err
		}
		downloaded++
	}
	return downloaded, nil
}

// writeFileAtomic writes via a uniquely named temp file so readers never see
// a partially written document.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create filing dir: %w", err)
	}
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write filing: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move filing into place: %w", err)
	}
	return nil
}
