package edgar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/source/weburl"
	"golang.org/x/net/html"
)

// SECBaseURL is the origin every EDGAR link is resolved against.
const SECBaseURL = "https://" + weburl.RegulatorHost

// DefaultMaxCandidates is the number of rows requested from the browse page.
const DefaultMaxCandidates = 40

// Navigator is the slice of *mcp.Client the locator needs.
type Navigator interface {
	Navigate(ctx context.Context, target string, policy weburl.Policy) bool
	PageContent(ctx context.Context) (string, error)
	BaseURL() string
}

// IndexSource lists candidate filing index URLs for a reference, newest
// first. URLs are returned as found; validation is the caller's job.
type IndexSource interface {
	Candidates(ctx context.Context, ref filing.Reference) ([]string, error)
}

// BrowseEntry is one row of the EDGAR company browse table.
type BrowseEntry struct {
	Form         string
	DocumentsURL string
	Description  string
	FilingDate   time.Time
	FileNumber   string
}

// BrowseIndex lists filings by opening the EDGAR company browse page in the
// remote browser.
type BrowseIndex struct {
	nav           Navigator
	maxCandidates int
	logger        *slog.Logger
}

// NewBrowseIndex creates an IndexSource backed by the EDGAR browse page.
func NewBrowseIndex(nav Navigator, maxCandidates int, logger *slog.Logger) *BrowseIndex {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowseIndex{nav: nav, maxCandidates: maxCandidates, logger: logger}
}

// BrowseURL builds the EDGAR company browse URL for ref.
func BrowseURL(ref filing.Reference, count int) string {
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", ref.CIK)
	q.Set("type", string(ref.Form))
	q.Set("dateb", "")
	q.Set("owner", "include")
	q.Set("count", strconv.Itoa(count))
	return SECBaseURL + "/cgi-bin/browse-edgar?" + q.Encode()
}

// Candidates returns the documents links of rows whose form matches exactly
// and whose filing date falls in ref.Year, in table order.
func (b *BrowseIndex) Candidates(ctx context.Context, ref filing.Reference) ([]string, error) {
	target := BrowseURL(ref, b.maxCandidates)
	if !b.nav.Navigate(ctx, target, weburl.PublicRegulatorPolicy()) {
		return nil, mcp.NewConnectionError(b.nav.BaseURL(), fmt.Errorf("failed to navigate to filing list for %s", ref))
	}

	content, err := b.nav.PageContent(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := ParseBrowsePage(content)
	if err != nil {
		return nil, fmt.Errorf("parse filing list: %w", err)
	}

	var urls []string
	for _, e := range entries {
		if e.Form != string(ref.Form) || e.FilingDate.Year() != ref.Year {
			continue
		}
		urls = append(urls, e.DocumentsURL)
		if len(urls) == b.maxCandidates {
			break
		}
	}

	b.logger.Debug("Filing candidates listed",
		"cik", ref.CIK,
		"form_type", ref.Form,
		"year", ref.Year,
		"rows", len(entries),
		"candidates", len(urls))
	return urls, nil
}

// ParseBrowsePage reads the filings table of an EDGAR company browse page.
// Links are resolved against SECBaseURL but not validated. Rows without a
// documents link or a parsable date are skipped.
func ParseBrowsePage(content string) ([]BrowseEntry, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	table := findElement(doc, "table.tableFile2")
	if table == nil {
		return nil, nil
	}

	var entries []BrowseEntry
	for _, cells := range tableRows(table) {
		if len(cells) < 4 {
			continue
		}

		link := findElement(cells[1], "#documentsbutton")
		if link == nil {
			link = findElement(cells[1], "a")
		}
		if link == nil {
			continue
		}
		docURL, ok := resolveSECLink(attr(link, "href"))
		if !ok {
			continue
		}

		date, err := time.Parse(filing.DateLayout, textContent(cells[3]))
		if err != nil {
			continue
		}

		entry := BrowseEntry{
			Form:         textContent(cells[0]),
			DocumentsURL: docURL,
			Description:  textContent(cells[2]),
			FilingDate:   date,
		}
		if len(cells) > 4 {
			if a := findElement(cells[4], "a"); a != nil {
				entry.FileNumber = textContent(a)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var secBase, _ = url.Parse(SECBaseURL)

// resolveSECLink resolves href relative to SECBaseURL. Absolute links are
// kept as they are, whatever their host.
func resolveSECLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return secBase.ResolveReference(ref).String(), true
}
