package edgar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/source/weburl"
	"golang.org/x/net/html"
)

// Parser turns page content into a filing. It returns nil, nil when the page
// holds nothing recognizable.
type Parser interface {
	Parse(ctx context.Context, ref filing.Reference, pageURL, content string) (*filing.SecFiling, error)
}

// DefaultDocumentPatterns select primary and exhibit documents by URL path.
var DefaultDocumentPatterns = []string{
	"/Archives/edgar/data/**/*.htm",
	"/Archives/edgar/data/**/*.html",
	"/Archives/edgar/data/**/*.txt",
	"/Archives/edgar/data/**/*.xml",
}

// IndexPageParser reads EDGAR filing index pages
// (".../<accession>-index.htm").
type IndexPageParser struct {
	patterns  []string
	converter *Converter
	validator *weburl.Validator
	logger    *slog.Logger
}

// NewIndexPageParser creates a parser that keeps document links whose path
// matches one of patterns. Nil patterns use DefaultDocumentPatterns.
func NewIndexPageParser(patterns []string, logger *slog.Logger) *IndexPageParser {
	if len(patterns) == 0 {
		patterns = DefaultDocumentPatterns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexPageParser{
		patterns:  patterns,
		converter: NewConverter(),
		validator: weburl.NewValidator(nil),
		logger:    logger,
	}
}

// indexPage holds the facts read from a filing index page.
type indexPage struct {
	companyName     string
	cik             string
	form            string
	formDescription string
	accession       string
	info            map[string]string
	documents       []indexDocument
}

type indexDocument struct {
	Seq         string `json:"seq,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url"`
}

// Parse implements Parser. The page must name a company and a form type
// that matches ref; otherwise nil is returned.
func (p *IndexPageParser) Parse(ctx context.Context, ref filing.Reference, pageURL, content string) (*filing.SecFiling, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := readIndexPage(doc)
	if page.companyName == "" || page.form == "" {
		p.logger.Debug("Page is not a filing index", "url", pageURL)
		return nil, nil
	}
	if page.form != string(ref.Form) {
		p.logger.Debug("Form type mismatch", "url", pageURL, "want", ref.Form, "got", page.form)
		return nil, nil
	}

	f := &filing.SecFiling{
		CIK:             ref.CIK,
		CompanyName:     page.companyName,
		Form:            ref.Form,
		Year:            ref.Year,
		AccessionNumber: page.accession,
		IndexURL:        pageURL,
		HTMLContent:     content,
	}
	if page.cik != "" {
		if cik, err := filing.NormalizeCIK(page.cik); err == nil {
			f.CIK = cik
		}
	}
	if d, err := time.Parse(filing.DateLayout, page.info["Filing Date"]); err == nil {
		f.FilingDate = d
	}
	if d, err := time.Parse(filing.DateLayout, page.info["Period of Report"]); err == nil {
		f.PeriodOfReport = d
	}
	f.Quarter = quarterFor(ref, f.PeriodOfReport)

	docs := p.filterDocuments(ctx, page.documents)
	for _, d := range docs {
		f.DocumentURLs = append(f.DocumentURLs, d.URL)
	}

	text, err := p.converter.Convert(doc)
	if err != nil {
		p.logger.Warn("Failed to convert filing page to text", "url", pageURL, "error", err)
	}
	f.TextContent = text

	f.Metadata = map[string]any{
		"form_description": page.formDescription,
		"document_links":   docs,
	}
	for k, v := range page.info {
		f.Metadata[metadataKey(k)] = v
	}

	f.Summary = map[string]any{
		"company":        f.DisplayName(),
		"form_type":      string(f.Form),
		"fiscal_period":  f.FiscalPeriodDisplay(),
		"filing_date":    page.info["Filing Date"],
		"document_count": len(docs),
	}

	return f, nil
}

// filterDocuments keeps links on the regulator host whose path matches a
// configured pattern. The links are not dereferenced here, so no DNS lookup
// is made.
func (p *IndexPageParser) filterDocuments(ctx context.Context, docs []indexDocument) []indexDocument {
	policy := weburl.PublicRegulatorPolicy().WithoutResolution()

	var kept []indexDocument
	for _, d := range docs {
		res := p.validator.Validate(ctx, d.URL, policy)
		if !res.OK() {
			p.logger.Warn("Dropping document link", "url", d.URL, "reason", res.Reason)
			continue
		}
		u, err := url.Parse(res.Canonical)
		if err != nil || !p.matches(u.Path) {
			continue
		}
		d.URL = res.Canonical
		kept = append(kept, d)
	}
	return kept
}

func (p *IndexPageParser) matches(path string) bool {
	for _, pattern := range p.patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// readIndexPage extracts company, form, dates and the document table.
func readIndexPage(doc *html.Node) indexPage {
	page := indexPage{info: make(map[string]string)}

	if name := findElement(doc, ".companyName"); name != nil {
		// "TESLA, INC. (Filer) CIK: 0001318605 (see all company filings)"
		text := textContent(name)
		if i := strings.Index(text, " (Filer)"); i >= 0 {
			page.companyName = strings.TrimSpace(text[:i])
		} else if i := strings.Index(text, " CIK"); i >= 0 {
			page.companyName = strings.TrimSpace(text[:i])
		} else {
			page.companyName = text
		}
		if a := findElement(name, "a"); a != nil {
			if fields := strings.Fields(textContent(a)); len(fields) > 0 {
				page.cik = fields[0]
			}
		}
	}

	if formName := findElement(doc, "#formName"); formName != nil {
		if strong := findElement(formName, "strong"); strong != nil {
			page.form = strings.TrimSpace(strings.TrimPrefix(textContent(strong), "Form "))
		}
		text := textContent(formName)
		if _, desc, ok := strings.Cut(text, " - "); ok {
			page.formDescription = strings.TrimSpace(desc)
		}
	}

	if secNum := findElement(doc, "#secNum"); secNum != nil {
		fields := strings.Fields(textContent(secNum))
		if len(fields) > 0 {
			page.accession = fields[len(fields)-1]
		}
	}

	for _, head := range findAll(doc, "div.infoHead") {
		value := head.NextSibling
		for value != nil && value.Type != html.ElementNode {
			value = value.NextSibling
		}
		if value != nil && hasClass(value, "info") {
			page.info[textContent(head)] = textContent(value)
		}
	}

	for _, table := range findAll(doc, "table.tableFile") {
		for _, cells := range tableRows(table) {
			if len(cells) < 4 {
				continue
			}
			a := findElement(cells[2], "a")
			if a == nil {
				continue
			}
			link, ok := resolveSECLink(unwrapViewerLink(attr(a, "href")))
			if !ok {
				continue
			}
			page.documents = append(page.documents, indexDocument{
				Seq:         textContent(cells[0]),
				Description: textContent(cells[1]),
				Type:        textContent(cells[3]),
				URL:         link,
			})
		}
	}

	return page
}

// unwrapViewerLink returns the document path of an inline XBRL viewer link
// ("/ix?doc=/Archives/..."), or href unchanged.
func unwrapViewerLink(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host != "" || u.Path != "/ix" {
		return href
	}
	if doc := u.Query().Get("doc"); strings.HasPrefix(doc, "/") {
		return doc
	}
	return href
}

// quarterFor uses the reference's quarter when given; otherwise the
// calendar quarter of the report period is used for 10-Q filings.
func quarterFor(ref filing.Reference, period time.Time) filing.Quarter {
	if ref.Form != filing.Form10Q {
		return ""
	}
	if ref.Quarter != "" {
		return ref.Quarter
	}
	if period.IsZero() {
		return ""
	}
	return filing.Quarter(fmt.Sprintf("Q%d", (int(period.Month())-1)/3+1))
}

// metadataKey turns "Period of Report" into "period_of_report".
func metadataKey(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), "_"))
}
