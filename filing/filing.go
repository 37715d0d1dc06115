package filing

import (
	"fmt"
	"time"
)

// DateLayout is the layout EDGAR uses for filing and period dates.
const DateLayout = "2006-01-02"

// SecFiling is a filing resolved from an EDGAR index page.
type SecFiling struct {
	// CIK is the zero-padded Central Index Key.
	CIK string `json:"cik"`

	// CompanyName is the registrant name as shown on the index page.
	CompanyName string `json:"company_name"`

	// Form is the filing form type.
	Form FormType `json:"form_type"`

	// Year is the fiscal year the filing was located under.
	Year int `json:"year"`

	// Quarter is the fiscal quarter for 10-Q filings.
	Quarter Quarter `json:"quarter,omitempty"`

	// FilingDate is the date the filing was submitted.
	FilingDate time.Time `json:"filing_date"`

	// PeriodOfReport is the period end date the filing covers.
	PeriodOfReport time.Time `json:"period_of_report,omitempty"`

	// AccessionNumber is the SEC accession number.
	AccessionNumber string `json:"accession_number,omitempty"`

	// IndexURL is the canonical URL of the filing index page.
	IndexURL string `json:"index_url"`

	// DocumentURLs are the filing's document links, in page order.
	DocumentURLs []string `json:"document_urls"`

	// TextContent is the index page rendered as text.
	TextContent string `json:"text_content,omitempty"`

	// HTMLContent is the raw page HTML.
	HTMLContent string `json:"html_content,omitempty"`

	// Metadata holds page facts that have no dedicated field.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Summary is a compact overview for display.
	Summary map[string]any `json:"summary,omitempty"`
}

// Matches reports whether the filing belongs to the reference's company,
// form type and year.
func (f *SecFiling) Matches(ref Reference) bool {
	if f == nil {
		return false
	}
	return f.CIK == ref.CIK && f.Form == ref.Form && f.Year == ref.Year
}

// IsAnnual reports whether this is an annual report.
func (f *SecFiling) IsAnnual() bool {
	return f.Form == Form10K
}

// IsQuarterly reports whether this is a quarterly report.
func (f *SecFiling) IsQuarterly() bool {
	return f.Form == Form10Q
}

// FiscalPeriodDisplay renders the fiscal period, e.g. "FY 2024" or "Q2 2024".
func (f *SecFiling) FiscalPeriodDisplay() string {
	if f.IsAnnual() || f.Quarter == "" {
		return fmt.Sprintf("FY %d", f.Year)
	}
	return fmt.Sprintf("%s %d", f.Quarter, f.Year)
}

// DisplayName returns the standardized company name when one is known,
// otherwise the name from the filing.
func (f *SecFiling) DisplayName() string {
	if name, ok := StandardizedCompanyName(f.CIK); ok {
		return name
	}
	return f.CompanyName
}

// Record implements Recorder. Dates are rendered in DateLayout, empty
// optional fields are omitted and the raw HTML is left out.
func (f *SecFiling) Record() Record {
	rec := Record{
		"cik":           f.CIK,
		"company_name":  f.CompanyName,
		"display_name":  f.DisplayName(),
		"form_type":     string(f.Form),
		"year":          f.Year,
		"fiscal_period": f.FiscalPeriodDisplay(),
		"index_url":     f.IndexURL,
		"document_urls": append([]string(nil), f.DocumentURLs...),
	}
	if f.Quarter != "" {
		rec["quarter"] = string(f.Quarter)
	}
	if !f.FilingDate.IsZero() {
		rec["filing_date"] = f.FilingDate.Format(DateLayout)
	}
	if !f.PeriodOfReport.IsZero() {
		rec["period_of_report"] = f.PeriodOfReport.Format(DateLayout)
	}
	if f.AccessionNumber != "" {
		rec["accession_number"] = f.AccessionNumber
	}
	if f.TextContent != "" {
		rec["text_content"] = f.TextContent
	}
	if len(f.Metadata) > 0 {
		rec["metadata"] = f.Metadata
	}
	if len(f.Summary) > 0 {
		rec["summary"] = f.Summary
	}
	return rec
}
