package filing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecFiling_Matches(t *testing.T) {
	f := &SecFiling{CIK: "0001318605", Form: Form10K, Year: 2024}

	tests := []struct {
		name string
		ref  Reference
		want bool
	}{
		{"same", Reference{CIK: "0001318605", Form: Form10K, Year: 2024}, true},
		{"index ignored", Reference{CIK: "0001318605", Form: Form10K, Year: 2024, Index: 4}, true},
		{"other year", Reference{CIK: "0001318605", Form: Form10K, Year: 2023}, false},
		{"other form", Reference{CIK: "0001318605", Form: Form10Q, Year: 2024}, false},
		{"other company", Reference{CIK: "0000051143", Form: Form10K, Year: 2024}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Matches(tt.ref))
		})
	}

	var missing *SecFiling
	assert.False(t, missing.Matches(Reference{}))
}

func TestSecFiling_FiscalPeriodDisplay(t *testing.T) {
	assert.Equal(t, "FY 2024", (&SecFiling{Form: Form10K, Year: 2024}).FiscalPeriodDisplay())
	assert.Equal(t, "Q2 2024", (&SecFiling{Form: Form10Q, Year: 2024, Quarter: Q2}).FiscalPeriodDisplay())
	assert.Equal(t, "FY 2024", (&SecFiling{Form: Form10Q, Year: 2024}).FiscalPeriodDisplay())
}

func TestSecFiling_DisplayName(t *testing.T) {
	assert.Equal(t, "Tesla Inc", (&SecFiling{CIK: "0001318605", CompanyName: "TESLA, INC."}).DisplayName())
	assert.Equal(t, "Apple Inc.", (&SecFiling{CIK: "0000320193", CompanyName: "Apple Inc."}).DisplayName())
}

func TestSecFiling_Record(t *testing.T) {
	f := &SecFiling{
		CIK:             "0000051143",
		CompanyName:     "INTERNATIONAL BUSINESS MACHINES CORP",
		Form:            Form10Q,
		Year:            2024,
		Quarter:         Q1,
		FilingDate:      time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC),
		AccessionNumber: "0000051143-24-000012",
		IndexURL:        "https://www.sec.gov/Archives/edgar/data/51143/000005114324000012",
		DocumentURLs:    []string{"https://www.sec.gov/Archives/edgar/data/51143/000005114324000012/ibm-20240331.htm"},
		HTMLContent:     "<html></html>",
		Summary:         map[string]any{"document_count": 1},
	}

	rec := f.Record()
	assert.Equal(t, "0000051143", rec["cik"])
	assert.Equal(t, "International Business Machines Corp", rec["display_name"])
	assert.Equal(t, "10-Q", rec["form_type"])
	assert.Equal(t, "Q1", rec["quarter"])
	assert.Equal(t, "Q1 2024", rec["fiscal_period"])
	assert.Equal(t, "2024-04-29", rec["filing_date"])
	assert.Equal(t, f.DocumentURLs, rec["document_urls"])
	assert.NotContains(t, rec, "period_of_report")
	assert.NotContains(t, rec, "html_content")
	assert.NotContains(t, rec, "metadata")

	// The record must not alias the filing's slice.
	rec["document_urls"].([]string)[0] = "changed"
	assert.NotEqual(t, "changed", f.DocumentURLs[0])
}

func TestHistory_Records(t *testing.T) {
	h := History{
		{CIK: "0000000001", Form: Form10K, Year: 2024},
		{CIK: "0000000002", Form: Form10K, Year: 2024},
	}
	recs := h.Records()
	assert.Len(t, recs, 2)
	assert.Equal(t, "0000000002", recs[1]["cik"])
}
