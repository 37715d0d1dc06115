package edgar

import (
	"context"
	"testing"
	"time"

	"github.com/c360studio/edgarbridge/filing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexPageParser_Parse(t *testing.T) {
	ref := filing.Reference{CIK: "0001318605", Form: filing.Form10K, Year: 2024}
	content := readFixture(t, "index_tsla_10k.html")

	f, err := NewIndexPageParser(nil, nil).Parse(context.Background(), ref, tsla2024IndexURL, content)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "0001318605", f.CIK)
	assert.Equal(t, "Tesla, Inc.", f.CompanyName)
	assert.Equal(t, "Tesla Inc", f.DisplayName())
	assert.Equal(t, filing.Form10K, f.Form)
	assert.Equal(t, 2024, f.Year)
	assert.Empty(t, f.Quarter)
	assert.Equal(t, "0001628280-24-002390", f.AccessionNumber)
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), f.FilingDate)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), f.PeriodOfReport)
	assert.Equal(t, tsla2024IndexURL, f.IndexURL)
	assert.Equal(t, content, f.HTMLContent)

	assert.Equal(t, []string{
		"https://www.sec.gov/Archives/edgar/data/1318605/000162828024002390/tsla-20231231.htm",
		"https://www.sec.gov/Archives/edgar/data/1318605/000162828024002390/tsla-ex211x20231231.htm",
		"https://www.sec.gov/Archives/edgar/data/1318605/000162828024002390/0001628280-24-002390.txt",
	}, f.DocumentURLs, "off-host links are dropped and viewer links unwrapped")

	assert.Equal(t, "2024-01-26 21:00:42", f.Metadata["accepted"])
	assert.Equal(t, "2023-12-31", f.Metadata["period_of_report"])
	assert.Contains(t, f.Metadata["form_description"], "Annual report")

	assert.Equal(t, 3, f.Summary["document_count"])
	assert.Equal(t, "FY 2024", f.Summary["fiscal_period"])
	assert.Equal(t, "Tesla Inc", f.Summary["company"])

	assert.Contains(t, f.TextContent, "Form 10-K")
	assert.Contains(t, f.TextContent, "2024-01-29")
	assert.NotContains(t, f.TextContent, "tracking")
}

func TestIndexPageParser_DocumentPatterns(t *testing.T) {
	ref := filing.Reference{CIK: "0001318605", Form: filing.Form10K, Year: 2024}
	p := NewIndexPageParser([]string{"/Archives/edgar/data/**/*.txt"}, nil)

	f, err := p.Parse(context.Background(), ref, tsla2024IndexURL, readFixture(t, "index_tsla_10k.html"))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []string{
		"https://www.sec.gov/Archives/edgar/data/1318605/000162828024002390/0001628280-24-002390.txt",
	}, f.DocumentURLs)
}

func TestIndexPageParser_Unrecognized(t *testing.T) {
	tests := []struct {
		name    string
		ref     filing.Reference
		content string
	}{
		{
			name:    "form mismatch",
			ref:     filing.Reference{CIK: "0001318605", Form: filing.Form10Q, Year: 2024},
			content: readFixture(t, "index_tsla_10k.html"),
		},
		{
			name:    "browse page",
			ref:     filing.Reference{CIK: "0001318605", Form: filing.Form10K, Year: 2024},
			content: readFixture(t, "browse_tsla_10k.html"),
		},
		{
			name:    "empty page",
			ref:     filing.Reference{CIK: "0001318605", Form: filing.Form10K, Year: 2024},
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewIndexPageParser(nil, nil).Parse(context.Background(), tt.ref, tsla2024IndexURL, tt.content)
			require.NoError(t, err)
			assert.Nil(t, f)
		})
	}
}

func TestQuarterFor(t *testing.T) {
	q10 := filing.Reference{Form: filing.Form10Q}

	assert.Equal(t, filing.Quarter(""), quarterFor(filing.Reference{Form: filing.Form10K}, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, filing.Q1, quarterFor(q10, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, filing.Q3, quarterFor(q10, time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, filing.Q2, quarterFor(filing.Reference{Form: filing.Form10Q, Quarter: filing.Q2}, time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, filing.Quarter(""), quarterFor(q10, time.Time{}))
}

func TestUnwrapViewerLink(t *testing.T) {
	assert.Equal(t, "/Archives/a.htm", unwrapViewerLink("/ix?doc=/Archives/a.htm"))
	assert.Equal(t, "/Archives/a.htm", unwrapViewerLink("/Archives/a.htm"))
	assert.Equal(t, "https://evil.com/ix?doc=/x", unwrapViewerLink("https://evil.com/ix?doc=/x"))
	assert.Equal(t, "/ix?doc=relative", unwrapViewerLink("/ix?doc=relative"))
}
