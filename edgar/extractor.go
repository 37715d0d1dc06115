package edgar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/edgarbridge/filing"
)

// HistorySource supplies a filing history. *Locator implements it.
type HistorySource interface {
	FilingHistory(ctx context.Context, cik, formType string, year int) ([]*filing.SecFiling, error)
}

// Extractor exposes a filing history by position. Nothing is cached between
// calls; every accessor fetches the history once.
type Extractor struct {
	source HistorySource
	logger *slog.Logger
}

// NewExtractor creates an Extractor over source.
func NewExtractor(source HistorySource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{source: source, logger: logger}
}

// FilingHistory returns the ordered filing history.
func (e *Extractor) FilingHistory(ctx context.Context, cik, formType string, year int) ([]*filing.SecFiling, error) {
	_, history, err := e.history(ctx, cik, formType, year)
	return history, err
}

// history validates input, then fetches the history once.
func (e *Extractor) history(ctx context.Context, cik, formType string, year int) (filing.Reference, []*filing.SecFiling, error) {
	ref, err := newReference(cik, formType, year)
	if err != nil {
		return filing.Reference{}, nil, err
	}
	history, err := e.source.FilingHistory(ctx, ref.CIK, string(ref.Form), ref.Year)
	if err != nil {
		return ref, nil, err
	}
	e.logger.Debug("Filing history loaded", "cik", ref.CIK, "form_type", ref.Form, "year", ref.Year, "filings", len(history))
	return ref, history, nil
}

// FilingByIndex returns history[index]. An index outside [0, len) fails with
// ErrIndexOutOfRange naming the index and the reference.
func (e *Extractor) FilingByIndex(ctx context.Context, cik, formType string, year, index int) (*filing.SecFiling, error) {
	ref, history, err := e.history(ctx, cik, formType, year)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(index, len(history), ref); err != nil {
		return nil, err
	}
	return history[index], nil
}

// DocumentsByIndex returns the document URLs of the filing at index.
func (e *Extractor) DocumentsByIndex(ctx context.Context, cik, formType string, year, index int) ([]string, error) {
	f, err := e.FilingByIndex(ctx, cik, formType, year, index)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), f.DocumentURLs...), nil
}

// TextByIndex returns the text content of the filing at index.
func (e *Extractor) TextByIndex(ctx context.Context, cik, formType string, year, index int) (string, error) {
	f, err := e.FilingByIndex(ctx, cik, formType, year, index)
	if err != nil {
		return "", err
	}
	return f.TextContent, nil
}

// HTMLByIndex returns the HTML content of the filing at index.
func (e *Extractor) HTMLByIndex(ctx context.Context, cik, formType string, year, index int) (string, error) {
	f, err := e.FilingByIndex(ctx, cik, formType, year, index)
	if err != nil {
		return "", err
	}
	return f.HTMLContent, nil
}

// MetadataByIndex returns the metadata of the filing at index.
func (e *Extractor) MetadataByIndex(ctx context.Context, cik, formType string, year, index int) (map[string]any, error) {
	f, err := e.FilingByIndex(ctx, cik, formType, year, index)
	if err != nil {
		return nil, err
	}
	return f.Metadata, nil
}

// SummaryByIndex returns the summary of the filing at index.
func (e *Extractor) SummaryByIndex(ctx context.Context, cik, formType string, year, index int) (map[string]any, error) {
	f, err := e.FilingByIndex(ctx, cik, formType, year, index)
	if err != nil {
		return nil, err
	}
	return f.Summary, nil
}

// HistoryByIndex returns the history up to and including index.
func (e *Extractor) HistoryByIndex(ctx context.Context, cik, formType string, year, index int) ([]*filing.SecFiling, error) {
	ref, history, err := e.history(ctx, cik, formType, year)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(index, len(history), ref); err != nil {
		return nil, err
	}
	return history[:index+1], nil
}

// FilingIndexByIndex bounds-checks index, then returns the position of the
// first filing in the history that matches (cik, formType, year).
func (e *Extractor) FilingIndexByIndex(ctx context.Context, cik, formType string, year, index int) (int, error) {
	ref, history, err := e.history(ctx, cik, formType, year)
	if err != nil {
		return 0, err
	}
	if err := checkIndex(index, len(history), ref); err != nil {
		return 0, err
	}
	return firstMatch(history, ref)
}

// FilingIndex returns the position of the first filing in the history that
// matches (cik, formType, year).
func (e *Extractor) FilingIndex(ctx context.Context, cik, formType string, year int) (int, error) {
	ref, history, err := e.history(ctx, cik, formType, year)
	if err != nil {
		return 0, err
	}
	return firstMatch(history, ref)
}

func firstMatch(history []*filing.SecFiling, ref filing.Reference) (int, error) {
	for i, f := range history {
		if f.Matches(ref) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w for %s", ErrFilingNotFound, ref)
}
