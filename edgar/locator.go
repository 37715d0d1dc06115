package edgar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/metrics"
	"github.com/c360studio/edgarbridge/source/weburl"
)

// Locator resolves filing references to validated SEC URLs and retrieves
// them through a Navigator.
type Locator struct {
	nav       Navigator
	index     IndexSource
	parser    Parser
	validator *weburl.Validator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithIndexSource replaces the EDGAR browse page lookup.
func WithIndexSource(index IndexSource) LocatorOption {
	return func(l *Locator) {
		l.index = index
	}
}

// WithParser replaces the filing index page parser.
func WithParser(p Parser) LocatorOption {
	return func(l *Locator) {
		l.parser = p
	}
}

// WithValidator sets the validator used for candidate URLs.
func WithValidator(v *weburl.Validator) LocatorOption {
	return func(l *Locator) {
		l.validator = v
	}
}

// WithMetrics records validation and filing metrics.
func WithMetrics(m *metrics.Metrics) LocatorOption {
	return func(l *Locator) {
		l.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) {
		l.logger = logger
	}
}

// NewLocator creates a Locator driving nav. Without options it lists filings
// from the EDGAR browse page and parses filing index pages.
func NewLocator(nav Navigator, opts ...LocatorOption) *Locator {
	l := &Locator{nav: nav}
	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.validator == nil {
		l.validator = weburl.NewValidator(nil)
	}
	if l.index == nil {
		l.index = NewBrowseIndex(nav, DefaultMaxCandidates, l.logger)
	}
	if l.parser == nil {
		l.parser = NewIndexPageParser(nil, l.logger)
	}
	return l
}

// ResolveFilingURL returns the canonical URL of the first filing listed for
// (cik, formType, year). A listed URL that fails the public-regulator policy
// is an error wrapping *weburl.RejectedError and ErrInvalidInput.
func (l *Locator) ResolveFilingURL(ctx context.Context, cik, formType string, year int) (string, error) {
	ref, err := newReference(cik, formType, year)
	if err != nil {
		return "", err
	}
	return l.resolve(ctx, ref)
}

func (l *Locator) resolve(ctx context.Context, ref filing.Reference) (string, error) {
	candidates, err := l.index.Candidates(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("list filings for %s: %w", ref, err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w for %s", ErrFilingNotFound, ref)
	}
	return l.validateCandidate(ctx, candidates[0])
}

// validateCandidate applies the public-regulator policy to a listed URL.
func (l *Locator) validateCandidate(ctx context.Context, raw string) (string, error) {
	policy := weburl.PublicRegulatorPolicy()
	res := l.validator.Validate(ctx, raw, policy)
	l.metrics.RecordValidation(policy.Name, string(res.Reason))
	if !res.OK() {
		l.logger.Warn("Filing index entry rejected",
			"url", raw,
			"reason", res.Reason,
			"detail", res.Detail)
		return "", fmt.Errorf("%w: filing index entry: %w", ErrInvalidInput, res.Err(raw, policy))
	}
	return res.Canonical, nil
}

// GetFiling resolves, navigates to and parses the first filing for
// (cik, formType, year).
func (l *Locator) GetFiling(ctx context.Context, cik, formType string, year int) (*filing.SecFiling, error) {
	ref, err := newReference(cik, formType, year)
	if err != nil {
		return nil, err
	}

	target, err := l.resolve(ctx, ref)
	if err != nil {
		l.metrics.RecordFiling(string(ref.Form), false)
		return nil, err
	}

	f, err := l.fetch(ctx, ref, target)
	l.metrics.RecordFiling(string(ref.Form), err == nil)
	return f, err
}

// FilingHistory retrieves every listed filing for (cik, formType, year) in
// listing order. Each candidate goes through the same validation as
// ResolveFilingURL, and a rejected candidate aborts the whole history.
// Pages that do not parse as a filing are skipped.
func (l *Locator) FilingHistory(ctx context.Context, cik, formType string, year int) ([]*filing.SecFiling, error) {
	ref, err := newReference(cik, formType, year)
	if err != nil {
		return nil, err
	}

	candidates, err := l.index.Candidates(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list filings for %s: %w", ref, err)
	}

	history := make([]*filing.SecFiling, 0, len(candidates))
	for _, raw := range candidates {
		target, err := l.validateCandidate(ctx, raw)
		if err != nil {
			return nil, err
		}

		f, err := l.fetch(ctx, ref, target)
		l.metrics.RecordFiling(string(ref.Form), err == nil)
		if IsInputError(err) {
			l.logger.Warn("Skipping unrecognized filing page", "url", target, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		history = append(history, f)
	}

	l.logger.Info("Filing history retrieved",
		"cik", ref.CIK,
		"form_type", ref.Form,
		"year", ref.Year,
		"filings", len(history))
	return history, nil
}

// fetch navigates to an already validated URL and parses the page.
func (l *Locator) fetch(ctx context.Context, ref filing.Reference, target string) (*filing.SecFiling, error) {
	if !l.nav.Navigate(ctx, target, weburl.PublicRegulatorPolicy()) {
		return nil, mcp.NewConnectionError(l.nav.BaseURL(), fmt.Errorf("failed to navigate to filing URL %s", target))
	}

	content, err := l.nav.PageContent(ctx)
	if err != nil {
		return nil, err
	}

	f, err := l.parser.Parse(ctx, ref, target, content)
	if err != nil {
		return nil, fmt.Errorf("parse filing %s: %w", target, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no filing found for %s", ErrFilingNotFound, ref)
	}
	return f, nil
}
