// Package filing defines SEC filing references and the filing records handed
// to downstream consumers.
package filing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidReference is returned when a CIK, form type, year or quarter
// fails validation.
var ErrInvalidReference = errors.New("invalid filing reference")

// Year bounds accepted for a fiscal year.
const (
	MinYear = 1900
	MaxYear = 2100
)

// cikLength is the zero-padded width of a Central Index Key.
const cikLength = 10

// FormType is an SEC form type.
type FormType string

// Supported form types.
const (
	Form10K FormType = "10-K"
	Form10Q FormType = "10-Q"
)

// ParseFormType validates s as a supported form type. Matching is
// case-insensitive.
func ParseFormType(s string) (FormType, error) {
	switch FormType(strings.ToUpper(strings.TrimSpace(s))) {
	case Form10K:
		return Form10K, nil
	case Form10Q:
		return Form10Q, nil
	default:
		return "", fmt.Errorf("%w: form type %q must be one of %s, %s", ErrInvalidReference, s, Form10K, Form10Q)
	}
}

// Token returns the form type as a lowercase token without punctuation,
// suitable for NATS subjects and file names ("10k", "10q").
func (f FormType) Token() string {
	return strings.ToLower(strings.ReplaceAll(string(f), "-", ""))
}

// Quarter is a fiscal quarter, Q1 to Q4.
type Quarter string

// Fiscal quarters.
const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// ParseQuarter validates s as a fiscal quarter. An empty string is allowed
// and means no quarter.
func ParseQuarter(s string) (Quarter, error) {
	q := Quarter(strings.ToUpper(strings.TrimSpace(s)))
	switch q {
	case "", Q1, Q2, Q3, Q4:
		return q, nil
	default:
		return "", fmt.Errorf("%w: quarter %q must be Q1, Q2, Q3, or Q4", ErrInvalidReference, s)
	}
}

// NormalizeCIK validates a numeric CIK of up to 10 digits and zero-pads it to
// 10 digits.
func NormalizeCIK(cik string) (string, error) {
	cik = strings.TrimSpace(cik)
	if cik == "" || len(cik) > cikLength {
		return "", fmt.Errorf("%w: CIK %q must be a numeric string of up to %d digits", ErrInvalidReference, cik, cikLength)
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: CIK %q must be numeric", ErrInvalidReference, cik)
		}
	}
	return strings.Repeat("0", cikLength-len(cik)) + cik, nil
}

// UnpaddedCIK returns the CIK without leading zeros, as used in EDGAR
// archive paths.
func UnpaddedCIK(cik string) string {
	n, err := strconv.ParseUint(cik, 10, 64)
	if err != nil {
		return cik
	}
	return strconv.FormatUint(n, 10)
}

// Reference identifies a filing by company, form type, fiscal year and
// optional quarter. Index is the ordinal position within the company's
// filing history for that form and year. References are values and are not
// modified after construction.
type Reference struct {
	CIK     string   `json:"cik"`
	Form    FormType `json:"form_type"`
	Year    int      `json:"year"`
	Quarter Quarter  `json:"quarter,omitempty"`
	Index   int      `json:"index"`
}

// NewReference validates and normalizes the fields of a filing reference.
// A quarter is only accepted for 10-Q filings.
func NewReference(cik, formType string, year int, quarter string) (Reference, error) {
	normalized, err := NormalizeCIK(cik)
	if err != nil {
		return Reference{}, err
	}

	form, err := ParseFormType(formType)
	if err != nil {
		return Reference{}, err
	}

	if year < MinYear || year > MaxYear {
		return Reference{}, fmt.Errorf("%w: year %d must be between %d and %d", ErrInvalidReference, year, MinYear, MaxYear)
	}

	q, err := ParseQuarter(quarter)
	if err != nil {
		return Reference{}, err
	}
	if q != "" && form != Form10Q {
		return Reference{}, fmt.Errorf("%w: quarter only applies to %s filings", ErrInvalidReference, Form10Q)
	}

	return Reference{CIK: normalized, Form: form, Year: year, Quarter: q}, nil
}

// WithIndex returns a copy of r pointing at a different history position.
func (r Reference) WithIndex(index int) Reference {
	r.Index = index
	return r
}

// String formats the reference as it appears in error messages.
func (r Reference) String() string {
	s := fmt.Sprintf("CIK %s, form type %s, year %d", r.CIK, r.Form, r.Year)
	if r.Quarter != "" {
		s += ", quarter " + string(r.Quarter)
	}
	return s
}
