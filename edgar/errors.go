package edgar

import (
	"errors"
	"fmt"

	"github.com/c360studio/edgarbridge/filing"
)

// Sentinel errors for caller-input problems.
var (
	// ErrInvalidInput covers bad CIK, form type or year values and filing
	// index entries that fail URL validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexOutOfRange is returned when a history position is outside
	// [0, len(history)).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrFilingNotFound is returned when no recognizable filing matches.
	ErrFilingNotFound = errors.New("filing not found")
)

// IsInputError reports whether err was caused by caller input rather than
// by the MCP server or the network.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrFilingNotFound) ||
		errors.Is(err, filing.ErrInvalidReference)
}

// newReference validates caller input and marks failures as input errors.
func newReference(cik, formType string, year int) (filing.Reference, error) {
	ref, err := filing.NewReference(cik, formType, year, "")
	if err != nil {
		return filing.Reference{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return ref, nil
}

// IndexError reports a history position outside [0, Length).
// errors.Is(err, ErrIndexOutOfRange) matches it.
type IndexError struct {
	Index  int
	Length int
	Ref    filing.Reference
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for %s", e.Index, e.Ref)
}

// Is matches ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// checkIndex is the single bounds check behind every index accessor.
func checkIndex(index, length int, ref filing.Reference) error {
	if index < 0 || index >= length {
		return &IndexError{Index: index, Length: length, Ref: ref}
	}
	return nil
}
