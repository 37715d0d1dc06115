// Package export writes filing records to local files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/edgarbridge/filing"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatJSONL produces one JSON object per line.
	FormatJSONL Format = "jsonl"

	// FormatJSON produces a single indented JSON array.
	FormatJSON Format = "json"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSONL: {
		Name:        FormatJSONL,
		MIMEType:    "application/jsonl",
		Extension:   ".jsonl",
		Description: "JSON Lines - one record per line",
	},
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON - indented array of records",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// SupportedExtensions lists the registered extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(FormatRegistry))
	for _, info := range FormatRegistry {
		exts = append(exts, info.Extension)
	}
	sort.Strings(exts)
	return exts
}

// FormatForPath picks a format from the file extension. Paths without an
// extension default to JSON lines.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return FormatJSONL, nil
	}
	for name, info := range FormatRegistry {
		if info.Extension == ext {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported export extension %q (want one of %s)", ext, strings.Join(SupportedExtensions(), ", "))
}

// Writer serializes records in one format.
type Writer interface {
	Write(rec filing.Recorder) error
	Close() error
}

// NewWriter returns a Writer for format over w.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// JSONLWriter writes records as JSON lines.
type JSONLWriter struct {
	enc *json.Encoder
}

// NewJSONLWriter creates a new JSON lines writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Write encodes one record followed by a newline.
func (w *JSONLWriter) Write(rec filing.Recorder) error {
	return w.enc.Encode(rec.Record())
}

// Close is a no-op; lines are written as they arrive.
func (w *JSONLWriter) Close() error {
	return nil
}

// JSONWriter collects records and writes them as one array on Close.
type JSONWriter struct {
	w       io.Writer
	records []filing.Record
}

// NewJSONWriter creates a new JSON array writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w, records: make([]filing.Record, 0)}
}

// Write buffers one record.
func (w *JSONWriter) Write(rec filing.Recorder) error {
	w.records = append(w.records, rec.Record())
	return nil
}

// Close writes the buffered array.
func (w *JSONWriter) Close() error {
	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(w.records)
}
