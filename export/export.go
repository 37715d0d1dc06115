package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/edgarbridge/filing"
)

// ErrPathNotAllowed is returned for export paths outside the base directory.
var ErrPathNotAllowed = errors.New("export path not allowed")

// ConfinePath resolves a relative path against base and rejects absolute
// paths, any ".." element and symlinked parents that lead outside base.
func ConfinePath(base, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathNotAllowed)
	}
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathNotAllowed, path)
	}
	for _, elem := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if elem == ".." {
			return "", fmt.Errorf("%w: %s leaves the working directory", ErrPathNotAllowed, path)
		}
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	target := filepath.Join(absBase, path)
	if resolved, err := filepath.EvalSymlinks(filepath.Dir(target)); err == nil {
		target = filepath.Join(resolved, filepath.Base(target))
	}

	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s leaves the working directory", ErrPathNotAllowed, path)
	}
	return target, nil
}

// Exporter writes records to files confined to a base directory.
type Exporter struct {
	base   string
	logger *slog.Logger
}

// NewExporter creates an Exporter rooted at base. An empty base means the
// current working directory.
func NewExporter(base string, logger *slog.Logger) (*Exporter, error) {
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		base = cwd
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{base: base, logger: logger}, nil
}

// ExportFile writes recs to path in the format implied by its extension and
// returns the absolute path written. The file is replaced atomically.
func (e *Exporter) ExportFile(path string, recs []filing.Recorder) (string, error) {
	target, err := ConfinePath(e.base, path)
	if err != nil {
		return "", err
	}
	format, err := FormatForPath(target)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeAll(tmp, format, recs); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("rename export file: %w", err)
	}

	e.logger.Info("Exported filing records",
		slog.String("path", target),
		slog.String("format", string(format)),
		slog.Int("records", len(recs)))
	return target, nil
}

func writeAll(f *os.File, format Format, recs []filing.Recorder) error {
	w, err := NewWriter(format, f)
	if err != nil {
		return err
	}
	for i, rec := range recs {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish export: %w", err)
	}
	return nil
}
