// Package pdf provides input validation for the documents submitted for
// extraction.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

// Validator checks submitted files before they reach the upstream session.
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance.
func NewValidator(logger *observability.Logger) *Validator {
	return &Validator{logger: logger.WithOperation("pdf")}
}

// ValidatePDFPath validates that a path points to a readable PDF file.
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	// Large files are accepted but slow the upload noticeably.
	const warnSize = 25 * 1024 * 1024
	if info.Size() > warnSize {
		v.logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF is very large, upload may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}
