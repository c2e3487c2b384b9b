package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

func TestValidator_ValidatePDFPath(t *testing.T) {
	v := NewValidator(observability.Nop())
	dir := t.TempDir()

	valid := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(valid, []byte("%PDF-1.4"), 0o600))

	upper := filepath.Join(dir, "INVOICE.PDF")
	require.NoError(t, os.WriteFile(upper, []byte("%PDF-1.4"), 0o600))

	notPDF := filepath.Join(dir, "invoice.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("text"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid pdf", valid, false},
		{"uppercase extension", upper, false},
		{"empty path", "", true},
		{"whitespace path", "   ", true},
		{"missing file", filepath.Join(dir, "absent.pdf"), true},
		{"directory", dir, true},
		{"wrong extension", notPDF, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidatePDFPath(tc.path)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
