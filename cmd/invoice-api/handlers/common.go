// Package handlers provides HTTP handlers for the invoice API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// Extractor processes one PDF end to end and reports pipeline readiness.
type Extractor interface {
	Ready() bool
	Process(ctx context.Context, pdfPath string) (*domain.Outcome, error)
}

// SessionReloader rebuilds the upstream session from the credential file.
type SessionReloader interface {
	Reload() error
}

// extractionResponse is the wire shape of a successful extraction. Field names
// are fixed by the downstream ERP integration.
type extractionResponse struct {
	Document    domain.InvoiceRecord `json:"documento"`
	ElapsedSecs float64              `json:"tiempo_respuesta"`
	Attempts    int                  `json:"intentos"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain error types to HTTP statuses: validation problems
// are the client's fault, missing authentication means the service cannot
// serve yet, and everything else (including exhausted retries) is a server
// failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsType(err, domain.ErrorTypeValidation):
		status = http.StatusBadRequest
	case domain.IsType(err, domain.ErrorTypeAuth), domain.IsType(err, domain.ErrorTypeCredentials):
		status = http.StatusServiceUnavailable
	case domain.IsType(err, domain.ErrorTypeLogin):
		status = http.StatusUnauthorized
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
