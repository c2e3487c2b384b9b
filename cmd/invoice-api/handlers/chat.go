package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/history"
	"github.com/nettalco/invoice-extractor/internal/observability"
	"github.com/nettalco/invoice-extractor/internal/pdf"
)

// maxUploadBytes bounds the multipart body kept in memory before spilling to
// disk. Invoices are single-page documents; anything past this is suspect.
const maxUploadBytes = 50 << 20

// ChatHandler serves the document processing endpoints.
type ChatHandler struct {
	logger    *observability.Logger
	extractor Extractor
	validator *pdf.Validator
	ordersDir string
	store     *history.Store
}

// NewChatHandler creates a chat handler. store may be nil when history is
// disabled.
func NewChatHandler(logger *observability.Logger, extractor Extractor, validator *pdf.Validator, ordersDir string, store *history.Store) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		extractor: extractor,
		validator: validator,
		ordersDir: ordersDir,
		store:     store,
	}
}

// ProcessFile handles POST /chat/file: a multipart PDF upload processed
// directly.
func (h *ChatHandler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	if !h.extractor.Ready() {
		writeError(w, domain.AuthError("no active session, log in first", nil))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, domain.ValidationError("cannot parse multipart body", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.ValidationError("missing file field", err))
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "invoice-*.pdf")
	if err != nil {
		writeError(w, domain.ValidationError("cannot create temp file", err))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, domain.ValidationError("cannot store upload", err))
		return
	}
	tmp.Close()

	h.process(w, r, tmpPath, header.Filename)
}

// ProcessOrder handles POST /chat/orden/{name}: a document already present in
// the shared orders directory, addressed by file name.
func (h *ChatHandler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	if !h.extractor.Ready() {
		writeError(w, domain.AuthError("no active session, log in first", nil))
		return
	}

	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, domain.ValidationError("order name is required", nil))
		return
	}
	// The name is a bare file name, never a path.
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		writeError(w, domain.ValidationError(fmt.Sprintf("invalid order name: %s", name), nil))
		return
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}

	path := filepath.Join(h.ordersDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("order %s not found", name)})
		return
	}

	h.process(w, r, path, name)
}

func (h *ChatHandler) process(w http.ResponseWriter, r *http.Request, path, displayName string) {
	if err := h.validator.ValidatePDFPath(path); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.extractor.Process(r.Context(), path)
	if err != nil {
		h.logger.Error().Err(err).Str("file", displayName).Msg("Processing failed")
		writeError(w, err)
		return
	}

	if h.store != nil {
		if err := h.store.Record(r.Context(), displayName, outcome); err != nil {
			h.logger.Warn().Err(err).Str("file", displayName).Msg("History write failed")
		}
	}

	writeJSON(w, http.StatusOK, extractionResponse{
		Document:    outcome.Record,
		ElapsedSecs: outcome.Elapsed.Seconds(),
		Attempts:    outcome.Attempt,
	})
}
