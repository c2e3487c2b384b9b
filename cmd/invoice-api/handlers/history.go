package handlers

import (
	"net/http"
	"strconv"

	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/history"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

// HistoryHandler serves the processed-documents listing.
type HistoryHandler struct {
	logger *observability.Logger
	store  *history.Store
}

// NewHistoryHandler creates a history handler. store may be nil when history
// is disabled.
func NewHistoryHandler(logger *observability.Logger, store *history.Store) *HistoryHandler {
	return &HistoryHandler{logger: logger, store: store}
}

// List handles GET /documents.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, domain.StorageError("history is disabled", nil))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("History listing failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": entries, "count": len(entries)})
}
