package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/nettalco/invoice-extractor/internal/auth"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

// AuthHandler serves the login flow: request a code, verify it, reload the
// processing session from the freshly written credential file.
type AuthHandler struct {
	mu       sync.Mutex
	pending  map[string]*auth.LoginClient
	baseURL  string
	cookieF  string
	locale   string
	reloader SessionReloader
	logger   *observability.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(baseURL, cookieFile, locale string, reloader SessionReloader, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		pending:  make(map[string]*auth.LoginClient),
		baseURL:  baseURL,
		cookieF:  cookieFile,
		locale:   locale,
		reloader: reloader,
		logger:   logger,
	}
}

type sendCodeDTO struct {
	Email string `json:"email"`
}

type verifyCodeDTO struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SendCode handles POST /auth/send-code. The login client that sent the code
// is kept pending, keyed by email: the upstream correlates send and verify
// through the client's cookies, so verify must reuse the same transport.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, domain.ValidationError("email is required", err))
		return
	}

	client, err := auth.NewLoginClient(h.baseURL, h.cookieF, h.locale, h.logger)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := client.SendCode(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.pending[req.Email] = client
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "code_sent", "email": req.Email})
}

// VerifyCode handles POST /auth/verify-code. On success the credential file is
// rewritten and the processing session reloaded.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, domain.ValidationError("email and code are required", err))
		return
	}

	h.mu.Lock()
	client := h.pending[req.Email]
	h.mu.Unlock()

	if client == nil {
		writeError(w, domain.LoginError("no pending login for this email, request a code first", nil))
		return
	}

	count, err := client.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	delete(h.pending, req.Email)
	h.mu.Unlock()

	if err := h.reloader.Reload(); err != nil {
		h.logger.Error().Err(err).Msg("Session reload after login failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "logged_in", "cookies": count})
}

// ReloadSession handles POST /auth/reload-session: re-read the credential file
// without going through the login flow (the file may have been replaced out of
// band).
func (h *AuthHandler) ReloadSession(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.Reload(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
