// Package main provides the invoice API router setup.
package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nettalco/invoice-extractor/cmd/invoice-api/handlers"
	"github.com/nettalco/invoice-extractor/cmd/invoice-api/middleware"
	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/history"
	"github.com/nettalco/invoice-extractor/internal/observability"
	"github.com/nettalco/invoice-extractor/internal/pdf"
)

// NewRouter creates the API router with all routes configured. store may be
// nil when history is disabled.
func NewRouter(app *App, store *history.Store, cfg *config.Config, logger *observability.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	// No router-level timeout: the completion stream alone can run for
	// minutes. The server write timeout is the outer bound.

	validator := pdf.NewValidator(logger)

	chatHandler := handlers.NewChatHandler(logger, app, validator, cfg.Orders.Dir, store)
	authHandler := handlers.NewAuthHandler(cfg.Session.BaseURL, cfg.Session.CookieFile, cfg.Session.Locale, app, logger)
	historyHandler := handlers.NewHistoryHandler(logger, store)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","service":"invoice-extractor","session_ready":%t}`, app.Ready())
	})

	r.Route("/chat", func(r chi.Router) {
		r.Post("/file", chatHandler.ProcessFile)
		r.Post("/orden/{name}", chatHandler.ProcessOrder)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/send-code", authHandler.SendCode)
		r.Post("/verify-code", authHandler.VerifyCode)
		r.Post("/reload-session", authHandler.ReloadSession)
	})

	r.Get("/documents", historyHandler.List)

	return r
}
