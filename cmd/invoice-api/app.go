package main

import (
	"context"
	"sync"

	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/extract"
	"github.com/nettalco/invoice-extractor/internal/observability"
	"github.com/nettalco/invoice-extractor/internal/session"
)

// App holds the reloadable processing pipeline. The session is rebuilt from
// the cookie file whenever credentials change (login, manual reload), so the
// server never needs a restart to pick up a fresh login.
type App struct {
	mu      sync.RWMutex
	cfg     *config.Config
	logger  *observability.Logger
	service *extract.Service
}

// NewApp creates the application and attempts an initial session load. A
// missing or stale credential file is not fatal: the server boots degraded and
// processing requests fail fast until a reload succeeds.
func NewApp(cfg *config.Config, logger *observability.Logger) *App {
	app := &App{cfg: cfg, logger: logger}

	if err := app.Reload(); err != nil {
		logger.Warn().Err(err).Msg("Session unavailable at startup, processing disabled until login")
	}
	return app
}

// Reload rebuilds the session from the cookie file and swaps the pipeline in.
func (a *App) Reload() error {
	sess, err := session.New(a.cfg.Session, a.logger)
	if err != nil {
		return err
	}
	if !sess.Authenticated() {
		return domain.AuthError("credentials loaded but organization resolution failed", nil)
	}

	svc := extract.NewService(sess, a.cfg.Session, a.logger)

	a.mu.Lock()
	a.service = svc
	a.mu.Unlock()

	a.logger.Info().Str("org_id", sess.OrganizationID()).Msg("Session reloaded")
	return nil
}

// Ready reports whether a working pipeline is installed.
func (a *App) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.service != nil
}

// Process runs one PDF through the current pipeline.
func (a *App) Process(ctx context.Context, pdfPath string) (*domain.Outcome, error) {
	a.mu.RLock()
	svc := a.service
	a.mu.RUnlock()

	if svc == nil {
		return nil, domain.AuthError("no active session, log in first", nil)
	}
	return svc.Process(ctx, pdfPath)
}
