package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
	"github.com/nettalco/invoice-extractor/internal/session"
)

// Conversations is the upstream surface the orchestrator drives. Satisfied by
// session.Session in production and by fakes in tests.
type Conversations interface {
	Authenticated() bool
	Upload(ctx context.Context, filePath string) (string, error)
	CreateAndSend(ctx context.Context, fileUUID, prompt string) (string, string, error)
	Delete(ctx context.Context, conversationID string) error
}

// Service orchestrates the extraction of one PDF: upload, ephemeral
// conversation, streamed answer, parse, cleanup. Requests are serialized; the
// upstream session tolerates exactly one conversation at a time.
type Service struct {
	mu     sync.Mutex
	conv   Conversations
	parser *Parser
	cfg    config.SessionConfig
	logger *observability.Logger
}

// NewService creates the orchestrator around an authenticated session.
func NewService(conv Conversations, cfg config.SessionConfig, logger *observability.Logger) *Service {
	return &Service{
		conv:   conv,
		parser: NewParser(cfg.OwnTaxID),
		cfg:    cfg,
		logger: logger.WithOperation("extract"),
	}
}

// Process runs the full sequence for one PDF, retrying transient upstream
// failures. At most MaxAttempts attempts are made, each with a fresh upload
// and a fresh conversation; on exhaustion the last cause is returned wrapped.
func (s *Service) Process(ctx context.Context, pdfPath string) (*domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.conv.Authenticated() {
		return nil, domain.AuthError("session not authenticated", nil)
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.ExhaustedError("processing canceled", err)
		}

		s.logger.Info().
			Str("pdf", pdfPath).
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.MaxAttempts).
			Msg("Processing attempt")

		record, err := s.attempt(ctx, pdfPath)
		if err == nil {
			outcome := &domain.Outcome{
				Record:  *record,
				Elapsed: time.Since(start),
				Attempt: attempt,
			}
			s.logger.Info().
				Str("pdf", pdfPath).
				Int("attempt", attempt).
				Dur("elapsed", outcome.Elapsed).
				Msg("Extraction succeeded")
			return outcome, nil
		}

		lastErr = err
		s.logger.Warn().
			Err(err).
			Str("pdf", pdfPath).
			Int("attempt", attempt).
			Msg("Attempt failed")

		if attempt < s.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, domain.ExhaustedError("processing canceled", ctx.Err())
			case <-time.After(s.cfg.RetryBackoff):
			}
		}
	}

	return nil, domain.ExhaustedError(
		fmt.Sprintf("all %d attempts failed", s.cfg.MaxAttempts), lastErr)
}

// attempt runs one full upload-ask-parse-cleanup cycle. The conversation is
// deleted whenever one was created, success or not.
func (s *Service) attempt(ctx context.Context, pdfPath string) (*domain.InvoiceRecord, error) {
	fileUUID, err := s.conv.Upload(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	// The upstream needs a moment to ingest the upload before a conversation
	// may reference it.
	select {
	case <-ctx.Done():
		return nil, domain.ConversationError("canceled after upload", ctx.Err())
	case <-time.After(s.cfg.SettleDelay):
	}

	conversationID, text, err := s.conv.CreateAndSend(ctx, fileUUID, session.ExtractionPrompt)
	if conversationID != "" {
		s.cleanup(conversationID)
	}
	if err != nil {
		return nil, err
	}

	record := s.parser.Parse(text)
	return &record, nil
}

// cleanup deletes an ephemeral conversation. Best-effort: a leaked
// conversation costs nothing beyond clutter in the upstream account, so
// failures are logged and swallowed. Uses a fresh context so cleanup still
// runs after the request context died.
func (s *Service) cleanup(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MetadataTimeout)
	defer cancel()

	if err := s.conv.Delete(ctx, conversationID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("Conversation cleanup failed")
	}
}
