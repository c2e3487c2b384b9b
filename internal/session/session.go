// Package session implements the claude.ai web session client: cookie-based
// authentication, document upload, and the conversation lifecycle used to
// obtain one completion per document. The upstream is a private browser API,
// so every request carries the header set an actual browser would send.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/nettalco/invoice-extractor/internal/auth"
	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	clientSHA        = "d989fcc79b6283027a05a06a0622b991cdb5f575"
)

// Session holds the authenticated transport and the resolved organization
// handle. One session object is shared across requests; the orchestrator
// serializes access to it.
type Session struct {
	cfg        config.SessionConfig
	baseURL    *url.URL
	httpClient *http.Client
	headers    map[string]string
	orgID      string
	logger     *observability.Logger
}

// New loads the credential file, builds the impersonating transport, and
// resolves the organization handle. A missing or malformed credential file is
// fatal. A failed organization lookup is not: the session is constructed
// unauthenticated and processing calls fail fast until a reload succeeds.
func New(cfg config.SessionConfig, logger *observability.Logger) (*Session, error) {
	cookies, err := auth.LoadCookies(cfg.CookieFile)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("invalid base URL %s", cfg.BaseURL), err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, domain.ConfigError("cannot create cookie jar", err)
	}
	jar.SetCookies(base, auth.HTTPCookies(cookies))

	values := auth.CookieMap(cookies)
	s := &Session{
		cfg:     cfg,
		baseURL: base,
		httpClient: &http.Client{
			Jar: jar,
			// No client-wide timeout: the completion stream outlives any
			// sane global value. Each call bounds itself with a context.
		},
		headers: browserHeaders(cfg.Locale, values["anthropic-device-id"], values["ajs_anonymous_id"]),
		logger:  logger.WithOperation("session"),
	}

	s.logger.Info().Int("cookies", len(cookies)).Msg("Credentials loaded")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MetadataTimeout)
	defer cancel()
	if err := s.ResolveOrganization(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Organization resolution failed, session is unauthenticated")
	}

	return s, nil
}

// browserHeaders builds the fixed impersonation header set. The device and
// anonymous identifiers come from the credential set so they match the
// cookies the upstream already associates with this login.
func browserHeaders(locale, deviceID, anonymousID string) map[string]string {
	return map[string]string{
		"accept":                    "*/*",
		"accept-language":           locale + ",es;q=0.9",
		"anthropic-client-platform": "web_claude_ai",
		"anthropic-client-sha":      clientSHA,
		"anthropic-client-version":  "1.0.0",
		"anthropic-device-id":       deviceID,
		"anthropic-anonymous-id":    anonymousID,
		"content-type":              "application/json",
		"sec-ch-ua":                 `"Google Chrome";v="143", "Chromium";v="143", "Not A(Brand";v="24"`,
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        `"Windows"`,
		"sec-fetch-dest":            "empty",
		"sec-fetch-mode":            "cors",
		"sec-fetch-site":            "same-origin",
		"user-agent":                browserUserAgent,
	}
}

// ResolveOrganization looks up the account's organizations and caches the
// first entry's identifier. On any failure the handle stays unset.
func (s *Session) ResolveOrganization(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, "/api/organizations", nil)
	if err != nil {
		return domain.AuthError("cannot build organizations request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.AuthError("organizations request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.AuthError(fmt.Sprintf("organizations returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var orgs []domain.Organization
	if err := json.Unmarshal(body, &orgs); err != nil {
		return domain.AuthError("cannot parse organizations response", err)
	}

	if len(orgs) == 0 {
		return domain.AuthError("account has no organizations", nil)
	}

	s.orgID = orgs[0].UUID
	s.logger.Info().Str("organization", orgs[0].Name).Str("org_id", s.orgID).Msg("Organization resolved")
	return nil
}

// Authenticated reports whether the organization handle is resolved.
// Processing calls check this before touching the network.
func (s *Session) Authenticated() bool {
	return s.orgID != ""
}

// OrganizationID returns the cached organization handle ("" when unset).
func (s *Session) OrganizationID() string {
	return s.orgID
}

// newRequest builds a request against the base URL with the full
// impersonation header set applied.
func (s *Session) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
