package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

const loginTimeout = 30 * time.Second

// LoginClient drives the email challenge/response flow against the upstream
// auth endpoints. One client holds one login session: the transport that
// requested the code must be the one that verifies it, because the upstream
// correlates the two through its own cookies.
type LoginClient struct {
	baseURL     string
	cookieFile  string
	locale      string
	deviceID    string
	anonymousID string
	httpClient  *http.Client
	logger      *observability.Logger
}

// NewLoginClient creates a login client with a fresh cookie jar and generated
// device identifiers.
func NewLoginClient(baseURL, cookieFile, locale string, logger *observability.Logger) (*LoginClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, domain.LoginError("cannot create cookie jar", err)
	}

	return &LoginClient{
		baseURL:     baseURL,
		cookieFile:  cookieFile,
		locale:      locale,
		deviceID:    uuid.NewString(),
		anonymousID: "claudeai.v1." + uuid.NewString(),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: loginTimeout,
		},
		logger: logger.WithOperation("login"),
	}, nil
}

type sendCodeRequest struct {
	EmailAddress  string  `json:"email_address"`
	UTCOffset     int     `json:"utc_offset"`
	Locale        string  `json:"locale"`
	LoginIntent   *string `json:"login_intent"`
	OAuthClientID *string `json:"oauth_client_id"`
	Source        string  `json:"source"`
}

type verifyCodeRequest struct {
	Credentials   codeCredentials `json:"credentials"`
	Locale        string          `json:"locale"`
	OAuthClientID *string         `json:"oauth_client_id"`
	Source        string          `json:"source"`
}

type codeCredentials struct {
	Method       string `json:"method"`
	EmailAddress string `json:"email_address"`
	Code         string `json:"code"`
}

type upstreamError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SendCode requests a one-time login code for the given email.
func (c *LoginClient) SendCode(ctx context.Context, email string) error {
	payload := sendCodeRequest{
		EmailAddress: email,
		UTCOffset:    -300,
		Locale:       c.locale,
		Source:       "claude",
	}

	resp, body, err := c.post(ctx, "/api/auth/send_magic_link", payload)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.LoginError(fmt.Sprintf("rate limited: %s", upstreamMessage(body)), nil)
	case resp.StatusCode != http.StatusOK:
		return domain.LoginError(fmt.Sprintf("send code failed (%d): %s", resp.StatusCode, upstreamMessage(body)), nil)
	}

	c.logger.Info().Str("email", email).Msg("Login code sent")
	return nil
}

// VerifyCode exchanges the 6-digit code for a cookie set, persists it to the
// cookie file, and returns the number of cookies saved.
func (c *LoginClient) VerifyCode(ctx context.Context, email, code string) (int, error) {
	if len(code) != 6 || !isDigits(code) {
		return 0, domain.LoginError("code must be 6 digits", nil)
	}

	payload := verifyCodeRequest{
		Credentials: codeCredentials{
			Method:       "code",
			EmailAddress: email,
			Code:         code,
		},
		Locale: c.locale,
		Source: "claude",
	}

	resp, body, err := c.post(ctx, "/api/auth/verify_magic_link", payload)
	if err != nil {
		return 0, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, domain.LoginError(fmt.Sprintf("rate limited: %s", upstreamMessage(body)), nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return 0, domain.LoginError("code is wrong or expired", nil)
	case resp.StatusCode != http.StatusOK:
		return 0, domain.LoginError(fmt.Sprintf("verify code failed (%d): %s", resp.StatusCode, upstreamMessage(body)), nil)
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &result); err != nil || !result.Success {
		return 0, domain.LoginError(fmt.Sprintf("verify code rejected: %s", string(body)), err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return 0, domain.LoginError("invalid base URL", err)
	}

	jarCookies := c.httpClient.Jar.Cookies(base)
	records := FromHTTPCookies(base.Hostname(), jarCookies)
	if err := SaveCookies(c.cookieFile, records); err != nil {
		return 0, err
	}

	c.logger.Info().Int("cookies", len(records)).Msg("Login succeeded, cookies saved")
	return len(records), nil
}

func (c *LoginClient) post(ctx context.Context, path string, payload interface{}) (*http.Response, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, domain.LoginError("cannot marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, domain.LoginError("cannot build request", err)
	}

	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", c.locale+",es;q=0.9")
	req.Header.Set("anthropic-client-platform", "web_claude_ai")
	req.Header.Set("anthropic-client-version", "1.0.0")
	req.Header.Set("anthropic-device-id", c.deviceID)
	req.Header.Set("anthropic-anonymous-id", c.anonymousID)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("origin", c.baseURL)
	req.Header.Set("referer", c.baseURL+"/login")
	req.Header.Set("user-agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, domain.LoginError("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, domain.LoginError("cannot read response", err)
	}

	return resp, respBody, nil
}

// upstreamMessage extracts the error message from an upstream error body,
// falling back to the raw body.
func upstreamMessage(body []byte) string {
	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err == nil && ue.Error.Message != "" {
		return ue.Error.Message
	}
	return string(body)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// The login flow impersonates a newer browser build than the processing
// session does; each transport keeps the fingerprint its cookies were minted
// with, so the two constants are intentionally not shared.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
