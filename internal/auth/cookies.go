// Package auth implements the credential store and the magic-link login flow
// that produces it. The cookie file is the only artifact shared between the
// two: the login flow writes it, the session bootstrap reads it.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// LoadCookies reads the credential file. A missing or malformed file is a
// credentials error: the session cannot be constructed without it.
func LoadCookies(path string) ([]domain.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.CredentialsError(fmt.Sprintf("cannot read cookie file %s", path), err)
	}

	var cookies []domain.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, domain.CredentialsError(fmt.Sprintf("cookie file %s is malformed", path), err)
	}

	if len(cookies) == 0 {
		return nil, domain.CredentialsError(fmt.Sprintf("cookie file %s contains no cookies", path), nil)
	}

	return cookies, nil
}

// SaveCookies persists the credential set, overwriting any previous file.
func SaveCookies(path string, cookies []domain.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return domain.CredentialsError("cannot encode cookies", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domain.CredentialsError(fmt.Sprintf("cannot write cookie file %s", path), err)
	}

	return nil
}

// CookieMap flattens the credential set into name -> value. Later duplicates
// win, matching how a browser jar would resolve them.
func CookieMap(cookies []domain.Cookie) map[string]string {
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m
}

// HTTPCookies converts the credential set into net/http cookies for a jar.
func HTTPCookies(cookies []domain.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   path,
			Secure: c.Secure,
		})
	}
	return out
}

// FromHTTPCookies converts jar cookies back into persistable records.
func FromHTTPCookies(domainName string, cookies []*http.Cookie) []domain.Cookie {
	out := make([]domain.Cookie, 0, len(cookies))
	for _, c := range cookies {
		rec := domain.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domainName,
			Path:   c.Path,
			Secure: c.Secure,
		}
		if rec.Path == "" {
			rec.Path = "/"
		}
		if !c.Expires.IsZero() {
			rec.Expiry = c.Expires.Unix()
		}
		out = append(out, rec)
	}
	return out
}
