package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/domain"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

func writeCookieFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	cookies := []domain.Cookie{
		{Name: "sessionKey", Value: "sk-test", Domain: "claude.ai", Path: "/"},
		{Name: "anthropic-device-id", Value: "device-123", Domain: "claude.ai", Path: "/"},
		{Name: "ajs_anonymous_id", Value: "anon-456", Domain: "claude.ai", Path: "/"},
	}
	data, err := json.Marshal(cookies)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testConfig(baseURL, cookieFile string) config.SessionConfig {
	return config.SessionConfig{
		BaseURL:         baseURL,
		CookieFile:      cookieFile,
		Locale:          "es-419",
		Timezone:        "America/Lima",
		MetadataTimeout: 2 * time.Second,
		UploadTimeout:   2 * time.Second,
		StreamTimeout:   2 * time.Second,
		SettleDelay:     time.Millisecond,
		RetryBackoff:    time.Millisecond,
		MaxAttempts:     1,
	}
}

func TestNew_ResolvesOrganization(t *testing.T) {
	var gotDeviceID, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/organizations", r.URL.Path)
		gotDeviceID = r.Header.Get("anthropic-device-id")
		gotCookie = r.Header.Get("Cookie")
		json.NewEncoder(w).Encode([]domain.Organization{
			{UUID: "org-1", Name: "Test Org"},
			{UUID: "org-2", Name: "Second Org"},
		})
	}))
	defer srv.Close()

	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "org-1", sess.OrganizationID())
	assert.Equal(t, "device-123", gotDeviceID)
	assert.Contains(t, gotCookie, "sessionKey=sk-test")
}

func TestNew_MissingCookieFile(t *testing.T) {
	_, err := New(testConfig("https://claude.ai", filepath.Join(t.TempDir(), "missing.json")), observability.Nop())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeCredentials))
}

func TestNew_UnauthorizedIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid authorization"}}`))
	}))
	defer srv.Close()

	// Stale cookies are not fatal at construction: the session comes up
	// unauthenticated and processing fails fast until a reload.
	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())

	_, err = sess.Upload(context.Background(), "invoice.pdf")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeAuth))
}

func TestSession_Lifecycle(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o600))

	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Organization{{UUID: "org-1", Name: "Test Org"}})
	})
	mux.HandleFunc("POST /api/org-1/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "invoice.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(map[string]string{"file_uuid": "file-1"})
	})
	mux.HandleFunc("POST /api/organizations/org-1/chat_conversations", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req["uuid"])
		assert.Equal(t, "", req["name"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"uuid": "conv-1"})
	})
	mux.HandleFunc("POST /api/organizations/org-1/chat_conversations/conv-1/completion", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("accept"), "text/event-stream")
		assert.Contains(t, r.Header.Get("referer"), "/chat/conv-1")

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, parentMessageUUID, req.ParentMessageUUID)
		assert.Equal(t, []string{"file-1"}, req.Files)
		assert.Equal(t, "messages", req.RenderingMode)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"SOLES,null,ACME"}}`+"\n")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n")
	})
	mux.HandleFunc("DELETE /api/organizations/org-1/chat_conversations/", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)
	require.True(t, sess.Authenticated())

	fileUUID, err := sess.Upload(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "file-1", fileUUID)

	convID, text, err := sess.CreateAndSend(context.Background(), fileUUID, ExtractionPrompt)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", convID)
	assert.Equal(t, "SOLES,null,ACME", text)

	require.NoError(t, sess.Delete(context.Background(), convID))
	require.Len(t, deleted, 1)
	assert.Contains(t, deleted[0], "conv-1")
}

func TestSession_UploadRejectedStatus(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o600))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Organization{{UUID: "org-1", Name: "Test Org"}})
	})
	mux.HandleFunc("POST /api/org-1/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"blocked"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)

	_, err = sess.Upload(context.Background(), pdfPath)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeUpload))
}

func TestSession_EmptyStreamIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Organization{{UUID: "org-1", Name: "Test Org"}})
	})
	mux.HandleFunc("POST /api/organizations/org-1/chat_conversations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"uuid": "conv-1"})
	})
	mux.HandleFunc("POST /api/organizations/org-1/chat_conversations/conv-1/completion", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)

	convID, _, err := sess.CreateAndSend(context.Background(), "file-1", ExtractionPrompt)
	require.Error(t, err)
	// The conversation id still comes back so the caller can clean up.
	assert.Equal(t, "conv-1", convID)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStream))
}

func TestSession_DeleteEmptyIDIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/organizations" {
			json.NewEncoder(w).Encode([]domain.Organization{{UUID: "org-1", Name: "Test Org"}})
			return
		}
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	sess, err := New(testConfig(srv.URL, writeCookieFile(t)), observability.Nop())
	require.NoError(t, err)
	assert.NoError(t, sess.Delete(context.Background(), ""))
}
