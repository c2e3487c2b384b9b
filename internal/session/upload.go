package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// Upload streams the PDF as multipart form data and returns the opaque file
// handle. The handle is valid only for the conversation created right after
// it; retries always upload again.
func (s *Session) Upload(ctx context.Context, filePath string) (string, error) {
	if !s.Authenticated() {
		return "", domain.AuthError("no organization resolved", nil)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", domain.UploadError(fmt.Sprintf("cannot open %s", filePath), err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createPDFPart(writer, filepath.Base(filePath))
	if err != nil {
		return "", domain.UploadError("cannot build multipart body", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", domain.UploadError("cannot read file contents", err)
	}
	if err := writer.Close(); err != nil {
		return "", domain.UploadError("cannot finalize multipart body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	// The upload path is scoped by org but, unlike every other endpoint, has
	// no "organizations/" segment. Observed upstream behavior.
	req, err := s.newRequest(ctx, http.MethodPost, fmt.Sprintf("/api/%s/upload", s.orgID), &buf)
	if err != nil {
		return "", domain.UploadError("cannot build upload request", err)
	}
	// Multipart boundary replaces the fixed JSON content type.
	req.Header.Set("content-type", writer.FormDataContentType())

	s.logger.Info().Str("file", filepath.Base(filePath)).Msg("Uploading document")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.UploadError("upload request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", domain.UploadError(fmt.Sprintf("upload returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var result struct {
		FileUUID string `json:"file_uuid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", domain.UploadError("cannot parse upload response", err)
	}
	if result.FileUUID == "" {
		return "", domain.UploadError("upload response has no file_uuid", nil)
	}

	s.logger.Info().Str("file_uuid", result.FileUUID).Msg("Document uploaded")
	return result.FileUUID, nil
}

// createPDFPart creates the file part with an explicit application/pdf
// content type (CreateFormFile would default to octet-stream, which the
// upstream rejects).
func createPDFPart(writer *multipart.Writer, filename string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", "application/pdf")
	return writer.CreatePart(h)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
