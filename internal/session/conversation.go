package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// parentMessageUUID is the fixed root the upstream expects for the first
// message of a fresh conversation.
const parentMessageUUID = "00000000-0000-4000-8000-000000000000"

type createConversationRequest struct {
	UUID *string `json:"uuid"`
	Name string  `json:"name"`
}

type completionRequest struct {
	Prompt             string              `json:"prompt"`
	ParentMessageUUID  string              `json:"parent_message_uuid"`
	Timezone           string              `json:"timezone"`
	PersonalizedStyles []personalizedStyle `json:"personalized_styles"`
	Locale             string              `json:"locale"`
	Tools              []tool              `json:"tools"`
	Attachments        []string            `json:"attachments"`
	Files              []string            `json:"files"`
	SyncSources        []string            `json:"sync_sources"`
	RenderingMode      string              `json:"rendering_mode"`
}

type personalizedStyle struct {
	Type       string `json:"type"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	NameKey    string `json:"nameKey"`
	Prompt     string `json:"prompt"`
	Summary    string `json:"summary"`
	SummaryKey string `json:"summaryKey"`
	IsDefault  bool   `json:"isDefault"`
}

type tool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// defaultCompletionBody returns the fixed completion configuration the web
// client sends. The style and tool set are part of the observed protocol;
// changing them changes upstream behavior.
func (s *Session) defaultCompletionBody(prompt, fileUUID string) completionRequest {
	return completionRequest{
		Prompt:            prompt,
		ParentMessageUUID: parentMessageUUID,
		Timezone:          s.cfg.Timezone,
		PersonalizedStyles: []personalizedStyle{{
			Type:       "default",
			Key:        "Default",
			Name:       "Normal",
			NameKey:    "normal_style_name",
			Prompt:     "Normal\n",
			Summary:    "Default responses from Claude",
			SummaryKey: "normal_style_summary",
			IsDefault:  true,
		}},
		Locale: s.cfg.Locale,
		Tools: []tool{
			{Type: "web_search_v0", Name: "web_search"},
			{Type: "artifacts_v0", Name: "artifacts"},
			{Type: "repl_v0", Name: "repl"},
		},
		Attachments:   []string{},
		Files:         []string{fileUUID},
		SyncSources:   []string{},
		RenderingMode: "messages",
	}
}

// CreateAndSend creates an ephemeral conversation, sends one prompt
// referencing the uploaded file, and consumes the streamed answer. The
// returned conversation id is non-empty as soon as creation succeeded, even
// when the completion later fails, so the caller can always clean up.
func (s *Session) CreateAndSend(ctx context.Context, fileUUID, prompt string) (string, string, error) {
	if !s.Authenticated() {
		return "", "", domain.AuthError("no organization resolved", nil)
	}

	conversationID, err := s.createConversation(ctx)
	if err != nil {
		return "", "", err
	}

	// The upstream rejects a completion issued immediately against a
	// brand-new conversation; give it a moment to settle.
	select {
	case <-ctx.Done():
		return conversationID, "", domain.ConversationError("canceled before completion", ctx.Err())
	case <-time.After(s.cfg.SettleDelay):
	}

	text, err := s.streamCompletion(ctx, conversationID, fileUUID, prompt)
	if err != nil {
		return conversationID, text, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return conversationID, "", domain.StreamError("stream produced no text", nil)
	}

	s.logger.Info().Str("conversation_id", conversationID).Int("chars", len(text)).Msg("Completion received")
	return conversationID, text, nil
}

// createConversation posts an empty conversation shell and returns its id.
func (s *Session) createConversation(ctx context.Context) (string, error) {
	body, err := json.Marshal(createConversationRequest{UUID: nil, Name: ""})
	if err != nil {
		return "", domain.ConversationError("cannot marshal create request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.MetadataTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/api/organizations/%s/chat_conversations", s.orgID), bytes.NewReader(body))
	if err != nil {
		return "", domain.ConversationError("cannot build create request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.ConversationError("create request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", domain.ConversationError(fmt.Sprintf("create returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var conv struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(respBody, &conv); err != nil {
		return "", domain.ConversationError("cannot parse create response", err)
	}
	if conv.UUID == "" {
		return "", domain.ConversationError("create response has no uuid", nil)
	}

	s.logger.Info().Str("conversation_id", conv.UUID).Msg("Conversation created")
	return conv.UUID, nil
}

// streamCompletion posts the completion request and folds the event stream
// into the answer text. Whatever text accumulated before a failure is
// returned with the error.
func (s *Session) streamCompletion(ctx context.Context, conversationID, fileUUID, prompt string) (string, error) {
	body, err := json.Marshal(s.defaultCompletionBody(prompt, fileUUID))
	if err != nil {
		return "", domain.StreamError("cannot marshal completion request", err)
	}

	// One deadline covers the request and the whole stream read; model
	// generation latency dominates, hence the long bound.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StreamTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/api/organizations/%s/chat_conversations/%s/completion", s.orgID, conversationID),
		bytes.NewReader(body))
	if err != nil {
		return "", domain.StreamError("cannot build completion request", err)
	}
	req.Header.Set("accept", "text/event-stream, text/event-stream")
	req.Header.Set("referer", fmt.Sprintf("%s/chat/%s", s.baseURL, conversationID))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.StreamError("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", domain.StreamError(fmt.Sprintf("completion returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	text, err := NewStreamParser(resp.Body).Accumulate()
	if err != nil {
		return text, domain.StreamError("stream interrupted", err)
	}
	return text, nil
}

// Delete removes a conversation. Best-effort: the upstream keeps working if a
// conversation leaks, so failures are for the caller to log, not escalate.
func (s *Session) Delete(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.MetadataTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/api/organizations/%s/chat_conversations/%s", s.orgID, conversationID), nil)
	if err != nil {
		return domain.ConversationError("cannot build delete request", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.ConversationError("delete request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return domain.ConversationError(fmt.Sprintf("delete returned %d", resp.StatusCode), nil)
	}

	s.logger.Info().Str("conversation_id", conversationID).Msg("Conversation deleted")
	return nil
}
