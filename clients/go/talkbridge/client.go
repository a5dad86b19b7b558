// Package talkbridge provides a client for the voice-translation chat server.
package talkbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

// AudioFieldName and AudioFilename label the multipart audio part. The
// server reads the file under this field and this name regardless of the
// actual encoding.
const (
	AudioFieldName = "audio"
	AudioFilename  = "recording.webm"
)

// Client is a talkbridge API client. Each call is exactly one round trip;
// nothing is retried.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client for the server at baseURL.
// A zero timeout keeps the transport default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// envelope carries the fields every server response shares.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e envelope) apiError(status int) error {
	if e.Success {
		return nil
	}
	return &APIError{StatusCode: status, Message: e.Error}
}

// doRequest performs an HTTP request and decodes the JSON body into out.
// Transport failures and undecodable bodies become *CommunicationError;
// a decoded success:false body is left for the caller to inspect.
func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/api"+path, body)
	if err != nil {
		return 0, &CommunicationError{Op: method + " " + path, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, &CommunicationError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &CommunicationError{Op: method + " " + path, Err: err}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, &CommunicationError{
			Op:  method + " " + path,
			Err: fmt.Errorf("status %d: undecodable body: %w", resp.StatusCode, err),
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}
	return c.doRequest(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

// CreateSessionResponse is the response from creating a session.
type CreateSessionResponse struct {
	envelope
	SessionID string      `json:"session_id"`
	UserRole  models.Role `json:"user_role"`
}

// CreateSession opens a new session with the caller as the first participant.
func (c *Client) CreateSession(ctx context.Context, userName, userLanguage string) (*CreateSessionResponse, error) {
	req := map[string]string{
		"user_name":     userName,
		"user_language": userLanguage,
	}

	var resp CreateSessionResponse
	status, err := c.postJSON(ctx, "/session/create", req, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Participant describes one side of a session.
type Participant struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// JoinSessionResponse is the response from joining a session.
type JoinSessionResponse struct {
	envelope
	UserRole  models.Role `json:"user_role"`
	OtherUser Participant `json:"other_user"`
}

// JoinSession takes the second slot of an existing session.
func (c *Client) JoinSession(ctx context.Context, sessionID, userName, userLanguage string) (*JoinSessionResponse, error) {
	req := map[string]string{
		"session_id":    sessionID,
		"user_name":     userName,
		"user_language": userLanguage,
	}

	var resp JoinSessionResponse
	status, err := c.postJSON(ctx, "/session/join", req, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionInfo represents session metadata held by the server.
type SessionInfo struct {
	SessionID string                  `json:"session_id"`
	Users     map[string]*Participant `json:"users"`
	CreatedAt string                  `json:"created_at"`
}

// SessionInfoResponse is the response from the session info endpoint.
type SessionInfoResponse struct {
	envelope
	Session SessionInfo `json:"session"`
}

// SessionInfo gets session metadata.
func (c *Client) SessionInfo(ctx context.Context, sessionID string) (*SessionInfoResponse, error) {
	var resp SessionInfoResponse
	status, err := c.doRequest(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/info", "", nil, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MessagesResponse is the response from the session history endpoint.
type MessagesResponse struct {
	envelope
	Messages []models.MessagePayload `json:"messages"`
}

// GetMessages retrieves the message history of a session.
func (c *Client) GetMessages(ctx context.Context, sessionID string) (*MessagesResponse, error) {
	var resp MessagesResponse
	status, err := c.doRequest(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/messages", "", nil, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessageRequest is one utterance to transcribe and translate.
type SendMessageRequest struct {
	SessionID  string
	UserRole   models.Role
	Audio      []byte
	SourceLang string
	TargetLang string
}

// TranslationResponse is the response from sending an utterance.
type TranslationResponse struct {
	envelope
	Transcription string `json:"transcription,omitempty"`
	Translation   string `json:"translation,omitempty"`
	AudioURL      string `json:"audio_url,omitempty"`

	// the send endpoint spells the field in camel case
	AudioURLCamel string `json:"audioUrl,omitempty"`
}

// SendMessage uploads an utterance for transcription and translation.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*TranslationResponse, error) {
	body, contentType, err := encodeUtterance(req)
	if err != nil {
		return nil, err
	}

	var resp TranslationResponse
	status, err := c.doRequest(ctx, http.MethodPost, "/message/send", contentType, body, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	if resp.AudioURL == "" {
		resp.AudioURL = resp.AudioURLCamel
	}
	return &resp, nil
}

// encodeUtterance builds the multipart body for SendMessage.
func encodeUtterance(req SendMessageRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"session_id", req.SessionID},
		{"user_role", string(req.UserRole)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	fileWriter, err := writer.CreateFormFile(AudioFieldName, AudioFilename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	for _, f := range []struct{ key, value string }{
		{"source_lang", req.SourceLang},
		{"target_lang", req.TargetLang},
	} {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	envelope
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	status, err := c.doRequest(ctx, http.MethodGet, "/health", "", nil, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.apiError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}
