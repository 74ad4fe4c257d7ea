// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

// Configuration constants.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens and DefaultTemperature are sent with every request.
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7

	// DefaultSystemPrompt opens every conversation.
	DefaultSystemPrompt = "You are a helpful multimodal assistant. You can process text, images, audio, and video content."

	// FallbackReply is used when the API returns no completion text.
	FallbackReply = "Sorry, I could not generate a response."

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// ErrNotConfigured indicates no API key is set.
var ErrNotConfigured = errors.New("API key not configured")

// =============================================================================
// PROVIDER
// =============================================================================

// Provider identifies one chat-completion endpoint.
type Provider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// =============================================================================
// ERRORS
// =============================================================================

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface. The text always carries the status.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API Error: %d (%s)", e.Status, e.Message)
	}
	return fmt.Sprintf("API Error: %d", e.Status)
}

// IsAuth reports whether the key was rejected.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsRateLimited reports whether the API asked us to slow down.
func (e *APIError) IsRateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one entry of the request's messages array.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// ChatResponse is the subset of the completion response we read.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's text, or "" if none.
func (r *ChatResponse) Content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends chat completion requests. Safe for concurrent use once
// configured; concurrent Sends are not deduplicated.
type Client struct {
	provider     Provider
	httpClient   *http.Client
	systemPrompt string
	maxTokens    int
	temperature  float64
	limiter      *rate.Limiter
	now          func() time.Time
}

// NewClient creates a client for provider. A provider without an API key
// yields a client whose Send fails with ErrNotConfigured.
func NewClient(provider Provider) *Client {
	provider.APIKey = strings.TrimSpace(provider.APIKey)
	provider.BaseURL = strings.TrimSuffix(provider.BaseURL, "/")
	return &Client{
		provider: provider,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		systemPrompt: DefaultSystemPrompt,
		maxTokens:    DefaultMaxTokens,
		temperature:  DefaultTemperature,
		now:          time.Now,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.provider.BaseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel sets the model identifier.
func (c *Client) WithModel(model string) *Client {
	c.provider.Model = model
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the HTTP client (tests use httptest's).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithSystemPrompt replaces the system instruction.
func (c *Client) WithSystemPrompt(prompt string) *Client {
	if prompt != "" {
		c.systemPrompt = prompt
	}
	return c
}

// WithMaxTokens sets max_tokens.
func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// WithTemperature sets temperature.
func (c *Client) WithTemperature(t float64) *Client {
	c.temperature = t
	return c
}

// WithRequestsPerMinute paces requests client-side. Zero disables pacing.
// Excess requests wait; they are never retried or dropped.
func (c *Client) WithRequestsPerMinute(rpm int) *Client {
	if rpm <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	return c
}

// WithClock overrides time.Now for reply timestamps.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Provider returns the configured provider with the key removed.
func (c *Client) Provider() Provider {
	p := c.provider
	p.APIKey = ""
	return p
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.provider.Model
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.provider.APIKey != ""
}

// APIKeyMasked describes the key without revealing any of it.
func (c *Client) APIKeyMasked() string {
	return MaskKey(c.provider.APIKey)
}

// MaskKey describes a key by length and fingerprint.
func MaskKey(key string) string {
	if key == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(key), Fingerprint(key))
}

// Fingerprint returns the first 8 hex chars of the key's SHA-256.
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// SEND
// =============================================================================

// BuildMessages assembles the request messages: system instruction, history
// and the new user turn. Attachments become a bracketed annotation.
func (c *Client) BuildMessages(content string, media []model.MediaContent, history []*model.Message) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: c.systemPrompt})
	for _, msg := range history {
		if msg == nil || msg.IsGenerating {
			continue
		}
		messages = append(messages, ChatMessage{
			Role:    msg.Role.String(),
			Content: model.Annotate(msg.Content, msg.Media),
		})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: model.Annotate(content, media)})
	return messages
}

// Send requests a completion and returns it as a new assistant message.
func (c *Client) Send(ctx context.Context, content string, media []model.MediaContent, history []*model.Message) (*model.Message, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody := ChatRequest{
		Model:       c.provider.Model,
		Messages:    c.BuildMessages(content, media, history),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.doRequest(ctx, c.provider.BaseURL+"/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}

	text := resp.Content()
	if text == "" {
		text = FallbackReply
	}

	reply := model.NewAssistantMessage(text)
	reply.Timestamp = c.now()
	return reply, nil
}

// setHeaders sets the required headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.provider.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// doRequest performs a single HTTP request to the chat completions endpoint.
func (c *Client) doRequest(ctx context.Context, requestURL string, reqBody ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	log.Debug("api request", "provider", c.provider.Name, "model", c.provider.Model,
		"path", req.URL.Path, "messages", len(reqBody.Messages), "key", Fingerprint(c.provider.APIKey))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		log.Warn("api request failed", "provider", c.provider.Name, "err", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("api response", "status", resp.StatusCode, "duration", time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := handleErrorResponse(resp.StatusCode, body)
		log.Warn("api error", "provider", c.provider.Name, "status", apiErr.Status, "message", apiErr.Message)
		return nil, apiErr
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// readResponse reads the response body with size limits.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an error body into an APIError, keeping the
// API's own message when it sent one.
func handleErrorResponse(statusCode int, body []byte) *APIError {
	apiErr := &APIError{Status: statusCode}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		if parsed.Error.Code != nil {
			apiErr.Code = fmt.Sprint(parsed.Error.Code)
		} else {
			apiErr.Code = parsed.Error.Type
		}
	}
	return apiErr
}
