// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatbot-tui/internal/model"
)

const testKey = "gsk_test_0123456789abcdef"

const okResponse = `{
	"id": "cmpl-1",
	"model": "llama3-8b-8192",
	"choices": [{"message": {"role": "assistant", "content": "Hello there!"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func newTestClient(url string) *Client {
	return NewClient(Provider{Name: "groq", BaseURL: url, APIKey: testKey, Model: "llama3-8b-8192"})
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestSend_RequestShape(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		var raw map[string]any
		assert.NoError(t, json.Unmarshal(body, &raw))
		assert.ElementsMatch(t, []string{"model", "messages", "max_tokens", "temperature"}, keys(raw))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	history := []*model.Message{
		{ID: "1", Role: model.RoleUser, Content: "look", Media: []model.MediaContent{{Type: model.MediaImage, Name: "cat.png"}}},
		{ID: "2", Role: model.RoleAssistant, Content: "A cat."},
	}
	media := []model.MediaContent{{Type: model.MediaVideo, Name: "clip.mp4"}, {Type: model.MediaAudio, Name: "a.wav"}}

	client := newTestClient(server.URL + "/openai/v1/")
	_, err := client.Send(context.Background(), "and these?", media, history)
	require.NoError(t, err)

	assert.Equal(t, "llama3-8b-8192", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, ChatMessage{Role: "system", Content: DefaultSystemPrompt}, got.Messages[0])
	assert.Equal(t, "look\n\n[User has attached 1 media file(s): image - cat.png]", got.Messages[1].Content)
	assert.Equal(t, ChatMessage{Role: "assistant", Content: "A cat."}, got.Messages[2])
	assert.Equal(t, ChatMessage{
		Role:    "user",
		Content: "and these?\n\n[User has attached 2 media file(s): video - clip.mp4, audio - a.wav]",
	}, got.Messages[3])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuildMessages_SkipsPlaceholders(t *testing.T) {
	c := NewClient(Provider{}).WithSystemPrompt("be brief")
	history := []*model.Message{
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, IsGenerating: true},
		nil,
	}
	msgs := c.BuildMessages("next", nil, history)
	require.Len(t, msgs, 3)
	assert.Equal(t, "be brief", msgs[0].Content)
	assert.Equal(t, "next", msgs[2].Content)
}

// =============================================================================
// RESPONSES
// =============================================================================

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reply, err := newTestClient(server.URL).WithClock(func() time.Time { return at }).
		Send(context.Background(), "hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "Hello there!", reply.Content)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, at, reply.Timestamp)
	assert.Empty(t, reply.Media)
}

func TestSend_FallbackReply(t *testing.T) {
	bodies := []string{
		`{"choices": []}`,
		`{"choices": [{"message": {"role": "assistant", "content": ""}}]}`,
		`{}`,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		reply, err := newTestClient(server.URL).Send(context.Background(), "hi", nil, nil)
		server.Close()

		require.NoError(t, err, body)
		assert.Equal(t, FallbackReply, reply.Content, body)
	}
}

func TestSend_APIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantText   string
		wantAuth   bool
		wantRateLm bool
	}{
		{
			name:       "rate limited with message",
			status:     http.StatusTooManyRequests,
			body:       `{"error": {"message": "Rate limit reached", "type": "tokens", "code": "rate_limit_exceeded"}}`,
			wantText:   "API Error: 429 (Rate limit reached)",
			wantRateLm: true,
		},
		{
			name:     "unauthorized plain body",
			status:   http.StatusUnauthorized,
			body:     `nope`,
			wantText: "API Error: 401",
			wantAuth: true,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     ``,
			wantText: "API Error: 500",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Send(context.Background(), "hi", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantText, err.Error())
			assert.Equal(t, tc.wantAuth, apiErr.IsAuth())
			assert.Equal(t, tc.wantRateLm, apiErr.IsRateLimited())
		})
	}
}

func TestSend_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), "hi", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), "hi", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestSend_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewClient(Provider{BaseURL: server.URL, APIKey: "   "})
	assert.False(t, c.IsConfigured())
	_, err := c.Send(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, calls.Load())
}

func TestSend_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(server.URL).Send(ctx, "hi", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSend_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Send(context.Background(), "hi", nil, nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "request failed"))
}

func TestSend_RequestsPerMinutePaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	c := newTestClient(server.URL).WithRequestsPerMinute(600) // one per 100ms
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Send(context.Background(), "hi", nil, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func TestAPIKeyMasked(t *testing.T) {
	c := newTestClient("http://unused")
	masked := c.APIKeyMasked()
	assert.NotContains(t, masked, "gsk_")
	assert.Contains(t, masked, "length=25")
	assert.Len(t, Fingerprint(testKey), 8)
	assert.Equal(t, "[not set]", MaskKey(""))
	assert.Empty(t, c.Provider().APIKey)
	assert.Equal(t, "llama3-8b-8192", c.Model())
}
