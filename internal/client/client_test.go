package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, url string, opts Options) *LLM {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	opts.BaseURL = url
	if opts.Model == "" {
		opts.Model = "test-model"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewClient(logger, opts)
}

func TestComplete(t *testing.T) {
	temp := 0.7
	tests := []struct {
		name          string
		req           CompletionRequest
		resp          string
		statusCode    int
		expectedError bool
		expectedText  string
		check         func(t *testing.T, body chatRequest)
	}{
		{
			name:         "system and user messages",
			req:          CompletionRequest{System: "be terse", Prompt: "summarize"},
			resp:         `{"choices":[{"message":{"role":"assistant","content":"  short summary \n"}}]}`,
			statusCode:   http.StatusOK,
			expectedText: "short summary",
			check: func(t *testing.T, body chatRequest) {
				if !assert.Len(t, body.Messages, 2) {
					return
				}
				assert.Equal(t, "system", body.Messages[0].Role)
				assert.Equal(t, "be terse", body.Messages[0].Content)
				assert.Equal(t, "user", body.Messages[1].Role)
				assert.Equal(t, "test-model", body.Model)
				assert.Equal(t, 0.1, body.Temperature)
				assert.Equal(t, 1024, body.MaxTokens)
			},
		},
		{
			name:         "per call overrides",
			req:          CompletionRequest{Prompt: "tables?", Model: "small", Temperature: &temp, MaxTokens: 500},
			resp:         `{"choices":[{"message":{"role":"assistant","content":"orders, users"}}]}`,
			statusCode:   http.StatusOK,
			expectedText: "orders, users",
			check: func(t *testing.T, body chatRequest) {
				if !assert.Len(t, body.Messages, 1) {
					return
				}
				assert.Equal(t, "small", body.Model)
				assert.Equal(t, 0.7, body.Temperature)
				assert.Equal(t, 500, body.MaxTokens)
			},
		},
		{
			name:          "no choices",
			req:           CompletionRequest{Prompt: "x"},
			resp:          `{"choices":[]}`,
			statusCode:    http.StatusOK,
			expectedError: true,
		},
		{
			name:          "rate limited upstream",
			req:           CompletionRequest{Prompt: "x"},
			resp:          `{"error":{"message":"slow down"}}`,
			statusCode:    http.StatusTooManyRequests,
			expectedError: true,
		},
		{
			name:          "malformed body",
			req:           CompletionRequest{Prompt: "x"},
			resp:          `not json`,
			statusCode:    http.StatusOK,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get(Authorization))
				assert.Equal(t, "application/json", r.Header.Get(ContentType))

				var body chatRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				if tt.check != nil {
					tt.check(t, body)
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.resp))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL+"/openai/v1/", Options{APIKey: "test-key", Temperature: 0.1, MaxTokens: 1024})
			text, err := c.Complete(context.Background(), tt.req)
			if tt.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedText, text)
		})
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`invalid key`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, Options{}).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid key", apiErr.Body)
}

func TestComplete_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(Authorization))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, Options{}).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestComplete_RateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, Options{RequestsPerMinute: 1})
	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, CompletionRequest{Prompt: "second"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
