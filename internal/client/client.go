package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/telemetry"
)

const (
	Authorization = "Authorization"
	ContentType   = "Content-Type"

	chatCompletionsPath = "/chat/completions"
)

var ErrNoChoices = errors.New("completion returned no choices")

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	Metrics           *telemetry.Metrics
}

// LLM talks to an OpenAI compatible chat completions API (Groq by default).
type LLM struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int

	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

func NewClient(log *zap.Logger, opts Options) *LLM {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return &LLM{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		},
		limiter: limiter,
		tracer:  otel.Tracer(telemetry.ScopeName),
		metrics: opts.Metrics,
		logger:  log,
	}
}

func (c *LLM) Model() string {
	return c.model
}

// CompletionRequest overrides the client defaults for one call. Zero values
// keep the defaults.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature *float64
	MaxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends one system+user exchange and returns the assistant text.
func (c *LLM) Complete(ctx context.Context, cr CompletionRequest) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if cr.Model != "" {
		body.Model = cr.Model
	}
	if cr.Temperature != nil {
		body.Temperature = *cr.Temperature
	}
	if cr.MaxTokens > 0 {
		body.MaxTokens = cr.MaxTokens
	}
	if cr.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: cr.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: cr.Prompt})

	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", body.Model),
		attribute.Int("llm.prompt_chars", len(cr.Prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := c.do(ctx, body)
	elapsed := time.Since(start)
	c.metrics.RecordLLMCall(ctx, body.Model, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	c.logger.Debug("LLM completion finished",
		zap.String("model", body.Model),
		zap.Int("prompt_chars", len(cr.Prompt)),
		zap.Int("response_chars", len(text)),
		zap.Duration("duration", elapsed))
	return text, nil
}

func (c *LLM) do(ctx context.Context, body chatRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + chatCompletionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(ContentType, "application/json")
	if c.apiKey != "" {
		req.Header.Set(Authorization, "Bearer "+c.apiKey)
	}

	c.logger.Debug("Making request to LLM API", zap.String("url", url), zap.String("model", body.Model))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", zap.String("url", url), zap.Error(err))
		return "", fmt.Errorf("failed to do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read response body", zap.String("url", url), zap.Error(err))
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.String("response", string(raw)))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("Failed to parse response", zap.String("url", url), zap.Error(err))
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
