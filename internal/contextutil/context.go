package contextutil

import (
	"context"
	"net/http"
	"strings"
)

// APIKeyHeader lets cloud-mode clients bring their own LLM key.
const APIKeyHeader = "X-LLM-API-Key"

type contextKey string

const apiKeyContextKey contextKey = "llm_api_key"

// SetAPIKey stores the LLM API key in the context
func SetAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, apiKey)
}

// GetAPIKey retrieves the LLM API key from the context
func GetAPIKey(ctx context.Context) (string, bool) {
	apiKey, ok := ctx.Value(apiKeyContextKey).(string)
	return apiKey, ok && apiKey != ""
}

// FromRequest copies the caller's LLM key from the X-LLM-API-Key header, or
// a bearer Authorization header, into ctx.
func FromRequest(ctx context.Context, r *http.Request) context.Context {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return SetAPIKey(ctx, key)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok && strings.TrimSpace(key) != "" {
			return SetAPIKey(ctx, strings.TrimSpace(key))
		}
	}
	return ctx
}
