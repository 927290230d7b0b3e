package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/letterpress/internal/apperr"
)

type capturedRequest struct {
	Path   string
	Query  string
	Header http.Header
}

func geminiServer(t *testing.T, handler func(w http.ResponseWriter, body geminiRequest)) (*GeminiClient, *capturedRequest) {
	t.Helper()
	last := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Path, last.Query, last.Header = r.URL.Path, r.URL.RawQuery, r.Header.Clone()
		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)

	return NewGeminiClient(GeminiOptions{Model: "test-model", BaseURL: srv.URL, Timeout: 5 * time.Second}), last
}

func writeText(w http.ResponseWriter, parts ...string) {
	type part struct {
		Text string `json:"text"`
	}
	ps := make([]part, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, part{Text: p})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": ps}}},
	})
}

func TestGeminiGenerate(t *testing.T) {
	t.Parallel()

	var got geminiRequest
	client, last := geminiServer(t, func(w http.ResponseWriter, body geminiRequest) {
		got = body
		writeText(w, `{"summary":`, `"ok"}`)
	})

	out, err := client.Generate(context.Background(), "key-123", "hello", false)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)

	assert.Equal(t, "/test-model:generateContent", last.Path)
	assert.Equal(t, "key-123", last.Header.Get("x-goog-api-key"))
	assert.Empty(t, last.Query)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	assert.Nil(t, got.GenerationConfig)
}

func TestGeminiGenerateJSONMode(t *testing.T) {
	t.Parallel()

	var got geminiRequest
	client, _ := geminiServer(t, func(w http.ResponseWriter, body geminiRequest) {
		got = body
		writeText(w, `{}`)
	})

	_, err := client.Generate(context.Background(), "k", "p", true)
	require.NoError(t, err)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
}

func TestGeminiGenerateMissingKey(t *testing.T) {
	t.Parallel()

	client := NewGeminiClient(GeminiOptions{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Generate(context.Background(), "  ", "p", false)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestGeminiGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		jsonMode bool
		kind     apperr.Kind
		jsonErr  bool
	}{
		{
			name:   "invalid key reason",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`,
			kind:   apperr.KindAuthentication,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"code":401,"message":"unauthorized"}}`,
			kind:   apperr.KindAuthentication,
		},
		{
			name:     "json mode rejected",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"response_mime_type is not supported for this model"}}`,
			jsonMode: true,
			kind:     apperr.KindUpstream,
			jsonErr:  true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"internal"}}`,
			kind:   apperr.KindUpstream,
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			kind:   apperr.KindAIFormat,
		},
		{
			name:   "blocked prompt",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			kind:   apperr.KindUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := geminiServer(t, func(w http.ResponseWriter, _ geminiRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "k", "p", tt.jsonMode)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.jsonErr, errors.Is(err, ErrJSONModeUnsupported))
		})
	}
}
