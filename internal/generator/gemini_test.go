package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type geminiCall struct {
	path   string
	apiKey string
	body   map[string]any
}

func newFakeGemini(t *testing.T, status int, response any) (*httptest.Server, *geminiCall) {
	t.Helper()

	call := &geminiCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		call.path = r.URL.Path
		call.apiKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&call.body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv, call
}

func newTestGemini(t *testing.T, baseURL string) *GeminiModel {
	t.Helper()
	m, err := NewGeminiModel(context.Background(), ModelConfig{
		Provider:    ProviderGemini,
		APIKey:      "gm-test",
		BaseURL:     baseURL,
		Model:       "gemini-pro",
		MaxTokens:   2048,
		Temperature: 0.9,
		TopP:        1,
		TopK:        1,
	})
	require.NoError(t, err)
	return m
}

func TestGeminiModelGenerate(t *testing.T) {
	srv, call := newFakeGemini(t, http.StatusOK, map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": "  Bol su için.  "}},
			},
			"finishReason": "STOP",
		}},
	})

	m := newTestGemini(t, srv.URL)
	assert.Equal(t, "gemini:gemini-pro", m.Name())

	text, err := m.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Bol su için.", text)

	assert.Contains(t, call.path, "gemini-pro:generateContent")
	assert.Equal(t, "gm-test", call.apiKey)

	gen, ok := call.body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", call.body)
	assert.InDelta(t, 0.9, gen["temperature"], 1e-6)
	assert.InDelta(t, 1.0, gen["topP"], 1e-6)
	assert.InDelta(t, 1.0, gen["topK"], 1e-6)
	assert.InDelta(t, 2048.0, gen["maxOutputTokens"], 1e-6)

	contents, ok := call.body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "prompt text", parts[0].(map[string]any)["text"])
}

func TestGeminiModelNoCandidates(t *testing.T) {
	srv, _ := newFakeGemini(t, http.StatusOK, map[string]any{"candidates": []any{}})

	_, err := newTestGemini(t, srv.URL).Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiModelErrorFallsBack(t *testing.T) {
	srv, _ := newFakeGemini(t, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
	})
	m := newTestGemini(t, srv.URL)

	_, err := m.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
	assert.Contains(t, err.Error(), "gemini generate content")

	reply := New(m, 0, zap.NewNop()).Generate(context.Background(), "prompt")
	assert.Equal(t, FailureUpstream, reply.Reason)
	assert.Equal(t, FallbackMessage, reply.Text)
}

func TestGeminiModelRequiresKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), ModelConfig{Model: "gemini-pro"})
	assert.Error(t, err)
}
