package oracle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeminiBackendComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-flash-latest:generateContent"), r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"id\":\"1\",\"order\":1}]"}]}}]}`))
	}))
	defer srv.Close()

	backend, err := NewGeminiBackend(t.Context(), "secret", WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	text, err := backend.Complete(t.Context(), "gemini-flash-latest", Request{System: "rules", Prompt: "plan"})
	require.NoError(t, err)
	require.Equal(t, `[{"id":"1","order":1}]`, text)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "missing generationConfig: %v", body)
	require.Equal(t, "application/json", cfg["responseMimeType"])
	require.Contains(t, body, "systemInstruction")
}

func TestGeminiBackendEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	backend, err := NewGeminiBackend(t.Context(), "k", WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	_, err = backend.Complete(t.Context(), "gemini-flash-latest", Request{Prompt: "plan"})
	require.ErrorContains(t, err, "no text")
}

func TestGeminiBackendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	backend, err := NewGeminiBackend(t.Context(), "k", WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	_, err = backend.Complete(t.Context(), "gemini-flash-latest", Request{Prompt: "plan"})
	require.Error(t, err)
}

func TestGeminiBackendRequiresKey(t *testing.T) {
	_, err := NewGeminiBackend(t.Context(), "")
	require.ErrorContains(t, err, "api key is empty")
}
