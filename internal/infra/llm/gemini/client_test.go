package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

func TestGenerateContentRequestShape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("key"))

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		require.Contains(t, raw, "contents")
		require.Equal(t, []any{}, raw["safetySettings"])
		cfg := raw["generationConfig"].(map[string]any)
		require.InDelta(t, 0.7, cfg["temperature"], 1e-9)
		require.EqualValues(t, 4096, cfg["maxOutputTokens"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Title: A\nSummary: B"}]}}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "gemini-test", time.Second)
	resp, err := client.GenerateContent(context.Background(), "secret", TextRequest("hello", GenerationConfig{
		Temperature: 0.7, TopK: 1, TopP: 1, MaxOutputTokens: 4096,
	}))
	require.NoError(t, err)
	text, ok := resp.FirstText()
	require.True(t, ok)
	require.Equal(t, "Title: A\nSummary: B", text)
	require.Equal(t, 7, resp.UsageMetadata.TotalTokenCount)
}

func TestGenerateContentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "quota exceeded", status: http.StatusTooManyRequests, body: `{"error":{"code":429}}`, code: apperrors.CodeUpstream},
		{name: "bad request", status: http.StatusBadRequest, body: `{}`, code: apperrors.CodeUpstream},
		{name: "garbage", status: http.StatusOK, body: `not json`, code: apperrors.CodeMalformedResponse},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).GenerateContent(context.Background(), "k", TextRequest("x", GenerationConfig{}))
			require.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestFirstTextMissing(t *testing.T) {
	t.Parallel()

	cases := []GenerateContentResponse{
		{},
		{Candidates: []Candidate{{}}},
		{Candidates: []Candidate{{Content: &Content{}}}},
		{Candidates: []Candidate{{Content: &Content{Parts: []Part{{}}}}}},
	}
	for _, resp := range cases {
		_, ok := resp.FirstText()
		require.False(t, ok)
	}
}

func TestGenerateContentTransportErrorHidesKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	const key = "AIza-super-secret-key"
	client := NewClient(baseURL, "gemini-test", time.Second)
	_, err := client.GenerateContent(context.Background(), key, TextRequest("hello", GenerationConfig{MaxOutputTokens: 16}))
	require.Error(t, err)
	require.Equal(t, apperrors.CodeTransport, apperrors.CodeOf(err))
	require.NotContains(t, err.Error(), key)
	require.NotContains(t, err.Error(), "key=")
}
