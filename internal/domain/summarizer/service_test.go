package summarizer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/infra/llm/gemini"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		generated   string
		wantTitle   string
		wantContent string
	}{
		{
			name:        "both markers",
			generated:   "Title: Rapat Anggaran\nSummary: Tim membahas anggaran.\nLanjutan paragraf.",
			wantTitle:   "Rapat Anggaran",
			wantContent: "Tim membahas anggaran.\nLanjutan paragraf.",
		},
		{
			name:        "missing title",
			generated:   "Summary: only body",
			wantTitle:   note.UntitledTitle,
			wantContent: "only body",
		},
		{
			name:        "missing summary keeps whole text",
			generated:   "Title: X\nno body marker here",
			wantTitle:   "X",
			wantContent: "Title: X\nno body marker here",
		},
		{
			name:        "free text",
			generated:   "  just prose  ",
			wantTitle:   note.UntitledTitle,
			wantContent: "  just prose  ",
		},
		{
			name:        "blank title line",
			generated:   "Title:   \nSummary: body",
			wantTitle:   note.UntitledTitle,
			wantContent: "body",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			title, content := extract(tc.generated)
			require.Equal(t, tc.wantTitle, title)
			require.Equal(t, tc.wantContent, content)
		})
	}
}

func TestSummarizeBuildsSummary(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "Title: Belanja\nSummary: Beli susu dan roti."}
	svc := newTestService(client, stubResolver{key: "gem"})
	fixed := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	got, err := svc.Summarize(context.Background(), "besok beli susu dan roti", PromptConfig{})
	require.NoError(t, err)
	require.Equal(t, "Belanja", got.Title)
	require.Equal(t, "Beli susu dan roti.", got.Content)
	require.Equal(t, "besok beli susu dan roti", got.OriginalText)
	require.Equal(t, fixed, got.CreatedAt)
	require.Equal(t, "1748766600000", got.ID)

	require.Equal(t, "gem", client.lastKey)
	instruction := *client.lastReq.Contents[0].Parts[0].Text
	require.True(t, strings.HasPrefix(instruction, DefaultPrompt))
	require.Contains(t, instruction, "besok beli susu dan roti")
	require.True(t, strings.HasSuffix(instruction, outputDirective))
	require.Equal(t, gemini.GenerationConfig{Temperature: 0.7, TopK: 1, TopP: 1, MaxOutputTokens: 4096}, client.lastReq.GenerationConfig)
}

func TestSummarizeAppliesOverrides(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "Summary: ok"}
	svc := newTestService(client, stubResolver{key: "k"})

	temp, topK, topP, badMax := 1.5, 40, 3.0, 0
	_, err := svc.Summarize(context.Background(), "some transcript text", PromptConfig{
		Prompt:          "Ringkas dalam bahasa Inggris.",
		Temperature:     &temp,
		TopK:            &topK,
		TopP:            &topP,
		MaxOutputTokens: &badMax,
	})
	require.NoError(t, err)
	require.Equal(t, gemini.GenerationConfig{Temperature: 1.5, TopK: 40, TopP: 1, MaxOutputTokens: 4096}, client.lastReq.GenerationConfig)
	require.True(t, strings.HasPrefix(*client.lastReq.Contents[0].Parts[0].Text, "Ringkas dalam bahasa Inggris."))
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client *stubClient
		creds  credentials.Resolver
		text   string
		code   string
	}{
		{name: "missing key", client: &stubClient{text: "x"}, creds: stubResolver{}, text: "hello world!", code: apperrors.CodeMissingCredential},
		{name: "upstream", client: &stubClient{err: apperrors.Upstream("quota", 429, "{}")}, creds: stubResolver{key: "k"}, text: "hello world!", code: apperrors.CodeUpstream},
		{name: "no candidates", client: &stubClient{noText: true}, creds: stubResolver{key: "k"}, text: "hello world!", code: apperrors.CodeMalformedResponse},
		{name: "empty generated text", client: &stubClient{text: "  "}, creds: stubResolver{key: "k"}, text: "hello world!", code: apperrors.CodeMalformedResponse},
		{name: "empty input", client: &stubClient{text: "x"}, creds: stubResolver{key: "k"}, text: " ", code: apperrors.CodeInvalidInput},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(tc.client, tc.creds)
			_, err := svc.Summarize(context.Background(), tc.text, PromptConfig{})
			require.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestPromptConfigSanitize(t *testing.T) {
	t.Parallel()

	neg, zero, ok := -0.1, 0, 0.5
	cfg, dropped := PromptConfig{Temperature: &neg, TopK: &zero, TopP: &ok}.Sanitize()
	require.Nil(t, cfg.Temperature)
	require.Nil(t, cfg.TopK)
	require.NotNil(t, cfg.TopP)
	require.ElementsMatch(t, []string{"temperature", "topK"}, dropped)
	require.False(t, cfg.IsZero())
	require.True(t, PromptConfig{}.IsZero())
}

func newTestService(client GenerativeClient, creds credentials.Resolver) *service {
	return NewService(Config{}, client, creds, slog.New(slog.NewJSONHandler(io.Discard, nil))).(*service)
}

type stubResolver struct{ key string }

func (s stubResolver) Resolve(context.Context, credentials.Provider) (string, error) {
	if s.key == "" {
		return "", apperrors.Wrap(apperrors.CodeMissingCredential, "missing", nil)
	}
	return s.key, nil
}

type stubClient struct {
	text    string
	noText  bool
	err     error
	lastKey string
	lastReq gemini.GenerateContentRequest
}

func (s *stubClient) GenerateContent(_ context.Context, apiKey string, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	s.lastKey = apiKey
	s.lastReq = req
	if s.err != nil {
		return gemini.GenerateContentResponse{}, s.err
	}
	if s.noText {
		return gemini.GenerateContentResponse{}, nil
	}
	text := s.text
	return gemini.GenerateContentResponse{
		Candidates:    []gemini.Candidate{{Content: &gemini.Content{Parts: []gemini.Part{{Text: &text}}}}},
		UsageMetadata: &gemini.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
	}, nil
}
