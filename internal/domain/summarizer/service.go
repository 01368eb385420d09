package summarizer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/infra/llm/gemini"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
	"github.com/yanqian/note-it-down/pkg/metrics"
	"github.com/yanqian/note-it-down/pkg/util"
)

var (
	titlePattern   = regexp.MustCompile(`Title:\s*(.*)`)
	summaryPattern = regexp.MustCompile(`(?s)Summary:\s*(.*)`)
)

// Service turns transcripts into titled summaries.
type Service interface {
	Summarize(ctx context.Context, text string, opts PromptConfig) (note.Summary, error)
}

// GenerativeClient is the language model transport.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, apiKey string, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

type service struct {
	cfg         Config
	client      GenerativeClient
	credentials credentials.Resolver
	logger      *slog.Logger
	now         func() time.Time
}

// NewService is a wire provider for the summarizer domain.
func NewService(cfg Config, client GenerativeClient, creds credentials.Resolver, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.DefaultPrompt) == "" {
		cfg.DefaultPrompt = DefaultPrompt
	}
	return &service{
		cfg:         cfg,
		client:      client,
		credentials: creds,
		logger:      logger.With("component", "summarizer.service"),
		now:         util.NowUTC,
	}
}

func (s *service) Summarize(ctx context.Context, text string, opts PromptConfig) (note.Summary, error) {
	if strings.TrimSpace(text) == "" {
		return note.Summary{}, apperrors.Wrap(apperrors.CodeInvalidInput, "text cannot be empty", nil)
	}
	apiKey, err := s.credentials.Resolve(ctx, credentials.ProviderGemini)
	if err != nil {
		return note.Summary{}, err
	}

	started := time.Now()
	resp, err := s.client.GenerateContent(ctx, apiKey, gemini.TextRequest(s.buildInstruction(opts, text), opts.generationConfig()))
	if err != nil {
		s.logger.Error("summarization failed", "error", err)
		return note.Summary{}, err
	}

	generated, ok := resp.FirstText()
	if !ok {
		return note.Summary{}, apperrors.Wrap(apperrors.CodeMalformedResponse, "language model returned no text", nil)
	}
	if strings.TrimSpace(generated) == "" {
		return note.Summary{}, apperrors.Wrap(apperrors.CodeMalformedResponse, "language model returned empty text", nil)
	}

	title, content := extract(generated)
	now := s.now()

	attrs := []any{"duration_ms", time.Since(started).Milliseconds(), "title", title}
	if usage := usageOf(resp); !usage.IsZero() {
		attrs = append(attrs, usage.LogAttrs()...)
	}
	s.logger.Info("summary generated", attrs...)

	return note.Summary{
		ID:           util.TimestampID(now),
		Title:        title,
		Content:      content,
		OriginalText: text,
		CreatedAt:    now,
	}, nil
}

func (s *service) buildInstruction(opts PromptConfig, text string) string {
	prompt := strings.TrimSpace(opts.Prompt)
	if prompt == "" {
		prompt = s.cfg.DefaultPrompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nText to summarize:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString(outputDirective)
	return b.String()
}

// extract pulls the title and summary out of free-form model output.
func extract(generated string) (string, string) {
	title := note.UntitledTitle
	if m := titlePattern.FindStringSubmatch(generated); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}
	content := generated
	if m := summaryPattern.FindStringSubmatch(generated); m != nil {
		content = strings.TrimSpace(m[1])
	}
	return title, content
}

func usageOf(resp gemini.GenerateContentResponse) metrics.TokenUsage {
	if resp.UsageMetadata == nil {
		return metrics.TokenUsage{}
	}
	return metrics.TokenUsage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
}
