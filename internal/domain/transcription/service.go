package transcription

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/recording"
	"github.com/yanqian/note-it-down/internal/infra/stt/groq"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// Service turns finalized recordings into text.
type Service interface {
	Transcribe(ctx context.Context, audio recording.Audio, model, language string) (string, error)
}

// Client is the speech-to-text transport.
type Client interface {
	CreateTranscription(ctx context.Context, apiKey string, req groq.TranscriptionRequest) (groq.TranscriptionResponse, error)
}

type service struct {
	cfg         Config
	client      Client
	credentials credentials.Resolver
	logger      *slog.Logger
}

// NewService is a wire provider for transcription.
func NewService(cfg Config, client Client, creds credentials.Resolver, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = DefaultLanguage
	}
	return &service{cfg: cfg, client: client, credentials: creds, logger: logger.With("component", "transcription.service")}
}

func (s *service) Transcribe(ctx context.Context, audio recording.Audio, model, language string) (string, error) {
	if audio.Empty() {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "audio is empty or not finalized", nil)
	}
	if model == "" {
		model = DefaultModel
	}
	if !IsKnownModel(model) {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "unknown transcription model "+model, nil)
	}
	if language == "" {
		language = s.cfg.Language
	}

	apiKey, err := s.credentials.Resolve(ctx, credentials.ProviderGroq)
	if err != nil {
		return "", err
	}

	file, err := os.Open(audio.Path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "cannot open recording", err)
	}
	defer file.Close()

	started := time.Now()
	resp, err := s.client.CreateTranscription(ctx, apiKey, groq.TranscriptionRequest{
		Model:    model,
		Language: language,
		FileName: defaultUploadFileName,
		MimeType: audio.MimeType,
		Audio:    file,
	})
	if err != nil {
		s.logger.Error("transcription failed", "model", model, "error", err)
		return "", err
	}

	text := ""
	if resp.Text != nil {
		text = *resp.Text
	}
	s.logger.Info("transcription completed",
		"model", model,
		"audio_bytes", audio.Size,
		"chars", len(text),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return text, nil
}
