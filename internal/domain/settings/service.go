// Package settings persists user overrides for the model, API keys and
// generation parameters. Reads degrade to defaults; writes report failures.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/kv"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/domain/transcription"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// Service manages user settings.
type Service interface {
	credentials.OverrideSource

	SelectedModel(ctx context.Context) string
	SelectModel(ctx context.Context, model string) error
	SaveAPIKey(ctx context.Context, provider credentials.Provider, key string) error
	ClearAPIKey(ctx context.Context, provider credentials.Provider) error
	Generation(ctx context.Context) summarizer.PromptConfig
	SaveGeneration(ctx context.Context, cfg summarizer.PromptConfig) (summarizer.PromptConfig, error)
	ClearGeneration(ctx context.Context) error
	Snapshot(ctx context.Context) Snapshot
}

// Sealer encrypts API keys at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

type service struct {
	store         kv.Store
	defaults      credentials.Defaults
	defaultPrompt string
	sealer        Sealer
	logger        *slog.Logger
}

// NewService is a wire provider for settings. A nil sealer stores keys as plain text.
func NewService(store kv.Store, defaults credentials.Defaults, cfg summarizer.Config, sealer Sealer, logger *slog.Logger) Service {
	prompt := cfg.DefaultPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = summarizer.DefaultPrompt
	}
	return &service{
		store:         store,
		defaults:      defaults,
		defaultPrompt: prompt,
		sealer:        sealer,
		logger:        logger.With("component", "settings.service"),
	}
}

func (s *service) SelectedModel(ctx context.Context) string {
	value, ok := s.read(ctx, kv.KeyWhisperModel)
	if !ok || !transcription.IsKnownModel(value) {
		return transcription.DefaultModel
	}
	return value
}

func (s *service) SelectModel(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if !transcription.IsKnownModel(model) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown transcription model "+model, nil)
	}
	return s.write(ctx, kv.KeyWhisperModel, model)
}

func (s *service) APIKeyOverride(ctx context.Context, provider credentials.Provider) (string, bool) {
	key, err := keyFor(provider)
	if err != nil {
		return "", false
	}
	value, ok := s.read(ctx, key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	if s.sealer != nil {
		opened, err := s.sealer.Open(value)
		if err != nil {
			s.logger.Warn("stored api key cannot be decrypted, ignoring", "provider", provider, "error", err)
			return "", false
		}
		value = opened
	}
	return value, true
}

func (s *service) SaveAPIKey(ctx context.Context, provider credentials.Provider, apiKey string) error {
	key, err := keyFor(provider)
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "api key cannot be empty", nil)
	}
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(apiKey)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStorage, "failed to encrypt api key", err)
		}
		apiKey = sealed
	}
	return s.write(ctx, key, apiKey)
}

func (s *service) ClearAPIKey(ctx context.Context, provider credentials.Provider) error {
	key, err := keyFor(provider)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to clear api key", err)
	}
	return nil
}

func (s *service) Generation(ctx context.Context) summarizer.PromptConfig {
	raw, ok := s.read(ctx, kv.KeyGeminiSettings)
	if !ok || raw == "" {
		return summarizer.PromptConfig{}
	}
	var cfg summarizer.PromptConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.logger.Warn("stored generation settings unreadable, using defaults", "error", err)
		return summarizer.PromptConfig{}
	}
	cfg, _ = cfg.Sanitize()
	return cfg
}

func (s *service) SaveGeneration(ctx context.Context, cfg summarizer.PromptConfig) (summarizer.PromptConfig, error) {
	cfg, dropped := cfg.Sanitize()
	if len(dropped) > 0 {
		s.logger.Info("dropping out-of-range generation settings", "fields", dropped)
	}
	if cfg.IsZero() {
		return cfg, s.ClearGeneration(ctx)
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return summarizer.PromptConfig{}, apperrors.Wrap(apperrors.CodeStorage, "failed to encode generation settings", err)
	}
	if err := s.write(ctx, kv.KeyGeminiSettings, string(payload)); err != nil {
		return summarizer.PromptConfig{}, err
	}
	return cfg, nil
}

func (s *service) ClearGeneration(ctx context.Context) error {
	if err := s.store.Delete(ctx, kv.KeyGeminiSettings); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to clear generation settings", err)
	}
	return nil
}

func (s *service) Snapshot(ctx context.Context) Snapshot {
	keys := make(map[credentials.Provider]KeyStatus, len(credentials.Providers))
	for _, p := range credentials.Providers {
		override, ok := s.APIKeyOverride(ctx, p)
		status := KeyStatus{Override: ok, HasDefault: strings.TrimSpace(s.defaults[p]) != ""}
		if ok {
			status.Masked = credentials.Mask(override)
		}
		keys[p] = status
	}
	return Snapshot{
		Model:      s.SelectedModel(ctx),
		Models:     transcription.KnownModels,
		Keys:       keys,
		Generation: s.Generation(ctx),
		Defaults: GenerationDefaults{
			Prompt:          s.defaultPrompt,
			Temperature:     summarizer.DefaultTemperature,
			TopK:            summarizer.DefaultTopK,
			TopP:            summarizer.DefaultTopP,
			MaxOutputTokens: summarizer.DefaultMaxOutputTokens,
		},
	}
}

// read returns the stored value, treating store failures as absent.
func (s *service) read(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("settings read failed, using default", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

func (s *service) write(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to save setting", err)
	}
	return nil
}

func keyFor(provider credentials.Provider) (string, error) {
	switch provider {
	case credentials.ProviderGroq:
		return kv.KeyGroqAPIKey, nil
	case credentials.ProviderGemini:
		return kv.KeyGeminiAPIKey, nil
	default:
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "unknown provider "+string(provider), nil)
	}
}
