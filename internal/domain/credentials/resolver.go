// Package credentials decides which API key a provider call uses.
package credentials

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// Provider names a third-party API that needs a key.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderGroq, ProviderGemini}

// ParseProvider validates a provider name coming from user input.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", apperrors.Wrap(apperrors.CodeInvalidInput, "unknown provider "+raw, nil)
}

// OverrideSource exposes user-saved keys. A false second value means no override.
type OverrideSource interface {
	APIKeyOverride(ctx context.Context, provider Provider) (string, bool)
}

// Defaults holds process-wide keys, usually loaded from the environment.
type Defaults map[Provider]string

// Resolver returns the key to use for a provider.
type Resolver interface {
	Resolve(ctx context.Context, provider Provider) (string, error)
}

type resolver struct {
	overrides OverrideSource
	defaults  Defaults
	logger    *slog.Logger
}

// NewResolver wires the override source with the configured defaults.
func NewResolver(overrides OverrideSource, defaults Defaults, logger *slog.Logger) Resolver {
	return &resolver{overrides: overrides, defaults: defaults, logger: logger.With("component", "credentials.resolver")}
}

// Resolve prefers a saved override, then the default, else fails with missing_credential.
func (r *resolver) Resolve(ctx context.Context, provider Provider) (string, error) {
	if r.overrides != nil {
		if key, ok := r.overrides.APIKeyOverride(ctx, provider); ok && strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), nil
		}
	}
	if key := strings.TrimSpace(r.defaults[provider]); key != "" {
		return key, nil
	}
	r.logger.Debug("no credential available", "provider", provider)
	return "", apperrors.Wrap(apperrors.CodeMissingCredential, "no api key configured for "+string(provider), nil)
}

// Mask renders a key for display without revealing it.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
