// Package kv describes the flat on-device key-value store that holds local
// summaries and settings overrides, one serialized value per key.
package kv

import "context"

// Fixed keys used by the application.
const (
	KeySummaries      = "summaries"
	KeyWhisperModel   = "whisperModel"
	KeyGroqAPIKey     = "groqApiKey"
	KeyGeminiAPIKey   = "geminiApiKey"
	KeyGeminiSettings = "geminiSettings"
)

// Store is a string key-value store. Get reports false when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
