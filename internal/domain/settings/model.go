package settings

import (
	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/domain/transcription"
)

// KeyStatus describes where a provider key would come from, without exposing it.
type KeyStatus struct {
	Override   bool   `json:"override"`
	HasDefault bool   `json:"hasDefault"`
	Masked     string `json:"masked,omitempty"`
}

// Snapshot is the full settings view returned to clients.
type Snapshot struct {
	Model      string                             `json:"model"`
	Models     []transcription.ModelOption        `json:"models"`
	Keys       map[credentials.Provider]KeyStatus `json:"keys"`
	Generation summarizer.PromptConfig            `json:"generation"`
	Defaults   GenerationDefaults                 `json:"defaults"`
}

// GenerationDefaults echoes the values used when no override is stored.
type GenerationDefaults struct {
	Prompt          string  `json:"prompt"`
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}
