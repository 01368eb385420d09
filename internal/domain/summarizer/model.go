package summarizer

import (
	"strings"

	"github.com/yanqian/note-it-down/internal/infra/llm/gemini"
)

// Generation defaults applied when a PromptConfig leaves a field unset.
const (
	DefaultTemperature     = 0.7
	DefaultTopK            = 1
	DefaultTopP            = 1.0
	DefaultMaxOutputTokens = 4096
)

// DefaultPrompt asks for an Indonesian summary of a noisy speech-to-text transcript.
const DefaultPrompt = "Summarize the following text in Indonesian. For context, the text provided came from " +
	"Speech to Text, so expect a lot of unclear jargons, and you must understand contexts. Provide a clear, " +
	"concise summary that captures the main points. Also suggest a short title (max 5 words) for this content:"

const outputDirective = "Please respond in this format:\nTitle: [short title here]\nSummary: [summary here]"

// Config configures the summarizer.
type Config struct {
	DefaultPrompt string
}

// PromptConfig carries the user's optional generation overrides. Nil means default.
type PromptConfig struct {
	Prompt          string   `json:"prompt,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// Sanitize drops every out-of-range value and reports which fields were dropped.
func (p PromptConfig) Sanitize() (PromptConfig, []string) {
	var dropped []string
	p.Prompt = strings.TrimSpace(p.Prompt)
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		p.Temperature = nil
		dropped = append(dropped, "temperature")
	}
	if p.TopK != nil && *p.TopK <= 0 {
		p.TopK = nil
		dropped = append(dropped, "topK")
	}
	if p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
		p.TopP = nil
		dropped = append(dropped, "topP")
	}
	if p.MaxOutputTokens != nil && *p.MaxOutputTokens <= 0 {
		p.MaxOutputTokens = nil
		dropped = append(dropped, "maxOutputTokens")
	}
	return p, dropped
}

// IsZero reports whether no override is set.
func (p PromptConfig) IsZero() bool {
	return p.Prompt == "" && p.Temperature == nil && p.TopK == nil && p.TopP == nil && p.MaxOutputTokens == nil
}

func (p PromptConfig) generationConfig() gemini.GenerationConfig {
	p, _ = p.Sanitize()
	cfg := gemini.GenerationConfig{
		Temperature:     DefaultTemperature,
		TopK:            DefaultTopK,
		TopP:            DefaultTopP,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.TopK != nil {
		cfg.TopK = *p.TopK
	}
	if p.TopP != nil {
		cfg.TopP = *p.TopP
	}
	if p.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = *p.MaxOutputTokens
	}
	return cfg
}
