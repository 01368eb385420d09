package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	maxErrorBody   = 4 << 10
)

// Part is a single text fragment of a content block.
type Part struct {
	Text *string `json:"text,omitempty"`
}

// Content groups parts, optionally tagged with a role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SafetySetting mirrors the API's safety override entry.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateContentRequest is the generateContent payload.
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// UsageMetadata reports token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContentResponse is the subset of the answer we read.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// FirstText returns candidates[0].content.parts[0].text if present.
func (r GenerateContentResponse) FirstText() (string, bool) {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return "", false
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", false
	}
	return *parts[0].Text, true
}

// TextRequest builds a single-turn request around one instruction.
func TextRequest(instruction string, cfg GenerationConfig) GenerateContentRequest {
	return GenerateContentRequest{
		Contents:         []Content{{Parts: []Part{{Text: &instruction}}}},
		GenerationConfig: cfg,
		SafetySettings:   []SafetySetting{},
	}
}

// Client calls the Generative Language REST API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient constructs the client. Empty values fall back to the public endpoint and flash model.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent performs one generateContent call.
func (c *Client) GenerateContent(ctx context.Context, apiKey string, req GenerateContentRequest) (GenerateContentResponse, error) {
	var out GenerateContentResponse

	payload, err := json.Marshal(req)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to encode generate request", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "failed to build generate request", stripURL(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "generate request failed", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, apperrors.Upstream("language model rejected the request", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "failed to read generate response", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, apperrors.Wrap(apperrors.CodeMalformedResponse, "generate response is not valid json", err)
	}
	return out, nil
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
	}
	return err
}
