package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultTimeout = 120 * time.Second
	// maxErrorBody caps how much of a failed response is kept for diagnostics.
	maxErrorBody = 4 << 10
)

// TranscriptionRequest is the multipart payload sent to the transcription endpoint.
type TranscriptionRequest struct {
	Model    string
	Language string
	FileName string
	MimeType string
	Audio    io.Reader
}

// TranscriptionResponse is the subset of the OpenAI-compatible answer we use.
type TranscriptionResponse struct {
	Text *string `json:"text"`
}

// Client talks to the Groq speech-to-text API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a transcription client. An empty baseURL targets Groq.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateTranscription uploads audio and returns the transcript. Exactly one attempt is made.
func (c *Client) CreateTranscription(ctx context.Context, apiKey string, req TranscriptionRequest) (TranscriptionResponse, error) {
	var out TranscriptionResponse

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to encode audio upload", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "failed to build transcription request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "transcription request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, apperrors.Upstream("transcription service rejected the request", resp.StatusCode, string(payload))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, apperrors.Wrap(apperrors.CodeTransport, "failed to read transcription response", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apperrors.Wrap(apperrors.CodeMalformedResponse, "transcription response is not valid json", err)
	}
	if out.Text == nil {
		return out, apperrors.Wrap(apperrors.CodeMalformedResponse, "transcription response has no text field", nil)
	}
	return out, nil
}

func encodeMultipart(req TranscriptionRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", req.Model); err != nil {
		return nil, "", err
	}
	if req.Language != "" {
		if err := w.WriteField("language", req.Language); err != nil {
			return nil, "", err
		}
	}

	name := req.FileName
	if name == "" {
		name = "recording.m4a"
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
