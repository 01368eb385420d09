package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/note-it-down/internal/infra/config"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

const retryBodyLimit = 1 << 20

var errBodyTooLarge = errors.New("request body exceeds retry limit")

var retryMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

// Failures that a second attempt cannot fix, or that may already have changed state.
var permanentCodes = map[string]struct{}{
	apperrors.CodeStorage:           {},
	apperrors.CodeRecordingFailed:   {},
	apperrors.CodeMalformedResponse: {},
	apperrors.CodeUpstream:          {},
	"auth_not_configured":           {},
}

// withRetry replays a request when the handler answered with a transient 5xx.
// Excluded paths and unknown methods pass straight through.
func withRetry(handler http.Handler, cfg config.RetryConfig, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return handler
	}
	excluded := pathSet(cfg.Exclude)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, skip := excluded[r.URL.Path]
		_, allowed := retryMethods[r.Method]
		if skip || !allowed {
			handler.ServeHTTP(w, r)
			return
		}

		body, err := bufferBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}

		for attempt := 1; ; attempt++ {
			rec := newBufferedResponse()
			replay := r.Clone(r.Context())
			replay.Body = io.NopCloser(bytes.NewReader(body))
			replay.ContentLength = int64(len(body))
			handler.ServeHTTP(rec, replay)

			code, transient := rec.transient()
			if !transient || attempt >= cfg.MaxAttempts || !backoff(r, cfg.BaseBackoff, attempt) {
				rec.flushTo(w)
				return
			}
			logger.Warn("transient failure, retrying request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"code", code,
				"attempt", attempt,
			)
		}
	})
}

// backoff sleeps base*2^(attempt-1) and reports false if the client went away meanwhile.
func backoff(r *http.Request, base time.Duration, attempt int) bool {
	delay := base << (attempt - 1)
	if delay <= 0 {
		return r.Context().Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, retryBodyLimit+1))
	if err != nil {
		return nil, err
	}
	if len(data) > retryBodyLimit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// bufferedResponse holds one attempt's response until it is known to be final.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) Flush() {}

// transient reports whether the response is worth another attempt, along with its error code.
func (b *bufferedResponse) transient() (string, bool) {
	if b.status < http.StatusInternalServerError || b.status == http.StatusNotImplemented {
		return "", false
	}
	var parsed errorBody
	if err := json.Unmarshal(b.body.Bytes(), &parsed); err != nil {
		return "", true
	}
	_, permanent := permanentCodes[parsed.Error.Code]
	return parsed.Error.Code, !permanent
}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = append([]string(nil), v...)
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if b.body.Len() > 0 {
		_, _ = w.Write(b.body.Bytes())
	}
}
