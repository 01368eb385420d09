package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
	"github.com/yanqian/note-it-down/internal/domain/pipeline"
	"github.com/yanqian/note-it-down/internal/domain/settings"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/infra/config"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

func TestRouter_StartRecording(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	deps.sessions.startFn = func(ctx context.Context) (pipeline.Status, error) {
		return pipeline.Status{State: pipeline.StateRecording, RecordingID: "rec-1"}, nil
	}

	rec := performRequest(newRouterUnderTest(t, deps, nil), http.MethodPost, "/api/v1/recordings/start", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var got pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, pipeline.StateRecording, got.State)
	require.Equal(t, "rec-1", got.RecordingID)
}

func TestRouter_DomainErrorsMapToStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "busy", err: apperrors.Wrap(apperrors.CodeDeviceBusy, "recorder busy", nil), status: http.StatusConflict},
		{name: "permission", err: apperrors.Wrap(apperrors.CodePermissionDenied, "microphone denied", nil), status: http.StatusForbidden},
		{name: "missing key", err: apperrors.Wrap(apperrors.CodeMissingCredential, "no groq key", nil), status: http.StatusPreconditionFailed},
		{name: "upstream", err: apperrors.Upstream("transcription failed", 500, "boom"), status: http.StatusBadGateway},
		{name: "unknown", err: io.ErrUnexpectedEOF, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deps := newDeps()
			deps.sessions.stopFn = func(ctx context.Context, id persistence.Identity) (pipeline.Result, error) {
				return pipeline.Result{}, tc.err
			}
			rec := performRequest(newRouterUnderTest(t, deps, nil), http.MethodPost, "/api/v1/recordings/stop", "", "")
			require.Equal(t, tc.status, rec.Code)

			body := decodeErrorBody(t, rec.Body.Bytes())
			if code := apperrors.CodeOf(tc.err); code != "" {
				require.Equal(t, code, body["error"]["code"])
			} else {
				require.Equal(t, "pipeline_failed", body["error"]["code"])
			}
		})
	}
}

func TestRouter_StopUsesCallerIdentity(t *testing.T) {
	t.Parallel()

	var seen []persistence.Identity
	var mu sync.Mutex
	deps := newDeps()
	deps.sessions.stopFn = func(ctx context.Context, id persistence.Identity) (pipeline.Result, error) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		return pipeline.Result{Transcript: "halo semua", Persisted: true, Summary: &note.Summary{ID: "s1", Title: "Rapat"}}, nil
	}
	verifier := &stubVerifier{claims: map[string]auth.Claims{
		"good": {Subject: "user-7", Email: "a@b.test", Provider: auth.ProviderFirebase, TokenType: "access"},
	}}
	server := newRouterUnderTest(t, deps, verifier)

	rec := performRequest(server, http.MethodPost, "/api/v1/recordings/stop", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = performRequest(server, http.MethodPost, "/api/v1/recordings/stop", "", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "halo semua", got.Transcript)
	require.Equal(t, "Rapat", got.Summary.Title)

	require.Equal(t, []persistence.Identity{
		persistence.Anonymous(),
		{UserID: "user-7", Email: "a@b.test"},
	}, seen)
}

func TestRouter_InvalidBearerRejected(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	server := newRouterUnderTest(t, deps, &stubVerifier{})

	rec := performRequest(server, http.MethodGet, "/api/v1/summaries", "", "Bearer nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodGet, "/api/v1/summaries", "", "Token nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ListAndDeleteSummaries(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	var deleted string
	deps.notes.deleteFn = func(ctx context.Context, id persistence.Identity, summaryID string) error {
		deleted = summaryID
		return nil
	}
	server := newRouterUnderTest(t, deps, nil)

	rec := performRequest(server, http.MethodGet, "/api/v1/summaries", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"summaries":[]}`, rec.Body.String())

	rec = performRequest(server, http.MethodDelete, "/api/v1/summaries/1717000000000", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "1717000000000", deleted)
}

func TestRouter_MigrateRequiresAuth(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	deps.notes.migrateFn = func(ctx context.Context, id persistence.Identity) (int, error) {
		require.Equal(t, "user-1", id.UserID)
		return 3, nil
	}
	verifier := &stubVerifier{claims: map[string]auth.Claims{"good": {Subject: "user-1", Provider: auth.ProviderOIDC}}}
	server := newRouterUnderTest(t, deps, verifier)

	rec := performRequest(server, http.MethodPost, "/api/v1/summaries/migrate", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodPost, "/api/v1/summaries/migrate", "", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"migrated":3}`, rec.Body.String())
}

func TestRouter_SettingsKeys(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	server := newRouterUnderTest(t, deps, nil)

	rec := performRequest(server, http.MethodPut, "/api/v1/settings/keys/openai", `{"apiKey":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apperrors.CodeInvalidInput, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodPut, "/api/v1/settings/keys/groq", `{"apiKey":"gsk_123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gsk_123", deps.settings.keys[credentials.ProviderGroq])

	rec = performRequest(server, http.MethodDelete, "/api/v1/settings/keys/groq", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, deps.settings.keys, credentials.ProviderGroq)
}

func TestRouter_SettingsGeneration(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	server := newRouterUnderTest(t, deps, nil)

	rec := performRequest(server, http.MethodPut, "/api/v1/settings/generation", `{"temperature":0.2,"topK":5}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Generation summarizer.PromptConfig `json:"generation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Generation.Temperature)
	require.InDelta(t, 0.2, *got.Generation.Temperature, 1e-9)

	rec = performRequest(server, http.MethodPut, "/api/v1/settings/model", `{"model":"whisper-large-v3-turbo"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "whisper-large-v3-turbo", deps.settings.model)

	rec = performRequest(server, http.MethodDelete, "/api/v1/settings/generation", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AccountsDisabledForExternalProvider(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	deps.accounts = nil
	rec := performRequest(newRouterUnderTest(t, deps, &stubVerifier{}), http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.test","password":"secret1"}`, "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.Equal(t, "auth_not_configured", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_LoginRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	calls := 0
	deps.accounts.loginFn = func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
		calls++
		if calls == 1 {
			return auth.LoginResponse{}, apperrors.Wrap("auth_error", "failed to fetch user", io.ErrUnexpectedEOF)
		}
		require.Equal(t, "a@b.test", req.Email)
		return auth.LoginResponse{Token: "tok", RefreshToken: "ref"}, nil
	}

	rec := performRequest(newRouterUnderTest(t, deps, nil), http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.test","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)

	var got auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "tok", got.Token)
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	handler := NewHandler(deps.sessions, deps.notes, deps.settings, deps.accounts, newTestLogger())
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2, Exempt: []string{"/healthz"}}
	server := NewRouter(cfg, handler, nil)

	for i := 0; i < 2; i++ {
		rec := performRequest(server, http.MethodGet, "/api/v1/summaries", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := performRequest(server, http.MethodGet, "/api/v1/summaries", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = performRequest(server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_StatusPollingDoesNotStarveStop(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	stops := 0
	deps.sessions.stopFn = func(ctx context.Context, id persistence.Identity) (pipeline.Result, error) {
		stops++
		return pipeline.Result{Transcript: "selesai"}, nil
	}
	handler := NewHandler(deps.sessions, deps.notes, deps.settings, deps.accounts, newTestLogger())
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             2,
		Poll: config.PollLimitConfig{
			Paths:             []string{"/api/v1/recordings/status"},
			RequestsPerMinute: 60,
			Burst:             5,
		},
	}
	server := NewRouter(cfg, handler, nil)

	// A client ticking once per second through a recording.
	for i := 0; i < 5; i++ {
		rec := performRequest(server, http.MethodGet, "/api/v1/recordings/status", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := performRequest(server, http.MethodGet, "/api/v1/recordings/status", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = performRequest(server, http.MethodPost, "/api/v1/recordings/stop", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, stops)
}

func TestRouter_StorageFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	calls := 0
	deps.notes.deleteFn = func(ctx context.Context, id persistence.Identity, summaryID string) error {
		calls++
		return apperrors.Wrap(apperrors.CodeStorage, "failed to delete summary", io.ErrUnexpectedEOF)
	}

	rec := performRequest(newRouterUnderTest(t, deps, nil), http.MethodDelete, "/api/v1/summaries/42", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, apperrors.CodeStorage, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
	require.Equal(t, 1, calls)
}

func TestRouter_TransientDeleteFailureIsRetried(t *testing.T) {
	t.Parallel()

	deps := newDeps()
	calls := 0
	deps.notes.deleteFn = func(ctx context.Context, id persistence.Identity, summaryID string) error {
		calls++
		if calls == 1 {
			return apperrors.Wrap(apperrors.CodeTransport, "cloud unreachable", io.ErrUnexpectedEOF)
		}
		return nil
	}

	rec := performRequest(newRouterUnderTest(t, deps, nil), http.MethodDelete, "/api/v1/summaries/42", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 2, calls)
}

func TestTokenLimiterRefills(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newTokenLimiter(60, 1)
	l.now = func() time.Time { return now }

	ok, _ := l.take("10.0.0.1")
	require.True(t, ok)
	ok, wait := l.take("10.0.0.1")
	require.False(t, ok)
	require.Equal(t, time.Second, wait)

	ok, _ = l.take("10.0.0.2")
	require.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = l.take("10.0.0.1")
	require.True(t, ok)

	now = now.Add(10 * time.Minute)
	_, _ = l.take("10.0.0.3")
	require.Len(t, l.buckets, 1)
}

func performRequest(server *http.Server, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

type testDeps struct {
	sessions *stubOrchestrator
	notes    *stubGateway
	settings *stubSettings
	accounts *stubAccounts
}

func newDeps() *testDeps {
	return &testDeps{
		sessions: &stubOrchestrator{},
		notes:    &stubGateway{},
		settings: &stubSettings{keys: map[credentials.Provider]string{}},
		accounts: &stubAccounts{},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			Retry: config.RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: time.Millisecond,
				Exclude:     []string{"/api/v1/recordings/stop"},
			},
		},
	}
}

func newRouterUnderTest(t *testing.T, deps *testDeps, verifier auth.Verifier) *http.Server {
	t.Helper()
	var accounts auth.Service
	if deps.accounts != nil {
		accounts = deps.accounts
	}
	handler := NewHandler(deps.sessions, deps.notes, deps.settings, accounts, newTestLogger())
	if verifier == nil {
		verifier = &stubVerifier{}
	}
	return NewRouter(testConfig(), handler, verifier)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubOrchestrator struct {
	startFn func(ctx context.Context) (pipeline.Status, error)
	stopFn  func(ctx context.Context, id persistence.Identity) (pipeline.Result, error)
}

func (s *stubOrchestrator) Start(ctx context.Context) (pipeline.Status, error) {
	if s.startFn != nil {
		return s.startFn(ctx)
	}
	return pipeline.Status{State: pipeline.StateRecording}, nil
}

func (s *stubOrchestrator) Stop(ctx context.Context, id persistence.Identity) (pipeline.Result, error) {
	if s.stopFn != nil {
		return s.stopFn(ctx, id)
	}
	return pipeline.Result{}, nil
}

func (s *stubOrchestrator) Abort(context.Context) error { return nil }

func (s *stubOrchestrator) Status() pipeline.Status {
	return pipeline.Status{State: pipeline.StateIdle}
}

type stubGateway struct {
	deleteFn  func(ctx context.Context, id persistence.Identity, summaryID string) error
	migrateFn func(ctx context.Context, id persistence.Identity) (int, error)
}

func (s *stubGateway) Save(_ context.Context, _ persistence.Identity, summary note.Summary) (note.Summary, error) {
	return summary, nil
}

func (s *stubGateway) List(context.Context, persistence.Identity) ([]note.Summary, error) {
	return nil, nil
}

func (s *stubGateway) Delete(ctx context.Context, id persistence.Identity, summaryID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id, summaryID)
	}
	return nil
}

func (s *stubGateway) Migrate(ctx context.Context, id persistence.Identity) (int, error) {
	if s.migrateFn != nil {
		return s.migrateFn(ctx, id)
	}
	return 0, nil
}

type stubSettings struct {
	mu    sync.Mutex
	model string
	keys  map[credentials.Provider]string
}

func (s *stubSettings) APIKeyOverride(_ context.Context, p credentials.Provider) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[p]
	return key, ok
}

func (s *stubSettings) SelectedModel(context.Context) string { return s.model }

func (s *stubSettings) SelectModel(_ context.Context, model string) error {
	s.model = model
	return nil
}

func (s *stubSettings) SaveAPIKey(_ context.Context, p credentials.Provider, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[p] = key
	return nil
}

func (s *stubSettings) ClearAPIKey(_ context.Context, p credentials.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, p)
	return nil
}

func (s *stubSettings) Generation(context.Context) summarizer.PromptConfig {
	return summarizer.PromptConfig{}
}

func (s *stubSettings) SaveGeneration(_ context.Context, cfg summarizer.PromptConfig) (summarizer.PromptConfig, error) {
	sanitized, _ := cfg.Sanitize()
	return sanitized, nil
}

func (s *stubSettings) ClearGeneration(context.Context) error { return nil }

func (s *stubSettings) Snapshot(context.Context) settings.Snapshot {
	return settings.Snapshot{Model: s.model}
}

type stubAccounts struct {
	loginFn func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error)
}

func (s *stubAccounts) ValidateToken(context.Context, string) (auth.Claims, error) {
	return auth.Claims{}, apperrors.Wrap("invalid_token", "not used", nil)
}

func (s *stubAccounts) Register(_ context.Context, req auth.RegisterRequest) (auth.UserView, error) {
	return auth.UserView{ID: "1", Email: req.Email, Provider: auth.ProviderLocal}, nil
}

func (s *stubAccounts) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAccounts) Refresh(context.Context, string) (auth.LoginResponse, error) {
	return auth.LoginResponse{}, nil
}

func (s *stubAccounts) Profile(_ context.Context, subject string) (auth.UserView, error) {
	return auth.UserView{ID: subject, Provider: auth.ProviderLocal}, nil
}

type stubVerifier struct {
	claims map[string]auth.Claims
}

func (s *stubVerifier) ValidateToken(_ context.Context, token string) (auth.Claims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return auth.Claims{}, apperrors.Wrap("invalid_token", "token invalid", nil)
}
