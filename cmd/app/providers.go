package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/kv"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
	"github.com/yanqian/note-it-down/internal/domain/pipeline"
	"github.com/yanqian/note-it-down/internal/domain/recording"
	"github.com/yanqian/note-it-down/internal/domain/settings"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/domain/transcription"
	"github.com/yanqian/note-it-down/internal/infra/audio"
	"github.com/yanqian/note-it-down/internal/infra/cloudstore"
	"github.com/yanqian/note-it-down/internal/infra/config"
	"github.com/yanqian/note-it-down/internal/infra/firebase"
	"github.com/yanqian/note-it-down/internal/infra/kvstore"
	"github.com/yanqian/note-it-down/internal/infra/llm/gemini"
	"github.com/yanqian/note-it-down/internal/infra/localstore"
	"github.com/yanqian/note-it-down/internal/infra/objectstore"
	"github.com/yanqian/note-it-down/internal/infra/stt/groq"
	"github.com/yanqian/note-it-down/internal/infra/userrepo"
	"github.com/yanqian/note-it-down/pkg/executor"
	"github.com/yanqian/note-it-down/pkg/secretbox"
)

func provideRecorder(cfg *config.Config, exec executor.Executor, logger *slog.Logger) *audio.FFmpegRecorder {
	rc := cfg.Recording
	return audio.NewFFmpegRecorder(audio.Config{
		Binary:      rc.FFmpegPath,
		InputFormat: rc.InputFormat,
		Device:      rc.Device,
		OutputDir:   rc.OutputDir,
		SampleRate:  rc.SampleRate,
		StopTimeout: rc.StopTimeout,
	}, exec, recording.StaticPermissions(rc.MicrophoneGranted), logger)
}

// provideArchive returns nil when archiving is off or the bucket is unreachable.
func provideArchive(cfg *config.Config, logger *slog.Logger) recording.Archive {
	ac := cfg.Archive
	if !ac.Enabled {
		return nil
	}
	if ac.Driver == "memory" {
		logger.Info("recording archive kept in memory")
		return objectstore.NewMemoryArchive()
	}
	archive, err := objectstore.NewS3Archive(objectstore.S3Config{
		Endpoint:  ac.Endpoint,
		AccessKey: ac.AccessKey,
		SecretKey: ac.SecretKey,
		Bucket:    ac.Bucket,
		Region:    ac.Region,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize object storage, archiving disabled", "error", err)
		return nil
	}
	logger.Info("recording archive enabled", "endpoint", ac.Endpoint, "bucket", ac.Bucket)
	return archive
}

func provideGroqClient(cfg *config.Config) *groq.Client {
	return groq.NewClient(cfg.Transcription.BaseURL, cfg.Transcription.Timeout)
}

func provideGeminiClient(cfg *config.Config) *gemini.Client {
	return gemini.NewClient(cfg.Summary.BaseURL, cfg.Summary.Model, cfg.Summary.Timeout)
}

func provideTranscriptionConfig(cfg *config.Config) transcription.Config {
	return transcription.Config{Language: cfg.Transcription.Language}
}

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{DefaultPrompt: cfg.Summary.DefaultPrompt}
}

func provideCredentialDefaults(cfg *config.Config) credentials.Defaults {
	return credentials.Defaults{
		credentials.ProviderGroq:   cfg.Transcription.APIKey,
		credentials.ProviderGemini: cfg.Summary.APIKey,
	}
}

func provideCredentialResolver(overrides settings.Service, defaults credentials.Defaults, logger *slog.Logger) credentials.Resolver {
	return credentials.NewResolver(overrides, defaults, logger)
}

func provideSealer(cfg *config.Config, logger *slog.Logger) (settings.Sealer, error) {
	key := cfg.Settings.EncryptionKey
	if key == "" {
		logger.Warn("settings encryption key not set, api key overrides are stored in plaintext")
		return nil, nil
	}
	box, err := secretbox.New(key)
	if err != nil {
		return nil, fmt.Errorf("settings encryption: %w", err)
	}
	return box, nil
}

func provideKVStore(cfg *config.Config, logger *slog.Logger) (kv.Store, func()) {
	lc := cfg.Storage.Local
	switch lc.Driver {
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := kvstore.OpenSQLite(ctx, lc.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store, falling back to memory store", "path", lc.SQLitePath, "error", err)
			return kvstore.NewMemoryStore(), func() {}
		}
		logger.Info("sqlite local store enabled", "path", lc.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close sqlite store", "error", err)
			}
		}
	case "valkey":
		opt, err := buildValkeyOptions(lc.Valkey.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return kvstore.NewMemoryStore(), func() {}
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return kvstore.NewMemoryStore(), func() {}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
			return kvstore.NewMemoryStore(), func() {}
		}
		logger.Info("valkey local store enabled", "addr", lc.Valkey.Addr)
		return kvstore.NewValkeyStore(client, lc.Valkey.Prefix), client.Close
	}
	logger.Info("using memory local store, data is lost on restart")
	return kvstore.NewMemoryStore(), func() {}
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideLocalStore(store kv.Store) persistence.LocalStore {
	return localstore.New(store)
}

// providePostgresPool returns a nil pool when no DSN is set or the database is unreachable.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		return nil, func() {}
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, postgres disabled", "error", err)
		return nil, func() {}
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, postgres disabled", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, postgres disabled", "error", err)
		pool.Close()
		return nil, func() {}
	}
	logger.Info("postgres pool ready")
	return pool, pool.Close
}

// provideFirebaseApp only initializes Firebase when a component needs it.
func provideFirebaseApp(cfg *config.Config, logger *slog.Logger) *fb.App {
	if cfg.Storage.Cloud.Driver != "firestore" && cfg.Auth.Provider != auth.ProviderFirebase {
		return nil
	}
	app, err := firebase.NewApp(context.Background(), firebase.Config{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
	})
	if err != nil {
		logger.Error("failed to initialize firebase app", "error", err)
		return nil
	}
	return app
}

// provideCloudStore returns nil when no usable cloud backend is configured; the
// gateway then keeps every summary on the device.
func provideCloudStore(cfg *config.Config, pool *pgxpool.Pool, app *fb.App, logger *slog.Logger) (persistence.CloudStore, func()) {
	switch cfg.Storage.Cloud.Driver {
	case "memory":
		logger.Info("using memory cloud store")
		return cloudstore.NewMemoryStore(), func() {}
	case "postgres":
		if pool == nil {
			logger.Error("postgres cloud store unavailable, summaries stay local")
			return nil, func() {}
		}
		store := cloudstore.NewPostgresStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare summaries table, summaries stay local", "error", err)
			return nil, func() {}
		}
		logger.Info("postgres cloud store enabled")
		return store, func() {}
	case "firestore":
		if app == nil {
			logger.Error("firebase app unavailable, summaries stay local")
			return nil, func() {}
		}
		client, err := app.Firestore(context.Background())
		if err != nil {
			logger.Error("failed to create firestore client, summaries stay local", "error", err)
			return nil, func() {}
		}
		logger.Info("firestore cloud store enabled", "collection", cfg.Storage.Cloud.Collection)
		return cloudstore.NewFirestoreStore(client, cfg.Storage.Cloud.Collection, logger), func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close firestore client", "error", err)
			}
		}
	}
	logger.Info("cloud store disabled, summaries stay local")
	return nil, func() {}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Provider:        cfg.Auth.Provider,
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		OIDC: auth.OIDCConfig{
			IssuerURL: cfg.Auth.OIDCIssuerURL,
			ClientID:  cfg.Auth.OIDCClientID,
		},
	}
}

func provideUserRepository(pool *pgxpool.Pool, logger *slog.Logger) auth.Repository {
	if pool == nil {
		logger.Info("user repository kept in memory")
		return userrepo.NewMemoryRepository()
	}
	repo := userrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare users table, using memory repository", "error", err)
		return userrepo.NewMemoryRepository()
	}
	return repo
}

// provideAccounts returns nil unless accounts are managed locally.
func provideAccounts(cfg auth.Config, repo auth.Repository, logger *slog.Logger) auth.Service {
	if cfg.Provider != auth.ProviderLocal {
		return nil
	}
	return auth.NewService(cfg, repo, logger)
}

func provideVerifier(cfg auth.Config, accounts auth.Service, app *fb.App) (auth.Verifier, error) {
	switch cfg.Provider {
	case auth.ProviderLocal:
		return accounts, nil
	case auth.ProviderFirebase:
		if app == nil {
			return nil, errors.New("firebase auth selected but the firebase app could not be initialized")
		}
		verifier, err := firebase.NewTokenVerifier(context.Background(), app)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	case auth.ProviderOIDC:
		return auth.NewOIDCVerifier(context.Background(), cfg.OIDC)
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
}

func providePipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		MinTranscriptChars: cfg.Pipeline.MinTranscriptChars,
		TickInterval:       cfg.Pipeline.TickInterval,
		Language:           cfg.Transcription.Language,
		ArchivePrefix:      cfg.Archive.Prefix,
		KeepAudio:          cfg.Recording.KeepAudio,
	}
}

func providePreferences(svc settings.Service) pipeline.Preferences {
	return svc
}
