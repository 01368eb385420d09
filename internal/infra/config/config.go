package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Summary       SummaryConfig       `yaml:"summary"`
	Recording     RecordingConfig     `yaml:"recording"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Storage       StorageConfig       `yaml:"storage"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Firebase      FirebaseConfig      `yaml:"firebase"`
	Auth          AuthConfig          `yaml:"auth"`
	Settings      SettingsConfig      `yaml:"settings"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
// Exempt paths are never limited. Poll paths draw from their own per-client budget;
// a zero Poll.RequestsPerMinute leaves them unlimited.
type RateLimitConfig struct {
	Enabled           bool            `yaml:"enabled"`
	RequestsPerMinute int             `yaml:"requestsPerMinute"`
	Burst             int             `yaml:"burst"`
	Exempt            []string        `yaml:"exempt"`
	Poll              PollLimitConfig `yaml:"poll"`
}

// PollLimitConfig is the budget for status polling.
type PollLimitConfig struct {
	Paths             []string `yaml:"paths"`
	RequestsPerMinute int      `yaml:"requestsPerMinute"`
	Burst             int      `yaml:"burst"`
}

// RetryConfig configures best-effort retries of requests that failed with a transient 5xx.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// TranscriptionConfig points at the speech-to-text API.
type TranscriptionConfig struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseUrl"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SummaryConfig points at the generative language API.
type SummaryConfig struct {
	APIKey        string        `yaml:"apiKey"`
	BaseURL       string        `yaml:"baseUrl"`
	Model         string        `yaml:"model"`
	DefaultPrompt string        `yaml:"defaultPrompt"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RecordingConfig drives microphone capture through ffmpeg.
type RecordingConfig struct {
	FFmpegPath        string        `yaml:"ffmpegPath"`
	InputFormat       string        `yaml:"inputFormat"`
	Device            string        `yaml:"device"`
	OutputDir         string        `yaml:"outputDir"`
	SampleRate        int           `yaml:"sampleRate"`
	StopTimeout       time.Duration `yaml:"stopTimeout"`
	MicrophoneGranted bool          `yaml:"microphoneGranted"`
	KeepAudio         bool          `yaml:"keepAudio"`
	ProbeOnStart      bool          `yaml:"probeOnStart"`
}

// PipelineConfig tunes the session orchestrator.
type PipelineConfig struct {
	MinTranscriptChars int           `yaml:"minTranscriptChars"`
	TickInterval       time.Duration `yaml:"tickInterval"`
}

// StorageConfig selects the local and cloud summary backends.
type StorageConfig struct {
	Local LocalStorageConfig `yaml:"local"`
	Cloud CloudStorageConfig `yaml:"cloud"`
}

// LocalStorageConfig selects the on-device key-value backend.
type LocalStorageConfig struct {
	Driver     string       `yaml:"driver"`
	SQLitePath string       `yaml:"sqlitePath"`
	Valkey     ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the valkey backend.
type ValkeyConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// CloudStorageConfig selects the per-user summary store.
type CloudStorageConfig struct {
	Driver     string `yaml:"driver"`
	Collection string `yaml:"collection"`
}

// ArchiveConfig controls optional upload of recordings to object storage.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// FirebaseConfig selects the Firebase project.
type FirebaseConfig struct {
	ProjectID       string `yaml:"projectId"`
	CredentialsFile string `yaml:"credentialsFile"`
}

// AuthConfig selects the identity provider.
type AuthConfig struct {
	Provider        string        `yaml:"provider"`
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	OIDCIssuerURL   string        `yaml:"oidcIssuerUrl"`
	OIDCClientID    string        `yaml:"oidcClientId"`
}

// SettingsConfig controls how user overrides are stored.
type SettingsConfig struct {
	EncryptionKey string `yaml:"encryptionKey"`
}

// Load reads configuration from a YAML file, a .env file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv fills unset variables from a .env file. A missing default file is fine.
func loadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	if v, ok := os.LookupEnv("HTTP_RATE_LIMIT_EXEMPT"); ok {
		cfg.HTTP.RateLimit.Exempt = splitList(v)
	}
	if v, ok := os.LookupEnv("HTTP_RATE_LIMIT_POLL_PATHS"); ok {
		cfg.HTTP.RateLimit.Poll.Paths = splitList(v)
	}
	setInt(&cfg.HTTP.RateLimit.Poll.RequestsPerMinute, "HTTP_RATE_LIMIT_POLL_RPM")
	setInt(&cfg.HTTP.RateLimit.Poll.Burst, "HTTP_RATE_LIMIT_POLL_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	// The mobile app shipped keys under EXPO_PUBLIC_*; both spellings are honored.
	setString(&cfg.Transcription.APIKey, "EXPO_PUBLIC_GROQ_API_KEY")
	setString(&cfg.Transcription.APIKey, "GROQ_API_KEY")
	setString(&cfg.Transcription.BaseURL, "GROQ_BASE_URL")
	setString(&cfg.Transcription.Language, "TRANSCRIPTION_LANGUAGE")
	setString(&cfg.Summary.APIKey, "EXPO_PUBLIC_GEMINI_API_KEY")
	setString(&cfg.Summary.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Summary.BaseURL, "GEMINI_BASE_URL")
	setString(&cfg.Summary.Model, "GEMINI_MODEL")
	setString(&cfg.Summary.DefaultPrompt, "SUMMARY_DEFAULT_PROMPT")

	setString(&cfg.Recording.FFmpegPath, "FFMPEG_PATH")
	setString(&cfg.Recording.InputFormat, "RECORDING_INPUT_FORMAT")
	setString(&cfg.Recording.Device, "RECORDING_DEVICE")
	setString(&cfg.Recording.OutputDir, "RECORDING_OUTPUT_DIR")
	setBool(&cfg.Recording.MicrophoneGranted, "RECORDING_MICROPHONE_GRANTED")
	setBool(&cfg.Recording.KeepAudio, "RECORDING_KEEP_AUDIO")

	setString(&cfg.Storage.Local.Driver, "STORAGE_LOCAL_DRIVER")
	setString(&cfg.Storage.Local.SQLitePath, "STORAGE_SQLITE_PATH")
	setString(&cfg.Storage.Local.Valkey.Addr, "STORAGE_VALKEY_ADDR")
	setString(&cfg.Storage.Cloud.Driver, "STORAGE_CLOUD_DRIVER")

	setBool(&cfg.Archive.Enabled, "ARCHIVE_ENABLED")
	setString(&cfg.Archive.Driver, "ARCHIVE_DRIVER")
	setString(&cfg.Archive.Endpoint, "ARCHIVE_ENDPOINT")
	setString(&cfg.Archive.AccessKey, "ARCHIVE_ACCESS_KEY")
	setString(&cfg.Archive.SecretKey, "ARCHIVE_SECRET_KEY")
	setString(&cfg.Archive.Bucket, "ARCHIVE_BUCKET")
	setString(&cfg.Archive.Region, "ARCHIVE_REGION")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}

	setString(&cfg.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	setString(&cfg.Firebase.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")

	setString(&cfg.Auth.Provider, "AUTH_PROVIDER")
	setString(&cfg.Auth.Secret, "AUTH_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
	setDuration(&cfg.Auth.RefreshTokenTTL, "AUTH_REFRESH_TOKEN_TTL")
	setString(&cfg.Auth.OIDCIssuerURL, "AUTH_OIDC_ISSUER_URL")
	setString(&cfg.Auth.OIDCClientID, "AUTH_OIDC_CLIENT_ID")

	setString(&cfg.Settings.EncryptionKey, "SETTINGS_ENCRYPTION_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   3 * time.Minute,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
				Exempt:            []string{"/healthz"},
				// The UI polls status once per tick.
				Poll: PollLimitConfig{
					Paths:             []string{"/api/v1/recordings/status"},
					RequestsPerMinute: 180,
					Burst:             30,
				},
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				// Session transitions are not idempotent.
				Exclude: []string{
					"/api/v1/recordings/start",
					"/api/v1/recordings/stop",
					"/api/v1/recordings/abort",
					"/api/v1/summaries/migrate",
				},
			},
		},
		Transcription: TranscriptionConfig{
			Language: "id",
			Timeout:  2 * time.Minute,
		},
		Summary: SummaryConfig{
			Model:   "gemini-2.5-flash",
			Timeout: time.Minute,
		},
		Recording: RecordingConfig{
			FFmpegPath:        "ffmpeg",
			InputFormat:       "pulse",
			Device:            "default",
			OutputDir:         "data/recordings",
			SampleRate:        16000,
			StopTimeout:       5 * time.Second,
			MicrophoneGranted: true,
		},
		Pipeline: PipelineConfig{
			MinTranscriptChars: 10,
			TickInterval:       time.Second,
		},
		Storage: StorageConfig{
			Local: LocalStorageConfig{
				Driver:     "sqlite",
				SQLitePath: "data/notes.db",
				Valkey:     ValkeyConfig{Prefix: "notes"},
			},
			Cloud: CloudStorageConfig{
				Driver:     "none",
				Collection: "summaries",
			},
		},
		Archive: ArchiveConfig{
			Driver: "s3",
			Prefix: "recordings",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Auth: AuthConfig{
			Provider:        "local",
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
		if c.HTTP.RateLimit.Poll.RequestsPerMinute < 0 {
			return errors.New("http.rateLimit.poll.requestsPerMinute cannot be negative")
		}
		if c.HTTP.RateLimit.Poll.RequestsPerMinute > 0 && c.HTTP.RateLimit.Poll.Burst <= 0 {
			return errors.New("http.rateLimit.poll.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.Recording.SampleRate <= 0 {
		return errors.New("recording.sampleRate must be positive")
	}
	if strings.TrimSpace(c.Recording.OutputDir) == "" {
		return errors.New("recording.outputDir cannot be empty")
	}
	if c.Pipeline.MinTranscriptChars < 0 {
		return errors.New("pipeline.minTranscriptChars cannot be negative")
	}

	switch c.Storage.Local.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Storage.Local.SQLitePath) == "" {
			return errors.New("storage.local.sqlitePath cannot be empty when driver is sqlite")
		}
	case "valkey":
		if strings.TrimSpace(c.Storage.Local.Valkey.Addr) == "" {
			return errors.New("storage.local.valkey.addr cannot be empty when driver is valkey")
		}
	default:
		return fmt.Errorf("storage.local.driver %q is not one of memory, sqlite, valkey", c.Storage.Local.Driver)
	}

	switch c.Storage.Cloud.Driver {
	case "none", "memory", "firestore":
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres.dsn cannot be empty when storage.cloud.driver is postgres")
		}
	default:
		return fmt.Errorf("storage.cloud.driver %q is not one of none, memory, firestore, postgres", c.Storage.Cloud.Driver)
	}

	if c.Archive.Enabled {
		switch c.Archive.Driver {
		case "memory":
		case "s3":
			if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
				return errors.New("archive.endpoint and archive.bucket are required for the s3 driver")
			}
		default:
			return fmt.Errorf("archive.driver %q is not one of memory, s3", c.Archive.Driver)
		}
	}

	switch c.Auth.Provider {
	case "local":
		if strings.TrimSpace(c.Auth.Secret) == "" {
			return errors.New("auth.secret cannot be empty for the local provider")
		}
		if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
			return errors.New("auth token ttls must be positive")
		}
	case "firebase":
	case "oidc":
		if c.Auth.OIDCIssuerURL == "" || c.Auth.OIDCClientID == "" {
			return errors.New("auth.oidcIssuerUrl and auth.oidcClientId are required for the oidc provider")
		}
	default:
		return fmt.Errorf("auth.provider %q is not one of local, firebase, oidc", c.Auth.Provider)
	}

	switch len(c.Settings.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return errors.New("settings.encryptionKey must be 16, 24, or 32 bytes")
	}
	return nil
}
