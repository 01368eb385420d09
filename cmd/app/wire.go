//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/note-it-down/internal/bootstrap"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
	"github.com/yanqian/note-it-down/internal/domain/pipeline"
	"github.com/yanqian/note-it-down/internal/domain/recording"
	"github.com/yanqian/note-it-down/internal/domain/settings"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/domain/transcription"
	"github.com/yanqian/note-it-down/internal/infra/audio"
	"github.com/yanqian/note-it-down/internal/infra/config"
	"github.com/yanqian/note-it-down/internal/infra/llm/gemini"
	"github.com/yanqian/note-it-down/internal/infra/stt/groq"
	httpiface "github.com/yanqian/note-it-down/internal/interface/http"
	"github.com/yanqian/note-it-down/pkg/executor"
	"github.com/yanqian/note-it-down/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		executor.New,
		provideRecorder,
		provideArchive,
		provideGroqClient,
		provideGeminiClient,
		provideTranscriptionConfig,
		provideSummaryConfig,
		provideCredentialDefaults,
		provideCredentialResolver,
		provideSealer,
		provideKVStore,
		provideLocalStore,
		providePostgresPool,
		provideFirebaseApp,
		provideCloudStore,
		provideAuthConfig,
		provideUserRepository,
		provideAccounts,
		provideVerifier,
		providePipelineConfig,
		providePreferences,
		settings.NewService,
		transcription.NewService,
		summarizer.NewService,
		persistence.NewGateway,
		pipeline.NewOrchestrator,
		wire.Bind(new(recording.Recorder), new(*audio.FFmpegRecorder)),
		wire.Bind(new(bootstrap.Prober), new(*audio.FFmpegRecorder)),
		wire.Bind(new(transcription.Client), new(*groq.Client)),
		wire.Bind(new(summarizer.GenerativeClient), new(*gemini.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
