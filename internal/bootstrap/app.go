package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/note-it-down/internal/domain/pipeline"
	"github.com/yanqian/note-it-down/internal/infra/config"
)

// Prober checks that an external dependency is usable before serving.
type Prober interface {
	Probe(ctx context.Context) error
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	recorder Prober
	sessions pipeline.Orchestrator
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, recorder Prober, sessions pipeline.Orchestrator) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With("component", "bootstrap"),
		server:   server,
		recorder: recorder,
		sessions: sessions,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Recording.ProbeOnStart {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.recorder.Probe(probeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("recorder unavailable: %w", err)
		}
		a.logger.Info("recorder probe succeeded", "binary", a.cfg.Recording.FFmpegPath)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		a.abortSession(shutdownCtx)
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// abortSession releases the microphone if a capture is still running.
func (a *App) abortSession(ctx context.Context) {
	if a.sessions.Status().State != pipeline.StateRecording {
		return
	}
	if err := a.sessions.Abort(ctx); err != nil {
		a.logger.Warn("failed to abort recording on shutdown", "error", err)
	}
}
