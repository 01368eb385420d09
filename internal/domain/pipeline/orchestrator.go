// Package pipeline drives one record, transcribe, summarize and persist session at a time.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/yanqian/note-it-down/internal/domain/persistence"
	"github.com/yanqian/note-it-down/internal/domain/recording"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
	"github.com/yanqian/note-it-down/internal/domain/transcription"
)

const (
	defaultMinTranscriptChars = 10
	defaultArchivePrefix      = "recordings"
)

// Orchestrator is the session state machine.
type Orchestrator interface {
	Start(ctx context.Context) (Status, error)
	Stop(ctx context.Context, identity persistence.Identity) (Result, error)
	Abort(ctx context.Context) error
	Status() Status
}

// Preferences supplies the per-user choices read at the start of each stage.
type Preferences interface {
	SelectedModel(ctx context.Context) string
	Generation(ctx context.Context) summarizer.PromptConfig
}

// Discarder is implemented by recorders that can delete a finished capture.
type Discarder interface {
	Discard(audio recording.Audio) error
}

type orchestrator struct {
	cfg         Config
	recorder    recording.Recorder
	archive     recording.Archive
	transcriber transcription.Service
	summarizer  summarizer.Service
	gateway     persistence.Gateway
	prefs       Preferences
	logger      *slog.Logger

	mu     sync.Mutex
	state  State
	handle *recording.Handle

	elapsed  atomic.Int64
	tickStop chan struct{}
	tickDone chan struct{}
}

// NewOrchestrator is a wire provider for the pipeline. archive may be nil.
func NewOrchestrator(
	cfg Config,
	recorder recording.Recorder,
	archive recording.Archive,
	transcriber transcription.Service,
	summarizer summarizer.Service,
	gateway persistence.Gateway,
	prefs Preferences,
	logger *slog.Logger,
) Orchestrator {
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = defaultMinTranscriptChars
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = defaultArchivePrefix
	}
	return &orchestrator{
		cfg:         cfg,
		recorder:    recorder,
		archive:     archive,
		transcriber: transcriber,
		summarizer:  summarizer,
		gateway:     gateway,
		prefs:       prefs,
		logger:      logger.With("component", "pipeline.orchestrator"),
		state:       StateIdle,
	}
}

func (o *orchestrator) Start(ctx context.Context) (Status, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return Status{}, recording.ErrDeviceBusy(nil)
	}
	o.state = StateRecording
	o.mu.Unlock()

	handle, err := o.recorder.Begin(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.state = StateIdle
		o.logger.Warn("recording start failed", "error", err)
		return Status{}, err
	}
	o.handle = &handle
	o.elapsed.Store(0)
	o.startTicker()
	o.logger.Info("session started", "recording_id", handle.ID)
	return o.statusLocked(), nil
}

func (o *orchestrator) Stop(ctx context.Context, identity persistence.Identity) (Result, error) {
	handle, err := o.leaveRecording(StateTranscribing)
	if err != nil {
		return Result{}, err
	}
	defer o.reset()

	audio, err := o.recorder.End(ctx, handle)
	if err != nil {
		o.logger.Error("recording finalize failed", "recording_id", handle.ID, "error", err)
		return Result{}, err
	}
	o.archiveAudio(ctx, identity, audio)

	text, err := o.transcriber.Transcribe(ctx, audio, o.prefs.SelectedModel(ctx), o.cfg.Language)
	o.discardAudio(audio)
	if err != nil {
		return Result{}, err
	}

	result := Result{Transcript: text}
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= o.cfg.MinTranscriptChars {
		o.logger.Info("transcript too short to summarize", "recording_id", handle.ID, "chars", utf8.RuneCountInString(strings.TrimSpace(text)))
		return result, nil
	}

	o.setState(StateSummarizing)
	summary, err := o.summarizer.Summarize(ctx, text, o.prefs.Generation(ctx))
	if err != nil {
		o.logger.Error("summarization failed, keeping transcript only", "recording_id", handle.ID, "error", err)
		result.Warning = WarningSummaryFailed
		return result, nil
	}
	result.Summary = &summary

	o.setState(StatePersisting)
	saved, err := o.gateway.Save(ctx, identity, summary)
	if err != nil {
		o.logger.Error("summary could not be saved", "recording_id", handle.ID, "error", err)
		result.Warning = WarningSummaryNotSaved
		return result, nil
	}
	result.Summary = &saved
	result.Persisted = true
	return result, nil
}

func (o *orchestrator) Abort(ctx context.Context) error {
	handle, err := o.leaveRecording(StateIdle)
	if err != nil {
		return err
	}
	defer o.reset()

	audio, err := o.recorder.End(ctx, handle)
	if err != nil {
		o.logger.Warn("aborted recording could not be finalized", "recording_id", handle.ID, "error", err)
		return nil
	}
	o.discardAudio(audio)
	o.logger.Info("session aborted", "recording_id", handle.ID)
	return nil
}

func (o *orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

// leaveRecording claims the active handle and stops the ticker before returning.
func (o *orchestrator) leaveRecording(next State) (recording.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRecording || o.handle == nil {
		return recording.Handle{}, recording.ErrNoActiveRecording()
	}
	handle := *o.handle
	o.handle = nil
	o.stopTicker()
	o.state = next
	return handle, nil
}

func (o *orchestrator) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopTicker()
	o.handle = nil
	o.state = StateIdle
	o.elapsed.Store(0)
}

func (o *orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *orchestrator) statusLocked() Status {
	status := Status{State: o.state}
	if o.state == StateRecording {
		status.ElapsedSeconds = o.elapsed.Load()
	}
	if o.handle != nil {
		started := o.handle.StartedAt
		status.RecordingID = o.handle.ID
		status.StartedAt = &started
	}
	return status
}

// startTicker must be called with mu held.
func (o *orchestrator) startTicker() {
	stop := make(chan struct{})
	done := make(chan struct{})
	o.tickStop, o.tickDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(o.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				o.elapsed.Add(1)
			}
		}
	}()
}

// stopTicker must be called with mu held. It returns after the goroutine exited.
func (o *orchestrator) stopTicker() {
	if o.tickStop == nil {
		return
	}
	close(o.tickStop)
	<-o.tickDone
	o.tickStop, o.tickDone = nil, nil
}

func (o *orchestrator) archiveAudio(ctx context.Context, identity persistence.Identity, audio recording.Audio) {
	if o.archive == nil {
		return
	}
	owner := identity.UserID
	if owner == "" {
		owner = "anonymous"
	}
	key := path.Join(o.cfg.ArchivePrefix, owner, filepath.Base(audio.Path))

	file, err := os.Open(audio.Path)
	if err != nil {
		o.logger.Warn("archive skipped, recording unreadable", "path", audio.Path, "error", err)
		return
	}
	defer file.Close()

	if _, err := o.archive.Put(ctx, key, file, audio.Size, audio.MimeType); err != nil {
		o.logger.Warn("recording archive failed", "key", key, "error", err)
		return
	}
	o.logger.Debug("recording archived", "key", key)
}

func (o *orchestrator) discardAudio(audio recording.Audio) {
	if o.cfg.KeepAudio {
		return
	}
	d, ok := o.recorder.(Discarder)
	if !ok {
		return
	}
	if err := d.Discard(audio); err != nil {
		o.logger.Warn("failed to remove recording file", "path", audio.Path, "error", err)
	}
}
