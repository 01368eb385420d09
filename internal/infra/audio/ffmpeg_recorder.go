package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/note-it-down/internal/domain/recording"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
	"github.com/yanqian/note-it-down/pkg/executor"
	"github.com/yanqian/note-it-down/pkg/util"
)

const recordingMimeType = "audio/mp4"

// Config drives the ffmpeg capture process.
type Config struct {
	Binary      string
	InputFormat string
	Device      string
	OutputDir   string
	SampleRate  int
	StopTimeout time.Duration
}

// FFmpegRecorder captures the microphone through an ffmpeg child process.
type FFmpegRecorder struct {
	cfg    Config
	exec   executor.Executor
	perms  recording.Permissions
	logger *slog.Logger
	now    func() time.Time

	// slot holds one token while the microphone is in use.
	slot chan struct{}

	mu     sync.Mutex
	active *capture
}

type capture struct {
	handle recording.Handle
	proc   executor.Process
	path   string
}

// NewFFmpegRecorder constructs the recorder.
func NewFFmpegRecorder(cfg Config, exec executor.Executor, perms recording.Permissions, logger *slog.Logger) *FFmpegRecorder {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	return &FFmpegRecorder{
		cfg:    cfg,
		exec:   exec,
		perms:  perms,
		logger: logger.With("component", "audio.ffmpeg"),
		now:    util.NowUTC,
		slot:   make(chan struct{}, 1),
	}
}

// Probe checks that the ffmpeg binary can be executed.
func (r *FFmpegRecorder) Probe(ctx context.Context) error {
	if _, err := r.exec.Execute(ctx, r.cfg.Binary, "-hide_banner", "-version"); err != nil {
		return fmt.Errorf("probe ffmpeg: %w", err)
	}
	return nil
}

// Begin implements recording.Recorder.
func (r *FFmpegRecorder) Begin(ctx context.Context) (recording.Handle, error) {
	if !r.perms.MicrophoneGranted(ctx) {
		return recording.Handle{}, recording.ErrPermissionDenied()
	}
	select {
	case r.slot <- struct{}{}:
	default:
		return recording.Handle{}, recording.ErrDeviceBusy(nil)
	}

	handle := recording.Handle{ID: uuid.NewString(), StartedAt: r.now()}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		r.release()
		return recording.Handle{}, recording.ErrDeviceBusy(fmt.Errorf("create recordings dir: %w", err))
	}
	path := filepath.Join(r.cfg.OutputDir, handle.ID+".m4a")
	proc, err := r.exec.Start(r.cfg.Binary, r.args(path)...)
	if err != nil {
		r.release()
		return recording.Handle{}, recording.ErrDeviceBusy(err)
	}

	r.mu.Lock()
	r.active = &capture{handle: handle, proc: proc, path: path}
	r.mu.Unlock()

	r.logger.Info("recording started", "recording_id", handle.ID, "path", path)
	return handle, nil
}

// End implements recording.Recorder.
func (r *FFmpegRecorder) End(ctx context.Context, handle recording.Handle) (recording.Audio, error) {
	r.mu.Lock()
	active := r.active
	if active == nil || active.handle.ID != handle.ID {
		r.mu.Unlock()
		return recording.Audio{}, recording.ErrNoActiveRecording()
	}
	r.active = nil
	r.mu.Unlock()
	defer r.release()

	if err := r.stop(ctx, active); err != nil {
		return recording.Audio{}, apperrors.Wrap(apperrors.CodeRecordingFailed, "failed to stop recording", err)
	}

	info, err := os.Stat(active.path)
	if err != nil {
		return recording.Audio{}, apperrors.Wrap(apperrors.CodeRecordingFailed, "recording file missing", err)
	}
	if info.Size() == 0 {
		return recording.Audio{}, apperrors.Wrap(apperrors.CodeRecordingFailed, "recording is empty", nil)
	}

	r.logger.Info("recording finalized", "recording_id", handle.ID, "bytes", info.Size(), "duration_ms", r.now().Sub(handle.StartedAt).Milliseconds())
	return recording.Audio{Path: active.path, MimeType: recordingMimeType, Size: info.Size()}, nil
}

// Discard removes a finished recording from disk.
func (r *FFmpegRecorder) Discard(audio recording.Audio) error {
	if audio.Path == "" {
		return nil
	}
	if err := os.Remove(audio.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// stop asks ffmpeg to quit, killing it if it does not exit within the grace period.
func (r *FFmpegRecorder) stop(ctx context.Context, active *capture) error {
	if _, err := io.WriteString(active.proc.Stdin(), "q"); err != nil {
		r.logger.Warn("failed to signal ffmpeg", "recording_id", active.handle.ID, "error", err)
	}

	done := make(chan error, 1)
	go func() { done <- active.proc.Wait() }()

	timer := time.NewTimer(r.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			// ffmpeg reports a non-zero status on interrupted input but still flushes the file.
			r.logger.Warn("ffmpeg exited with error", "recording_id", active.handle.ID, "error", err)
		}
		return nil
	case <-timer.C:
		r.logger.Warn("ffmpeg did not exit in time, killing", "recording_id", active.handle.ID)
		_ = active.proc.Kill()
		<-done
		return nil
	case <-ctx.Done():
		_ = active.proc.Kill()
		<-done
		return ctx.Err()
	}
}

func (r *FFmpegRecorder) args(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.Device,
		"-ac", "1",
		"-ar", strconv.Itoa(r.cfg.SampleRate),
		"-c:a", "aac",
		"-y", path,
	}
}

func (r *FFmpegRecorder) release() {
	select {
	case <-r.slot:
	default:
	}
}

var _ recording.Recorder = (*FFmpegRecorder)(nil)
