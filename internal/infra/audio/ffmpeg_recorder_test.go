package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/note-it-down/internal/domain/recording"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
	"github.com/yanqian/note-it-down/pkg/executor"
)

func TestFFmpegRecorderLifecycle(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{payload: []byte("aac-frames")}
	rec := newTestRecorder(t, exec, true)

	handle, err := rec.Begin(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, handle.ID)

	_, err = rec.Begin(context.Background())
	require.True(t, apperrors.IsCode(err, apperrors.CodeDeviceBusy))

	audio, err := rec.End(context.Background(), handle)
	require.NoError(t, err)
	require.Equal(t, int64(len("aac-frames")), audio.Size)
	require.Equal(t, "audio/mp4", audio.MimeType)
	require.Equal(t, "q", exec.last().stdin.String())

	require.NoError(t, rec.Discard(audio))
	_, statErr := os.Stat(audio.Path)
	require.True(t, os.IsNotExist(statErr))
	require.NoError(t, rec.Discard(audio))

	// The slot is free again.
	next, err := rec.Begin(context.Background())
	require.NoError(t, err)
	_, err = rec.End(context.Background(), next)
	require.NoError(t, err)
}

func TestFFmpegRecorderPermissionDenied(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{payload: []byte("x")}
	rec := newTestRecorder(t, exec, false)

	_, err := rec.Begin(context.Background())
	require.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	require.Nil(t, exec.last())
}

func TestFFmpegRecorderStartFailureReleasesSlot(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{startErr: errors.New("no such device")}
	rec := newTestRecorder(t, exec, true)

	_, err := rec.Begin(context.Background())
	require.True(t, apperrors.IsCode(err, apperrors.CodeDeviceBusy))

	exec.startErr = nil
	exec.payload = []byte("ok")
	handle, err := rec.Begin(context.Background())
	require.NoError(t, err)
	_, err = rec.End(context.Background(), handle)
	require.NoError(t, err)
}

func TestFFmpegRecorderEndErrors(t *testing.T) {
	t.Parallel()

	t.Run("no active capture", func(t *testing.T) {
		rec := newTestRecorder(t, &fakeExecutor{payload: []byte("x")}, true)
		_, err := rec.End(context.Background(), recording.Handle{ID: "missing"})
		require.True(t, apperrors.IsCode(err, apperrors.CodeNoActiveRecording))
	})

	t.Run("empty file", func(t *testing.T) {
		rec := newTestRecorder(t, &fakeExecutor{}, true)
		handle, err := rec.Begin(context.Background())
		require.NoError(t, err)
		_, err = rec.End(context.Background(), handle)
		require.True(t, apperrors.IsCode(err, apperrors.CodeRecordingFailed))

		// Failure still releases the device.
		_, err = rec.Begin(context.Background())
		require.NoError(t, err)
	})

	t.Run("kills a hung process", func(t *testing.T) {
		exec := &fakeExecutor{payload: []byte("x"), ignoreQuit: true}
		rec := newTestRecorder(t, exec, true)
		rec.cfg.StopTimeout = 20 * time.Millisecond
		handle, err := rec.Begin(context.Background())
		require.NoError(t, err)
		_, err = rec.End(context.Background(), handle)
		require.NoError(t, err)
		require.True(t, exec.last().killed)
	})
}

func TestFFmpegRecorderArgs(t *testing.T) {
	t.Parallel()

	rec := newTestRecorder(t, &fakeExecutor{}, true)
	args := rec.args("/tmp/out.m4a")
	require.Contains(t, args, "pulse")
	require.Contains(t, args, "16000")
	require.Equal(t, "/tmp/out.m4a", args[len(args)-1])
}

func newTestRecorder(t *testing.T, exec *fakeExecutor, granted bool) *FFmpegRecorder {
	t.Helper()
	cfg := Config{InputFormat: "pulse", Device: "default", OutputDir: t.TempDir(), StopTimeout: time.Second}
	return NewFFmpegRecorder(cfg, exec, recording.StaticPermissions(granted), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeExecutor struct {
	mu         sync.Mutex
	payload    []byte
	startErr   error
	ignoreQuit bool
	procs      []*fakeProcess
}

func (f *fakeExecutor) Execute(context.Context, string, ...string) (string, error) {
	return "ffmpeg version test", nil
}

func (f *fakeExecutor) Start(_ string, args ...string) (executor.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	if err := os.WriteFile(args[len(args)-1], f.payload, 0o644); err != nil {
		return nil, err
	}
	p := &fakeProcess{exited: make(chan struct{}), ignoreQuit: f.ignoreQuit}
	f.procs = append(f.procs, p)
	return p, nil
}

func (f *fakeExecutor) last() *fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.procs) == 0 {
		return nil
	}
	return f.procs[len(f.procs)-1]
}

type fakeProcess struct {
	stdin      bytes.Buffer
	ignoreQuit bool
	killed     bool
	once       sync.Once
	exited     chan struct{}
}

func (p *fakeProcess) Stdin() io.Writer { return writerFunc(p.write) }

func (p *fakeProcess) write(b []byte) (int, error) {
	n, err := p.stdin.Write(b)
	if !p.ignoreQuit && bytes.Contains(b, []byte("q")) {
		p.once.Do(func() { close(p.exited) })
	}
	return n, err
}

func (p *fakeProcess) Wait() error {
	<-p.exited
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed = true
	p.once.Do(func() { close(p.exited) })
	return nil
}

type writerFunc func([]byte) (int, error)

func (w writerFunc) Write(b []byte) (int, error) { return w(b) }
