// Package recording describes microphone capture. Only one recording may be
// active at a time; the microphone is an exclusive resource.
package recording

import (
	"context"
	"io"
	"time"
)

// Handle identifies a live capture returned by Recorder.Begin.
type Handle struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

// Audio references a finalized recording on disk.
type Audio struct {
	Path     string
	MimeType string
	Size     int64
}

// Empty reports whether the audio has no payload.
func (a Audio) Empty() bool {
	return a.Path == "" || a.Size <= 0
}

// Recorder wraps platform audio capture.
type Recorder interface {
	// Begin acquires the microphone and starts capturing.
	Begin(ctx context.Context) (Handle, error)
	// End finalizes the capture and releases the microphone, even on failure.
	End(ctx context.Context, handle Handle) (Audio, error)
}

// Permissions reports whether the OS granted microphone access.
type Permissions interface {
	MicrophoneGranted(ctx context.Context) bool
}

// StaticPermissions is a fixed permission answer, usually taken from config.
type StaticPermissions bool

// MicrophoneGranted implements Permissions.
func (p StaticPermissions) MicrophoneGranted(context.Context) bool {
	return bool(p)
}

// StoredObject describes an archived recording.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// Archive keeps a copy of finalized recordings in object storage.
type Archive interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
