package recording

import apperrors "github.com/yanqian/note-it-down/pkg/errors"

// ErrPermissionDenied builds the error returned when microphone access was not granted.
func ErrPermissionDenied() error {
	return apperrors.Wrap(apperrors.CodePermissionDenied, "microphone permission not granted", nil)
}

// ErrDeviceBusy builds the error returned when the microphone cannot be acquired.
func ErrDeviceBusy(cause error) error {
	return apperrors.Wrap(apperrors.CodeDeviceBusy, "microphone is busy", cause)
}

// ErrNoActiveRecording builds the error returned when no capture is in progress.
func ErrNoActiveRecording() error {
	return apperrors.Wrap(apperrors.CodeNoActiveRecording, "no active recording found", nil)
}
