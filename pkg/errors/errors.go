package errors

import (
	"errors"
	"fmt"
)

// Codes shared across the recording pipeline.
const (
	CodeInvalidInput      = "invalid_input"
	CodePermissionDenied  = "permission_denied"
	CodeDeviceBusy        = "device_busy"
	CodeNoActiveRecording = "no_active_recording"
	CodeMissingCredential = "missing_credential"
	CodeUpstream          = "upstream_error"
	CodeTransport         = "transport_error"
	CodeMalformedResponse = "malformed_response"
	CodeStorage           = "storage_error"
	CodeUnauthenticated   = "unauthenticated"
	CodeRecordingFailed   = "recording_failed"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the outermost AppError code, or an empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// UpstreamError reports a non-success HTTP answer from a third-party API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status=%d body=%s", e.Status, e.Body)
}

// Upstream wraps a non-success status into an AppError carrying *UpstreamError.
func Upstream(message string, status int, body string) error {
	return Wrap(CodeUpstream, message, &UpstreamError{Status: status, Body: body})
}
