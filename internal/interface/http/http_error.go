package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:      http.StatusBadRequest,
	apperrors.CodePermissionDenied:  http.StatusForbidden,
	apperrors.CodeDeviceBusy:        http.StatusConflict,
	apperrors.CodeNoActiveRecording: http.StatusConflict,
	apperrors.CodeMissingCredential: http.StatusPreconditionFailed,
	apperrors.CodeUpstream:          http.StatusBadGateway,
	apperrors.CodeTransport:         http.StatusBadGateway,
	apperrors.CodeMalformedResponse: http.StatusBadGateway,
	apperrors.CodeStorage:           http.StatusInternalServerError,
	apperrors.CodeUnauthenticated:   http.StatusUnauthorized,
	apperrors.CodeRecordingFailed:   http.StatusInternalServerError,
	"invalid_token":                 http.StatusUnauthorized,
	"invalid_credentials":           http.StatusUnauthorized,
	"email_exists":                  http.StatusConflict,
	"user_not_found":                http.StatusNotFound,
	"auth_not_configured":           http.StatusNotImplemented,
}

// fromDomainError keeps the domain code on the wire and picks a matching status.
func fromDomainError(err error, fallbackCode string) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = fallbackCode
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
