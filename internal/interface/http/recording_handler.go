package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartRecording begins microphone capture.
func (h *Handler) StartRecording(c *gin.Context) {
	status, err := h.sessions.Start(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err, "recording_failed"))
		return
	}
	c.JSON(http.StatusCreated, status)
}

// StopRecording ends capture and runs transcription, summarization and persistence.
func (h *Handler) StopRecording(c *gin.Context) {
	// The pipeline finishes even when the client goes away mid-request.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.sessions.Stop(ctx, identityFrom(c))
	if err != nil {
		abortWithError(c, fromDomainError(err, "pipeline_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// AbortRecording drops the active capture without processing it.
func (h *Handler) AbortRecording(c *gin.Context) {
	if err := h.sessions.Abort(c.Request.Context()); err != nil {
		abortWithError(c, fromDomainError(err, "recording_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordingStatus reports the session state and elapsed seconds.
func (h *Handler) RecordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Status())
}
