package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/credentials"
	"github.com/yanqian/note-it-down/internal/domain/summarizer"
)

type selectModelRequest struct {
	Model string `json:"model"`
}

type saveKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// GetSettings returns the current settings snapshot with masked keys.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Snapshot(c.Request.Context()))
}

// SelectModel stores the transcription model choice.
func (h *Handler) SelectModel(c *gin.Context) {
	var req selectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if err := h.settings.SelectModel(c.Request.Context(), req.Model); err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	c.JSON(http.StatusOK, h.settings.Snapshot(c.Request.Context()))
}

// SaveAPIKey stores a per-provider key override.
func (h *Handler) SaveAPIKey(c *gin.Context) {
	provider, err := credentials.ParseProvider(c.Param("provider"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	var req saveKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if err := h.settings.SaveAPIKey(c.Request.Context(), provider, req.APIKey); err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	c.JSON(http.StatusOK, h.settings.Snapshot(c.Request.Context()))
}

// ClearAPIKey removes a per-provider key override so the configured default applies again.
func (h *Handler) ClearAPIKey(c *gin.Context) {
	provider, err := credentials.ParseProvider(c.Param("provider"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	if err := h.settings.ClearAPIKey(c.Request.Context(), provider); err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	c.JSON(http.StatusOK, h.settings.Snapshot(c.Request.Context()))
}

// SaveGeneration stores prompt and sampling overrides.
func (h *Handler) SaveGeneration(c *gin.Context) {
	var req summarizer.PromptConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	saved, err := h.settings.SaveGeneration(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"generation": saved})
}

// ClearGeneration resets prompt and sampling to defaults.
func (h *Handler) ClearGeneration(c *gin.Context) {
	if err := h.settings.ClearGeneration(c.Request.Context()); err != nil {
		abortWithError(c, fromDomainError(err, "settings_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}
