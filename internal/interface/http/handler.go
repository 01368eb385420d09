package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
	"github.com/yanqian/note-it-down/internal/domain/pipeline"
	"github.com/yanqian/note-it-down/internal/domain/settings"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	sessions pipeline.Orchestrator
	notes    persistence.Gateway
	settings settings.Service
	// accounts is nil when identities come from an external provider.
	accounts auth.Service
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(sessions pipeline.Orchestrator, notes persistence.Gateway, settingsSvc settings.Service, accounts auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		notes:    notes,
		settings: settingsSvc,
		accounts: accounts,
		logger:   logger.With("component", "http.handler"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": h.sessions.Status().State})
}
