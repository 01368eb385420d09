package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/note"
)

// ListSummaries returns the caller's summaries, newest first.
func (h *Handler) ListSummaries(c *gin.Context) {
	items, err := h.notes.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		abortWithError(c, fromDomainError(err, "list_failed"))
		return
	}
	if items == nil {
		items = []note.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"summaries": items})
}

// DeleteSummary removes one summary from the caller's store.
func (h *Handler) DeleteSummary(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), identityFrom(c), c.Param("id")); err != nil {
		abortWithError(c, fromDomainError(err, "delete_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// MigrateSummaries moves device-local summaries into the signed-in user's cloud store.
func (h *Handler) MigrateSummaries(c *gin.Context) {
	moved, err := h.notes.Migrate(c.Request.Context(), identityFrom(c))
	if err != nil {
		abortWithError(c, fromDomainError(err, "migrate_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrated": moved})
}
