package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/auth"
)

// Register creates a local account.
func (h *Handler) Register(c *gin.Context) {
	if !h.localAccounts(c) {
		return
	}
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "auth_error"))
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for access and refresh tokens.
func (h *Handler) Login(c *gin.Context) {
	if !h.localAccounts(c) {
		return
	}
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "auth_error"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh issues a new token pair from a refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	if !h.localAccounts(c) {
		return
	}
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, fromDomainError(err, "auth_error"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me describes the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	if h.accounts == nil || claims.Provider != auth.ProviderLocal {
		c.JSON(http.StatusOK, auth.UserView{ID: claims.Subject, Email: claims.Email, Provider: claims.Provider})
		return
	}
	user, err := h.accounts.Profile(c.Request.Context(), claims.Subject)
	if err != nil {
		abortWithError(c, fromDomainError(err, "auth_error"))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) localAccounts(c *gin.Context) bool {
	if h.accounts != nil {
		return true
	}
	abortWithError(c, NewHTTPError(http.StatusNotImplemented, "auth_not_configured", "accounts are managed by an external identity provider", nil))
	return false
}
