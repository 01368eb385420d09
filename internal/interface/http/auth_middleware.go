package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// authMiddleware rejects requests without a valid bearer token.
func authMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return bearerMiddleware(verifier, true)
}

// optionalAuthMiddleware lets anonymous requests through but still rejects bad tokens.
func optionalAuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return bearerMiddleware(verifier, false)
}

func bearerMiddleware(verifier auth.Verifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
				return
			}
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}
		if verifier == nil {
			abortWithError(c, NewHTTPError(http.StatusNotImplemented, "auth_not_configured", "no identity provider configured", nil))
			return
		}
		token := strings.TrimSpace(parts[1])
		claims, err := verifier.ValidateToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := "invalid_token"
			if !apperrors.IsCode(err, "invalid_token") {
				status = http.StatusInternalServerError
				code = "auth_failed"
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}
