package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
)

const authClaimsKey = "auth_claims"

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

// identityFrom returns the caller's storage identity, anonymous when no token was presented.
func identityFrom(c *gin.Context) persistence.Identity {
	claims, ok := getClaims(c)
	if !ok || claims.Subject == "" {
		return persistence.Anonymous()
	}
	return persistence.Identity{UserID: claims.Subject, Email: claims.Email}
}
