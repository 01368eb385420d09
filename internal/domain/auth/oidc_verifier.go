package auth

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

type oidcClaims struct {
	Email string `json:"email"`
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and verifies ID tokens minted for clientID.
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (Verifier, error) {
	if strings.TrimSpace(cfg.IssuerURL) == "" || strings.TrimSpace(cfg.ClientID) == "" {
		return nil, apperrors.Wrap("auth_not_configured", "oidc issuer and client id are required", nil)
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, apperrors.Wrap("auth_error", "failed to initialize oidc provider", err)
	}
	return &oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}, nil
}

func (v *oidcVerifier) ValidateToken(ctx context.Context, rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, errInvalidToken("token missing", nil)
	}
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, errInvalidToken("failed to verify id token", err)
	}
	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, errInvalidToken("failed to parse id token claims", err)
	}
	if idToken.Subject == "" {
		return Claims{}, errInvalidToken("missing subject in id token", nil)
	}
	return Claims{
		Subject:   idToken.Subject,
		Email:     claims.Email,
		Provider:  ProviderOIDC,
		TokenType: tokenTypeAccess,
		ExpiresAt: idToken.Expiry,
	}, nil
}
