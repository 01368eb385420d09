package firebase

import (
	"context"
	"fmt"
	"strings"
	"time"

	fb "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// IDTokenVerifier is the slice of the Admin auth client we need.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// TokenVerifier validates Firebase Authentication ID tokens.
type TokenVerifier struct {
	client IDTokenVerifier
}

// NewTokenVerifier creates the verifier from an initialized app.
func NewTokenVerifier(ctx context.Context, app *fb.App) (*TokenVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &TokenVerifier{client: client}, nil
}

// ValidateToken implements auth.Verifier.
func (v *TokenVerifier) ValidateToken(ctx context.Context, raw string) (auth.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return auth.Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return auth.Claims{}, apperrors.Wrap("invalid_token", "failed to verify firebase id token", err)
	}
	email, _ := token.Claims["email"].(string)
	return auth.Claims{
		Subject:   token.UID,
		Email:     email,
		Provider:  auth.ProviderFirebase,
		TokenType: "access",
		ExpiresAt: time.Unix(token.Expires, 0).UTC(),
	}, nil
}

var _ auth.Verifier = (*TokenVerifier)(nil)
