package auth

import "context"

// Verifier turns a bearer token into verified claims.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (Claims, error)
}
