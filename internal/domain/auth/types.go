package auth

import "time"

// Provider names supported by auth.provider.
const (
	ProviderLocal    = "local"
	ProviderFirebase = "firebase"
	ProviderOIDC     = "oidc"
)

// Config drives authentication behavior.
type Config struct {
	Provider        string
	Secret          string
	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	OIDC            OIDCConfig
}

// OIDCConfig points at an external OpenID Connect issuer.
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

// User represents a locally registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterRequest captures the registration payload.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the signed tokens.
type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         UserView `json:"user"`
}

// UserView trims sensitive fields.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Claims are the verified facts about a bearer token, whoever issued it.
type Claims struct {
	Subject   string
	Email     string
	Provider  string
	TokenType string
	ExpiresAt time.Time
}

// RefreshRequest encapsulates refresh token payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
