package auth

import (
	"errors"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// ErrEmailExists indicates a duplicate email address.
var ErrEmailExists = errors.New("email already exists")

func errInvalidToken(message string, cause error) error {
	return apperrors.Wrap("invalid_token", message, cause)
}
