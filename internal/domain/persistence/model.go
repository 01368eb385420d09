// Package persistence routes summaries between the on-device store and the
// per-user cloud store. Local storage is the durable tier; cloud is best effort.
package persistence

import (
	"context"
	"errors"

	"github.com/yanqian/note-it-down/internal/domain/note"
)

// Identity is the caller's authentication state, passed explicitly on every call.
type Identity struct {
	UserID string
	Email  string
}

// Anonymous is the identity of an unauthenticated caller.
func Anonymous() Identity {
	return Identity{}
}

// IsAuthenticated reports whether a user id is present.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

// LocalStore is the on-device summary list. Append keeps insertion order only.
// Remove drops exactly the given ids in one write; entries appended meanwhile stay.
type LocalStore interface {
	Append(ctx context.Context, summary note.Summary) (note.Summary, error)
	List(ctx context.Context) ([]note.Summary, error)
	Delete(ctx context.Context, id string) error
	Remove(ctx context.Context, ids []string) error
}

// CloudStore is a per-owner document store. Create may assign a new id.
type CloudStore interface {
	Create(ctx context.Context, owner string, summary note.Summary) (note.Summary, error)
	List(ctx context.Context, owner string) ([]note.Summary, error)
	Delete(ctx context.Context, owner, id string) error
}

// BatchCreator is implemented by cloud stores that can write many documents atomically.
type BatchCreator interface {
	CreateAll(ctx context.Context, owner string, summaries []note.Summary) ([]note.Summary, error)
}

// ErrBatchUnsupported lets a BatchCreator decline a batch, e.g. when it is too large.
var ErrBatchUnsupported = errors.New("batch create unsupported")
