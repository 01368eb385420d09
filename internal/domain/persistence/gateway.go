package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yanqian/note-it-down/internal/domain/note"
	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

// Gateway applies the hybrid local/cloud policy.
type Gateway interface {
	Save(ctx context.Context, id Identity, summary note.Summary) (note.Summary, error)
	List(ctx context.Context, id Identity) ([]note.Summary, error)
	Delete(ctx context.Context, id Identity, summaryID string) error
	Migrate(ctx context.Context, id Identity) (int, error)
}

type gateway struct {
	local  LocalStore
	cloud  CloudStore
	logger *slog.Logger
}

// NewGateway builds the gateway. A nil cloud store means every call goes local.
func NewGateway(local LocalStore, cloud CloudStore, logger *slog.Logger) Gateway {
	return &gateway{local: local, cloud: cloud, logger: logger.With("component", "persistence.gateway")}
}

func (g *gateway) useCloud(id Identity) bool {
	return g.cloud != nil && id.IsAuthenticated()
}

func (g *gateway) Save(ctx context.Context, id Identity, summary note.Summary) (note.Summary, error) {
	if g.useCloud(id) {
		saved, err := g.cloud.Create(ctx, id.UserID, summary)
		if err == nil {
			return saved, nil
		}
		g.logger.Warn("cloud save failed, falling back to local", "user_id", id.UserID, "error", err)
	}
	saved, err := g.local.Append(ctx, summary)
	if err != nil {
		return note.Summary{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save summary locally", err)
	}
	return saved, nil
}

func (g *gateway) List(ctx context.Context, id Identity) ([]note.Summary, error) {
	if g.useCloud(id) {
		items, err := g.cloud.List(ctx, id.UserID)
		if err == nil {
			note.SortNewestFirst(items)
			return items, nil
		}
		g.logger.Warn("cloud list failed, falling back to local", "user_id", id.UserID, "error", err)
	}
	items, err := g.local.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to read local summaries", err)
	}
	note.SortNewestFirst(items)
	return items, nil
}

func (g *gateway) Delete(ctx context.Context, id Identity, summaryID string) error {
	if summaryID == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "summary id is required", nil)
	}
	if g.useCloud(id) {
		err := g.cloud.Delete(ctx, id.UserID, summaryID)
		if err == nil {
			return nil
		}
		g.logger.Warn("cloud delete failed, falling back to local", "user_id", id.UserID, "summary_id", summaryID, "error", err)
	}
	if err := g.local.Delete(ctx, summaryID); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to delete local summary", err)
	}
	return nil
}

// Migrate moves every local summary into the caller's cloud collection.
// Either all of them land in the cloud and are removed from local, or local is
// untouched and any partial cloud writes are removed. Summaries saved locally while
// the migration runs are not part of it and stay on the device.
func (g *gateway) Migrate(ctx context.Context, id Identity) (int, error) {
	if !id.IsAuthenticated() {
		return 0, apperrors.Wrap(apperrors.CodeUnauthenticated, "migration requires a signed-in user", nil)
	}
	if g.cloud == nil {
		return 0, apperrors.Wrap(apperrors.CodeInvalidInput, "cloud storage is not configured", nil)
	}

	items, err := g.local.List(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorage, "failed to read local summaries", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	written, err := g.writeAll(ctx, id.UserID, items)
	if err != nil {
		g.logger.Error("migration aborted, local summaries kept", "user_id", id.UserID, "count", len(items), "error", err)
		return 0, apperrors.Wrap(apperrors.CodeStorage, "migration failed, local summaries kept", err)
	}

	migrated := make([]string, len(items))
	for i, item := range items {
		migrated[i] = item.ID
	}
	if err := g.local.Remove(ctx, migrated); err != nil {
		g.compensate(ctx, id.UserID, written)
		return 0, apperrors.Wrap(apperrors.CodeStorage, "failed to remove migrated local summaries", err)
	}

	g.logger.Info("migration completed", "user_id", id.UserID, "count", len(written))
	return len(written), nil
}

func (g *gateway) writeAll(ctx context.Context, owner string, items []note.Summary) ([]note.Summary, error) {
	if batch, ok := g.cloud.(BatchCreator); ok {
		written, err := batch.CreateAll(ctx, owner, items)
		if !errors.Is(err, ErrBatchUnsupported) {
			return written, err
		}
		g.logger.Debug("batch create declined, writing sequentially", "count", len(items))
	}

	written := make([]note.Summary, 0, len(items))
	for i, item := range items {
		saved, err := g.cloud.Create(ctx, owner, item)
		if err != nil {
			g.compensate(ctx, owner, written)
			return nil, fmt.Errorf("write %d of %d: %w", i+1, len(items), err)
		}
		written = append(written, saved)
	}
	return written, nil
}

// compensate removes cloud documents created by an aborted migration.
func (g *gateway) compensate(ctx context.Context, owner string, written []note.Summary) {
	for _, item := range written {
		if err := g.cloud.Delete(ctx, owner, item.ID); err != nil {
			g.logger.Error("failed to roll back migrated summary", "user_id", owner, "summary_id", item.ID, "error", err)
		}
	}
}
