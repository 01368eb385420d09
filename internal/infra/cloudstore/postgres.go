package cloudstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
)

const summariesSchema = `
CREATE TABLE IF NOT EXISTS summaries (
	id            UUID PRIMARY KEY,
	user_id       TEXT NOT NULL,
	title         TEXT NOT NULL,
	content       TEXT NOT NULL,
	original_text TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS summaries_user_created_idx ON summaries (user_id, created_at DESC);
`

// PostgresStore keeps summaries in a Postgres table keyed by UUID.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the summaries table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, summariesSchema); err != nil {
		return fmt.Errorf("create summaries schema: %w", err)
	}
	return nil
}

// Create implements persistence.CloudStore.
func (s *PostgresStore) Create(ctx context.Context, owner string, summary note.Summary) (note.Summary, error) {
	return insertSummary(ctx, s.pool, owner, summary)
}

// List implements persistence.CloudStore.
func (s *PostgresStore) List(ctx context.Context, owner string) ([]note.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, title, content, original_text, created_at
		FROM summaries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	items := []note.Summary{}
	for rows.Next() {
		var (
			item    note.Summary
			created time.Time
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Content, &item.OriginalText, &created); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		item.CreatedAt = created.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete implements persistence.CloudStore. Foreign or unknown ids are a no-op.
func (s *PostgresStore) Delete(ctx context.Context, owner, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid summary id %q: %w", id, err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM summaries WHERE id = $1::uuid AND user_id = $2`, id, owner); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

// CreateAll implements persistence.BatchCreator inside one transaction.
func (s *PostgresStore) CreateAll(ctx context.Context, owner string, summaries []note.Summary) ([]note.Summary, error) {
	out := make([]note.Summary, 0, len(summaries))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, summary := range summaries {
			saved, err := insertSummary(ctx, tx, owner, summary)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch create summaries: %w", err)
	}
	return out, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSummary(ctx context.Context, db execer, owner string, summary note.Summary) (note.Summary, error) {
	id := uuid.NewString()
	_, err := db.Exec(ctx, `
		INSERT INTO summaries (id, user_id, title, content, original_text, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
	`, id, owner, summary.Title, summary.Content, summary.OriginalText, summary.CreatedAt.UTC())
	if err != nil {
		return note.Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	summary.ID = id
	return summary, nil
}

var (
	_ persistence.CloudStore   = (*PostgresStore)(nil)
	_ persistence.BatchCreator = (*PostgresStore)(nil)
)
