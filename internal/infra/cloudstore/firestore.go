package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
)

// DefaultCollection is the Firestore collection holding summaries.
const DefaultCollection = "summaries"

// maxTransactionWrites is Firestore's per-transaction write limit.
const maxTransactionWrites = 500

// ErrNotOwner is returned when a user tries to delete another user's summary.
var ErrNotOwner = errors.New("summary belongs to another user")

type firestoreSummary struct {
	UserID       string    `firestore:"userId"`
	Title        string    `firestore:"title"`
	Content      string    `firestore:"content"`
	OriginalText string    `firestore:"originalText"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

func toFirestore(owner string, s note.Summary) firestoreSummary {
	return firestoreSummary{
		UserID:       owner,
		Title:        s.Title,
		Content:      s.Content,
		OriginalText: s.OriginalText,
		CreatedAt:    s.CreatedAt.UTC(),
	}
}

func (d firestoreSummary) toNote(id string) note.Summary {
	return note.Summary{
		ID:           id,
		Title:        d.Title,
		Content:      d.Content,
		OriginalText: d.OriginalText,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// FirestoreStore keeps summaries in a Firestore collection, one document per summary.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreStore constructs the store.
func NewFirestoreStore(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection, logger: logger.With("component", "cloudstore.firestore")}
}

func (s *FirestoreStore) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create implements persistence.CloudStore. The document id replaces the summary id.
func (s *FirestoreStore) Create(ctx context.Context, owner string, summary note.Summary) (note.Summary, error) {
	ref, _, err := s.coll().Add(ctx, toFirestore(owner, summary))
	if err != nil {
		return note.Summary{}, fmt.Errorf("add summary: %w", err)
	}
	summary.ID = ref.ID
	return summary, nil
}

// List implements persistence.CloudStore.
func (s *FirestoreStore) List(ctx context.Context, owner string) ([]note.Summary, error) {
	iter := s.coll().
		Where("userId", "==", owner).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	items := []note.Summary{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query summaries: %w", err)
		}
		var doc firestoreSummary
		if err := snap.DataTo(&doc); err != nil {
			s.logger.Warn("skipping undecodable summary", "doc_id", snap.Ref.ID, "error", err)
			continue
		}
		items = append(items, doc.toNote(snap.Ref.ID))
	}
	return items, nil
}

// Delete implements persistence.CloudStore. Missing documents count as deleted.
func (s *FirestoreStore) Delete(ctx context.Context, owner, id string) error {
	ref := s.coll().Doc(id)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}
	var doc firestoreSummary
	if err := snap.DataTo(&doc); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}
	if doc.UserID != owner {
		return ErrNotOwner
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

// CreateAll implements persistence.BatchCreator using a single transaction.
func (s *FirestoreStore) CreateAll(ctx context.Context, owner string, summaries []note.Summary) ([]note.Summary, error) {
	if len(summaries) > maxTransactionWrites {
		return nil, persistence.ErrBatchUnsupported
	}
	refs := make([]*firestore.DocumentRef, len(summaries))
	for i := range summaries {
		refs[i] = s.coll().NewDoc()
	}
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		for i, summary := range summaries {
			if err := tx.Create(refs[i], toFirestore(owner, summary)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch create summaries: %w", err)
	}
	out := make([]note.Summary, len(summaries))
	for i, summary := range summaries {
		summary.ID = refs[i].ID
		out[i] = summary
	}
	return out, nil
}

var (
	_ persistence.CloudStore   = (*FirestoreStore)(nil)
	_ persistence.BatchCreator = (*FirestoreStore)(nil)
)
