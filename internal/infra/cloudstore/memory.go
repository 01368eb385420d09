package cloudstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
)

// MemoryStore is an in-process cloud store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	owner   string
	summary note.Summary
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

// Create implements persistence.CloudStore.
func (m *MemoryStore) Create(_ context.Context, owner string, summary note.Summary) (note.Summary, error) {
	summary.ID = uuid.NewString()
	m.mu.Lock()
	m.docs[summary.ID] = memoryDoc{owner: owner, summary: summary}
	m.mu.Unlock()
	return summary, nil
}

// List implements persistence.CloudStore.
func (m *MemoryStore) List(_ context.Context, owner string) ([]note.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := []note.Summary{}
	for _, doc := range m.docs {
		if doc.owner == owner {
			items = append(items, doc.summary)
		}
	}
	note.SortNewestFirst(items)
	return items, nil
}

// Delete implements persistence.CloudStore.
func (m *MemoryStore) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil
	}
	if doc.owner != owner {
		return ErrNotOwner
	}
	delete(m.docs, id)
	return nil
}

var _ persistence.CloudStore = (*MemoryStore)(nil)
