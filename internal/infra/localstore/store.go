package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/yanqian/note-it-down/internal/domain/kv"
	"github.com/yanqian/note-it-down/internal/domain/note"
	"github.com/yanqian/note-it-down/internal/domain/persistence"
)

// Store keeps the local summary list as one JSON array in the key-value store.
// New entries go to the front; ordering on read is the gateway's job.
type Store struct {
	kv kv.Store
	mu sync.Mutex
}

// New wraps a key-value backend.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// Append implements persistence.LocalStore.
func (s *Store) Append(ctx context.Context, summary note.Summary) (note.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return note.Summary{}, err
	}
	summary.ID = uniqueID(items, summary.ID)
	items = append([]note.Summary{summary}, items...)
	if err := s.save(ctx, items); err != nil {
		return note.Summary{}, err
	}
	return summary, nil
}

// List implements persistence.LocalStore.
func (s *Store) List(ctx context.Context) ([]note.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Delete implements persistence.LocalStore. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return s.save(ctx, kept)
}

// Remove implements persistence.LocalStore. The list is reloaded under the lock so
// entries appended after the caller read it survive.
func (s *Store) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]note.Summary, 0, len(items))
	for _, item := range items {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		if err := s.kv.Delete(ctx, kv.KeySummaries); err != nil {
			return fmt.Errorf("remove summaries: %w", err)
		}
		return nil
	}
	if len(kept) == len(items) {
		return nil
	}
	return s.save(ctx, kept)
}

func (s *Store) load(ctx context.Context) ([]note.Summary, error) {
	raw, ok, err := s.kv.Get(ctx, kv.KeySummaries)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	if !ok || raw == "" {
		return []note.Summary{}, nil
	}
	var items []note.Summary
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, items []note.Summary) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeySummaries, string(payload)); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

// uniqueID keeps timestamp ids unique when two summaries land in the same millisecond.
func uniqueID(items []note.Summary, id string) string {
	taken := make(map[string]struct{}, len(items))
	for _, item := range items {
		taken[item.ID] = struct{}{}
	}
	if _, clash := taken[id]; !clash && id != "" {
		return id
	}
	base := id
	if base == "" {
		base = "local"
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, clash := taken[candidate]; !clash {
			return candidate
		}
	}
}

var _ persistence.LocalStore = (*Store)(nil)
