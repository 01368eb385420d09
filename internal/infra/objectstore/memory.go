package objectstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/yanqian/note-it-down/internal/domain/recording"
)

// MemoryArchive holds recordings in process memory.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data     []byte
	mimeType string
}

// NewMemoryArchive constructs an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string]memoryObject)}
}

// Put implements recording.Archive.
func (m *MemoryArchive) Put(_ context.Context, key string, body io.Reader, _ int64, mimeType string) (recording.StoredObject, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return recording.StoredObject{}, fmt.Errorf("read body: %w", err)
	}
	sum := md5.Sum(data)
	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, mimeType: mimeType}
	m.mu.Unlock()
	return recording.StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType, ETag: hex.EncodeToString(sum[:])}, nil
}

// Get implements recording.Archive.
func (m *MemoryArchive) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete implements recording.Archive.
func (m *MemoryArchive) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

var _ recording.Archive = (*MemoryArchive)(nil)
