package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-memory ContentStore used in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	handle  atomic.Int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, id string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	// Copy before taking the lock so the store never exposes caller-shared bytes.
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = memoryObject{data: buf, contentType: contentType}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, obj.contentType, nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[id]
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
	return nil
}

func (s *MemoryStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]memoryObject)
	return nil
}

// URL returns a synthetic handle; the counter makes every call distinct so
// stale handles are recognizable.
func (s *MemoryStore) URL(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[id]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("mem://%s#%d", id, s.handle.Add(1)), nil
}
