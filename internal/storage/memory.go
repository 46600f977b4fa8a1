package storage

import (
	"context"
	"sync"
)

// Object is a blob held by MemoryStorage.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. It is meant for tests and
// local development.
type MemoryStorage struct {
	mu        sync.RWMutex
	publicURL string
	objects   map[string]Object
	err       error
}

// NewMemoryStorage creates an empty store whose URLs start with publicURL.
func NewMemoryStorage(publicURL string) *MemoryStorage {
	return &MemoryStorage{publicURL: publicURL, objects: make(map[string]Object)}
}

// FailWith makes every subsequent Put fail with err. A nil err restores
// normal behaviour.
func (s *MemoryStorage) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Put stores a copy of data under key.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", uploadError(key, s.err)
	}
	s.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return joinURL(s.publicURL, key), nil
}

// Get returns the object stored under key.
func (s *MemoryStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys returns every stored key.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
