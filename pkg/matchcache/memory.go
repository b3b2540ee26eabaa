package matchcache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and ad hoc runs.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context, namespace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.namespaces[namespace]))
	for k, v := range s.namespaces[namespace] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, namespace string, mapping map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[string]string, len(mapping))
	for k, v := range mapping {
		cp[k] = v
	}
	s.namespaces[namespace] = cp
	return nil
}
