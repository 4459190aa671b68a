package imagestore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrUnavailable = errors.New("image store unavailable")

// MemoryStore keeps objects in process. Tests use the failure switches to
// simulate an unreachable backend.
type MemoryStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	FailPut    bool
	FailDelete bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

func (s *MemoryStore) Put(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut {
		return "", ErrUnavailable
	}
	s.objects[name] = append([]byte(nil), data...)
	return "memory://" + name, nil
}

func (s *MemoryStore) Delete(_ context.Context, objectName string) error {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return ErrUnavailable
	}
	delete(s.objects, name)
	s.deleted = append(s.deleted, name)
	return nil
}

// Objects lists stored object names in order.
func (s *MemoryStore) Objects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deleted lists every delete call that reached the store.
func (s *MemoryStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
