package memory

import (
	"context"
	"sync"

	"swarmlink/internal/storage"
)

// NotifStore is an in-memory implementation of storage.NotifStore.
type NotifStore struct {
	mu      sync.Mutex
	targets map[string]string // handle -> navigation target
}

// NewNotifStore creates a new in-memory notification map.
func NewNotifStore() *NotifStore {
	return &NotifStore{targets: make(map[string]string)}
}

// Put records the target for a notification handle.
func (s *NotifStore) Put(_ context.Context, handle, target string) error {
	if handle == "" || target == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[handle] = target
	return nil
}

// Take returns the target and deletes the entry. Returns ErrNotFound
// when no entry exists.
func (s *NotifStore) Take(_ context.Context, handle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.targets[handle]
	if !ok {
		return "", storage.ErrNotFound
	}
	delete(s.targets, handle)
	return target, nil
}

// Verify interface compliance at compile time.
var _ storage.NotifStore = (*NotifStore)(nil)
