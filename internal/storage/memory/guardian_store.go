package memory

import (
	"context"
	"sync"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// GuardianStore is an in-memory implementation of storage.GuardianStore.
type GuardianStore struct {
	mu     sync.RWMutex
	alerts []*domain.GuardianAlert // newest first
	cursor int64
	unread int
}

// NewGuardianStore creates a new in-memory guardian store.
func NewGuardianStore() *GuardianStore {
	return &GuardianStore{}
}

// Merge prepends new alerts, caps the history, advances the cursor
// monotonic-max and accumulates the unread counter. The lock makes the
// whole merge one atomic update.
func (s *GuardianStore) Merge(_ context.Context, alerts []*domain.GuardianAlert, cursor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]*domain.GuardianAlert, 0, len(alerts)+len(s.alerts))
	for _, a := range alerts {
		alertCopy := *a
		merged = append(merged, &alertCopy)
	}
	merged = append(merged, s.alerts...)
	if len(merged) > domain.MaxGuardianAlerts {
		merged = merged[:domain.MaxGuardianAlerts]
	}
	s.alerts = merged

	// Cursor never regresses
	if cursor > s.cursor {
		s.cursor = cursor
	}
	s.unread += len(alerts)
	return nil
}

// Alerts retrieves a copy of the merged history, newest first.
func (s *GuardianStore) Alerts(_ context.Context) ([]*domain.GuardianAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.GuardianAlert, len(s.alerts))
	for i, a := range s.alerts {
		alertCopy := *a
		out[i] = &alertCopy
	}
	return out, nil
}

// Cursor returns the stored poll cursor, 0 if none.
func (s *GuardianStore) Cursor(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor, nil
}

// Unread returns the outstanding unread alert count.
func (s *GuardianStore) Unread(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread, nil
}

// ClearUnread resets the unread counter to zero.
func (s *GuardianStore) ClearUnread(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = 0
	return nil
}

// Verify interface compliance at compile time.
var _ storage.GuardianStore = (*GuardianStore)(nil)
