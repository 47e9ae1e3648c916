package memory

import (
	"context"
	"sync"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu     sync.RWMutex
	alerts []*domain.AlertRecord // newest first
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{}
}

// Append prepends an alert and truncates to the history cap.
func (s *AlertStore) Append(_ context.Context, a *domain.AlertRecord) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alertCopy := *a
	s.alerts = append([]*domain.AlertRecord{&alertCopy}, s.alerts...)
	if len(s.alerts) > domain.MaxAlertHistory {
		s.alerts = s.alerts[:domain.MaxAlertHistory]
	}
	return nil
}

// List retrieves a copy of all alerts, newest first.
func (s *AlertStore) List(_ context.Context) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.AlertRecord, len(s.alerts))
	for i, a := range s.alerts {
		alertCopy := *a
		out[i] = &alertCopy
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.AlertStore = (*AlertStore)(nil)
