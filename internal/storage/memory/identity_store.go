package memory

import (
	"context"
	"sync"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// IdentityStore is an in-memory implementation of storage.IdentityStore.
type IdentityStore struct {
	mu               sync.RWMutex
	wallet           string
	userID           string
	activeSwarm      string
	swarms           []domain.Swarm
	guardianDisabled bool // zero value keeps guardian enabled by default
}

// NewIdentityStore creates a new in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{}
}

// SetWallet stores the synced wallet address.
func (s *IdentityStore) SetWallet(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = wallet
	return nil
}

// Wallet returns the synced wallet, "" if none.
func (s *IdentityStore) Wallet(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet, nil
}

// SetUserID stores the fallback anonymous user id.
func (s *IdentityStore) SetUserID(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	return nil
}

// UserID returns the fallback user id, "" if none.
func (s *IdentityStore) UserID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, nil
}

// SetSwarms replaces the cached membership list.
func (s *IdentityStore) SetSwarms(_ context.Context, swarms []domain.Swarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swarms = append([]domain.Swarm(nil), swarms...)
	return nil
}

// Swarms returns a copy of the cached membership list.
func (s *IdentityStore) Swarms(_ context.Context) ([]domain.Swarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Swarm(nil), s.swarms...), nil
}

// SetActiveSwarm stores the active swarm selector.
func (s *IdentityStore) SetActiveSwarm(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSwarm = code
	return nil
}

// ActiveSwarm returns the active swarm code, "" if none.
func (s *IdentityStore) ActiveSwarm(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSwarm, nil
}

// SetGuardianEnabled toggles the guardian feature flag.
func (s *IdentityStore) SetGuardianEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guardianDisabled = !enabled
	return nil
}

// GuardianEnabled reports the guardian feature flag, true by default.
func (s *IdentityStore) GuardianEnabled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.guardianDisabled, nil
}

// Verify interface compliance at compile time.
var _ storage.IdentityStore = (*IdentityStore)(nil)
