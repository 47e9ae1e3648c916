package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// IdentityStore implements storage.IdentityStore using PostgreSQL.
// All identity state lives in a single row seeded by the migration.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

var _ storage.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) setColumn(ctx context.Context, column string, value any) error {
	query := fmt.Sprintf(`UPDATE identity SET %s = $1`, column)
	if _, err := s.pool.Exec(ctx, query, value); err != nil {
		return fmt.Errorf("set identity %s: %w", column, err)
	}
	return nil
}

// SetWallet stores the synced wallet address.
func (s *IdentityStore) SetWallet(ctx context.Context, wallet string) error {
	return s.setColumn(ctx, "wallet", wallet)
}

// Wallet returns the synced wallet address, "" if none.
func (s *IdentityStore) Wallet(ctx context.Context) (string, error) {
	var wallet string
	if err := s.pool.QueryRow(ctx, `SELECT wallet FROM identity`).Scan(&wallet); err != nil {
		return "", fmt.Errorf("query identity wallet: %w", err)
	}
	return wallet, nil
}

// SetUserID stores the backend user id.
func (s *IdentityStore) SetUserID(ctx context.Context, userID string) error {
	return s.setColumn(ctx, "user_id", userID)
}

// UserID returns the backend user id, "" if none.
func (s *IdentityStore) UserID(ctx context.Context) (string, error) {
	var userID string
	if err := s.pool.QueryRow(ctx, `SELECT user_id FROM identity`).Scan(&userID); err != nil {
		return "", fmt.Errorf("query identity user id: %w", err)
	}
	return userID, nil
}

// SetSwarms replaces the cached swarm membership list.
func (s *IdentityStore) SetSwarms(ctx context.Context, swarms []domain.Swarm) error {
	if swarms == nil {
		swarms = []domain.Swarm{}
	}
	data, err := json.Marshal(swarms)
	if err != nil {
		return fmt.Errorf("marshal swarms: %w", err)
	}
	return s.setColumn(ctx, "swarms", data)
}

// Swarms returns the cached swarm membership list.
func (s *IdentityStore) Swarms(ctx context.Context) ([]domain.Swarm, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, `SELECT swarms FROM identity`).Scan(&data); err != nil {
		return nil, fmt.Errorf("query identity swarms: %w", err)
	}
	var swarms []domain.Swarm
	if err := json.Unmarshal(data, &swarms); err != nil {
		return nil, fmt.Errorf("unmarshal swarms: %w", err)
	}
	return swarms, nil
}

// SetActiveSwarm stores the active swarm code, "" to clear scoping.
func (s *IdentityStore) SetActiveSwarm(ctx context.Context, code string) error {
	return s.setColumn(ctx, "active_swarm", code)
}

// ActiveSwarm returns the active swarm code, "" if all swarms are in scope.
func (s *IdentityStore) ActiveSwarm(ctx context.Context) (string, error) {
	var code string
	if err := s.pool.QueryRow(ctx, `SELECT active_swarm FROM identity`).Scan(&code); err != nil {
		return "", fmt.Errorf("query identity active swarm: %w", err)
	}
	return code, nil
}

// SetGuardianEnabled toggles background guardian polling.
func (s *IdentityStore) SetGuardianEnabled(ctx context.Context, enabled bool) error {
	return s.setColumn(ctx, "guardian_enabled", enabled)
}

// GuardianEnabled reports whether guardian polling is on. Defaults to true.
func (s *IdentityStore) GuardianEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := s.pool.QueryRow(ctx, `SELECT guardian_enabled FROM identity`).Scan(&enabled); err != nil {
		return false, fmt.Errorf("query identity guardian flag: %w", err)
	}
	return enabled, nil
}
