package postgres

import (
	"context"
	"fmt"

	"swarmlink/internal/storage"
)

// NotifStore implements storage.NotifStore using PostgreSQL.
type NotifStore struct {
	pool *Pool
}

// NewNotifStore creates a new NotifStore.
func NewNotifStore(pool *Pool) *NotifStore {
	return &NotifStore{pool: pool}
}

var _ storage.NotifStore = (*NotifStore)(nil)

// Put records the click-through target for a notification handle.
func (s *NotifStore) Put(ctx context.Context, handle, target string) error {
	if handle == "" || target == "" {
		return storage.ErrInvalidInput
	}
	query := `
		INSERT INTO notif_map (handle, target)
		VALUES ($1, $2)
		ON CONFLICT (handle) DO UPDATE SET target = EXCLUDED.target
	`
	if _, err := s.pool.Exec(ctx, query, handle, target); err != nil {
		return fmt.Errorf("put notification target: %w", err)
	}
	return nil
}

// Take returns and removes the target for a handle. A second Take of the
// same handle returns storage.ErrNotFound.
func (s *NotifStore) Take(ctx context.Context, handle string) (string, error) {
	var target string
	query := `DELETE FROM notif_map WHERE handle = $1 RETURNING target`
	err := s.pool.QueryRow(ctx, query, handle).Scan(&target)
	if isNotFoundError(err) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("take notification target: %w", err)
	}
	return target, nil
}
