package postgres

import (
	"context"
	"fmt"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// GuardianStore implements storage.GuardianStore using PostgreSQL.
// Cursor and unread counter live in a single-row guardian_state table so a
// poll batch commits atomically with its cursor advance.
type GuardianStore struct {
	pool *Pool
}

// NewGuardianStore creates a new GuardianStore.
func NewGuardianStore(pool *Pool) *GuardianStore {
	return &GuardianStore{pool: pool}
}

var _ storage.GuardianStore = (*GuardianStore)(nil)

// Merge applies one poll batch: prepends the alerts, trims history to the
// cap, advances the cursor monotonically and bumps the unread counter.
func (s *GuardianStore) Merge(ctx context.Context, alerts []*domain.GuardianAlert, cursor int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin guardian merge: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO guardian_alerts (
			id, alert_type, token_ca, token_symbol, token_name, message,
			url, severity, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	// Batches arrive newest first. Insert in reverse so the batch head gets
	// the highest seq and reads come back in the original order.
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		if a == nil || a.TokenCA == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insert,
			a.ID, a.Type, a.TokenCA, a.TokenSymbol, a.TokenName, a.Message,
			a.URL, a.Severity, a.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert guardian alert: %w", err)
		}
	}

	trim := `
		DELETE FROM guardian_alerts
		WHERE seq NOT IN (
			SELECT seq FROM guardian_alerts
			ORDER BY seq DESC
			LIMIT $1
		)
	`
	if _, err := tx.Exec(ctx, trim, domain.MaxGuardianAlerts); err != nil {
		return fmt.Errorf("trim guardian alerts: %w", err)
	}

	state := `
		UPDATE guardian_state
		SET cursor_value = GREATEST(cursor_value, $1),
		    unread = unread + $2
	`
	if _, err := tx.Exec(ctx, state, cursor, len(alerts)); err != nil {
		return fmt.Errorf("update guardian state: %w", err)
	}

	return tx.Commit(ctx)
}

// Alerts returns guardian alert history, newest first.
func (s *GuardianStore) Alerts(ctx context.Context) ([]*domain.GuardianAlert, error) {
	query := `
		SELECT id, alert_type, token_ca, token_symbol, token_name, message,
		       url, severity, ts
		FROM guardian_alerts
		ORDER BY seq DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query guardian alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.GuardianAlert
	for rows.Next() {
		var a domain.GuardianAlert
		err := rows.Scan(
			&a.ID, &a.Type, &a.TokenCA, &a.TokenSymbol, &a.TokenName,
			&a.Message, &a.URL, &a.Severity, &a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan guardian row: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guardian rows: %w", err)
	}
	return alerts, nil
}

// Cursor returns the last seen poll cursor.
func (s *GuardianStore) Cursor(ctx context.Context) (int64, error) {
	var cursor int64
	err := s.pool.QueryRow(ctx, `SELECT cursor_value FROM guardian_state`).Scan(&cursor)
	if err != nil {
		return 0, fmt.Errorf("query guardian cursor: %w", err)
	}
	return cursor, nil
}

// Unread returns the count of alerts not yet surfaced to the operator.
func (s *GuardianStore) Unread(ctx context.Context) (int, error) {
	var unread int
	err := s.pool.QueryRow(ctx, `SELECT unread FROM guardian_state`).Scan(&unread)
	if err != nil {
		return 0, fmt.Errorf("query guardian unread: %w", err)
	}
	return unread, nil
}

// ClearUnread resets the unread counter to zero.
func (s *GuardianStore) ClearUnread(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE guardian_state SET unread = 0`); err != nil {
		return fmt.Errorf("clear guardian unread: %w", err)
	}
	return nil
}
