package postgres

import (
	"context"
	"fmt"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

var _ storage.AlertStore = (*AlertStore)(nil)

// Append inserts the alert and trims history to the cap.
func (s *AlertStore) Append(ctx context.Context, a *domain.AlertRecord) error {
	if a == nil || a.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin alert append: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO alert_history (
			id, alert_type, message, token_mint, swarm_code, swarm_name,
			risk_score, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, insert,
		a.ID, a.Type, a.Message, a.TokenMint, a.SwarmCode, a.SwarmName,
		a.RiskScore, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	trim := `
		DELETE FROM alert_history
		WHERE seq NOT IN (
			SELECT seq FROM alert_history
			ORDER BY seq DESC
			LIMIT $1
		)
	`
	if _, err := tx.Exec(ctx, trim, domain.MaxAlertHistory); err != nil {
		return fmt.Errorf("trim alert history: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns alert history, newest first.
func (s *AlertStore) List(ctx context.Context) ([]*domain.AlertRecord, error) {
	query := `
		SELECT id, alert_type, message, token_mint, swarm_code, swarm_name,
		       risk_score, ts
		FROM alert_history
		ORDER BY seq DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.AlertRecord
	for rows.Next() {
		var a domain.AlertRecord
		err := rows.Scan(
			&a.ID, &a.Type, &a.Message, &a.TokenMint, &a.SwarmCode,
			&a.SwarmName, &a.RiskScore, &a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}
