package clickhouse

import (
	"context"
	"fmt"
	"time"
)

// SignalRow is one archived consensus signal.
type SignalRow struct {
	TokenMint      string
	SwarmCode      string
	SignalType     string
	RiskScore      float64
	RiskTier       string
	MemberCount    uint32
	AlertTriggered bool
	AlertType      string
	Message        string
	SubmittedAt    time.Time
}

// SignalArchive records every consensus signal the daemon relays. The
// archive is append-only; the bounded operator-facing views live in the
// feed and alert stores.
type SignalArchive struct {
	conn *Conn
}

// NewSignalArchive creates a new SignalArchive.
func NewSignalArchive(conn *Conn) *SignalArchive {
	return &SignalArchive{conn: conn}
}

// Insert appends a batch of signal rows.
func (a *SignalArchive) Insert(ctx context.Context, rows []*SignalRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO signal_archive (
			token_mint, swarm_code, signal_type, risk_score, risk_tier,
			member_count, alert_triggered, alert_type, message, submitted_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare signal batch: %w", err)
	}

	for _, r := range rows {
		triggered := uint8(0)
		if r.AlertTriggered {
			triggered = 1
		}
		err := batch.Append(
			r.TokenMint, r.SwarmCode, r.SignalType, r.RiskScore, r.RiskTier,
			r.MemberCount, triggered, r.AlertType, r.Message, r.SubmittedAt,
		)
		if err != nil {
			return fmt.Errorf("append signal row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send signal batch: %w", err)
	}
	return nil
}

// ByMint returns archived signals for a mint, newest first, up to limit.
func (a *SignalArchive) ByMint(ctx context.Context, mint string, limit int) ([]*SignalRow, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT token_mint, swarm_code, signal_type, risk_score, risk_tier,
		       member_count, alert_triggered, alert_type, message, submitted_at
		FROM signal_archive
		WHERE token_mint = ?
		ORDER BY submitted_at DESC
		LIMIT ?
	`
	rows, err := a.conn.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("query signal archive: %w", err)
	}
	defer rows.Close()

	var out []*SignalRow
	for rows.Next() {
		var r SignalRow
		var triggered uint8
		err := rows.Scan(
			&r.TokenMint, &r.SwarmCode, &r.SignalType, &r.RiskScore, &r.RiskTier,
			&r.MemberCount, &triggered, &r.AlertType, &r.Message, &r.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		r.AlertTriggered = triggered != 0
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return out, nil
}
