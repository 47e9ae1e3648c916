// Package postgres provides PostgreSQL implementations of the storage
// interfaces for the relay daemon.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// FeedStore implements storage.FeedStore using PostgreSQL.
type FeedStore struct {
	pool *Pool
}

// NewFeedStore creates a new FeedStore.
func NewFeedStore(pool *Pool) *FeedStore {
	return &FeedStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeedStore = (*FeedStore)(nil)

// Append inserts the entry into its tier and trims the tier to the cap
// inside one transaction.
func (s *FeedStore) Append(ctx context.Context, e *domain.ActivityEntry) error {
	if e == nil || e.TokenMint == "" {
		return storage.ErrInvalidInput
	}
	tier := domain.TierForScore(e.RiskScore)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin feed append: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO activity_feed (
			id, tier, token_mint, token_name, overall_risk, risk_score,
			message, swarm_code, swarm_name, member_count, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, insert,
		e.ID, string(tier), e.TokenMint, e.TokenName, e.OverallRisk,
		e.RiskScore, e.Message, e.SwarmCode, e.SwarmName, e.MemberCount, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert feed entry: %w", err)
	}

	trim := `
		DELETE FROM activity_feed
		WHERE tier = $1 AND seq NOT IN (
			SELECT seq FROM activity_feed
			WHERE tier = $1
			ORDER BY seq DESC
			LIMIT $2
		)
	`
	if _, err := tx.Exec(ctx, trim, string(tier), domain.MaxFeedPerTier); err != nil {
		return fmt.Errorf("trim feed tier: %w", err)
	}

	return tx.Commit(ctx)
}

// Feed retrieves the full tiered feed, newest first per tier.
func (s *FeedStore) Feed(ctx context.Context) (*domain.ActivityFeed, error) {
	query := `
		SELECT id, tier, token_mint, token_name, overall_risk, risk_score,
		       message, swarm_code, swarm_name, member_count, ts
		FROM activity_feed
		ORDER BY seq DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	feed := &domain.ActivityFeed{}
	for rows.Next() {
		e, tier, err := scanFeedEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		switch tier {
		case domain.TierHigh:
			feed.High = append(feed.High, e)
		case domain.TierMedium:
			feed.Medium = append(feed.Medium, e)
		default:
			feed.Low = append(feed.Low, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed rows: %w", err)
	}
	return feed, nil
}

func scanFeedEntry(row pgx.Row) (*domain.ActivityEntry, domain.RiskTier, error) {
	var e domain.ActivityEntry
	var tierStr string

	err := row.Scan(
		&e.ID, &tierStr, &e.TokenMint, &e.TokenName, &e.OverallRisk,
		&e.RiskScore, &e.Message, &e.SwarmCode, &e.SwarmName, &e.MemberCount, &e.Timestamp,
	)
	if err != nil {
		return nil, "", err
	}
	e.RiskTier = domain.RiskTier(tierStr)
	return &e, e.RiskTier, nil
}
