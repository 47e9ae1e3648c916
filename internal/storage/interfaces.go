// Package storage defines the persistent state consumed by the relay
// daemon: the tiered activity feed, alert histories, guardian state,
// notification targets and the synced identity. Every merge is expressed
// as "read latest, apply delta, write merged" inside the store, never as
// a snapshot cached across a suspension point by the caller.
package storage

import (
	"context"

	"swarmlink/internal/domain"
)

// FeedStore provides access to the tiered activity feed.
type FeedStore interface {
	// Append buckets the entry by its consensus risk score, prepends it
	// to that tier and truncates the tier to domain.MaxFeedPerTier.
	Append(ctx context.Context, e *domain.ActivityEntry) error

	// Feed retrieves the full tiered feed, newest first per tier.
	Feed(ctx context.Context) (*domain.ActivityFeed, error)
}

// AlertStore provides access to the swarm alert history.
type AlertStore interface {
	// Append prepends an alert and truncates to domain.MaxAlertHistory.
	Append(ctx context.Context, a *domain.AlertRecord) error

	// List retrieves alerts, newest first.
	List(ctx context.Context) ([]*domain.AlertRecord, error)
}

// GuardianStore holds account-level alert state for the guardian poller.
type GuardianStore interface {
	// Merge prepends new alerts (capped at domain.MaxGuardianAlerts),
	// advances the cursor (monotonic-max: a smaller or absent cursor never
	// regresses the stored one; pass 0 for absent) and adds the newly
	// merged count to the unread counter. The whole merge is one batched
	// write.
	Merge(ctx context.Context, alerts []*domain.GuardianAlert, cursor int64) error

	// Alerts retrieves the merged history, newest first.
	Alerts(ctx context.Context) ([]*domain.GuardianAlert, error)

	// Cursor returns the stored poll cursor, 0 if none.
	Cursor(ctx context.Context) (int64, error)

	// Unread returns the outstanding unread alert count.
	Unread(ctx context.Context) (int, error)

	// ClearUnread resets the unread counter to zero.
	ClearUnread(ctx context.Context) error
}

// NotifStore maps ephemeral notification handles to navigation targets.
type NotifStore interface {
	// Put records the target for a notification handle.
	Put(ctx context.Context, handle, target string) error

	// Take returns the target and deletes the entry. Returns ErrNotFound
	// when no entry exists (a second take of the same handle is a no-op
	// for the caller).
	Take(ctx context.Context, handle string) (string, error)
}

// IdentityStore holds the synced identity and membership reference data.
// Absent string values read back as "" with a nil error.
type IdentityStore interface {
	SetWallet(ctx context.Context, wallet string) error
	Wallet(ctx context.Context) (string, error)

	SetUserID(ctx context.Context, userID string) error
	UserID(ctx context.Context) (string, error)

	SetSwarms(ctx context.Context, swarms []domain.Swarm) error
	Swarms(ctx context.Context) ([]domain.Swarm, error)

	SetActiveSwarm(ctx context.Context, code string) error
	ActiveSwarm(ctx context.Context) (string, error)

	// GuardianEnabled defaults to true until explicitly disabled.
	SetGuardianEnabled(ctx context.Context, enabled bool) error
	GuardianEnabled(ctx context.Context) (bool, error)
}
