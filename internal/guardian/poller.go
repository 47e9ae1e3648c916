// Package guardian polls the service for account-level alerts on behalf
// of the synced wallet and merges them into local state.
package guardian

import (
	"context"
	"log"
	"sync"
	"time"

	"swarmlink/internal/api"
	"swarmlink/internal/domain"
	"swarmlink/internal/notify"
	"swarmlink/internal/observability"
	"swarmlink/internal/storage"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = time.Minute

// Poller fetches guardian alerts since the stored cursor. Polls are
// skipped quietly when no wallet is synced or the operator disabled
// guardian mode; an overlapping tick is dropped, never queued.
type Poller struct {
	client   *api.Client
	guardian storage.GuardianStore
	ids      storage.IdentityStore
	notify   *notify.Manager
	badge    *notify.Badge
	logger   *log.Logger
	interval time.Duration

	mu      sync.Mutex
	polling bool
}

// Option configures Poller.
type Option func(*Poller)

// WithInterval overrides the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// NewPoller creates a Poller.
func NewPoller(client *api.Client, guardianStore storage.GuardianStore, ids storage.IdentityStore, manager *notify.Manager, badge *notify.Badge, logger *log.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	p := &Poller{
		client:   client,
		guardian: guardianStore,
		ids:      ids,
		notify:   manager,
		badge:    badge,
		logger:   logger,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls on the configured cadence until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.logger.Printf("guardian poll error: %v", err)
			}
		}
	}
}

// PollOnce runs a single poll cycle. A failed fetch aborts before any
// state change so the cursor is never advanced past unseen alerts.
func (p *Poller) PollOnce(ctx context.Context) error {
	p.mu.Lock()
	if p.polling {
		p.mu.Unlock()
		return nil
	}
	p.polling = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.polling = false
		p.mu.Unlock()
	}()

	wallet, err := p.ids.Wallet(ctx)
	if err != nil {
		return err
	}
	if wallet == "" {
		return nil
	}

	enabled, err := p.ids.GuardianEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	since, err := p.guardian.Cursor(ctx)
	if err != nil {
		return err
	}

	alerts, cursor, err := p.client.GuardianAlerts(ctx, wallet, since)
	if err != nil {
		observability.RecordGuardianPoll("error", 0)
		return err
	}
	if len(alerts) == 0 {
		observability.RecordGuardianPoll("empty", 0)
		return nil
	}

	p.logger.Printf("guardian: %d new alerts", len(alerts))

	for _, a := range alerts {
		if err := p.notify.GuardianAlert(ctx, a); err != nil {
			p.logger.Printf("guardian notification: %v", err)
		}
	}

	if err := p.guardian.Merge(ctx, alerts, cursor); err != nil {
		return err
	}

	unread, err := p.guardian.Unread(ctx)
	if err != nil {
		return err
	}
	if p.badge != nil && unread > 0 {
		p.badge.SetUnread(unread)
	}

	observability.RecordGuardianPoll("merged", len(alerts))
	observability.DefaultMetrics.GuardianUnread.Set(float64(unread))
	observability.DefaultMetrics.LastGuardianPoll.SetToCurrentTime()
	return nil
}

// MarkRead clears the unread counter and restores the membership badge.
func (p *Poller) MarkRead(ctx context.Context) error {
	if err := p.guardian.ClearUnread(ctx); err != nil {
		return err
	}
	if p.badge != nil {
		p.badge.SetUnread(0)
	}
	observability.DefaultMetrics.GuardianUnread.Set(0)
	return nil
}

// History returns the merged alerts, newest first.
func (p *Poller) History(ctx context.Context) ([]*domain.GuardianAlert, error) {
	return p.guardian.Alerts(ctx)
}
