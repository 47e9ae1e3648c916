// Package memory provides in-memory implementations of the storage
// interfaces, used for tests and for running without a database.
package memory

import (
	"context"
	"sync"

	"swarmlink/internal/domain"
	"swarmlink/internal/storage"
)

// FeedStore is an in-memory implementation of storage.FeedStore.
type FeedStore struct {
	mu   sync.RWMutex
	feed domain.ActivityFeed
}

// NewFeedStore creates a new in-memory feed store.
func NewFeedStore() *FeedStore {
	return &FeedStore{}
}

// Append buckets the entry by risk score, prepends it to that tier and
// truncates the tier to the cap.
func (s *FeedStore) Append(_ context.Context, e *domain.ActivityEntry) error {
	if e == nil || e.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := *e
	entry.RiskTier = domain.TierForScore(entry.RiskScore)

	switch entry.RiskTier {
	case domain.TierHigh:
		s.feed.High = prependCapped(s.feed.High, &entry, domain.MaxFeedPerTier)
	case domain.TierMedium:
		s.feed.Medium = prependCapped(s.feed.Medium, &entry, domain.MaxFeedPerTier)
	default:
		s.feed.Low = prependCapped(s.feed.Low, &entry, domain.MaxFeedPerTier)
	}
	return nil
}

// Feed retrieves a copy of the full tiered feed.
func (s *FeedStore) Feed(_ context.Context) (*domain.ActivityFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &domain.ActivityFeed{
		High:   copyEntries(s.feed.High),
		Medium: copyEntries(s.feed.Medium),
		Low:    copyEntries(s.feed.Low),
	}, nil
}

func prependCapped(list []*domain.ActivityEntry, e *domain.ActivityEntry, limit int) []*domain.ActivityEntry {
	list = append([]*domain.ActivityEntry{e}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func copyEntries(list []*domain.ActivityEntry) []*domain.ActivityEntry {
	out := make([]*domain.ActivityEntry, len(list))
	for i, e := range list {
		entryCopy := *e
		out[i] = &entryCopy
	}
	return out
}

// Verify interface compliance at compile time.
var _ storage.FeedStore = (*FeedStore)(nil)
