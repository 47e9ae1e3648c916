// Package navwatch detects URL changes inside client-rendered sites that
// never reload. History-mutation hooks, back/forward events and a
// fixed-interval polling fallback all converge on one comparator, so the
// callback fires exactly once per distinct URL.
package navwatch

import (
	"context"
	"sync"
	"time"
)

// Default timing. The hook delay lets the page finish its own mutation
// before the URL is read; the poll interval is the fallback for pages
// whose security policy blocks hook installation.
const (
	DefaultHookDelay    = 100 * time.Millisecond
	DefaultPollInterval = 1 * time.Second
)

// Watcher invokes a callback once per distinct URL from a URL source.
// It holds no persisted state and is recreated per scanner session.
type Watcher struct {
	source   func() string
	callback func(url string)

	hookDelay    time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	lastURL string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithHookDelay sets the delay between a hook event and the URL check.
func WithHookDelay(d time.Duration) Option {
	return func(w *Watcher) { w.hookDelay = d }
}

// WithPollInterval sets the fallback polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// New creates a Watcher. The current URL at construction time is the
// baseline: the callback fires only for URLs that differ from it.
func New(source func() string, callback func(url string), opts ...Option) *Watcher {
	w := &Watcher{
		source:       source,
		callback:     callback,
		hookDelay:    DefaultHookDelay,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastURL = source()
	return w
}

// HistoryChanged signals that a history-mutation entry point fired
// (pushState/replaceState analog). The check runs after a short delay.
func (w *Watcher) HistoryChanged() {
	time.AfterFunc(w.hookDelay, w.check)
}

// BackForward signals a back/forward navigation event.
func (w *Watcher) BackForward() {
	time.AfterFunc(w.hookDelay, w.check)
}

// Run polls the URL source at a fixed interval until the context is
// cancelled. This is the fallback path when hooks are blocked.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check is the single comparator all paths converge on. Last-seen is
// updated before the callback runs, so a callback that triggers further
// mutation cannot re-fire on the same URL.
func (w *Watcher) check() {
	current := w.source()

	w.mu.Lock()
	if current == w.lastURL {
		w.mu.Unlock()
		return
	}
	w.lastURL = current
	w.mu.Unlock()

	w.callback(current)
}
