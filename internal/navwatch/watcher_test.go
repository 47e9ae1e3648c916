package navwatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakePage is a mutable URL source.
type fakePage struct {
	mu  sync.Mutex
	url string
}

func (p *fakePage) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Set(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

type callCounter struct {
	mu   sync.Mutex
	urls []string
}

func (c *callCounter) add(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append(c.urls, url)
}

func (c *callCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

func TestWatcher_FiresOncePerDistinctURL(t *testing.T) {
	page := &fakePage{url: "https://pump.fun/coin/AAA"}
	calls := &callCounter{}

	w := New(page.Get, calls.add, WithHookDelay(time.Millisecond))

	// Two history events resolving to the same URL: one callback.
	page.Set("https://pump.fun/coin/BBB")
	w.HistoryChanged()
	w.HistoryChanged()

	time.Sleep(50 * time.Millisecond)
	if got := calls.count(); got != 1 {
		t.Fatalf("expected 1 callback, got %d", got)
	}
}

func TestWatcher_NoFireOnSameURL(t *testing.T) {
	page := &fakePage{url: "https://pump.fun/coin/AAA"}
	calls := &callCounter{}

	w := New(page.Get, calls.add, WithHookDelay(time.Millisecond))

	// URL unchanged since construction: no callback.
	w.HistoryChanged()
	w.BackForward()

	time.Sleep(50 * time.Millisecond)
	if got := calls.count(); got != 0 {
		t.Fatalf("expected 0 callbacks, got %d", got)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	page := &fakePage{url: "https://gmgn.ai/sol/token/AAA"}
	calls := &callCounter{}

	w := New(page.Get, calls.add, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Change the URL without signalling any hook: the poll must catch it.
	page.Set("https://gmgn.ai/sol/token/BBB")

	deadline := time.After(time.Second)
	for calls.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("polling fallback never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := calls.count(); got != 1 {
		t.Fatalf("expected exactly 1 callback, got %d", got)
	}
}

func TestWatcher_SequentialNavigations(t *testing.T) {
	page := &fakePage{url: "u0"}
	calls := &callCounter{}

	w := New(page.Get, calls.add, WithHookDelay(time.Millisecond))

	page.Set("u1")
	w.HistoryChanged()
	time.Sleep(20 * time.Millisecond)

	page.Set("u2")
	w.HistoryChanged()
	time.Sleep(20 * time.Millisecond)

	if got := calls.count(); got != 2 {
		t.Fatalf("expected 2 callbacks, got %d", got)
	}
}
