package guardian

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"swarmlink/internal/api"
	"swarmlink/internal/notify"
	"swarmlink/internal/storage/memory"
)

type captureSink struct {
	mu    sync.Mutex
	shown []*notify.Notification
}

func (s *captureSink) Show(n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}

type fakeAlertService struct {
	mu     sync.Mutex
	alerts []map[string]any
	cursor int64
	fail   bool
	calls  int
	since  []int64
}

func (f *fakeAlertService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++

		since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
		f.since = append(f.since, since)

		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"alerts":  f.alerts,
			"cursor":  f.cursor,
		})
	}
}

func newTestPoller(srvURL string) (*Poller, *captureSink, *memory.GuardianStore, *memory.IdentityStore, *notify.Badge) {
	client := api.NewClient(api.NewHTTPFetcher(), api.WithBaseURL(srvURL))
	guardianStore := memory.NewGuardianStore()
	ids := memory.NewIdentityStore()
	sink := &captureSink{}
	logger := log.New(io.Discard, "", 0)
	manager := notify.NewManager(sink, memory.NewNotifStore(), logger)
	badge := notify.NewBadge(nil)

	p := NewPoller(client, guardianStore, ids, manager, badge, logger)
	return p, sink, guardianStore, ids, badge
}

func TestPoller_QuietWithoutWallet(t *testing.T) {
	svc := &fakeAlertService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, _, _, _, _ := newTestPoller(srv.URL)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if svc.calls != 0 {
		t.Error("polled without a synced wallet")
	}
}

func TestPoller_QuietWhenDisabled(t *testing.T) {
	svc := &fakeAlertService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, _, _, ids, _ := newTestPoller(srv.URL)
	ctx := context.Background()
	ids.SetWallet(ctx, "wallet1")
	ids.SetGuardianEnabled(ctx, false)

	if err := p.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if svc.calls != 0 {
		t.Error("polled with guardian disabled")
	}
}

func TestPoller_MergesAndNotifies(t *testing.T) {
	svc := &fakeAlertService{
		alerts: []map[string]any{
			{"id": "g1", "type": "rug_alert", "tokenCA": "MintA", "message": "LP pulled", "severity": "high"},
			{"id": "g2", "type": "whale_dump", "tokenCA": "MintB", "message": "Top holder exited"},
		},
		cursor: 250,
	}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, sink, guardianStore, ids, badge := newTestPoller(srv.URL)
	ctx := context.Background()
	ids.SetWallet(ctx, "wallet1")

	if err := p.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}

	if sink.count() != 2 {
		t.Errorf("notifications = %d, want 2", sink.count())
	}

	alerts, _ := guardianStore.Alerts(ctx)
	if len(alerts) != 2 {
		t.Fatalf("merged alerts = %d, want 2", len(alerts))
	}

	cursor, _ := guardianStore.Cursor(ctx)
	if cursor != 250 {
		t.Errorf("cursor = %d, want 250", cursor)
	}

	if s := badge.State(); s.Text != "2" {
		t.Errorf("badge = %+v, want unread 2", s)
	}

	// Second poll queries from the stored cursor.
	svc.mu.Lock()
	svc.alerts = nil
	svc.mu.Unlock()
	if err := p.PollOnce(ctx); err != nil {
		t.Fatalf("second PollOnce failed: %v", err)
	}
	svc.mu.Lock()
	lastSince := svc.since[len(svc.since)-1]
	svc.mu.Unlock()
	if lastSince != 250 {
		t.Errorf("since = %d, want 250", lastSince)
	}
}

func TestPoller_FailureLeavesCursor(t *testing.T) {
	svc := &fakeAlertService{fail: true}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, sink, guardianStore, ids, _ := newTestPoller(srv.URL)
	ctx := context.Background()
	ids.SetWallet(ctx, "wallet1")

	if err := p.PollOnce(ctx); err == nil {
		t.Fatal("expected poll error")
	}

	if cursor, _ := guardianStore.Cursor(ctx); cursor != 0 {
		t.Errorf("cursor advanced to %d on failure", cursor)
	}
	if sink.count() != 0 {
		t.Error("notified on failed poll")
	}
}

func TestPoller_OverlapDropped(t *testing.T) {
	svc := &fakeAlertService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, _, _, ids, _ := newTestPoller(srv.URL)
	ctx := context.Background()
	ids.SetWallet(ctx, "wallet1")

	p.mu.Lock()
	p.polling = true
	p.mu.Unlock()

	if err := p.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if svc.calls != 0 {
		t.Error("overlapping poll was not dropped")
	}

	p.mu.Lock()
	p.polling = false
	p.mu.Unlock()

	if err := p.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1 after flag cleared", svc.calls)
	}
}

func TestPoller_MarkRead(t *testing.T) {
	svc := &fakeAlertService{
		alerts: []map[string]any{{"id": "g1", "tokenCA": "MintA"}},
		cursor: 10,
	}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	p, _, guardianStore, ids, badge := newTestPoller(srv.URL)
	ctx := context.Background()
	ids.SetWallet(ctx, "wallet1")

	p.PollOnce(ctx)
	if err := p.MarkRead(ctx); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	if unread, _ := guardianStore.Unread(ctx); unread != 0 {
		t.Errorf("unread = %d after MarkRead", unread)
	}
	if s := badge.State(); s.Text != "" {
		t.Errorf("badge = %+v, want cleared", s)
	}
}
