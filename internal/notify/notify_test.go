package notify

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"swarmlink/internal/domain"
	"swarmlink/internal/relay"
	"swarmlink/internal/storage/memory"
)

type captureSink struct {
	shown []*Notification
}

func (s *captureSink) Show(n *Notification) error {
	s.shown = append(s.shown, n)
	return nil
}

func newTestManager() (*Manager, *captureSink, *memory.NotifStore) {
	sink := &captureSink{}
	notifs := memory.NewNotifStore()
	m := NewManager(sink, notifs, log.New(io.Discard, "", 0))
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return m, sink, notifs
}

func TestManager_SwarmAlertTitles(t *testing.T) {
	cases := []struct {
		alertType string
		risk      string
		want      string
	}{
		{"rug", "HIGH", "EXT - HIGH RISK"},
		{"pump", "HIGH", "EXT - Pump Warning"},
		{"fomo", "MEDIUM", "EXT - FOMO Spike"},
		{"other", "MEDIUM", "EXT - MEDIUM RISK"},
		{"other", "", "EXT - UNKNOWN RISK"},
	}

	for _, tc := range cases {
		m, sink, _ := newTestManager()
		err := m.SwarmAlert(context.Background(), &relay.SwarmAlertMessage{
			AlertType:   tc.alertType,
			TokenMint:   "MintA",
			TokenName:   "EXT",
			OverallRisk: tc.risk,
			RiskScore:   68,
			SwarmName:   "Alpha",
		})
		if err != nil {
			t.Fatalf("SwarmAlert(%s) failed: %v", tc.alertType, err)
		}
		if sink.shown[0].Title != tc.want {
			t.Errorf("title for %s = %q, want %q", tc.alertType, sink.shown[0].Title, tc.want)
		}
	}
}

func TestManager_SwarmAlertClickOpensLaunchPage(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	err := m.SwarmAlert(ctx, &relay.SwarmAlertMessage{
		AlertType: "rug",
		TokenMint: "So11111111111111111111111111111111111111112",
	})
	if err != nil {
		t.Fatalf("SwarmAlert failed: %v", err)
	}

	url, err := m.ResolveClick(ctx, "swarm-1700000000000")
	if err != nil {
		t.Fatalf("ResolveClick failed: %v", err)
	}
	want := "https://pump.fun/coin/So11111111111111111111111111111111111111112"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}

	// Handle is consumed; a second click is a quiet no-op.
	url, err = m.ResolveClick(ctx, "swarm-1700000000000")
	if err != nil || url != "" {
		t.Errorf("second click = %q, %v", url, err)
	}
}

func TestManager_GuardianAlertURLFallback(t *testing.T) {
	m, sink, _ := newTestManager()
	ctx := context.Background()

	err := m.GuardianAlert(ctx, &domain.GuardianAlert{
		ID:       "g1",
		Type:     "rug_alert",
		TokenCA:  "So11111111111111111111111111111111111111112",
		Message:  "LP pulled",
		Severity: "high",
	})
	if err != nil {
		t.Fatalf("GuardianAlert failed: %v", err)
	}

	if sink.shown[0].Priority != 2 {
		t.Errorf("priority = %d, want 2 for high severity", sink.shown[0].Priority)
	}

	url, err := m.ResolveClick(ctx, "guardian-g1")
	if err != nil {
		t.Fatalf("ResolveClick failed: %v", err)
	}
	want := "https://dexscreener.com/solana/So11111111111111111111111111111111111111112"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestManager_GuardianAlertOwnURLWins(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	err := m.GuardianAlert(ctx, &domain.GuardianAlert{
		ID:      "g2",
		TokenCA: "MintA",
		URL:     "https://example.com/alerts/g2",
	})
	if err != nil {
		t.Fatalf("GuardianAlert failed: %v", err)
	}

	url, _ := m.ResolveClick(ctx, "guardian-g2")
	if url != "https://example.com/alerts/g2" {
		t.Errorf("url = %q", url)
	}
}

type captureBroadcaster struct {
	msgs []relay.BadgeMessage
}

func (b *captureBroadcaster) Broadcast(msgType string, payload any) {
	if msg, ok := payload.(*relay.BadgeMessage); ok {
		b.msgs = append(b.msgs, *msg)
	}
}

func TestBadge_UnreadOverridesSwarmCount(t *testing.T) {
	out := &captureBroadcaster{}
	badge := NewBadge(out)

	badge.SetSwarmCount(3)
	if s := badge.State(); s.Text != "3" || s.Color != badgeColorDefault {
		t.Errorf("state = %+v", s)
	}

	badge.SetUnread(5)
	if s := badge.State(); s.Text != "5" || s.Color != badgeColorAlert {
		t.Errorf("state = %+v", s)
	}

	// Clearing unread falls back to the membership count.
	badge.SetUnread(0)
	if s := badge.State(); s.Text != "3" || s.Color != badgeColorDefault {
		t.Errorf("state = %+v", s)
	}

	badge.SetSwarmCount(0)
	if s := badge.State(); s.Text != "" {
		t.Errorf("state = %+v, want empty", s)
	}

	if len(out.msgs) != 4 {
		t.Errorf("broadcasts = %d, want 4", len(out.msgs))
	}
}
