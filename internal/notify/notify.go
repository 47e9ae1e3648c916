// Package notify turns alerts into operator-facing notifications and
// keeps the badge in sync with swarm membership and unread counts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"swarmlink/internal/domain"
	"swarmlink/internal/observability"
	"swarmlink/internal/relay"
	"swarmlink/internal/storage"
)

// Notification is one operator-facing notification.
type Notification struct {
	Handle   string
	Title    string
	Message  string
	Priority int // 2 urgent, 1 normal
}

// Sink displays notifications. The daemon default logs them; a desktop
// integration can replace it.
type Sink interface {
	Show(n *Notification) error
}

// LogSink writes notifications to the daemon log.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Show logs the notification.
func (s *LogSink) Show(n *Notification) error {
	s.logger.Printf("notification [%s] %s: %s (priority %d)", n.Handle, n.Title, n.Message, n.Priority)
	return nil
}

var _ Sink = (*LogSink)(nil)

// Manager creates notifications and records their click-through targets.
type Manager struct {
	sink   Sink
	notifs storage.NotifStore
	logger *log.Logger

	// now is swappable in tests for stable handles.
	now func() time.Time
}

// NewManager creates a Manager.
func NewManager(sink Sink, notifs storage.NotifStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		sink:   sink,
		notifs: notifs,
		logger: logger,
		now:    time.Now,
	}
}

// alertTitle builds the notification title for a swarm alert.
func alertTitle(alertType, tokenLabel, overallRisk string) string {
	switch alertType {
	case "rug":
		return tokenLabel + " - HIGH RISK"
	case "pump":
		return tokenLabel + " - Pump Warning"
	case "fomo":
		return tokenLabel + " - FOMO Spike"
	default:
		risk := overallRisk
		if risk == "" {
			risk = "UNKNOWN"
		}
		return tokenLabel + " - " + risk + " RISK"
	}
}

// SwarmAlert notifies a service-triggered swarm alert. The click target
// stored is the bare mint, resolved to an explorer page on click.
func (m *Manager) SwarmAlert(ctx context.Context, msg *relay.SwarmAlertMessage) error {
	tokenLabel := msg.TokenName
	if tokenLabel == "" {
		tokenLabel = domain.ShortMint(msg.TokenMint)
	}

	swarmLabel := msg.SwarmName
	if swarmLabel == "" {
		swarmLabel = msg.SwarmCode
	}

	handle := fmt.Sprintf("swarm-%d", m.now().UnixMilli())
	if err := m.notifs.Put(ctx, handle, msg.TokenMint); err != nil {
		m.logger.Printf("record notification target: %v", err)
	}

	observability.RecordNotification("swarm")
	return m.sink.Show(&Notification{
		Handle:   handle,
		Title:    alertTitle(msg.AlertType, tokenLabel, msg.OverallRisk),
		Message:  fmt.Sprintf("Risk: %.0f%% | %s", msg.RiskScore, swarmLabel),
		Priority: 2,
	})
}

// GuardianAlert notifies one account-level alert. The click target is the
// alert's own URL when present, otherwise the default explorer page.
func (m *Manager) GuardianAlert(ctx context.Context, a *domain.GuardianAlert) error {
	priority := 1
	if a.Severity == "high" {
		priority = 2
	}

	handle := "guardian-" + a.ID
	if a.ID == "" {
		handle = fmt.Sprintf("guardian-%d", m.now().UnixMilli())
	}

	target := a.URL
	if target == "" {
		target = domain.DefaultExplorerURL(a.TokenCA)
	}
	if err := m.notifs.Put(ctx, handle, target); err != nil {
		m.logger.Printf("record notification target: %v", err)
	}

	message := a.Message
	if message == "" {
		message = "Guardian alert"
	}

	observability.RecordNotification("guardian")
	return m.sink.Show(&Notification{
		Handle:   handle,
		Title:    a.Label() + " — " + domain.GuardianTypeLabel(a.Type),
		Message:  message,
		Priority: priority,
	})
}

// ResolveClick consumes a notification handle and returns the URL to
// open. Guardian targets are full URLs; swarm targets are bare mints
// resolved to the launch page. Unknown handles return "".
func (m *Manager) ResolveClick(ctx context.Context, handle string) (string, error) {
	target, err := m.notifs.Take(ctx, handle)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(target, "http") {
		return target, nil
	}
	return "https://pump.fun/coin/" + target, nil
}
