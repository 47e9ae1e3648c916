package notify

import (
	"strconv"
	"sync"

	"swarmlink/internal/relay"
)

// Badge colors: membership count vs unread guardian alerts.
const (
	badgeColorDefault = "#00d4ff"
	badgeColorAlert   = "#ef4444"
)

// Broadcaster pushes badge state to connected agents.
// Satisfied by relay.Server.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// Badge tracks the operator badge. Unread guardian alerts override the
// swarm count until cleared.
type Badge struct {
	mu         sync.Mutex
	swarmCount int
	unread     int
	out        Broadcaster
}

// NewBadge creates a Badge pushing updates through the broadcaster.
func NewBadge(out Broadcaster) *Badge {
	return &Badge{out: out}
}

// SetSwarmCount updates the membership count.
func (b *Badge) SetSwarmCount(n int) {
	b.mu.Lock()
	b.swarmCount = n
	msg := b.render()
	b.mu.Unlock()
	b.push(msg)
}

// SetUnread updates the unread guardian alert count.
func (b *Badge) SetUnread(n int) {
	b.mu.Lock()
	b.unread = n
	msg := b.render()
	b.mu.Unlock()
	b.push(msg)
}

// State returns the current badge text and color.
func (b *Badge) State() relay.BadgeMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render()
}

func (b *Badge) render() relay.BadgeMessage {
	if b.unread > 0 {
		return relay.BadgeMessage{Text: strconv.Itoa(b.unread), Color: badgeColorAlert}
	}
	if b.swarmCount > 0 {
		return relay.BadgeMessage{Text: strconv.Itoa(b.swarmCount), Color: badgeColorDefault}
	}
	return relay.BadgeMessage{}
}

func (b *Badge) push(msg relay.BadgeMessage) {
	if b.out != nil {
		b.out.Broadcast(relay.TypeUpdateBadge, &msg)
	}
}
