// Package relay carries traffic between the scan agents and the daemon
// over a single WebSocket channel: proxied API fetches, scan results,
// swarm alerts and identity sync pushes.
package relay

import "encoding/json"

// Message types on the relay channel.
const (
	TypeAPIFetch       = "API_FETCH"
	TypeAPIFetchResult = "API_FETCH_RESULT"
	TypeScanResult     = "SCAN_RESULT"
	TypeSwarmAlert     = "SWARM_ALERT"
	TypeWalletSync     = "WALLET_SYNC"
	TypeActiveSwarm    = "ACTIVE_SWARM"
	TypeUpdateBadge    = "updateBadge"
)

// Envelope frames every relay message. ID correlates an API_FETCH with
// its API_FETCH_RESULT; all other types leave it zero.
type Envelope struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FetchResult answers an API_FETCH. The request always resolves: a proxy
// or transport failure comes back with Error set instead of closing the
// channel.
type FetchResult struct {
	Status int    `json:"status,omitempty"`
	OK     bool   `json:"ok"`
	Body   []byte `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ScanResultMessage is one consensus outcome pushed into the activity feed.
type ScanResultMessage struct {
	TokenMint   string  `json:"tokenMint"`
	TokenName   string  `json:"tokenName,omitempty"`
	OverallRisk string  `json:"overallRisk,omitempty"`
	RiskTier    string  `json:"riskTier"`
	RiskScore   float64 `json:"riskScore"`
	Message     string  `json:"message,omitempty"`
	SwarmCode   string  `json:"swarmCode"`
	SwarmName   string  `json:"swarmName,omitempty"`
	MemberCount int     `json:"memberCount"`
	Timestamp   int64   `json:"timestamp"`
}

// SwarmAlertMessage is a service-triggered alert pushed into history and
// surfaced as a notification.
type SwarmAlertMessage struct {
	AlertType   string  `json:"alertType"`
	Message     string  `json:"message"`
	TokenMint   string  `json:"tokenMint"`
	TokenName   string  `json:"tokenName,omitempty"`
	OverallRisk string  `json:"overallRisk,omitempty"`
	SwarmCode   string  `json:"swarmCode"`
	SwarmName   string  `json:"swarmName,omitempty"`
	RiskScore   float64 `json:"riskScore,omitempty"`
}

// WalletSyncMessage carries the identity pushed from the service site.
type WalletSyncMessage struct {
	Wallet string `json:"wallet"`
	UserID string `json:"userId,omitempty"`
}

// ActiveSwarmMessage scopes signal fan-out to one swarm; an empty code
// restores all-swarms fan-out.
type ActiveSwarmMessage struct {
	Code string `json:"code"`
}

// BadgeMessage updates the operator-facing badge.
type BadgeMessage struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// newEnvelope marshals a payload into a framed message.
func newEnvelope(msgType string, id uint64, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: msgType, ID: id, Payload: data}, nil
}
