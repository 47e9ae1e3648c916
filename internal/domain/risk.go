package domain

import "encoding/json"

// RiskTier buckets a consensus risk score.
type RiskTier string

const (
	TierHigh   RiskTier = "high"
	TierMedium RiskTier = "medium"
	TierLow    RiskTier = "low"
)

// String returns the string representation of RiskTier.
func (t RiskTier) String() string {
	return string(t)
}

// IsValid checks if the tier is a valid value.
func (t RiskTier) IsValid() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// TierForScore maps a risk score to its tier. This is the single canonical
// boundary: >50 high, >=35 medium, <35 low.
func TierForScore(score float64) RiskTier {
	switch {
	case score > 50:
		return TierHigh
	case score >= 35:
		return TierMedium
	default:
		return TierLow
	}
}

// ScanResult is the scorer's verdict for a single token. It is consumed
// immediately; only the derived ActivityEntry is persisted.
type ScanResult struct {
	Mint        string
	RiskScore   float64 // [0,100]
	OverallRisk string  // e.g. "HIGH"
	TokenName   string
	TokenSymbol string
	TokenImage  string
	Signals     json.RawMessage // opaque, relayed as-is
}

// Consensus is the swarm's aggregated view returned by a signal submission.
// The alert decision is made entirely by the remote service.
type Consensus struct {
	RiskTier       RiskTier `json:"riskTier"`
	AvgRiskScore   float64  `json:"avgRiskScore"`
	MemberCount    int      `json:"memberCount"`
	Message        string   `json:"message"`
	AlertTriggered bool     `json:"alertTriggered"`
	AlertType      string   `json:"alertType"`
}

// Signal types submitted to swarm-signal.
const (
	SignalRugDetection = "rug_detection"
	SignalSentiment    = "sentiment"
)
