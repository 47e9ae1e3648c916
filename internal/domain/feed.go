package domain

// Feed and history caps. Oldest entries beyond the cap are discarded.
const (
	MaxFeedPerTier    = 20
	MaxAlertHistory   = 50
	MaxGuardianAlerts = 50
)

// ActivityEntry is one consensus result in the tiered activity feed.
type ActivityEntry struct {
	ID          int64    `json:"id"`
	TokenMint   string   `json:"tokenMint"`
	TokenName   string   `json:"tokenName"`
	OverallRisk string   `json:"overallRisk"`
	RiskTier    RiskTier `json:"riskTier"`
	RiskScore   float64  `json:"riskScore"` // consensus average
	Message     string   `json:"message"`
	SwarmCode   string   `json:"swarmCode"`
	SwarmName   string   `json:"swarmName"`
	MemberCount int      `json:"memberCount"`
	Timestamp   int64    `json:"timestamp"` // Unix ms
}

// ActivityFeed is the tiered feed, newest first per tier.
type ActivityFeed struct {
	High   []*ActivityEntry `json:"high"`
	Medium []*ActivityEntry `json:"medium"`
	Low    []*ActivityEntry `json:"low"`
}

// Tier returns the slice for the given tier. Unknown tiers map to low,
// matching how an absent riskTier is bucketed.
func (f *ActivityFeed) Tier(t RiskTier) []*ActivityEntry {
	switch t {
	case TierHigh:
		return f.High
	case TierMedium:
		return f.Medium
	default:
		return f.Low
	}
}
