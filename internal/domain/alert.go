package domain

// AlertRecord is a swarm alert kept in local history, newest first.
type AlertRecord struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"` // rug | pump | fomo | ...
	Message   string  `json:"message"`
	TokenMint string  `json:"tokenMint"`
	SwarmCode string  `json:"swarmCode"`
	SwarmName string  `json:"swarmName"`
	RiskScore float64 `json:"riskScore"`
	Timestamp int64   `json:"timestamp"` // Unix ms
}

// GuardianAlert is an account-level alert fetched by the guardian poller.
type GuardianAlert struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	TokenCA     string `json:"tokenCA"`
	TokenSymbol string `json:"tokenSymbol,omitempty"`
	TokenName   string `json:"tokenName,omitempty"`
	Message     string `json:"message"`
	URL         string `json:"url,omitempty"`
	Severity    string `json:"severity"` // high | medium | low
	Timestamp   int64  `json:"timestamp"`
}

// guardianTypeLabels maps guardian alert types to notification titles.
var guardianTypeLabels = map[string]string{
	"price_crash":     "Price Crash",
	"whale_entry":     "Whale Entry",
	"whale_dump":      "Whale Dump",
	"rug_alert":       "Rug Alert",
	"cluster_high":    "Cluster (HIGH)",
	"cluster_medium":  "Cluster (MED)",
	"swarm_attention": "Swarm Attention",
}

// GuardianTypeLabel returns a human label for a guardian alert type,
// falling back to the raw type string.
func GuardianTypeLabel(alertType string) string {
	if label, ok := guardianTypeLabels[alertType]; ok {
		return label
	}
	return alertType
}

// Label returns the token label used in notification titles: symbol if
// known, otherwise the shortened contract address.
func (a *GuardianAlert) Label() string {
	if a.TokenSymbol != "" {
		return a.TokenSymbol
	}
	return ShortMint(a.TokenCA)
}

// DefaultExplorerURL builds the navigation target for a token when an
// alert does not carry its own URL.
func DefaultExplorerURL(mint string) string {
	return "https://dexscreener.com/solana/" + mint
}
