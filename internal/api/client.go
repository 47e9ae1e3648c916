package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"swarmlink/internal/domain"
)

// RejectedError is returned when the service refuses a signal submission,
// for example a rate-limited or below-tier swarm.
type RejectedError struct {
	Reason string
	Tier   string
}

func (e *RejectedError) Error() string {
	if e.Tier != "" {
		return fmt.Sprintf("signal rejected: %s (tier %s)", e.Reason, e.Tier)
	}
	return fmt.Sprintf("signal rejected: %s", e.Reason)
}

// Client calls the remote swarm service.
type Client struct {
	baseURL string
	fetcher Fetcher
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a Client sending requests through the given Fetcher.
func NewClient(fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SignalSubmission is one signal pushed to a swarm.
type SignalSubmission struct {
	Wallet      string        `json:"wallet"`
	SwarmCode   string        `json:"swarmCode"`
	TokenMint   string        `json:"tokenMint"`
	TokenName   string        `json:"tokenName,omitempty"`
	TokenSymbol string        `json:"tokenSymbol,omitempty"`
	TokenImage  string        `json:"tokenImage,omitempty"`
	Signal      SignalPayload `json:"signal"`
	Timestamp   int64         `json:"timestamp"`
}

// SignalPayload carries the scorer output inside a submission. RiskScore
// is set for rug detection, SentimentScore for sentiment signals.
type SignalPayload struct {
	Type           string          `json:"type"`
	RiskScore      *float64        `json:"riskScore,omitempty"`
	SentimentScore *float64        `json:"sentimentScore,omitempty"`
	Signals        json.RawMessage `json:"signals,omitempty"`
}

// SentimentResult is the verdict for a block of text.
type SentimentResult struct {
	SentimentScore float64
	Signals        json.RawMessage
}

// WatchedToken is one watchlist entry.
type WatchedToken struct {
	TokenCA     string `json:"tokenCA"`
	TokenName   string `json:"tokenName,omitempty"`
	TokenSymbol string `json:"tokenSymbol,omitempty"`
}

// Watchlist actions.
const (
	WatchActionWatch   = "watch"
	WatchActionUnwatch = "unwatch"
)

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, &FetchRequest{
		Method: http.MethodGet,
		URL:    c.baseURL + path,
	}, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, &FetchRequest{
		Method:  http.MethodPost,
		URL:     c.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, out)
}

func (c *Client) do(ctx context.Context, req *FetchRequest, out any) error {
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("service returned status %d", resp.Status)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ScanToken requests a risk scan for a mint on behalf of a user.
func (c *Client) ScanToken(ctx context.Context, mint, userID string) (*domain.ScanResult, error) {
	payload := map[string]string{
		"address": mint,
		"userId":  userID,
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
		Result  struct {
			RiskScore   float64         `json:"riskScore"`
			OverallRisk string          `json:"overallRisk"`
			TokenName   string          `json:"tokenName"`
			TokenSymbol string          `json:"tokenSymbol"`
			TokenImage  string          `json:"tokenImage"`
			Signals     json.RawMessage `json:"signals"`
		} `json:"result"`
	}
	if err := c.post(ctx, "/scan-token", payload, &resp); err != nil {
		return nil, fmt.Errorf("scan token: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("scan token: service error: %s", resp.Error)
	}
	return &domain.ScanResult{
		Mint:        mint,
		RiskScore:   resp.Result.RiskScore,
		OverallRisk: resp.Result.OverallRisk,
		TokenName:   resp.Result.TokenName,
		TokenSymbol: resp.Result.TokenSymbol,
		TokenImage:  resp.Result.TokenImage,
		Signals:     resp.Result.Signals,
	}, nil
}

// SubmitSignal shares a signal with one swarm and returns the swarm's
// consensus. A rejection comes back as *RejectedError; a missing consensus
// on an accepted submission returns nil, nil.
func (c *Client) SubmitSignal(ctx context.Context, sub *SignalSubmission) (*domain.Consensus, error) {
	var resp struct {
		Success   bool              `json:"success"`
		Error     string            `json:"error,omitempty"`
		Tier      string            `json:"tier,omitempty"`
		Consensus *domain.Consensus `json:"swarmConsensus,omitempty"`
	}
	if err := c.post(ctx, "/swarm-signal", sub, &resp); err != nil {
		return nil, fmt.Errorf("submit signal: %w", err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, &RejectedError{Reason: resp.Error, Tier: resp.Tier}
	}
	return resp.Consensus, nil
}

// AnalyzeSentiment scores a block of text mentioning a mint.
func (c *Client) AnalyzeSentiment(ctx context.Context, text, mint string) (*SentimentResult, error) {
	payload := map[string]string{
		"text":      text,
		"tokenMint": mint,
	}
	var resp struct {
		Success        bool            `json:"success"`
		Error          string          `json:"error,omitempty"`
		SentimentScore float64         `json:"sentimentScore"`
		Signals        json.RawMessage `json:"signals"`
	}
	if err := c.post(ctx, "/analyze-sentiment", payload, &resp); err != nil {
		return nil, fmt.Errorf("analyze sentiment: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("analyze sentiment: service error: %s", resp.Error)
	}
	return &SentimentResult{
		SentimentScore: resp.SentimentScore,
		Signals:        resp.Signals,
	}, nil
}

// MySwarms returns the swarms a wallet belongs to.
func (c *Client) MySwarms(ctx context.Context, wallet string) ([]domain.Swarm, error) {
	var resp struct {
		Success bool           `json:"success"`
		Error   string         `json:"error,omitempty"`
		Swarms  []domain.Swarm `json:"swarms"`
	}
	path := "/my-swarms?wallet=" + url.QueryEscape(wallet)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch swarms: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetch swarms: service error: %s", resp.Error)
	}
	return resp.Swarms, nil
}

// GuardianAlerts returns account alerts newer than the since cursor, plus
// the next cursor (0 when the service omits one).
func (c *Client) GuardianAlerts(ctx context.Context, wallet string, since int64) ([]*domain.GuardianAlert, int64, error) {
	var resp struct {
		Success bool                    `json:"success"`
		Error   string                  `json:"error,omitempty"`
		Alerts  []*domain.GuardianAlert `json:"alerts"`
		Cursor  int64                   `json:"cursor"`
	}
	path := "/ext-alerts?wallet=" + url.QueryEscape(wallet) + "&since=" + strconv.FormatInt(since, 10)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, 0, fmt.Errorf("fetch guardian alerts: %w", err)
	}
	if !resp.Success {
		return nil, 0, fmt.Errorf("fetch guardian alerts: service error: %s", resp.Error)
	}
	return resp.Alerts, resp.Cursor, nil
}

// Watchlist returns the wallet's watched tokens and the account limit.
func (c *Client) Watchlist(ctx context.Context, wallet string) ([]WatchedToken, int, error) {
	var resp struct {
		Success bool           `json:"success"`
		Error   string         `json:"error,omitempty"`
		Tokens  []WatchedToken `json:"tokens"`
		Limit   int            `json:"limit"`
	}
	path := "/ext-watchlist?wallet=" + url.QueryEscape(wallet)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, 0, fmt.Errorf("fetch watchlist: %w", err)
	}
	if !resp.Success {
		return nil, 0, fmt.Errorf("fetch watchlist: service error: %s", resp.Error)
	}
	return resp.Tokens, resp.Limit, nil
}

// UpdateWatchlist adds or removes a token. "Already watching" from the
// service counts as success.
func (c *Client) UpdateWatchlist(ctx context.Context, action, wallet string, token WatchedToken) error {
	payload := map[string]any{
		"action":  action,
		"wallet":  wallet,
		"tokenCA": token.TokenCA,
	}
	if token.TokenName != "" {
		payload["tokenName"] = token.TokenName
	}
	if token.TokenSymbol != "" {
		payload["tokenSymbol"] = token.TokenSymbol
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
		Message string `json:"message,omitempty"`
	}
	if err := c.post(ctx, "/ext-watchlist", payload, &resp); err != nil {
		return fmt.Errorf("update watchlist: %w", err)
	}
	if !resp.Success && resp.Message != "Already watching" {
		return fmt.Errorf("update watchlist: service error: %s", resp.Error)
	}
	return nil
}
