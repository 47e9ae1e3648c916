// Package scan drives the detection pipeline on the agent: scan a mint,
// share the signal with the operator's swarms and emit the consensus
// outcome over the relay.
package scan

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"swarmlink/internal/api"
	"swarmlink/internal/domain"
	"swarmlink/internal/extract"
	"swarmlink/internal/observability"
	"swarmlink/internal/relay"
)

// IdentitySource exposes the synced identity the coordinator needs.
// Satisfied by storage.IdentityStore.
type IdentitySource interface {
	Wallet(ctx context.Context) (string, error)
	UserID(ctx context.Context) (string, error)
	Swarms(ctx context.Context) ([]domain.Swarm, error)
	ActiveSwarm(ctx context.Context) (string, error)
	SetSwarms(ctx context.Context, swarms []domain.Swarm) error
}

// Emitter delivers pipeline outcomes to the daemon.
type Emitter interface {
	EmitScanResult(msg *relay.ScanResultMessage) error
	EmitSwarmAlert(msg *relay.SwarmAlertMessage) error
}

// Notifier surfaces operator-facing notices on the agent.
type Notifier interface {
	Notify(message string)
}

// Operator notices. Each is shown at most once per session.
const (
	noticeConnectWallet = "SwarmLink: Connect wallet at federatedalpha.com/swarms to start scanning"
	noticeJoinSwarm     = "SwarmLink: Join a swarm at federatedalpha.com/swarms to share signals"
)

// Coordinator runs scans with session-level dedup and per-swarm fan-out.
type Coordinator struct {
	client *api.Client
	ids    IdentitySource
	emit   Emitter
	notify Notifier
	logger *log.Logger

	mu      sync.Mutex
	scanned map[string]struct{}
	noticed map[string]struct{}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(client *api.Client, ids IdentitySource, emit Emitter, notify Notifier, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		client:  client,
		ids:     ids,
		emit:    emit,
		notify:  notify,
		logger:  logger,
		scanned: make(map[string]struct{}),
		noticed: make(map[string]struct{}),
	}
}

// markScanned records the mint, reporting whether it was already seen.
func (c *Coordinator) markScanned(mint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scanned[mint]; ok {
		return false
	}
	c.scanned[mint] = struct{}{}
	return true
}

// ResetSession clears the scan dedup set. Called on navigation for
// sites whose page subject is DOM-resolved: a new URL there implies a
// new token even when the mint repeats.
func (c *Coordinator) ResetSession() {
	c.mu.Lock()
	c.scanned = make(map[string]struct{})
	c.mu.Unlock()
}

// notice shows an operator notice once per session.
func (c *Coordinator) notice(message string) {
	c.mu.Lock()
	_, seen := c.noticed[message]
	c.noticed[message] = struct{}{}
	c.mu.Unlock()
	if !seen && c.notify != nil {
		c.notify.Notify(message)
	}
}

// identity resolves the wallet, fan-out swarms and user id, auto-syncing
// the membership list once when a wallet exists but no swarms are cached.
// A nil swarm list with no error means a guard tripped and the caller
// should stop quietly.
func (c *Coordinator) identity(ctx context.Context) (userKey string, swarms []domain.Swarm, err error) {
	wallet, err := c.ids.Wallet(ctx)
	if err != nil {
		return "", nil, err
	}
	userID, err := c.ids.UserID(ctx)
	if err != nil {
		return "", nil, err
	}
	swarms, err = c.ids.Swarms(ctx)
	if err != nil {
		return "", nil, err
	}

	if wallet != "" && len(swarms) == 0 {
		swarms = c.autoSyncSwarms(ctx, wallet)
	}

	if wallet == "" && userID == "" {
		c.notice(noticeConnectWallet)
		return "", nil, nil
	}
	if len(swarms) == 0 {
		c.notice(noticeJoinSwarm)
		return "", nil, nil
	}

	userKey = wallet
	if userKey == "" {
		userKey = userID
	}

	active, err := c.ids.ActiveSwarm(ctx)
	if err != nil {
		return "", nil, err
	}
	return userKey, domain.FilterActive(swarms, active), nil
}

// autoSyncSwarms fetches the membership list when the cache is empty.
func (c *Coordinator) autoSyncSwarms(ctx context.Context, wallet string) []domain.Swarm {
	c.logger.Printf("auto-syncing swarms for wallet %s", domain.ShortMint(wallet))

	swarms, err := c.client.MySwarms(ctx, wallet)
	if err != nil {
		c.logger.Printf("auto-sync failed: %v", err)
		return nil
	}
	if len(swarms) == 0 {
		return nil
	}
	if err := c.ids.SetSwarms(ctx, swarms); err != nil {
		c.logger.Printf("cache swarms: %v", err)
	}
	c.logger.Printf("auto-synced %d swarms", len(swarms))
	return swarms
}

// ScanAndShare scans a mint and fans the signal out to every in-scope
// swarm. pageName is the display name extracted from the page, "" if
// unknown. Already-scanned mints are skipped.
func (c *Coordinator) ScanAndShare(ctx context.Context, mint, pageName string) error {
	if !c.markScanned(mint) {
		c.logger.Printf("already scanned %s", domain.ShortMint(mint))
		observability.RecordScanDeduped()
		return nil
	}
	c.logger.Printf("scanning token %s", domain.ShortMint(mint))
	observability.RecordScanStarted()

	userKey, swarms, err := c.identity(ctx)
	if err != nil {
		return err
	}
	if len(swarms) == 0 {
		return nil
	}

	result, err := c.client.ScanToken(ctx, mint, userKey)
	if err != nil {
		return err
	}

	tokenName := result.TokenSymbol
	if tokenName == "" {
		tokenName = result.TokenName
	}
	if tokenName == "" {
		tokenName = pageName
	}
	if tokenName == "" {
		tokenName = domain.ShortMint(mint)
	}

	c.logger.Printf("scan result token=%s riskScore=%.1f risk=%s",
		tokenName, result.RiskScore, result.OverallRisk)

	for _, swarm := range swarms {
		c.shareWithSwarm(ctx, userKey, swarm, mint, tokenName, result)
	}
	observability.DefaultMetrics.LastSuccessfulScan.SetToCurrentTime()
	return nil
}

// shareWithSwarm submits one signal. Failures are logged, never fatal, so
// one swarm cannot poison the fan-out.
func (c *Coordinator) shareWithSwarm(ctx context.Context, userKey string, swarm domain.Swarm, mint, tokenName string, result *domain.ScanResult) {
	score := result.RiskScore
	consensus, err := c.client.SubmitSignal(ctx, &api.SignalSubmission{
		Wallet:      userKey,
		SwarmCode:   swarm.Code,
		TokenMint:   mint,
		TokenName:   result.TokenName,
		TokenSymbol: result.TokenSymbol,
		TokenImage:  result.TokenImage,
		Signal: api.SignalPayload{
			Type:      domain.SignalRugDetection,
			RiskScore: &score,
			Signals:   result.Signals,
		},
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			c.logger.Printf("signal rejected by %s: %v", swarm.Code, rejected)
			observability.RecordSignalRejected()
		} else {
			c.logger.Printf("share with %s failed: %v", swarm.Code, err)
		}
		return
	}
	observability.RecordSignalSubmitted(domain.SignalRugDetection)
	if consensus == nil {
		c.logger.Printf("signal accepted by %s but no consensus returned", swarm.Code)
		return
	}

	now := time.Now().UnixMilli()

	// Every consensus lands in the feed regardless of tier.
	err = c.emit.EmitScanResult(&relay.ScanResultMessage{
		TokenMint:   mint,
		TokenName:   tokenName,
		OverallRisk: result.OverallRisk,
		RiskTier:    consensus.RiskTier.String(),
		RiskScore:   consensus.AvgRiskScore,
		Message:     consensus.Message,
		SwarmCode:   swarm.Code,
		SwarmName:   swarm.Name,
		MemberCount: consensus.MemberCount,
		Timestamp:   now,
	})
	if err != nil {
		c.logger.Printf("emit scan result: %v", err)
	}

	// The alert decision is the service's alone.
	if consensus.AlertTriggered {
		c.logger.Printf("push alert: %s", consensus.Message)
		observability.RecordAlertTriggered(consensus.AlertType)
		err = c.emit.EmitSwarmAlert(&relay.SwarmAlertMessage{
			AlertType:   consensus.AlertType,
			Message:     consensus.Message,
			TokenMint:   mint,
			TokenName:   tokenName,
			OverallRisk: result.OverallRisk,
			SwarmCode:   swarm.Code,
			SwarmName:   swarm.Name,
			RiskScore:   consensus.AvgRiskScore,
		})
		if err != nil {
			c.logger.Printf("emit swarm alert: %v", err)
		}
	}
}

// ShareSentiment scores a block of text and shares a sentiment signal for
// the first mint it mentions. Text without a valid mint is ignored.
func (c *Coordinator) ShareSentiment(ctx context.Context, text string) error {
	addresses := extract.Addresses(text)
	if len(addresses) == 0 {
		return nil
	}
	mint := addresses[0]

	userKey, swarms, err := c.identity(ctx)
	if err != nil {
		return err
	}
	if len(swarms) == 0 {
		return nil
	}

	sentiment, err := c.client.AnalyzeSentiment(ctx, text, mint)
	if err != nil {
		return err
	}
	c.logger.Printf("sentiment score=%.2f for %s", sentiment.SentimentScore, domain.ShortMint(mint))

	for _, swarm := range swarms {
		score := sentiment.SentimentScore
		consensus, err := c.client.SubmitSignal(ctx, &api.SignalSubmission{
			Wallet:    userKey,
			SwarmCode: swarm.Code,
			TokenMint: mint,
			Signal: api.SignalPayload{
				Type:           domain.SignalSentiment,
				SentimentScore: &score,
				Signals:        sentiment.Signals,
			},
			Timestamp: time.Now().UnixMilli(),
		})
		if err != nil {
			c.logger.Printf("share sentiment with %s failed: %v", swarm.Code, err)
			continue
		}
		observability.RecordSignalSubmitted(domain.SignalSentiment)

		if consensus != nil && consensus.AlertTriggered {
			err = c.emit.EmitSwarmAlert(&relay.SwarmAlertMessage{
				AlertType: consensus.AlertType,
				Message:   consensus.Message,
				TokenMint: mint,
				SwarmCode: swarm.Code,
				SwarmName: swarm.Name,
			})
			if err != nil {
				c.logger.Printf("emit sentiment alert: %v", err)
			}
		}
	}
	return nil
}
