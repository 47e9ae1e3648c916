// Package main provides the relay daemon that backs the scan agents:
// - Relay (continuous): WebSocket channel, API proxy with allow-list
// - Guardian (scheduled): account alert polling and notifications
// - State: activity feed, alert histories, identity, signal archive
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"swarmlink/internal/api"
	"swarmlink/internal/domain"
	"swarmlink/internal/guardian"
	"swarmlink/internal/notify"
	"swarmlink/internal/observability"
	"swarmlink/internal/relay"
	"swarmlink/internal/storage"
	chstore "swarmlink/internal/storage/clickhouse"
	"swarmlink/internal/storage/memory"
	"swarmlink/internal/storage/migrations"
	pgstore "swarmlink/internal/storage/postgres"
)

// Daemon holds all components of the relay service.
type Daemon struct {
	// Configuration
	listenAddr    string
	apiBase       string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool

	// Stores
	stores  *allStores
	archive *chstore.SignalArchive

	// Components
	client  *api.Client
	server  *relay.Server
	manager *notify.Manager
	badge   *notify.Badge
	poller  *guardian.Poller
	logger  *log.Logger

	// State
	mu           sync.Mutex
	started      time.Time
	scansStored  int
	alertsStored int
	lastScanAt   time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	feedStore     storage.FeedStore
	alertStore    storage.AlertStore
	guardianStore storage.GuardianStore
	notifStore    storage.NotifStore
	identityStore storage.IdentityStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("SWARMLINK_LISTEN_ADDR", ":8787"), "HTTP and relay listen address")
	apiBase := flag.String("api-base", envOr("SWARMLINK_API_BASE", api.DefaultBaseURL), "Remote service API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the signal archive")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	guardianInterval := flag.Duration("guardian-interval", time.Minute, "Guardian poll interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[relayd] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, archive, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	client := api.NewClient(api.NewHTTPFetcher(), api.WithBaseURL(*apiBase))

	d := &Daemon{
		listenAddr:    *listenAddr,
		apiBase:       *apiBase,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		stores:        stores,
		archive:       archive,
		client:        client,
		logger:        logger,
		started:       time.Now(),
	}

	d.manager = notify.NewManager(notify.NewLogSink(logger), stores.notifStore, logger)
	d.server = relay.NewServer(
		relay.NewProxy(api.NewHTTPFetcher(), *apiBase),
		relay.Handlers{
			ScanResult:  d.handleScanResult,
			SwarmAlert:  d.handleSwarmAlert,
			WalletSync:  d.handleWalletSync,
			ActiveSwarm: d.handleActiveSwarm,
		},
		log.New(os.Stdout, "[relay] ", log.LstdFlags|log.Lshortfile),
	)
	d.badge = notify.NewBadge(d.server)
	d.poller = guardian.NewPoller(client, stores.guardianStore, stores.identityStore,
		d.manager, d.badge,
		log.New(os.Stdout, "[guardian] ", log.LstdFlags|log.Lshortfile),
		guardian.WithInterval(*guardianInterval))

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Run the daemon
	err = d.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Daemon error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores, running migrations for the
// database-backed ones.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, *chstore.SignalArchive, func(), error) {
	if useMemory {
		stores := &allStores{
			feedStore:     memory.NewFeedStore(),
			alertStore:    memory.NewAlertStore(),
			guardianStore: memory.NewGuardianStore(),
			notifStore:    memory.NewNotifStore(),
			identityStore: memory.NewIdentityStore(),
		}
		return stores, nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		feedStore:     pgstore.NewFeedStore(pool),
		alertStore:    pgstore.NewAlertStore(pool),
		guardianStore: pgstore.NewGuardianStore(pool),
		notifStore:    pgstore.NewNotifStore(pool),
		identityStore: pgstore.NewIdentityStore(pool),
	}

	// The signal archive is optional; without ClickHouse the daemon keeps
	// only the bounded operator views.
	if clickhouseDSN == "" {
		return stores, nil, func() { pool.Close() }, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, chstore.NewSignalArchive(chConn), cleanup, nil
}

// Run starts the daemon components.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Println("Starting relay daemon...")

	// Restore the badge from persisted membership.
	if swarms, err := d.stores.identityStore.Swarms(ctx); err == nil {
		d.badge.SetSwarmCount(len(swarms))
	}
	if unread, err := d.stores.guardianStore.Unread(ctx); err == nil && unread > 0 {
		d.badge.SetUnread(unread)
	}

	errCh := make(chan error, 2)

	go func() {
		errCh <- d.startHTTPServer(ctx)
	}()

	go d.poller.Run(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleScanResult stores a consensus outcome in the activity feed and,
// when configured, the signal archive.
func (d *Daemon) handleScanResult(ctx context.Context, msg *relay.ScanResultMessage) error {
	entry := &domain.ActivityEntry{
		ID:          time.Now().UnixMilli(),
		TokenMint:   msg.TokenMint,
		TokenName:   msg.TokenName,
		OverallRisk: msg.OverallRisk,
		RiskScore:   msg.RiskScore,
		Message:     msg.Message,
		SwarmCode:   msg.SwarmCode,
		SwarmName:   msg.SwarmName,
		MemberCount: msg.MemberCount,
		Timestamp:   msg.Timestamp,
	}
	if err := d.stores.feedStore.Append(ctx, entry); err != nil {
		return fmt.Errorf("store scan result: %w", err)
	}

	d.mu.Lock()
	d.scansStored++
	d.lastScanAt = time.Now()
	d.mu.Unlock()

	if d.archive != nil {
		err := d.archive.Insert(ctx, []*chstore.SignalRow{{
			TokenMint:   msg.TokenMint,
			SwarmCode:   msg.SwarmCode,
			SignalType:  domain.SignalRugDetection,
			RiskScore:   msg.RiskScore,
			RiskTier:    msg.RiskTier,
			MemberCount: uint32(msg.MemberCount),
			Message:     msg.Message,
			SubmittedAt: time.UnixMilli(msg.Timestamp),
		}})
		if err != nil {
			d.logger.Printf("archive signal: %v", err)
		}
	}
	return nil
}

// handleSwarmAlert stores the alert in history and raises a notification.
func (d *Daemon) handleSwarmAlert(ctx context.Context, msg *relay.SwarmAlertMessage) error {
	record := &domain.AlertRecord{
		ID:        time.Now().UnixMilli(),
		Type:      msg.AlertType,
		Message:   msg.Message,
		TokenMint: msg.TokenMint,
		SwarmCode: msg.SwarmCode,
		SwarmName: msg.SwarmName,
		RiskScore: msg.RiskScore,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := d.stores.alertStore.Append(ctx, record); err != nil {
		return fmt.Errorf("store alert: %w", err)
	}

	d.mu.Lock()
	d.alertsStored++
	d.mu.Unlock()

	if d.archive != nil {
		err := d.archive.Insert(ctx, []*chstore.SignalRow{{
			TokenMint:      msg.TokenMint,
			SwarmCode:      msg.SwarmCode,
			SignalType:     domain.SignalRugDetection,
			RiskScore:      msg.RiskScore,
			AlertTriggered: true,
			AlertType:      msg.AlertType,
			Message:        msg.Message,
			SubmittedAt:    time.Now(),
		}})
		if err != nil {
			d.logger.Printf("archive alert: %v", err)
		}
	}

	return d.manager.SwarmAlert(ctx, msg)
}

// handleWalletSync stores the pushed identity and refreshes membership.
func (d *Daemon) handleWalletSync(ctx context.Context, msg *relay.WalletSyncMessage) error {
	if msg.Wallet == "" && msg.UserID == "" {
		return storage.ErrInvalidInput
	}
	if msg.Wallet != "" && (!domain.ValidMint(msg.Wallet) || !domain.OnCurve(msg.Wallet)) {
		return storage.ErrInvalidInput
	}

	if msg.Wallet != "" {
		if err := d.stores.identityStore.SetWallet(ctx, msg.Wallet); err != nil {
			return err
		}
		d.logger.Printf("wallet synced: %s", domain.ShortMint(msg.Wallet))
	}
	if msg.UserID != "" {
		if err := d.stores.identityStore.SetUserID(ctx, msg.UserID); err != nil {
			return err
		}
	}

	if msg.Wallet != "" {
		swarms, err := d.client.MySwarms(ctx, msg.Wallet)
		if err != nil {
			d.logger.Printf("refresh swarms: %v", err)
			return nil
		}
		if err := d.stores.identityStore.SetSwarms(ctx, swarms); err != nil {
			return err
		}
		d.badge.SetSwarmCount(len(swarms))
	}
	return nil
}

// handleActiveSwarm scopes fan-out to one swarm.
func (d *Daemon) handleActiveSwarm(ctx context.Context, msg *relay.ActiveSwarmMessage) error {
	if msg.Code != "" && !domain.ValidSwarmCode(msg.Code) {
		return storage.ErrInvalidInput
	}
	return d.stores.identityStore.SetActiveSwarm(ctx, msg.Code)
}

// startHTTPServer serves the relay endpoint and the operator API.
func (d *Daemon) startHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Agent relay channel
	mux.Handle("/relay", d.server)

	// Operator API
	mux.HandleFunc("/status", d.handleStatus)
	mux.HandleFunc("/v1/feed", d.handleFeed)
	mux.HandleFunc("/v1/alerts", d.handleAlerts)
	mux.HandleFunc("/v1/guardian/alerts", d.handleGuardianAlerts)
	mux.HandleFunc("/v1/guardian/read", d.handleGuardianRead)
	mux.HandleFunc("/v1/guardian/enabled", d.handleGuardianEnabled)
	mux.HandleFunc("/v1/notifications/click", d.handleNotificationClick)
	mux.HandleFunc("/v1/watchlist", d.handleWatchlist)

	srv := &http.Server{
		Addr:    d.listenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	d.logger.Printf("Listening on %s", d.listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Started      time.Time `json:"started"`
	ScansStored  int       `json:"scans_stored"`
	AlertsStored int       `json:"alerts_stored"`
	LastScanAt   time.Time `json:"last_scan_at,omitempty"`
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(d.started).String(),
		Started:      d.started,
		ScansStored:  d.scansStored,
		AlertsStored: d.alertsStored,
		LastScanAt:   d.lastScanAt,
	}
	d.mu.Unlock()
	writeJSON(w, resp)
}

func (d *Daemon) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := d.stores.feedStore.Feed(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, feed)
}

func (d *Daemon) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := d.stores.alertStore.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []*domain.AlertRecord{}
	}
	writeJSON(w, alerts)
}

func (d *Daemon) handleGuardianAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := d.stores.guardianStore.Alerts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	unread, err := d.stores.guardianStore.Unread(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []*domain.GuardianAlert{}
	}
	writeJSON(w, map[string]any{
		"alerts": alerts,
		"unread": unread,
	})
}

func (d *Daemon) handleGuardianRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := d.poller.MarkRead(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (d *Daemon) handleGuardianEnabled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		enabled, err := d.stores.identityStore.GuardianEnabled(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"enabled": enabled})
	case http.MethodPost:
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if err := d.stores.identityStore.SetGuardianEnabled(ctx, body.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"enabled": body.Enabled})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleNotificationClick consumes a notification handle and returns the
// URL the operator should be taken to.
func (d *Daemon) handleNotificationClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		http.Error(w, "handle is required", http.StatusBadRequest)
		return
	}
	url, err := d.manager.ResolveClick(r.Context(), handle)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"url": url})
}

// handleWatchlist proxies watchlist reads and updates for the synced
// wallet.
func (d *Daemon) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, err := d.stores.identityStore.Wallet(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if wallet == "" {
		http.Error(w, "no wallet synced", http.StatusPreconditionFailed)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tokens, limit, err := d.client.Watchlist(ctx, wallet)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if tokens == nil {
			tokens = []api.WatchedToken{}
		}
		writeJSON(w, map[string]any{"tokens": tokens, "limit": limit})

	case http.MethodPost:
		var body struct {
			Action      string `json:"action"`
			TokenCA     string `json:"tokenCA"`
			TokenName   string `json:"tokenName,omitempty"`
			TokenSymbol string `json:"tokenSymbol,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if body.Action != api.WatchActionWatch && body.Action != api.WatchActionUnwatch {
			http.Error(w, "action must be watch or unwatch", http.StatusBadRequest)
			return
		}
		if !domain.ValidMint(body.TokenCA) {
			http.Error(w, "invalid token address", http.StatusBadRequest)
			return
		}
		err := d.client.UpdateWatchlist(ctx, body.Action, wallet, api.WatchedToken{
			TokenCA:     body.TokenCA,
			TokenName:   body.TokenName,
			TokenSymbol: body.TokenSymbol,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
