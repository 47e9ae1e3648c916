// Package main provides the scan agent. It dials the relay daemon,
// routes all service API calls through the daemon's proxied channel and
// runs the detection pipeline against token pages:
// - One-shot: scan a single page URL
// - Follow: watch a URL source file and scan every navigation
// - Sentiment: analyze a text block and share the signal
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"

	"swarmlink/internal/api"
	"swarmlink/internal/extract"
	"swarmlink/internal/navwatch"
	"swarmlink/internal/relay"
	"swarmlink/internal/scan"
	"swarmlink/internal/storage/memory"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	relayEndpoint := flag.String("relay", envOr("SWARMLINK_RELAY", "ws://127.0.0.1:8787/relay"), "Relay daemon WebSocket endpoint")
	wallet := flag.String("wallet", os.Getenv("SWARMLINK_WALLET"), "Wallet address to sync")
	userID := flag.String("user-id", os.Getenv("SWARMLINK_USER_ID"), "Service user ID")
	activeSwarm := flag.String("active-swarm", "", "Scope signal fan-out to one swarm code")
	pageURL := flag.String("url", "", "Scan a single page URL and exit")
	urlFile := flag.String("url-file", "", "Follow mode: poll this file for the current page URL")
	sentiment := flag.String("sentiment", "", "Analyze a text block for sentiment ('-' reads stdin)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scanner] ", log.LstdFlags|log.Lshortfile)

	if *pageURL == "" && *urlFile == "" && *sentiment == "" {
		logger.Fatal("one of --url, --url-file or --sentiment is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Connect to the relay; badge pushes are logged so the operator sees
	// state changes even in a headless session.
	relayClient, err := relay.Dial(ctx, *relayEndpoint, relay.WithPushHandler(func(env *relay.Envelope) {
		if env.Type != relay.TypeUpdateBadge {
			return
		}
		var badge relay.BadgeMessage
		if err := json.Unmarshal(env.Payload, &badge); err != nil {
			return
		}
		logger.Printf("badge: %q (%s)", badge.Text, badge.Color)
	}))
	if err != nil {
		logger.Fatalf("Failed to connect to relay at %s: %v", *relayEndpoint, err)
	}
	defer relayClient.Close()
	logger.Printf("Connected to relay at %s", *relayEndpoint)

	// The agent never talks to the service directly; every call goes
	// through the daemon's allow-listed proxy.
	client := api.NewClient(relayClient)

	// A wallet or an anonymous user id each make a valid identity; the
	// coordinator only needs one of the two.
	ids := memory.NewIdentityStore()
	if *wallet != "" {
		if err := ids.SetWallet(ctx, *wallet); err != nil {
			logger.Fatalf("set wallet: %v", err)
		}
	}
	if *userID != "" {
		if err := ids.SetUserID(ctx, *userID); err != nil {
			logger.Fatalf("set user id: %v", err)
		}
	}
	if *wallet != "" || *userID != "" {
		err := relayClient.SendWalletSync(&relay.WalletSyncMessage{
			Wallet: *wallet,
			UserID: *userID,
		})
		if err != nil {
			logger.Printf("wallet sync: %v", err)
		}
	}
	if *activeSwarm != "" {
		if err := ids.SetActiveSwarm(ctx, *activeSwarm); err != nil {
			logger.Fatalf("set active swarm: %v", err)
		}
		err := relayClient.SendActiveSwarm(&relay.ActiveSwarmMessage{Code: *activeSwarm})
		if err != nil {
			logger.Printf("active swarm sync: %v", err)
		}
	}

	coordinator := scan.NewCoordinator(client, ids, &relayEmitter{client: relayClient}, logNotifier{logger}, logger)
	agent := &Agent{
		coordinator: coordinator,
		registry:    extract.NewRegistry(),
		pages:       &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}

	switch {
	case *sentiment != "":
		text := *sentiment
		if text == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				logger.Fatalf("read stdin: %v", err)
			}
			text = string(data)
		}
		if err := coordinator.ShareSentiment(ctx, text); err != nil {
			logger.Fatalf("sentiment: %v", err)
		}

	case *pageURL != "":
		agent.ScanPage(ctx, *pageURL)

	case *urlFile != "":
		agent.Follow(ctx, *urlFile)
	}
}

// Agent drives the extraction pipeline for page URLs.
type Agent struct {
	coordinator *scan.Coordinator
	registry    *extract.Registry
	pages       *http.Client
	logger      *log.Logger
}

// ScanPage extracts the token mint from one page and runs the scan.
// Unsupported sites and pages without a mint are skipped quietly.
func (a *Agent) ScanPage(ctx context.Context, pageURL string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		a.logger.Printf("bad page URL %q: %v", pageURL, err)
		return
	}

	adapter := a.registry.ForHostname(parsed.Hostname())
	if adapter == nil {
		return
	}

	// On DOM-resolved sites each navigation is a new subject.
	if adapter.DOMOnly() {
		a.coordinator.ResetSession()
	}

	mint := adapter.FromURL(pageURL)
	pageName := ""

	// DOM-only sites encode a pair address in the URL, never the mint;
	// for those the rendered page is the only source.
	if mint == "" || adapter.DOMOnly() {
		doc := a.fetchDocument(ctx, pageURL)
		if doc != nil {
			if mint == "" {
				mint = adapter.FromDOM(doc)
			}
			pageName = adapter.DisplayName(doc, doc.Find("title").Text())
		}
	}

	if mint == "" {
		a.logger.Printf("no token mint on %s page %s", adapter.Name, pageURL)
		return
	}

	if err := a.coordinator.ScanAndShare(ctx, mint, pageName); err != nil {
		a.logger.Printf("scan %s: %v", mint, err)
	}
}

// Follow polls a URL source file and scans every distinct URL it sees.
// The file stands in for the browser address bar: whatever writes it
// drives the pipeline.
func (a *Agent) Follow(ctx context.Context, path string) {
	source := func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}

	watcher := navwatch.New(source, func(pageURL string) {
		if pageURL == "" {
			return
		}
		a.ScanPage(ctx, pageURL)
	})

	// The baseline URL at startup still gets scanned once.
	if initial := source(); initial != "" {
		a.ScanPage(ctx, initial)
	}

	a.logger.Printf("Following %s", path)
	watcher.Run(ctx)
}

// fetchDocument retrieves and parses the page for DOM extraction.
func (a *Agent) fetchDocument(ctx context.Context, pageURL string) *goquery.Document {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}

	resp, err := a.pages.Do(req)
	if err != nil {
		a.logger.Printf("fetch page %s: %v", pageURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Printf("fetch page %s: status %d", pageURL, resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bufio.NewReader(resp.Body))
	if err != nil {
		a.logger.Printf("parse page %s: %v", pageURL, err)
		return nil
	}
	return doc
}

// relayEmitter delivers pipeline outcomes over the relay channel.
type relayEmitter struct {
	client *relay.Client
}

func (e *relayEmitter) EmitScanResult(msg *relay.ScanResultMessage) error {
	return e.client.SendScanResult(msg)
}

func (e *relayEmitter) EmitSwarmAlert(msg *relay.SwarmAlertMessage) error {
	return e.client.SendSwarmAlert(msg)
}

var _ scan.Emitter = (*relayEmitter)(nil)

// logNotifier prints operator notices to the agent log.
type logNotifier struct {
	logger *log.Logger
}

func (n logNotifier) Notify(message string) {
	n.logger.Println(message)
}

var _ scan.Notifier = (logNotifier{})

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
