package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"swarmlink/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := NewClient(NewHTTPFetcher(), WithBaseURL(srv.URL))
	return client, srv.Close
}

func TestClient_ScanToken(t *testing.T) {
	var gotBody map[string]string
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scan-token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"riskScore":   72.5,
				"overallRisk": "HIGH",
				"tokenName":   "Example Token",
				"tokenSymbol": "EXT",
				"signals":     map[string]any{"lpLocked": false},
			},
		})
	}))
	defer done()

	result, err := client.ScanToken(context.Background(), "MintA", "wallet1")
	if err != nil {
		t.Fatalf("ScanToken failed: %v", err)
	}

	if gotBody["address"] != "MintA" || gotBody["userId"] != "wallet1" {
		t.Errorf("request body = %v", gotBody)
	}
	if result.RiskScore != 72.5 || result.OverallRisk != "HIGH" {
		t.Errorf("result = %+v", result)
	}
	if result.TokenSymbol != "EXT" {
		t.Errorf("symbol = %q", result.TokenSymbol)
	}
	if len(result.Signals) == 0 {
		t.Error("signals not relayed")
	}
}

func TestClient_ScanTokenServiceError(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "token not found"})
	}))
	defer done()

	_, err := client.ScanToken(context.Background(), "MintA", "wallet1")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_SubmitSignal(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub SignalSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Fatalf("decode submission: %v", err)
		}
		if sub.Signal.Type != domain.SignalRugDetection {
			t.Errorf("signal type = %s", sub.Signal.Type)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"swarmConsensus": map[string]any{
				"riskTier":       "high",
				"avgRiskScore":   68.0,
				"memberCount":    5,
				"message":        "5 wallets flagged this token",
				"alertTriggered": true,
				"alertType":      "rug",
			},
		})
	}))
	defer done()

	score := 72.5
	consensus, err := client.SubmitSignal(context.Background(), &SignalSubmission{
		Wallet:    "wallet1",
		SwarmCode: "SWARM-ABC123DEF456",
		TokenMint: "MintA",
		Signal:    SignalPayload{Type: domain.SignalRugDetection, RiskScore: &score},
	})
	if err != nil {
		t.Fatalf("SubmitSignal failed: %v", err)
	}
	if consensus == nil {
		t.Fatal("expected consensus")
	}
	if consensus.RiskTier != domain.TierHigh || !consensus.AlertTriggered {
		t.Errorf("consensus = %+v", consensus)
	}
}

func TestClient_SubmitSignalRejected(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "daily signal limit reached",
			"tier":    "free",
		})
	}))
	defer done()

	_, err := client.SubmitSignal(context.Background(), &SignalSubmission{TokenMint: "MintA"})

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("got %v, want RejectedError", err)
	}
	if rejected.Tier != "free" {
		t.Errorf("tier = %q", rejected.Tier)
	}
}

func TestClient_SubmitSignalNoConsensus(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer done()

	consensus, err := client.SubmitSignal(context.Background(), &SignalSubmission{TokenMint: "MintA"})
	if err != nil {
		t.Fatalf("SubmitSignal failed: %v", err)
	}
	if consensus != nil {
		t.Errorf("expected nil consensus, got %+v", consensus)
	}
}

func TestClient_GuardianAlerts(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != "100" {
			t.Errorf("since = %s", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"alerts": []map[string]any{
				{"id": "g1", "type": "rug_alert", "tokenCA": "MintA", "message": "LP pulled", "severity": "high"},
			},
			"cursor": 250,
		})
	}))
	defer done()

	alerts, cursor, err := client.GuardianAlerts(context.Background(), "wallet1", 100)
	if err != nil {
		t.Fatalf("GuardianAlerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != "rug_alert" {
		t.Errorf("alerts = %+v", alerts)
	}
	if cursor != 250 {
		t.Errorf("cursor = %d, want 250", cursor)
	}
}

func TestClient_MySwarms(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("wallet"); got != "wallet1" {
			t.Errorf("wallet = %s", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"swarms": []map[string]any{
				{"code": "SWARM-ABC123DEF456", "name": "Alpha Hunters", "members": 12},
			},
		})
	}))
	defer done()

	swarms, err := client.MySwarms(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("MySwarms failed: %v", err)
	}
	if len(swarms) != 1 || swarms[0].Name != "Alpha Hunters" {
		t.Errorf("swarms = %+v", swarms)
	}
}

func TestClient_UpdateWatchlistAlreadyWatching(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Already watching"})
	}))
	defer done()

	err := client.UpdateWatchlist(context.Background(), WatchActionWatch, "wallet1", WatchedToken{TokenCA: "MintA"})
	if err != nil {
		t.Errorf("already-watching treated as failure: %v", err)
	}
}

func TestClient_HTTPError(t *testing.T) {
	client, done := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer done()

	_, err := client.ScanToken(context.Background(), "MintA", "wallet1")
	if err == nil {
		t.Fatal("expected error on 502")
	}
}
