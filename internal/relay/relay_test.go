package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"swarmlink/internal/api"
)

type stubFetcher struct {
	resp *api.FetchResponse
	err  error
	got  *api.FetchRequest
}

func (f *stubFetcher) Fetch(_ context.Context, req *api.FetchRequest) (*api.FetchResponse, error) {
	f.got = req
	return f.resp, f.err
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestProxy_AllowList(t *testing.T) {
	fetcher := &stubFetcher{resp: &api.FetchResponse{Status: 200, OK: true}}
	proxy := NewProxy(fetcher, "")

	result := proxy.Handle(context.Background(), &api.FetchRequest{
		URL: "https://evil.example.com/steal",
	})
	if result.Error == "" {
		t.Error("off-prefix URL not blocked")
	}
	if fetcher.got != nil {
		t.Error("blocked request reached the fetcher")
	}

	result = proxy.Handle(context.Background(), &api.FetchRequest{
		URL: api.DefaultBaseURL + "/scan-token",
	})
	if result.Error != "" {
		t.Errorf("allowed URL blocked: %s", result.Error)
	}
	if !result.OK {
		t.Error("fetch result not forwarded")
	}
}

func TestProxy_AlwaysResolves(t *testing.T) {
	fetcher := &stubFetcher{err: context.DeadlineExceeded}
	proxy := NewProxy(fetcher, "")

	result := proxy.Handle(context.Background(), &api.FetchRequest{
		URL: api.DefaultBaseURL + "/scan-token",
	})
	if result == nil {
		t.Fatal("nil result")
	}
	if result.Error == "" {
		t.Error("transport failure not surfaced in result")
	}
}

func TestRelay_FetchRoundTrip(t *testing.T) {
	fetcher := &stubFetcher{resp: &api.FetchResponse{
		Status: 200,
		OK:     true,
		Body:   []byte(`{"success":true}`),
	}}
	server := NewServer(NewProxy(fetcher, ""), Handlers{}, nil)

	srv := httptest.NewServer(server)
	defer srv.Close()

	client, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Fetch(context.Background(), &api.FetchRequest{
		Method: "POST",
		URL:    api.DefaultBaseURL + "/scan-token",
		Body:   []byte(`{"address":"MintA"}`),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(resp.Body) != `{"success":true}` {
		t.Errorf("body = %s", resp.Body)
	}
	if fetcher.got == nil || fetcher.got.Method != "POST" {
		t.Errorf("request not forwarded: %+v", fetcher.got)
	}
}

func TestRelay_FetchBlockedResolvesWithError(t *testing.T) {
	server := NewServer(NewProxy(&stubFetcher{}, ""), Handlers{}, nil)

	srv := httptest.NewServer(server)
	defer srv.Close()

	client, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	_, err = client.Fetch(context.Background(), &api.FetchRequest{
		URL: "https://evil.example.com/steal",
	})
	if err == nil {
		t.Fatal("expected blocked URL error")
	}
	if !strings.Contains(err.Error(), "Blocked URL") {
		t.Errorf("err = %v", err)
	}
}

func TestRelay_ScanResultDispatch(t *testing.T) {
	var mu sync.Mutex
	var received []*ScanResultMessage

	server := NewServer(NewProxy(&stubFetcher{}, ""), Handlers{
		ScanResult: func(_ context.Context, msg *ScanResultMessage) error {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
			return nil
		},
	}, nil)

	srv := httptest.NewServer(server)
	defer srv.Close()

	client, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	err = client.SendScanResult(&ScanResultMessage{
		TokenMint: "MintA",
		RiskTier:  "high",
		RiskScore: 68,
		SwarmCode: "SWARM-ABC123DEF456",
	})
	if err != nil {
		t.Fatalf("SendScanResult failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scan result never dispatched")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if received[0].TokenMint != "MintA" || received[0].RiskScore != 68 {
		t.Errorf("message = %+v", received[0])
	}
}

func TestRelay_BroadcastPush(t *testing.T) {
	server := NewServer(NewProxy(&stubFetcher{}, ""), Handlers{}, nil)

	srv := httptest.NewServer(server)
	defer srv.Close()

	pushed := make(chan *Envelope, 1)
	client, err := Dial(context.Background(), wsURL(srv),
		WithPushHandler(func(env *Envelope) {
			select {
			case pushed <- env:
			default:
			}
		}))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	// Wait for the connection to register before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for {
		server.mu.Lock()
		n := len(server.conns)
		server.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	server.Broadcast(TypeUpdateBadge, &BadgeMessage{Text: "3"})

	select {
	case env := <-pushed:
		if env.Type != TypeUpdateBadge {
			t.Errorf("type = %s", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never arrived")
	}
}

func TestRelay_FetchTimeout(t *testing.T) {
	// A fetcher that never answers within the client's bounded wait.
	slow := &slowFetcher{delay: 5 * time.Second}
	server := NewServer(NewProxy(slow, ""), Handlers{}, nil)

	srv := httptest.NewServer(server)
	defer srv.Close()

	client, err := Dial(context.Background(), wsURL(srv), WithFetchTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	start := time.Now()
	_, err = client.Fetch(context.Background(), &api.FetchRequest{
		URL: api.DefaultBaseURL + "/scan-token",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not bounded")
	}
}

type slowFetcher struct {
	delay time.Duration
}

func (f *slowFetcher) Fetch(ctx context.Context, _ *api.FetchRequest) (*api.FetchResponse, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &api.FetchResponse{Status: 200, OK: true}, nil
}
