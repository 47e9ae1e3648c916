package relay

import (
	"context"
	"strings"
	"time"

	"swarmlink/internal/api"
	"swarmlink/internal/observability"
)

// Proxy executes API fetches on behalf of scan agents. Only URLs under
// the allowed prefix are forwarded; everything else is refused without
// touching the network.
type Proxy struct {
	allowedPrefix string
	fetcher       api.Fetcher
}

// NewProxy creates a Proxy forwarding to the given fetcher. An empty
// prefix defaults to the service API base.
func NewProxy(fetcher api.Fetcher, allowedPrefix string) *Proxy {
	if allowedPrefix == "" {
		allowedPrefix = api.DefaultBaseURL
	}
	return &Proxy{
		allowedPrefix: allowedPrefix,
		fetcher:       fetcher,
	}
}

// Handle resolves one proxied request. It never returns an error; refusals
// and transport failures are encoded in the result so the agent's pending
// call always completes.
func (p *Proxy) Handle(ctx context.Context, req *api.FetchRequest) *FetchResult {
	if req == nil || !strings.HasPrefix(req.URL, p.allowedPrefix) {
		observability.DefaultMetrics.ProxyFetchBlocked.Inc()
		return &FetchResult{Error: "Blocked URL"}
	}

	start := time.Now()
	resp, err := p.fetcher.Fetch(ctx, req)
	observability.DefaultMetrics.ProxyFetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return &FetchResult{Error: err.Error()}
	}

	return &FetchResult{
		Status: resp.Status,
		OK:     resp.OK,
		Body:   resp.Body,
	}
}
