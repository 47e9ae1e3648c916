package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"swarmlink/internal/api"
)

// DefaultFetchTimeout bounds the wait for a proxied fetch so a lost reply
// never wedges the agent.
const DefaultFetchTimeout = 10 * time.Second

// Client is the agent side of the relay channel. It implements
// api.Fetcher by proxying requests through the daemon.
type Client struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps fetch request IDs to their waiting callers.
	pending   map[uint64]chan *FetchResult
	pendingMu sync.Mutex

	// onPush receives daemon-originated envelopes, nil to ignore.
	onPush func(env *Envelope)

	fetchTimeout time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithFetchTimeout bounds how long a proxied fetch waits for its reply.
func WithFetchTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.fetchTimeout = d
	}
}

// WithPushHandler registers a callback for daemon-originated envelopes.
func WithPushHandler(fn func(env *Envelope)) ClientOption {
	return func(c *Client) {
		c.onPush = fn
	}
}

// Dial connects to the daemon's relay endpoint.
func Dial(ctx context.Context, endpoint string, opts ...ClientOption) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("relay dial: %w", err)
	}

	c := &Client{
		conn:         conn,
		pending:      make(map[uint64]chan *FetchResult),
		fetchTimeout: DefaultFetchTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

var _ api.Fetcher = (*Client)(nil)

// Fetch proxies one request through the daemon and waits for its result.
func (c *Client) Fetch(ctx context.Context, req *api.FetchRequest) (*api.FetchResponse, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("relay client closed")
	}

	id := c.requestID.Add(1)
	resultCh := make(chan *FetchResult, 1)

	c.pendingMu.Lock()
	c.pending[id] = resultCh
	c.pendingMu.Unlock()

	if err := c.send(TypeAPIFetch, id, req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case result := <-resultCh:
		if result.Error != "" {
			return nil, fmt.Errorf("proxy: %s", result.Error)
		}
		return &api.FetchResponse{
			Status: result.Status,
			OK:     result.OK,
			Body:   result.Body,
		}, nil
	case <-time.After(c.fetchTimeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("proxy fetch timeout after %s", c.fetchTimeout)
	case <-c.done:
		return nil, fmt.Errorf("relay client closed")
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

// SendScanResult pushes a consensus outcome to the daemon.
func (c *Client) SendScanResult(msg *ScanResultMessage) error {
	return c.send(TypeScanResult, 0, msg)
}

// SendSwarmAlert pushes a triggered alert to the daemon.
func (c *Client) SendSwarmAlert(msg *SwarmAlertMessage) error {
	return c.send(TypeSwarmAlert, 0, msg)
}

// SendWalletSync pushes a synced identity to the daemon.
func (c *Client) SendWalletSync(msg *WalletSyncMessage) error {
	return c.send(TypeWalletSync, 0, msg)
}

// SendActiveSwarm pushes an active swarm change to the daemon.
func (c *Client) SendActiveSwarm(msg *ActiveSwarmMessage) error {
	return c.send(TypeActiveSwarm, 0, msg)
}

func (c *Client) send(msgType string, id uint64, payload any) error {
	env, err := newEnvelope(msgType, id, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

// Close shuts the channel down and releases pending fetches.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	c.writeMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if !c.closed.Load() {
				c.Close()
			}
			return
		}

		if env.Type == TypeAPIFetchResult {
			c.resolveFetch(&env)
			continue
		}

		if c.onPush != nil {
			c.onPush(&env)
		}
	}
}

func (c *Client) resolveFetch(env *Envelope) {
	var result FetchResult
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		result = FetchResult{Error: "malformed fetch result"}
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- &result:
		default:
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(DefaultPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}
