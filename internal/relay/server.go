package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swarmlink/internal/api"
	"swarmlink/internal/observability"
)

// Default server timeouts.
const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultPongTimeout  = 60 * time.Second
	DefaultPingInterval = 30 * time.Second
)

// Handlers receives the agent-originated messages. Nil entries drop the
// corresponding type.
type Handlers struct {
	ScanResult  func(ctx context.Context, msg *ScanResultMessage) error
	SwarmAlert  func(ctx context.Context, msg *SwarmAlertMessage) error
	WalletSync  func(ctx context.Context, msg *WalletSyncMessage) error
	ActiveSwarm func(ctx context.Context, msg *ActiveSwarmMessage) error
}

// Server accepts agent connections and dispatches their traffic.
type Server struct {
	proxy    *Proxy
	handlers Handlers
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*serverConn]struct{}
}

// NewServer creates a relay Server.
func NewServer(proxy *Proxy, handlers Handlers, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		proxy:    proxy,
		handlers: handlers,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*serverConn]struct{}),
	}
}

type serverConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *serverConn) writeEnvelope(env *Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
	return c.conn.WriteJSON(env)
}

// ServeHTTP upgrades the request and serves the agent until it hangs up.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade failed: %v", err)
		return
	}

	sc := &serverConn{conn: conn}
	s.mu.Lock()
	s.conns[sc] = struct{}{}
	s.mu.Unlock()
	observability.DefaultMetrics.RelayConnections.Inc()

	defer func() {
		s.mu.Lock()
		delete(s.conns, sc)
		s.mu.Unlock()
		observability.DefaultMetrics.RelayConnections.Dec()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
		return nil
	})

	ctx := r.Context()
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("agent connection error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(DefaultPongTimeout))
		s.dispatch(ctx, sc, &env)
	}
}

// Broadcast pushes an envelope to every connected agent.
func (s *Server) Broadcast(msgType string, payload any) {
	env, err := newEnvelope(msgType, 0, payload)
	if err != nil {
		s.logger.Printf("marshal broadcast %s: %v", msgType, err)
		return
	}

	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for sc := range s.conns {
		conns = append(conns, sc)
	}
	s.mu.Unlock()

	for _, sc := range conns {
		if err := sc.writeEnvelope(env); err != nil {
			s.logger.Printf("broadcast %s: %v", msgType, err)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sc *serverConn, env *Envelope) {
	observability.RecordRelayMessage(env.Type, "in")

	switch env.Type {
	case TypeAPIFetch:
		s.handleFetch(ctx, sc, env)

	case TypeScanResult:
		var msg ScanResultMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			s.logger.Printf("decode scan result: %v", err)
			return
		}
		if s.handlers.ScanResult != nil {
			if err := s.handlers.ScanResult(ctx, &msg); err != nil {
				s.logger.Printf("handle scan result: %v", err)
			}
		}

	case TypeSwarmAlert:
		var msg SwarmAlertMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			s.logger.Printf("decode swarm alert: %v", err)
			return
		}
		if s.handlers.SwarmAlert != nil {
			if err := s.handlers.SwarmAlert(ctx, &msg); err != nil {
				s.logger.Printf("handle swarm alert: %v", err)
			}
		}

	case TypeWalletSync:
		var msg WalletSyncMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			s.logger.Printf("decode wallet sync: %v", err)
			return
		}
		if s.handlers.WalletSync != nil {
			if err := s.handlers.WalletSync(ctx, &msg); err != nil {
				s.logger.Printf("handle wallet sync: %v", err)
			}
		}

	case TypeActiveSwarm:
		var msg ActiveSwarmMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			s.logger.Printf("decode active swarm: %v", err)
			return
		}
		if s.handlers.ActiveSwarm != nil {
			if err := s.handlers.ActiveSwarm(ctx, &msg); err != nil {
				s.logger.Printf("handle active swarm: %v", err)
			}
		}

	default:
		s.logger.Printf("unknown message type %q", env.Type)
	}
}

func (s *Server) handleFetch(ctx context.Context, sc *serverConn, env *Envelope) {
	var req api.FetchRequest
	result := &FetchResult{}
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		result.Error = "malformed fetch request"
	} else {
		result = s.proxy.Handle(ctx, &req)
	}

	reply, err := newEnvelope(TypeAPIFetchResult, env.ID, result)
	if err != nil {
		s.logger.Printf("marshal fetch result: %v", err)
		return
	}
	if err := sc.writeEnvelope(reply); err != nil {
		s.logger.Printf("write fetch result: %v", err)
	}
}
