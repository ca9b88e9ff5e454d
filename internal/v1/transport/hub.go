package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/board"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/config"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/ratelimit"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// connectedGreeting is the message field of the CONNECTED frame.
const connectedGreeting = "Connected to whiteboard server"

type heartbeatConfig struct {
	enabled  bool
	interval time.Duration
	timeout  time.Duration
}

// Hub owns the transport side of the system: it upgrades sockets into
// sessions, tracks room membership, routes inbound frames into the board
// registry, and fans accepted events back out to room members.
//
// The board registry is injected; the Hub never creates its own. All entry
// points (WebSocket and HTTP) must share one registry so every path sees the
// same room state.
type Hub struct {
	registry   *board.Registry
	membership *Membership
	limiter    *ratelimit.RateLimiter

	allowedOrigins []string
	heartbeat      heartbeatConfig
	maxEventSize   int64
	limits         types.Limits

	mu      sync.Mutex
	clients map[*Client]struct{}

	now func() time.Time // server clock; replaced in tests
}

// NewHub creates a Hub around the shared registry. cfg and limiter may be nil
// in tests; defaults then apply and rate limiting is skipped.
func NewHub(registry *board.Registry, cfg *config.Config, limiter *ratelimit.RateLimiter) *Hub {
	h := &Hub{
		registry:       registry,
		membership:     NewMembership(),
		limiter:        limiter,
		allowedOrigins: []string{"http://localhost:3000"},
		heartbeat:      heartbeatConfig{enabled: true, interval: 30 * time.Second, timeout: 10 * time.Second},
		maxEventSize:   100 * 1024,
		limits:         types.DefaultLimits,
		clients:        make(map[*Client]struct{}),
		now:            time.Now,
	}
	if cfg != nil {
		h.allowedOrigins = config.ParseAllowedOrigins(cfg.AllowedOrigins, h.allowedOrigins)
		h.heartbeat = heartbeatConfig{
			enabled:  cfg.HeartbeatEnabled,
			interval: cfg.HeartbeatInterval,
			timeout:  cfg.HeartbeatTimeout,
		}
		if cfg.MaxEventSizeBytes > 0 {
			h.maxEventSize = cfg.MaxEventSizeBytes
		}
		if cfg.MaxPointsPerEvent > 0 {
			h.limits = types.Limits{MaxPoints: cfg.MaxPointsPerEvent}
		}
	}
	return h
}

// ServeWs upgrades an HTTP request to a WebSocket session.
func (h *Hub) ServeWs(c *gin.Context) {
	// Rate limiting first; a rejected connection costs nothing else.
	if h.limiter != nil && !h.limiter.CheckWebSocket(c) {
		return // Response already written by CheckWebSocket
	}

	conn, err := h.upgradeWebSocket(c)
	if err != nil {
		return
	}

	h.HandleConnection(conn)
}

// HandleConnection takes an established WebSocket connection and sets up the
// session: a fresh session id, the CONNECTED greeting, and the message pumps.
func (h *Hub) HandleConnection(conn wsConnection) *Client {
	client := &Client{
		conn:      conn,
		hub:       h,
		sessionID: types.SessionIDType(uuid.New().String()),
		send:      make(chan []byte, outboundQueueSize),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	metrics.IncConnection()
	logging.Info(context.Background(), "Session connected",
		zap.String("sessionId", string(client.sessionID)))

	client.Send(types.NewConnectedMessage(client.sessionID, connectedGreeting))

	go client.writePump()
	go client.readPump()
	return client
}

// handleDisconnect removes the session from membership and the client set.
// Called from the readPump defer, so it runs exactly once per session.
func (h *Hub) handleDisconnect(client *Client) {
	if roomID, ok := h.membership.Disconnect(client); ok {
		logging.Info(context.Background(), "Session left room on disconnect",
			zap.String("sessionId", string(client.sessionID)),
			zap.String("roomId", string(roomID)))
	}

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.Disconnect()
}

// Publish fans msg out to every session currently in roomID, the sender
// included: the originator learns its assigned sequence number from its own
// broadcast.
func (h *Hub) Publish(roomID types.RoomIDType, msg any) {
	h.publish(roomID, msg, nil)
}

// PublishExcept fans msg out to every session in roomID except one.
func (h *Hub) PublishExcept(roomID types.RoomIDType, msg any, except *Client) {
	h.publish(roomID, msg, except)
}

func (h *Hub) publish(roomID types.RoomIDType, msg any, except *Client) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error(context.Background(), "Failed to marshal broadcast message",
			zap.String("roomId", string(roomID)), zap.Error(err))
		return
	}

	// Marshal once, then deliver over a membership snapshot so the table
	// lock is not held during sends.
	for _, member := range h.membership.MembersOf(roomID) {
		if member == except {
			continue
		}
		member.SendRaw(data)
		metrics.BroadcastsTotal.Inc()
	}
}

// Membership exposes the table for the HTTP layer's user counts.
func (h *Hub) Membership() *Membership {
	return h.membership
}

// Shutdown disconnects every session. Close frames are written by each
// session's writePump as its queue closes.
func (h *Hub) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "Shutting down Hub - closing all sessions...")

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Disconnect()
	}

	logging.Info(ctx, "All sessions closed", zap.Int("count", len(clients)))
	return nil
}
