package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// outboundQueueSize bounds the per-session send queue. A slow reader fills
// its own queue and gets disconnected; it can never stall another session.
const outboundQueueSize = 256

// wsConnection defines the interface for WebSocket connection operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error) // Read the next message from the connection
	WriteMessage(messageType int, data []byte) error     // Write a message to the connection
	Close() error                                        // Close the connection
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Client is the server's view of one connected socket: a session. It owns a
// process-unique session id, decodes inbound frames, and serializes outbound
// writes through a single writer goroutine fed by a bounded queue.
//
// A client processes its own inbound frames serially in readPump; outbound
// sends may arrive from any goroutine (the fan-out) and only ever enqueue.
type Client struct {
	conn      wsConnection
	hub       *Hub
	sessionID types.SessionIDType

	send chan []byte

	mu     sync.Mutex
	closed bool
}

// SessionID returns the session's process-unique id.
func (c *Client) SessionID() types.SessionIDType {
	return c.sessionID
}

// Disconnect closes the session's outbound queue, which drives the writePump
// to send a close frame and drop the connection. Safe to call from any
// goroutine, any number of times.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// Closing the channel triggers the writePump to send CloseMessage and
	// then close the connection.
	close(c.send)
}

// readPump continuously processes incoming WebSocket frames from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadLimit(c.hub.maxEventSize)

	if c.hub.heartbeat.enabled {
		deadline := c.hub.heartbeat.interval + c.hub.heartbeat.timeout
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(deadline))
		})
	}

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ctx := context.WithValue(context.Background(), logging.SessionIDKey, string(c.sessionID))
		c.hub.route(ctx, c, data)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	writeWait := 10 * time.Second

	var pings <-chan time.Time
	if c.hub.heartbeat.enabled {
		ticker := time.NewTicker(c.hub.heartbeat.interval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Error(context.Background(), "error writing message",
					zap.String("sessionId", string(c.sessionID)), zap.Error(err))
				return
			}
		case <-pings:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send JSON-encodes msg and enqueues it for delivery. Sending to a closed
// session is a silent no-op.
func (c *Client) Send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error(context.Background(), "Failed to marshal outbound message",
			zap.String("sessionId", string(c.sessionID)), zap.Error(err))
		return
	}
	c.SendRaw(data)
}

// SendRaw enqueues pre-serialized data. If the session's queue is full the
// session is disconnected rather than blocking the caller.
func (c *Client) SendRaw(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// The queue can close concurrently with a fan-out send.
	defer func() {
		if r := recover(); r != nil {
			logging.GetLogger().Debug("Recovered from send to closed session",
				zap.String("sessionId", string(c.sessionID)))
		}
	}()

	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "Session send queue full - disconnecting slow reader",
			zap.String("sessionId", string(c.sessionID)))
		c.Disconnect()
	}
}

// SendError reports a local failure to this session only.
func (c *Client) SendError(err error) {
	c.Send(types.NewErrorMessage(err))
}
