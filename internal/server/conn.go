package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Application-level ping cadence
	pingPeriod = 15 * time.Second

	// Sockets that miss pongs for this long are reaped
	heartbeatTimeout = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Conn wraps one WebSocket with a buffered send queue so a slow client
// never blocks a broadcast.
type Conn struct {
	ws       *websocket.Conn
	send     chan []byte
	code     string
	playerID string // empty for spectators
	registry *Registry
	logger   *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	lastPong time.Time
}

func (c *Conn) start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the socket down. Safe to call from any goroutine, any
// number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.ws.Close()
	})
}

// Send queues a message. A full buffer means the client has stopped
// draining; the connection is closed rather than blocking the caller.
func (c *Conn) Send(msg []byte) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection",
			"code", c.code, "player_id", c.playerID)
		c.registry.drop(c)
		return websocket.ErrCloseSent
	}
}

func (c *Conn) setLastPong(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = at
}

func (c *Conn) lastPongAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// readPump consumes client messages until the socket dies. Only pong
// heartbeats are meaningful; anything else is ignored.
func (c *Conn) readPump() {
	defer c.registry.drop(c)
	c.ws.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "pong" {
			c.setLastPong(c.registry.clock.Now())
		}
	}
}

// writePump drains the send queue and emits periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			ping, err := marshalPing(c.registry.clock.Now().Unix())
			if err != nil {
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
