package server

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/pokernight/pokernight/internal/engine"
)

// Registry tracks the live WebSocket connections per game: one named
// connection per seated player plus any number of spectators.
type Registry struct {
	clock  quartz.Clock
	logger *log.Logger

	mu    sync.RWMutex
	games map[string]*gameConns

	// invoked after a connection is removed, outside the registry lock
	onDisconnect func(code, playerID string)
}

type gameConns struct {
	players    map[string]*Conn
	spectators map[*Conn]struct{}
}

func NewRegistry(clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		clock:  clock,
		logger: logger.WithPrefix("registry"),
		games:  make(map[string]*gameConns),
	}
}

// OnDisconnect registers a callback fired whenever a connection drops.
func (r *Registry) OnDisconnect(fn func(code, playerID string)) {
	r.onDisconnect = fn
}

func (r *Registry) newConn(ws *websocket.Conn, code, playerID string) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		ws:       ws,
		send:     make(chan []byte, 64),
		code:     code,
		playerID: playerID,
		registry: r,
		logger:   r.logger,
		ctx:      ctx,
		cancel:   cancel,
		lastPong: r.clock.Now(),
	}
}

func (r *Registry) game(code string) *gameConns {
	g, ok := r.games[code]
	if !ok {
		g = &gameConns{
			players:    make(map[string]*Conn),
			spectators: make(map[*Conn]struct{}),
		}
		r.games[code] = g
	}
	return g
}

// AddPlayer registers a player connection, replacing (and closing) any
// previous connection for the same player id.
func (r *Registry) AddPlayer(ws *websocket.Conn, code, playerID string) *Conn {
	conn := r.newConn(ws, code, playerID)

	r.mu.Lock()
	g := r.game(code)
	old := g.players[playerID]
	g.players[playerID] = conn
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	conn.start()
	return conn
}

// AddSpectator registers an anonymous watching connection.
func (r *Registry) AddSpectator(ws *websocket.Conn, code string) *Conn {
	conn := r.newConn(ws, code, "")

	r.mu.Lock()
	r.game(code).spectators[conn] = struct{}{}
	r.mu.Unlock()

	conn.start()
	return conn
}

// drop removes a connection. A player entry is only removed when it
// still points at this exact connection, so a replacement connection
// survives the old one's teardown.
func (r *Registry) drop(c *Conn) {
	r.mu.Lock()
	removed := false
	if g, ok := r.games[c.code]; ok {
		if c.playerID != "" {
			if g.players[c.playerID] == c {
				delete(g.players, c.playerID)
				removed = true
			}
		} else if _, ok := g.spectators[c]; ok {
			delete(g.spectators, c)
			removed = true
		}
		if len(g.players) == 0 && len(g.spectators) == 0 {
			delete(r.games, c.code)
		}
	}
	r.mu.Unlock()

	c.Close()
	if removed && r.onDisconnect != nil {
		r.onDisconnect(c.code, c.playerID)
	}
}

// ConnectedPlayerIDs returns the seated players with a live socket,
// sorted for stable output.
func (r *Registry) ConnectedPlayerIDs(code string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[code]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SpectatorCount returns the number of watching connections.
func (r *Registry) SpectatorCount(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[code]
	if !ok {
		return 0
	}
	return len(g.spectators)
}

func (r *Registry) snapshot(code string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[code]
	if !ok {
		return nil
	}
	conns := make([]*Conn, 0, len(g.players)+len(g.spectators))
	for _, c := range g.players {
		conns = append(conns, c)
	}
	for c := range g.spectators {
		conns = append(conns, c)
	}
	return conns
}

// Broadcast sends the same payload to every connection of a game.
func (r *Registry) Broadcast(code string, msg []byte) {
	for _, c := range r.snapshot(code) {
		if err := c.Send(msg); err != nil {
			r.logger.Debug("broadcast send failed", "code", code, "player_id", c.playerID)
		}
	}
}

// BroadcastViews sends a per-recipient payload to every connection.
// Spectator connections receive the view built for the spectator
// sentinel.
func (r *Registry) BroadcastViews(code string, build func(recipientID string) ([]byte, error)) {
	for _, c := range r.snapshot(code) {
		recipient := c.playerID
		if recipient == "" {
			recipient = engine.SpectatorID
		}
		msg, err := build(recipient)
		if err != nil {
			r.logger.Error("failed to build view", "code", code, "recipient", recipient, "error", err)
			continue
		}
		if err := c.Send(msg); err != nil {
			r.logger.Debug("view send failed", "code", code, "player_id", c.playerID)
		}
	}
}

// SendToPlayer delivers a payload to one player if connected.
func (r *Registry) SendToPlayer(code, playerID string, msg []byte) {
	r.mu.RLock()
	var conn *Conn
	if g, ok := r.games[code]; ok {
		conn = g.players[playerID]
	}
	r.mu.RUnlock()
	if conn != nil {
		_ = conn.Send(msg)
	}
}

// BroadcastConnectionInfo tells everyone who is online.
func (r *Registry) BroadcastConnectionInfo(code string) {
	msg, err := marshalConnectionInfo(r.ConnectedPlayerIDs(code), r.SpectatorCount(code))
	if err != nil {
		return
	}
	r.Broadcast(code, msg)
}

// Run reaps connections whose heartbeat has gone stale. Blocks until
// the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(heartbeatTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reapStale()
		}
	}
}

func (r *Registry) reapStale() {
	cutoff := r.clock.Now().Add(-heartbeatTimeout)
	r.mu.RLock()
	var stale []*Conn
	for _, g := range r.games {
		for _, c := range g.players {
			if c.lastPongAt().Before(cutoff) {
				stale = append(stale, c)
			}
		}
		for c := range g.spectators {
			if c.lastPongAt().Before(cutoff) {
				stale = append(stale, c)
			}
		}
	}
	r.mu.RUnlock()

	for _, c := range stale {
		r.logger.Info("reaping stale connection", "code", c.code, "player_id", c.playerID)
		r.drop(c)
	}
}
