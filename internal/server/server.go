package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/pokernight/pokernight/internal/engine"
	"github.com/pokernight/pokernight/internal/store"
)

// closeGameNotFound is the WebSocket close code for an unknown game.
const closeGameNotFound = 4004

// Server exposes the HTTP and WebSocket interface.
type Server struct {
	cfg      *Config
	coord    *Coordinator
	registry *Registry
	logger   *log.Logger
	upgrader websocket.Upgrader

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

func NewServer(cfg *Config, coord *Coordinator, registry *Registry, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		coord:    coord,
		registry: registry,
		logger:   logger.WithPrefix("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		limiters: make(map[string]*rate.Limiter),
	}

	registry.OnDisconnect(func(code, playerID string) {
		if playerID != "" {
			s.coord.SetPlayerConnected(context.Background(), code, playerID, false)
		}
		s.registry.BroadcastConnectionInfo(code)
	})
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/{code}", s.handleGetLobby)
	mux.HandleFunc("GET /api/games/{code}/state/{player_id}", s.handleGetState)
	mux.HandleFunc("POST /api/games/{code}/join", s.handleJoin)
	mux.HandleFunc("POST /api/games/{code}/leave", s.authed(s.coord.LeaveGame))
	mux.HandleFunc("POST /api/games/{code}/ready", s.handleReady)
	mux.HandleFunc("POST /api/games/{code}/start", s.authed(s.coord.StartGame))
	mux.HandleFunc("POST /api/games/{code}/action", s.handleAction)
	mux.HandleFunc("POST /api/games/{code}/deal", s.authed(s.coord.DealNextHand))
	mux.HandleFunc("POST /api/games/{code}/rebuy", s.authed(s.coord.RequestRebuy))
	mux.HandleFunc("POST /api/games/{code}/cancel_rebuy", s.authed(s.coord.CancelRebuy))
	mux.HandleFunc("POST /api/games/{code}/show_cards", s.authed(s.coord.ShowCards))
	mux.HandleFunc("POST /api/games/{code}/pause", s.authed(s.coord.TogglePause))

	mux.HandleFunc("GET /api/admin/summary", s.admin(s.handleAdminSummary))
	mux.HandleFunc("GET /api/admin/daily", s.admin(s.handleAdminDaily))
	mux.HandleFunc("GET /api/admin/games", s.admin(s.handleAdminGames))

	mux.HandleFunc("GET /ws/{code}/{player_id}", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return s.cors(s.rateLimit(mux))
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, engine.ErrGameNotFound) || errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, errorBody{Detail: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		s.writeError(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func gameCode(r *http.Request) string {
	return strings.ToUpper(r.PathValue("code"))
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.coord.CreateGame(r.Context(), req, clientIP(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	state, err := s.coord.GetLobbyState(r.Context(), gameCode(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	view, err := s.coord.GetEngineView(r.Context(), gameCode(r), r.PathValue("player_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.coord.JoinGame(r.Context(), gameCode(r), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := s.coord.ToggleReady(r.Context(), gameCode(r), req.PlayerID, req.Pin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.coord.ProcessAction(r.Context(), gameCode(r), req); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// authed wraps the endpoints whose body is just {player_id, pin}.
func (s *Server) authed(op func(ctx context.Context, code, playerID, pin string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := op(r.Context(), gameCode(r), req.PlayerID, req.Pin); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.coord.AdminSummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAdminDaily(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	daily, err := s.coord.AdminDaily(r.Context(), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, daily)
}

func (s *Server) handleAdminGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.coord.AdminGames(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, games)
}

// admin gates the dashboard endpoints behind ADMIN_PASSWORD. With no
// password configured, the endpoints do not exist.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.AdminPassword == "" {
			http.NotFound(w, r)
			return
		}
		got := r.Header.Get("X-Admin-Password")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Server.AdminPassword)) != 1 {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "invalid admin password"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := gameCode(r)
	playerID := r.PathValue("player_id")
	ctx := r.Context()

	state, err := s.coord.GetLobbyState(ctx, code)

	ws, upErr := s.upgrader.Upgrade(w, r, nil)
	if upErr != nil {
		s.logger.Debug("websocket upgrade failed", "error", upErr)
		return
	}
	if err != nil {
		msg := websocket.FormatCloseMessage(closeGameNotFound, "Game not found")
		_ = ws.WriteMessage(websocket.CloseMessage, msg)
		_ = ws.Close()
		return
	}

	isPlayer := false
	for _, p := range state.Players {
		if p.ID == playerID {
			isPlayer = true
			break
		}
	}

	var conn *Conn
	if isPlayer {
		conn = s.registry.AddPlayer(ws, code, playerID)
		s.coord.SetPlayerConnected(ctx, code, playerID, true)
	} else {
		conn = s.registry.AddSpectator(ws, code)
	}

	// immediate state push so reconnects render without waiting for
	// the next mutation
	if fresh, err := s.coord.GetLobbyState(ctx, code); err == nil {
		if raw, err := json.Marshal(fresh); err == nil {
			_ = conn.Send(raw)
		}
	}
	if state.Status == store.StatusActive || state.Status == store.StatusEnded {
		viewID := playerID
		if !isPlayer {
			viewID = engine.SpectatorID
		}
		if view, err := s.coord.GetEngineView(ctx, code, viewID); err == nil {
			if raw, err := marshalGameState(view); err == nil {
				_ = conn.Send(raw)
			}
		}
	}
	s.registry.BroadcastConnectionInfo(code)
}

// cors is a permissive CORS layer for the browser lobby. Kept
// hand-rolled: the policy is a couple of headers.
func (s *Server) cors(next http.Handler) http.Handler {
	origins := strings.Join(s.cfg.Server.AllowedOrigins, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Password")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles per client IP when enabled.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if !s.cfg.Server.RateLimitEnabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(clientIP(r)).Allow() {
			s.writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	lim, ok := s.limiters[ip]
	if !ok {
		perMin := s.cfg.Server.RateLimitPerMin
		lim = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)
		s.limiters[ip] = lim
	}
	return lim
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
