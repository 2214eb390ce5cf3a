package server

import (
	"bytes"
	"encoding/json"
	"io"
	rand "math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernight/pokernight/internal/store"
)

type webFixture struct {
	*fixture
	cfg *Config
	ts  *httptest.Server
}

func newWebFixture(t *testing.T, mutateCfg func(*Config)) *webFixture {
	t.Helper()
	logger := log.New(io.Discard)
	clock := quartz.NewMock(t)
	st := store.NewMemory()
	registry := NewRegistry(clock, logger)
	cfg := DefaultConfig()
	if mutateCfg != nil {
		mutateCfg(cfg)
	}
	coord := NewCoordinator(st, registry, clock, cfg.Games, logger)
	coord.newRNG = func() *rand.Rand { return nil }

	srv := NewServer(cfg, coord, registry, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &webFixture{
		fixture: &fixture{store: st, coord: coord, clock: clock},
		cfg:     cfg,
		ts:      ts,
	}
}

func (f *webFixture) post(t *testing.T, path string, body, out any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHTTPGameLifecycle(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)

	var created CreateGameResponse
	resp := f.post(t, "/api/games", CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234",
	}, &created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, created.Code, 6)

	f.clock.Advance(time.Second)
	var joined JoinGameResponse
	resp = f.post(t, "/api/games/"+created.Code+"/join", JoinGameRequest{
		PlayerName: "bob", PlayerPin: "5678",
	}, &joined)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/api/games/"+created.Code+"/ready", AuthRequest{
		PlayerID: joined.PlayerID, Pin: "5678",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/api/games/"+created.Code+"/start", AuthRequest{
		PlayerID: created.PlayerID, Pin: "1234",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// lobby codes are case-insensitive on the wire
	r, err := http.Get(f.ts.URL + "/api/games/" + strings.ToLower(created.Code))
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	var lobby LobbyState
	require.NoError(t, json.NewDecoder(r.Body).Decode(&lobby))
	assert.Equal(t, store.StatusActive, lobby.Status)

	r, err = http.Get(f.ts.URL + "/api/games/" + created.Code + "/state/" + created.PlayerID)
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	var view struct {
		HandNumber int             `json:"hand_number"`
		MyCards    json.RawMessage `json:"my_cards"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&view))
	assert.Equal(t, 1, view.HandNumber)
	assert.NotEmpty(t, view.MyCards)
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)

	r, err := http.Get(f.ts.URL + "/api/games/ZZZZZZ")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
	var body errorBody
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	assert.NotEmpty(t, body.Detail)

	resp := f.post(t, "/api/games", CreateGameRequest{
		CreatorName: "alice", CreatorPin: "abcd",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Post(f.ts.URL+"/api/games", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestAdminEndpointsGated(t *testing.T) {
	t.Parallel()

	// no password configured: the endpoints do not exist
	f := newWebFixture(t, nil)
	r, err := http.Get(f.ts.URL + "/api/admin/summary")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	f = newWebFixture(t, func(cfg *Config) {
		cfg.Server.AdminPassword = "sekrit"
	})

	r, err = http.Get(f.ts.URL + "/api/admin/summary")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, r.StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/api/admin/summary", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Password", "sekrit")
	r, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	var summary AdminSummary
	require.NoError(t, json.NewDecoder(r.Body).Decode(&summary))
	assert.Zero(t, summary.ActiveGames)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	req, err := http.NewRequest(http.MethodOptions, f.ts.URL+"/api/games", nil)
	require.NoError(t, err)
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusNoContent, r.StatusCode)
	assert.NotEmpty(t, r.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, func(cfg *Config) {
		cfg.Server.RateLimitEnabled = true
		cfg.Server.RateLimitPerMin = 3
	})

	limited := false
	for i := 0; i < 5; i++ {
		r, err := http.Get(f.ts.URL + "/healthz")
		require.NoError(t, err)
		r.Body.Close()
		if r.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited)
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func readJSON(t *testing.T, ws *websocket.Conn, out any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestWebSocketUnknownGameCloses(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(f.ts, "/ws/ZZZZZZ/nobody"), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, closeGameNotFound, closeErr.Code)
}

func TestWebSocketLobbyUpdates(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)

	var created CreateGameResponse
	f.post(t, "/api/games", CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234",
	}, &created)

	ws, _, err := websocket.DefaultDialer.Dial(
		wsURL(f.ts, "/ws/"+created.Code+"/"+created.PlayerID), nil)
	require.NoError(t, err)
	defer ws.Close()

	// initial lobby snapshot arrives without any mutation
	var lobby LobbyState
	readJSON(t, ws, &lobby)
	require.Equal(t, created.Code, lobby.Code)

	// joins are pushed to connected clients
	f.clock.Advance(time.Second)
	f.post(t, "/api/games/"+created.Code+"/join", JoinGameRequest{
		PlayerName: "bob", PlayerPin: "5678",
	}, nil)

	// skip interleaved connection_info frames
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var msg map[string]json.RawMessage
		readJSON(t, ws, &msg)
		if _, ok := msg["players"]; !ok {
			continue
		}
		require.NoError(t, json.Unmarshal(mustRaw(t, msg), &lobby))
		if len(lobby.Players) == 2 {
			return
		}
	}
	t.Fatal("never saw the lobby update with two players")
}

func mustRaw(t *testing.T, m map[string]json.RawMessage) []byte {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}
