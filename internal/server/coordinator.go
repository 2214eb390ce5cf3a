package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	mrand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/pokernight/pokernight/internal/engine"
	"github.com/pokernight/pokernight/internal/gameid"
	"github.com/pokernight/pokernight/internal/randutil"
	"github.com/pokernight/pokernight/internal/store"
)

// Timers is the deadline surface the coordinator keeps in sync with the
// engine after every mutation.
type Timers interface {
	SetActionDeadline(code string, at int64)
	ClearActionDeadline(code string)
	SetAutoDealDeadline(code string, at int64)
	ClearAutoDealDeadline(code string)
}

// Coordinator serializes all engine access per game code: every
// mutation runs load, mutate, store, broadcast under that code's mutex,
// so each table's history is totally ordered and every client observes
// a monotone sequence of snapshots.
type Coordinator struct {
	store    store.Store
	registry *Registry
	clock    quartz.Clock
	logger   *log.Logger
	limits   GameSettings
	timers   Timers
	newRNG   func() *mrand.Rand

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(st store.Store, registry *Registry, clock quartz.Clock, limits GameSettings, logger *log.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		registry: registry,
		clock:    clock,
		logger:   logger.WithPrefix("coordinator"),
		limits:   limits,
		newRNG:   cryptoSeededRNG,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetTimers attaches the deadline scheduler. Optional; without it the
// engine deadlines are stored but never fire.
func (c *Coordinator) SetTimers(t Timers) {
	c.timers = t
}

func cryptoSeededRNG() *mrand.Rand {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return randutil.New(time.Now().UnixNano())
	}
	return randutil.New(int64(binary.LittleEndian.Uint64(buf[:])))
}

func (c *Coordinator) lockFor(code string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	mu, ok := c.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[code] = mu
	}
	return mu
}

func hashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// authenticate loads the player and constant-time-compares the PIN.
func (c *Coordinator) authenticate(ctx context.Context, code, playerID, pin string) (*store.Player, error) {
	player, err := c.store.LoadPlayer(ctx, code, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(hashPin(pin)), []byte(player.PinHash)) != 1 {
		return nil, engine.ErrInvalidPin
	}
	return player, nil
}

func (c *Coordinator) touch(ctx context.Context, code string) {
	if err := c.store.TouchActivity(ctx, code, c.clock.Now().Unix()); err != nil {
		c.logger.Warn("failed to touch activity", "code", code, "error", err)
	}
}

// CreateGame allocates a fresh code and persists the lobby with its
// creator seated.
func (c *Coordinator) CreateGame(ctx context.Context, req CreateGameRequest, ip string) (*CreateGameResponse, error) {
	if err := req.normalize(c.limits); err != nil {
		return nil, err
	}

	var code string
	for attempt := 0; ; attempt++ {
		code = gameid.NewCode()
		_, err := c.store.LoadGame(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attempt >= 5 {
			return nil, errors.New("could not allocate game code")
		}
	}

	now := c.clock.Now().Unix()
	playerID := gameid.NewPlayerID()
	game := &store.Game{
		Code:      code,
		Status:    store.StatusLobby,
		Settings:  req.settings(),
		CreatorID: playerID,
		CreatedAt: now,
	}
	if err := c.store.SaveGame(ctx, game); err != nil {
		return nil, err
	}
	creator := &store.Player{
		ID:        playerID,
		Name:      req.CreatorName,
		PinHash:   hashPin(req.CreatorPin),
		IsCreator: true,
		JoinedAt:  c.clock.Now().UnixNano(),
	}
	if err := c.store.SavePlayer(ctx, code, creator); err != nil {
		return nil, err
	}
	c.touch(ctx, code)

	if err := c.store.RecordGameCreated(ctx, store.CreatedEvent{
		Code: code, IP: ip, CreatedAt: now,
	}); err != nil {
		c.logger.Warn("failed to record creation metric", "code", code, "error", err)
	}
	c.logger.Info("game created", "code", code, "creator", req.CreatorName)

	state, err := c.GetLobbyState(ctx, code)
	if err != nil {
		return nil, err
	}
	return &CreateGameResponse{Code: code, PlayerID: playerID, Game: state}, nil
}

// JoinGame seats a new player in the lobby, or reconnects an existing
// player when the name and PIN both match.
func (c *Coordinator) JoinGame(ctx context.Context, code string, req JoinGameRequest) (*JoinGameResponse, error) {
	if err := validateName(req.PlayerName); err != nil {
		return nil, err
	}
	if err := validatePin(req.PlayerPin); err != nil {
		return nil, err
	}

	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	game, err := c.loadGame(ctx, code)
	if err != nil {
		return nil, err
	}
	players, err := c.store.LoadPlayers(ctx, code)
	if err != nil {
		return nil, err
	}

	for _, p := range players {
		if p.Name == req.PlayerName {
			if subtle.ConstantTimeCompare([]byte(hashPin(req.PlayerPin)), []byte(p.PinHash)) != 1 {
				return nil, engine.ErrNameTaken
			}
			// same name, right PIN: this is a reconnect
			state, err := c.GetLobbyState(ctx, code)
			if err != nil {
				return nil, err
			}
			return &JoinGameResponse{PlayerID: p.ID, Game: state}, nil
		}
	}

	if game.Status != store.StatusLobby {
		return nil, engine.ErrGameNotInLobby
	}
	if len(players) >= game.Settings.MaxPlayers {
		return nil, engine.ErrGameFull
	}

	player := &store.Player{
		ID:       gameid.NewPlayerID(),
		Name:     req.PlayerName,
		PinHash:  hashPin(req.PlayerPin),
		JoinedAt: c.clock.Now().UnixNano(),
	}
	if err := c.store.SavePlayer(ctx, code, player); err != nil {
		return nil, err
	}
	c.touch(ctx, code)
	c.broadcastLobby(ctx, code)

	state, err := c.GetLobbyState(ctx, code)
	if err != nil {
		return nil, err
	}
	c.logger.Info("player joined", "code", code, "name", req.PlayerName)
	return &JoinGameResponse{PlayerID: player.ID, Game: state}, nil
}

// LeaveGame removes a non-creator player from a lobby.
func (c *Coordinator) LeaveGame(ctx context.Context, code, playerID, pin string) error {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	game, err := c.loadGame(ctx, code)
	if err != nil {
		return err
	}
	player, err := c.authenticate(ctx, code, playerID, pin)
	if err != nil {
		return err
	}
	if game.Status != store.StatusLobby {
		return engine.ErrGameNotInLobby
	}
	if player.IsCreator {
		return errors.New("the creator cannot leave the game")
	}
	if err := c.store.DeletePlayer(ctx, code, playerID); err != nil {
		return err
	}
	c.touch(ctx, code)
	c.broadcastLobby(ctx, code)
	return nil
}

// ToggleReady flips a player's ready flag in the lobby.
func (c *Coordinator) ToggleReady(ctx context.Context, code, playerID, pin string) (*LobbyState, error) {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	game, err := c.loadGame(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.Status != store.StatusLobby {
		return nil, engine.ErrGameNotInLobby
	}
	player, err := c.authenticate(ctx, code, playerID, pin)
	if err != nil {
		return nil, err
	}
	player.Ready = !player.Ready
	if err := c.store.SavePlayer(ctx, code, player); err != nil {
		return nil, err
	}
	c.touch(ctx, code)
	c.broadcastLobby(ctx, code)
	return c.GetLobbyState(ctx, code)
}

// StartGame transitions the lobby into play: builds the engine, deals
// the first hand and stores the blob.
func (c *Coordinator) StartGame(ctx context.Context, code, playerID, pin string) error {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	game, err := c.loadGame(ctx, code)
	if err != nil {
		return err
	}
	player, err := c.authenticate(ctx, code, playerID, pin)
	if err != nil {
		return err
	}
	if !player.IsCreator {
		return errors.New("only the creator can start the game")
	}
	if game.Status != store.StatusLobby {
		return engine.ErrGameNotInLobby
	}
	players, err := c.store.LoadPlayers(ctx, code)
	if err != nil {
		return err
	}
	if len(players) < 2 {
		return engine.ErrNotEnoughPlayers
	}
	for _, p := range players {
		if !p.Ready && !p.IsCreator {
			return errors.New("not all players are ready")
		}
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinedAt < players[j].JoinedAt
	})
	var infos []engine.PlayerInfo
	for _, p := range players {
		infos = append(infos, engine.PlayerInfo{ID: p.ID, Name: p.Name})
	}

	s := game.Settings
	e := engine.New(engine.Config{
		Code:               code,
		SmallBlind:         s.SmallBlind,
		BigBlind:           s.BigBlind,
		StartingChips:      s.StartingChips,
		AllowRebuys:        s.AllowRebuys,
		MaxRebuys:          s.MaxRebuys,
		RebuyCutoffMinutes: s.RebuyCutoffMinutes,
		TurnTimeout:        s.TurnTimeout,
		AutoDealDelay:      s.AutoDealDelay,
		BlindLevelDuration: s.BlindLevelDuration,
		TargetGameTime:     s.TargetGameTime,
	}, infos, c.newRNG(), func() time.Time { return c.clock.Now() })
	if err := e.StartNewHand(); err != nil {
		return err
	}

	game.Status = store.StatusActive
	if err := c.store.SaveGame(ctx, game); err != nil {
		return err
	}
	if err := c.saveEngine(ctx, code, e); err != nil {
		return err
	}
	c.syncTimers(code, e)
	c.broadcastLobby(ctx, code)
	c.broadcastEngine(code, e)
	c.logger.Info("game started", "code", code, "players", len(players))
	return nil
}

// GetLobbyState returns the public lobby snapshot.
func (c *Coordinator) GetLobbyState(ctx context.Context, code string) (*LobbyState, error) {
	game, err := c.loadGame(ctx, code)
	if err != nil {
		return nil, err
	}
	players, err := c.store.LoadPlayers(ctx, code)
	if err != nil {
		return nil, err
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinedAt < players[j].JoinedAt
	})

	state := &LobbyState{
		Code:      game.Code,
		Status:    game.Status,
		Settings:  game.Settings,
		CreatorID: game.CreatorID,
		Players:   []LobbyPlayer{},
	}
	for _, p := range players {
		state.Players = append(state.Players, LobbyPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Ready:     p.Ready,
			Connected: p.Connected,
			IsCreator: p.IsCreator,
		})
	}
	return state, nil
}

// GetEngineView returns the engine snapshot projected for one player
// (or the spectator sentinel).
func (c *Coordinator) GetEngineView(ctx context.Context, code, playerID string) (*engine.GameView, error) {
	e, err := c.loadEngine(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.View(playerID), nil
}

// SetPlayerConnected flags a player's socket presence in the lobby
// record.
func (c *Coordinator) SetPlayerConnected(ctx context.Context, code, playerID string, connected bool) {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	player, err := c.store.LoadPlayer(ctx, code, playerID)
	if err != nil {
		return
	}
	player.Connected = connected
	if err := c.store.SavePlayer(ctx, code, player); err != nil {
		c.logger.Warn("failed to save player", "code", code, "error", err)
		return
	}
	c.broadcastLobby(ctx, code)
}

func (c *Coordinator) loadGame(ctx context.Context, code string) (*store.Game, error) {
	game, err := c.store.LoadGame(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.ErrGameNotFound
	}
	return game, err
}

func (c *Coordinator) loadEngine(ctx context.Context, code string) (*engine.Engine, error) {
	blob, err := c.store.LoadEngine(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	e, err := engine.Restore(blob, c.newRNG(), func() time.Time { return c.clock.Now() })
	if err != nil {
		c.logger.Fatal("corrupted engine blob", "code", code, "error", err, "blob", string(blob))
	}
	return e, nil
}

func (c *Coordinator) saveEngine(ctx context.Context, code string, e *engine.Engine) error {
	if err := e.CheckInvariants(0); err != nil {
		blob, _ := e.Marshal()
		c.logger.Fatal("engine invariant violated", "code", code, "error", err, "blob", string(blob))
	}
	blob, err := e.Marshal()
	if err != nil {
		return err
	}
	if err := c.store.SaveEngine(ctx, code, blob); err != nil {
		return err
	}
	c.touch(ctx, code)
	return nil
}

// syncTimers mirrors the engine's persisted deadlines into the
// scheduler.
func (c *Coordinator) syncTimers(code string, e *engine.Engine) {
	if c.timers == nil {
		return
	}
	if e.ActionDeadline > 0 {
		c.timers.SetActionDeadline(code, e.ActionDeadline)
	} else {
		c.timers.ClearActionDeadline(code)
	}
	if e.AutoDealDeadline > 0 {
		c.timers.SetAutoDealDeadline(code, e.AutoDealDeadline)
	} else {
		c.timers.ClearAutoDealDeadline(code)
	}
}

func (c *Coordinator) broadcastLobby(ctx context.Context, code string) {
	state, err := c.GetLobbyState(ctx, code)
	if err != nil {
		c.logger.Warn("failed to build lobby state", "code", code, "error", err)
		return
	}
	msg, err := json.Marshal(state)
	if err != nil {
		return
	}
	c.registry.Broadcast(code, msg)
}

func (c *Coordinator) broadcastEngine(code string, e *engine.Engine) {
	c.registry.BroadcastViews(code, func(recipientID string) ([]byte, error) {
		return marshalGameState(e.View(recipientID))
	})
	c.registry.BroadcastConnectionInfo(code)
}

// endIfGameOver flips the lobby status once the engine declares the
// game finished.
func (c *Coordinator) endIfGameOver(ctx context.Context, code string, e *engine.Engine) {
	if !e.GameOver {
		return
	}
	game, err := c.loadGame(ctx, code)
	if err != nil || game.Status == store.StatusEnded {
		return
	}
	game.Status = store.StatusEnded
	if err := c.store.SaveGame(ctx, game); err != nil {
		c.logger.Warn("failed to mark game ended", "code", code, "error", err)
		return
	}
	c.broadcastLobby(ctx, code)
	c.logger.Info("game over", "code", code, "message", e.GameOverMessage)
}
