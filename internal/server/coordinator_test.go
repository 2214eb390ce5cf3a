package server

import (
	"context"
	"io"
	rand "math/rand/v2"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernight/pokernight/internal/engine"
	"github.com/pokernight/pokernight/internal/randutil"
	"github.com/pokernight/pokernight/internal/store"
)

type fixture struct {
	store *store.Memory
	coord *Coordinator
	clock *quartz.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	clock := quartz.NewMock(t)
	st := store.NewMemory()
	registry := NewRegistry(clock, logger)
	coord := NewCoordinator(st, registry, clock, DefaultConfig().Games, logger)
	// unshuffled decks keep the tests deterministic
	coord.newRNG = func() *rand.Rand { return nil }
	return &fixture{store: st, coord: coord, clock: clock}
}

// createTwoPlayerGame creates a lobby with alice (creator) and bob
// (ready), returning the code and both player ids.
func (f *fixture) createTwoPlayerGame(t *testing.T, req CreateGameRequest) (code, alice, bob string) {
	t.Helper()
	ctx := context.Background()
	if req.CreatorName == "" {
		req.CreatorName = "alice"
	}
	if req.CreatorPin == "" {
		req.CreatorPin = "1234"
	}
	created, err := f.coord.CreateGame(ctx, req, "10.0.0.1")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	joined, err := f.coord.JoinGame(ctx, created.Code, JoinGameRequest{
		PlayerName: "bob", PlayerPin: "5678",
	})
	require.NoError(t, err)

	_, err = f.coord.ToggleReady(ctx, created.Code, joined.PlayerID, "5678")
	require.NoError(t, err)
	return created.Code, created.PlayerID, joined.PlayerID
}

func TestCreateGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, resp.Code, 6)
	assert.NotEmpty(t, resp.PlayerID)
	assert.Equal(t, store.StatusLobby, resp.Game.Status)
	require.Len(t, resp.Game.Players, 1)
	assert.True(t, resp.Game.Players[0].IsCreator)
	assert.Equal(t, 1000, resp.Game.Settings.StartingChips)
	assert.Equal(t, 20, resp.Game.Settings.BigBlind)
	assert.Equal(t, engine.MaxSeats, resp.Game.Settings.MaxPlayers)

	created, err := f.store.CreatedSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, resp.Code, created[0].Code)
	assert.Equal(t, "10.0.0.1", created[0].IP)
}

func TestCreateGameValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coord.CreateGame(ctx, CreateGameRequest{CreatorName: "", CreatorPin: "1234"}, "")
	require.Error(t, err)

	_, err = f.coord.CreateGame(ctx, CreateGameRequest{CreatorName: "alice", CreatorPin: "12a4"}, "")
	require.Error(t, err)

	_, err = f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234", StartingChips: 1,
	}, "")
	require.Error(t, err)

	_, err = f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234", SmallBlind: 30, BigBlind: 20,
	}, "")
	require.Error(t, err)

	// a table larger than one deck can deal is rejected
	_, err = f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234", MaxPlayers: engine.MaxSeats + 1,
	}, "")
	require.Error(t, err)
}

func TestJoinGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234",
	}, "")
	require.NoError(t, err)
	code := created.Code

	_, err = f.coord.JoinGame(ctx, "ZZZZZZ", JoinGameRequest{PlayerName: "bob", PlayerPin: "5678"})
	require.ErrorIs(t, err, engine.ErrGameNotFound)

	joined, err := f.coord.JoinGame(ctx, code, JoinGameRequest{PlayerName: "bob", PlayerPin: "5678"})
	require.NoError(t, err)
	assert.Len(t, joined.Game.Players, 2)

	// same name + same PIN reconnects with the same id
	again, err := f.coord.JoinGame(ctx, code, JoinGameRequest{PlayerName: "bob", PlayerPin: "5678"})
	require.NoError(t, err)
	assert.Equal(t, joined.PlayerID, again.PlayerID)

	// same name + wrong PIN is rejected
	_, err = f.coord.JoinGame(ctx, code, JoinGameRequest{PlayerName: "bob", PlayerPin: "0000"})
	require.ErrorIs(t, err, engine.ErrNameTaken)
}

func TestJoinGameFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234", MaxPlayers: 2,
	}, "")
	require.NoError(t, err)

	_, err = f.coord.JoinGame(ctx, created.Code, JoinGameRequest{PlayerName: "bob", PlayerPin: "5678"})
	require.NoError(t, err)

	_, err = f.coord.JoinGame(ctx, created.Code, JoinGameRequest{PlayerName: "carol", PlayerPin: "9999"})
	require.ErrorIs(t, err, engine.ErrGameFull)
}

func TestLeaveGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{})

	require.ErrorIs(t, f.coord.LeaveGame(ctx, code, bob, "0000"), engine.ErrInvalidPin)
	require.Error(t, f.coord.LeaveGame(ctx, code, alice, "1234")) // creator cannot leave

	require.NoError(t, f.coord.LeaveGame(ctx, code, bob, "5678"))
	state, err := f.coord.GetLobbyState(ctx, code)
	require.NoError(t, err)
	assert.Len(t, state.Players, 1)
}

func TestStartGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{})

	// only the creator starts
	require.Error(t, f.coord.StartGame(ctx, code, bob, "5678"))

	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	state, err := f.coord.GetLobbyState(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, state.Status)

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, view.HandNumber)
	assert.True(t, view.HandActive)
	assert.Len(t, view.MyCards, 2)

	// starting twice fails
	require.ErrorIs(t, f.coord.StartGame(ctx, code, alice, "1234"), engine.ErrGameNotInLobby)
}

func TestStartGameRequiresReadyPlayers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.coord.CreateGame(ctx, CreateGameRequest{
		CreatorName: "alice", CreatorPin: "1234",
	}, "")
	require.NoError(t, err)
	code := created.Code

	require.ErrorIs(t, f.coord.StartGame(ctx, code, created.PlayerID, "1234"), engine.ErrNotEnoughPlayers)

	f.clock.Advance(time.Second)
	_, err = f.coord.JoinGame(ctx, code, JoinGameRequest{PlayerName: "bob", PlayerPin: "5678"})
	require.NoError(t, err)

	require.Error(t, f.coord.StartGame(ctx, code, created.PlayerID, "1234")) // bob not ready
}

func TestProcessActionFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	actor := view.ActionOn
	require.NotEmpty(t, actor)

	pin := "1234"
	if actor == bob {
		pin = "5678"
	}
	require.NoError(t, f.coord.ProcessAction(ctx, code, ActionRequest{
		PlayerID: actor, Pin: pin, Action: "fold",
	}))

	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.False(t, view.HandActive)
	require.NotNil(t, view.LastHandResult)

	// wrong pin never reaches the engine
	err = f.coord.ProcessAction(ctx, code, ActionRequest{
		PlayerID: alice, Pin: "0000", Action: "fold",
	})
	require.ErrorIs(t, err, engine.ErrInvalidPin)
}

func TestActionTimeoutAutoFolds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, _ := f.createTwoPlayerGame(t, CreateGameRequest{TurnTimeout: 5})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	firstActor := view.ActionOn
	require.Positive(t, view.ActionDeadline)

	// before the deadline nothing happens
	f.coord.HandleActionTimeout(ctx, code)
	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.Equal(t, firstActor, view.ActionOn)

	// heads-up preflop the small blind faces a bet, so the timeout folds
	f.clock.Advance(6 * time.Second)
	f.coord.HandleActionTimeout(ctx, code)

	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.False(t, view.HandActive)
	require.NotNil(t, view.LastHandResult)
	assert.False(t, view.LastHandResult.Showdown)
}

func TestAutoDealStartsNextHand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	actor := view.ActionOn
	pin := "1234"
	if actor == bob {
		pin = "5678"
	}
	require.NoError(t, f.coord.ProcessAction(ctx, code, ActionRequest{
		PlayerID: actor, Pin: pin, Action: "fold",
	}))

	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	require.Positive(t, view.AutoDealDeadline)

	f.clock.Advance(6 * time.Second)
	f.coord.HandleAutoDeal(ctx, code)

	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, view.HandNumber)
	assert.True(t, view.HandActive)
}

func TestSchedulerTickDispatches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	sched := NewScheduler(f.coord, f.clock, log.New(io.Discard))

	code, alice, _ := f.createTwoPlayerGame(t, CreateGameRequest{TurnTimeout: 5})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	require.Positive(t, view.ActionDeadline)

	// StartGame registered the deadline with the scheduler
	f.clock.Advance(6 * time.Second)
	sched.tick(ctx)

	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.False(t, view.HandActive)
}

func TestTogglePause(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	// cannot pause mid-hand
	require.ErrorIs(t, f.coord.TogglePause(ctx, code, alice, "1234"), engine.ErrCannotPauseDuringHand)

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	actor := view.ActionOn
	pin := "1234"
	if actor == bob {
		pin = "5678"
	}
	require.NoError(t, f.coord.ProcessAction(ctx, code, ActionRequest{
		PlayerID: actor, Pin: pin, Action: "fold",
	}))

	// only the creator can pause
	require.Error(t, f.coord.TogglePause(ctx, code, bob, "5678"))

	require.NoError(t, f.coord.TogglePause(ctx, code, alice, "1234"))
	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.True(t, view.Paused)
	assert.Zero(t, view.AutoDealDeadline)

	// paused games do not deal
	require.Error(t, f.coord.DealNextHand(ctx, code, alice, "1234"))

	require.NoError(t, f.coord.TogglePause(ctx, code, alice, "1234"))
	view, err = f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	assert.False(t, view.Paused)
}

func TestGameOverEndsLobby(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// unshuffled decks split every pot heads-up, so use seeded decks
	// that differ per hand
	seed := int64(0)
	f.coord.newRNG = func() *rand.Rand {
		seed++
		return randutil.New(seed)
	}

	allowRebuys := false
	code, alice, bob := f.createTwoPlayerGame(t, CreateGameRequest{AllowRebuys: &allowRebuys})
	require.NoError(t, f.coord.StartGame(ctx, code, alice, "1234"))

	// play all-in hands until someone busts
	for i := 0; i < 60; i++ {
		view, err := f.coord.GetEngineView(ctx, code, alice)
		require.NoError(t, err)
		if view.GameOver {
			break
		}
		if !view.HandActive {
			require.NoError(t, f.coord.DealNextHand(ctx, code, alice, "1234"))
			continue
		}
		actor := view.ActionOn
		pin := "1234"
		if actor == bob {
			pin = "5678"
		}
		require.NoError(t, f.coord.ProcessAction(ctx, code, ActionRequest{
			PlayerID: actor, Pin: pin, Action: "all_in",
		}))
	}

	view, err := f.coord.GetEngineView(ctx, code, alice)
	require.NoError(t, err)
	require.True(t, view.GameOver)
	assert.NotEmpty(t, view.FinalStandings)

	state, err := f.coord.GetLobbyState(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, state.Status)
}
