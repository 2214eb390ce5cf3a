package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGameLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	_, err := m.LoadGame(ctx, "ABCDEF")
	require.ErrorIs(t, err, ErrNotFound)

	game := &Game{
		Code:      "ABCDEF",
		Status:    StatusLobby,
		CreatorID: "p1",
		Settings:  Settings{StartingChips: 1000, SmallBlind: 10, BigBlind: 20},
	}
	require.NoError(t, m.SaveGame(ctx, game))

	loaded, err := m.LoadGame(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, game, loaded)

	// mutations of the returned copy do not leak into the store
	loaded.Status = StatusEnded
	again, err := m.LoadGame(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, StatusLobby, again.Status)

	codes, err := m.ListGameCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCDEF"}, codes)

	require.NoError(t, m.DeleteGame(ctx, "ABCDEF"))
	_, err = m.LoadGame(ctx, "ABCDEF")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPlayers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SavePlayer(ctx, "ABCDEF", &Player{ID: "p1", Name: "alice", PinHash: "x"}))
	require.NoError(t, m.SavePlayer(ctx, "ABCDEF", &Player{ID: "p2", Name: "bob", PinHash: "y"}))

	p, err := m.LoadPlayer(ctx, "ABCDEF", "p1")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)

	_, err = m.LoadPlayer(ctx, "ABCDEF", "p3")
	require.ErrorIs(t, err, ErrNotFound)

	players, err := m.LoadPlayers(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Len(t, players, 2)

	// players vanish with their game
	require.NoError(t, m.DeleteGame(ctx, "ABCDEF"))
	players, err = m.LoadPlayers(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestMemoryEngineAndActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	_, err := m.LoadEngine(ctx, "ABCDEF")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SaveEngine(ctx, "ABCDEF", []byte(`{"version":1}`)))
	blob, err := m.LoadEngine(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(blob))

	require.NoError(t, m.TouchActivity(ctx, "ABCDEF", 1000))
	at, err := m.LastActivity(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, at)
}

func TestMemoryMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.RecordGameCreated(ctx, CreatedEvent{Code: "OLD111", CreatedAt: 100}))
	require.NoError(t, m.RecordGameCreated(ctx, CreatedEvent{Code: "NEW222", CreatedAt: 200}))
	require.NoError(t, m.RecordGameCleaned(ctx, CleanedEvent{Code: "OLD111", CleanedAt: 150}))

	created, err := m.CreatedSince(ctx, 150)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "NEW222", created[0].Code)

	require.NoError(t, m.PruneMetrics(ctx, 150))
	created, err = m.CreatedSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, created, 1)
	cleaned, err := m.CleanedSince(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, cleaned)
}
