// Package store persists lobby records, player credentials and engine
// blobs. The Redis implementation is the production backend; the memory
// implementation backs hermetic tests.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a game, player or engine blob does not
// exist in the store.
var ErrNotFound = errors.New("not found")

// GameStatus is the lobby-level lifecycle of a game.
type GameStatus string

const (
	StatusLobby  GameStatus = "lobby"
	StatusActive GameStatus = "active"
	StatusEnded  GameStatus = "ended"
)

// Settings are the table options chosen at creation time.
type Settings struct {
	StartingChips      int  `json:"starting_chips"`
	SmallBlind         int  `json:"small_blind"`
	BigBlind           int  `json:"big_blind"`
	MaxPlayers         int  `json:"max_players"`
	AllowRebuys        bool `json:"allow_rebuys"`
	MaxRebuys          int  `json:"max_rebuys"`
	RebuyCutoffMinutes int  `json:"rebuy_cutoff_minutes"`
	TurnTimeout        int  `json:"turn_timeout"`
	AutoDealDelay      int  `json:"auto_deal_delay"`
	BlindLevelDuration int  `json:"blind_level_duration"`
	TargetGameTime     int  `json:"target_game_time"`
}

// Game is the lobby record for one table.
type Game struct {
	Code      string     `json:"code"`
	Status    GameStatus `json:"status"`
	Settings  Settings   `json:"settings"`
	CreatorID string     `json:"creator_id"`
	CreatedAt int64      `json:"created_at"`
}

// Player is the stored per-player record. PinHash is the hex SHA-256 of
// the player's PIN and never leaves the store layer. JoinedAt fixes the
// seat order when the game starts.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PinHash   string `json:"pin_hash"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsCreator bool   `json:"is_creator"`
	JoinedAt  int64  `json:"joined_at"`
}

// CreatedEvent records a game creation for the admin metrics.
type CreatedEvent struct {
	Code      string `json:"code"`
	IP        string `json:"ip"`
	CreatedAt int64  `json:"created_at"`
}

// CleanedEvent records a game deletion for the admin metrics.
type CleanedEvent struct {
	Code         string `json:"code"`
	CleanedAt    int64  `json:"cleaned_at"`
	FinalStatus  string `json:"final_status"`
	WasCompleted bool   `json:"was_completed"`
	PlayerCount  int    `json:"player_count"`
}

// Store is the persistence surface used by the coordinator, the cleanup
// loop and the admin endpoints.
type Store interface {
	SaveGame(ctx context.Context, game *Game) error
	LoadGame(ctx context.Context, code string) (*Game, error)
	DeleteGame(ctx context.Context, code string) error
	ListGameCodes(ctx context.Context) ([]string, error)

	SavePlayer(ctx context.Context, code string, player *Player) error
	LoadPlayer(ctx context.Context, code, playerID string) (*Player, error)
	LoadPlayers(ctx context.Context, code string) ([]*Player, error)
	DeletePlayer(ctx context.Context, code, playerID string) error

	SaveEngine(ctx context.Context, code string, blob []byte) error
	LoadEngine(ctx context.Context, code string) ([]byte, error)

	TouchActivity(ctx context.Context, code string, at int64) error
	LastActivity(ctx context.Context, code string) (int64, error)

	RecordGameCreated(ctx context.Context, ev CreatedEvent) error
	RecordGameCleaned(ctx context.Context, ev CleanedEvent) error
	CreatedSince(ctx context.Context, since int64) ([]CreatedEvent, error)
	CleanedSince(ctx context.Context, since int64) ([]CleanedEvent, error)
	PruneMetrics(ctx context.Context, cutoff int64) error

	Close() error
}
