package server

import (
	"errors"
	"regexp"
	"strings"

	"github.com/pokernight/pokernight/internal/engine"
	"github.com/pokernight/pokernight/internal/store"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// CreateGameRequest is the body of POST /api/games. Zero values fall
// back to the lobby defaults; AutoDealDelay is a pointer so that an
// explicit 0 (manual dealing) survives.
type CreateGameRequest struct {
	CreatorName        string `json:"creator_name"`
	CreatorPin         string `json:"creator_pin"`
	StartingChips      int    `json:"starting_chips"`
	SmallBlind         int    `json:"small_blind"`
	BigBlind           int    `json:"big_blind"`
	MaxPlayers         int    `json:"max_players"`
	AllowRebuys        *bool  `json:"allow_rebuys"`
	MaxRebuys          int    `json:"max_rebuys"`
	RebuyCutoffMinutes int    `json:"rebuy_cutoff_minutes"`
	TurnTimeout        int    `json:"turn_timeout"`
	AutoDealDelay      *int   `json:"auto_deal_delay"`
	BlindLevelDuration int    `json:"blind_level_duration"`
	TargetGameTime     int    `json:"target_game_time"`
}

// JoinGameRequest is the body of POST /api/games/{code}/join.
type JoinGameRequest struct {
	PlayerName string `json:"player_name"`
	PlayerPin  string `json:"player_pin"`
}

// AuthRequest is the body shared by the simple authenticated endpoints.
type AuthRequest struct {
	PlayerID string `json:"player_id"`
	Pin      string `json:"pin"`
}

// ActionRequest is the body of POST /api/games/{code}/action.
type ActionRequest struct {
	PlayerID string `json:"player_id"`
	Pin      string `json:"pin"`
	Action   string `json:"action"`
	Amount   int    `json:"amount"`
}

// LobbyPlayer is the public view of a stored player, PIN hash omitted.
type LobbyPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsCreator bool   `json:"is_creator"`
}

// LobbyState is the full lobby snapshot sent to clients.
type LobbyState struct {
	Code      string           `json:"code"`
	Status    store.GameStatus `json:"status"`
	Settings  store.Settings   `json:"settings"`
	Players   []LobbyPlayer    `json:"players"`
	CreatorID string           `json:"creator_id"`
}

// CreateGameResponse is returned from game creation.
type CreateGameResponse struct {
	Code     string      `json:"code"`
	PlayerID string      `json:"player_id"`
	Game     *LobbyState `json:"game"`
}

// JoinGameResponse is returned from joining (or reconnecting to) a
// lobby.
type JoinGameResponse struct {
	PlayerID string      `json:"player_id"`
	Game     *LobbyState `json:"game"`
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 20 {
		return errors.New("name must be 1-20 characters")
	}
	return nil
}

func validatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return errors.New("PIN must be exactly 4 digits")
	}
	return nil
}

// normalize fills defaults and clamps the request to the configured
// limits.
func (r *CreateGameRequest) normalize(limits GameSettings) error {
	if err := validateName(r.CreatorName); err != nil {
		return err
	}
	if err := validatePin(r.CreatorPin); err != nil {
		return err
	}
	if r.StartingChips == 0 {
		r.StartingChips = 1000
	}
	if r.StartingChips < limits.MinStartingChips || r.StartingChips > limits.MaxStartingChips {
		return errors.New("starting chips out of range")
	}
	if r.SmallBlind == 0 {
		r.SmallBlind = 10
	}
	if r.BigBlind == 0 {
		r.BigBlind = 20
	}
	if r.SmallBlind < 1 || r.BigBlind <= r.SmallBlind {
		return errors.New("invalid blinds")
	}
	// everyone seated gets dealt in, so the lobby cap is also bounded
	// by the deck
	maxPlayers := limits.MaxPlayers
	if maxPlayers > engine.MaxSeats {
		maxPlayers = engine.MaxSeats
	}
	if r.MaxPlayers == 0 {
		r.MaxPlayers = maxPlayers
	}
	if r.MaxPlayers < 2 || r.MaxPlayers > maxPlayers {
		return errors.New("invalid max players")
	}
	if r.TurnTimeout < 0 || r.TurnTimeout > limits.MaxTurnTimeout {
		return errors.New("invalid turn timeout")
	}
	if r.MaxRebuys < 0 {
		return errors.New("invalid max rebuys")
	}
	if r.RebuyCutoffMinutes < 0 {
		return errors.New("invalid rebuy cutoff")
	}
	if r.BlindLevelDuration < 0 || r.TargetGameTime < 0 {
		return errors.New("invalid blind schedule settings")
	}
	return nil
}

func (r *CreateGameRequest) settings() store.Settings {
	allowRebuys := true
	if r.AllowRebuys != nil {
		allowRebuys = *r.AllowRebuys
	}
	autoDeal := 5
	if r.AutoDealDelay != nil {
		autoDeal = *r.AutoDealDelay
	}
	return store.Settings{
		StartingChips:      r.StartingChips,
		SmallBlind:         r.SmallBlind,
		BigBlind:           r.BigBlind,
		MaxPlayers:         r.MaxPlayers,
		AllowRebuys:        allowRebuys,
		MaxRebuys:          r.MaxRebuys,
		RebuyCutoffMinutes: r.RebuyCutoffMinutes,
		TurnTimeout:        r.TurnTimeout,
		AutoDealDelay:      autoDeal,
		BlindLevelDuration: r.BlindLevelDuration,
		TargetGameTime:     r.TargetGameTime,
	}
}
