// Package engine implements the authoritative state machine for a
// single No-Limit Hold'em table. Engine operations are pure functions
// of engine state: they never touch the store or sockets. The
// coordinator loads an engine blob, applies one operation under the
// table's lock, and stores it back.
package engine

import (
	rand "math/rand/v2"
	"time"

	"github.com/pokernight/pokernight/poker"
)

// blobVersion tags the persisted engine format.
const blobVersion = 1

// MaxSeats is the most players one deck can serve a full hand: 22 pairs
// of hole cards plus three burns and five community cards is 52.
const MaxSeats = 22

// Config carries the table settings fixed at game start.
type Config struct {
	Code               string
	SmallBlind         int
	BigBlind           int
	StartingChips      int
	AllowRebuys        bool
	MaxRebuys          int // 0 = unlimited
	RebuyCutoffMinutes int // 0 = no cutoff
	TurnTimeout        int // seconds, 0 = no turn timer
	AutoDealDelay      int // seconds, 0 = manual dealing only
	BlindLevelDuration int // minutes, 0 = static blinds
	TargetGameTime     int // minutes, 0 = no schedule
}

// PlayerInfo seeds a seat at construction.
type PlayerInfo struct {
	ID   string
	Name string
}

// BlindLevel is one step of the blind schedule.
type BlindLevel struct {
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
}

// WinnerRecord describes one pot share won at the end of a hand.
type WinnerRecord struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Winnings int    `json:"winnings"`
	Hand     string `json:"hand"`
}

// RefundRecord describes an uncalled bet returned to its owner. A
// refund is not a win.
type RefundRecord struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
}

// PlayerHandResult is one revealed (or revealable) hand in the last
// hand's result. Cards are stripped per recipient by the view projector.
type PlayerHandResult struct {
	Cards    []poker.Card `json:"cards,omitempty"`
	HandName string       `json:"hand_name,omitempty"`
}

// HandResult summarises a completed hand for the UI.
type HandResult struct {
	Winners        []WinnerRecord              `json:"winners"`
	Refunds        []RefundRecord              `json:"refunds,omitempty"`
	Pot            int                         `json:"pot"`
	CommunityCards []poker.Card                `json:"community_cards"`
	PlayerHands    map[string]PlayerHandResult `json:"player_hands"`
	Showdown       bool                        `json:"showdown"`
}

// Elimination records a seat busting out, keyed to the hand it happened
// in. Entries are removed again if the player rebuys, so this is the
// live "currently out" set; the permanent record is FinalStandings.
type Elimination struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	HandNumber int    `json:"hand_number"`
}

// Standing is one place in the final result, computed once at game over.
type Standing struct {
	Place    int    `json:"place"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// Engine is the full state of one table. All exported fields are part
// of the persisted blob.
type Engine struct {
	Version            int            `json:"version"`
	Code               string         `json:"code"`
	SmallBlind         int            `json:"small_blind"`
	BigBlind           int            `json:"big_blind"`
	StartingChips      int            `json:"starting_chips"`
	AllowRebuys        bool           `json:"allow_rebuys"`
	MaxRebuys          int            `json:"max_rebuys"`
	RebuyCutoffMinutes int            `json:"rebuy_cutoff_minutes"`
	TurnTimeout        int            `json:"turn_timeout"`
	AutoDealDelay      int            `json:"auto_deal_delay"`
	Seats              []*Seat        `json:"seats"`
	DealerIdx          int            `json:"dealer_idx"`
	HandNumber         int            `json:"hand_number"`
	Deck               *poker.Deck    `json:"deck,omitempty"`
	CommunityCards     []poker.Card   `json:"community_cards"`
	Street             Street         `json:"street"`
	Pot                int            `json:"pot"`
	CurrentBet         int            `json:"current_bet"`
	MinRaise           int            `json:"min_raise"`
	HandActive         bool           `json:"hand_active"`
	ActionOnIdx        int            `json:"action_on_idx"`
	LastRaiserIdx      *int           `json:"last_raiser_idx"`
	ActionDeadline     int64          `json:"action_deadline"`    // unix seconds, 0 = none
	AutoDealDeadline   int64          `json:"auto_deal_deadline"` // unix seconds, 0 = none
	GameStartedAt      int64          `json:"game_started_at"`    // unix seconds, 0 = not started
	BlindSchedule      []BlindLevel   `json:"blind_schedule,omitempty"`
	BlindLevel         int            `json:"blind_level"`
	BlindLevelDuration int            `json:"blind_level_duration"`
	TargetGameTime     int            `json:"target_game_time"`
	HandHistories      []*HandHistory `json:"hand_histories"`
	CurrentHistory     *HandHistory   `json:"current_history,omitempty"`
	LastHandResult     *HandResult    `json:"last_hand_result,omitempty"`
	ShownCards         []string       `json:"shown_cards,omitempty"`
	Paused             bool           `json:"paused"`
	PausedAt           int64          `json:"paused_at"`
	TotalPausedSeconds int64          `json:"total_paused_seconds"`
	GameOver           bool           `json:"game_over"`
	GameOverMessage    string         `json:"game_over_message,omitempty"`
	EliminationOrder   []Elimination  `json:"elimination_order,omitempty"`
	FinalStandings     []Standing     `json:"final_standings,omitempty"`

	rng *rand.Rand       // deck shuffles; injected, never persisted
	now func() time.Time // wall clock; injected, never persisted
}

// New seats the given players and returns a table ready for its first
// hand. The RNG drives deck shuffles; now supplies the wall clock.
func New(cfg Config, players []PlayerInfo, rng *rand.Rand, now func() time.Time) *Engine {
	e := &Engine{
		Version:            blobVersion,
		Code:               cfg.Code,
		SmallBlind:         cfg.SmallBlind,
		BigBlind:           cfg.BigBlind,
		StartingChips:      cfg.StartingChips,
		AllowRebuys:        cfg.AllowRebuys,
		MaxRebuys:          cfg.MaxRebuys,
		RebuyCutoffMinutes: cfg.RebuyCutoffMinutes,
		TurnTimeout:        cfg.TurnTimeout,
		AutoDealDelay:      cfg.AutoDealDelay,
		BlindLevelDuration: cfg.BlindLevelDuration,
		TargetGameTime:     cfg.TargetGameTime,
		Street:             Preflop,
		MinRaise:           cfg.BigBlind,
		rng:                rng,
		now:                now,
	}
	for _, p := range players {
		e.Seats = append(e.Seats, &Seat{
			PlayerID: p.ID,
			Name:     p.Name,
			Chips:    cfg.StartingChips,
		})
	}
	if cfg.TargetGameTime > 0 && cfg.BlindLevelDuration > 0 {
		e.BlindSchedule = buildBlindSchedule(cfg.StartingChips, cfg.TargetGameTime, cfg.BlindLevelDuration)
		if len(e.BlindSchedule) > 0 {
			e.SmallBlind = e.BlindSchedule[0].SmallBlind
			e.BigBlind = e.BlindSchedule[0].BigBlind
			e.MinRaise = e.BigBlind
		}
	}
	return e
}

// nowUnix returns the injected clock's time as unix seconds.
func (e *Engine) nowUnix() int64 {
	return e.now().Unix()
}

// findSeat returns the seat index for a player id, or -1.
func (e *Engine) findSeat(playerID string) int {
	for i, s := range e.Seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// nextSeat finds the next seat after idx that is in the game, wrapping
// around and skipping sitting-out and folded seats. With onlyActive it
// also skips all-in and broke seats.
func (e *Engine) nextSeat(idx int, onlyActive bool) int {
	n := len(e.Seats)
	for offset := 1; offset <= n; offset++ {
		i := (idx + offset) % n
		s := e.Seats[i]
		if s.SittingOut {
			continue
		}
		if onlyActive && !s.IsActive() {
			continue
		}
		if !s.Folded {
			return i
		}
	}
	return idx
}

// playersInHand returns indices of non-folded, non-sitting-out seats.
func (e *Engine) playersInHand() []int {
	var out []int
	for i, s := range e.Seats {
		if !s.Folded && !s.SittingOut {
			out = append(out, i)
		}
	}
	return out
}

// playersWhoCanAct returns indices of seats that can still take actions.
func (e *Engine) playersWhoCanAct() []int {
	var out []int
	for i, s := range e.Seats {
		if s.IsActive() && !s.SittingOut {
			out = append(out, i)
		}
	}
	return out
}

// livePlayable reports whether a seat is still playing this game: seated,
// and either funded or holding a queued rebuy.
func (e *Engine) livePlayable(s *Seat) bool {
	return !s.SittingOut && (s.Chips > 0 || s.RebuyQueued)
}

// livePlayableCount counts seats still playing this game.
func (e *Engine) livePlayableCount() int {
	n := 0
	for _, s := range e.Seats {
		if e.livePlayable(s) {
			n++
		}
	}
	return n
}

// effectiveElapsed is the wall-clock time since game start minus time
// spent paused. While paused, the clock reads as of PausedAt.
func (e *Engine) effectiveElapsed() time.Duration {
	if e.GameStartedAt == 0 {
		return 0
	}
	ref := e.nowUnix()
	if e.Paused && e.PausedAt > 0 {
		ref = e.PausedAt
	}
	return time.Duration(ref-e.GameStartedAt-e.TotalPausedSeconds) * time.Second
}

// hasShownCards reports whether a player voluntarily revealed their
// cards after the hand.
func (e *Engine) hasShownCards(playerID string) bool {
	for _, id := range e.ShownCards {
		if id == playerID {
			return true
		}
	}
	return false
}

// armActionDeadline starts (or clears) the turn timer for the seat
// currently due to act.
func (e *Engine) armActionDeadline() {
	if e.TurnTimeout > 0 && e.HandActive {
		e.ActionDeadline = e.nowUnix() + int64(e.TurnTimeout)
	} else {
		e.ActionDeadline = 0
	}
}
