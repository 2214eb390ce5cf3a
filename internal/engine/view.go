package engine

import (
	"github.com/pokernight/pokernight/poker"
)

// SpectatorID is the view recipient sentinel for connections that are
// not seated at the table.
const SpectatorID = "__spectator__"

// PlayerView is one seat as shown to a recipient. Hole cards are only
// present when the rules make them public to that recipient.
type PlayerView struct {
	PlayerID     string       `json:"player_id"`
	Name         string       `json:"name"`
	Chips        int          `json:"chips"`
	BetThisRound int          `json:"bet_this_round"`
	BetThisHand  int          `json:"bet_this_hand"`
	Folded       bool         `json:"folded"`
	AllIn        bool         `json:"all_in"`
	SittingOut   bool         `json:"is_sitting_out"`
	RebuyQueued  bool         `json:"rebuy_queued"`
	LastAction   string       `json:"last_action"`
	RebuyCount   int          `json:"rebuy_count"`
	CanRebuy     bool         `json:"can_rebuy"`
	IsDealer     bool         `json:"is_dealer"`
	HoleCards    []poker.Card `json:"hole_cards,omitempty"`
}

// GameView is the full state snapshot sent to one recipient.
type GameView struct {
	Code               string        `json:"code"`
	HandNumber         int           `json:"hand_number"`
	Street             Street        `json:"street"`
	Pot                int           `json:"pot"`
	CommunityCards     []poker.Card  `json:"community_cards"`
	DealerIdx          int           `json:"dealer_idx"`
	ActionOn           string        `json:"action_on,omitempty"`
	CurrentBet         int           `json:"current_bet"`
	MinRaise           int           `json:"min_raise"`
	HandActive         bool          `json:"hand_active"`
	SmallBlind         int           `json:"small_blind"`
	BigBlind           int           `json:"big_blind"`
	BlindLevel         int           `json:"blind_level"`
	BlindSchedule      []BlindLevel  `json:"blind_schedule,omitempty"`
	ActionDeadline     int64         `json:"action_deadline,omitempty"`
	AutoDealDeadline   int64         `json:"auto_deal_deadline,omitempty"`
	Paused             bool          `json:"paused"`
	TotalPausedSeconds int64         `json:"total_paused_seconds"`
	GameOver           bool          `json:"game_over"`
	GameOverMessage    string        `json:"game_over_message,omitempty"`
	FinalStandings     []Standing    `json:"final_standings,omitempty"`
	Players            []PlayerView  `json:"players"`
	MyCards            []poker.Card  `json:"my_cards,omitempty"`
	ValidActions       []ValidAction `json:"valid_actions,omitempty"`
	LastHandResult     *HandResult   `json:"last_hand_result,omitempty"`
}

// View projects the engine state for one recipient, hiding every hole
// card the recipient is not entitled to see.
func (e *Engine) View(recipientID string) *GameView {
	v := &GameView{
		Code:               e.Code,
		HandNumber:         e.HandNumber,
		Street:             e.Street,
		Pot:                e.Pot,
		CommunityCards:     e.CommunityCards,
		DealerIdx:          e.DealerIdx,
		CurrentBet:         e.CurrentBet,
		MinRaise:           e.MinRaise,
		HandActive:         e.HandActive,
		SmallBlind:         e.SmallBlind,
		BigBlind:           e.BigBlind,
		BlindLevel:         e.BlindLevel,
		BlindSchedule:      e.BlindSchedule,
		ActionDeadline:     e.ActionDeadline,
		AutoDealDeadline:   e.AutoDealDeadline,
		Paused:             e.Paused,
		TotalPausedSeconds: e.TotalPausedSeconds,
		GameOver:           e.GameOver,
		GameOverMessage:    e.GameOverMessage,
		FinalStandings:     e.FinalStandings,
	}
	if e.HandActive && e.ActionOnIdx >= 0 && e.ActionOnIdx < len(e.Seats) {
		v.ActionOn = e.Seats[e.ActionOnIdx].PlayerID
	}

	atShowdown := e.Street == Showdown
	for i, s := range e.Seats {
		pv := PlayerView{
			PlayerID:     s.PlayerID,
			Name:         s.Name,
			Chips:        s.Chips,
			BetThisRound: s.BetThisRound,
			BetThisHand:  s.BetThisHand,
			Folded:       s.Folded,
			AllIn:        s.AllIn,
			SittingOut:   s.SittingOut,
			RebuyQueued:  s.RebuyQueued,
			LastAction:   s.LastAction,
			RebuyCount:   s.RebuyCount,
			CanRebuy:     e.canRebuy(s),
			IsDealer:     i == e.DealerIdx,
		}
		if s.PlayerID != recipientID {
			if (atShowdown && !s.Folded) || e.hasShownCards(s.PlayerID) {
				pv.HoleCards = s.HoleCards
			}
		}
		v.Players = append(v.Players, pv)
	}

	if recipientID != SpectatorID {
		if idx := e.findSeat(recipientID); idx >= 0 {
			v.MyCards = e.Seats[idx].HoleCards
			v.ValidActions = e.ValidActions(recipientID)
		}
	}

	if e.LastHandResult != nil {
		v.LastHandResult = e.filterHandResult(recipientID)
	}
	return v
}

// filterHandResult strips hole cards from the last hand's result that
// the recipient may not see. Hand names stay visible for every player
// that reached showdown.
func (e *Engine) filterHandResult(recipientID string) *HandResult {
	r := *e.LastHandResult
	filtered := make(map[string]PlayerHandResult, len(r.PlayerHands))
	for id, ph := range r.PlayerHands {
		if id == recipientID || r.Showdown || e.hasShownCards(id) {
			filtered[id] = ph
			continue
		}
		filtered[id] = PlayerHandResult{HandName: ph.HandName}
	}
	r.PlayerHands = filtered
	return &r
}
