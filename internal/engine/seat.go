package engine

import (
	"github.com/pokernight/pokernight/poker"
)

// Seat is the per-player state at the table.
type Seat struct {
	PlayerID     string       `json:"player_id"`
	Name         string       `json:"name"`
	Chips        int          `json:"chips"`
	HoleCards    []poker.Card `json:"hole_cards"`
	BetThisRound int          `json:"bet_this_round"`
	BetThisHand  int          `json:"bet_this_hand"`
	Folded       bool         `json:"folded"`
	AllIn        bool         `json:"all_in"`
	HasActed     bool         `json:"has_acted"`
	SittingOut   bool         `json:"is_sitting_out"`
	RebuyQueued  bool         `json:"rebuy_queued"`
	LastAction   string       `json:"last_action"`
	RebuyCount   int          `json:"rebuy_count"`
}

// IsActive reports whether the seat is still in the hand and can act.
func (s *Seat) IsActive() bool {
	return !s.Folded && !s.AllIn && s.Chips > 0
}

// resetForNewHand clears all hand-local state, including any queued
// rebuy (queued rebuys are consumed before this is called).
func (s *Seat) resetForNewHand() {
	s.HoleCards = nil
	s.BetThisRound = 0
	s.BetThisHand = 0
	s.Folded = false
	s.AllIn = false
	s.HasActed = false
	s.RebuyQueued = false
	s.LastAction = ""
}

// resetForNewRound clears round-local state. The last action stays
// visible for folded and all-in seats so the UI can keep showing it.
func (s *Seat) resetForNewRound() {
	s.BetThisRound = 0
	s.HasActed = false
	if !s.Folded && !s.AllIn {
		s.LastAction = ""
	}
}
