package engine

import (
	"fmt"

	"github.com/pokernight/pokernight/poker"
)

// CheckInvariants verifies the structural health of the engine state.
// The coordinator calls this after every mutation; a violation means
// state corruption and is treated as fatal by the caller.
func (e *Engine) CheckInvariants(expectedChips int) error {
	total := e.Pot
	for _, s := range e.Seats {
		if s.Chips < 0 {
			return fmt.Errorf("seat %s has negative chips", s.PlayerID)
		}
		total += s.Chips
	}
	if expectedChips > 0 && total != expectedChips {
		return fmt.Errorf("chip conservation violated: have %d want %d", total, expectedChips)
	}

	if e.Pot < 0 {
		return fmt.Errorf("negative pot %d", e.Pot)
	}
	if e.CurrentBet < 0 {
		return fmt.Errorf("negative current bet %d", e.CurrentBet)
	}
	if e.HandActive && e.MinRaise < e.BigBlind {
		return fmt.Errorf("min raise %d below big blind %d", e.MinRaise, e.BigBlind)
	}

	if e.HandActive {
		if e.ActionOnIdx < 0 || e.ActionOnIdx >= len(e.Seats) {
			return fmt.Errorf("action index %d out of range", e.ActionOnIdx)
		}
		if want := e.Street.communityCardCount(); len(e.CommunityCards) != want {
			return fmt.Errorf("street %s has %d community cards, want %d", e.Street, len(e.CommunityCards), want)
		}
	}

	seen := make(map[poker.Card]bool)
	check := func(c poker.Card) error {
		if seen[c] {
			return fmt.Errorf("duplicate card %s in play", c)
		}
		seen[c] = true
		return nil
	}
	for _, c := range e.CommunityCards {
		if err := check(c); err != nil {
			return err
		}
	}
	for _, s := range e.Seats {
		for _, c := range s.HoleCards {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	if e.HandActive && e.Deck != nil {
		for _, c := range e.Deck.Cards() {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// TotalChips sums all chips in play, pot included. Useful as the
// conservation baseline after buy-ins and rebuys.
func (e *Engine) TotalChips() int {
	total := e.Pot
	for _, s := range e.Seats {
		total += s.Chips
	}
	return total
}
