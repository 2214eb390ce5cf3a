package engine

import (
	"fmt"
)

// ValidAction describes one legal action for the seat due to act.
type ValidAction struct {
	Action    Action `json:"action"`
	Amount    int    `json:"amount,omitempty"`
	MinAmount int    `json:"min_amount,omitempty"`
	MaxAmount int    `json:"max_amount,omitempty"`
}

// ProcessAction applies one betting action for the player whose turn it
// is. Raise amounts are the additional chips contributed this round.
func (e *Engine) ProcessAction(playerID string, action Action, amount int) error {
	if !e.HandActive {
		return ErrNoActiveHand
	}
	idx := e.findSeat(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	if idx != e.ActionOnIdx {
		return ErrNotYourTurn
	}
	s := e.Seats[idx]
	if !s.IsActive() {
		return ErrCannotAct
	}

	toCall := e.CurrentBet - s.BetThisRound

	switch action {
	case ActionFold:
		s.Folded = true
		s.HasActed = true
		s.LastAction = "Fold"
		e.CurrentHistory.recordAction(playerID, ActionFold, 0, e.Street)

	case ActionCheck:
		if toCall > 0 {
			return ErrCannotCheck
		}
		s.HasActed = true
		s.LastAction = "Check"
		e.CurrentHistory.recordAction(playerID, ActionCheck, 0, e.Street)

	case ActionCall:
		bet := toCall
		if bet > s.Chips {
			bet = s.Chips
		}
		e.contribute(s, bet)
		s.HasActed = true
		if s.AllIn {
			s.LastAction = fmt.Sprintf("All-In %d", bet)
		} else {
			s.LastAction = fmt.Sprintf("Call %d", bet)
		}
		e.CurrentHistory.recordAction(playerID, ActionCall, bet, e.Street)

	case ActionRaise:
		minRaiseTo := e.CurrentBet + e.MinRaise
		required := minRaiseTo - s.BetThisRound
		if amount < required && amount != s.Chips {
			return ErrMustMeetMinRaise
		}
		if amount <= toCall {
			return ErrMustMeetMinRaise
		}
		e.applyRaise(s, idx, amount)
		e.CurrentHistory.recordAction(playerID, ActionRaise, amount, e.Street)

	case ActionAllIn:
		bet := s.Chips
		if s.BetThisRound+bet > e.CurrentBet {
			e.applyRaise(s, idx, bet)
		} else {
			e.contribute(s, bet)
			s.HasActed = true
			s.LastAction = fmt.Sprintf("All-In %d", bet)
		}
		e.CurrentHistory.recordAction(playerID, ActionAllIn, bet, e.Street)

	default:
		return ErrUnknownAction
	}

	return e.afterAction(idx)
}

// contribute moves chips from the seat into the pot.
func (e *Engine) contribute(s *Seat, amount int) {
	s.Chips -= amount
	s.BetThisRound += amount
	s.BetThisHand += amount
	e.Pot += amount
	if s.Chips == 0 {
		s.AllIn = true
	}
}

// applyRaise contributes amount (capped at stack), reopens the action
// for everyone behind, and bumps the min raise when the raise is full.
func (e *Engine) applyRaise(s *Seat, idx, amount int) {
	bet := amount
	if bet > s.Chips {
		bet = s.Chips
	}
	oldCurrentBet := e.CurrentBet
	e.contribute(s, bet)
	raiseSize := s.BetThisRound - oldCurrentBet
	if raiseSize > e.MinRaise {
		e.MinRaise = raiseSize
	}
	e.CurrentBet = s.BetThisRound
	e.LastRaiserIdx = &idx
	s.HasActed = true
	if s.AllIn {
		s.LastAction = fmt.Sprintf("All-In %d", bet)
	} else {
		s.LastAction = fmt.Sprintf("Raise to %d", s.BetThisRound)
	}
	for i, other := range e.Seats {
		if i == idx {
			continue
		}
		if other.IsActive() && !other.SittingOut {
			other.HasActed = false
		}
	}
}

// afterAction decides what follows a completed action: award the pot if
// only one seat remains, advance the street if the round is settled, or
// pass the action to the next seat.
func (e *Engine) afterAction(actorIdx int) error {
	inHand := e.playersInHand()
	if len(inHand) == 1 {
		e.awardPotToLastPlayer(inHand[0])
		return nil
	}
	if e.isRoundComplete() {
		return e.advanceStreet()
	}
	e.ActionOnIdx = e.nextSeat(actorIdx, true)
	e.armActionDeadline()
	return nil
}

// isRoundComplete reports whether every seat that can still act has
// acted and matched the current bet.
func (e *Engine) isRoundComplete() bool {
	for _, i := range e.playersWhoCanAct() {
		s := e.Seats[i]
		if !s.HasActed {
			return false
		}
		if s.BetThisRound < e.CurrentBet && !s.AllIn {
			return false
		}
	}
	return true
}

// advanceStreet moves to the next betting round, dealing community
// cards with a burn before each batch. When fewer than two seats can
// act the board runs out automatically.
func (e *Engine) advanceStreet() error {
	if e.Street == River {
		e.showdown()
		return nil
	}

	for _, s := range e.Seats {
		s.resetForNewRound()
	}
	e.CurrentBet = 0
	e.MinRaise = e.BigBlind
	e.LastRaiserIdx = nil

	switch e.Street {
	case Preflop:
		e.Street = Flop
	case Flop:
		e.Street = Turn
	case Turn:
		e.Street = River
	}

	if _, err := e.Deck.DealOne(); err != nil { // burn
		return fmt.Errorf("deal %s: %w", e.Street, err)
	}
	n := e.Street.communityCardCount() - len(e.CommunityCards)
	cards, err := e.Deck.Deal(n)
	if err != nil {
		return fmt.Errorf("deal %s: %w", e.Street, err)
	}
	e.CommunityCards = append(e.CommunityCards, cards...)
	e.CurrentHistory.recordCommunity(cards)

	if len(e.playersWhoCanAct()) < 2 {
		return e.advanceStreet()
	}

	e.ActionOnIdx = e.firstToActPostflop()
	e.armActionDeadline()
	return nil
}

// firstToActPostflop finds the first active seat after the dealer. In
// heads-up the dealer acts first after the flop.
func (e *Engine) firstToActPostflop() int {
	if len(e.playersInHand()) == 2 && e.Seats[e.DealerIdx].IsActive() && !e.Seats[e.DealerIdx].SittingOut && !e.Seats[e.DealerIdx].Folded {
		return e.DealerIdx
	}
	return e.nextSeat(e.DealerIdx, true)
}

// ValidActions enumerates the legal actions for a player. Empty unless
// it is that player's turn in an active hand.
func (e *Engine) ValidActions(playerID string) []ValidAction {
	if !e.HandActive {
		return nil
	}
	idx := e.findSeat(playerID)
	if idx < 0 || idx != e.ActionOnIdx {
		return nil
	}
	s := e.Seats[idx]
	if !s.IsActive() {
		return nil
	}

	toCall := e.CurrentBet - s.BetThisRound
	var out []ValidAction

	if toCall > 0 {
		out = append(out, ValidAction{Action: ActionFold})
		call := toCall
		if call > s.Chips {
			call = s.Chips
		}
		out = append(out, ValidAction{Action: ActionCall, Amount: call})
	} else {
		out = append(out, ValidAction{Action: ActionCheck})
	}

	maxRaiseTo := s.BetThisRound + s.Chips
	if maxRaiseTo > e.CurrentBet {
		minRaiseTo := e.CurrentBet + e.MinRaise
		minAmount := minRaiseTo - s.BetThisRound
		if minAmount <= s.Chips {
			out = append(out, ValidAction{
				Action:    ActionRaise,
				MinAmount: minAmount,
				MaxAmount: s.Chips,
			})
		} else if s.Chips > toCall {
			out = append(out, ValidAction{
				Action:    ActionRaise,
				MinAmount: s.Chips,
				MaxAmount: s.Chips,
			})
		}
		out = append(out, ValidAction{Action: ActionAllIn, Amount: s.Chips})
	}
	return out
}
