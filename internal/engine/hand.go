package engine

import (
	"fmt"

	"github.com/pokernight/pokernight/poker"
)

// StartNewHand deals the next hand: consumes queued rebuys, records
// eliminations, rotates the dealer, shuffles, deals hole cards and
// posts blinds. Callable only between hands.
func (e *Engine) StartNewHand() error {
	if e.GameOver {
		return nil
	}
	if e.HandActive {
		return ErrHandStillActive
	}

	for _, s := range e.Seats {
		if s.RebuyQueued {
			s.Chips = e.StartingChips
			s.RebuyQueued = false
			s.RebuyCount++
			s.SittingOut = false
			e.removeElimination(s.PlayerID)
		}
	}

	for _, s := range e.Seats {
		if s.Chips <= 0 && !s.RebuyQueued && !e.isEliminated(s.PlayerID) {
			e.EliminationOrder = append(e.EliminationOrder, Elimination{
				PlayerID:   s.PlayerID,
				Name:       s.Name,
				HandNumber: e.HandNumber,
			})
			s.SittingOut = true
		}
	}

	if e.livePlayableCount() < 2 {
		e.endGame()
		return nil
	}

	dealt := 0
	for _, s := range e.Seats {
		if !s.SittingOut {
			dealt++
		}
	}
	if dealt > MaxSeats {
		return fmt.Errorf("%d players exceed the %d-seat deck capacity", dealt, MaxSeats)
	}

	e.HandNumber++
	if e.HandNumber == 1 {
		e.GameStartedAt = e.nowUnix()
	}
	e.advanceBlindLevel()

	e.AutoDealDeadline = 0
	e.ShownCards = nil
	e.LastHandResult = nil

	if e.HandNumber > 1 {
		e.DealerIdx = e.nextDealer()
	}

	for _, s := range e.Seats {
		s.resetForNewHand()
		if s.SittingOut {
			s.Folded = false
			s.AllIn = false
			s.HasActed = false
		}
	}

	e.Deck = poker.NewDeck(e.rng)
	e.CommunityCards = nil
	e.Pot = 0
	e.Street = Preflop
	for _, s := range e.Seats {
		if s.SittingOut {
			continue
		}
		cards, err := e.Deck.Deal(2)
		if err != nil {
			return fmt.Errorf("deal hole cards: %w", err)
		}
		s.HoleCards = cards
	}

	e.CurrentHistory = newHandHistory(e.HandNumber)
	e.postBlinds()
	e.HandActive = true

	// blinds can leave every seat all-in (late-game short stacks vs an
	// escalated big blind); with no one able to act the board runs out
	// straight to showdown
	if len(e.playersWhoCanAct()) == 0 {
		return e.advanceStreet()
	}

	e.armActionDeadline()
	return nil
}

// nextDealer rotates the button past sitting-out seats.
func (e *Engine) nextDealer() int {
	n := len(e.Seats)
	for offset := 1; offset <= n; offset++ {
		i := (e.DealerIdx + offset) % n
		if !e.Seats[i].SittingOut {
			return i
		}
	}
	return e.DealerIdx
}

func (e *Engine) postBlinds() {
	inHand := e.playersInHand()
	var sbIdx, bbIdx int
	if len(inHand) == 2 {
		// heads-up: the dealer posts the small blind
		sbIdx = e.DealerIdx
		if e.Seats[sbIdx].SittingOut {
			sbIdx = e.nextSeat(e.DealerIdx, false)
		}
		bbIdx = e.nextSeat(sbIdx, false)
	} else {
		sbIdx = e.nextSeat(e.DealerIdx, false)
		bbIdx = e.nextSeat(sbIdx, false)
	}

	e.forceBet(sbIdx, e.SmallBlind, fmt.Sprintf("Small Blind %d", e.SmallBlind))
	e.forceBet(bbIdx, e.BigBlind, fmt.Sprintf("Big Blind %d", e.BigBlind))

	e.CurrentBet = e.BigBlind
	e.MinRaise = e.BigBlind
	bb := bbIdx
	e.LastRaiserIdx = &bb
	e.ActionOnIdx = e.nextSeat(bbIdx, true)
}

// forceBet takes chips for a blind without marking the seat as having
// acted, so the blind poster keeps their option.
func (e *Engine) forceBet(idx, amount int, label string) {
	s := e.Seats[idx]
	bet := amount
	if bet > s.Chips {
		bet = s.Chips
	}
	s.Chips -= bet
	s.BetThisRound += bet
	s.BetThisHand += bet
	e.Pot += bet
	if s.Chips == 0 {
		s.AllIn = true
	}
	s.LastAction = label
}

// removeElimination drops a player from the elimination order, used
// when a rebuy brings them back.
func (e *Engine) removeElimination(playerID string) {
	for i, el := range e.EliminationOrder {
		if el.PlayerID == playerID {
			e.EliminationOrder = append(e.EliminationOrder[:i], e.EliminationOrder[i+1:]...)
			return
		}
	}
}

func (e *Engine) isEliminated(playerID string) bool {
	for _, el := range e.EliminationOrder {
		if el.PlayerID == playerID {
			return true
		}
	}
	return false
}

// endGame marks the game over and computes final standings: the last
// seat standing takes first place, then eliminations in reverse order.
func (e *Engine) endGame() {
	e.GameOver = true
	e.HandActive = false
	e.ActionDeadline = 0
	e.AutoDealDeadline = 0

	var winner *Seat
	for _, s := range e.Seats {
		if !e.isEliminated(s.PlayerID) && e.livePlayable(s) {
			winner = s
			break
		}
	}

	place := 1
	if winner != nil {
		e.FinalStandings = append(e.FinalStandings, Standing{
			Place:    1,
			PlayerID: winner.PlayerID,
			Name:     winner.Name,
		})
		e.GameOverMessage = fmt.Sprintf("%s wins!", winner.Name)
		place = 2
	} else {
		e.GameOverMessage = "Game over"
	}
	for i := len(e.EliminationOrder) - 1; i >= 0; i-- {
		el := e.EliminationOrder[i]
		e.FinalStandings = append(e.FinalStandings, Standing{
			Place:    place,
			PlayerID: el.PlayerID,
			Name:     el.Name,
		})
		place++
	}
}

// checkGameOver records eliminations at hand end and, if too few seats
// can keep playing, finishes the game. Returns true when the game ended.
func (e *Engine) checkGameOver() bool {
	for _, s := range e.Seats {
		if s.Chips <= 0 && !s.RebuyQueued && !e.isEliminated(s.PlayerID) {
			e.EliminationOrder = append(e.EliminationOrder, Elimination{
				PlayerID:   s.PlayerID,
				Name:       s.Name,
				HandNumber: e.HandNumber,
			})
			s.SittingOut = true
		}
	}
	canContinue := 0
	for _, s := range e.Seats {
		if e.livePlayable(s) || e.canRebuy(s) {
			canContinue++
		}
	}
	if canContinue < 2 {
		e.endGame()
		return true
	}
	return false
}
