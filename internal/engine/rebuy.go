package engine

// canRebuy reports whether a busted seat may buy back in. A rebuy is
// never offered when it would leave two or fewer seats in the game, so
// a heads-up bust always ends the game.
func (e *Engine) canRebuy(s *Seat) bool {
	if !e.AllowRebuys {
		return false
	}
	if s.Chips > 0 || s.RebuyQueued {
		return false
	}
	if e.MaxRebuys > 0 && s.RebuyCount >= e.MaxRebuys {
		return false
	}
	if e.cutoffPassed() {
		return false
	}
	return e.livePlayableCount()+1 > 2
}

func (e *Engine) cutoffPassed() bool {
	if e.RebuyCutoffMinutes <= 0 || e.GameStartedAt == 0 {
		return false
	}
	return int(e.effectiveElapsed().Minutes()) >= e.RebuyCutoffMinutes
}

// Rebuy restores a busted player to the starting stack. During a hand
// the rebuy is queued and applied when the next hand starts.
func (e *Engine) Rebuy(playerID string) error {
	idx := e.findSeat(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	s := e.Seats[idx]
	if !e.AllowRebuys {
		return ErrRebuysDisabled
	}
	if s.Chips > 0 {
		return ErrNotBusted
	}
	if s.RebuyQueued {
		return ErrAlreadyQueued
	}
	if e.MaxRebuys > 0 && s.RebuyCount >= e.MaxRebuys {
		return ErrMaxRebuysReached
	}
	if e.cutoffPassed() {
		return ErrCutoffPassed
	}
	if e.livePlayableCount()+1 <= 2 {
		return ErrRebuysDisabled
	}

	if e.HandActive {
		s.RebuyQueued = true
		return nil
	}
	s.Chips = e.StartingChips
	s.RebuyCount++
	s.SittingOut = false
	e.removeElimination(playerID)
	return nil
}

// CancelRebuy withdraws a queued rebuy before the next hand consumes it.
func (e *Engine) CancelRebuy(playerID string) error {
	idx := e.findSeat(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	s := e.Seats[idx]
	if !s.RebuyQueued {
		return ErrNoRebuyQueued
	}
	s.RebuyQueued = false
	return nil
}
