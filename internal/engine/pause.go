package engine

// Pause stops the game clock between hands. Blind levels and the rebuy
// cutoff do not advance while paused.
func (e *Engine) Pause() error {
	if e.Paused {
		return ErrAlreadyPaused
	}
	if e.HandActive {
		return ErrCannotPauseDuringHand
	}
	e.Paused = true
	e.PausedAt = e.nowUnix()
	e.AutoDealDeadline = 0
	return nil
}

// Unpause resumes play and banks the paused time so the effective game
// clock picks up where it left off.
func (e *Engine) Unpause() error {
	if !e.Paused {
		return ErrNotPaused
	}
	e.TotalPausedSeconds += e.nowUnix() - e.PausedAt
	e.Paused = false
	e.PausedAt = 0
	if e.AutoDealDelay > 0 && !e.HandActive && !e.GameOver && e.HandNumber > 0 {
		e.AutoDealDeadline = e.nowUnix() + int64(e.AutoDealDelay)
	}
	return nil
}

// ShowCards lets a player voluntarily reveal their hole cards between
// hands.
func (e *Engine) ShowCards(playerID string) error {
	if e.HandActive {
		return ErrHandStillActive
	}
	idx := e.findSeat(playerID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	if !e.hasShownCards(playerID) {
		e.ShownCards = append(e.ShownCards, playerID)
	}
	return nil
}
