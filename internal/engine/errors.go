package engine

import "errors"

// User-surface errors. The coordinator maps these to HTTP 400 with the
// error text as the response detail.
var (
	ErrGameNotFound          = errors.New("game not found")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrInvalidPin            = errors.New("invalid PIN")
	ErrGameNotInLobby        = errors.New("game is not in lobby state")
	ErrGameFull              = errors.New("game is full")
	ErrNameTaken             = errors.New("name already taken (wrong PIN)")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrNoActiveHand          = errors.New("no active hand")
	ErrCannotCheck           = errors.New("cannot check, must call or fold")
	ErrMustMeetMinRaise      = errors.New("raise below minimum")
	ErrCannotAct             = errors.New("player cannot act")
	ErrUnknownAction         = errors.New("unknown action")
	ErrRebuysDisabled        = errors.New("rebuys are not allowed")
	ErrNotBusted             = errors.New("player still has chips")
	ErrMaxRebuysReached      = errors.New("maximum rebuys reached")
	ErrCutoffPassed          = errors.New("rebuy cutoff has passed")
	ErrAlreadyQueued         = errors.New("rebuy already queued")
	ErrNoRebuyQueued         = errors.New("no rebuy queued")
	ErrNotEnoughPlayers      = errors.New("need at least 2 players")
	ErrHandStillActive       = errors.New("current hand is still in progress")
	ErrAlreadyPaused         = errors.New("game is already paused")
	ErrNotPaused             = errors.New("game is not paused")
	ErrCannotPauseDuringHand = errors.New("cannot pause during a hand")
	ErrGameOver              = errors.New("game is over")
)
