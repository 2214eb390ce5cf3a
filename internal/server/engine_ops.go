package server

import (
	"context"
	"errors"

	"github.com/pokernight/pokernight/internal/engine"
)

// withEngine runs one authenticated engine mutation under the table's
// lock: load, mutate, invariant-check, store, broadcast.
func (c *Coordinator) withEngine(ctx context.Context, code, playerID, pin string, mutate func(*engine.Engine) error) error {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	if _, err := c.authenticate(ctx, code, playerID, pin); err != nil {
		return err
	}
	e, err := c.loadEngine(ctx, code)
	if err != nil {
		return err
	}
	if err := mutate(e); err != nil {
		return err
	}
	if err := c.saveEngine(ctx, code, e); err != nil {
		return err
	}
	c.syncTimers(code, e)
	c.broadcastEngine(code, e)
	c.endIfGameOver(ctx, code, e)
	return nil
}

// ProcessAction applies a betting action for the player at turn.
func (c *Coordinator) ProcessAction(ctx context.Context, code string, req ActionRequest) error {
	return c.withEngine(ctx, code, req.PlayerID, req.Pin, func(e *engine.Engine) error {
		return e.ProcessAction(req.PlayerID, engine.Action(req.Action), req.Amount)
	})
}

// DealNextHand starts the next hand on request.
func (c *Coordinator) DealNextHand(ctx context.Context, code, playerID, pin string) error {
	return c.withEngine(ctx, code, playerID, pin, func(e *engine.Engine) error {
		if e.Paused {
			return errors.New("game is paused")
		}
		if e.GameOver {
			return engine.ErrGameOver
		}
		return e.StartNewHand()
	})
}

// RequestRebuy buys a busted player back in, queueing during a hand.
func (c *Coordinator) RequestRebuy(ctx context.Context, code, playerID, pin string) error {
	return c.withEngine(ctx, code, playerID, pin, func(e *engine.Engine) error {
		return e.Rebuy(playerID)
	})
}

// CancelRebuy withdraws a queued rebuy.
func (c *Coordinator) CancelRebuy(ctx context.Context, code, playerID, pin string) error {
	return c.withEngine(ctx, code, playerID, pin, func(e *engine.Engine) error {
		return e.CancelRebuy(playerID)
	})
}

// ShowCards reveals the player's hole cards between hands.
func (c *Coordinator) ShowCards(ctx context.Context, code, playerID, pin string) error {
	return c.withEngine(ctx, code, playerID, pin, func(e *engine.Engine) error {
		return e.ShowCards(playerID)
	})
}

// TogglePause pauses or resumes the game between hands. Creator only.
func (c *Coordinator) TogglePause(ctx context.Context, code, playerID, pin string) error {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	player, err := c.authenticate(ctx, code, playerID, pin)
	if err != nil {
		return err
	}
	if !player.IsCreator {
		return errors.New("only the creator can pause the game")
	}
	e, err := c.loadEngine(ctx, code)
	if err != nil {
		return err
	}
	if e.Paused {
		err = e.Unpause()
	} else {
		err = e.Pause()
	}
	if err != nil {
		return err
	}
	if err := c.saveEngine(ctx, code, e); err != nil {
		return err
	}
	c.syncTimers(code, e)
	c.broadcastEngine(code, e)
	return nil
}

// HandleActionTimeout fires when a turn timer expires: the seat at turn
// auto-checks when free, otherwise auto-folds. Errors are logged and
// swallowed; the next deadline re-arms on the following action.
func (c *Coordinator) HandleActionTimeout(ctx context.Context, code string) {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	e, err := c.loadEngine(ctx, code)
	if err != nil {
		return
	}
	now := c.clock.Now().Unix()
	if !e.HandActive || e.ActionDeadline == 0 {
		return
	}
	if e.ActionDeadline > now {
		// an action reset the deadline after we fired
		if c.timers != nil {
			c.timers.SetActionDeadline(code, e.ActionDeadline)
		}
		return
	}

	seat := e.Seats[e.ActionOnIdx]
	action := engine.ActionCheck
	if e.CurrentBet > seat.BetThisRound {
		action = engine.ActionFold
	}
	c.logger.Info("turn timeout", "code", code, "player_id", seat.PlayerID, "action", action)
	if err := e.ProcessAction(seat.PlayerID, action, 0); err != nil {
		c.logger.Warn("timeout action failed", "code", code, "error", err)
		return
	}
	if err := c.saveEngine(ctx, code, e); err != nil {
		c.logger.Warn("failed to save engine after timeout", "code", code, "error", err)
		return
	}
	c.syncTimers(code, e)
	c.broadcastEngine(code, e)
	c.endIfGameOver(ctx, code, e)
}

// HandleAutoDeal fires when the between-hands delay elapses and deals
// the next hand.
func (c *Coordinator) HandleAutoDeal(ctx context.Context, code string) {
	mu := c.lockFor(code)
	mu.Lock()
	defer mu.Unlock()

	e, err := c.loadEngine(ctx, code)
	if err != nil {
		return
	}
	now := c.clock.Now().Unix()
	if e.AutoDealDeadline == 0 || e.HandActive || e.Paused || e.GameOver {
		return
	}
	if e.AutoDealDeadline > now {
		if c.timers != nil {
			c.timers.SetAutoDealDeadline(code, e.AutoDealDeadline)
		}
		return
	}

	if err := e.StartNewHand(); err != nil {
		c.logger.Warn("auto deal failed", "code", code, "error", err)
		return
	}
	if err := c.saveEngine(ctx, code, e); err != nil {
		c.logger.Warn("failed to save engine after auto deal", "code", code, "error", err)
		return
	}
	c.syncTimers(code, e)
	c.broadcastEngine(code, e)
	c.endIfGameOver(ctx, code, e)
}
