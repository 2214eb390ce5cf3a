package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/pokernight/pokernight/internal/store"
)

const (
	cleanupInterval = 30 * time.Minute

	// inactivity before an unfinished game is deleted
	staleThreshold = 24 * time.Hour

	// inactivity before a completed game is deleted; winners get a
	// longer window to review results
	completedThreshold = 72 * time.Hour

	metricsRetention = 90 * 24 * time.Hour
)

// Cleaner deletes abandoned games from the store and records the
// deletions in the admin metrics.
type Cleaner struct {
	store  store.Store
	clock  quartz.Clock
	logger *log.Logger
}

func NewCleaner(st store.Store, clock quartz.Clock, logger *log.Logger) *Cleaner {
	return &Cleaner{
		store:  st,
		clock:  clock,
		logger: logger.WithPrefix("cleanup"),
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := c.Sweep(ctx)
			if err != nil {
				c.logger.Error("cleanup sweep failed", "error", err)
				continue
			}
			if len(deleted) > 0 {
				c.logger.Info("cleaned up stale games", "count", len(deleted), "codes", deleted)
			}
		}
	}
}

// Sweep checks every stored game and deletes the stale ones. Returns
// the deleted codes.
func (c *Cleaner) Sweep(ctx context.Context) ([]string, error) {
	now := c.clock.Now()
	codes, err := c.store.ListGameCodes(ctx)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, code := range codes {
		last, err := c.store.LastActivity(ctx, code)
		if err != nil {
			// no timestamp yet: give it a full window from now
			if terr := c.store.TouchActivity(ctx, code, now.Unix()); terr != nil {
				c.logger.Warn("failed to touch activity", "code", code, "error", terr)
			}
			continue
		}

		age := now.Sub(time.Unix(last, 0))
		completed := c.isGameWon(ctx, code)
		threshold := staleThreshold
		if completed {
			threshold = completedThreshold
		}
		if age < threshold {
			continue
		}

		game, err := c.store.LoadGame(ctx, code)
		if err != nil {
			continue
		}
		players, _ := c.store.LoadPlayers(ctx, code)

		if err := c.store.DeleteGame(ctx, code); err != nil {
			c.logger.Warn("failed to delete game", "code", code, "error", err)
			continue
		}
		deleted = append(deleted, code)

		if err := c.store.RecordGameCleaned(ctx, store.CleanedEvent{
			Code:         code,
			CleanedAt:    now.Unix(),
			FinalStatus:  string(game.Status),
			WasCompleted: completed,
			PlayerCount:  len(players),
		}); err != nil {
			c.logger.Warn("failed to record cleanup metric", "code", code, "error", err)
		}
	}

	if err := c.store.PruneMetrics(ctx, now.Add(-metricsRetention).Unix()); err != nil {
		c.logger.Warn("failed to prune metrics", "error", err)
	}
	return deleted, nil
}

// isGameWon reports whether the game reached a single funded seat. Only
// the seat fields are needed, so the blob is decoded loosely.
func (c *Cleaner) isGameWon(ctx context.Context, code string) bool {
	blob, err := c.store.LoadEngine(ctx, code)
	if err != nil {
		return false
	}
	var partial struct {
		Seats []struct {
			Chips      int  `json:"chips"`
			SittingOut bool `json:"is_sitting_out"`
		} `json:"seats"`
	}
	if err := json.Unmarshal(blob, &partial); err != nil {
		return false
	}
	funded := 0
	for _, s := range partial.Seats {
		if s.Chips > 0 && !s.SittingOut {
			funded++
		}
	}
	return funded <= 1 && len(partial.Seats) >= 2
}
