package server

import (
	"context"
	"time"

	"github.com/pokernight/pokernight/internal/store"
)

// AdminSummary is the headline view for the admin dashboard.
type AdminSummary struct {
	ActiveGames   int `json:"active_games"`
	CreatedLast24 int `json:"created_last_24h"`
	CleanedLast24 int `json:"cleaned_last_24h"`
}

// AdminDailyEntry is one day of creation/cleanup counts.
type AdminDailyEntry struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
	Cleaned int    `json:"cleaned"`
}

// AdminGame is one live game row for the admin dashboard.
type AdminGame struct {
	Code         string           `json:"code"`
	Status       store.GameStatus `json:"status"`
	PlayerCount  int              `json:"player_count"`
	CreatedAt    int64            `json:"created_at"`
	LastActivity int64            `json:"last_activity"`
}

// AdminSummary aggregates live counts and 24 hour metrics.
func (c *Coordinator) AdminSummary(ctx context.Context) (*AdminSummary, error) {
	codes, err := c.store.ListGameCodes(ctx)
	if err != nil {
		return nil, err
	}
	since := c.clock.Now().Add(-24 * time.Hour).Unix()
	created, err := c.store.CreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	cleaned, err := c.store.CleanedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &AdminSummary{
		ActiveGames:   len(codes),
		CreatedLast24: len(created),
		CleanedLast24: len(cleaned),
	}, nil
}

// AdminDaily buckets the creation and cleanup metrics per day, oldest
// first.
func (c *Coordinator) AdminDaily(ctx context.Context, days int) ([]AdminDailyEntry, error) {
	if days <= 0 {
		days = 30
	}
	now := c.clock.Now().UTC()
	since := now.AddDate(0, 0, -days).Unix()

	created, err := c.store.CreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	cleaned, err := c.store.CleanedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*AdminDailyEntry)
	day := func(ts int64) *AdminDailyEntry {
		date := time.Unix(ts, 0).UTC().Format("2006-01-02")
		e, ok := byDay[date]
		if !ok {
			e = &AdminDailyEntry{Date: date}
			byDay[date] = e
		}
		return e
	}
	for _, ev := range created {
		day(ev.CreatedAt).Created++
	}
	for _, ev := range cleaned {
		day(ev.CleanedAt).Cleaned++
	}

	var out []AdminDailyEntry
	for d := 0; d <= days; d++ {
		date := now.AddDate(0, 0, d-days).Format("2006-01-02")
		if e, ok := byDay[date]; ok {
			out = append(out, *e)
		} else {
			out = append(out, AdminDailyEntry{Date: date})
		}
	}
	return out, nil
}

// AdminGames lists every stored game with activity timestamps.
func (c *Coordinator) AdminGames(ctx context.Context) ([]AdminGame, error) {
	codes, err := c.store.ListGameCodes(ctx)
	if err != nil {
		return nil, err
	}
	var out []AdminGame
	for _, code := range codes {
		game, err := c.store.LoadGame(ctx, code)
		if err != nil {
			continue
		}
		players, _ := c.store.LoadPlayers(ctx, code)
		last, _ := c.store.LastActivity(ctx, code)
		out = append(out, AdminGame{
			Code:         code,
			Status:       game.Status,
			PlayerCount:  len(players),
			CreatedAt:    game.CreatedAt,
			LastActivity: last,
		})
	}
	return out, nil
}
