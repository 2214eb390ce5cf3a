package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	metricsCreatedKey = "metrics:game_created"
	metricsCleanedKey = "metrics:game_cleaned"
)

// Redis is the production store, one JSON value per key.
type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis URL (redis://host:port/db).
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping verifies the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func gameKey(code string) string     { return "game:" + code }
func playersKey(code string) string  { return "game:" + code + ":players" }
func engineKey(code string) string   { return "game:" + code + ":engine" }
func activityKey(code string) string { return "game:" + code + ":last_activity" }
func playerKey(code, id string) string {
	return "game:" + code + ":player:" + id
}

func (r *Redis) SaveGame(ctx context.Context, game *Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, gameKey(game.Code), data, 0).Err()
}

func (r *Redis) LoadGame(ctx context.Context, code string) (*Game, error) {
	raw, err := r.client.Get(ctx, gameKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var game Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", code, err)
	}
	return &game, nil
}

// DeleteGame removes every key belonging to a game.
func (r *Redis) DeleteGame(ctx context.Context, code string) error {
	ids, err := r.client.SMembers(ctx, playersKey(code)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := []string{gameKey(code), playersKey(code), engineKey(code), activityKey(code)}
	for _, id := range ids {
		keys = append(keys, playerKey(code, id))
	}
	return r.client.Del(ctx, keys...).Err()
}

// ListGameCodes scans for top-level game keys. Sub-keys share the
// prefix, so anything with a second separator is skipped.
func (r *Redis) ListGameCodes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := r.client.Scan(ctx, 0, "game:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		rest := strings.TrimPrefix(key, "game:")
		if !strings.Contains(rest, ":") {
			codes = append(codes, rest)
		}
	}
	return codes, iter.Err()
}

func (r *Redis) SavePlayer(ctx context.Context, code string, player *Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, playerKey(code, player.ID), data, 0)
	pipe.SAdd(ctx, playersKey(code), player.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) LoadPlayer(ctx context.Context, code, playerID string) (*Player, error) {
	raw, err := r.client.Get(ctx, playerKey(code, playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var player Player
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", playerID, err)
	}
	return &player, nil
}

func (r *Redis) DeletePlayer(ctx context.Context, code, playerID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, playerKey(code, playerID))
	pipe.SRem(ctx, playersKey(code), playerID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) LoadPlayers(ctx context.Context, code string) ([]*Player, error) {
	ids, err := r.client.SMembers(ctx, playersKey(code)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	var players []*Player
	for _, id := range ids {
		p, err := r.LoadPlayer(ctx, code, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func (r *Redis) SaveEngine(ctx context.Context, code string, blob []byte) error {
	return r.client.Set(ctx, engineKey(code), blob, 0).Err()
}

func (r *Redis) LoadEngine(ctx context.Context, code string) ([]byte, error) {
	raw, err := r.client.Get(ctx, engineKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (r *Redis) TouchActivity(ctx context.Context, code string, at int64) error {
	return r.client.Set(ctx, activityKey(code), at, 0).Err()
}

func (r *Redis) LastActivity(ctx context.Context, code string) (int64, error) {
	raw, err := r.client.Get(ctx, activityKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (r *Redis) RecordGameCreated(ctx context.Context, ev CreatedEvent) error {
	entry, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.ZAdd(ctx, metricsCreatedKey, redis.Z{
		Score:  float64(ev.CreatedAt),
		Member: string(entry),
	}).Err()
}

func (r *Redis) RecordGameCleaned(ctx context.Context, ev CleanedEvent) error {
	entry, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.ZAdd(ctx, metricsCleanedKey, redis.Z{
		Score:  float64(ev.CleanedAt),
		Member: string(entry),
	}).Err()
}

func (r *Redis) CreatedSince(ctx context.Context, since int64) ([]CreatedEvent, error) {
	raw, err := r.rangeByScore(ctx, metricsCreatedKey, since)
	if err != nil {
		return nil, err
	}
	var out []CreatedEvent
	for _, entry := range raw {
		var ev CreatedEvent
		if err := json.Unmarshal([]byte(entry), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *Redis) CleanedSince(ctx context.Context, since int64) ([]CleanedEvent, error) {
	raw, err := r.rangeByScore(ctx, metricsCleanedKey, since)
	if err != nil {
		return nil, err
	}
	var out []CleanedEvent
	for _, entry := range raw {
		var ev CleanedEvent
		if err := json.Unmarshal([]byte(entry), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *Redis) rangeByScore(ctx context.Context, key string, since int64) ([]string, error) {
	return r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since, 10),
		Max: "+inf",
	}).Result()
}

func (r *Redis) PruneMetrics(ctx context.Context, cutoff int64) error {
	max := strconv.FormatInt(cutoff, 10)
	if err := r.client.ZRemRangeByScore(ctx, metricsCreatedKey, "-inf", max).Err(); err != nil {
		return err
	}
	return r.client.ZRemRangeByScore(ctx, metricsCleanedKey, "-inf", max).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
