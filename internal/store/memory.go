package store

import (
	"context"
	"sync"
)

// Memory is an in-process store used by tests and single-node dev runs.
type Memory struct {
	mu       sync.RWMutex
	games    map[string]Game
	players  map[string]map[string]Player
	engines  map[string][]byte
	activity map[string]int64
	created  []CreatedEvent
	cleaned  []CleanedEvent
}

func NewMemory() *Memory {
	return &Memory{
		games:    make(map[string]Game),
		players:  make(map[string]map[string]Player),
		engines:  make(map[string][]byte),
		activity: make(map[string]int64),
	}
}

func (m *Memory) SaveGame(_ context.Context, game *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[game.Code] = *game
	return nil
}

func (m *Memory) LoadGame(_ context.Context, code string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	game, ok := m.games[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &game, nil
}

func (m *Memory) DeleteGame(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, code)
	delete(m.players, code)
	delete(m.engines, code)
	delete(m.activity, code)
	return nil
}

func (m *Memory) ListGameCodes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var codes []string
	for code := range m.games {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *Memory) SavePlayer(_ context.Context, code string, player *Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.players[code] == nil {
		m.players[code] = make(map[string]Player)
	}
	m.players[code][player.ID] = *player
	return nil
}

func (m *Memory) LoadPlayer(_ context.Context, code, playerID string) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	player, ok := m.players[code][playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &player, nil
}

func (m *Memory) DeletePlayer(_ context.Context, code, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players[code], playerID)
	return nil
}

func (m *Memory) LoadPlayers(_ context.Context, code string) ([]*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Player
	for _, player := range m.players[code] {
		p := player
		out = append(out, &p)
	}
	return out, nil
}

func (m *Memory) SaveEngine(_ context.Context, code string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.engines[code] = cp
	return nil
}

func (m *Memory) LoadEngine(_ context.Context, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.engines[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (m *Memory) TouchActivity(_ context.Context, code string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[code] = at
	return nil
}

func (m *Memory) LastActivity(_ context.Context, code string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.activity[code]
	if !ok {
		return 0, ErrNotFound
	}
	return at, nil
}

func (m *Memory) RecordGameCreated(_ context.Context, ev CreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, ev)
	return nil
}

func (m *Memory) RecordGameCleaned(_ context.Context, ev CleanedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned = append(m.cleaned, ev)
	return nil
}

func (m *Memory) CreatedSince(_ context.Context, since int64) ([]CreatedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CreatedEvent
	for _, ev := range m.created {
		if ev.CreatedAt >= since {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *Memory) CleanedSince(_ context.Context, since int64) ([]CleanedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CleanedEvent
	for _, ev := range m.cleaned {
		if ev.CleanedAt >= since {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *Memory) PruneMetrics(_ context.Context, cutoff int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var created []CreatedEvent
	for _, ev := range m.created {
		if ev.CreatedAt > cutoff {
			created = append(created, ev)
		}
	}
	m.created = created
	var cleaned []CleanedEvent
	for _, ev := range m.cleaned {
		if ev.CleanedAt > cutoff {
			cleaned = append(cleaned, ev)
		}
	}
	m.cleaned = cleaned
	return nil
}

func (m *Memory) Close() error { return nil }
