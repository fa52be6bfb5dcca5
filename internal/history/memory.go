// internal/history/memory.go
//
// In-memory implementation of Store.
// Characteristics:
//   - Games and unlocks kept per player in maps.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/countries"
)

type dailyKey struct {
	player, day string
	difficulty  countries.Difficulty
}

type memory struct {
	mu      sync.RWMutex
	games   map[string][]Game   // keyed by player, insertion order
	unlocks map[string][]Unlock // keyed by player, insertion order
	claims  map[dailyKey]time.Time
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() Store {
	return &memory{
		games:   make(map[string][]Game),
		unlocks: make(map[string][]Unlock),
		claims:  make(map[dailyKey]time.Time),
	}
}

func (m *memory) RecentGames(_ context.Context, player string, limit int) ([]Game, error) {
	m.mu.RLock()
	src := m.games[player]
	out := make([]Game, len(src))
	// newest insert first so equal finish times keep append order reversed
	for i, g := range src {
		out[len(src)-1-i] = g
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) CountGames(_ context.Context, player string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games[player]), nil
}

func (m *memory) RecordGame(_ context.Context, g Game) error {
	if g.PlayerID == "" {
		return fmt.Errorf("%w: game without player", ErrAppendFailed)
	}
	if g.ID == "" {
		g.ID = gonanoid.Must()
	}
	g.Guesses = append([]string(nil), g.Guesses...)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.games[g.PlayerID] {
		if existing.ID == g.ID {
			return fmt.Errorf("%w: duplicate game %s", ErrAppendFailed, g.ID)
		}
	}
	m.games[g.PlayerID] = append(m.games[g.PlayerID], g)
	return nil
}

func (m *memory) UnlockedAchievements(_ context.Context, player string) ([]Unlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Unlock{}, m.unlocks[player]...), nil
}

func (m *memory) RecordAchievement(_ context.Context, player string, code achievements.Code, at time.Time) error {
	if player == "" {
		return fmt.Errorf("%w: unlock without player", ErrAppendFailed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.unlocks[player] {
		if u.Code == code {
			return nil
		}
	}
	m.unlocks[player] = append(m.unlocks[player], Unlock{Code: code, UnlockedAt: at})
	return nil
}

func (m *memory) ClaimDaily(_ context.Context, player, day string, d countries.Difficulty, at time.Time) error {
	k := dailyKey{player: player, day: day, difficulty: d}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[k]; ok {
		return ErrDailyClaimed
	}
	m.claims[k] = at
	return nil
}
