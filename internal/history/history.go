// internal/history/history.go
//
// Record store for finished games and unlocked achievements.
// Defines:
//   - Game / Unlock: persisted records.
//   - Store: read and append calls used after a game ends.
//   - Summarize: per-player statistics for the stats page.
//
// Implementations:
//   - memory.go: map-backed, for development and tests.
//   - sql.go: SQLite tables games, user_achievements and daily_claims.
package history

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/game"
)

var (
	// ErrAppendFailed wraps any failure to append a game or achievement.
	ErrAppendFailed = errors.New("history: append failed")
	// ErrDailyClaimed is returned by ClaimDaily when the player already
	// started that day's game at that difficulty.
	ErrDailyClaimed = errors.New("history: daily game already claimed")
)

// Result is the outcome of a finished game.
type Result string

const (
	Won  Result = "won"
	Lost Result = "lost"
)

// Game is a finished game as stored.
type Game struct {
	ID         string               `json:"id"`
	PlayerID   string               `json:"-"`
	Difficulty countries.Difficulty `json:"difficulty"`
	Mode       string               `json:"mode"`
	Result     Result               `json:"result"`
	TargetName string               `json:"targetName"`
	Attempts   int                  `json:"attempts"`
	Guesses    []string             `json:"guesses"` // country names, newest first
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt time.Time            `json:"finishedAt"`
}

// Elapsed is FinishedAt − StartedAt.
func (g Game) Elapsed() time.Duration { return g.FinishedAt.Sub(g.StartedAt) }

// FromOutcome builds the record for a finished session.
func FromOutcome(player, mode string, o game.Outcome) Game {
	g := Game{
		ID:         o.SessionID,
		PlayerID:   player,
		Difficulty: o.Difficulty,
		Mode:       mode,
		Result:     Lost,
		TargetName: o.TargetName,
		Attempts:   len(o.Guesses),
		Guesses:    make([]string, len(o.Guesses)),
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if o.State == game.StateWon {
		g.Result = Won
	}
	for i, r := range o.Guesses {
		g.Guesses[i] = r.Name
	}
	return g
}

// Unlock is an achievement unlocked by a player.
type Unlock struct {
	Code       achievements.Code `json:"code" db:"achievement_code"`
	UnlockedAt time.Time         `json:"unlockedAt" db:"unlocked_at"`
}

// Store is the record store the game reads from and appends to after a
// game ends. Reads never observe an append that has not returned.
type Store interface {
	// RecentGames returns the player's games, newest finish first. limit <= 0
	// returns all of them.
	RecentGames(ctx context.Context, player string, limit int) ([]Game, error)
	// CountGames returns how many games the player has finished.
	CountGames(ctx context.Context, player string) (int, error)
	// RecordGame appends a finished game.
	RecordGame(ctx context.Context, g Game) error
	// UnlockedAchievements returns the player's unlocks, oldest first.
	UnlockedAchievements(ctx context.Context, player string) ([]Unlock, error)
	// RecordAchievement appends an unlock. Unlocking a code twice is a no-op.
	RecordAchievement(ctx context.Context, player string, code achievements.Code, at time.Time) error
	// ClaimDaily marks the daily game of day (YYYY-MM-DD) at difficulty d as
	// started by player. A second claim returns ErrDailyClaimed.
	ClaimDaily(ctx context.Context, player, day string, d countries.Difficulty, at time.Time) error
}

// Stats aggregates a player's games.
type Stats struct {
	Total         int     `json:"total"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       int     `json:"winRate"` // percent, rounded
	AvgAttempts   float64 `json:"avgAttempts"`
	BestStreak    int     `json:"bestStreak"`
	CurrentStreak int     `json:"currentStreak"`
}

// Summarize computes Stats from games ordered newest first.
func Summarize(games []Game) Stats {
	var (
		s        Stats
		attempts int
		run      int
		current  = true
	)
	for _, g := range games {
		s.Total++
		attempts += g.Attempts
		if g.Result == Won {
			s.Wins++
			run++
			if current {
				s.CurrentStreak++
			}
		} else {
			s.Losses++
			run = 0
			current = false
		}
		if run > s.BestStreak {
			s.BestStreak = run
		}
	}
	if s.Total > 0 {
		s.WinRate = int(math.Round(float64(s.Wins) / float64(s.Total) * 100))
		s.AvgAttempts = math.Round(float64(attempts)/float64(s.Total)*10) / 10
	}
	return s
}

// Snapshot reads the history used by the achievement rules. It must be
// called before the finished game is recorded.
func Snapshot(ctx context.Context, st Store, player string) (achievements.History, error) {
	recent, err := st.RecentGames(ctx, player, achievements.RecentNeeded)
	if err != nil {
		return achievements.History{}, err
	}
	count, err := st.CountGames(ctx, player)
	if err != nil {
		return achievements.History{}, err
	}
	unlocked, err := st.UnlockedAchievements(ctx, player)
	if err != nil {
		return achievements.History{}, err
	}

	h := achievements.History{
		Recent:     make([]achievements.Finished, len(recent)),
		PriorCount: count,
		Unlocked:   make(map[achievements.Code]bool, len(unlocked)),
	}
	for i, g := range recent {
		h.Recent[i] = achievements.Finished{Won: g.Result == Won, FinishedAt: g.FinishedAt}
	}
	for _, u := range unlocked {
		h.Unlocked[u.Code] = true
	}
	return h, nil
}
