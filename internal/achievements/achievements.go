// internal/achievements/achievements.go
//
// Achievement rule engine.
// Defines:
//   - Code: the closed set of achievement identifiers.
//   - Catalog: one entry per code, each with a pure predicate.
//   - History: the player's record as it stood before the finished game.
//   - Evaluate: codes newly unlocked by a finished game.
//
// Adding an achievement means adding a Code and a Catalog entry together.
package achievements

import (
	"time"

	"github.com/robalobadob/countryle/internal/game"
)

// Code identifies an achievement.
type Code string

const (
	FirstWin     Code = "first_win"
	StreakMaster Code = "streak_master"
	SpeedDemon   Code = "speed_demon"
	Sharpshooter Code = "sharpshooter"
	GlobeTrotter Code = "globe_trotter"
)

const (
	streakLength     = 5
	speedLimit       = 2 * time.Minute
	sharpshooterMax  = 3
	globeTrotterGame = 20
)

// RecentNeeded is how many prior games History.Recent must hold for the
// streak rule to see a full window.
const RecentNeeded = streakLength - 1

// Outcome is the finished game being evaluated.
type Outcome = game.Outcome

// Finished is a previously recorded game as seen by the rules.
type Finished struct {
	Won        bool
	FinishedAt time.Time
}

// History is the player's record taken before the current game was stored.
type History struct {
	Recent     []Finished    // prior games, newest first; RecentNeeded is enough
	PriorCount int           // number of prior finished games
	Unlocked   map[Code]bool // codes already unlocked
}

// Rule reports whether an achievement is earned.
type Rule func(o Outcome, h History) bool

// Achievement is a catalog entry.
type Achievement struct {
	Code        Code   `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rule        Rule   `json:"-"`
}

// Catalog lists every achievement in presentation order.
var Catalog = []Achievement{
	{FirstWin, "First Win", "Win your first game", firstWin},
	{StreakMaster, "Streak Master", "Win 5 games in a row", streakMaster},
	{SpeedDemon, "Speed Demon", "Win a game in under 2 minutes", speedDemon},
	{Sharpshooter, "Sharpshooter", "Win a game in 3 or fewer attempts", sharpshooter},
	{GlobeTrotter, "Globe Trotter", "Play 20 games", globeTrotter},
}

// Evaluate returns the codes unlocked by o, in catalog order, skipping any
// already present in h.Unlocked. Rules are independent of one another.
func Evaluate(o Outcome, h History) []Code {
	var out []Code
	for _, a := range Catalog {
		if h.Unlocked[a.Code] {
			continue
		}
		if a.Rule(o, h) {
			out = append(out, a.Code)
		}
	}
	return out
}

// Lookup returns the catalog entry for c.
func Lookup(c Code) (Achievement, bool) {
	for _, a := range Catalog {
		if a.Code == c {
			return a, true
		}
	}
	return Achievement{}, false
}

func won(o Outcome) bool { return o.State == game.StateWon }

func firstWin(o Outcome, _ History) bool { return won(o) }

// streakMaster looks at the finished game followed by the prior games,
// newest first. The five newest must all be wins.
func streakMaster(o Outcome, h History) bool {
	if !won(o) || len(h.Recent) < streakLength-1 {
		return false
	}
	for _, g := range h.Recent[:streakLength-1] {
		if !g.Won {
			return false
		}
	}
	return true
}

func speedDemon(o Outcome, _ History) bool {
	return won(o) && o.Elapsed() < speedLimit
}

func sharpshooter(o Outcome, _ History) bool {
	return won(o) && len(o.Guesses) <= sharpshooterMax
}

// globeTrotter counts the finished game on top of the prior ones.
func globeTrotter(_ Outcome, h History) bool {
	return h.PriorCount+1 >= globeTrotterGame
}
