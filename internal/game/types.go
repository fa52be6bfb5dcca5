// internal/game/types.go
//
// Core type definitions for the country guessing engine.
// Defines:
//   - Hint / Axis: per-attribute comparison results attached to a guess.
//   - GuessRecord: one evaluated guess (the guessed country plus its hints).
//   - State: welcome → playing → won/lost.
//   - Session: state for a single play-through.

package game

import (
	"time"

	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/geo"
)

// Hint is the result of comparing a numeric attribute of the guess against
// the target.
// Possible values:
//   - "match":   within 10% of the target value.
//   - "higher":  the guess is larger than the target.
//   - "lower":   the guess is smaller than the target.
//   - "unknown": one of the two values is missing from the catalog.
type Hint string

const (
	HintMatch   Hint = "match"
	HintHigher  Hint = "higher"
	HintLower   Hint = "lower"
	HintUnknown Hint = "unknown"
)

// Axis is the result of a hemisphere comparison on one axis.
type Axis string

const (
	AxisMatch     Axis = "match"
	AxisDifferent Axis = "different"
	AxisUnknown   Axis = "unknown"
)

// HemisphereMatch compares which side of the equator and of the prime
// meridian the guess and the target sit on.
type HemisphereMatch struct {
	NorthSouth Axis `json:"northSouth"`
	EastWest   Axis `json:"eastWest"`
}

// GuessRecord is an evaluated guess. It is never modified after creation.
type GuessRecord struct {
	countries.Country

	IsCorrect       bool            `json:"isCorrect"`
	ContinentMatch  bool            `json:"continentMatch"`
	HemisphereMatch HemisphereMatch `json:"hemisphereMatch"`
	PopulationHint  Hint            `json:"populationHint"`
	GDPHint         Hint            `json:"gdpHint"`
	AgeHint         Hint            `json:"ageHint"`
	DistanceKm      *int            `json:"distanceKm"`              // nil when a coordinate is missing
	DirectionHint   geo.Direction   `json:"directionHint,omitempty"` // empty when the bearing is undefined
	Geohash         string          `json:"geohash,omitempty"`       // cell of the guessed country
}

// State is the lifecycle position of a Session.
type State string

const (
	StateWelcome State = "welcome"
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// Terminal reports whether s is won or lost.
func (s State) Terminal() bool { return s == StateWon || s == StateLost }

// Session holds the state of a single play-through.
type Session struct {
	ID          string               // Unique session identifier.
	Difficulty  countries.Difficulty // Chosen on Start.
	Target      countries.Country    // The country to find; zero until Start.
	Guesses     []GuessRecord        // Newest first.
	MaxAttempts int                  // From the fixed difficulty table.
	StartedAt   time.Time
	FinishedAt  time.Time // Zero until a terminal state is reached.
	State       State
}

// Outcome is the finished-game summary handed to achievement evaluation and
// persistence.
type Outcome struct {
	SessionID  string
	Difficulty countries.Difficulty
	State      State
	TargetName string
	Guesses    []GuessRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed is FinishedAt − StartedAt.
func (o Outcome) Elapsed() time.Duration { return o.FinishedAt.Sub(o.StartedAt) }
