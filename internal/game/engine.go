// internal/game/engine.go
//
// Session state machine for a single country guessing play-through.
// Responsibilities:
//   - Draw a target from the difficulty-filtered catalog snapshot.
//   - Evaluate and record guesses (newest first), ignoring duplicates.
//   - Track state transitions: welcome → playing → won/lost, and reset.
//
// Notes:
//   - Target selection goes through a Picker so daily mode and tests can
//     pin it; the default is uniform crypto-random.
//   - A Session is owned by one player; it does no locking of its own.
package game

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/robalobadob/countryle/internal/countries"
)

var (
	// ErrEmptyCatalog is returned by Start when no country carries the chosen
	// difficulty. The session is left as it was.
	ErrEmptyCatalog = errors.New("game: no countries for difficulty")
	// ErrNotPlaying is returned by operations that need a live session.
	ErrNotPlaying = errors.New("game: session is not playing")
	// ErrNotFinished is returned by Outcome before the session is won or lost.
	ErrNotFinished = errors.New("game: session is not finished")
)

// Attempt budgets per difficulty.
var maxAttempts = map[countries.Difficulty]int{
	countries.Easy:   10,
	countries.Medium: 7,
	countries.Hard:   5,
}

// MaxAttempts returns the attempt budget for d, or 0 for an unknown tag.
func MaxAttempts(d countries.Difficulty) int { return maxAttempts[d] }

// Picker chooses the index of the target within a pool of n > 0 countries.
type Picker interface {
	Pick(n int) int
}

// PickerFunc adapts a plain function to Picker.
type PickerFunc func(n int) int

func (f PickerFunc) Pick(n int) int { return f(n) }

// RandomPicker picks uniformly using crypto/rand.
var RandomPicker Picker = PickerFunc(func(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
})

// NewSession returns a session in the welcome state.
func NewSession(id string) *Session {
	return &Session{ID: id, State: StateWelcome}
}

// Start draws a target from the records of catalog tagged d and moves the
// session to playing. Any previous guesses are discarded. If no record
// matches, ErrEmptyCatalog is returned and the session is not touched.
func (s *Session) Start(catalog []countries.Country, d countries.Difficulty, p Picker, now time.Time) error {
	if !d.Valid() {
		return countries.ErrInvalidDifficulty
	}
	pool := countries.Filter(catalog, d)
	if len(pool) == 0 {
		return ErrEmptyCatalog
	}
	if p == nil {
		p = RandomPicker
	}
	i := p.Pick(len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}

	s.Difficulty = d
	s.Target = pool[i]
	s.Guesses = nil
	s.MaxAttempts = MaxAttempts(d)
	s.StartedAt = now
	s.FinishedAt = time.Time{}
	s.State = StatePlaying
	return nil
}

// Submit evaluates c against the target and prepends the result.
// It returns accepted=false, leaving the session unchanged, when the session
// is not playing or c has already been guessed.
//
// State transitions:
//   - Correct guess → won.
//   - Otherwise, the budget is exhausted → lost.
func (s *Session) Submit(c countries.Country, now time.Time) (GuessRecord, bool) {
	if s.State != StatePlaying || s.Guessed(c.Name) {
		return GuessRecord{}, false
	}

	g := Evaluate(c, s.Target)
	s.Guesses = append([]GuessRecord{g}, s.Guesses...)

	switch {
	case g.IsCorrect:
		s.State = StateWon
	case len(s.Guesses) >= s.MaxAttempts:
		s.State = StateLost
	}
	if s.State.Terminal() {
		s.FinishedAt = now
	}
	return g, true
}

// Guessed reports whether name has already been submitted (case-insensitive).
func (s *Session) Guessed(name string) bool {
	for _, g := range s.Guesses {
		if strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

// GuessedNames lists submitted country names, newest first.
func (s *Session) GuessedNames() []string {
	out := make([]string, len(s.Guesses))
	for i, g := range s.Guesses {
		out[i] = g.Name
	}
	return out
}

// Reset returns the session to the welcome state. No outcome is produced.
func (s *Session) Reset() {
	s.Difficulty = ""
	s.Target = countries.Country{}
	s.Guesses = nil
	s.MaxAttempts = 0
	s.StartedAt = time.Time{}
	s.FinishedAt = time.Time{}
	s.State = StateWelcome
}

// AttemptsRemaining is MaxAttempts − len(Guesses), never negative.
func (s *Session) AttemptsRemaining() int {
	if n := s.MaxAttempts - len(s.Guesses); n > 0 {
		return n
	}
	return 0
}

// Outcome summarizes a finished session.
func (s *Session) Outcome() (Outcome, error) {
	if !s.State.Terminal() {
		return Outcome{}, ErrNotFinished
	}
	guesses := make([]GuessRecord, len(s.Guesses))
	copy(guesses, s.Guesses)
	return Outcome{
		SessionID:  s.ID,
		Difficulty: s.Difficulty,
		State:      s.State,
		TargetName: s.Target.Name,
		Guesses:    guesses,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}, nil
}
