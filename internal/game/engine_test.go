package game

import (
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/countryle/internal/countries"
)

func ptr[T any](v T) *T { return &v }

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func country(name string, d countries.Difficulty, lat, lon float64) countries.Country {
	return countries.Country{
		Name:       name,
		Continent:  ptr("Europe"),
		Latitude:   ptr(lat),
		Longitude:  ptr(lon),
		Population: ptr(int64(1_000_000)),
		Difficulty: d,
	}
}

func fixed(i int) Picker { return PickerFunc(func(int) int { return i }) }

func TestStartSingleCountryCatalog(t *testing.T) {
	catalog := []countries.Country{country("Numeria", countries.Easy, 10, 20)}

	for i := 0; i < 20; i++ {
		s := NewSession("s1")
		if err := s.Start(catalog, countries.Easy, nil, t0); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if s.Target.Name != "Numeria" {
			t.Fatalf("target = %q, want Numeria", s.Target.Name)
		}
	}

	s := NewSession("s1")
	_ = s.Start(catalog, countries.Easy, nil, t0)
	g, ok := s.Submit(catalog[0], t0.Add(5*time.Second))
	if !ok || !g.IsCorrect {
		t.Fatalf("Submit = %+v, %v", g, ok)
	}
	if s.State != StateWon || len(s.Guesses) != 1 {
		t.Fatalf("state = %s with %d guesses, want won with 1", s.State, len(s.Guesses))
	}
	if !s.FinishedAt.Equal(t0.Add(5 * time.Second)) {
		t.Fatalf("FinishedAt = %v", s.FinishedAt)
	}
}

func TestStartEmptyCatalogLeavesSessionAlone(t *testing.T) {
	s := NewSession("s1")
	err := s.Start([]countries.Country{country("Numeria", countries.Easy, 0, 0)}, countries.Hard, nil, t0)
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
	if s.State != StateWelcome || s.MaxAttempts != 0 {
		t.Fatalf("session mutated: %+v", s)
	}

	if err := s.Start(nil, "extreme", nil, t0); !errors.Is(err, countries.ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
}

func TestMaxAttemptsTable(t *testing.T) {
	cases := map[countries.Difficulty]int{countries.Easy: 10, countries.Medium: 7, countries.Hard: 5, "other": 0}
	for d, want := range cases {
		if got := MaxAttempts(d); got != want {
			t.Errorf("MaxAttempts(%q) = %d, want %d", d, got, want)
		}
	}
}

func TestHardSessionCapsAtFiveGuesses(t *testing.T) {
	catalog := []countries.Country{country("Target", countries.Hard, 0, 0)}
	s := NewSession("s1")
	if err := s.Start(catalog, countries.Hard, fixed(0), t0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	accepted := 0
	for i, n := range names {
		_, ok := s.Submit(country(n, countries.Hard, float64(i), 1), t0)
		if ok {
			accepted++
		}
		if len(s.Guesses) > s.MaxAttempts {
			t.Fatalf("guesses exceed budget: %d > %d", len(s.Guesses), s.MaxAttempts)
		}
	}
	if accepted != 5 {
		t.Fatalf("accepted %d guesses, want 5", accepted)
	}
	if s.State != StateLost {
		t.Fatalf("state = %s, want lost", s.State)
	}
	if s.AttemptsRemaining() != 0 {
		t.Fatalf("AttemptsRemaining = %d", s.AttemptsRemaining())
	}
	if s.Guesses[0].Name != "E" || s.Guesses[4].Name != "A" {
		t.Fatalf("guesses not newest first: %v", s.GuessedNames())
	}
}

func TestDuplicateGuessIsIgnored(t *testing.T) {
	catalog := []countries.Country{
		country("Target", countries.Medium, 0, 0),
		country("Other", countries.Medium, 5, 5),
	}
	s := NewSession("s1")
	_ = s.Start(catalog, countries.Medium, fixed(0), t0)

	if _, ok := s.Submit(catalog[1], t0); !ok {
		t.Fatal("first guess rejected")
	}
	dup := catalog[1]
	dup.Name = "OTHER"
	if _, ok := s.Submit(dup, t0); ok {
		t.Fatal("duplicate guess accepted")
	}
	if len(s.Guesses) != 1 || s.AttemptsRemaining() != 6 {
		t.Fatalf("duplicate consumed an attempt: %d guesses, %d remaining", len(s.Guesses), s.AttemptsRemaining())
	}
}

func TestSubmitOutsidePlaying(t *testing.T) {
	s := NewSession("s1")
	if _, ok := s.Submit(country("X", countries.Easy, 0, 0), t0); ok {
		t.Fatal("guess accepted in welcome state")
	}
}

func TestResetDiscardsSession(t *testing.T) {
	catalog := []countries.Country{country("Target", countries.Easy, 0, 0), country("Other", countries.Easy, 1, 1)}
	s := NewSession("s1")
	_ = s.Start(catalog, countries.Easy, fixed(0), t0)
	s.Submit(catalog[1], t0)

	s.Reset()
	if s.State != StateWelcome || len(s.Guesses) != 0 || s.Target.Name != "" {
		t.Fatalf("reset left state behind: %+v", s)
	}
	if _, err := s.Outcome(); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}

	// a fresh start after reset behaves like a new session
	if err := s.Start(catalog, countries.Easy, fixed(1), t0); err != nil {
		t.Fatalf("Start after reset: %v", err)
	}
	if s.Target.Name != "Other" || s.AttemptsRemaining() != 10 {
		t.Fatalf("restart = %+v", s)
	}
}

func TestOutcome(t *testing.T) {
	catalog := []countries.Country{country("Target", countries.Easy, 0, 0), country("Other", countries.Easy, 1, 1)}
	s := NewSession("s9")
	_ = s.Start(catalog, countries.Easy, fixed(0), t0)
	s.Submit(catalog[1], t0.Add(10*time.Second))
	s.Submit(catalog[0], t0.Add(90*time.Second))

	o, err := s.Outcome()
	if err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if o.SessionID != "s9" || o.State != StateWon || o.TargetName != "Target" || len(o.Guesses) != 2 {
		t.Fatalf("Outcome = %+v", o)
	}
	if o.Elapsed() != 90*time.Second {
		t.Fatalf("Elapsed = %v", o.Elapsed())
	}
}
