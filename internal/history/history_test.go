package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/database"
	"github.com/robalobadob/countryle/internal/game"
)

var t0 = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func newSQL(t *testing.T) Store {
	t.Helper()
	db, err := database.Open(context.Background(), database.MemoryDSN, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQL(db, zerolog.Nop())
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{"memory": NewMemory(), "sql": newSQL(t)}
}

func played(id, player string, r Result, finish time.Duration) Game {
	return Game{
		ID:         id,
		PlayerID:   player,
		Difficulty: countries.Easy,
		Result:     r,
		TargetName: "Chad",
		Attempts:   3,
		Guesses:    []string{"Chad", "Niger", "Mali"},
		StartedAt:  t0,
		FinishedAt: t0.Add(finish),
	}
}

func TestStoreGames(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, g := range []Game{
				played("a", "p1", Won, 1*time.Minute),
				played("b", "p1", Lost, 3*time.Minute),
				played("c", "p1", Won, 2*time.Minute),
				played("d", "p2", Won, 5*time.Minute),
			} {
				if err := st.RecordGame(ctx, g); err != nil {
					t.Fatalf("RecordGame #%d: %v", i, err)
				}
			}

			all, err := st.RecentGames(ctx, "p1", 0)
			if err != nil {
				t.Fatalf("RecentGames: %v", err)
			}
			if len(all) != 3 || all[0].ID != "b" || all[1].ID != "c" || all[2].ID != "a" {
				t.Fatalf("order = %+v", all)
			}
			if len(all[0].Guesses) != 3 || all[0].Guesses[1] != "Niger" {
				t.Fatalf("guesses = %v", all[0].Guesses)
			}
			if !all[0].FinishedAt.Equal(t0.Add(3 * time.Minute)) {
				t.Fatalf("finished_at = %v", all[0].FinishedAt)
			}

			two, _ := st.RecentGames(ctx, "p1", 2)
			if len(two) != 2 {
				t.Fatalf("limit ignored: %d", len(two))
			}

			if n, _ := st.CountGames(ctx, "p1"); n != 3 {
				t.Fatalf("CountGames = %d", n)
			}
			if n, _ := st.CountGames(ctx, "nobody"); n != 0 {
				t.Fatalf("CountGames(nobody) = %d", n)
			}

			if err := st.RecordGame(ctx, played("a", "p1", Won, time.Minute)); !errors.Is(err, ErrAppendFailed) {
				t.Fatalf("duplicate id: expected ErrAppendFailed, got %v", err)
			}
		})
	}
}

func TestStoreAchievements(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.RecordAchievement(ctx, "p1", achievements.FirstWin, t0); err != nil {
				t.Fatalf("RecordAchievement: %v", err)
			}
			if err := st.RecordAchievement(ctx, "p1", achievements.SpeedDemon, t0.Add(time.Second)); err != nil {
				t.Fatalf("RecordAchievement: %v", err)
			}
			// repeat unlock is ignored
			if err := st.RecordAchievement(ctx, "p1", achievements.FirstWin, t0.Add(time.Hour)); err != nil {
				t.Fatalf("repeat RecordAchievement: %v", err)
			}

			got, err := st.UnlockedAchievements(ctx, "p1")
			if err != nil {
				t.Fatalf("UnlockedAchievements: %v", err)
			}
			if len(got) != 2 || got[0].Code != achievements.FirstWin || got[1].Code != achievements.SpeedDemon {
				t.Fatalf("unlocks = %+v", got)
			}
			if !got[0].UnlockedAt.Equal(t0) {
				t.Fatalf("unlocked_at = %v", got[0].UnlockedAt)
			}

			none, err := st.UnlockedAchievements(ctx, "p2")
			if err != nil || len(none) != 0 {
				t.Fatalf("p2 unlocks = %+v, %v", none, err)
			}
		})
	}
}

func TestStoreClaimDaily(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.ClaimDaily(ctx, "p1", "2026-04-10", countries.Easy, t0); err != nil {
				t.Fatalf("first claim: %v", err)
			}
			if err := st.ClaimDaily(ctx, "p1", "2026-04-10", countries.Easy, t0.Add(time.Minute)); !errors.Is(err, ErrDailyClaimed) {
				t.Fatalf("second claim: expected ErrDailyClaimed, got %v", err)
			}
			for _, other := range []struct {
				player, day string
				d           countries.Difficulty
			}{
				{"p1", "2026-04-10", countries.Hard},
				{"p1", "2026-04-11", countries.Easy},
				{"p2", "2026-04-10", countries.Easy},
			} {
				if err := st.ClaimDaily(ctx, other.player, other.day, other.d, t0); err != nil {
					t.Fatalf("claim %+v: %v", other, err)
				}
			}
		})
	}
}

func TestSnapshotStreakWindow(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	for i := 0; i < 6; i++ {
		r := Won
		if i == 0 {
			r = Lost // oldest
		}
		_ = st.RecordGame(ctx, played(string(rune('a'+i)), "p1", r, time.Duration(i)*time.Minute))
	}
	_ = st.RecordAchievement(ctx, "p1", achievements.FirstWin, t0)

	h, err := Snapshot(ctx, st, "p1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(h.Recent) != achievements.RecentNeeded || h.PriorCount != 6 || !h.Unlocked[achievements.FirstWin] {
		t.Fatalf("snapshot = %+v", h)
	}
	for _, f := range h.Recent {
		if !f.Won {
			t.Fatalf("oldest loss leaked into window: %+v", h.Recent)
		}
	}
}

func TestFromOutcome(t *testing.T) {
	o := game.Outcome{
		SessionID:  "s1",
		Difficulty: countries.Hard,
		State:      game.StateWon,
		TargetName: "Peru",
		Guesses: []game.GuessRecord{
			{Country: countries.Country{Name: "Peru"}, IsCorrect: true},
			{Country: countries.Country{Name: "Chile"}},
		},
		StartedAt:  t0,
		FinishedAt: t0.Add(time.Minute),
	}
	g := FromOutcome("p1", "daily", o)
	if g.ID != "s1" || g.Result != Won || g.Attempts != 2 || g.Guesses[1] != "Chile" || g.Mode != "daily" {
		t.Fatalf("FromOutcome = %+v", g)
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s != (Stats{}) {
		t.Fatalf("empty = %+v", s)
	}

	// newest first: W W L W W W L
	results := []Result{Won, Won, Lost, Won, Won, Won, Lost}
	games := make([]Game, len(results))
	for i, r := range results {
		games[i] = Game{Result: r, Attempts: i + 1}
	}
	s := Summarize(games)
	want := Stats{Total: 7, Wins: 5, Losses: 2, WinRate: 71, AvgAttempts: 4, BestStreak: 3, CurrentStreak: 2}
	if s != want {
		t.Fatalf("Summarize = %+v, want %+v", s, want)
	}
}
