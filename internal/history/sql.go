package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/daily"
)

// SQL stores history in the games, user_achievements and daily_claims tables.
type SQL struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewSQL returns a Store over an open, migrated database.
func NewSQL(db *sqlx.DB, logger zerolog.Logger) *SQL {
	return &SQL{db: db, logger: logger}
}

type gameRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Difficulty string    `db:"difficulty"`
	Mode       string    `db:"mode"`
	Result     string    `db:"result"`
	TargetName string    `db:"target_name"`
	Attempts   int       `db:"attempts"`
	Guesses    string    `db:"guesses"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Day        string    `db:"day"`
	ElapsedMs  int64     `db:"elapsed_ms"`
}

func (r gameRow) game() Game {
	g := Game{
		ID:         r.ID,
		PlayerID:   r.UserID,
		Difficulty: countries.Difficulty(r.Difficulty),
		Mode:       r.Mode,
		Result:     Result(r.Result),
		TargetName: r.TargetName,
		Attempts:   r.Attempts,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	_ = json.Unmarshal([]byte(r.Guesses), &g.Guesses)
	return g
}

func (s *SQL) RecentGames(ctx context.Context, player string, limit int) ([]Game, error) {
	var rows []gameRow
	q := `SELECT id, user_id, difficulty, mode, result, target_name, attempts, guesses,
	             started_at, finished_at, day, elapsed_ms
	      FROM games WHERE user_id = ?
	      ORDER BY finished_at DESC, rowid DESC`
	args := []any{player}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select games for %s: %w", player, err)
	}
	out := make([]Game, len(rows))
	for i, r := range rows {
		out[i] = r.game()
	}
	return out, nil
}

func (s *SQL) CountGames(ctx context.Context, player string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM games WHERE user_id = ?`, player); err != nil {
		return 0, fmt.Errorf("count games for %s: %w", player, err)
	}
	return n, nil
}

func (s *SQL) RecordGame(ctx context.Context, g Game) error {
	if g.ID == "" {
		g.ID = gonanoid.Must()
	}
	if g.Mode == "" {
		g.Mode = daily.ModeClassic
	}
	guesses, err := json.Marshal(g.Guesses)
	if err != nil {
		return fmt.Errorf("%w: encode guesses: %v", ErrAppendFailed, err)
	}
	if g.Guesses == nil {
		guesses = []byte("[]")
	}

	row := gameRow{
		ID:         g.ID,
		UserID:     g.PlayerID,
		Difficulty: string(g.Difficulty),
		Mode:       g.Mode,
		Result:     string(g.Result),
		TargetName: g.TargetName,
		Attempts:   g.Attempts,
		Guesses:    string(guesses),
		StartedAt:  g.StartedAt.UTC(),
		FinishedAt: g.FinishedAt.UTC(),
		Day:        daily.DateKey(g.StartedAt),
		ElapsedMs:  g.Elapsed().Milliseconds(),
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO games
			(id, user_id, difficulty, mode, result, target_name, attempts, guesses, started_at, finished_at, day, elapsed_ms)
		VALUES
			(:id, :user_id, :difficulty, :mode, :result, :target_name, :attempts, :guesses, :started_at, :finished_at, :day, :elapsed_ms)`,
		row)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", g.PlayerID).Str("game_id", g.ID).Msg("failed to record game")
		return fmt.Errorf("%w: insert game %s: %v", ErrAppendFailed, g.ID, err)
	}
	s.logger.Debug().Str("user_id", g.PlayerID).Str("game_id", g.ID).Str("result", row.Result).Msg("game recorded")
	return nil
}

func (s *SQL) UnlockedAchievements(ctx context.Context, player string) ([]Unlock, error) {
	out := []Unlock{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT achievement_code, unlocked_at FROM user_achievements
		WHERE user_id = ? ORDER BY unlocked_at ASC, rowid ASC`, player)
	if err != nil {
		return nil, fmt.Errorf("select achievements for %s: %w", player, err)
	}
	return out, nil
}

func (s *SQL) RecordAchievement(ctx context.Context, player string, code achievements.Code, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_achievements (user_id, achievement_code, unlocked_at)
		VALUES (?, ?, ?)`, player, string(code), at.UTC())
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", player).Str("code", string(code)).Msg("failed to record achievement")
		return fmt.Errorf("%w: insert achievement %s: %v", ErrAppendFailed, code, err)
	}
	return nil
}

func (s *SQL) ClaimDaily(ctx context.Context, player, day string, d countries.Difficulty, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO daily_claims (user_id, day, difficulty, claimed_at)
		VALUES (?, ?, ?, ?)`, player, day, string(d), at.UTC())
	if err != nil {
		return fmt.Errorf("claim daily %s for %s: %w", day, player, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDailyClaimed
	}
	return nil
}
