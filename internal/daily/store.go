package daily

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Entry is one row of a daily leaderboard.
type Entry struct {
	UserID      string `json:"userId" db:"user_id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"displayName,omitempty" db:"display_name"`
	Guesses     int    `json:"guesses" db:"attempts"`
	ElapsedMs   int64  `json:"elapsedMs" db:"elapsed_ms"`
}

// Board ranks the won daily games recorded in the games table.
type Board struct{ db *sqlx.DB }

func NewBoard(db *sqlx.DB) *Board { return &Board{db: db} }

// Leaderboard returns the fastest wins for date (YYYY-MM-DD): fewer
// milliseconds first, then fewer guesses. Only each player's first daily
// game of that date counts.
func (b *Board) Leaderboard(ctx context.Context, date string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []Entry{}
	err := b.db.SelectContext(ctx, &out, `
		SELECT g.user_id, COALESCE(u.username, '') AS username,
		       COALESCE(u.display_name, '') AS display_name, g.attempts, g.elapsed_ms
		FROM games g
		LEFT JOIN users u ON u.id = g.user_id
		WHERE g.mode = ? AND g.day = ? AND g.result = 'won'
		  AND g.started_at = (
		      SELECT MIN(f.started_at) FROM games f
		      WHERE f.user_id = g.user_id AND f.mode = g.mode AND f.day = g.day)
		ORDER BY g.elapsed_ms ASC, g.attempts ASC, g.finished_at ASC
		LIMIT ?`, ModeDaily, date, limit)
	if err != nil {
		return nil, fmt.Errorf("daily leaderboard %s: %w", date, err)
	}
	return out, nil
}
