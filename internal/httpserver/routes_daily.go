// internal/httpserver/routes_daily.go
//
// HTTP routes for the "country of the day" mode.
// Daily games themselves are started through POST /game/new with
// "mode":"daily"; this file exposes the ranking:
//   - GET /daily/leaderboard → fastest wins for today (or ?date=YYYY-MM-DD)
//
// A player's first daily game of the date is the one that counts.

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/robalobadob/countryle/internal/daily"
)

const leaderboardSize = 20

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// LeaderboardResponse is returned by /daily/leaderboard.
type LeaderboardResponse struct {
	Date string        `json:"date"`
	Top  []daily.Entry `json:"top"`
}

type leaderboardQuery struct {
	Date string `query:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.Board == nil {
		writeError(w, http.StatusNotFound, "leaderboard unavailable")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rows, err := s.Board.Leaderboard(r.Context(), date, leaderboardSize)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Date: date, Top: rows})
}
