// internal/httpserver/server.go
//
// HTTP server wiring for the country guessing backend.
// Responsibilities:
//   - Router + middleware (request IDs, JSON, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health", "/openapi.json", "/docs".
//   - Game endpoints (optional auth): /game/new, /game/guess, /game/reset,
//     /game/{id}, /game/{id}/achievements, /countries/search.
//   - Daily leaderboard: /daily/leaderboard.
//   - Auth + profile endpoints: /auth/*, /stats/me, /games/mine, /achievements.
//
// Notes:
//   - Guests can play; games are persisted and achievements evaluated only
//     for signed-in players.
//   - The target country is only revealed once a game is won or lost.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/swaggest/swgui/v5emb"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/controller"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/daily"
	"github.com/robalobadob/countryle/internal/game"
	"github.com/robalobadob/countryle/internal/history"
	"github.com/robalobadob/countryle/internal/users"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Controller   *controller.Controller
	Records      history.Store
	Users        *users.Store
	Board        *daily.Board // nil disables /daily/leaderboard
	DB           *sqlx.DB     // pinged by /health
	Logger       zerolog.Logger
	Auth         AuthConfig
	ClientOrigin string
}

// Server bundles the router and its dependencies.
type Server struct {
	r *chi.Mux
	Deps
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) (*Server, error) {
	s := &Server{r: chi.NewRouter(), Deps: d}

	openAPI, err := handleOpenAPI(operations)
	if err != nil {
		return nil, err
	}

	// --- middleware ---
	s.r.Use(requestID(d.Logger))             // X-Request-ID + request logger
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(credentialedCORS(d.ClientOrigin))

	// --- docs ---
	s.r.Get("/openapi.json", openAPI)
	s.r.Mount("/docs", v5emb.New("Countryle API", "/openapi.json", "/docs"))

	s.r.Group(func(r chi.Router) {
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service":   "countryle",
				"endpoints": []string{"/health", "POST /game/new", "POST /game/guess", "/auth/*", "/docs"},
			})
		})
		r.Get("/health", s.handleHealth)

		// Game endpoints, optional auth (guests can play)
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			r.Post("/game/new", s.handleNewGame)
			r.Post("/game/guess", s.handleGuess)
			r.Post("/game/reset", s.handleReset)
			r.Get("/game/{id}", s.handleGetGame)
			r.Get("/game/{id}/achievements", s.handleGameAchievements)
			r.Get("/countries/search", s.handleSearch)
		})

		s.mountDaily(r)

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s, nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// ------------------------------ helpers ------------------------------------

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OKResponse acknowledges requests that have nothing else to return.
type OKResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeGameError maps engine and controller errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, countries.ErrInvalidDifficulty),
		errors.Is(err, controller.ErrInvalidMode),
		errors.Is(err, countries.ErrUnknownCountry):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, controller.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrEmptyCatalog),
		errors.Is(err, game.ErrNotPlaying),
		errors.Is(err, controller.ErrSessionSuperseded),
		errors.Is(err, controller.ErrDailyPlayed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, countries.ErrCatalogUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("catalog unavailable")
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	return true
}

// ---------------------------- diagnostics ----------------------------------

// HealthResponse is returned by /health.
type HealthResponse struct {
	OK       bool `json:"ok"`
	Database bool `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := HealthResponse{OK: true, Database: true}
	if s.DB != nil {
		if err := s.DB.PingContext(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("database ping failed")
			res.OK, res.Database = false, false
			writeJSON(w, http.StatusServiceUnavailable, res)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// ------------------------------- GAME --------------------------------------

// NewGameRequest is the payload for POST /game/new.
type NewGameRequest struct {
	Difficulty string `json:"difficulty" required:"true" enum:"easy,medium,hard"`
	Mode       string `json:"mode,omitempty" enum:"classic,daily"`
}

// GameResponse describes a session. Summary is set once it is finished.
type GameResponse struct {
	controller.View
	Summary *TargetSummary `json:"summary,omitempty"`
}

func gameResponse(v controller.View) GameResponse {
	return GameResponse{View: v, Summary: summarize(v)}
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := s.Controller.Start(r.Context(), playerID(r), req.Difficulty, req.Mode)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse(v))
}

// GuessRequest is the payload for POST /game/guess.
type GuessRequest struct {
	GameID  string `json:"gameId" required:"true"`
	Country string `json:"country" required:"true"`
}

// GuessResponse is returned by POST /game/guess.
type GuessResponse struct {
	Guess    *game.GuessRecord `json:"guess,omitempty"`
	Accepted bool              `json:"accepted"`
	GameResponse
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req GuessRequest
	if !decode(w, r, &req) {
		return
	}
	if req.GameID == "" || strings.TrimSpace(req.Country) == "" {
		writeError(w, http.StatusBadRequest, "gameId and country are required")
		return
	}
	res, err := s.Controller.Guess(r.Context(), playerID(r), req.GameID, req.Country)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GuessResponse{
		Guess:        res.Guess,
		Accepted:     res.Accepted,
		GameResponse: gameResponse(res.View),
	})
}

// ResetRequest is the payload for POST /game/reset.
type ResetRequest struct {
	GameID string `json:"gameId" required:"true"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Controller.Reset(r.Context(), playerID(r), req.GameID); err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

type gamePath struct {
	ID string `path:"id"`
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	v, err := s.Controller.Session(r.Context(), playerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse(v))
}

// UnlocksResponse is returned by GET /game/{id}/achievements. Ready is false
// while the finished game is still being recorded.
type UnlocksResponse struct {
	Ready   bool                       `json:"ready"`
	Unlocks []achievements.Achievement `json:"unlocks"`
}

func (s *Server) handleGameAchievements(w http.ResponseWriter, r *http.Request) {
	codes, ready, err := s.Controller.Unlocks(playerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	res := UnlocksResponse{Ready: ready, Unlocks: []achievements.Achievement{}}
	for _, c := range codes {
		if a, ok := achievements.Lookup(c); ok {
			res.Unlocks = append(res.Unlocks, a)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

type searchQuery struct {
	Q      string `query:"q" required:"true" minLength:"2"`
	GameID string `query:"gameId"`
}

// handleSearch suggests country names. Names already guessed in gameId are
// left out.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	found, err := s.Controller.Search(r.Context(), playerID(r), r.URL.Query().Get("gameId"), r.URL.Query().Get("q"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	names := make([]string, 0, len(found))
	for _, c := range found {
		names = append(names, c.Name)
	}
	writeJSON(w, http.StatusOK, names)
}
