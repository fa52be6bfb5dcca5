package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/robalobadob/countryle/internal/history"
	"github.com/robalobadob/countryle/internal/users"
)

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	errors                             []int
}

var operations = []operation{
	{http.MethodGet, "/health", "Health check", "Reports whether the database answers.", nil, HealthResponse{}, []int{http.StatusServiceUnavailable}},
	{http.MethodPost, "/game/new", "Start a game", "Starts a classic or daily game and makes it the player's current one.", NewGameRequest{}, GameResponse{},
		[]int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable}},
	{http.MethodPost, "/game/guess", "Submit a guess", "Evaluates a country against the target. Duplicate or late guesses are not accepted and cost nothing.", GuessRequest{}, GuessResponse{},
		[]int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{http.MethodPost, "/game/reset", "Abandon a game", "Discards the game without recording it.", ResetRequest{}, OKResponse{}, []int{http.StatusNotFound}},
	{http.MethodGet, "/game/{id}", "Get game state", "Returns the game. The target is included once the game is over.", gamePath{}, GameResponse{}, []int{http.StatusNotFound}},
	{http.MethodGet, "/game/{id}/achievements", "Poll unlocks", "Achievements unlocked by a finished game; ready is false while it is being recorded.", gamePath{}, UnlocksResponse{},
		[]int{http.StatusNotFound, http.StatusConflict}},
	{http.MethodGet, "/countries/search", "Suggest countries", "Case-insensitive substring match, at most 10 names, skipping names already guessed in gameId.", searchQuery{}, []string{}, []int{http.StatusNotFound}},
	{http.MethodGet, "/daily/leaderboard", "Daily leaderboard", "Fastest daily wins for a date (default today).", leaderboardQuery{}, LeaderboardResponse{}, []int{http.StatusBadRequest, http.StatusNotFound}},
	{http.MethodPost, "/auth/signup", "Sign up", "Creates an account and sets the auth cookie.", Credentials{}, authUser{}, []int{http.StatusBadRequest, http.StatusConflict}},
	{http.MethodPost, "/auth/login", "Log in", "Sets the auth cookie.", Credentials{}, authUser{}, []int{http.StatusUnauthorized}},
	{http.MethodPost, "/auth/logout", "Log out", "Clears the auth cookie.", nil, OKResponse{}, nil},
	{http.MethodGet, "/auth/me", "Current player", "Requires auth.", nil, users.User{}, []int{http.StatusUnauthorized, http.StatusNotFound}},
	{http.MethodPatch, "/auth/me", "Update profile", "Sets the display name; an empty name clears it. Requires auth.", ProfileRequest{}, users.User{},
		[]int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}},
	{http.MethodGet, "/stats/me", "Player statistics", "Totals, win rate and streaks. Requires auth.", nil, StatsResponse{}, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/games/mine", "Recent games", "The player's last 50 games, newest first. Requires auth.", nil, []history.Game{}, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/achievements", "Achievements", "Every achievement with the player's unlock status. Requires auth.", nil, []AchievementStatus{}, []int{http.StatusUnauthorized}},
}

func newOpenAPISpec(ops []operation) (*openapi3.Spec, error) {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Countryle API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Guess-the-country game backend.")

	for _, op := range ops {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			return nil, fmt.Errorf("openapi %s %s: %w", op.method, op.path, err)
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(http.StatusOK))
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		if err := r.AddOperation(oc); err != nil {
			return nil, fmt.Errorf("openapi %s %s: %w", op.method, op.path, err)
		}
	}
	return r.Spec, nil
}

// handleOpenAPI renders the document once; a broken operation fails startup.
func handleOpenAPI(ops []operation) (http.HandlerFunc, error) {
	spec, err := newOpenAPISpec(ops)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}, nil
}
