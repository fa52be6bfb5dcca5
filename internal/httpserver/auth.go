package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/history"
	"github.com/robalobadob/countryle/internal/users"
)

// AuthConfig controls player tokens and the auth cookie.
type AuthConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool // Secure + SameSite=None cookies
}

// ------------------------------- AUTH --------------------------------------

// Credentials is the payload for signup and login.
type Credentials struct {
	Username string `json:"username" required:"true"`
	Password string `json:"password" required:"true"`
}

// ProfileRequest is the body of PATCH /auth/me. An empty display name
// clears it.
type ProfileRequest struct {
	DisplayName string `json:"displayName" maxLength:"32"`
}

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

func currentUser(r *http.Request) *authUser {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return me
}

// playerID is the signed-in user's ID, or "" for guests.
func playerID(r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.ID
	}
	return ""
}

// mountAuthRoutes registers authentication + gated routes.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/auth/me", s.handleMe)
		r.Patch("/auth/me", s.handleUpdateProfile)
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMyGames)
		r.Get("/achievements", s.handleAchievements)
	})
}

// handleSignup creates a new user, signs a JWT and sets the auth cookie.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body Credentials
	if !decode(w, r, &body) {
		return
	}
	u, err := s.Users.Create(r.Context(), body.Username, body.Password)
	if err != nil {
		var ve *users.ValidationError
		switch {
		case errors.Is(err, users.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username taken")
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Reason)
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("signup")
			writeError(w, http.StatusInternalServerError, "server error")
		}
		return
	}
	if !s.issueToken(w, r, u) {
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("user_id", u.ID).Msg("player signed up")
	writeJSON(w, http.StatusOK, u)
}

// handleLogin authenticates the user and sets the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body Credentials
	if !decode(w, r, &body) {
		return
	}
	u, err := s.Users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !s.issueToken(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, authUser{ID: u.ID, Username: u.Username})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.ByID(r.Context(), currentUser(r).ID)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpdateProfile changes the signed-in player's display name.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body ProfileRequest
	if !decode(w, r, &body) {
		return
	}
	u, err := s.Users.UpdateProfile(r.Context(), currentUser(r).ID, body.DisplayName)
	if err != nil {
		writeUserError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("user_id", u.ID).Msg("profile updated")
	writeJSON(w, http.StatusOK, u)
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *users.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("profile")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, u *users.User) bool {
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setAuthCookie(w, tok, exp)
	return true
}

// ------------------------------ PROFILE ------------------------------------

// StatsResponse is returned by /stats/me.
type StatsResponse struct {
	history.Stats
	Achievements int `json:"achievements"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	games, err := s.Records.RecentGames(r.Context(), me.ID, 0)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stats")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	unlocked, err := s.Records.UnlockedAchievements(r.Context(), me.ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stats achievements")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: history.Summarize(games), Achievements: len(unlocked)})
}

const myGamesLimit = 50

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.Records.RecentGames(r.Context(), currentUser(r).ID, myGamesLimit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("games")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if games == nil {
		games = []history.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

// AchievementStatus is one row of /achievements.
type AchievementStatus struct {
	achievements.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// handleAchievements lists the whole catalog with the player's progress.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.Records.UnlockedAchievements(r.Context(), currentUser(r).ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("achievements")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	at := make(map[achievements.Code]time.Time, len(unlocked))
	for _, u := range unlocked {
		at[u.Code] = u.UnlockedAt
	}
	out := make([]AchievementStatus, 0, len(achievements.Catalog))
	for _, a := range achievements.Catalog {
		st := AchievementStatus{Achievement: a}
		if t, ok := at[a.Code]; ok {
			st.Unlocked, st.UnlockedAt = true, &t
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

// --------------------------- auth middleware -------------------------------

// parseToken validates tok and returns the user it names, provided that user
// still exists.
func (s *Server) parseToken(ctx context.Context, tok string) (*authUser, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.Auth.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil, errors.New("invalid token")
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &authUser{ID: u.ID, Username: u.Username}, nil
}

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.bearerOrCookie(r); tok != "" {
				if me, err := s.parseToken(r.Context(), tok); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.bearerOrCookie(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			me, err := s.parseToken(r.Context(), tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, me)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username expiring after Auth.TTL.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.Auth.TTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.Auth.Secret))
	return ss, exp, err
}

func (s *Server) cookie(value string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.Auth.Secure {
		sameSite = http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	return &http.Cookie{
		Name:     s.Auth.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Auth.Secure,
		SameSite: sameSite,
	}
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := s.cookie(token)
	c.Expires = exp
	http.SetCookie(w, c)
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.Auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}
