// internal/controller/controller.go
//
// Integration layer between players, live sessions and the record store.
// Responsibilities:
//   - Start sessions from a catalog snapshot (classic or daily target).
//   - Keep one current session per identified player; a new start or a
//     reset supersedes the previous one.
//   - Apply guesses and, on a won/lost transition, run the side effects in
//     the background: history snapshot → achievement rules → append game →
//     append unlocks.
//   - Publish unlocks only while their session is still current.
//   - Run one player's background work in the order their games finished,
//     so each history snapshot sees every earlier game.
//   - Expire sessions older than the session TTL (see Sweep / Janitor).
//
// Guests (empty player ID) play normally but nothing is persisted for them;
// their sessions are dropped as soon as they finish.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/countryle/internal/achievements"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/daily"
	"github.com/robalobadob/countryle/internal/game"
	"github.com/robalobadob/countryle/internal/history"
	"github.com/robalobadob/countryle/internal/store"
)

var (
	// ErrNoSession is returned for a session ID that is unknown or belongs to
	// another player.
	ErrNoSession = errors.New("controller: no such session")
	// ErrSessionSuperseded is returned to an identified player asking about a
	// session that is no longer registered, typically because a newer one
	// replaced it or it was reset.
	ErrSessionSuperseded = errors.New("controller: session superseded")
	// ErrInvalidMode is returned by Start for a mode other than classic/daily.
	ErrInvalidMode = errors.New("controller: invalid mode")
	// ErrDailyPlayed is returned when a player starts a daily game they
	// already started today, whether it was finished, reset or abandoned.
	ErrDailyPlayed = errors.New("controller: daily game already played")
)

// View is a read-only copy of a session for presentation. Target is set only
// once the session is won or lost.
type View struct {
	ID                string               `json:"gameId"`
	Mode              string               `json:"mode"`
	Difficulty        countries.Difficulty `json:"difficulty"`
	State             game.State           `json:"state"`
	MaxAttempts       int                  `json:"maxAttempts"`
	AttemptsRemaining int                  `json:"attemptsRemaining"`
	Guesses           []game.GuessRecord   `json:"guesses"`
	StartedAt         time.Time            `json:"startedAt"`
	FinishedAt        *time.Time           `json:"finishedAt,omitempty"`
	Target            *countries.Country   `json:"target,omitempty"`
}

// GuessResult is returned by Guess. Accepted is false for a duplicate guess
// or a guess after the game ended; neither consumes an attempt.
type GuessResult struct {
	Guess    *game.GuessRecord `json:"guess,omitempty"`
	Accepted bool              `json:"accepted"`
	View
}

// entry is the controller's bookkeeping for one registered session.
type entry struct {
	player  string
	mode    string
	ready   bool                // finalize finished (or nothing to run)
	unlocks []achievements.Code // published unlocks
}

// Controller is safe for concurrent use.
type Controller struct {
	catalog  countries.Source
	records  history.Store
	sessions store.Store

	logger          zerolog.Logger
	now             func() time.Time
	picker          game.Picker
	dailySalt       string
	finalizeTimeout time.Duration
	sessionTTL      time.Duration

	mu      sync.Mutex
	current map[string]string        // player → session ID
	entries map[string]*entry        // session ID → bookkeeping
	tails   map[string]chan struct{} // player → last scheduled finalize

	group errgroup.Group
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithPicker replaces the classic-mode target picker.
func WithPicker(p game.Picker) Option { return func(c *Controller) { c.picker = p } }

func WithDailySalt(salt string) Option { return func(c *Controller) { c.dailySalt = salt } }

// WithFinalizeTimeout bounds the background store calls of one finished game.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(c *Controller) { c.finalizeTimeout = d }
}

// WithSessionTTL sets how long a session may live before Sweep drops it.
func WithSessionTTL(d time.Duration) Option { return func(c *Controller) { c.sessionTTL = d } }

// New builds a Controller reading countries from catalog and persisting
// finished games to records.
func New(catalog countries.Source, records history.Store, sessions store.Store, opts ...Option) *Controller {
	c := &Controller{
		catalog:         catalog,
		records:         records,
		sessions:        sessions,
		logger:          zerolog.Nop(),
		now:             time.Now,
		picker:          game.RandomPicker,
		finalizeTimeout: 10 * time.Second,
		sessionTTL:      6 * time.Hour,
		current:         make(map[string]string),
		entries:         make(map[string]*entry),
		tails:           make(map[string]chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins a new session for player and makes it their current one.
// mode is "classic" (or empty) for a random target, "daily" for the
// country of the day.
func (c *Controller) Start(ctx context.Context, player, difficulty, mode string) (View, error) {
	d, err := countries.ParseDifficulty(difficulty)
	if err != nil {
		return View{}, err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = daily.ModeClassic
	}

	picker := c.picker
	switch mode {
	case daily.ModeClassic:
	case daily.ModeDaily:
		picker = daily.Picker{Salt: c.dailySalt, Now: c.now}
	default:
		return View{}, ErrInvalidMode
	}

	list, err := c.catalog.Fetch(ctx, &d)
	if err != nil {
		return View{}, err
	}

	s := game.NewSession(gonanoid.Must())
	if err := s.Start(list, d, picker, c.now()); err != nil {
		return View{}, err
	}
	if mode == daily.ModeDaily && player != "" {
		if err := c.claimDaily(ctx, player, s); err != nil {
			return View{}, err
		}
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("save session: %w", err)
	}

	c.mu.Lock()
	if player != "" {
		if prev, ok := c.current[player]; ok {
			c.dropLocked(ctx, prev)
		}
		c.current[player] = s.ID
	}
	c.entries[s.ID] = &entry{player: player, mode: mode}
	v := c.viewLocked(s)
	c.mu.Unlock()

	c.logger.Info().
		Str("session_id", s.ID).
		Str("player", player).
		Str("difficulty", string(d)).
		Str("mode", mode).
		Msg("session started")
	return v, nil
}

// claimDaily records that player started today's daily game at the
// session's difficulty. Store failures are logged and do not block play.
func (c *Controller) claimDaily(ctx context.Context, player string, s *game.Session) error {
	err := c.records.ClaimDaily(ctx, player, daily.DateKey(s.StartedAt), s.Difficulty, s.StartedAt)
	switch {
	case errors.Is(err, history.ErrDailyClaimed):
		return ErrDailyPlayed
	case err != nil:
		c.logger.Warn().Err(err).Str("player", player).Msg("could not claim daily game")
	}
	return nil
}

// Guess submits countryName to the session. The name is resolved against
// the whole catalog (countries.ErrUnknownCountry if absent).
func (c *Controller) Guess(ctx context.Context, player, sessionID, countryName string) (GuessResult, error) {
	s, e, err := c.lookup(ctx, player, sessionID)
	if err != nil {
		return GuessResult{}, err
	}

	all, err := c.catalog.Fetch(ctx, nil)
	if err != nil {
		return GuessResult{}, err
	}
	candidate, err := countries.Find(all, countryName)
	if err != nil {
		return GuessResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[sessionID] != e {
		return GuessResult{}, ErrSessionSuperseded
	}
	if s.State == game.StateWelcome {
		return GuessResult{}, game.ErrNotPlaying
	}

	g, accepted := s.Submit(candidate, c.now())
	res := GuessResult{Accepted: accepted, View: c.viewLocked(s)}
	if !accepted {
		return res, nil
	}
	res.Guess = &g

	if s.State.Terminal() {
		o, _ := s.Outcome()
		c.logger.Info().
			Str("session_id", s.ID).
			Str("player", player).
			Str("state", string(s.State)).
			Int("attempts", len(s.Guesses)).
			Msg("session finished")

		if e.player == "" {
			c.dropLocked(ctx, sessionID)
		} else {
			c.scheduleLocked(e.player, e.mode, o)
		}
	}
	return res, nil
}

// scheduleLocked queues finalize behind the player's previous one. c.mu must
// be held.
func (c *Controller) scheduleLocked(player, mode string, o game.Outcome) {
	prev := c.tails[player]
	done := make(chan struct{})
	c.tails[player] = done

	c.group.Go(func() error {
		if prev != nil {
			<-prev
		}
		c.finalize(player, mode, o)

		close(done)
		c.mu.Lock()
		if c.tails[player] == done {
			delete(c.tails, player)
		}
		c.mu.Unlock()
		return nil
	})
}

// finalize runs the side effects of a finished game. The history snapshot
// is read before the game is appended so the rules never count it twice.
// Store failures are logged; the game itself stays finished.
func (c *Controller) finalize(player, mode string, o game.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), c.finalizeTimeout)
	defer cancel()

	log := c.logger.With().Str("player", player).Str("session_id", o.SessionID).Logger()

	var codes []achievements.Code
	h, err := history.Snapshot(ctx, c.records, player)
	if err != nil {
		log.Warn().Err(err).Msg("history read failed; skipping achievements")
	} else {
		codes = achievements.Evaluate(o, h)
	}

	if err := c.records.RecordGame(ctx, history.FromOutcome(player, mode, o)); err != nil {
		log.Warn().Err(err).Msg("failed to record game")
	}

	unlocked := make([]achievements.Code, 0, len(codes))
	for _, code := range codes {
		if err := c.records.RecordAchievement(ctx, player, code, o.FinishedAt); err != nil {
			log.Warn().Err(err).Str("code", string(code)).Msg("failed to record achievement")
			continue
		}
		unlocked = append(unlocked, code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[o.SessionID]
	if !ok || c.current[player] != o.SessionID {
		log.Debug().Int("unlocks", len(unlocked)).Msg("session superseded; dropping unlock results")
		return
	}
	e.unlocks = unlocked
	e.ready = true
	if len(unlocked) > 0 {
		log.Info().Interface("codes", unlocked).Msg("achievements unlocked")
	}
}

// Unlocks reports the achievements unlocked by a finished session. ready is
// false while the background work is still running.
func (c *Controller) Unlocks(player, sessionID string) ([]achievements.Code, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	if !ok {
		if player != "" {
			return nil, false, ErrSessionSuperseded
		}
		return nil, false, ErrNoSession
	}
	if e.player != player {
		return nil, false, ErrNoSession
	}
	return append([]achievements.Code(nil), e.unlocks...), e.ready, nil
}

// Search suggests countries from the same source games are played against.
// Names already guessed in sessionID (when set) are left out.
func (c *Controller) Search(ctx context.Context, player, sessionID, term string) ([]countries.Country, error) {
	var exclude []string
	if sessionID != "" {
		s, _, err := c.lookup(ctx, player, sessionID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for _, g := range s.Guesses {
			exclude = append(exclude, g.Name)
		}
		c.mu.Unlock()
	}
	all, err := c.catalog.Fetch(ctx, nil)
	if err != nil {
		return nil, err
	}
	return countries.Search(all, term, exclude, countries.MaxSuggestions), nil
}

// Session returns a view of the session.
func (c *Controller) Session(ctx context.Context, player, sessionID string) (View, error) {
	s, _, err := c.lookup(ctx, player, sessionID)
	if err != nil {
		return View{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(s), nil
}

// Reset discards the session without producing an outcome. Background work
// already running for it completes, but its results are dropped.
func (c *Controller) Reset(ctx context.Context, player, sessionID string) error {
	if _, _, err := c.lookup(ctx, player, sessionID); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if player != "" && c.current[player] == sessionID {
		delete(c.current, player)
	}
	c.dropLocked(ctx, sessionID)
	c.logger.Info().Str("session_id", sessionID).Str("player", player).Msg("session reset")
	return nil
}

// Wait blocks until all background finalization has completed.
func (c *Controller) Wait() error { return c.group.Wait() }

// Sweep drops sessions started more than the session TTL ago, finished or
// not, and returns how many were dropped.
func (c *Controller) Sweep(ctx context.Context) (int, error) {
	ids, err := c.sessions.Expire(ctx, c.now().Add(-c.sessionTTL))
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if e, ok := c.entries[id]; ok && e.player != "" && c.current[e.player] == id {
			delete(c.current, e.player)
		}
		delete(c.entries, id)
	}
	if len(ids) > 0 {
		c.logger.Debug().Int("sessions", len(ids)).Msg("expired sessions dropped")
	}
	return len(ids), nil
}

// Janitor calls Sweep every interval until ctx is done.
func (c *Controller) Janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}

func (c *Controller) lookup(ctx context.Context, player, sessionID string) (*game.Session, *entry, error) {
	s, err := c.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNoSession
	}
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	e, ok := c.entries[sessionID]
	c.mu.Unlock()
	if !ok || e.player != player {
		return nil, nil, ErrNoSession
	}
	return s, e, nil
}

// dropLocked forgets a session. c.mu must be held.
func (c *Controller) dropLocked(ctx context.Context, sessionID string) {
	if s, err := c.sessions.Get(ctx, sessionID); err == nil {
		s.Reset()
	}
	_ = c.sessions.Delete(ctx, sessionID)
	delete(c.entries, sessionID)
}

// viewLocked copies s for presentation. c.mu must be held.
func (c *Controller) viewLocked(s *game.Session) View {
	v := View{
		ID:                s.ID,
		Difficulty:        s.Difficulty,
		State:             s.State,
		MaxAttempts:       s.MaxAttempts,
		AttemptsRemaining: s.AttemptsRemaining(),
		Guesses:           append([]game.GuessRecord{}, s.Guesses...),
		StartedAt:         s.StartedAt,
	}
	if e, ok := c.entries[s.ID]; ok {
		v.Mode = e.mode
	}
	if s.State.Terminal() {
		finished := s.FinishedAt
		target := s.Target
		v.FinishedAt = &finished
		v.Target = &target
	}
	return v
}
