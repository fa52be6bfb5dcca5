// internal/app/app.go
//
// Dependency wiring for the server binary.
// Providers build each component from config; Run attaches the HTTP server
// and background work to the fx lifecycle.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/robalobadob/countryle/internal/config"
	"github.com/robalobadob/countryle/internal/controller"
	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/daily"
	"github.com/robalobadob/countryle/internal/database"
	"github.com/robalobadob/countryle/internal/history"
	"github.com/robalobadob/countryle/internal/httpserver"
	"github.com/robalobadob/countryle/internal/logger"
	"github.com/robalobadob/countryle/internal/store"
	"github.com/robalobadob/countryle/internal/users"
)

const shutdownTimeout = 15 * time.Second

var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(NewLogger),
	fx.Provide(NewDB),
	fx.Provide(NewCatalog),
	fx.Provide(NewCountrySource),
	fx.Provide(NewHistory),
	fx.Provide(NewBoard),
	fx.Provide(store.NewMemoryStore),
	fx.Provide(users.NewStore),
	fx.Provide(NewController),
	fx.Provide(NewServer),
)

func NewLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(cfg.LogLevel)
}

// NewDB opens the database and closes it on shutdown.
func NewDB(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := database.Open(context.Background(), cfg.DBPath, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
	return db, nil
}

// NewCatalog loads COUNTRIES_FILE, or the embedded catalog when unset.
func NewCatalog(cfg *config.Config, log zerolog.Logger) (*countries.Catalog, error) {
	c, err := countries.Load(cfg.CountriesFile)
	if err != nil {
		return nil, err
	}
	log.Info().Int("countries", c.Len()).Str("file", cfg.CountriesFile).Msg("country catalog loaded")
	return c, nil
}

// NewCountrySource seeds the countries table and serves games from it.
func NewCountrySource(db *sqlx.DB, c *countries.Catalog, log zerolog.Logger) (countries.Source, error) {
	src := countries.NewSQLSource(db, log)
	if _, err := src.Seed(context.Background(), c); err != nil {
		return nil, err
	}
	return src, nil
}

func NewHistory(cfg *config.Config, db *sqlx.DB, log zerolog.Logger) history.Store {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("game history kept in memory; it is lost on restart")
		return history.NewMemory()
	}
	return history.NewSQL(db, log)
}

// NewBoard returns nil when history is not in the database.
func NewBoard(cfg *config.Config, db *sqlx.DB) *daily.Board {
	if cfg.Store == config.StoreMemory {
		return nil
	}
	return daily.NewBoard(db)
}

// NewController drains background finalization on shutdown.
func NewController(lc fx.Lifecycle, cfg *config.Config, src countries.Source, records history.Store, sessions store.Store, log zerolog.Logger) *controller.Controller {
	c := controller.New(src, records, sessions,
		controller.WithLogger(log),
		controller.WithDailySalt(cfg.DailySalt),
		controller.WithFinalizeTimeout(cfg.FinalizeTimeout),
		controller.WithSessionTTL(cfg.SessionTTL),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				c.Janitor(ctx, cfg.SweepInterval)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return c.Wait()
		},
	})
	return c
}

type serverParams struct {
	fx.In

	Config     *config.Config
	Controller *controller.Controller
	Records    history.Store
	Users      *users.Store
	Board      *daily.Board
	DB         *sqlx.DB
	Logger     zerolog.Logger
}

func NewServer(p serverParams) (*httpserver.Server, error) {
	return httpserver.New(httpserver.Deps{
		Controller: p.Controller,
		Records:    p.Records,
		Users:      p.Users,
		Board:      p.Board,
		DB:         p.DB,
		Logger:     p.Logger,
		Auth: httpserver.AuthConfig{
			Secret:     p.Config.JWTSecret,
			TTL:        p.Config.TokenTTL(),
			CookieName: p.Config.CookieName,
			Secure:     p.Config.SecureCookies,
		},
		ClientOrigin: p.Config.ClientOrigin,
	})
}

// Run serves HTTP for the lifetime of the fx application.
func Run(lc fx.Lifecycle, cfg *config.Config, s *httpserver.Server, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			log.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
