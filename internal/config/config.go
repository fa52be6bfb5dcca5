// internal/config/config.go
//
// Process configuration read from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends for game history.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":5175"`
	DBPath          string        `env:"DB_PATH" envDefault:"data/countryle.db"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CountriesFile   string        `env:"COUNTRIES_FILE"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays  int           `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName      string        `env:"COOKIE_NAME" envDefault:"countryle_token"`
	ClientOrigin    string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	DailySalt       string        `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	Store           string        `env:"STORE" envDefault:"sqlite"`
	FinalizeTimeout time.Duration `env:"FINALIZE_TIMEOUT" envDefault:"10s"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Store != StoreSQLite && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StoreSQLite, StoreMemory, cfg.Store)
	}
	if cfg.SessionTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SESSION_TTL and SWEEP_INTERVAL must be positive")
	}
	if cfg.JWTExpiresDays <= 0 {
		cfg.JWTExpiresDays = 14
	}
	return &cfg, nil
}

// TokenTTL is the lifetime of a signed player token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}
