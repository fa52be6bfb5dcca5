// internal/database/database.go
//
// SQLite plumbing shared by the catalog, history and user tables.
// Responsibilities:
//   - Opening the database (creating the parent directory for file paths).
//   - Applying connection pragmas (WAL, busy timeout, foreign keys).
//   - Running the embedded goose migrations in ./migrations.
package database

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MemoryDSN opens a private in-memory database (tests, STORE=memory).
const MemoryDSN = ":memory:"

// Open opens (and creates if missing) the database at path, applies pragmas
// and runs migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*sqlx.DB, error) {
	logger.Info().Str("path", path).Msg("connecting to database")

	if path != MemoryDSN {
		// Ensure directory exists for ./data/app.db, etc.
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryDSN {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := applyPragmas(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Msg("database ready")
	return db, nil
}

func dsn(path string) string {
	if path == MemoryDSN {
		return path
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func applyPragmas(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"foreign_keys", "ON"},
		{"synchronous", "NORMAL"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			logger.Warn().Err(err).Str("pragma", p.name).Msg("failed to set pragma")
			return fmt.Errorf("set PRAGMA %s: %w", p.name, err)
		}
		logger.Debug().Str("pragma", p.name).Str("value", p.value).Msg("SQLite pragma set")
	}
	return nil
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}
