package countries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// SQLSource serves the catalog from the countries table.
type SQLSource struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewSQLSource(db *sqlx.DB, logger zerolog.Logger) *SQLSource {
	return &SQLSource{db: db, logger: logger}
}

const selectCountries = `
SELECT name, continent, latitude, longitude, gdp, population, median_age,
       COALESCE(difficulty, '') AS difficulty
FROM countries`

// Fetch implements Source. Any database error is reported as
// ErrCatalogUnavailable.
func (s *SQLSource) Fetch(ctx context.Context, difficulty *Difficulty) ([]Country, error) {
	var (
		out []Country
		err error
	)
	if difficulty == nil {
		err = s.db.SelectContext(ctx, &out, selectCountries+` ORDER BY rowid`)
	} else {
		err = s.db.SelectContext(ctx, &out, selectCountries+` WHERE difficulty = ? ORDER BY rowid`, string(*difficulty))
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read countries")
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return out, nil
}

// Seed makes the countries table match c: records are inserted or
// overwritten by name (case-insensitive) and rows absent from c are removed.
// It returns the number of rows removed.
func (s *SQLSource) Seed(ctx context.Context, c *Catalog) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	names := make([]string, 0, c.Len())
	for _, rec := range c.list {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO countries
				(name, continent, latitude, longitude, gdp, population, median_age, difficulty)
			VALUES
				(:name, :continent, :latitude, :longitude, :gdp, :population, :median_age, NULLIF(:difficulty, ''))
			ON CONFLICT(name) DO UPDATE SET
				name       = excluded.name,
				continent  = excluded.continent,
				latitude   = excluded.latitude,
				longitude  = excluded.longitude,
				gdp        = excluded.gdp,
				population = excluded.population,
				median_age = excluded.median_age,
				difficulty = excluded.difficulty`,
			rec)
		if err != nil {
			return 0, fmt.Errorf("failed to seed country %s: %w", rec.Name, err)
		}
		names = append(names, rec.Name)
	}

	var res sql.Result
	if len(names) == 0 {
		res, err = tx.ExecContext(ctx, `DELETE FROM countries`)
	} else {
		q, args, inErr := sqlx.In(`DELETE FROM countries WHERE name NOT IN (?)`, names)
		if inErr != nil {
			return 0, fmt.Errorf("build prune query: %w", inErr)
		}
		res, err = tx.ExecContext(ctx, tx.Rebind(q), args...)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to prune countries: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logger.Info().Int("catalog", c.Len()).Int64("removed", removed).Msg("country catalog seeded")
	return int(removed), nil
}
