// internal/countries/countries.go
//
// Core type definitions for the country catalog.
// Defines:
//   - Difficulty: catalog tag that also selects the attempt budget.
//   - Country: one immutable catalog record; nullable fields are pointers.
//   - Source: the read boundary the game reads its catalog through.
package countries

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrCatalogUnavailable is returned when the backing source cannot be read.
	ErrCatalogUnavailable = errors.New("countries: catalog unavailable")
	// ErrUnknownCountry is returned by lookups for a name not in the catalog.
	ErrUnknownCountry = errors.New("countries: unknown country")
	// ErrInvalidDifficulty is returned by ParseDifficulty.
	ErrInvalidDifficulty = errors.New("countries: invalid difficulty")
	// ErrDuplicateName is returned when a catalog snapshot repeats a name.
	ErrDuplicateName = errors.New("countries: duplicate country name")
	// ErrInvalidRecord is returned by New for a value outside its range.
	ErrInvalidRecord = errors.New("countries: invalid record")
)

// Difficulty tags a country and selects the attempt budget of a game.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Valid reports whether d is one of the three known tags.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// ParseDifficulty normalizes s ("Easy", " hard ") into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}

// Country is a single catalog record. Name is unique within a snapshot.
type Country struct {
	Name       string     `json:"country" db:"name"`
	Continent  *string    `json:"continent" db:"continent"`
	Latitude   *float64   `json:"latitude" db:"latitude"`
	Longitude  *float64   `json:"longitude" db:"longitude"`
	GDP        *float64   `json:"gdp" db:"gdp"`
	Population *int64     `json:"population" db:"population"`
	MedianAge  *float64   `json:"median_age" db:"median_age"`
	Difficulty Difficulty `json:"difficulty,omitempty" db:"difficulty"`
}

// Source reads catalog snapshots. A nil difficulty returns every record;
// otherwise only records tagged with it.
type Source interface {
	Fetch(ctx context.Context, difficulty *Difficulty) ([]Country, error)
}

// Filter returns the records tagged d, preserving order.
func Filter(all []Country, d Difficulty) []Country {
	out := make([]Country, 0, len(all))
	for _, c := range all {
		if c.Difficulty == d {
			out = append(out, c)
		}
	}
	return out
}

// normName is the case-insensitive lookup key for a country name.
func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
