// internal/countries/catalog.go
//
// In-memory catalog snapshot.
//
// Responsibilities:
//   - Load the catalog from a JSON file (COUNTRIES_FILE) or fall back to the
//     embedded default bundled in the assets package.
//   - Keep a name index for case-insensitive lookups.
//   - Serve Fetch (optionally filtered by difficulty) and the search box
//     suggestions the client shows while a player types.
//
// JSON shape (one object per country, nullable fields may be null):
//
//	{"country":"France","continent":"Europe","latitude":46.2,"longitude":2.2,
//	 "gdp":2.78e12,"population":68170000,"median_age":42.3,"difficulty":"easy"}
//
// Constraints:
//   - Names must be non-empty and unique (case-insensitive).
//   - Difficulty, when present, must be easy|medium|hard.
package countries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/countryle/assets"
)

// MinSearchLen and MaxSuggestions shape the search box behaviour.
const (
	MinSearchLen   = 2
	MaxSuggestions = 10
)

// Catalog is an immutable snapshot of country records in load order.
type Catalog struct {
	list   []Country
	byName map[string]int
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		raw, err := assets.CountriesJSON()
		if err != nil {
			defaultErr = fmt.Errorf("read embedded catalog: %w", err)
			return
		}
		defaultCat, defaultErr = Parse(raw)
	})
	return defaultCat, defaultErr
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return Parse(raw)
}

// Parse decodes a JSON array of country records.
func Parse(raw []byte) (*Catalog, error) {
	var list []Country
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(list)
}

// New validates list and builds a Catalog from it.
func New(list []Country) (*Catalog, error) {
	c := &Catalog{
		list:   make([]Country, 0, len(list)),
		byName: make(map[string]int, len(list)),
	}
	for _, rec := range list {
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			return nil, errors.New("countries: record without a name")
		}
		if rec.Difficulty != "" && !rec.Difficulty.Valid() {
			return nil, fmt.Errorf("%w %q for %s", ErrInvalidDifficulty, rec.Difficulty, rec.Name)
		}
		if err := checkRanges(rec); err != nil {
			return nil, err
		}
		key := normName(rec.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, rec.Name)
		}
		c.byName[key] = len(c.list)
		c.list = append(c.list, rec)
	}
	return c, nil
}

// checkRanges rejects coordinates off the globe and negative figures.
func checkRanges(rec Country) error {
	bad := func(field string, v float64) error {
		return fmt.Errorf("%w: %s %s = %v", ErrInvalidRecord, rec.Name, field, v)
	}
	if rec.Latitude != nil && (*rec.Latitude < -90 || *rec.Latitude > 90) {
		return bad("latitude", *rec.Latitude)
	}
	if rec.Longitude != nil && (*rec.Longitude < -180 || *rec.Longitude > 180) {
		return bad("longitude", *rec.Longitude)
	}
	if rec.GDP != nil && *rec.GDP < 0 {
		return bad("gdp", *rec.GDP)
	}
	if rec.Population != nil && *rec.Population < 0 {
		return bad("population", float64(*rec.Population))
	}
	if rec.MedianAge != nil && *rec.MedianAge < 0 {
		return bad("median_age", *rec.MedianAge)
	}
	return nil
}

// Len reports the number of records.
func (c *Catalog) Len() int { return len(c.list) }

// All returns a copy of every record in load order.
func (c *Catalog) All() []Country {
	return append([]Country(nil), c.list...)
}

// Fetch implements Source.
func (c *Catalog) Fetch(_ context.Context, difficulty *Difficulty) ([]Country, error) {
	if difficulty == nil {
		return c.All(), nil
	}
	return Filter(c.list, *difficulty), nil
}

// Lookup finds a record by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (Country, error) {
	if i, ok := c.byName[normName(name)]; ok {
		return c.list[i], nil
	}
	return Country{}, fmt.Errorf("%w: %s", ErrUnknownCountry, name)
}

// Search is the package-level Search over this snapshot.
func (c *Catalog) Search(term string, exclude []string, limit int) []Country {
	return Search(c.list, term, exclude, limit)
}

// Find scans list for name, ignoring case and surrounding space.
func Find(list []Country, name string) (Country, error) {
	key := normName(name)
	for _, rec := range list {
		if normName(rec.Name) == key {
			return rec, nil
		}
	}
	return Country{}, fmt.Errorf("%w: %s", ErrUnknownCountry, name)
}

// Search returns up to limit records whose name contains term
// (case-insensitive), skipping names in exclude. Terms shorter than
// MinSearchLen return nothing; limit <= 0 means MaxSuggestions.
func Search(list []Country, term string, exclude []string, limit int) []Country {
	term = normName(term)
	if len([]rune(term)) < MinSearchLen {
		return nil
	}
	if limit <= 0 {
		limit = MaxSuggestions
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, n := range exclude {
		skip[normName(n)] = struct{}{}
	}
	var out []Country
	for _, rec := range list {
		key := normName(rec.Name)
		if _, ok := skip[key]; ok {
			continue
		}
		if strings.Contains(key, term) {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
