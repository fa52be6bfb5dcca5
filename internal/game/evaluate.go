package game

import (
	"math"

	"github.com/robalobadob/countryle/internal/countries"
	"github.com/robalobadob/countryle/internal/geo"
)

// matchThresholdPct is the relative difference below which two numbers are
// reported as a match.
const matchThresholdPct = 10.0

// Evaluate compares candidate against target and returns the enriched guess.
// It is pure: the result depends only on its two arguments.
func Evaluate(candidate, target countries.Country) GuessRecord {
	g := GuessRecord{
		Country:         candidate,
		IsCorrect:       candidate.Name == target.Name,
		ContinentMatch:  continentMatch(candidate.Continent, target.Continent),
		HemisphereMatch: hemisphereMatch(candidate, target),
		PopulationHint:  ComparisonHint(int64f(candidate.Population), int64f(target.Population)),
		GDPHint:         ComparisonHint(candidate.GDP, target.GDP),
		AgeHint:         ComparisonHint(candidate.MedianAge, target.MedianAge),
	}

	from, okFrom := point(candidate)
	to, okTo := point(target)
	if okFrom {
		g.Geohash = geo.Geohash(from)
	}
	if okFrom && okTo {
		d := geo.DistanceKm(from, to)
		g.DistanceKm = &d
		if dir, ok := geo.DirectionTo(from, to); ok {
			g.DirectionHint = dir
		}
	}
	return g
}

// ComparisonHint reports how v1 (the guess) relates to v2 (the target).
// Values within 10% of v2 match. A zero v2 matches only a zero v1 and is
// otherwise exceeded. Missing values give HintUnknown.
func ComparisonHint(v1, v2 *float64) Hint {
	if v1 == nil || v2 == nil {
		return HintUnknown
	}
	a, b := *v1, *v2
	if b == 0 {
		if a == 0 {
			return HintMatch
		}
		return HintHigher
	}
	if math.Abs(a-b)/math.Abs(b)*100 < matchThresholdPct {
		return HintMatch
	}
	if a > b {
		return HintHigher
	}
	return HintLower
}

// continentMatch treats a missing continent as matching nothing, not even
// another missing continent.
func continentMatch(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// hemisphereMatch compares the sign of each coordinate. A coordinate of
// exactly 0 counts with the southern/western side (only a strictly positive
// value is north/east).
func hemisphereMatch(a, b countries.Country) HemisphereMatch {
	return HemisphereMatch{
		NorthSouth: sameSide(a.Latitude, b.Latitude),
		EastWest:   sameSide(a.Longitude, b.Longitude),
	}
}

func sameSide(a, b *float64) Axis {
	if a == nil || b == nil {
		return AxisUnknown
	}
	if (*a > 0) == (*b > 0) {
		return AxisMatch
	}
	return AxisDifferent
}

func point(c countries.Country) (geo.Point, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}, true
}

func int64f(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
