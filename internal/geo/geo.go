// internal/geo/geo.go
//
// Spherical helpers used to turn two country centroids into a hint.
// Responsibilities:
//   - Great-circle distance on a 6371 km sphere (haversine form).
//   - Initial compass bearing from one point toward another.
//   - Bucketing a bearing into one of 8 compass labels.
//   - Geohash cell for a point (map rendering on the client).
//
// All functions are pure; callers must not pass points built from missing
// coordinates.
package geo

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Direction is one of the 8 compass labels.
type Direction string

const (
	North     Direction = "N"
	NorthEast Direction = "NE"
	East      Direction = "E"
	SouthEast Direction = "SE"
	South     Direction = "S"
	SouthWest Direction = "SW"
	West      Direction = "W"
	NorthWest Direction = "NW"
)

// sectors lists labels clockwise starting at north; each covers 45°.
var sectors = [8]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the great-circle distance between a and b rounded to
// the nearest kilometre.
func DistanceKm(a, b Point) int {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding error can push h a hair outside [0,1] for antipodes
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(math.Round(EarthRadiusKm * c))
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
// ok is false when a and b coincide, since a zero-length path has no heading.
func Bearing(a, b Point) (deg float64, ok bool) {
	if a == b {
		return 0, false
	}
	phi1, phi2 := radians(a.Lat), radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return normalize(math.Atan2(y, x) * 180 / math.Pi), true
}

// Bucket maps a bearing to its compass label. Sectors are 45° wide and
// centred on each label, so N spans [337.5, 360) ∪ [0, 22.5). A boundary
// value belongs to the clockwise-next label.
func Bucket(deg float64) Direction {
	i := int(math.Floor((normalize(deg)+22.5)/45)) % len(sectors)
	return sectors[i]
}

// DirectionTo is Bearing followed by Bucket. ok is false when the bearing is
// undefined.
func DirectionTo(a, b Point) (Direction, bool) {
	deg, ok := Bearing(a, b)
	if !ok {
		return "", false
	}
	return Bucket(deg), true
}

// Geohash encodes p with the library's default precision.
func Geohash(p Point) string {
	return geohash.Encode(p.Lat, p.Lon)
}

// normalize folds any angle into [0, 360).
func normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
