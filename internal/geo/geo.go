package geo

import "math"

// EarthRadiusKm is the mean radius used for all distance calculations.
const EarthRadiusKm = 6371.0

// Coordinate is a WGS84-style position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance in km between a and b using the
// spherical law of cosines.
//
// Identical points close to the poles or the antimeridian can land a few
// ulps outside acos' domain; the argument is clamped so those return 0.
func Distance(a, b Coordinate) float64 {
	alat, alon := radians(a.Lat), radians(a.Lon)
	blat, blon := radians(b.Lat), radians(b.Lon)

	cos := math.Sin(alat)*math.Sin(blat) +
		math.Cos(alat)*math.Cos(blat)*math.Cos(alon-blon)
	cos = math.Max(-1, math.Min(1, cos))
	return EarthRadiusKm * math.Acos(cos)
}

// Bearing returns the initial compass bearing in [0, 360) when facing b from a.
func Bearing(a, b Coordinate) float64 {
	alat, alon := radians(a.Lat), radians(a.Lon)
	blat, blon := radians(b.Lat), radians(b.Lon)

	dlon := blon - alon
	y := math.Sin(dlon) * math.Cos(blat)
	x := math.Cos(alat)*math.Sin(blat) - math.Sin(alat)*math.Cos(blat)*math.Cos(dlon)
	return normalize(degrees(math.Atan2(y, x)))
}

// normalize folds any angle into [0, 360).
func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod(-1e-15, 360) + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}
