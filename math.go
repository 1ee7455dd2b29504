package orbitsim

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
	twoπ    = 2 * math.Pi
)

var (
	// eclipticRight is the reference direction of the ascending node longitude.
	eclipticRight  = r3.Vec{X: 1}
	// eclipticNormal is the reference orbit normal of a zero inclination orbit.
	eclipticNormal = r3.Vec{Z: 1}
)

// unit returns the unit vector of a given vector, or the zero vector if its norm vanishes.
func unit(a r3.Vec) r3.Vec {
	n := r3.Norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, a)
}

// clampCos keeps a cosine within [-1, 1] so that math.Acos never returns NaN on rounding noise.
func clampCos(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// angleBetween returns the unsigned angle between two vectors, in [0, π].
func angleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Acos(clampCos(r3.Dot(a, b) / (na * nb)))
}

// isFinite returns whether all components of v are finite.
func isFinite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// normalizeAngle wraps an angle in radians into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoπ)
	if a < 0 {
		a += twoπ
	}
	if a >= twoπ {
		// math.Mod of a tiny negative number plus 2π may round up to 2π.
		a = 0
	}
	return a
}

// signedAngle wraps an angle in radians into (-π, π].
func signedAngle(a float64) float64 {
	a = normalizeAngle(a)
	if a > math.Pi {
		a -= twoπ
	}
	return a
}

// Deg2rad converts degrees to radians, and enforces only positive numbers.
func Deg2rad(a float64) float64 {
	return normalizeAngle(a * deg2rad)
}

// Rad2deg converts radians to degrees, and enforces only positive numbers.
func Rad2deg(a float64) float64 {
	return math.Mod(normalizeAngle(a)/deg2rad, 360)
}
