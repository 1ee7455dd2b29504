package orbitsim

import "math"

const (
	// keplerMaxIterations bounds every Newton solve so a call has a constant worst case cost.
	keplerMaxIterations = 8
	// keplerTolerance is the absolute tolerance on the anomaly, in radians.
	keplerTolerance = 1e-9
	// parabolicε is the half width of the eccentricity band treated as a parabola.
	parabolicε = 1e-9
)

// Regime defines the conic section family of an orbit.
type Regime uint8

const (
	// Elliptic orbits have 0 <= e < 1.
	Elliptic Regime = iota + 1
	// Parabolic orbits have e = 1.
	Parabolic
	// Hyperbolic orbits have e > 1.
	Hyperbolic
)

func (r Regime) String() string {
	switch r {
	case Elliptic:
		return "elliptic"
	case Parabolic:
		return "parabolic"
	case Hyperbolic:
		return "hyperbolic"
	}
	return "unknown"
}

// RegimeOf returns the regime which governs an orbit of eccentricity e.
func RegimeOf(e float64) Regime {
	switch {
	case e < 1-parabolicε:
		return Elliptic
	case e > 1+parabolicε:
		return Hyperbolic
	default:
		return Parabolic
	}
}

// SolveEccentricAnomaly solves Kepler's equation M = E - e*sin(E) for 0 <= e < 1.
// The mean anomaly is reduced to [0, 2π) and so is the returned eccentric anomaly.
// If Newton's method does not converge within keplerMaxIterations, the last iterate is returned.
func SolveEccentricAnomaly(M, e float64) float64 {
	E, _ := solveElliptic(M, e, keplerMaxIterations)
	return E
}

// solveElliptic runs at most maxIter Newton iterations and reports whether they converged.
func solveElliptic(M, e float64, maxIter int) (E float64, converged bool) {
	M = normalizeAngle(M)
	if e == 0 {
		return M, true
	}
	// E(2π-M) = 2π-E(M), so only [0, π] is solved, where the equation is convex.
	mirror := M > math.Pi
	if mirror {
		M = twoπ - M
	}
	// π and M/(1-e) bound the root from above and the cubic term dominates near the parabola.
	// All vanish at M = 0, hence E = 0 is returned exactly there.
	E = math.Min(math.Pi, math.Min(M/(1-e), math.Cbrt(6*M/e)))
	for iter := 0; iter < maxIter; iter++ {
		f := E - e*math.Sin(E) - M
		if math.Abs(f) < keplerTolerance {
			converged = true
			break
		}
		δ := f / (1 - e*math.Cos(E))
		E -= δ
		if math.Abs(δ) < keplerTolerance {
			converged = true
			break
		}
	}
	if mirror {
		E = twoπ - E
	}
	return normalizeAngle(E), converged
}

// SolveHyperbolicAnomaly solves Kepler's equation M = e*sinh(H) - H for e > 1.
// The mean anomaly is unbounded and signed (negative before periapsis).
// If Newton's method does not converge within keplerMaxIterations, the last iterate is returned.
func SolveHyperbolicAnomaly(M, e float64) float64 {
	H, _ := solveHyperbolic(M, e, keplerMaxIterations)
	return H
}

func solveHyperbolic(M, e float64, maxIter int) (H float64, converged bool) {
	if M == 0 {
		return 0, true
	}
	// Danby's starter suits large |M|. Near the parabola the two other bounds are much
	// closer; both are above the root, where Newton converges monotonically.
	absM := math.Abs(M)
	H = math.Min(math.Log(2*absM/e+1.8), math.Min(math.Cbrt(6*absM/e), absM/(e-1)))
	H = math.Copysign(H, M)
	for iter := 0; iter < maxIter; iter++ {
		f := e*math.Sinh(H) - H - M
		if math.Abs(f) < keplerTolerance {
			converged = true
			break
		}
		δ := f / (e*math.Cosh(H) - 1)
		H -= δ
		if math.Abs(δ) < keplerTolerance {
			converged = true
			break
		}
	}
	return H, converged
}

// SolveParabolicAnomaly solves Barker's equation M = D + D³/3 for the parabolic anomaly D = tan(ν/2).
// The cubic has a single real root, which is computed in closed form.
func SolveParabolicAnomaly(M float64) float64 {
	if M == 0 {
		return 0
	}
	w := 1.5 * math.Abs(M)
	y := math.Cbrt(w + math.Sqrt(w*w+1))
	return math.Copysign(y-1/y, M)
}

// EccentricToTrueAnomaly converts the eccentric (or hyperbolic, or parabolic) anomaly to the true anomaly.
func EccentricToTrueAnomaly(E, e float64) float64 {
	switch RegimeOf(e) {
	case Hyperbolic:
		return math.Atan2(math.Sqrt(e*e-1)*math.Sinh(E), e-math.Cosh(E))
	case Parabolic:
		return 2 * math.Atan(E)
	}
	if e == 0 {
		return normalizeAngle(E)
	}
	sinE, cosE := math.Sincos(E)
	return normalizeAngle(math.Atan2(math.Sqrt(1-e*e)*sinE, cosE-e))
}

// TrueToEccentricAnomaly converts the true anomaly to the eccentric (or hyperbolic, or parabolic) anomaly.
func TrueToEccentricAnomaly(ν, e float64) float64 {
	switch RegimeOf(e) {
	case Hyperbolic:
		sinν, cosν := math.Sincos(ν)
		return math.Asinh(math.Sqrt(e*e-1) * sinν / (1 + e*cosν))
	case Parabolic:
		return math.Tan(signedAngle(ν) / 2)
	}
	if e == 0 {
		return normalizeAngle(ν)
	}
	sinν, cosν := math.Sincos(ν)
	return normalizeAngle(math.Atan2(math.Sqrt(1-e*e)*sinν, e+cosν))
}

// EccentricToMeanAnomaly converts the eccentric (or hyperbolic, or parabolic) anomaly to the mean anomaly.
func EccentricToMeanAnomaly(E, e float64) float64 {
	switch RegimeOf(e) {
	case Hyperbolic:
		return e*math.Sinh(E) - E
	case Parabolic:
		return E + E*E*E/3
	}
	return normalizeAngle(E - e*math.Sin(E))
}

// MeanToEccentricAnomaly converts the mean anomaly to the eccentric (or hyperbolic, or parabolic) anomaly.
func MeanToEccentricAnomaly(M, e float64) float64 {
	switch RegimeOf(e) {
	case Hyperbolic:
		return SolveHyperbolicAnomaly(M, e)
	case Parabolic:
		return SolveParabolicAnomaly(M)
	}
	return SolveEccentricAnomaly(M, e)
}

// MeanToTrueAnomaly converts the mean anomaly to the true anomaly.
func MeanToTrueAnomaly(M, e float64) float64 {
	return EccentricToTrueAnomaly(MeanToEccentricAnomaly(M, e), e)
}

// TrueToMeanAnomaly converts the true anomaly to the mean anomaly.
func TrueToMeanAnomaly(ν, e float64) float64 {
	return EccentricToMeanAnomaly(TrueToEccentricAnomaly(ν, e), e)
}
