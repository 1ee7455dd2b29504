package orbitsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	circularε     = 1e-10                        // below this, the eccentricity vector has no usable direction
	asymptoteε    = 1e-6                         // keeps hyperbolic true anomalies strictly inside the asymptotes
)

// Orbit defines a two-body orbit around a fixed attractor located at the focus.
// All the fields are derived from one another and are kept consistent with the
// regime of the orbit by every constructor and setter.
type Orbit struct {
	position, velocity r3.Vec // relative to the attractor
	mass, g, μ         float64
	e, a, b, p         float64 // eccentricity, semi major and minor axes, semi-latus rectum
	normal             r3.Vec
	majorBasis         r3.Vec // points to the periapsis
	minorBasis         r3.Vec
	meanAnomaly        float64
	eccAnomaly         float64
	ν                  float64
	n, period          float64
	periapsis          r3.Vec
	apoapsis           r3.Vec
	rp, ra             float64
	center             r3.Vec
}

// NewOrbitFromRV returns the orbit of a body at position R with velocity V, both relative to an
// attractor of the provided mass, with the gravitational constant G.
// Degenerate inputs (radial trajectories, non positive μ) return an orbit which is not valid.
func NewOrbitFromRV(R, V r3.Vec, mass, G float64) *Orbit {
	o := &Orbit{}
	o.ResetFromRV(R, V, mass, G)
	return o
}

// NewOrbitFromElements creates an orbit from its orbital elements.
// WARNING: Angles must be in degrees not radian.
// For hyperbolic orbits, a is the magnitude of the semi major axis; for parabolic orbits it is the
// periapsis distance. If the period is strictly positive on an elliptic orbit, the attractor mass is
// adjusted so that the orbit has exactly this period.
func NewOrbitFromElements(e, a, M, i, ω, Ω, mass, G, period float64) *Orbit {
	o := &Orbit{mass: mass, g: G, e: e}
	node := rotate(eclipticRight, Ω*deg2rad, eclipticNormal)
	o.normal = unit(rotate(eclipticNormal, i*deg2rad, node))
	o.majorBasis = unit(rotate(node, ω*deg2rad, o.normal))
	o.minorBasis = unit(r3.Cross(o.majorBasis, o.normal))
	switch RegimeOf(e) {
	case Elliptic:
		o.p = a * (1 - e*e)
		if period > 0 && G > 0 {
			o.mass = 4 * math.Pi * math.Pi * a * a * a / (period * period * G)
		}
	case Hyperbolic:
		o.p = a * (e*e - 1)
	default:
		o.p = 2 * a
	}
	o.μ = o.mass * o.g
	o.computeShape()
	o.SetMeanAnomaly(M * deg2rad)
	return o
}

// ResetFromRV re-derives the whole orbit from the state vectors, replacing all prior state.
func (o *Orbit) ResetFromRV(R, V r3.Vec, mass, G float64) {
	*o = Orbit{position: R, velocity: V, mass: mass, g: G, μ: mass * G}
	r := r3.Norm(R)
	h := r3.Cross(R, V)
	hNorm := r3.Norm(h)
	if o.μ <= 0 || r == 0 || hNorm == 0 || hNorm < 1e-12*r*r3.Norm(V) || !isFinite(R) || !isFinite(V) {
		// Radial or otherwise degenerate: no orbital plane can be defined.
		return
	}
	o.normal = r3.Scale(1/hNorm, h)
	eVec := r3.Sub(r3.Scale(1/o.μ, r3.Cross(V, h)), r3.Scale(1/r, R))
	o.e = r3.Norm(eVec)
	if o.e < circularε {
		// Circular: the periapsis is arbitrary, so pick the current position.
		eVec = R
	}
	o.minorBasis = unit(r3.Cross(h, r3.Scale(-1, eVec)))
	o.majorBasis = unit(r3.Cross(o.normal, o.minorBasis))
	o.p = hNorm * hNorm / o.μ
	o.computeShape()

	ν := angleBetween(R, o.majorBasis)
	if r3.Dot(r3.Cross(R, r3.Scale(-1, o.majorBasis)), o.normal) < 0 {
		ν = twoπ - ν
	}
	if o.Regime() != Elliptic {
		ν = signedAngle(ν)
	} else {
		ν = normalizeAngle(ν)
	}
	o.ν = ν
	o.eccAnomaly = TrueToEccentricAnomaly(ν, o.e)
	o.meanAnomaly = EccentricToMeanAnomaly(o.eccAnomaly, o.e)
}

// Recompute re-derives the orbit from its own state vectors, attractor mass and G.
// This is the repair pass of an orbit which became invalid.
func (o *Orbit) Recompute() {
	o.ResetFromRV(o.position, o.velocity, o.mass, o.g)
}

// computeShape derives the size, period and apsides from e, p, μ and the basis vectors.
func (o *Orbit) computeShape() {
	e := o.e
	o.rp = o.p / (1 + e)
	o.periapsis = r3.Scale(o.rp, o.majorBasis)
	inf := math.Inf(1)
	switch o.Regime() {
	case Elliptic:
		o.a = o.p / (1 - e*e)
		o.b = o.a * math.Sqrt(1-e*e)
		o.center = r3.Scale(-o.a*e, o.majorBasis)
		o.ra = o.a * (1 + e)
		o.apoapsis = r3.Scale(-o.ra, o.majorBasis)
		o.period = twoπ * math.Sqrt(o.a*o.a*o.a/o.μ)
		o.n = twoπ / o.period
	case Hyperbolic:
		o.a = o.p / (e*e - 1)
		o.b = o.a * math.Sqrt(e*e-1)
		o.center = r3.Scale(o.a*e, o.majorBasis)
		o.ra = inf
		o.apoapsis = r3.Vec{X: inf, Y: inf, Z: inf}
		o.period = inf
		o.n = math.Sqrt(o.μ / (o.a * o.a * o.a))
	default:
		// Barker's equation: M = D + D³/3 advances at sqrt(μ/(2 rp³)).
		o.a, o.b = 0, 0
		o.center = r3.Vec{}
		o.ra = inf
		o.apoapsis = r3.Vec{X: inf, Y: inf, Z: inf}
		o.period = inf
		o.n = math.Sqrt(o.μ / (2 * o.rp * o.rp * o.rp))
	}
}

// refresh recomputes the state vectors from the current true anomaly.
func (o *Orbit) refresh() {
	o.position = o.FocalPositionAtTrueAnomaly(o.ν)
	o.velocity = o.VelocityAtTrueAnomaly(o.ν)
}

// Regime returns the regime governing this orbit.
func (o *Orbit) Regime() Regime {
	return RegimeOf(o.e)
}

// IsValidOrbit returns whether this orbit can be propagated.
func (o *Orbit) IsValidOrbit() bool {
	return o.e >= 0 && o.period > 0 && o.mass > 0 && o.g > 0 && isFinite(o.position)
}

// UpdateOrbitDataByTime advances the orbit by dt seconds. It is the single per tick entry point.
// Invalid orbits are left untouched.
func (o *Orbit) UpdateOrbitDataByTime(dt float64) {
	if !o.IsValidOrbit() {
		return
	}
	o.SetMeanAnomaly(o.meanAnomaly + o.n*dt)
}

// SetMeanAnomaly sets the mean anomaly (in radians) and updates the other anomalies and the state vectors.
// Elliptic mean anomalies are reduced to [0, 2π); others are unbounded.
func (o *Orbit) SetMeanAnomaly(M float64) {
	if o.Regime() == Elliptic {
		M = normalizeAngle(M)
	}
	o.meanAnomaly = M
	o.eccAnomaly = MeanToEccentricAnomaly(M, o.e)
	o.ν = EccentricToTrueAnomaly(o.eccAnomaly, o.e)
	o.refresh()
}

// SetEccentricAnomaly sets the eccentric anomaly (hyperbolic anomaly for e > 1, parabolic anomaly
// tan(ν/2) for e = 1) and updates the other anomalies and the state vectors.
func (o *Orbit) SetEccentricAnomaly(E float64) {
	if o.Regime() == Elliptic {
		E = normalizeAngle(E)
	}
	o.eccAnomaly = E
	o.ν = EccentricToTrueAnomaly(E, o.e)
	o.meanAnomaly = EccentricToMeanAnomaly(E, o.e)
	o.refresh()
}

// SetTrueAnomaly sets the true anomaly (in radians) and updates the other anomalies and the state vectors.
// Elliptic true anomalies are reduced to [0, 2π); others to (-π, π], kept inside the asymptotes.
func (o *Orbit) SetTrueAnomaly(ν float64) {
	if o.Regime() == Elliptic {
		ν = normalizeAngle(ν)
	} else {
		ν = signedAngle(ν)
		if νmax := o.maxTrueAnomaly(); math.Abs(ν) > νmax {
			ν = math.Copysign(νmax, ν)
		}
	}
	o.ν = ν
	o.eccAnomaly = TrueToEccentricAnomaly(ν, o.e)
	o.meanAnomaly = EccentricToMeanAnomaly(o.eccAnomaly, o.e)
	o.refresh()
}

// SetEccentricity changes the shape of the orbit while keeping its periapsis distance and its
// orientation. The mean anomaly is kept, re-signed when the orbit stops being elliptic.
// Invalid orbits are left untouched.
func (o *Orbit) SetEccentricity(e float64) {
	if !o.IsValidOrbit() {
		return
	}
	e = math.Abs(e)
	wasElliptic := o.Regime() == Elliptic
	M := o.meanAnomaly
	rp := o.rp
	o.e = e
	o.p = rp * (1 + e)
	o.computeShape()
	if wasElliptic && o.Regime() != Elliptic {
		M = signedAngle(M)
	}
	o.SetMeanAnomaly(M)
}

// maxTrueAnomaly returns the limit of the true anomaly on unbound orbits.
func (o *Orbit) maxTrueAnomaly() float64 {
	switch o.Regime() {
	case Hyperbolic:
		return math.Acos(-1/o.e) - asymptoteε
	case Parabolic:
		return math.Pi - asymptoteε
	}
	return math.Pi
}

// FocalPositionAtTrueAnomaly returns the position relative to the attractor at the true anomaly ν.
func (o *Orbit) FocalPositionAtTrueAnomaly(ν float64) r3.Vec {
	sinν, cosν := math.Sincos(ν)
	r := o.p / (1 + o.e*cosν)
	return r3.Add(r3.Scale(r*cosν, o.majorBasis), r3.Scale(-r*sinν, o.minorBasis))
}

// FocalPositionAtEccentricAnomaly returns the position relative to the attractor at the eccentric
// (or hyperbolic, or parabolic) anomaly E.
func (o *Orbit) FocalPositionAtEccentricAnomaly(E float64) r3.Vec {
	switch o.Regime() {
	case Hyperbolic:
		return r3.Add(r3.Scale(o.a*(o.e-math.Cosh(E)), o.majorBasis), r3.Scale(-o.b*math.Sinh(E), o.minorBasis))
	case Parabolic:
		return o.FocalPositionAtTrueAnomaly(2 * math.Atan(E))
	}
	return r3.Add(o.CentralPositionAtEccentricAnomaly(E), o.center)
}

// CentralPositionAtEccentricAnomaly returns the position relative to the orbit center at the
// eccentric (or hyperbolic) anomaly E. Parabolas have no center, the focus is used instead.
func (o *Orbit) CentralPositionAtEccentricAnomaly(E float64) r3.Vec {
	switch o.Regime() {
	case Hyperbolic:
		return r3.Add(r3.Scale(-o.a*math.Cosh(E), o.majorBasis), r3.Scale(-o.b*math.Sinh(E), o.minorBasis))
	case Parabolic:
		return o.FocalPositionAtEccentricAnomaly(E)
	}
	sinE, cosE := math.Sincos(E)
	return r3.Add(r3.Scale(o.a*cosE, o.majorBasis), r3.Scale(-o.b*sinE, o.minorBasis))
}

// VelocityAtTrueAnomaly returns the velocity at the true anomaly ν.
func (o *Orbit) VelocityAtTrueAnomaly(ν float64) r3.Vec {
	sinν, cosν := math.Sincos(ν)
	k := math.Sqrt(o.μ / o.p)
	return r3.Add(r3.Scale(-k*sinν, o.majorBasis), r3.Scale(-k*(o.e+cosν), o.minorBasis))
}

// CurrentOrbitTime returns the time since the periapsis passage, in seconds.
// For elliptic orbits, this is the fraction of the period given by the mean anomaly.
func (o *Orbit) CurrentOrbitTime() float64 {
	if o.Regime() == Elliptic {
		return o.meanAnomaly / twoπ * o.period
	}
	return o.meanAnomaly / o.n
}

// Position returns the position relative to the attractor.
func (o *Orbit) Position() r3.Vec { return o.position }

// Velocity returns the velocity relative to the attractor.
func (o *Orbit) Velocity() r3.Vec { return o.velocity }

// AttractorMass returns the mass of the attractor.
func (o *Orbit) AttractorMass() float64 { return o.mass }

// GravConst returns the gravitational constant this orbit was computed with.
func (o *Orbit) GravConst() float64 { return o.g }

// GM returns μ (which is unexported because it's a lowercase letter)
func (o *Orbit) GM() float64 { return o.μ }

// Eccentricity returns the eccentricity.
func (o *Orbit) Eccentricity() float64 { return o.e }

// SemiMajorAxis returns the magnitude of the semi major axis (zero for parabolas).
func (o *Orbit) SemiMajorAxis() float64 { return o.a }

// SemiMinorAxis returns the magnitude of the semi minor axis (zero for parabolas).
func (o *Orbit) SemiMinorAxis() float64 { return o.b }

// SemiLatusRectum returns the semi-latus rectum p = h²/μ.
func (o *Orbit) SemiLatusRectum() float64 { return o.p }

// Normal returns the unit orbit normal.
func (o *Orbit) Normal() r3.Vec { return o.normal }

// SemiMajorAxisBasis returns the unit vector from the focus towards the periapsis.
func (o *Orbit) SemiMajorAxisBasis() r3.Vec { return o.majorBasis }

// SemiMinorAxisBasis returns the unit vector completing the orbit plane basis (major × normal).
func (o *Orbit) SemiMinorAxisBasis() r3.Vec { return o.minorBasis }

// MeanAnomaly returns the mean anomaly in radians.
func (o *Orbit) MeanAnomaly() float64 { return o.meanAnomaly }

// EccentricAnomaly returns the eccentric anomaly (hyperbolic or parabolic anomaly when e >= 1).
func (o *Orbit) EccentricAnomaly() float64 { return o.eccAnomaly }

// TrueAnomaly returns the true anomaly in radians.
func (o *Orbit) TrueAnomaly() float64 { return o.ν }

// MeanMotion returns the mean motion in radians per second.
func (o *Orbit) MeanMotion() float64 { return o.n }

// Period returns the period in seconds, +Inf for unbound orbits.
func (o *Orbit) Period() float64 { return o.period }

// Periapsis returns the periapsis position relative to the attractor.
func (o *Orbit) Periapsis() r3.Vec { return o.periapsis }

// Apoapsis returns the apoapsis position, with infinite components for unbound orbits.
func (o *Orbit) Apoapsis() r3.Vec { return o.apoapsis }

// PeriapsisDistance returns the distance between the attractor and the periapsis.
func (o *Orbit) PeriapsisDistance() float64 { return o.rp }

// ApoapsisDistance returns the distance between the attractor and the apoapsis, +Inf if unbound.
func (o *Orbit) ApoapsisDistance() float64 { return o.ra }

// Center returns the geometric center relative to the attractor (zero for parabolas).
func (o *Orbit) Center() r3.Vec { return o.center }

// Energyξ returns the specific mechanical energy ξ.
func (o *Orbit) Energyξ() float64 {
	v := r3.Norm(o.velocity)
	return v*v/2 - o.μ/r3.Norm(o.position)
}

// Inclination returns the inclination in radians.
func (o *Orbit) Inclination() float64 {
	return math.Acos(clampCos(o.normal.Z))
}

// AscendingNode returns the longitude of the ascending node in radians, zero for equatorial orbits.
func (o *Orbit) AscendingNode() float64 {
	n := r3.Cross(eclipticNormal, o.normal)
	nNorm := r3.Norm(n)
	if scalar.EqualWithinAbs(nNorm, 0, 1e-12) {
		return 0
	}
	Ω := math.Acos(clampCos(n.X / nNorm))
	if n.Y < 0 {
		Ω = twoπ - Ω
	}
	return normalizeAngle(Ω)
}

// ArgumentOfPeriapsis returns the argument of periapsis in radians.
// NOTE: For equatorial orbits, this is the longitude of periapsis.
func (o *Orbit) ArgumentOfPeriapsis() float64 {
	n := r3.Cross(eclipticNormal, o.normal)
	nNorm := r3.Norm(n)
	if scalar.EqualWithinAbs(nNorm, 0, 1e-12) {
		ω := math.Atan2(o.majorBasis.Y, o.majorBasis.X)
		if o.normal.Z < 0 {
			ω = -ω
		}
		return normalizeAngle(ω)
	}
	ω := math.Acos(clampCos(r3.Dot(n, o.majorBasis) / nNorm))
	if o.majorBasis.Z < 0 {
		ω = twoπ - ω
	}
	return normalizeAngle(ω)
}

// Clone returns a deep copy of this orbit.
func (o *Orbit) Clone() *Orbit {
	c := *o
	return &c
}

// String implements the stringer interface.
func (o *Orbit) String() string {
	if !o.IsValidOrbit() {
		return fmt.Sprintf("invalid orbit r=%+v v=%+v", o.position, o.velocity)
	}
	size := o.a
	if o.Regime() == Parabolic {
		size = o.rp
	}
	return fmt.Sprintf("%s a=%.3f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.Regime(), size, o.e, Rad2deg(o.Inclination()), Rad2deg(o.AscendingNode()), Rad2deg(o.ArgumentOfPeriapsis()), Rad2deg(o.ν))
}
