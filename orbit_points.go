package orbitsim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// OrbitPoints returns count points of this orbit, relative to the attractor, limited to maxDistance
// from the attractor. See OrbitPointsInto.
func (o *Orbit) OrbitPoints(count int, maxDistance float64) []r3.Vec {
	return o.OrbitPointsInto(nil, count, maxDistance)
}

// OrbitPointsInto fills dst with count points of this orbit and returns it. The buffer is reused
// as is when its length is count, and resliced when its capacity allows.
// Closed ellipses within maxDistance are sampled evenly in eccentric anomaly over [0, 2π). Otherwise,
// the arc where the distance to the attractor is at most maxDistance is sampled evenly in true
// anomaly, from -θ to +θ. An empty slice is returned when no part of the orbit is close enough.
func (o *Orbit) OrbitPointsInto(dst []r3.Vec, count int, maxDistance float64) []r3.Vec {
	if count <= 0 || !o.IsValidOrbit() || maxDistance < o.rp {
		return dst[:0]
	}
	if o.Regime() == Elliptic && o.ra <= maxDistance {
		dst = resizeVecs(dst, count)
		step := twoπ / float64(count)
		for i := range dst {
			dst[i] = o.FocalPositionAtEccentricAnomaly(float64(i) * step)
		}
		return dst
	}
	θ := o.trueAnomalyAtDistance(maxDistance)
	dst = resizeVecs(dst, count)
	if count == 1 {
		dst[0] = o.periapsis
		return dst
	}
	step := 2 * θ / float64(count-1)
	for i := range dst {
		dst[i] = o.FocalPositionAtTrueAnomaly(-θ + float64(i)*step)
	}
	return dst
}

// trueAnomalyAtDistance returns the positive true anomaly at which the orbit reaches distance d,
// capped to stay inside the asymptotes of unbound orbits.
func (o *Orbit) trueAnomalyAtDistance(d float64) float64 {
	if o.e == 0 {
		return math.Pi
	}
	θ := math.Acos(clampCos((o.p/d - 1) / o.e))
	if νmax := o.maxTrueAnomaly(); θ > νmax {
		θ = νmax
	}
	return θ
}

func resizeVecs(dst []r3.Vec, n int) []r3.Vec {
	if len(dst) == n {
		return dst
	}
	if cap(dst) >= n {
		return dst[:n]
	}
	return make([]r3.Vec, n)
}
