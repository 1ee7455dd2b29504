package orbitsim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// rotate rotates v by θ radians about the provided axis (right hand rule).
func rotate(v r3.Vec, θ float64, axis r3.Vec) r3.Vec {
	if θ == 0 {
		return v
	}
	return r3.Rotate(v, θ, unit(axis))
}

// Rot313Vec converts a given vector from the perifocal (PQW) frame to the reference frame
// when called with (-ω, -i, -Ω).
func Rot313Vec(θ1, θ2, θ3 float64, v r3.Vec) r3.Vec {
	return MxV33(R3R1R3(θ1, θ2, θ3), v)
}

// R3R1R3 performs a 3-1-3 Euler parameter rotation.
// From Schaub and Junkins.
func R3R1R3(θ1, θ2, θ3 float64) *mat.Dense {
	sθ1, cθ1 := math.Sincos(θ1)
	sθ2, cθ2 := math.Sincos(θ2)
	sθ3, cθ3 := math.Sincos(θ3)
	return mat.NewDense(3, 3, []float64{cθ3*cθ1 - sθ3*cθ2*sθ1, cθ3*sθ1 + sθ3*cθ2*cθ1, sθ3 * sθ2,
		-sθ3*cθ1 - cθ3*cθ2*sθ1, -sθ3*sθ1 + cθ3*cθ2*cθ1, cθ3 * sθ2,
		sθ2 * sθ1, -sθ2 * cθ1, cθ2})
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v r3.Vec) r3.Vec {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: rVec.AtVec(0), Y: rVec.AtVec(1), Z: rVec.AtVec(2)}
}
