package orbitsim

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const vectorε = 1e-6

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()
	f()
}

// vectorsEqual returns whether two vectors are equal within vectorε, absolute or relative.
func vectorsEqual(a, b r3.Vec) bool {
	return vectorsEqualε(a, b, vectorε)
}

func vectorsEqualε(a, b r3.Vec, ε float64) bool {
	return scalar.EqualWithinAbsOrRel(a.X, b.X, ε, ε) &&
		scalar.EqualWithinAbsOrRel(a.Y, b.Y, ε, ε) &&
		scalar.EqualWithinAbsOrRel(a.Z, b.Z, ε, ε)
}

// anglesEqual returns whether two angles in Radians are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Abs(a - b)
	if diff < angleε || math.Abs(diff-2*math.Pi) < angleε {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10fπ", diff/math.Pi)
}
