package orbitsim

import (
	"fmt"
	"strings"
)

// GravitationalConstant is the CODATA 2018 value of G, in m³/(kg·s²).
const GravitationalConstant = 6.67430e-11

// CelestialObject defines a celestial object which may serve as an attractor.
type CelestialObject struct {
	Name   string
	Radius float64 // meters
	Mass   float64 // kilograms
	a      float64 // semi major axis of its own orbit, meters
	parent string
}

// SemiMajorAxis returns the semi major axis of the orbit of this object around its parent.
func (c CelestialObject) SemiMajorAxis() float64 {
	return c.a
}

// Parent returns the name of the object this one orbits, or an empty string.
func (c CelestialObject) Parent() string {
	return c.parent
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "sun":
		return Sun, nil
	case "earth":
		return Earth, nil
	case "moon":
		return Moon, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	default:
		return CelestialObject{}, fmt.Errorf("%w: undefined celestial object '%s'", ErrUnknownBody, name)
	}
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", 6.957e8, 1.98847e30, 0, ""}

// Earth is home.
var Earth = CelestialObject{"Earth", 6.3781363e6, 5.9722e24, 1.49598023e11, "Sun"}

// Moon is where we went.
var Moon = CelestialObject{"Moon", 1.7374e6, 7.342e22, 3.84399e8, "Earth"}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", 3.39619e6, 6.4171e23, 2.279392825616e11, "Sun"}

// Jupiter is big.
var Jupiter = CelestialObject{"Jupiter", 7.1492e7, 1.89813e27, 7.78298361e11, "Sun"}
