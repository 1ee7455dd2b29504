package orbitsim

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// solarConfig is the Sun, the Earth and the Moon with distances in astronomical units.
func solarConfig() Config {
	return Config{
		Scale:     Scale{UnitsPerAU: 1},
		TimeScale: 1,
		G:         GravitationalConstant,
		Dt:        86400,
		Bodies: []BodyConfig{
			{Name: "Sun", Mass: Sun.Mass},
			{Name: "Earth", Attractor: "Sun", Mass: Earth.Mass, Elements: &ElementsConfig{Ecc: 0.0167, SMA: 1}},
			{Name: "Moon", Attractor: "Earth", Mode: Locked, Elements: &ElementsConfig{Ecc: 0.0549, SMA: Moon.SemiMajorAxis() / AU, Inc: 5.145}},
		},
	}
}

func TestBuildScene(t *testing.T) {
	c := solarConfig()
	scene, err := BuildScene(c, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Nodes) != 3 || len(scene.Bodies) != 2 || scene.System.Len() != 2 {
		t.Fatalf("%d nodes and %d bodies", len(scene.Nodes), len(scene.Bodies))
	}
	earth, moon := scene.Bodies[0], scene.Bodies[1]
	if earth.Name() != "Earth" || moon.Name() != "Moon" {
		t.Fatal("invalid body order")
	}
	// Compensating G keeps a year at one astronomical unit.
	if !scalar.EqualWithinRel(earth.Orbit().Period(), 365.25*86400, 1e-3) {
		t.Fatalf("Earth period is %f days", earth.Orbit().Period()/86400)
	}
	ctx := c.TickContext()
	if err := scene.System.Activate(ctx); err != nil {
		t.Fatal(err)
	}
	if moon.Mode() != Locked || earth.Mode() != Live {
		t.Fatal("invalid modes")
	}
	// At the periapsis, on the first axis.
	earthNode := scene.Nodes["Earth"]
	if exp := (r3.Vec{X: 1 - 0.0167}); !vectorsEqualε(earthNode.Position().Vec(), exp, 1e-6) {
		t.Fatalf("Earth at %+v instead of %+v", earthNode.Position(), exp)
	}
	for i := 0; i < 30; i++ {
		if err := scene.System.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	moonNode := scene.Nodes["Moon"]
	d := r3.Norm(r3.Sub(moonNode.Position().Vec(), earthNode.Position().Vec()))
	if rp, ra := moon.Orbit().PeriapsisDistance(), moon.Orbit().ApoapsisDistance(); d < rp*0.999 || d > ra*1.001 {
		t.Fatalf("Moon at %g AU from the Earth, outside [%g, %g]", d, rp, ra)
	}
	// A month later, the Earth moved by about 30 degrees.
	if θ := math.Atan2(float64(earthNode.Position().Y), float64(earthNode.Position().X)); math.Abs(θ-30*2*math.Pi/365.25) > 0.03 {
		t.Fatalf("Earth moved by %f degrees", θ/deg2rad)
	}
}

func TestBuildScenePeriodOverride(t *testing.T) {
	c := solarConfig()
	c.Bodies = c.Bodies[:2]
	c.Bodies[1].Elements.Period = 86400 * 100
	scene, err := BuildScene(c, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p := scene.Bodies[0].Orbit().Period(); !scalar.EqualWithinRel(p, 86400*100, 1e-9) {
		t.Fatalf("period of %f days", p/86400)
	}
	if m := scene.Nodes["Sun"].Mass(); scalar.EqualWithinRel(m, Sun.Mass, 0.1) {
		t.Fatal("the Sun mass was not adjusted")
	}
}

func TestBuildScenePresetElements(t *testing.T) {
	c := solarConfig()
	c.Scale.UnitsPerAU = 10
	c.Bodies = []BodyConfig{
		{Name: "Sun", Mass: Sun.Mass},
		{Name: "Mars", Attractor: "sun", Mass: Mars.Mass},
	}
	scene, err := BuildScene(c, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	o := scene.Bodies[0].Orbit()
	if exp := Mars.SemiMajorAxis() / AU * 10; !scalar.EqualWithinRel(o.SemiMajorAxis(), exp, 1e-9) || o.Eccentricity() != 0 {
		t.Fatalf("Mars on %s instead of a circle of radius %f", o, exp)
	}
	// The scale does not change the period: about 687 days.
	if days := o.Period() / 86400; math.Abs(days-687) > 1 {
		t.Fatalf("Mars period of %f days", days)
	}

	// Only the usual parent gets a default orbit.
	c.Bodies[1].Name = "Moon"
	if _, err := BuildScene(c, nil, nil); !errors.Is(err, ErrInvalidOrbit) {
		t.Fatalf("expected an invalid orbit of the Moon around the Sun, got %v", err)
	}
}

func TestBuildSceneErrors(t *testing.T) {
	dup := solarConfig()
	dup.Bodies = append(dup.Bodies, BodyConfig{Name: "Sun", Mass: 1})
	if _, err := BuildScene(dup, nil, nil); err == nil {
		t.Fatal("expected an error for a duplicate body")
	}

	unknown := solarConfig()
	unknown.Bodies[2].Attractor = "Venus"
	if _, err := BuildScene(unknown, nil, nil); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected an unknown body, got %v", err)
	}

	massless := solarConfig()
	massless.Bodies[0].Mass = 0
	if _, err := BuildScene(massless, nil, nil); err == nil {
		t.Fatal("expected an error for a massless attractor")
	}

	radial := solarConfig()
	radial.Bodies[1].Elements = nil
	radial.Bodies[1].Position = r3.Vec{X: 1}
	radial.Bodies[1].Velocity = r3.Vec{X: 1e-7}
	_, err := BuildScene(radial, nil, nil)
	var perr *PropagationError
	if !errors.Is(err, ErrInvalidOrbit) || !errors.As(err, &perr) || perr.Body != "Earth" {
		t.Fatalf("expected an invalid orbit of the Earth, got %v", err)
	}
}
