package orbitsim

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/spatial/r3"
)

// planetAndMoon returns a moon orbiting a planet orbiting a fixed sun, with G = 1.
func planetAndMoon() (planet, moon *Propagator, planetNode, moonNode *SceneNode) {
	sun := NewSceneNode("sun", r3.Vec{}, 1)
	planetNode = NewSceneNode("planet", r3.Vec{X: 10}, 1e-3)
	moonNode = NewSceneNode("moon", r3.Vec{X: 10.1}, 0)
	planet = NewPropagator(planetNode, sun, WithName("planet"), WithVelocity(r3.Vec{Y: math.Sqrt(0.1)}))
	moon = NewPropagator(moonNode, planetNode, WithName("moon"), WithVelocity(r3.Vec{Y: 0.1}))
	return
}

func TestSystemOrder(t *testing.T) {
	planet, moon, _, _ := planetAndMoon()
	s := NewSystem(nil, nil)
	s.Add(moon, planet)
	order, err := s.Order()
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != planet || order[1] != moon {
		t.Fatalf("planet must come before its moon: %s, %s", order[0].Name(), order[1].Name())
	}
	// Unrelated bodies keep their insertion order.
	a := NewPropagator(NewSceneNode("a", r3.Vec{X: 1}, 0), NewSceneNode("x", r3.Vec{}, 1), WithName("a"))
	b := NewPropagator(NewSceneNode("b", r3.Vec{X: 1}, 0), NewSceneNode("y", r3.Vec{}, 1), WithName("b"))
	s.Add(b, a)
	if order, err = s.Order(); err != nil {
		t.Fatal(err)
	}
	if order[0] != planet || order[1] != moon || order[2] != b || order[3] != a {
		t.Fatal("unstable order")
	}
}

func TestSystemCycle(t *testing.T) {
	x := NewSceneNode("x", r3.Vec{}, 1)
	y := NewSceneNode("y", r3.Vec{X: 1}, 1)
	s := NewSystem(nil, nil)
	s.Add(NewPropagator(x, y), NewPropagator(y, x))
	if _, err := s.Order(); !errors.Is(err, ErrCyclicHierarchy) {
		t.Fatalf("expected a cyclic hierarchy, got %v", err)
	}
	if err := s.Tick(TickContext{Dt: 1, TimeScale: 1, G: 1}); !errors.Is(err, ErrCyclicHierarchy) {
		t.Fatalf("expected a cyclic hierarchy, got %v", err)
	}
}

func TestSystemTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	planet, moon, planetNode, moonNode := planetAndMoon()
	s := NewSystem(nil, m)
	s.Add(moon, planet)
	ctx := TickContext{Dt: 1, TimeScale: 1, G: 1}
	if err := s.Activate(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	// The moon is placed relative to where the planet is in this tick.
	exp := r3.Add(planetNode.Position().Vec(), moon.Orbit().Position())
	if !vectorsEqualε(moonNode.Position().Vec(), exp, 1e-5) {
		t.Fatalf("moon at %+v instead of %+v", moonNode.Position(), exp)
	}
	if r := r3.Norm(r3.Sub(moonNode.Position().Vec(), planetNode.Position().Vec())); math.Abs(r-0.1) > 1e-4 {
		t.Fatalf("moon at %f from its planet", r)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "orbitsim_system_tick_duration_seconds" {
			found = true
			if c := mf.GetMetric()[0].GetHistogram().GetSampleCount(); c != 2 {
				t.Fatalf("%d system ticks observed", c)
			}
		}
	}
	if !found {
		t.Fatal("tick duration not registered")
	}
}

func TestSystemPrune(t *testing.T) {
	planet, moon, planetNode, moonNode := planetAndMoon()
	s := NewSystem(nil, nil)
	s.Add(planet, moon)
	ctx := TickContext{Dt: 1, TimeScale: 1, G: 1}
	if err := s.Activate(ctx); err != nil {
		t.Fatal(err)
	}
	moonNode.Destroy()
	err := s.Tick(ctx)
	if !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected a missing reference, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("%d bodies left instead of 1", s.Len())
	}
	// The planet kept moving.
	before := planetNode.Position()
	if err := s.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if planetNode.Position() == before {
		t.Fatal("the planet stopped")
	}
	if err := s.Remove(nil); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("removing nil: %v", err)
	}
	if err := s.Remove(moon); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected an unknown body, got %v", err)
	}
	if err := s.Remove(planet); err != nil || s.Len() != 0 {
		t.Fatalf("could not remove the planet: %v", err)
	}
}

func TestSystemTickFailureIsolated(t *testing.T) {
	planet, moon, planetNode, _ := planetAndMoon()
	s := NewSystem(nil, nil)
	s.Add(planet, moon)
	ctx := TickContext{Dt: 1, TimeScale: 1, G: 1}
	if err := s.Activate(ctx); err != nil {
		t.Fatal(err)
	}
	// The moon can no longer hold an orbit, the planet must still move.
	planetNode.SetMass(0)
	before := planetNode.Position()
	err := s.Tick(ctx)
	if !errors.Is(err, ErrInvalidOrbit) {
		t.Fatalf("expected an invalid orbit, got %v", err)
	}
	var perr *PropagationError
	if !errors.As(err, &perr) || perr.Body != "moon" {
		t.Fatalf("expected a failure of the moon, got %v", err)
	}
	if planetNode.Position() == before {
		t.Fatal("the planet did not move")
	}
}
