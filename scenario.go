package orbitsim

import (
	"fmt"
	"strings"

	kitlog "github.com/go-kit/log"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scene is a configured set of nodes and the system propagating them.
type Scene struct {
	Nodes  map[string]*SceneNode
	Bodies []*Propagator // configuration order, fixed attractors excluded
	System *System
}

// BuildScene creates the nodes and propagators of the configured bodies. The propagators are
// not activated. A known celestial object orbiting its usual parent without any elements or
// state vectors is put on a circular orbit at its mean distance.
func BuildScene(c Config, logger kitlog.Logger, m *Metrics) (*Scene, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	G := c.Scale.CompensatedG(c.G)
	s := &Scene{Nodes: make(map[string]*SceneNode, len(c.Bodies)), System: NewSystem(logger, m)}
	for _, b := range c.Bodies {
		if _, dup := s.Nodes[b.Name]; dup {
			return nil, fmt.Errorf("body %s is defined twice", b.Name)
		}
		pos := b.Position
		if b.Attractor != "" {
			// Placed on activation.
			pos.X, pos.Y, pos.Z = 0, 0, 0
		}
		s.Nodes[b.Name] = NewSceneNode(b.Name, pos, b.Mass)
	}
	for _, b := range c.Bodies {
		if b.Attractor == "" {
			continue
		}
		attractor, ok := s.Nodes[b.Attractor]
		if !ok {
			return nil, fmt.Errorf("%w: attractor %s of %s", ErrUnknownBody, b.Attractor, b.Name)
		}
		if attractor.Mass() <= 0 {
			return nil, fmt.Errorf("attractor %s of %s has no mass", b.Attractor, b.Name)
		}
		if b.Elements == nil && b.Position == (r3.Vec{}) && b.Velocity == (r3.Vec{}) {
			b.Elements = presetElements(b, c.Scale)
		}
		var o *Orbit
		if el := b.Elements; el != nil {
			o = NewOrbitFromElements(el.Ecc, el.SMA, el.MeanAnomaly, el.Inc, el.ArgPeri, el.RAAN, attractor.Mass(), G, el.Period)
			// The period may have overridden the mass.
			attractor.SetMass(o.AttractorMass())
		} else {
			o = NewOrbitFromRV(b.Position, b.Velocity, attractor.Mass(), G)
		}
		if !o.IsValidOrbit() {
			return nil, &PropagationError{Body: b.Name, Err: ErrInvalidOrbit}
		}
		p := NewPropagator(s.Nodes[b.Name], attractor,
			WithName(b.Name),
			WithMode(b.Mode),
			WithLogger(logger),
			WithMetrics(m),
			WithOrbit(o),
		)
		s.Bodies = append(s.Bodies, p)
		s.System.Add(p)
	}
	return s, nil
}

// presetElements returns a circular orbit at the mean distance of a celestial object around its
// parent, or nil if the body is not orbiting the parent of a known object.
func presetElements(b BodyConfig, s Scale) *ElementsConfig {
	obj, err := CelestialObjectFromString(b.Name)
	if err != nil || obj.Parent() == "" || !strings.EqualFold(obj.Parent(), b.Attractor) {
		return nil
	}
	return &ElementsConfig{SMA: obj.SemiMajorAxis() / AU * s.UnitsPerAU}
}
