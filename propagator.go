package orbitsim

import (
	"reflect"
	"time"

	kitlog "github.com/go-kit/log"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode defines how a propagator treats its host node.
type Mode uint8

const (
	// Uninitialized propagators have not been activated yet.
	Uninitialized Mode = iota
	// Live propagators re-derive their orbit whenever the host moves the node.
	Live
	// Locked propagators own the trajectory and ignore host changes.
	Locked
)

func (m Mode) String() string {
	switch m {
	case Uninitialized:
		return "uninitialized"
	case Live:
		return "live"
	case Locked:
		return "locked"
	}
	return "unknown"
}

// PropagatorOption configures a Propagator.
type PropagatorOption func(*Propagator)

// WithName sets the name used in logs and errors.
func WithName(name string) PropagatorOption {
	return func(p *Propagator) { p.name = name }
}

// WithMode sets the mode entered on activation (Live by default).
func WithMode(m Mode) PropagatorOption {
	return func(p *Propagator) { p.target = m }
}

// WithLogger sets the logger.
func WithLogger(l kitlog.Logger) PropagatorOption {
	return func(p *Propagator) { p.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) PropagatorOption {
	return func(p *Propagator) { p.metrics = m }
}

// WithVelocity sets the initial velocity relative to the attractor.
func WithVelocity(v r3.Vec) PropagatorOption {
	return func(p *Propagator) { p.velocity = v }
}

// WithOrbit presets the orbit. On activation, the node is placed on that orbit.
func WithOrbit(o *Orbit) PropagatorOption {
	return func(p *Propagator) { p.orbit = o }
}

// Propagator moves a host node along its Keplerian orbit around an attractor.
type Propagator struct {
	name       string
	node       Node
	attractor  Attractor
	orbit      *Orbit
	velocity   r3.Vec
	target     Mode
	mode       Mode
	active     bool
	lastPushed Vec3f
	lastMass   float64
	lastG      float64
	missing    bool
	logger     kitlog.Logger
	metrics    *Metrics
	repairLog  rate.Sometimes
}

// NewPropagator returns a new propagator of node around attractor.
// It panics if the node is its own attractor, or if either handle is not comparable.
func NewPropagator(node Node, attractor Attractor, opts ...PropagatorOption) *Propagator {
	if !comparableHandle(node) || !comparableHandle(attractor) {
		panic("orbitsim: node handles must be comparable")
	}
	if node != nil && attractor != nil && node == Node(attractor) {
		panic("orbitsim: a body cannot be its own attractor")
	}
	p := &Propagator{
		name:      "body",
		node:      node,
		attractor: attractor,
		target:    Live,
		logger:    kitlog.NewNopLogger(),
		repairLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.target == Uninitialized {
		p.target = Live
	}
	p.logger = kitlog.With(p.logger, "body", p.name)
	return p
}

// Name returns the name of this body.
func (p *Propagator) Name() string { return p.name }

// Mode returns the current mode, Uninitialized until the first activation.
func (p *Propagator) Mode() Mode { return p.mode }

// Active returns whether this propagator is advanced by ticks.
func (p *Propagator) Active() bool { return p.active }

// Orbit returns the orbit, nil until it is first derived.
func (p *Propagator) Orbit() *Orbit { return p.orbit }

// Node returns the host node.
func (p *Propagator) Node() Node { return p.node }

// Attractor returns the attractor.
func (p *Propagator) Attractor() Attractor { return p.attractor }

// Activate enters the configured mode. A Live propagator re-derives its orbit from the current
// node position unless the node still sits where the orbit last placed it, hence reactivation
// after Deactivate resumes the same orbit.
func (p *Propagator) Activate(ctx TickContext) error {
	if !p.referencesAlive() {
		p.lostReference()
		return &PropagationError{Body: p.name, Err: ErrMissingReference}
	}
	p.missing = false
	fresh := p.mode == Uninitialized
	p.mode = p.target
	p.active = true
	if p.orbit == nil {
		p.recompute(ctx.G)
		p.metrics.recordResync(reasonActivate)
	} else {
		p.velocity = p.orbit.Velocity()
		if fresh {
			// A preset orbit places the node.
			p.lastMass, p.lastG = p.attractor.Mass(), ctx.G
			p.push()
		} else if p.mode == Live && p.drifted(ctx) {
			p.recompute(ctx.G)
			p.metrics.recordResync(reasonActivate)
		}
	}
	p.logger.Log("level", "info", "subsys", "prop", "status", "activated", "mode", p.mode, "orbit", p.orbit)
	return nil
}

// Deactivate stops advancing this body. The orbit is left untouched.
func (p *Propagator) Deactivate() {
	p.active = false
}

// Recompute re-derives the orbit from the current node position relative to the attractor, the
// last known velocity, the attractor mass and G.
func (p *Propagator) Recompute(G float64) error {
	if !p.referencesAlive() {
		return &PropagationError{Body: p.name, Err: ErrMissingReference}
	}
	p.recompute(G)
	if !p.orbit.IsValidOrbit() {
		return &PropagationError{Body: p.name, Err: ErrInvalidOrbit}
	}
	return nil
}

// Tick advances the orbit by the simulated time of this tick and moves the node.
// Inactive propagators do nothing. A missing reference or an orbit which cannot be repaired
// skips the tick and returns a *PropagationError; neither is fatal.
func (p *Propagator) Tick(ctx TickContext) error {
	if !p.active {
		return nil
	}
	if !p.referencesAlive() {
		p.lostReference()
		p.metrics.recordSkip(reasonMissing)
		return &PropagationError{Body: p.name, Err: ErrMissingReference}
	}
	if p.missing {
		p.missing = false
		p.logger.Log("level", "info", "subsys", "prop", "status", "references restored")
	}
	if p.mode == Live && p.drifted(ctx) {
		p.recompute(ctx.G)
		p.metrics.recordResync(reasonDrift)
	}
	if !p.orbit.IsValidOrbit() {
		p.recompute(ctx.G)
		p.metrics.recordResync(reasonRepair)
		if !p.orbit.IsValidOrbit() {
			p.repairLog.Do(func() {
				p.logger.Log("level", "warning", "subsys", "prop", "status", "invalid orbit", "r", p.orbit.Position(), "v", p.velocity)
			})
			p.metrics.recordSkip(reasonInvalid)
			return &PropagationError{Body: p.name, Err: ErrInvalidOrbit}
		}
	}
	p.orbit.UpdateOrbitDataByTime(ctx.elapsed())
	p.velocity = p.orbit.Velocity()
	p.push()
	p.metrics.recordTick()
	return nil
}

// jumpTo places the body at the provided mean anomaly.
func (p *Propagator) jumpTo(M float64) {
	p.orbit.SetMeanAnomaly(M)
	p.velocity = p.orbit.Velocity()
	p.push()
}

func (p *Propagator) referencesAlive() bool {
	return alive(p.node) && alive(p.attractor)
}

func (p *Propagator) lostReference() {
	if p.missing {
		return
	}
	p.missing = true
	p.logger.Log("level", "warning", "subsys", "prop", "status", "missing reference", "node", alive(p.node), "attractor", alive(p.attractor))
}

// drifted returns whether the host moved the node, or changed the attractor mass or G, since the
// last push.
func (p *Propagator) drifted(ctx TickContext) bool {
	return p.node.Position() != p.lastPushed || p.attractor.Mass() != p.lastMass || ctx.G != p.lastG
}

func (p *Propagator) recompute(G float64) {
	rel := r3.Sub(p.node.Position().Vec(), p.attractor.Position().Vec())
	if p.orbit == nil {
		p.orbit = &Orbit{}
	}
	p.orbit.ResetFromRV(rel, p.velocity, p.attractor.Mass(), G)
	p.lastMass, p.lastG = p.attractor.Mass(), G
	p.lastPushed = p.node.Position()
}

// push moves the node to the attractor position plus the orbit position.
func (p *Propagator) push() {
	world := ToVec3f(r3.Add(p.attractor.Position().Vec(), p.orbit.Position()))
	p.node.SetPosition(world)
	p.lastPushed = world
}

// comparableHandle returns whether h may be used as a map key and compared with ==.
func comparableHandle(h any) bool {
	t := reflect.TypeOf(h)
	return t == nil || t.Comparable()
}
