package orbitsim

import (
	"errors"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// System advances a set of propagators, attractors before the bodies orbiting them, so that
// within one tick no body is placed relative to a stale attractor position.
type System struct {
	props   []*Propagator
	order   []*Propagator
	dirty   bool
	logger  kitlog.Logger
	metrics *Metrics
}

// NewSystem returns an empty system. A nil logger discards everything.
func NewSystem(logger kitlog.Logger, m *Metrics) *System {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &System{logger: kitlog.With(logger, "subsys", "system"), metrics: m}
}

// Add adds propagators to the system.
func (s *System) Add(props ...*Propagator) {
	s.props = append(s.props, props...)
	s.dirty = true
}

// Remove removes a propagator from the system.
func (s *System) Remove(p *Propagator) error {
	if p == nil {
		return fmt.Errorf("%w: nil propagator", ErrUnknownBody)
	}
	for i, other := range s.props {
		if other == p {
			s.props = append(s.props[:i], s.props[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownBody, p.Name())
}

// Len returns the number of propagators.
func (s *System) Len() int { return len(s.props) }

// Order returns the propagators, each attractor before the bodies orbiting it. Ties are
// broken by insertion index, so the order is deterministic.
func (s *System) Order() ([]*Propagator, error) {
	if !s.dirty && s.order != nil {
		return s.order, nil
	}
	byNode := make(map[Node]int64, len(s.props))
	g := simple.NewDirectedGraph()
	for i, p := range s.props {
		g.AddNode(simple.Node(i))
		if p.node != nil {
			byNode[p.node] = int64(i)
		}
	}
	for i, p := range s.props {
		if p.attractor == nil {
			continue
		}
		if parent, ok := byNode[Node(p.attractor)]; ok {
			g.SetEdge(simple.Edge{F: simple.Node(parent), T: simple.Node(i)})
		}
	}
	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicHierarchy, err)
	}
	order := make([]*Propagator, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, s.props[n.ID()])
	}
	s.order, s.dirty = order, false
	return s.order, nil
}

// Activate activates every propagator, attractors first.
func (s *System) Activate(ctx TickContext) error {
	order, err := s.Order()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range order {
		if err := p.Activate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tick advances every propagator by one tick, attractors first. Per body failures are joined
// in the returned error and never stop the pass. Bodies whose node was destroyed are removed
// after the pass.
func (s *System) Tick(ctx TickContext) error {
	start := time.Now()
	order, err := s.Order()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range order {
		if err := p.Tick(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.prune()
	s.metrics.observeSystemTick(time.Since(start))
	return errors.Join(errs...)
}

// prune removes the propagators whose node is gone.
func (s *System) prune() {
	kept := s.props[:0]
	for _, p := range s.props {
		if alive(p.node) {
			kept = append(kept, p)
			continue
		}
		s.logger.Log("level", "info", "status", "pruned", "body", p.Name())
		s.dirty = true
	}
	for i := len(kept); i < len(s.props); i++ {
		s.props[i] = nil
	}
	s.props = kept
}
