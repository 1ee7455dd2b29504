package orbitsim

import (
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
)

// TimelineOption configures a Timeline.
type TimelineOption func(*Timeline)

// WithTimelineLogger sets the logger of the timeline.
func WithTimelineLogger(l kitlog.Logger) TimelineOption {
	return func(t *Timeline) { t.logger = l }
}

// WithTimelineMetrics sets the metrics collector of the timeline.
func WithTimelineMetrics(m *Metrics) TimelineOption {
	return func(t *Timeline) { t.metrics = m }
}

// epochState is the snapshot taken when a body joins the timeline.
type epochState struct {
	p      *Propagator
	epochM float64
	epoch  time.Time
}

// Timeline holds the global simulation time and places registered bodies on their orbit for
// any absolute time. Placement depends only on the time elapsed since each body's epoch, so
// jumping to the same time twice, or by different paths, yields the same positions.
type Timeline struct {
	now     time.Time
	bodies  map[uuid.UUID]*epochState
	ids     []uuid.UUID // registration order
	logger  kitlog.Logger
	metrics *Metrics
}

// NewTimeline returns a timeline starting at origin.
func NewTimeline(origin time.Time, opts ...TimelineOption) *Timeline {
	t := &Timeline{
		now:    origin.UTC(),
		bodies: make(map[uuid.UUID]*epochState),
		logger: kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = kitlog.With(t.logger, "subsys", "timeline")
	return t
}

// RegisterBody snapshots the current mean anomaly of an activated propagator as its epoch,
// at the current timeline time, and returns its handle.
func (t *Timeline) RegisterBody(p *Propagator) (uuid.UUID, error) {
	if p.Orbit() == nil || !p.Orbit().IsValidOrbit() {
		return uuid.Nil, &PropagationError{Body: p.Name(), Err: ErrInvalidOrbit}
	}
	id := uuid.New()
	t.bodies[id] = &epochState{p: p, epochM: p.Orbit().MeanAnomaly(), epoch: t.now}
	t.ids = append(t.ids, id)
	return id, nil
}

// Unregister removes a body from the timeline.
func (t *Timeline) Unregister(id uuid.UUID) error {
	if _, ok := t.bodies[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	delete(t.bodies, id)
	for i, other := range t.ids {
		if other == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Now returns the global simulation time.
func (t *Timeline) Now() time.Time { return t.now }

// JD returns the global simulation time as a Julian date.
func (t *Timeline) JD() float64 { return julian.TimeToJD(t.now) }

// Len returns the number of registered bodies.
func (t *Timeline) Len() int { return len(t.ids) }

// Elapse moves the global time along with a regular tick, without placing the bodies since the
// tick already moved them.
func (t *Timeline) Elapse(ctx TickContext) {
	t.now = addSeconds(t.now, ctx.elapsed())
}

// AdvanceBy jumps forward (or backward) by the provided duration.
func (t *Timeline) AdvanceBy(d time.Duration) {
	t.SetGlobalTime(t.now.Add(d))
}

// SetGlobalTime places every registered body where it is at time at: M = M_epoch + n·(at - epoch).
// Bodies whose node or attractor is gone are dropped once the pass is over.
func (t *Timeline) SetGlobalTime(at time.Time) {
	at = at.UTC()
	var dead []uuid.UUID
	for _, id := range t.ids {
		b := t.bodies[id]
		if !b.p.referencesAlive() {
			dead = append(dead, id)
			continue
		}
		o := b.p.Orbit()
		if !o.IsValidOrbit() {
			continue
		}
		b.p.jumpTo(b.epochM + secondsBetween(b.epoch, at)*o.MeanMotion())
	}
	for _, id := range dead {
		t.logger.Log("level", "info", "status", "pruned", "body", t.bodies[id].p.Name())
		t.Unregister(id)
	}
	t.now = at
	t.metrics.recordTimeJump()
}

// secondsBetween returns to - from in seconds. Unlike time.Time.Sub, it does not saturate
// beyond about 292 years.
func secondsBetween(from, to time.Time) float64 {
	return float64(to.Unix()-from.Unix()) + float64(to.Nanosecond()-from.Nanosecond())/1e9
}

// addSeconds returns t moved by s seconds, which may exceed the range of a time.Duration.
func addSeconds(t time.Time, s float64) time.Time {
	sec := math.Floor(s)
	nsec := int64(t.Nanosecond()) + int64(math.Round((s-sec)*1e9))
	return time.Unix(t.Unix()+int64(sec), nsec).UTC()
}
