package orbitsim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// BufferPool hands out point buffers so that sampling every frame does not allocate.
// It is not safe for concurrent use.
type BufferPool struct {
	free        [][]r3.Vec
	outstanding int
}

// Get checks out a buffer of length n. Negative lengths are treated as zero.
func (bp *BufferPool) Get(n int) []r3.Vec {
	n = max(n, 0)
	bp.outstanding++
	if l := len(bp.free); l > 0 {
		buf := bp.free[l-1]
		bp.free[l-1] = nil
		bp.free = bp.free[:l-1]
		return resizeVecs(buf, n)
	}
	return make([]r3.Vec, n)
}

// Put returns a buffer to the pool.
func (bp *BufferPool) Put(buf []r3.Vec) {
	bp.outstanding--
	bp.free = append(bp.free, buf)
}

// Outstanding returns the number of buffers checked out and not yet returned.
func (bp *BufferPool) Outstanding() int { return bp.outstanding }

// Sampler produces orbit path points for drawing.
type Sampler struct {
	// MinSpan is the smallest camera space extent of a projected path worth drawing.
	MinSpan float64
	pool    BufferPool
	xs, ys  []float64
}

// NewSampler returns a new sampler.
func NewSampler(minSpan float64) *Sampler {
	return &Sampler{MinSpan: minSpan}
}

// Pool returns the buffer pool of this sampler.
func (s *Sampler) Pool() *BufferPool { return &s.pool }

// Sample computes count points of the orbit within maxDistance of its attractor and passes them
// to use. The slice is only valid during the call. It returns false, without calling use,
// when no point is available.
func (s *Sampler) Sample(o *Orbit, count int, maxDistance float64, use func([]r3.Vec)) bool {
	if count <= 0 {
		return false
	}
	buf := s.pool.Get(count)
	defer s.pool.Put(buf)
	pts := o.OrbitPointsInto(buf, count, maxDistance)
	if len(pts) == 0 {
		return false
	}
	use(pts)
	return true
}

// Project converts points relative to the attractor into world positions flattened onto the
// camera near plane (points in front of the camera) or far plane (all others), appending them to
// dst[:0]. It returns false when the path spans less than MinSpan along both camera axes.
func (s *Sampler) Project(points []r3.Vec, attractorWorld r3.Vec, cam Camera, dst []Vec3f) ([]Vec3f, bool) {
	dst = dst[:0]
	if len(points) == 0 {
		return dst, false
	}
	s.xs, s.ys = s.xs[:0], s.ys[:0]
	for _, pt := range points {
		c := cam.ToCamera(r3.Add(attractorWorld, pt))
		if c.Z > 0 {
			c.Z = cam.NearPlane()
		} else {
			c.Z = -cam.FarPlane()
		}
		s.xs = append(s.xs, c.X)
		s.ys = append(s.ys, c.Y)
		dst = append(dst, ToVec3f(cam.FromCamera(c)))
	}
	span := math.Max(floats.Max(s.xs)-floats.Min(s.xs), floats.Max(s.ys)-floats.Min(s.ys))
	if span < s.MinSpan {
		return dst[:0], false
	}
	return dst, true
}
