package orbitsim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AU is one astronomical unit in meters.
const AU = 1.495978707e11

// Vec3f is a single precision vector, as used by the host scene.
type Vec3f struct {
	X, Y, Z float32
}

// ToVec3f narrows v to single precision.
func ToVec3f(v r3.Vec) Vec3f {
	return Vec3f{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// Vec widens v to double precision.
func (v Vec3f) Vec() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Node is a transform owned by the host scene. Nodes are compared by identity, so
// implementations must be comparable types, typically pointers.
type Node interface {
	Position() Vec3f
	SetPosition(Vec3f)
	// Alive returns false once the host destroyed the node.
	Alive() bool
}

// Attractor is a node with a mass, around which bodies orbit.
type Attractor interface {
	Node
	Mass() float64
}

// SceneNode is a minimal in memory Node and Attractor.
type SceneNode struct {
	Name string
	pos  Vec3f
	mass float64
	dead bool
}

// NewSceneNode returns a new live node.
func NewSceneNode(name string, pos r3.Vec, mass float64) *SceneNode {
	return &SceneNode{Name: name, pos: ToVec3f(pos), mass: mass}
}

// Position returns the world position of this node.
func (n *SceneNode) Position() Vec3f { return n.pos }

// SetPosition moves this node.
func (n *SceneNode) SetPosition(p Vec3f) { n.pos = p }

// Alive returns false once the node is destroyed, and for a nil node.
func (n *SceneNode) Alive() bool { return n != nil && !n.dead }

// Mass returns the mass of this node.
func (n *SceneNode) Mass() float64 { return n.mass }

// SetMass sets the mass of this node.
func (n *SceneNode) SetMass(m float64) { n.mass = m }

// Destroy marks this node as gone. Propagators referencing it stop on their next tick.
func (n *SceneNode) Destroy() { n.dead = true }

// String implements the Stringer interface.
func (n *SceneNode) String() string { return n.Name }

// alive returns whether a node handle is usable, including typed nil pointers.
func alive(n Node) bool {
	return n != nil && n.Alive()
}

// Scale maps the simulation distance unit to astronomical units.
type Scale struct {
	UnitsPerAU float64
}

// CompensatedG returns the gravitational constant expressed in scene units, such that
// orbital periods are unchanged by the scale.
func (s Scale) CompensatedG(G float64) float64 {
	m := AU / s.UnitsPerAU
	return G / (m * m * m)
}

// TickContext carries the per tick simulation parameters.
type TickContext struct {
	Dt        float64 // host frame time, in seconds
	TimeScale float64 // playback speed multiplier
	G         float64 // gravitational constant, already compensated for the scale
}

// elapsed returns the simulated time of this tick in seconds.
func (c TickContext) elapsed() float64 {
	return c.Dt * c.TimeScale
}

// Camera converts between world and camera space.
type Camera interface {
	ToCamera(world r3.Vec) r3.Vec
	FromCamera(cam r3.Vec) r3.Vec
	NearPlane() float64
	FarPlane() float64
}

// PoseCamera is a camera at a given position, oriented by a yaw about the ecliptic normal
// followed by a pitch about the new first axis.
type PoseCamera struct {
	eye       r3.Vec
	near, far float64
	dcm       *mat.Dense // world to camera
}

// NewPoseCamera returns a new camera. Angles are in radians.
func NewPoseCamera(eye r3.Vec, yaw, pitch, near, far float64) *PoseCamera {
	var dcm mat.Dense
	dcm.Mul(R1(pitch), R3(yaw))
	return &PoseCamera{eye: eye, near: math.Abs(near), far: math.Abs(far), dcm: &dcm}
}

// ToCamera implements the Camera interface.
func (c *PoseCamera) ToCamera(world r3.Vec) r3.Vec {
	return MxV33(c.dcm, r3.Sub(world, c.eye))
}

// FromCamera implements the Camera interface.
func (c *PoseCamera) FromCamera(cam r3.Vec) r3.Vec {
	return r3.Add(MxV33(c.dcm.T(), cam), c.eye)
}

// NearPlane implements the Camera interface.
func (c *PoseCamera) NearPlane() float64 { return c.near }

// FarPlane implements the Camera interface.
func (c *PoseCamera) FarPlane() float64 { return c.far }
