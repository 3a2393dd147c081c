package game_object

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/animator"
	"github.com/chewxy/math32"
)

var (
	// ErrParentCycle is returned when SetParent would make an object its own ancestor.
	ErrParentCycle = errors.New("game_object: parent would create a cycle")

	// ErrForeignParent is returned when SetParent is given a GameObject not created by NewGameObject.
	ErrForeignParent = errors.New("game_object: parent was not created by NewGameObject")

	nextID atomic.Uint64
)

type gameObject struct {
	id        uint64
	enabled   atomic.Bool
	mu        sync.RWMutex
	name      string
	parent    *gameObject
	children  []*gameObject
	transform model.Transform
	renderer  Renderer
	animators []animator.Animator
	collider  *Collider
}

// GameObject is a node in the scene graph. Imported scenes are materialized as a tree of
// GameObjects: each node carries a local transform and, optionally, a Renderer, a Collider and
// Animators.
//
// All methods are safe for concurrent use.
type GameObject interface {
	// ID returns the object's unique identifier, assigned at construction.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name returns the object's name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// SetName sets the object's name.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Enabled returns whether this object is enabled.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the object is enabled.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Parent returns the object's parent, or nil for a root.
	//
	// Returns:
	//   - GameObject: the parent or nil
	Parent() GameObject

	// SetParent detaches the object from its current parent and appends it to the children of p.
	// A nil p leaves the object as a root.
	//
	// Parameters:
	//   - p: the new parent, or nil
	//
	// Returns:
	//   - error: ErrParentCycle if p is the object itself or one of its descendants,
	//     ErrForeignParent if p is another GameObject implementation
	SetParent(p GameObject) error

	// Children returns a snapshot of the object's direct children in attachment order.
	//
	// Returns:
	//   - []GameObject: the children
	Children() []GameObject

	// Transform returns the local transform.
	//
	// Returns:
	//   - model.Transform: the local transform
	Transform() model.Transform

	// SetTransform sets the local transform. The rotation is normalized; a zero rotation becomes identity.
	//
	// Parameters:
	//   - t: the new local transform
	SetTransform(t model.Transform)

	// WorldMatrix returns the column-major matrix mapping this object's local space to world
	// space, composed from the local transforms of the object and its ancestors.
	//
	// Returns:
	//   - [16]float32: the world matrix
	WorldMatrix() [16]float32

	// Renderer returns the renderer attached to this object, or nil.
	//
	// Returns:
	//   - Renderer: the renderer or nil
	Renderer() Renderer

	// SetRenderer attaches a renderer to this object, replacing any previous one.
	//
	// Parameters:
	//   - r: the renderer, or nil to remove it
	SetRenderer(r Renderer)

	// RenderersInChildren returns every renderer in this object's subtree, including its own,
	// in pre-order.
	//
	// Returns:
	//   - []Renderer: the renderers found
	RenderersInChildren() []Renderer

	// Animators returns the animators attached to this object in attachment order.
	//
	// Returns:
	//   - []animator.Animator: the animators
	Animators() []animator.Animator

	// AddAnimator attaches an animator to this object.
	//
	// Parameters:
	//   - a: the animator to attach
	AddAnimator(a animator.Animator)

	// Collider returns the collider attached to this object, or nil.
	//
	// Returns:
	//   - *Collider: the collider or nil
	Collider() *Collider

	// SetCollider attaches a collider to this object.
	//
	// Parameters:
	//   - c: the collider, or nil to remove it
	SetCollider(c *Collider)

	// Walk visits this object and its descendants in pre-order. Returning false from fn skips
	// the visited object's children.
	//
	// Parameters:
	//   - fn: the visitor
	Walk(fn func(GameObject) bool)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled root GameObject with an identity transform.
//
// Parameters:
//   - options: variadic list of GameObjectBuilderOption functions to configure the object
//
// Returns:
//   - GameObject: the new object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		id:        nextID.Add(1),
		transform: model.IdentityTransform(),
	}
	g.enabled.Store(true)
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *gameObject) SetName(name string) {
	g.mu.Lock()
	g.name = name
	g.mu.Unlock()
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Parent() GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.parent == nil {
		return nil
	}
	return g.parent
}

func (g *gameObject) SetParent(p GameObject) error {
	var next *gameObject
	if p != nil {
		var ok bool
		if next, ok = p.(*gameObject); !ok {
			return ErrForeignParent
		}
		for n := next; n != nil; n = n.parentNode() {
			if n == g {
				return ErrParentCycle
			}
		}
	}

	g.mu.Lock()
	prev := g.parent
	g.parent = next
	g.mu.Unlock()

	if prev != nil {
		prev.removeChild(g)
	}
	if next != nil {
		next.mu.Lock()
		next.children = append(next.children, g)
		next.mu.Unlock()
	}
	return nil
}

func (g *gameObject) Children() []GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]GameObject, len(g.children))
	for i, c := range g.children {
		out[i] = c
	}
	return out
}

func (g *gameObject) Transform() model.Transform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform
}

func (g *gameObject) SetTransform(t model.Transform) {
	t.Rotation = normalizeQuaternion(t.Rotation)
	g.mu.Lock()
	g.transform = t
	g.mu.Unlock()
}

func (g *gameObject) WorldMatrix() [16]float32 {
	t := g.Transform()
	var m [16]float32
	common.ComposeTRS(m[:], t.Translation, t.Rotation, t.Scale)
	if p := g.parentNode(); p != nil {
		pm := p.WorldMatrix()
		common.Mul4(m[:], pm[:], m[:])
	}
	return m
}

func (g *gameObject) Renderer() Renderer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.renderer
}

func (g *gameObject) SetRenderer(r Renderer) {
	g.mu.Lock()
	g.renderer = r
	g.mu.Unlock()
}

func (g *gameObject) RenderersInChildren() []Renderer {
	var out []Renderer
	g.Walk(func(o GameObject) bool {
		if r := o.Renderer(); r != nil {
			out = append(out, r)
		}
		return true
	})
	return out
}

func (g *gameObject) Animators() []animator.Animator {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]animator.Animator, len(g.animators))
	copy(out, g.animators)
	return out
}

func (g *gameObject) AddAnimator(a animator.Animator) {
	if a == nil {
		return
	}
	g.mu.Lock()
	g.animators = append(g.animators, a)
	g.mu.Unlock()
}

func (g *gameObject) Collider() *Collider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collider
}

func (g *gameObject) SetCollider(c *Collider) {
	g.mu.Lock()
	g.collider = c
	g.mu.Unlock()
}

func (g *gameObject) Walk(fn func(GameObject) bool) {
	if !fn(g) {
		return
	}
	g.mu.RLock()
	children := make([]*gameObject, len(g.children))
	copy(children, g.children)
	g.mu.RUnlock()

	for _, c := range children {
		c.Walk(fn)
	}
}

func (g *gameObject) parentNode() *gameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.parent
}

func (g *gameObject) removeChild(child *gameObject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, c := range g.children {
		if c == child {
			g.children = append(g.children[:i], g.children[i+1:]...)
			return
		}
	}
}

func normalizeQuaternion(q [4]float32) [4]float32 {
	length := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if length == 0 {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{q[0] / length, q[1] / length, q[2] / length, q[3] / length}
}
