package game_object

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithName sets the object's name.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the name option to a game object
func WithName(name string) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.name = name
	}
}

// WithEnabled sets whether the object starts enabled. Objects are enabled by default.
//
// Parameters:
//   - enabled: true to enable
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the enabled option to a game object
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.enabled.Store(enabled)
	}
}

// WithTransform sets the initial local transform. The rotation is normalized.
//
// Parameters:
//   - t: the local transform
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the transform option to a game object
func WithTransform(t model.Transform) GameObjectBuilderOption {
	return func(g *gameObject) {
		t.Rotation = normalizeQuaternion(t.Rotation)
		g.transform = t
	}
}

// WithRenderer attaches a renderer at construction.
func WithRenderer(r Renderer) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.renderer = r
	}
}

// WithCollider attaches a collider at construction.
func WithCollider(c *Collider) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.collider = c
	}
}
