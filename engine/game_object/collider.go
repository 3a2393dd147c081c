package game_object

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
)

// ColliderType selects how collision geometry is generated for imported meshes.
type ColliderType int

const (
	// ColliderNone generates no collision geometry.
	ColliderNone ColliderType = iota

	// ColliderBox generates an axis-aligned box from the mesh bounds.
	ColliderBox

	// ColliderMesh uses the triangle mesh itself.
	ColliderMesh

	// ColliderMeshConvex uses the triangle mesh as the source of a convex hull.
	ColliderMeshConvex
)

func (c ColliderType) String() string {
	switch c {
	case ColliderNone:
		return "none"
	case ColliderBox:
		return "box"
	case ColliderMesh:
		return "mesh"
	case ColliderMeshConvex:
		return "mesh_convex"
	default:
		return fmt.Sprintf("ColliderType(%d)", int(c))
	}
}

// ParseColliderType parses the configuration spelling of a collider type. Empty means none.
//
// Parameters:
//   - s: one of "none", "box", "mesh", "mesh_convex" (case insensitive)
//
// Returns:
//   - ColliderType: the parsed type
//   - error: error if s is not a known collider type
func ParseColliderType(s string) (ColliderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ColliderNone, nil
	case "box":
		return ColliderBox, nil
	case "mesh":
		return ColliderMesh, nil
	case "mesh_convex", "meshconvex", "convex":
		return ColliderMeshConvex, nil
	default:
		return ColliderNone, fmt.Errorf("game_object: unknown collider type %q", s)
	}
}

// Collider is physics collision geometry attached to a GameObject.
type Collider struct {
	// Type is the kind of collision geometry.
	Type ColliderType

	// Min and Max are the axis-aligned bounds of the geometry in local space.
	Min, Max [3]float32

	// Mesh is the source geometry for mesh colliders, nil for box colliders.
	Mesh *model.ImportedMesh

	// Convex marks mesh colliders that should be treated as a convex hull.
	Convex bool
}

// NewCollider builds a collider of the given type for a mesh. The bounds are recomputed from the
// vertices when the mesh carries none.
//
// Parameters:
//   - colliderType: the kind of collider to build
//   - mesh: the source geometry
//
// Returns:
//   - *Collider: the collider, or nil for ColliderNone or an empty mesh
func NewCollider(colliderType ColliderType, mesh *model.ImportedMesh) *Collider {
	if colliderType == ColliderNone || mesh == nil || len(mesh.Vertices) == 0 {
		return nil
	}

	minB, maxB := mesh.BoundingMin, mesh.BoundingMax
	if minB == maxB {
		minB, maxB = meshBounds(mesh)
	}

	c := &Collider{Type: colliderType, Min: minB, Max: maxB}
	switch colliderType {
	case ColliderMesh:
		c.Mesh = mesh
	case ColliderMeshConvex:
		c.Mesh = mesh
		c.Convex = true
	}
	return c
}

// Size returns the extent of the collider along each axis.
//
// Returns:
//   - [3]float32: the extent
func (c *Collider) Size() [3]float32 {
	return [3]float32{c.Max[0] - c.Min[0], c.Max[1] - c.Min[1], c.Max[2] - c.Min[2]}
}

func meshBounds(mesh *model.ImportedMesh) ([3]float32, [3]float32) {
	minB := mesh.Vertices[0].Position
	maxB := minB
	for _, v := range mesh.Vertices[1:] {
		for i := 0; i < 3; i++ {
			minB[i] = math32.Min(minB[i], v.Position[i])
			maxB[i] = math32.Max(maxB[i], v.Position[i])
		}
	}
	return minB, maxB
}
