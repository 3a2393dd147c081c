package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// --- Transform ---

// Transform is a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// --- Animation Types ---

// AnimationClip is a single keyframed animation (walk, idle, spin, ...).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Index is the position of the animation in its source document.
	Index int

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Channels holds the keyframes per animated node, in first-seen document order.
	Channels []AnimationChannel
}

// AnimationChannel holds the keyframes that drive a single node.
type AnimationChannel struct {
	// NodeIndex is the document index of the node this channel animates.
	NodeIndex int32

	// NodeName is the name of the animated node, if the document provides one.
	NodeName string

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value [3]float32
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the quaternion value at this keyframe (x, y, z, w).
	Value [4]float32
}

// --- Mesh Types ---

// Vertex is a single mesh vertex as imported.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Color    [4]float32
}

// ImportedMesh is one drawable primitive read from a scene document.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the mesh vertices.
	Vertices []Vertex

	// Indices are the triangle indices.
	Indices []uint32

	// MaterialIndex references the document's material list, or -1 when the primitive has none.
	MaterialIndex int

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// TriangleCount returns the number of triangles described by the index list.
//
// Returns:
//   - int: the number of triangles
func (m *ImportedMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ImportedScene is the CPU-side result of a full document import.
type ImportedScene struct {
	// Name is the scene identifier.
	Name string

	// Materials are the document materials in index order.
	Materials []common.ImportedMaterial

	// Meshes holds the primitives of each document mesh, indexed by mesh index.
	Meshes [][]ImportedMesh

	// Animations are all animation clips in document order.
	Animations []*AnimationClip
}
