package game_object

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
)

// PrimitiveType identifies a built-in mesh.
type PrimitiveType int

const (
	// PrimitiveCube is a unit cube centered on the origin.
	PrimitiveCube PrimitiveType = iota

	// PrimitiveQuad is a unit quad in the XY plane facing +Z.
	PrimitiveQuad
)

// NewPrimitive creates a GameObject carrying a built-in mesh and a default material.
//
// Parameters:
//   - primitive: the built-in mesh to create
//   - options: variadic list of GameObjectBuilderOption functions to configure the object
//
// Returns:
//   - GameObject: the new object with a Renderer attached
func NewPrimitive(primitive PrimitiveType, options ...GameObjectBuilderOption) GameObject {
	var mesh *model.ImportedMesh
	switch primitive {
	case PrimitiveCube:
		mesh = cubeMesh()
	case PrimitiveQuad:
		mesh = quadMesh()
	default:
		panic(fmt.Sprintf("game_object: unknown primitive %d", primitive))
	}

	opts := append([]GameObjectBuilderOption{
		WithName(mesh.Name),
		WithRenderer(NewRenderer(mesh, material.NewMaterial(material.WithName("Default")))),
	}, options...)
	return NewGameObject(opts...)
}

// face is one side of the cube: its normal and the two in-plane axes.
type face struct {
	normal, u, v [3]float32
}

func cubeMesh() *model.ImportedMesh {
	faces := []face{
		{normal: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
		{normal: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
		{normal: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
		{normal: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
		{normal: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
		{normal: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
	}

	mesh := &model.ImportedMesh{
		Name:          "Cube",
		MaterialIndex: -1,
		BoundingMin:   [3]float32{-0.5, -0.5, -0.5},
		BoundingMax:   [3]float32{0.5, 0.5, 0.5},
	}
	corners := [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		for _, c := range corners {
			var pos [3]float32
			for i := 0; i < 3; i++ {
				pos[i] = f.normal[i]*0.5 + f.u[i]*c[0] + f.v[i]*c[1]
			}
			mesh.Vertices = append(mesh.Vertices, model.Vertex{
				Position: pos,
				Normal:   f.normal,
				TexCoord: [2]float32{c[0] + 0.5, 0.5 - c[1]},
				Color:    [4]float32{1, 1, 1, 1},
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return mesh
}

func quadMesh() *model.ImportedMesh {
	mesh := &model.ImportedMesh{
		Name:          "Quad",
		MaterialIndex: -1,
		BoundingMin:   [3]float32{-0.5, -0.5, 0},
		BoundingMax:   [3]float32{0.5, 0.5, 0},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
	}
	corners := [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
	for _, c := range corners {
		mesh.Vertices = append(mesh.Vertices, model.Vertex{
			Position: [3]float32{c[0], c[1], 0},
			Normal:   [3]float32{0, 0, 1},
			TexCoord: [2]float32{c[0] + 0.5, 0.5 - c[1]},
			Color:    [4]float32{1, 1, 1, 1},
		})
	}
	return mesh
}
