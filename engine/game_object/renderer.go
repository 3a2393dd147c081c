package game_object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
)

type renderer struct {
	mu       sync.RWMutex
	mesh     *model.ImportedMesh
	material material.Material
}

// Renderer draws a mesh with a material. It is the renderable component attached to a GameObject.
type Renderer interface {
	// Mesh returns the mesh drawn by this renderer.
	//
	// Returns:
	//   - *model.ImportedMesh: the mesh
	Mesh() *model.ImportedMesh

	// Material returns the material the mesh is drawn with.
	//
	// Returns:
	//   - material.Material: the material, or nil
	Material() material.Material

	// SetMaterial replaces the material the mesh is drawn with.
	//
	// Parameters:
	//   - m: the new material
	SetMaterial(m material.Material)
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given mesh and material.
//
// Parameters:
//   - mesh: the mesh to draw
//   - mat: the material to draw it with
//
// Returns:
//   - Renderer: the new renderer
func NewRenderer(mesh *model.ImportedMesh, mat material.Material) Renderer {
	return &renderer{mesh: mesh, material: mat}
}

func (r *renderer) Mesh() *model.ImportedMesh {
	return r.mesh
}

func (r *renderer) Material() material.Material {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.material
}

func (r *renderer) SetMaterial(m material.Material) {
	r.mu.Lock()
	r.material = m
	r.mu.Unlock()
}
