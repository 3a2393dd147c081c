package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
)

// extractMesh converts every primitive of a document mesh into an ImportedMesh.
func (p *gltfParser) extractMesh(meshIndex int) ([]model.ImportedMesh, error) {
	if meshIndex < 0 || meshIndex >= len(p.doc.Meshes) {
		return nil, structuralf(p.name, "mesh %d: %w", meshIndex, errIndexOutOfRange)
	}
	mesh := &p.doc.Meshes[meshIndex]

	out := make([]model.ImportedMesh, 0, len(mesh.Primitives))
	for i := range mesh.Primitives {
		imported, err := p.extractPrimitive(&mesh.Primitives[i])
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, i, err)
		}
		imported.Name = primitiveName(mesh.Name, meshIndex, i, len(mesh.Primitives))
		out = append(out, imported)
	}
	return out, nil
}

func primitiveName(meshName string, meshIndex, primIndex, primCount int) string {
	name := meshName
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primCount > 1 {
		name = fmt.Sprintf("%s_%d", name, primIndex)
	}
	return name
}

func (p *gltfParser) extractPrimitive(prim *gltfPrimitive) (model.ImportedMesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return model.ImportedMesh{}, structuralf(p.name, "primitive mode %d is not supported, only triangles", *prim.Mode)
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return model.ImportedMesh{}, structuralf(p.name, "primitive has no POSITION attribute")
	}

	positions, err := p.readVec3(posIndex)
	if err != nil {
		return model.ImportedMesh{}, err
	}
	n := len(positions)
	vertices := make([]model.Vertex, n)
	for i, pos := range positions {
		vertices[i].Position = pos
		vertices[i].Color = [4]float32{1, 1, 1, 1}
	}

	hasNormals := false
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readVec3(idx)
		if err != nil {
			return model.ImportedMesh{}, err
		}
		if err := p.checkCount("NORMAL", len(normals), n); err != nil {
			return model.ImportedMesh{}, err
		}
		for i := range normals {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readVec2(idx)
		if err != nil {
			return model.ImportedMesh{}, err
		}
		if err := p.checkCount("TEXCOORD_0", len(uvs), n); err != nil {
			return model.ImportedMesh{}, err
		}
		for i := range uvs {
			vertices[i].TexCoord = uvs[i]
		}
	}

	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err := p.readColors(idx)
		if err != nil {
			return model.ImportedMesh{}, err
		}
		if err := p.checkCount("COLOR_0", len(colors), n); err != nil {
			return model.ImportedMesh{}, err
		}
		for i := range colors {
			vertices[i].Color = colors[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readIndices(*prim.Indices); err != nil {
			return model.ImportedMesh{}, err
		}
		for _, ix := range indices {
			if int(ix) >= n {
				return model.ImportedMesh{}, structuralf(p.name, "index %d references one of %d vertices", ix, n)
			}
		}
	} else {
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if !hasNormals {
		generateNormals(vertices, indices)
	}

	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
		if materialIndex < 0 || materialIndex >= len(p.doc.Materials) {
			return model.ImportedMesh{}, structuralf(p.name, "material %d: %w", materialIndex, errIndexOutOfRange)
		}
	}

	bmin, bmax := boundingBox(positions)
	return model.ImportedMesh{
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
		BoundingMin:   bmin,
		BoundingMax:   bmax,
	}, nil
}

func (p *gltfParser) checkCount(attribute string, got, want int) error {
	if got != want {
		return structuralf(p.name, "%s has %d elements, POSITION has %d", attribute, got, want)
	}
	return nil
}

func boundingBox(positions [][3]float32) ([3]float32, [3]float32) {
	if len(positions) == 0 {
		return [3]float32{}, [3]float32{}
	}
	bmin, bmax := positions[0], positions[0]
	for _, pos := range positions[1:] {
		for j := 0; j < 3; j++ {
			bmin[j] = math32.Min(bmin[j], pos[j])
			bmax[j] = math32.Max(bmax[j], pos[j])
		}
	}
	return bmin, bmax
}

// generateNormals computes smooth vertex normals by accumulating area-weighted face normals.
// Vertices touched by no triangle point up.
func generateNormals(vertices []model.Vertex, indices []uint32) {
	accum := make([][3]float32, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position

		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, ix := range [3]uint32{i0, i1, i2} {
			accum[ix][0] += face[0]
			accum[ix][1] += face[1]
			accum[ix][2] += face[2]
		}
	}

	for i, a := range accum {
		length := math32.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
		if length < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = [3]float32{a[0] / length, a[1] / length, a[2] / length}
	}
}
