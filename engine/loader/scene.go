package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/chewxy/math32"
)

// buildScene materializes the node hierarchy of the default scene under a new, detached root.
func buildScene(p *gltfParser, imported *model.ImportedScene, cfg importSettings, name string) (game_object.GameObject, error) {
	b := &sceneBuilder{
		p:        p,
		imported: imported,
		cfg:      cfg,
		state:    make([]visitState, len(p.doc.Nodes)),
	}
	b.materials = make([]material.Material, len(imported.Materials))
	for i, m := range imported.Materials {
		b.materials[i] = material.FromImported(m, cfg.shader)
	}

	root := game_object.NewGameObject(game_object.WithName(name))
	for _, n := range rootNodes(p.doc) {
		if err := b.buildNode(n, root); err != nil {
			return nil, err
		}
	}
	for _, clip := range imported.Animations {
		root.AddAnimator(animator.NewAnimator(clip))
	}
	return root, nil
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

type sceneBuilder struct {
	p          *gltfParser
	imported   *model.ImportedScene
	cfg        importSettings
	state      []visitState
	materials  []material.Material
	defaultMat material.Material
}

func (b *sceneBuilder) buildNode(index int, parent game_object.GameObject) error {
	if index < 0 || index >= len(b.p.doc.Nodes) {
		return structuralf(b.p.name, "node %d: %w", index, errIndexOutOfRange)
	}
	switch b.state[index] {
	case visiting:
		return structuralf(b.p.name, "node %d: %w", index, errNodeCycle)
	case visited:
		return structuralf(b.p.name, "node %d has more than one parent", index)
	}
	b.state[index] = visiting

	node := &b.p.doc.Nodes[index]
	name := node.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", index)
	}
	obj := game_object.NewGameObject(
		game_object.WithName(name),
		game_object.WithTransform(nodeTransform(node)),
	)
	if err := obj.SetParent(parent); err != nil {
		return err
	}

	if node.Mesh != nil {
		if *node.Mesh < 0 || *node.Mesh >= len(b.imported.Meshes) {
			return structuralf(b.p.name, "node %d mesh %d: %w", index, *node.Mesh, errIndexOutOfRange)
		}
		prims := b.imported.Meshes[*node.Mesh]
		if len(prims) == 1 {
			b.attachMesh(obj, &prims[0])
		} else {
			for i := range prims {
				child := game_object.NewGameObject(game_object.WithName(prims[i].Name))
				if err := child.SetParent(obj); err != nil {
					return err
				}
				b.attachMesh(child, &prims[i])
			}
		}
	}

	for _, c := range node.Children {
		if err := b.buildNode(c, obj); err != nil {
			return err
		}
	}
	b.state[index] = visited
	return nil
}

func (b *sceneBuilder) attachMesh(obj game_object.GameObject, mesh *model.ImportedMesh) {
	obj.SetRenderer(game_object.NewRenderer(mesh, b.materialFor(mesh.MaterialIndex)))
	if c := game_object.NewCollider(b.cfg.collider, mesh); c != nil {
		obj.SetCollider(c)
	}
}

// materialFor returns the imported material, or a shared default for primitives without one.
func (b *sceneBuilder) materialFor(index int) material.Material {
	if index >= 0 && index < len(b.materials) {
		return b.materials[index]
	}
	if b.defaultMat == nil {
		b.defaultMat = material.NewMaterial(
			material.WithName("Default"),
			material.WithShader(b.cfg.shader),
		)
	}
	return b.defaultMat
}

// defaultScene returns the index of the scene to load, or -1 if the document has none.
func defaultScene(doc *gltfDocument) int {
	if len(doc.Scenes) == 0 {
		return -1
	}
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return *doc.Scene
	}
	return 0
}

// rootNodes lists the top-level nodes to materialize. Documents without scenes load every node
// that is nobody's child.
func rootNodes(doc *gltfDocument) []int {
	if idx := defaultScene(doc); idx >= 0 {
		return doc.Scenes[idx].Nodes
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeTransform returns the local transform of a node. TRS properties win over a matrix.
func nodeTransform(node *gltfNode) model.Transform {
	t := model.IdentityTransform()
	if node.Translation == nil && node.Rotation == nil && node.Scale == nil {
		if node.Matrix != nil {
			return decomposeMatrix(*node.Matrix)
		}
		return t
	}
	if node.Translation != nil {
		t.Translation = *node.Translation
	}
	if node.Rotation != nil {
		t.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		t.Scale = *node.Scale
	}
	return t
}

// decomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// Shear is discarded.
func decomposeMatrix(m [16]float32) model.Transform {
	t := model.Transform{
		Translation: [3]float32{m[12], m[13], m[14]},
		Scale: [3]float32{
			math32.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2]),
			math32.Sqrt(m[4]*m[4] + m[5]*m[5] + m[6]*m[6]),
			math32.Sqrt(m[8]*m[8] + m[9]*m[9] + m[10]*m[10]),
		},
	}

	det := m[0]*(m[5]*m[10]-m[6]*m[9]) - m[4]*(m[1]*m[10]-m[2]*m[9]) + m[8]*(m[1]*m[6]-m[2]*m[5])
	if det < 0 {
		t.Scale[0] = -t.Scale[0]
	}

	div := t.Scale
	for i := range div {
		if div[i] == 0 {
			div[i] = 1
		}
	}
	r00, r10, r20 := m[0]/div[0], m[1]/div[0], m[2]/div[0]
	r01, r11, r21 := m[4]/div[1], m[5]/div[1], m[6]/div[1]
	r02, r12, r22 := m[8]/div[2], m[9]/div[2], m[10]/div[2]

	var x, y, z, w float32
	switch trace := r00 + r11 + r22; {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		w = 0.25 * s
		x = (r21 - r12) / s
		y = (r02 - r20) / s
		z = (r10 - r01) / s
	case r00 > r11 && r00 > r22:
		s := math32.Sqrt(1+r00-r11-r22) * 2
		w = (r21 - r12) / s
		x = 0.25 * s
		y = (r01 + r10) / s
		z = (r02 + r20) / s
	case r11 > r22:
		s := math32.Sqrt(1+r11-r00-r22) * 2
		w = (r02 - r20) / s
		x = (r01 + r10) / s
		y = 0.25 * s
		z = (r12 + r21) / s
	default:
		s := math32.Sqrt(1+r22-r00-r11) * 2
		w = (r10 - r01) / s
		x = (r02 + r20) / s
		y = (r12 + r21) / s
		z = 0.25 * s
	}
	t.Rotation = [4]float32{x, y, z, w}
	return t
}
