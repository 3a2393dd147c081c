package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
)

// material is the implementation of the Material interface.
type material struct {
	mu                       sync.RWMutex
	name                     string
	baseColor                [4]float32
	metallic                 float32
	roughness                float32
	diffuseTexture           *common.ImportedTexture
	normalTexture            *common.ImportedTexture
	metallicRoughnessTexture *common.ImportedTexture
	shader                   shader.Shader
}

// Material is the surface description attached to a renderer: PBR factors, texture references and
// the shader used to draw it.
//
// Surface properties are fixed at construction. The shader is mutable so a loaded scene can be
// re-shaded after import.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA albedo color.
	//
	// Returns:
	//   - [4]float32: the base color
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor, 0 for dielectric and 1 for metal.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor, 0 for smooth and 1 for rough.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// DiffuseTexture retrieves the base color texture, or nil.
	//
	// Returns:
	//   - *common.ImportedTexture: the diffuse texture
	DiffuseTexture() *common.ImportedTexture

	// NormalTexture retrieves the normal map, or nil.
	//
	// Returns:
	//   - *common.ImportedTexture: the normal texture
	NormalTexture() *common.ImportedTexture

	// MetallicRoughnessTexture retrieves the packed metallic-roughness texture, or nil.
	//
	// Returns:
	//   - *common.ImportedTexture: the metallic-roughness texture
	MetallicRoughnessTexture() *common.ImportedTexture

	// Shader retrieves the shader this material is drawn with.
	//
	// Returns:
	//   - shader.Shader: the current shader, or nil if none was assigned
	Shader() shader.Shader

	// SetShader replaces the shader this material is drawn with. Safe for concurrent use.
	//
	// Parameters:
	//   - s: the new shader
	SetShader(s shader.Shader)
}

var _ Material = &material{}

// NewMaterial creates a new Material configured with the provided options.
// Defaults to a white, fully rough dielectric with no shader.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// FromImported creates a Material from an imported document material.
//
// Parameters:
//   - imported: the material data read from the document
//   - s: the shader the material is drawn with
//
// Returns:
//   - Material: a new Material instance
func FromImported(imported common.ImportedMaterial, s shader.Shader) Material {
	return NewMaterial(
		WithName(imported.Name),
		WithBaseColor(imported.BaseColor),
		WithMetallic(imported.Metallic),
		WithRoughness(imported.Roughness),
		WithDiffuseTexture(imported.DiffuseTexture),
		WithNormalTexture(imported.NormalTexture),
		WithMetallicRoughnessTexture(imported.MetallicRoughnessTexture),
		WithShader(s),
	)
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) DiffuseTexture() *common.ImportedTexture {
	return m.diffuseTexture
}

func (m *material) NormalTexture() *common.ImportedTexture {
	return m.normalTexture
}

func (m *material) MetallicRoughnessTexture() *common.ImportedTexture {
	return m.metallicRoughnessTexture
}

func (m *material) Shader() shader.Shader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shader
}

func (m *material) SetShader(s shader.Shader) {
	m.mu.Lock()
	m.shader = s
	m.mu.Unlock()
}
