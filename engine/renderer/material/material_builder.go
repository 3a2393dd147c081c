package material

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material identifier.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor sets the RGBA albedo color.
//
// Parameters:
//   - color: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic sets the metallic factor.
//
// Parameters:
//   - metallic: the metallic factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic factor to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness sets the roughness factor.
//
// Parameters:
//   - roughness: the roughness factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness factor to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithDiffuseTexture sets the base color texture.
func WithDiffuseTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}

// WithNormalTexture sets the normal map.
func WithNormalTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
	}
}

// WithMetallicRoughnessTexture sets the packed metallic-roughness texture.
func WithMetallicRoughnessTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.metallicRoughnessTexture = tex
	}
}

// WithShader sets the shader the material is drawn with.
//
// Parameters:
//   - s: the shader
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shader to a material
func WithShader(s shader.Shader) MaterialBuilderOption {
	return func(m *material) {
		m.shader = s
	}
}
