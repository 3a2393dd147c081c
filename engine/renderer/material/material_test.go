package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
)

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial()

	if m.BaseColor() != [4]float32{1, 1, 1, 1} {
		t.Fatalf("BaseColor() = %v, want white", m.BaseColor())
	}
	if m.Roughness() != 1 || m.Metallic() != 0 {
		t.Fatalf("unexpected factors metallic=%v roughness=%v", m.Metallic(), m.Roughness())
	}
	if m.Shader() != nil {
		t.Fatalf("expected no shader by default")
	}
}

func TestFromImported(t *testing.T) {
	diffuse := &common.ImportedTexture{Name: "albedo"}
	standard := shader.NewShader(shader.StandardShaderName, shader.ShaderTypeFragment)

	m := FromImported(common.ImportedMaterial{
		Name:           "Brick",
		BaseColor:      [4]float32{0.5, 0.25, 0.1, 1},
		Metallic:       0.2,
		Roughness:      0.7,
		DiffuseTexture: diffuse,
	}, standard)

	if m.Name() != "Brick" || m.Metallic() != 0.2 || m.Roughness() != 0.7 {
		t.Fatalf("imported properties not carried over: %s %v %v", m.Name(), m.Metallic(), m.Roughness())
	}
	if m.DiffuseTexture() != diffuse {
		t.Fatalf("diffuse texture not carried over")
	}
	if m.Shader() != standard {
		t.Fatalf("shader not assigned")
	}

	override := shader.NewShader("override", shader.ShaderTypeFragment)
	m.SetShader(override)
	if m.Shader() != override {
		t.Fatalf("SetShader did not replace shader")
	}
}
