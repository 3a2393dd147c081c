package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const unlitSource = `
// @fragment fn commented_out() {}
@group(0) @binding(0) var<uniform> tint: vec4<f32>;

@fragment
fn fs_unlit() -> @location(0) vec4<f32> {
	return tint;
}
`

func TestNewShaderPlaceholder(t *testing.T) {
	s := NewShader("custom", ShaderTypeFragment, WithName("Toon"))

	if !s.IsPlaceholder() {
		t.Fatalf("expected placeholder shader")
	}
	if s.Name() != "Toon" {
		t.Fatalf("Name() = %q, want Toon", s.Name())
	}
	if s.Module() != nil {
		t.Fatalf("placeholder should have no module descriptor")
	}
	if s.Visibility() != wgpu.ShaderStageFragment {
		t.Fatalf("Visibility() = %v, want fragment", s.Visibility())
	}
}

func TestNewShaderParsesEntryPoint(t *testing.T) {
	s := NewShader("unlit", ShaderTypeFragment, WithSource(unlitSource))

	if s.EntryPoint() != "fs_unlit" {
		t.Fatalf("EntryPoint() = %q, want fs_unlit", s.EntryPoint())
	}
	if s.Name() != "unlit" {
		t.Fatalf("Name() should default to key, got %q", s.Name())
	}
	if s.Module() == nil || s.Module().WGSLDescriptor.Code != unlitSource {
		t.Fatalf("module descriptor not built from source")
	}
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Unlit.wgsl")
	if err := os.WriteFile(path, []byte(unlitSource), 0o644); err != nil {
		t.Fatalf("write shader: %v", err)
	}

	s, err := LoadShader(path, ShaderTypeFragment)
	if err != nil {
		t.Fatalf("LoadShader: %v", err)
	}
	if s.Name() != "Unlit" {
		t.Fatalf("Name() = %q, want Unlit", s.Name())
	}

	if _, err := LoadShader(path, ShaderTypeCompute); err == nil {
		t.Fatalf("expected error for missing compute entry point")
	}
	if _, err := LoadShader(filepath.Join(dir, "missing.wgsl"), ShaderTypeFragment); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
