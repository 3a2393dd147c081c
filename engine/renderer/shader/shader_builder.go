package shader

// ShaderBuilderOption is a functional option for configuring a Shader via NewShader.
type ShaderBuilderOption func(*shader)

// WithName sets the shader name materials are matched by.
//
// Parameters:
//   - name: the shader name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the name to a shader
func WithName(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.name = name
	}
}

// WithSource sets the WGSL source code of the shader.
//
// Parameters:
//   - source: the WGSL code
//
// Returns:
//   - ShaderBuilderOption: a function that applies the source to a shader
func WithSource(source string) ShaderBuilderOption {
	return func(s *shader) {
		s.source = source
	}
}
