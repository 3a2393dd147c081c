package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader is written for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type. Material shaders are fragment shaders.
	ShaderTypeFragment
)

// StandardShaderName is the name of the shader imported materials reference when no custom
// shader name is configured on the importer.
const StandardShaderName = "Standard"

var (
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	computeEntryRegex  = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)
	lineCommentRegex   = regexp.MustCompile(`//[^\n]*`)
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	name       string
	source     string
	shaderType ShaderType
	entryPoint string
	module     *wgpu.ShaderModuleDescriptor
}

// Shader is a named WGSL shader resource. Materials reference a Shader; the loader can swap the
// shader of every imported material for an override after a scene has been loaded.
//
// A Shader without source is a named placeholder: importers create those when they only know
// which shader a material should use, not its code.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Name retrieves the human readable shader name materials are matched by.
	//
	// Returns:
	//   - string: the shader name
	Name() string

	// Source retrieves the WGSL shader source code. Empty for placeholders.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage this shader targets.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the entry point name parsed from the source.
	//
	// Returns:
	//   - string: the entry point name, or "" when the source has none
	EntryPoint() string

	// Visibility returns the wgpu shader stage matching ShaderType.
	//
	// Returns:
	//   - wgpu.ShaderStage: the stage flag used for bind group visibility
	Visibility() wgpu.ShaderStage

	// Module returns the shader module descriptor, or nil for placeholders.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// IsPlaceholder reports whether the shader carries no source.
	//
	// Returns:
	//   - bool: true when Source is empty
	IsPlaceholder() bool
}

var _ Shader = &shader{}

// NewShader creates a new Shader with the given key and type and applies the options.
// The name defaults to the key.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader targets
//   - options: functional options (WithName, WithSource)
//
// Returns:
//   - Shader: the new shader
func NewShader(key string, shaderType ShaderType, options ...ShaderBuilderOption) Shader {
	s := &shader{
		key:        key,
		name:       key,
		shaderType: shaderType,
	}
	for _, option := range options {
		option(s)
	}
	s.compile()
	return s
}

// LoadShader reads a WGSL file and creates a Shader from it. The key is the file path and the
// name is the file name without its extension.
//
// Parameters:
//   - path: the WGSL file to read
//   - shaderType: the stage the shader targets
//
// Returns:
//   - Shader: the loaded shader
//   - error: error if the file cannot be read or contains no entry point for shaderType
func LoadShader(path string, shaderType ShaderType) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := NewShader(path, shaderType, WithName(name), WithSource(string(data)))
	if s.EntryPoint() == "" {
		return nil, fmt.Errorf("shader: %q has no entry point for %s", path, shaderType)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Visibility() wgpu.ShaderStage {
	switch s.shaderType {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) IsPlaceholder() bool {
	return s.source == ""
}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// compile builds the module descriptor and parses the entry point when source is present.
func (s *shader) compile() {
	if s.source == "" {
		return
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
}

// parseEntryPoint returns the name of the first function annotated for the given stage.
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := lineCommentRegex.ReplaceAllString(blockCommentRegex.ReplaceAllString(source, ""), "")

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	case ShaderTypeCompute:
		re = computeEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}
