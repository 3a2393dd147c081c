package loader

// JSON layout of a glTF 2.0 document, limited to the parts the importer materializes.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html

type gltfDocument struct {
	Asset              gltfAsset        `json:"asset"`
	Scene              *int             `json:"scene,omitempty"`
	Scenes             []gltfScene      `json:"scenes,omitempty"`
	Nodes              []gltfNode       `json:"nodes,omitempty"`
	Meshes             []gltfMesh       `json:"meshes,omitempty"`
	Accessors          []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews        []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers            []gltfBuffer     `json:"buffers,omitempty"`
	Materials          []gltfMaterial   `json:"materials,omitempty"`
	Textures           []gltfTexture    `json:"textures,omitempty"`
	Images             []gltfImage      `json:"images,omitempty"`
	Samplers           []gltfSampler    `json:"samplers,omitempty"`
	Animations         []gltfAnimation  `json:"animations,omitempty"`
	ExtensionsUsed     []string         `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string         `json:"extensionsRequired,omitempty"`
}

type gltfAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
}

type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode carries either Matrix or the TRS triple; TRS wins when both are present.
type gltfNode struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

const gltfModeTriangles = 4

type gltfAccessor struct {
	Name          string `json:"name,omitempty"`
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	Sparse        *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

// accessor component types
const (
	componentByte          = 5120
	componentUnsignedByte  = 5121
	componentShort         = 5122
	componentUnsignedShort = 5123
	componentUnsignedInt   = 5125
	componentFloat         = 5126
)

// accessor element types
const (
	typeScalar = "SCALAR"
	typeVec2   = "VEC2"
	typeVec3   = "VEC3"
	typeVec4   = "VEC4"
	typeMat4   = "MAT4"
)

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	data       []byte
}

type gltfMaterial struct {
	Name                 string          `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbr        `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfTextureRef `json:"normalTexture,omitempty"`
}

type gltfPbr struct {
	BaseColorFactor          *[4]float32     `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureRef `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32        `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32        `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureRef `json:"metallicRoughnessTexture,omitempty"`
}

type gltfTextureRef struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

type gltfTexture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

type gltfImage struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// sampler filter and wrap enums (GL constants)
const (
	filterNearest              = 9728
	filterLinear               = 9729
	filterNearestMipmapNearest = 9984
	filterLinearMipmapNearest  = 9985
	filterNearestMipmapLinear  = 9986
	filterLinearMipmapLinear   = 9987

	wrapClampToEdge    = 33071
	wrapMirroredRepeat = 33648
	wrapRepeat         = 10497
)

type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

type gltfAnimChannel struct {
	Sampler int `json:"sampler"`
	Target  struct {
		Node *int   `json:"node,omitempty"`
		Path string `json:"path"`
	} `json:"target"`
}

type gltfAnimSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

// GLB container layout.
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	glbChunkJSON  = 0x4E4F534A // "JSON"
	glbChunkBIN   = 0x004E4942 // "BIN\0"
)
