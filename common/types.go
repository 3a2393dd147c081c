// package common contains plain data types shared by the loader, the scene graph and the
// material system. They are not interface-wrapped; they describe data as it comes out of a
// scene document before it is bound to engine objects.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultLodMaxClamp is the mip level clamp used when a document does not constrain sampling.
const DefaultLodMaxClamp float32 = 32

// SamplerStagingData describes how a texture is sampled once it reaches the GPU.
// The importer fills it from the document's sampler definition and clamps LodMaxClamp to the
// configured maximum level of detail.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW select the wrapping behavior per texture axis.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter select the magnification and minification filters.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter selects filtering between mip levels.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp bound the mip levels that may be sampled.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy is the anisotropic filtering level.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns linear filtering with repeat wrapping, the glTF defaults.
//
// Returns:
//   - SamplerStagingData: the default sampler configuration
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   DefaultLodMaxClamp,
		MaxAnisotropy: 1,
	}
}

// ClampLod limits LodMaxClamp to maxLod. A non-positive maxLod leaves the sampler untouched.
//
// Parameters:
//   - maxLod: the highest mip level that may be sampled
func (s *SamplerStagingData) ClampLod(maxLod int) {
	if maxLod <= 0 {
		return
	}
	if limit := float32(maxLod); s.LodMaxClamp > limit {
		s.LodMaxClamp = limit
	}
	if s.LodMinClamp > s.LodMaxClamp {
		s.LodMinClamp = s.LodMaxClamp
	}
}

// ImportedMaterial holds the surface description of a material as read from a scene document.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// DiffuseTexture is the base color texture, or nil.
	DiffuseTexture *ImportedTexture

	// NormalTexture is the normal map, or nil.
	NormalTexture *ImportedTexture

	// MetallicRoughnessTexture packs metallic (B) and roughness (G), or nil.
	MetallicRoughnessTexture *ImportedTexture
}

// Textures returns the non-nil textures of the material in diffuse, normal, metallic-roughness order.
//
// Returns:
//   - []*ImportedTexture: the textures referenced by the material
func (m *ImportedMaterial) Textures() []*ImportedTexture {
	var out []*ImportedTexture
	for _, t := range []*ImportedTexture{m.DiffuseTexture, m.NormalTexture, m.MetallicRoughnessTexture} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// ImportedTexture is image data referenced by a material.
// Embedded and external images both end up in Data; URI keeps the document reference for
// external images so sibling resources can be identified later.
type ImportedTexture struct {
	// Name is an identifier for this texture.
	Name string

	// URI is the document-relative reference for external images (empty for embedded).
	URI string

	// Data contains the encoded image bytes (PNG/JPEG).
	Data []byte

	// MimeType indicates the image format (e.g., "image/png").
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// SamplerData holds the sampler parameters for this texture.
	SamplerData *SamplerStagingData
}

// Decode decodes the encoded image bytes into RGBA pixels and records the dimensions.
// Supports PNG and JPEG.
//
// Returns:
//   - []byte: raw RGBA pixel data (4 bytes per pixel, row-major order)
//   - uint32: texture width in pixels
//   - uint32: texture height in pixels
//   - error: error if the texture has no data or decoding fails
func (t *ImportedTexture) Decode() ([]byte, uint32, uint32, error) {
	if t == nil {
		return nil, 0, 0, fmt.Errorf("texture is nil")
	}
	if len(t.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("texture %q has no data", t.Name)
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode texture %q: %w", t.Name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	return rgba.Pix, uint32(t.Width), uint32(t.Height), nil
}
