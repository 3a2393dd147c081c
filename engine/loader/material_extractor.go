package loader

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// extractMaterial reads a document material and fetches its textures. maxLod clamps the
// sampler of every texture; a non-positive value leaves samplers untouched.
func (p *gltfParser) extractMaterial(ctx context.Context, index, maxLod int) (common.ImportedMaterial, error) {
	if index < 0 || index >= len(p.doc.Materials) {
		return common.ImportedMaterial{}, structuralf(p.name, "material %d: %w", index, errIndexOutOfRange)
	}
	mat := &p.doc.Materials[index]

	out := common.ImportedMaterial{
		Name:      mat.Name,
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("material_%d", index)
	}

	var err error
	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			out.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			out.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			out.Roughness = *pbr.RoughnessFactor
		}
		if out.DiffuseTexture, err = p.loadTexture(ctx, pbr.BaseColorTexture, maxLod); err != nil {
			return common.ImportedMaterial{}, fmt.Errorf("material %q base color texture: %w", out.Name, err)
		}
		if out.MetallicRoughnessTexture, err = p.loadTexture(ctx, pbr.MetallicRoughnessTexture, maxLod); err != nil {
			return common.ImportedMaterial{}, fmt.Errorf("material %q metallic-roughness texture: %w", out.Name, err)
		}
	}
	if out.NormalTexture, err = p.loadTexture(ctx, mat.NormalTexture, maxLod); err != nil {
		return common.ImportedMaterial{}, fmt.Errorf("material %q normal texture: %w", out.Name, err)
	}
	return out, nil
}

// loadTexture resolves a texture reference to encoded image bytes. Images come from a buffer
// view, a data URI or a sibling resource fetched through the source.
func (p *gltfParser) loadTexture(ctx context.Context, ref *gltfTextureRef, maxLod int) (*common.ImportedTexture, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Index < 0 || ref.Index >= len(p.doc.Textures) {
		return nil, structuralf(p.name, "texture %d: %w", ref.Index, errIndexOutOfRange)
	}
	tex := &p.doc.Textures[ref.Index]
	if tex.Source == nil {
		return nil, nil
	}
	if *tex.Source < 0 || *tex.Source >= len(p.doc.Images) {
		return nil, structuralf(p.name, "image %d: %w", *tex.Source, errIndexOutOfRange)
	}
	img := &p.doc.Images[*tex.Source]

	sampler := common.DefaultSamplerStagingData()
	if tex.Sampler != nil {
		if *tex.Sampler < 0 || *tex.Sampler >= len(p.doc.Samplers) {
			return nil, structuralf(p.name, "sampler %d: %w", *tex.Sampler, errIndexOutOfRange)
		}
		applySampler(&sampler, &p.doc.Samplers[*tex.Sampler])
	}
	sampler.ClampLod(maxLod)

	out := &common.ImportedTexture{
		Name:        img.Name,
		MimeType:    img.MimeType,
		SamplerData: &sampler,
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("image_%d", *tex.Source)
	}

	switch {
	case img.BufferView != nil:
		view, err := p.bufferView(*img.BufferView)
		if err != nil {
			return nil, err
		}
		out.Data = append([]byte(nil), view...)
	case img.URI != "":
		data, mime, err := p.readResource(ctx, img.URI)
		if err != nil {
			return nil, err
		}
		out.Data = data
		if mime != "" && out.MimeType == "" {
			out.MimeType = mime
		}
		if mime == "" {
			out.URI = img.URI
		}
	default:
		return nil, structuralf(p.name, "image %d has neither uri nor bufferView", *tex.Source)
	}
	return out, nil
}

// applySampler maps glTF sampler enums onto wgpu sampler modes.
func applySampler(dst *common.SamplerStagingData, s *gltfSampler) {
	if s.MagFilter != nil {
		switch *s.MagFilter {
		case filterNearest:
			dst.MagFilter = wgpu.FilterModeNearest
		case filterLinear:
			dst.MagFilter = wgpu.FilterModeLinear
		}
	}
	if s.MinFilter != nil {
		switch *s.MinFilter {
		case filterNearest, filterNearestMipmapNearest, filterNearestMipmapLinear:
			dst.MinFilter = wgpu.FilterModeNearest
		case filterLinear, filterLinearMipmapNearest, filterLinearMipmapLinear:
			dst.MinFilter = wgpu.FilterModeLinear
		}
		switch *s.MinFilter {
		case filterNearest, filterLinear, filterNearestMipmapNearest, filterLinearMipmapNearest:
			dst.MipmapFilter = wgpu.MipmapFilterModeNearest
		case filterNearestMipmapLinear, filterLinearMipmapLinear:
			dst.MipmapFilter = wgpu.MipmapFilterModeLinear
		}
		// plain nearest/linear minification samples only the base level
		if *s.MinFilter == filterNearest || *s.MinFilter == filterLinear {
			dst.LodMaxClamp = 0
		}
	}
	if s.WrapS != nil {
		dst.AddressModeU = wrapMode(*s.WrapS)
	}
	if s.WrapT != nil {
		dst.AddressModeV = wrapMode(*s.WrapT)
	}
}

func wrapMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case wrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case wrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
