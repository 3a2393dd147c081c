package loader

import (
	"encoding/binary"
	"math"
)

func componentSize(componentType int) int {
	switch componentType {
	case componentByte, componentUnsignedByte:
		return 1
	case componentShort, componentUnsignedShort:
		return 2
	case componentUnsignedInt, componentFloat:
		return 4
	default:
		return 0
	}
}

func componentCount(accessorType string) int {
	switch accessorType {
	case typeScalar:
		return 1
	case typeVec2:
		return 2
	case typeVec3:
		return 3
	case typeVec4:
		return 4
	case typeMat4:
		return 16
	default:
		return 0
	}
}

// maxZeroAccessorElements bounds accessors without a bufferView, which read as zeros and have
// no buffer to check their count against.
const maxZeroAccessorElements = 1 << 24

// accessorElements returns the raw bytes of each element of an accessor, honoring byteStride.
func (p *gltfParser) accessorElements(index int) (*gltfAccessor, [][]byte, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, nil, structuralf(p.name, "accessor %d: %w", index, errIndexOutOfRange)
	}
	acc := &p.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, structuralf(p.name, "accessor %d: sparse accessors are not supported", index)
	}

	elemSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elemSize == 0 {
		return nil, nil, structuralf(p.name, "accessor %d: unknown layout %s/%d", index, acc.Type, acc.ComponentType)
	}

	if acc.Count < 0 {
		return nil, nil, structuralf(p.name, "accessor %d has negative count %d", index, acc.Count)
	}

	if acc.BufferView == nil {
		if acc.Count > maxZeroAccessorElements {
			return nil, nil, structuralf(p.name, "accessor %d without bufferView has count %d, limit %d", index, acc.Count, maxZeroAccessorElements)
		}
		// no buffer view means all zeros
		out := make([][]byte, acc.Count)
		zero := make([]byte, elemSize)
		for i := range out {
			out[i] = zero
		}
		return acc, out, nil
	}

	view, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, err
	}
	stride := elemSize
	if bs := p.doc.BufferViews[*acc.BufferView].ByteStride; bs != nil && *bs > 0 {
		stride = *bs
	}
	if acc.ByteOffset < 0 {
		return nil, nil, structuralf(p.name, "accessor %d has negative byteOffset %d", index, acc.ByteOffset)
	}
	if acc.Count > 0 {
		// checked in two steps so a huge count cannot overflow the product
		if acc.Count-1 > (len(view)-acc.ByteOffset)/stride {
			return nil, nil, structuralf(p.name, "accessor %d count %d exceeds its bufferView", index, acc.Count)
		}
		last := acc.ByteOffset + (acc.Count-1)*stride + elemSize
		if last > len(view) {
			return nil, nil, structuralf(p.name, "accessor %d exceeds its bufferView (%d > %d)", index, last, len(view))
		}
	}
	out := make([][]byte, acc.Count)
	for i := range out {
		off := acc.ByteOffset + i*stride
		out[i] = view[off : off+elemSize]
	}
	return acc, out, nil
}

// readFloats reads an accessor of the given element type as float32 components. Integer
// components are normalized when the accessor says so.
func (p *gltfParser) readFloats(index int, want string) ([]float32, error) {
	acc, elems, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != want {
		return nil, structuralf(p.name, "accessor %d is %s, expected %s", index, acc.Type, want)
	}

	n := componentCount(acc.Type)
	size := componentSize(acc.ComponentType)
	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := 0; c < n; c++ {
			raw := e[c*size : (c+1)*size]
			switch acc.ComponentType {
			case componentFloat:
				out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(raw)))
			case componentUnsignedByte:
				out = append(out, normalize(float32(raw[0]), 255, acc.Normalized))
			case componentByte:
				out = append(out, normalizeSigned(float32(int8(raw[0])), 127, acc.Normalized))
			case componentUnsignedShort:
				out = append(out, normalize(float32(binary.LittleEndian.Uint16(raw)), 65535, acc.Normalized))
			case componentShort:
				out = append(out, normalizeSigned(float32(int16(binary.LittleEndian.Uint16(raw))), 32767, acc.Normalized))
			case componentUnsignedInt:
				out = append(out, float32(binary.LittleEndian.Uint32(raw)))
			}
		}
	}
	return out, nil
}

func normalize(v, limit float32, normalized bool) float32 {
	if !normalized {
		return v
	}
	return v / limit
}

func normalizeSigned(v, limit float32, normalized bool) float32 {
	if !normalized {
		return v
	}
	if f := v / limit; f > -1 {
		return f
	}
	return -1
}

func (p *gltfParser) readScalars(index int) ([]float32, error) {
	return p.readFloats(index, typeScalar)
}

func (p *gltfParser) readVec2(index int) ([][2]float32, error) {
	flat, err := p.readFloats(index, typeVec2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, len(flat)/2)
	for i := range out {
		out[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}

func (p *gltfParser) readVec3(index int) ([][3]float32, error) {
	flat, err := p.readFloats(index, typeVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		out[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

func (p *gltfParser) readVec4(index int) ([][4]float32, error) {
	flat, err := p.readFloats(index, typeVec4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(flat)/4)
	for i := range out {
		out[i] = [4]float32{flat[i*4], flat[i*4+1], flat[i*4+2], flat[i*4+3]}
	}
	return out, nil
}

// readColors reads COLOR_0 as RGBA, widening RGB with an opaque alpha.
func (p *gltfParser) readColors(index int) ([][4]float32, error) {
	if index >= 0 && index < len(p.doc.Accessors) && p.doc.Accessors[index].Type == typeVec3 {
		rgb, err := p.readVec3(index)
		if err != nil {
			return nil, err
		}
		out := make([][4]float32, len(rgb))
		for i, c := range rgb {
			out[i] = [4]float32{c[0], c[1], c[2], 1}
		}
		return out, nil
	}
	return p.readVec4(index)
}

// readIndices reads an unsigned integer scalar accessor.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	acc, elems, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != typeScalar {
		return nil, structuralf(p.name, "index accessor %d is %s, expected SCALAR", index, acc.Type)
	}

	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case componentUnsignedByte:
			out[i] = uint32(e[0])
		case componentUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case componentUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, structuralf(p.name, "index accessor %d has component type %d", index, acc.ComponentType)
		}
	}
	return out, nil
}
