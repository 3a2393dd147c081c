package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// supportedExtensions lists the extensions a document may require. Documents requiring anything
// else are rejected before any buffer is fetched.
var supportedExtensions = map[string]bool{}

// gltfParser holds a decoded document with its buffers resolved.
type gltfParser struct {
	name string
	src  source.Source
	doc  *gltfDocument
	bin  []byte
}

// parseDocument reads the primary document through src and loads every buffer it references.
// GLB is detected by extension or by magic number.
//
// Source errors are returned as they are so their class survives; everything wrong with the
// content itself is a *StructuralError.
func parseDocument(ctx context.Context, src source.Source, filename string) (*gltfParser, error) {
	data, err := src.Read(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", filename, err)
	}

	p := &gltfParser{name: filename, src: src}

	jsonData := data
	if strings.EqualFold(path.Ext(filename), ".glb") || isGLB(data) {
		jsonData, p.bin, err = splitGLB(data)
		if err != nil {
			return nil, structural(filename, err)
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, structuralf(filename, "decode JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, structural(filename, errInvalidGLTFVersion)
	}
	for _, ext := range doc.ExtensionsRequired {
		if !supportedExtensions[ext] {
			return nil, structuralf(filename, "required extension %q is not supported", ext)
		}
	}
	p.doc = &doc

	if err := p.loadBuffers(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) ([]byte, []byte, error) {
	if len(data) < glbHeaderSize {
		return nil, nil, errGLBTooSmall
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != glbVersion {
		return nil, nil, errInvalidGLBVersion
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) {
		return nil, nil, fmt.Errorf("GLB declares %d bytes but has %d", total, len(data))
	}

	var jsonChunk, binChunk []byte
	for off := glbHeaderSize; off+8 <= total; {
		length := int(binary.LittleEndian.Uint32(data[off : off+4]))
		kind := binary.LittleEndian.Uint32(data[off+4 : off+8])
		off += 8
		if length < 0 || off+length > total {
			return nil, nil, fmt.Errorf("GLB chunk at offset %d overruns the container", off-8)
		}
		switch kind {
		case glbChunkJSON:
			if jsonChunk == nil {
				jsonChunk = data[off : off+length]
			}
		case glbChunkBIN:
			if binChunk == nil {
				binChunk = data[off : off+length]
			}
		}
		off += length
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return bytes.TrimRight(jsonChunk, " \x00"), binChunk, nil
}

// loadBuffers resolves each buffer from the GLB chunk, a data URI or a sibling resource.
func (p *gltfParser) loadBuffers(ctx context.Context) error {
	for i := range p.doc.Buffers {
		buf := &p.doc.Buffers[i]

		switch {
		case buf.URI == "":
			if i != 0 || p.bin == nil {
				return structuralf(p.name, "buffer %d has no uri and no GLB binary chunk", i)
			}
			buf.data = p.bin
		case strings.HasPrefix(buf.URI, "data:"):
			data, _, err := decodeDataURI(buf.URI)
			if err != nil {
				return structuralf(p.name, "buffer %d: %w", i, err)
			}
			buf.data = data
		default:
			data, err := p.src.Read(ctx, buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		}

		if len(buf.data) < buf.ByteLength {
			return structuralf(p.name, "buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// bufferView returns the bytes of a buffer view.
func (p *gltfParser) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(p.doc.BufferViews) {
		return nil, structuralf(p.name, "bufferView %d: %w", index, errIndexOutOfRange)
	}
	bv := &p.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(p.doc.Buffers) {
		return nil, structuralf(p.name, "bufferView %d buffer %d: %w", index, bv.Buffer, errIndexOutOfRange)
	}
	data := p.doc.Buffers[bv.Buffer].data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, structuralf(p.name, "bufferView %d exceeds buffer bounds (%d > %d)", index, end, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

// readResource returns the bytes behind an image or other URI reference.
func (p *gltfParser) readResource(ctx context.Context, uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, "data:") {
		data, mime, err := decodeDataURI(uri)
		if err != nil {
			return nil, "", structural(p.name, err)
		}
		return data, mime, nil
	}
	data, err := p.src.Read(ctx, uri)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errInvalidDataURI
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", errInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errInvalidDataURI, err)
	}
	return data, mime, nil
}
