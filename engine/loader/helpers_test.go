package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// memSource serves documents from memory.
type memSource struct {
	mu     sync.Mutex
	files  map[string][]byte
	fail   map[string]error
	block  bool
	reads  map[string]int
	closed bool
}

func newMemSource(files map[string][]byte) *memSource {
	return &memSource{files: files, fail: map[string]error{}, reads: map[string]int{}}
}

func (m *memSource) Type() source.SourceType { return source.SourceTypeLocal }

func (m *memSource) BaseDir() string { return "mem://" }

func (m *memSource) Open(ctx context.Context, rel string) (io.ReadCloser, error) {
	data, err := m.Read(ctx, rel)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memSource) Read(ctx context.Context, rel string) ([]byte, error) {
	m.mu.Lock()
	m.reads[rel]++
	block, closed := m.block, m.closed
	err, failing := m.fail[rel]
	data, ok := m.files[rel]
	m.mu.Unlock()

	if closed {
		return nil, source.ErrSourceClosed
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failing {
		return nil, err
	}
	if !ok {
		return nil, &source.ResourceError{Path: rel, Err: io.ErrUnexpectedEOF}
	}
	return data, nil
}

func (m *memSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSource) readCount(rel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[rel]
}

// binBuilder lays out a little-endian buffer with 4-byte aligned views.
type binBuilder struct {
	data  []byte
	views []map[string]any
}

func (b *binBuilder) align() {
	for len(b.data)%4 != 0 {
		b.data = append(b.data, 0)
	}
}

func (b *binBuilder) floats(vals ...float32) int {
	b.align()
	start := len(b.data)
	for _, v := range vals {
		b.data = binary.LittleEndian.AppendUint32(b.data, math.Float32bits(v))
	}
	b.views = append(b.views, map[string]any{"buffer": 0, "byteOffset": start, "byteLength": len(b.data) - start})
	return len(b.views) - 1
}

func (b *binBuilder) uint16s(vals ...uint16) int {
	b.align()
	start := len(b.data)
	for _, v := range vals {
		b.data = binary.LittleEndian.AppendUint16(b.data, v)
	}
	b.views = append(b.views, map[string]any{"buffer": 0, "byteOffset": start, "byteLength": len(b.data) - start})
	return len(b.views) - 1
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testDocument returns a small scene and its binary buffer:
//
//	Main
//	  Root (translated 1,2,3)
//	    Tri  -> mesh "Triangle", material "Red"
//	    Pair -> mesh "Double", two primitives, the second without material
//
// with two animations, "Spin" and "Bob", targeting Tri.
func testDocument(t *testing.T) (map[string]any, []byte) {
	t.Helper()
	b := &binBuilder{}
	pos := b.floats(0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := b.uint16s(0, 1, 2)
	times := b.floats(0, 1)
	moves := b.floats(0, 0, 0, 0, 2, 0)
	b.align()

	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"name": "Main", "nodes": []int{0}}},
		"nodes": []any{
			map[string]any{"name": "Root", "children": []int{1, 2}, "translation": []float32{1, 2, 3}},
			map[string]any{"name": "Tri", "mesh": 0},
			map[string]any{"name": "Pair", "mesh": 1},
		},
		"meshes": []any{
			map[string]any{"name": "Triangle", "primitives": []any{
				map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1, "material": 0},
			}},
			map[string]any{"name": "Double", "primitives": []any{
				map[string]any{"attributes": map[string]int{"POSITION": 0}, "material": 0},
				map[string]any{"attributes": map[string]int{"POSITION": 0}},
			}},
		},
		"materials": []any{
			map[string]any{"name": "Red", "pbrMetallicRoughness": map[string]any{
				"baseColorFactor":  []float32{1, 0, 0, 1},
				"metallicFactor":   0.5,
				"baseColorTexture": map[string]any{"index": 0},
			}},
		},
		"textures": []any{map[string]any{"source": 0, "sampler": 0}},
		"images": []any{map[string]any{
			"uri": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t)),
		}},
		"samplers": []any{map[string]any{"magFilter": filterNearest, "minFilter": filterLinearMipmapLinear}},
		"accessors": []any{
			map[string]any{"bufferView": pos, "componentType": componentFloat, "count": 3, "type": typeVec3},
			map[string]any{"bufferView": idx, "componentType": componentUnsignedShort, "count": 3, "type": typeScalar},
			map[string]any{"bufferView": times, "componentType": componentFloat, "count": 2, "type": typeScalar},
			map[string]any{"bufferView": moves, "componentType": componentFloat, "count": 2, "type": typeVec3},
		},
		"bufferViews": b.views,
		"animations": []any{
			testAnimation("Spin"),
			testAnimation("Bob"),
		},
	}
	return doc, b.data
}

func testAnimation(name string) map[string]any {
	return map[string]any{
		"name":     name,
		"channels": []any{map[string]any{"sampler": 0, "target": map[string]any{"node": 1, "path": "translation"}}},
		"samplers": []any{map[string]any{"input": 2, "output": 3}},
	}
}

// embedBuffer stores bin as a base64 data URI buffer and encodes the document.
func embedBuffer(t *testing.T, doc map[string]any, bin []byte) []byte {
	t.Helper()
	doc["buffers"] = []any{map[string]any{
		"byteLength": len(bin),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin),
	}}
	return encodeDocument(t, doc)
}

func encodeDocument(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return data
}

// packGLB wraps a document and its buffer in a GLB container.
func packGLB(t *testing.T, doc map[string]any, bin []byte) []byte {
	t.Helper()
	doc["buffers"] = []any{map[string]any{"byteLength": len(bin)}}
	jsonChunk := encodeDocument(t, doc)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	binChunk := append([]byte(nil), bin...)
	for len(binChunk)%4 != 0 {
		binChunk = append(binChunk, 0)
	}

	total := glbHeaderSize + 8 + len(jsonChunk) + 8 + len(binChunk)
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, glbMagic)
	out = binary.LittleEndian.AppendUint32(out, glbVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkJSON)
	out = append(out, jsonChunk...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(binChunk)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkBIN)
	out = append(out, binChunk...)
	return out
}

// testSource serves the default test document as scene.gltf.
func testSource(t *testing.T) *memSource {
	t.Helper()
	doc, bin := testDocument(t)
	return newMemSource(map[string][]byte{"scene.gltf": embedBuffer(t, doc, bin)})
}
