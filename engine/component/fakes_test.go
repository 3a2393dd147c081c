package component

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// fakeSource counts how often it is closed.
type fakeSource struct {
	loc    source.Location
	closes atomic.Int32
}

func (s *fakeSource) Type() source.SourceType { return s.loc.Type }

func (s *fakeSource) BaseDir() string { return s.loc.BaseDir }

func (s *fakeSource) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("fake source has no data")
}

func (s *fakeSource) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("fake source has no data")
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

type sourceRecorder struct {
	mu      sync.Mutex
	sources []*fakeSource
}

func (r *sourceRecorder) newSource(loc source.Location, _ ...source.SourceBuilderOption) source.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSource{loc: loc}
	r.sources = append(r.sources, s)
	return s
}

func (r *sourceRecorder) all() []*fakeSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeSource(nil), r.sources...)
}

// fakeImporter builds a two-renderer scene with the configured animations.
type fakeImporter struct {
	mu            sync.Mutex
	filename      string
	sceneParent   game_object.GameObject
	collider      game_object.ColliderType
	maxLod        int
	timeout       time.Duration
	multithreaded bool
	shaderName    string
	last          game_object.GameObject

	err        error
	animations []string
	block      chan struct{}
	started    chan struct{}

	sceneCalls    int
	materialCalls int
	closes        atomic.Int32
}

var _ loader.Importer = &fakeImporter{}

func (f *fakeImporter) SetSceneParent(p game_object.GameObject) { f.sceneParent = p }
func (f *fakeImporter) SceneParent() game_object.GameObject    { return f.sceneParent }
func (f *fakeImporter) SetCollider(c game_object.ColliderType) { f.collider = c }
func (f *fakeImporter) Collider() game_object.ColliderType     { return f.collider }
func (f *fakeImporter) SetMaximumLOD(lod int)                  { f.maxLod = lod }
func (f *fakeImporter) MaximumLOD() int                        { return f.maxLod }
func (f *fakeImporter) SetTimeout(d time.Duration)             { f.timeout = d }
func (f *fakeImporter) Timeout() time.Duration                 { return f.timeout }
func (f *fakeImporter) SetMultithreaded(m bool)                { f.multithreaded = m }
func (f *fakeImporter) Multithreaded() bool                    { return f.multithreaded }
func (f *fakeImporter) SetCustomShaderName(name string)        { f.shaderName = name }
func (f *fakeImporter) CustomShaderName() string               { return f.shaderName }

func (f *fakeImporter) LastLoadedScene() game_object.GameObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeImporter) Close() error {
	f.closes.Add(1)
	return nil
}

func (f *fakeImporter) placeholderShader() shader.Shader {
	name := f.shaderName
	if name == "" {
		name = shader.StandardShaderName
	}
	return shader.NewShader(name, shader.ShaderTypeFragment)
}

func (f *fakeImporter) LoadMaterial(ctx context.Context, index int) (material.Material, error) {
	f.mu.Lock()
	f.materialCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return material.NewMaterial(material.WithName("Brick"), material.WithShader(f.placeholderShader())), nil
}

func (f *fakeImporter) LoadScene(ctx context.Context) error {
	f.mu.Lock()
	f.sceneCalls++
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}

	root := game_object.NewGameObject(game_object.WithName("Scene"))
	mesh := &model.ImportedMesh{Name: "quad", Vertices: make([]model.Vertex, 3), Indices: []uint32{0, 1, 2}}
	for _, name := range []string{"A", "B"} {
		child := game_object.NewGameObject(game_object.WithName(name))
		mat := material.NewMaterial(material.WithName(name), material.WithShader(f.placeholderShader()))
		child.SetRenderer(game_object.NewRenderer(mesh, mat))
		if err := child.SetParent(root); err != nil {
			return err
		}
	}
	for i, name := range f.animations {
		root.AddAnimator(animator.NewAnimator(&model.AnimationClip{Name: name, Index: i, Duration: 1}))
	}
	if f.sceneParent != nil {
		if err := root.SetParent(f.sceneParent); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.last = root
	f.mu.Unlock()
	return nil
}

// fakeFactory hands out fakeImporters. errs[i] is the load error of attempt i.
type fakeFactory struct {
	mu         sync.Mutex
	importers  []*fakeImporter
	filenames  []string
	createErr  error
	errs       []error
	animations []string
	block      chan struct{}
	started    chan struct{}
}

func (f *fakeFactory) CreateImporter(filename string, src source.Source, _ scheduler.Scheduler) (loader.Importer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filenames = append(f.filenames, filename)
	if f.createErr != nil {
		return nil, f.createErr
	}
	imp := &fakeImporter{
		filename:   filename,
		animations: f.animations,
		block:      f.block,
		started:    f.started,
	}
	if n := len(f.importers); n < len(f.errs) {
		imp.err = f.errs[n]
	}
	f.importers = append(f.importers, imp)
	return imp, nil
}

func (f *fakeFactory) all() []*fakeImporter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeImporter(nil), f.importers...)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) Close() error { return nil }

func remoteConfig() LoadConfiguration {
	cfg := DefaultConfiguration()
	cfg.URI = "https://example.com/models/duck.gltf"
	cfg.RetryLimit = 3
	cfg.RetryDelaySeconds = 0.5
	return cfg
}

type harness struct {
	host    game_object.GameObject
	comp    GLTFComponent
	factory *fakeFactory
	sources *sourceRecorder
	sleeper *sleepRecorder
	events  *eventRecorder
}

func newHarness(t *testing.T, cfg LoadConfiguration, factory *fakeFactory, options ...GLTFComponentBuilderOption) *harness {
	t.Helper()
	h := &harness{
		host:    game_object.NewGameObject(game_object.WithName("Host")),
		factory: factory,
		sources: &sourceRecorder{},
		sleeper: &sleepRecorder{},
		events:  &eventRecorder{},
	}
	opts := append([]GLTFComponentBuilderOption{
		WithSourceFactory(h.sources.newSource),
		WithSleeper(h.sleeper.sleep),
		WithPublisher(h.events),
	}, options...)
	h.comp = NewGLTFComponent(h.host, cfg, factory, opts...)
	return h
}

// checkDisposedOnce verifies every source and importer was closed exactly once.
func (h *harness) checkDisposedOnce(t *testing.T) {
	t.Helper()
	for i, s := range h.sources.all() {
		if n := s.closes.Load(); n != 1 {
			t.Fatalf("source %d closed %d times, want 1", i, n)
		}
	}
	for i, imp := range h.factory.all() {
		if n := imp.closes.Load(); n != 1 {
			t.Fatalf("importer %d closed %d times, want 1", i, n)
		}
	}
}

func fetchErr(n int) error {
	return &source.FetchError{URL: "https://example.com/models/duck.gltf", StatusCode: 500 + n}
}
