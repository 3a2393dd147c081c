package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// importer is the glTF 2.0 / GLB implementation of Importer.
type importer struct {
	filename string
	src      source.Source
	sched    scheduler.Scheduler

	mu               sync.Mutex
	sceneParent      game_object.GameObject
	collider         game_object.ColliderType
	maxLod           int
	timeout          time.Duration
	multithreaded    bool
	customShaderName string
	lastLoadedScene  game_object.GameObject

	// loadMu serializes loads; the parsed document is reused across them.
	loadMu sync.Mutex
	parser *gltfParser

	closed atomic.Bool
}

// Importer turns a glTF document into game objects. Every byte is read through the Source
// it was created with; the importer never closes that Source.
//
// Settings must be applied before LoadMaterial or LoadScene is called. An Importer is released
// with Close and cannot be reused afterwards.
type Importer interface {
	// SetSceneParent sets the object the loaded scene root is parented under.
	//
	// Parameters:
	//   - parent: the parent object, or nil to leave the root detached
	SetSceneParent(parent game_object.GameObject)

	// SceneParent returns the object the loaded scene root is parented under.
	//
	// Returns:
	//   - game_object.GameObject: the parent, nil if none
	SceneParent() game_object.GameObject

	// SetCollider sets which collider is generated for every mesh.
	//
	// Parameters:
	//   - c: the collider type
	SetCollider(c game_object.ColliderType)

	// Collider returns the collider type generated for every mesh.
	//
	// Returns:
	//   - game_object.ColliderType: the collider type
	Collider() game_object.ColliderType

	// SetMaximumLOD sets the highest texture level of detail samplers may use.
	// Zero or less leaves samplers untouched.
	//
	// Parameters:
	//   - lod: the level of detail bound
	SetMaximumLOD(lod int)

	// MaximumLOD returns the level of detail bound.
	//
	// Returns:
	//   - int: the bound
	MaximumLOD() int

	// SetTimeout sets the time budget of each load operation. Zero disables it.
	//
	// Parameters:
	//   - d: the budget
	SetTimeout(d time.Duration)

	// Timeout returns the time budget of each load operation.
	//
	// Returns:
	//   - time.Duration: the budget
	Timeout() time.Duration

	// SetMultithreaded sets whether mesh extraction and texture decoding run on the scheduler's
	// worker pool instead of the calling goroutine.
	//
	// Parameters:
	//   - multithreaded: true to use the worker pool
	SetMultithreaded(multithreaded bool)

	// Multithreaded reports whether work runs on the worker pool.
	//
	// Returns:
	//   - bool: true if multithreaded
	Multithreaded() bool

	// SetCustomShaderName sets the name of the shader imported materials reference.
	// Empty selects shader.StandardShaderName.
	//
	// Parameters:
	//   - name: the shader name
	SetCustomShaderName(name string)

	// CustomShaderName returns the shader name imported materials reference.
	//
	// Returns:
	//   - string: the name, empty if the default is used
	CustomShaderName() string

	// LoadMaterial imports a single material with its textures.
	//
	// Parameters:
	//   - ctx: bounds the load; the importer's timeout is applied on top
	//   - index: the document material index
	//
	// Returns:
	//   - material.Material: the material
	//   - error: a source error, *StructuralError, *TimeoutError or ErrImporterClosed
	LoadMaterial(ctx context.Context, index int) (material.Material, error)

	// LoadScene imports the document's scene and parents its root under the scene parent.
	// The root is only attached when the whole import succeeds.
	//
	// Parameters:
	//   - ctx: bounds the load; the importer's timeout is applied on top
	//
	// Returns:
	//   - error: a source error, *StructuralError, *TimeoutError or ErrImporterClosed
	LoadScene(ctx context.Context) error

	// LastLoadedScene returns the root created by the last successful LoadScene.
	//
	// Returns:
	//   - game_object.GameObject: the root, nil before the first successful LoadScene
	LastLoadedScene() game_object.GameObject

	// Close releases the parsed document. Calling Close more than once is a no-op.
	//
	// Returns:
	//   - error: always nil
	Close() error
}

var _ Importer = &importer{}

// NewImporter creates a glTF Importer for a document readable through src.
//
// Parameters:
//   - filename: the document name, relative to the source's base directory
//   - src: the source every document byte is read from
//   - sched: the scheduler used for import work; nil runs everything on the caller's goroutine
//   - options: variadic list of ImporterBuilderOption functions to configure the importer
//
// Returns:
//   - Importer: the new importer
func NewImporter(filename string, src source.Source, sched scheduler.Scheduler, options ...ImporterBuilderOption) Importer {
	if src == nil {
		panic("loader: NewImporter requires a non-nil source")
	}
	imp := &importer{
		filename:      filename,
		src:           src,
		sched:         sched,
		multithreaded: true,
	}
	for _, opt := range options {
		opt(imp)
	}
	return imp
}

func (imp *importer) SetSceneParent(parent game_object.GameObject) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.sceneParent = parent
}

func (imp *importer) SceneParent() game_object.GameObject {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.sceneParent
}

func (imp *importer) SetCollider(c game_object.ColliderType) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.collider = c
}

func (imp *importer) Collider() game_object.ColliderType {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.collider
}

func (imp *importer) SetMaximumLOD(lod int) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.maxLod = lod
}

func (imp *importer) MaximumLOD() int {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.maxLod
}

func (imp *importer) SetTimeout(d time.Duration) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.timeout = d
}

func (imp *importer) Timeout() time.Duration {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.timeout
}

func (imp *importer) SetMultithreaded(multithreaded bool) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.multithreaded = multithreaded
}

func (imp *importer) Multithreaded() bool {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.multithreaded
}

func (imp *importer) SetCustomShaderName(name string) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.customShaderName = name
}

func (imp *importer) CustomShaderName() string {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.customShaderName
}

func (imp *importer) LastLoadedScene() game_object.GameObject {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.lastLoadedScene
}

func (imp *importer) Close() error {
	if imp.closed.Swap(true) {
		return nil
	}
	imp.loadMu.Lock()
	imp.parser = nil
	imp.loadMu.Unlock()
	return nil
}

// importSettings is the configuration captured when a load starts.
type importSettings struct {
	sceneParent   game_object.GameObject
	collider      game_object.ColliderType
	maxLod        int
	timeout       time.Duration
	multithreaded bool
	shader        shader.Shader
}

func (imp *importer) settings() importSettings {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	name := imp.customShaderName
	if name == "" {
		name = shader.StandardShaderName
	}
	return importSettings{
		sceneParent:   imp.sceneParent,
		collider:      imp.collider,
		maxLod:        imp.maxLod,
		timeout:       imp.timeout,
		multithreaded: imp.multithreaded,
		shader:        shader.NewShader(name, shader.ShaderTypeFragment),
	}
}

func (imp *importer) LoadMaterial(ctx context.Context, index int) (material.Material, error) {
	if imp.closed.Load() {
		return nil, ErrImporterClosed
	}
	imp.loadMu.Lock()
	defer imp.loadMu.Unlock()

	cfg := imp.settings()
	var out material.Material
	err := imp.withBudget(ctx, "load material", cfg.timeout, func(ctx context.Context) error {
		p, err := imp.parse(ctx)
		if err != nil {
			return err
		}
		imported, err := p.extractMaterial(ctx, index, cfg.maxLod)
		if err != nil {
			return err
		}

		textures := imported.Textures()
		tasks := make([]scheduler.Task, len(textures))
		for i, tex := range textures {
			tasks[i] = func(context.Context) error {
				return imp.decodeTexture(tex)
			}
		}
		if err := imp.run(ctx, cfg.multithreaded, tasks); err != nil {
			return err
		}
		out = material.FromImported(imported, cfg.shader)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Importer] loaded material %q from %q", out.Name(), imp.filename)
	return out, nil
}

func (imp *importer) LoadScene(ctx context.Context) error {
	if imp.closed.Load() {
		return ErrImporterClosed
	}
	imp.loadMu.Lock()
	defer imp.loadMu.Unlock()

	cfg := imp.settings()
	var root game_object.GameObject
	var imported *model.ImportedScene
	err := imp.withBudget(ctx, "load scene", cfg.timeout, func(ctx context.Context) error {
		p, err := imp.parse(ctx)
		if err != nil {
			return err
		}
		if imported, err = imp.importScene(ctx, p, cfg); err != nil {
			return err
		}
		if imp.sched != nil {
			if err := imp.sched.Yield(ctx); err != nil {
				return err
			}
		}
		root, err = buildScene(p, imported, cfg, imp.sceneName(p))
		return err
	})
	if err != nil {
		return err
	}

	if cfg.sceneParent != nil {
		if err := root.SetParent(cfg.sceneParent); err != nil {
			return fmt.Errorf("attach scene root: %w", err)
		}
	}

	imp.mu.Lock()
	imp.lastLoadedScene = root
	imp.mu.Unlock()

	log.Printf("[Importer] loaded %q: %d meshes, %d materials, %d animations",
		imp.filename, len(imported.Meshes), len(imported.Materials), len(imported.Animations))
	return nil
}

// importScene extracts every material, mesh and animation of the document.
func (imp *importer) importScene(ctx context.Context, p *gltfParser, cfg importSettings) (*model.ImportedScene, error) {
	scene := &model.ImportedScene{
		Name:      imp.sceneName(p),
		Materials: make([]common.ImportedMaterial, len(p.doc.Materials)),
		Meshes:    make([][]model.ImportedMesh, len(p.doc.Meshes)),
	}

	tasks := make([]scheduler.Task, 0, len(scene.Materials)+len(scene.Meshes))
	for i := range scene.Materials {
		tasks = append(tasks, func(ctx context.Context) error {
			imported, err := p.extractMaterial(ctx, i, cfg.maxLod)
			if err != nil {
				return err
			}
			for _, tex := range imported.Textures() {
				if err := imp.decodeTexture(tex); err != nil {
					return err
				}
			}
			scene.Materials[i] = imported
			return nil
		})
	}
	for i := range scene.Meshes {
		tasks = append(tasks, func(context.Context) error {
			meshes, err := p.extractMesh(i)
			if err != nil {
				return err
			}
			scene.Meshes[i] = meshes
			return nil
		})
	}
	if err := imp.run(ctx, cfg.multithreaded, tasks); err != nil {
		return nil, err
	}

	animations, err := p.extractAnimations()
	if err != nil {
		return nil, err
	}
	scene.Animations = animations
	return scene, nil
}

// decodeTexture validates the encoded image and records its dimensions.
func (imp *importer) decodeTexture(tex *common.ImportedTexture) error {
	if _, _, _, err := tex.Decode(); err != nil {
		return structural(imp.filename, err)
	}
	return nil
}

// parse reads the document on first use. Callers hold loadMu.
func (imp *importer) parse(ctx context.Context) (*gltfParser, error) {
	if imp.parser != nil {
		return imp.parser, nil
	}
	p, err := parseDocument(ctx, imp.src, imp.filename)
	if err != nil {
		return nil, err
	}
	imp.parser = p
	return p, nil
}

// run executes tasks on the worker pool, or in order on the calling goroutine.
func (imp *importer) run(ctx context.Context, multithreaded bool, tasks []scheduler.Task) error {
	switch {
	case len(tasks) == 0:
		return nil
	case imp.sched == nil:
		for _, t := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := t(ctx); err != nil {
				return err
			}
		}
		return nil
	case multithreaded:
		return imp.sched.Parallel(ctx, tasks...)
	default:
		return imp.sched.Sequential(ctx, tasks...)
	}
}

// withBudget runs fn under the importer timeout. Running out of budget is reported as a
// *TimeoutError; cancellation of the caller's ctx is returned unchanged.
func (imp *importer) withBudget(ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	budget, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(budget)
	if err != nil && errors.Is(budget.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &TimeoutError{Operation: operation, Timeout: timeout, Err: err}
	}
	return err
}

// sceneName names the scene root after the document scene, falling back to the file name.
func (imp *importer) sceneName(p *gltfParser) string {
	if idx := defaultScene(p.doc); idx >= 0 && p.doc.Scenes[idx].Name != "" {
		return p.doc.Scenes[idx].Name
	}
	base := path.Base(strings.ReplaceAll(imp.filename, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
