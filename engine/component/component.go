package component

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
	"github.com/google/uuid"
)

// ErrLoadInProgress is returned when a load is requested while another one is running.
var ErrLoadInProgress = errors.New("component: load already in progress")

// State is the lifecycle stage of a GLTFComponent.
type State int

const (
	// StateIdle means no load has run yet.
	StateIdle State = iota

	// StateLoading means an attempt is running.
	StateLoading

	// StateSucceeded means the last load completed and its Result is published.
	StateSucceeded

	// StateFailedRetryable means the last attempt failed and Start is waiting to retry it.
	StateFailedRetryable

	// StateFailedFatal means the last load gave up. A failed Load always ends here.
	StateFailedFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailedRetryable:
		return "failed_retryable"
	case StateFailedFatal:
		return "failed_fatal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is what a successful load publishes.
type Result struct {
	// Root is the loaded scene root, nil in materials-only mode.
	Root game_object.GameObject

	// Placeholder is the cube carrying the loaded material in materials-only mode.
	Placeholder game_object.GameObject

	// Animations are the animators found on Root, in document order.
	Animations []animator.Animator

	// MaterialsOnly is copied from the configuration the load ran with.
	MaterialsOnly bool
}

// SourceFactory creates the source for one attempt.
type SourceFactory func(loc source.Location, options ...source.SourceBuilderOption) source.Source

// Sleeper waits between attempts. A delay that has begun runs to completion; the default
// Sleeper then returns ctx.Err() so a cancelled load stops before the next attempt.
type Sleeper func(ctx context.Context, d time.Duration) error

type gltfComponent struct {
	object        game_object.GameObject
	factory       loader.ImporterFactory
	sched         scheduler.Scheduler
	newSource     SourceFactory
	sourceOptions []source.SourceBuilderOption
	publisher     events.Publisher
	profiler      *profiler.Profiler
	sleep         Sleeper

	running atomic.Bool

	mu      sync.RWMutex
	cfg     LoadConfiguration
	state   State
	attempt int
	result  *Result
}

// GLTFComponent loads a glTF document under a host object. Each attempt acquires a fresh
// source and importer and releases both before the attempt returns.
//
// Only one load runs at a time; overlapping calls fail with ErrLoadInProgress.
type GLTFComponent interface {
	// Object returns the host object loaded scenes are parented under.
	//
	// Returns:
	//   - game_object.GameObject: the host object
	Object() game_object.GameObject

	// Configuration returns a copy of the current configuration.
	//
	// Returns:
	//   - LoadConfiguration: the configuration
	Configuration() LoadConfiguration

	// SetConfiguration replaces the configuration used by the next load.
	//
	// Parameters:
	//   - cfg: the new configuration
	//
	// Returns:
	//   - error: ErrLoadInProgress while loading, or a validation error
	SetConfiguration(cfg LoadConfiguration) error

	// Load runs a single attempt without retrying.
	//
	// Parameters:
	//   - ctx: bounds the attempt
	//
	// Returns:
	//   - error: the attempt's error, unmodified, or ErrLoadInProgress
	Load(ctx context.Context) error

	// Start loads with retries. Failures the retry policy accepts are retried up to RetryLimit
	// times, waiting RetryDelay before each retry. When retries run out the last attempt's error
	// is returned unmodified.
	//
	// Parameters:
	//   - ctx: bounds the whole load including the waits between attempts
	//
	// Returns:
	//   - error: nil on success, the last attempt's error, or ErrLoadInProgress
	Start(ctx context.Context) error

	// Activate calls Start in the background when LoadOnStart is set.
	//
	// Parameters:
	//   - ctx: passed to Start
	//
	// Returns:
	//   - <-chan error: receives Start's result (nil if LoadOnStart is unset) and is then closed
	Activate(ctx context.Context) <-chan error

	// State returns the lifecycle stage.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Attempt returns the index of the current or last attempt of the last load.
	//
	// Returns:
	//   - int: the zero-based attempt index
	Attempt() int

	// Result returns what the last successful load published.
	//
	// Returns:
	//   - *Result: the result, nil before the first success
	Result() *Result

	// LastLoadedScene returns the root of the last successfully loaded scene.
	//
	// Returns:
	//   - game_object.GameObject: the root, nil if none
	LastLoadedScene() game_object.GameObject

	// Animations returns the animators of the last successfully loaded scene.
	//
	// Returns:
	//   - []animator.Animator: the animators in document order
	Animations() []animator.Animator
}

var _ GLTFComponent = &gltfComponent{}

// NewGLTFComponent creates a GLTFComponent.
//
// Parameters:
//   - object: the host object loaded scenes are parented under
//   - cfg: the initial configuration
//   - factory: creates the importer of each attempt, typically loader.NewDefaultImporterFactory()
//   - options: variadic list of GLTFComponentBuilderOption functions to configure the component
//
// Returns:
//   - GLTFComponent: the new component
func NewGLTFComponent(object game_object.GameObject, cfg LoadConfiguration, factory loader.ImporterFactory, options ...GLTFComponentBuilderOption) GLTFComponent {
	if object == nil {
		panic("component: NewGLTFComponent requires a non-nil object")
	}
	if factory == nil {
		panic("component: NewGLTFComponent requires a non-nil importer factory")
	}
	c := &gltfComponent{
		object:    object,
		factory:   factory,
		newSource: source.New,
		sleep:     sleepContext,
		cfg:       cfg,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *gltfComponent) Object() game_object.GameObject {
	return c.object
}

func (c *gltfComponent) Configuration() LoadConfiguration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *gltfComponent) SetConfiguration(cfg LoadConfiguration) error {
	if c.running.Load() {
		return ErrLoadInProgress
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

func (c *gltfComponent) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *gltfComponent) Attempt() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempt
}

func (c *gltfComponent) Result() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

func (c *gltfComponent) LastLoadedScene() game_object.GameObject {
	if r := c.Result(); r != nil {
		return r.Root
	}
	return nil
}

func (c *gltfComponent) Animations() []animator.Animator {
	if r := c.Result(); r != nil {
		return append([]animator.Animator(nil), r.Animations...)
	}
	return nil
}

func (c *gltfComponent) Activate(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	if !c.Configuration().LoadOnStart {
		done <- nil
		close(done)
		return done
	}
	go func() {
		done <- c.Start(ctx)
		close(done)
	}()
	return done
}

// loadRun is the state shared by the attempts of one Load or Start call.
type loadRun struct {
	id       uuid.UUID
	cfg      LoadConfiguration
	policy   RetryPolicy
	collider game_object.ColliderType
	override shader.Shader
}

// begin takes the load gate and snapshots the configuration.
func (c *gltfComponent) begin() (*loadRun, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrLoadInProgress
	}

	cfg := c.Configuration()
	run, err := newLoadRun(cfg)
	if err != nil {
		c.setState(StateFailedFatal)
		c.running.Store(false)
		return nil, err
	}
	return run, nil
}

func newLoadRun(cfg LoadConfiguration) (*loadRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := cfg.Policy()
	collider, _ := cfg.ColliderType()
	override, err := cfg.overrideShader()
	if err != nil {
		return nil, err
	}
	return &loadRun{id: newID(), cfg: cfg, policy: policy, collider: collider, override: override}, nil
}

func (c *gltfComponent) Load(ctx context.Context) error {
	run, err := c.begin()
	if err != nil {
		return err
	}
	defer c.running.Store(false)

	attemptID := newID()
	err = c.runAttempt(ctx, run, 0, attemptID)
	if err != nil {
		// nothing retries a Load
		c.setState(StateFailedFatal)
		c.publish(ctx, run, attemptID, 0, events.StateFailed, err)
	}
	return err
}

func (c *gltfComponent) Start(ctx context.Context) error {
	run, err := c.begin()
	if err != nil {
		return err
	}
	defer c.running.Store(false)

	for attempt := 0; ; attempt++ {
		attemptID := newID()
		err := c.runAttempt(ctx, run, attempt, attemptID)
		if err == nil {
			return nil
		}

		if attempt >= run.cfg.RetryLimit || !run.policy.Retryable(err) || ctx.Err() != nil {
			c.setState(StateFailedFatal)
			c.publish(ctx, run, attemptID, attempt, events.StateFailed, err)
			return err
		}

		c.setState(StateFailedRetryable)
		c.publish(ctx, run, attemptID, attempt, events.StateRetrying, err)
		log.Printf("[GLTFComponent] load failed, retrying (attempt %d/%d): %v", attempt+1, run.cfg.RetryLimit, err)

		if sleepErr := c.sleep(ctx, run.cfg.RetryDelay()); sleepErr != nil {
			c.setState(StateFailedFatal)
			return errors.Join(sleepErr, err)
		}
	}
}

// runAttempt performs one attempt. The source and importer it creates are closed before it
// returns, whatever the outcome.
func (c *gltfComponent) runAttempt(ctx context.Context, run *loadRun, attempt int, attemptID uuid.UUID) error {
	c.mu.Lock()
	c.state = StateLoading
	c.attempt = attempt
	c.mu.Unlock()

	c.publish(ctx, run, attemptID, attempt, events.StateLoading, nil)

	if c.profiler != nil {
		done := c.profiler.Measure(fmt.Sprintf("load %s attempt %d", run.cfg.URI, attempt))
		defer done()
	}

	loc, err := source.Resolve(run.cfg.URI, source.ResolveOptions{
		Local:           run.cfg.UseLocalFile,
		AppendAssetRoot: run.cfg.AppendBaseAssetPath,
		AssetRoot:       run.cfg.AssetRoot,
	})
	if err != nil {
		return err
	}

	src := c.newSource(loc, c.sourceOptions...)
	defer closeLogged("source", src)

	imp, err := c.factory.CreateImporter(loc.Filename, src, c.sched)
	if err != nil {
		return fmt.Errorf("create importer: %w", err)
	}
	defer closeLogged("importer", imp)

	imp.SetSceneParent(c.object)
	imp.SetCollider(run.collider)
	imp.SetMaximumLOD(run.cfg.MaxLOD)
	imp.SetTimeout(run.cfg.Timeout())
	imp.SetMultithreaded(run.cfg.Multithreaded)
	if run.override != nil {
		imp.SetCustomShaderName(run.override.Name())
	}

	result := &Result{MaterialsOnly: run.cfg.MaterialsOnly}
	var loaded game_object.GameObject
	if run.cfg.MaterialsOnly {
		mat, err := imp.LoadMaterial(ctx, 0)
		if err != nil {
			return err
		}
		placeholder := game_object.NewPrimitive(game_object.PrimitiveCube)
		placeholder.Renderer().SetMaterial(mat)
		if err := placeholder.SetParent(c.object); err != nil {
			return err
		}
		result.Placeholder = placeholder
		loaded = placeholder
	} else {
		if err := imp.LoadScene(ctx); err != nil {
			return err
		}
		result.Root = imp.LastLoadedScene()
		loaded = result.Root
	}

	if run.override != nil && loaded != nil {
		applyShader(loaded, run.override)
	}

	if result.Root != nil {
		result.Animations = result.Root.Animators()
		if run.cfg.AutoplayAnimation && len(result.Animations) > 0 {
			result.Animations[0].Play()
		}
	}

	c.mu.Lock()
	c.result = result
	c.state = StateSucceeded
	c.mu.Unlock()

	c.publish(ctx, run, attemptID, attempt, events.StateLoaded, nil)
	return nil
}

// applyShader points every renderer under root at s.
func applyShader(root game_object.GameObject, s shader.Shader) {
	for _, r := range root.RenderersInChildren() {
		if m := r.Material(); m != nil {
			m.SetShader(s)
			continue
		}
		r.SetMaterial(material.NewMaterial(material.WithName("Default"), material.WithShader(s)))
	}
}

func (c *gltfComponent) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *gltfComponent) publish(ctx context.Context, run *loadRun, attemptID uuid.UUID, attempt int, state events.State, err error) {
	if c.publisher == nil {
		return
	}
	e := events.Event{
		LoadID:    run.id,
		AttemptID: attemptID,
		Attempt:   attempt,
		State:     state,
		URI:       run.cfg.URI,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if perr := c.publisher.Publish(ctx, e); perr != nil {
		log.Printf("[GLTFComponent] publish %s event: %v", state, perr)
	}
}

type closer interface {
	Close() error
}

func closeLogged(what string, c closer) {
	if err := c.Close(); err != nil {
		log.Printf("[GLTFComponent] close %s: %v", what, err)
	}
}

func newID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d > 0 {
		time.Sleep(d)
	}
	return ctx.Err()
}
