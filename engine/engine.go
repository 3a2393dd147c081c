package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/component"
	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
)

// engine implements the Engine interface.
// Coordinates component activation and the tick loop.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	root          game_object.GameObject
	sched         scheduler.Scheduler
	ownsScheduler bool
	publisher     events.Publisher

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	mu         sync.RWMutex
	components map[string]component.GLTFComponent
	hosts      map[string]game_object.GameObject
}

// Engine hosts GLTFComponents under a shared world root.
// It activates every registered component when it starts running and advances the animators
// of the loaded scenes at a fixed tick rate.
type Engine interface {
	// Root returns the world root every component host is parented under.
	//
	// Returns:
	//   - game_object.GameObject: the world root
	Root() game_object.GameObject

	// Scheduler returns the worker pool shared by the components' importers.
	//
	// Returns:
	//   - scheduler.Scheduler: the shared scheduler
	Scheduler() scheduler.Scheduler

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after animators advance.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddComponent creates a host object named name under the world root and a GLTFComponent
	// loading into it. The engine's scheduler, publisher and profiler are passed to the component
	// ahead of options.
	//
	// Parameters:
	//   - name: the unique component name, also the host object's name
	//   - cfg: the component's load configuration
	//   - factory: creates the component's importers
	//   - options: extra component options
	//
	// Returns:
	//   - component.GLTFComponent: the registered component
	//   - error: error if name is already registered
	AddComponent(name string, cfg component.LoadConfiguration, factory loader.ImporterFactory, options ...component.GLTFComponentBuilderOption) (component.GLTFComponent, error)

	// RemoveComponent unregisters the component and detaches its host from the world root.
	//
	// Parameters:
	//   - name: the component name
	RemoveComponent(name string)

	// Component retrieves a registered component.
	// Returns nil if no component exists with that name.
	//
	// Parameters:
	//   - name: the component name
	//
	// Returns:
	//   - component.GLTFComponent: the component, or nil if not found
	Component(name string) component.GLTFComponent

	// Components returns the registered component names in ascending order.
	//
	// Returns:
	//   - []string: the names
	Components() []string

	// Run activates every registered component and runs the tick loop until ctx is done or Quit
	// is called. Components whose configuration sets load_on_start begin loading immediately.
	// A scheduler the engine created itself is closed when Run returns.
	//
	// Parameters:
	//   - ctx: bounds the run and every load started by it
	//
	// Returns:
	//   - error: error if the engine is already running
	Run(ctx context.Context) error

	// Quit signals the run loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Without WithScheduler the engine creates its own worker pool.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
		components:      make(map[string]component.GLTFComponent),
		hosts:           make(map[string]game_object.GameObject),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.root == nil {
		e.root = game_object.NewGameObject(game_object.WithName("World"))
	}
	if e.sched == nil {
		e.sched = scheduler.NewScheduler()
		e.ownsScheduler = true
	}
	if e.profilingEnabled && e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Root() game_object.GameObject {
	return e.root
}

func (e *engine) Scheduler() scheduler.Scheduler {
	return e.sched
}

func (e *engine) AddComponent(name string, cfg component.LoadConfiguration, factory loader.ImporterFactory, options ...component.GLTFComponentBuilderOption) (component.GLTFComponent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.components[name]; ok {
		return nil, fmt.Errorf("engine: component %q already registered", name)
	}

	host := game_object.NewGameObject(game_object.WithName(name))
	if err := host.SetParent(e.root); err != nil {
		return nil, err
	}

	opts := []component.GLTFComponentBuilderOption{component.WithScheduler(e.sched)}
	if e.publisher != nil {
		opts = append(opts, component.WithPublisher(e.publisher))
	}
	if e.profilingEnabled {
		opts = append(opts, component.WithProfiler(e.profiler))
	}
	c := component.NewGLTFComponent(host, cfg, factory, append(opts, options...)...)

	e.components[name] = c
	e.hosts[name] = host
	return c, nil
}

func (e *engine) RemoveComponent(name string) {
	e.mu.Lock()
	host := e.hosts[name]
	delete(e.components, name)
	delete(e.hosts, name)
	e.mu.Unlock()

	if host != nil {
		_ = host.SetParent(nil)
	}
}

func (e *engine) Component(name string) component.GLTFComponent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.components[name]
}

func (e *engine) Components() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: already running")
	}
	defer e.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.activate(runCtx)

	e.wg.Add(1)
	go e.handleEngine(runCtx)

	select {
	case <-runCtx.Done():
	case <-e.quitChannel:
	}
	cancel()
	e.wg.Wait()

	if e.ownsScheduler {
		e.sched.Close()
	}
	return nil
}

// activate starts every registered component and logs the outcome of each load.
func (e *engine) activate(ctx context.Context) {
	for _, name := range e.Components() {
		c := e.Component(name)
		if c == nil {
			continue
		}
		done := c.Activate(ctx)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := <-done; err != nil {
				log.Printf("[Engine] component %q failed to load: %v", name, err)
			}
		}()
	}
}

// Quit signals the run loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Advances playing animators, fires the tick callback and listens for dynamic rate changes
// via tickRateChannel. Exits when ctx is done.
func (e *engine) handleEngine(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.advanceAnimators(dt)
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

func (e *engine) advanceAnimators(dt float32) {
	e.root.Walk(func(g game_object.GameObject) bool {
		for _, a := range g.Animators() {
			a.Advance(dt)
		}
		return true
	})
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}
