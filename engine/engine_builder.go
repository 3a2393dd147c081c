package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-attempt load profiling for components added afterwards.
//
// Parameters:
//   - enabled: if true, components measure every load attempt
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithScheduler shares an existing worker pool with the engine's components.
// The engine does not close a scheduler it was given.
//
// Parameters:
//   - s: the scheduler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScheduler(s scheduler.Scheduler) EngineBuilderOption {
	return func(e *engine) {
		e.sched = s
	}
}

// WithPublisher sets the lifecycle event publisher handed to every component.
//
// Parameters:
//   - p: the publisher
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPublisher(p events.Publisher) EngineBuilderOption {
	return func(e *engine) {
		e.publisher = p
	}
}

// WithRoot sets the world root component hosts are parented under.
//
// Parameters:
//   - root: the world root
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRoot(root game_object.GameObject) EngineBuilderOption {
	return func(e *engine) {
		e.root = root
	}
}
