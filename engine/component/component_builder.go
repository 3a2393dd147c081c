package component

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// GLTFComponentBuilderOption is a functional option for configuring a GLTFComponent via NewGLTFComponent.
type GLTFComponentBuilderOption func(*gltfComponent)

// WithScheduler is an option builder that sets the scheduler handed to every importer.
// Without one, importers run all work on the loading goroutine.
//
// Parameters:
//   - s: the scheduler; the caller keeps ownership
//
// Returns:
//   - GLTFComponentBuilderOption: a function that applies the scheduler option to a component
func WithScheduler(s scheduler.Scheduler) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		c.sched = s
	}
}

// WithSourceFactory is an option builder that replaces source.New as the way each attempt's
// source is created.
//
// Parameters:
//   - f: the source factory
//
// Returns:
//   - GLTFComponentBuilderOption: a function that applies the source factory option to a component
func WithSourceFactory(f SourceFactory) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		if f != nil {
			c.newSource = f
		}
	}
}

// WithSourceOptions is an option builder that sets the options passed to every source.
//
// Parameters:
//   - options: the source options, e.g. source.WithHTTPClient
//
// Returns:
//   - GLTFComponentBuilderOption: a function that applies the source options to a component
func WithSourceOptions(options ...source.SourceBuilderOption) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		c.sourceOptions = append(c.sourceOptions, options...)
	}
}

// WithPublisher is an option builder that sets where lifecycle events are published.
func WithPublisher(p events.Publisher) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		c.publisher = p
	}
}

// WithProfiler is an option builder that measures every attempt.
func WithProfiler(p *profiler.Profiler) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		c.profiler = p
	}
}

// WithSleeper is an option builder that replaces the wait between attempts.
func WithSleeper(s Sleeper) GLTFComponentBuilderOption {
	return func(c *gltfComponent) {
		if s != nil {
			c.sleep = s
		}
	}
}
