package loader

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

// ImporterFactory creates the Importer for one load attempt.
type ImporterFactory interface {
	// CreateImporter creates an Importer for a document.
	//
	// Parameters:
	//   - filename: the document name, relative to src's base directory
	//   - src: the source the importer reads through; the caller keeps ownership
	//   - sched: the scheduler import work runs on, may be nil
	//
	// Returns:
	//   - Importer: the new importer, owned by the caller
	//   - error: error if no importer can be created
	CreateImporter(filename string, src source.Source, sched scheduler.Scheduler) (Importer, error)
}

// ImporterFactoryFunc adapts a function to the ImporterFactory interface.
type ImporterFactoryFunc func(filename string, src source.Source, sched scheduler.Scheduler) (Importer, error)

// CreateImporter calls f.
func (f ImporterFactoryFunc) CreateImporter(filename string, src source.Source, sched scheduler.Scheduler) (Importer, error) {
	return f(filename, src, sched)
}

type defaultImporterFactory struct {
	options []ImporterBuilderOption
}

var _ ImporterFactory = &defaultImporterFactory{}

// NewDefaultImporterFactory creates a factory producing glTF importers.
//
// Parameters:
//   - options: applied to every importer the factory creates
//
// Returns:
//   - ImporterFactory: the factory
func NewDefaultImporterFactory(options ...ImporterBuilderOption) ImporterFactory {
	return &defaultImporterFactory{options: options}
}

func (f *defaultImporterFactory) CreateImporter(filename string, src source.Source, sched scheduler.Scheduler) (Importer, error) {
	if filename == "" {
		return nil, errors.New("loader: empty document filename")
	}
	if src == nil {
		return nil, errors.New("loader: nil source")
	}
	return NewImporter(filename, src, sched, f.options...), nil
}
