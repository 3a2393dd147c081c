package loader

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
)

// ImporterBuilderOption is a functional option for configuring an Importer via NewImporter.
type ImporterBuilderOption func(*importer)

// WithSceneParent is an option builder that sets the object loaded scenes are parented under.
//
// Parameters:
//   - parent: the parent object
//
// Returns:
//   - ImporterBuilderOption: a function that applies the scene parent option to an importer
func WithSceneParent(parent game_object.GameObject) ImporterBuilderOption {
	return func(imp *importer) {
		imp.sceneParent = parent
	}
}

// WithCollider is an option builder that sets the collider generated for every mesh.
//
// Parameters:
//   - c: the collider type
//
// Returns:
//   - ImporterBuilderOption: a function that applies the collider option to an importer
func WithCollider(c game_object.ColliderType) ImporterBuilderOption {
	return func(imp *importer) {
		imp.collider = c
	}
}

// WithMaximumLOD is an option builder that bounds the texture level of detail.
//
// Parameters:
//   - lod: the level of detail bound
//
// Returns:
//   - ImporterBuilderOption: a function that applies the LOD option to an importer
func WithMaximumLOD(lod int) ImporterBuilderOption {
	return func(imp *importer) {
		imp.maxLod = lod
	}
}

// WithTimeout is an option builder that sets the time budget of each load operation.
//
// Parameters:
//   - d: the budget
//
// Returns:
//   - ImporterBuilderOption: a function that applies the timeout option to an importer
func WithTimeout(d time.Duration) ImporterBuilderOption {
	return func(imp *importer) {
		imp.timeout = d
	}
}

// WithMultithreaded is an option builder that selects worker pool or inline import work.
// Importers are multithreaded by default.
func WithMultithreaded(multithreaded bool) ImporterBuilderOption {
	return func(imp *importer) {
		imp.multithreaded = multithreaded
	}
}

// WithCustomShaderName is an option builder that sets the shader name imported materials reference.
func WithCustomShaderName(name string) ImporterBuilderOption {
	return func(imp *importer) {
		imp.customShaderName = name
	}
}
