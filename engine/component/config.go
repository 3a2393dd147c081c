package component

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
	"gopkg.in/yaml.v3"
)

// RetryPolicy decides which failed attempts are retried.
type RetryPolicy int

const (
	// RetryPolicyFetchErrors retries only network failures of the remote source.
	RetryPolicyFetchErrors RetryPolicy = iota

	// RetryPolicyAllErrors retries every failure, for runtimes where network errors cannot be
	// told apart from other failures.
	RetryPolicyAllErrors
)

func (p RetryPolicy) String() string {
	switch p {
	case RetryPolicyFetchErrors:
		return "fetch"
	case RetryPolicyAllErrors:
		return "all"
	default:
		return fmt.Sprintf("RetryPolicy(%d)", int(p))
	}
}

// ParseRetryPolicy parses "fetch" or "all". Empty selects RetryPolicyFetchErrors.
//
// Parameters:
//   - s: the policy name
//
// Returns:
//   - RetryPolicy: the parsed policy
//   - error: error if the name is unknown
func ParseRetryPolicy(s string) (RetryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(common.Coalesce(s, "fetch"))) {
	case "fetch":
		return RetryPolicyFetchErrors, nil
	case "all":
		return RetryPolicyAllErrors, nil
	default:
		return RetryPolicyFetchErrors, fmt.Errorf("component: unknown retry policy %q", s)
	}
}

// Retryable reports whether a failed attempt may be retried under this policy.
// A rejected concurrent load and a cancelled context are never retried.
//
// Parameters:
//   - err: the attempt's error
//
// Returns:
//   - bool: true if the attempt may be retried
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrLoadInProgress) || errors.Is(err, context.Canceled) {
		return false
	}
	if p == RetryPolicyAllErrors {
		return true
	}
	// a timed-out remote read also carries a FetchError
	var te *loader.TimeoutError
	if errors.As(err, &te) {
		return false
	}
	var fe *source.FetchError
	return errors.As(err, &fe)
}

// LoadConfiguration controls how a GLTFComponent loads its document.
// It is copied when a load starts; later changes do not affect the load in flight.
type LoadConfiguration struct {
	// Version is the configuration file format version. Only 1 is supported.
	Version int `yaml:"version"`

	// URI is the document path (local) or URL (remote).
	URI string `yaml:"uri"`

	// UseLocalFile selects the local file source instead of the remote one.
	UseLocalFile bool `yaml:"use_local_file"`

	// AppendBaseAssetPath prefixes local URIs with AssetRoot.
	AppendBaseAssetPath bool `yaml:"append_base_asset_path"`

	// AssetRoot is the platform asset directory. Empty selects source.DefaultAssetRoot.
	AssetRoot string `yaml:"asset_root"`

	// Multithreaded runs mesh extraction and texture decoding on the worker pool.
	Multithreaded bool `yaml:"multithreaded"`

	// MaterialsOnly loads material 0 onto a placeholder cube instead of the scene.
	MaterialsOnly bool `yaml:"materials_only"`

	// AutoplayAnimation plays the first animation of the loaded scene.
	AutoplayAnimation bool `yaml:"autoplay_animation"`

	// LoadOnStart makes Activate start loading.
	LoadOnStart bool `yaml:"load_on_start"`

	// RetryLimit is the number of retries after the first attempt.
	RetryLimit int `yaml:"retry_limit"`

	// RetryDelaySeconds is the wait before each retry.
	RetryDelaySeconds float64 `yaml:"retry_delay_seconds"`

	// RetryPolicy is "fetch" or "all".
	RetryPolicy string `yaml:"retry_policy"`

	// MaxLOD bounds the texture level of detail.
	MaxLOD int `yaml:"max_lod"`

	// TimeoutSeconds is the importer's budget per load operation. Zero disables it.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Collider is "none", "box", "mesh" or "mesh_convex".
	Collider string `yaml:"collider"`

	// ShaderOverridePath is a WGSL file loaded as the override shader when ShaderOverride is nil.
	ShaderOverridePath string `yaml:"shader_override"`

	// ShaderOverride replaces the shader of every loaded material.
	ShaderOverride shader.Shader `yaml:"-"`
}

// DefaultConfiguration returns the configuration used for keys a file leaves out.
//
// Returns:
//   - LoadConfiguration: the defaults
func DefaultConfiguration() LoadConfiguration {
	return LoadConfiguration{
		Version:             1,
		AppendBaseAssetPath: true,
		AssetRoot:           source.DefaultAssetRoot,
		Multithreaded:       true,
		AutoplayAnimation:   true,
		LoadOnStart:         true,
		RetryLimit:          10,
		RetryDelaySeconds:   2,
		RetryPolicy:         "fetch",
		MaxLOD:              300,
		TimeoutSeconds:      8,
		Collider:            "none",
	}
}

// LoadConfigFile reads a YAML configuration on top of DefaultConfiguration and validates it.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - *LoadConfiguration: the configuration
//   - error: error if the file cannot be read, parsed or validated
func LoadConfigFile(path string) (*LoadConfiguration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfiguration()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported load config version: %d", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no load could succeed with.
//
// Returns:
//   - error: the first problem found
func (c LoadConfiguration) Validate() error {
	if strings.TrimSpace(c.URI) == "" {
		return errors.New("component: uri is required")
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("component: retry_limit must be >= 0, got %d", c.RetryLimit)
	}
	if c.RetryDelaySeconds < 0 {
		return fmt.Errorf("component: retry_delay_seconds must be >= 0, got %v", c.RetryDelaySeconds)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("component: timeout_seconds must be >= 0, got %d", c.TimeoutSeconds)
	}
	if _, err := c.ColliderType(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// RetryDelay returns RetryDelaySeconds as a duration.
func (c LoadConfiguration) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// Timeout returns TimeoutSeconds as a duration.
func (c LoadConfiguration) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ColliderType parses Collider.
func (c LoadConfiguration) ColliderType() (game_object.ColliderType, error) {
	return game_object.ParseColliderType(c.Collider)
}

// Policy parses RetryPolicy.
func (c LoadConfiguration) Policy() (RetryPolicy, error) {
	return ParseRetryPolicy(c.RetryPolicy)
}

// overrideShader returns the configured override shader, loading ShaderOverridePath if needed.
func (c LoadConfiguration) overrideShader() (shader.Shader, error) {
	if c.ShaderOverride != nil {
		return c.ShaderOverride, nil
	}
	if c.ShaderOverridePath == "" {
		return nil, nil
	}
	s, err := shader.LoadShader(c.ShaderOverridePath, shader.ShaderTypeFragment)
	if err != nil {
		return nil, fmt.Errorf("load shader override: %w", err)
	}
	return s, nil
}
