package component

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/events"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/source"
)

func TestStartRetriesFetchErrorsUntilLimit(t *testing.T) {
	for _, limit := range []int{0, 1, 3} {
		cfg := remoteConfig()
		cfg.RetryLimit = limit
		errs := make([]error, limit+1)
		for i := range errs {
			errs[i] = fetchErr(i)
		}
		h := newHarness(t, cfg, &fakeFactory{errs: errs})

		err := h.comp.Start(context.Background())
		if err != errs[limit] {
			t.Fatalf("limit %d: Start error = %v, want the last attempt's error %v", limit, err, errs[limit])
		}
		if got := len(h.factory.all()); got != limit+1 {
			t.Fatalf("limit %d: %d attempts, want %d", limit, got, limit+1)
		}
		if len(h.sleeper.delays) != limit {
			t.Fatalf("limit %d: %d delays, want %d", limit, len(h.sleeper.delays), limit)
		}
		for _, d := range h.sleeper.delays {
			if d != 500*time.Millisecond {
				t.Fatalf("limit %d: delay %v, want 500ms", limit, d)
			}
		}
		if h.comp.State() != StateFailedFatal || h.comp.Attempt() != limit {
			t.Fatalf("limit %d: state %v attempt %d", limit, h.comp.State(), h.comp.Attempt())
		}
		if h.comp.Result() != nil || len(h.host.Children()) != 0 {
			t.Fatalf("limit %d: failed load published a scene", limit)
		}
		h.checkDisposedOnce(t)
	}
}

func TestStartDoesNotRetryFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "structural", err: &loader.StructuralError{Document: "duck.gltf", Err: errors.New("bad accessor")}},
		{name: "resource", err: &source.ResourceError{Path: "assets/duck.gltf", Err: os.ErrNotExist}},
		{name: "timeout", err: &loader.TimeoutError{Operation: "load scene", Timeout: time.Second, Err: fetchErr(4)}},
		{name: "plain", err: errors.New("unexpected")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, remoteConfig(), &fakeFactory{errs: []error{tt.err}})

			err := h.comp.Start(context.Background())
			if !errors.Is(err, tt.err) {
				t.Fatalf("Start error = %v, want %v", err, tt.err)
			}
			if got := len(h.factory.all()); got != 1 {
				t.Fatalf("%d attempts, want 1", got)
			}
			if len(h.sleeper.delays) != 0 {
				t.Fatalf("fatal error consumed %d delays", len(h.sleeper.delays))
			}
			if h.comp.State() != StateFailedFatal {
				t.Fatalf("state = %v, want failed_fatal", h.comp.State())
			}
			h.checkDisposedOnce(t)
		})
	}
}

func TestStartAllErrorsPolicyRetriesEverything(t *testing.T) {
	cfg := remoteConfig()
	cfg.RetryPolicy = "all"
	cfg.RetryLimit = 2
	structural := &loader.StructuralError{Document: "duck.gltf", Err: errors.New("bad")}
	h := newHarness(t, cfg, &fakeFactory{errs: []error{structural, errors.New("io")}})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := len(h.factory.all()); got != 3 {
		t.Fatalf("%d attempts, want 3", got)
	}
	if h.comp.State() != StateSucceeded || h.comp.Attempt() != 2 {
		t.Fatalf("state %v attempt %d", h.comp.State(), h.comp.Attempt())
	}
	h.checkDisposedOnce(t)
}

func TestRetryPolicyClassification(t *testing.T) {
	fetch := fetchErr(3)
	tests := []struct {
		name   string
		policy RetryPolicy
		err    error
		want   bool
	}{
		{name: "fetch/fetch", policy: RetryPolicyFetchErrors, err: fetch, want: true},
		{name: "fetch/wrapped fetch", policy: RetryPolicyFetchErrors, err: errors.Join(errors.New("read"), fetch), want: true},
		{name: "fetch/timeout over fetch", policy: RetryPolicyFetchErrors, err: &loader.TimeoutError{Err: fetch}, want: false},
		{name: "fetch/resource", policy: RetryPolicyFetchErrors, err: &source.ResourceError{Err: os.ErrNotExist}, want: false},
		{name: "fetch/in progress", policy: RetryPolicyFetchErrors, err: ErrLoadInProgress, want: false},
		{name: "all/structural", policy: RetryPolicyAllErrors, err: &loader.StructuralError{Err: errors.New("x")}, want: true},
		{name: "all/timeout", policy: RetryPolicyAllErrors, err: &loader.TimeoutError{Err: fetch}, want: true},
		{name: "all/canceled", policy: RetryPolicyAllErrors, err: context.Canceled, want: false},
		{name: "all/nil", policy: RetryPolicyAllErrors, err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestLocalPathStripsLeadingSeparator(t *testing.T) {
	for _, uri := range []string{"/models/duck.gltf", `\models/duck.gltf`, "models/duck.gltf"} {
		cfg := remoteConfig()
		cfg.URI = uri
		cfg.UseLocalFile = true
		cfg.AppendBaseAssetPath = true
		cfg.AssetRoot = filepath.Join("data", "assets")
		h := newHarness(t, cfg, &fakeFactory{})

		if err := h.comp.Start(context.Background()); err != nil {
			t.Fatalf("%q: Start: %v", uri, err)
		}
		src := h.sources.all()[0]
		want := filepath.Join("data", "assets", "models", "duck.gltf")
		if src.loc.FullPath != want {
			t.Fatalf("%q: resolved %q, want %q", uri, src.loc.FullPath, want)
		}
		if src.loc.Type != source.SourceTypeLocal {
			t.Fatalf("%q: source type %v", uri, src.loc.Type)
		}
		if h.factory.filenames[0] != "duck.gltf" {
			t.Fatalf("%q: importer filename %q", uri, h.factory.filenames[0])
		}
	}
}

func TestRemoteFilenameIgnoresQuery(t *testing.T) {
	cfg := remoteConfig()
	cfg.URI = "https://cdn.example.com/models/duck.gltf?v=3#top"
	h := newHarness(t, cfg, &fakeFactory{})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src := h.sources.all()[0]
	if src.loc.Type != source.SourceTypeRemote || src.loc.BaseDir != "https://cdn.example.com/models/" {
		t.Fatalf("unexpected location %+v", src.loc)
	}
	if h.factory.filenames[0] != "duck.gltf" {
		t.Fatalf("importer filename %q", h.factory.filenames[0])
	}
}

func TestImporterConfiguredBeforeLoad(t *testing.T) {
	cfg := remoteConfig()
	cfg.Collider = "box"
	cfg.MaxLOD = 12
	cfg.TimeoutSeconds = 8
	cfg.Multithreaded = false
	h := newHarness(t, cfg, &fakeFactory{})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	imp := h.factory.all()[0]
	if imp.sceneParent == nil || imp.sceneParent.ID() != h.host.ID() {
		t.Fatalf("scene parent not set to the host object")
	}
	if imp.collider != game_object.ColliderBox || imp.maxLod != 12 || imp.timeout != 8*time.Second || imp.multithreaded {
		t.Fatalf("importer settings %v %d %v %v", imp.collider, imp.maxLod, imp.timeout, imp.multithreaded)
	}
	if imp.shaderName != "" {
		t.Fatalf("shader name set without override: %q", imp.shaderName)
	}
}

func TestMaterialsOnly(t *testing.T) {
	cfg := remoteConfig()
	cfg.MaterialsOnly = true
	h := newHarness(t, cfg, &fakeFactory{animations: []string{"Idle"}})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	imp := h.factory.all()[0]
	if imp.sceneCalls != 0 {
		t.Fatalf("LoadScene called %d times in materials-only mode", imp.sceneCalls)
	}
	if imp.materialCalls != 1 {
		t.Fatalf("LoadMaterial called %d times, want 1", imp.materialCalls)
	}

	children := h.host.Children()
	if len(children) != 1 {
		t.Fatalf("host has %d children, want 1 placeholder", len(children))
	}
	placeholder := children[0]
	if placeholder.Renderer() == nil || placeholder.Renderer().Material().Name() != "Brick" {
		t.Fatalf("placeholder does not carry the loaded material")
	}

	res := h.comp.Result()
	if res == nil || !res.MaterialsOnly || res.Root != nil || res.Placeholder == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Placeholder.ID() != placeholder.ID() {
		t.Fatalf("result placeholder is not the attached object")
	}
	if len(h.comp.Animations()) != 0 || h.comp.LastLoadedScene() != nil {
		t.Fatalf("materials-only load published a scene")
	}
	h.checkDisposedOnce(t)
}

func TestShaderOverride(t *testing.T) {
	override := shader.NewShader("Toon", shader.ShaderTypeFragment)
	for _, materialsOnly := range []bool{false, true} {
		cfg := remoteConfig()
		cfg.MaterialsOnly = materialsOnly
		cfg.ShaderOverride = override
		h := newHarness(t, cfg, &fakeFactory{})

		if err := h.comp.Start(context.Background()); err != nil {
			t.Fatalf("materialsOnly=%v: Start: %v", materialsOnly, err)
		}
		if name := h.factory.all()[0].shaderName; name != "Toon" {
			t.Fatalf("materialsOnly=%v: importer shader name %q, want Toon", materialsOnly, name)
		}

		renderers := h.host.RenderersInChildren()
		if len(renderers) == 0 {
			t.Fatalf("materialsOnly=%v: nothing was loaded", materialsOnly)
		}
		for _, r := range renderers {
			if r.Material().Shader() != override {
				t.Fatalf("materialsOnly=%v: material %q still uses %q", materialsOnly, r.Material().Name(), r.Material().Shader().Name())
			}
		}
	}
}

func TestShaderOverrideFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unlit.wgsl")
	src := "@fragment\nfn fs_main() -> @location(0) vec4<f32> {\n  return vec4<f32>(1.0);\n}\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write shader: %v", err)
	}
	cfg := remoteConfig()
	cfg.ShaderOverridePath = path
	h := newHarness(t, cfg, &fakeFactory{})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, r := range h.host.RenderersInChildren() {
		if r.Material().Shader().Name() != "unlit" || r.Material().Shader().IsPlaceholder() {
			t.Fatalf("renderer shader = %q", r.Material().Shader().Name())
		}
	}
}

func TestAutoplayAnimation(t *testing.T) {
	tests := []struct {
		name        string
		autoplay    bool
		animations  []string
		wantPlaying []bool
	}{
		{name: "first of two", autoplay: true, animations: []string{"Walk", "Run"}, wantPlaying: []bool{true, false}},
		{name: "none found", autoplay: true},
		{name: "disabled", autoplay: false, animations: []string{"Walk"}, wantPlaying: []bool{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := remoteConfig()
			cfg.AutoplayAnimation = tt.autoplay
			h := newHarness(t, cfg, &fakeFactory{animations: tt.animations})

			if err := h.comp.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			anims := h.comp.Animations()
			if len(anims) != len(tt.animations) {
				t.Fatalf("%d animations, want %d", len(anims), len(tt.animations))
			}
			for i, a := range anims {
				if a.Name() != tt.animations[i] {
					t.Fatalf("animation %d = %q, want %q", i, a.Name(), tt.animations[i])
				}
				if a.Playing() != tt.wantPlaying[i] {
					t.Fatalf("animation %q playing = %v, want %v", a.Name(), a.Playing(), tt.wantPlaying[i])
				}
			}
		})
	}
}

func TestRetryThenSucceed(t *testing.T) {
	cfg := remoteConfig()
	cfg.URI = "model.gltf"
	cfg.UseLocalFile = true
	cfg.AppendBaseAssetPath = true
	cfg.RetryLimit = 2
	h := newHarness(t, cfg, &fakeFactory{errs: []error{fetchErr(0), fetchErr(1)}})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.comp.State() != StateSucceeded || h.comp.Attempt() != 2 {
		t.Fatalf("state %v attempt %d, want succeeded at attempt 2", h.comp.State(), h.comp.Attempt())
	}
	if len(h.sleeper.delays) != 2 {
		t.Fatalf("%d delays, want 2", len(h.sleeper.delays))
	}
	root := h.comp.LastLoadedScene()
	if root == nil || len(root.Children()) == 0 {
		t.Fatalf("no scene published")
	}
	if len(h.host.Children()) != 1 {
		t.Fatalf("host has %d children, want only the successful scene", len(h.host.Children()))
	}
	h.checkDisposedOnce(t)
}

func TestDisposeWhenImporterCannotBeCreated(t *testing.T) {
	createErr := errors.New("no importer for this format")
	h := newHarness(t, remoteConfig(), &fakeFactory{createErr: createErr})

	err := h.comp.Start(context.Background())
	if !errors.Is(err, createErr) {
		t.Fatalf("Start error = %v, want %v", err, createErr)
	}
	sources := h.sources.all()
	if len(sources) != 1 || sources[0].closes.Load() != 1 {
		t.Fatalf("source not closed exactly once")
	}
}

func TestConcurrentLoadRejected(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	h := newHarness(t, remoteConfig(), &fakeFactory{block: block, started: started})

	done := make(chan error, 1)
	go func() {
		done <- h.comp.Start(context.Background())
	}()
	<-started

	if err := h.comp.Start(context.Background()); !errors.Is(err, ErrLoadInProgress) {
		t.Fatalf("second Start = %v, want ErrLoadInProgress", err)
	}
	if err := h.comp.Load(context.Background()); !errors.Is(err, ErrLoadInProgress) {
		t.Fatalf("Load during Start = %v, want ErrLoadInProgress", err)
	}
	if err := h.comp.SetConfiguration(remoteConfig()); !errors.Is(err, ErrLoadInProgress) {
		t.Fatalf("SetConfiguration during load = %v, want ErrLoadInProgress", err)
	}
	if h.comp.State() != StateLoading {
		t.Fatalf("state = %v, want loading", h.comp.State())
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if got := len(h.factory.all()); got != 1 {
		t.Fatalf("%d importers created, want 1", got)
	}

	h.factory.mu.Lock()
	h.factory.block, h.factory.started = nil, nil
	h.factory.mu.Unlock()
	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
}

func TestStartCancelDoesNotCutDelayShort(t *testing.T) {
	cfg := remoteConfig()
	cfg.RetryDelaySeconds = 0.05
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, cfg, &fakeFactory{errs: []error{fetchErr(0), fetchErr(1)}})
	// cancel as soon as the first attempt fails, before the delay begins
	h.comp = NewGLTFComponent(h.host, cfg, h.factory,
		WithSourceFactory(h.sources.newSource),
		WithPublisher(publisherFunc(func(e events.Event) {
			if e.State == events.StateRetrying {
				cancel()
			}
		})),
	)

	begin := time.Now()
	err := h.comp.Start(ctx)
	if elapsed := time.Since(begin); elapsed < cfg.RetryDelay() {
		t.Fatalf("Start returned after %v, the %v delay was cut short", elapsed, cfg.RetryDelay())
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start error = %v, want context.Canceled", err)
	}
	var fe *source.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Start error = %v, want the attempt's FetchError joined", err)
	}
	if got := len(h.factory.all()); got != 1 {
		t.Fatalf("%d attempts, want 1", got)
	}
	if h.comp.State() != StateFailedFatal {
		t.Fatalf("state = %v, want failed_fatal", h.comp.State())
	}
	h.checkDisposedOnce(t)
}

func TestSleepContextRunsToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	err := sleepContext(ctx, 20*time.Millisecond)
	if elapsed := time.Since(begin); elapsed < 20*time.Millisecond {
		t.Fatalf("sleepContext returned after %v", elapsed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepContext error = %v, want context.Canceled", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("sleepContext zero delay: %v", err)
	}
}

type publisherFunc func(e events.Event)

func (f publisherFunc) Publish(_ context.Context, e events.Event) error {
	f(e)
	return nil
}

func (f publisherFunc) Close() error { return nil }

func TestLoadIsSingleAttempt(t *testing.T) {
	h := newHarness(t, remoteConfig(), &fakeFactory{errs: []error{fetchErr(0)}})

	err := h.comp.Load(context.Background())
	var fe *source.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Load error = %v, want *source.FetchError", err)
	}
	if len(h.factory.all()) != 1 || len(h.sleeper.delays) != 0 {
		t.Fatalf("Load must not retry")
	}
	if h.comp.State() != StateFailedFatal {
		t.Fatalf("state = %v, want failed_fatal", h.comp.State())
	}

	if err := h.comp.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if h.comp.State() != StateSucceeded || h.comp.Attempt() != 0 {
		t.Fatalf("state %v attempt %d", h.comp.State(), h.comp.Attempt())
	}
}

func TestLifecycleEvents(t *testing.T) {
	cfg := remoteConfig()
	h := newHarness(t, cfg, &fakeFactory{errs: []error{fetchErr(0)}})

	if err := h.comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []events.State{events.StateLoading, events.StateRetrying, events.StateLoading, events.StateLoaded}
	got := h.events.events
	if len(got) != len(want) {
		t.Fatalf("%d events, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.State != want[i] {
			t.Fatalf("event %d = %s, want %s", i, e.State, want[i])
		}
		if e.LoadID != got[0].LoadID {
			t.Fatalf("event %d belongs to another load", i)
		}
		if e.URI != cfg.URI {
			t.Fatalf("event %d uri %q", i, e.URI)
		}
	}
	if got[0].AttemptID != got[1].AttemptID || got[1].AttemptID == got[2].AttemptID {
		t.Fatalf("attempt IDs do not follow attempts")
	}
	if got[1].Error == "" || got[1].Attempt != 0 || got[3].Attempt != 1 {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestActivate(t *testing.T) {
	cfg := remoteConfig()
	cfg.LoadOnStart = false
	h := newHarness(t, cfg, &fakeFactory{})
	if err := <-h.comp.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(h.factory.all()) != 0 {
		t.Fatalf("Activate loaded with load_on_start unset")
	}

	cfg.LoadOnStart = true
	h = newHarness(t, cfg, &fakeFactory{})
	if err := <-h.comp.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if h.comp.State() != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", h.comp.State())
	}
}

func TestInvalidConfigurationIsFatal(t *testing.T) {
	cfg := remoteConfig()
	cfg.URI = ""
	h := newHarness(t, cfg, &fakeFactory{})

	if err := h.comp.Start(context.Background()); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(h.sources.all()) != 0 || len(h.factory.all()) != 0 {
		t.Fatalf("invalid configuration acquired resources")
	}
	if h.comp.State() != StateFailedFatal {
		t.Fatalf("state = %v", h.comp.State())
	}
	if err := h.comp.SetConfiguration(cfg); err == nil {
		t.Fatalf("SetConfiguration accepted an invalid configuration")
	}
}

func TestNewGLTFComponentRequiresFactory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for nil factory")
		}
	}()
	NewGLTFComponent(game_object.NewGameObject(), remoteConfig(), nil)
}
