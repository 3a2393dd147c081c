package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/component"
	"github.com/Carmen-Shannon/oxy-gltf/engine/game_object"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
)

const emptyScene = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "Empty", "nodes": [0]}],
  "nodes": [{"name": "Anchor"}]
}`

func localConfig(t *testing.T) component.LoadConfiguration {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "empty.gltf"), []byte(emptyScene), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	cfg := component.DefaultConfiguration()
	cfg.URI = "/empty.gltf"
	cfg.UseLocalFile = true
	cfg.AssetRoot = root
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddComponent(t *testing.T) {
	sched := scheduler.NewScheduler(scheduler.WithWorkers(1))
	defer sched.Close()
	e := NewEngine(WithScheduler(sched))

	c, err := e.AddComponent("duck", localConfig(t), loader.NewDefaultImporterFactory())
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if _, err := e.AddComponent("duck", localConfig(t), loader.NewDefaultImporterFactory()); err == nil {
		t.Fatalf("expected error for a duplicate name")
	}
	if e.Component("duck") != c || e.Component("fox") != nil {
		t.Fatalf("Component lookup mismatch")
	}

	host := c.Object()
	if host.Name() != "duck" || host.Parent().ID() != e.Root().ID() {
		t.Fatalf("host not parented under the world root")
	}

	if _, err := e.AddComponent("ant", localConfig(t), loader.NewDefaultImporterFactory()); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	names := e.Components()
	if len(names) != 2 || names[0] != "ant" || names[1] != "duck" {
		t.Fatalf("Components() = %v", names)
	}

	e.RemoveComponent("duck")
	if e.Component("duck") != nil || host.Parent() != nil || len(e.Root().Children()) != 1 {
		t.Fatalf("RemoveComponent left the host attached")
	}
}

func TestRunActivatesComponentsAndTicks(t *testing.T) {
	e := NewEngine(WithTickRate(200), WithProfiling(true))

	cfg := localConfig(t)
	c, err := e.AddComponent("scene", cfg, loader.NewDefaultImporterFactory())
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	idle := cfg
	idle.LoadOnStart = false
	lazy, err := e.AddComponent("lazy", idle, loader.NewDefaultImporterFactory())
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	clip := &model.AnimationClip{Name: "Spin", Duration: 10}
	a := animator.NewAnimator(clip)
	a.Play()
	e.Root().AddAnimator(a)

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	waitFor(t, "the component to load", func() bool { return c.State() == component.StateSucceeded })
	waitFor(t, "ticks", func() bool { return ticks.Load() >= 3 && a.Time() > 0 })

	if err := e.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail while running")
	}

	e.Quit()
	e.Quit()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	root := c.LastLoadedScene()
	if root == nil || root.Name() != "Empty" || root.Parent().ID() != c.Object().ID() {
		t.Fatalf("scene not loaded under its host")
	}
	if lazy.State() != component.StateIdle {
		t.Fatalf("component without load_on_start ran: %v", lazy.State())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSetTickRate(t *testing.T) {
	e := NewEngine(WithRoot(game_object.NewGameObject(game_object.WithName("Stage")))).(*engine)
	e.SetTickRate(0)
	if e.engineTickRate != time.Second/60 {
		t.Fatalf("tick rate = %v, want the 60Hz default", e.engineTickRate)
	}
	e.SetTickRate(120)
	if e.engineTickRate != time.Second/120 {
		t.Fatalf("tick rate = %v", e.engineTickRate)
	}
	if e.Root().Name() != "Stage" {
		t.Fatalf("WithRoot ignored")
	}
	e.sched.Close()
}
