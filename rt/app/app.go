// Package app is the frame driver: the thin host-facing entry point that
// wires rt/graph, rt/eventbus, rt/shaderdi, rt/bvh and rt/gpu together
// into the three calls a host binary needs (BuildGraph, RenderFrame,
// Shutdown), mirroring the teacher's App{NewApp, Init, Render} shape in
// app.go but delegating per-frame work to RenderGraph nodes instead of a
// single monolithic render function.
package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/esvo/rt/bvh"
	"github.com/gekko3d/esvo/rt/core"
	"github.com/gekko3d/esvo/rt/esvo"
	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/gpu"
	"github.com/gekko3d/esvo/rt/graph"
	"github.com/gekko3d/esvo/rt/rtlog"
	"github.com/gekko3d/esvo/rt/shaderdi"
	"github.com/gekko3d/esvo/rt/slot"
)

// Device bundles the external collaborator handles App needs; all of it
// is optional so App can be exercised without a real GPU (e.g. in
// tests) — nodes skip GPU-bound work when their corresponding handle is
// nil, exactly as the teacher's own gizmo/text passes are optional
// depending on what Init() managed to acquire.
type Device struct {
	WGPUDevice *wgpu.Device
	WGPUQueue  *wgpu.Queue
}

// Scene is the minimal octree+camera state a frame needs to traverse;
// populated by the external collaborator responsible for
// voxelization/scene authoring (out of scope per spec §1). Nodes/Bricks
// select the single active render target's octree; Objects carries the
// full per-object list (world AABBs, LOD thresholds) the cull node needs.
type Scene struct {
	Nodes   []esvo.Descriptor
	Bricks  esvo.BrickSource
	Config  *core.OctreeConfig
	Camera  *core.CameraState
	Objects []*core.VoxelObject
}

// App is the programmatic entry point named in spec §6: BuildGraph once,
// RenderFrame per frame, Shutdown on teardown.
type App struct {
	Logger rtlog.Logger
	Bus    *eventbus.Bus
	Graph  *graph.Graph

	Device *Device
	Scene  *Scene

	Pipeline *shaderdi.Pipeline
	Staging  *gpu.StagingPool
	Uploader *gpu.BatchedUploader
	Budget   *gpu.BudgetManager

	BVHArena *bvh.Arena

	CullSet *core.CullSet

	frame          uint64
	built          bool
	visibleObjects []*core.VoxelObject
}

// NewApp constructs an App with a fresh bus and graph; device, scene and
// GPU infrastructure are supplied separately (via the Device/Scene
// fields and Attach* helpers) so tests can exercise BuildGraph/RenderFrame
// without a real GPU, matching the teacher's pattern of an App struct
// whose fields are populated progressively across Init().
func NewApp(logger rtlog.Logger) *App {
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}
	bus := eventbus.NewBus(logger)
	return &App{
		Logger:   logger,
		Bus:      bus,
		Graph:    graph.New(bus, logger),
		BVHArena: bvh.NewArena(),
		Budget:   gpu.NewBudgetManager(bus, logger),
	}
}

// AttachDevice wires real GPU infrastructure (staging pool, uploader)
// once a host has created a wgpu.Device; without this call the graph's
// GPU-bound nodes operate in a data-only, device-less mode.
func (a *App) AttachDevice(dev *Device) error {
	a.Device = dev
	if dev == nil || dev.WGPUDevice == nil {
		return nil
	}
	pool, err := gpu.NewStagingPool(dev.WGPUDevice, a.Logger)
	if err != nil {
		return fmt.Errorf("app: failed to create staging pool: %w", err)
	}
	a.Staging = pool
	a.Uploader = gpu.NewBatchedUploader(dev.WGPUDevice, dev.WGPUQueue, pool, a.Logger)
	return nil
}

// BuildGraph registers the frame graph's nodes and connects their slots.
// It is idempotent-guarded: calling it twice without an intervening
// Shutdown is a programmer error, reported rather than silently doubling
// the graph.
func (a *App) BuildGraph() error {
	if a.built {
		return fmt.Errorf("app: BuildGraph already called")
	}
	if a.Scene == nil {
		return fmt.Errorf("app: Scene must be set before BuildGraph")
	}

	cullOut, err := slot.Declare[slot.BufferHandle](0, slot.Required, slot.Output, slot.Write, slot.NodeLevel)
	if err != nil {
		return fmt.Errorf("app: failed to declare cull output slot: %w", err)
	}
	cullNode := &cullSceneNode{app: a}
	cullHandle, err := a.Graph.AddNode("CullScene", "cull_scene", cullNode, nil, map[int]*slot.Slot{0: cullOut})
	if err != nil {
		return fmt.Errorf("app: failed to add cull node: %w", err)
	}

	cullIn, err := slot.Declare[slot.BufferHandle](0, slot.Required, slot.Dependency, slot.Read, slot.NodeLevel)
	if err != nil {
		return fmt.Errorf("app: failed to declare cull input slot: %w", err)
	}
	imgOut, err := slot.Declare[slot.ImageHandle](0, slot.Required, slot.Output, slot.Write, slot.NodeLevel)
	if err != nil {
		return fmt.Errorf("app: failed to declare image output slot: %w", err)
	}
	travNode := &traversalNode{app: a}
	travHandle, err := a.Graph.AddNode("Traversal", "traversal", travNode,
		map[int]*slot.Slot{0: cullIn}, map[int]*slot.Slot{0: imgOut})
	if err != nil {
		return fmt.Errorf("app: failed to add traversal node: %w", err)
	}

	if err := a.Graph.Connect(cullHandle, 0, travHandle, 0); err != nil {
		return fmt.Errorf("app: failed to connect cull -> traversal: %w", err)
	}

	presentIn, err := slot.Declare[slot.ImageHandle](0, slot.Required, slot.Dependency, slot.Read, slot.NodeLevel)
	if err != nil {
		return fmt.Errorf("app: failed to declare present input slot: %w", err)
	}
	present := &presentNode{app: a}
	presentHandle, err := a.Graph.AddNode("Present", "present", present,
		map[int]*slot.Slot{0: presentIn}, nil)
	if err != nil {
		return fmt.Errorf("app: failed to add present node: %w", err)
	}
	if err := a.Graph.Connect(travHandle, 0, presentHandle, 0); err != nil {
		return fmt.Errorf("app: failed to connect traversal -> present: %w", err)
	}

	if err := a.Graph.Compile(); err != nil {
		return fmt.Errorf("app: graph compile failed: %w", err)
	}
	a.built = true
	return nil
}

// RenderFrame advances one frame: the graph itself publishes FrameStart
// and FrameEnd around node execution (graph.Graph.RenderFrame), which is
// what rt/gpu's BudgetManager subscribes to for its per-frame watermark
// check.
func (a *App) RenderFrame() error {
	if !a.built {
		return fmt.Errorf("app: RenderFrame called before BuildGraph")
	}
	a.frame++
	if err := a.Graph.RenderFrame(a.frame); err != nil {
		return fmt.Errorf("app: render frame %d failed: %w", a.frame, err)
	}
	return nil
}

// Shutdown unwinds the graph's cleanup stack, running each compiled
// node's Cleanup in reverse order. Safe to call even if BuildGraph was
// never called.
func (a *App) Shutdown() {
	a.Graph.Shutdown()
	a.built = false
}

// Resize reacts to a host window resize by publishing the WindowResize
// event; downstream nodes (the present node, in particular) observe the
// SwapChainInvalidated/FramebufferDirty cascade spec §4.5 defines and
// mark themselves dirty for recompilation on the next RenderFrame.
func (a *App) Resize(width, height uint32) {
	a.Bus.PublishImmediate(eventbus.Message{
		Type:    eventbus.TypeID[graph.WindowResize](),
		Payload: graph.WindowResize{Width: width, Height: height},
	})
}
