package app

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/esvo/rt/core"
	"github.com/gekko3d/esvo/rt/esvo"
	"github.com/gekko3d/esvo/rt/eventbus"
	"github.com/gekko3d/esvo/rt/graph"
)

// cullSceneNode runs frustum + Hi-Z occlusion culling over the scene's
// object AABBs before any traversal node executes, the supplemented
// feature wiring core.Cull into the frame graph.
type cullSceneNode struct {
	app *App
}

func (n *cullSceneNode) TypeName() string { return "CullScene" }

func (n *cullSceneNode) Execute(ctx *graph.Context, frame uint64) error {
	scene := n.app.Scene
	if scene == nil || scene.Camera == nil {
		return fmt.Errorf("app: cull node requires a scene with a camera")
	}
	view := scene.Camera.GetViewMatrix()
	planes := scene.Camera.ExtractFrustum(view)

	aabbs := make([][2]mgl32.Vec3, 0, len(scene.Objects))
	indexed := make([]*core.VoxelObject, 0, len(scene.Objects))
	for _, obj := range scene.Objects {
		obj.UpdateWorldAABB()
		if obj.WorldAABB == nil {
			continue
		}
		aabbs = append(aabbs, *obj.WorldAABB)
		indexed = append(indexed, obj)
	}

	n.app.CullSet = core.Cull(aabbs, planes, nil, 0, 0, view)
	n.app.visibleObjects = n.app.visibleObjects[:0]
	for _, i := range n.app.CullSet.Visible {
		n.app.visibleObjects = append(n.app.visibleObjects, indexed[i])
	}
	return nil
}

// traversalNode drives the ESVO DFS kernel (C1) over the culled scene.
// In the absence of a real GPU device it runs the software reference
// traversal for the camera's primary ray (used for correctness testing
// and headless operation); when a device is attached, Compile would
// additionally build/refresh the compute or hardware-RT pipeline — left
// as the external-collaborator boundary per spec §1, since pipeline
// object creation itself is GPU-API plumbing outside this repository's
// grounding scope.
type traversalNode struct {
	app        *App
	lastResult esvo.Result
}

func (n *traversalNode) TypeName() string { return "Traversal" }

// Setup subscribes to WindowResize and republishes SwapChainInvalidated,
// marking itself dirty so its offscreen output image is rebuilt at the
// new size on the next recompile — the first hop of the canonical
// WindowResize -> SwapChainInvalidated -> FramebufferDirty cascade (spec
// §4.5).
func (n *traversalNode) Setup(ctx *graph.Context) error {
	ctx.Subscribe(eventbus.TypeID[graph.WindowResize](), func(msg eventbus.Message) {
		resize := msg.Payload.(graph.WindowResize)
		ctx.MarkDirty(ctx.Self())
		ctx.Bus.Publish(eventbus.Message{
			Type:    eventbus.TypeID[graph.SwapChainInvalidated](),
			Payload: graph.SwapChainInvalidated{Width: resize.Width, Height: resize.Height},
		})
	})
	return nil
}

func (n *traversalNode) Execute(ctx *graph.Context, frame uint64) error {
	scene := n.app.Scene
	if scene == nil || scene.Config == nil || scene.Bricks == nil {
		return fmt.Errorf("app: traversal node requires scene nodes, config and bricks")
	}
	cam := scene.Camera

	// The LOD threshold of the surviving object nearest the camera (by
	// world AABB center) sets the ray's size cutoff via
	// CameraState.PrimaryRay (a larger threshold maps to a smaller
	// size_coef, so the cutoff trips less eagerly).
	var lod float32
	nearest := float32(-1)
	for _, obj := range n.app.visibleObjects {
		if obj.WorldAABB == nil {
			continue
		}
		center := obj.WorldAABB[0].Add(obj.WorldAABB[1]).Mul(0.5)
		if d := center.Sub(cam.Position).Len(); nearest < 0 || d < nearest {
			nearest = d
			lod = obj.LODThreshold
		}
	}
	ray := cam.PrimaryRay(lod)

	cfg := esvo.Config{ESVOMaxScale: scene.Config.ESVOMaxScale}
	n.lastResult = esvo.Traverse(scene.Nodes, cfg, ray, scene.Bricks)
	return nil
}

// presentNode is the terminal sink: in a real build it blits the
// traversal output image to the swapchain. It subscribes to
// SwapChainInvalidated, marks itself dirty so the next RenderFrame
// recompiles its swapchain-dependent state, and publishes
// FramebufferDirty: the second hop of the WindowResize ->
// SwapChainInvalidated -> FramebufferDirty cascade (spec §4.5).
type presentNode struct {
	app *App
}

func (n *presentNode) TypeName() string { return "Present" }

func (n *presentNode) Setup(ctx *graph.Context) error {
	ctx.Subscribe(eventbus.TypeID[graph.SwapChainInvalidated](), func(msg eventbus.Message) {
		resize := msg.Payload.(graph.SwapChainInvalidated)
		ctx.MarkDirty(ctx.Self())
		ctx.Bus.Publish(eventbus.Message{
			Type:    eventbus.TypeID[graph.FramebufferDirty](),
			Payload: graph.FramebufferDirty{Width: resize.Width, Height: resize.Height},
		})
	})
	return nil
}

func (n *presentNode) Execute(ctx *graph.Context, frame uint64) error { return nil }
