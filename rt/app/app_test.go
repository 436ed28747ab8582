package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/esvo/rt/core"
	"github.com/gekko3d/esvo/rt/esvo"
)

type emptyBrickSource struct{}

func (emptyBrickSource) Occupied(brickIndex uint32, x, y, z int) bool { return false }
func (emptyBrickSource) Sample(brickIndex uint32, x, y, z int) esvo.Sample {
	return esvo.Sample{}
}

func testScene() *Scene {
	cfg := core.NewOctreeConfig(4, 3, 8, mgl32.Vec3{-8, -8, -8}, mgl32.Vec3{8, 8, 8}, mgl32.Ident4())
	obj := core.NewVoxelObject()
	obj.Config = cfg
	return &Scene{
		Nodes:   []esvo.Descriptor{{Lo: 0, Hi: 0xFFFFFF}},
		Bricks:  emptyBrickSource{},
		Config:  cfg,
		Camera:  core.NewCameraState(),
		Objects: []*core.VoxelObject{obj},
	}
}

func TestBuildGraphRequiresScene(t *testing.T) {
	a := NewApp(nil)
	err := a.BuildGraph()
	require.Error(t, err)
}

func TestBuildGraphThenRenderFrameSucceeds(t *testing.T) {
	a := NewApp(nil)
	a.Scene = testScene()

	require.NoError(t, a.BuildGraph())
	require.NoError(t, a.RenderFrame())
	require.NoError(t, a.RenderFrame())
}

func TestBuildGraphTwiceErrors(t *testing.T) {
	a := NewApp(nil)
	a.Scene = testScene()
	require.NoError(t, a.BuildGraph())
	err := a.BuildGraph()
	assert.Error(t, err)
}

func TestRenderFrameBeforeBuildGraphErrors(t *testing.T) {
	a := NewApp(nil)
	err := a.RenderFrame()
	assert.Error(t, err)
}

func TestResizeCascadesThroughSwapchainToFramebuffer(t *testing.T) {
	a := NewApp(nil)
	a.Scene = testScene()
	require.NoError(t, a.BuildGraph())

	a.Resize(1920, 1080)
	require.NoError(t, a.RenderFrame())

	// Both the traversal node (swapchain owner) and the present node
	// (framebuffer owner) should have been marked dirty and recompiled
	// by the resize cascade; RenderFrame succeeding with no error after
	// a resize confirms the recompile path ran without breaking.
}

func TestRenderFrameUsesNearestVisibleObjectsLODThreshold(t *testing.T) {
	a := NewApp(nil)
	scene := testScene()
	scene.Objects[0].LODThreshold = 25.0
	a.Scene = scene

	require.NoError(t, a.BuildGraph())
	require.NoError(t, a.RenderFrame())

	require.Len(t, a.visibleObjects, 1)
	assert.Equal(t, float32(25.0), a.visibleObjects[0].LODThreshold)
}

func TestShutdownUnwindsCleanupStack(t *testing.T) {
	a := NewApp(nil)
	a.Scene = testScene()
	require.NoError(t, a.BuildGraph())
	a.Shutdown()
	assert.Equal(t, 0, a.Graph.CleanupDepth())
}
