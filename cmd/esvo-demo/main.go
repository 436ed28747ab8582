package main

import (
	"flag"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/esvo/rt/app"
	"github.com/gekko3d/esvo/rt/core"
	"github.com/gekko3d/esvo/rt/esvo"
	"github.com/gekko3d/esvo/rt/rtlog"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging and full-resolution traversal (camera DebugMode bit 0)")
	flag.Parse()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "ESVO Demo", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	logger := rtlog.NewDefaultLogger("esvo-demo", *debug)
	a := app.NewApp(logger)

	camera := core.NewCameraState()
	if *debug {
		camera.DebugMode = 1
	}
	octreeConfig := core.NewOctreeConfig(10, 3, 8, mgl32.Vec3{-512, -512, -512}, mgl32.Vec3{512, 512, 512}, mgl32.Ident4())
	obj := core.NewVoxelObject()
	obj.Config = octreeConfig

	a.Scene = &app.Scene{
		Nodes:   []esvo.Descriptor{{Lo: 0, Hi: 0xFFFFFF}},
		Bricks:  emptyBricks{},
		Config:  octreeConfig,
		Camera:  camera,
		Objects: []*core.VoxelObject{obj},
	}

	if err := a.BuildGraph(); err != nil {
		panic(err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.Resize(uint32(width), uint32(height))
	})

	mouseCaptured := false
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !mouseCaptured {
			return
		}
		dx := float32(xpos - 640)
		dy := float32(ypos - 360)
		camera.Yaw += dx * camera.Sensitivity
		camera.Pitch -= dy * camera.Sensitivity
		w.SetCursorPos(640, 360)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			mouseCaptured = !mouseCaptured
			if mouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	defer a.Shutdown()

	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := a.RenderFrame(); err != nil {
			logger.Errorf("render frame failed: %v", err)
			break
		}
	}
}

// emptyBricks is a placeholder BrickSource used until the host wires a
// real voxelization/streaming backend; out of scope per spec §1.
type emptyBricks struct{}

func (emptyBricks) Occupied(brickIndex uint32, x, y, z int) bool { return false }
func (emptyBricks) Sample(brickIndex uint32, x, y, z int) esvo.Sample {
	return esvo.Sample{}
}
