package main

import (
	"fmt"
	"runtime"

	"terradrift/internal/config"
	"terradrift/internal/graphics/renderables/overlay"
	"terradrift/internal/graphics/renderables/rockfield"
	"terradrift/internal/graphics/renderables/terrainmesh"
	"terradrift/internal/graphics/renderer"
	"terradrift/internal/input"
	"terradrift/internal/instancing"
	"terradrift/internal/meshing"
	"terradrift/internal/player"
	"terradrift/internal/rocks"
	"terradrift/internal/terrain"
	"terradrift/internal/world"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	winWidth  = 1280
	winHeight = 720
)

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(winWidth, winHeight, "terradrift", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	// V-Sync off; the FPS limiter paces frames instead.
	glfw.SwapInterval(0)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	return window, nil
}

// Components holds everything the game loop needs.
type Components struct {
	Renderer   *renderer.Renderer
	Overlay    *overlay.Overlay
	Scheduler  *world.Scheduler
	Batcher    *instancing.Batcher
	Dispatcher *meshing.Dispatcher
	Flyer      *player.Flyer
	Input      *input.Manager
}

func setupGame(window *glfw.Window, fontPath string) (*Components, error) {
	seed := config.GetSeed()
	ev := terrain.NewEvaluator(terrain.DefaultParams(seed))

	library, err := rocks.NewLibrary(seed, config.GetRockLibrarySize(), config.GetRockDetailLevels())
	if err != nil {
		return nil, fmt.Errorf("rock library: %w", err)
	}

	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	dispatcher := meshing.NewDispatcher(workers, 256,
		config.GetChunkWorldSize(), seed, ev, rocks.ConfigParams())

	batcher := instancing.NewBatcher(config.GetRockBufferCapacity())
	scheduler := world.NewScheduler(world.DefaultConfig(), ev, dispatcher, batcher)

	terrainRenderer := terrainmesh.New()
	rockRenderer := rockfield.New(library, config.GetRockMinScreenPixels())
	overlayRenderer := overlay.New(fontPath, winWidth, winHeight)

	r, err := renderer.NewRenderer(winWidth, winHeight,
		terrainRenderer,
		rockRenderer,
		overlayRenderer,
	)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Renderer:   r,
		Overlay:    overlayRenderer,
		Scheduler:  scheduler,
		Batcher:    batcher,
		Dispatcher: dispatcher,
		Flyer:      player.NewFlyer(mgl32.Vec3{0, 400, 0}),
		Input:      input.NewManager(),
	}

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		c.Input.HandleKeyEvent(key, action)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		c.Input.HandleCursorEvent(x, y)
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width > 0 && height > 0 {
			c.Renderer.UpdateViewport(width, height)
		}
	})

	return c, nil
}

func (c *Components) Dispose() {
	c.Renderer.Dispose()
	c.Dispatcher.Close()
}
