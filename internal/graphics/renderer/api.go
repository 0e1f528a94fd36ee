package renderer

import (
	"terradrift/internal/graphics"
	"terradrift/internal/instancing"
	"terradrift/internal/player"
	"terradrift/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext is the per-frame state shared by all renderables.
type RenderContext struct {
	Camera    *graphics.Camera
	Scheduler *world.Scheduler
	Batcher   *instancing.Batcher
	Flyer     *player.Flyer
	DT        float64
	View      mgl32.Mat4
	Proj      mgl32.Mat4
	Wireframe bool
}

// Renderable is the lifecycle contract for a render feature.
type Renderable interface {
	Init() error
	Render(ctx RenderContext)
	Dispose()
	SetViewport(width, height int)
}
