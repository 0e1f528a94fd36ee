package renderer

import (
	"terradrift/internal/graphics"
	"terradrift/internal/instancing"
	"terradrift/internal/player"
	"terradrift/internal/profiling"
	"terradrift/internal/world"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Renderer orchestrates rendering via renderable features, in order.
type Renderer struct {
	renderables []Renderable
	camera      *graphics.Camera

	wireframe bool
}

// NewRenderer configures global GL state and initializes all renderables.
func NewRenderer(width, height int, rs ...Renderable) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	r := &Renderer{
		renderables: rs,
		camera:      graphics.NewCamera(width, height),
	}
	for _, renderable := range rs {
		if err := renderable.Init(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Render draws one frame.
func (r *Renderer) Render(s *world.Scheduler, bt *instancing.Batcher, f *player.Flyer, dt float64) {
	defer profiling.Track("render.frame")()

	gl.ClearColor(0.53, 0.75, 0.92, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	view := r.camera.ViewMatrix(f.Position, f.Forward())
	proj := r.camera.ProjectionMatrix()

	ctx := RenderContext{
		Camera:    r.camera,
		Scheduler: s,
		Batcher:   bt,
		Flyer:     f,
		DT:        dt,
		View:      view,
		Proj:      proj,
		Wireframe: r.wireframe,
	}
	for _, renderable := range r.renderables {
		renderable.Render(ctx)
	}
}

// ToggleWireframe flips line rendering for the terrain pass.
func (r *Renderer) ToggleWireframe() { r.wireframe = !r.wireframe }

// Camera returns the camera instance.
func (r *Renderer) Camera() *graphics.Camera { return r.camera }

// UpdateViewport propagates a window resize.
func (r *Renderer) UpdateViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	r.camera.SetViewport(width, height)
	for _, renderable := range r.renderables {
		renderable.SetViewport(width, height)
	}
}

// Dispose cleans up all renderables in reverse order.
func (r *Renderer) Dispose() {
	for i := len(r.renderables) - 1; i >= 0; i-- {
		r.renderables[i].Dispose()
	}
}
