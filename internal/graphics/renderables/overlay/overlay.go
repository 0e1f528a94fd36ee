// Package overlay draws the debug statistics readout.
package overlay

import (
	"fmt"
	"log"

	"terradrift/internal/graphics"
	"terradrift/internal/graphics/renderer"
	"terradrift/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Overlay renders streaming and timing stats as text. When the font cannot
// be loaded the overlay stays constructed but draws nothing, so a missing
// asset never takes the game down.
type Overlay struct {
	fontPath string
	font     *graphics.FontRenderer

	Enabled bool

	width, height int

	// Smoothed FPS, updated once a second.
	frames  int
	elapsed float64
	fps     float64
}

func New(fontPath string, width, height int) *Overlay {
	return &Overlay{
		fontPath: fontPath,
		Enabled:  true,
		width:    width,
		height:   height,
	}
}

func (o *Overlay) Init() error {
	atlas, err := graphics.BuildFontAtlas(o.fontPath, 18)
	if err != nil {
		log.Printf("overlay: font %q unavailable, overlay disabled: %v", o.fontPath, err)
		return nil
	}
	o.font, err = graphics.NewFontRenderer(atlas, o.width, o.height)
	if err != nil {
		return err
	}
	return nil
}

func (o *Overlay) SetViewport(width, height int) {
	o.width, o.height = width, height
	if o.font != nil {
		o.font.SetViewport(width, height)
	}
}

func (o *Overlay) Toggle() { o.Enabled = !o.Enabled }

func (o *Overlay) Render(ctx renderer.RenderContext) {
	o.frames++
	o.elapsed += ctx.DT
	if o.elapsed >= 1 {
		o.fps = float64(o.frames) / o.elapsed
		o.frames, o.elapsed = 0, 0
	}

	if !o.Enabled || o.font == nil {
		return
	}
	defer profiling.Track("render.overlay")()

	st := ctx.Scheduler.Stats()
	pos := ctx.Flyer.Position
	agl := "n/a"
	if ground, ok := ctx.Scheduler.HeightAt(pos.X(), pos.Z()); ok {
		agl = fmt.Sprintf("%.0f", pos.Y()-ground)
	}

	lines := []string{
		fmt.Sprintf("fps %.0f", o.fps),
		fmt.Sprintf("pos %.0f %.0f %.0f  agl %s", pos.X(), pos.Y(), pos.Z(), agl),
		fmt.Sprintf("chunks active %d queued %d building %d", st.Active, st.Queued, st.Building),
		fmt.Sprintf("jobs pending %d in-flight %d  stitch cache %d", st.PendingJobs, st.InFlight, st.StitchCached),
		profiling.TopN(4),
	}

	o.font.RenderLines(lines, 10, 24, 20, 1, mgl32.Vec3{1, 1, 1})
}

func (o *Overlay) Dispose() {
	if o.font != nil {
		o.font.Dispose()
	}
}
