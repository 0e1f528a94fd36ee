package main

import (
	"time"

	"terradrift/internal/game"
	"terradrift/internal/input"
	"terradrift/internal/player"
	"terradrift/internal/profiling"
	"terradrift/internal/world"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GameLoop owns per-frame sequencing: input, flight, streaming, rendering.
type GameLoop struct {
	window *glfw.Window
	c      *Components

	paused     bool
	fpsLimiter *game.FPSLimiter
	lastTime   time.Time
}

func NewGameLoop(window *glfw.Window, c *Components) *GameLoop {
	return &GameLoop{
		window:     window,
		c:          c,
		fpsLimiter: game.NewFPSLimiter(),
		lastTime:   time.Now(),
	}
}

func (gl *GameLoop) Run() {
	for !gl.window.ShouldClose() {
		gl.tick()
	}
}

func (gl *GameLoop) tick() {
	profiling.ResetFrame()
	now := time.Now()
	dt := now.Sub(gl.lastTime).Seconds()
	gl.lastTime = now
	if dt > 0.25 {
		// Debugger stops and window drags produce huge deltas; clamp them
		// so the flyer does not warp.
		dt = 0.25
	}

	func() { defer profiling.Track("glfw.pollEvents")(); glfw.PollEvents() }()

	gl.handleToggles()

	im := gl.c.Input
	if gl.paused {
		im.MouseDelta() // discard, or the camera snaps on resume
	} else {
		gl.c.Flyer.Update(dt, player.IntentFrom(im), gl.c.Scheduler.HeightAt)
	}

	cam := gl.cameraState()
	gl.c.Scheduler.Update(cam)

	gl.c.Renderer.Render(gl.c.Scheduler, gl.c.Batcher, gl.c.Flyer, dt)

	func() { defer profiling.Track("glfw.swapBuffers")(); gl.window.SwapBuffers() }()

	im.EndFrame()
	gl.fpsLimiter.Wait()
}

func (gl *GameLoop) handleToggles() {
	im := gl.c.Input
	if im.JustPressed(input.ActionPause) {
		gl.paused = !gl.paused
		if gl.paused {
			gl.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		} else {
			gl.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		}
	}
	if im.JustPressed(input.ActionToggleWireframe) {
		gl.c.Renderer.ToggleWireframe()
	}
	if im.JustPressed(input.ActionToggleOverlay) {
		gl.c.Overlay.Toggle()
	}
}

func (gl *GameLoop) cameraState() world.CameraState {
	camera := gl.c.Renderer.Camera()
	flyer := gl.c.Flyer
	view := camera.ViewMatrix(flyer.Position, flyer.Forward())
	proj := camera.ProjectionMatrix()
	return world.CameraState{
		Position:       flyer.Position,
		Forward:        flyer.Forward(),
		FOVDeg:         camera.FOV,
		ViewportHeight: float32(camera.Height),
		ViewProj:       proj.Mul4(view),
	}
}
