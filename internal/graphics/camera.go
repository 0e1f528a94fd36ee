package graphics

import "github.com/go-gl/mathgl/mgl32"

// Camera holds the projection parameters. View comes from the flyer.
type Camera struct {
	Width, Height int
	FOV           float32
	NearPlane     float32
	FarPlane      float32
}

func NewCamera(width, height int) *Camera {
	return &Camera{
		Width:     width,
		Height:    height,
		FOV:       70.0,
		NearPlane: 0.5,
		// Terrain vistas reach tens of kilometers at altitude.
		FarPlane: 60000.0,
	}
}

func (c *Camera) AspectRatio() float32 {
	if c.Height == 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio(), c.NearPlane, c.FarPlane)
}

// ViewMatrix looks from pos along forward with world-up.
func (c *Camera) ViewMatrix(pos, forward mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(pos, pos.Add(forward), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) SetViewport(width, height int) {
	c.Width, c.Height = width, height
}
