package player

import (
	"math"

	"terradrift/internal/input"
	"terradrift/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MouseSensitivity = 0.1 // degrees per pixel
	PitchLimit       = 89.0

	BaseSpeed       = 40.0 // meters per second near the ground
	BoostMultiplier = 4.0
	SlowMultiplier  = 0.25
	// Speed grows with height above ground so crossing the map does not take
	// all day: speed = BaseSpeed * max(1, agl*AGLSpeedScale).
	AGLSpeedScale = 0.01

	MinClearance = 2.0
)

// GroundSampler reports the terrain height under a world XZ position.
// ok=false means no ground data is loaded there yet.
type GroundSampler func(x, z float32) (float32, bool)

// MoveIntent is one frame of control input, decoupled from the window system
// so the flight model is testable headless.
type MoveIntent struct {
	Forward, Strafe, Vertical float32 // each in [-1, 1]
	Boost, Slow               bool
	MouseDX, MouseDY          float64
}

// IntentFrom reads the current input state into a MoveIntent.
func IntentFrom(im *input.Manager) MoveIntent {
	var it MoveIntent
	if im.IsActive(input.ActionMoveForward) {
		it.Forward++
	}
	if im.IsActive(input.ActionMoveBackward) {
		it.Forward--
	}
	if im.IsActive(input.ActionMoveRight) {
		it.Strafe++
	}
	if im.IsActive(input.ActionMoveLeft) {
		it.Strafe--
	}
	if im.IsActive(input.ActionAscend) {
		it.Vertical++
	}
	if im.IsActive(input.ActionDescend) {
		it.Vertical--
	}
	it.Boost = im.IsActive(input.ActionBoost)
	it.Slow = im.IsActive(input.ActionSlow)
	it.MouseDX, it.MouseDY = im.MouseDelta()
	return it
}

// Flyer is the free-flight camera body: five degrees of freedom (position
// plus yaw and pitch, no roll).
type Flyer struct {
	Position mgl32.Vec3
	Yaw      float64 // degrees, 0 looks toward -Z
	Pitch    float64 // degrees, positive looks up
}

// NewFlyer starts at the given position looking toward -Z, slightly down.
func NewFlyer(pos mgl32.Vec3) *Flyer {
	return &Flyer{Position: pos, Yaw: 0, Pitch: -15}
}

// Forward returns the unit view direction.
func (f *Flyer) Forward() mgl32.Vec3 {
	yaw := mgl32.DegToRad(float32(f.Yaw))
	pitch := mgl32.DegToRad(float32(f.Pitch))
	cp := float32(math.Cos(float64(pitch)))
	return mgl32.Vec3{
		float32(math.Sin(float64(yaw))) * cp,
		float32(math.Sin(float64(pitch))),
		-float32(math.Cos(float64(yaw))) * cp,
	}
}

// Right returns the unit strafe direction on the horizontal plane.
func (f *Flyer) Right() mgl32.Vec3 {
	yaw := mgl32.DegToRad(float32(f.Yaw))
	return mgl32.Vec3{float32(math.Cos(float64(yaw))), 0, float32(math.Sin(float64(yaw)))}
}

// Speed returns the current travel speed for a given height above ground.
// agl < 0 (unknown ground) leaves the altitude scaling off.
func (f *Flyer) speed(agl float32, it MoveIntent) float32 {
	s := float32(BaseSpeed)
	if agl > 0 {
		scale := agl * AGLSpeedScale
		if scale > 1 {
			s *= scale
		}
	}
	if it.Boost {
		s *= BoostMultiplier
	}
	if it.Slow {
		s *= SlowMultiplier
	}
	return s
}

// Update advances the flyer by one frame. Ground data may be missing while
// chunks stream in; in that case neither altitude speed scaling nor the
// clearance floor applies, and the flyer keeps its commanded motion.
func (f *Flyer) Update(dt float64, it MoveIntent, ground GroundSampler) {
	defer profiling.Track("player.flight.update")()

	f.Yaw += it.MouseDX * MouseSensitivity
	f.Pitch -= it.MouseDY * MouseSensitivity
	if f.Pitch > PitchLimit {
		f.Pitch = PitchLimit
	}
	if f.Pitch < -PitchLimit {
		f.Pitch = -PitchLimit
	}

	agl := float32(-1)
	groundY, haveGround := ground(f.Position.X(), f.Position.Z())
	if haveGround {
		agl = f.Position.Y() - groundY
	}

	dir := f.Forward().Mul(it.Forward).
		Add(f.Right().Mul(it.Strafe)).
		Add(mgl32.Vec3{0, it.Vertical, 0})
	if l := dir.Len(); l > 1e-6 {
		dir = dir.Mul(1 / l)
		f.Position = f.Position.Add(dir.Mul(f.speed(agl, it) * float32(dt)))
	}

	// Clearance floor, after movement so diving levels out at the surface.
	if groundY, ok := ground(f.Position.X(), f.Position.Z()); ok {
		if floor := groundY + MinClearance; f.Position.Y() < floor {
			f.Position[1] = floor
		}
	}
}
