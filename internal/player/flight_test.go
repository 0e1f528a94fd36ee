package player

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func flatGround(h float32) GroundSampler {
	return func(x, z float32) (float32, bool) { return h, true }
}

func noGround(x, z float32) (float32, bool) { return 0, false }

func TestForwardMatchesYawPitch(t *testing.T) {
	f := NewFlyer(mgl32.Vec3{})
	f.Yaw, f.Pitch = 0, 0
	fw := f.Forward()
	if math.Abs(float64(fw.X())) > 1e-6 || math.Abs(float64(fw.Z()+1)) > 1e-6 {
		t.Fatalf("yaw 0 forward %v, want -Z", fw)
	}
	f.Yaw = 90
	fw = f.Forward()
	if math.Abs(float64(fw.X()-1)) > 1e-5 || math.Abs(float64(fw.Z())) > 1e-5 {
		t.Fatalf("yaw 90 forward %v, want +X", fw)
	}
}

func TestPitchClamped(t *testing.T) {
	f := NewFlyer(mgl32.Vec3{})
	f.Update(0.016, MoveIntent{MouseDY: -10000}, noGround)
	if f.Pitch != PitchLimit {
		t.Fatalf("pitch %f, want clamp at %f", f.Pitch, PitchLimit)
	}
	f.Update(0.016, MoveIntent{MouseDY: 10000}, noGround)
	if f.Pitch != -PitchLimit {
		t.Fatalf("pitch %f, want clamp at %f", f.Pitch, -PitchLimit)
	}
}

func TestClearanceFloor(t *testing.T) {
	f := NewFlyer(mgl32.Vec3{0, 50, 0})
	f.Pitch = -89
	// Dive hard for a while; the flyer must level out at ground + clearance.
	for i := 0; i < 200; i++ {
		f.Update(0.016, MoveIntent{Forward: 1}, flatGround(20))
	}
	want := float32(20 + MinClearance)
	if f.Position.Y() < want-1e-3 {
		t.Fatalf("flyer sank to %f, floor is %f", f.Position.Y(), want)
	}
}

func TestNoGroundNoFloor(t *testing.T) {
	f := NewFlyer(mgl32.Vec3{0, 5, 0})
	f.Update(1, MoveIntent{Vertical: -1}, noGround)
	if f.Position.Y() >= 5 {
		t.Fatal("descent was blocked with no ground data loaded")
	}
}

func TestSpeedScalesWithAltitude(t *testing.T) {
	low := NewFlyer(mgl32.Vec3{0, 10, 0})
	high := NewFlyer(mgl32.Vec3{0, 2000, 0})
	low.Pitch, high.Pitch = 0, 0
	it := MoveIntent{Forward: 1}

	low.Update(1, it, flatGround(0))
	high.Update(1, it, flatGround(0))

	lowDist := low.Position.Sub(mgl32.Vec3{0, 10, 0}).Len()
	highDist := high.Position.Sub(mgl32.Vec3{0, 2000, 0}).Len()
	if highDist <= lowDist {
		t.Fatalf("high flyer moved %f, low flyer %f; altitude should speed travel up", highDist, lowDist)
	}
	if math.Abs(float64(lowDist-BaseSpeed)) > 1e-2 {
		t.Fatalf("near-ground speed %f, want %f", lowDist, float32(BaseSpeed))
	}
}

func TestBoostMultiplier(t *testing.T) {
	plain := NewFlyer(mgl32.Vec3{0, 10, 0})
	boosted := NewFlyer(mgl32.Vec3{0, 10, 0})
	plain.Pitch, boosted.Pitch = 0, 0

	plain.Update(1, MoveIntent{Forward: 1}, flatGround(0))
	boosted.Update(1, MoveIntent{Forward: 1, Boost: true}, flatGround(0))

	ratio := boosted.Position.Sub(mgl32.Vec3{0, 10, 0}).Len() / plain.Position.Sub(mgl32.Vec3{0, 10, 0}).Len()
	if math.Abs(float64(ratio-BoostMultiplier)) > 1e-3 {
		t.Fatalf("boost ratio %f, want %f", ratio, float32(BoostMultiplier))
	}
}

func TestDiagonalNotFaster(t *testing.T) {
	straight := NewFlyer(mgl32.Vec3{0, 10, 0})
	diagonal := NewFlyer(mgl32.Vec3{0, 10, 0})
	straight.Pitch, diagonal.Pitch = 0, 0

	straight.Update(1, MoveIntent{Forward: 1}, flatGround(0))
	diagonal.Update(1, MoveIntent{Forward: 1, Strafe: 1}, flatGround(0))

	s := straight.Position.Sub(mgl32.Vec3{0, 10, 0}).Len()
	d := diagonal.Position.Sub(mgl32.Vec3{0, 10, 0}).Len()
	if d > s+1e-3 {
		t.Fatalf("diagonal moved %f, straight %f; input must be normalized", d, s)
	}
}
