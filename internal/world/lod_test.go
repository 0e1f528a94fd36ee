package world

import (
	"math"
	"testing"
)

func TestScreenSpaceSizeShrinksWithDistance(t *testing.T) {
	near := ScreenSpaceSize(256, 100, 70, 900)
	far := ScreenSpaceSize(256, 1000, 70, 900)
	if near <= far {
		t.Fatalf("screen size should shrink with distance: near %f far %f", near, far)
	}
	if math.Abs(float64(near/far-10)) > 1e-3 {
		t.Fatalf("screen size should scale as 1/distance: ratio %f", near/far)
	}
}

func TestScreenSpaceSizeClampsTinyDistance(t *testing.T) {
	if s := ScreenSpaceSize(256, 0, 70, 900); math.IsInf(float64(s), 0) || math.IsNaN(float64(s)) {
		t.Fatalf("degenerate distance produced %f", s)
	}
}

func TestTargetLOD(t *testing.T) {
	thresholds := []float32{0, 220, 440, 880}
	cases := []struct {
		size float32
		want int
	}{
		{0, 0},
		{219, 0},
		{220, 1},
		{439, 1},
		{440, 2},
		{5000, 3},
	}
	for _, c := range cases {
		if got := TargetLOD(c.size, thresholds); got != c.want {
			t.Errorf("TargetLOD(%f) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestTargetLODSingleLevel(t *testing.T) {
	if got := TargetLOD(1e6, []float32{0}); got != 0 {
		t.Fatalf("single-level table must always map to 0, got %d", got)
	}
}
