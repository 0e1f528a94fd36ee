package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ScreenSpaceSize projects a world-space extent to on-screen pixels:
// (worldSize / distance) * viewportHeight * cot(fov/2).
func ScreenSpaceSize(worldSize, distance, fovDeg, viewportHeight float32) float32 {
	if distance < 1e-3 {
		distance = 1e-3
	}
	cot := float32(1 / math.Tan(float64(mgl32.DegToRad(fovDeg))/2))
	return worldSize / distance * viewportHeight * cot
}

// TargetLOD maps a screen-space size to the highest LOD whose threshold it
// meets. Thresholds must be monotonically increasing, coarsest LOD first.
func TargetLOD(screenSize float32, thresholds []float32) int {
	target := 0
	for lod := 1; lod < len(thresholds); lod++ {
		if screenSize >= thresholds[lod] {
			target = lod
		} else {
			break
		}
	}
	return target
}
