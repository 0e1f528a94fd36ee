package world

import "github.com/go-gl/mathgl/mgl32"

// AABBIntersectsFrustum tests a world-space AABB against the camera frustum
// using clip-space half-space tests. clip is projection * view. The test is
// conservative: a box whose corners straddle different planes may pass even
// when the box itself is outside, which only costs a wasted build.
func AABBIntersectsFrustum(min, max mgl32.Vec3, clip mgl32.Mat4) bool {
	corners := [8]mgl32.Vec4{
		{min.X(), min.Y(), min.Z(), 1},
		{max.X(), min.Y(), min.Z(), 1},
		{min.X(), max.Y(), min.Z(), 1},
		{max.X(), max.Y(), min.Z(), 1},
		{min.X(), min.Y(), max.Z(), 1},
		{max.X(), min.Y(), max.Z(), 1},
		{min.X(), max.Y(), max.Z(), 1},
		{max.X(), max.Y(), max.Z(), 1},
	}
	var v [8]mgl32.Vec4
	for i := range corners {
		v[i] = clip.Mul4x1(corners[i])
	}

	// A corner is inside plane k when sign*axis - w <= 0. If all eight corners
	// are outside any single plane the box cannot intersect the frustum.
	planes := [6]struct {
		axis int
		sign float32
	}{
		{0, 1}, {0, -1}, // right, left
		{1, 1}, {1, -1}, // top, bottom
		{2, 1}, {2, -1}, // far, near
	}
	for _, p := range planes {
		allOutside := true
		for i := range v {
			if p.sign*v[i][p.axis]-v[i].W() <= 0 {
				allOutside = false
				break
			}
		}
		if allOutside {
			return false
		}
	}
	return true
}

// chunkAABB returns the vertical-slab bounding box of a chunk: full chunk
// footprint on XZ, [0, maxHeight] on Y, inflated by margin on all sides.
func chunkAABB(c ChunkCoord, chunkSize float64, maxHeight, margin float32) (mgl32.Vec3, mgl32.Vec3) {
	s := float32(chunkSize)
	min := mgl32.Vec3{float32(c.X)*s - margin, -margin, float32(c.Z)*s - margin}
	max := mgl32.Vec3{float32(c.X+1)*s + margin, maxHeight + margin, float32(c.Z+1)*s + margin}
	return min, max
}
