package instancing

import (
	"log"
	"math"

	"terradrift/internal/rocks"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshKey identifies one shared instance buffer.
type MeshKey struct {
	Prototype int
	Detail    int
}

// Allocation records a chunk's slot range inside one buffer.
type Allocation struct {
	Key   MeshKey
	Start int
	Count int
}

// Buffer is a fixed-capacity instance transform array for one (prototype,
// detail) pair. Slots are bump-allocated; releases only retract the active
// count when the freed range is the tail, otherwise the range becomes an
// inert hole.
type Buffer struct {
	Key        MeshKey
	transforms []mgl32.Mat4
	active     int
	version    uint64

	// Grow-only bounds over ingested instance positions; reset when the
	// buffer empties.
	boundsMin, boundsMax mgl32.Vec3
	hasBounds            bool
}

// ActiveCount returns the number of live slots (including holes).
func (b *Buffer) ActiveCount() int { return b.active }

// Capacity returns the fixed slot capacity.
func (b *Buffer) Capacity() int { return len(b.transforms) }

// Version increments whenever the buffer contents change, for upload dirty
// tracking.
func (b *Buffer) Version() uint64 { return b.version }

// Transforms returns the live slot range. Not to be mutated by callers.
func (b *Buffer) Transforms() []mgl32.Mat4 { return b.transforms[:b.active] }

// BoundingSphere returns a coarse world-space bound over the buffer's
// instances.
func (b *Buffer) BoundingSphere() (mgl32.Vec3, float32) {
	if !b.hasBounds {
		return mgl32.Vec3{}, 0
	}
	center := b.boundsMin.Add(b.boundsMax).Mul(0.5)
	radius := b.boundsMax.Sub(center).Len()
	return center, radius
}

// Batcher owns one shared instance buffer per (prototype, detail) pair and
// the per-chunk allocation records within them.
type Batcher struct {
	capacity int
	buffers  map[MeshKey]*Buffer
	allocs   map[int64][]Allocation
}

// NewBatcher creates a batcher whose buffers each hold capacityPerBuffer
// instances.
func NewBatcher(capacityPerBuffer int) *Batcher {
	if capacityPerBuffer < 1 {
		capacityPerBuffer = 1
	}
	return &Batcher{
		capacity: capacityPerBuffer,
		buffers:  make(map[MeshKey]*Buffer),
		allocs:   make(map[int64][]Allocation),
	}
}

// buffer returns (creating on demand) the buffer for a key.
func (bt *Batcher) buffer(key MeshKey) *Buffer {
	b, ok := bt.buffers[key]
	if !ok {
		b = &Buffer{Key: key, transforms: make([]mgl32.Mat4, bt.capacity)}
		bt.buffers[key] = b
	}
	return b
}

// Ingest copies a chunk's placement groups into the shared buffers for the
// given rock detail level, applying the chunk-to-world translation to each
// transform. A group that does not fit is dropped whole with a warning;
// rendering continues with partial coverage.
func (bt *Batcher) Ingest(chunkKey int64, detail int, offset mgl32.Vec3, groups []rocks.PlacementGroup) {
	for _, g := range groups {
		key := MeshKey{Prototype: g.PrototypeID, Detail: detail}
		b := bt.buffer(key)
		n := len(g.Transforms)
		if n == 0 {
			continue
		}
		if b.active+n > len(b.transforms) {
			log.Printf("instancing: buffer %v full (%d/%d), dropping %d instances for chunk %d",
				key, b.active, len(b.transforms), n, chunkKey)
			continue
		}
		start := b.active
		for i, m := range g.Transforms {
			m[12] += offset.X()
			m[13] += offset.Y()
			m[14] += offset.Z()
			b.transforms[start+i] = m
			b.growBounds(mgl32.Vec3{m[12], m[13], m[14]})
		}
		b.active += n
		b.version++
		bt.allocs[chunkKey] = append(bt.allocs[chunkKey], Allocation{Key: key, Start: start, Count: n})
	}
}

func (b *Buffer) growBounds(p mgl32.Vec3) {
	if !b.hasBounds {
		b.boundsMin, b.boundsMax = p, p
		b.hasBounds = true
		return
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.boundsMin[i] {
			b.boundsMin[i] = p[i]
		}
		if p[i] > b.boundsMax[i] {
			b.boundsMax[i] = p[i]
		}
	}
}

// Release frees all of a chunk's allocations. Tail ranges retract the active
// count; interior ranges become inert holes: their slots are overwritten with
// the zero matrix so the renderer, which draws the full active range, emits
// degenerate (invisible) geometry for them. Non-compacting.
func (bt *Batcher) Release(chunkKey int64) {
	allocs, ok := bt.allocs[chunkKey]
	if !ok {
		return
	}
	delete(bt.allocs, chunkKey)
	// Walk newest-first so consecutive tail ranges retract in one pass.
	for i := len(allocs) - 1; i >= 0; i-- {
		a := allocs[i]
		b, ok := bt.buffers[a.Key]
		if !ok {
			continue
		}
		if a.Start+a.Count == b.active {
			b.active = a.Start
		} else {
			var zero mgl32.Mat4
			for j := a.Start; j < a.Start+a.Count && j < b.active; j++ {
				b.transforms[j] = zero
			}
		}
		b.version++
		if b.active == 0 {
			b.hasBounds = false
		}
	}
}

// Allocations returns a chunk's current allocation records (nil when none).
func (bt *Batcher) Allocations(chunkKey int64) []Allocation {
	return bt.allocs[chunkKey]
}

// ForEachBuffer visits every buffer, including empty ones.
func (bt *Batcher) ForEachBuffer(fn func(*Buffer)) {
	for _, b := range bt.buffers {
		fn(b)
	}
}

// VisibleBuffers performs batch-granularity culling: a whole buffer is hidden
// when its bounding sphere's projected diameter falls below minPixels.
func (bt *Batcher) VisibleBuffers(camPos mgl32.Vec3, fovDeg, viewportH, minPixels float32) []*Buffer {
	var out []*Buffer
	cot := float32(1 / math.Tan(float64(mgl32.DegToRad(fovDeg))/2))
	for _, b := range bt.buffers {
		if b.active == 0 || !b.hasBounds {
			continue
		}
		center, radius := b.BoundingSphere()
		dist := center.Sub(camPos).Len()
		if dist <= radius {
			out = append(out, b) // camera inside the bound
			continue
		}
		pixels := (2 * radius / dist) * viewportH * cot
		if pixels >= minPixels {
			out = append(out, b)
		}
	}
	return out
}
