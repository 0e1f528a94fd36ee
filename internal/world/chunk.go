package world

import (
	"fmt"

	"terradrift/internal/meshing"
)

// ChunkCoord addresses one fixed-size square terrain cell on the XZ grid.
type ChunkCoord struct {
	X, Z int
}

// Key packs the coordinate into a single map/buffer key.
func (c ChunkCoord) Key() int64 {
	return int64(c.X)<<32 | int64(uint32(c.Z))
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// ChunkState is the lifecycle stage of a chunk. Transitions are monotonic:
// Queued -> Building -> Active -> Disposing -> removed.
type ChunkState int

const (
	StateQueued ChunkState = iota
	StateBuilding
	StateActive
	StateDisposing
)

func (s ChunkState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateBuilding:
		return "building"
	case StateActive:
		return "active"
	case StateDisposing:
		return "disposing"
	}
	return "unknown"
}

// Chunk is one streamed terrain cell. Owned exclusively by the scheduler;
// workers never see it.
type Chunk struct {
	Coord ChunkCoord
	State ChunkState

	// Epoch distinguishes this incarnation from an earlier chunk at the same
	// coordinate, so late worker results for a recreated coord are rejected.
	Epoch uint64

	// HighestLOD only ever increases, one level at a time. -1 until the first
	// build lands.
	HighestLOD int
	// RenderLOD is the LOD currently being drawn (== HighestLOD once Active).
	RenderLOD int

	// Meshes holds one entry per LOD, filled as builds complete.
	Meshes []*meshing.Mesh
	// Indices is the current index buffer for RenderLOD: the regular grid, or
	// a stitched variant while any neighbor renders coarser.
	Indices []uint32

	// MeshVersion increments whenever Meshes/Indices change, for renderer
	// upload dirty-tracking.
	MeshVersion uint64

	LastTouchedFrame uint64

	// buildPriority is this frame's queue priority while Queued (lower is
	// sooner).
	buildPriority float32
}

// Mesh returns the mesh for the current render LOD, nil while none is built.
func (c *Chunk) Mesh() *meshing.Mesh {
	if c.RenderLOD < 0 || c.RenderLOD >= len(c.Meshes) {
		return nil
	}
	return c.Meshes[c.RenderLOD]
}
