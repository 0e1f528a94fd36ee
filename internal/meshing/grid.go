package meshing

import (
	"terradrift/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is the CPU-side geometry for one chunk at one LOD. Positions are
// world-space. Indices hold the regular (unstitched) grid triangulation;
// the scheduler swaps in a stitched buffer when neighbors are coarser.
type Mesh struct {
	Resolution   int
	Positions    []float32 // 3 per vertex
	Normals      []float32 // 3 per vertex
	BiomeWeights []float32 // terrain.NumBiomes per vertex
	Indices      []uint32
}

// VertexCount returns the number of vertices in the grid.
func (m *Mesh) VertexCount() int {
	return (m.Resolution + 1) * (m.Resolution + 1)
}

// BuildHeightGrid builds a displaced (res+1)x(res+1) vertex grid for the chunk
// at (cx, cz) spanning world-space [c*size, (c+1)*size] on both axes.
// Pure function of its inputs; safe to run on any worker.
func BuildHeightGrid(cx, cz, res int, size float64, ev *terrain.Evaluator) *Mesh {
	verts := (res + 1) * (res + 1)
	m := &Mesh{
		Resolution:   res,
		Positions:    make([]float32, 0, verts*3),
		Normals:      make([]float32, 0, verts*3),
		BiomeWeights: make([]float32, 0, verts*terrain.NumBiomes),
	}

	baseX := float64(cx) * size
	baseZ := float64(cz) * size
	step := size / float64(res)
	strength := ev.Params().HeightStrength

	for iz := 0; iz <= res; iz++ {
		wz := baseZ + float64(iz)*step
		for ix := 0; ix <= res; ix++ {
			wx := baseX + float64(ix)*step
			h, weights := ev.HeightAndBiomes(wx, wz)
			y := h * strength // bit-identical to ev.HeightAt(wx, wz)

			m.Positions = append(m.Positions, float32(wx), y, float32(wz))

			// Central differences on the displaced surface. Neighboring chunks
			// at the same LOD take identical taps at shared vertices, so
			// normals agree across borders.
			hl := ev.Height01(wx-step, wz) * strength
			hr := ev.Height01(wx+step, wz) * strength
			hd := ev.Height01(wx, wz-step) * strength
			hu := ev.Height01(wx, wz+step) * strength
			n := mgl32.Vec3{hl - hr, float32(2 * step), hd - hu}.Normalize()
			m.Normals = append(m.Normals, n.X(), n.Y(), n.Z())

			m.BiomeWeights = append(m.BiomeWeights, weights[:]...)
		}
	}

	m.Indices = GridIndices(res)
	return m
}

// GridIndices returns the regular two-triangles-per-cell index buffer for a
// res x res quad grid, consistently wound.
func GridIndices(res int) []uint32 {
	out := make([]uint32, 0, res*res*6)
	stride := uint32(res + 1)
	for z := 0; z < res; z++ {
		for x := 0; x < res; x++ {
			v00 := uint32(z)*stride + uint32(x)
			v10 := v00 + 1
			v01 := v00 + stride
			v11 := v01 + 1
			out = append(out, v00, v01, v11)
			out = append(out, v00, v11, v10)
		}
	}
	return out
}
