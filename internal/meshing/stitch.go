package meshing

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Edge stitching removes cracks at LOD boundaries without moving or welding
// vertices: on each edge bordering a coarser neighbor, only every stepRatio-th
// edge vertex is referenced ("snapped" to the coarse grid), and fan triangles
// bridge the snapped edge to the full-density interior row one cell inward.
// Stitching only ever reduces the finer side, so the stitched buffer is a pure
// function of (resolution, own LOD, four neighbor LODs).

// StitchKey identifies one stitched index buffer.
type StitchKey struct {
	Res    int
	OwnLOD int
	// Neighbor LODs in the four cardinal directions; -1 when the neighbor is
	// absent (treated as equal detail, no stitching).
	North, South, East, West int
}

// DefaultStitchCacheSize bounds the LRU of cached stitched buffers.
const DefaultStitchCacheSize = 256

// Stitcher computes and caches stitched index buffers. Resolution lookup per
// LOD is injected so the stitcher stays independent of configuration state.
type Stitcher struct {
	cache     *lru.Cache[StitchKey, []uint32]
	resForLOD func(lod int) int
}

// NewStitcher creates a stitcher with a bounded LRU cache. cacheSize <= 0
// falls back to DefaultStitchCacheSize.
func NewStitcher(cacheSize int, resForLOD func(lod int) int) *Stitcher {
	if cacheSize <= 0 {
		cacheSize = DefaultStitchCacheSize
	}
	c, err := lru.New[StitchKey, []uint32](cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Stitcher{cache: c, resForLOD: resForLOD}
}

// Indices returns the index buffer for the given configuration. The returned
// slice is shared with the cache and must not be mutated.
func (s *Stitcher) Indices(key StitchKey) []uint32 {
	if buf, ok := s.cache.Get(key); ok {
		return buf
	}
	buf := StitchedIndices(key.Res,
		s.stepFor(key.Res, key.North),
		s.stepFor(key.Res, key.South),
		s.stepFor(key.Res, key.East),
		s.stepFor(key.Res, key.West))
	s.cache.Add(key, buf)
	return buf
}

// CacheLen reports how many stitched buffers are currently cached.
func (s *Stitcher) CacheLen() int { return s.cache.Len() }

// stepFor computes the edge vertex stride toward a neighbor. 1 means the
// neighbor is absent, equal, or finer and the edge stays at full density.
func (s *Stitcher) stepFor(ownRes, neighborLOD int) int {
	if neighborLOD < 0 {
		return 1
	}
	nres := s.resForLOD(neighborLOD)
	if nres >= ownRes {
		return 1
	}
	step := int(math.Round(float64(ownRes) / float64(nres)))
	if step < 1 {
		step = 1
	}
	if step > ownRes {
		step = ownRes
	}
	return step
}

// StitchedIndices builds the index buffer for a res x res grid whose edges are
// reduced by the given per-direction steps (1 = untouched). With all steps at
// 1 the result equals GridIndices(res).
func StitchedIndices(res, stepNorth, stepSouth, stepEast, stepWest int) []uint32 {
	if stepNorth <= 1 && stepSouth <= 1 && stepEast <= 1 && stepWest <= 1 {
		return GridIndices(res)
	}

	stride := res + 1
	idx := func(x, z int) uint32 { return uint32(z*stride + x) }
	out := make([]uint32, 0, res*res*6)

	sn := stepNorth > 1
	ss := stepSouth > 1
	se := stepEast > 1
	sw := stepWest > 1

	// Interior pass: every cell except those touching a stitched edge.
	for z := 0; z < res; z++ {
		for x := 0; x < res; x++ {
			if (sw && x == 0) || (se && x == res-1) ||
				(ss && z == 0) || (sn && z == res-1) {
				continue
			}
			v00 := idx(x, z)
			v10 := idx(x+1, z)
			v01 := idx(x, z+1)
			v11 := idx(x+1, z+1)
			out = append(out, v00, v01, v11)
			out = append(out, v00, v11, v10)
		}
	}

	// Edge fans, fixed order: north, south, east, west. Each fan's interior
	// run is clipped against perpendicular stitched edges so the diagonals at
	// shared corners line up without extra vertices.
	if sn {
		out = appendEdgeFanZ(out, res, stepNorth, res, res-1, sw, se, idx)
	}
	if ss {
		out = appendEdgeFanZ(out, res, stepSouth, 0, 1, sw, se, idx)
	}
	if se {
		out = appendEdgeFanX(out, res, stepEast, res, res-1, ss, sn, idx)
	}
	if sw {
		out = appendEdgeFanX(out, res, stepWest, 0, 1, ss, sn, idx)
	}
	return out
}

// appendEdgeFanZ stitches a horizontal edge (constant z = edgeZ, interior row
// at innerZ), walking x in strides of step. clipLo/clipHi report whether the
// west/east edges are themselves stitched.
func appendEdgeFanZ(out []uint32, res, step, edgeZ, innerZ int, clipLo, clipHi bool, idx func(x, z int) uint32) []uint32 {
	lo, hi := 0, res
	if clipLo {
		lo = 1
	}
	if clipHi {
		hi = res - 1
	}
	flip := edgeZ > innerZ // north edge needs reversed winding
	for a := 0; a < res; a += step {
		b := a + step
		if b > res {
			b = res
		}
		iLo, iHi := max(a, lo), min(b, hi)
		ea := idx(a, edgeZ)
		for x := iLo; x < iHi; x++ {
			if flip {
				out = append(out, ea, idx(x+1, innerZ), idx(x, innerZ))
			} else {
				out = append(out, ea, idx(x, innerZ), idx(x+1, innerZ))
			}
		}
		if iHi >= iLo {
			eb := idx(b, edgeZ)
			if flip {
				out = append(out, ea, eb, idx(iHi, innerZ))
			} else {
				out = append(out, ea, idx(iHi, innerZ), eb)
			}
		}
	}
	return out
}

// appendEdgeFanX stitches a vertical edge (constant x = edgeX, interior column
// at innerX), walking z in strides of step. clipLo/clipHi report whether the
// south/north edges are themselves stitched.
func appendEdgeFanX(out []uint32, res, step, edgeX, innerX int, clipLo, clipHi bool, idx func(x, z int) uint32) []uint32 {
	lo, hi := 0, res
	if clipLo {
		lo = 1
	}
	if clipHi {
		hi = res - 1
	}
	flip := edgeX < innerX // west edge needs reversed winding
	for a := 0; a < res; a += step {
		b := a + step
		if b > res {
			b = res
		}
		iLo, iHi := max(a, lo), min(b, hi)
		ea := idx(edgeX, a)
		for z := iLo; z < iHi; z++ {
			if flip {
				out = append(out, ea, idx(innerX, z+1), idx(innerX, z))
			} else {
				out = append(out, ea, idx(innerX, z), idx(innerX, z+1))
			}
		}
		if iHi >= iLo {
			eb := idx(edgeX, b)
			if flip {
				out = append(out, ea, eb, idx(innerX, iHi))
			} else {
				out = append(out, ea, idx(innerX, iHi), eb)
			}
		}
	}
	return out
}
