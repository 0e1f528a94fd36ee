package rocks

import (
	"math"
	"math/rand"
	"sort"

	"terradrift/internal/config"
	"terradrift/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// Params configures procedural rock placement. The size-frequency law is
// N(>D) = DensityConst * D^Exponent, truncated to [minDiameter, MaxDiameter].
type Params struct {
	BaseMinDiameter float64
	MaxDiameter     float64
	DensityConst    float64
	Exponent        float64   // negative, typically around -2.5
	LODScale        []float64 // per-LOD multiplier on the minimum visible diameter
	BuryFraction    float64   // fraction of the diameter sunk below the surface
	LibrarySize     int
}

// DefaultParams returns placement parameters matching the default library.
func DefaultParams() Params {
	return Params{
		BaseMinDiameter: 4.0,
		MaxDiameter:     22.0,
		DensityConst:    0.15,
		Exponent:        -2.5,
		LODScale:        []float64{4.0, 2.5, 1.6, 1.0, 0.6},
		BuryFraction:    0.3,
		LibrarySize:     8,
	}
}

// ConfigParams builds placement parameters from the live settings.
func ConfigParams() Params {
	return Params{
		BaseMinDiameter: config.GetRockBaseMinDiameter(),
		MaxDiameter:     config.GetRockMaxDiameter(),
		DensityConst:    config.GetRockDensityConst(),
		Exponent:        config.GetRockExponent(),
		LODScale:        config.GetRockLODScale(),
		BuryFraction:    config.GetRockBuryFraction(),
		LibrarySize:     config.GetRockLibrarySize(),
	}
}

// PlacementGroup holds chunk-local instance transforms for one prototype.
// The batcher applies the chunk-to-world translation on ingest.
type PlacementGroup struct {
	PrototypeID int
	Transforms  []mgl32.Mat4
}

// ChunkSeed hashes a chunk key into a deterministic RNG seed, stable across
// platforms and runs.
func ChunkSeed(cx, cz int, worldSeed int64) int64 {
	v := uint64(int64(cx))*0x9E3779B97F4A7C15 + uint64(int64(cz))*0x6C62272E07BB0142 + uint64(worldSeed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v = v ^ (v >> 31)
	return int64(v)
}

// MinDiameter returns the smallest rock diameter generated at the given LOD.
func MinDiameter(p Params, lod int) float64 {
	scale := 1.0
	if len(p.LODScale) > 0 {
		if lod >= len(p.LODScale) {
			lod = len(p.LODScale) - 1
		}
		if lod < 0 {
			lod = 0
		}
		scale = p.LODScale[lod]
	}
	return p.BaseMinDiameter * scale
}

// ExpectedCount computes the rock count analytically from the power law and
// the chunk area, rather than by generating a superset and filtering.
func ExpectedCount(p Params, lod int, chunkSize float64) int {
	dmin := MinDiameter(p, lod)
	n := p.DensityConst * math.Pow(dmin, p.Exponent) * chunkSize * chunkSize
	if n < 0 {
		return 0
	}
	return int(math.Round(n))
}

// sampleDiameter draws from the truncated power law over [dmin, dmax] by
// inverse-CDF sampling.
func sampleDiameter(u, dmin, dmax, exponent float64) float64 {
	lo := math.Pow(dmin, exponent)
	hi := math.Pow(dmax, exponent)
	return math.Pow(lo+u*(hi-lo), 1/exponent)
}

// Generate produces the deterministic rock field for one chunk at one LOD,
// grouped by prototype id (ascending). The RNG stream derived from the chunk
// key is consumed in a fixed order per rock: position x, position z, diameter,
// prototype, yaw, pitch, roll. The same chunk, LOD and seed always reproduce
// the same field byte for byte.
func Generate(cx, cz, lod int, chunkSize float64, worldSeed int64, p Params, ev *terrain.Evaluator) []PlacementGroup {
	count := ExpectedCount(p, lod, chunkSize)
	if count <= 0 || p.LibrarySize <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(ChunkSeed(cx, cz, worldSeed)))
	dmin := MinDiameter(p, lod)
	baseX := float64(cx) * chunkSize
	baseZ := float64(cz) * chunkSize

	byProto := make(map[int][]mgl32.Mat4)
	for i := 0; i < count; i++ {
		lx := rng.Float64() * chunkSize
		lz := rng.Float64() * chunkSize
		d := sampleDiameter(rng.Float64(), dmin, p.MaxDiameter, p.Exponent)
		proto := rng.Intn(p.LibrarySize)
		yaw := rng.Float64() * 2 * math.Pi
		pitch := rng.Float64() * 2 * math.Pi
		roll := rng.Float64() * 2 * math.Pi

		// Same evaluator as the mesh, or rocks float above / sink below the
		// rendered surface.
		ground := float64(ev.HeightAt(baseX+lx, baseZ+lz))
		y := ground + d*(0.5-p.BuryFraction)

		df := float32(d)
		m := mgl32.Translate3D(float32(lx), float32(y), float32(lz)).
			Mul4(mgl32.HomogRotate3DY(float32(yaw))).
			Mul4(mgl32.HomogRotate3DX(float32(pitch))).
			Mul4(mgl32.HomogRotate3DZ(float32(roll))).
			Mul4(mgl32.Scale3D(df, df, df))
		byProto[proto] = append(byProto[proto], m)
	}

	ids := make([]int, 0, len(byProto))
	for id := range byProto {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	groups := make([]PlacementGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, PlacementGroup{PrototypeID: id, Transforms: byProto[id]})
	}
	return groups
}
