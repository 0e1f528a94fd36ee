package rocks

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// ProtoMesh is one detail tier of a rock prototype: a closed triangle mesh
// normalized to unit diameter around the origin.
type ProtoMesh struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
}

// Prototype is one procedurally generated rock shape with decimated variants.
// Levels[0] is the most detailed.
type Prototype struct {
	ID     int
	Levels []ProtoMesh
}

// Library holds the fixed prototype set, generated once at startup and shared
// by id across all chunks. Immutable after construction.
type Library struct {
	protos []Prototype
}

// NewLibrary generates size prototypes with detailLevels tiers each and
// validates them exhaustively. A validation failure is a configuration error
// and should abort startup.
func NewLibrary(seed int64, size, detailLevels int) (*Library, error) {
	if size <= 0 {
		return nil, fmt.Errorf("rock library size must be positive, got %d", size)
	}
	if detailLevels <= 0 {
		return nil, fmt.Errorf("rock detail levels must be positive, got %d", detailLevels)
	}
	lib := &Library{protos: make([]Prototype, size)}
	for id := 0; id < size; id++ {
		proto := Prototype{ID: id, Levels: make([]ProtoMesh, detailLevels)}
		protoSeed := seed + int64(id)*7919
		for lvl := 0; lvl < detailLevels; lvl++ {
			// Highest tier gets the most subdivisions.
			subdiv := detailLevels - 1 - lvl
			if subdiv > 3 {
				subdiv = 3
			}
			proto.Levels[lvl] = buildRockMesh(protoSeed, subdiv)
		}
		lib.protos[id] = proto
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Size returns the number of prototypes.
func (l *Library) Size() int { return len(l.protos) }

// Prototype returns the prototype for an id. An unknown id is a configuration
// error surfaced to the caller.
func (l *Library) Prototype(id int) (*Prototype, error) {
	if id < 0 || id >= len(l.protos) {
		return nil, fmt.Errorf("unknown rock prototype id %d (library size %d)", id, len(l.protos))
	}
	return &l.protos[id], nil
}

// Validate checks every prototype mesh before first use.
func (l *Library) Validate() error {
	for i := range l.protos {
		p := &l.protos[i]
		if len(p.Levels) == 0 {
			return fmt.Errorf("prototype %d has no detail levels", p.ID)
		}
		for lvl, m := range p.Levels {
			if len(m.Positions) == 0 || len(m.Indices) == 0 {
				return fmt.Errorf("prototype %d level %d is empty", p.ID, lvl)
			}
			if len(m.Positions)%3 != 0 || len(m.Indices)%3 != 0 {
				return fmt.Errorf("prototype %d level %d has malformed arrays", p.ID, lvl)
			}
			if len(m.Normals) != len(m.Positions) {
				return fmt.Errorf("prototype %d level %d normal count mismatch", p.ID, lvl)
			}
			verts := uint32(len(m.Positions) / 3)
			for _, idx := range m.Indices {
				if idx >= verts {
					return fmt.Errorf("prototype %d level %d index %d out of range", p.ID, lvl, idx)
				}
			}
		}
	}
	return nil
}

// buildRockMesh deforms a subdivided icosahedron into an irregular boulder:
// per-vertex radial displacement from seeded 3D noise plus an anisotropic
// squash, then normalization to unit diameter.
func buildRockMesh(seed int64, subdivisions int) ProtoMesh {
	positions, indices := icosphere(subdivisions)

	noise := opensimplex.New(seed)
	rng := rand.New(rand.NewSource(seed))
	squashX := 0.7 + rng.Float64()*0.6
	squashY := 0.6 + rng.Float64()*0.5
	squashZ := 0.7 + rng.Float64()*0.6
	roughness := 0.25 + rng.Float64()*0.2

	maxR := 0.0
	for i := 0; i < len(positions); i += 3 {
		x, y, z := positions[i], positions[i+1], positions[i+2]
		r := 1 + roughness*noise.Eval3(x*1.8, y*1.8, z*1.8)
		x *= r * squashX
		y *= r * squashY
		z *= r * squashZ
		positions[i], positions[i+1], positions[i+2] = x, y, z
		if d := math.Sqrt(x*x + y*y + z*z); d > maxR {
			maxR = d
		}
	}
	// Normalize so the bounding radius is 0.5 (unit diameter); instance
	// transforms then scale directly by rock diameter.
	inv := 0.5 / maxR
	out := ProtoMesh{
		Positions: make([]float32, len(positions)),
		Indices:   indices,
	}
	for i, v := range positions {
		out.Positions[i] = float32(v * inv)
	}
	out.Normals = vertexNormals(out.Positions, indices)
	return out
}

// icosphere returns a unit icosahedron subdivided n times, vertices on the
// unit sphere.
func icosphere(n int) ([]float64, []uint32) {
	t := (1 + math.Sqrt(5)) / 2
	raw := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	positions := make([]float64, 0, len(raw)*3)
	for _, v := range raw {
		l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		positions = append(positions, v[0]/l, v[1]/l, v[2]/l)
	}
	indices := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	for s := 0; s < n; s++ {
		midCache := make(map[[2]uint32]uint32)
		mid := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if m, ok := midCache[key]; ok {
				return m
			}
			ax, ay, az := positions[a*3], positions[a*3+1], positions[a*3+2]
			bx, by, bz := positions[b*3], positions[b*3+1], positions[b*3+2]
			mx, my, mz := (ax+bx)/2, (ay+by)/2, (az+bz)/2
			l := math.Sqrt(mx*mx + my*my + mz*mz)
			idx := uint32(len(positions) / 3)
			positions = append(positions, mx/l, my/l, mz/l)
			midCache[key] = idx
			return idx
		}
		next := make([]uint32, 0, len(indices)*4)
		for i := 0; i < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			ab, bc, ca := mid(a, b), mid(b, c), mid(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca)
		}
		indices = next
	}
	return positions, indices
}

// vertexNormals accumulates area-weighted face normals per vertex.
func vertexNormals(positions []float32, indices []uint32) []float32 {
	normals := make([]float32, len(positions))
	for i := 0; i < len(indices); i += 3 {
		a, b, c := indices[i]*3, indices[i+1]*3, indices[i+2]*3
		ux := positions[b] - positions[a]
		uy := positions[b+1] - positions[a+1]
		uz := positions[b+2] - positions[a+2]
		vx := positions[c] - positions[a]
		vy := positions[c+1] - positions[a+1]
		vz := positions[c+2] - positions[a+2]
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx
		for _, vi := range []uint32{a, b, c} {
			normals[vi] += nx
			normals[vi+1] += ny
			normals[vi+2] += nz
		}
	}
	for i := 0; i < len(normals); i += 3 {
		l := float32(math.Sqrt(float64(normals[i]*normals[i] + normals[i+1]*normals[i+1] + normals[i+2]*normals[i+2])))
		if l > 0 {
			normals[i] /= l
			normals[i+1] /= l
			normals[i+2] /= l
		}
	}
	return normals
}
