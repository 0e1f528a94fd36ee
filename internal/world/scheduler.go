package world

import (
	"log"
	"math"
	"sort"

	"terradrift/internal/config"
	"terradrift/internal/instancing"
	"terradrift/internal/meshing"
	"terradrift/internal/profiling"
	"terradrift/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// BuildDispatcher is the scheduler's view of the background build workers.
// Satisfied by *meshing.Dispatcher; tests substitute a synchronous fake.
type BuildDispatcher interface {
	Submit(meshing.BuildRequest)
	Results() <-chan meshing.BuildResult
	InFlight() int
}

// CameraState is the per-frame camera snapshot the scheduler plans against.
type CameraState struct {
	Position       mgl32.Vec3
	Forward        mgl32.Vec3
	FOVDeg         float32
	ViewportHeight float32
	// ViewProj is projection * view, used for frustum culling.
	ViewProj mgl32.Mat4
}

// Config holds the scheduler's tuning knobs. DefaultConfig snapshots the
// process-wide settings; tests construct explicit values.
type Config struct {
	ChunkSize       float64
	LODResolutions  []int
	LODThresholds   []float32
	MinScreenPixels float32

	MaxTerrainHeight float32
	FrustumMargin    float32

	BaseViewDistance int
	DisposeBuffer    int
	AltitudeScale    float32

	BuildBudget      int
	LODUpgradeBudget int

	// MaxRetries bounds re-submission of failed build tasks per (chunk, LOD).
	MaxRetries int

	StitchCacheSize  int
	RockDetailLevels int
}

// DefaultConfig builds a Config from the live settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        config.GetChunkWorldSize(),
		LODResolutions:   config.GetLODResolutions(),
		LODThresholds:    config.GetLODThresholds(),
		MinScreenPixels:  config.GetMinScreenPixels(),
		MaxTerrainHeight: config.GetHeightStrength(),
		FrustumMargin:    float32(config.GetRockMaxDiameter()),
		BaseViewDistance: config.GetBaseViewDistance(),
		DisposeBuffer:    config.GetDisposeBuffer(),
		AltitudeScale:    config.GetAltitudeScale(),
		BuildBudget:      config.GetBuildBudget(),
		LODUpgradeBudget: config.GetLODUpgradeBudget(),
		MaxRetries:       2,
		StitchCacheSize:  meshing.DefaultStitchCacheSize,
		RockDetailLevels: config.GetRockDetailLevels(),
	}
}

type pendingKey struct {
	Coord ChunkCoord
	LOD   int
}

// Stats is a point-in-time summary for the debug overlay.
type Stats struct {
	Active       int
	Queued       int
	Building     int
	PendingJobs  int
	InFlight     int
	StitchCached int
}

// Scheduler owns the chunk lifecycle: it decides what to build, applies
// completed builds, keeps LOD transitions crack-free and unloads what fell
// out of range. All methods must be called from the game thread.
type Scheduler struct {
	cfg      Config
	ev       *terrain.Evaluator
	disp     BuildDispatcher
	batcher  *instancing.Batcher
	stitcher *meshing.Stitcher

	chunks  map[ChunkCoord]*Chunk
	pending map[pendingKey]struct{}
	retries map[pendingKey]int

	frame uint64
	epoch uint64
}

func NewScheduler(cfg Config, ev *terrain.Evaluator, disp BuildDispatcher, batcher *instancing.Batcher) *Scheduler {
	resForLOD := func(lod int) int {
		if lod < 0 || lod >= len(cfg.LODResolutions) {
			return cfg.LODResolutions[0]
		}
		return cfg.LODResolutions[lod]
	}
	return &Scheduler{
		cfg:      cfg,
		ev:       ev,
		disp:     disp,
		batcher:  batcher,
		stitcher: meshing.NewStitcher(cfg.StitchCacheSize, resForLOD),
		chunks:   make(map[ChunkCoord]*Chunk),
		pending:  make(map[pendingKey]struct{}),
		retries:  make(map[pendingKey]int),
	}
}

func (s *Scheduler) maxLOD() int { return len(s.cfg.LODResolutions) - 1 }

// ChunkCoordAt returns the chunk containing the world XZ position.
func (s *Scheduler) ChunkCoordAt(x, z float32) ChunkCoord {
	return ChunkCoord{
		X: int(math.Floor(float64(x) / s.cfg.ChunkSize)),
		Z: int(math.Floor(float64(z) / s.cfg.ChunkSize)),
	}
}

// Chunk returns the chunk at the coordinate, nil when none is loaded.
func (s *Scheduler) Chunk(c ChunkCoord) *Chunk { return s.chunks[c] }

// HeightAt reports the terrain height under a world XZ position, but only
// once the covering chunk is active; callers must treat ok=false as "no
// ground data yet", not as height zero.
func (s *Scheduler) HeightAt(x, z float32) (float32, bool) {
	ch := s.chunks[s.ChunkCoordAt(x, z)]
	if ch == nil || ch.State != StateActive {
		return 0, false
	}
	return s.ev.HeightAt(float64(x), float64(z)), true
}

// ForEachActive visits every active chunk. The chunks stay owned by the
// scheduler; callers must not retain them across frames.
func (s *Scheduler) ForEachActive(fn func(*Chunk)) {
	for _, ch := range s.chunks {
		if ch.State == StateActive {
			fn(ch)
		}
	}
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		PendingJobs:  len(s.pending),
		InFlight:     s.disp.InFlight(),
		StitchCached: s.stitcher.CacheLen(),
	}
	for _, ch := range s.chunks {
		switch ch.State {
		case StateActive:
			st.Active++
		case StateQueued:
			st.Queued++
		case StateBuilding:
			st.Building++
		}
	}
	return st
}

// Update runs one scheduling pass: apply finished builds, enqueue newly
// visible chunks, dispatch within budgets, request LOD upgrades and unload
// out-of-range chunks.
func (s *Scheduler) Update(cam CameraState) {
	defer profiling.Track("world.scheduler.update")()
	s.frame++

	s.applyCompletions()

	center := s.ChunkCoordAt(cam.Position.X(), cam.Position.Z())
	radius := s.effectiveViewDistance(cam)

	s.enqueueVisible(cam, center, radius)
	s.dispatchBuilds()
	s.requestUpgrades(cam)
	s.unloadDistant(center, radius)
}

// effectiveViewDistance widens the streamed radius with altitude so that a
// high camera still has terrain out to the horizon.
func (s *Scheduler) effectiveViewDistance(cam CameraState) int {
	alt := cam.Position.Y()
	if ground, ok := s.HeightAt(cam.Position.X(), cam.Position.Z()); ok {
		alt -= ground
	}
	scale := alt * s.cfg.AltitudeScale
	if scale < 1 {
		scale = 1
	}
	return int(math.Ceil(float64(s.cfg.BaseViewDistance) * float64(scale)))
}

// enqueueVisible walks expanding square rings around the camera and creates
// Queued chunks for visible coordinates that are not yet loaded. Priorities
// of already-queued chunks are refreshed so the sort below reflects the
// current camera.
func (s *Scheduler) enqueueVisible(cam CameraState, center ChunkCoord, radius int) {
	for r := 0; r <= radius; r++ {
		s.forEachRing(center, r, func(c ChunkCoord) {
			if ch, ok := s.chunks[c]; ok {
				ch.LastTouchedFrame = s.frame
				if ch.State == StateQueued {
					ch.buildPriority = s.priority(cam, c, true)
				}
				return
			}
			visible, _, size := s.candidateVisibility(cam, c)
			if !visible || size < s.cfg.MinScreenPixels {
				return
			}
			s.epoch++
			s.chunks[c] = &Chunk{
				Coord:            c,
				State:            StateQueued,
				Epoch:            s.epoch,
				HighestLOD:       -1,
				RenderLOD:        -1,
				LastTouchedFrame: s.frame,
				buildPriority:    s.priority(cam, c, true),
			}
		})
	}
}

// forEachRing visits the square ring of Chebyshev radius r around center.
// r == 0 visits only the center.
func (s *Scheduler) forEachRing(center ChunkCoord, r int, fn func(ChunkCoord)) {
	if r == 0 {
		fn(center)
		return
	}
	for x := -r; x <= r; x++ {
		fn(ChunkCoord{center.X + x, center.Z - r})
		fn(ChunkCoord{center.X + x, center.Z + r})
	}
	for z := -r + 1; z <= r-1; z++ {
		fn(ChunkCoord{center.X - r, center.Z + z})
		fn(ChunkCoord{center.X + r, center.Z + z})
	}
}

func (s *Scheduler) chunkCenter(c ChunkCoord) mgl32.Vec3 {
	sz := float32(s.cfg.ChunkSize)
	return mgl32.Vec3{(float32(c.X) + 0.5) * sz, s.cfg.MaxTerrainHeight * 0.5, (float32(c.Z) + 0.5) * sz}
}

func (s *Scheduler) candidateVisibility(cam CameraState, c ChunkCoord) (visible bool, dist, size float32) {
	min, max := chunkAABB(c, s.cfg.ChunkSize, s.cfg.MaxTerrainHeight, s.cfg.FrustumMargin)
	if !AABBIntersectsFrustum(min, max, cam.ViewProj) {
		return false, 0, 0
	}
	dist = s.chunkCenter(c).Sub(cam.Position).Len()
	size = ScreenSpaceSize(float32(s.cfg.ChunkSize), dist, cam.FOVDeg, cam.ViewportHeight)
	return true, dist, size
}

// Priority weighting: bigger on screen and closer to the view axis means
// sooner. Upgrades skip the direction bonus so turning the camera does not
// churn the upgrade queue.
const (
	screenSizeBonusScale = 0.05
	directionBonusScale  = 0.5
)

func (s *Scheduler) priority(cam CameraState, c ChunkCoord, newBuild bool) float32 {
	toChunk := s.chunkCenter(c).Sub(cam.Position)
	dist := toChunk.Len()
	size := ScreenSpaceSize(float32(s.cfg.ChunkSize), dist, cam.FOVDeg, cam.ViewportHeight)
	p := dist - size*screenSizeBonusScale
	if newBuild && dist > 1e-3 && cam.Forward.Len() > 1e-3 {
		ahead := toChunk.Normalize().Dot(cam.Forward.Normalize())
		p -= ahead * float32(s.cfg.ChunkSize) * directionBonusScale
	}
	return p
}

// dispatchBuilds hands the best Queued chunks to the workers, at most
// BuildBudget per frame. Chunks left Queued are re-scored next frame.
func (s *Scheduler) dispatchBuilds() {
	queued := make([]*Chunk, 0, s.cfg.BuildBudget*4)
	for _, ch := range s.chunks {
		if ch.State == StateQueued {
			queued = append(queued, ch)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].buildPriority < queued[j].buildPriority
	})
	for i := 0; i < len(queued) && i < s.cfg.BuildBudget; i++ {
		s.submit(queued[i], 0)
		queued[i].State = StateBuilding
	}
}

// requestUpgrades asks for the next LOD (one level at a time) on active
// chunks whose on-screen size says they deserve more detail.
func (s *Scheduler) requestUpgrades(cam CameraState) {
	type upgrade struct {
		ch   *Chunk
		dist float32
	}
	var ups []upgrade
	for _, ch := range s.chunks {
		if ch.State != StateActive || ch.HighestLOD >= s.maxLOD() {
			continue
		}
		next := ch.HighestLOD + 1
		if _, busy := s.pending[pendingKey{ch.Coord, next}]; busy {
			continue
		}
		visible, dist, size := s.candidateVisibility(cam, ch.Coord)
		if !visible {
			continue
		}
		if TargetLOD(size, s.cfg.LODThresholds) > ch.HighestLOD {
			ups = append(ups, upgrade{ch, dist})
		}
	}
	sort.Slice(ups, func(i, j int) bool { return ups[i].dist < ups[j].dist })
	for i := 0; i < len(ups) && i < s.cfg.LODUpgradeBudget; i++ {
		s.submit(ups[i].ch, ups[i].ch.HighestLOD+1)
	}
}

func (s *Scheduler) submit(ch *Chunk, lod int) {
	s.pending[pendingKey{ch.Coord, lod}] = struct{}{}
	s.disp.Submit(meshing.BuildRequest{
		ChunkX:     ch.Coord.X,
		ChunkZ:     ch.Coord.Z,
		LOD:        lod,
		Resolution: s.cfg.LODResolutions[lod],
		Epoch:      ch.Epoch,
	})
}

// applyCompletions drains the result channel without blocking. Results whose
// chunk is gone, whose epoch is stale or whose LOD is not the expected next
// step are discarded; the workers never learn and never need to.
func (s *Scheduler) applyCompletions() {
	for {
		select {
		case res := <-s.disp.Results():
			s.applyResult(res)
		default:
			return
		}
	}
}

func (s *Scheduler) applyResult(res meshing.BuildResult) {
	coord := ChunkCoord{res.ChunkX, res.ChunkZ}
	pk := pendingKey{coord, res.LOD}

	ch, ok := s.chunks[coord]
	if !ok || ch.Epoch != res.Epoch {
		// A stale result from an earlier incarnation of this coord must not
		// clear a pending entry the current incarnation owns.
		return
	}
	delete(s.pending, pk)
	if res.Err != nil {
		s.retryOrAbandon(ch, pk, res.Err)
		return
	}
	if res.LOD != ch.HighestLOD+1 {
		return
	}
	delete(s.retries, pk)

	if len(ch.Meshes) == 0 {
		ch.Meshes = make([]*meshing.Mesh, len(s.cfg.LODResolutions))
	}
	ch.Meshes[res.LOD] = res.Mesh
	ch.HighestLOD = res.LOD
	ch.RenderLOD = res.LOD
	ch.State = StateActive

	// Rock instances for the new LOD replace the previous tier outright.
	key := coord.Key()
	s.batcher.Release(key)
	offset := mgl32.Vec3{
		float32(float64(coord.X) * s.cfg.ChunkSize), 0,
		float32(float64(coord.Z) * s.cfg.ChunkSize),
	}
	s.batcher.Ingest(key, s.detailForLOD(res.LOD), offset, res.Rocks)

	s.restitch(ch)
	s.restitchNeighbors(coord)
}

// detailForLOD maps terrain LOD (0 coarsest) to rock mesh detail (0 finest).
func (s *Scheduler) detailForLOD(lod int) int {
	d := s.maxLOD() - lod
	if d > s.cfg.RockDetailLevels-1 {
		d = s.cfg.RockDetailLevels - 1
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Scheduler) retryOrAbandon(ch *Chunk, pk pendingKey, err error) {
	s.retries[pk]++
	if s.retries[pk] <= s.cfg.MaxRetries {
		log.Printf("world: rebuilding chunk %s lod %d after failure: %v", pk.Coord, pk.LOD, err)
		s.submit(ch, pk.LOD)
		return
	}
	delete(s.retries, pk)
	log.Printf("world: giving up on chunk %s lod %d: %v", pk.Coord, pk.LOD, err)
	if ch.HighestLOD < 0 {
		// Never produced any geometry; drop it so a later pass can start over.
		delete(s.chunks, pk.Coord)
	}
}

// neighborRenderLOD reports the LOD a neighbor currently renders at, -1 when
// the neighbor is absent or not yet active.
func (s *Scheduler) neighborRenderLOD(c ChunkCoord) int {
	if n := s.chunks[c]; n != nil && n.State == StateActive {
		return n.RenderLOD
	}
	return -1
}

// restitch rebuilds the chunk's index buffer against its neighbors' current
// LODs. Cached in the stitcher, so repeated configurations cost a map hit.
func (s *Scheduler) restitch(ch *Chunk) {
	if ch.State != StateActive || ch.RenderLOD < 0 {
		return
	}
	ch.Indices = s.stitcher.Indices(meshing.StitchKey{
		Res:    s.cfg.LODResolutions[ch.RenderLOD],
		OwnLOD: ch.RenderLOD,
		North:  s.neighborRenderLOD(ChunkCoord{ch.Coord.X, ch.Coord.Z + 1}),
		South:  s.neighborRenderLOD(ChunkCoord{ch.Coord.X, ch.Coord.Z - 1}),
		East:   s.neighborRenderLOD(ChunkCoord{ch.Coord.X + 1, ch.Coord.Z}),
		West:   s.neighborRenderLOD(ChunkCoord{ch.Coord.X - 1, ch.Coord.Z}),
	})
	ch.MeshVersion++
}

func (s *Scheduler) restitchNeighbors(c ChunkCoord) {
	for _, nc := range [4]ChunkCoord{
		{c.X, c.Z + 1}, {c.X, c.Z - 1}, {c.X + 1, c.Z}, {c.X - 1, c.Z},
	} {
		if n := s.chunks[nc]; n != nil {
			s.restitch(n)
		}
	}
}

// unloadDistant removes chunks beyond the view distance plus the dispose
// buffer. The buffer keeps chunks on the boundary from load/unload flapping.
func (s *Scheduler) unloadDistant(center ChunkCoord, radius int) {
	limit := radius + s.cfg.DisposeBuffer
	var removed []ChunkCoord
	for coord, ch := range s.chunks {
		dx, dz := coord.X-center.X, coord.Z-center.Z
		if dx < 0 {
			dx = -dx
		}
		if dz < 0 {
			dz = -dz
		}
		if dx <= limit && dz <= limit {
			continue
		}
		ch.State = StateDisposing
		s.batcher.Release(coord.Key())
		for lod := range s.cfg.LODResolutions {
			delete(s.pending, pendingKey{coord, lod})
			delete(s.retries, pendingKey{coord, lod})
		}
		delete(s.chunks, coord)
		removed = append(removed, coord)
	}
	for _, coord := range removed {
		s.restitchNeighbors(coord)
	}
}
