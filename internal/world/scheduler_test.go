package world

import (
	"errors"
	"slices"
	"testing"

	"terradrift/internal/instancing"
	"terradrift/internal/meshing"
	"terradrift/internal/rocks"
	"terradrift/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeDispatcher runs no workers: it records submissions and lets the test
// decide when (and whether) each one completes.
type fakeDispatcher struct {
	ev         *terrain.Evaluator
	chunkSize  float64
	seed       int64
	rockParams rocks.Params

	queue    []meshing.BuildRequest
	seen     []meshing.BuildRequest
	results  chan meshing.BuildResult
	inFlight int
}

func (f *fakeDispatcher) Submit(r meshing.BuildRequest) {
	f.queue = append(f.queue, r)
	f.seen = append(f.seen, r)
	f.inFlight++
}

func (f *fakeDispatcher) Results() <-chan meshing.BuildResult { return f.results }
func (f *fakeDispatcher) InFlight() int                       { return f.inFlight }

func (f *fakeDispatcher) deliver(req meshing.BuildRequest) {
	f.inFlight--
	f.results <- meshing.BuildResult{
		ChunkX: req.ChunkX, ChunkZ: req.ChunkZ, LOD: req.LOD, Epoch: req.Epoch,
		Mesh:  meshing.BuildHeightGrid(req.ChunkX, req.ChunkZ, req.Resolution, f.chunkSize, f.ev),
		Rocks: rocks.Generate(req.ChunkX, req.ChunkZ, req.LOD, f.chunkSize, f.seed, f.rockParams, f.ev),
	}
}

func (f *fakeDispatcher) completeAll() {
	for len(f.queue) > 0 {
		req := f.queue[0]
		f.queue = f.queue[1:]
		f.deliver(req)
	}
}

func (f *fakeDispatcher) completeFor(cx, cz int) bool {
	for i, req := range f.queue {
		if req.ChunkX == cx && req.ChunkZ == cz {
			f.queue = slices.Delete(f.queue, i, i+1)
			f.deliver(req)
			return true
		}
	}
	return false
}

func (f *fakeDispatcher) lodsFor(cx, cz int) []int {
	var lods []int
	for _, req := range f.seen {
		if req.ChunkX == cx && req.ChunkZ == cz {
			lods = append(lods, req.LOD)
		}
	}
	return lods
}

func testConfig() Config {
	return Config{
		ChunkSize:        64,
		LODResolutions:   []int{4, 8, 16},
		LODThresholds:    []float32{0, 200, 400},
		MinScreenPixels:  0.5,
		MaxTerrainHeight: 120,
		FrustumMargin:    8,
		BaseViewDistance: 2,
		DisposeBuffer:    1,
		AltitudeScale:    0.004,
		BuildBudget:      4,
		LODUpgradeBudget: 2,
		MaxRetries:       2,
		StitchCacheSize:  32,
		RockDetailLevels: 3,
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeDispatcher) {
	t.Helper()
	cfg := testConfig()
	ev := terrain.NewEvaluator(terrain.DefaultParams(7))
	fake := &fakeDispatcher{
		ev:         ev,
		chunkSize:  cfg.ChunkSize,
		seed:       7,
		rockParams: rocks.DefaultParams(),
		results:    make(chan meshing.BuildResult, 256),
	}
	return NewScheduler(cfg, ev, fake, instancing.NewBatcher(4096)), fake
}

// Hovering inside the column of chunk (0,0), looking north and down.
func testCamera() CameraState {
	pos := mgl32.Vec3{32, 100, 32}
	forward := mgl32.Vec3{0, -0.6, 0.8}.Normalize()
	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 10000)
	view := mgl32.LookAtV(pos, pos.Add(forward), mgl32.Vec3{0, 1, 0})
	return CameraState{
		Position:       pos,
		Forward:        forward,
		FOVDeg:         70,
		ViewportHeight: 900,
		ViewProj:       proj.Mul4(view),
	}
}

func TestChunkLifecycleToActive(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()
	origin := ChunkCoord{0, 0}

	s.Update(cam)

	ch := s.Chunk(origin)
	if ch == nil {
		t.Fatal("chunk under the camera was not enqueued")
	}
	if ch.State != StateBuilding {
		t.Fatalf("state %v after dispatch, want building", ch.State)
	}
	if lods := fake.lodsFor(0, 0); len(lods) != 1 || lods[0] != 0 {
		t.Fatalf("initial build requests %v, want exactly [0]", lods)
	}
	if _, ok := s.HeightAt(32, 32); ok {
		t.Fatal("HeightAt reported ground before the chunk went active")
	}

	fake.completeAll()
	s.Update(cam)

	ch = s.Chunk(origin)
	if ch.State != StateActive || ch.HighestLOD != 0 || ch.RenderLOD != 0 {
		t.Fatalf("after completion: state %v highest %d render %d", ch.State, ch.HighestLOD, ch.RenderLOD)
	}
	if ch.Mesh() == nil || len(ch.Indices) == 0 {
		t.Fatal("active chunk has no renderable geometry")
	}
	if h, ok := s.HeightAt(32, 32); !ok || h != s.ev.HeightAt(32, 32) {
		t.Fatalf("HeightAt after activation: %f ok=%v", h, ok)
	}
}

func TestBuildBudgetBoundsDispatch(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Update(testCamera())

	st := s.Stats()
	if st.Building > s.cfg.BuildBudget {
		t.Fatalf("%d builds dispatched, budget is %d", st.Building, s.cfg.BuildBudget)
	}
	if st.Queued > 0 && st.Building != s.cfg.BuildBudget {
		t.Fatalf("queue backlog of %d with only %d dispatched", st.Queued, st.Building)
	}
}

func TestStaleResultAfterTeleportIsDiscarded(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()
	origin := ChunkCoord{0, 0}

	s.Update(cam)
	if s.Chunk(origin) == nil {
		t.Fatal("origin chunk was not enqueued")
	}

	// Teleport far away; origin falls outside viewDistance + disposeBuffer
	// and is unloaded while its build is still outstanding.
	far := testCamera()
	far.Position = far.Position.Add(mgl32.Vec3{10000, 0, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 10000)
	view := mgl32.LookAtV(far.Position, far.Position.Add(far.Forward), mgl32.Vec3{0, 1, 0})
	far.ViewProj = proj.Mul4(view)

	s.Update(far)
	if s.Chunk(origin) != nil {
		t.Fatal("origin chunk survived the teleport")
	}

	// The worker finishes anyway; the late result must be dropped on the
	// floor without recreating the chunk.
	fake.completeAll()
	s.Update(far)
	if s.Chunk(origin) != nil {
		t.Fatal("stale result resurrected a disposed chunk")
	}
	if allocs := s.batcher.Allocations(origin.Key()); len(allocs) != 0 {
		t.Fatalf("stale result left %d instance allocations", len(allocs))
	}
}

func TestLODUpgradesOneLevelAtATime(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()

	// The origin chunk is close enough that its target LOD is the maximum,
	// but upgrades must still arrive one step at a time.
	for i := 0; i < 6; i++ {
		s.Update(cam)
		fake.completeFor(0, 0)
	}
	s.Update(cam)

	ch := s.Chunk(ChunkCoord{0, 0})
	if ch == nil || ch.HighestLOD != s.maxLOD() {
		t.Fatalf("chunk did not reach max LOD: %+v", ch)
	}
	lods := fake.lodsFor(0, 0)
	want := []int{0, 1, 2}
	if !slices.Equal(lods, want) {
		t.Fatalf("build request LODs %v, want %v", lods, want)
	}
	for lod, m := range ch.Meshes {
		if m == nil {
			t.Fatalf("mesh for LOD %d missing after full upgrade", lod)
		}
	}
}

func TestDuplicateResultIsDiscarded(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()

	s.Update(cam)
	fake.completeFor(0, 0)
	s.Update(cam)

	ch := s.Chunk(ChunkCoord{0, 0})
	if ch.HighestLOD != 0 {
		t.Fatalf("highest LOD %d after first build, want 0", ch.HighestLOD)
	}
	version := ch.MeshVersion

	// A second LOD-0 result (e.g. a retried task that also succeeded) is not
	// the expected next step and must change nothing.
	dup := meshing.BuildResult{
		ChunkX: 0, ChunkZ: 0, LOD: 0, Epoch: ch.Epoch,
		Mesh: meshing.BuildHeightGrid(0, 0, 4, s.cfg.ChunkSize, s.ev),
	}
	s.applyResult(dup)

	if ch.HighestLOD != 0 {
		t.Fatalf("duplicate result advanced LOD to %d", ch.HighestLOD)
	}
	if ch.MeshVersion != version {
		t.Fatal("duplicate result mutated the chunk")
	}
}

func TestStaleEpochKeepsLivePendingEntry(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()

	s.Update(cam)
	fake.completeFor(0, 0)
	s.Update(cam) // applies LOD 0 and requests the LOD-1 upgrade

	ch := s.Chunk(ChunkCoord{0, 0})
	pk := pendingKey{ChunkCoord{0, 0}, 1}
	if _, ok := s.pending[pk]; !ok {
		t.Fatal("expected a pending LOD-1 upgrade")
	}

	// A leftover result from a previous incarnation of the coord carries an
	// older epoch. It must be discarded without touching the pending entry
	// the current incarnation owns.
	stale := meshing.BuildResult{
		ChunkX: 0, ChunkZ: 0, LOD: 1, Epoch: ch.Epoch - 1,
		Mesh: meshing.BuildHeightGrid(0, 0, 8, s.cfg.ChunkSize, s.ev),
	}
	s.applyResult(stale)

	if _, ok := s.pending[pk]; !ok {
		t.Fatal("stale-epoch result cleared the live pending entry")
	}
	if ch.HighestLOD != 0 {
		t.Fatalf("stale-epoch result advanced LOD to %d", ch.HighestLOD)
	}
}

func TestFailedBuildRetriesThenDrops(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()
	origin := ChunkCoord{0, 0}

	s.Update(cam)
	ch := s.Chunk(origin)
	boom := errors.New("boom")
	fail := meshing.BuildResult{ChunkX: 0, ChunkZ: 0, LOD: 0, Epoch: ch.Epoch, Err: boom}

	before := len(fake.seen)
	s.applyResult(fail)
	s.applyResult(fail)
	if s.Chunk(origin) == nil {
		t.Fatal("chunk dropped before retries were exhausted")
	}
	if got := len(fake.seen) - before; got != 2 {
		t.Fatalf("%d retry submissions, want 2", got)
	}

	s.applyResult(fail)
	if s.Chunk(origin) != nil {
		t.Fatal("chunk not dropped after retries were exhausted")
	}
}

func TestUnloadReleasesRockInstances(t *testing.T) {
	s, fake := newTestScheduler(t)
	cam := testCamera()
	origin := ChunkCoord{0, 0}

	s.Update(cam)
	fake.completeAll()
	s.Update(cam)
	if len(s.batcher.Allocations(origin.Key())) == 0 {
		t.Fatal("active chunk has no rock allocations (test premise broken)")
	}

	far := testCamera()
	far.Position = far.Position.Add(mgl32.Vec3{0, 0, 10000})
	s.Update(far)

	if len(s.batcher.Allocations(origin.Key())) != 0 {
		t.Fatal("unloaded chunk kept its rock allocations")
	}
}

func TestRestitchAgainstCoarserNeighbor(t *testing.T) {
	s, _ := newTestScheduler(t)
	a := &Chunk{Coord: ChunkCoord{0, 0}, State: StateActive, HighestLOD: 1, RenderLOD: 1}
	b := &Chunk{Coord: ChunkCoord{1, 0}, State: StateActive, HighestLOD: 0, RenderLOD: 0}
	s.chunks[a.Coord] = a
	s.chunks[b.Coord] = b

	regular := meshing.GridIndices(s.cfg.LODResolutions[1])
	s.restitch(a)
	if slices.Equal(a.Indices, regular) {
		t.Fatal("chunk beside a coarser neighbor used the unstitched grid")
	}
	v := a.MeshVersion

	// Neighbor catches up: the stitched buffer reverts to the regular grid.
	b.HighestLOD, b.RenderLOD = 1, 1
	s.restitch(a)
	if !slices.Equal(a.Indices, regular) {
		t.Fatal("equal-LOD neighbors still produced a stitched buffer")
	}
	if a.MeshVersion == v {
		t.Fatal("restitch did not bump the mesh version")
	}
}

func TestRingEnumeration(t *testing.T) {
	s, _ := newTestScheduler(t)
	center := ChunkCoord{3, -2}

	var visited []ChunkCoord
	s.forEachRing(center, 0, func(c ChunkCoord) { visited = append(visited, c) })
	if len(visited) != 1 || visited[0] != center {
		t.Fatalf("ring 0 visited %v", visited)
	}

	for r := 1; r <= 3; r++ {
		seen := map[ChunkCoord]bool{}
		s.forEachRing(center, r, func(c ChunkCoord) {
			if seen[c] {
				t.Fatalf("ring %d visited %v twice", r, c)
			}
			seen[c] = true
			dx, dz := c.X-center.X, c.Z-center.Z
			if max(abs(dx), abs(dz)) != r {
				t.Fatalf("ring %d visited %v at wrong radius", r, c)
			}
		})
		if len(seen) != 8*r {
			t.Fatalf("ring %d visited %d coords, want %d", r, len(seen), 8*r)
		}
	}
}

func TestAltitudeWidensViewDistance(t *testing.T) {
	s, _ := newTestScheduler(t)
	low := testCamera()
	high := testCamera()
	high.Position = mgl32.Vec3{32, 4000, 32}

	if got := s.effectiveViewDistance(low); got != s.cfg.BaseViewDistance {
		t.Fatalf("low camera view distance %d, want base %d", got, s.cfg.BaseViewDistance)
	}
	if got := s.effectiveViewDistance(high); got <= s.cfg.BaseViewDistance {
		t.Fatalf("high camera view distance %d did not widen", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
