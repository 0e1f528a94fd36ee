package meshing

import (
	"fmt"
	"sync/atomic"

	"terradrift/internal/rocks"
	"terradrift/internal/terrain"

	"github.com/alitto/pond/v2"
)

// BuildRequest asks for one chunk's geometry and rock field at one LOD.
// The epoch tags the request so the scheduler can reject results that
// outlived their chunk.
type BuildRequest struct {
	ChunkX, ChunkZ int
	LOD            int
	Resolution     int
	Epoch          uint64
}

// BuildResult is self-describing: it echoes the request identity because
// delivery order is unspecified and the originating chunk may be gone.
type BuildResult struct {
	ChunkX, ChunkZ int
	LOD            int
	Epoch          uint64
	Mesh           *Mesh
	Rocks          []rocks.PlacementGroup
	Err            error
}

// Dispatcher runs mesh and rock generation on a worker pool. Workers read only
// the immutable generation snapshot captured at construction plus the request,
// so tasks share no mutable state and need no locks.
type Dispatcher struct {
	pool     pond.Pool
	results  chan BuildResult
	inFlight atomic.Int64

	chunkSize  float64
	worldSeed  int64
	ev         *terrain.Evaluator
	rockParams rocks.Params
}

// NewDispatcher creates a dispatcher with the given worker count and result
// queue capacity.
func NewDispatcher(workers, queueCap int, chunkSize float64, worldSeed int64, ev *terrain.Evaluator, rockParams rocks.Params) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 256
	}
	return &Dispatcher{
		pool:       pond.NewPool(workers),
		results:    make(chan BuildResult, queueCap),
		chunkSize:  chunkSize,
		worldSeed:  worldSeed,
		ev:         ev,
		rockParams: rockParams,
	}
}

// Submit queues a build task. It never blocks the scheduling thread.
func (d *Dispatcher) Submit(req BuildRequest) {
	d.inFlight.Add(1)
	d.pool.Submit(func() {
		defer d.inFlight.Add(-1)
		d.results <- d.run(req)
	})
}

// Results delivers completed builds in arbitrary order.
func (d *Dispatcher) Results() <-chan BuildResult { return d.results }

// InFlight reports tasks submitted but not yet delivered.
func (d *Dispatcher) InFlight() int { return int(d.inFlight.Load()) }

// Close stops the pool and drains any undelivered results.
func (d *Dispatcher) Close() {
	done := make(chan struct{})
	go func() {
		for range d.results {
		}
		close(done)
	}()
	d.pool.StopAndWait()
	close(d.results)
	<-done
}

func (d *Dispatcher) run(req BuildRequest) (res BuildResult) {
	res = BuildResult{
		ChunkX: req.ChunkX,
		ChunkZ: req.ChunkZ,
		LOD:    req.LOD,
		Epoch:  req.Epoch,
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("build task for chunk (%d,%d) lod %d panicked: %v",
				req.ChunkX, req.ChunkZ, req.LOD, r)
			res.Mesh = nil
			res.Rocks = nil
		}
	}()
	res.Mesh = BuildHeightGrid(req.ChunkX, req.ChunkZ, req.Resolution, d.chunkSize, d.ev)
	res.Rocks = rocks.Generate(req.ChunkX, req.ChunkZ, req.LOD, d.chunkSize, d.worldSeed, d.rockParams, d.ev)
	return res
}
