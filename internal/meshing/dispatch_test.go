package meshing

import (
	"reflect"
	"testing"
	"time"

	"terradrift/internal/rocks"
	"terradrift/internal/terrain"
)

func newTestDispatcher(workers int) *Dispatcher {
	ev := terrain.NewEvaluator(terrain.DefaultParams(42))
	return NewDispatcher(workers, 64, 256, 42, ev, rocks.DefaultParams())
}

func collect(t *testing.T, d *Dispatcher, n int) []BuildResult {
	t.Helper()
	out := make([]BuildResult, 0, n)
	timeout := time.After(10 * time.Second)
	for len(out) < n {
		select {
		case r := <-d.Results():
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out waiting for %d results, got %d", n, len(out))
		}
	}
	return out
}

func TestDispatcherEchoesIdentity(t *testing.T) {
	d := newTestDispatcher(2)
	defer d.Close()
	d.Submit(BuildRequest{ChunkX: 3, ChunkZ: -4, LOD: 1, Resolution: 16, Epoch: 9})
	r := collect(t, d, 1)[0]
	if r.ChunkX != 3 || r.ChunkZ != -4 || r.LOD != 1 || r.Epoch != 9 {
		t.Fatalf("result identity %+v does not echo the request", r)
	}
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Mesh == nil || r.Mesh.Resolution != 16 {
		t.Fatalf("missing or wrong-resolution mesh: %+v", r.Mesh)
	}
	if len(r.Rocks) == 0 {
		t.Fatal("expected rock placements")
	}
}

func TestDispatcherArbitraryCompletionOrder(t *testing.T) {
	d := newTestDispatcher(4)
	defer d.Close()
	const n = 12
	for i := 0; i < n; i++ {
		d.Submit(BuildRequest{ChunkX: i, ChunkZ: 0, LOD: 0, Resolution: 32, Epoch: uint64(i)})
	}
	results := collect(t, d, n)
	seen := map[int]bool{}
	for _, r := range results {
		if seen[r.ChunkX] {
			t.Fatalf("duplicate result for chunk %d", r.ChunkX)
		}
		seen[r.ChunkX] = true
		if r.Epoch != uint64(r.ChunkX) {
			t.Fatalf("result for chunk %d carries epoch %d", r.ChunkX, r.Epoch)
		}
	}
	if d.InFlight() != 0 {
		t.Fatalf("in-flight count %d after all results drained", d.InFlight())
	}
}

func TestDispatcherOutputMatchesDirectBuild(t *testing.T) {
	d := newTestDispatcher(1)
	defer d.Close()
	d.Submit(BuildRequest{ChunkX: 1, ChunkZ: 2, LOD: 2, Resolution: 8, Epoch: 1})
	r := collect(t, d, 1)[0]

	ev := terrain.NewEvaluator(terrain.DefaultParams(42))
	wantMesh := BuildHeightGrid(1, 2, 8, 256, ev)
	if !reflect.DeepEqual(r.Mesh, wantMesh) {
		t.Fatal("worker mesh differs from a direct build with the same inputs")
	}
	wantRocks := rocks.Generate(1, 2, 2, 256, 42, rocks.DefaultParams(), ev)
	if !reflect.DeepEqual(r.Rocks, wantRocks) {
		t.Fatal("worker rock field differs from a direct build with the same inputs")
	}
}
