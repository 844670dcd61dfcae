package engine

import (
	"log/slog"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"worldify/internal/config"
	"worldify/internal/meshing"
	"worldify/internal/physics"
	"worldify/internal/profiling"
	"worldify/internal/terrain"
	"worldify/internal/voxel"
	"worldify/internal/world"
)

// MaxDispatchesPerFrame bounds how many remesh jobs leave the main thread
// per tick.
const MaxDispatchesPerFrame = 8

// Engine is the client-side voxel world: it ingests authoritative chunks,
// keeps lighting and meshes current around the observer, and answers
// collision and map queries. One value, explicit lifecycle, no global state.
type Engine struct {
	store      *world.Store
	lighting   *world.Lighting
	visibility *world.Visibility
	tiles      *world.TileCache
	applier    *world.Applier
	ingestor   *world.Ingestor
	scheduler  *world.Scheduler
	pool       *meshing.Pool
	batch      *terrain.Batch
	collider   *physics.Collider

	observer      mgl32.Vec3
	observerSet   bool
	observerChunk voxel.ChunkCoord
	camera        world.CameraState

	remeshQueue map[voxel.ChunkCoord]struct{}
	// extraDesired carries chunk keys wanted outside the BFS result, e.g.
	// the missing chunks of a deferred build.
	extraDesired map[voxel.ChunkCoord]struct{}

	lastVisibility *world.VisibilityResult
}

// New wires the full pipeline against the given request sink.
func New(sink world.RequestSink) *Engine {
	store := world.NewStore()
	lighting := world.NewLighting(store)
	visibility := world.NewVisibility(store)
	tiles := world.NewTileCache()
	applier := world.NewApplier(store, lighting)

	e := &Engine{
		store:        store,
		lighting:     lighting,
		visibility:   visibility,
		tiles:        tiles,
		applier:      applier,
		scheduler:    world.NewScheduler(store, sink),
		pool:         meshing.NewPool(config.GetWorkerCount()),
		batch:        terrain.NewBatch(),
		remeshQueue:  make(map[voxel.ChunkCoord]struct{}),
		extraDesired: make(map[voxel.ChunkCoord]struct{}),
	}
	e.collider = physics.NewCollider(e.batch)

	e.ingestor = world.NewIngestor(store, lighting, visibility, tiles, applier)
	e.ingestor.EnqueueRemesh = e.enqueueRemesh
	e.ingestor.CommitBatch = e.dispatchBatch

	return e
}

// Dispose stops the worker pool.
func (e *Engine) Dispose() {
	e.pool.Dispose()
}

// SetObserverPosition updates the observer; called each frame.
func (e *Engine) SetObserverPosition(p mgl32.Vec3) {
	e.observer = p
	e.observerSet = true
	e.camera.Position = p
}

// SetCamera feeds the frustum and view direction to the visibility BFS.
func (e *Engine) SetCamera(frustum *world.Frustum, forward mgl32.Vec3) {
	e.camera.Frustum = frustum
	e.camera.Forward = forward
}

// SetVisibilityRadius bounds the BFS depth and the unload hysteresis.
func (e *Engine) SetVisibilityRadius(radius uint8) {
	config.SetVisibilityRadius(int(radius))
	e.visibility.Invalidate()
}

// SetPreview hands a chunk to (or takes it back from) the build preview:
// its batched mesh hides and the remesh scheduler yields it.
func (e *Engine) SetPreview(coord voxel.ChunkCoord, active bool) {
	e.pool.SetPreview(coord, active)
	e.batch.SetPreviewActive(coord, active)
}

// Update runs one frame of the pipeline: visibility, request scheduling,
// remesh dispatch, result application, batch rebuild, unload hysteresis.
func (e *Engine) Update(dt float64) {
	if !e.observerSet {
		panic("engine: Update called before SetObserverPosition")
	}
	defer profiling.Track("engine.Update")()

	newChunk := voxel.WorldToChunk(e.observer)
	crossed := newChunk != e.observerChunk
	e.observerChunk = newChunk

	if crossed {
		e.unloadFarChunks()
	}

	radius := config.GetVisibilityRadius()
	e.lastVisibility = e.visibility.Result(e.observerChunk, radius, e.camera)

	desired := make(map[voxel.ChunkCoord]struct{}, len(e.lastVisibility.ToRequest)+len(e.extraDesired))
	for c := range e.lastVisibility.ToRequest {
		desired[c] = struct{}{}
	}
	for c := range e.extraDesired {
		if e.store.Has(c) {
			delete(e.extraDesired, c)
			continue
		}
		desired[c] = struct{}{}
	}
	e.scheduler.Tick(e.observerChunk, desired)

	e.dispatchRemeshes()

	e.pool.Drain(e.applyMeshResult)

	e.batch.Rebuild(e.observer, config.GetShadowDistance())
}

// Visibility returns the last BFS result (may be nil before the first
// Update).
func (e *Engine) Visibility() *world.VisibilityResult {
	return e.lastVisibility
}

// enqueueRemesh queues a chunk for meshing; duplicates collapse.
func (e *Engine) enqueueRemesh(coord voxel.ChunkCoord) {
	e.remeshQueue[coord] = struct{}{}
}

// dispatchRemeshes sends the closest queued chunks to the pool, skipping
// chunks already in flight, owned by the build preview, or stitching
// against a pending neighbor.
func (e *Engine) dispatchRemeshes() {
	if len(e.remeshQueue) == 0 {
		return
	}
	defer profiling.Track("engine.DispatchRemeshes")()

	queue := make([]voxel.ChunkCoord, 0, len(e.remeshQueue))
	for c := range e.remeshQueue {
		queue = append(queue, c)
	}
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].DistSq(e.observerChunk) < queue[j].DistSq(e.observerChunk)
	})

	dispatched := 0
	for _, coord := range queue {
		if dispatched >= MaxDispatchesPerFrame {
			break
		}
		if !e.store.Has(coord) {
			delete(e.remeshQueue, coord)
			continue
		}
		if e.pool.IsInFlight(coord) || e.pool.IsPreviewChunk(coord) {
			continue
		}
		if e.hasPendingNeighbor(coord) {
			// The neighbor's data is about to change; meshing now would
			// stitch against stale margins.
			continue
		}

		grid := e.pool.TakeGrid()
		skip := meshing.Expand(e.store, coord, grid)
		if e.pool.Dispatch(meshing.Job{Coord: coord, Grid: grid, SkipHigh: skip}) {
			delete(e.remeshQueue, coord)
			dispatched++
		}
	}
}

func (e *Engine) hasPendingNeighbor(coord voxel.ChunkCoord) bool {
	for f := voxel.Face(0); f < voxel.FaceCount; f++ {
		if e.store.IsPendingChunk(coord.Neighbor(f)) {
			return true
		}
	}
	return false
}

// dispatchBatch expands and dispatches an atomic remesh batch; the pool
// commits every result in the same frame.
func (e *Engine) dispatchBatch(b *world.BuildBatch) {
	jobs := make([]meshing.Job, 0, len(b.Chunks))
	for coord := range b.Chunks {
		if !e.store.Has(coord) {
			continue
		}
		delete(e.remeshQueue, coord)
		grid := e.pool.TakeGrid()
		skip := meshing.Expand(e.store, coord, grid)
		jobs = append(jobs, meshing.Job{Coord: coord, Grid: grid, SkipHigh: skip})
	}
	e.pool.DispatchBatch(jobs)
}

// applyMeshResult installs one finished mesh, discarding results whose
// chunk was unloaded while the job ran.
func (e *Engine) applyMeshResult(m *meshing.MeshResult) {
	chunk := e.store.Get(m.Coord)
	if chunk == nil {
		return
	}
	chunk.Dirty = false
	e.batch.SetChunkMesh(m)
}

// unloadFarChunks drops chunks beyond the hysteresis radius around the new
// observer chunk.
func (e *Engine) unloadFarChunks() {
	limit := config.GetUnloadRadius()
	removed := 0
	for _, coord := range e.store.Coords() {
		if coord.ChebyshevDist(e.observerChunk) <= limit {
			continue
		}
		e.store.Remove(coord)
		e.batch.RemoveChunk(coord)
		delete(e.remeshQueue, coord)
		removed++
	}
	if removed > 0 {
		e.visibility.Invalidate()
		slog.Debug("unloaded far chunks", "count", removed)
	}
}

// OnChunkData is the network handler for chunk payloads.
func (e *Engine) OnChunkData(d *world.ChunkData) {
	e.ingestor.OnChunkData(d)
	delete(e.extraDesired, d.Coord())
}

// OnTileData is the network handler for tile payloads.
func (e *Engine) OnTileData(d *world.TileData) {
	e.ingestor.OnTileData(d)
}

// OnSurfaceColumnData is the network handler for surface column payloads.
func (e *Engine) OnSurfaceColumnData(d *world.SurfaceColumnData) {
	e.ingestor.OnSurfaceColumnData(d)
}

// ApplyBuildCommit applies an authoritative build. Rejected commits are
// recorded and dropped; commits whose affected chunks are not all loaded
// are deferred and drained on ingest, with the missing chunks requested on
// future scheduler ticks.
func (e *Engine) ApplyBuildCommit(commit world.BuildCommit) {
	if commit.Result != world.BuildSuccess {
		slog.Debug("build commit rejected by server", "result", commit.Result)
		return
	}

	batch, missing := e.applier.Apply(commit.Intent)
	if batch != nil {
		e.visibility.Invalidate()
		e.dispatchBatch(batch)
		return
	}
	for _, coord := range missing {
		e.extraDesired[coord] = struct{}{}
	}
}

// ResolveCapsule sweeps a capsule against the solid terrain.
func (e *Engine) ResolveCapsule(capsule physics.Capsule, velocity mgl32.Vec3) physics.CapsuleResult {
	return e.collider.ResolveCapsule(capsule, velocity)
}

// MapTile returns the cached tile for a column, or nil.
func (e *Engine) MapTile(tx, tz int) *world.MapTile {
	return e.tiles.Get(voxel.ColumnCoord{X: tx, Z: tz})
}

// HeightAt returns the surface height at a world column, when known.
func (e *Engine) HeightAt(worldX, worldZ int) (int, bool) {
	return e.tiles.HeightAt(worldX, worldZ)
}

// VoxelAt resolves a global voxel coordinate; false when its chunk is not
// loaded.
func (e *Engine) VoxelAt(x, y, z int) (voxel.Voxel, bool) {
	return e.store.VoxelAt(x, y, z)
}

// Tiles exposes the tile cache for the minimap renderer.
func (e *Engine) Tiles() *world.TileCache {
	return e.tiles
}

// Batch exposes the terrain draw groups for the renderer.
func (e *Engine) Batch() *terrain.Batch {
	return e.batch
}

// RequestRegen requests a chunk with the force-regen flag; the server
// rebuilds it from generation. The request passes the scheduler's gates: a
// chunk that is already loaded or pending is not sent again, and a request
// that cannot go out on this tick is sent later without the flag.
func (e *Engine) RequestRegen(coord voxel.ChunkCoord) {
	e.extraDesired[coord] = struct{}{}
	prev := e.scheduler.ForceRegen
	e.scheduler.ForceRegen = true
	e.scheduler.Tick(e.observerChunk, map[voxel.ChunkCoord]struct{}{coord: {}})
	e.scheduler.ForceRegen = prev
}

// ClearAndReload drops all world state and starts streaming fresh around
// the given observer position. The worker pool survives.
func (e *Engine) ClearAndReload(observer mgl32.Vec3) {
	e.store.Clear()
	e.tiles.Clear()
	e.batch.Clear()
	e.applier.Reset()
	e.scheduler.Reset()
	e.collider.Invalidate()
	e.visibility.Invalidate()
	e.remeshQueue = make(map[voxel.ChunkCoord]struct{})
	e.extraDesired = make(map[voxel.ChunkCoord]struct{})
	e.lastVisibility = nil
	e.SetObserverPosition(observer)
	slog.Info("world cleared for reload")
}

// Stats is a debug snapshot for the HUD.
type Stats struct {
	LoadedChunks   int
	PendingChunks  int
	PendingColumns int
	RemeshQueue    int
	DeferredBuilds int
	TerrainGroups  int
	Tiles          int
	Reachable      int
}

// Stats returns the current pipeline counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		LoadedChunks:   e.store.Len(),
		PendingChunks:  e.store.PendingChunkCount(),
		PendingColumns: e.store.PendingColumnCount(),
		RemeshQueue:    len(e.remeshQueue),
		DeferredBuilds: e.applier.DeferredCount(),
		TerrainGroups:  e.batch.GroupCount(),
		Tiles:          e.tiles.Len(),
	}
	if e.lastVisibility != nil {
		s.Reachable = len(e.lastVisibility.Reachable)
	}
	return s
}
