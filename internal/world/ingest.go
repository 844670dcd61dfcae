package world

import (
	"log/slog"

	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// Ingestor applies decoded server payloads to the store: voxel copies,
// visibility/mask recompute, relight cascades, remesh enqueue, BFS cache
// invalidation and deferred-build draining.
type Ingestor struct {
	store      *Store
	lighting   *Lighting
	visibility *Visibility
	tiles      *TileCache
	applier    *Applier

	// EnqueueRemesh is called once per chunk needing a new mesh.
	EnqueueRemesh func(voxel.ChunkCoord)
	// CommitBatch receives the atomic remesh batch of each deferred build
	// that became executable.
	CommitBatch func(*BuildBatch)
}

// NewIngestor wires the ingestor. EnqueueRemesh and CommitBatch must be set
// before the first payload arrives.
func NewIngestor(store *Store, lighting *Lighting, visibility *Visibility, tiles *TileCache, applier *Applier) *Ingestor {
	return &Ingestor{
		store:      store,
		lighting:   lighting,
		visibility: visibility,
		tiles:      tiles,
		applier:    applier,
	}
}

// OnChunkData applies one authoritative chunk snapshot.
func (in *Ingestor) OnChunkData(d *ChunkData) {
	defer profiling.Track("ingest.ChunkData")()

	coord := d.Coord()
	in.store.ClearPendingChunk(coord)

	chunk := in.store.Get(coord)
	isNew := chunk == nil
	if isNew {
		chunk = voxel.NewChunk(coord)
		in.store.Insert(chunk)
	}
	chunk.CopyFrom(&d.VoxelData)
	chunk.LastBuildSeq = d.LastBuildSeq
	chunk.Dirty = true
	chunk.RecomputeVisibility()

	in.remeshTouched(in.lighting.Cascade(coord))

	// Connectivity may have changed only when the chunk is new; updates to
	// an existing chunk invalidate through the build path instead.
	if isNew {
		in.visibility.Invalidate()
	}

	in.drainDeferred()
}

// OnSurfaceColumnData applies a tile plus every non-empty chunk of its
// column. The server sends chunks bottom-up; they are ingested top-down so
// sunlight seeds descend correctly within the same tick.
func (in *Ingestor) OnSurfaceColumnData(d *SurfaceColumnData) {
	defer profiling.Track("ingest.SurfaceColumn")()

	col := d.Column()
	in.store.ClearPendingColumn(col)
	in.tiles.Put(NewMapTile(col, d.Heights, d.Materials))
	if t := in.tiles.Get(col); t != nil {
		in.store.SetColumnInfo(col, ColumnInfo{MaxChunkY: t.MaxChunkY})
	}

	// Install all voxel data first so relighting sees the full column.
	for i := len(d.Chunks) - 1; i >= 0; i-- {
		cd := &d.Chunks[i]
		coord := voxel.ChunkCoord{X: col.X, Y: int(cd.ChunkY), Z: col.Z}
		in.store.ClearPendingChunk(coord)

		chunk := in.store.Get(coord)
		if chunk == nil {
			chunk = voxel.NewChunk(coord)
			in.store.Insert(chunk)
		}
		chunk.CopyFrom(&cd.VoxelData)
		chunk.LastBuildSeq = cd.LastBuildSeq
		chunk.Dirty = true
		chunk.RecomputeVisibility()
	}

	var touched []*voxel.Chunk
	for i := len(d.Chunks) - 1; i >= 0; i-- {
		coord := voxel.ChunkCoord{X: col.X, Y: int(d.Chunks[i].ChunkY), Z: col.Z}
		chunk := in.store.Get(coord)
		in.lighting.Relight(chunk)
		touched = append(touched, chunk)

		for _, f := range [4]voxel.Face{voxel.FaceXPos, voxel.FaceXNeg, voxel.FaceZPos, voxel.FaceZNeg} {
			if n := in.store.Get(coord.Neighbor(f)); n != nil {
				in.lighting.Relight(n)
				touched = append(touched, n)
			}
		}
	}
	in.remeshTouched(touched)

	in.visibility.Invalidate()
	in.drainDeferred()

	slog.Debug("surface column ingested", "tx", col.X, "tz", col.Z, "chunks", len(d.Chunks))
}

// OnTileData stores a tile and unlocks chunk requests for its column.
func (in *Ingestor) OnTileData(d *TileData) {
	defer profiling.Track("ingest.TileData")()

	col := d.Column()
	in.store.ClearPendingColumn(col)
	t := NewMapTile(col, d.Heights, d.Materials)
	in.tiles.Put(t)
	in.store.SetColumnInfo(col, ColumnInfo{MaxChunkY: t.MaxChunkY})

	// New chunks in this column can now be requested.
	in.visibility.Invalidate()
}

func (in *Ingestor) remeshTouched(touched []*voxel.Chunk) {
	if in.EnqueueRemesh == nil {
		return
	}
	seen := make(map[voxel.ChunkCoord]struct{}, len(touched))
	for _, c := range touched {
		if _, dup := seen[c.Coord]; dup {
			continue
		}
		seen[c.Coord] = struct{}{}
		in.EnqueueRemesh(c.Coord)
	}
}

func (in *Ingestor) drainDeferred() {
	for _, batch := range in.applier.DrainDeferred() {
		in.visibility.Invalidate()
		if in.CommitBatch != nil {
			in.CommitBatch(batch)
		}
	}
}
