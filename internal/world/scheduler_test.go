package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldify/internal/voxel"
)

func TestSchedulerBootstrapsWithSurfaceColumn(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := NewScheduler(store, sink)

	observer := voxel.ChunkCoord{X: 3, Z: -2}
	desired := map[voxel.ChunkCoord]struct{}{{X: 3, Y: 0, Z: -2}: {}}

	s.Tick(observer, desired)

	// Only the surface column goes out, and it blocks everything else.
	require.Equal(t, []voxel.ColumnCoord{{X: 3, Z: -2}}, sink.columns)
	assert.Empty(t, sink.chunks)
	assert.Empty(t, sink.tiles)
	assert.False(t, s.Bootstrapped())

	s.Tick(observer, desired)
	assert.Empty(t, sink.chunks, "blocked until the column reply arrives")

	// Reply arrives: pending clears, traffic resumes.
	store.ClearPendingColumn(voxel.ColumnCoord{X: 3, Z: -2})
	assert.True(t, s.Bootstrapped())
}

func bootstrappedScheduler(store *Store, sink *recordingSink) *Scheduler {
	s := NewScheduler(store, sink)
	s.Tick(voxel.ChunkCoord{}, nil)
	store.ClearPendingColumn(voxel.ColumnCoord{})
	sink.columns = nil
	return s
}

func TestSchedulerRequestsTilesForUnknownColumns(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)

	s.Tick(voxel.ChunkCoord{}, map[voxel.ChunkCoord]struct{}{
		{X: 1, Y: 0, Z: 0}: {},
		{X: 1, Y: 1, Z: 0}: {},
	})

	// Unknown column: one tile request, no chunk requests, no duplicate for
	// the second chunk of the same column.
	assert.Equal(t, []voxel.ColumnCoord{{X: 1, Z: 0}}, sink.tiles)
	assert.Empty(t, sink.chunks)
	assert.True(t, store.IsPendingColumn(voxel.ColumnCoord{X: 1, Z: 0}))
}

func TestSchedulerGatesChunksOnSurfaceExtent(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)

	store.SetColumnInfo(voxel.ColumnCoord{X: 1, Z: 0}, ColumnInfo{MaxChunkY: 1})

	s.Tick(voxel.ChunkCoord{}, map[voxel.ChunkCoord]struct{}{
		{X: 1, Y: 0, Z: 0}: {},
		{X: 1, Y: 1, Z: 0}: {},
		{X: 1, Y: 5, Z: 0}: {}, // above the surface: pure air, never fetched
	})

	assert.ElementsMatch(t, []voxel.ChunkCoord{{X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}, sink.chunks)
	assert.Empty(t, sink.tiles)
}

func TestSchedulerCapsPendingRequests(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)

	desired := make(map[voxel.ChunkCoord]struct{})
	for x := 0; x < 10; x++ {
		store.SetColumnInfo(voxel.ColumnCoord{X: x, Z: 0}, ColumnInfo{MaxChunkY: 0})
		desired[voxel.ChunkCoord{X: x}] = struct{}{}
	}

	s.Tick(voxel.ChunkCoord{}, desired)
	assert.Len(t, sink.chunks, MaxPendingChunks)

	// Nearest first.
	assert.Equal(t, voxel.ChunkCoord{X: 0}, sink.chunks[0])

	// Saturated: nothing more goes out until replies clear the pending set.
	s.Tick(voxel.ChunkCoord{}, desired)
	assert.Len(t, sink.chunks, MaxPendingChunks)

	store.ClearPendingChunk(sink.chunks[0])
	s.Tick(voxel.ChunkCoord{}, desired)
	assert.Len(t, sink.chunks, MaxPendingChunks+1)
}

func TestSchedulerTileCap(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)

	desired := make(map[voxel.ChunkCoord]struct{})
	for x := 0; x < 10; x++ {
		desired[voxel.ChunkCoord{X: x}] = struct{}{}
	}

	s.Tick(voxel.ChunkCoord{}, desired)
	assert.Len(t, sink.tiles, MaxPendingTiles)
}

func TestSchedulerMarginNeighborSupplement(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)

	// A loaded ground chunk surfaces on every face but its solid floor
	// (-Y); those unloaded neighbors are needed for stitching even with an
	// empty desire set.
	store.Insert(groundChunk(voxel.ChunkCoord{}, 8))
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			store.SetColumnInfo(voxel.ColumnCoord{X: x, Z: z}, ColumnInfo{MaxChunkY: 2})
		}
	}

	s.Tick(voxel.ChunkCoord{}, nil)

	require.NotEmpty(t, sink.chunks)
	for _, c := range sink.chunks {
		assert.Equal(t, 1, c.ChebyshevDist(voxel.ChunkCoord{}), "only face neighbors of the loaded chunk")
	}
}

func TestSchedulerForceRegenFlag(t *testing.T) {
	store := NewStore()
	sink := &recordingSink{}
	s := bootstrappedScheduler(store, sink)
	s.ForceRegen = true

	store.SetColumnInfo(voxel.ColumnCoord{X: 1, Z: 0}, ColumnInfo{MaxChunkY: 0})
	s.Tick(voxel.ChunkCoord{}, map[voxel.ChunkCoord]struct{}{{X: 1}: {}})

	require.Len(t, sink.regens, 1)
	assert.True(t, sink.regens[0])
}
