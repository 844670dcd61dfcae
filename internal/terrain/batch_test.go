package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldify/internal/meshing"
	"worldify/internal/voxel"
)

// quadResult fabricates a one-quad solid mesh for a chunk.
func quadResult(coord voxel.ChunkCoord) *meshing.MeshResult {
	res := &meshing.MeshResult{Coord: coord}
	buf := &res.Buffers[meshing.SubmeshSolid]
	buf.Positions = []float32{0, 0, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1}
	buf.Normals = []float32{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0}
	buf.MaterialIDs = []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	buf.MaterialWeights = []float32{1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0}
	buf.Sunlight = []float32{1, 1, 1, 1}
	buf.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return res
}

func TestGroupOf(t *testing.T) {
	assert.Equal(t, GroupCoord{0, 0, 0}, GroupOf(voxel.ChunkCoord{X: 3, Y: 3, Z: 3}))
	assert.Equal(t, GroupCoord{1, 0, 0}, GroupOf(voxel.ChunkCoord{X: 4}))
	assert.Equal(t, GroupCoord{-1, 0, 0}, GroupOf(voxel.ChunkCoord{X: -1}))
}

func TestBatchMergesGroupMembers(t *testing.T) {
	b := NewBatch()

	// Two chunks in the same group, one in another.
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 1}))
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 7}))
	b.Rebuild(mgl32.Vec3{}, 100)

	assert.Equal(t, 2, b.GroupCount())

	// Coverage: merged triangles equal the union of member triangles.
	total := 0
	b.Each(func(g *Group) {
		geo := g.Merged[meshing.SubmeshSolid]
		require.False(t, geo.Empty())
		total += len(geo.Indices) / 3
	})
	assert.Equal(t, 6, total)
}

func TestBatchOffsetsByChunkOrigin(t *testing.T) {
	b := NewBatch()
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 1}))
	b.Rebuild(mgl32.Vec3{}, 100)

	b.Each(func(g *Group) {
		geo := g.Merged[meshing.SubmeshSolid]
		require.False(t, geo.Empty())
		// Local x=0 becomes world x=32.
		assert.Equal(t, float32(voxel.ChunkWorldSize), geo.Positions[0])
		assert.Equal(t, float32(voxel.ChunkWorldSize), geo.Min.X())
	})
}

func TestBatchRemoveChunkRemerges(t *testing.T) {
	b := NewBatch()
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 1}))
	b.Rebuild(mgl32.Vec3{}, 100)

	v := b.SolidVersion()
	b.RemoveChunk(voxel.ChunkCoord{X: 1})
	b.Rebuild(mgl32.Vec3{}, 100)
	assert.NotEqual(t, v, b.SolidVersion())

	b.Each(func(g *Group) {
		assert.Equal(t, 2, len(g.Merged[meshing.SubmeshSolid].Indices)/3)
	})

	// Removing the last member drops the group.
	b.RemoveChunk(voxel.ChunkCoord{X: 0})
	b.Rebuild(mgl32.Vec3{}, 100)
	assert.Equal(t, 0, b.GroupCount())
}

func TestBatchPreviewHidesChunk(t *testing.T) {
	b := NewBatch()
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 1}))
	b.Rebuild(mgl32.Vec3{}, 100)

	b.SetPreviewActive(voxel.ChunkCoord{X: 1}, true)
	b.Rebuild(mgl32.Vec3{}, 100)
	b.Each(func(g *Group) {
		assert.Equal(t, 2, len(g.Merged[meshing.SubmeshSolid].Indices)/3)
	})

	b.SetPreviewActive(voxel.ChunkCoord{X: 1}, false)
	b.Rebuild(mgl32.Vec3{}, 100)
	b.Each(func(g *Group) {
		assert.Equal(t, 4, len(g.Merged[meshing.SubmeshSolid].Indices)/3)
	})
}

func TestBatchShadowFlag(t *testing.T) {
	b := NewBatch()
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 40})) // group center far away
	b.Rebuild(mgl32.Vec3{64, 64, 64}, 200)

	near := b.groups[GroupOf(voxel.ChunkCoord{X: 0})]
	far := b.groups[GroupOf(voxel.ChunkCoord{X: 40})]
	require.NotNil(t, near)
	require.NotNil(t, far)
	assert.True(t, near.CastsShadow)
	assert.False(t, far.CastsShadow)
}

func TestBatchGenerationBumpsOnMerge(t *testing.T) {
	b := NewBatch()
	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.Rebuild(mgl32.Vec3{}, 100)

	var gen uint64
	b.Each(func(g *Group) { gen = g.Generation })

	// Clean rebuild does not remerge.
	b.Rebuild(mgl32.Vec3{}, 100)
	b.Each(func(g *Group) { assert.Equal(t, gen, g.Generation) })

	b.SetChunkMesh(quadResult(voxel.ChunkCoord{X: 0}))
	b.Rebuild(mgl32.Vec3{}, 100)
	b.Each(func(g *Group) { assert.Greater(t, g.Generation, gen) })
}
