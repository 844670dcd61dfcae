package meshing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldify/internal/voxel"
)

type mapSource map[voxel.ChunkCoord]*voxel.Chunk

func (m mapSource) Get(c voxel.ChunkCoord) *voxel.Chunk { return m[c] }

func fillChunk(coord voxel.ChunkCoord, material uint8, inside func(x, y, z int) bool) *voxel.Chunk {
	c := voxel.NewChunk(coord)
	for y := 0; y < voxel.ChunkSize; y++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			for x := 0; x < voxel.ChunkSize; x++ {
				if inside(x, y, z) {
					c.Set(x, y, z, voxel.Pack(material, 0, false))
				}
			}
		}
	}
	return c
}

func floorSource(material uint8, height int) (mapSource, voxel.ChunkCoord) {
	coord := voxel.ChunkCoord{}
	return mapSource{coord: fillChunk(coord, material, func(x, y, z int) bool { return y < height })}, coord
}

func TestExpandMarksUnknownBoundaries(t *testing.T) {
	source, coord := floorSource(voxel.MaterialStone, 8)
	grid := new(Grid)
	skip := Expand(source, coord, grid)

	assert.Equal(t, [3]bool{true, true, true}, skip)
	// Interior copied, unknown margin reads air.
	assert.Equal(t, voxel.MaterialStone, grid.At(0, 0, 0).Material())
	assert.Equal(t, voxel.MaterialAir, grid.At(-1, 0, 0).Material())
	assert.Equal(t, voxel.MaterialAir, grid.At(voxel.ChunkSize, 0, 0).Material())
}

func TestExpandCopiesNeighborMargins(t *testing.T) {
	coord := voxel.ChunkCoord{}
	source := mapSource{
		coord: fillChunk(coord, voxel.MaterialStone, func(x, y, z int) bool { return y < 8 }),
		{X: 1}: fillChunk(voxel.ChunkCoord{X: 1}, voxel.MaterialBrick, func(x, y, z int) bool { return true }),
	}

	grid := new(Grid)
	skip := Expand(source, coord, grid)

	assert.False(t, skip[0], "+X margin known")
	assert.True(t, skip[1])
	assert.True(t, skip[2])
	// +X margin holds the neighbor's x=0 slab.
	assert.Equal(t, voxel.MaterialBrick, grid.At(voxel.ChunkSize, 10, 10).Material())
}

func TestFlatFloorMesh(t *testing.T) {
	source, coord := floorSource(voxel.MaterialGrass, 8)
	grid := new(Grid)
	skip := Expand(source, coord, grid)

	res := BuildMesh(coord, grid, skip)

	solid := &res.Buffers[SubmeshSolid]
	require.False(t, solid.Empty())
	assert.True(t, res.Buffers[SubmeshTransparent].Empty())
	assert.True(t, res.Buffers[SubmeshLiquid].Empty())

	// Vertex invariants: weights sum to one, positions stay strictly below
	// the unknown high boundaries.
	for i := 0; i < solid.VertexCount(); i++ {
		wsum := solid.MaterialWeights[i*3] + solid.MaterialWeights[i*3+1] + solid.MaterialWeights[i*3+2]
		assert.InDelta(t, 1.0, wsum, 1e-5)
		assert.Less(t, solid.Positions[i*3], float32(voxel.ChunkSize))
		assert.Less(t, solid.Positions[i*3+1], float32(voxel.ChunkSize))
		assert.Less(t, solid.Positions[i*3+2], float32(voxel.ChunkSize))
		assert.Equal(t, float32(voxel.MaterialGrass), solid.MaterialIDs[i*3])
	}

	// Indices reference real vertices.
	for _, idx := range solid.Indices {
		assert.Less(t, int(idx), solid.VertexCount())
	}

	// The top surface sits at the solid/air crossing near y=7.5 and its
	// normals point up.
	upCount := 0
	for i := 0; i < solid.VertexCount(); i++ {
		if solid.Normals[i*3+1] > 0.9 {
			upCount++
			assert.InDelta(t, 7.5, solid.Positions[i*3+1], 0.6)
		}
	}
	assert.Greater(t, upCount, 0)
}

func TestKnownBoundaryMeshesToEdge(t *testing.T) {
	// With the +X neighbor loaded and solid, the floor seam continues to
	// the chunk edge: vertices may reach x=ChunkSize.
	coord := voxel.ChunkCoord{}
	source := mapSource{
		coord: fillChunk(coord, voxel.MaterialGrass, func(x, y, z int) bool { return y < 8 }),
		{X: 1}: fillChunk(voxel.ChunkCoord{X: 1}, voxel.MaterialGrass, func(x, y, z int) bool { return y < 8 }),
	}
	grid := new(Grid)
	skip := Expand(source, coord, grid)
	require.False(t, skip[0])

	res := BuildMesh(coord, grid, skip)
	solid := &res.Buffers[SubmeshSolid]

	maxX := float32(-1)
	for i := 0; i < solid.VertexCount(); i++ {
		if solid.Positions[i*3] > maxX {
			maxX = solid.Positions[i*3]
		}
	}
	assert.Greater(t, maxX, float32(voxel.ChunkSize-1))
}

func TestLiquidAndTransparentSubmeshes(t *testing.T) {
	coord := voxel.ChunkCoord{}
	c := voxel.NewChunk(coord)
	// A water pool and a glass block, far apart.
	for z := 4; z < 8; z++ {
		for x := 4; x < 8; x++ {
			c.Set(x, 4, z, voxel.Pack(voxel.MaterialWater, 0, false))
		}
	}
	c.Set(20, 20, 20, voxel.Pack(voxel.MaterialGlass, 0, false))

	grid := new(Grid)
	skip := Expand(mapSource{coord: c}, coord, grid)
	res := BuildMesh(coord, grid, skip)

	assert.False(t, res.Buffers[SubmeshLiquid].Empty())
	assert.False(t, res.Buffers[SubmeshTransparent].Empty())
	assert.True(t, res.Buffers[SubmeshSolid].Empty())
}

func TestMaterialBlendAtSeam(t *testing.T) {
	coord := voxel.ChunkCoord{}
	c := fillChunk(coord, voxel.MaterialDirt, func(x, y, z int) bool { return y < 8 })
	// Grass on the +X half of the floor surface.
	for z := 0; z < voxel.ChunkSize; z++ {
		for x := 16; x < voxel.ChunkSize; x++ {
			c.Set(x, 7, z, voxel.Pack(voxel.MaterialGrass, 0, false))
		}
	}

	grid := new(Grid)
	res := BuildMesh(coord, grid, Expand(mapSource{coord: c}, coord, grid))
	solid := &res.Buffers[SubmeshSolid]

	// Some vertex near the seam blends both materials.
	blended := false
	for i := 0; i < solid.VertexCount(); i++ {
		ids := solid.MaterialIDs[i*3 : i*3+3]
		if ids[0] != ids[1] && solid.MaterialWeights[i*3+1] > 0 {
			blended = true
			break
		}
	}
	assert.True(t, blended)
}

func TestEmptyChunkMeshesEmpty(t *testing.T) {
	coord := voxel.ChunkCoord{}
	grid := new(Grid)
	skip := Expand(mapSource{coord: voxel.NewChunk(coord)}, coord, grid)
	res := BuildMesh(coord, grid, skip)
	assert.True(t, res.Empty())
}

func TestSunlightAttribute(t *testing.T) {
	coord := voxel.ChunkCoord{}
	c := fillChunk(coord, voxel.MaterialStone, func(x, y, z int) bool { return y < 8 })
	// Fully lit air above the floor.
	for z := 0; z < voxel.ChunkSize; z++ {
		for x := 0; x < voxel.ChunkSize; x++ {
			for y := 8; y < voxel.ChunkSize; y++ {
				c.Set(x, y, z, voxel.Pack(voxel.MaterialAir, voxel.MaxLight, true))
			}
		}
	}

	grid := new(Grid)
	res := BuildMesh(coord, grid, Expand(mapSource{coord: c}, coord, grid))
	solid := &res.Buffers[SubmeshSolid]
	require.False(t, solid.Empty())

	// Surface vertices see the lit corners above them.
	lit := 0
	for _, s := range solid.Sunlight {
		if s == 1.0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0)
}

func BenchmarkBuildMesh(b *testing.B) {
	source, coord := floorSource(voxel.MaterialStone, 16)
	grid := new(Grid)
	skip := Expand(source, coord, grid)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildMesh(coord, grid, skip)
	}
}
