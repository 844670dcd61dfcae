package voxel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestIndexLayout(t *testing.T) {
	assert.Equal(t, 0, Index(0, 0, 0))
	assert.Equal(t, 1, Index(1, 0, 0))
	assert.Equal(t, ChunkSize, Index(0, 0, 1))
	assert.Equal(t, ChunkArea, Index(0, 1, 0))
	assert.Equal(t, ChunkVolume-1, Index(ChunkSize-1, ChunkSize-1, ChunkSize-1))
}

func TestEmptyChunkVisibility(t *testing.T) {
	c := NewChunk(ChunkCoord{})
	c.RecomputeVisibility()

	// Air everywhere: every face pair connected, every face surfaced.
	assert.Equal(t, uint16(0x7FFF), c.VisibilityBits)
	assert.Equal(t, uint8(0x3F), c.FaceMask)
	for a := Face(0); a < FaceCount; a++ {
		for b := Face(0); b < FaceCount; b++ {
			if a != b {
				assert.True(t, c.CanTraverse(a, b))
			}
		}
	}
}

func TestSolidChunkVisibility(t *testing.T) {
	c := NewChunk(ChunkCoord{})
	for i := 0; i < ChunkVolume; i++ {
		c.SetIndex(i, Pack(MaterialStone, 0, false))
	}
	c.RecomputeVisibility()

	assert.Equal(t, uint16(0), c.VisibilityBits)
	assert.Equal(t, uint8(0), c.FaceMask)
	assert.False(t, c.CanTraverse(FaceXPos, FaceXNeg))
}

func TestWallSplitsVisibility(t *testing.T) {
	// A full solid wall at x=16 cuts +X from -X but leaves each side
	// connected to the other four faces.
	c := NewChunk(ChunkCoord{})
	for y := 0; y < ChunkSize; y++ {
		for z := 0; z < ChunkSize; z++ {
			c.Set(16, y, z, Pack(MaterialStone, 0, false))
		}
	}
	c.RecomputeVisibility()

	assert.False(t, c.CanTraverse(FaceXPos, FaceXNeg))
	assert.True(t, c.CanTraverse(FaceXPos, FaceYPos))
	assert.True(t, c.CanTraverse(FaceXNeg, FaceYPos))
	assert.True(t, c.CanTraverse(FaceZPos, FaceZNeg))
	assert.Equal(t, uint8(0x3F), c.FaceMask)
}

func TestFaceMaskMatchesBoundary(t *testing.T) {
	// Solid chunk with a single air pocket on the -X face.
	c := NewChunk(ChunkCoord{})
	for i := 0; i < ChunkVolume; i++ {
		c.SetIndex(i, Pack(MaterialStone, 0, false))
	}
	c.Set(0, 10, 10, Pack(MaterialAir, 0, false))
	c.RecomputeVisibility()

	assert.True(t, c.NeedsNeighbor(FaceXNeg))
	assert.False(t, c.NeedsNeighbor(FaceXPos))
	assert.False(t, c.NeedsNeighbor(FaceYPos))
	// One isolated boundary voxel reaches no second face.
	assert.Equal(t, uint16(0), c.VisibilityBits)
}

func TestWorldToChunkFloor(t *testing.T) {
	// Positions exactly on a face belong to the higher chunk, by floor.
	assert.Equal(t, ChunkCoord{0, 0, 0}, WorldToChunk(mgl32.Vec3{0, 0, 0}))
	assert.Equal(t, ChunkCoord{0, 0, 0}, WorldToChunk(mgl32.Vec3{31.9, 0, 0}))
	assert.Equal(t, ChunkCoord{1, 0, 0}, WorldToChunk(mgl32.Vec3{32, 0, 0}))
	assert.Equal(t, ChunkCoord{-1, 0, 0}, WorldToChunk(mgl32.Vec3{-0.5, 0, 0}))
}

func BenchmarkRecomputeVisibility(b *testing.B) {
	c := NewChunk(ChunkCoord{})
	for y := 0; y < ChunkSize/2; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				c.Set(x, y, z, Pack(MaterialStone, 0, false))
			}
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecomputeVisibility()
	}
}
