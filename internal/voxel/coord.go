package voxel

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChunkSize is the voxel count per axis.
	ChunkSize = 32
	// ChunkArea is one horizontal layer of a chunk.
	ChunkArea = ChunkSize * ChunkSize
	// ChunkVolume is the voxel count of a whole chunk.
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize

	// VoxelScale converts voxel units to meters.
	VoxelScale = 1.0
	// ChunkWorldSize is the chunk edge length in meters.
	ChunkWorldSize = ChunkSize * VoxelScale
)

// ChunkCoord identifies a chunk by its integer grid position.
type ChunkCoord struct {
	X, Y, Z int
}

// ColumnCoord identifies a vertical stack of chunks (and its map tile).
type ColumnCoord struct {
	X, Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Column returns the column this chunk belongs to.
func (c ChunkCoord) Column() ColumnCoord {
	return ColumnCoord{X: c.X, Z: c.Z}
}

// Offset returns the coordinate shifted by (dx, dy, dz).
func (c ChunkCoord) Offset(dx, dy, dz int) ChunkCoord {
	return ChunkCoord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Neighbor returns the coordinate across the given face.
func (c ChunkCoord) Neighbor(f Face) ChunkCoord {
	d := FaceDirs[f]
	return c.Offset(d[0], d[1], d[2])
}

// WorldOrigin returns the world-space position of the chunk's (0,0,0) voxel.
func (c ChunkCoord) WorldOrigin() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X) * ChunkWorldSize,
		float32(c.Y) * ChunkWorldSize,
		float32(c.Z) * ChunkWorldSize,
	}
}

// Center returns the world-space center of the chunk.
func (c ChunkCoord) Center() mgl32.Vec3 {
	return c.WorldOrigin().Add(mgl32.Vec3{ChunkWorldSize / 2, ChunkWorldSize / 2, ChunkWorldSize / 2})
}

// ChebyshevDist returns the L-infinity distance to another chunk, in chunks.
func (c ChunkCoord) ChebyshevDist(o ChunkCoord) int {
	dx := absInt(c.X - o.X)
	dy := absInt(c.Y - o.Y)
	dz := absInt(c.Z - o.Z)
	return max(dx, max(dy, dz))
}

// DistSq returns the squared euclidean distance in chunk units.
func (c ChunkCoord) DistSq(o ChunkCoord) int {
	dx := c.X - o.X
	dy := c.Y - o.Y
	dz := c.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// WorldToChunk maps a world position to the containing chunk. Positions on a
// face belong to the higher chunk, by floor.
func WorldToChunk(p mgl32.Vec3) ChunkCoord {
	return ChunkCoord{
		X: FloorDiv(int(math.Floor(float64(p.X()/VoxelScale))), ChunkSize),
		Y: FloorDiv(int(math.Floor(float64(p.Y()/VoxelScale))), ChunkSize),
		Z: FloorDiv(int(math.Floor(float64(p.Z()/VoxelScale))), ChunkSize),
	}
}

// WorldToVoxel maps a world position to global voxel coordinates.
func WorldToVoxel(p mgl32.Vec3) (int, int, int) {
	return int(math.Floor(float64(p.X() / VoxelScale))),
		int(math.Floor(float64(p.Y() / VoxelScale))),
		int(math.Floor(float64(p.Z() / VoxelScale)))
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod returns the non-negative remainder of FloorDiv.
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Face enumerates the six chunk faces.
type Face uint8

const (
	FaceXPos Face = iota
	FaceXNeg
	FaceYPos
	FaceYNeg
	FaceZPos
	FaceZNeg
	FaceCount = 6
)

// FaceDirs maps a face to its outward unit step.
var FaceDirs = [FaceCount][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Opposite returns the face on the other side of the chunk.
func (f Face) Opposite() Face {
	return f ^ 1
}

// pairOffsets flattens the 15 unordered face pairs into bit indices.
var pairOffsets = [5]int{0, 5, 9, 12, 14}

// FacePairBit returns the visibility-graph bit for the unordered pair (a, b).
// Panics when a == b; a chunk face always reaches itself.
func FacePairBit(a, b Face) uint16 {
	if a == b {
		panic("voxel: face pair requires two distinct faces")
	}
	if a > b {
		a, b = b, a
	}
	return 1 << (pairOffsets[a] + int(b) - int(a) - 1)
}
