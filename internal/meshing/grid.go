package meshing

import (
	"worldify/internal/voxel"
)

const (
	// Margin is the neighbor border copied into the padded grid so chunk
	// seams mesh without cracks.
	Margin = 1
	// GridSize is the padded grid edge: chunk plus one margin voxel per side.
	GridSize = voxel.ChunkSize + 2*Margin
	// GridVolume is the padded grid cell count.
	GridVolume = GridSize * GridSize * GridSize
)

// Grid is the padded voxel snapshot a worker meshes. It is copied out of the
// store on the main thread; workers never touch chunks.
type Grid [GridVolume]voxel.Voxel

// gridIndex flattens padded coordinates (0..GridSize-1 per axis).
func gridIndex(x, y, z int) int {
	return x + (z+y*GridSize)*GridSize
}

// At returns the voxel at local chunk coordinates -1..ChunkSize.
func (g *Grid) At(x, y, z int) voxel.Voxel {
	return g[gridIndex(x+Margin, y+Margin, z+Margin)]
}

func (g *Grid) set(x, y, z int, v voxel.Voxel) {
	g[gridIndex(x+Margin, y+Margin, z+Margin)] = v
}

// ChunkSource resolves chunk keys during grid expansion. Satisfied by the
// world store.
type ChunkSource interface {
	Get(coord voxel.ChunkCoord) *voxel.Chunk
}

// Expand fills the grid with the chunk's voxels plus a one-voxel margin
// copied from the face, edge and corner neighbors. Margin voxels whose
// source chunk is absent read as air; the returned skipHighBoundary flags,
// one per positive axis, are set when that face's margin was not fully
// known — the mesher must not emit quads straddling such a boundary.
func Expand(source ChunkSource, coord voxel.ChunkCoord, grid *Grid) (skipHighBoundary [3]bool) {
	chunk := source.Get(coord)
	if chunk == nil {
		panic("meshing: expand of unloaded chunk")
	}

	for i := range grid {
		grid[i] = 0
	}

	for y := 0; y < cs; y++ {
		for z := 0; z < cs; z++ {
			for x := 0; x < cs; x++ {
				grid.set(x, y, z, chunk.At(x, y, z))
			}
		}
	}

	// Neighbor cache for the up-to-26 margin sources.
	neighbors := make(map[voxel.ChunkCoord]*voxel.Chunk, 26)
	lookup := func(c voxel.ChunkCoord) *voxel.Chunk {
		if n, ok := neighbors[c]; ok {
			return n
		}
		n := source.Get(c)
		neighbors[c] = n
		return n
	}

	for y := -Margin; y < cs+Margin; y++ {
		for z := -Margin; z < cs+Margin; z++ {
			for x := -Margin; x < cs+Margin; x++ {
				inX := x >= 0 && x < cs
				inY := y >= 0 && y < cs
				inZ := z >= 0 && z < cs
				if inX && inY && inZ {
					continue
				}

				nc := voxel.ChunkCoord{
					X: coord.X + voxel.FloorDiv(x, cs),
					Y: coord.Y + voxel.FloorDiv(y, cs),
					Z: coord.Z + voxel.FloorDiv(z, cs),
				}
				n := lookup(nc)
				if n == nil {
					// Only the face slab decides a face's flag; edge and
					// corner margins of absent diagonal chunks read as air.
					if x == cs && inY && inZ {
						skipHighBoundary[0] = true
					}
					if y == cs && inX && inZ {
						skipHighBoundary[1] = true
					}
					if z == cs && inX && inY {
						skipHighBoundary[2] = true
					}
					continue
				}
				grid.set(x, y, z, n.At(voxel.FloorMod(x, cs), voxel.FloorMod(y, cs), voxel.FloorMod(z, cs)))
			}
		}
	}

	return skipHighBoundary
}
