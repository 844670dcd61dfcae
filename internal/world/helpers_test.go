package world

import (
	"worldify/internal/voxel"
)

// newTestChunk builds a chunk with fill applied to every voxel the
// predicate selects (local coords).
func newTestChunk(coord voxel.ChunkCoord, material uint8, inside func(x, y, z int) bool) *voxel.Chunk {
	c := voxel.NewChunk(coord)
	if inside != nil {
		for y := 0; y < voxel.ChunkSize; y++ {
			for z := 0; z < voxel.ChunkSize; z++ {
				for x := 0; x < voxel.ChunkSize; x++ {
					if inside(x, y, z) {
						c.Set(x, y, z, voxel.Pack(material, 0, false))
					}
				}
			}
		}
	}
	c.RecomputeVisibility()
	return c
}

func solidChunk(coord voxel.ChunkCoord) *voxel.Chunk {
	return newTestChunk(coord, voxel.MaterialStone, func(x, y, z int) bool { return true })
}

func emptyChunk(coord voxel.ChunkCoord) *voxel.Chunk {
	return newTestChunk(coord, 0, nil)
}

// groundChunk is air above a solid floor slab of the given height.
func groundChunk(coord voxel.ChunkCoord, floorHeight int) *voxel.Chunk {
	return newTestChunk(coord, voxel.MaterialGrass, func(x, y, z int) bool { return y < floorHeight })
}

// flatHeights fills a tile height array with a constant surface Y.
func flatHeights(h int16) (out [MapTileSize * MapTileSize]int16) {
	for i := range out {
		out[i] = h
	}
	return out
}

func flatMaterials(m uint8) (out [MapTileSize * MapTileSize]uint8) {
	for i := range out {
		out[i] = m
	}
	return out
}

// recordingSink captures scheduler traffic for assertions.
type recordingSink struct {
	chunks  []voxel.ChunkCoord
	regens  []bool
	tiles   []voxel.ColumnCoord
	columns []voxel.ColumnCoord
}

func (r *recordingSink) SendChunkRequest(coord voxel.ChunkCoord, forceRegen bool) {
	r.chunks = append(r.chunks, coord)
	r.regens = append(r.regens, forceRegen)
}

func (r *recordingSink) SendTileRequest(col voxel.ColumnCoord) {
	r.tiles = append(r.tiles, col)
}

func (r *recordingSink) SendSurfaceColumnRequest(col voxel.ColumnCoord) {
	r.columns = append(r.columns, col)
}
