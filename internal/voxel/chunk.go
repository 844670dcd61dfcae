package voxel

// Chunk is an owned 32^3 voxel block. Ownership is exclusive to the world
// store; every other component borrows it.
type Chunk struct {
	Coord ChunkCoord
	data  [ChunkVolume]Voxel

	// Dirty marks the chunk for remesh.
	Dirty bool

	// VisibilityBits is the 15-bit undirected face-pair graph: bit (f,g) set
	// means air reaches between faces f and g through this chunk.
	VisibilityBits uint16

	// FaceMask bit f is set iff the 1-voxel boundary slab of face f contains
	// at least one non-solid voxel, i.e. meshing needs the neighbor across f.
	FaceMask uint8

	// LastBuildSeq is the last build sequence the server applied to this
	// chunk. Reserved for conflict reconciliation.
	LastBuildSeq uint32
}

// NewChunk creates an empty (all air) chunk at the given coordinate.
func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{Coord: coord, Dirty: true}
}

// Index flattens local coordinates: index = x + (z + y*CS)*CS.
func Index(x, y, z int) int {
	return x + (z+y*ChunkSize)*ChunkSize
}

// At returns the voxel at local coordinates. Out-of-range panics; callers
// hold the 0..31 contract.
func (c *Chunk) At(x, y, z int) Voxel {
	return c.data[Index(x, y, z)]
}

// Set writes the voxel at local coordinates.
func (c *Chunk) Set(x, y, z int, v Voxel) {
	c.data[Index(x, y, z)] = v
}

// AtIndex returns the voxel at a flat index.
func (c *Chunk) AtIndex(i int) Voxel {
	return c.data[i]
}

// SetIndex writes the voxel at a flat index.
func (c *Chunk) SetIndex(i int, v Voxel) {
	c.data[i] = v
}

// Data returns the backing voxel array for bulk copies.
func (c *Chunk) Data() *[ChunkVolume]Voxel {
	return &c.data
}

// CopyFrom replaces the chunk contents with the given voxel data.
func (c *Chunk) CopyFrom(data *[ChunkVolume]Voxel) {
	c.data = *data
}

// Empty reports whether every voxel is air.
func (c *Chunk) Empty() bool {
	for _, v := range c.data {
		if v.Material() != MaterialAir {
			return false
		}
	}
	return true
}

// faceTouches marks in touch the faces the voxel at (x, y, z) lies on.
func faceTouches(x, y, z int, touch *[FaceCount]bool) {
	if x == ChunkSize-1 {
		touch[FaceXPos] = true
	}
	if x == 0 {
		touch[FaceXNeg] = true
	}
	if y == ChunkSize-1 {
		touch[FaceYPos] = true
	}
	if y == 0 {
		touch[FaceYNeg] = true
	}
	if z == ChunkSize-1 {
		touch[FaceZPos] = true
	}
	if z == 0 {
		touch[FaceZNeg] = true
	}
}

// RecomputeVisibility rebuilds VisibilityBits and FaceMask from the voxel
// data. It flood-fills the non-solid region; each connected component that
// touches two or more faces contributes those face pairs to the graph.
func (c *Chunk) RecomputeVisibility() {
	var bits uint16
	var mask uint8

	visited := make([]bool, ChunkVolume)
	queue := make([]int32, 0, 1024)

	for start := 0; start < ChunkVolume; start++ {
		if visited[start] || c.data[start].Solid() {
			continue
		}

		var touch [FaceCount]bool
		queue = queue[:0]
		queue = append(queue, int32(start))
		visited[start] = true

		for len(queue) > 0 {
			idx := int(queue[len(queue)-1])
			queue = queue[:len(queue)-1]

			x := idx % ChunkSize
			z := (idx / ChunkSize) % ChunkSize
			y := idx / ChunkArea
			faceTouches(x, y, z, &touch)

			for f := Face(0); f < FaceCount; f++ {
				d := FaceDirs[f]
				nx, ny, nz := x+d[0], y+d[1], z+d[2]
				if nx < 0 || nx >= ChunkSize || ny < 0 || ny >= ChunkSize || nz < 0 || nz >= ChunkSize {
					continue
				}
				ni := Index(nx, ny, nz)
				if visited[ni] || c.data[ni].Solid() {
					continue
				}
				visited[ni] = true
				queue = append(queue, int32(ni))
			}
		}

		for a := Face(0); a < FaceCount; a++ {
			if !touch[a] {
				continue
			}
			mask |= 1 << a
			for b := a + 1; b < FaceCount; b++ {
				if touch[b] {
					bits |= FacePairBit(a, b)
				}
			}
		}
	}

	c.VisibilityBits = bits
	c.FaceMask = mask
}

// CanTraverse reports whether a path through this chunk can enter at face
// `from` and leave at face `to`.
func (c *Chunk) CanTraverse(from, to Face) bool {
	if from == to {
		return false
	}
	return c.VisibilityBits&FacePairBit(from, to) != 0
}

// NeedsNeighbor reports whether meshing this chunk requires the neighbor
// across face f for seamless stitching.
func (c *Chunk) NeedsNeighbor(f Face) bool {
	return c.FaceMask&(1<<f) != 0
}
