package world

import (
	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// Lighting computes per-chunk sunlight: column seeding from sky exposure,
// border injection from loaded neighbors, then an in-chunk BFS flood.
// Lighting is pure CPU work over owned arrays; it has no failure mode.
type Lighting struct {
	store *Store

	// scratch BFS queue, reused across relights
	queue []int32
}

// NewLighting creates a lighting engine over the store.
func NewLighting(store *Store) *Lighting {
	return &Lighting{store: store, queue: make([]int32, 0, 4096)}
}

const cs = voxel.ChunkSize

// Relight recomputes the chunk's sunlight from scratch: seed, inject
// borders, flood.
func (l *Lighting) Relight(c *voxel.Chunk) {
	defer profiling.Track("lighting.Relight")()
	l.seedColumns(c)
	l.injectBorders(c)
	l.flood(c)
}

// seedColumns walks every (x, z) column top-down. A column starts exposed
// when the chunk above is missing (open sky) or its bottom voxel layer is
// still sky-exposed. Exposed non-solid voxels get full sunlight; everything
// below the first solid voxel is reset to dark.
func (l *Lighting) seedColumns(c *voxel.Chunk) {
	above := l.store.Get(c.Coord.Offset(0, 1, 0))

	for x := 0; x < cs; x++ {
		for z := 0; z < cs; z++ {
			exposed := true
			if above != nil {
				exposed = above.At(x, 0, z).SkyExposed()
			}
			for y := cs - 1; y >= 0; y-- {
				v := c.At(x, y, z)
				if v.Solid() {
					exposed = false
					c.Set(x, y, z, v.WithSunlight(0).WithSkyExposed(false))
					continue
				}
				if exposed {
					c.Set(x, y, z, v.WithSunlight(voxel.MaxLight).WithSkyExposed(true))
				} else {
					c.Set(x, y, z, v.WithSunlight(0).WithSkyExposed(false))
				}
			}
		}
	}
}

// injectBorders copies light in from the boundary slabs of the six loaded
// neighbors: a non-solid boundary voxel bordering a non-solid neighbor voxel
// with light L is raised to at least L-1.
func (l *Lighting) injectBorders(c *voxel.Chunk) {
	for f := voxel.Face(0); f < voxel.FaceCount; f++ {
		n := l.store.Get(c.Coord.Neighbor(f))
		if n == nil {
			continue
		}
		l.injectFace(c, n, f)
	}
}

// injectFace raises this chunk's face-f boundary from neighbor n's opposite
// boundary slab.
func (l *Lighting) injectFace(c, n *voxel.Chunk, f voxel.Face) {
	// own is the boundary plane coordinate in this chunk, theirs the
	// matching plane in the neighbor.
	own, theirs := 0, cs-1
	if f == voxel.FaceXPos || f == voxel.FaceYPos || f == voxel.FaceZPos {
		own, theirs = cs-1, 0
	}

	for u := 0; u < cs; u++ {
		for w := 0; w < cs; w++ {
			var x, y, z, nx, ny, nz int
			switch f {
			case voxel.FaceXPos, voxel.FaceXNeg:
				x, y, z = own, u, w
				nx, ny, nz = theirs, u, w
			case voxel.FaceYPos, voxel.FaceYNeg:
				x, y, z = u, own, w
				nx, ny, nz = u, theirs, w
			default:
				x, y, z = u, w, own
				nx, ny, nz = u, w, theirs
			}

			v := c.At(x, y, z)
			if v.Solid() {
				continue
			}
			nv := n.At(nx, ny, nz)
			if nv.Solid() || nv.Sunlight() == 0 {
				continue
			}
			if in := nv.Sunlight() - 1; in > v.Sunlight() {
				c.Set(x, y, z, v.WithSunlight(in))
			}
		}
	}
}

// flood runs the in-chunk BFS: every lit non-solid voxel is a seed; light
// decays by one per step and never crosses chunk boundaries in this pass.
func (l *Lighting) flood(c *voxel.Chunk) {
	queue := l.queue[:0]
	for i := 0; i < voxel.ChunkVolume; i++ {
		if v := c.AtIndex(i); !v.Solid() && v.Sunlight() > 0 {
			queue = append(queue, int32(i))
		}
	}

	for len(queue) > 0 {
		idx := int(queue[len(queue)-1])
		queue = queue[:len(queue)-1]

		level := c.AtIndex(idx).Sunlight()
		if level <= 1 {
			continue
		}
		spread := level - 1

		x := idx % cs
		z := (idx / cs) % cs
		y := idx / voxel.ChunkArea

		for f := voxel.Face(0); f < voxel.FaceCount; f++ {
			d := voxel.FaceDirs[f]
			nx, ny, nz := x+d[0], y+d[1], z+d[2]
			if nx < 0 || nx >= cs || ny < 0 || ny >= cs || nz < 0 || nz >= cs {
				continue
			}
			ni := voxel.Index(nx, ny, nz)
			nv := c.AtIndex(ni)
			if nv.Solid() || nv.Sunlight() >= spread {
				continue
			}
			c.SetIndex(ni, nv.WithSunlight(spread))
			queue = append(queue, int32(ni))
		}
	}

	l.queue = queue[:0]
}

// Cascade relights the chunk at coord and everything its mutation can have
// shadowed or opened: the full loaded column below (light can reach
// arbitrary depths when material is removed), one step up (removing a floor
// opens light from below), and the four horizontal face neighbors so their
// border light updates. Returns every chunk that was relit.
func (l *Lighting) Cascade(coord voxel.ChunkCoord) []*voxel.Chunk {
	defer profiling.Track("lighting.Cascade")()

	var touched []*voxel.Chunk

	if c := l.store.Get(coord); c != nil {
		l.Relight(c)
		touched = append(touched, c)
	}

	// Downward: relight until the bottom of the loaded column. Top-down
	// order so each chunk seeds from the fresh exposure above it.
	for below := coord.Offset(0, -1, 0); ; below = below.Offset(0, -1, 0) {
		c := l.store.Get(below)
		if c == nil {
			break
		}
		l.Relight(c)
		touched = append(touched, c)
	}

	if c := l.store.Get(coord.Offset(0, 1, 0)); c != nil {
		l.Relight(c)
		touched = append(touched, c)
	}

	for _, f := range [4]voxel.Face{voxel.FaceXPos, voxel.FaceXNeg, voxel.FaceZPos, voxel.FaceZNeg} {
		if c := l.store.Get(coord.Neighbor(f)); c != nil {
			l.Relight(c)
			touched = append(touched, c)
		}
	}

	return touched
}
