package meshing

import (
	"math"
	"sort"

	"worldify/internal/voxel"
)

// SubmeshClass partitions extracted geometry for the renderer.
type SubmeshClass int

const (
	SubmeshSolid SubmeshClass = iota
	SubmeshTransparent
	SubmeshLiquid
	SubmeshCount
)

// MeshBuffers is one submesh: interleaved-by-attribute vertex data plus a
// triangle index buffer. Positions are chunk-local; the terrain batch adds
// the chunk world origin when merging.
type MeshBuffers struct {
	Positions       []float32 // 3 per vertex
	Normals         []float32 // 3 per vertex
	MaterialIDs     []float32 // 3 palette indices per vertex
	MaterialWeights []float32 // 3 weights per vertex, summing to 1
	Sunlight        []float32 // 1 per vertex, 0..1
	Indices         []uint32  // 3 per triangle
}

// VertexCount returns the vertex count.
func (b *MeshBuffers) VertexCount() int {
	return len(b.Positions) / 3
}

// TriangleCount returns the triangle count.
func (b *MeshBuffers) TriangleCount() int {
	return len(b.Indices) / 3
}

// Empty reports whether the submesh holds no geometry.
func (b *MeshBuffers) Empty() bool {
	return len(b.Indices) == 0
}

// MeshResult is the output of meshing one chunk.
type MeshResult struct {
	Coord    voxel.ChunkCoord
	Buffers  [SubmeshCount]MeshBuffers
	SkipHigh [3]bool
}

// Empty reports whether every submesh is empty.
func (r *MeshResult) Empty() bool {
	for i := range r.Buffers {
		if !r.Buffers[i].Empty() {
			return false
		}
	}
	return true
}

// classOf maps a palette class to a submesh slot.
func classOf(material uint8) SubmeshClass {
	switch voxel.ClassOf(material) {
	case voxel.ClassTransparent:
		return SubmeshTransparent
	case voxel.ClassLiquid:
		return SubmeshLiquid
	default:
		return SubmeshSolid
	}
}

const (
	cs = voxel.ChunkSize
	// dual cells per axis: one between every adjacent voxel pair of the
	// padded grid interior, spanning local coords -1..ChunkSize-1.
	cellDim = cs + 1
)

func cellKey(x, y, z int) int32 {
	return int32((x + 1) + ((z+1)+(y+1)*cellDim)*cellDim)
}

// cellVertex is the Surface Nets vertex of one boundary dual cell, plus its
// lazily assigned index in each submesh it participates in.
type cellVertex struct {
	pos     [3]float32
	normal  [3]float32
	ids     [3]float32
	weights [3]float32
	sun     float32
	index   [SubmeshCount]int32
}

// cellCorners enumerates the 8 corners in (x, y, z) bit order.
var cellCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cellEdges lists the 12 cell edges as corner index pairs.
var cellEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along z
}

// BuildMesh extracts the Surface Nets isosurface of the occupancy field
// (material != air) over the padded grid's dual cells, splitting quads into
// the solid/transparent/liquid submeshes by the occupied voxel's material
// class. skipHigh suppresses quads straddling a positive-axis boundary whose
// neighbor margin was unknown.
func BuildMesh(coord voxel.ChunkCoord, grid *Grid, skipHigh [3]bool) *MeshResult {
	res := &MeshResult{Coord: coord, SkipHigh: skipHigh}

	cells := make(map[int32]*cellVertex, 2048)

	for cy := -1; cy < cs; cy++ {
		for cz := -1; cz < cs; cz++ {
			for cx := -1; cx < cs; cx++ {
				if cv := buildCellVertex(grid, cx, cy, cz); cv != nil {
					cells[cellKey(cx, cy, cz)] = cv
				}
			}
		}
	}

	// Quad emission: one quad per occupancy-crossing voxel edge, joining
	// the four dual cells around it. Edge ownership is the low voxel in
	// [0, ChunkSize-1]; the face on a negative boundary belongs to the
	// neighbor chunk.
	for axis := 0; axis < 3; axis++ {
		b := (axis + 1) % 3
		c := (axis + 2) % 3

		var p [3]int
		for i := 0; i < cs; i++ {
			for j := 0; j < cs; j++ {
				for k := 0; k < cs; k++ {
					p[axis], p[b], p[c] = i, j, k
					emitEdge(res, grid, cells, p, axis, b, c, skipHigh)
				}
			}
		}
	}

	return res
}

// buildCellVertex returns the vertex for a dual cell, or nil when the cell's
// corners are uniformly occupied or uniformly empty.
func buildCellVertex(grid *Grid, cx, cy, cz int) *cellVertex {
	var corner [8]voxel.Voxel
	occupiedMask := 0
	for i, o := range cellCorners {
		v := grid.At(cx+o[0], cy+o[1], cz+o[2])
		corner[i] = v
		if v.Material() != voxel.MaterialAir {
			occupiedMask |= 1 << i
		}
	}
	if occupiedMask == 0 || occupiedMask == 0xFF {
		return nil
	}

	cv := &cellVertex{}
	for i := range cv.index {
		cv.index[i] = -1
	}

	// Vertex: average of the midpoints of the edges that cross the
	// occupancy boundary. The crossing sits at the edge midpoint since the
	// field is binary.
	var sum [3]float32
	crossings := 0
	for _, e := range cellEdges {
		a, bIdx := e[0], e[1]
		if (occupiedMask>>a)&1 == (occupiedMask>>bIdx)&1 {
			continue
		}
		for axis := 0; axis < 3; axis++ {
			sum[axis] += float32(cellCorners[a][axis]+cellCorners[bIdx][axis]) / 2
		}
		crossings++
	}
	inv := 1 / float32(crossings)
	cv.pos = [3]float32{
		float32(cx) + sum[0]*inv,
		float32(cy) + sum[1]*inv,
		float32(cz) + sum[2]*inv,
	}

	// Normal: negated occupancy gradient, pointing out of the material.
	var grad [3]float32
	for i, o := range cellCorners {
		d := float32((occupiedMask >> i) & 1)
		for axis := 0; axis < 3; axis++ {
			if o[axis] == 1 {
				grad[axis] += d
			} else {
				grad[axis] -= d
			}
		}
	}
	n := float32(math.Sqrt(float64(grad[0]*grad[0] + grad[1]*grad[1] + grad[2]*grad[2])))
	if n > 0 {
		cv.normal = [3]float32{-grad[0] / n, -grad[1] / n, -grad[2] / n}
	} else {
		cv.normal = [3]float32{0, 1, 0}
	}

	cv.ids, cv.weights = blendMaterials(&corner)

	var maxSun uint8
	for _, v := range corner {
		if s := v.Sunlight(); s > maxSun {
			maxSun = s
		}
	}
	cv.sun = float32(maxSun) / voxel.MaxLight

	return cv
}

// blendMaterials picks the up-to-three distinct non-air corner materials,
// ordered by count with palette-index tiebreak, and weights them by corner
// count renormalized to sum one.
func blendMaterials(corner *[8]voxel.Voxel) ([3]float32, [3]float32) {
	counts := make(map[uint8]int, 4)
	for _, v := range corner {
		if m := v.Material(); m != voxel.MaterialAir {
			counts[m]++
		}
	}

	type matCount struct {
		id    uint8
		count int
	}
	ranked := make([]matCount, 0, len(counts))
	for id, n := range counts {
		ranked = append(ranked, matCount{id, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id < ranked[j].id
	})

	var ids [3]float32
	var weights [3]float32
	total := 0
	for i := 0; i < 3 && i < len(ranked); i++ {
		total += ranked[i].count
	}
	for i := 0; i < 3; i++ {
		if i < len(ranked) {
			ids[i] = float32(ranked[i].id)
			weights[i] = float32(ranked[i].count) / float32(total)
		} else {
			ids[i] = ids[0] // pad with the primary
		}
	}
	return ids, weights
}

// emitEdge emits the quad for one voxel edge along `axis` when its endpoints
// differ in occupancy.
func emitEdge(res *MeshResult, grid *Grid, cells map[int32]*cellVertex, p [3]int, axis, b, c int, skipHigh [3]bool) {
	q := p
	q[axis]++

	v0 := grid.At(p[0], p[1], p[2])
	v1 := grid.At(q[0], q[1], q[2])
	occ0 := v0.Material() != voxel.MaterialAir
	occ1 := v1.Material() != voxel.MaterialAir
	if occ0 == occ1 {
		return
	}

	// Quads touching an unknown high boundary are suppressed; the neighbor
	// will stitch the seam when it arrives.
	for i := 0; i < 3; i++ {
		if skipHigh[i] && p[i] == cs-1 {
			return
		}
	}

	// The four dual cells around the edge, ordered CCW viewed from +axis.
	var cellPos [4][3]int
	offsets := [4][2]int{{-1, -1}, {0, -1}, {0, 0}, {-1, 0}}
	for i, o := range offsets {
		cp := p
		cp[b] += o[0]
		cp[c] += o[1]
		cellPos[i] = cp
	}

	var quad [4]*cellVertex
	for i, cp := range cellPos {
		cv := cells[cellKey(cp[0], cp[1], cp[2])]
		if cv == nil {
			return
		}
		quad[i] = cv
	}

	solidMat := v0.Material()
	if occ1 {
		solidMat = v1.Material()
		// occupied above: face points -axis, flip winding
		quad[1], quad[3] = quad[3], quad[1]
	}

	class := classOf(solidMat)
	buf := &res.Buffers[class]
	var idx [4]uint32
	for i, cv := range quad {
		if cv.index[class] < 0 {
			cv.index[class] = int32(buf.VertexCount())
			buf.Positions = append(buf.Positions, cv.pos[0], cv.pos[1], cv.pos[2])
			buf.Normals = append(buf.Normals, cv.normal[0], cv.normal[1], cv.normal[2])
			buf.MaterialIDs = append(buf.MaterialIDs, cv.ids[0], cv.ids[1], cv.ids[2])
			buf.MaterialWeights = append(buf.MaterialWeights, cv.weights[0], cv.weights[1], cv.weights[2])
			buf.Sunlight = append(buf.Sunlight, cv.sun)
		}
		idx[i] = uint32(cv.index[class])
	}

	buf.Indices = append(buf.Indices,
		idx[0], idx[1], idx[2],
		idx[0], idx[2], idx[3],
	)
}
