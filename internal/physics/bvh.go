package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// bvhNode is one node of a binary AABB tree over triangles. Leaves index a
// contiguous run of the builder's triangle order.
type bvhNode struct {
	min, max    mgl32.Vec3
	left, right int32
	first       int32
	count       int32
}

// BVH is a static median-split bounding volume hierarchy over a triangle
// soup. Built once per merged geometry; queried per collision pass.
type BVH struct {
	positions []float32
	indices   []uint32

	nodes []bvhNode
	order []int32 // triangle indices, permuted by the build
}

const bvhLeafSize = 4

type triItem struct {
	min, max mgl32.Vec3
	centroid mgl32.Vec3
	index    int32
}

// BuildBVH constructs the tree over the given triangle geometry. positions
// are xyz floats, indices triples into them. Returns nil for empty input.
func BuildBVH(positions []float32, indices []uint32) *BVH {
	triCount := len(indices) / 3
	if triCount == 0 {
		return nil
	}

	items := make([]triItem, triCount)
	for t := 0; t < triCount; t++ {
		a := fetchVec(positions, indices[t*3])
		b := fetchVec(positions, indices[t*3+1])
		c := fetchVec(positions, indices[t*3+2])
		min := vecMin(vecMin(a, b), c)
		max := vecMax(vecMax(a, b), c)
		items[t] = triItem{
			min:      min,
			max:      max,
			centroid: a.Add(b).Add(c).Mul(1.0 / 3.0),
			index:    int32(t),
		}
	}

	bvh := &BVH{
		positions: positions,
		indices:   indices,
		nodes:     make([]bvhNode, 0, 2*triCount),
		order:     make([]int32, 0, triCount),
	}
	bvh.build(items)
	return bvh
}

func (b *BVH) build(items []triItem) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{left: -1, right: -1, first: -1})

	minB := mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxB := mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for _, it := range items {
		minB = vecMin(minB, it.min)
		maxB = vecMax(maxB, it.max)
	}
	b.nodes[idx].min = minB
	b.nodes[idx].max = maxB

	if len(items) <= bvhLeafSize {
		b.nodes[idx].first = int32(len(b.order))
		b.nodes[idx].count = int32(len(items))
		for _, it := range items {
			b.order = append(b.order, it.index)
		}
		return idx
	}

	// Median split along the widest extent axis.
	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})

	mid := len(items) / 2
	left := b.build(items[:mid])
	right := b.build(items[mid:])
	b.nodes[idx].left = left
	b.nodes[idx].right = right
	return idx
}

// QueryAABB calls fn with every triangle whose bounds overlap the box.
func (b *BVH) QueryAABB(min, max mgl32.Vec3, fn func(v0, v1, v2 mgl32.Vec3)) {
	if b == nil || len(b.nodes) == 0 {
		return
	}
	var stack [64]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &b.nodes[stack[sp]]
		if !aabbOverlap(n.min, n.max, min, max) {
			continue
		}
		if n.first >= 0 {
			for i := int32(0); i < n.count; i++ {
				t := b.order[n.first+i]
				fn(
					fetchVec(b.positions, b.indices[t*3]),
					fetchVec(b.positions, b.indices[t*3+1]),
					fetchVec(b.positions, b.indices[t*3+2]),
				)
			}
			continue
		}
		stack[sp] = n.left
		sp++
		stack[sp] = n.right
		sp++
	}
}

// TriangleCount returns the number of triangles indexed by the tree.
func (b *BVH) TriangleCount() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

func fetchVec(positions []float32, i uint32) mgl32.Vec3 {
	return mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
}

func vecMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{minf(a.X(), b.X()), minf(a.Y(), b.Y()), minf(a.Z(), b.Z())}
}

func vecMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{maxf(a.X(), b.X()), maxf(a.Y(), b.Y()), maxf(a.Z(), b.Z())}
}

func aabbOverlap(minA, maxA, minB, maxB mgl32.Vec3) bool {
	return minA.X() <= maxB.X() && maxA.X() >= minB.X() &&
		minA.Y() <= maxB.Y() && maxA.Y() >= minB.Y() &&
		minA.Z() <= maxB.Z() && maxA.Z() >= minB.Z()
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
