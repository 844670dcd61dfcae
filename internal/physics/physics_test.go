package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floorMesh is a large quad in the y=0 plane, split into two triangles.
func floorMesh(half float32) ([]float32, []uint32) {
	positions := []float32{
		-half, 0, -half,
		half, 0, -half,
		half, 0, half,
		-half, 0, half,
	}
	indices := []uint32{0, 2, 1, 0, 3, 2}
	return positions, indices
}

func TestBVHQuery(t *testing.T) {
	positions, indices := floorMesh(50)
	bvh := BuildBVH(positions, indices)
	require.NotNil(t, bvh)
	assert.Equal(t, 2, bvh.TriangleCount())

	hits := 0
	bvh.QueryAABB(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}, func(v0, v1, v2 mgl32.Vec3) { hits++ })
	assert.Equal(t, 2, hits)

	hits = 0
	bvh.QueryAABB(mgl32.Vec3{-1, 10, -1}, mgl32.Vec3{1, 11, 1}, func(v0, v1, v2 mgl32.Vec3) { hits++ })
	assert.Equal(t, 0, hits)
}

func TestBVHManyTriangles(t *testing.T) {
	// A strip of quads along x; a narrow query touches few of them.
	var positions []float32
	var indices []uint32
	for i := 0; i < 64; i++ {
		base := uint32(len(positions) / 3)
		x := float32(i)
		positions = append(positions,
			x, 0, 0,
			x+1, 0, 0,
			x+1, 0, 1,
			x, 0, 1,
		)
		indices = append(indices, base, base+2, base+1, base, base+3, base+2)
	}
	bvh := BuildBVH(positions, indices)
	require.Equal(t, 128, bvh.TriangleCount())

	hits := 0
	bvh.QueryAABB(mgl32.Vec3{10.2, -1, 0}, mgl32.Vec3{10.8, 1, 1}, func(v0, v1, v2 mgl32.Vec3) { hits++ })
	assert.Greater(t, hits, 0)
	assert.LessOrEqual(t, hits, 8)
}

func TestClosestPointOnTriangle(t *testing.T) {
	a := mgl32.Vec3{0, 0, 0}
	b := mgl32.Vec3{2, 0, 0}
	c := mgl32.Vec3{0, 0, 2}

	// Above the interior: projects straight down.
	p := closestPointOnTriangle(mgl32.Vec3{0.5, 3, 0.5}, a, b, c)
	assert.InDelta(t, 0.5, float64(p.X()), 1e-5)
	assert.InDelta(t, 0, float64(p.Y()), 1e-5)
	assert.InDelta(t, 0.5, float64(p.Z()), 1e-5)

	// Beyond a vertex: clamps to it.
	p = closestPointOnTriangle(mgl32.Vec3{-1, 0, -1}, a, b, c)
	assert.Equal(t, a, p)

	// Beyond an edge: clamps onto it.
	p = closestPointOnTriangle(mgl32.Vec3{1, 1, -2}, a, b, c)
	assert.InDelta(t, 1, float64(p.X()), 1e-5)
	assert.InDelta(t, 0, float64(p.Z()), 1e-5)
}

func queryOf(positions []float32, indices []uint32) func(mgl32.Vec3, mgl32.Vec3, func(v0, v1, v2 mgl32.Vec3)) {
	bvh := BuildBVH(positions, indices)
	return func(min, max mgl32.Vec3, fn func(v0, v1, v2 mgl32.Vec3)) {
		bvh.QueryAABB(min, max, fn)
	}
}

func TestCapsuleLandsOnFloor(t *testing.T) {
	positions, indices := floorMesh(50)
	query := queryOf(positions, indices)

	capsule := Capsule{Start: mgl32.Vec3{0, 1.2, 0}, End: mgl32.Vec3{0, 2.9, 0}, Radius: 0.3}
	res := resolveCapsuleAgainst(capsule, mgl32.Vec3{0, -1, 0}, query)

	require.True(t, res.Collided)
	assert.True(t, res.Grounded)
	require.True(t, res.HasGround)
	assert.InDelta(t, 1, float64(res.GroundNormal.Y()), 1e-4)

	// The bottom sphere rests one radius above the plane.
	finalStart := capsule.Start.Add(res.Displacement)
	assert.InDelta(t, 0.3, float64(finalStart.Y()), 1e-3)
}

func TestCapsuleFallsFreely(t *testing.T) {
	positions, indices := floorMesh(50)
	query := queryOf(positions, indices)

	capsule := Capsule{Start: mgl32.Vec3{0, 10, 0}, End: mgl32.Vec3{0, 11.7, 0}, Radius: 0.3}
	res := resolveCapsuleAgainst(capsule, mgl32.Vec3{0, -1, 0}, query)

	assert.False(t, res.Collided)
	assert.False(t, res.Grounded)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, res.Displacement)
}

func TestCapsuleSlidesAgainstWall(t *testing.T) {
	// Vertical wall in the x=0 plane facing +X.
	positions := []float32{
		0, -10, -10,
		0, 10, -10,
		0, 10, 10,
		0, -10, 10,
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	query := queryOf(positions, indices)

	capsule := Capsule{Start: mgl32.Vec3{1, 0, 0}, End: mgl32.Vec3{1, 1.7, 0}, Radius: 0.4}
	res := resolveCapsuleAgainst(capsule, mgl32.Vec3{-0.8, 0, 0}, query)

	require.True(t, res.Collided)
	assert.False(t, res.Grounded, "a wall contact is not walkable")

	finalStart := capsule.Start.Add(res.Displacement)
	assert.InDelta(t, 0.4, float64(finalStart.X()), 1e-3)
}

func TestCapsuleWalkableSlopeThreshold(t *testing.T) {
	// A steep ~63 degree ramp: y = 2x. Contact normal fails the walkable
	// cone even though it has an upward component.
	positions := []float32{
		0, 0, -10,
		5, 10, -10,
		5, 10, 10,
		0, 0, 10,
	}
	indices := []uint32{0, 2, 1, 0, 3, 2}
	query := queryOf(positions, indices)

	capsule := Capsule{Start: mgl32.Vec3{2.5, 5.4, 0}, End: mgl32.Vec3{2.5, 7, 0}, Radius: 0.4}
	res := resolveCapsuleAgainst(capsule, mgl32.Vec3{0, -0.3, 0}, query)

	require.True(t, res.Collided)
	assert.False(t, res.Grounded)
}

func TestResolveWithoutGeometry(t *testing.T) {
	res := resolveCapsuleAgainst(
		Capsule{Start: mgl32.Vec3{0, 1, 0}, End: mgl32.Vec3{0, 2, 0}, Radius: 0.3},
		mgl32.Vec3{0, -1, 0},
		func(min, max mgl32.Vec3, fn func(v0, v1, v2 mgl32.Vec3)) {},
	)
	assert.False(t, res.Collided)
	assert.False(t, res.Grounded)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, res.Displacement)
}
