package physics

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"worldify/internal/meshing"
	"worldify/internal/profiling"
	"worldify/internal/terrain"
)

// Collider resolves capsules against the merged solid terrain geometry. It
// keeps one BVH per terrain group and rebuilds them lazily: the whole set is
// invalidated whenever the batch's solid geometry version moves, and rebuilt
// on the next query. Transparent and liquid submeshes never collide.
type Collider struct {
	batch *terrain.Batch

	bvhs    map[terrain.GroupCoord]*groupBVH
	version uint64
	valid   bool

	// Debug toggles visualization emission only; resolve semantics are
	// unaffected.
	Debug bool
	// DebugContacts receives contact triangles while Debug is set.
	DebugContacts [][3]mgl32.Vec3
}

type groupBVH struct {
	bvh      *BVH
	min, max mgl32.Vec3
}

// NewCollider wires the collider to the terrain batch.
func NewCollider(batch *terrain.Batch) *Collider {
	return &Collider{batch: batch, bvhs: make(map[terrain.GroupCoord]*groupBVH)}
}

// Invalidate forces a rebuild on the next query.
func (c *Collider) Invalidate() {
	c.valid = false
}

// ResolveCapsule sweeps the capsule along velocity and resolves it against
// the terrain. With no BVH built yet (empty world) it reports no collision
// and passes the velocity through as displacement.
func (c *Collider) ResolveCapsule(capsule Capsule, velocity mgl32.Vec3) CapsuleResult {
	defer profiling.Track("physics.ResolveCapsule")()
	c.ensureBVH()

	if c.Debug {
		c.DebugContacts = c.DebugContacts[:0]
	}

	return resolveCapsuleAgainst(capsule, velocity, func(min, max mgl32.Vec3, fn func(v0, v1, v2 mgl32.Vec3)) {
		for _, g := range c.bvhs {
			if !aabbOverlap(g.min, g.max, min, max) {
				continue
			}
			g.bvh.QueryAABB(min, max, func(v0, v1, v2 mgl32.Vec3) {
				if c.Debug {
					c.DebugContacts = append(c.DebugContacts, [3]mgl32.Vec3{v0, v1, v2})
				}
				fn(v0, v1, v2)
			})
		}
	})
}

// ensureBVH rebuilds the per-group trees when the merged solid geometry
// changed since the last query.
func (c *Collider) ensureBVH() {
	v := c.batch.SolidVersion()
	if c.valid && v == c.version {
		return
	}
	defer profiling.Track("physics.RebuildBVH")()

	c.bvhs = make(map[terrain.GroupCoord]*groupBVH)
	triangles := 0
	c.batch.Each(func(g *terrain.Group) {
		geo := g.Merged[meshing.SubmeshSolid]
		if geo.Empty() {
			return
		}
		bvh := BuildBVH(geo.Positions, geo.Indices)
		if bvh == nil {
			return
		}
		c.bvhs[g.Coord] = &groupBVH{bvh: bvh, min: geo.Min, max: geo.Max}
		triangles += bvh.TriangleCount()
	})

	c.version = v
	c.valid = true
	slog.Debug("collision BVH rebuilt", "groups", len(c.bvhs), "triangles", triangles)
}
