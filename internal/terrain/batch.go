package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"worldify/internal/meshing"
	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// GroupSize is the group edge length in chunks; one group merges up to
// GroupSize^3 chunk meshes into a single draw per submesh class.
const GroupSize = 4

// GroupCoord identifies a spatial group of chunks.
type GroupCoord struct {
	X, Y, Z int
}

// GroupOf maps a chunk to its owning group.
func GroupOf(c voxel.ChunkCoord) GroupCoord {
	return GroupCoord{
		X: voxel.FloorDiv(c.X, GroupSize),
		Y: voxel.FloorDiv(c.Y, GroupSize),
		Z: voxel.FloorDiv(c.Z, GroupSize),
	}
}

// Center returns the group's world-space center.
func (g GroupCoord) Center() mgl32.Vec3 {
	const span = GroupSize * voxel.ChunkWorldSize
	return mgl32.Vec3{
		(float32(g.X) + 0.5) * span,
		(float32(g.Y) + 0.5) * span,
		(float32(g.Z) + 0.5) * span,
	}
}

// Geometry is one merged, world-space submesh of a group.
type Geometry struct {
	Positions       []float32
	Normals         []float32
	MaterialIDs     []float32
	MaterialWeights []float32
	Sunlight        []float32
	Indices         []uint32

	Min, Max mgl32.Vec3 // AABB over Positions
}

// Empty reports whether the geometry holds no triangles.
func (g *Geometry) Empty() bool {
	return g == nil || len(g.Indices) == 0
}

// chunkMesh is the per-chunk mesh holder inside a group.
type chunkMesh struct {
	result *meshing.MeshResult
	// previewActive hides the mesh from the merge while a live build
	// preview occupies the chunk.
	previewActive bool
}

// Group owns the merged geometries of one spatial cluster.
type Group struct {
	Coord  GroupCoord
	Merged [meshing.SubmeshCount]*Geometry

	// CastsShadow is set when the group center lies within the
	// shadow-casting distance of the observer.
	CastsShadow bool

	// Uploaded generation counter for the renderer: bumped on every merge
	// so GPU buffers re-upload only when the group actually changed.
	Generation uint64

	members map[voxel.ChunkCoord]*chunkMesh
}

// Batch partitions chunk meshes into spatial groups and keeps the merged
// geometry of dirty groups rebuilt. Main-thread only.
type Batch struct {
	groups map[GroupCoord]*Group
	dirty  map[GroupCoord]struct{}

	// solidVersion bumps whenever any group's merged solid geometry
	// changes; collision uses it to invalidate its BVH lazily.
	solidVersion uint64
}

// NewBatch creates an empty terrain batch.
func NewBatch() *Batch {
	return &Batch{
		groups: make(map[GroupCoord]*Group),
		dirty:  make(map[GroupCoord]struct{}),
	}
}

// SolidVersion identifies the current merged solid geometry; it changes
// whenever that geometry may have changed. Every remerge of a group that
// has solid geometry before or after bumps it, even when the result is
// identical.
func (b *Batch) SolidVersion() uint64 {
	return b.solidVersion
}

// SetChunkMesh installs a chunk's freshly meshed result and marks its group
// dirty.
func (b *Batch) SetChunkMesh(result *meshing.MeshResult) {
	gc := GroupOf(result.Coord)
	g := b.groups[gc]
	if g == nil {
		g = &Group{Coord: gc, members: make(map[voxel.ChunkCoord]*chunkMesh)}
		b.groups[gc] = g
	}
	m := g.members[result.Coord]
	if m == nil {
		m = &chunkMesh{}
		g.members[result.Coord] = m
	}
	m.result = result
	b.dirty[gc] = struct{}{}
}

// RemoveChunk drops a chunk's mesh holder; the owning group remerges
// without it.
func (b *Batch) RemoveChunk(coord voxel.ChunkCoord) {
	gc := GroupOf(coord)
	g := b.groups[gc]
	if g == nil {
		return
	}
	if _, ok := g.members[coord]; !ok {
		return
	}
	delete(g.members, coord)
	b.dirty[gc] = struct{}{}
}

// SetPreviewActive flips the preview flag of a chunk's mesh holder; a
// previewing chunk is hidden from the merge.
func (b *Batch) SetPreviewActive(coord voxel.ChunkCoord, active bool) {
	gc := GroupOf(coord)
	g := b.groups[gc]
	if g == nil {
		return
	}
	m := g.members[coord]
	if m == nil || m.previewActive == active {
		return
	}
	m.previewActive = active
	b.dirty[gc] = struct{}{}
}

// HasChunk reports whether a mesh holder exists for the chunk.
func (b *Batch) HasChunk(coord voxel.ChunkCoord) bool {
	g := b.groups[GroupOf(coord)]
	if g == nil {
		return false
	}
	_, ok := g.members[coord]
	return ok
}

// Each visits every group.
func (b *Batch) Each(fn func(*Group)) {
	for _, g := range b.groups {
		fn(g)
	}
}

// GroupCount returns the live group count.
func (b *Batch) GroupCount() int {
	return len(b.groups)
}

// Clear drops every group. Used on reconnect.
func (b *Batch) Clear() {
	b.groups = make(map[GroupCoord]*Group)
	b.dirty = make(map[GroupCoord]struct{})
	b.solidVersion++
}

// Rebuild remerges every dirty group and refreshes per-group shadow flags.
// Called once per frame, after mesh results were applied.
func (b *Batch) Rebuild(observer mgl32.Vec3, shadowDistance float32) {
	defer profiling.Track("terrain.Rebuild")()

	for gc := range b.dirty {
		g := b.groups[gc]
		if g == nil {
			continue
		}
		if len(g.members) == 0 {
			delete(b.groups, gc)
			b.solidVersion++
			continue
		}
		solidChanged := g.merge()
		if solidChanged {
			b.solidVersion++
		}
	}
	b.dirty = make(map[GroupCoord]struct{})

	shadowSq := shadowDistance * shadowDistance
	for _, g := range b.groups {
		d := g.Coord.Center().Sub(observer)
		g.CastsShadow = d.Dot(d) <= shadowSq
	}
}

// merge concatenates the group's member chunk meshes, skipping previewing
// chunks, into one geometry per submesh class. Reports whether the solid
// class may have changed: false only when it was empty before and after.
func (g *Group) merge() bool {
	var out [meshing.SubmeshCount]*Geometry

	for coord, m := range g.members {
		if m.previewActive || m.result == nil {
			continue
		}
		origin := coord.WorldOrigin()
		for class := meshing.SubmeshClass(0); class < meshing.SubmeshCount; class++ {
			src := &m.result.Buffers[class]
			if src.Empty() {
				continue
			}
			if out[class] == nil {
				out[class] = &Geometry{
					Min: mgl32.Vec3{float32(1e30), float32(1e30), float32(1e30)},
					Max: mgl32.Vec3{float32(-1e30), float32(-1e30), float32(-1e30)},
				}
			}
			appendGeometry(out[class], src, origin)
		}
	}

	solidChanged := !(out[meshing.SubmeshSolid].Empty() && g.Merged[meshing.SubmeshSolid].Empty())
	g.Merged = out
	g.Generation++
	return solidChanged
}

func appendGeometry(dst *Geometry, src *meshing.MeshBuffers, origin mgl32.Vec3) {
	base := uint32(len(dst.Positions) / 3)

	for i := 0; i < len(src.Positions); i += 3 {
		x := src.Positions[i] + origin.X()
		y := src.Positions[i+1] + origin.Y()
		z := src.Positions[i+2] + origin.Z()
		dst.Positions = append(dst.Positions, x, y, z)

		if x < dst.Min.X() {
			dst.Min[0] = x
		}
		if y < dst.Min.Y() {
			dst.Min[1] = y
		}
		if z < dst.Min.Z() {
			dst.Min[2] = z
		}
		if x > dst.Max.X() {
			dst.Max[0] = x
		}
		if y > dst.Max.Y() {
			dst.Max[1] = y
		}
		if z > dst.Max.Z() {
			dst.Max[2] = z
		}
	}

	dst.Normals = append(dst.Normals, src.Normals...)
	dst.MaterialIDs = append(dst.MaterialIDs, src.MaterialIDs...)
	dst.MaterialWeights = append(dst.MaterialWeights, src.MaterialWeights...)
	dst.Sunlight = append(dst.Sunlight, src.Sunlight...)

	for _, idx := range src.Indices {
		dst.Indices = append(dst.Indices, base+idx)
	}
}
