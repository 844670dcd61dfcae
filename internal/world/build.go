package world

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// BuildShape selects the rasterized volume.
type BuildShape uint8

const (
	ShapeCube BuildShape = iota
	ShapeSphere
	ShapeCylinder
	ShapePrism
)

// BuildMode selects how the shape mutates covered voxels.
type BuildMode uint8

const (
	// ModeAdd writes the material into voxels that are empty or not
	// solid-occluding.
	ModeAdd BuildMode = iota
	// ModeSubtract empties every covered voxel.
	ModeSubtract
	// ModePaint recolors non-empty voxels without changing occupancy.
	ModePaint
	// ModeFill writes the material unconditionally.
	ModeFill
)

// BuildConfig parameterizes a build operation.
type BuildConfig struct {
	Shape    BuildShape
	Mode     BuildMode
	Size     mgl32.Vec3 // per-axis half extent / radius, in voxel units
	Material uint8
}

// BuildOperation is a shape + mode + material applied to a region. It is
// deterministic: the same operation yields the same voxel mutations on every
// client and the server.
type BuildOperation struct {
	Center   mgl32.Vec3
	Rotation mgl32.Quat
	Config   BuildConfig
}

// AABB returns the world-space bounds of the rotated shape.
func (op *BuildOperation) AABB() (mgl32.Vec3, mgl32.Vec3) {
	// Rotated-box bound: |R| * halfExtent covers every shape variant.
	rot := op.Rotation.Mat4()
	h := op.Config.Size
	var ext mgl32.Vec3
	for i := 0; i < 3; i++ {
		ext[i] = absf(rot.At(i, 0))*h.X() + absf(rot.At(i, 1))*h.Y() + absf(rot.At(i, 2))*h.Z()
	}
	return op.Center.Sub(ext), op.Center.Add(ext)
}

// AffectedChunks lists every chunk whose bounds intersect the operation,
// using half-open [lo, hi) intervals so a shape flush on a chunk boundary
// touches only the inside chunk.
func (op *BuildOperation) AffectedChunks() []voxel.ChunkCoord {
	lo, hi := op.AABB()

	minX := voxel.FloorDiv(int(math.Floor(float64(lo.X()))), voxel.ChunkSize)
	minY := voxel.FloorDiv(int(math.Floor(float64(lo.Y()))), voxel.ChunkSize)
	minZ := voxel.FloorDiv(int(math.Floor(float64(lo.Z()))), voxel.ChunkSize)
	maxX := voxel.FloorDiv(int(math.Ceil(float64(hi.X())))-1, voxel.ChunkSize)
	maxY := voxel.FloorDiv(int(math.Ceil(float64(hi.Y())))-1, voxel.ChunkSize)
	maxZ := voxel.FloorDiv(int(math.Ceil(float64(hi.Z())))-1, voxel.ChunkSize)

	var out []voxel.ChunkCoord
	for y := minY; y <= maxY; y++ {
		for z := minZ; z <= maxZ; z++ {
			for x := minX; x <= maxX; x++ {
				out = append(out, voxel.ChunkCoord{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

// contains tests a global voxel coordinate against the shape.
func (op *BuildOperation) contains(x, y, z int) bool {
	p := mgl32.Vec3{float32(x), float32(y), float32(z)}.Sub(op.Center)
	p = op.Rotation.Inverse().Rotate(p)

	s := op.Config.Size
	if s.X() <= 0 || s.Y() <= 0 || s.Z() <= 0 {
		return false
	}

	switch op.Config.Shape {
	case ShapeCube:
		return absf(p.X()) <= s.X() && absf(p.Y()) <= s.Y() && absf(p.Z()) <= s.Z()
	case ShapeSphere:
		// Multiplied through by the extents so voxels exactly on the
		// surface (e.g. offset (2,2,1) at radius 3) are not lost to the
		// rounding of p/s.
		sx, sy, sz := float64(s.X()), float64(s.Y()), float64(s.Z())
		nx := float64(p.X()) * sy * sz
		ny := float64(p.Y()) * sx * sz
		nz := float64(p.Z()) * sx * sy
		r := sx * sy * sz
		return nx*nx+ny*ny+nz*nz <= r*r
	case ShapeCylinder:
		nx, nz := p.X()/s.X(), p.Z()/s.Z()
		return nx*nx+nz*nz <= 1 && absf(p.Y()) <= s.Y()
	case ShapePrism:
		// Ramp wedge: the box sliced by the plane x/sx + y/sy <= 0.
		if absf(p.X()) > s.X() || absf(p.Y()) > s.Y() || absf(p.Z()) > s.Z() {
			return false
		}
		return p.X()/s.X()+p.Y()/s.Y() <= 0
	}
	return false
}

// BuildBatch is the atomic remesh set produced by one executed operation:
// every chunk whose voxels or lighting changed. The worker pool must apply
// the whole batch in the same frame.
type BuildBatch struct {
	Chunks map[voxel.ChunkCoord]struct{}
}

// Applier mutates voxel data from build operations, defers operations whose
// affected chunks are not all loaded, and produces atomic relight+remesh
// batches.
type Applier struct {
	store    *Store
	lighting *Lighting

	deferred []BuildOperation
}

// NewApplier wires the build applier.
func NewApplier(store *Store, lighting *Lighting) *Applier {
	return &Applier{store: store, lighting: lighting}
}

// DeferredCount returns the queued operation count.
func (a *Applier) DeferredCount() int {
	return len(a.deferred)
}

// Reset drops the deferred queue. Used on reconnect.
func (a *Applier) Reset() {
	a.deferred = nil
}

// Apply executes the operation when every affected chunk is loaded;
// otherwise it queues the operation and returns the missing chunk keys so
// the caller can request them. Never applies partially.
func (a *Applier) Apply(op BuildOperation) (*BuildBatch, []voxel.ChunkCoord) {
	affected := op.AffectedChunks()

	var missing []voxel.ChunkCoord
	for _, coord := range affected {
		if !a.store.Has(coord) {
			missing = append(missing, coord)
		}
	}
	if len(missing) > 0 {
		a.deferred = append(a.deferred, op)
		slog.Debug("build deferred", "missing", len(missing), "queued", len(a.deferred))
		return nil, missing
	}

	return a.execute(op, affected), nil
}

// DrainDeferred executes, in queue order, every deferred operation whose
// affected set is now fully loaded. Called after ingest.
func (a *Applier) DrainDeferred() []*BuildBatch {
	if len(a.deferred) == 0 {
		return nil
	}

	var batches []*BuildBatch
	remaining := a.deferred[:0]
	for _, op := range a.deferred {
		affected := op.AffectedChunks()
		ready := true
		for _, coord := range affected {
			if !a.store.Has(coord) {
				ready = false
				break
			}
		}
		if !ready {
			remaining = append(remaining, op)
			continue
		}
		batches = append(batches, a.execute(op, affected))
	}
	a.deferred = remaining
	return batches
}

// execute rasterizes the shape into each affected chunk, then runs the
// relight cascade for every chunk that actually changed.
func (a *Applier) execute(op BuildOperation, affected []voxel.ChunkCoord) *BuildBatch {
	defer profiling.Track("build.Execute")()

	batch := &BuildBatch{Chunks: make(map[voxel.ChunkCoord]struct{})}

	var changed []voxel.ChunkCoord
	for _, coord := range affected {
		chunk := a.store.Get(coord)
		if a.rasterize(op, chunk) {
			chunk.Dirty = true
			chunk.RecomputeVisibility()
			changed = append(changed, coord)
		}
	}

	for _, coord := range changed {
		batch.Chunks[coord] = struct{}{}
		for _, c := range a.lighting.Cascade(coord) {
			batch.Chunks[c.Coord] = struct{}{}
		}
	}

	return batch
}

// rasterize applies the mode to every covered voxel of one chunk; reports
// whether anything changed. Sunlight and exposure are left to the relight
// cascade.
func (a *Applier) rasterize(op BuildOperation, chunk *voxel.Chunk) bool {
	lo, hi := op.AABB()
	origin := chunk.Coord.WorldOrigin()

	// Raster bounds are inclusive of the AABB edges; the half-open chunk
	// membership rule is AffectedChunks' concern.
	x0 := clampToChunk(int(math.Floor(float64(lo.X()))) - int(origin.X()))
	y0 := clampToChunk(int(math.Floor(float64(lo.Y()))) - int(origin.Y()))
	z0 := clampToChunk(int(math.Floor(float64(lo.Z()))) - int(origin.Z()))
	x1 := clampToChunk(int(math.Ceil(float64(hi.X()))) - int(origin.X()))
	y1 := clampToChunk(int(math.Ceil(float64(hi.Y()))) - int(origin.Y()))
	z1 := clampToChunk(int(math.Ceil(float64(hi.Z()))) - int(origin.Z()))

	mat := op.Config.Material
	mutated := false

	for y := y0; y <= y1; y++ {
		for z := z0; z <= z1; z++ {
			for x := x0; x <= x1; x++ {
				gx := int(origin.X()) + x
				gy := int(origin.Y()) + y
				gz := int(origin.Z()) + z
				if !op.contains(gx, gy, gz) {
					continue
				}

				v := chunk.At(x, y, z)
				cur := v.Material()
				var next uint8
				switch op.Config.Mode {
				case ModeAdd:
					if cur != voxel.MaterialAir && voxel.IsSolid(cur) {
						continue
					}
					next = mat
				case ModeSubtract:
					next = voxel.MaterialAir
				case ModePaint:
					if cur == voxel.MaterialAir {
						continue
					}
					next = mat
				case ModeFill:
					next = mat
				}
				if next == cur {
					continue
				}
				chunk.Set(x, y, z, v.WithMaterial(next))
				mutated = true
			}
		}
	}

	return mutated
}

func clampToChunk(v int) int {
	if v < 0 {
		return 0
	}
	if v > voxel.ChunkSize-1 {
		return voxel.ChunkSize - 1
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
