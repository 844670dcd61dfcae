package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// VisibilityResult is one BFS pass over the chunk connectivity graph.
type VisibilityResult struct {
	// Reachable holds loaded chunks to render this frame.
	Reachable map[voxel.ChunkCoord]struct{}
	// LoadOnly marks reachable chunks behind the camera cone: kept loaded,
	// optional for rendering.
	LoadOnly map[voxel.ChunkCoord]struct{}
	// ToRequest holds unloaded chunk keys the traversal wanted to enter.
	ToRequest map[voxel.ChunkCoord]struct{}
}

// CameraState is the per-frame camera input to the BFS.
type CameraState struct {
	Frustum  *Frustum // nil disables frustum culling
	Forward  mgl32.Vec3
	Position mgl32.Vec3
}

// backFacingCos demotes neighbors more than ~120 degrees off the camera
// forward direction.
const backFacingCos = -0.5

// Visibility runs the reachable-chunk BFS and caches its result until the
// observer crosses a chunk boundary or the world changes under it.
type Visibility struct {
	store *Store

	cached       *VisibilityResult
	cachedOrigin voxel.ChunkCoord
	cachedRadius int
	dirty        bool
}

// NewVisibility creates the BFS over the store.
func NewVisibility(store *Store) *Visibility {
	return &Visibility{store: store, dirty: true}
}

// Invalidate drops the cached result. Called on chunk arrival, build
// mutation and visibility-radius change.
func (v *Visibility) Invalidate() {
	v.dirty = true
}

// Result returns the current BFS result, recomputing only when the origin
// chunk, radius or world changed.
func (v *Visibility) Result(origin voxel.ChunkCoord, radius int, cam CameraState) *VisibilityResult {
	if v.cached != nil && !v.dirty && origin == v.cachedOrigin && radius == v.cachedRadius {
		return v.cached
	}
	v.cached = v.run(origin, radius, cam)
	v.cachedOrigin = origin
	v.cachedRadius = radius
	v.dirty = false
	return v.cached
}

type bfsEntry struct {
	coord   voxel.ChunkCoord
	entered voxel.Face
	isOrig  bool
}

// run executes the BFS from the observer's chunk. An edge into a loaded
// chunk through face f may continue out through face g only when the
// chunk's visibility bits connect (f, g); entering the origin is
// unconstrained. Unloaded neighbors the traversal would have entered are
// emitted into ToRequest and never recursed into.
func (v *Visibility) run(origin voxel.ChunkCoord, radius int, cam CameraState) *VisibilityResult {
	defer profiling.Track("visibility.BFS")()

	res := &VisibilityResult{
		Reachable: make(map[voxel.ChunkCoord]struct{}),
		LoadOnly:  make(map[voxel.ChunkCoord]struct{}),
		ToRequest: make(map[voxel.ChunkCoord]struct{}),
	}

	visited := map[voxel.ChunkCoord]struct{}{origin: {}}
	queue := []bfsEntry{{coord: origin, isOrig: true}}

	if v.store.Has(origin) {
		res.Reachable[origin] = struct{}{}
	} else {
		res.ToRequest[origin] = struct{}{}
		// No loaded origin to traverse through; still probe its immediate
		// neighbors so the world around the observer streams in.
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		chunk := v.store.Get(cur.coord)

		for g := voxel.Face(0); g < voxel.FaceCount; g++ {
			if !cur.isOrig {
				if chunk == nil || !chunk.CanTraverse(cur.entered, g) {
					continue
				}
			}

			next := cur.coord.Neighbor(g)
			if next.ChebyshevDist(origin) > radius {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}

			// Frustum gate. The origin's immediate face neighbors are always
			// kept so rotation doesn't pop geometry.
			immediate := cur.isOrig
			if !immediate && cam.Frustum != nil {
				lo := next.WorldOrigin()
				hi := lo.Add(mgl32.Vec3{voxel.ChunkWorldSize, voxel.ChunkWorldSize, voxel.ChunkWorldSize})
				if !cam.Frustum.IntersectsAABB(lo, hi) {
					continue
				}
			}

			if !v.store.Has(next) {
				res.ToRequest[next] = struct{}{}
				continue
			}

			res.Reachable[next] = struct{}{}
			if !immediate && backFacing(next, cam) {
				res.LoadOnly[next] = struct{}{}
			}
			queue = append(queue, bfsEntry{coord: next, entered: g.Opposite()})
		}
	}

	return res
}

// backFacing reports whether the chunk lies behind the camera beyond the
// demotion cone.
func backFacing(coord voxel.ChunkCoord, cam CameraState) bool {
	if cam.Forward == (mgl32.Vec3{}) {
		return false
	}
	dir := coord.Center().Sub(cam.Position)
	n := dir.Len()
	if n < 1e-6 {
		return false
	}
	return dir.Mul(1/n).Dot(cam.Forward.Normalize()) < backFacingCos
}
