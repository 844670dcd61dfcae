package world

import (
	"log/slog"
	"sort"

	"worldify/internal/profiling"
	"worldify/internal/voxel"
)

// Request concurrency caps. Desires beyond the caps wait for the next tick.
const (
	MaxPendingTiles  = 4
	MaxPendingChunks = 4
)

// Scheduler turns the BFS's want-to-load set into bounded server traffic.
// Priority: the initial surface column, then tiles for unknown columns, then
// chunks gated by each column's surface extent.
type Scheduler struct {
	store *Store
	sink  RequestSink

	// ForceRegen is passed through on every chunk request; the server
	// interprets it.
	ForceRegen bool

	bootstrapped bool
	bootstrapCol voxel.ColumnCoord
}

// NewScheduler wires the scheduler to the store and the request sink.
func NewScheduler(store *Store, sink RequestSink) *Scheduler {
	return &Scheduler{store: store, sink: sink}
}

// Reset forgets the bootstrap state. Used on reconnect.
func (s *Scheduler) Reset() {
	s.bootstrapped = false
}

// Bootstrapped reports whether the initial surface column reply has been
// requested and received.
func (s *Scheduler) Bootstrapped() bool {
	return s.bootstrapped && !s.store.IsPendingColumn(s.bootstrapCol)
}

// Tick issues requests for the desired chunk set, nearest first, within the
// pending caps.
func (s *Scheduler) Tick(observer voxel.ChunkCoord, desired map[voxel.ChunkCoord]struct{}) {
	defer profiling.Track("scheduler.Tick")()

	// Before any other traffic: one surface column centered on the
	// observer, and nothing else until it arrives.
	if !s.bootstrapped {
		col := observer.Column()
		s.bootstrapped = true
		s.bootstrapCol = col
		s.store.MarkPendingColumn(col)
		s.sink.SendSurfaceColumnRequest(col)
		slog.Info("requested initial surface column", "tx", col.X, "tz", col.Z)
		return
	}
	if s.store.IsPendingColumn(s.bootstrapCol) {
		return
	}

	wanted := s.withMarginNeighbors(desired)

	order := make([]voxel.ChunkCoord, 0, len(wanted))
	for coord := range wanted {
		order = append(order, coord)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := order[i].DistSq(observer), order[j].DistSq(observer)
		if di != dj {
			return di < dj
		}
		a, b := order[i], order[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	tileBudget := MaxPendingTiles - s.store.PendingColumnCount()
	chunkBudget := MaxPendingChunks - s.store.PendingChunkCount()

	requestedTile := make(map[voxel.ColumnCoord]struct{})

	for _, coord := range order {
		if tileBudget <= 0 && chunkBudget <= 0 {
			break
		}

		col := coord.Column()
		info, known := s.store.ColumnInfo(col)
		if !known {
			if _, dup := requestedTile[col]; dup {
				continue
			}
			if tileBudget <= 0 || s.store.IsPendingColumn(col) {
				continue
			}
			requestedTile[col] = struct{}{}
			s.store.MarkPendingColumn(col)
			s.sink.SendTileRequest(col)
			tileBudget--
			continue
		}

		// Chunks above the surface are pure air; never fetch them.
		if coord.Y > info.MaxChunkY {
			continue
		}
		if chunkBudget <= 0 || s.store.Has(coord) || s.store.IsPendingChunk(coord) {
			continue
		}
		s.store.MarkPendingChunk(coord)
		s.sink.SendChunkRequest(coord, s.ForceRegen)
		chunkBudget--
	}
}

// withMarginNeighbors supplements the desired set with unloaded neighbors
// the mesher needs for seam stitching: any loaded chunk whose face mask has
// face f set wants the chunk across f.
func (s *Scheduler) withMarginNeighbors(desired map[voxel.ChunkCoord]struct{}) map[voxel.ChunkCoord]struct{} {
	out := make(map[voxel.ChunkCoord]struct{}, len(desired))
	for coord := range desired {
		out[coord] = struct{}{}
	}
	s.store.Each(func(c *voxel.Chunk) {
		for f := voxel.Face(0); f < voxel.FaceCount; f++ {
			if !c.NeedsNeighbor(f) {
				continue
			}
			n := c.Coord.Neighbor(f)
			if s.store.Has(n) || s.store.IsPendingChunk(n) {
				continue
			}
			out[n] = struct{}{}
		}
	})
	return out
}
