package world

import (
	"worldify/internal/voxel"
)

// ColumnInfo caches the surface extent the scheduler derives from a
// column's tile; it exists only once the tile has arrived.
type ColumnInfo struct {
	// MaxChunkY is the highest chunk Y whose column contains any surface.
	// Chunks above it are pure air and are never requested.
	MaxChunkY int
}

// Store owns every loaded chunk plus the two in-flight request sets. It is
// main-thread state; workers never touch it.
type Store struct {
	chunks map[voxel.ChunkCoord]*voxel.Chunk

	pendingChunks  map[voxel.ChunkCoord]struct{}
	pendingColumns map[voxel.ColumnCoord]struct{}

	columnInfo map[voxel.ColumnCoord]ColumnInfo
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chunks:         make(map[voxel.ChunkCoord]*voxel.Chunk),
		pendingChunks:  make(map[voxel.ChunkCoord]struct{}),
		pendingColumns: make(map[voxel.ColumnCoord]struct{}),
		columnInfo:     make(map[voxel.ColumnCoord]ColumnInfo),
	}
}

// Get returns the chunk at coord, or nil when unloaded.
func (s *Store) Get(coord voxel.ChunkCoord) *voxel.Chunk {
	return s.chunks[coord]
}

// Has reports whether a chunk is loaded.
func (s *Store) Has(coord voxel.ChunkCoord) bool {
	_, ok := s.chunks[coord]
	return ok
}

// Insert adds or replaces a chunk. At most one chunk exists per key.
func (s *Store) Insert(chunk *voxel.Chunk) {
	s.chunks[chunk.Coord] = chunk
}

// Remove drops a chunk; returns true when one existed.
func (s *Store) Remove(coord voxel.ChunkCoord) bool {
	if _, ok := s.chunks[coord]; !ok {
		return false
	}
	delete(s.chunks, coord)
	return true
}

// Len returns the loaded chunk count.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Each calls fn for every loaded chunk. fn must not mutate the map.
func (s *Store) Each(fn func(*voxel.Chunk)) {
	for _, c := range s.chunks {
		fn(c)
	}
}

// Coords returns a snapshot of all loaded chunk coordinates.
func (s *Store) Coords() []voxel.ChunkCoord {
	out := make([]voxel.ChunkCoord, 0, len(s.chunks))
	for coord := range s.chunks {
		out = append(out, coord)
	}
	return out
}

// IsPendingChunk reports whether a chunk request is in flight.
func (s *Store) IsPendingChunk(coord voxel.ChunkCoord) bool {
	_, ok := s.pendingChunks[coord]
	return ok
}

// MarkPendingChunk records an in-flight chunk request.
func (s *Store) MarkPendingChunk(coord voxel.ChunkCoord) {
	s.pendingChunks[coord] = struct{}{}
}

// ClearPendingChunk clears the in-flight flag for a chunk.
func (s *Store) ClearPendingChunk(coord voxel.ChunkCoord) {
	delete(s.pendingChunks, coord)
}

// PendingChunkCount returns the number of chunk requests in flight.
func (s *Store) PendingChunkCount() int {
	return len(s.pendingChunks)
}

// IsPendingColumn reports whether a tile or surface-column request is in
// flight for the column.
func (s *Store) IsPendingColumn(col voxel.ColumnCoord) bool {
	_, ok := s.pendingColumns[col]
	return ok
}

// MarkPendingColumn records an in-flight tile/column request.
func (s *Store) MarkPendingColumn(col voxel.ColumnCoord) {
	s.pendingColumns[col] = struct{}{}
}

// ClearPendingColumn clears the in-flight flag for a column.
func (s *Store) ClearPendingColumn(col voxel.ColumnCoord) {
	delete(s.pendingColumns, col)
}

// PendingColumnCount returns the number of tile or surface-column requests
// in flight.
func (s *Store) PendingColumnCount() int {
	return len(s.pendingColumns)
}

// ColumnInfo returns the cached column info, if known.
func (s *Store) ColumnInfo(col voxel.ColumnCoord) (ColumnInfo, bool) {
	info, ok := s.columnInfo[col]
	return info, ok
}

// SetColumnInfo records the column's surface extent.
func (s *Store) SetColumnInfo(col voxel.ColumnCoord, info ColumnInfo) {
	s.columnInfo[col] = info
}

// Clear drops every chunk, pending flag and column record. Used on
// reconnect.
func (s *Store) Clear() {
	s.chunks = make(map[voxel.ChunkCoord]*voxel.Chunk)
	s.pendingChunks = make(map[voxel.ChunkCoord]struct{})
	s.pendingColumns = make(map[voxel.ColumnCoord]struct{})
	s.columnInfo = make(map[voxel.ColumnCoord]ColumnInfo)
}

// VoxelAt resolves a global voxel coordinate through the store. The second
// return is false when the owning chunk is unloaded.
func (s *Store) VoxelAt(x, y, z int) (voxel.Voxel, bool) {
	coord := voxel.ChunkCoord{
		X: voxel.FloorDiv(x, voxel.ChunkSize),
		Y: voxel.FloorDiv(y, voxel.ChunkSize),
		Z: voxel.FloorDiv(z, voxel.ChunkSize),
	}
	c := s.chunks[coord]
	if c == nil {
		return 0, false
	}
	return c.At(voxel.FloorMod(x, voxel.ChunkSize), voxel.FloorMod(y, voxel.ChunkSize), voxel.FloorMod(z, voxel.ChunkSize)), true
}
