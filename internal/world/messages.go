package world

import (
	"worldify/internal/voxel"
)

// Decoded server messages. The wire format is the transport's concern
// (internal/net); these are the shapes the ingestor consumes.

// ChunkData is one authoritative chunk snapshot.
type ChunkData struct {
	ChunkX, ChunkY, ChunkZ int32
	LastBuildSeq           uint32
	VoxelData              [voxel.ChunkVolume]voxel.Voxel
}

// Coord returns the chunk key the payload targets.
func (d *ChunkData) Coord() voxel.ChunkCoord {
	return voxel.ChunkCoord{X: int(d.ChunkX), Y: int(d.ChunkY), Z: int(d.ChunkZ)}
}

// TileData is one map tile snapshot.
type TileData struct {
	TX, TZ    int32
	Heights   [MapTileSize * MapTileSize]int16
	Materials [MapTileSize * MapTileSize]uint8
}

// Column returns the column key the payload targets.
func (d *TileData) Column() voxel.ColumnCoord {
	return voxel.ColumnCoord{X: int(d.TX), Z: int(d.TZ)}
}

// ColumnChunk is one chunk inside a surface column reply.
type ColumnChunk struct {
	ChunkY       int32
	LastBuildSeq uint32
	VoxelData    [voxel.ChunkVolume]voxel.Voxel
}

// SurfaceColumnData is a tile plus every non-empty chunk in that column,
// ordered bottom-up by the server.
type SurfaceColumnData struct {
	TX, TZ    int32
	Heights   [MapTileSize * MapTileSize]int16
	Materials [MapTileSize * MapTileSize]uint8
	Chunks    []ColumnChunk
}

// Column returns the column key the payload targets.
func (d *SurfaceColumnData) Column() voxel.ColumnCoord {
	return voxel.ColumnCoord{X: int(d.TX), Z: int(d.TZ)}
}

// BuildResult is the server's verdict on a build intent.
type BuildResult uint8

const (
	BuildSuccess BuildResult = iota
	BuildRejectedOutOfBounds
	BuildRejectedRateLimit
	BuildRejectedConflict
)

// BuildCommit is an authoritative build notification. The core applies the
// intent only on success.
type BuildCommit struct {
	Intent BuildOperation
	Result BuildResult
}

// RequestSink is where the scheduler emits encoded requests. Implemented by
// the network client; tests substitute a recorder.
type RequestSink interface {
	SendChunkRequest(coord voxel.ChunkCoord, forceRegen bool)
	SendTileRequest(col voxel.ColumnCoord)
	SendSurfaceColumnRequest(col voxel.ColumnCoord)
}
