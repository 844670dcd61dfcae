package net

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"worldify/internal/voxel"
	"worldify/internal/world"
)

// Message type bytes. Every frame is one type byte followed by a
// little-endian payload.
const (
	// server -> client
	MsgChunkData     byte = 0x01
	MsgTileData      byte = 0x02
	MsgSurfaceColumn byte = 0x03
	MsgBuildCommit   byte = 0x04

	// client -> server
	MsgHello                byte = 0x10
	MsgChunkRequest         byte = 0x11
	MsgTileRequest          byte = 0x12
	MsgSurfaceColumnRequest byte = 0x13
)

const tileCells = world.MapTileSize * world.MapTileSize

// reader walks a payload with bounds checking.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("payload truncated at offset %d (need %d of %d)", r.off, n, len(r.buf))
		return false
	}
	return true
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) i32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) voxels(dst *[voxel.ChunkVolume]voxel.Voxel) {
	if !r.need(voxel.ChunkVolume * 2) {
		return
	}
	for i := range dst {
		dst[i] = voxel.Voxel(binary.LittleEndian.Uint16(r.buf[r.off+i*2:]))
	}
	r.off += voxel.ChunkVolume * 2
}

func (r *reader) heights(dst *[tileCells]int16) {
	if !r.need(tileCells * 2) {
		return
	}
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(r.buf[r.off+i*2:]))
	}
	r.off += tileCells * 2
}

func (r *reader) bytes(dst []byte) {
	if !r.need(len(dst)) {
		return
	}
	copy(dst, r.buf[r.off:])
	r.off += len(dst)
}

// DecodeChunkData parses a MsgChunkData payload.
func DecodeChunkData(payload []byte) (*world.ChunkData, error) {
	r := &reader{buf: payload}
	d := &world.ChunkData{}
	d.ChunkX = r.i32()
	d.ChunkY = r.i32()
	d.ChunkZ = r.i32()
	d.LastBuildSeq = r.u32()
	r.voxels(&d.VoxelData)
	if r.err != nil {
		return nil, fmt.Errorf("decoding chunk data: %w", r.err)
	}
	return d, nil
}

// DecodeTileData parses a MsgTileData payload.
func DecodeTileData(payload []byte) (*world.TileData, error) {
	r := &reader{buf: payload}
	d := &world.TileData{}
	d.TX = r.i32()
	d.TZ = r.i32()
	r.heights(&d.Heights)
	r.bytes(d.Materials[:])
	if r.err != nil {
		return nil, fmt.Errorf("decoding tile data: %w", r.err)
	}
	return d, nil
}

// DecodeSurfaceColumn parses a MsgSurfaceColumn payload: a tile followed by
// its non-empty chunks, bottom-up.
func DecodeSurfaceColumn(payload []byte) (*world.SurfaceColumnData, error) {
	r := &reader{buf: payload}
	d := &world.SurfaceColumnData{}
	d.TX = r.i32()
	d.TZ = r.i32()
	r.heights(&d.Heights)
	r.bytes(d.Materials[:])

	count := int(r.u16())
	if r.err == nil && count > 0 {
		d.Chunks = make([]world.ColumnChunk, count)
		for i := range d.Chunks {
			d.Chunks[i].ChunkY = r.i32()
			d.Chunks[i].LastBuildSeq = r.u32()
			r.voxels(&d.Chunks[i].VoxelData)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("decoding surface column: %w", r.err)
	}
	return d, nil
}

// DecodeBuildCommit parses a MsgBuildCommit payload.
func DecodeBuildCommit(payload []byte) (*world.BuildCommit, error) {
	r := &reader{buf: payload}
	d := &world.BuildCommit{}

	d.Intent.Center = mgl32.Vec3{r.f32(), r.f32(), r.f32()}
	d.Intent.Rotation = mgl32.Quat{
		W: r.f32(),
		V: mgl32.Vec3{r.f32(), r.f32(), r.f32()},
	}
	d.Intent.Config.Shape = world.BuildShape(r.u8())
	d.Intent.Config.Mode = world.BuildMode(r.u8())
	d.Intent.Config.Size = mgl32.Vec3{r.f32(), r.f32(), r.f32()}
	d.Intent.Config.Material = r.u8()
	d.Result = world.BuildResult(r.u8())

	if r.err != nil {
		return nil, fmt.Errorf("decoding build commit: %w", r.err)
	}
	return d, nil
}

// writer builds a payload.
type writer struct {
	buf []byte
}

func (w *writer) u8(v byte)   { w.buf = append(w.buf, v) }
func (w *writer) i32(v int32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }

// EncodeHello frames the session handshake.
func EncodeHello(session uuid.UUID) []byte {
	w := &writer{buf: make([]byte, 0, 17)}
	w.u8(MsgHello)
	w.buf = append(w.buf, session[:]...)
	return w.buf
}

// EncodeChunkRequest frames a chunk request.
func EncodeChunkRequest(coord voxel.ChunkCoord, forceRegen bool) []byte {
	w := &writer{buf: make([]byte, 0, 14)}
	w.u8(MsgChunkRequest)
	w.i32(int32(coord.X))
	w.i32(int32(coord.Y))
	w.i32(int32(coord.Z))
	if forceRegen {
		w.u8(1)
	} else {
		w.u8(0)
	}
	return w.buf
}

// EncodeTileRequest frames a tile request.
func EncodeTileRequest(col voxel.ColumnCoord) []byte {
	w := &writer{buf: make([]byte, 0, 9)}
	w.u8(MsgTileRequest)
	w.i32(int32(col.X))
	w.i32(int32(col.Z))
	return w.buf
}

// EncodeSurfaceColumnRequest frames a surface column request.
func EncodeSurfaceColumnRequest(col voxel.ColumnCoord) []byte {
	w := &writer{buf: make([]byte, 0, 9)}
	w.u8(MsgSurfaceColumnRequest)
	w.i32(int32(col.X))
	w.i32(int32(col.Z))
	return w.buf
}
