package world

import (
	"encoding/binary"
	"hash/fnv"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"worldify/internal/voxel"
)

// MapTileSize is the per-axis column count of one tile (one tile per chunk
// column).
const MapTileSize = voxel.ChunkSize

// MapTile is the surface heightmap and material grid for one chunk column.
// Tiles are the source of truth for how tall a column is; the request
// scheduler gates chunk requests on them.
type MapTile struct {
	Coord     voxel.ColumnCoord
	Heights   [MapTileSize * MapTileSize]int16 // world Y of the surface voxel
	Materials [MapTileSize * MapTileSize]uint8

	// Hash is a content hash over heights+materials, cached for the UI to
	// cheaply detect tile changes.
	Hash uint64

	// MaxChunkY is the highest chunk Y whose column contains any surface.
	MaxChunkY int
}

// NewMapTile builds a tile from decoded server data, deriving hash and
// surface extent.
func NewMapTile(coord voxel.ColumnCoord, heights [MapTileSize * MapTileSize]int16, materials [MapTileSize * MapTileSize]uint8) *MapTile {
	t := &MapTile{Coord: coord, Heights: heights, Materials: materials}
	t.MaxChunkY = deriveMaxChunkY(&heights)
	t.Hash = t.computeHash()
	return t
}

func deriveMaxChunkY(heights *[MapTileSize * MapTileSize]int16) int {
	maxY := heights[0]
	for _, h := range heights[1:] {
		if h > maxY {
			maxY = h
		}
	}
	return voxel.FloorDiv(int(maxY), voxel.ChunkSize)
}

func (t *MapTile) computeHash() uint64 {
	h := fnv.New64a()
	var buf [2]byte
	for _, v := range t.Heights {
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
		h.Write(buf[:])
	}
	h.Write(t.Materials[:])
	return h.Sum64()
}

// HeightAt returns the surface world Y at tile-local (x, z).
func (t *MapTile) HeightAt(x, z int) int16 {
	return t.Heights[x+z*MapTileSize]
}

// MaterialAt returns the surface material at tile-local (x, z).
func (t *MapTile) MaterialAt(x, z int) uint8 {
	return t.Materials[x+z*MapTileSize]
}

// TileCache holds every tile received this session. In-memory only.
type TileCache struct {
	tiles map[voxel.ColumnCoord]*MapTile
}

// NewTileCache creates an empty cache.
func NewTileCache() *TileCache {
	return &TileCache{tiles: make(map[voxel.ColumnCoord]*MapTile)}
}

// Get returns the tile for a column, or nil.
func (tc *TileCache) Get(coord voxel.ColumnCoord) *MapTile {
	return tc.tiles[coord]
}

// Put stores a tile, replacing any previous one for the column.
func (tc *TileCache) Put(t *MapTile) {
	tc.tiles[t.Coord] = t
}

// Len returns the stored tile count.
func (tc *TileCache) Len() int {
	return len(tc.tiles)
}

// Clear drops every tile. Used on reconnect.
func (tc *TileCache) Clear() {
	tc.tiles = make(map[voxel.ColumnCoord]*MapTile)
}

// HeightAt resolves a world (x, z) to the surface height, when the owning
// tile is known.
func (tc *TileCache) HeightAt(worldX, worldZ int) (int, bool) {
	col := voxel.ColumnCoord{
		X: voxel.FloorDiv(worldX, MapTileSize),
		Z: voxel.FloorDiv(worldZ, MapTileSize),
	}
	t := tc.tiles[col]
	if t == nil {
		return 0, false
	}
	return int(t.HeightAt(voxel.FloorMod(worldX, MapTileSize), voxel.FloorMod(worldZ, MapTileSize))), true
}

// RenderImage rasterizes the tiles around center into a square RGBA image of
// the given pixel size, one source pixel per voxel column, palette colors
// shaded by height. Unknown tiles render as transparent.
func (tc *TileCache) RenderImage(center voxel.ColumnCoord, radiusTiles, sizePx int) *image.RGBA {
	srcSize := (2*radiusTiles + 1) * MapTileSize
	src := image.NewRGBA(image.Rect(0, 0, srcSize, srcSize))

	for tz := -radiusTiles; tz <= radiusTiles; tz++ {
		for tx := -radiusTiles; tx <= radiusTiles; tx++ {
			t := tc.tiles[voxel.ColumnCoord{X: center.X + tx, Z: center.Z + tz}]
			if t == nil {
				continue
			}
			ox := (tx + radiusTiles) * MapTileSize
			oz := (tz + radiusTiles) * MapTileSize
			for z := 0; z < MapTileSize; z++ {
				for x := 0; x < MapTileSize; x++ {
					src.SetRGBA(ox+x, oz+z, tileColor(t, x, z))
				}
			}
		}
	}

	if sizePx == srcSize {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, sizePx, sizePx))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// tileColor shades the palette color by surface height so relief reads on
// the minimap.
func tileColor(t *MapTile, x, z int) color.RGBA {
	c := voxel.ColorOf(t.MaterialAt(x, z))
	h := t.HeightAt(x, z)

	// 0.6 at depth, 1.0 well above sea level
	shade := 0.6 + 0.4*clamp01((float64(h)+32)/128)
	return color.RGBA{
		R: uint8(float64(c>>16&0xFF) * shade),
		G: uint8(float64(c>>8&0xFF) * shade),
		B: uint8(float64(c&0xFF) * shade),
		A: 255,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
