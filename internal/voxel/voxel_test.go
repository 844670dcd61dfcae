package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackRoundTrip(t *testing.T) {
	v := Pack(MaterialStone, 0, false)
	assert.Equal(t, MaterialStone, v.Material())
	assert.Equal(t, uint8(0), v.Sunlight())
	assert.False(t, v.SkyExposed())

	v = Pack(MaterialAir, 15, true)
	assert.Equal(t, MaterialAir, v.Material())
	assert.Equal(t, uint8(15), v.Sunlight())
	assert.True(t, v.SkyExposed())
}

func TestVoxelWith(t *testing.T) {
	v := Pack(MaterialGrass, 7, false)

	v2 := v.WithSunlight(12)
	assert.Equal(t, uint8(12), v2.Sunlight())
	assert.Equal(t, MaterialGrass, v2.Material())

	v3 := v.WithMaterial(MaterialWater)
	assert.Equal(t, MaterialWater, v3.Material())
	assert.Equal(t, uint8(7), v3.Sunlight())

	v4 := v.WithSkyExposed(true).WithSkyExposed(false)
	assert.False(t, v4.SkyExposed())
	assert.Equal(t, v, v4)
}

func TestPaletteClasses(t *testing.T) {
	assert.False(t, IsSolid(MaterialAir))
	assert.True(t, IsSolid(MaterialStone))
	assert.False(t, IsSolid(MaterialGlass))
	assert.False(t, IsSolid(MaterialWater))

	// Palette consistency: solid iff class solid.
	for id, def := range Materials {
		assert.Equal(t, def.Class == ClassSolid, IsSolid(id), "material %s", def.Name)
	}
}

func TestFacePairBits(t *testing.T) {
	// Symmetric and unique over the 15 unordered pairs.
	seen := make(map[uint16]bool)
	for a := Face(0); a < FaceCount; a++ {
		for b := a + 1; b < FaceCount; b++ {
			bit := FacePairBit(a, b)
			assert.Equal(t, bit, FacePairBit(b, a))
			assert.False(t, seen[bit], "duplicate bit for pair (%d,%d)", a, b)
			seen[bit] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestOppositeFaces(t *testing.T) {
	assert.Equal(t, FaceXNeg, FaceXPos.Opposite())
	assert.Equal(t, FaceXPos, FaceXNeg.Opposite())
	assert.Equal(t, FaceYNeg, FaceYPos.Opposite())
	assert.Equal(t, FaceZPos, FaceZNeg.Opposite())
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 0, FloorDiv(0, 32))
	assert.Equal(t, 0, FloorDiv(31, 32))
	assert.Equal(t, 1, FloorDiv(32, 32))
	assert.Equal(t, -1, FloorDiv(-1, 32))
	assert.Equal(t, -1, FloorDiv(-32, 32))
	assert.Equal(t, -2, FloorDiv(-33, 32))

	assert.Equal(t, 31, FloorMod(-1, 32))
	assert.Equal(t, 0, FloorMod(-32, 32))
}
