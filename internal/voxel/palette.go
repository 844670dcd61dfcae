package voxel

// MaterialClass partitions the palette for lighting, meshing and collision.
type MaterialClass uint8

const (
	ClassAir MaterialClass = iota
	ClassSolid
	ClassTransparent
	ClassLiquid
)

// MaterialDefinition defines the properties of one palette entry.
type MaterialDefinition struct {
	ID    uint8
	Name  string
	Class MaterialClass
	Color uint32 // 0xRRGGBB, used by the map tile renderer
}

// Global palette. Indexed by material id; the server and every client share
// the same table, so registration order matters.
var (
	Materials     = make(map[uint8]*MaterialDefinition)
	MaterialNames = make(map[string]uint8)
)

// Well-known material ids.
const (
	MaterialAir   uint8 = 0
	MaterialStone uint8 = 1
	MaterialDirt  uint8 = 2
	MaterialGrass uint8 = 3
	MaterialSand  uint8 = 4
	MaterialWood  uint8 = 5
	MaterialBrick uint8 = 6
	MaterialSnow  uint8 = 7
	MaterialGlass uint8 = 8
	MaterialLeaf  uint8 = 9
	MaterialWater uint8 = 10
	MaterialLava  uint8 = 11
)

// RegisterMaterial adds one entry to the palette.
func RegisterMaterial(def *MaterialDefinition) {
	Materials[def.ID] = def
	MaterialNames[def.Name] = def.ID
}

func init() {
	RegisterMaterial(&MaterialDefinition{ID: MaterialAir, Name: "air", Class: ClassAir})
	RegisterMaterial(&MaterialDefinition{ID: MaterialStone, Name: "stone", Class: ClassSolid, Color: 0x8A8A8A})
	RegisterMaterial(&MaterialDefinition{ID: MaterialDirt, Name: "dirt", Class: ClassSolid, Color: 0x6B4A2B})
	RegisterMaterial(&MaterialDefinition{ID: MaterialGrass, Name: "grass", Class: ClassSolid, Color: 0x4F8A2F})
	RegisterMaterial(&MaterialDefinition{ID: MaterialSand, Name: "sand", Class: ClassSolid, Color: 0xD8C878})
	RegisterMaterial(&MaterialDefinition{ID: MaterialWood, Name: "wood", Class: ClassSolid, Color: 0x7A5A34})
	RegisterMaterial(&MaterialDefinition{ID: MaterialBrick, Name: "brick", Class: ClassSolid, Color: 0x9E4A3A})
	RegisterMaterial(&MaterialDefinition{ID: MaterialSnow, Name: "snow", Class: ClassSolid, Color: 0xEDEDF4})
	RegisterMaterial(&MaterialDefinition{ID: MaterialGlass, Name: "glass", Class: ClassTransparent, Color: 0xA8D4E0})
	RegisterMaterial(&MaterialDefinition{ID: MaterialLeaf, Name: "leaves", Class: ClassTransparent, Color: 0x3A6E2A})
	RegisterMaterial(&MaterialDefinition{ID: MaterialWater, Name: "water", Class: ClassLiquid, Color: 0x2A5AAE})
	RegisterMaterial(&MaterialDefinition{ID: MaterialLava, Name: "lava", Class: ClassLiquid, Color: 0xD4551A})
}

// ClassOf returns the material's class; unknown ids behave as solid so a
// palette mismatch shows up as geometry rather than a hole.
func ClassOf(material uint8) MaterialClass {
	if def, ok := Materials[material]; ok {
		return def.Class
	}
	return ClassSolid
}

// IsSolid reports whether the material occludes light and collides.
func IsSolid(material uint8) bool {
	return ClassOf(material) == ClassSolid
}

// ColorOf returns the palette display color for map tiles.
func ColorOf(material uint8) uint32 {
	if def, ok := Materials[material]; ok {
		return def.Color
	}
	return 0xFF00FF
}
