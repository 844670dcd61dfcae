package graphics

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"worldify/internal/meshing"
	"worldify/internal/profiling"
	"worldify/internal/terrain"
	"worldify/internal/voxel"
)

// Minimal terrain shader: per-vertex tri-material blend against a palette
// color table, modulated by sunlight. The full PBR/tri-planar pipeline lives
// in the render backend; this program is the engine-side stand-in.
const terrainVertSrc = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec3 aMaterialIds;
layout (location = 3) in vec3 aMaterialWeights;
layout (location = 4) in float aSunlight;

uniform mat4 uViewProjection;
uniform vec3 uPalette[16];

out vec3 vNormal;
out vec3 vColor;
out float vSunlight;

void main() {
    vNormal = aNormal;
    vSunlight = aSunlight;
    vColor = uPalette[int(aMaterialIds.x)] * aMaterialWeights.x
           + uPalette[int(aMaterialIds.y)] * aMaterialWeights.y
           + uPalette[int(aMaterialIds.z)] * aMaterialWeights.z;
    gl_Position = uViewProjection * vec4(aPos, 1.0);
}
`

const terrainFragSrc = `
#version 410 core
in vec3 vNormal;
in vec3 vColor;
in float vSunlight;

uniform vec3 uSunDir;
uniform float uAlpha;

out vec4 FragColor;

void main() {
    float diffuse = max(dot(normalize(vNormal), -uSunDir), 0.0);
    float light = 0.25 + 0.75 * diffuse * max(vSunlight, 0.15);
    FragColor = vec4(vColor * light, uAlpha);
}
`

// groupBuffers is the GPU state of one merged group submesh.
type groupBuffers struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
	generation uint64
}

// TerrainRenderer uploads merged terrain groups and draws them, one draw
// call per group per non-empty submesh class.
type TerrainRenderer struct {
	shader  *Shader
	buffers map[terrain.GroupCoord][meshing.SubmeshCount]*groupBuffers
}

// NewTerrainRenderer compiles the terrain program.
func NewTerrainRenderer() (*TerrainRenderer, error) {
	shader, err := NewShader(terrainVertSrc, terrainFragSrc)
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}
	return &TerrainRenderer{
		shader:  shader,
		buffers: make(map[terrain.GroupCoord][meshing.SubmeshCount]*groupBuffers),
	}, nil
}

// Render draws the batch with the camera. Solid first, then transparent and
// liquid with blending.
func (r *TerrainRenderer) Render(batch *terrain.Batch, cam *Camera) {
	defer profiling.Track("graphics.RenderTerrain")()

	r.shader.Use()
	vp := cam.ViewProjection()
	r.shader.SetMatrix4("uViewProjection", &vp[0])
	r.shader.SetVector3("uSunDir", -0.4, -0.8, -0.3)
	r.uploadPalette()

	live := make(map[terrain.GroupCoord]struct{})
	batch.Each(func(g *terrain.Group) {
		live[g.Coord] = struct{}{}
		r.sync(g)
	})
	for coord, set := range r.buffers {
		if _, ok := live[coord]; ok {
			continue
		}
		for _, b := range set {
			b.destroy()
		}
		delete(r.buffers, coord)
	}

	r.shader.SetFloat("uAlpha", 1.0)
	r.drawClass(batch, meshing.SubmeshSolid)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.DepthMask(false)
	r.shader.SetFloat("uAlpha", 0.6)
	r.drawClass(batch, meshing.SubmeshTransparent)
	r.drawClass(batch, meshing.SubmeshLiquid)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
}

func (r *TerrainRenderer) uploadPalette() {
	var palette [16 * 3]float32
	for id := 0; id < 16; id++ {
		c := voxel.ColorOf(uint8(id))
		palette[id*3] = float32(c>>16&0xFF) / 255
		palette[id*3+1] = float32(c>>8&0xFF) / 255
		palette[id*3+2] = float32(c&0xFF) / 255
	}
	r.shader.SetVector3Array("uPalette", 16, &palette[0])
}

// sync re-uploads the group's submeshes whose generation moved.
func (r *TerrainRenderer) sync(g *terrain.Group) {
	set := r.buffers[g.Coord]
	for class := meshing.SubmeshClass(0); class < meshing.SubmeshCount; class++ {
		geo := g.Merged[class]
		b := set[class]
		if geo.Empty() {
			if b != nil {
				b.destroy()
				set[class] = nil
			}
			continue
		}
		if b != nil && b.generation == g.Generation {
			continue
		}
		if b == nil {
			b = newGroupBuffers()
			set[class] = b
		}
		b.upload(geo, g.Generation)
	}
	r.buffers[g.Coord] = set
}

func (r *TerrainRenderer) drawClass(batch *terrain.Batch, class meshing.SubmeshClass) {
	batch.Each(func(g *terrain.Group) {
		b := r.buffers[g.Coord][class]
		if b == nil || b.indexCount == 0 {
			return
		}
		gl.BindVertexArray(b.vao)
		gl.DrawElements(gl.TRIANGLES, b.indexCount, gl.UNSIGNED_INT, gl.PtrOffset(0))
	})
	gl.BindVertexArray(0)
}

func newGroupBuffers() *groupBuffers {
	b := &groupBuffers{}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.GenBuffers(1, &b.ebo)
	return b
}

// vertex layout: pos(3) normal(3) ids(3) weights(3) sun(1) = 13 floats
const vertexStride = 13

func (b *groupBuffers) upload(geo *terrain.Geometry, generation uint64) {
	vertexCount := len(geo.Positions) / 3
	interleaved := make([]float32, 0, vertexCount*vertexStride)
	for i := 0; i < vertexCount; i++ {
		interleaved = append(interleaved,
			geo.Positions[i*3], geo.Positions[i*3+1], geo.Positions[i*3+2],
			geo.Normals[i*3], geo.Normals[i*3+1], geo.Normals[i*3+2],
			geo.MaterialIDs[i*3], geo.MaterialIDs[i*3+1], geo.MaterialIDs[i*3+2],
			geo.MaterialWeights[i*3], geo.MaterialWeights[i*3+1], geo.MaterialWeights[i*3+2],
			geo.Sunlight[i],
		)
	}

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(interleaved)*4, gl.Ptr(interleaved), gl.DYNAMIC_DRAW)

	stride := int32(vertexStride * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 3, gl.FLOAT, false, stride, gl.PtrOffset(9*4))
	gl.EnableVertexAttribArray(4)
	gl.VertexAttribPointer(4, 1, gl.FLOAT, false, stride, gl.PtrOffset(12*4))

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, gl.Ptr(geo.Indices), gl.DYNAMIC_DRAW)

	gl.BindVertexArray(0)

	b.indexCount = int32(len(geo.Indices))
	b.generation = generation
}

func (b *groupBuffers) destroy() {
	if b == nil {
		return
	}
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteBuffers(1, &b.ebo)
}
