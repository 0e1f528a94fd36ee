// Package terrainmesh draws the streamed heightfield chunks.
package terrainmesh

import (
	"terradrift/internal/graphics"
	"terradrift/internal/graphics/renderer"
	"terradrift/internal/profiling"
	"terradrift/internal/world"

	"github.com/go-gl/gl/v4.1-core/gl"
)

const vertexShader = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec3 aBiome;

uniform mat4 view;
uniform mat4 projection;

out vec3 Normal;
out vec3 Biome;
out vec3 WorldPos;

void main() {
    gl_Position = projection * view * vec4(aPos, 1.0);
    Normal = aNormal;
    Biome = aBiome;
    WorldPos = aPos;
}
`

const fragmentShader = `#version 410 core
in vec3 Normal;
in vec3 Biome;
in vec3 WorldPos;

uniform vec3 lightDir;
uniform vec3 cameraPos;
uniform float fogDensity;
uniform vec3 fogColor;

out vec4 FragColor;

void main() {
    // Biome palette: lowland grass, rocky highland, snow.
    vec3 grass = vec3(0.30, 0.52, 0.22);
    vec3 rock  = vec3(0.48, 0.44, 0.40);
    vec3 snow  = vec3(0.92, 0.93, 0.95);
    vec3 albedo = Biome.x * grass + Biome.y * rock + Biome.z * snow;

    float diffuse = max(dot(normalize(Normal), -lightDir), 0.0);
    vec3 lit = albedo * (0.35 + 0.65 * diffuse);

    float dist = length(WorldPos - cameraPos);
    float fog = 1.0 - exp(-fogDensity * dist);
    FragColor = vec4(mix(lit, fogColor, fog), 1.0);
}
`

type chunkBuffers struct {
	vao, vbo, ebo uint32
	indexCount    int32
	version       uint64
}

// Terrain renders every active chunk, re-uploading geometry only when the
// chunk's mesh version changed (new LOD or restitch).
type Terrain struct {
	shader *graphics.Shader
	chunks map[world.ChunkCoord]*chunkBuffers

	// seen marks coords touched this frame so stale GPU buffers get pruned.
	seen       map[world.ChunkCoord]bool
	interleave []float32
}

func New() *Terrain {
	return &Terrain{
		chunks: make(map[world.ChunkCoord]*chunkBuffers),
		seen:   make(map[world.ChunkCoord]bool),
	}
}

func (t *Terrain) Init() error {
	shader, err := graphics.NewShaderFromSource(vertexShader, fragmentShader)
	if err != nil {
		return err
	}
	t.shader = shader
	return nil
}

func (t *Terrain) SetViewport(width, height int) {}

func (t *Terrain) Render(ctx renderer.RenderContext) {
	defer profiling.Track("render.terrain")()

	if ctx.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		defer gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	t.shader.Use()
	t.shader.SetMatrix4("view", &ctx.View[0])
	t.shader.SetMatrix4("projection", &ctx.Proj[0])
	t.shader.SetVector3("lightDir", -0.45, -0.8, -0.3)
	pos := ctx.Flyer.Position
	t.shader.SetVector3("cameraPos", pos.X(), pos.Y(), pos.Z())
	t.shader.SetFloat("fogDensity", 0.00004)
	t.shader.SetVector3("fogColor", 0.53, 0.75, 0.92)

	clear(t.seen)
	ctx.Scheduler.ForEachActive(func(ch *world.Chunk) {
		t.seen[ch.Coord] = true
		buf := t.ensure(ch)
		if buf == nil {
			return
		}
		gl.BindVertexArray(buf.vao)
		gl.DrawElements(gl.TRIANGLES, buf.indexCount, gl.UNSIGNED_INT, nil)
	})
	gl.BindVertexArray(0)

	t.prune()
}

// ensure uploads or refreshes the chunk's GPU buffers.
func (t *Terrain) ensure(ch *world.Chunk) *chunkBuffers {
	mesh := ch.Mesh()
	if mesh == nil || len(ch.Indices) == 0 {
		return nil
	}
	buf := t.chunks[ch.Coord]
	if buf != nil && buf.version == ch.MeshVersion {
		return buf
	}
	if buf == nil {
		buf = &chunkBuffers{}
		gl.GenVertexArrays(1, &buf.vao)
		gl.GenBuffers(1, &buf.vbo)
		gl.GenBuffers(1, &buf.ebo)
		t.chunks[ch.Coord] = buf
	}

	verts := mesh.VertexCount()
	const floatsPerVertex = 9 // position, normal, biome weights
	t.interleave = t.interleave[:0]
	for i := 0; i < verts; i++ {
		t.interleave = append(t.interleave, mesh.Positions[i*3:i*3+3]...)
		t.interleave = append(t.interleave, mesh.Normals[i*3:i*3+3]...)
		t.interleave = append(t.interleave, mesh.BiomeWeights[i*3:i*3+3]...)
	}

	gl.BindVertexArray(buf.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(t.interleave)*4, gl.Ptr(t.interleave), gl.STATIC_DRAW)

	stride := int32(floatsPerVertex * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(6*4))

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(ch.Indices)*4, gl.Ptr(ch.Indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	buf.indexCount = int32(len(ch.Indices))
	buf.version = ch.MeshVersion
	return buf
}

// prune deletes GPU buffers for chunks the scheduler no longer has active.
func (t *Terrain) prune() {
	for coord, buf := range t.chunks {
		if t.seen[coord] {
			continue
		}
		gl.DeleteBuffers(1, &buf.vbo)
		gl.DeleteBuffers(1, &buf.ebo)
		gl.DeleteVertexArrays(1, &buf.vao)
		delete(t.chunks, coord)
	}
}

func (t *Terrain) Dispose() {
	for coord, buf := range t.chunks {
		gl.DeleteBuffers(1, &buf.vbo)
		gl.DeleteBuffers(1, &buf.ebo)
		gl.DeleteVertexArrays(1, &buf.vao)
		delete(t.chunks, coord)
	}
	if t.shader != nil {
		t.shader.Delete()
	}
}
