// Package rockfield draws the instanced rock scatter.
package rockfield

import (
	"terradrift/internal/graphics"
	"terradrift/internal/graphics/renderer"
	"terradrift/internal/instancing"
	"terradrift/internal/profiling"
	"terradrift/internal/rocks"

	"github.com/go-gl/gl/v4.1-core/gl"
)

const vertexShader = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in mat4 aModel; // consumes locations 2..5

uniform mat4 view;
uniform mat4 projection;

out vec3 Normal;
out vec3 WorldPos;

void main() {
    vec4 world = aModel * vec4(aPos, 1.0);
    gl_Position = projection * view * world;
    // Uniform-ish scaling: the upper 3x3 is fine for normals here.
    Normal = mat3(aModel) * aNormal;
    WorldPos = world.xyz;
}
`

const fragmentShader = `#version 410 core
in vec3 Normal;
in vec3 WorldPos;

uniform vec3 lightDir;
uniform vec3 cameraPos;
uniform float fogDensity;
uniform vec3 fogColor;

out vec4 FragColor;

void main() {
    vec3 albedo = vec3(0.42, 0.40, 0.38);
    float diffuse = max(dot(normalize(Normal), -lightDir), 0.0);
    vec3 lit = albedo * (0.3 + 0.7 * diffuse);

    float dist = length(WorldPos - cameraPos);
    float fog = 1.0 - exp(-fogDensity * dist);
    FragColor = vec4(mix(lit, fogColor, fog), 1.0);
}
`

type protoBuffers struct {
	vao, vbo, ebo uint32
	instanceVBO   uint32
	indexCount    int32
	// instanceVersion tracks the batcher buffer revision last uploaded.
	instanceVersion uint64
	instanceCap     int
}

// Rocks renders the shared instance buffers. Prototype geometry uploads once;
// instance transforms re-upload only when their buffer version moved.
type Rocks struct {
	shader  *graphics.Shader
	library *rocks.Library
	protos  map[instancing.MeshKey]*protoBuffers

	minScreenPixels float32
	viewportH       float32
}

func New(library *rocks.Library, minScreenPixels float32) *Rocks {
	return &Rocks{
		library:         library,
		protos:          make(map[instancing.MeshKey]*protoBuffers),
		minScreenPixels: minScreenPixels,
		viewportH:       600,
	}
}

func (r *Rocks) Init() error {
	shader, err := graphics.NewShaderFromSource(vertexShader, fragmentShader)
	if err != nil {
		return err
	}
	r.shader = shader
	return nil
}

func (r *Rocks) SetViewport(width, height int) {
	r.viewportH = float32(height)
}

func (r *Rocks) Render(ctx renderer.RenderContext) {
	defer profiling.Track("render.rocks")()

	r.shader.Use()
	r.shader.SetMatrix4("view", &ctx.View[0])
	r.shader.SetMatrix4("projection", &ctx.Proj[0])
	r.shader.SetVector3("lightDir", -0.45, -0.8, -0.3)
	pos := ctx.Flyer.Position
	r.shader.SetVector3("cameraPos", pos.X(), pos.Y(), pos.Z())
	r.shader.SetFloat("fogDensity", 0.00004)
	r.shader.SetVector3("fogColor", 0.53, 0.75, 0.92)

	visible := ctx.Batcher.VisibleBuffers(pos, ctx.Camera.FOV, r.viewportH, r.minScreenPixels)
	for _, buf := range visible {
		pb := r.ensure(buf)
		if pb == nil || buf.ActiveCount() == 0 {
			continue
		}
		gl.BindVertexArray(pb.vao)
		gl.DrawElementsInstanced(gl.TRIANGLES, pb.indexCount, gl.UNSIGNED_INT, nil, int32(buf.ActiveCount()))
	}
	gl.BindVertexArray(0)
}

// ensure uploads prototype geometry on first use and refreshes the instance
// VBO when the batcher buffer changed.
func (r *Rocks) ensure(buf *instancing.Buffer) *protoBuffers {
	pb := r.protos[buf.Key]
	if pb == nil {
		proto, err := r.library.Prototype(buf.Key.Prototype)
		if err != nil || buf.Key.Detail >= len(proto.Levels) {
			return nil
		}
		mesh := proto.Levels[buf.Key.Detail]

		pb = &protoBuffers{instanceVersion: ^uint64(0)}
		gl.GenVertexArrays(1, &pb.vao)
		gl.GenBuffers(1, &pb.vbo)
		gl.GenBuffers(1, &pb.ebo)
		gl.GenBuffers(1, &pb.instanceVBO)

		gl.BindVertexArray(pb.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, pb.vbo)
		interleaved := make([]float32, 0, len(mesh.Positions)*2)
		for i := 0; i < len(mesh.Positions); i += 3 {
			interleaved = append(interleaved, mesh.Positions[i:i+3]...)
			interleaved = append(interleaved, mesh.Normals[i:i+3]...)
		}
		gl.BufferData(gl.ARRAY_BUFFER, len(interleaved)*4, gl.Ptr(interleaved), gl.STATIC_DRAW)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(0))
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(3*4))

		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, pb.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
		pb.indexCount = int32(len(mesh.Indices))

		// Instance matrix occupies four consecutive vec4 attributes.
		gl.BindBuffer(gl.ARRAY_BUFFER, pb.instanceVBO)
		for i := uint32(0); i < 4; i++ {
			gl.EnableVertexAttribArray(2 + i)
			gl.VertexAttribPointer(2+i, 4, gl.FLOAT, false, 16*4, gl.PtrOffset(int(i)*4*4))
			gl.VertexAttribDivisor(2+i, 1)
		}
		gl.BindVertexArray(0)
		r.protos[buf.Key] = pb
	}

	if pb.instanceVersion != buf.Version() {
		ts := buf.Transforms()
		gl.BindBuffer(gl.ARRAY_BUFFER, pb.instanceVBO)
		if len(ts) > pb.instanceCap {
			// Size to the buffer's fixed capacity once, then only SubData.
			pb.instanceCap = buf.Capacity()
			gl.BufferData(gl.ARRAY_BUFFER, pb.instanceCap*16*4, nil, gl.DYNAMIC_DRAW)
		}
		if len(ts) > 0 {
			gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(ts)*16*4, gl.Ptr(ts))
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		pb.instanceVersion = buf.Version()
	}
	return pb
}

func (r *Rocks) Dispose() {
	for key, pb := range r.protos {
		gl.DeleteBuffers(1, &pb.vbo)
		gl.DeleteBuffers(1, &pb.ebo)
		gl.DeleteBuffers(1, &pb.instanceVBO)
		gl.DeleteVertexArrays(1, &pb.vao)
		delete(r.protos, key)
	}
	if r.shader != nil {
		r.shader.Delete()
	}
}
