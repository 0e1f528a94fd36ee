package graphics

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontCharacter describes one glyph's placement and metrics in the atlas.
type FontCharacter struct {
	// Pixel coordinates of the glyph in the atlas texture (top-left origin).
	AtlasX float32
	AtlasY float32
	Width  float32
	Height float32
	// Bearing (offset from baseline) in pixels.
	BearingX float32
	BearingY float32
	// Advance in pixels.
	Advance int
}

// FontAtlas holds the baked glyph texture and per-glyph metadata.
type FontAtlas struct {
	TextureID  uint32
	AtlasW     int
	AtlasH     int
	Characters map[rune]FontCharacter
}

// BuildFontAtlas loads a TrueType font and bakes the printable ASCII range
// into an OpenGL texture atlas. fontPixels is the target glyph size.
func BuildFontAtlas(fontPath string, fontPixels int) (*FontAtlas, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size: float64(fontPixels), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	const (
		firstRune = rune(32)
		lastRune  = rune(126)
		padding   = 1
	)
	atlasW := 512

	// First pass: measure rows to size the canvas.
	maxH := 0
	for r := firstRune; r <= lastRune; r++ {
		_, mask, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		if h := mask.Bounds().Dy(); h > maxH {
			maxH = h
		}
	}
	if maxH == 0 {
		maxH = fontPixels
	}
	rowH := maxH + padding
	atlasH := rowH
	offsetX := 0
	for r := firstRune; r <= lastRune; r++ {
		dr, mask, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		w := dr.Dx()
		if offsetX+w+padding > atlasW {
			atlasH += rowH
			offsetX = 0
		}
		offsetX += w + padding
	}

	atlasImg := image.NewAlpha(image.Rect(0, 0, atlasW, atlasH))
	characters := make(map[rune]FontCharacter)

	// Second pass: render each glyph into the atlas and record metrics.
	offsetX, offsetY, rowHeight := 0, 0, 0
	for r := firstRune; r <= lastRune; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		gw, gh := dr.Dx(), dr.Dy()
		if gw == 0 || gh == 0 {
			// Space or other non-drawable glyph; keep the advance.
			characters[r] = FontCharacter{
				Advance: int(math.Round(float64(advance) / 64.0)),
			}
			continue
		}
		if offsetX+gw > atlasW {
			offsetX = 0
			offsetY += rowHeight + padding
			rowHeight = 0
		}

		dstRect := image.Rect(offsetX, offsetY, offsetX+gw, offsetY+gh)
		draw.Draw(atlasImg, dstRect, mask, maskp, draw.Src)

		characters[r] = FontCharacter{
			AtlasX:   float32(offsetX),
			AtlasY:   float32(offsetY),
			Width:    float32(gw),
			Height:   float32(gh),
			BearingX: float32(dr.Min.X),
			BearingY: float32(-dr.Min.Y),
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}

		offsetX += gw + padding
		if gh > rowHeight {
			rowHeight = gh
		}
	}

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	// Tight byte alignment for single-channel upload.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(atlasW), int32(atlasH), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(atlasImg.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	return &FontAtlas{TextureID: texture, AtlasW: atlasW, AtlasH: atlasH, Characters: characters}, nil
}

const fontVertexShader = `#version 410 core
layout (location = 0) in vec4 vertex; // xy = position, zw = texcoord
out vec2 TexCoords;
uniform mat4 projection;
void main() {
    gl_Position = projection * vec4(vertex.xy, 0.0, 1.0);
    TexCoords = vertex.zw;
}
`

const fontFragmentShader = `#version 410 core
in vec2 TexCoords;
out vec4 FragColor;
uniform sampler2D text;
uniform vec3 textColor;
void main() {
    float alpha = texture(text, TexCoords).r;
    FragColor = vec4(textColor, alpha);
}
`

// FontRenderer draws ASCII text with a prebuilt atlas.
type FontRenderer struct {
	atlas      *FontAtlas
	shader     *Shader
	projection mgl32.Mat4
	vao        uint32
	vbo        uint32
}

func NewFontRenderer(atlas *FontAtlas, viewportW, viewportH int) (*FontRenderer, error) {
	if atlas == nil || len(atlas.Characters) == 0 {
		return nil, fmt.Errorf("invalid font atlas")
	}
	shader, err := NewShaderFromSource(fontVertexShader, fontFragmentShader)
	if err != nil {
		return nil, err
	}
	fr := &FontRenderer{
		atlas:      atlas,
		shader:     shader,
		projection: mgl32.Ortho(0, float32(viewportW), float32(viewportH), 0, 0, 1),
	}

	gl.GenVertexArrays(1, &fr.vao)
	gl.GenBuffers(1, &fr.vbo)
	gl.BindVertexArray(fr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, fr.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 4, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return fr, nil
}

// SetViewport rebuilds the pixel-space projection after a resize.
func (fr *FontRenderer) SetViewport(width, height int) {
	fr.projection = mgl32.Ortho(0, float32(width), float32(height), 0, 0, 1)
}

// RenderLines draws multiple lines in one upload and draw call. Lines share
// color and scale; each line steps down by lineStep pixels.
func (fr *FontRenderer) RenderLines(lines []string, x, yStart, lineStep, scale float32, color mgl32.Vec3) {
	if len(lines) == 0 {
		return
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	fr.shader.Use()
	fr.shader.SetVector3("textColor", color.X(), color.Y(), color.Z())
	fr.shader.SetMatrix4("projection", &fr.projection[0])
	fr.shader.SetInt("text", 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, fr.atlas.TextureID)
	gl.BindVertexArray(fr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, fr.vbo)

	var vertices []float32
	y := yStart
	for _, line := range lines {
		if line != "" {
			vertices = append(vertices, fr.buildVertices([]rune(line), x, y, scale)...)
		}
		y += lineStep
	}
	if len(vertices) > 0 {
		size := len(vertices) * 4
		// Orphan the buffer before the update to avoid GPU stalls.
		gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(vertices))
		gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/4))
	}

	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

func (fr *FontRenderer) Dispose() {
	gl.DeleteBuffers(1, &fr.vbo)
	gl.DeleteVertexArrays(1, &fr.vao)
	fr.shader.Delete()
}

func (fr *FontRenderer) buildVertices(chars []rune, x, y, scale float32) []float32 {
	vertices := make([]float32, 0, len(chars)*6*4)
	for _, r := range chars {
		fc, ok := fr.atlas.Characters[r]
		if !ok {
			x += float32(fr.atlas.Characters[' '].Advance) * scale
			continue
		}
		xPos := x + fc.BearingX*scale
		yPos := y - fc.BearingY*scale
		w := fc.Width * scale
		h := fc.Height * scale

		u0 := fc.AtlasX / float32(fr.atlas.AtlasW)
		v0 := fc.AtlasY / float32(fr.atlas.AtlasH)
		u1 := u0 + fc.Width/float32(fr.atlas.AtlasW)
		v1 := v0 + fc.Height/float32(fr.atlas.AtlasH)

		vertices = append(vertices,
			xPos, yPos+h, u0, v1,
			xPos, yPos, u0, v0,
			xPos+w, yPos, u1, v0,

			xPos, yPos+h, u0, v1,
			xPos+w, yPos, u1, v0,
			xPos+w, yPos+h, u1, v1,
		)
		x += float32(fc.Advance) * scale
	}
	return vertices
}
