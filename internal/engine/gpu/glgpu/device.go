// Package glgpu implements gpu.Device on OpenGL 4.1 core.
//
// Every method must be called on the thread that owns the GL context.
package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/logger"
)

// Device issues GL calls for the model core.
type Device struct {
	log *zap.Logger
}

// New returns a Device for the current context. gl.Init must have run.
func New() *Device {
	d := &Device{log: logger.Named("gl")}
	// COLOR_0 is optional; vertex arrays without it read white.
	gl.VertexAttrib4f(gpu.AttribColor, 1, 1, 1, 1)
	version, renderer := d.Info()
	d.log.Info("OpenGL device ready", zap.String("version", version), zap.String("renderer", renderer))
	return d
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: %s: GL error 0x%04x", gpu.ErrDevice, op, code)
	}
	return nil
}

func (d *Device) CreateBuffer(data []byte) (gpu.BufferID, error) {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.ARRAY_BUFFER, id)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if err := glError("create buffer"); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}
	return gpu.BufferID(id), nil
}

func (d *Device) DeleteBuffers(ids ...gpu.BufferID) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		raw[i] = uint32(id)
	}
	if len(raw) > 0 {
		gl.DeleteBuffers(int32(len(raw)), &raw[0])
	}
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, rgba []byte) (gpu.TextureID, error) {
	if want := desc.Width * desc.Height * 4; len(rgba) != want || want == 0 {
		return 0, fmt.Errorf("%w: texture %dx%d needs %d bytes, got %d", gpu.ErrDevice, desc.Width, desc.Height, want, len(rgba))
	}
	internal := int32(gl.RGBA8)
	if desc.SRGB {
		internal = gl.SRGB8_ALPHA8
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(desc.Sampler.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(desc.Sampler.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap(desc.Sampler.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap(desc.Sampler.WrapT))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := glError("create texture"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return gpu.TextureID(id), nil
}

func (d *Device) GenerateMipmaps(id gpu.TextureID) error {
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return glError("generate mipmaps")
}

func (d *Device) DeleteTextures(ids ...gpu.TextureID) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		raw[i] = uint32(id)
	}
	if len(raw) > 0 {
		gl.DeleteTextures(int32(len(raw)), &raw[0])
	}
}

func (d *Device) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArrayID, error) {
	var id uint32
	gl.GenVertexArrays(1, &id)
	gl.BindVertexArray(id)
	for _, a := range desc.Attribs {
		gl.BindBuffer(gl.ARRAY_BUFFER, uint32(a.Buffer))
		gl.EnableVertexAttribArray(a.Location)
		if a.Integer {
			gl.VertexAttribIPointerWithOffset(a.Location, int32(a.Components), componentType(a.Type),
				int32(a.Stride), uintptr(a.Offset))
		} else {
			gl.VertexAttribPointerWithOffset(a.Location, int32(a.Components), componentType(a.Type),
				a.Normalized, int32(a.Stride), uintptr(a.Offset))
		}
	}
	if desc.Indices != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(desc.Indices.Buffer))
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := glError("create vertex array"); err != nil {
		gl.DeleteVertexArrays(1, &id)
		return 0, err
	}
	return gpu.VertexArrayID(id), nil
}

func (d *Device) DeleteVertexArrays(ids ...gpu.VertexArrayID) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		raw[i] = uint32(id)
	}
	if len(raw) > 0 {
		gl.DeleteVertexArrays(int32(len(raw)), &raw[0])
	}
}

func (d *Device) CreateUniformBuffer(size int) (gpu.BufferID, error) {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.UNIFORM_BUFFER, id)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	if err := glError("create uniform buffer"); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}
	return gpu.BufferID(id), nil
}

func (d *Device) UpdateUniformBuffer(id gpu.BufferID, offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, uint32(id))
	gl.BufferSubData(gl.UNIFORM_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return glError("update uniform buffer")
}

func (d *Device) BindUniformBuffer(binding gpu.Binding, id gpu.BufferID) {
	gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(binding), uint32(id))
}

func (d *Device) BindTexture(slot gpu.TextureSlot, id gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

func (d *Device) Draw(call gpu.DrawCall) error {
	mode := primitiveMode(call.Mode)
	if call.Mode == gpu.Patches {
		gl.PatchParameteri(gl.PATCH_VERTICES, int32(call.PatchVertices))
	}
	gl.BindVertexArray(uint32(call.VertexArray))
	if call.Indexed {
		gl.DrawElementsWithOffset(mode, int32(call.Count), componentType(call.IndexType), uintptr(call.Offset))
	} else {
		gl.DrawArrays(mode, int32(call.Offset), int32(call.Count))
	}
	gl.BindVertexArray(0)
	return glError("draw")
}

// Info returns the GL version and renderer strings.
func (d *Device) Info() (version, renderer string) {
	return gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER))
}

func filter(f gpu.Filter) int32 {
	switch f {
	case gpu.FilterLinear:
		return gl.LINEAR
	case gpu.FilterNearestMipmapNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case gpu.FilterLinearMipmapNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	case gpu.FilterNearestMipmapLinear:
		return gl.NEAREST_MIPMAP_LINEAR
	case gpu.FilterLinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	}
	return gl.NEAREST
}

func wrap(w gpu.Wrap) int32 {
	switch w {
	case gpu.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gpu.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	}
	return gl.REPEAT
}

func componentType(c gpu.ComponentType) uint32 {
	switch c {
	case gpu.Byte:
		return gl.BYTE
	case gpu.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case gpu.Short:
		return gl.SHORT
	case gpu.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case gpu.UnsignedInt:
		return gl.UNSIGNED_INT
	}
	return gl.FLOAT
}

func primitiveMode(m gpu.PrimitiveMode) uint32 {
	switch m {
	case gpu.Points:
		return gl.POINTS
	case gpu.Lines:
		return gl.LINES
	case gpu.LineLoop:
		return gl.LINE_LOOP
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.TriangleFan:
		return gl.TRIANGLE_FAN
	case gpu.Patches:
		return gl.PATCHES
	}
	return gl.TRIANGLES
}

var _ gpu.Device = (*Device)(nil)
