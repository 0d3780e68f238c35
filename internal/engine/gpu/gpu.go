// Package gpu defines the graphics device contract used by model import and
// rendering, plus the uniform parameter blocks shared with the shaders.
//
// A Device must only be used from the thread that owns the graphics context.
// Other goroutines hand work to that thread through a Queue.
package gpu

import "errors"

// ErrDevice is wrapped by every Device error.
var ErrDevice = errors.New("gpu: device error")

// Handles returned by a Device. Zero is never a valid handle.
type (
	BufferID      uint32
	TextureID     uint32
	VertexArrayID uint32
)

// Filter is a texture sampling filter.
type Filter uint32

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "NEAREST"
	case FilterLinear:
		return "LINEAR"
	case FilterNearestMipmapNearest:
		return "NEAREST_MIPMAP_NEAREST"
	case FilterLinearMipmapNearest:
		return "LINEAR_MIPMAP_NEAREST"
	case FilterNearestMipmapLinear:
		return "NEAREST_MIPMAP_LINEAR"
	case FilterLinearMipmapLinear:
		return "LINEAR_MIPMAP_LINEAR"
	}
	return "UNKNOWN"
}

// Mipmapped reports whether the filter samples between mip levels.
func (f Filter) Mipmapped() bool {
	return f >= FilterNearestMipmapNearest
}

// Wrap is a texture coordinate wrapping mode.
type Wrap uint32

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

func (w Wrap) String() string {
	switch w {
	case WrapRepeat:
		return "REPEAT"
	case WrapClampToEdge:
		return "CLAMP_TO_EDGE"
	case WrapMirroredRepeat:
		return "MIRRORED_REPEAT"
	}
	return "UNKNOWN"
}

// Sampler holds the sampling state applied to a texture.
type Sampler struct {
	MinFilter Filter
	MagFilter Filter
	WrapS     Wrap
	WrapT     Wrap
}

// TextureDesc describes an RGBA8 texture upload.
type TextureDesc struct {
	Width   int
	Height  int
	SRGB    bool
	Sampler Sampler
}

// ComponentType is the scalar type of a vertex attribute or index.
type ComponentType uint32

const (
	Float ComponentType = iota
	Byte
	UnsignedByte
	Short
	UnsignedShort
	UnsignedInt
)

// Size returns the size in bytes of one component.
func (c ComponentType) Size() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	}
	return 4
}

// Vertex attribute locations shared with the model shader.
const (
	AttribPosition uint32 = iota
	AttribNormal
	AttribTexCoord
	AttribJoints
	AttribWeights
	AttribColor
	AttribTangent
)

// VertexAttrib points one shader attribute at a region of a buffer.
type VertexAttrib struct {
	Location   uint32
	Buffer     BufferID
	Components int
	Type       ComponentType
	Normalized bool
	Integer    bool // read as integers rather than converted to float
	Stride     int
	Offset     int
}

// IndexBinding is the element buffer of a vertex array.
type IndexBinding struct {
	Buffer BufferID
	Type   ComponentType
}

// VertexArrayDesc describes a vertex array object.
type VertexArrayDesc struct {
	Attribs []VertexAttrib
	Indices *IndexBinding
}

// PrimitiveMode is the topology of a draw call.
type PrimitiveMode uint32

const (
	Triangles PrimitiveMode = iota
	Points
	Lines
	LineLoop
	LineStrip
	TriangleStrip
	TriangleFan
	Patches
)

// DrawCall issues one draw of a vertex array.
type DrawCall struct {
	VertexArray   VertexArrayID
	Mode          PrimitiveMode
	PatchVertices int
	Indexed       bool
	IndexType     ComponentType
	Count         int
	Offset        int // byte offset into the element buffer, or first vertex
}

// Binding is a uniform block binding point.
type Binding uint32

// Uniform block binding points shared with the model shader.
const (
	BindingGlobal Binding = iota
	BindingJoints
	BindingMaterial
	BindingLights
)

// TextureSlot is a texture unit.
type TextureSlot uint32

// Texture units used by materials.
const (
	SlotBaseColor TextureSlot = iota
	SlotMetallicRoughness
	SlotNormal
	SlotOcclusion
	SlotEmissive
)

// Device is the set of GPU operations the model core performs.
type Device interface {
	CreateBuffer(data []byte) (BufferID, error)
	DeleteBuffers(ids ...BufferID)

	CreateTexture(desc TextureDesc, rgba []byte) (TextureID, error)
	GenerateMipmaps(id TextureID) error
	DeleteTextures(ids ...TextureID)

	CreateVertexArray(desc VertexArrayDesc) (VertexArrayID, error)
	DeleteVertexArrays(ids ...VertexArrayID)

	CreateUniformBuffer(size int) (BufferID, error)
	UpdateUniformBuffer(id BufferID, offset int, data []byte) error
	BindUniformBuffer(binding Binding, id BufferID)

	// BindTexture binds id to slot; zero unbinds.
	BindTexture(slot TextureSlot, id TextureID)

	Draw(call DrawCall) error
}
