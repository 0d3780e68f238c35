// Package model imports glTF scenes into GPU resources and renders them.
//
// A Model owns a transform hierarchy, the GPU resources created from the
// asset, a flat list of drawables and lights built from the scene graph, and
// a table of named animations that animate hierarchy nodes.
package model

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/transform"
	"github.com/Faultbox/dreamfield/internal/logger"
)

// Texture is an uploaded texture.
type Texture struct {
	Index  int
	Name   string
	ID     gpu.TextureID
	Width  int
	Height int

	// Requested is the sampler the asset declared, after defaults.
	// Sampler is what was applied to the texture.
	Requested gpu.Sampler
	Sampler   gpu.Sampler
	Mipmapped bool
}

// TextureRef binds a texture to a material slot.
type TextureRef struct {
	Texture  *Texture
	TexCoord int
}

// AlphaMode is how a material's alpha is interpreted.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Material holds metallic-roughness shading parameters.
type Material struct {
	Index int // -1 for the synthesized default
	Name  string

	BaseColorFactor          mgl32.Vec4
	BaseColorTexture         *TextureRef
	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureRef
	NormalTexture            *TextureRef
	NormalScale              float32
	OcclusionTexture         *TextureRef
	OcclusionStrength        float32
	EmissiveTexture          *TextureRef
	EmissiveFactor           mgl32.Vec3

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool
}

// DefaultMaterial is used by primitives that declare no material.
func DefaultMaterial() *Material {
	return &Material{
		Index:             -1,
		Name:              "default",
		BaseColorFactor:   mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:    0,
		RoughnessFactor:   1,
		NormalScale:       1,
		OcclusionStrength: 1,
		AlphaCutoff:       0.5,
	}
}

// Orientation is how a mesh is oriented at draw time.
type Orientation int

const (
	// OrientFixed uses the node's world transform.
	OrientFixed Orientation = iota
	// OrientBillboard faces the camera.
	OrientBillboard
	// OrientBillboardUpright faces the camera around the vertical axis only.
	OrientBillboardUpright
)

func (o Orientation) String() string {
	switch o {
	case OrientBillboard:
		return "billboard"
	case OrientBillboardUpright:
		return "billboard-upright"
	}
	return "fixed"
}

// Primitive is one draw call of a mesh.
type Primitive struct {
	VertexArray gpu.VertexArrayID
	Material    *Material
	Mode        gpu.PrimitiveMode
	Indexed     bool
	IndexType   gpu.ComponentType
	Count       int
	Offset      int
	Skinned     bool
	Bounds      Bounds // from the POSITION accessor's min and max
}

// Mesh is a set of primitives shared by every node that references it.
type Mesh struct {
	Index       int
	Name        string
	Primitives  []*Primitive
	Orientation Orientation
	Extras      MeshExtras
	RawExtras   json.RawMessage
}

// Joint is one bone of a skin.
type Joint struct {
	Node        transform.Handle
	NodeIndex   int
	InverseBind mgl32.Mat4
}

// Skin is an ordered joint list.
type Skin struct {
	Index    int
	Name     string
	Joints   []Joint
	Skeleton transform.Handle
}

// Drawable is a mesh instance placed by a scene node.
type Drawable struct {
	Name      string
	Node      transform.Handle // Invalid draws at the hierarchy root
	Mesh      *Mesh
	Skin      *Skin
	Extras    NodeExtras
	RawExtras json.RawMessage
}

// LightKind is the type of a punctual light.
type LightKind int

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

func (k LightKind) String() string {
	switch k {
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return "directional"
}

// Light is a punctual light placed by a scene node.
type Light struct {
	Name      string
	Node      transform.Handle
	Kind      LightKind
	Color     mgl32.Vec3
	Intensity float32
	Range     float32 // +Inf when unbounded

	// Spot lights only, in radians.
	InnerConeAngle float32
	OuterConeAngle float32
}

// Model is an imported scene ready for rendering.
type Model struct {
	id        uuid.UUID
	hierarchy *transform.Hierarchy

	buffers         []gpu.BufferID
	textures        []*Texture
	materials       []*Material
	defaultMaterial *Material
	meshes          []*Mesh
	skins           []*Skin
	drawables       []Drawable
	lights          []Light
	animations      map[string]*Animation

	materialParams *gpu.MaterialParams
	log            *zap.Logger
}

func newModel() *Model {
	id := uuid.New()
	return &Model{
		id:              id,
		hierarchy:       transform.New(),
		defaultMaterial: DefaultMaterial(),
		animations:      make(map[string]*Animation),
		materialParams:  gpu.NewMaterialParams(),
		log:             logger.Named("model").With(zap.Stringer("model", id)),
	}
}

// ID identifies this model instance in logs.
func (m *Model) ID() uuid.UUID { return m.id }

// Hierarchy returns the model's transform hierarchy.
func (m *Model) Hierarchy() *transform.Hierarchy { return m.hierarchy }

// SetTransform sets the local transform of the hierarchy root.
func (m *Model) SetTransform(mat mgl32.Mat4) {
	m.hierarchy.SetRootTransform(mat)
}

// Drawables returns the drawable list in scene traversal order.
func (m *Model) Drawables() []Drawable { return slices.Clone(m.drawables) }

// Lights returns the light list in scene traversal order.
func (m *Model) Lights() []Light { return slices.Clone(m.lights) }

// Textures returns the textures in document order.
func (m *Model) Textures() []*Texture { return slices.Clone(m.textures) }

// Materials returns the materials in document order, without the default.
func (m *Model) Materials() []*Material { return slices.Clone(m.materials) }

// Meshes returns the meshes in document order.
func (m *Model) Meshes() []*Mesh { return slices.Clone(m.meshes) }

// Skins returns the skins in document order.
func (m *Model) Skins() []*Skin { return slices.Clone(m.skins) }

// Animation returns the animation with the given name.
func (m *Model) Animation(name string) (*Animation, bool) {
	a, ok := m.animations[name]
	return a, ok
}

// Animations returns the animation table keyed by name.
func (m *Model) Animations() map[string]*Animation { return maps.Clone(m.animations) }

// AnimationNames returns the sorted animation names.
func (m *Model) AnimationNames() []string {
	return slices.Sorted(maps.Keys(m.animations))
}

// Release frees every GPU resource owned by the model. It must run on the
// render thread.
func (m *Model) Release(dev gpu.Device) {
	var arrays []gpu.VertexArrayID
	for _, mesh := range m.meshes {
		for _, p := range mesh.Primitives {
			arrays = append(arrays, p.VertexArray)
		}
	}
	if len(arrays) > 0 {
		dev.DeleteVertexArrays(arrays...)
	}

	var textures []gpu.TextureID
	for _, t := range m.textures {
		textures = append(textures, t.ID)
	}
	if len(textures) > 0 {
		dev.DeleteTextures(textures...)
	}
	if len(m.buffers) > 0 {
		dev.DeleteBuffers(m.buffers...)
	}
	m.materialParams.Release(dev)

	m.meshes, m.textures, m.buffers = nil, nil, nil
	m.drawables = nil
}
