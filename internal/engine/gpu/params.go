package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// GlobalParams layout (std140):
//
//	mat4  proj
//	mat4  view
//	mat4  model
//	mat4  model_view
//	mat4  normal
//	vec4  fog_color
//	vec2  fog_distance
//	float sim_time
//	float lighting_strength
//	vec2  viewport
const (
	globalProj             = 0
	globalView             = 64
	globalModel            = 128
	globalModelView        = 192
	globalNormal           = 256
	globalFogColor         = 320
	globalFogDistance      = 336
	globalSimTime          = 344
	globalLightingStrength = 348
	globalViewport         = 352
	globalSize             = 360
)

// GlobalParams is the per-frame parameter block: camera matrices, the
// current model matrix, and scene-wide shading values.
type GlobalParams struct {
	block
}

// NewGlobalParams returns a block with identity matrices and full lighting.
func NewGlobalParams() *GlobalParams {
	p := &GlobalParams{block: newBlock(std140(globalSize))}
	for _, off := range []int{globalProj, globalView, globalModel, globalModelView, globalNormal} {
		p.putMat4(off, mgl32.Ident4())
	}
	p.putFloats(globalLightingStrength, 1)
	return p
}

func (p *GlobalParams) SetProjection(m mgl32.Mat4) { p.putMat4(globalProj, m) }
func (p *GlobalParams) Projection() mgl32.Mat4     { return p.mat4(globalProj) }

func (p *GlobalParams) SetView(m mgl32.Mat4) { p.putMat4(globalView, m) }
func (p *GlobalParams) View() mgl32.Mat4     { return p.mat4(globalView) }

// SetModelDerive sets the model matrix and derives model-view and the
// normal matrix from the current view.
func (p *GlobalParams) SetModelDerive(model mgl32.Mat4) {
	modelView := p.View().Mul4(model)
	p.putMat4(globalModel, model)
	p.putMat4(globalModelView, modelView)
	p.putMat4(globalNormal, modelView.Inv().Transpose())
}

func (p *GlobalParams) Model() mgl32.Mat4     { return p.mat4(globalModel) }
func (p *GlobalParams) ModelView() mgl32.Mat4 { return p.mat4(globalModelView) }

func (p *GlobalParams) SetFog(color mgl32.Vec4, start, end float32) {
	p.putFloats(globalFogColor, color[:]...)
	p.putFloats(globalFogDistance, start, end)
}

func (p *GlobalParams) SetSimTime(t float32) { p.putFloats(globalSimTime, t) }
func (p *GlobalParams) SimTime() float32     { return p.float(globalSimTime) }

func (p *GlobalParams) SetLightingStrength(v float32) { p.putFloats(globalLightingStrength, v) }
func (p *GlobalParams) LightingStrength() float32     { return p.float(globalLightingStrength) }

func (p *GlobalParams) SetViewport(width, height int) {
	p.putFloats(globalViewport, float32(width), float32(height))
}

// Bind binds the block to BindingGlobal, uploading pending changes.
func (p *GlobalParams) Bind(dev Device) error {
	return p.bind(dev, BindingGlobal)
}

// MaxJoints is the joint capacity of the skinning block.
const MaxJoints = 128

const (
	jointMatrices = 0
	jointEnabled  = MaxJoints * 64
	jointSize     = jointEnabled + 4
)

// JointParams holds the skinning matrices for one draw.
type JointParams struct {
	block
}

// NewJointParams returns a block with skinning disabled.
func NewJointParams() *JointParams {
	p := &JointParams{block: newBlock(std140(jointSize))}
	for i := 0; i < MaxJoints; i++ {
		p.putMat4(jointMatrices+i*64, mgl32.Ident4())
	}
	return p
}

// SetJoint writes the matrix for joint slot i.
func (p *JointParams) SetJoint(i int, m mgl32.Mat4) error {
	if i < 0 || i >= MaxJoints {
		return fmt.Errorf("joint slot %d out of range [0, %d)", i, MaxJoints)
	}
	p.putMat4(jointMatrices+i*64, m)
	return nil
}

// Joint returns the matrix in joint slot i.
func (p *JointParams) Joint(i int) mgl32.Mat4 {
	return p.mat4(jointMatrices + i*64)
}

func (p *JointParams) SetSkinningEnabled(v bool) { p.putBool(jointEnabled, v) }
func (p *JointParams) SkinningEnabled() bool     { return p.uint(jointEnabled) != 0 }

// Bind binds the block to BindingJoints, uploading pending changes.
func (p *JointParams) Bind(dev Device) error {
	return p.bind(dev, BindingJoints)
}

// Material flags.
const (
	MaterialHasBaseColorTexture uint32 = 1 << iota
	MaterialHasMetallicRoughnessTexture
	MaterialHasNormalTexture
	MaterialHasOcclusionTexture
	MaterialHasEmissiveTexture
	MaterialAlphaMask
	MaterialAlphaBlend
	MaterialDoubleSided
)

const (
	materialBaseColor   = 0
	materialEmissive    = 16
	materialMetallic    = 28
	materialRoughness   = 32
	materialAlphaCutoff = 36
	materialNormalScale = 40
	materialFlags       = 44
	materialSize        = 48
)

// MaterialValues is the shading state written into a MaterialParams block.
type MaterialValues struct {
	BaseColor   mgl32.Vec4
	Emissive    mgl32.Vec3
	Metallic    float32
	Roughness   float32
	AlphaCutoff float32
	NormalScale float32
	Flags       uint32
}

// MaterialParams holds the material factors for one draw.
type MaterialParams struct {
	block
}

func NewMaterialParams() *MaterialParams {
	return &MaterialParams{block: newBlock(std140(materialSize))}
}

// Set writes all material values.
func (p *MaterialParams) Set(v MaterialValues) {
	p.putFloats(materialBaseColor, v.BaseColor[:]...)
	p.putFloats(materialEmissive, v.Emissive[:]...)
	p.putFloats(materialMetallic, v.Metallic)
	p.putFloats(materialRoughness, v.Roughness)
	p.putFloats(materialAlphaCutoff, v.AlphaCutoff)
	p.putFloats(materialNormalScale, v.NormalScale)
	p.putUint(materialFlags, v.Flags)
}

func (p *MaterialParams) Flags() uint32 { return p.uint(materialFlags) }

// Bind binds the block to BindingMaterial, uploading pending changes.
func (p *MaterialParams) Bind(dev Device) error {
	return p.bind(dev, BindingMaterial)
}

// MaxLights is the light capacity of the lights block.
const MaxLights = 32

// Light type codes stored in LightRecord.Type.
const (
	LightDirectional uint32 = iota
	LightPoint
	LightSpot
)

// LightRecord is one light in world space.
//
//	vec4 position  (xyz, type)
//	vec4 direction (xyz, range)
//	vec4 color     (rgb, intensity)
//	vec4 cone      (cos inner, cos outer)
type LightRecord struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	Range     float32
	CosInner  float32
	CosOuter  float32
	Type      uint32
}

const (
	lightStride = 64
	lightCount  = MaxLights * lightStride
	lightSize   = lightCount + 4
)

// LightParams holds up to MaxLights lights.
type LightParams struct {
	block
}

func NewLightParams() *LightParams {
	return &LightParams{block: newBlock(std140(lightSize))}
}

// SetLights writes lights into the block, truncating to MaxLights.
// It returns the number of lights written.
func (p *LightParams) SetLights(lights []LightRecord) int {
	n := min(len(lights), MaxLights)
	for i, l := range lights[:n] {
		off := i * lightStride
		p.putFloats(off, l.Position[0], l.Position[1], l.Position[2], float32(l.Type))
		p.putFloats(off+16, l.Direction[0], l.Direction[1], l.Direction[2], l.Range)
		p.putFloats(off+32, l.Color[0], l.Color[1], l.Color[2], l.Intensity)
		p.putFloats(off+48, l.CosInner, l.CosOuter, 0, 0)
	}
	p.putUint(lightCount, uint32(n))
	return n
}

func (p *LightParams) Count() int { return int(p.uint(lightCount)) }

// Bind binds the block to BindingLights, uploading pending changes.
func (p *LightParams) Bind(dev Device) error {
	return p.bind(dev, BindingLights)
}
