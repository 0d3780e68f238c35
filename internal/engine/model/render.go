package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// RenderMode selects the primitive topology used for every draw.
type RenderMode int

const (
	// RenderTriangles draws each primitive with its own mode.
	RenderTriangles RenderMode = iota
	// RenderPatches draws tessellation patches.
	RenderPatches
)

// PatchVertices is the patch size used by RenderPatches.
const PatchVertices = 3

func (m RenderMode) String() string {
	if m == RenderPatches {
		return "patches"
	}
	return "triangles"
}

// Render draws every drawable. It must run on the render thread.
//
// A drawable that fails is skipped and the rest of the frame is drawn; the
// failures are returned joined. Failing to bind the global block aborts.
func (m *Model) Render(dev gpu.Device, objectWorld mgl32.Mat4, global *gpu.GlobalParams, joints *gpu.JointParams, mode RenderMode) error {
	if err := global.Bind(dev); err != nil {
		return resourceError("bind global params", err)
	}
	view := global.View()

	var errs []error
	for i := range m.drawables {
		d := &m.drawables[i]
		if err := m.renderDrawable(dev, d, objectWorld, view, global, joints, mode); err != nil {
			errs = append(errs, fmt.Errorf("drawable %d (%s): %w", i, d.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ModelMatrix returns the matrix a drawable is drawn with, before billboard
// orientation is applied.
func (m *Model) ModelMatrix(d *Drawable, objectWorld mgl32.Mat4) mgl32.Mat4 {
	node := d.Node
	if !node.Valid() {
		node = m.hierarchy.Root()
	}
	return objectWorld.Mul4(m.hierarchy.WorldTransform(node))
}

func (m *Model) renderDrawable(dev gpu.Device, d *Drawable, objectWorld, view mgl32.Mat4,
	global *gpu.GlobalParams, joints *gpu.JointParams, mode RenderMode) error {
	model := m.ModelMatrix(d, objectWorld)
	switch d.Mesh.Orientation {
	case OrientBillboard, OrientBillboardUpright:
		b, err := BillboardMatrix(view, model, d.Mesh.Orientation == OrientBillboardUpright)
		if err != nil {
			return err
		}
		model = b
	}

	global.SetModelDerive(model)
	global.SetLightingStrength(d.Extras.LightingStrength)
	if err := global.UploadChanged(dev); err != nil {
		return resourceError("upload global params", err)
	}

	if d.Skin != nil {
		for i, j := range d.Skin.Joints {
			world := m.hierarchy.WorldTransform(j.Node)
			if err := joints.SetJoint(i, objectWorld.Mul4(world).Mul4(j.InverseBind)); err != nil {
				return &Error{Kind: KindResource, Op: "set joints", Err: err}
			}
		}
		joints.SetSkinningEnabled(true)
	} else {
		joints.SetSkinningEnabled(false)
	}
	if err := joints.Bind(dev); err != nil {
		return resourceError("bind joint params", err)
	}

	for _, p := range d.Mesh.Primitives {
		if err := m.bindMaterial(dev, p.Material); err != nil {
			return err
		}
		call := gpu.DrawCall{
			VertexArray: p.VertexArray,
			Mode:        p.Mode,
			Indexed:     p.Indexed,
			IndexType:   p.IndexType,
			Count:       p.Count,
			Offset:      p.Offset,
		}
		if mode == RenderPatches {
			call.Mode = gpu.Patches
			call.PatchVertices = PatchVertices
		}
		if err := dev.Draw(call); err != nil {
			return resourceError("draw", err)
		}
	}
	return nil
}

func (m *Model) bindMaterial(dev gpu.Device, mat *Material) error {
	v := gpu.MaterialValues{
		BaseColor:   mat.BaseColorFactor,
		Emissive:    mat.EmissiveFactor,
		Metallic:    mat.MetallicFactor,
		Roughness:   mat.RoughnessFactor,
		AlphaCutoff: mat.AlphaCutoff,
		NormalScale: mat.NormalScale,
	}
	slots := []struct {
		slot gpu.TextureSlot
		ref  *TextureRef
		flag uint32
	}{
		{gpu.SlotBaseColor, mat.BaseColorTexture, gpu.MaterialHasBaseColorTexture},
		{gpu.SlotMetallicRoughness, mat.MetallicRoughnessTexture, gpu.MaterialHasMetallicRoughnessTexture},
		{gpu.SlotNormal, mat.NormalTexture, gpu.MaterialHasNormalTexture},
		{gpu.SlotOcclusion, mat.OcclusionTexture, gpu.MaterialHasOcclusionTexture},
		{gpu.SlotEmissive, mat.EmissiveTexture, gpu.MaterialHasEmissiveTexture},
	}
	for _, s := range slots {
		var id gpu.TextureID
		if s.ref != nil {
			id = s.ref.Texture.ID
			v.Flags |= s.flag
		}
		dev.BindTexture(s.slot, id)
	}
	switch mat.AlphaMode {
	case AlphaMask:
		v.Flags |= gpu.MaterialAlphaMask
	case AlphaBlend:
		v.Flags |= gpu.MaterialAlphaBlend
	}
	if mat.DoubleSided {
		v.Flags |= gpu.MaterialDoubleSided
	}

	m.materialParams.Set(v)
	if err := m.materialParams.Bind(dev); err != nil {
		return resourceError("bind material params", err)
	}
	return nil
}
