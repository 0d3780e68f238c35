package model

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// vertexAttributes maps glTF attribute semantics to shader locations.
var vertexAttributes = []struct {
	name     string
	location uint32
	integer  bool
}{
	{gltf.POSITION, gpu.AttribPosition, false},
	{gltf.NORMAL, gpu.AttribNormal, false},
	{gltf.TEXCOORD_0, gpu.AttribTexCoord, false},
	{gltf.JOINTS_0, gpu.AttribJoints, true},
	{gltf.WEIGHTS_0, gpu.AttribWeights, false},
	{gltf.COLOR_0, gpu.AttribColor, false},
	{gltf.TANGENT, gpu.AttribTangent, false},
}

func (imp *importer) loadMeshes() error {
	for i, gm := range imp.doc.Meshes {
		op := fmt.Sprintf("load mesh %d", i)

		extras, raw, err := imp.meshExtras(op, gm.Extras)
		if err != nil {
			return err
		}
		mesh := &Mesh{
			Index:       i,
			Name:        gm.Name,
			Orientation: extras.Orientation(),
			Extras:      extras,
			RawExtras:   raw,
		}
		imp.m.meshes = append(imp.m.meshes, mesh)

		for j, gp := range gm.Primitives {
			p, err := imp.loadPrimitive(fmt.Sprintf("%s: primitive %d", op, j), gp)
			if err != nil {
				return err
			}
			mesh.Primitives = append(mesh.Primitives, p)
		}
	}
	return nil
}

func (imp *importer) meshExtras(op string, v any) (MeshExtras, json.RawMessage, error) {
	raw, err := rawExtras(v)
	if err == nil && raw == nil {
		return MeshExtras{}, nil, nil
	}
	var extras MeshExtras
	if err == nil {
		extras, err = parseExtras(raw, MeshExtras{})
	}
	if err != nil {
		if imp.opts.StrictExtras {
			return MeshExtras{}, nil, &Error{Kind: KindParse, Op: op, Err: err}
		}
		imp.log.Warn("ignoring mesh extras", zap.String("op", op), zap.Error(err))
		return MeshExtras{}, raw, nil
	}
	return extras, raw, nil
}

func (imp *importer) loadPrimitive(op string, gp *gltf.Primitive) (*Primitive, error) {
	posIdx, ok := gp.Attributes[gltf.POSITION]
	if !ok {
		return nil, parseErrorf(op, "primitive has no %s attribute", gltf.POSITION)
	}

	p := &Primitive{
		Material: imp.m.defaultMaterial,
		Mode:     primitiveMode(gp.Mode),
	}
	if gp.Material != nil {
		if err := checkIndex(op, "material", *gp.Material, len(imp.m.materials)); err != nil {
			return nil, err
		}
		p.Material = imp.m.materials[*gp.Material]
	}

	var desc gpu.VertexArrayDesc
	for _, a := range vertexAttributes {
		idx, ok := gp.Attributes[a.name]
		if !ok {
			continue
		}
		attrib, err := imp.vertexAttrib(fmt.Sprintf("%s: %s", op, a.name), idx, a.location, a.integer)
		if err != nil {
			return nil, err
		}
		desc.Attribs = append(desc.Attribs, attrib)
		if a.name == gltf.JOINTS_0 {
			p.Skinned = true
		}
	}

	if gp.Indices != nil {
		acr, bv, err := imp.accessorView(op+": indices", *gp.Indices)
		if err != nil {
			return nil, err
		}
		if bv == nil {
			return nil, referenceErrorf(op, "index accessor %d has no buffer view", *gp.Indices)
		}
		switch acr.ComponentType {
		case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
		default:
			return nil, parseErrorf(op, "index accessor %d has component type %s", *gp.Indices, acr.ComponentType)
		}
		p.Indexed = true
		p.IndexType = componentType(acr.ComponentType)
		p.Count = acr.Count
		p.Offset = bv.ByteOffset + acr.ByteOffset
		desc.Indices = &gpu.IndexBinding{Buffer: imp.m.buffers[bv.Buffer], Type: p.IndexType}
	} else {
		p.Count = imp.doc.Accessors[posIdx].Count
	}
	if pos := imp.doc.Accessors[posIdx]; len(pos.Min) >= 3 && len(pos.Max) >= 3 {
		p.Bounds = NewBounds(
			mgl32.Vec3{float32(pos.Min[0]), float32(pos.Min[1]), float32(pos.Min[2])},
			mgl32.Vec3{float32(pos.Max[0]), float32(pos.Max[1]), float32(pos.Max[2])})
	}

	vao, err := imp.dev.CreateVertexArray(desc)
	if err != nil {
		return nil, resourceError(op, err)
	}
	p.VertexArray = vao
	return p, nil
}

func (imp *importer) vertexAttrib(op string, idx int, location uint32, integer bool) (gpu.VertexAttrib, error) {
	acr, bv, err := imp.accessorView(op, idx)
	if err != nil {
		return gpu.VertexAttrib{}, err
	}
	if bv == nil {
		return gpu.VertexAttrib{}, referenceErrorf(op, "accessor %d has no buffer view", idx)
	}
	return gpu.VertexAttrib{
		Location:   location,
		Buffer:     imp.m.buffers[bv.Buffer],
		Components: acr.Type.Components(),
		Type:       componentType(acr.ComponentType),
		Normalized: acr.Normalized,
		Integer:    integer && acr.ComponentType != gltf.ComponentFloat,
		Stride:     bv.ByteStride,
		Offset:     bv.ByteOffset + acr.ByteOffset,
	}, nil
}

func componentType(c gltf.ComponentType) gpu.ComponentType {
	switch c {
	case gltf.ComponentByte:
		return gpu.Byte
	case gltf.ComponentUbyte:
		return gpu.UnsignedByte
	case gltf.ComponentShort:
		return gpu.Short
	case gltf.ComponentUshort:
		return gpu.UnsignedShort
	case gltf.ComponentUint:
		return gpu.UnsignedInt
	}
	return gpu.Float
}

func primitiveMode(m gltf.PrimitiveMode) gpu.PrimitiveMode {
	switch m {
	case gltf.PrimitivePoints:
		return gpu.Points
	case gltf.PrimitiveLines:
		return gpu.Lines
	case gltf.PrimitiveLineLoop:
		return gpu.LineLoop
	case gltf.PrimitiveLineStrip:
		return gpu.LineStrip
	case gltf.PrimitiveTriangleStrip:
		return gpu.TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return gpu.TriangleFan
	}
	return gpu.Triangles
}
