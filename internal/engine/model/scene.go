package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspunctual"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/transform"
)

// buildScene walks the node graph a second time, collecting drawables and
// lights. Effective extras are passed down the recursion.
func (imp *importer) buildScene() error {
	const op = "build scene"
	roots, err := imp.sceneRoots(op)
	if err != nil {
		return err
	}
	lights, err := imp.documentLights(op)
	if err != nil {
		return err
	}

	seen := make([]bool, len(imp.doc.Nodes))
	var visit func(idx int, inherited effectiveExtras) error
	visit = func(idx int, inherited effectiveExtras) error {
		if seen[idx] {
			return nil
		}
		seen[idx] = true

		node := imp.doc.Nodes[idx]
		nop := fmt.Sprintf("%s: node %d", op, idx)
		extras, err := imp.nodeExtras(nop, node, inherited)
		if err != nil {
			return err
		}
		h, ok := imp.m.hierarchy.Lookup(idx)
		if !ok {
			h = transform.Invalid
		}

		if node.Mesh != nil {
			d, err := imp.drawable(nop, node, h, extras)
			if err != nil {
				return err
			}
			imp.m.drawables = append(imp.m.drawables, d)
		}
		if ext, ok := node.Extensions[lightspunctual.ExtensionName]; ok {
			l, err := nodeLight(nop, ext, lights, node.Name, h)
			if err != nil {
				return err
			}
			imp.m.lights = append(imp.m.lights, l)
		}

		for _, c := range node.Children {
			if err := visit(c, extras); err != nil {
				return err
			}
		}
		return nil
	}

	base := effectiveExtras{parsed: DefaultNodeExtras()}
	for _, idx := range roots {
		if err := visit(idx, base); err != nil {
			return err
		}
	}
	return nil
}

// nodeExtras resolves the node's own extras, or inherits.
func (imp *importer) nodeExtras(op string, node *gltf.Node, inherited effectiveExtras) (effectiveExtras, error) {
	raw, err := rawExtras(node.Extras)
	if err == nil && raw == nil {
		return inherited, nil
	}
	parsed := DefaultNodeExtras()
	if err == nil {
		parsed, err = parseExtras(raw, DefaultNodeExtras())
	}
	if err != nil {
		if imp.opts.StrictExtras {
			return effectiveExtras{}, &Error{Kind: KindParse, Op: op, Err: err}
		}
		imp.log.Warn("node extras unreadable, using defaults for subtree",
			zap.String("op", op), zap.String("node", node.Name), zap.Error(err))
		return effectiveExtras{parsed: DefaultNodeExtras(), raw: raw}, nil
	}
	return effectiveExtras{parsed: parsed, raw: raw}, nil
}

func (imp *importer) drawable(op string, node *gltf.Node, h transform.Handle, extras effectiveExtras) (Drawable, error) {
	if err := checkIndex(op, "mesh", *node.Mesh, len(imp.m.meshes)); err != nil {
		return Drawable{}, err
	}
	d := Drawable{
		Name:      node.Name,
		Node:      h,
		Mesh:      imp.m.meshes[*node.Mesh],
		Extras:    extras.parsed,
		RawExtras: extras.raw,
	}
	if d.Name == "" {
		d.Name = d.Mesh.Name
	}
	if node.Skin != nil {
		if err := checkIndex(op, "skin", *node.Skin, len(imp.m.skins)); err != nil {
			return Drawable{}, err
		}
		d.Skin = imp.m.skins[*node.Skin]
	}
	return d, nil
}

func (imp *importer) documentLights(op string) (lightspunctual.Lights, error) {
	ext, ok := imp.doc.Extensions[lightspunctual.ExtensionName]
	if !ok {
		return nil, nil
	}
	lights, ok := ext.(lightspunctual.Lights)
	if !ok {
		return nil, parseErrorf(op, "%s: unexpected document extension %T", lightspunctual.ExtensionName, ext)
	}
	return lights, nil
}

func nodeLight(op string, ext any, lights lightspunctual.Lights, name string, h transform.Handle) (Light, error) {
	idx, ok := ext.(lightspunctual.LightIndex)
	if !ok {
		return Light{}, parseErrorf(op, "%s: unexpected node extension %T", lightspunctual.ExtensionName, ext)
	}
	if err := checkIndex(op, "light", int(idx), len(lights)); err != nil {
		return Light{}, err
	}
	src := lights[idx]
	if src == nil {
		return Light{}, referenceErrorf(op, "light %d is empty", idx)
	}

	c := src.ColorOrDefault()
	l := Light{
		Name:      src.Name,
		Node:      h,
		Color:     mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])},
		Intensity: float32(src.IntensityOrDefault()),
		Range:     float32(math.Inf(1)),
	}
	if l.Name == "" {
		l.Name = name
	}
	if src.Range != nil && *src.Range > 0 {
		l.Range = float32(*src.Range)
	}

	switch src.Type {
	case lightspunctual.TypeDirectional:
		l.Kind = LightDirectional
	case lightspunctual.TypePoint:
		l.Kind = LightPoint
	case lightspunctual.TypeSpot:
		l.Kind = LightSpot
		spot := src.Spot
		if spot == nil {
			spot = &lightspunctual.Spot{}
		}
		l.InnerConeAngle = float32(spot.InnerConeAngle)
		l.OuterConeAngle = float32(spot.OuterConeAngleOrDefault())
	default:
		return Light{}, parseErrorf(op, "unknown light type %q", src.Type)
	}
	return l, nil
}
