package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/dreamfield/internal/engine/transform"
)

func (imp *importer) loadSkins() error {
	limit := imp.opts.maxJoints()
	for i, gs := range imp.doc.Skins {
		op := fmt.Sprintf("load skin %d", i)
		if len(gs.Joints) > limit {
			return resourceError(op, fmt.Errorf("%d joints exceed the capacity of %d", len(gs.Joints), limit))
		}

		ibms, err := imp.inverseBindMatrices(op, gs.InverseBindMatrices, len(gs.Joints))
		if err != nil {
			return err
		}

		skin := &Skin{Index: i, Name: gs.Name, Skeleton: transform.Invalid}
		if gs.Skeleton != nil {
			h, ok := imp.m.hierarchy.Lookup(*gs.Skeleton)
			if !ok {
				return referenceErrorf(op, "skeleton node %d is not in the scene", *gs.Skeleton)
			}
			skin.Skeleton = h
		}
		for j, idx := range gs.Joints {
			h, ok := imp.m.hierarchy.Lookup(idx)
			if !ok {
				return referenceErrorf(op, "joint %d: node %d is not in the scene", j, idx)
			}
			skin.Joints = append(skin.Joints, Joint{Node: h, NodeIndex: idx, InverseBind: ibms[j]})
		}
		imp.m.skins = append(imp.m.skins, skin)
	}
	return nil
}

// inverseBindMatrices reads n matrices from the accessor, or returns n
// identities when the skin declares none.
func (imp *importer) inverseBindMatrices(op string, idx *int, n int) ([]mgl32.Mat4, error) {
	out := make([]mgl32.Mat4, n)
	if idx == nil {
		for i := range out {
			out[i] = mgl32.Ident4()
		}
		return out, nil
	}

	acr, _, err := imp.accessorView(op, *idx)
	if err != nil {
		return nil, err
	}
	mats, err := modeler.ReadInverseBindMatrices(imp.doc, acr, nil)
	if err != nil {
		return nil, parseErrorf(op, "reading inverse bind matrices: %v", err)
	}
	if len(mats) != n {
		return nil, parseErrorf(op, "%d inverse bind matrices for %d joints", len(mats), n)
	}
	for i, m := range mats {
		for c := range 4 {
			for r := range 4 {
				out[i][c*4+r] = m[c][r]
			}
		}
	}
	return out, nil
}
