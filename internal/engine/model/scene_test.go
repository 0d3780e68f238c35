package model

import (
	"encoding/json"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

func strength(v float64) map[string]any {
	return map[string]any{"lighting_strength": v}
}

func TestExtrasInheritance(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("tri", nil)
	c := f.meshNode("c", mesh, [3]float64{}, strength(0.25))
	b := f.meshNode("b", mesh, [3]float64{}, nil, c)
	d := f.meshNode("d", mesh, [3]float64{}, nil)
	group := f.node(&gltf.Node{Name: "group", Children: []int{d}})
	a := f.meshNode("a", mesh, [3]float64{}, strength(0.5), b, group)
	e := f.meshNode("e", mesh, [3]float64{}, nil)
	f.roots(a, e)

	m := f.mustImport(t, gpu.NewRecorder())
	want := map[string]float32{"a": 0.5, "b": 0.5, "c": 0.25, "d": 0.5, "e": 1}
	for name, ls := range want {
		assert.InDelta(t, ls, drawableByName(t, m, name).Extras.LightingStrength, 1e-6, name)
	}

	// Inherited raw extras are the ancestor's, verbatim.
	var raw map[string]float64
	require.NoError(t, json.Unmarshal(drawableByName(t, m, "b").RawExtras, &raw))
	assert.Equal(t, map[string]float64{"lighting_strength": 0.5}, raw)
	assert.Nil(t, drawableByName(t, m, "e").RawExtras)
}

func TestExtrasSiblingsDoNotInherit(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("tri", nil)
	first := f.meshNode("first", mesh, [3]float64{}, strength(0.5))
	second := f.meshNode("second", mesh, [3]float64{}, nil)
	parent := f.node(&gltf.Node{Name: "parent", Children: []int{first, second}})
	f.roots(parent)

	m := f.mustImport(t, gpu.NewRecorder())
	assert.InDelta(t, 0.5, drawableByName(t, m, "first").Extras.LightingStrength, 1e-6)
	assert.InDelta(t, 1, drawableByName(t, m, "second").Extras.LightingStrength, 1e-6)

	// With the value on the shared ancestor, both siblings see it.
	f.doc.Nodes[parent].Extras = strength(0.5)
	f.doc.Nodes[first].Extras = strength(0.75)
	m = f.mustImport(t, gpu.NewRecorder())
	assert.InDelta(t, 0.75, drawableByName(t, m, "first").Extras.LightingStrength, 1e-6)
	assert.InDelta(t, 0.5, drawableByName(t, m, "second").Extras.LightingStrength, 1e-6)
}

func TestExtrasWithoutKnownFieldsUseDefaults(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("tri", nil)
	child := f.meshNode("child", mesh, [3]float64{}, map[string]any{"note": "hello"})
	f.roots(f.meshNode("parent", mesh, [3]float64{}, strength(0.5), child))

	m := f.mustImport(t, gpu.NewRecorder())
	d := drawableByName(t, m, "child")
	assert.InDelta(t, 1, d.Extras.LightingStrength, 1e-6)
	assert.JSONEq(t, `{"note":"hello"}`, string(d.RawExtras))
}

func TestExtrasParseFailure(t *testing.T) {
	build := func() *fixture {
		f := newFixture()
		mesh := f.triangle("tri", nil)
		child := f.meshNode("child", mesh, [3]float64{}, nil)
		bad := f.meshNode("bad", mesh, [3]float64{}, map[string]any{"lighting_strength": "bright"}, child)
		f.roots(f.meshNode("top", mesh, [3]float64{}, strength(0.5), bad))
		return f
	}

	m, err := build().importWith(t, gpu.NewRecorder(), DefaultImportOptions())
	require.NoError(t, err, "lenient import falls back to defaults")
	assert.InDelta(t, 1, drawableByName(t, m, "bad").Extras.LightingStrength, 1e-6)
	assert.InDelta(t, 1, drawableByName(t, m, "child").Extras.LightingStrength, 1e-6)
	assert.InDelta(t, 0.5, drawableByName(t, m, "top").Extras.LightingStrength, 1e-6)

	opts := DefaultImportOptions()
	opts.StrictExtras = true
	_, err = build().importWith(t, gpu.NewRecorder(), opts)
	assert.ErrorIs(t, err, ErrParse)
}

func TestMeshExtrasOrientation(t *testing.T) {
	f := newFixture()
	fixed := f.triangle("fixed", nil)
	billboard := f.triangle("billboard", map[string]any{"is_billboard": true})
	upright := f.triangle("upright", map[string]any{"is_billboard": true, "keep_upright": true})
	broken := f.triangle("broken", map[string]any{"is_billboard": 3})
	f.roots(
		f.meshNode("fixed", fixed, [3]float64{}, nil),
		f.meshNode("billboard", billboard, [3]float64{}, nil),
		f.meshNode("upright", upright, [3]float64{}, nil),
		f.meshNode("broken", broken, [3]float64{}, nil),
	)

	m := f.mustImport(t, gpu.NewRecorder())
	assert.Equal(t, OrientFixed, drawableByName(t, m, "fixed").Mesh.Orientation)
	assert.Equal(t, OrientBillboard, drawableByName(t, m, "billboard").Mesh.Orientation)
	assert.Equal(t, OrientBillboardUpright, drawableByName(t, m, "upright").Mesh.Orientation)
	assert.Equal(t, OrientFixed, drawableByName(t, m, "broken").Mesh.Orientation)

	opts := DefaultImportOptions()
	opts.StrictExtras = true
	_, err := f.importWith(t, gpu.NewRecorder(), opts)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDrawableSkinAndName(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("shape", nil)
	joint := f.node(&gltf.Node{Name: "joint"})
	f.doc.Skins = append(f.doc.Skins, &gltf.Skin{Name: "rig", Joints: []int{joint}, Skeleton: gltf.Index(joint)})
	body := f.node(&gltf.Node{Mesh: gltf.Index(mesh), Skin: gltf.Index(0)})
	f.roots(joint, body)

	m := f.mustImport(t, gpu.NewRecorder())
	d := drawableByName(t, m, "shape")
	require.NotNil(t, d.Skin)
	assert.Equal(t, "rig", d.Skin.Name)
	jh, _ := m.Hierarchy().Lookup(joint)
	assert.Equal(t, jh, d.Skin.Skeleton)
	assert.Equal(t, jh, d.Skin.Joints[0].Node)
}

func TestDrawableNamesPreferNodes(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("leaf", nil)
	left := f.meshNode("left", mesh, [3]float64{-1, 0, 0}, nil)
	right := f.meshNode("right", mesh, [3]float64{1, 0, 0}, nil)
	unnamed := f.node(&gltf.Node{Mesh: gltf.Index(mesh)})
	f.roots(left, right, unnamed)

	m := f.mustImport(t, gpu.NewRecorder())
	var names []string
	for _, d := range m.Drawables() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"left", "right", "leaf"}, names)
	assert.Same(t, drawableByName(t, m, "left").Mesh, drawableByName(t, m, "right").Mesh)
}
