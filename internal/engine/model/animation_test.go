package model

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// addAnimation adds a two-key translation animation on node.
func addAnimation(f *fixture, name string, node int) {
	in := modeler.WriteAccessor(f.doc, gltf.TargetNone, []float32{0, 2})
	out := modeler.WriteAccessor(f.doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {4, 0, 0}})
	f.doc.Animations = append(f.doc.Animations, &gltf.Animation{
		Name:     name,
		Samplers: []*gltf.AnimationSampler{{Input: in, Output: out}},
		Channels: []*gltf.AnimationChannel{{
			Sampler: 0,
			Target:  gltf.AnimationChannelTarget{Node: gltf.Index(node), Path: gltf.TRSTranslation},
		}},
	})
}

func TestChannelSampleLinear(t *testing.T) {
	c := Channel{
		Path:   PathTranslation,
		Times:  []float32{0, 1, 3},
		Values: []mgl32.Vec4{{0, 0, 0, 0}, {2, 0, 0, 0}, {2, 4, 0, 0}},
	}
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, c.Sample(0.5))
	assert.Equal(t, mgl32.Vec4{2, 2, 0, 0}, c.Sample(2))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 0}, c.Sample(-1), "clamps before the first key")
	assert.Equal(t, mgl32.Vec4{2, 4, 0, 0}, c.Sample(10), "clamps after the last key")
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 0}, c.Sample(math32.NaN()))
}

func TestChannelSampleStep(t *testing.T) {
	c := Channel{
		Path:          PathScale,
		Interpolation: InterpolationStep,
		Times:         []float32{0, 1},
		Values:        []mgl32.Vec4{{1, 1, 1, 0}, {2, 2, 2, 0}},
	}
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 0}, c.Sample(0.99))
	assert.Equal(t, mgl32.Vec4{2, 2, 2, 0}, c.Sample(1))
}

func TestChannelSampleRotationSlerp(t *testing.T) {
	q0 := mgl32.QuatIdent()
	q1 := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})
	c := Channel{
		Path:  PathRotation,
		Times: []float32{0, 1},
		Values: []mgl32.Vec4{
			{q0.V[0], q0.V[1], q0.V[2], q0.W},
			{q1.V[0], q1.V[1], q1.V[2], q1.W},
		},
	}
	got := vecQuat(c.Sample(0.5))
	want := mgl32.QuatRotate(math32.Pi/4, mgl32.Vec3{0, 1, 0})
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v got %v", want, got)
}

func TestChannelSampleCubicSpline(t *testing.T) {
	// Zero tangents: the midpoint is the average of the two values.
	c := Channel{
		Path:          PathTranslation,
		Interpolation: InterpolationCubicSpline,
		Times:         []float32{0, 1},
		Values: []mgl32.Vec4{
			{}, {0, 0, 0, 0}, {},
			{}, {2, 4, 0, 0}, {},
		},
	}
	got := c.Sample(0.5)
	assert.InDelta(t, 1, got[0], 1e-6)
	assert.InDelta(t, 2, got[1], 1e-6)
	assert.Equal(t, mgl32.Vec4{2, 4, 0, 0}, c.Sample(1))

	// A slope of 2 on both ends reproduces the straight line.
	c.Values[2] = mgl32.Vec4{2, 4, 0, 0}
	c.Values[3] = mgl32.Vec4{2, 4, 0, 0}
	got = c.Sample(0.25)
	assert.InDelta(t, 0.5, got[0], 1e-5)
	assert.InDelta(t, 1, got[1], 1e-5)
}

func TestAnimationDurationAndWrap(t *testing.T) {
	a := newAnimation("a", []Channel{
		{Times: []float32{0, 1.5}, Values: make([]mgl32.Vec4, 2)},
		{NodeIndex: 1, Node: 1, Times: []float32{0.5, 4}, Values: make([]mgl32.Vec4, 2)},
	}, func(int) Pose { return Pose{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}} })

	assert.Equal(t, float32(4), a.Duration())
	assert.InDelta(t, 1, a.Wrap(5), 1e-6)
	assert.InDelta(t, 3, a.Wrap(-1), 1e-6)
	assert.Equal(t, float32(0), a.Wrap(math32.Inf(1)))

	empty := newAnimation("empty", nil, nil)
	assert.Equal(t, float32(0), empty.Wrap(3))
}

func TestAnimationApplyKeepsRestPose(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("tri", nil)
	n := f.node(&gltf.Node{
		Name:     "n",
		Mesh:     gltf.Index(mesh),
		Rotation: [4]float64{0, 0.7071067811865476, 0, 0.7071067811865476},
		Scale:    [3]float64{2, 2, 2},
	})
	f.roots(n)
	addAnimation(f, "slide", n)

	m := f.mustImport(t, gpu.NewRecorder())
	anim, ok := m.Animation("slide")
	require.True(t, ok)
	require.Len(t, anim.Channels, 1)
	assert.Equal(t, n, anim.Channels[0].NodeIndex)
	assert.Equal(t, float32(2), anim.Duration())

	anim.Apply(m.Hierarchy(), 1)

	h, _ := m.Hierarchy().Lookup(n)
	want := mgl32.Translate3D(2, 0, 0).
		Mul4(mgl32.HomogRotate3DY(math32.Pi / 2)).
		Mul4(mgl32.Scale3D(2, 2, 2))
	assertMat(t, want, m.Hierarchy().Local(h))
	assertMat(t, want, m.Hierarchy().WorldTransform(h))
}

func TestImportAnimationNames(t *testing.T) {
	f := newFixture()
	n := f.node(&gltf.Node{Name: "n"})
	f.roots(n)
	addAnimation(f, "walk", n)
	addAnimation(f, "walk", n)
	addAnimation(f, "", n)

	_, err := f.importWith(t, gpu.NewRecorder(), DefaultImportOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateAnimation)
	assert.ErrorIs(t, err, ErrParse)

	opts := DefaultImportOptions()
	opts.DuplicateAnimations = DuplicateRename
	m, err := f.importWith(t, gpu.NewRecorder(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"animation2", "walk", "walk.1"}, m.AnimationNames())
}

func TestImportSkipsWeightChannels(t *testing.T) {
	f := newFixture()
	n := f.node(&gltf.Node{Name: "n"})
	f.roots(n)
	addAnimation(f, "morph", n)
	f.doc.Animations[0].Channels[0].Target.Path = gltf.TRSWeights

	m := f.mustImport(t, gpu.NewRecorder())
	anim, ok := m.Animation("morph")
	require.True(t, ok)
	assert.Empty(t, anim.Channels)
}

func TestImportRejectsMalformedTracks(t *testing.T) {
	tests := []struct {
		name   string
		times  []float32
		output any
		path   gltf.TRSProperty
		interp gltf.Interpolation
	}{
		{"decreasing times", []float32{1, 0}, [][3]float32{{}, {}}, gltf.TRSTranslation, gltf.InterpolationLinear},
		{"count mismatch", []float32{0, 1}, [][3]float32{{}}, gltf.TRSTranslation, gltf.InterpolationLinear},
		{"cubic without tangents", []float32{0, 1}, [][3]float32{{}, {}}, gltf.TRSScale, gltf.InterpolationCubicSpline},
		{"rotation as vec3", []float32{0, 1}, [][3]float32{{}, {}}, gltf.TRSRotation, gltf.InterpolationLinear},
		{"translation as vec4", []float32{0, 1}, [][4]float32{{}, {}}, gltf.TRSTranslation, gltf.InterpolationLinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			n := f.node(&gltf.Node{Name: "n"})
			f.roots(n)
			in := modeler.WriteAccessor(f.doc, gltf.TargetNone, tt.times)
			out := modeler.WriteAccessor(f.doc, gltf.TargetNone, tt.output)
			f.doc.Animations = append(f.doc.Animations, &gltf.Animation{
				Samplers: []*gltf.AnimationSampler{{Input: in, Output: out, Interpolation: tt.interp}},
				Channels: []*gltf.AnimationChannel{{Target: gltf.AnimationChannelTarget{Node: gltf.Index(n), Path: tt.path}}},
			})

			_, err := f.importWith(t, gpu.NewRecorder(), DefaultImportOptions())
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestImportNormalizedRotation(t *testing.T) {
	tests := []struct {
		name       string
		output     any
		normalized bool
		want       mgl32.Vec4
	}{
		{"short", [][4]int16{{0, 0, 0, 32767}, {0, 23170, 0, 23170}}, true, mgl32.Vec4{0, 0.70711, 0, 0.70711}},
		{"byte", [][4]int8{{0, 0, 0, 127}, {0, -128, 0, 0}}, true, mgl32.Vec4{0, -1, 0, 0}},
		{"unsigned byte", [][4]uint8{{0, 0, 0, 255}, {0, 255, 0, 0}}, true, mgl32.Vec4{0, 1, 0, 0}},
		{"unsigned short", [][4]uint16{{0, 0, 0, 65535}, {65535, 0, 0, 0}}, true, mgl32.Vec4{1, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			n := f.node(&gltf.Node{Name: "n"})
			f.roots(n)
			in := modeler.WriteAccessor(f.doc, gltf.TargetNone, []float32{0, 1})
			out := modeler.WriteAccessor(f.doc, gltf.TargetNone, tt.output)
			f.doc.Accessors[out].Normalized = tt.normalized
			f.doc.Animations = append(f.doc.Animations, &gltf.Animation{
				Name:     "turn",
				Samplers: []*gltf.AnimationSampler{{Input: in, Output: out}},
				Channels: []*gltf.AnimationChannel{{Target: gltf.AnimationChannelTarget{Node: gltf.Index(n), Path: gltf.TRSRotation}}},
			})

			m := f.mustImport(t, gpu.NewRecorder())
			anim, ok := m.Animation("turn")
			require.True(t, ok)
			require.Len(t, anim.Channels, 1)
			values := anim.Channels[0].Values
			require.Len(t, values, 2)
			for i := range 4 {
				assert.InDelta(t, []float32{0, 0, 0, 1}[i], values[0][i], 1e-6)
				assert.InDelta(t, tt.want[i], values[1][i], 1e-4)
			}
		})
	}
}

func TestImportRejectsIntegerTracks(t *testing.T) {
	tests := []struct {
		name       string
		output     any
		path       gltf.TRSProperty
		normalized bool
	}{
		{"rotation not normalized", [][4]int16{{0, 0, 0, 32767}, {0, 0, 0, 32767}}, gltf.TRSRotation, false},
		{"normalized translation", [][3]int16{{}, {}}, gltf.TRSTranslation, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			n := f.node(&gltf.Node{Name: "n"})
			f.roots(n)
			in := modeler.WriteAccessor(f.doc, gltf.TargetNone, []float32{0, 1})
			out := modeler.WriteAccessor(f.doc, gltf.TargetNone, tt.output)
			f.doc.Accessors[out].Normalized = tt.normalized
			f.doc.Animations = append(f.doc.Animations, &gltf.Animation{
				Samplers: []*gltf.AnimationSampler{{Input: in, Output: out}},
				Channels: []*gltf.AnimationChannel{{Target: gltf.AnimationChannelTarget{Node: gltf.Index(n), Path: tt.path}}},
			})

			_, err := f.importWith(t, gpu.NewRecorder(), DefaultImportOptions())
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("Rename")
	require.NoError(t, err)
	assert.Equal(t, DuplicateRename, p)

	p, err = ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateError, p)

	_, err = ParseDuplicatePolicy("merge")
	assert.Error(t, err)
}
